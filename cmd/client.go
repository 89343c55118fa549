package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"rift/adapters/registryclient"
	"rift/domain"
	"rift/service"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
)

func newRegisterCommand(a *app) *cobra.Command {
	var (
		confirm time.Duration
		addr    string
	)
	cmd := &cobra.Command{
		Use:   "register <file|->",
		Short: "Announce a service descriptor to the registry",
		Long: "Reads a JSON service descriptor from the file (or stdin for -) and sends it to the registry.\n" +
			"Registration is unacknowledged; --confirm polls the registry list until the descriptor shows up.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			d, err := service.DecodeDescriptor(payload)
			if err != nil {
				return err
			}
			return a.register(cmd.Context(), a.registryAddr(addr), d, confirm)
		},
	}
	cmd.Flags().DurationVar(&confirm, "confirm", 0, "wait up to this long for the descriptor to appear in the registry list")
	cmd.Flags().StringVar(&addr, "registry", "", "registry address (default: $REGISTRY_ADDR)")
	return cmd
}

func newListCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the registry contents as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			descriptors, err := registryclient.New(a.registryAddr(addr)).List(cmd.Context())
			if err != nil {
				return a.fail("Failed to list registry", err)
			}
			out, err := json.MarshalIndent(descriptors, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "registry", "", "registry address (default: $REGISTRY_ADDR)")
	return cmd
}

func (a *app) registryAddr(flag string) string {
	if flag != "" {
		return flag
	}
	return a.config.RegistryAddr
}

func (a *app) register(ctx context.Context, addr string, d domain.ServiceDescriptor, confirm time.Duration) error {
	client := registryclient.New(addr)

	before := 0
	if confirm > 0 {
		current, err := client.List(ctx)
		if err != nil {
			return a.fail("Failed to list registry", err)
		}
		before = countEqual(current, d)
	}

	if err := client.Register(ctx, d); err != nil {
		return a.fail("Failed to register", err)
	}
	level.Info(a.logger).Log("msg", "Registration sent", "registry", addr, "name", d.Name, "type", d.Type)
	if confirm <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, confirm)
	defer cancel()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		current, err := client.List(ctx)
		if err == nil && countEqual(current, d) > before {
			level.Info(a.logger).Log("msg", "Registration confirmed", "name", d.Name)
			return nil
		}
		select {
		case <-ctx.Done():
			return a.fail("Registration not confirmed", fmt.Errorf("descriptor not listed after %s", confirm))
		case <-ticker.C:
		}
	}
}

func countEqual(ds []domain.ServiceDescriptor, d domain.ServiceDescriptor) int {
	n := 0
	for _, x := range ds {
		if x == d {
			n++
		}
	}
	return n
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
