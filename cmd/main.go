// Command rift runs the service registry, the discovery DNS server, and the registration client.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
)

var version = "rift-v0.1"

// app carries what every subcommand needs once the root command has loaded the configuration.
type app struct {
	configPath string
	config     *Config
	logger     log.Logger
}

func main() {
	if err := newRootCommand(os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rift:", err)
		os.Exit(1)
	}
}

func newRootCommand(logOutput io.Writer) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "rift",
		Short:         "Decentralized service discovery over DNS",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			config, err := LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			a.config = config
			a.logger = newLogger(logOutput, config.LogLevel)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file (default: $CONFIG_PATH)")

	root.AddCommand(
		newRegistryCommand(a),
		newDNSCommand(a),
		newRegisterCommand(a),
		newListCommand(a),
	)
	return root
}

func newLogger(w io.Writer, levelName string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.WithPrefix(logger, "ts", log.DefaultTimestampUTC)
	logger = log.WithPrefix(logger, "caller", log.DefaultCaller)

	var allowed level.Option
	switch levelName {
	case "debug":
		allowed = level.AllowDebug()
	case "warn":
		allowed = level.AllowWarn()
	case "error":
		allowed = level.AllowError()
	default:
		allowed = level.AllowInfo()
	}
	return level.NewFilter(logger, allowed)
}

// fail logs err and returns it so that RunE reports a non-zero exit.
func (a *app) fail(msg string, err error) error {
	level.Error(a.logger).Log("msg", msg, "err", err)
	return fmt.Errorf("%s: %w", msg, err)
}
