package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rift/handlers"
	"rift/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newRegistryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "registry",
		Short: "Run the service registry (line protocol, optional HTTP admin API)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runRegistry(cmd.Context())
		},
	}
}

func (a *app) runRegistry(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	config, logger := a.config, a.logger

	level.Info(logger).Log(
		"msg", "Starting rift registry",
		"registry_addr", config.RegistryAddr,
		"service_port_http", config.HTTPPort,
		"service_port_grpc", config.GRPCPort,
	)

	store := service.NewRegistryStore()

	var e *echo.Echo
	if config.HTTPPort != 0 {
		var err error
		e, err = handlers.NewEcho(ctx, handlers.NewHTTPServer(store, handlers.DefaultAbout(version), logger), logger)
		if err != nil {
			return a.fail("Failed to create HTTP server", err)
		}
	}

	listeners := &listenerSet{}
	defer listeners.closeUnused()
	registryLn, err := listeners.listen("tcp", config.RegistryAddr)
	if err != nil {
		return a.fail("Failed to listen", err)
	}
	var httpLn net.Listener
	if e != nil {
		if httpLn, err = listeners.listen("tcp", fmt.Sprintf(":%d", config.HTTPPort)); err != nil {
			return a.fail("Failed to listen", err)
		}
	}
	healthLn, err := listenHealth(config.GRPCPort)
	if err != nil {
		return a.fail("Failed to listen", err)
	}
	listeners.add(healthLn)
	listeners.handedOver()

	g, gctx := errgroup.WithContext(ctx)
	registry := handlers.NewRegistryServer(store, handlers.RegistryServerOptions{
		ReadTimeout: config.RegistryReadTimeout,
		MaxPayload:  config.RegistryMaxPayload,
	}, logger)
	g.Go(func() error { return registry.Serve(gctx, registryLn) })
	if e != nil {
		g.Go(func() error { return serveEcho(gctx, e, httpLn, logger) })
	}
	if healthLn != nil {
		g.Go(func() error { return serveHealth(gctx, healthLn, logger) })
	}

	if err := g.Wait(); err != nil {
		return a.fail("Registry stopped", err)
	}
	level.Info(logger).Log("msg", "Server stopped", "services", store.Len())
	return nil
}

// serveEcho runs e on ln until ctx is done, then shuts it down gracefully.
func serveEcho(ctx context.Context, e *echo.Echo, ln net.Listener, logger log.Logger) error {
	e.Listener = ln
	errCh := make(chan error, 1)
	go func() {
		level.Info(logger).Log("msg", "Starting HTTP server", "addr", ln.Addr())
		errCh <- e.Start("")
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		level.Error(logger).Log("msg", "Error during server shutdown", "err", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// listenerSet closes already bound sockets when a later bind fails.
type listenerSet struct {
	closers []io.Closer
	done    bool
}

func (s *listenerSet) listen(network, addr string) (net.Listener, error) {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, fmt.Errorf("can't listen on %s %s: %w", network, addr, err)
	}
	s.add(ln)
	return ln, nil
}

func (s *listenerSet) listenPacket(network, addr string) (net.PacketConn, error) {
	pc, err := net.ListenPacket(network, addr)
	if err != nil {
		return nil, fmt.Errorf("can't listen on %s %s: %w", network, addr, err)
	}
	s.add(pc)
	return pc, nil
}

func (s *listenerSet) add(c io.Closer) {
	if c != nil {
		s.closers = append(s.closers, c)
	}
}

// handedOver marks the sockets as owned by their servers.
func (s *listenerSet) handedOver() { s.done = true }

func (s *listenerSet) closeUnused() {
	if s.done {
		return
	}
	for _, c := range s.closers {
		_ = c.Close()
	}
}
