// Package handlers contains the network frontends of rift: the registry line protocol server,
// the DNS frontend and the HTTP admin API.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"rift/helpers"
	"rift/interfaces"
	"rift/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
)

// Registry request discriminators: the first byte of every connection.
const (
	CommandList     byte = 'L'
	CommandRegister byte = 'R'
)

const (
	DefaultRegistryReadTimeout = 30 * time.Second
	DefaultRegistryMaxPayload  = 1 << 20
)

// RegistryServerOptions tunes per-connection limits. Zero values select the defaults.
type RegistryServerOptions struct {
	// ReadTimeout bounds the whole handling of one connection.
	ReadTimeout time.Duration
	// MaxPayload is the largest accepted register payload in bytes.
	MaxPayload int64
}

// RegistryServer serves the registry line protocol. Each accepted connection carries exactly one request:
// 'L' lists the registry as a JSON array and closes; 'R' is followed by a descriptor JSON object read up to
// EOF (the client closes after sending) and appended to the store. Anything else is logged and closed.
// No state is kept between connections.
type RegistryServer struct {
	store  interfaces.RegistryStore
	opts   RegistryServerOptions
	logger log.Logger

	wg sync.WaitGroup
}

// NewRegistryServer creates the server. Panics on nil store or logger.
func NewRegistryServer(store interfaces.RegistryStore, opts RegistryServerOptions, logger log.Logger) *RegistryServer {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultRegistryReadTimeout
	}
	if opts.MaxPayload <= 0 {
		opts.MaxPayload = DefaultRegistryMaxPayload
	}
	return &RegistryServer{
		store:  helpers.NilPanic(store, "handlers.registry.go: store is required"),
		opts:   opts,
		logger: log.With(helpers.NilPanic(logger, "handlers.registry.go: logger is required"), "component", "RegistryServer"),
	}
}

// Serve accepts connections on ln until ctx is cancelled or accepting fails, handling each connection in its
// own goroutine. It closes ln and waits for in-flight connections before returning. Returns nil after
// cancellation, the accept error otherwise.
func (s *RegistryServer) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer s.wg.Wait()

	level.Info(s.logger).Log("msg", "registry listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			_ = ln.Close()
			return fmt.Errorf("registry accept failed, err: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *RegistryServer) handleConn(conn net.Conn) {
	defer conn.Close()
	logger := log.With(s.logger, "conn_id", uuid.NewString(), "peer", conn.RemoteAddr().String())
	_ = conn.SetDeadline(time.Now().Add(s.opts.ReadTimeout))

	var cmd [1]byte
	if _, err := io.ReadFull(conn, cmd[:]); err != nil {
		level.Debug(logger).Log("msg", "connection closed before a command was sent", "err", err)
		return
	}

	var err error
	switch cmd[0] {
	case CommandList:
		err = s.list(conn, logger)
	case CommandRegister:
		err = s.register(conn, logger)
	default:
		err = service.NewUnknownCommandError(cmd[0])
	}
	if err != nil {
		level.Warn(logger).Log("msg", "registry request rejected", "command", string(cmd[:]), "err", err)
	}
}

func (s *RegistryServer) list(conn net.Conn, logger log.Logger) error {
	snapshot := s.store.Snapshot()
	payload, err := service.EncodeDescriptors(snapshot)
	if err != nil {
		return err
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("write list response, err: %w", err)
	}
	level.Info(logger).Log("msg", "sent service descriptors", "count", len(snapshot))
	return nil
}

func (s *RegistryServer) register(conn net.Conn, logger log.Logger) error {
	payload, err := io.ReadAll(io.LimitReader(conn, s.opts.MaxPayload+1))
	if err != nil {
		return fmt.Errorf("read register payload, err: %w", err)
	}
	if int64(len(payload)) > s.opts.MaxPayload {
		return service.NewValidationError(fmt.Sprintf("payload exceeds %d bytes", s.opts.MaxPayload), nil)
	}

	d, err := service.DecodeDescriptor(payload)
	if err != nil {
		return err
	}
	if err := s.store.Append(d); err != nil {
		return err
	}
	level.Info(logger).Log("msg", "added service", "name", d.Name, "type", d.Type, "target", d.Target.URLTemplate)
	return nil
}
