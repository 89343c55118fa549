// Package registryclient announces services to a rift registry and lists its contents.
package registryclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"rift/domain"
	"rift/helpers"
	"rift/service"
)

const (
	commandList     = 'L'
	commandRegister = 'R'

	// DefaultTimeout bounds a whole register or list exchange when ctx carries no deadline.
	DefaultTimeout = 5 * time.Second
)

// Client talks to a registry server over its line protocol. Every call opens a fresh connection.
type Client struct {
	addr   string
	dialer net.Dialer
}

// New creates a client for the registry at addr (host:port). Panics on empty addr.
func New(addr string) *Client {
	return &Client{addr: helpers.StrPanic(addr, "adapters.registryclient: registry addr is required")}
}

// Register announces d: it connects, sends 'R' followed by the descriptor JSON and closes.
// Delivery is at most once and unacknowledged: a nil error only means the bytes were handed to the
// network, not that the registry accepted them. Use List to confirm.
//
// Returns: nil after a successful send; a validation_error when d is incomplete (nothing is sent);
// an error on dial/write failure.
func (c *Client) Register(ctx context.Context, d domain.ServiceDescriptor) error {
	if err := d.Validate(); err != nil {
		return service.NewValidationError("descriptor is incomplete", err)
	}
	payload, err := service.EncodeDescriptor(d)
	if err != nil {
		return err
	}

	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	msg := make([]byte, 0, len(payload)+1)
	msg = append(msg, commandRegister)
	msg = append(msg, payload...)
	if _, err := conn.Write(msg); err != nil {
		return fmt.Errorf("can't send registration to %s, err: %w", c.addr, err)
	}
	return nil
}

// List requests the registry contents ('L') and reads the JSON array until the server closes.
//
// Returns: (descriptors, nil) in registration order, possibly empty; (nil, error) on dial/read failure
// or when the response is not a JSON array of descriptors.
func (c *Client) List(ctx context.Context) ([]domain.ServiceDescriptor, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Write([]byte{commandList}); err != nil {
		return nil, fmt.Errorf("can't send list request to %s, err: %w", c.addr, err)
	}
	body, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("can't read list response from %s, err: %w", c.addr, err)
	}
	return service.DecodeDescriptors(body)
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("can't connect to registry %s, err: %w", c.addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	return conn, nil
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}
