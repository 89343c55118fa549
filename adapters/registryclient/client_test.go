package registryclient

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"rift/domain"
	"rift/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptor(name string) domain.ServiceDescriptor {
	return domain.ServiceDescriptor{
		Context: "http://schema.org",
		Type:    "DiscoverAction",
		Name:    name,
		Target: domain.Target{
			Type:        "EntryPoint",
			URLTemplate: "http://" + name + ".example.net:8677/about",
			ContentType: "application/json+ld",
			HTTPMethod:  "GET",
		},
	}
}

// fakeRegistry accepts one connection, records everything the client sends until it half-closes or closes,
// then writes reply and closes.
func fakeRegistry(t *testing.T, reply []byte) (addr string, received <-chan []byte) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	ch := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

		if reply == nil {
			got, _ := io.ReadAll(conn)
			ch <- got
			return
		}
		buf := make([]byte, 1)
		_, _ = io.ReadFull(conn, buf)
		ch <- buf
		_, _ = conn.Write(reply)
	}()
	return ln.Addr().String(), ch
}

func TestClient_RegisterWireFormat(t *testing.T) {
	addr, received := fakeRegistry(t, nil)
	d := testDescriptor("a")

	require.NoError(t, New(addr).Register(context.Background(), d))

	got := <-received
	require.NotEmpty(t, got)
	assert.Equal(t, byte('R'), got[0])
	decoded, err := service.DecodeDescriptor(got[1:])
	require.NoError(t, err)
	assert.Equal(t, d, decoded)
}

func TestClient_RegisterInvalidDescriptorNotSent(t *testing.T) {
	// Nothing listens on this address; the error must come from encoding, before dialing.
	d := testDescriptor("a")
	d.Target.URLTemplate = ""
	err := New("127.0.0.1:1").Register(context.Background(), d)
	require.Error(t, err)
	assert.True(t, service.IsValidationError(err))
}

func TestClient_List(t *testing.T) {
	want := []domain.ServiceDescriptor{testDescriptor("a"), testDescriptor("b")}
	reply, err := service.EncodeDescriptors(want)
	require.NoError(t, err)
	addr, received := fakeRegistry(t, reply)

	got, err := New(addr).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []byte{'L'}, <-received)
}

func TestClient_ListEmptyRegistry(t *testing.T) {
	addr, _ := fakeRegistry(t, []byte("[]"))

	got, err := New(addr).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestClient_ListMalformedResponse(t *testing.T) {
	addr, _ := fakeRegistry(t, []byte(`{"not":"an array"}`))

	_, err := New(addr).List(context.Background())
	require.Error(t, err)
	assert.True(t, service.IsBadParameterError(err))
}

func TestClient_DialError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := New(addr)
	assert.Error(t, c.Register(context.Background(), testDescriptor("a")))
	_, err = c.List(context.Background())
	assert.Error(t, err)
}

func TestClient_ListHonoursContextDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// Never answer.
		time.Sleep(2 * time.Second)
		_ = conn.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = New(ln.Addr().String()).List(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNew_PanicsOnEmptyAddr(t *testing.T) {
	assert.Panics(t, func() { New("") })
}
