package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"rift/domain"
	"rift/helpers"
	"rift/interfaces"
	"rift/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultDNSQueryTimeout = 5 * time.Second
	dnsShutdownGracePeriod = 5 * time.Second
)

// DNSHandler answers wire DNS queries through a resolver. Every reply has the RA bit set. Resolver
// failures become SERVFAIL, a name nobody can answer becomes NXDOMAIN, a query without a question
// becomes FORMERR.
type DNSHandler struct {
	resolver interfaces.Resolver
	timeout  time.Duration
	logger   log.Logger
}

// NewDNSHandler creates the handler. timeout bounds each resolution; zero selects DefaultDNSQueryTimeout.
// Panics on nil resolver or logger.
func NewDNSHandler(resolver interfaces.Resolver, timeout time.Duration, logger log.Logger) *DNSHandler {
	if timeout <= 0 {
		timeout = DefaultDNSQueryTimeout
	}
	return &DNSHandler{
		resolver: helpers.NilPanic(resolver, "handlers.dns.go: resolver is required"),
		timeout:  timeout,
		logger:   log.With(helpers.NilPanic(logger, "handlers.dns.go: logger is required"), "component", "DNSHandler"),
	}
}

// ServeDNS implements dns.Handler.
func (h *DNSHandler) ServeDNS(w dns.ResponseWriter, r *dns.Msg) {
	reply := new(dns.Msg)
	reply.SetReply(r)
	reply.RecursionAvailable = true

	if len(r.Question) == 0 {
		reply.Rcode = dns.RcodeFormatError
		h.write(w, r, reply)
		return
	}

	q := r.Question[0]
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	msg, err := h.resolver.Resolve(ctx, domain.Query{Name: q.Name, Type: q.Qtype, Timeout: h.timeout})
	switch {
	case errors.Is(err, service.ErrResolutionMiss):
		reply.Rcode = dns.RcodeNameError
	case err != nil:
		level.Error(h.logger).Log("msg", "resolution failed", "name", q.Name, "type", dns.TypeToString[q.Qtype], "err", err)
		reply.Rcode = dns.RcodeServerFailure
	default:
		reply.Rcode = msg.Rcode
		reply.Answer = msg.Answer
		reply.Ns = msg.Ns
		for _, rr := range msg.Extra {
			if rr.Header().Rrtype != dns.TypeOPT {
				reply.Extra = append(reply.Extra, rr)
			}
		}
	}

	level.Debug(h.logger).Log(
		"msg", "answered query",
		"name", q.Name,
		"type", dns.TypeToString[q.Qtype],
		"rcode", dns.RcodeToString[reply.Rcode],
		"answers", len(reply.Answer),
		"peer", w.RemoteAddr(),
	)
	h.write(w, r, reply)
}

func (h *DNSHandler) write(w dns.ResponseWriter, r, reply *dns.Msg) {
	size := dns.MinMsgSize
	if opt := r.IsEdns0(); opt != nil {
		reply.SetEdns0(opt.UDPSize(), false)
		if opt.UDPSize() > dns.MinMsgSize {
			size = int(opt.UDPSize())
		}
	}
	if _, udp := w.RemoteAddr().(*net.UDPAddr); udp {
		reply.Truncate(size)
	}
	if err := w.WriteMsg(reply); err != nil {
		level.Warn(h.logger).Log("msg", "can't write reply", "peer", w.RemoteAddr(), "err", err)
	}
}

// DNSServer runs a dns.Handler on a UDP socket and a TCP listener bound to the same address.
type DNSServer struct {
	handler dns.Handler
	logger  log.Logger
}

// NewDNSServer creates the server. Panics on nil handler or logger.
func NewDNSServer(handler dns.Handler, logger log.Logger) *DNSServer {
	return &DNSServer{
		handler: helpers.NilPanic(handler, "handlers.dns.go: handler is required"),
		logger:  log.With(helpers.NilPanic(logger, "handlers.dns.go: logger is required"), "component", "DNSServer"),
	}
}

// ListenAndServe binds addr for UDP and TCP and serves until ctx is cancelled.
func (s *DNSServer) ListenAndServe(ctx context.Context, addr string) error {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return fmt.Errorf("can't listen udp %s, err: %w", addr, err)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		_ = pc.Close()
		return fmt.Errorf("can't listen tcp %s, err: %w", addr, err)
	}
	return s.Serve(ctx, pc, ln)
}

// Serve serves on the already bound pc and ln until ctx is cancelled or one of them fails.
// Both are closed on return. Returns nil after cancellation.
func (s *DNSServer) Serve(ctx context.Context, pc net.PacketConn, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	s.run(g, gctx, &dns.Server{PacketConn: pc, Net: "udp", Handler: s.handler})
	s.run(g, gctx, &dns.Server{Listener: ln, Net: "tcp", Handler: s.handler})

	level.Info(s.logger).Log("msg", "dns listening", "udp", pc.LocalAddr().String(), "tcp", ln.Addr().String())
	err := g.Wait()
	level.Info(s.logger).Log("msg", "dns stopped", "err", err)
	return err
}

func (s *DNSServer) run(g *errgroup.Group, ctx context.Context, srv *dns.Server) {
	started := make(chan struct{})
	exited := make(chan struct{})
	srv.NotifyStartedFunc = func() { close(started) }

	g.Go(func() error {
		defer close(exited)
		if err := srv.ActivateAndServe(); err != nil {
			return fmt.Errorf("dns %s server failed, err: %w", srv.Net, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		select {
		case <-started:
		case <-exited:
			return nil
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), dnsShutdownGracePeriod)
		defer cancel()
		if err := srv.ShutdownContext(shutdownCtx); err != nil {
			level.Warn(s.logger).Log("msg", "dns shutdown", "net", srv.Net, "err", err)
		}
		return nil
	})
}
