package service

import (
	"context"
	"errors"
	"net"
	"time"

	"rift/domain"
	"rift/helpers"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/miekg/dns"
)

// UpstreamResolver implements interfaces.Resolver by forwarding the query to standard DNS servers.
// Servers are tried in order until one answers; a truncated UDP answer is retried over TCP on the
// same server. Whatever the server answers (including NXDOMAIN or SERVFAIL rcodes) is returned as a
// message. Only transport failures become errors.
type UpstreamResolver struct {
	servers   []string
	udpClient *dns.Client
	tcpClient *dns.Client
	logger    log.Logger
}

// NewUpstreamResolver creates a resolver for servers given as host:port. Panics on an empty server list or nil logger.
func NewUpstreamResolver(servers []string, logger log.Logger) *UpstreamResolver {
	if len(servers) == 0 {
		panic("service.upstream_resolver.go: at least one upstream server is required")
	}
	return &UpstreamResolver{
		servers:   servers,
		udpClient: &dns.Client{Net: "udp"},
		tcpClient: &dns.Client{Net: "tcp"},
		logger:    log.With(helpers.NilPanic(logger, "service.upstream_resolver.go: logger is required"), "component", "UpstreamResolver"),
	}
}

// Resolve forwards q. q.Timeout bounds the whole call across all servers.
//
// Returns: (msg, nil) when a server answered; (nil, upstream_timeout) when the budget ran out;
// (nil, upstream_failure) when every server failed for another reason.
func (r *UpstreamResolver) Resolve(ctx context.Context, q domain.Query) (*dns.Msg, error) {
	if q.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.Timeout)
		defer cancel()
	}

	req := new(dns.Msg)
	req.SetQuestion(dns.Fqdn(q.Name), q.Type)
	req.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		resp, rtt, err := r.udpClient.ExchangeContext(ctx, req, server)
		if err == nil && resp.Truncated {
			resp, rtt, err = r.tcpClient.ExchangeContext(ctx, req, server)
		}
		if err == nil {
			level.Debug(r.logger).Log("msg", "upstream answered", "name", req.Question[0].Name, "server", server,
				"rcode", dns.RcodeToString[resp.Rcode], "rtt", rtt)
			return resp, nil
		}
		lastErr = err
		level.Warn(r.logger).Log("msg", "upstream exchange failed", "server", server, "err", err)
		if ctx.Err() != nil {
			break
		}
	}

	if isTimeout(ctx, lastErr) {
		return nil, NewUpstreamTimeoutError("upstream did not answer in time", lastErr)
	}
	return nil, NewUpstreamFailureError("upstream exchange failed", lastErr)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// DefaultQueryTimeout is used by the DNS frontend when no timeout is configured.
const DefaultQueryTimeout = 5 * time.Second
