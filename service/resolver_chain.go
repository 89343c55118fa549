package service

import (
	"context"
	"errors"
	"time"

	"rift/domain"
	"rift/helpers"
	"rift/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/miekg/dns"
)

// ResolverChain implements interfaces.Resolver by trying resolvers in order. A resolver returning
// ErrResolutionMiss passes the query on; any other result, success or failure, ends the chain.
type ResolverChain struct {
	resolvers []interfaces.Resolver
}

// NewResolverChain creates a chain. Panics on a nil resolver.
func NewResolverChain(resolvers ...interfaces.Resolver) *ResolverChain {
	for _, r := range resolvers {
		helpers.NilPanic(r, "service.resolver_chain.go: resolver is required")
	}
	return &ResolverChain{resolvers: resolvers}
}

// Resolve returns the first non-miss result, or ErrResolutionMiss when every resolver missed.
func (c *ResolverChain) Resolve(ctx context.Context, q domain.Query) (*dns.Msg, error) {
	for _, r := range c.resolvers {
		msg, err := r.Resolve(ctx, q)
		if errors.Is(err, ErrResolutionMiss) {
			continue
		}
		return msg, err
	}
	return nil, ErrResolutionMiss
}

// deadlineResolver bounds a resolver by the query timeout, whether or not the wrapped
// implementation honours its context.
type deadlineResolver struct {
	next interfaces.Resolver
}

type resolveResult struct {
	msg *dns.Msg
	err error
}

func (r deadlineResolver) Resolve(ctx context.Context, q domain.Query) (*dns.Msg, error) {
	if q.Timeout <= 0 {
		return r.next.Resolve(ctx, q)
	}
	ctx, cancel := context.WithTimeout(ctx, q.Timeout)
	defer cancel()

	done := make(chan resolveResult, 1)
	go func() {
		msg, err := r.next.Resolve(ctx, q)
		done <- resolveResult{msg: msg, err: err}
	}()

	select {
	case res := <-done:
		return res.msg, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewUpstreamTimeoutError("upstream did not answer in time", ctx.Err())
		}
		return nil, NewUpstreamFailureError("query cancelled", ctx.Err())
	}
}

// DomainResolver answers queries from the domain index first and forwards everything else,
// unchanged, to the upstream resolver. The upstream call is bounded by the query timeout and
// its failures are returned as-is; they are never retried here.
type DomainResolver struct {
	chain  *ResolverChain
	logger log.Logger
}

// NewDomainResolver builds the [index, upstream] chain. Panics on nil upstream, policy or logger.
//
// index is copied. upstream is the fallback, usually an UpstreamResolver possibly wrapped in a
// CachingResolver. policy orders the answers of matched names; ttl is the alias record TTL.
//
// Called from cmd (dns command) at startup.
func NewDomainResolver(
	index domain.DomainIndex,
	upstream interfaces.Resolver,
	policy interfaces.AnswerPolicy,
	ttl time.Duration,
	logger log.Logger,
) *DomainResolver {
	logger = helpers.NilPanic(logger, "service.resolver_chain.go: logger is required")
	upstream = helpers.NilPanic(upstream, "service.resolver_chain.go: upstream is required")
	return &DomainResolver{
		chain: NewResolverChain(
			NewIndexResolver(index, policy, ttl, logger),
			deadlineResolver{next: upstream},
		),
		logger: log.With(logger, "component", "DomainResolver"),
	}
}

func (d *DomainResolver) Resolve(ctx context.Context, q domain.Query) (*dns.Msg, error) {
	msg, err := d.chain.Resolve(ctx, q)
	if err != nil {
		level.Debug(d.logger).Log("msg", "resolution failed", "name", q.Name, "err", err)
		return nil, err
	}
	return msg, nil
}
