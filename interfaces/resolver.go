package interfaces

import (
	"context"

	"rift/domain"

	"github.com/miekg/dns"
)

// Resolver answers one name-resolution query.
//
// Implemented by service.IndexResolver (domain index overrides), service.UpstreamResolver
// (standard DNS servers), service.CachingResolver (decorator), service.ResolverChain and
// service.DomainResolver. Called from handlers.DNSHandler.ServeDNS for every question.
//
//go:generate moq -stub -out mock/resolver.go -pkg mock . Resolver
type Resolver interface {
	// Resolve answers q.
	// ctx cancellation aborts the resolution; q carries the name, query type and timeout budget.
	// Returns: (msg, nil) with Rcode/Answer/Ns/Extra to relay (NXDOMAIN from an upstream is a message, not an error);
	// (nil, service.ErrResolutionMiss) when this resolver has no answer and the next one in a chain should be tried;
	// (nil, upstream_failure|upstream_timeout) when the upstream could not answer.
	Resolve(ctx context.Context, q domain.Query) (*dns.Msg, error)
}
