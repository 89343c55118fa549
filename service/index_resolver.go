package service

import (
	"context"
	"time"

	"rift/domain"
	"rift/helpers"
	"rift/interfaces"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/miekg/dns"
)

// DefaultAnswerTTL is the TTL of alias records served from the domain index. It is short so that
// clients re-resolve often and pick up the next ordering.
const DefaultAnswerTTL = 10 * time.Second

// IndexResolver implements interfaces.Resolver over a domain index snapshot. A name matches when its
// domain key is in the index and its top label is under that key; the answer is one CNAME per target,
// ordered by the answer policy. Every other name is a miss.
type IndexResolver struct {
	index  domain.DomainIndex
	policy interfaces.AnswerPolicy
	ttl    uint32
	logger log.Logger
}

// NewIndexResolver copies index, so later changes to the caller's map are not observed.
// A ttl below one second is raised to one second. Panics on nil policy or logger.
func NewIndexResolver(index domain.DomainIndex, policy interfaces.AnswerPolicy, ttl time.Duration, logger log.Logger) *IndexResolver {
	secs := uint32(ttl / time.Second)
	if secs == 0 {
		secs = 1
	}
	if index == nil {
		index = domain.DomainIndex{}
	}
	return &IndexResolver{
		index:  index.Clone(),
		policy: helpers.NilPanic(policy, "service.index_resolver.go: policy is required"),
		ttl:    secs,
		logger: log.With(helpers.NilPanic(logger, "service.index_resolver.go: logger is required"), "component", "IndexResolver"),
	}
}

// Resolve returns the alias answer for a matched name, or ErrResolutionMiss.
func (r *IndexResolver) Resolve(_ context.Context, q domain.Query) (*dns.Msg, error) {
	topLabel, domainKey, ok := domain.SplitName(q.Name)
	if !ok {
		return nil, ErrResolutionMiss
	}
	targets, ok := r.index.Lookup(domainKey, topLabel)
	if !ok {
		return nil, ErrResolutionMiss
	}

	name := dns.Fqdn(q.Name)
	msg := new(dns.Msg)
	msg.SetQuestion(name, q.Type)
	msg.Response = true
	msg.Rcode = dns.RcodeSuccess
	for _, target := range r.policy.Order(name, targets) {
		msg.Answer = append(msg.Answer, &dns.CNAME{
			Hdr: dns.RR_Header{
				Name:   name,
				Rrtype: dns.TypeCNAME,
				Class:  dns.ClassINET,
				Ttl:    r.ttl,
			},
			Target: dns.Fqdn(target),
		})
	}

	level.Debug(r.logger).Log("msg", "index match", "name", name, "answers", len(msg.Answer))
	return msg, nil
}
