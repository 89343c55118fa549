package service

import (
	"context"
	"strings"
	"time"

	"rift/domain"
	"rift/helpers"
	"rift/interfaces"

	"github.com/miekg/dns"
	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultCacheMaxTTL          = 5 * time.Minute
	DefaultCacheCleanupInterval = 10 * time.Minute
)

type cachedAnswer struct {
	msg      *dns.Msg
	storedAt time.Time
}

// CachingResolver decorates an upstream resolver with an in-memory answer cache.
// Only NOERROR answers carrying records are cached, for the smallest record TTL capped at maxTTL;
// TTLs of cached records are aged on the way out. Errors are never cached.
type CachingResolver struct {
	next   interfaces.Resolver
	cache  *gocache.Cache
	maxTTL time.Duration
	now    func() time.Time
}

// NewCachingResolver wraps next. Panics on nil next.
func NewCachingResolver(next interfaces.Resolver, maxTTL, cleanupInterval time.Duration) *CachingResolver {
	return &CachingResolver{
		next:   helpers.NilPanic(next, "service.caching_resolver.go: next resolver is required"),
		cache:  gocache.New(maxTTL, cleanupInterval),
		maxTTL: maxTTL,
		now:    time.Now,
	}
}

func (c *CachingResolver) Resolve(ctx context.Context, q domain.Query) (*dns.Msg, error) {
	key := cacheKey(q)
	if v, found := c.cache.Get(key); found {
		if entry, ok := v.(cachedAnswer); ok {
			return agedCopy(entry, c.now()), nil
		}
	}

	msg, err := c.next.Resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	if ttl := c.cacheTTL(msg); ttl > 0 {
		c.cache.Set(key, cachedAnswer{msg: msg.Copy(), storedAt: c.now()}, ttl)
	}
	return msg, nil
}

// Len returns the number of cached answers, including expired ones not yet cleaned up.
func (c *CachingResolver) Len() int {
	return c.cache.ItemCount()
}

func (c *CachingResolver) cacheTTL(msg *dns.Msg) time.Duration {
	if msg == nil || msg.Rcode != dns.RcodeSuccess || len(msg.Answer) == 0 {
		return 0
	}
	minTTL := msg.Answer[0].Header().Ttl
	for _, rr := range msg.Answer[1:] {
		minTTL = min(minTTL, rr.Header().Ttl)
	}
	return min(time.Duration(minTTL)*time.Second, c.maxTTL)
}

func cacheKey(q domain.Query) string {
	return strings.ToLower(dns.Fqdn(q.Name)) + "/" + dns.Type(q.Type).String()
}

func agedCopy(entry cachedAnswer, now time.Time) *dns.Msg {
	out := entry.msg.Copy()
	elapsed := uint32(now.Sub(entry.storedAt) / time.Second)
	for _, section := range [][]dns.RR{out.Answer, out.Ns, out.Extra} {
		for _, rr := range section {
			hdr := rr.Header()
			if hdr.Rrtype == dns.TypeOPT {
				continue
			}
			if hdr.Ttl > elapsed {
				hdr.Ttl -= elapsed
			} else {
				hdr.Ttl = 0
			}
		}
	}
	return out
}
