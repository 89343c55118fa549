package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"rift/domain"
	"rift/interfaces/mock"

	"github.com/go-kit/log"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex() domain.DomainIndex {
	return domain.DomainIndex{"example": {"svc": {"h1", "h2", "h3"}}}
}

func upstreamAnswer(name string) *dns.Msg {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeA)
	m.Response = true
	rr, _ := dns.NewRR(dns.Fqdn(name) + " 300 IN A 192.0.2.1")
	m.Answer = append(m.Answer, rr)
	return m
}

func cnameTargets(t *testing.T, msg *dns.Msg) []string {
	t.Helper()
	out := make([]string, 0, len(msg.Answer))
	for _, rr := range msg.Answer {
		cname, ok := rr.(*dns.CNAME)
		require.True(t, ok, "unexpected record %v", rr)
		out = append(out, cname.Target)
	}
	return out
}

func TestIndexResolver_Match(t *testing.T) {
	r := NewIndexResolver(testIndex(), NewRoundRobinPolicy(), DefaultAnswerTTL, log.NewNopLogger())

	msg, err := r.Resolve(context.Background(), domain.Query{Name: "svc.example", Type: dns.TypeA})
	require.NoError(t, err)
	assert.Equal(t, dns.RcodeSuccess, msg.Rcode)
	assert.Equal(t, []string{"h1.", "h2.", "h3."}, cnameTargets(t, msg))
	for _, rr := range msg.Answer {
		assert.Equal(t, "svc.example.", rr.Header().Name)
		assert.Equal(t, uint32(10), rr.Header().Ttl)
		assert.Equal(t, dns.TypeCNAME, rr.Header().Rrtype)
	}

	msg, err = r.Resolve(context.Background(), domain.Query{Name: "SVC.Example.", Type: dns.TypeA})
	require.NoError(t, err)
	assert.Equal(t, []string{"h2.", "h3.", "h1."}, cnameTargets(t, msg))
}

func TestIndexResolver_Miss(t *testing.T) {
	r := NewIndexResolver(testIndex(), NewShufflePolicy(), DefaultAnswerTTL, log.NewNopLogger())
	for _, name := range []string{"unknown.nowhere", "svc.other", "other.example", "example", "svc.sub.example", ""} {
		t.Run(name, func(t *testing.T) {
			msg, err := r.Resolve(context.Background(), domain.Query{Name: name, Type: dns.TypeA})
			assert.ErrorIs(t, err, ErrResolutionMiss)
			assert.Nil(t, msg)
		})
	}
}

func TestIndexResolver_SnapshotsIndex(t *testing.T) {
	idx := testIndex()
	r := NewIndexResolver(idx, NewRoundRobinPolicy(), time.Millisecond, log.NewNopLogger())
	idx["example"]["svc"] = []string{"changed"}
	idx.Add("example", "late", "h9")

	msg, err := r.Resolve(context.Background(), domain.Query{Name: "svc.example.", Type: dns.TypeA})
	require.NoError(t, err)
	assert.Equal(t, []string{"h1.", "h2.", "h3."}, cnameTargets(t, msg))
	assert.Equal(t, uint32(1), msg.Answer[0].Header().Ttl, "ttl is at least one second")

	_, err = r.Resolve(context.Background(), domain.Query{Name: "late.example.", Type: dns.TypeA})
	assert.ErrorIs(t, err, ErrResolutionMiss)
}

func TestDomainResolver_MatchDistribution(t *testing.T) {
	upstream := &mock.ResolverMock{}
	r := NewDomainResolver(testIndex(), upstream, NewShufflePolicy(), DefaultAnswerTTL, log.NewNopLogger())

	const trials = 1000
	first := make(map[string]int)
	for i := 0; i < trials; i++ {
		msg, err := r.Resolve(context.Background(), domain.Query{Name: "svc.example", Type: dns.TypeA, Timeout: time.Second})
		require.NoError(t, err)
		targets := cnameTargets(t, msg)
		require.Len(t, targets, 3)
		first[targets[0]]++
	}

	for _, h := range []string{"h1.", "h2.", "h3."} {
		// Expected ~333; sd ~15, the bound is > 6 sd.
		assert.InDelta(t, trials/3, first[h], 95, "target %s", h)
	}
	assert.Empty(t, upstream.ResolveCalls())
}

func TestDomainResolver_Fallback(t *testing.T) {
	want := upstreamAnswer("unknown.nowhere")
	upstream := &mock.ResolverMock{
		ResolveFunc: func(ctx context.Context, q domain.Query) (*dns.Msg, error) {
			return want, nil
		},
	}
	r := NewDomainResolver(testIndex(), upstream, NewShufflePolicy(), DefaultAnswerTTL, log.NewNopLogger())

	q := domain.Query{Name: "unknown.nowhere", Type: dns.TypeA, Timeout: 3 * time.Second}
	got, err := r.Resolve(context.Background(), q)
	require.NoError(t, err)
	assert.Same(t, want, got)

	calls := upstream.ResolveCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, q, calls[0].Q)
}

func TestDomainResolver_FallbackEdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		index domain.DomainIndex
		query string
	}{
		{name: "domain key absent", index: testIndex(), query: "svc.other"},
		{name: "top label absent", index: testIndex(), query: "nope.example"},
		{name: "single label", index: testIndex(), query: "localhost"},
		{name: "empty index", index: domain.DomainIndex{}, query: "svc.example"},
		{name: "nil index", index: nil, query: "svc.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := &mock.ResolverMock{
				ResolveFunc: func(ctx context.Context, q domain.Query) (*dns.Msg, error) {
					return upstreamAnswer(q.Name), nil
				},
			}
			r := NewDomainResolver(tt.index, upstream, NewShufflePolicy(), DefaultAnswerTTL, log.NewNopLogger())

			msg, err := r.Resolve(context.Background(), domain.Query{Name: tt.query, Type: dns.TypeA, Timeout: time.Second})
			require.NoError(t, err)
			require.Len(t, msg.Answer, 1)
			assert.Equal(t, dns.TypeA, msg.Answer[0].Header().Rrtype)
			require.Len(t, upstream.ResolveCalls(), 1)
			assert.Equal(t, tt.query, upstream.ResolveCalls()[0].Q.Name)
		})
	}
}

func TestDomainResolver_UpstreamFailureForwarded(t *testing.T) {
	failure := NewUpstreamFailureError("exchange failed", assert.AnError)
	upstream := &mock.ResolverMock{
		ResolveFunc: func(ctx context.Context, q domain.Query) (*dns.Msg, error) {
			return nil, failure
		},
	}
	r := NewDomainResolver(testIndex(), upstream, NewShufflePolicy(), DefaultAnswerTTL, log.NewNopLogger())

	msg, err := r.Resolve(context.Background(), domain.Query{Name: "unknown.nowhere", Type: dns.TypeA, Timeout: time.Second})
	assert.Nil(t, msg)
	assert.Same(t, failure, err)
}

func TestDomainResolver_NXDomainForwardedAsMessage(t *testing.T) {
	nx := new(dns.Msg)
	nx.SetQuestion("unknown.nowhere.", dns.TypeA)
	nx.Rcode = dns.RcodeNameError
	upstream := &mock.ResolverMock{
		ResolveFunc: func(ctx context.Context, q domain.Query) (*dns.Msg, error) {
			return nx, nil
		},
	}
	r := NewDomainResolver(testIndex(), upstream, NewShufflePolicy(), DefaultAnswerTTL, log.NewNopLogger())

	msg, err := r.Resolve(context.Background(), domain.Query{Name: "unknown.nowhere", Type: dns.TypeA, Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, dns.RcodeNameError, msg.Rcode)
}

func TestDomainResolver_UpstreamTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	upstream := &mock.ResolverMock{
		ResolveFunc: func(ctx context.Context, q domain.Query) (*dns.Msg, error) {
			// Ignores ctx on purpose: the resolver must not hang anyway.
			<-release
			return nil, nil
		},
	}
	r := NewDomainResolver(testIndex(), upstream, NewShufflePolicy(), DefaultAnswerTTL, log.NewNopLogger())

	start := time.Now()
	msg, err := r.Resolve(context.Background(), domain.Query{Name: "unknown.nowhere", Type: dns.TypeA, Timeout: 50 * time.Millisecond})
	assert.Nil(t, msg)
	require.Error(t, err)
	assert.True(t, IsUpstreamTimeoutError(err), "got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDomainResolver_Cancelled(t *testing.T) {
	upstream := &mock.ResolverMock{
		ResolveFunc: func(ctx context.Context, q domain.Query) (*dns.Msg, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	r := NewDomainResolver(testIndex(), upstream, NewShufflePolicy(), DefaultAnswerTTL, log.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Resolve(ctx, domain.Query{Name: "unknown.nowhere", Type: dns.TypeA, Timeout: time.Second})
	require.Error(t, err)
	assert.False(t, IsUpstreamTimeoutError(err))
}

func TestResolverChain(t *testing.T) {
	var order []string
	miss := &mock.ResolverMock{
		ResolveFunc: func(ctx context.Context, q domain.Query) (*dns.Msg, error) {
			order = append(order, "miss")
			return nil, ErrResolutionMiss
		},
	}
	hit := &mock.ResolverMock{
		ResolveFunc: func(ctx context.Context, q domain.Query) (*dns.Msg, error) {
			order = append(order, "hit")
			return upstreamAnswer(q.Name), nil
		},
	}
	never := &mock.ResolverMock{}

	msg, err := NewResolverChain(miss, hit, never).Resolve(context.Background(), domain.Query{Name: "a.b"})
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, []string{"miss", "hit"}, order)
	assert.Empty(t, never.ResolveCalls())

	_, err = NewResolverChain(miss).Resolve(context.Background(), domain.Query{Name: "a.b"})
	assert.ErrorIs(t, err, ErrResolutionMiss)

	_, err = NewResolverChain().Resolve(context.Background(), domain.Query{Name: "a.b"})
	assert.ErrorIs(t, err, ErrResolutionMiss)
}

func TestCachingResolver(t *testing.T) {
	var calls atomic.Int32
	next := &mock.ResolverMock{
		ResolveFunc: func(ctx context.Context, q domain.Query) (*dns.Msg, error) {
			calls.Add(1)
			switch q.Name {
			case "fail.example":
				return nil, NewUpstreamFailureError("boom", nil)
			case "nx.example":
				m := new(dns.Msg)
				m.Rcode = dns.RcodeNameError
				return m, nil
			}
			return upstreamAnswer(q.Name), nil
		},
	}
	c := NewCachingResolver(next, time.Minute, time.Minute)
	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	first, err := c.Resolve(ctx, domain.Query{Name: "ok.example", Type: dns.TypeA})
	require.NoError(t, err)
	now = now.Add(20 * time.Second)
	second, err := c.Resolve(ctx, domain.Query{Name: "OK.example.", Type: dns.TypeA})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint32(300), first.Answer[0].Header().Ttl)
	assert.Equal(t, uint32(280), second.Answer[0].Header().Ttl)
	assert.Equal(t, 1, c.Len())

	_, err = c.Resolve(ctx, domain.Query{Name: "ok.example", Type: dns.TypeAAAA})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "query type is part of the key")

	for i := 0; i < 2; i++ {
		_, err = c.Resolve(ctx, domain.Query{Name: "fail.example", Type: dns.TypeA})
		require.Error(t, err)
		_, err = c.Resolve(ctx, domain.Query{Name: "nx.example", Type: dns.TypeA})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(6), calls.Load(), "errors and NXDOMAIN are not cached")
}
