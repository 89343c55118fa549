package service

import (
	"math/rand/v2"
	"slices"
	"sync"
)

// ShufflePolicy implements interfaces.AnswerPolicy with a uniform random permutation of the targets.
// Repeated queries for the same name return each target first with equal probability.
type ShufflePolicy struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewShufflePolicy creates a policy backed by the runtime's random source.
func NewShufflePolicy() *ShufflePolicy {
	return &ShufflePolicy{}
}

// NewSeededShufflePolicy creates a policy with a deterministic source, for reproducible tests.
func NewSeededShufflePolicy(seed uint64) *ShufflePolicy {
	return &ShufflePolicy{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Order returns a shuffled copy of targets.
func (p *ShufflePolicy) Order(_ string, targets []string) []string {
	out := slices.Clone(targets)
	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }
	if p.rnd == nil {
		rand.Shuffle(len(out), swap)
		return out
	}
	p.mu.Lock()
	p.rnd.Shuffle(len(out), swap)
	p.mu.Unlock()
	return out
}

// RoundRobinPolicy implements interfaces.AnswerPolicy by rotating the targets of each name:
// the n-th query for a name starts with target n mod len(targets).
type RoundRobinPolicy struct {
	mu sync.Mutex
	rr map[string]int
}

// NewRoundRobinPolicy creates a policy with no rotation state.
func NewRoundRobinPolicy() *RoundRobinPolicy {
	return &RoundRobinPolicy{rr: make(map[string]int)}
}

// Order returns targets rotated by the name's counter and advances the counter.
func (p *RoundRobinPolicy) Order(name string, targets []string) []string {
	if len(targets) == 0 {
		return []string{}
	}
	p.mu.Lock()
	start := p.rr[name] % len(targets)
	p.rr[name] = (start + 1) % len(targets)
	p.mu.Unlock()

	out := make([]string, 0, len(targets))
	out = append(out, targets[start:]...)
	return append(out, targets[:start]...)
}
