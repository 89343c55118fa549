package interfaces

// AnswerPolicy orders the alias targets of a matched name; it is the load-distribution strategy
// of service.IndexResolver. Implemented by service.ShufflePolicy (uniform random permutation, default)
// and service.RoundRobinPolicy (per-name rotation).
type AnswerPolicy interface {
	// Order returns the targets for name in answer order. Must return a new slice and leave targets untouched,
	// since targets belong to the read-only domain index.
	Order(name string, targets []string) []string
}
