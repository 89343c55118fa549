package domain

import (
	"slices"
	"strings"
)

// DomainIndex maps a second-level domain key to a mapping from top label to
// the ordered alias targets for that name, e.g.
//
//	{"org.schema": {"discoveraction": ["h1.example.net", "h2.example.net"]}}
//
// The resolver treats an index as read-only once handed over.
type DomainIndex map[string]map[string][]string

// Lookup returns the targets registered for topLabel under domainKey.
// The returned slice belongs to the index and must not be modified.
func (idx DomainIndex) Lookup(domainKey, topLabel string) ([]string, bool) {
	labels, ok := idx[domainKey]
	if !ok {
		return nil, false
	}
	targets, ok := labels[topLabel]
	if !ok || len(targets) == 0 {
		return nil, false
	}
	return targets, true
}

// Add appends targets under domainKey/topLabel, skipping targets already present.
func (idx DomainIndex) Add(domainKey, topLabel string, targets ...string) {
	domainKey = strings.ToLower(domainKey)
	topLabel = strings.ToLower(topLabel)
	labels, ok := idx[domainKey]
	if !ok {
		labels = make(map[string][]string)
		idx[domainKey] = labels
	}
	for _, t := range targets {
		if t == "" || slices.Contains(labels[topLabel], t) {
			continue
		}
		labels[topLabel] = append(labels[topLabel], t)
	}
}

// Merge adds every entry of other into idx.
func (idx DomainIndex) Merge(other DomainIndex) {
	for domainKey, labels := range other {
		for topLabel, targets := range labels {
			idx.Add(domainKey, topLabel, targets...)
		}
	}
}

// Clone returns a deep copy of idx.
func (idx DomainIndex) Clone() DomainIndex {
	out := make(DomainIndex, len(idx))
	for domainKey, labels := range idx {
		cp := make(map[string][]string, len(labels))
		for topLabel, targets := range labels {
			cp[topLabel] = slices.Clone(targets)
		}
		out[domainKey] = cp
	}
	return out
}

// Names returns the number of (domainKey, topLabel) entries.
func (idx DomainIndex) Names() int {
	n := 0
	for _, labels := range idx {
		n += len(labels)
	}
	return n
}
