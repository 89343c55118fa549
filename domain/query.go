package domain

import (
	"strings"
	"time"
)

// Query is an incoming resolution request.
type Query struct {
	Name    string        // domain name, with or without the trailing root dot
	Type    uint16        // DNS query type (dns.TypeA, dns.TypeCNAME, ...)
	Timeout time.Duration // budget for the whole resolution; zero means no deadline
}

// SplitName splits a query name the way the domain index is keyed.
// The name is lower-cased and treated as fully qualified, so "svc.example"
// yields topLabel "svc" and domainKey "example". ok is false when the name
// has fewer than two labels below the root.
func SplitName(name string) (topLabel, domainKey string, ok bool) {
	name = strings.ToLower(strings.TrimSuffix(name, "."))
	if name == "" {
		return "", "", false
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return "", "", false
	}
	return labels[0], strings.Join(labels[1:], "."), true
}
