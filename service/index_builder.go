package service

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"

	"rift/domain"
	"rift/interfaces"
)

// DefaultIndexZone is the domain key under which action types are published, so that
// "discoveraction.org.schema." resolves to the providers of DiscoverAction.
const DefaultIndexZone = "org.schema"

// BuildIndex publishes providers under zone. Types are lower-cased; when actions is non-empty only the
// listed types (compared case-insensitively) are published.
func BuildIndex(zone string, providers map[string][]string, actions []string) domain.DomainIndex {
	allowed := make(map[string]bool, len(actions))
	for _, a := range actions {
		if a = strings.TrimSpace(a); a != "" {
			allowed[strings.ToLower(a)] = true
		}
	}

	// Sorted so that duplicate types differing only by case merge deterministically.
	types := make([]string, 0, len(providers))
	for typ := range providers {
		types = append(types, typ)
	}
	sort.Strings(types)

	idx := domain.DomainIndex{}
	for _, typ := range types {
		key := strings.ToLower(typ)
		if len(allowed) > 0 && !allowed[key] {
			continue
		}
		idx.Add(zone, key, providers[typ]...)
	}
	return idx
}

// IndexFromDescriptors publishes registered descriptors under zone: each descriptor's @type maps to the
// host of its target urlTemplate, in registration order. Descriptors whose template has no host are skipped.
func IndexFromDescriptors(zone string, descriptors []domain.ServiceDescriptor) domain.DomainIndex {
	idx := domain.DomainIndex{}
	for _, d := range descriptors {
		host := templateHost(d.Target.URLTemplate)
		if host == "" || d.Type == "" {
			continue
		}
		idx.Add(zone, d.Type, host)
	}
	return idx
}

// templateHost extracts the host of a URL template such as "http://172.16.1.52:8677/about{?q}".
func templateHost(tmpl string) string {
	if i := strings.IndexAny(tmpl, "{"); i >= 0 {
		tmpl = tmpl[:i]
	}
	u, err := url.Parse(tmpl)
	if err != nil || u.Host == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(u.Host); err == nil {
		return host
	}
	return u.Host
}

// LoadIndex builds one index from all provider sources. Any source failure aborts the load.
func LoadIndex(ctx context.Context, zone string, actions []string, sources ...interfaces.ProviderSource) (domain.DomainIndex, error) {
	idx := domain.DomainIndex{}
	for i, src := range sources {
		providers, err := src.Providers(ctx)
		if err != nil {
			return nil, NewInternalServerError(fmt.Sprintf("can't read provider source #%d", i), err)
		}
		idx.Merge(BuildIndex(zone, providers, actions))
	}
	return idx, nil
}
