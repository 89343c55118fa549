// Package indexfile loads the domain index from disk.
//
// Two formats are understood. A .yaml or .yml file holds the complete nested index:
//
//	org.schema:
//	  discoveraction: [a.example.net, b.example.net]
//	example:
//	  svc: [svc1.example.net]
//
// Any other file is a provider list, one action type per line followed by comma separated hosts:
//
//	DiscoverAction a.example.net,b.example.net
//
// Provider lists are published under a zone by service.BuildIndex.
package indexfile

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rift/domain"
	"rift/helpers"
	"rift/service"

	"gopkg.in/yaml.v3"
)

// ProviderFile implements interfaces.ProviderSource over a provider list file.
type ProviderFile struct {
	path string
}

// NewProviderFile creates the source. The file is read on every Providers call. Panics on empty path.
func NewProviderFile(path string) *ProviderFile {
	return &ProviderFile{path: helpers.StrPanic(path, "adapters.indexfile: path is required")}
}

// Providers reads and parses the file. Blank lines and lines starting with '#' are ignored.
// A type listed twice accumulates hosts.
func (f *ProviderFile) Providers(_ context.Context) (map[string][]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, service.NewInternalServerError("can't read provider file", err)
	}
	return ParseProviders(data)
}

// ParseProviders parses provider list content.
func ParseProviders(data []byte) (map[string][]string, error) {
	providers := map[string][]string{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, service.NewBadParameterError(fmt.Sprintf("line %d: want \"<type> <host>[,<host>...]\", got %q", n, line), nil)
		}
		for _, host := range strings.Split(fields[1], ",") {
			if host = strings.TrimSpace(host); host != "" {
				providers[fields[0]] = append(providers[fields[0]], host)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, service.NewBadParameterError("can't scan provider list", err)
	}
	return providers, nil
}

// Load reads the index at path. YAML files are taken as the complete index; provider lists are published
// under zone, filtered by actions when it is non-empty.
func Load(ctx context.Context, path, zone string, actions []string) (domain.DomainIndex, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, service.NewInternalServerError("can't read index file", err)
		}
		return ParseIndex(data)
	default:
		return service.LoadIndex(ctx, zone, actions, NewProviderFile(path))
	}
}

// ParseIndex decodes a YAML index. Keys are lower-cased without a trailing root dot; targets are deduplicated.
func ParseIndex(data []byte) (domain.DomainIndex, error) {
	var raw map[string]map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, service.NewBadParameterError("index file is not a mapping of domain key to label to targets", err)
	}
	idx := domain.DomainIndex{}
	for domainKey, labels := range raw {
		for topLabel, targets := range labels {
			idx.Add(strings.TrimSuffix(domainKey, "."), topLabel, targets...)
		}
	}
	return idx, nil
}
