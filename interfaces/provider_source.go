package interfaces

import "context"

// ProviderSource supplies the provider list used to build the domain index:
// lower-cased action type → provider hostnames.
//
// Implemented by adapters/indexfile.ProviderFile and adapters/myredis.ProviderSource.
// Called from service.LoadIndex at resolver startup.
//
//go:generate moq -stub -out mock/provider_source.go -pkg mock . ProviderSource
type ProviderSource interface {
	// Providers returns the provider mapping.
	// Returns: (providers, nil) on success (an empty map is valid); (nil, error) when the source cannot be read.
	Providers(ctx context.Context) (map[string][]string, error)
}
