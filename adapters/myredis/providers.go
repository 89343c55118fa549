// Package myredis reads and publishes the provider lists behind the domain index in Redis.
package myredis

import (
	"context"
	"fmt"
	"strings"

	"rift/helpers"
	"rift/service"

	"github.com/go-redis/redis/v8"
)

// DefaultProviderPrefix namespaces provider keys: the list at "provider:<type>" holds the hosts
// offering <type>.
const DefaultProviderPrefix = "provider"

type providerSource struct {
	client redis.UniversalClient
	prefix string
}

// NewProviderSource creates the Redis implementation of interfaces.ProviderSource.
// An empty prefix selects DefaultProviderPrefix. Panics on nil client.
func NewProviderSource(client redis.UniversalClient, prefix string) *providerSource {
	if prefix == "" {
		prefix = DefaultProviderPrefix
	}
	return &providerSource{
		client: helpers.NilPanic(client, "adapters.myredis: client is required"),
		prefix: prefix,
	}
}

// Providers scans every "<prefix>:<type>" list and returns type → hosts. Types are returned as stored;
// the index builder lower-cases them. Lists that are empty or not lists are skipped.
func (p *providerSource) Providers(ctx context.Context) (map[string][]string, error) {
	providers := map[string][]string{}
	prefixWithColon := p.prefix + ":"

	iter := p.client.Scan(ctx, 0, prefixWithColon+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		typ := strings.TrimPrefix(key, prefixWithColon)
		if typ == "" {
			continue
		}
		hosts, err := p.client.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			if strings.HasPrefix(err.Error(), "WRONGTYPE") {
				continue
			}
			return nil, service.NewInternalServerError("Redis read providers error", fmt.Errorf("can't read provider list (key='%s'), err: %w", key, err))
		}
		if len(hosts) > 0 {
			providers[typ] = append(providers[typ], hosts...)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, service.NewInternalServerError("Redis scan providers error", fmt.Errorf("can't scan provider keys, err: %w", err))
	}
	return providers, nil
}

// SetProviders replaces the host list of typ atomically. An empty hosts removes typ.
func (p *providerSource) SetProviders(ctx context.Context, typ string, hosts ...string) error {
	key := p.prefix + ":" + typ
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(hosts) > 0 {
			values := make([]interface{}, len(hosts))
			for i, h := range hosts {
				values[i] = h
			}
			pipe.RPush(ctx, key, values...)
		}
		return nil
	})
	if err != nil {
		return service.NewInternalServerError("Redis write providers error", fmt.Errorf("can't write provider list (key='%s'), err: %w", key, err))
	}
	return nil
}
