package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rift/adapters/indexfile"
	"rift/adapters/myredis"
	"rift/adapters/registryclient"
	"rift/domain"
	"rift/handlers"
	"rift/interfaces"
	"rift/service"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newDNSCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dns",
		Short: "Run the discovery DNS server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runDNS(cmd.Context())
		},
	}
}

func (a *app) runDNS(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	config, logger := a.config, a.logger

	level.Info(logger).Log(
		"msg", "Starting rift dns",
		"dns_addr", config.DNSAddr,
		"upstream_dns", config.UpstreamDNS,
		"answer_policy", config.AnswerPolicy,
		"upstream_cache", config.UpstreamCache,
		"service_port_grpc", config.GRPCPort,
	)

	index, err := a.loadIndex(ctx)
	if err != nil {
		return a.fail("Failed to load domain index", err)
	}
	level.Info(logger).Log("msg", "Domain index loaded", "names", index.Names())

	var upstream interfaces.Resolver = service.NewUpstreamResolver(config.UpstreamDNS, logger)
	if config.UpstreamCache {
		upstream = service.NewCachingResolver(upstream, service.DefaultCacheMaxTTL, service.DefaultCacheCleanupInterval)
	}

	var policy interfaces.AnswerPolicy = service.NewShufflePolicy()
	if config.AnswerPolicy == AnswerPolicyRoundRobin {
		policy = service.NewRoundRobinPolicy()
	}

	resolver := service.NewDomainResolver(index, upstream, policy, config.DNSTTL, logger)
	dnsServer := handlers.NewDNSServer(handlers.NewDNSHandler(resolver, config.DNSTimeout, logger), logger)

	listeners := &listenerSet{}
	defer listeners.closeUnused()
	pc, err := listeners.listenPacket("udp", config.DNSAddr)
	if err != nil {
		return a.fail("Failed to listen", err)
	}
	tcpLn, err := listeners.listen("tcp", config.DNSAddr)
	if err != nil {
		return a.fail("Failed to listen", err)
	}
	healthLn, err := listenHealth(config.GRPCPort)
	if err != nil {
		return a.fail("Failed to listen", err)
	}
	listeners.add(healthLn)
	listeners.handedOver()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dnsServer.Serve(gctx, pc, tcpLn) })
	if healthLn != nil {
		g.Go(func() error { return serveHealth(gctx, healthLn, logger) })
	}

	if err := g.Wait(); err != nil {
		return a.fail("DNS server stopped", err)
	}
	level.Info(logger).Log("msg", "Server stopped")
	return nil
}

// loadIndex merges every configured index source: the index file, Redis provider lists and the
// registry contents. No source configured yields an empty index, so every query goes upstream.
func (a *app) loadIndex(ctx context.Context) (domain.DomainIndex, error) {
	config, logger := a.config, a.logger
	index := domain.DomainIndex{}

	if config.IndexPath != "" {
		idx, err := indexfile.Load(ctx, config.IndexPath, config.IndexZone, config.IndexActions)
		if err != nil {
			return nil, err
		}
		level.Info(logger).Log("msg", "Loaded index file", "path", config.IndexPath, "names", idx.Names())
		index.Merge(idx)
	}

	if config.RedisAddr != "" {
		client, err := myredis.NewRedisUniversalClient(config.RedisAddr)
		if err != nil {
			return nil, err
		}
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, service.NewInternalServerError("can't connect to Redis", err)
		}
		idx, err := service.LoadIndex(ctx, config.IndexZone, config.IndexActions, myredis.NewProviderSource(client, ""))
		if err != nil {
			return nil, err
		}
		level.Info(logger).Log("msg", "Loaded Redis providers", "names", idx.Names())
		index.Merge(idx)
	}

	if config.IndexFromRegistry {
		descriptors, err := registryclient.New(config.RegistryAddr).List(ctx)
		if err != nil {
			return nil, err
		}
		idx := service.IndexFromDescriptors(config.IndexZone, descriptors)
		level.Info(logger).Log("msg", "Loaded registry descriptors", "services", len(descriptors), "names", idx.Names())
		index.Merge(idx)
	}

	return index, nil
}
