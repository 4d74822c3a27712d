package main

import (
	"context"
	"net/http"

	"linkmint/internal/config"
	"linkmint/internal/resolver"
	"linkmint/internal/rewrite"
	"linkmint/pkg/affiliate"
	"linkmint/pkg/affiliate/mavely"
	"linkmint/pkg/amazon"
	"linkmint/pkg/amazon/paapi"
	"linkmint/pkg/cache"
	"linkmint/pkg/logger"
	"linkmint/pkg/session"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// getSessions builds the affiliate session manager, or returns nil when no
// credentials are configured at all.
func getSessions(ctx context.Context, cfg *config.Config) *session.Manager {
	n := cfg.Network
	if n.Cookie == "" && n.CookieFile == "" && n.BearerToken == "" {
		return nil
	}

	var source session.CredentialSource
	if n.CookieFile != "" {
		source = session.FileSource{Path: n.CookieFile, Bearer: n.BearerToken}
	} else {
		source = session.StaticSource{Artifact: session.Artifact{
			Cookie: session.CookieHeader(n.Cookie),
			Bearer: n.BearerToken,
		}}
	}

	var refresher session.Refresher
	if n.Refresh.Enabled && n.Refresh.Command != "" {
		refresher = session.ExecRefresher{Command: n.Refresh.Command}
	}

	return session.NewManager(ctx, session.Options{
		Source:    source,
		Refresher: refresher,
		Cooldown:  n.Refresh.Cooldown,
	})
}

// getLinker builds the affiliate network client. A nil session manager means
// minting stays disabled and the engine falls back to Amazon tagging and
// plain expansion.
func getLinker(ctx context.Context, cfg *config.Config, sessions *session.Manager) affiliate.Linker {
	if sessions == nil {
		logger.Warn(ctx, "no affiliate network credentials configured, link minting disabled")

		return nil
	}

	return mavely.New(
		&http.Client{Timeout: cfg.Network.Timeout},
		sessions,
		mavely.Options{
			BaseURL:         cfg.Network.BaseURL,
			GraphQLEndpoint: cfg.Network.GraphQLEndpoint,
			UserAgent:       cfg.Expand.UserAgent,
			MinInterval:     cfg.Network.MinInterval,
			MaxRetries:      cfg.Network.MaxRetries,
		})
}

// getEnricher builds the PA-API client; a client without credentials reports
// itself disabled and is never called.
func getEnricher(cfg *config.Config) *paapi.Client {
	return paapi.New(
		&http.Client{Timeout: cfg.PAAPI.Timeout},
		paapi.Options{
			AccessKey:   cfg.PAAPI.AccessKey,
			SecretKey:   cfg.PAAPI.SecretKey,
			PartnerTag:  cfg.PAAPI.PartnerTag,
			Host:        cfg.PAAPI.Host,
			Region:      cfg.PAAPI.Region,
			Marketplace: cfg.PAAPI.Marketplace,
		})
}

// getCache builds the enrichment cache, backed by redis when configured.
func getCache(ctx context.Context, cfg *config.Config) *cache.Enrichment {
	var client *redis.Client
	if cfg.Cache.RedisAddr != "" {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
	}

	c, err := cache.New(cache.Options{TTL: cfg.Cache.TTL, Client: client})
	if err != nil {
		logger.Fatal(ctx, "could not create enrichment cache", zap.Error(err))
	}

	return c
}

// appDeps bundles the wired collaborators a command needs.
type appDeps struct {
	engine   *rewrite.Engine
	sessions *session.Manager
	linker   affiliate.Linker
	cleanup  func()
}

// getDeps wires the full monetization engine from configuration.
func getDeps(ctx context.Context, cfg *config.Config) appDeps {
	sessions := getSessions(ctx, cfg)
	linker := getLinker(ctx, cfg, sessions)
	enrichCache := getCache(ctx, cfg)

	engine := rewrite.NewEngine(
		rewrite.Deps{
			Resolver: resolver.New(resolver.Options{
				Enabled:           cfg.Expand.Enabled,
				MaxRedirects:      cfg.Expand.MaxRedirects,
				Timeout:           cfg.Expand.Timeout,
				UserAgent:         cfg.Expand.UserAgent,
				ExtraHosts:        cfg.Expand.ExtraHosts,
				HubHosts:          cfg.Expand.HubHosts,
				NetworkLinkDomain: cfg.Network.LinkDomain,
			}),
			Linker:   linker,
			Enricher: getEnricher(cfg),
			Cache:    enrichCache,
		},
		amazon.Tagger{
			AssociateTag:    cfg.Amazon.AssociateTag,
			MarketplaceBase: cfg.Amazon.MarketplaceBase,
		},
		rewrite.Options{
			NetworkLinkDomain: cfg.Network.LinkDomain,
			MaskEnabled:       cfg.Amazon.Mask.Enabled,
			MaskPrefix:        cfg.Amazon.Mask.Prefix,
			MaskSlugLength:    cfg.Amazon.Mask.SlugLength,
			Marketplace:       cfg.PAAPI.Marketplace,
			Workers:           cfg.Workers,
		})

	cleanup := func() {
		logger.Info(ctx, "closing enrichment cache...")
		enrichCache.Close()
	}

	return appDeps{engine: engine, sessions: sessions, linker: linker, cleanup: cleanup}
}
