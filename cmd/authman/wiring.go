package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"

	"github.com/bremersee/authman/internal/approval"
	"github.com/bremersee/authman/internal/cache"
	"github.com/bremersee/authman/internal/config"
	"github.com/bremersee/authman/internal/domain/repository"
	"github.com/bremersee/authman/internal/observability/logger"
	"github.com/bremersee/authman/internal/providers"
	"github.com/bremersee/authman/internal/providers/facebook"
	"github.com/bremersee/authman/internal/providers/github"
	"github.com/bremersee/authman/internal/providers/google"
	"github.com/bremersee/authman/internal/security/secretbox"
	"github.com/bremersee/authman/internal/social"
	"github.com/bremersee/authman/internal/store/memory"
	"github.com/bremersee/authman/internal/store/pg"
	migrations "github.com/bremersee/authman/migrations/postgres"
)

// storage is the repository set of the configured driver.
type storage struct {
	approvals repository.ApprovalRepository
	clients   repository.ClientRegistry
	tokens    repository.ForeignTokenRepository
	ping      func(context.Context) error
	close     func()
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	log := logger.From(ctx).With(logger.Component("storage"))

	if cfg.Storage.Driver != "postgres" {
		st := memory.New()
		seedClients(st.ClientRegistry(), cfg.Storage.Clients)
		log.Info("memory storage ready", logger.Count(len(cfg.Storage.Clients)))
		return &storage{
			approvals: st.Approvals(),
			clients:   st.Clients(),
			tokens:    st.ForeignTokens(),
			ping:      func(context.Context) error { return nil },
			close:     func() {},
		}, nil
	}

	st, err := pg.Open(ctx, pg.Config{
		DSN:             cfg.Storage.DSN,
		MaxConns:        cfg.Storage.Postgres.MaxConns,
		ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	res, err := pg.NewMigrator(migrations.FS, migrations.Dir).Run(ctx, st.Pool())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("postgres storage ready",
		logger.Int("migrations_applied", len(res.Applied)),
		logger.Int("migrations_skipped", len(res.Skipped)),
		logger.Duration(res.Duration))

	return &storage{
		approvals: st.Approvals(),
		clients:   st.Clients(),
		tokens:    st.ForeignTokens(),
		ping:      st.Ping,
		close:     st.Close,
	}, nil
}

func seedClients(reg *memory.ClientRegistry, seeds []config.ClientSeed) {
	for _, s := range seeds {
		reg.Put(repository.ClientRecord{
			ClientID:             s.ClientID,
			Secret:               s.Secret,
			SecretEncrypted:      s.SecretEncrypted,
			GrantTypes:           s.GrantTypes,
			Scopes:               s.Scopes,
			AutoApproveScopes:    s.AutoApproveScopes,
			RedirectURIs:         s.RedirectURIs,
			ResourceIDs:          s.ResourceIDs,
			AccessTokenValidity:  s.AccessTokenValidity,
			RefreshTokenValidity: s.RefreshTokenValidity,
		})
		if len(s.Authorities) > 0 {
			reg.Grant(s.ClientID, s.Authorities...)
		}
	}
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Client, error) {
	return cache.New(ctx, cache.Config{
		Kind:       cfg.Cache.Kind,
		Addr:       cfg.Cache.Redis.Addr,
		Password:   cfg.Cache.Redis.Password,
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: cfg.Cache.Memory.DefaultTTL,
	})
}

// openSecretBox returns nil when no master key is configured.
func openSecretBox(cfg *config.Config) (*secretbox.Box, error) {
	if cfg.Security.SecretBoxMasterKey == "" {
		return nil, nil
	}
	return secretbox.Parse(cfg.Security.SecretBoxMasterKey)
}

func buildProviders(cfg *config.Config) (*providers.Registry, error) {
	reg := providers.NewRegistry()
	for _, p := range []struct {
		conf  config.ProviderConfig
		build func(providers.Settings) providers.Provider
	}{
		{cfg.Providers.Facebook, facebook.New},
		{cfg.Providers.GitHub, github.New},
		{cfg.Providers.Google, google.New},
	} {
		if !p.conf.Enabled {
			continue
		}
		if err := reg.Register(p.build(providers.Settings{
			ClientID:     p.conf.ClientID,
			ClientSecret: p.conf.ClientSecret,
			Scope:        p.conf.Scopes,
			LoginURL:     p.conf.LoginURL,
			TokenURL:     p.conf.TokenURL,
			ProfileURL:   p.conf.ProfileURL,
		})); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func buildSocialFlow(ctx context.Context, cfg *config.Config, st *storage, nonces cache.Client) (*social.Flow, error) {
	reg, err := buildProviders(cfg)
	if err != nil {
		return nil, err
	}

	key := []byte(cfg.Security.StateSigningKey)
	if len(key) == 0 {
		// dev only; config validation rejects a missing key in prod
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		logger.From(ctx).Warn("security.state_signing_key not set, using an ephemeral key; pending logins fail after a restart")
	}
	signer, err := social.NewStateSigner(key, cfg.App.Name, cfg.Security.StateTTL, nonces)
	if err != nil {
		return nil, err
	}

	return social.NewFlow(reg, st.tokens, signer,
		social.WithHTTPClient(&http.Client{Timeout: cfg.Providers.ExchangeTimeout}),
	), nil
}

func buildApprovalStore(cfg *config.Config, st *storage) *approval.Store {
	return approval.NewStore(st.approvals, approval.Config{
		HandleRevocationsAsExpiry: cfg.Approvals.HandleRevocationsAsExpiry,
		Validity:                  cfg.Approvals.Validity,
	})
}
