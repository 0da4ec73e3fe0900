package cmd

import (
	"errors"
	"fmt"

	"facerelay/internal/bot"
	"facerelay/internal/config"
	"facerelay/internal/recognition"
	"facerelay/internal/store"
	"facerelay/internal/store/postgres"
	"facerelay/internal/transport/wsbridge"
)

// app bundles the wired-up stores, recognition backend and commands
// shared by the CLI commands.
type app struct {
	pool        *postgres.Pool
	scopes      store.ScopeRepository
	faces       store.FaceRepository
	descriptors store.DescriptorRepository
	backend     recognition.Client
	commands    *bot.Commands
}

func buildApp(cfg *config.Config) (*app, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	scopes := store.NewCachedScopeRepository(postgres.NewScopeRepository(pool))
	faces := store.NewCachedFaceRepository(postgres.NewFaceRepository(pool))
	descriptors := store.NewCachedDescriptorRepository(postgres.NewDescriptorRepository(pool))

	backend := recognition.NewClient(cfg, descriptors)

	return &app{
		pool:        pool,
		scopes:      scopes,
		faces:       faces,
		descriptors: descriptors,
		backend:     backend,
		commands:    bot.NewCommands(scopes, faces, backend),
	}, nil
}

func (a *app) Close() error {
	return a.pool.Close()
}

// buildBridge creates the websocket chat transport from config.
func buildBridge(cfg *config.Config) (*wsbridge.Bridge, error) {
	if cfg.Bridge.URL == "" {
		return nil, errors.New("BRIDGE_URL environment variable is required")
	}
	return wsbridge.New(cfg.Bridge.URL, cfg.Bridge.Token), nil
}
