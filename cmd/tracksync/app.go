package main

import (
	"fmt"
	"time"

	"tracksync/internal/auth"
	"tracksync/internal/config"
	"tracksync/internal/utils"
	"tracksync/remote"
	"tracksync/store"
	"tracksync/syncer"
)

// App wires the engine's components together for the CLI commands
type App struct {
	cfg    *config.Config
	db     *store.Database
	store  *store.Store
	auth   *auth.Manager
	client *remote.Client
	coord  *syncer.Coordinator
}

func newApp(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		utils.SetVerboseMode(true)
	}

	dbPath, err := utils.ExpandPath(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("invalid db_path: %w", err)
	}

	db, err := store.OpenDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	st := store.New(db)
	authMgr := auth.NewManager()

	client := remote.NewClient(
		cfg.ServerURL,
		authMgr.TokenSource(),
		time.Duration(cfg.RequestTimeoutSeconds)*time.Second,
	)

	gateways := map[store.EntityType]remote.Gateway{
		store.TypeTask:         remote.NewTasksGateway(client),
		store.TypeProject:      remote.NewProjectsGateway(client),
		store.TypeUser:         remote.NewUsersGateway(client),
		store.TypeNotification: remote.NewNotificationsGateway(client),
	}

	coord, err := syncer.New(st, gateways, authMgr, syncer.WithWorkers(cfg.Workers))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create coordinator: %w", err)
	}

	return &App{
		cfg:    cfg,
		db:     db,
		store:  st,
		auth:   authMgr,
		client: client,
		coord:  coord,
	}, nil
}

// Close releases the app's resources
func (a *App) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

// parseEntityType maps a CLI argument to an entity type
func parseEntityType(arg string) (store.EntityType, error) {
	t := store.EntityType(arg)
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q (use task, project, user or notification)", arg)
	}
	return t, nil
}
