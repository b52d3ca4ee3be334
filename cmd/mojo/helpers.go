package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/api"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/attribution"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/backend"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/common"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/config"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/storage"
)

// requireOrg returns the organization id from flags or config. Every core
// operation takes it explicitly; there is no ambient current-organization
// state.
func requireOrg() (string, error) {
	orgID := viper.GetString("organization")
	if orgID == "" {
		return "", common.NewUserError(
			"no organization selected; pass --org or set 'organization' in config",
			common.ErrMissingConfig)
	}
	return orgID, nil
}

// openStorage opens the local snapshot database at the configured path.
func openStorage() (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	} else {
		dbPath = config.ExpandPath(dbPath)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	return store, nil
}

// newBackendClient builds the hosted-backend client from config.
func newBackendClient() (*backend.Client, error) {
	client, err := backend.NewClient(
		viper.GetString("backend.url"),
		viper.GetString("backend.api_key"),
	)
	if err != nil {
		return nil, common.NewUserError(
			"backend is not configured; set backend.url and backend.api_key", err)
	}
	return client, nil
}

// suggestionOptions reads the suggestion thresholds from config, falling
// back to the engine defaults.
func suggestionOptions() attribution.SuggestionOptions {
	return attribution.SuggestionOptions{
		MinRevenue: viper.GetFloat64("suggestions.min_revenue"),
		Limit:      viper.GetInt("suggestions.limit"),
	}
}

// newAPIServer assembles the dashboard-facing API server.
func newAPIServer(store *storage.SQLiteStorage, client *backend.Client) *api.Server {
	return api.NewServer(store, client, suggestionOptions())
}
