package cmd

import (
	"github.com/jmoiron/sqlx"
	"github.com/templui/gatekeeper/internal/config"
	"github.com/templui/gatekeeper/internal/db"
	"github.com/templui/gatekeeper/internal/logger"
)

// openStore loads config, sets up logging and opens the configured store.
func openStore() (*config.Config, *sqlx.DB, error) {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, nil, err
	}
	return cfg, database, nil
}
