package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/qs3c/group_sub_server/config"
	"github.com/qs3c/group_sub_server/internal/app"
	"github.com/qs3c/group_sub_server/internal/database"
	"github.com/qs3c/group_sub_server/internal/pkg/logger"
)

func main() {
	if err := newRootCmd(openApp).Execute(); err != nil {
		os.Exit(1)
	}
}

// openApp 按 --config 连接 MySQL 与 Redis
func openApp(cmd *cobra.Command) (*app.App, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.Log)

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		return nil, err
	}

	a := app.New(cfg, db, rdb, nil)
	if err := a.Catalog.Reload(cmd.Context()); err != nil {
		return nil, err
	}
	return a, nil
}
