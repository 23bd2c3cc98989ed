package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/faq-assistant/backend/pkg/logger"
)

func initDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the conversations and feedback tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			logger.Info("Database initialized", zap.String("path", cfg.SQLite.Path))
			fmt.Fprintf(cmd.OutOrStdout(), "database ready at %s\n", cfg.SQLite.Path)
			return nil
		},
	}
}
