package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faq-assistant/backend/internal/storage/models"
	"github.com/faq-assistant/backend/pkg/logger"
)

func feedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback <conversation-id> <+1|-1>",
		Short: "Record thumbs up or down for a stored conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := models.ParseFeedbackValue(args[1])
			if err != nil {
				return err
			}

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

			if err := store.SaveFeedback(cmd.Context(), args[0], value); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "recorded %s for %s\n", value, args[0])
			return nil
		},
	}

	// Lets "-1" through as a positional argument.
	cmd.Flags().SetInterspersed(false)
	return cmd
}
