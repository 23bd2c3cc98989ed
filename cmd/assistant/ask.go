package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/faq-assistant/backend/pkg/logger"
)

func askCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and store the conversation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question must not be empty")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			a, err := newAssistant(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			result, err := a.service.HandleQuestion(ctx, question)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Answer)
			fmt.Fprintf(out, "\nconversation: %s\n", result.ConversationID)

			if verbose {
				conv, err := a.store.GetConversation(ctx, result.ConversationID)
				if err != nil {
					return err
				}
				r := conv.Record
				fmt.Fprintf(out, "model:        %s\n", r.ModelUsed)
				fmt.Fprintf(out, "relevance:    %s (%s)\n", r.Relevance, r.RelevanceExplanation)
				fmt.Fprintf(out, "tokens:       %d answer, %d evaluation\n", r.Usage.TotalTokens, r.EvaluationUsage.TotalTokens)
				fmt.Fprintf(out, "cost:         $%.6f\n", r.Cost)
				fmt.Fprintf(out, "response:     %.2fs\n", r.ResponseTime)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print relevance, token usage and cost")
	return cmd
}
