package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pario-ai/parley/pkg/models"
	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var (
		configPath     string
		conversationID string
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question and print the complete answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadApp(configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := rt.coord.SendBlocking(ctx, models.ChatRequest{
				Query:          strings.Join(args, " "),
				ConversationID: conversationID,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Println(res.FullMessage)
			if res.ConversationID != "" {
				fmt.Fprintf(os.Stderr, "conversation: %s\n", res.ConversationID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "parley.yaml", "path to config file")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "continue an existing conversation")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}
