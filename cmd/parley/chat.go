package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pario-ai/parley/pkg/apierr"
	"github.com/pario-ai/parley/pkg/chat"
	"github.com/pario-ai/parley/pkg/models"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var (
		configPath     string
		conversationID string
	)

	cmd := &cobra.Command{
		Use:   "chat [question]",
		Short: "Ask a question and stream the answer as it arrives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadApp(configPath)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var callErr error
			rt.coord.SendStreaming(ctx, models.ChatRequest{
				Query:          strings.Join(args, " "),
				ConversationID: conversationID,
			}, chat.Callbacks{
				OnMessage: func(text string) {
					fmt.Print(text)
				},
				OnComplete: func(res models.ChatResult) {
					fmt.Println()
					if res.ConversationID != "" {
						fmt.Fprintf(os.Stderr, "conversation: %s (%d ms)\n", res.ConversationID, res.LatencyMs)
					}
				},
				OnError: func(err *apierr.Error) {
					callErr = err
				},
			})
			if ctx.Err() != nil {
				fmt.Println()
			}
			return callErr
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "parley.yaml", "path to config file")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "continue an existing conversation")
	return cmd
}
