package main

import (
	"context"
	"fmt"

	"github.com/pario-ai/parley/pkg/config"
	"github.com/pario-ai/parley/pkg/identity"
	"github.com/spf13/cobra"
)

func newWhoamiCmd() *cobra.Command {
	var (
		configPath string
		session    string
		reset      bool
	)

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the user identifier sent with chat requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Identity.DBPath == "" {
				return fmt.Errorf("identity.db_path is not set; user ids are not persisted")
			}
			if session == "" {
				session = cfg.Identity.Session
			}

			store, err := identity.Open(cfg.Identity.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := context.Background()
			var id string
			if reset {
				id, err = store.Rotate(ctx, session)
			} else {
				id, err = store.Resolve(ctx, session)
			}
			if err != nil {
				return err
			}

			fmt.Printf("%s\t%s\n", session, id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "parley.yaml", "path to config file")
	cmd.Flags().StringVar(&session, "session", "", "session name (default from config)")
	cmd.Flags().BoolVar(&reset, "reset", false, "issue a new user id for the session")
	return cmd
}
