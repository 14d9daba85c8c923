package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tracksync/internal/auth"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store an API token for the tracking service",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := os.Getenv("TRACKSYNC_TOKEN")
			if token == "" {
				fmt.Fprint(os.Stderr, "API token: ")
				raw, err := term.ReadPassword(int(syscall.Stdin))
				fmt.Fprintln(os.Stderr)
				if err != nil {
					return fmt.Errorf("failed to read token: %w", err)
				}
				token = string(raw)
			}
			if token == "" {
				return fmt.Errorf("no token provided")
			}

			mgr := auth.NewManager()
			if err := mgr.Store(auth.Credential{Token: token}); err != nil {
				return err
			}
			fmt.Println("Token stored.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			auth.NewManager().InvalidateSession()
			return nil
		},
	}
}
