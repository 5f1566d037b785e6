package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tuespacio/tuespacio/internal/auth"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Long:  "Removes the session stored on this device.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd)
		},
	}
}

func runLogout(cmd *cobra.Command) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	// Expired sessions are still cleared.
	if _, err := a.auth.Current(); errors.Is(err, auth.ErrNotLoggedIn) {
		fmt.Fprintln(out, "Not logged in.")
		return nil
	}

	if err := a.auth.Logout(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}

	fmt.Fprintln(out, "✓ Logged out.")
	return nil
}
