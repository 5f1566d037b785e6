package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tuespacio/tuespacio/internal/auth"
	"github.com/tuespacio/tuespacio/internal/session"
	"github.com/tuespacio/tuespacio/internal/user"
)

const statusTimeout = 5 * time.Second

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connection and session status",
		Long:  "Tests the connection to the record store and shows who is logged in on this device.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Store:   %s\n", a.client.BaseURL())

	ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
	defer cancel()
	if err := a.client.Health(ctx); err != nil {
		fmt.Fprintf(out, "Status:  ✗ cannot reach store (%v)\n", err)
	} else {
		fmt.Fprintln(out, "Status:  ✓ connected")
	}

	_, err = a.auth.Current()
	switch {
	case err == nil:
		u := a.session.User
		fmt.Fprintf(out, "User:    %s <%s> [%s]\n", user.DisplayName(u), u.Email, u.Role)
		if exp, err := session.ExpiresAt(a.session.Token); err == nil && !exp.IsZero() {
			fmt.Fprintf(out, "Expires: %s\n", exp.Local().Format("2006-01-02 15:04"))
		}
	case errors.Is(err, auth.ErrSessionExpired):
		fmt.Fprintln(out, "User:    session expired")
		fmt.Fprintln(out, "\nRun 'tuespacio login <email>' to log in again.")
	default:
		fmt.Fprintln(out, "User:    not logged in")
		fmt.Fprintln(out, "\nRun 'tuespacio login <email>' to authenticate.")
	}

	return nil
}
