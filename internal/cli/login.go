package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tuespacio/tuespacio/internal/session"
	"github.com/tuespacio/tuespacio/internal/user"
)

type loginOptions struct {
	password string
	register bool
	name     string
	role     string
}

func newLoginCmd() *cobra.Command {
	var opts loginOptions

	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Log in to the record store",
		Long: "Authenticates with email and password and keeps the session on this device. " +
			"With --register a new account is created first.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.password, "password", "", "password (prompted when omitted)")
	cmd.Flags().BoolVar(&opts.register, "register", false, "create the account before logging in")
	cmd.Flags().StringVar(&opts.name, "name", "", "display name for --register")
	cmd.Flags().StringVar(&opts.role, "role", "tenant", "account type for --register (tenant|owner)")

	return cmd
}

func runLogin(cmd *cobra.Command, email string, opts loginOptions) error {
	out := cmd.OutOrStdout()

	password := opts.password
	if password == "" {
		fmt.Fprint(out, "Password: ")
		var err error
		password, err = readLine(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		fmt.Fprintln(out)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	var sess *session.Session
	if opts.register {
		role, err := user.ParseRole(opts.role)
		if err != nil {
			return err
		}
		sess, err = a.auth.Register(cmd.Context(), user.Registration{
			Email:           email,
			Password:        password,
			PasswordConfirm: password,
			Name:            opts.name,
			Role:            role,
		})
		if err != nil {
			return err
		}
	} else {
		sess, err = a.auth.Login(cmd.Context(), email, password)
		if err != nil {
			return err
		}
	}

	if isJSON() {
		return printJSON(out, sess.User)
	}
	fmt.Fprintf(out, "✓ Logged in as %s (%s).\n", user.DisplayName(sess.User), sess.User.Email)
	return nil
}

// readLine reads one line from r without the trailing newline.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
