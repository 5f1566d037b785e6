// Package cli defines the cobra command tree for tuespacio.
package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tuespacio/tuespacio/internal/auth"
	"github.com/tuespacio/tuespacio/internal/config"
	"github.com/tuespacio/tuespacio/internal/contract"
	"github.com/tuespacio/tuespacio/internal/db"
	"github.com/tuespacio/tuespacio/internal/favorite"
	"github.com/tuespacio/tuespacio/internal/listing"
	"github.com/tuespacio/tuespacio/internal/logging"
	"github.com/tuespacio/tuespacio/internal/recordstore"
	"github.com/tuespacio/tuespacio/internal/session"
	"github.com/tuespacio/tuespacio/internal/user"
)

var (
	flagFormat string
	flagDB     string
	flagStore  string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tuespacio",
		Short:         "Search rentals and keep track of favorites",
		Long:          "A client for the tuespacio rental marketplace. Search listings, find places near a point, save favorites, and serve the JSON API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupQuiet()
		},
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: ~/.config/tuespacio/state.db)")
	root.PersistentFlags().StringVar(&flagStore, "store", "", "record store URL (default: $TUESPACIO_STORE_URL, config file, or "+config.DefaultStoreURL+")")

	root.AddCommand(
		newSearchCmd(),
		newShowCmd(),
		newMineCmd(),
		newNearbyCmd(),
		newFavoriteCmd(),
		newFavoritesCmd(),
		newDistanceCmd(),
		newContractsCmd(),
		newServeCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// openDB opens the SQLite database using the --db flag or default path.
func openDB() (*sql.DB, error) {
	path := flagDB
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path)
}

// app bundles what a command needs: the local database, the record store
// client and the services built on it.
type app struct {
	db        *sql.DB
	client    *recordstore.Client
	auth      *auth.Service
	listings  *listing.Service
	favorites *favorite.Service
	contracts *contract.Service
	// session is nil when nobody is logged in or the token expired.
	session *session.Session
}

// openApp opens the database and wires the services. When a live session
// is saved its token authenticates every store request.
func openApp() (*app, error) {
	database, err := openDB()
	if err != nil {
		return nil, err
	}

	client := recordstore.New(getStoreURL(), "", 0)
	a := &app{
		db:   database,
		auth: auth.NewService(client, user.NewService(client), session.NewStore(database)),
	}

	sess, err := a.auth.Current()
	switch {
	case err == nil:
		a.session = sess
		client = client.WithToken(sess.Token)
	case errors.Is(err, auth.ErrNotLoggedIn), errors.Is(err, auth.ErrSessionExpired):
	default:
		closeDB(database)
		return nil, fmt.Errorf("loading session: %w", err)
	}

	a.client = client
	a.listings = listing.NewService(client)
	a.favorites = favorite.NewService(client)
	a.contracts = contract.NewService(client)
	return a, nil
}

// requireUser returns the logged-in user or an error telling how to log in.
func (a *app) requireUser() (*user.User, error) {
	if a.session != nil {
		return a.session.User, nil
	}
	if _, err := a.auth.Current(); errors.Is(err, auth.ErrSessionExpired) {
		return nil, fmt.Errorf("%w: run 'tuespacio login'", auth.ErrSessionExpired)
	}
	return nil, fmt.Errorf("%w: run 'tuespacio login'", auth.ErrNotLoggedIn)
}

// savedIDs returns the logged-in user's favorite ids, or nil when logged out.
func (a *app) savedIDs() *favorite.IDSet {
	if a.session == nil {
		return nil
	}
	return a.favorites.IDSet(a.session.User.ID)
}

func (a *app) close() {
	closeDB(a.db)
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
