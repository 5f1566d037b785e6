package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tuespacio/tuespacio/internal/favorite"
)

func newFavoriteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorite",
		Short: "Add, remove or toggle a favorite listing",
	}

	for _, action := range []struct {
		use, short string
	}{
		{"add", "Save a listing to your favorites"},
		{"remove", "Remove a listing from your favorites"},
		{"toggle", "Save a listing, or remove it if already saved"},
	} {
		use := action.use
		cmd.AddCommand(&cobra.Command{
			Use:   use + " <listing-id>",
			Short: action.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runFavorite(cmd, use, args[0])
			},
		})
	}

	return cmd
}

func runFavorite(cmd *cobra.Command, action, listingID string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	u, err := a.requireUser()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var res *favorite.Result
	switch action {
	case "add":
		f, err := a.favorites.Add(ctx, u.ID, listingID)
		if err != nil {
			return err
		}
		res = &favorite.Result{Action: favorite.ActionAdded, Favorite: true, Record: f}
	case "remove":
		if err := a.favorites.Remove(ctx, u.ID, listingID); err != nil {
			return err
		}
		res = &favorite.Result{Action: favorite.ActionRemoved}
	case "toggle":
		res, err = a.favorites.Toggle(ctx, u.ID, listingID)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown favorite action %q", action)
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, res)
	}
	if res.Favorite {
		fmt.Fprintf(out, "♥ Listing %s saved to favorites.\n", listingID)
	} else {
		fmt.Fprintf(out, "Listing %s removed from favorites.\n", listingID)
	}
	return nil
}

func newFavoritesCmd() *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "List your favorite listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFavorites(cmd, clear)
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "remove all of your favorites")

	return cmd
}

func runFavorites(cmd *cobra.Command, clear bool) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	u, err := a.requireUser()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if clear {
		n, err := a.favorites.ClearForUser(ctx, u.ID)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(out, map[string]int{"removed": n})
		}
		fmt.Fprintf(out, "Removed %d favorites.\n", n)
		return nil
	}

	favs, err := a.favorites.ListForUser(ctx, u.ID)
	if err != nil {
		return err
	}
	if isJSON() {
		return printJSON(out, favs)
	}
	return printFavoriteTable(out, favs)
}
