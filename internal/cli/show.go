package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tuespacio/tuespacio/internal/listing"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <listing-id>",
		Short: "Show listing details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0])
		},
	}
}

func runShow(cmd *cobra.Command, id string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	l, err := a.listings.Get(ctx, id)
	if err != nil {
		return err
	}

	count := a.favorites.CountForListing(ctx, l.ID)
	saved := false
	if a.session != nil {
		saved, err = a.favorites.IsFavorite(ctx, a.session.User.ID, l.ID)
		if err != nil {
			slog.Warn("checking favorite", "listing_id", l.ID, "error", err)
		}
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, struct {
			*listing.Listing
			Favorite      bool `json:"is_favorite"`
			FavoriteCount int  `json:"favorite_count"`
		}{l, saved, count})
	}
	printListingSummary(out, l, count, saved)
	return nil
}

func newMineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List the listings you publish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMine(cmd)
		},
	}
}

func runMine(cmd *cobra.Command) error {
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
	items, err := a.listings.ListByOwner(ctx, u.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, items)
	}
	return printListingTable(ctx, out, items, nil)
}
