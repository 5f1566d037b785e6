package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/tuespacio/tuespacio/internal/contract"
	"github.com/tuespacio/tuespacio/internal/favorite"
	"github.com/tuespacio/tuespacio/internal/geo"
	"github.com/tuespacio/tuespacio/internal/listing"
	"github.com/tuespacio/tuespacio/internal/user"
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printListingSummary prints a single listing in text format.
func printListingSummary(w io.Writer, l *listing.Listing, favorites int, saved bool) {
	fmt.Fprintf(w, "Listing %s\n", l.ID)
	fmt.Fprintf(w, "  Title:    %s\n", l.Title)
	fmt.Fprintf(w, "  Type:     %s\n", l.Category)
	fmt.Fprintf(w, "  Status:   %s\n", l.Status)
	fmt.Fprintf(w, "  Price:    %s/month\n", formatPrice(l.Price))
	if l.Deposit > 0 {
		fmt.Fprintf(w, "  Deposit:  %s\n", formatPrice(l.Deposit))
	}
	if l.Size > 0 {
		fmt.Fprintf(w, "  Size:     %g m²\n", l.Size)
	}
	if place := formatPlace(l); place != "" {
		fmt.Fprintf(w, "  Where:    %s\n", place)
	}
	if l.Location != (geo.Point{}) {
		fmt.Fprintf(w, "  Location: %s\n", l.Location)
	}
	if l.Owner != nil {
		fmt.Fprintf(w, "  Owner:    %s\n", user.DisplayName(l.Owner))
	}
	if a := formatAmenities(l.Amenities); a != "" {
		fmt.Fprintf(w, "  Has:      %s\n", a)
	}
	fmt.Fprintf(w, "  Saved by: %d\n", favorites)
	if saved {
		fmt.Fprintln(w, "  ♥ In your favorites")
	}
	if l.Description != "" {
		fmt.Fprintf(w, "\n%s\n", l.Description)
	}
}

// printListingTable prints listings as a formatted table. Listings in
// saved are marked with a heart.
func printListingTable(ctx context.Context, w io.Writer, items []*listing.Listing, saved *favorite.IDSet) error {
	if len(items) == 0 {
		fmt.Fprintln(w, "No listings found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tTITLE\tTYPE\tPRICE\tCITY\t♥"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(tw, "--\t-----\t----\t-----\t----\t-"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, l := range items {
		heart := ""
		if saved.Contains(ctx, l.ID) {
			heart = "♥"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID, truncate(l.Title, 40), l.Category, formatPrice(l.Price), dash(l.City), heart); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Fprintf(w, "\nTotal: %d listings\n", len(items))
	return nil
}

// printNearbyTable prints proximity results nearest first.
func printNearbyTable(ctx context.Context, w io.Writer, items []listing.Distanced, saved *favorite.IDSet) error {
	if len(items) == 0 {
		fmt.Fprintln(w, "No listings nearby.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "DISTANCE\tID\tTITLE\tPRICE\t♥"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, d := range items {
		heart := ""
		if saved.Contains(ctx, d.ID) {
			heart = "♥"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			d.Label(), d.ID, truncate(d.Title, 40), formatPrice(d.Price), heart); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return tw.Flush()
}

// printFavoriteTable prints a user's favorites, most recent first.
func printFavoriteTable(w io.Writer, favs []*favorite.Favorite) error {
	if len(favs) == 0 {
		fmt.Fprintln(w, "No favorites yet.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "SAVED\tLISTING\tTITLE\tPRICE"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, f := range favs {
		title, price := "(unavailable)", "-"
		if f.Listing != nil {
			title, price = truncate(f.Listing.Title, 40), formatPrice(f.Listing.Price)
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			f.Created.Format("2006-01-02"), f.ListingID, title, price); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return tw.Flush()
}

// printContractTable prints contracts newest first.
func printContractTable(w io.Writer, contracts []*contract.Contract) error {
	if len(contracts) == 0 {
		fmt.Fprintln(w, "No contracts found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tSTATUS\tTENANT\tLISTING\tSTART\tEND"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, c := range contracts {
		tenant := c.TenantID
		if c.Tenant != nil {
			tenant = user.DisplayName(c.Tenant)
		}
		place := c.ListingID
		if c.Listing != nil {
			place = truncate(c.Listing.Title, 30)
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Status, tenant, place, formatDate(c.Start), formatDate(c.End)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return tw.Flush()
}

// formatPrice formats an amount in lempiras with thousands separators,
// rounded to whole units.
func formatPrice(amount float64) string {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "-"
	}
	s := fmt.Sprintf("%d", int64(math.Round(amount)))

	// Add commas
	if len(s) <= 3 {
		return "L " + s
	}

	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)

	return "L " + strings.Join(parts, ",")
}

func formatPlace(l *listing.Listing) string {
	var parts []string
	for _, p := range []string{l.Address, l.Neighborhood, l.City} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func formatAmenities(a listing.Amenities) string {
	var out []string
	for _, f := range []struct {
		on   bool
		name string
	}{
		{a.Furnished, "furnished"},
		{a.Wifi, "wifi"},
		{a.Parking, "parking"},
		{a.Laundry, "laundry"},
		{a.AirConditioning, "A/C"},
		{a.Security, "security"},
		{a.NearUniversity, "near university"},
	} {
		if f.on {
			out = append(out, f.name)
		}
	}
	return strings.Join(out, ", ")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
