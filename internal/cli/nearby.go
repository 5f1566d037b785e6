package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tuespacio/tuespacio/internal/filter"
	"github.com/tuespacio/tuespacio/internal/geo"
	"github.com/tuespacio/tuespacio/internal/listing"
)

// defaultRadiusKm is the search radius when --radius is not given.
const defaultRadiusKm = 5

func newNearbyCmd() *cobra.Command {
	var (
		lat, lng, radius float64
		category, status string
	)

	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "Find listings near a point",
		Long:  "Find listings within a radius of a point, nearest first. A radius of 0 lists every listing with a location.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := filter.NearbyOptions{}
			if category != "" {
				c, err := listing.ParseCategory(category)
				if err != nil {
					return err
				}
				opts.Category = string(c)
			}
			if status != "" {
				s, err := listing.ParseStatus(status)
				if err != nil {
					return err
				}
				opts.Status = string(s)
			}
			if radius < 0 {
				return fmt.Errorf("radius must not be negative")
			}
			return runNearby(cmd, geo.Point{Lat: lat, Lng: lng}, radius, opts)
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude of the search centre")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude of the search centre")
	cmd.Flags().Float64Var(&radius, "radius", defaultRadiusKm, "search radius in km")
	cmd.Flags().StringVar(&category, "category", "", "house, apartment, commercial or office")
	cmd.Flags().StringVar(&status, "status", "", "available, unavailable or reserved")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")

	return cmd
}

func runNearby(cmd *cobra.Command, center geo.Point, radius float64, opts filter.NearbyOptions) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	items, err := a.listings.Nearby(ctx, center, radius, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, items)
	}
	return printNearbyTable(ctx, out, items, a.savedIDs())
}
