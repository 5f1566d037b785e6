package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tuespacio/tuespacio/internal/geo"
)

func newDistanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "distance <lat1> <lng1> <lat2> <lng2>",
		Short: "Estimate the distance between two points",
		Long: "Great-circle distance between two coordinates. Used to rank listings; it is not a route length.\n" +
			"Points may also be given as two lat,lng pairs. Put -- before negative coordinates:\n" +
			"  tuespacio distance -- 14.0850 -87.1650 14.0600 -87.2200\n" +
			"  tuespacio distance 14.0850,-87.1650 14.0600,-87.2200",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 && len(args) != 4 {
				return fmt.Errorf("accepts 2 lat,lng pairs or 4 coordinates, received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := parsePoints(args)
			if err != nil {
				return err
			}

			km := geo.Distance(from, to)
			out := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(out, map[string]interface{}{
					"from":        from,
					"to":          to,
					"distance_km": km,
					"label":       geo.FormatDistance(km),
				})
			}
			fmt.Fprintln(out, geo.FormatDistance(km))
			return nil
		},
	}
}

func parsePoints(args []string) (geo.Point, geo.Point, error) {
	if len(args) == 2 {
		from, err := geo.ParsePoint(args[0])
		if err != nil {
			return geo.Point{}, geo.Point{}, err
		}
		to, err := geo.ParsePoint(args[1])
		if err != nil {
			return geo.Point{}, geo.Point{}, err
		}
		return from, to, nil
	}

	var v [4]float64
	for i, s := range args {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return geo.Point{}, geo.Point{}, fmt.Errorf("invalid coordinate %q", s)
		}
		v[i] = f
	}
	from, to := geo.Point{Lat: v[0], Lng: v[1]}, geo.Point{Lat: v[2], Lng: v[3]}
	if !from.Valid() || !to.Valid() {
		return geo.Point{}, geo.Point{}, fmt.Errorf("coordinates out of range")
	}
	return from, to, nil
}
