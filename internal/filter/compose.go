package filter

import (
	"errors"
	"fmt"
	"strings"
)

// SortNewestFirst orders records by descending creation time.
const SortNewestFirst = "-created"

// Thresholds used by the quick filters.
const (
	EconomicMaxPrice = 10000
	StudioMaxSize    = 40
)

// SearchFields are the listing fields matched by free-text search.
var SearchFields = []string{"title", "description", "address", "city", "neighborhood", "property_type"}

// QuickFilter is one of the preset search refinements.
type QuickFilter string

const (
	QuickNone           QuickFilter = ""
	QuickNearUniversity QuickFilter = "near-university"
	QuickEconomic       QuickFilter = "economic"
	QuickFurnished      QuickFilter = "furnished"
	QuickWifi           QuickFilter = "wifi"
	QuickStudio         QuickFilter = "studio"
)

// ErrUnknownQuickFilter is returned by ParseQuickFilter for ids outside the fixed set.
var ErrUnknownQuickFilter = errors.New("unknown quick filter")

// QuickFilters lists every quick filter in display order.
var QuickFilters = []QuickFilter{QuickNearUniversity, QuickEconomic, QuickFurnished, QuickWifi, QuickStudio}

// ParseQuickFilter validates a quick filter id. The legacy id "near-unah"
// is accepted as an alias for near-university.
func ParseQuickFilter(s string) (QuickFilter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "near-unah" {
		return QuickNearUniversity, nil
	}
	if s == "" {
		return QuickNone, nil
	}
	for _, q := range QuickFilters {
		if string(q) == s {
			return q, nil
		}
	}
	return QuickNone, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownQuickFilter, s, joinQuick())
}

// Label returns a short human label.
func (q QuickFilter) Label() string {
	switch q {
	case QuickNearUniversity:
		return "Near university"
	case QuickEconomic:
		return "Economic"
	case QuickFurnished:
		return "Furnished"
	case QuickWifi:
		return "WiFi"
	case QuickStudio:
		return "Studio"
	}
	return ""
}

// predicate returns the filter group for q, or "" for none or unknown tags.
func (q QuickFilter) predicate() string {
	switch q {
	case QuickNearUniversity:
		return AnyContains([]string{"title", "description", "address"}, "unah", "universidad")
	case QuickEconomic:
		return Or(Lt("price", EconomicMaxPrice), Lt("monthlyPrice", EconomicMaxPrice))
	case QuickFurnished:
		return AnyContains([]string{"title", "description"}, "amueblado", "furnished")
	case QuickWifi:
		return AnyContains([]string{"title", "description"}, "wifi", "internet")
	case QuickStudio:
		return Or(Le("size", StudioMaxSize), Contains("title", "estudio"), Eq("property_type", "estudio"))
	}
	return ""
}

// Query is a composed list request: a filter expression and a sort order.
// An empty Filter means an unfiltered request.
type Query struct {
	Filter string
	Sort   string
}

// Compose builds the listing query for a free-text search plus an optional
// quick filter. The text group and the tag group are ANDed.
func Compose(searchText string, quick QuickFilter) Query {
	var groups []string

	if term := strings.ToLower(strings.TrimSpace(searchText)); term != "" {
		groups = append(groups, AnyContains(SearchFields, term))
	}
	groups = append(groups, quick.predicate())

	return Query{
		Filter: And(groups...),
		Sort:   SortNewestFirst,
	}
}

func joinQuick() string {
	ids := make([]string, len(QuickFilters))
	for i, q := range QuickFilters {
		ids[i] = string(q)
	}
	return strings.Join(ids, ", ")
}
