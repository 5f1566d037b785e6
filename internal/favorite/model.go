// Package favorite maintains the user to listing favorites relation.
package favorite

import (
	"fmt"
	"time"

	"github.com/tuespacio/tuespacio/internal/listing"
	"github.com/tuespacio/tuespacio/internal/recordstore"
)

// Collection is the record store collection holding favorites.
const Collection = "favorites"

const (
	fieldUser    = "user"
	fieldListing = "places"
)

// Favorite links a user to a listing they saved.
type Favorite struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	ListingID string           `json:"listing_id"`
	Listing   *listing.Listing `json:"listing,omitempty"`
	Created   time.Time        `json:"created"`
}

// Parse converts a store record into a Favorite. The listing is filled in
// when the record was fetched with the listing relation expanded.
func Parse(rec recordstore.Record) (*Favorite, error) {
	if rec == nil || rec.ID() == "" {
		return nil, fmt.Errorf("parsing favorite: missing id")
	}
	f := &Favorite{
		ID:      rec.ID(),
		UserID:  rec.String(fieldUser),
		Created: rec.Time("created"),
	}
	if ids := rec.Strings(fieldListing); len(ids) > 0 {
		f.ListingID = ids[0]
	}
	if expanded, ok := rec.Expand(fieldListing); ok {
		l, err := listing.Parse(expanded)
		if err != nil {
			return nil, fmt.Errorf("parsing favorite %s: %w", f.ID, err)
		}
		f.Listing = l
		if f.ListingID == "" {
			f.ListingID = l.ID
		}
	}
	return f, nil
}

// Action is the state transition a toggle performed.
type Action string

const (
	ActionAdded   Action = "added"
	ActionRemoved Action = "removed"
)

// Result is the outcome of Toggle.
type Result struct {
	Action   Action    `json:"action"`
	Favorite bool      `json:"is_favorite"`
	Record   *Favorite `json:"favorite,omitempty"`
}
