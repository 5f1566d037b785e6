// Package listing provides the rental listing model, search and owner operations.
package listing

import (
	"fmt"
	"strings"
	"time"

	"github.com/tuespacio/tuespacio/internal/geo"
	"github.com/tuespacio/tuespacio/internal/recordstore"
	"github.com/tuespacio/tuespacio/internal/user"
)

// Collection is the record store collection holding listings.
const Collection = "places"

// Category is the kind of property. Values are the store's wire values.
type Category string

const (
	CategoryHouse      Category = "casa"
	CategoryApartment  Category = "departamento"
	CategoryCommercial Category = "local comercial"
	CategoryOffice     Category = "oficina"
)

// ParseCategory accepts the wire value or the English name.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "house", "casa":
		return CategoryHouse, nil
	case "apartment", "departamento":
		return CategoryApartment, nil
	case "commercial", "local comercial", "local":
		return CategoryCommercial, nil
	case "office", "oficina":
		return CategoryOffice, nil
	}
	return "", fmt.Errorf("invalid category %q: must be one of house, apartment, commercial, office", s)
}

// Status is listing availability. Values are the store's wire values.
type Status string

const (
	StatusAvailable   Status = "disponible"
	StatusUnavailable Status = "no disponible"
	StatusReserved    Status = "reservado"
)

// ParseStatus accepts the wire value or the English name.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "available", "disponible":
		return StatusAvailable, nil
	case "unavailable", "no disponible":
		return StatusUnavailable, nil
	case "reserved", "reservado":
		return StatusReserved, nil
	}
	return "", fmt.Errorf("invalid status %q: must be one of available, unavailable, reserved", s)
}

// Amenities are the boolean features an owner ticks when publishing.
type Amenities struct {
	Furnished       bool `json:"furnished"`
	Wifi            bool `json:"wifi"`
	Parking         bool `json:"parking"`
	Laundry         bool `json:"laundry"`
	AirConditioning bool `json:"airConditioning"`
	Security        bool `json:"security"`
	NearUniversity  bool `json:"nearUniversity"`
}

// Listing is a rentable property published by an owner.
type Listing struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     Category   `json:"category"`
	Status       Status     `json:"status"`
	OwnerID      string     `json:"owner_id"`
	Owner        *user.User `json:"owner,omitempty"`
	Location     geo.Point  `json:"location"`
	Size         float64    `json:"size"`
	Price        float64    `json:"price"`
	Deposit      float64    `json:"deposit,omitempty"`
	Address      string     `json:"address,omitempty"`
	City         string     `json:"city,omitempty"`
	Neighborhood string     `json:"neighborhood,omitempty"`
	Amenities    Amenities  `json:"amenities"`
	Photos       []string   `json:"photos"`
	Created      time.Time  `json:"created"`
	Updated      time.Time  `json:"updated"`
}

// ParseError reports a record that could not be turned into a Listing.
type ParseError struct {
	ID     string
	Reason string
}

func (e *ParseError) Error() string {
	if e.ID == "" {
		return "parsing listing: " + e.Reason
	}
	return fmt.Sprintf("parsing listing %s: %s", e.ID, e.Reason)
}

// storedLocation is the location object as the store keeps it. Older
// records use lng instead of lon.
type storedLocation struct {
	Lat float64  `json:"lat"`
	Lon *float64 `json:"lon"`
	Lng *float64 `json:"lng"`
}

// Parse converts a store record into a Listing. Missing optional fields
// take the same defaults the listing screens show.
func Parse(rec recordstore.Record) (*Listing, error) {
	if rec == nil {
		return nil, &ParseError{Reason: "empty record"}
	}
	id := rec.ID()
	if id == "" {
		return nil, &ParseError{Reason: "missing id"}
	}

	l := &Listing{
		ID:           id,
		Title:        rec.String("title"),
		Description:  rec.String("description"),
		Category:     Category(rec.String("property_type")),
		Status:       Status(rec.String("property_status")),
		OwnerID:      rec.String("owner"),
		Size:         rec.Float("size"),
		Price:        rec.Float("price"),
		Deposit:      rec.Float("deposit"),
		Address:      rec.String("address"),
		City:         rec.String("city"),
		Neighborhood: rec.String("neighborhood"),
		Photos:       rec.Strings("photos"),
		Created:      rec.Time("created"),
		Updated:      rec.Time("updated"),
	}
	if l.Title == "" {
		l.Title = "Untitled listing"
	}
	if l.Category == "" {
		l.Category = CategoryApartment
	}
	if l.Status == "" {
		l.Status = StatusAvailable
	}
	if l.Price == 0 {
		l.Price = rec.Float("monthlyPrice")
	}
	if l.Photos == nil {
		l.Photos = []string{}
	}

	if rec.Has("location") {
		var loc storedLocation
		if err := rec.Decode("location", &loc); err != nil {
			return nil, &ParseError{ID: id, Reason: err.Error()}
		}
		l.Location.Lat = loc.Lat
		switch {
		case loc.Lon != nil:
			l.Location.Lng = *loc.Lon
		case loc.Lng != nil:
			l.Location.Lng = *loc.Lng
		}
	}

	if rec.Has("amenities") {
		if err := rec.Decode("amenities", &l.Amenities); err != nil {
			return nil, &ParseError{ID: id, Reason: err.Error()}
		}
	}

	if owner, ok := rec.Expand("owner"); ok {
		u, err := user.Parse(owner)
		if err != nil {
			return nil, &ParseError{ID: id, Reason: err.Error()}
		}
		l.Owner = u
	}

	return l, nil
}

// ParseAll parses a page of records, failing on the first bad one.
func ParseAll(recs []recordstore.Record) ([]*Listing, error) {
	out := make([]*Listing, 0, len(recs))
	for _, rec := range recs {
		l, err := Parse(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// storedFields renders n as the field map sent on create.
func (n NewListing) storedFields() map[string]interface{} {
	return map[string]interface{}{
		"title":           n.Title,
		"description":     n.Description,
		"owner":           n.OwnerID,
		"location":        map[string]float64{"lat": n.Location.Lat, "lon": n.Location.Lng},
		"size":            n.Size,
		"price":           n.Price,
		"monthlyPrice":    n.Price,
		"deposit":         n.Deposit,
		"address":         n.Address,
		"city":            n.City,
		"neighborhood":    n.Neighborhood,
		"property_type":   string(n.Category),
		"property_status": string(n.Status),
		"amenities":       n.Amenities,
		"photos":          []string{},
	}
}
