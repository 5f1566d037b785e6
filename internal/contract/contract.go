// Package contract manages rental contracts between tenants and listings.
package contract

import (
	"fmt"
	"strings"
	"time"

	"github.com/tuespacio/tuespacio/internal/listing"
	"github.com/tuespacio/tuespacio/internal/recordstore"
	"github.com/tuespacio/tuespacio/internal/user"
)

// Collection is the record store collection holding contracts.
const Collection = "contracts"

// Status is the contract lifecycle state. Values are the store's wire values.
type Status string

const (
	StatusActive   Status = "activo"
	StatusInactive Status = "inactivo"
	StatusFinished Status = "finalizado"
)

// ParseStatus accepts the wire value or the English name. Empty input
// yields the empty status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "active", "activo":
		return StatusActive, nil
	case "inactive", "inactivo":
		return StatusInactive, nil
	case "finished", "finalizado":
		return StatusFinished, nil
	}
	return "", fmt.Errorf("invalid contract status %q: must be one of active, inactive, finished", s)
}

// Contract binds a tenant to a listing for a period.
type Contract struct {
	ID        string           `json:"id"`
	TenantID  string           `json:"tenant_id"`
	Tenant    *user.User       `json:"tenant,omitempty"`
	ListingID string           `json:"listing_id"`
	Listing   *listing.Listing `json:"listing,omitempty"`
	Start     time.Time        `json:"start"`
	End       time.Time        `json:"end"`
	Status    Status           `json:"status"`
	PDF       string           `json:"pdf,omitempty"`
	Created   time.Time        `json:"created"`
	Updated   time.Time        `json:"updated"`
}

// Active reports whether the contract is active and covers t.
func (c *Contract) Active(t time.Time) bool {
	if c.Status != StatusActive {
		return false
	}
	if !c.Start.IsZero() && t.Before(c.Start) {
		return false
	}
	return c.End.IsZero() || !t.After(c.End)
}

// Parse converts a store record into a Contract.
func Parse(rec recordstore.Record) (*Contract, error) {
	if rec == nil || rec.ID() == "" {
		return nil, fmt.Errorf("parsing contract: missing id")
	}
	c := &Contract{
		ID:        rec.ID(),
		TenantID:  rec.String("tenant"),
		ListingID: rec.String("property"),
		Start:     rec.Time("startDate"),
		End:       rec.Time("endDate"),
		Status:    Status(rec.String("status")),
		PDF:       rec.String("pdf"),
		Created:   rec.Time("created"),
		Updated:   rec.Time("updated"),
	}
	if tenant, ok := rec.Expand("tenant"); ok {
		u, err := user.Parse(tenant)
		if err != nil {
			return nil, fmt.Errorf("parsing contract %s: %w", c.ID, err)
		}
		c.Tenant = u
	}
	if property, ok := rec.Expand("property"); ok {
		l, err := listing.Parse(property)
		if err != nil {
			return nil, fmt.Errorf("parsing contract %s: %w", c.ID, err)
		}
		c.Listing = l
	}
	return c, nil
}
