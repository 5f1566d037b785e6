package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tuespacio/tuespacio/internal/filter"
	"github.com/tuespacio/tuespacio/internal/recordstore"
)

const (
	// PageSize is the number of contracts a list returns.
	PageSize = 50

	expandRelations = "tenant,property"
)

var (
	ErrNotFound     = errors.New("contract not found")
	ErrInvalidInput = errors.New("invalid contract data")
)

// Service provides contract operations.
type Service struct {
	contracts *recordstore.Collection
}

// NewService creates a contract service.
func NewService(store recordstore.Store) *Service {
	return &Service{contracts: recordstore.NewCollection(store, Collection)}
}

// NewContract is the input to Create.
type NewContract struct {
	TenantID  string
	ListingID string
	Start     time.Time
	End       time.Time
	Status    Status
}

// Create records a new contract. Status defaults to active.
func (s *Service) Create(ctx context.Context, n NewContract) (*Contract, error) {
	switch {
	case strings.TrimSpace(n.TenantID) == "":
		return nil, fmt.Errorf("%w: tenant is required", ErrInvalidInput)
	case strings.TrimSpace(n.ListingID) == "":
		return nil, fmt.Errorf("%w: property is required", ErrInvalidInput)
	case n.Start.IsZero():
		return nil, fmt.Errorf("%w: start date is required", ErrInvalidInput)
	case !n.End.IsZero() && n.End.Before(n.Start):
		return nil, fmt.Errorf("%w: end date is before start date", ErrInvalidInput)
	}
	if n.Status == "" {
		n.Status = StatusActive
	}

	data := map[string]interface{}{
		"tenant":    n.TenantID,
		"property":  n.ListingID,
		"startDate": n.Start.UTC().Format(recordstore.TimeLayout),
		"status":    string(n.Status),
	}
	if !n.End.IsZero() {
		data["endDate"] = n.End.UTC().Format(recordstore.TimeLayout)
	}

	rec, err := s.contracts.Create(ctx, data)
	if err != nil {
		slog.ErrorContext(ctx, "creating contract", "tenant_id", n.TenantID, "listing_id", n.ListingID, "error", err)
		return nil, fmt.Errorf("creating contract: %w", err)
	}
	slog.InfoContext(ctx, "contract created", "contract_id", rec.ID())
	return Parse(rec)
}

// Get returns a contract with tenant and property expanded.
func (s *Service) Get(ctx context.Context, id string) (*Contract, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty contract id", ErrInvalidInput)
	}
	rec, err := s.contracts.GetOne(ctx, id, expandRelations)
	if errors.Is(err, recordstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading contract %s: %w", id, err)
	}
	return Parse(rec)
}

// Changes holds contract fields to update. Nil fields are left unchanged.
type Changes struct {
	End    *time.Time
	Status *Status
}

// Update patches a contract.
func (s *Service) Update(ctx context.Context, id string, c Changes) (*Contract, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty contract id", ErrInvalidInput)
	}
	data := map[string]interface{}{}
	if c.End != nil {
		data["endDate"] = c.End.UTC().Format(recordstore.TimeLayout)
	}
	if c.Status != nil {
		data["status"] = string(*c.Status)
	}
	if len(data) == 0 {
		return s.Get(ctx, id)
	}

	rec, err := s.contracts.Update(ctx, id, data)
	if errors.Is(err, recordstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		slog.ErrorContext(ctx, "updating contract", "contract_id", id, "error", err)
		return nil, fmt.Errorf("updating contract %s: %w", id, err)
	}
	return Parse(rec)
}

// Delete removes a contract.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty contract id", ErrInvalidInput)
	}
	err := s.contracts.Delete(ctx, id)
	if errors.Is(err, recordstore.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		slog.ErrorContext(ctx, "deleting contract", "contract_id", id, "error", err)
		return fmt.Errorf("deleting contract %s: %w", id, err)
	}
	return nil
}

// ListByStatus returns contracts in a status, newest first.
func (s *Service) ListByStatus(ctx context.Context, status Status) ([]*Contract, error) {
	return s.list(ctx, filter.Eq("status", string(status)))
}

// ListByOwner returns contracts on the owner's listings, optionally
// narrowed to a status, newest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID string, status Status) ([]*Contract, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: empty owner id", ErrInvalidInput)
	}
	expr := filter.Eq("property.owner", ownerID)
	if status != "" {
		expr = filter.And(expr, filter.Eq("status", string(status)))
	}
	return s.list(ctx, expr)
}

// ListByTenant returns a tenant's contracts, newest first.
func (s *Service) ListByTenant(ctx context.Context, tenantID string) ([]*Contract, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, fmt.Errorf("%w: empty tenant id", ErrInvalidInput)
	}
	return s.list(ctx, filter.Eq("tenant", tenantID))
}

func (s *Service) list(ctx context.Context, expr string) ([]*Contract, error) {
	res, err := s.contracts.List(ctx, recordstore.DefaultPage, PageSize, recordstore.ListOptions{
		Filter: expr,
		Sort:   filter.SortNewestFirst,
		Expand: expandRelations,
	})
	if err != nil {
		slog.ErrorContext(ctx, "listing contracts", "filter", expr, "error", err)
		return nil, fmt.Errorf("listing contracts: %w", err)
	}
	out := make([]*Contract, 0, len(res.Items))
	for _, rec := range res.Items {
		c, err := Parse(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
