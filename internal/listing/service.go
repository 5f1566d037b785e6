package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/tuespacio/tuespacio/internal/filter"
	"github.com/tuespacio/tuespacio/internal/geo"
	"github.com/tuespacio/tuespacio/internal/recordstore"
)

const (
	// PageSize is the number of listings a search returns.
	PageSize = 50
	// NearbyScanLimit caps how many candidates a proximity search pulls
	// before the radius cut.
	NearbyScanLimit = 200

	expandOwner = "owner"
)

var (
	ErrNotFound     = errors.New("listing not found")
	ErrInvalidInput = errors.New("invalid listing data")
	// ErrStale is returned by SearchLatest when a newer search started
	// before this one finished.
	ErrStale = errors.New("search superseded by a newer request")
)

// Page is one page of listings.
type Page struct {
	Items      []*Listing `json:"items"`
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
	TotalItems int        `json:"total_items"`
	TotalPages int        `json:"total_pages"`
}

func emptyPage() *Page {
	return &Page{Items: []*Listing{}, Page: recordstore.DefaultPage, PerPage: PageSize}
}

// SearchTracker hands out increasing tickets so a caller can drop responses
// that arrive after a newer search was issued.
type SearchTracker struct {
	mu     sync.Mutex
	latest uint64
}

// Begin registers a new search and returns its ticket.
func (t *SearchTracker) Begin() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest++
	return t.latest
}

// Accept reports whether ticket belongs to the most recent search.
func (t *SearchTracker) Accept(ticket uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ticket == t.latest
}

// Service provides listing reads and owner operations.
type Service struct {
	places  *recordstore.Collection
	tracker SearchTracker
}

// NewService creates a listing service.
func NewService(store recordstore.Store) *Service {
	return &Service{places: recordstore.NewCollection(store, Collection)}
}

// Search returns the first page of listings matching free text and a quick
// filter, newest first. Store failures are logged and yield an empty page
// so a broken backend shows "no results" rather than an error.
func (s *Service) Search(ctx context.Context, text string, quick filter.QuickFilter) (*Page, error) {
	q := filter.Compose(text, quick)

	res, err := s.places.List(ctx, recordstore.DefaultPage, PageSize, recordstore.ListOptions{
		Filter: q.Filter,
		Sort:   q.Sort,
		Expand: expandOwner,
	})
	if err != nil {
		slog.ErrorContext(ctx, "listing search failed", "text", text, "quick", string(quick), "filter", q.Filter, "error", err)
		return emptyPage(), nil
	}

	page := &Page{
		Items:      make([]*Listing, 0, len(res.Items)),
		Page:       res.Page,
		PerPage:    res.PerPage,
		TotalItems: res.TotalItems,
		TotalPages: res.TotalPages,
	}
	for _, rec := range res.Items {
		l, err := Parse(rec)
		if err != nil {
			slog.WarnContext(ctx, "skipping unparsable listing", "error", err)
			continue
		}
		page.Items = append(page.Items, l)
	}
	return page, nil
}

// SearchLatest runs Search and returns ErrStale if another SearchLatest
// call started while this one was in flight.
func (s *Service) SearchLatest(ctx context.Context, text string, quick filter.QuickFilter) (*Page, error) {
	ticket := s.tracker.Begin()
	page, err := s.Search(ctx, text, quick)
	if err != nil {
		return nil, err
	}
	if !s.tracker.Accept(ticket) {
		slog.DebugContext(ctx, "dropping stale search result", "ticket", ticket)
		return nil, ErrStale
	}
	return page, nil
}

// Get returns a listing with its owner expanded.
func (s *Service) Get(ctx context.Context, id string) (*Listing, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty listing id", ErrInvalidInput)
	}
	rec, err := s.places.GetOne(ctx, id, expandOwner)
	if errors.Is(err, recordstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		slog.ErrorContext(ctx, "loading listing", "listing_id", id, "error", err)
		return nil, fmt.Errorf("loading listing %s: %w", id, err)
	}
	return Parse(rec)
}

// ListByOwner returns an owner's listings, most recent first.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*Listing, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: empty owner id", ErrInvalidInput)
	}
	res, err := s.places.List(ctx, recordstore.DefaultPage, PageSize, recordstore.ListOptions{
		Filter: filter.Eq("owner", ownerID),
		Sort:   filter.SortNewestFirst,
	})
	if err != nil {
		slog.ErrorContext(ctx, "listing owner properties", "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf("listing properties of %s: %w", ownerID, err)
	}
	return ParseAll(res.Items)
}

// Distanced is a listing paired with its distance from a search centre.
type Distanced struct {
	*Listing
	DistanceKm float64 `json:"distance_km"`
}

// Label renders the distance for display.
func (d Distanced) Label() string {
	return geo.FormatDistance(d.DistanceKm)
}

// Nearby returns listings within radiusKm of center, nearest first.
// Structured refinements go to the store; the radius cut is done here.
// A radius of zero or less means no cut.
func (s *Service) Nearby(ctx context.Context, center geo.Point, radiusKm float64, opts filter.NearbyOptions) ([]Distanced, error) {
	if !center.Valid() {
		return nil, fmt.Errorf("%w: invalid center %v", ErrInvalidInput, center)
	}
	res, err := s.places.List(ctx, recordstore.DefaultPage, NearbyScanLimit, recordstore.ListOptions{
		Filter: filter.Nearby(opts),
		Sort:   filter.SortNewestFirst,
		Expand: expandOwner,
	})
	if err != nil {
		slog.ErrorContext(ctx, "nearby search failed", "center", center.String(), "error", err)
		return nil, fmt.Errorf("searching nearby listings: %w", err)
	}

	out := make([]Distanced, 0, len(res.Items))
	for _, rec := range res.Items {
		l, err := Parse(rec)
		if err != nil {
			slog.WarnContext(ctx, "skipping unparsable listing", "error", err)
			continue
		}
		if l.Location == (geo.Point{}) || !l.Location.Valid() {
			continue
		}
		d := geo.Distance(center, l.Location)
		if radiusKm > 0 && d > radiusKm {
			continue
		}
		out = append(out, Distanced{Listing: l, DistanceKm: d})
	}
	geo.SortByDistance(out, center, func(d Distanced) geo.Point { return d.Location })
	return out, nil
}

// NewListing is the input to Create.
type NewListing struct {
	Title        string
	Description  string
	OwnerID      string
	Category     Category
	Status       Status
	Location     geo.Point
	Size         float64
	Price        float64
	Deposit      float64
	Address      string
	City         string
	Neighborhood string
	Amenities    Amenities
}

func (n *NewListing) validate() error {
	n.Title = strings.TrimSpace(n.Title)
	n.Description = strings.TrimSpace(n.Description)
	switch {
	case n.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case n.Description == "":
		return fmt.Errorf("%w: description is required", ErrInvalidInput)
	case strings.TrimSpace(n.OwnerID) == "":
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	case !finite(n.Location.Lat) || !finite(n.Location.Lng) || !n.Location.Valid():
		return fmt.Errorf("%w: a valid location is required", ErrInvalidInput)
	case n.Price < 0 || n.Size < 0 || n.Deposit < 0:
		return fmt.Errorf("%w: price, size and deposit cannot be negative", ErrInvalidInput)
	}
	if n.Category == "" {
		n.Category = CategoryApartment
	}
	if n.Status == "" {
		n.Status = StatusAvailable
	}
	if n.City == "" {
		n.City = "Tegucigalpa"
	}
	return nil
}

// Create publishes a listing. Field errors from the store are returned
// as *recordstore.ResponseError.
func (s *Service) Create(ctx context.Context, n NewListing) (*Listing, error) {
	if err := n.validate(); err != nil {
		return nil, err
	}
	rec, err := s.places.Create(ctx, n.storedFields())
	if err != nil {
		slog.ErrorContext(ctx, "creating listing", "owner_id", n.OwnerID, "error", err)
		return nil, fmt.Errorf("creating listing: %w", err)
	}
	slog.InfoContext(ctx, "listing created", "listing_id", rec.ID(), "owner_id", n.OwnerID)
	return Parse(rec)
}

// Changes holds listing fields to update. Nil fields are left unchanged.
type Changes struct {
	Title       *string
	Description *string
	Category    *Category
	Status      *Status
	Location    *geo.Point
	Size        *float64
	Price       *float64
	Deposit     *float64
	Address     *string
}

func (c Changes) fields() (map[string]interface{}, error) {
	data := map[string]interface{}{}
	if c.Title != nil {
		if strings.TrimSpace(*c.Title) == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		data["title"] = strings.TrimSpace(*c.Title)
	}
	if c.Description != nil {
		data["description"] = strings.TrimSpace(*c.Description)
	}
	if c.Category != nil {
		data["property_type"] = string(*c.Category)
	}
	if c.Status != nil {
		data["property_status"] = string(*c.Status)
	}
	if c.Location != nil {
		if !finite(c.Location.Lat) || !finite(c.Location.Lng) || !c.Location.Valid() {
			return nil, fmt.Errorf("%w: invalid location", ErrInvalidInput)
		}
		data["location"] = map[string]float64{"lat": c.Location.Lat, "lon": c.Location.Lng}
	}
	if c.Size != nil {
		data["size"] = *c.Size
	}
	if c.Price != nil {
		data["price"] = *c.Price
		data["monthlyPrice"] = *c.Price
	}
	if c.Deposit != nil {
		data["deposit"] = *c.Deposit
	}
	if c.Address != nil {
		data["address"] = *c.Address
	}
	return data, nil
}

// Update patches a listing.
func (s *Service) Update(ctx context.Context, id string, c Changes) (*Listing, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty listing id", ErrInvalidInput)
	}
	data, err := c.fields()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return s.Get(ctx, id)
	}
	rec, err := s.places.Update(ctx, id, data)
	if errors.Is(err, recordstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		slog.ErrorContext(ctx, "updating listing", "listing_id", id, "error", err)
		return nil, fmt.Errorf("updating listing %s: %w", id, err)
	}
	return Parse(rec)
}

// Delete removes a listing.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty listing id", ErrInvalidInput)
	}
	err := s.places.Delete(ctx, id)
	if errors.Is(err, recordstore.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		slog.ErrorContext(ctx, "deleting listing", "listing_id", id, "error", err)
		return fmt.Errorf("deleting listing %s: %w", id, err)
	}
	slog.InfoContext(ctx, "listing deleted", "listing_id", id)
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
