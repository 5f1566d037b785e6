package favorite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tuespacio/tuespacio/internal/filter"
	"github.com/tuespacio/tuespacio/internal/recordstore"
)

const (
	// MaxListed is the most favorites ListForUser returns.
	MaxListed = 50
	// MaxIDs is the most listing ids ListingIDs returns.
	MaxIDs = 100
)

var (
	ErrInvalidUserID    = errors.New("invalid user id")
	ErrInvalidListingID = errors.New("invalid listing id")
)

// Service keeps at most one favorite per (user, listing) pair by checking
// for an existing record before every create or delete.
type Service struct {
	favorites *recordstore.Collection
	locks     pairLocks
}

// NewService creates a favorites service.
func NewService(store recordstore.Store) *Service {
	return &Service{favorites: recordstore.NewCollection(store, Collection)}
}

func validate(userID, listingID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUserID
	}
	if strings.TrimSpace(listingID) == "" {
		return ErrInvalidListingID
	}
	return nil
}

func pairFilter(userID, listingID string) string {
	return filter.And(filter.Eq(fieldUser, userID), filter.Eq(fieldListing, listingID))
}

// find returns the favorite for the pair, or nil if there is none.
func (s *Service) find(ctx context.Context, userID, listingID string) (*Favorite, error) {
	rec, err := s.favorites.First(ctx, pairFilter(userID, listingID))
	if err != nil {
		return nil, fmt.Errorf("checking favorite: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	return Parse(rec)
}

// Add marks a listing as a favorite. An existing favorite is returned unchanged.
func (s *Service) Add(ctx context.Context, userID, listingID string) (*Favorite, error) {
	if err := validate(userID, listingID); err != nil {
		return nil, err
	}
	unlock := s.locks.lock(userID, listingID)
	defer unlock()

	existing, err := s.find(ctx, userID, listingID)
	if err != nil {
		slog.ErrorContext(ctx, "adding favorite", "user_id", userID, "listing_id", listingID, "error", err)
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return s.create(ctx, userID, listingID)
}

func (s *Service) create(ctx context.Context, userID, listingID string) (*Favorite, error) {
	rec, err := s.favorites.Create(ctx, map[string]interface{}{
		fieldUser:    userID,
		fieldListing: listingID,
	})
	if recordstore.IsNotUnique(err) {
		// Another client created the pair between our check and create.
		existing, ferr := s.find(ctx, userID, listingID)
		if ferr == nil && existing != nil {
			slog.DebugContext(ctx, "favorite created concurrently", "user_id", userID, "listing_id", listingID)
			return existing, nil
		}
	}
	if err != nil {
		slog.ErrorContext(ctx, "creating favorite", "user_id", userID, "listing_id", listingID, "error", err)
		return nil, fmt.Errorf("creating favorite: %w", err)
	}
	slog.InfoContext(ctx, "favorite added", "user_id", userID, "listing_id", listingID)
	return Parse(rec)
}

// Remove unmarks a listing. Removing a listing that is not a favorite succeeds.
func (s *Service) Remove(ctx context.Context, userID, listingID string) error {
	if err := validate(userID, listingID); err != nil {
		return err
	}
	unlock := s.locks.lock(userID, listingID)
	defer unlock()

	existing, err := s.find(ctx, userID, listingID)
	if err != nil {
		slog.ErrorContext(ctx, "removing favorite", "user_id", userID, "listing_id", listingID, "error", err)
		return err
	}
	if existing == nil {
		return nil
	}
	return s.delete(ctx, existing)
}

func (s *Service) delete(ctx context.Context, f *Favorite) error {
	err := s.favorites.Delete(ctx, f.ID)
	if errors.Is(err, recordstore.ErrNotFound) {
		// Already gone.
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "deleting favorite", "favorite_id", f.ID, "user_id", f.UserID, "error", err)
		return fmt.Errorf("deleting favorite %s: %w", f.ID, err)
	}
	slog.InfoContext(ctx, "favorite removed", "user_id", f.UserID, "listing_id", f.ListingID)
	return nil
}

// Toggle flips the pair's state with a single existence check and reports
// the new state.
func (s *Service) Toggle(ctx context.Context, userID, listingID string) (*Result, error) {
	if err := validate(userID, listingID); err != nil {
		return nil, err
	}
	unlock := s.locks.lock(userID, listingID)
	defer unlock()

	existing, err := s.find(ctx, userID, listingID)
	if err != nil {
		slog.ErrorContext(ctx, "toggling favorite", "user_id", userID, "listing_id", listingID, "error", err)
		return nil, err
	}
	if existing != nil {
		if err := s.delete(ctx, existing); err != nil {
			return nil, err
		}
		return &Result{Action: ActionRemoved, Favorite: false}, nil
	}

	created, err := s.create(ctx, userID, listingID)
	if err != nil {
		return nil, err
	}
	return &Result{Action: ActionAdded, Favorite: true, Record: created}, nil
}

// IsFavorite reports whether the pair is currently a favorite.
func (s *Service) IsFavorite(ctx context.Context, userID, listingID string) (bool, error) {
	if err := validate(userID, listingID); err != nil {
		return false, err
	}
	existing, err := s.find(ctx, userID, listingID)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

// ListForUser returns a user's favorites with their listings, most recent
// first, never more than MaxListed.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*Favorite, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUserID
	}
	res, err := s.favorites.List(ctx, recordstore.DefaultPage, MaxListed, recordstore.ListOptions{
		Filter: filter.Eq(fieldUser, userID),
		Sort:   filter.SortNewestFirst,
		Expand: fieldListing,
	})
	if err != nil {
		slog.ErrorContext(ctx, "listing favorites", "user_id", userID, "error", err)
		return nil, fmt.Errorf("listing favorites: %w", err)
	}

	out := make([]*Favorite, 0, len(res.Items))
	for _, rec := range res.Items {
		f, err := Parse(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
		if len(out) == MaxListed {
			break
		}
	}
	return out, nil
}

// ListingIDs returns the ids of a user's favorite listings. Failures yield
// an empty slice so callers can still render.
func (s *Service) ListingIDs(ctx context.Context, userID string) []string {
	if strings.TrimSpace(userID) == "" {
		return []string{}
	}
	res, err := s.favorites.List(ctx, recordstore.DefaultPage, MaxIDs, recordstore.ListOptions{
		Filter: filter.Eq(fieldUser, userID),
		Fields: fieldListing,
	})
	if err != nil {
		slog.WarnContext(ctx, "loading favorite ids", "user_id", userID, "error", err)
		return []string{}
	}
	ids := make([]string, 0, len(res.Items))
	for _, rec := range res.Items {
		if v := rec.Strings(fieldListing); len(v) > 0 {
			ids = append(ids, v[0])
		}
	}
	return ids
}

// CountForListing returns how many users saved a listing, or 0 on failure.
func (s *Service) CountForListing(ctx context.Context, listingID string) int {
	if strings.TrimSpace(listingID) == "" {
		return 0
	}
	res, err := s.favorites.List(ctx, recordstore.DefaultPage, 1, recordstore.ListOptions{
		Filter: filter.Eq(fieldListing, listingID),
	})
	if err != nil {
		slog.WarnContext(ctx, "counting favorites", "listing_id", listingID, "error", err)
		return 0
	}
	return res.TotalItems
}

// ClearForUser deletes every favorite of a user and returns how many were removed.
// Records the store lists but refuses to delete are skipped; clearing stops
// once a pass removes nothing.
func (s *Service) ClearForUser(ctx context.Context, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, ErrInvalidUserID
	}
	removed := 0
	for {
		res, err := s.favorites.List(ctx, recordstore.DefaultPage, MaxListed, recordstore.ListOptions{
			Filter: filter.Eq(fieldUser, userID),
		})
		if err != nil {
			return removed, fmt.Errorf("listing favorites to clear: %w", err)
		}

		pass := 0
		for _, rec := range res.Items {
			err := s.favorites.Delete(ctx, rec.ID())
			switch {
			case errors.Is(err, recordstore.ErrNotFound):
				slog.WarnContext(ctx, "favorite not deleted", "user_id", userID, "favorite_id", rec.ID())
			case err != nil:
				slog.ErrorContext(ctx, "clearing favorites", "user_id", userID, "favorite_id", rec.ID(), "error", err)
				return removed, fmt.Errorf("deleting favorite %s: %w", rec.ID(), err)
			default:
				pass++
			}
		}
		removed += pass
		if pass == 0 {
			break
		}
	}
	slog.InfoContext(ctx, "favorites cleared", "user_id", userID, "count", removed)
	return removed, nil
}
