package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/tuespacio/tuespacio/internal/auth"
	"github.com/tuespacio/tuespacio/internal/favorite"
	"github.com/tuespacio/tuespacio/internal/filter"
	"github.com/tuespacio/tuespacio/internal/geo"
	"github.com/tuespacio/tuespacio/internal/listing"
	"github.com/tuespacio/tuespacio/internal/recordstore"
)

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := map[string]string{"error": msg}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// statusFor maps a service error to a response status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, listing.ErrInvalidInput),
		errors.Is(err, favorite.ErrInvalidUserID),
		errors.Is(err, favorite.ErrInvalidListingID):
		return http.StatusBadRequest
	case errors.Is(err, listing.ErrNotFound), errors.Is(err, recordstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, recordstore.ErrUnreachable):
		return http.StatusBadGateway
	}
	switch status := recordstore.StatusOf(err); status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return status
	}
	return http.StatusInternalServerError
}

// serviceError writes err with the status statusFor picks.
func serviceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= 500 {
		slog.ErrorContext(r.Context(), "api request failed", "path", r.URL.Path, "error", err)
	}
	apiError(w, err.Error(), code)
}

// listingView is a listing annotated for one viewer.
type listingView struct {
	*listing.Listing
	Favorite bool `json:"is_favorite"`
}

type searchResponse struct {
	Items      []listingView `json:"items"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalItems int           `json:"total_items"`
	TotalPages int           `json:"total_pages"`
}

type listingDetail struct {
	*listing.Listing
	Favorite      bool `json:"is_favorite"`
	FavoriteCount int  `json:"favorite_count"`
}

type nearbyItem struct {
	listing.Distanced
	Favorite bool   `json:"is_favorite"`
	Label    string `json:"distance_label"`
}

// listingChanges is the body of PATCH /api/listings/{id}. Absent fields
// are left unchanged.
type listingChanges struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Category    *string    `json:"category"`
	Status      *string    `json:"status"`
	Location    *geo.Point `json:"location"`
	Size        *float64   `json:"size"`
	Price       *float64   `json:"price"`
	Deposit     *float64   `json:"deposit"`
	Address     *string    `json:"address"`
}

func (c listingChanges) changes() (listing.Changes, error) {
	ch := listing.Changes{
		Title:       c.Title,
		Description: c.Description,
		Location:    c.Location,
		Size:        c.Size,
		Price:       c.Price,
		Deposit:     c.Deposit,
		Address:     c.Address,
	}
	if c.Category != nil {
		cat, err := listing.ParseCategory(*c.Category)
		if err != nil {
			return listing.Changes{}, err
		}
		ch.Category = &cat
	}
	if c.Status != nil {
		st, err := listing.ParseStatus(*c.Status)
		if err != nil {
			return listing.Changes{}, err
		}
		ch.Status = &st
	}
	return ch, nil
}

// favoriteRequest is the body of the favorites endpoints.
type favoriteRequest struct {
	UserID    string `json:"user_id"`
	ListingID string `json:"listing_id"`
}

// handleAPIListings routes /api/listings requests. Changes to a listing
// need a bearer token; the store decides whether its holder owns it.
func (s *Server) handleAPIListings(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/listings")
	path = strings.Trim(path, "/")
	single := path != "" && path != "nearby" && !strings.Contains(path, "/")

	switch r.Method {
	case http.MethodGet:
	case http.MethodPatch, http.MethodDelete:
		if !single {
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		auth.RequireToken(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.apiChangeListing(w, r, path)
		})).ServeHTTP(w, r)
		return
	default:
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch {
	case path == "":
		s.apiSearchListings(w, r)
	case path == "nearby":
		s.apiNearbyListings(w, r)
	case single:
		s.apiGetListing(w, r, path)
	default:
		apiError(w, "not found", http.StatusNotFound)
	}
}

// apiSearchListings returns the first page of listings matching ?q= and ?filter=.
// With ?user_id= each item carries whether that user saved it.
func (s *Server) apiSearchListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quick, err := filter.ParseQuickFilter(q.Get("filter"))
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := s.listings.Search(r.Context(), q.Get("q"), quick)
	if err != nil {
		serviceError(w, r, err)
		return
	}

	resp := searchResponse{
		Items:      make([]listingView, 0, len(page.Items)),
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
	}
	saved := s.savedBy(r, q.Get("user_id"))
	for _, l := range page.Items {
		resp.Items = append(resp.Items, listingView{Listing: l, Favorite: saved.Contains(r.Context(), l.ID)})
	}
	apiJSON(w, resp, http.StatusOK)
}

// apiNearbyListings returns listings around ?lat=&lng=, nearest first.
func (s *Server) apiNearbyListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		apiError(w, "lat is required and must be a number", http.StatusBadRequest)
		return
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		apiError(w, "lng is required and must be a number", http.StatusBadRequest)
		return
	}

	var radius float64
	if v := q.Get("radius"); v != "" {
		radius, err = strconv.ParseFloat(v, 64)
		if err != nil || radius < 0 {
			apiError(w, "radius must be a non-negative number of kilometres", http.StatusBadRequest)
			return
		}
	}

	opts := filter.NearbyOptions{OwnerID: q.Get("owner_id")}
	if v := q.Get("category"); v != "" {
		c, err := listing.ParseCategory(v)
		if err != nil {
			apiError(w, err.Error(), http.StatusBadRequest)
			return
		}
		opts.Category = string(c)
	}
	if v := q.Get("status"); v != "" {
		st, err := listing.ParseStatus(v)
		if err != nil {
			apiError(w, err.Error(), http.StatusBadRequest)
			return
		}
		opts.Status = string(st)
	}
	for name, dst := range map[string]*float64{"min_size": &opts.MinSize, "max_size": &opts.MaxSize} {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				apiError(w, name+" must be a non-negative number", http.StatusBadRequest)
				return
			}
			*dst = f
		}
	}

	found, err := s.listings.Nearby(r.Context(), geo.Point{Lat: lat, Lng: lng}, radius, opts)
	if err != nil {
		serviceError(w, r, err)
		return
	}

	saved := s.savedBy(r, q.Get("user_id"))
	items := make([]nearbyItem, 0, len(found))
	for _, d := range found {
		items = append(items, nearbyItem{Distanced: d, Favorite: saved.Contains(r.Context(), d.ID), Label: d.Label()})
	}
	apiJSON(w, items, http.StatusOK)
}

// apiGetListing returns one listing with its favorite count.
func (s *Server) apiGetListing(w http.ResponseWriter, r *http.Request, id string) {
	l, err := s.cached.Get(r.Context(), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}

	resp := listingDetail{
		Listing:       l,
		FavoriteCount: s.favorites.CountForListing(r.Context(), l.ID),
	}
	if userID := r.URL.Query().Get("user_id"); userID != "" && auth.TokenFrom(r.Context()) != "" {
		ok, err := s.favorites.IsFavorite(r.Context(), userID, l.ID)
		if err != nil {
			slog.WarnContext(r.Context(), "checking favorite", "user_id", userID, "listing_id", l.ID, "error", err)
		}
		resp.Favorite = ok
	}
	apiJSON(w, resp, http.StatusOK)
}

// apiChangeListing patches or deletes one listing and drops it from the
// read cache.
func (s *Server) apiChangeListing(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method == http.MethodDelete {
		err := s.listings.Delete(r.Context(), id)
		if err == nil || errors.Is(err, listing.ErrNotFound) {
			s.cached.Invalidate(r.Context(), id)
		}
		if err != nil {
			serviceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var body listingChanges
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apiError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	changes, err := body.changes()
	if err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	l, err := s.listings.Update(r.Context(), id, changes)
	if err == nil || errors.Is(err, listing.ErrNotFound) {
		s.cached.Invalidate(r.Context(), id)
	}
	if err != nil {
		serviceError(w, r, err)
		return
	}
	apiJSON(w, l, http.StatusOK)
}

// handleAPIUsers routes /api/users/{id}/favorites.
func (s *Server) handleAPIUsers(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/"), "/")
	userID, rest, ok := strings.Cut(path, "/")
	if !ok || rest != "favorites" || userID == "" {
		apiError(w, "not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	favs, err := s.favorites.ListForUser(r.Context(), userID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	apiJSON(w, favs, http.StatusOK)
}

// handleAPIFavorites routes /api/favorites and /api/favorites/toggle.
func (s *Server) handleAPIFavorites(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/favorites"), "/")

	var req favoriteRequest
	decode := func() bool {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiError(w, "invalid JSON body", http.StatusBadRequest)
			return false
		}
		return true
	}

	switch {
	case path == "toggle" && r.Method == http.MethodPost:
		if !decode() {
			return
		}
		res, err := s.favorites.Toggle(r.Context(), req.UserID, req.ListingID)
		if err != nil {
			serviceError(w, r, err)
			return
		}
		apiJSON(w, res, http.StatusOK)
	case path == "" && r.Method == http.MethodPost:
		if !decode() {
			return
		}
		fav, err := s.favorites.Add(r.Context(), req.UserID, req.ListingID)
		if err != nil {
			serviceError(w, r, err)
			return
		}
		apiJSON(w, favorite.Result{Action: favorite.ActionAdded, Favorite: true, Record: fav}, http.StatusCreated)
	case path == "" && r.Method == http.MethodDelete:
		if !decode() {
			return
		}
		if err := s.favorites.Remove(r.Context(), req.UserID, req.ListingID); err != nil {
			serviceError(w, r, err)
			return
		}
		apiJSON(w, favorite.Result{Action: favorite.ActionRemoved, Favorite: false}, http.StatusOK)
	case path == "" || path == "toggle":
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	default:
		apiError(w, "not found", http.StatusNotFound)
	}
}

// handleAPIDistance returns the distance between ?from= and ?to=.
func (s *Server) handleAPIDistance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	from, err := geo.ParsePoint(r.URL.Query().Get("from"))
	if err != nil {
		apiError(w, fmt.Sprintf("from: %v", err), http.StatusBadRequest)
		return
	}
	to, err := geo.ParsePoint(r.URL.Query().Get("to"))
	if err != nil {
		apiError(w, fmt.Sprintf("to: %v", err), http.StatusBadRequest)
		return
	}

	km := geo.Distance(from, to)
	apiJSON(w, map[string]interface{}{
		"from":        from,
		"to":          to,
		"distance_km": km,
		"label":       geo.FormatDistance(km),
	}, http.StatusOK)
}

// savedBy returns the favorite id set of userID, or nil when no user is
// named or the request carries no token.
func (s *Server) savedBy(r *http.Request, userID string) *favorite.IDSet {
	if strings.TrimSpace(userID) == "" || auth.TokenFrom(r.Context()) == "" {
		return nil
	}
	return s.favorites.IDSet(userID)
}
