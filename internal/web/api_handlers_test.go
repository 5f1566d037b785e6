package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tuespacio/tuespacio/internal/cache"
	"github.com/tuespacio/tuespacio/internal/favorite"
	"github.com/tuespacio/tuespacio/internal/listing"
	"github.com/tuespacio/tuespacio/internal/recordstore"
	"github.com/tuespacio/tuespacio/internal/recordstore/recordstoretest"
	"github.com/tuespacio/tuespacio/internal/user"
)

const testToken = "test-token"

// testAPIServer creates a server over a seeded in-memory store.
func testAPIServer(t *testing.T) (*Server, *recordstoretest.Store) {
	t.Helper()
	store := recordstoretest.New()
	store.Relations["owner"] = user.Collection
	store.Relations["places"] = listing.Collection

	store.Seed(user.Collection, map[string]interface{}{"id": "u1", "email": "ana@example.com", "name": "Ana Lopez"})
	store.Seed(listing.Collection, map[string]interface{}{
		"id":            "p1",
		"title":         "Cuarto cerca de la UNAH",
		"owner":         "u1",
		"price":         3500,
		"property_type": "departamento",
		"location":      map[string]float64{"lat": 14.0850, "lon": -87.1650},
	})
	store.Seed(listing.Collection, map[string]interface{}{
		"id":            "p2",
		"title":         "Casa en Comayagüela",
		"owner":         "u1",
		"price":         9000,
		"property_type": "casa",
		"location":      map[string]float64{"lat": 14.0600, "lon": -87.2200},
	})
	store.Seed(listing.Collection, map[string]interface{}{
		"id":    "p3",
		"title": "Oficina sin ubicación",
		"owner": "u1",
	})
	store.Seed(favorite.Collection, map[string]interface{}{"user": "u1", "places": "p1"})

	return NewServer(store, cache.NewMemory(time.Minute)), store
}

func apiRequest(t *testing.T, srv *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	r := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func countCalls(store *recordstoretest.Store, call string) int {
	n := 0
	for _, c := range store.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func TestHealth(t *testing.T) {
	srv, store := testAPIServer(t)

	w := apiRequest(t, srv, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	store.Err = errors.New("down")
	w = apiRequest(t, srv, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestAPISearchListings(t *testing.T) {
	srv, _ := testAPIServer(t)

	w := apiRequest(t, srv, http.MethodGet, "/api/listings?user_id=u1", testToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Items []struct {
			ID       string `json:"id"`
			Favorite bool   `json:"is_favorite"`
			Owner    *struct {
				Name string `json:"name"`
			} `json:"owner"`
		} `json:"items"`
		TotalItems int `json:"total_items"`
	}
	decodeBody(t, w, &resp)

	if resp.TotalItems != 3 || len(resp.Items) != 3 {
		t.Fatalf("expected 3 listings, got %+v", resp)
	}
	if resp.Items[0].ID != "p3" || resp.Items[2].ID != "p1" {
		t.Errorf("expected newest first, got %s..%s", resp.Items[0].ID, resp.Items[2].ID)
	}
	for _, it := range resp.Items {
		if it.Favorite != (it.ID == "p1") {
			t.Errorf("listing %s is_favorite = %v", it.ID, it.Favorite)
		}
		if it.Owner == nil || it.Owner.Name != "Ana Lopez" {
			t.Errorf("listing %s owner not expanded: %+v", it.ID, it.Owner)
		}
	}
}

func TestAPISearchAnonymousHasNoFavorites(t *testing.T) {
	srv, store := testAPIServer(t)
	store.ResetCalls()

	w := apiRequest(t, srv, http.MethodGet, "/api/listings", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if n := countCalls(store, "list favorites"); n != 0 {
		t.Errorf("anonymous search should not read favorites, got %d calls", n)
	}
}

func TestAPIFavoriteReadsRequireToken(t *testing.T) {
	srv, store := testAPIServer(t)
	store.ResetCalls()

	w := apiRequest(t, srv, http.MethodGet, "/api/users/u1/favorites", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("user favorites status = %d, want 401", w.Code)
	}

	for _, path := range []string{"/api/listings?user_id=u1", "/api/listings/p1?user_id=u1"} {
		w := apiRequest(t, srv, http.MethodGet, path, "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", path, w.Code)
		}
		if bytes.Contains(w.Body.Bytes(), []byte(`"is_favorite":true`)) {
			t.Errorf("%s: favorites annotated without a token: %s", path, w.Body.String())
		}
	}
	if n := countCalls(store, "list favorites"); n != 1 {
		t.Errorf("expected only the favorite count read, got %d favorites calls", n)
	}
}

func TestAPISearchRejectsUnknownFilter(t *testing.T) {
	srv, _ := testAPIServer(t)

	w := apiRequest(t, srv, http.MethodGet, "/api/listings?filter=cheap-ish", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAPISearchFailsOpen(t *testing.T) {
	srv, store := testAPIServer(t)
	store.Err = errors.New("connection refused")

	w := apiRequest(t, srv, http.MethodGet, "/api/listings?q=casa", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Items []json.RawMessage `json:"items"`
	}
	decodeBody(t, w, &resp)
	if resp.Items == nil || len(resp.Items) != 0 {
		t.Errorf("expected empty items array, got %v", resp.Items)
	}
}

func TestAPIGetListing(t *testing.T) {
	srv, store := testAPIServer(t)
	store.Seed(favorite.Collection, map[string]interface{}{"user": "u2", "places": "p1"})

	w := apiRequest(t, srv, http.MethodGet, "/api/listings/p1?user_id=u1", testToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID            string `json:"id"`
		Favorite      bool   `json:"is_favorite"`
		FavoriteCount int    `json:"favorite_count"`
	}
	decodeBody(t, w, &resp)
	if resp.ID != "p1" || !resp.Favorite || resp.FavoriteCount != 2 {
		t.Errorf("unexpected detail: %+v", resp)
	}
}

func TestAPIGetListingIsCached(t *testing.T) {
	srv, store := testAPIServer(t)
	store.ResetCalls()

	for i := 0; i < 3; i++ {
		w := apiRequest(t, srv, http.MethodGet, "/api/listings/p2", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	}
	if n := countCalls(store, "get places"); n != 1 {
		t.Errorf("expected one store read, got %d", n)
	}
}

func TestAPIGetListingNotFound(t *testing.T) {
	srv, _ := testAPIServer(t)

	w := apiRequest(t, srv, http.MethodGet, "/api/listings/missing", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	w = apiRequest(t, srv, http.MethodGet, "/api/listings/p1/photos", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("nested path status = %d, want 404", w.Code)
	}
}

func TestAPIListingsMethodNotAllowed(t *testing.T) {
	srv, _ := testAPIServer(t)

	w := apiRequest(t, srv, http.MethodPost, "/api/listings", "", map[string]string{"title": "x"})
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestAPIUpdateListingRefreshesCache(t *testing.T) {
	srv, _ := testAPIServer(t)

	getPrice := func() float64 {
		t.Helper()
		w := apiRequest(t, srv, http.MethodGet, "/api/listings/p2", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("get status = %d", w.Code)
		}
		var l struct {
			Price float64 `json:"price"`
		}
		decodeBody(t, w, &l)
		return l.Price
	}

	if p := getPrice(); p != 9000 {
		t.Fatalf("price = %v, want 9000", p)
	}

	w := apiRequest(t, srv, http.MethodPatch, "/api/listings/p2", "", map[string]interface{}{"price": 8500})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("patch without token status = %d, want 401", w.Code)
	}

	w = apiRequest(t, srv, http.MethodPatch, "/api/listings/p2", testToken, map[string]interface{}{"price": 8500, "status": "reserved"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", w.Code, w.Body.String())
	}
	var updated struct {
		Price  float64 `json:"price"`
		Status string  `json:"status"`
	}
	decodeBody(t, w, &updated)
	if updated.Price != 8500 || updated.Status != string(listing.StatusReserved) {
		t.Errorf("patched listing = %+v", updated)
	}

	if p := getPrice(); p != 8500 {
		t.Errorf("price after patch = %v, want 8500 from a fresh read", p)
	}
}

func TestAPIDeleteListing(t *testing.T) {
	srv, store := testAPIServer(t)

	if w := apiRequest(t, srv, http.MethodGet, "/api/listings/p2", "", nil); w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w := apiRequest(t, srv, http.MethodDelete, "/api/listings/p2", testToken, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body = %s", w.Code, w.Body.String())
	}
	if n := store.Count(listing.Collection); n != 2 {
		t.Errorf("listings = %d, want 2", n)
	}
	if w := apiRequest(t, srv, http.MethodGet, "/api/listings/p2", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}
	if w := apiRequest(t, srv, http.MethodDelete, "/api/listings/p2", testToken, nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestAPIChangeListingValidation(t *testing.T) {
	srv, _ := testAPIServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"unknown category", http.MethodPatch, "/api/listings/p1", map[string]string{"category": "castle"}, http.StatusBadRequest},
		{"empty title", http.MethodPatch, "/api/listings/p1", map[string]string{"title": "  "}, http.StatusBadRequest},
		{"collection path", http.MethodPatch, "/api/listings", map[string]string{"title": "x"}, http.StatusMethodNotAllowed},
		{"nearby path", http.MethodDelete, "/api/listings/nearby", nil, http.StatusMethodNotAllowed},
		{"missing listing", http.MethodPatch, "/api/listings/missing", map[string]string{"title": "x"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := apiRequest(t, srv, tt.method, tt.path, testToken, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestAPINearbyListings(t *testing.T) {
	srv, _ := testAPIServer(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"no radius keeps every located listing", "lat=14.0840&lng=-87.1660", []string{"p1", "p2"}},
		{"radius cut", "lat=14.0840&lng=-87.1660&radius=2", []string{"p1"}},
		{"category refinement", "lat=14.0840&lng=-87.1660&category=house", []string{"p2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := apiRequest(t, srv, http.MethodGet, "/api/listings/nearby?"+tt.query, "", nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			var items []struct {
				ID         string  `json:"id"`
				DistanceKm float64 `json:"distance_km"`
				Label      string  `json:"distance_label"`
			}
			decodeBody(t, w, &items)
			if len(items) != len(tt.want) {
				t.Fatalf("got %d items, want %v", len(items), tt.want)
			}
			for i, id := range tt.want {
				if items[i].ID != id {
					t.Errorf("item %d = %s, want %s", i, items[i].ID, id)
				}
				if items[i].Label == "" {
					t.Errorf("item %d has no distance label", i)
				}
			}
		})
	}
}

func TestAPINearbyValidation(t *testing.T) {
	srv, _ := testAPIServer(t)

	for _, q := range []string{
		"lng=-87.1",
		"lat=abc&lng=-87.1",
		"lat=14.1&lng=-87.1&radius=-1",
		"lat=14.1&lng=-87.1&category=castle",
		"lat=14.1&lng=-87.1&status=sold",
		"lat=14.1&lng=-87.1&min_size=big",
		"lat=95&lng=-87.1",
	} {
		w := apiRequest(t, srv, http.MethodGet, "/api/listings/nearby?"+q, "", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, w.Code)
		}
	}
}

func TestAPIUserFavorites(t *testing.T) {
	srv, store := testAPIServer(t)
	store.Seed(favorite.Collection, map[string]interface{}{"user": "u1", "places": "p2"})

	w := apiRequest(t, srv, http.MethodGet, "/api/users/u1/favorites", testToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var favs []struct {
		ListingID string `json:"listing_id"`
		Listing   *struct {
			Title string `json:"title"`
		} `json:"listing"`
	}
	decodeBody(t, w, &favs)
	if len(favs) != 2 || favs[0].ListingID != "p2" || favs[1].ListingID != "p1" {
		t.Fatalf("unexpected favorites: %+v", favs)
	}
	if favs[0].Listing == nil || favs[0].Listing.Title != "Casa en Comayagüela" {
		t.Errorf("listing not expanded: %+v", favs[0].Listing)
	}

	w = apiRequest(t, srv, http.MethodGet, "/api/users/u1/contracts", testToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestAPIFavoritesRequireToken(t *testing.T) {
	srv, _ := testAPIServer(t)

	w := apiRequest(t, srv, http.MethodPost, "/api/favorites/toggle", "", favoriteRequest{UserID: "u1", ListingID: "p2"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAPIToggleFavorite(t *testing.T) {
	srv, store := testAPIServer(t)
	body := favoriteRequest{UserID: "u1", ListingID: "p2"}

	w := apiRequest(t, srv, http.MethodPost, "/api/favorites/toggle", testToken, body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res favorite.Result
	decodeBody(t, w, &res)
	if res.Action != favorite.ActionAdded || !res.Favorite {
		t.Errorf("first toggle = %+v, want added", res)
	}
	if n := store.Count(favorite.Collection); n != 2 {
		t.Errorf("favorites = %d, want 2", n)
	}

	w = apiRequest(t, srv, http.MethodPost, "/api/favorites/toggle", testToken, body)
	res = favorite.Result{}
	decodeBody(t, w, &res)
	if res.Action != favorite.ActionRemoved || res.Favorite {
		t.Errorf("second toggle = %+v, want removed", res)
	}
	if n := store.Count(favorite.Collection); n != 1 {
		t.Errorf("favorites = %d, want 1", n)
	}
}

func TestAPIAddRemoveFavorite(t *testing.T) {
	srv, store := testAPIServer(t)
	body := favoriteRequest{UserID: "u1", ListingID: "p3"}

	for i := 0; i < 2; i++ {
		w := apiRequest(t, srv, http.MethodPost, "/api/favorites", testToken, body)
		if w.Code != http.StatusCreated {
			t.Fatalf("add %d: status = %d, body = %s", i, w.Code, w.Body.String())
		}
	}
	if n := store.Count(favorite.Collection); n != 2 {
		t.Errorf("repeated add should not duplicate, favorites = %d", n)
	}

	for i := 0; i < 2; i++ {
		w := apiRequest(t, srv, http.MethodDelete, "/api/favorites", testToken, body)
		if w.Code != http.StatusOK {
			t.Fatalf("remove %d: status = %d", i, w.Code)
		}
	}
	if n := store.Count(favorite.Collection); n != 1 {
		t.Errorf("favorites = %d, want 1", n)
	}
}

func TestAPIFavoritesValidation(t *testing.T) {
	srv, _ := testAPIServer(t)

	w := apiRequest(t, srv, http.MethodPost, "/api/favorites", testToken, favoriteRequest{ListingID: "p1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing user: status = %d, want 400", w.Code)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/favorites/toggle", bytes.NewBufferString("{not json"))
	r.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, r)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad json: status = %d, want 400", rec.Code)
	}

	w = apiRequest(t, srv, http.MethodGet, "/api/favorites", testToken, nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET: status = %d, want 405", w.Code)
	}
}

func TestAPIFavoritesStoreDown(t *testing.T) {
	srv, store := testAPIServer(t)
	store.Err = fmt.Errorf("%w: dial tcp: connection refused", recordstore.ErrUnreachable)

	w := apiRequest(t, srv, http.MethodPost, "/api/favorites/toggle", testToken, favoriteRequest{UserID: "u1", ListingID: "p1"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestAPIDistance(t *testing.T) {
	srv, _ := testAPIServer(t)

	w := apiRequest(t, srv, http.MethodGet, "/api/distance?from=14.0850,-87.1650&to=14.0850,-87.1650", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		DistanceKm float64 `json:"distance_km"`
		Label      string  `json:"label"`
	}
	decodeBody(t, w, &resp)
	if resp.DistanceKm != 0 || resp.Label == "" {
		t.Errorf("unexpected distance: %+v", resp)
	}

	w = apiRequest(t, srv, http.MethodGet, "/api/distance?from=14.08&to=14.0850,-87.1650", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	srv, _ := testAPIServer(t)

	r := httptest.NewRequest(http.MethodGet, "/api/distance?from=1,1&to=2,2", nil)
	r.Header.Set("X-Request-Id", "req-42")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	if got := w.Header().Get("X-Request-Id"); got != "req-42" {
		t.Errorf("X-Request-Id = %q, want req-42", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid listing", fmt.Errorf("wrap: %w", listing.ErrInvalidInput), http.StatusBadRequest},
		{"invalid user", favorite.ErrInvalidUserID, http.StatusBadRequest},
		{"listing missing", listing.ErrNotFound, http.StatusNotFound},
		{"store 404", &recordstore.ResponseError{Status: http.StatusNotFound}, http.StatusNotFound},
		{"store forbidden", &recordstore.ResponseError{Status: http.StatusForbidden}, http.StatusForbidden},
		{"unreachable", recordstore.ErrUnreachable, http.StatusBadGateway},
		{"store 500", &recordstore.ResponseError{Status: http.StatusInternalServerError}, http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor = %d, want %d", got, tt.want)
			}
		})
	}
}
