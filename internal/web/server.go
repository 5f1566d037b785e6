// Package web provides the HTTP JSON API over listings and favorites.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tuespacio/tuespacio/internal/auth"
	"github.com/tuespacio/tuespacio/internal/cache"
	"github.com/tuespacio/tuespacio/internal/favorite"
	"github.com/tuespacio/tuespacio/internal/listing"
	"github.com/tuespacio/tuespacio/internal/logging"
	"github.com/tuespacio/tuespacio/internal/recordstore"
)

const shutdownTimeout = 10 * time.Second

// Server is the JSON API HTTP server.
type Server struct {
	store     recordstore.Store
	listings  *listing.Service
	cached    *cache.Listings
	favorites *favorite.Service
	handler   http.Handler
	mux       *http.ServeMux
}

// NewServer creates a server backed by store. Listing detail reads go
// through listingCache when it is not nil.
func NewServer(store recordstore.Store, listingCache cache.ListingCache) *Server {
	listings := listing.NewService(store)
	s := &Server{
		store:     store,
		listings:  listings,
		cached:    cache.NewListings(listings, listingCache),
		favorites: favorite.NewService(store),
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/listings", s.handleAPIListings)
	s.mux.HandleFunc("/api/listings/", s.handleAPIListings)
	s.mux.Handle("/api/users/", auth.RequireToken(http.HandlerFunc(s.handleAPIUsers)))
	s.mux.Handle("/api/favorites", auth.RequireToken(http.HandlerFunc(s.handleAPIFavorites)))
	s.mux.Handle("/api/favorites/", auth.RequireToken(http.HandlerFunc(s.handleAPIFavorites)))
	s.mux.HandleFunc("/api/distance", s.handleAPIDistance)

	s.handler = logging.RequestLogger(auth.WithToken(s.mux))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on port until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting api server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.store.Health(r.Context()); err != nil {
		slog.WarnContext(r.Context(), "health check failed", "error", err)
		apiJSON(w, map[string]string{"status": "unavailable"}, http.StatusServiceUnavailable)
		return
	}
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
