package recordstoretest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tuespacio/tuespacio/internal/filter"
	"github.com/tuespacio/tuespacio/internal/recordstore"
)

// TokenTTL is the lifetime of tokens issued by the test server.
const TokenTTL = time.Hour

var signingKey = []byte("recordstoretest")

// hidden fields are never returned by the server.
var hidden = []string{"password", "passwordConfirm"}

// NewServer serves s over the record store REST API. Password auth checks
// the plain "password" field of the auth collection's records and issues a
// signed token expiring after TokenTTL. The server is closed with the test.
func NewServer(t testing.TB, s *Store) *httptest.Server {
	srv := httptest.NewServer(Handler(s))
	t.Cleanup(srv.Close)
	return srv
}

// Handler returns the REST handler NewServer uses.
func Handler(s *Store) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.Health(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"code": 200, "message": "API is healthy."})
	})

	mux.HandleFunc("GET /api/collections/{collection}/records", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		perPage, _ := strconv.Atoi(q.Get("perPage"))
		res, err := s.List(r.Context(), r.PathValue("collection"), page, perPage, recordstore.ListOptions{
			Filter: q.Get("filter"),
			Sort:   q.Get("sort"),
			Expand: q.Get("expand"),
			Fields: q.Get("fields"),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		for _, rec := range res.Items {
			strip(rec)
		}
		writeJSON(w, http.StatusOK, res)
	})

	mux.HandleFunc("GET /api/collections/{collection}/records/{id}", func(w http.ResponseWriter, r *http.Request) {
		rec, err := s.GetOne(r.Context(), r.PathValue("collection"), r.PathValue("id"), r.URL.Query().Get("expand"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, strip(rec))
	})

	mux.HandleFunc("POST /api/collections/{collection}/records", func(w http.ResponseWriter, r *http.Request) {
		data, ok := readBody(w, r)
		if !ok {
			return
		}
		rec, err := s.Create(r.Context(), r.PathValue("collection"), data)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, strip(rec))
	})

	mux.HandleFunc("PATCH /api/collections/{collection}/records/{id}", func(w http.ResponseWriter, r *http.Request) {
		data, ok := readBody(w, r)
		if !ok {
			return
		}
		rec, err := s.Update(r.Context(), r.PathValue("collection"), r.PathValue("id"), data)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, strip(rec))
	})

	mux.HandleFunc("DELETE /api/collections/{collection}/records/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := s.Delete(r.Context(), r.PathValue("collection"), r.PathValue("id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /api/collections/{collection}/auth-with-password", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Identity string `json:"identity"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, &recordstore.ResponseError{Status: http.StatusBadRequest, Message: "Invalid request body."})
			return
		}
		rec, err := s.authenticate(r, r.PathValue("collection"), body.Identity, body.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		token, err := issueToken(rec.ID())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, recordstore.AuthResult{Token: token, Record: strip(rec)})
	})

	return mux
}

func (s *Store) authenticate(r *http.Request, collection, identity, password string) (recordstore.Record, error) {
	res, err := s.List(r.Context(), collection, recordstore.DefaultPage, 1, recordstore.ListOptions{
		Filter: filter.Eq("email", identity),
	})
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 || password == "" || res.Items[0].String("password") != password {
		return nil, &recordstore.ResponseError{Status: http.StatusBadRequest, Message: "Failed to authenticate."}
	}
	return res.Items[0], nil
}

func issueToken(subject string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
}

func strip(rec recordstore.Record) recordstore.Record {
	for _, f := range hidden {
		delete(rec, f)
	}
	return rec
}

func readBody(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	var data map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, &recordstore.ResponseError{Status: http.StatusBadRequest, Message: "Invalid request body."})
		return nil, false
	}
	return data, true
}

func writeError(w http.ResponseWriter, err error) {
	var re *recordstore.ResponseError
	if !errors.As(err, &re) {
		re = &recordstore.ResponseError{Status: http.StatusInternalServerError, Message: err.Error()}
	}
	writeJSON(w, re.Status, map[string]interface{}{
		"code":    re.Status,
		"message": re.Message,
		"data":    re.Data,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
