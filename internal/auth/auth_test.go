package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tuespacio/tuespacio/internal/db"
	"github.com/tuespacio/tuespacio/internal/recordstore"
	"github.com/tuespacio/tuespacio/internal/recordstore/recordstoretest"
	"github.com/tuespacio/tuespacio/internal/session"
	"github.com/tuespacio/tuespacio/internal/user"
)

const testPassword = "correct-horse"

// fakeStore serves the health and password auth endpoints.
func fakeStore(t *testing.T, token string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":200,"message":"API is healthy."}`))
	})
	mux.HandleFunc("POST /api/collections/users/auth-with-password", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Identity string `json:"identity"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if body.Password != testPassword {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":400,"message":"Failed to authenticate.","data":{}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"token":  token,
			"record": map[string]interface{}{"id": "u1", "email": body.Identity, "name": "Ana", "type": "Inquilino"},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testSessions(t *testing.T) *session.Store {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return session.NewStore(d)
}

func tokenExpiringAt(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestLoginSavesSession(t *testing.T) {
	token := tokenExpiringAt(t, time.Now().Add(time.Hour))
	srv := fakeStore(t, token)
	sessions := testSessions(t)
	svc := NewService(recordstore.New(srv.URL, "", 0), nil, sessions)

	sess, err := svc.Login(context.Background(), " Ana@Example.com ", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Token != token || sess.User.ID != "u1" {
		t.Errorf("unexpected session: %+v", sess)
	}
	if sess.User.Email != "ana@example.com" {
		t.Errorf("identity not normalized: %q", sess.User.Email)
	}

	saved, err := sessions.Load()
	if err != nil || saved == nil || saved.Token != token {
		t.Fatalf("session not persisted: %+v, %v", saved, err)
	}

	cur, err := svc.Current()
	if err != nil || cur.User.Name != "Ana" {
		t.Errorf("Current = %+v, %v", cur, err)
	}

	if err := svc.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Current(); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("after logout: expected ErrNotLoggedIn, got %v", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	srv := fakeStore(t, "tok")
	sessions := testSessions(t)
	svc := NewService(recordstore.New(srv.URL, "", 0), nil, sessions)

	_, err := svc.Login(context.Background(), "ana@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if s, _ := sessions.Load(); s != nil {
		t.Error("no session should be saved on failure")
	}
}

func TestLoginRateLimited(t *testing.T) {
	srv := fakeStore(t, "tok")
	svc := NewService(recordstore.New(srv.URL, "", 0), nil, testSessions(t))
	ctx := context.Background()

	for i := 0; i < rateLimitMaxFail; i++ {
		if _, err := svc.Login(ctx, "ana@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if _, err := svc.Login(ctx, "ana@example.com", testPassword); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
	if _, err := svc.Login(ctx, "other@example.com", testPassword); err != nil {
		t.Errorf("other identities should not be limited: %v", err)
	}
}

func TestLoginUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	svc := NewService(recordstore.New(url, "", time.Second), nil, testSessions(t))
	_, err := svc.Login(context.Background(), "ana@example.com", testPassword)
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

func TestLoginRequiresInput(t *testing.T) {
	svc := NewService(recordstore.New("http://127.0.0.1:1", "", 0), nil, testSessions(t))
	if _, err := svc.Login(context.Background(), "", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCurrentExpired(t *testing.T) {
	sessions := testSessions(t)
	svc := NewService(recordstore.New("http://127.0.0.1:1", "", 0), nil, sessions)

	if err := sessions.Save(&user.User{ID: "u1"}, tokenExpiringAt(t, time.Now().Add(-time.Minute))); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Current(); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
}

func TestRegisterLogsIn(t *testing.T) {
	srv := fakeStore(t, tokenExpiringAt(t, time.Now().Add(time.Hour)))
	users := user.NewService(recordstoretest.New())
	svc := NewService(recordstore.New(srv.URL, "", 0), users, testSessions(t))

	sess, err := svc.Register(context.Background(), user.Registration{
		Email: "ana@example.com", Password: testPassword, PasswordConfirm: testPassword, Name: "Ana",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if sess.User.ID != "u1" {
		t.Errorf("unexpected session user: %+v", sess.User)
	}

	_, err = svc.Register(context.Background(), user.Registration{
		Email: "ana@example.com", Password: testPassword, PasswordConfirm: testPassword, Name: "Ana",
	})
	if !errors.Is(err, user.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}
