package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

// failures is a testing.TB that collects Errorf calls instead of failing.
type failures struct {
	testing.TB
	msgs []string
}

func (f *failures) Helper() {}

func (f *failures) Errorf(format string, args ...any) {
	f.msgs = append(f.msgs, fmt.Sprintf(format, args...))
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// pizzaServer fakes a few JWT Pizza endpoints and echoes the auth header.
func pizzaServer(t *testing.T) *httptest.Server {
	mux := chi.NewRouter()
	mux.MethodFunc("GET", "/api/order/menu", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, []map[string]any{
			{"id": 1, "title": "Veggie", "price": 0.0038},
			{"id": 2, "title": "Pepperoni", "price": 0.0042},
		})
	})
	mux.MethodFunc("PUT", "/api/auth", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		json.NewDecoder(r.Body).Decode(&creds)
		if creds["email"] != "d@jwt.com" || creds["password"] != "a" {
			reply(w, http.StatusNotFound, map[string]string{"message": "unknown user"})
			return
		}
		reply(w, http.StatusOK, map[string]any{"user": map[string]any{"id": 3, "email": "d@jwt.com"}, "token": "abcdef"})
	})
	mux.MethodFunc("DELETE", "/api/auth", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]string{"message": "logout successful", "auth": r.Header.Get("Authorization")})
	})
	mux.MethodFunc("PATCH", "/admin/config", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]string{"latency": "1ms"})
	})
	mux.MethodFunc("POST", "/admin/fault/api/order", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]string{"endpoint": "/api/order"})
	})
	mux.MethodFunc("DELETE", "/admin/fault/api/order", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]string{"status": "removed"})
	})
	mux.MethodFunc("GET", "/admin/history", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, []any{})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetMenu(t *testing.T) {
	c := NewClient(t, pizzaServer(t))

	var menu []map[string]any
	c.Get("/api/order/menu").
		AssertStatus(http.StatusOK).
		AssertHeader("Content-Type", "application/json").
		JSON(&menu)
	if len(menu) != 2 {
		t.Fatalf("expected 2 menu items, got %d", len(menu))
	}
}

func TestDialTrimsSlash(t *testing.T) {
	c := Dial(t, pizzaServer(t).URL+"/")

	c.Put("/api/auth", map[string]string{"email": "d@jwt.com", "password": "a"}).
		AssertStatus(http.StatusOK).
		AssertMatches(map[string]any{"user": map[string]any{"id": 3}, "token": "abcdef"})
	c.Put("/api/auth", map[string]string{"email": "u@jwt.com", "password": "a"}).
		AssertStatus(http.StatusNotFound).
		AssertBodyContains("unknown user")
}

func TestLoginCarriesToken(t *testing.T) {
	anon := NewClient(t, pizzaServer(t))
	diner := anon.Login("d@jwt.com", "a")

	if got := diner.Delete("/api/auth").JSONMap()["auth"]; got != "Bearer abcdef" {
		t.Errorf("expected bearer header, got %v", got)
	}
	if got := anon.Delete("/api/auth").JSONMap()["auth"]; got != "" {
		t.Errorf("anonymous client sent %v", got)
	}
}

func TestHeadersOverrideToken(t *testing.T) {
	c := NewClient(t, pizzaServer(t)).WithToken("abcdef")

	body := c.DoWithHeaders(http.MethodDelete, "/api/auth", nil, map[string]string{"Authorization": "Bearer zzz"}).JSONMap()
	if body["auth"] != "Bearer zzz" {
		t.Errorf("expected custom header, got %v", body["auth"])
	}
}

func TestAssertionsReportFailures(t *testing.T) {
	rec := &failures{TB: t}
	resp := &Response{
		StatusCode: http.StatusNotFound,
		Body:       []byte(`{"message":"unknown user"}`),
		Headers:    http.Header{"Content-Type": {"application/json"}},
		t:          rec,
	}

	resp.AssertStatus(200).
		AssertBodyContains("token").
		AssertHeader("Content-Type", "text/html").
		AssertMatches(map[string]any{"message": "ok"})
	if len(rec.msgs) != 4 {
		t.Fatalf("expected 4 recorded failures, got %d: %v", len(rec.msgs), rec.msgs)
	}

	rec.msgs = nil
	resp.AssertStatus(404).AssertBodyContains("unknown").AssertMatches(map[string]any{"message": "unknown user"})
	if len(rec.msgs) != 0 {
		t.Errorf("expected no failures, got %v", rec.msgs)
	}
}

func TestAdminClientPaths(t *testing.T) {
	ac := NewAdminClient(NewClient(t, pizzaServer(t)))

	ac.InjectFault("/api/order", map[string]any{"status_code": 500}).AssertStatus(http.StatusOK)
	ac.InjectFault("api/order", map[string]any{"status_code": 500}).AssertStatus(http.StatusOK)
	ac.RemoveFault("/api/order").AssertStatus(http.StatusOK).AssertBodyContains("removed")
	ac.UpdateConfig(map[string]any{"latency": "1ms"}).AssertStatus(http.StatusOK)
	ac.History().AssertStatus(http.StatusOK)
	ac.Health().AssertStatus(http.StatusNotFound)
}
