package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pf274/jwt-pizza/pkg/store"
	"github.com/pf274/jwt-pizza/pkg/testutil"
	"github.com/pf274/jwt-pizza/pkg/twincore"
)

// ---------------------------------------------------------------------------
// Fake state
// ---------------------------------------------------------------------------

type fakeState struct {
	menu   []string
	resets int
}

func newFakeState() *fakeState {
	return &fakeState{menu: []string{"Veggie", "Pepperoni"}}
}

func (f *fakeState) Snapshot() any { return map[string]any{"menu": f.menu} }

func (f *fakeState) LoadState(data []byte) error {
	var in struct {
		Menu []string `json:"menu"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	f.menu = in.Menu
	return nil
}

func (f *fakeState) Reset() {
	f.resets++
	f.menu = []string{"Veggie", "Pepperoni"}
}

type fakeHistory struct {
	*fakeState
}

func (f fakeHistory) History() any { return []string{"GET /api/order/menu"} }

func setup(t *testing.T, state StateStore, clock *store.Clock) (*twincore.Server, *testutil.AdminClient) {
	t.Helper()
	srv := twincore.New(&twincore.Config{Name: "admin-test"})
	NewHandler(state, srv, clock).Routes(srv.Router)
	srv.Router.With(srv.Middleware().FaultInjection).Get("/api/order", func(w http.ResponseWriter, r *http.Request) {
		twincore.JSON(w, http.StatusOK, []any{})
	})

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, testutil.NewAdminClient(testutil.NewClient(t, ts))
}

// ---------------------------------------------------------------------------
// State
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	_, ac := setup(t, newFakeState(), nil)

	body := ac.Health().AssertStatus(http.StatusOK).JSONMap()
	if body["status"] != "ok" || body["name"] != "admin-test" {
		t.Errorf("unexpected health body: %+v", body)
	}
}

func TestStateRoundTrip(t *testing.T) {
	state := newFakeState()
	_, ac := setup(t, state, nil)

	ac.LoadState(map[string]any{"menu": []string{"Margarita"}}).AssertStatus(http.StatusOK)
	ac.GetState().AssertStatus(http.StatusOK).AssertBodyContains("Margarita")

	ac.Post("/admin/state", "not an object").AssertStatus(http.StatusBadRequest)
}

func TestResetClearsEverything(t *testing.T) {
	state := newFakeState()
	clock := store.NewClock()
	clock.Advance(1000)
	srv, ac := setup(t, state, clock)

	ac.Get("/api/order").AssertStatus(http.StatusOK)
	ac.InjectFault("/api/order", map[string]any{"status_code": 500}).AssertStatus(http.StatusOK)

	ac.Reset().AssertStatus(http.StatusOK).AssertBodyContains(`"reset"`)

	if state.resets != 1 {
		t.Errorf("expected state reset once, got %d", state.resets)
	}
	if clock.Offset() != 0 {
		t.Errorf("expected clock reset, got %s", clock.Offset())
	}
	if n := len(srv.Middleware().Faults.All()); n != 0 {
		t.Errorf("expected faults cleared, got %d", n)
	}
	// the reset request itself is logged after clearing
	if n := len(srv.Middleware().Traffic.Entries()); n != 1 {
		t.Errorf("expected only the reset request in the log, got %d", n)
	}
}

func TestHistory(t *testing.T) {
	_, plain := setup(t, newFakeState(), nil)
	plain.History().AssertStatus(http.StatusOK).AssertBodyContains("[]")

	_, withHist := setup(t, fakeHistory{newFakeState()}, nil)
	withHist.History().AssertStatus(http.StatusOK).AssertBodyContains("GET /api/order/menu")
}

// ---------------------------------------------------------------------------
// Faults
// ---------------------------------------------------------------------------

func TestFaultLifecycle(t *testing.T) {
	_, ac := setup(t, newFakeState(), nil)

	ac.InjectFault("/api/order", map[string]any{"status_code": 503}).
		AssertStatus(http.StatusOK).
		AssertBodyContains(`"endpoint":"/api/order"`)
	ac.Get("/api/order").AssertStatus(http.StatusServiceUnavailable)
	ac.Get("/admin/faults").AssertStatus(http.StatusOK).AssertBodyContains("/api/order")

	ac.RemoveFault("/api/order").AssertStatus(http.StatusOK)
	ac.RemoveFault("/api/order").AssertStatus(http.StatusNotFound)
	ac.Get("/api/order").AssertStatus(http.StatusOK)

	ac.InjectFault("/api/order", map[string]any{"status_code": 500, "rate": 2}).AssertStatus(http.StatusBadRequest)
	ac.InjectFault("/api/order", map[string]any{"status_code": 42}).AssertStatus(http.StatusBadRequest)
	ac.InjectFault("/api/order", map[string]any{"status_code": 500, "method": "GET /x"}).AssertStatus(http.StatusBadRequest)
}

func TestFaultDelayIsMilliseconds(t *testing.T) {
	_, ac := setup(t, newFakeState(), nil)

	ac.InjectFault("/api/order", map[string]any{"delay_ms": 40}).
		AssertStatus(http.StatusOK).
		AssertBodyContains(`"delay_ms":40`)

	start := time.Now()
	ac.Get("/api/order").AssertStatus(http.StatusOK)
	if took := time.Since(start); took < 40*time.Millisecond {
		t.Errorf("expected a 40ms delay, request took %s", took)
	}
	ac.Get("/admin/faults").AssertStatus(http.StatusOK).AssertBodyContains(`"delay_ms":40`)

	ac.InjectFault("/api/order", map[string]any{"status_code": 503, "delay_ms": -5}).AssertStatus(http.StatusBadRequest)
}

func TestFaultScopedToMethod(t *testing.T) {
	srv, ac := setup(t, newFakeState(), nil)
	srv.Router.With(srv.Middleware().FaultInjection).Post("/api/order", func(w http.ResponseWriter, r *http.Request) {
		twincore.JSON(w, http.StatusOK, map[string]any{"id": 23})
	})

	ac.InjectFault("api/order/", map[string]any{"status_code": 500, "method": "post"}).
		AssertStatus(http.StatusOK).
		AssertBodyContains(`"endpoint":"/api/order"`)
	ac.Post("/api/order", map[string]any{"franchiseId": 1}).AssertStatus(http.StatusInternalServerError)
	ac.Get("/api/order").AssertStatus(http.StatusOK)
}

func TestRequestsLogged(t *testing.T) {
	_, ac := setup(t, newFakeState(), nil)
	ac.Get("/api/order")

	var entries []twincore.Exchange
	ac.GetRequests().AssertStatus(http.StatusOK).JSON(&entries)
	if len(entries) == 0 || entries[0].Path != "/api/order" {
		t.Errorf("expected /api/order in request log, got %+v", entries)
	}
}

// ---------------------------------------------------------------------------
// Config and time
// ---------------------------------------------------------------------------

func TestConfigEndpoints(t *testing.T) {
	_, ac := setup(t, newFakeState(), nil)

	ac.UpdateConfig(map[string]any{"latency": "5ms"}).AssertStatus(http.StatusOK).AssertBodyContains(`"latency":"5ms"`)
	ac.UpdateConfig(map[string]any{"port": 1}).AssertStatus(http.StatusBadRequest)
	ac.Get("/admin/config").AssertStatus(http.StatusOK).AssertBodyContains(`"name":"admin-test"`)
}

func TestTimeAdvance(t *testing.T) {
	clock := store.NewClock()
	_, ac := setup(t, newFakeState(), clock)

	ac.AdvanceTime("24h").AssertStatus(http.StatusOK).AssertBodyContains(`"offset":"24h0m0s"`)
	ac.AdvanceTime("tomorrow").AssertStatus(http.StatusBadRequest)
	ac.AdvanceTime("-1h").AssertStatus(http.StatusBadRequest)
	ac.Get("/admin/time").AssertStatus(http.StatusOK).AssertBodyContains("simulated")

	_, noClock := setup(t, newFakeState(), nil)
	noClock.AdvanceTime("1h").AssertStatus(http.StatusBadRequest)
}
