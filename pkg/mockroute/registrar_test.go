package mockroute

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "http://localhost:5173"

func jsonRequest(method, url, body string) *Request {
	r := &Request{Method: method, URL: url, Headers: make(http.Header)}
	if body != "" {
		r.Body = []byte(body)
		r.Headers.Set("Content-Type", "application/json")
	}
	return r
}

func TestRegisterValidates(t *testing.T) {
	reg := NewRegistrar()
	assert.Error(t, reg.Register(Rule{Method: "GET"}))
	assert.Error(t, reg.Register(On("FETCH", "*/**/api/auth")))
	assert.Error(t, reg.Register(On("GET", "*/**/api/auth").RespondJSON(42, nil)))
	assert.Error(t, reg.Register(Rule{Pattern: "*/**/x", Method: "GET", HeaderValue: "v"}))
	assert.Empty(t, reg.Rules())
}

func TestDispatchFulfills(t *testing.T) {
	reg := NewRegistrar()
	require.NoError(t, reg.Register(
		On(http.MethodPut, "*/**/api/auth").
			ExpectBody(map[string]any{"email": "d@jwt.com", "password": "a"}).
			RespondJSON(http.StatusOK, map[string]any{"token": "abcdef"}),
	))

	resp, err := reg.Dispatch(jsonRequest("PUT", base+"/api/auth", `{"email":"d@jwt.com","password":"a"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "application/json", resp.ContentType)
	assert.JSONEq(t, `{"token":"abcdef"}`, string(resp.Body))
	assert.Equal(t, 1, reg.Hits("*/**/api/auth"))
}

func TestDispatchMethodMismatch(t *testing.T) {
	reg := NewRegistrar()
	reg.MustRegister(On("GET", "*/**/api/order/menu").RespondJSON(200, []any{}))

	_, err := reg.Dispatch(jsonRequest("POST", base+"/api/order/menu", `{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContractMismatch)

	var mm *MismatchError
	require.True(t, errors.As(err, &mm))
	require.Len(t, mm.Differences, 1)
	assert.Equal(t, "method", mm.Differences[0].Path)
	assert.Equal(t, 0, reg.Hits("*/**/api/order/menu"))
}

func TestDispatchBodyMismatchHasDiff(t *testing.T) {
	reg := NewRegistrar()
	reg.MustRegister(On("PUT", "*/**/api/auth").
		Named("login").
		ExpectBody(map[string]any{"email": "a@jwt.com", "password": "a"}).
		RespondJSON(200, map[string]any{}))

	_, err := reg.Dispatch(jsonRequest("PUT", base+"/api/auth", `{"email":"b@jwt.com","password":"a"}`))
	var mm *MismatchError
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, "body.email", mm.Differences[0].Path)
	assert.Contains(t, mm.Diff, "--- expected")
	assert.Contains(t, mm.Diff, "+++ actual")
	assert.Contains(t, mm.Diff, `-    "email": "a@jwt.com"`)
	assert.Contains(t, mm.Diff, `+    "email": "b@jwt.com"`)
	assert.Contains(t, err.Error(), `rule "login"`)
}

func TestDispatchNonJSONBody(t *testing.T) {
	reg := NewRegistrar()
	reg.MustRegister(On("POST", "*/**/api/order/verify").ExpectBody(map[string]any{"jwt": "x"}))

	_, err := reg.Dispatch(jsonRequest("POST", base+"/api/order/verify", "jwt=x"))
	var mm *MismatchError
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, "body", mm.Differences[0].Path)
	assert.Equal(t, "body is not JSON", mm.Differences[0].Reason)
}

func TestDispatchHeader(t *testing.T) {
	reg := NewRegistrar()
	reg.MustRegister(On("DELETE", "*/**/api/auth").
		ExpectBearer("abcdef").
		RespondJSON(200, map[string]any{"message": "logout successful"}))

	req := jsonRequest("DELETE", base+"/api/auth", "")
	_, err := reg.Dispatch(req)
	var mm *MismatchError
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, "missing header", mm.Differences[0].Reason)

	req.Headers.Set("Authorization", "Bearer zzz")
	_, err = reg.Dispatch(req)
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, "header differs", mm.Differences[0].Reason)

	// lower-case keys as reported by browsers
	req.Headers = http.Header{"authorization": {"Bearer abcdef"}}
	resp, err := reg.Dispatch(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"logout successful"}`, string(resp.Body))
}

func TestDispatchNoRoute(t *testing.T) {
	reg := NewRegistrar()
	reg.MustRegister(On("GET", "*/**/api/franchise").RespondJSON(200, []any{}))

	_, err := reg.Dispatch(jsonRequest("GET", base+"/api/franchise/3", ""))
	assert.ErrorIs(t, err, ErrNoRoute)

	calls := reg.Calls()
	require.Len(t, calls, 1)
	assert.NotEmpty(t, calls[0].ID)
	assert.Equal(t, ErrNoRoute.Error(), calls[0].Error)
}

func TestReRegisterReplaces(t *testing.T) {
	reg := NewRegistrar()
	reg.MustRegister(On("GET", "*/**/api/franchise").RespondJSON(200, []any{map[string]any{"name": "before"}}))

	resp, err := reg.Dispatch(jsonRequest("GET", base+"/api/franchise", ""))
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), "before")

	reg.MustRegister(On("GET", "*/**/api/franchise").RespondJSON(200, []any{map[string]any{"name": "after"}}))
	assert.Len(t, reg.Rules(), 1)

	resp, err = reg.Dispatch(jsonRequest("GET", base+"/api/franchise", ""))
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), "after")
	assert.NotContains(t, string(resp.Body), "before")
}

func TestReRegisterChangesMethod(t *testing.T) {
	reg := NewRegistrar()
	reg.MustRegister(On("GET", "*/**/api/franchise").RespondJSON(200, []any{}))
	reg.MustRegister(On("POST", "*/**/api/franchise").RespondJSON(200, map[string]any{"id": 2}))

	_, err := reg.Dispatch(jsonRequest("GET", base+"/api/franchise", ""))
	assert.ErrorIs(t, err, ErrContractMismatch)
}

func TestNewestPatternWins(t *testing.T) {
	reg := NewRegistrar()
	reg.MustRegister(
		On("GET", "*/**/api/franchise/*").RespondJSON(200, "wildcard"),
		On("GET", "*/**/api/franchise/3").RespondJSON(200, "exact"),
	)

	resp, err := reg.Dispatch(jsonRequest("GET", base+"/api/franchise/3", ""))
	require.NoError(t, err)
	assert.Equal(t, `"exact"`, string(resp.Body))

	// re-registering moves the wildcard to the front
	reg.MustRegister(On("GET", "*/**/api/franchise/*").RespondJSON(200, "wildcard again"))
	resp, err = reg.Dispatch(jsonRequest("GET", base+"/api/franchise/3", ""))
	require.NoError(t, err)
	assert.Equal(t, `"wildcard again"`, string(resp.Body))
}

func TestDispatchPattern(t *testing.T) {
	reg := NewRegistrar()
	reg.MustRegister(On("POST", "*/**/api/franchise/*/store").RespondJSON(200, map[string]any{"id": 4}))

	_, err := reg.DispatchPattern("*/**/api/franchise/*/store", jsonRequest("POST", base+"/api/franchise/9/store", `{}`))
	assert.NoError(t, err)

	_, err = reg.DispatchPattern("*/**/api/franchise", jsonRequest("POST", base+"/api/franchise", `{}`))
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestRawBodyResponse(t *testing.T) {
	reg := NewRegistrar()
	reg.MustRegister(On("PUT", "*/**/api/auth").RespondRaw(http.StatusNotFound, `{"message":"unknown user"}`))

	resp, err := reg.Dispatch(jsonRequest("PUT", base+"/api/auth", `{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, `{"message":"unknown user"}`, string(resp.Body))
}

func TestWatchNotifiesNewPatternsOnly(t *testing.T) {
	reg := NewRegistrar()
	reg.MustRegister(On("GET", "*/**/api/order/menu"))

	var seen []string
	require.NoError(t, reg.Watch(func(p string) error {
		seen = append(seen, p)
		return nil
	}))
	reg.MustRegister(On("GET", "*/**/api/franchise"))
	reg.MustRegister(On("POST", "*/**/api/franchise"))

	assert.Equal(t, []string{"*/**/api/order/menu", "*/**/api/franchise"}, seen)
}

func TestWatchErrorPropagates(t *testing.T) {
	reg := NewRegistrar()
	require.NoError(t, reg.Watch(func(p string) error {
		if strings.Contains(p, "bad") {
			return errors.New("host refused")
		}
		return nil
	}))
	err := reg.Register(On("GET", "*/**/bad"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host refused")
	_, ok := reg.Lookup("*/**/bad")
	assert.False(t, ok, "a rule the host refused must not be served")
	_, err = reg.Dispatch(jsonRequest("GET", base+"/bad", ""))
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestRefusedPatternIsOfferedAgain(t *testing.T) {
	reg := NewRegistrar()
	refuse := false
	require.NoError(t, reg.Watch(func(p string) error {
		if refuse {
			return errors.New("host refused")
		}
		return nil
	}))
	reg.MustRegister(On("GET", "*/**/api/order/menu").RespondJSON(200, []any{}))
	reg.MustRegister(On("GET", "*/**/api/franchise"))
	reg.Reset()

	// the first pattern is still bound, so replacing it never asks the host
	refuse = true
	require.NoError(t, reg.Register(On("GET", "*/**/api/order/menu").RespondJSON(200, []any{})))
	require.Error(t, reg.Register(On("PUT", "*/**/api/auth")))
	assert.Len(t, reg.Rules(), 1)

	// a refused pattern is offered to the host again next time
	refuse = false
	require.NoError(t, reg.Register(On("PUT", "*/**/api/auth")))
	assert.Len(t, reg.Rules(), 2)
}

func TestResetDoesNotRebindPatterns(t *testing.T) {
	reg := NewRegistrar()
	binds := map[string]int{}
	require.NoError(t, reg.Watch(func(p string) error {
		binds[p]++
		return nil
	}))

	for i := 0; i < 3; i++ {
		reg.MustRegister(On("GET", "*/**/api/order/menu"), On("PUT", "*/**/api/auth"))
		reg.Reset()
	}
	require.NoError(t, reg.LoadState([]byte(`{"rules":[{"method":"GET","pattern":"*/**/api/order/menu"}]}`)))

	assert.Equal(t, map[string]int{"*/**/api/order/menu": 1, "*/**/api/auth": 1}, binds)
}

func TestReset(t *testing.T) {
	reg := NewRegistrar()
	reg.MustRegister(On("GET", "*/**/api/order"))
	_, _ = reg.Dispatch(jsonRequest("GET", base+"/api/order", ""))
	reg.Reset()

	assert.Empty(t, reg.Rules())
	assert.Empty(t, reg.Calls())
	_, err := reg.Dispatch(jsonRequest("GET", base+"/api/order", ""))
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestConcurrentDispatch(t *testing.T) {
	reg := NewRegistrar()
	reg.MustRegister(On("GET", "*/**/api/order/menu").RespondJSON(200, []any{}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Dispatch(jsonRequest("GET", base+"/api/order/menu", ""))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, reg.Hits("*/**/api/order/menu"))
	assert.Len(t, reg.Calls(), 50)
}
