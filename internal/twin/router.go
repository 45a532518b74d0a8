package twin

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pf274/jwt-pizza/internal/pizza"
	"github.com/pf274/jwt-pizza/pkg/twincore"
)

// Handler serves the JWT Pizza API.
type Handler struct {
	store  *MemoryStore
	mw     *twincore.Middleware
	tokens *TokenManager
}

// NewHandler creates the API handler.
func NewHandler(s *MemoryStore, mw *twincore.Middleware, tokens *TokenManager) *Handler {
	return &Handler{store: s, mw: mw, tokens: tokens}
}

// Routes mounts the JWT Pizza API.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Root)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.mw.FaultInjection)
		r.Use(h.identify)

		r.Get("/docs", h.Docs)

		r.Put("/auth", h.Login)
		r.Post("/auth", h.Register)
		r.With(h.requireAuth).Delete("/auth", h.Logout)

		r.Get("/order/menu", h.GetMenu)
		r.With(h.requireAuth).Put("/order/menu", h.AddMenuItem)
		r.With(h.requireAuth).Get("/order", h.ListOrders)
		r.With(h.requireAuth).Post("/order", h.PlaceOrder)
		r.Post("/order/verify", h.VerifyOrder)

		r.Get("/franchise", h.ListFranchises)
		r.With(h.requireAuth).Post("/franchise", h.CreateFranchise)
		r.With(h.requireAuth).Get("/franchise/{id}", h.UserFranchises)
		r.With(h.requireAuth).Delete("/franchise/{id}", h.DeleteFranchise)
		r.With(h.requireAuth).Post("/franchise/{id}/store", h.CreateStore)
		r.With(h.requireAuth).Delete("/franchise/{id}/store/{storeID}", h.DeleteStore)
	})
}

type ctxKey struct{}

type session struct {
	token string
	user  pizza.User
}

// identify attaches the caller's session when the bearer token is a signed
// login token that has not been logged out.
func (h *Handler) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			next.ServeHTTP(w, r)
			return
		}
		if _, err := h.tokens.ParseUser(token); err != nil {
			next.ServeHTTP(w, r)
			return
		}
		// roles may have changed since login, so read the current record
		user, ok := h.store.SessionUser(token)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, session{token: token, user: user})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := currentSession(r); !ok {
			twincore.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentSession(r *http.Request) (session, bool) {
	s, ok := r.Context().Value(ctxKey{}).(session)
	return s, ok
}

func currentUser(r *http.Request) pizza.User {
	s, _ := currentSession(r)
	return s.user
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		twincore.Error(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		twincore.Error(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// Root handles GET /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, map[string]string{
		"message": "welcome to JWT Pizza",
		"version": Version,
	})
}

// Version is reported by GET / and GET /api/docs.
const Version = "20240518.154317"

type endpointDoc struct {
	Method          string `json:"method"`
	Path            string `json:"path"`
	RequiresAuth    bool   `json:"requiresAuth"`
	Description     string `json:"description"`
	ExampleRequest  string `json:"example,omitempty"`
	ExampleResponse any    `json:"response,omitempty"`
}

var endpointDocs = []endpointDoc{
	{Method: "POST", Path: pizza.PathAuth, Description: "Register a new user",
		ExampleRequest: `{"name":"pizza diner", "email":"d@jwt.com", "password":"a"}`},
	{Method: "PUT", Path: pizza.PathAuth, Description: "Login existing user",
		ExampleRequest: `{"email":"a@jwt.com", "password":"a"}`},
	{Method: "DELETE", Path: pizza.PathAuth, RequiresAuth: true, Description: "Logout a user",
		ExampleResponse: pizza.Message{Message: "logout successful"}},
	{Method: "GET", Path: pizza.PathMenu, Description: "Get the pizza menu"},
	{Method: "PUT", Path: pizza.PathMenu, RequiresAuth: true, Description: "Add an item to the menu"},
	{Method: "GET", Path: pizza.PathOrder, RequiresAuth: true, Description: "Get the orders for the authenticated user"},
	{Method: "POST", Path: pizza.PathOrder, RequiresAuth: true, Description: "Create a order for the authenticated user",
		ExampleRequest: `{"franchiseId": 1, "storeId":1, "items":[{ "menuId": 1, "description": "Veggie", "price": 0.05 }]}`},
	{Method: "POST", Path: pizza.PathVerify, Description: "Verify a pizza receipt"},
	{Method: "GET", Path: pizza.PathFranchise, Description: "List all the franchises"},
	{Method: "GET", Path: pizza.PathFranchise + "/:userId", RequiresAuth: true, Description: "List a user's franchises"},
	{Method: "POST", Path: pizza.PathFranchise, RequiresAuth: true, Description: "Create a new franchise"},
	{Method: "DELETE", Path: pizza.PathFranchise + "/:franchiseId", RequiresAuth: true, Description: "Delete a franchise",
		ExampleResponse: pizza.Message{Message: "franchise deleted"}},
	{Method: "POST", Path: pizza.PathFranchise + "/:franchiseId/store", RequiresAuth: true, Description: "Create a franchise store"},
	{Method: "DELETE", Path: pizza.PathFranchise + "/:franchiseId/store/:storeId", RequiresAuth: true, Description: "Delete a store",
		ExampleResponse: pizza.Message{Message: "store deleted"}},
}

// Docs handles GET /api/docs.
func (h *Handler) Docs(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, map[string]any{
		"version":   Version,
		"endpoints": endpointDocs,
	})
}
