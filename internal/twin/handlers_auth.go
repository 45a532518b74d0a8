package twin

import (
	"errors"
	"net/http"

	"github.com/pf274/jwt-pizza/internal/pizza"
	"github.com/pf274/jwt-pizza/pkg/twincore"
)

// Login handles PUT /api/auth.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req pizza.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	user, ok := h.store.Authenticate(req.Email, req.Password)
	if !ok {
		twincore.Error(w, http.StatusNotFound, "unknown user")
		return
	}
	h.startSession(w, user)
}

// Register handles POST /api/auth.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req pizza.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		twincore.Error(w, http.StatusBadRequest, "name, email, and password are required")
		return
	}
	user, err := h.store.AddUser(req.Name, req.Email, req.Password)
	if errors.Is(err, ErrEmailTaken) {
		twincore.Error(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		twincore.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.startSession(w, user)
}

func (h *Handler) startSession(w http.ResponseWriter, user pizza.User) {
	token, err := h.tokens.SignUser(user)
	if err != nil {
		twincore.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.store.StartSession(token, user.ID)
	twincore.JSON(w, http.StatusOK, pizza.AuthResponse{User: user, Token: token})
}

// Logout handles DELETE /api/auth.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	s, _ := currentSession(r)
	h.store.EndSession(s.token)
	twincore.JSON(w, http.StatusOK, pizza.Message{Message: "logout successful"})
}
