// Package fixtures holds the canned JWT Pizza backend: one mock route
// constructor per business scenario and the data those scenarios return.
package fixtures

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/pf274/jwt-pizza/internal/pizza"
	"github.com/pf274/jwt-pizza/pkg/mockroute"
)

// URL patterns. The leading "*/" lets the first segment absorb scheme and host.
const (
	PatternAuth       = "*/**/api/auth"
	PatternMenu       = "*/**/api/order/menu"
	PatternOrder      = "*/**/api/order"
	PatternVerify     = "*/**/api/order/verify"
	PatternFranchise  = "*/**/api/franchise"
	PatternStore      = "*/**/api/franchise/*/store"
	PatternCloseStore = "*/**/api/franchise/*/store/*"
)

// PatternFranchiseID matches exactly one franchise (or user) id.
func PatternFranchiseID(id int) string {
	return PatternFranchise + "/" + strconv.Itoa(id)
}

// InvalidLogin rejects a login with 404 {"message":"unknown user"}, sent as
// pre-encoded text the way a backend error arrives.
func InvalidLogin(email, password string) mockroute.Rule {
	return mockroute.On(http.MethodPut, PatternAuth).
		Named("invalid login").
		ExpectBody(pizza.LoginRequest{Email: email, Password: password}).
		RespondRaw(http.StatusNotFound, `{"message":"unknown user"}`)
}

// Login accepts email/password and returns user with token.
func Login(email, password string, user pizza.User, token string) mockroute.Rule {
	return mockroute.On(http.MethodPut, PatternAuth).
		Named("login " + email).
		ExpectBody(pizza.LoginRequest{Email: email, Password: password}).
		RespondJSON(http.StatusOK, pizza.AuthResponse{User: user, Token: token})
}

// Register accepts a new diner and returns user with token.
func Register(req pizza.RegisterRequest, user pizza.User, token string) mockroute.Rule {
	return mockroute.On(http.MethodPost, PatternAuth).
		Named("register " + req.Email).
		ExpectBody(req).
		RespondJSON(http.StatusOK, pizza.AuthResponse{User: user, Token: token})
}

// Logout requires the bearer token and confirms the logout.
func Logout(token string) mockroute.Rule {
	return mockroute.On(http.MethodDelete, PatternAuth).
		Named("logout").
		ExpectBearer(token).
		RespondJSON(http.StatusOK, pizza.Message{Message: "logout successful"})
}

// Menu serves the pizza menu.
func Menu(items []pizza.MenuItem) mockroute.Rule {
	return mockroute.On(http.MethodGet, PatternMenu).
		Named("menu").
		RespondJSON(http.StatusOK, items)
}

// FranchiseList serves GET /api/franchise.
func FranchiseList(franchises []pizza.Franchise) mockroute.Rule {
	return mockroute.On(http.MethodGet, PatternFranchise).
		Named("franchise list").
		RespondJSON(http.StatusOK, franchises)
}

// UserFranchises serves the franchises administered by userID.
func UserFranchises(userID int, franchises []pizza.Franchise) mockroute.Rule {
	return mockroute.On(http.MethodGet, PatternFranchiseID(userID)).
		Named(fmt.Sprintf("franchises of user %d", userID)).
		RespondJSON(http.StatusOK, franchises)
}

// CreateFranchise accepts req and returns created.
func CreateFranchise(req pizza.CreateFranchiseRequest, created pizza.Franchise) mockroute.Rule {
	return mockroute.On(http.MethodPost, PatternFranchise).
		Named("create franchise " + req.Name).
		ExpectBody(req).
		RespondJSON(http.StatusOK, created)
}

// CloseFranchise confirms deletion of franchise id.
func CloseFranchise(id int) mockroute.Rule {
	return mockroute.On(http.MethodDelete, PatternFranchiseID(id)).
		Named(fmt.Sprintf("close franchise %d", id)).
		RespondJSON(http.StatusOK, pizza.Message{Message: "franchise deleted"})
}

// CreateStore accepts a store named name in any franchise and returns created.
func CreateStore(name string, created pizza.Store) mockroute.Rule {
	return mockroute.On(http.MethodPost, PatternStore).
		Named("create store " + name).
		ExpectBody(pizza.CreateStoreRequest{Name: name}).
		RespondJSON(http.StatusOK, created)
}

// CloseStore confirms deletion of any store.
func CloseStore() mockroute.Rule {
	return mockroute.On(http.MethodDelete, PatternCloseStore).
		Named("close store").
		RespondJSON(http.StatusOK, pizza.Message{Message: "store deleted"})
}

// Orders serves the caller's order history.
func Orders(orders []pizza.Order) mockroute.Rule {
	if orders == nil {
		orders = []pizza.Order{}
	}
	return mockroute.On(http.MethodGet, PatternOrder).
		Named("order history").
		RespondJSON(http.StatusOK, orders)
}

// PlaceOrder accepts order and echoes it back with id and the signed jwt.
func PlaceOrder(order pizza.Order, id int, jwt string) mockroute.Rule {
	placed := order
	placed.ID = id
	return mockroute.On(http.MethodPost, PatternOrder).
		Named("place order").
		ExpectBody(order).
		RespondJSON(http.StatusOK, pizza.OrderResponse{Order: placed, JWT: jwt})
}

// VerifyOrder accepts jwt and reports it valid, made by vendor.
func VerifyOrder(jwt string, vendor pizza.Vendor) mockroute.Rule {
	return mockroute.On(http.MethodPost, PatternVerify).
		Named("verify order").
		ExpectBody(pizza.VerifyRequest{JWT: jwt}).
		RespondJSON(http.StatusOK, pizza.VerifyResponse{
			Message: "valid",
			Payload: pizza.VerifyPayload{Vendor: vendor},
		})
}
