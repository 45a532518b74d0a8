// Package pizza models the JWT Pizza HTTP API: request and response shapes
// for auth, menu, franchises, stores and orders, plus a typed client.
package pizza

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// API paths.
const (
	PathAuth      = "/api/auth"
	PathMenu      = "/api/order/menu"
	PathOrder     = "/api/order"
	PathVerify    = "/api/order/verify"
	PathFranchise = "/api/franchise"
	PathDocs      = "/api/docs"
)

// Role is a user role.
type Role string

const (
	RoleDiner      Role = "diner"
	RoleFranchisee Role = "franchisee"
	RoleAdmin      Role = "admin"
)

// UserRole grants Role, scoped to ObjectID for franchisees.
type UserRole struct {
	Role     Role   `json:"role"`
	ObjectID string `json:"objectId,omitempty"`
}

// User as returned by the auth endpoints.
type User struct {
	ID    int        `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Roles []UserRole `json:"roles"`
}

// Is reports whether u holds role.
func (u User) Is(role Role) bool {
	for _, r := range u.Roles {
		if r.Role == role {
			return true
		}
	}
	return false
}

// LoginRequest is the body of PUT /api/auth.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /api/auth.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Message is the generic {"message": ...} body used for confirmations and errors.
type Message struct {
	Message string `json:"message"`
}

// MenuItem is one pizza on the menu. Prices are in bitcoin.
type MenuItem struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Image       string  `json:"image"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

// Store is a franchise location. TotalRevenue is only reported when a store
// is created or listed for its franchisee.
type Store struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	TotalRevenue *float64 `json:"totalRevenue,omitempty"`
}

// Revenue returns a pointer suitable for Store.TotalRevenue.
func Revenue(v float64) *float64 { return &v }

// Admin references a franchise administrator.
type Admin struct {
	ID    int    `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Franchise owns stores and is managed by its admins.
type Franchise struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Admins []Admin `json:"admins,omitempty"`
	Stores []Store `json:"stores"`
}

// CreateFranchiseRequest is the body of POST /api/franchise.
type CreateFranchiseRequest struct {
	Name   string  `json:"name"`
	Admins []Admin `json:"admins"`
}

// CreateStoreRequest is the body of POST /api/franchise/{id}/store.
type CreateStoreRequest struct {
	Name string `json:"name"`
}

// OrderItem is one pizza in an order.
type OrderItem struct {
	MenuID      int     `json:"menuId"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// Order is both the body of POST /api/order and the stored order.
type Order struct {
	ID          int         `json:"id,omitempty"`
	FranchiseID FlexID      `json:"franchiseId"`
	StoreID     FlexID      `json:"storeId"`
	Date        *time.Time  `json:"date,omitempty"`
	Items       []OrderItem `json:"items"`
}

// Total sums the item prices.
func (o Order) Total() float64 {
	var sum float64
	for _, it := range o.Items {
		sum += it.Price
	}
	return sum
}

// OrderResponse is returned by POST /api/order.
type OrderResponse struct {
	Order Order  `json:"order"`
	JWT   string `json:"jwt"`
}

// VerifyRequest is the body of POST /api/order/verify.
type VerifyRequest struct {
	JWT string `json:"jwt"`
}

// Vendor identifies who made the pizza.
type Vendor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// VerifyPayload is the decoded order JWT.
type VerifyPayload struct {
	Vendor Vendor `json:"vendor"`
	Diner  *User  `json:"diner,omitempty"`
	Order  *Order `json:"order,omitempty"`
}

// VerifyResponse is returned by POST /api/order/verify.
type VerifyResponse struct {
	Message string        `json:"message"`
	Payload VerifyPayload `json:"payload"`
}

// FlexID is an integer ID the web client sometimes sends as a string (store
// ids come from a <select> value). It re-encodes in the form it was decoded
// from so echoed orders keep the caller's shape.
type FlexID struct {
	Value  int
	Quoted bool
}

// ID returns a numeric FlexID.
func ID(n int) FlexID { return FlexID{Value: n} }

// QuotedID returns a FlexID that encodes as a JSON string.
func QuotedID(n int) FlexID { return FlexID{Value: n, Quoted: true} }

// MarshalJSON implements json.Marshaler.
func (id FlexID) MarshalJSON() ([]byte, error) {
	if id.Quoted {
		return []byte(strconv.Quote(strconv.Itoa(id.Value))), nil
	}
	return []byte(strconv.Itoa(id.Value)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = FlexID{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("id %q is not a number", s)
		}
		*id = FlexID{Value: n, Quoted: true}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id %s is not a number", data)
	}
	*id = FlexID{Value: n}
	return nil
}
