package fixtures

import (
	"fmt"
	"sort"

	"github.com/pf274/jwt-pizza/internal/pizza"
	"github.com/pf274/jwt-pizza/pkg/mockroute"
)

// Token is the bearer token every canned login returns.
const Token = "abcdef"

// Currency is the symbol the web client prints after prices.
const Currency = "₿"

// FormatPrice renders a price the way the checkout table does, e.g. "0.004 ₿".
func FormatPrice(v float64) string {
	return fmt.Sprintf("%.3f %s", v, Currency)
}

// Shared password of the canned accounts.
const Password = "a"

// Canned accounts.
var (
	// Admin logs in as a@jwt.com.
	Admin = pizza.User{ID: 3, Name: "Kaisen Chen", Email: "a@jwt.com", Roles: []pizza.UserRole{{Role: pizza.RoleAdmin}}}
	// NewDiner is the account created by the register scenario.
	NewDiner = pizza.User{ID: 3, Name: "Kaisen Chen", Email: "nd@jwt.com", Roles: []pizza.UserRole{{Role: pizza.RoleDiner}}}
	// Kai is a diner who also runs the Bacon Sandwich franchise.
	Kai = pizza.User{ID: 3, Name: "Kai Chen", Email: "d@jwt.com", Roles: []pizza.UserRole{
		{Role: pizza.RoleDiner},
		{Role: pizza.RoleFranchisee, ObjectID: FranchiseName},
	}}
)

// Names used by the franchise scenarios.
const (
	FranchiseName    = "Bacon Sandwich"
	NewFranchiseName = "LotaPizza2"
	FranchiseeEmail  = "n@jwt.com"
	NewStoreName     = "New Store"
)

// Menu items.
var MenuItems = []pizza.MenuItem{
	{ID: 1, Title: "Veggie", Image: "pizza1.png", Price: 0.0038, Description: "A garden of delight"},
	{ID: 2, Title: "Pepperoni", Image: "pizza2.png", Price: 0.0042, Description: "Spicy treat"},
}

// Franchises is the admin franchise list.
func Franchises() []pizza.Franchise {
	return []pizza.Franchise{
		{ID: 2, Name: "LotaPizza", Stores: []pizza.Store{{ID: 4, Name: "Lehi"}}},
		{ID: 3, Name: "PizzaCorp", Stores: []pizza.Store{{ID: 7, Name: "Spanish Fork"}}},
		{ID: 4, Name: "topSpot", Stores: []pizza.Store{}},
	}
}

// KaiFranchises is what Kai administers before opening a store.
func KaiFranchises() []pizza.Franchise {
	fs := Franchises()
	fs[0].Name = FranchiseName
	return fs
}

// KaiFranchisesWithNewStore is Kai's list after the store was created.
func KaiFranchisesWithNewStore() []pizza.Franchise {
	fs := KaiFranchises()
	fs[0].Stores = []pizza.Store{{ID: 4, Name: NewStoreName}}
	return fs
}

// Order is the two-pizza order placed at store "4" of franchise 2. The store
// id arrives as a string because the client reads it from a <select>.
func Order() pizza.Order {
	return pizza.Order{
		Items: []pizza.OrderItem{
			{MenuID: 1, Description: "Veggie", Price: 0.0038},
			{MenuID: 2, Description: "Pepperoni", Price: 0.0042},
		},
		StoreID:     pizza.QuotedID(4),
		FranchiseID: pizza.ID(2),
	}
}

// Placed order id and jwt.
const (
	OrderID  = 23
	OrderJWT = "eyJpYXQ"
)

// Vendor signs every pizza.
var Vendor = pizza.Vendor{ID: "pf274", Name: "Peter Fullmer"}

// Rules for the canned scenarios, by name.
var scenarios = map[string]func() []mockroute.Rule{
	"invalid-login": func() []mockroute.Rule {
		return []mockroute.Rule{InvalidLogin("u@jwt.com", Password)}
	},
	"register": func() []mockroute.Rule {
		return []mockroute.Rule{Register(
			pizza.RegisterRequest{Name: NewDiner.Name, Email: NewDiner.Email, Password: Password},
			NewDiner, Token,
		)}
	},
	"login-admin": func() []mockroute.Rule {
		return []mockroute.Rule{Login(Admin.Email, Password, Admin, Token)}
	},
	"login-kai": func() []mockroute.Rule {
		return []mockroute.Rule{Login(Kai.Email, Password, Kai, Token)}
	},
	"logout": func() []mockroute.Rule {
		return []mockroute.Rule{Logout(Token)}
	},
	"order": func() []mockroute.Rule {
		return []mockroute.Rule{
			Menu(MenuItems),
			PlaceOrder(Order(), OrderID, OrderJWT),
			FranchiseList(Franchises()),
			VerifyOrder(OrderJWT, Vendor),
		}
	},
	"franchise-admin": func() []mockroute.Rule {
		return []mockroute.Rule{
			CreateFranchise(
				pizza.CreateFranchiseRequest{Name: NewFranchiseName, Admins: []pizza.Admin{{Email: FranchiseeEmail}}},
				pizza.Franchise{ID: 2, Name: NewFranchiseName, Stores: []pizza.Store{}},
			),
			CloseFranchise(2),
		}
	},
	"franchisee": func() []mockroute.Rule {
		return []mockroute.Rule{
			Orders(nil),
			UserFranchises(Kai.ID, KaiFranchises()),
			CreateStore(NewStoreName, pizza.Store{ID: 4, Name: NewStoreName, TotalRevenue: pizza.Revenue(0)}),
			CloseStore(),
		}
	},
}

// Scenario returns the rules of a named scenario.
func Scenario(name string) ([]mockroute.Rule, error) {
	build, ok := scenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q (known: %v)", name, ScenarioNames())
	}
	return build(), nil
}

// ScenarioNames lists the scenario names in lexical order.
func ScenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
