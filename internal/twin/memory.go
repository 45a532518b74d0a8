// Package twin is an in-memory JWT Pizza service: accounts and sessions,
// the menu, franchises with their stores, and signed orders.
package twin

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pf274/jwt-pizza/internal/pizza"
	"github.com/pf274/jwt-pizza/pkg/store"
	"golang.org/x/crypto/bcrypt"
)

// Simulated service; hashing speed matters more than strength.
const passwordCost = bcrypt.MinCost

// ErrEmailTaken is returned by AddUser when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// UserRecord is a stored account.
type UserRecord struct {
	pizza.User
	PasswordHash string `json:"passwordHash,omitempty"`
	// Password is only read from seed files and hashed on load.
	Password string `json:"password,omitempty"`
}

// FranchiseRecord is a stored franchise.
type FranchiseRecord struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	AdminIDs []int  `json:"adminIds"`
}

// StoreRecord is a stored franchise location.
type StoreRecord struct {
	ID           int     `json:"id"`
	FranchiseID  int     `json:"franchiseId"`
	Name         string  `json:"name"`
	TotalRevenue float64 `json:"totalRevenue"`
}

// OrderRecord is a placed order.
type OrderRecord struct {
	pizza.Order
	DinerID int `json:"dinerId"`
}

// MemoryStore holds all twin state.
type MemoryStore struct {
	Users      *store.Store[UserRecord]
	Menu       *store.Store[pizza.MenuItem]
	Franchises *store.Store[FranchiseRecord]
	Stores     *store.Store[StoreRecord]
	Orders     *store.Store[OrderRecord]
	Clock      *store.Clock

	mu       sync.RWMutex
	sessions map[string]int // token -> user id
	seed     func(*MemoryStore) error
}

// NewMemoryStore returns a store seeded with the default accounts, menu and
// franchises. Reset restores exactly this state.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		Users:      store.New[UserRecord](),
		Menu:       store.New[pizza.MenuItem](),
		Franchises: store.New[FranchiseRecord](),
		Stores:     store.New[StoreRecord](),
		Orders:     store.New[OrderRecord](),
		Clock:      store.NewClock(),
		sessions:   make(map[string]int),
		seed:       seedDefaults,
	}
	s.Reset()
	return s
}

// SetSeed replaces the state Reset restores with the snapshot in data.
func (s *MemoryStore) SetSeed(data []byte) error {
	if err := s.LoadState(data); err != nil {
		return err
	}
	s.seed = func(m *MemoryStore) error { return m.LoadState(data) }
	return nil
}

type stateSnapshot struct {
	Users      map[int]UserRecord      `json:"users"`
	Menu       map[int]pizza.MenuItem  `json:"menu"`
	Franchises map[int]FranchiseRecord `json:"franchises"`
	Stores     map[int]StoreRecord     `json:"stores"`
	Orders     map[int]OrderRecord     `json:"orders"`
	Sessions   map[string]int          `json:"sessions,omitempty"`
}

// Snapshot returns the full state as a JSON-serializable value.
func (s *MemoryStore) Snapshot() any {
	s.mu.RLock()
	sessions := make(map[string]int, len(s.sessions))
	for k, v := range s.sessions {
		sessions[k] = v
	}
	s.mu.RUnlock()

	return stateSnapshot{
		Users:      s.Users.Snapshot(),
		Menu:       s.Menu.Snapshot(),
		Franchises: s.Franchises.Snapshot(),
		Stores:     s.Stores.Snapshot(),
		Orders:     s.Orders.Snapshot(),
		Sessions:   sessions,
	}
}

// LoadState replaces the full state. Plain passwords in user records are
// hashed; tables missing from data are emptied.
func (s *MemoryStore) LoadState(data []byte) error {
	var snap stateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	for id, u := range snap.Users {
		u.ID = id
		if u.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), passwordCost)
			if err != nil {
				return fmt.Errorf("hashing password of user %d: %w", id, err)
			}
			u.PasswordHash, u.Password = string(hash), ""
		}
		if u.Roles == nil {
			u.Roles = []pizza.UserRole{{Role: pizza.RoleDiner}}
		}
		snap.Users[id] = u
	}
	keyIDs(snap.Menu, func(m *pizza.MenuItem, id int) { m.ID = id })
	keyIDs(snap.Franchises, func(f *FranchiseRecord, id int) { f.ID = id })
	keyIDs(snap.Stores, func(st *StoreRecord, id int) { st.ID = id })
	keyIDs(snap.Orders, func(o *OrderRecord, id int) { o.ID = id })

	s.Users.LoadSnapshot(snap.Users)
	s.Menu.LoadSnapshot(snap.Menu)
	s.Franchises.LoadSnapshot(snap.Franchises)
	s.Stores.LoadSnapshot(snap.Stores)
	s.Orders.LoadSnapshot(snap.Orders)

	s.mu.Lock()
	s.sessions = make(map[string]int, len(snap.Sessions))
	for k, v := range snap.Sessions {
		s.sessions[k] = v
	}
	s.mu.Unlock()
	return nil
}

// keyIDs makes each record's ID agree with its key in the snapshot.
func keyIDs[T any](table map[int]T, setID func(*T, int)) {
	for id, rec := range table {
		setID(&rec, id)
		table[id] = rec
	}
}

// Reset clears everything and restores the seed.
func (s *MemoryStore) Reset() {
	s.Users.Reset()
	s.Menu.Reset()
	s.Franchises.Reset()
	s.Stores.Reset()
	s.Orders.Reset()
	s.Clock.Reset()
	s.mu.Lock()
	s.sessions = make(map[string]int)
	s.mu.Unlock()
	if s.seed != nil {
		// the seed was validated when it was set
		_ = s.seed(s)
	}
}

// AddUser hashes password and stores a new account. The email check and the
// insert happen under one lock, so a second account with the same email
// (compared case-insensitively) fails with ErrEmailTaken.
func (s *MemoryStore) AddUser(name, email, password string, roles ...pizza.UserRole) (pizza.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return pizza.User{}, fmt.Errorf("hashing password: %w", err)
	}
	if len(roles) == 0 {
		roles = []pizza.UserRole{{Role: pizza.RoleDiner}}
	}
	rec, ok := s.Users.InsertUnless(
		func(u UserRecord) bool { return strings.EqualFold(u.Email, email) },
		func(id int) UserRecord {
			return UserRecord{
				User:         pizza.User{ID: id, Name: name, Email: email, Roles: roles},
				PasswordHash: string(hash),
			}
		},
	)
	if !ok {
		return pizza.User{}, ErrEmailTaken
	}
	return rec.User, nil
}

// UserByEmail looks an account up by email, case-insensitively.
func (s *MemoryStore) UserByEmail(email string) (UserRecord, bool) {
	return s.Users.Find(func(u UserRecord) bool { return strings.EqualFold(u.Email, email) })
}

// Authenticate returns the user whose email and password match.
func (s *MemoryStore) Authenticate(email, password string) (pizza.User, bool) {
	rec, ok := s.UserByEmail(email)
	if !ok {
		return pizza.User{}, false
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		return pizza.User{}, false
	}
	return rec.User, true
}

// StartSession records token as logged in for userID.
func (s *MemoryStore) StartSession(token string, userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = userID
}

// EndSession forgets token and reports whether it was active.
func (s *MemoryStore) EndSession(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[token]
	delete(s.sessions, token)
	return ok
}

// SessionUser returns the user logged in with token.
func (s *MemoryStore) SessionUser(token string) (pizza.User, bool) {
	s.mu.RLock()
	id, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return pizza.User{}, false
	}
	rec, ok := s.Users.Get(id)
	return rec.User, ok
}

// GrantFranchisee adds a franchisee role for franchiseID to userID.
func (s *MemoryStore) GrantFranchisee(userID, franchiseID int) {
	objectID := strconv.Itoa(franchiseID)
	s.Users.Update(userID, func(u *UserRecord) {
		for _, r := range u.Roles {
			if r.Role == pizza.RoleFranchisee && r.ObjectID == objectID {
				return
			}
		}
		u.Roles = append(u.Roles, pizza.UserRole{Role: pizza.RoleFranchisee, ObjectID: objectID})
	})
}

// RevokeFranchisee removes the franchisee role for franchiseID from every user.
func (s *MemoryStore) RevokeFranchisee(franchiseID int) {
	objectID := strconv.Itoa(franchiseID)
	for _, u := range s.Users.List() {
		s.Users.Update(u.ID, func(u *UserRecord) {
			kept := u.Roles[:0]
			for _, r := range u.Roles {
				if r.Role != pizza.RoleFranchisee || r.ObjectID != objectID {
					kept = append(kept, r)
				}
			}
			u.Roles = kept
		})
	}
}

// Franchise renders a franchise with its stores. Admins and revenue are
// included when detailed is set.
func (s *MemoryStore) Franchise(f FranchiseRecord, detailed bool) pizza.Franchise {
	out := pizza.Franchise{ID: f.ID, Name: f.Name, Stores: []pizza.Store{}}
	for _, st := range s.Stores.Filter(func(st StoreRecord) bool { return st.FranchiseID == f.ID }) {
		ps := pizza.Store{ID: st.ID, Name: st.Name}
		if detailed {
			ps.TotalRevenue = pizza.Revenue(st.TotalRevenue)
		}
		out.Stores = append(out.Stores, ps)
	}
	if detailed {
		for _, id := range f.AdminIDs {
			if u, ok := s.Users.Get(id); ok {
				out.Admins = append(out.Admins, pizza.Admin{ID: u.ID, Name: u.Name, Email: u.Email})
			}
		}
	}
	return out
}

// IsFranchiseAdmin reports whether userID administers franchiseID.
func (s *MemoryStore) IsFranchiseAdmin(userID, franchiseID int) bool {
	f, ok := s.Franchises.Get(franchiseID)
	if !ok {
		return false
	}
	for _, id := range f.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// DeleteFranchise removes a franchise, its stores and its franchisee roles.
func (s *MemoryStore) DeleteFranchise(id int) bool {
	if !s.Franchises.Delete(id) {
		return false
	}
	for _, st := range s.Stores.Filter(func(st StoreRecord) bool { return st.FranchiseID == id }) {
		s.Stores.Delete(st.ID)
	}
	s.RevokeFranchisee(id)
	return true
}

// Seed accounts share this password.
const seedPassword = "a"

func seedDefaults(s *MemoryStore) error {
	if _, err := s.AddUser("Kaisen Chen", "a@jwt.com", seedPassword, pizza.UserRole{Role: pizza.RoleAdmin}); err != nil {
		return err
	}
	kai, err := s.AddUser("Kai Chen", "d@jwt.com", seedPassword)
	if err != nil {
		return err
	}

	for _, m := range []pizza.MenuItem{
		{Title: "Veggie", Image: "pizza1.png", Price: 0.0038, Description: "A garden of delight"},
		{Title: "Pepperoni", Image: "pizza2.png", Price: 0.0042, Description: "Spicy treat"},
		{Title: "Margarita", Image: "pizza3.png", Price: 0.0042, Description: "Essential classic"},
		{Title: "Crusty", Image: "pizza4.png", Price: 0.0028, Description: "A dry mouthed favorite"},
		{Title: "Charred Leopard", Image: "pizza5.png", Price: 0.0099, Description: "For those with a darker side"},
	} {
		s.Menu.Insert(func(id int) pizza.MenuItem { m.ID = id; return m })
	}

	for _, f := range []struct {
		name   string
		admins []int
		stores []string
	}{
		{"LotaPizza", []int{kai.ID}, []string{"Lehi"}},
		{"PizzaCorp", nil, []string{"Spanish Fork"}},
		{"topSpot", nil, nil},
	} {
		rec := s.Franchises.Insert(func(id int) FranchiseRecord {
			return FranchiseRecord{ID: id, Name: f.name, AdminIDs: append([]int{}, f.admins...)}
		})
		for _, userID := range f.admins {
			s.GrantFranchisee(userID, rec.ID)
		}
		for _, name := range f.stores {
			s.Stores.Insert(func(id int) StoreRecord {
				return StoreRecord{ID: id, FranchiseID: rec.ID, Name: name}
			})
		}
	}
	return nil
}
