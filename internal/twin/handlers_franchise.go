package twin

import (
	"net/http"
	"strings"

	"github.com/pf274/jwt-pizza/internal/pizza"
	"github.com/pf274/jwt-pizza/pkg/twincore"
)

// ListFranchises handles GET /api/franchise.
func (h *Handler) ListFranchises(w http.ResponseWriter, r *http.Request) {
	out := []pizza.Franchise{}
	for _, f := range h.store.Franchises.List() {
		out = append(out, h.store.Franchise(f, false))
	}
	twincore.JSON(w, http.StatusOK, out)
}

// UserFranchises handles GET /api/franchise/{id}: the franchises user id
// administers, with admins and revenue. Other callers get an empty list
// unless they are admins.
func (h *Handler) UserFranchises(w http.ResponseWriter, r *http.Request) {
	userID, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	out := []pizza.Franchise{}
	caller := currentUser(r)
	if caller.ID == userID || caller.Is(pizza.RoleAdmin) {
		for _, f := range h.store.Franchises.Filter(func(f FranchiseRecord) bool {
			return h.store.IsFranchiseAdmin(userID, f.ID)
		}) {
			out = append(out, h.store.Franchise(f, true))
		}
	}
	twincore.JSON(w, http.StatusOK, out)
}

// CreateFranchise handles POST /api/franchise. Admins only. Every listed
// admin email must belong to an existing user, who becomes a franchisee.
func (h *Handler) CreateFranchise(w http.ResponseWriter, r *http.Request) {
	if !currentUser(r).Is(pizza.RoleAdmin) {
		twincore.Error(w, http.StatusForbidden, "unable to create a franchise")
		return
	}
	var req pizza.CreateFranchiseRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		twincore.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if _, exists := h.store.Franchises.Find(func(f FranchiseRecord) bool {
		return strings.EqualFold(f.Name, req.Name)
	}); exists {
		twincore.Error(w, http.StatusConflict, "franchise already exists")
		return
	}

	adminIDs := make([]int, 0, len(req.Admins))
	for _, a := range req.Admins {
		u, ok := h.store.UserByEmail(a.Email)
		if !ok {
			twincore.Error(w, http.StatusNotFound, "unknown user for franchise admin "+a.Email+" provided")
			return
		}
		adminIDs = append(adminIDs, u.ID)
	}

	rec := h.store.Franchises.Insert(func(id int) FranchiseRecord {
		return FranchiseRecord{ID: id, Name: req.Name, AdminIDs: adminIDs}
	})
	for _, id := range adminIDs {
		h.store.GrantFranchisee(id, rec.ID)
	}
	twincore.JSON(w, http.StatusOK, h.store.Franchise(rec, true))
}

// DeleteFranchise handles DELETE /api/franchise/{id}. Admins only.
func (h *Handler) DeleteFranchise(w http.ResponseWriter, r *http.Request) {
	if !currentUser(r).Is(pizza.RoleAdmin) {
		twincore.Error(w, http.StatusForbidden, "unable to delete a franchise")
		return
	}
	id, ok := intParam(w, r, "id")
	if !ok {
		return
	}
	if !h.store.DeleteFranchise(id) {
		twincore.Error(w, http.StatusNotFound, "unknown franchise")
		return
	}
	twincore.JSON(w, http.StatusOK, pizza.Message{Message: "franchise deleted"})
}

// CreateStore handles POST /api/franchise/{id}/store.
func (h *Handler) CreateStore(w http.ResponseWriter, r *http.Request) {
	franchiseID, ok := h.franchiseManager(w, r, "unable to create a store")
	if !ok {
		return
	}
	var req pizza.CreateStoreRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		twincore.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	st := h.store.Stores.Insert(func(id int) StoreRecord {
		return StoreRecord{ID: id, FranchiseID: franchiseID, Name: req.Name}
	})
	twincore.JSON(w, http.StatusOK, pizza.Store{ID: st.ID, Name: st.Name, TotalRevenue: pizza.Revenue(st.TotalRevenue)})
}

// DeleteStore handles DELETE /api/franchise/{id}/store/{storeID}.
func (h *Handler) DeleteStore(w http.ResponseWriter, r *http.Request) {
	franchiseID, ok := h.franchiseManager(w, r, "unable to delete a store")
	if !ok {
		return
	}
	storeID, ok := intParam(w, r, "storeID")
	if !ok {
		return
	}
	st, ok := h.store.Stores.Get(storeID)
	if !ok || st.FranchiseID != franchiseID {
		twincore.Error(w, http.StatusNotFound, "unknown store")
		return
	}
	h.store.Stores.Delete(storeID)
	twincore.JSON(w, http.StatusOK, pizza.Message{Message: "store deleted"})
}

// franchiseManager resolves the {id} franchise and checks the caller is an
// admin or one of its franchisees.
func (h *Handler) franchiseManager(w http.ResponseWriter, r *http.Request, denied string) (int, bool) {
	franchiseID, ok := intParam(w, r, "id")
	if !ok {
		return 0, false
	}
	if _, exists := h.store.Franchises.Get(franchiseID); !exists {
		twincore.Error(w, http.StatusNotFound, "unknown franchise")
		return 0, false
	}
	caller := currentUser(r)
	if !caller.Is(pizza.RoleAdmin) && !h.store.IsFranchiseAdmin(caller.ID, franchiseID) {
		twincore.Error(w, http.StatusForbidden, denied)
		return 0, false
	}
	return franchiseID, true
}
