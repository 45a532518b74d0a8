package twin

import (
	"errors"
	"net/http"

	"github.com/pf274/jwt-pizza/internal/pizza"
	"github.com/pf274/jwt-pizza/pkg/twincore"
)

// GetMenu handles GET /api/order/menu.
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, h.store.Menu.List())
}

// AddMenuItem handles PUT /api/order/menu. Admins only; returns the new menu.
func (h *Handler) AddMenuItem(w http.ResponseWriter, r *http.Request) {
	if !currentUser(r).Is(pizza.RoleAdmin) {
		twincore.Error(w, http.StatusForbidden, "unable to add menu item")
		return
	}
	var item pizza.MenuItem
	if !decode(w, r, &item) {
		return
	}
	if item.Title == "" {
		twincore.Error(w, http.StatusBadRequest, "title is required")
		return
	}
	h.store.Menu.Insert(func(id int) pizza.MenuItem { item.ID = id; return item })
	twincore.JSON(w, http.StatusOK, h.store.Menu.List())
}

// ListOrders handles GET /api/order.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	dinerID := currentUser(r).ID
	orders := []pizza.Order{}
	for _, o := range h.store.Orders.Filter(func(o OrderRecord) bool { return o.DinerID == dinerID }) {
		orders = append(orders, o.Order)
	}
	twincore.JSON(w, http.StatusOK, orders)
}

// PlaceOrder handles POST /api/order. The order is echoed back in the shape
// it was sent, with its id and date, alongside the signed receipt.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var order pizza.Order
	if !decode(w, r, &order) {
		return
	}
	if len(order.Items) == 0 {
		twincore.Error(w, http.StatusBadRequest, "order has no items")
		return
	}
	franchiseID, storeID := order.FranchiseID.Value, order.StoreID.Value
	if _, ok := h.store.Franchises.Get(franchiseID); !ok {
		twincore.Error(w, http.StatusNotFound, "unknown franchise")
		return
	}
	st, ok := h.store.Stores.Get(storeID)
	if !ok || st.FranchiseID != franchiseID {
		twincore.Error(w, http.StatusNotFound, "unknown store")
		return
	}
	for _, it := range order.Items {
		if _, ok := h.store.Menu.Get(it.MenuID); !ok {
			twincore.Error(w, http.StatusBadRequest, "unknown menu item")
			return
		}
	}

	diner := currentUser(r)
	now := h.store.Clock.Now()
	rec := h.store.Orders.Insert(func(id int) OrderRecord {
		order.ID = id
		order.Date = &now
		return OrderRecord{Order: order, DinerID: diner.ID}
	})
	total := rec.Total()
	h.store.Stores.Update(storeID, func(s *StoreRecord) { s.TotalRevenue += total })

	receipt, err := h.tokens.SignOrder(diner, rec.Order)
	if err != nil {
		twincore.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	twincore.JSON(w, http.StatusOK, pizza.OrderResponse{Order: rec.Order, JWT: receipt})
}

// VerifyOrder handles POST /api/order/verify.
func (h *Handler) VerifyOrder(w http.ResponseWriter, r *http.Request) {
	var req pizza.VerifyRequest
	if !decode(w, r, &req) {
		return
	}
	payload, err := h.tokens.VerifyOrder(req.JWT)
	if errors.Is(err, ErrInvalidToken) {
		twincore.Error(w, http.StatusBadRequest, "invalid jwt")
		return
	}
	if err != nil {
		twincore.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	twincore.JSON(w, http.StatusOK, pizza.VerifyResponse{Message: "valid", Payload: payload})
}
