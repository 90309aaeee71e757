package http

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"expirygenie/internal/core"
	"expirygenie/internal/store"
)

// itemView is the template-facing shape of a food item.
type itemView struct {
	ID          int64
	Name        string
	Category    string
	Quantity    string
	Purchase    string
	Expiry      string
	Opened      bool
	Method      core.AddedMethod
	Status      core.ExpiryStatus
	StatusClass string
	DaysLeft    string
}

func makeItemViews(items []core.FoodItem, today core.Date, soonDays int) []itemView {
	views := make([]itemView, 0, len(items))
	for _, it := range items {
		status := core.StatusWithin(it.ExpiryDate, today, soonDays)
		views = append(views, itemView{
			ID:          it.ID,
			Name:        it.Name,
			Category:    it.Category,
			Quantity:    it.Quantity,
			Purchase:    it.PurchaseDate.String(),
			Expiry:      it.ExpiryDate.String(),
			Opened:      it.Opened,
			Method:      it.AddedMethod,
			Status:      status,
			StatusClass: statusClass(status),
			DaysLeft:    daysLeftLabel(it.ExpiryDate, today),
		})
	}
	return views
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	item := core.FoodItem{
		UserEmail:   email,
		Name:        sanitizeInput(r.Form.Get("name")),
		Category:    sanitizeInput(r.Form.Get("category")),
		Quantity:    sanitizeInput(r.Form.Get("quantity")),
		Opened:      r.Form.Get("opened") == "on" || r.Form.Get("opened") == "true",
		AddedMethod: core.MethodManual,
	}
	if v := strings.TrimSpace(r.Form.Get("purchase_date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			UnprocessableEntityError("Invalid purchase date").Write(w)
			return
		}
		item.PurchaseDate = d
	}
	if v := strings.TrimSpace(r.Form.Get("expiry_date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			UnprocessableEntityError("Invalid expiry date").Write(w)
			return
		}
		item.ExpiryDate = d
	}

	id, err := s.items.AddItem(r.Context(), item)
	if err != nil {
		if errors.Is(err, core.ErrEmptyName) || errors.Is(err, core.ErrInvalidCategory) ||
			errors.Is(err, core.ErrExpiryBeforeBuy) {
			UnprocessableEntityError("Invalid item: " + err.Error()).Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Item creation failed",
			"email", email, "name", item.Name, "error", err)
		InternalServerError("Could not save item").Write(w)
		return
	}

	s.invalidateItems(email)
	NewHTMXResponse().
		TriggerItemCreated(id).
		TriggerInventoryRefresh().
		TriggerFormReset().
		BodyHTML(`<div class="success">Added ` + template.HTMLEscapeString(item.Name) + `</div>`).
		Write(w)
}

// handleItemList renders the filtered/sorted inventory partial.
func (s *Server) handleItemList(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	items, err := s.cachedItems(r.Context(), email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Item list error", "email", email, "error", err)
		InternalServerError("Could not load your items").Write(w)
		return
	}

	q := r.URL.Query()
	today := core.Today()
	items = core.FilterItemsWithin(items, sanitizeInput(q.Get("category")),
		core.ExpiryStatus(sanitizeInput(q.Get("status"))), today, s.soonWindow)
	core.SortItems(items, sanitizeInput(q.Get("sort")), q.Get("order") != "desc")

	data := struct {
		Items []itemView
		Empty bool
	}{Items: makeItemViews(items, today, s.soonWindow), Empty: len(items) == 0}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.renderTemplate(w, r, "items_list.html", data)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id, err := parseItemID(r.Form.Get("id"))
	if err != nil {
		BadRequestError("Invalid item id").Write(w)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	quantity := sanitizeInput(r.Form.Get("quantity"))
	opened := r.Form.Get("opened") == "on" || r.Form.Get("opened") == "true"

	if err := s.items.UpdateDetails(r.Context(), id, email, name, quantity, opened); err != nil {
		s.writeItemError(w, r, err, "Item update failed", email, id)
		return
	}

	s.invalidateItems(email)
	NewHTMXResponse().
		TriggerItemUpdated(id).
		TriggerInventoryRefresh().
		Write(w)
}

func (s *Server) handleUpdateItemDate(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id, err := parseItemID(r.Form.Get("id"))
	if err != nil {
		BadRequestError("Invalid item id").Write(w)
		return
	}

	var field store.DateField
	switch r.Form.Get("field") {
	case "purchase":
		field = store.PurchaseDate
	case "expiry":
		field = store.ExpiryDate
	default:
		BadRequestError("Unknown date field").Write(w)
		return
	}

	date, err := core.ParseDate(r.Form.Get("date"))
	if err != nil {
		UnprocessableEntityError("Invalid date").Write(w)
		return
	}

	if err := s.items.UpdateDate(r.Context(), id, email, field, date); err != nil {
		s.writeItemError(w, r, err, "Item date update failed", email, id)
		return
	}

	s.invalidateItems(email)
	NewHTMXResponse().
		TriggerItemUpdated(id).
		TriggerInventoryRefresh().
		Write(w)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequireMethod(r, http.MethodPost, http.MethodDelete); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id, err := parseItemID(r.Form.Get("id"))
	if err != nil {
		BadRequestError("Invalid item id").Write(w)
		return
	}

	if err := s.items.DeleteItem(r.Context(), id, email); err != nil {
		s.writeItemError(w, r, err, "Item delete failed", email, id)
		return
	}

	s.invalidateItems(email)
	NewHTMXResponse().
		TriggerItemDeleted(id).
		TriggerInventoryRefresh().
		Write(w)
}

// handleConsumeItem removes an eaten item; consuming before expiry
// credits its estimated value to the money-saved counter.
func (s *Server) handleConsumeItem(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id, err := parseItemID(r.Form.Get("id"))
	if err != nil {
		BadRequestError("Invalid item id").Write(w)
		return
	}

	if err := s.items.ConsumeItem(r.Context(), id, email, core.Today()); err != nil {
		s.writeItemError(w, r, err, "Item consume failed", email, id)
		return
	}

	s.invalidateItems(email)
	NewHTMXResponse().
		TriggerItemDeleted(id).
		TriggerInventoryRefresh().
		TriggerSuccessNotification("Nice! One less item going to waste.").
		Write(w)
}

func (s *Server) handleClearExpired(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	n, err := s.items.DeleteExpired(r.Context(), email, core.Today())
	if err != nil {
		slog.ErrorContext(r.Context(), "Clear expired failed", "email", email, "error", err)
		InternalServerError("Could not clear expired items").Write(w)
		return
	}

	s.invalidateItems(email)
	NewHTMXResponse().
		TriggerInventoryRefresh().
		TriggerSuccessNotification(fmt.Sprintf("Removed %d expired item(s)", n)).
		Write(w)
}

// handleBulkCreate saves a batch of confirmed extraction drafts. Each
// row arrives as indexed form fields.
func (s *Server) handleBulkCreate(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	names := r.Form["name"]
	quantities := r.Form["quantity"]
	categories := r.Form["category"]
	expiries := r.Form["expiry_date"]
	method := core.AddedMethod(r.Form.Get("method"))
	if method.Validate() != nil {
		method = core.MethodManual
	}

	get := func(vals []string, i int) string {
		if i < len(vals) {
			return sanitizeInput(vals[i])
		}
		return ""
	}

	saved := 0
	for i := range names {
		name := get(names, i)
		if name == "" {
			continue
		}
		item := core.FoodItem{
			UserEmail:   email,
			Name:        name,
			Quantity:    get(quantities, i),
			Category:    get(categories, i),
			AddedMethod: method,
		}
		if v := get(expiries, i); v != "" {
			if d, err := core.ParseDate(v); err == nil {
				item.ExpiryDate = d
			}
		}
		if _, err := s.items.AddItem(r.Context(), item); err != nil {
			slog.WarnContext(r.Context(), "Bulk item skipped",
				"email", email, "name", name, "error", err)
			continue
		}
		saved++
	}

	s.invalidateItems(email)
	NewHTMXResponse().
		TriggerInventoryRefresh().
		TriggerSuccessNotification(fmt.Sprintf("Added %d item(s) to your inventory", saved)).
		BodyHTML(fmt.Sprintf(`<div class="success">Added %d item(s)</div>`, saved)).
		Write(w)
}

// handleSuggest returns name autocomplete options as a small partial.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request, email string) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var sb strings.Builder
	for _, name := range core.Suggest(r.URL.Query().Get("name")) {
		sb.WriteString(`<option value="` + template.HTMLEscapeString(name) + `"></option>`)
	}
	_, _ = w.Write([]byte(sb.String()))
}

func (s *Server) writeItemError(w http.ResponseWriter, r *http.Request, err error, msg, email string, id int64) {
	if errors.Is(err, store.ErrItemNotFound) {
		NotFoundError("Item not found").Write(w)
		return
	}
	if errors.Is(err, core.ErrEmptyName) {
		UnprocessableEntityError("Item name cannot be empty").Write(w)
		return
	}
	slog.ErrorContext(r.Context(), msg, "email", email, "item_id", id, "error", err)
	InternalServerError("Something went wrong").Write(w)
}
