package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/oumar-d/invoicedesk/internal/auth"
	"github.com/oumar-d/invoicedesk/internal/httpx"
	"github.com/oumar-d/invoicedesk/internal/store"
)

// InvoiceHandler reads persisted invoices (the navigation target after a
// successful submit). Writes go through the draft flow only.
type InvoiceHandler struct {
	Invoices *store.Invoices
}

func NewInvoiceHandler(invoices *store.Invoices) *InvoiceHandler {
	return &InvoiceHandler{Invoices: invoices}
}

// List: GET /invoices – the principal's invoices, newest first.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	invs, err := h.Invoices.All(r.Context(), uid)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": invs, "total": len(invs)})
}

// Get: GET /invoices/get?id=...
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"id": "required"})
		return
	}
	inv, err := h.Invoices.Find(r.Context(), uid, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "invoice_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}
