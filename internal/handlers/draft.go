package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/oumar-d/invoicedesk/internal/auth"
	"github.com/oumar-d/invoicedesk/internal/draft"
	"github.com/oumar-d/invoicedesk/internal/httpx"
	"github.com/oumar-d/invoicedesk/internal/models"
	"github.com/oumar-d/invoicedesk/internal/store"
)

// DraftHandler exposes invoice authoring sessions over HTTP. Each session is
// owned by the user who opened it and lives in memory until submitted or
// discarded.
type DraftHandler struct {
	DB       *gorm.DB
	Invoices *store.Invoices
	Sessions *draft.Registry
}

func NewDraftHandler(db *gorm.DB, invoices *store.Invoices, sessions *draft.Registry) *DraftHandler {
	return &DraftHandler{DB: db, Invoices: invoices, Sessions: sessions}
}

type createDraftReq struct {
	InvoiceID uint           `json:"invoiceId"`
	Prefill   *draft.Prefill `json:"prefill"`
}

// Create: POST /drafts – open an authoring session. With invoiceId the
// session edits that invoice; otherwise a fresh draft is initialized with
// the user's billing profile, the optional prefill, and an allocated number.
func (h *DraftHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var req createDraftReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	opts := draft.Options{
		Owner:   uid,
		Gateway: h.Invoices.ForUser(uid),
	}
	if req.InvoiceID != 0 {
		inv, err := h.Invoices.Find(r.Context(), uid, req.InvoiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				httpx.JSONError(w, http.StatusNotFound, "invoice_not_found", nil)
				return
			}
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_invoice", nil)
			return
		}
		existing := store.DraftOf(inv)
		opts.Existing = &existing
		opts.ExistingID = inv.ID
	} else {
		var user models.User
		if err := h.DB.First(&user, uid).Error; err == nil {
			opts.Profile = &draft.Contact{
				Name:    user.BusinessName,
				Email:   user.Email,
				Address: user.Address,
				Phone:   user.Phone,
			}
		}
		opts.Prefill = req.Prefill
	}
	s := draft.NewSession(r.Context(), opts)
	h.Sessions.Add(s)
	httpx.JSON(w, http.StatusCreated, s.Snapshot())
}

// Get: GET /drafts/get?id=... – current draft with freshly derived totals.
func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, r.URL.Query().Get("id"))
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, s.Snapshot())
}

type editReq struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Section string          `json:"section"`
	Index   *int            `json:"index"`
	Value   json.RawMessage `json:"value"`
}

// Edit: POST /drafts/edit – route one field edit into the draft.
func (h *DraftHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req editReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	s, ok := h.session(w, r, req.ID)
	if !ok {
		return
	}
	if req.Name == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"name": "required"})
		return
	}
	index := -1
	if req.Section == draft.SectionItems {
		if req.Index == nil {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"index": "required"})
			return
		}
		index = *req.Index
	}
	edit := draft.Route(req.Name, req.Section, index, coerceValue(req.Value))
	if err := s.Apply(edit); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "item_index_out_of_range", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, s.Snapshot())
}

type itemReq struct {
	ID    string `json:"id"`
	Index *int   `json:"index"`
}

// AddItem: POST /drafts/items/add – append a blank line item.
func (h *DraftHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req itemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	s, ok := h.session(w, r, req.ID)
	if !ok {
		return
	}
	s.AddItem()
	httpx.JSON(w, http.StatusOK, s.Snapshot())
}

// RemoveItem: POST /drafts/items/remove – drop the item at index. Removing
// the last one leaves an empty list.
func (h *DraftHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	var req itemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	s, ok := h.session(w, r, req.ID)
	if !ok {
		return
	}
	if req.Index == nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"index": "required"})
		return
	}
	if err := s.RemoveItem(*req.Index); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "item_index_out_of_range", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, s.Snapshot())
}

type submitReq struct {
	ID string `json:"id"`
}

// Submit: POST /drafts/submit – hand the draft plus computed totals to the
// persistence boundary as one atomic request.
func (h *DraftHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	s, ok := h.session(w, r, req.ID)
	if !ok {
		return
	}
	id, err := s.Submit(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, draft.ErrSubmitInFlight), errors.Is(err, draft.ErrAlreadySubmitted), errors.Is(err, draft.ErrNotSubmittable):
			httpx.JSONError(w, http.StatusConflict, "not_submittable", map[string]string{"reason": err.Error()})
		default:
			// Session is back to idle; the snapshot carries the user-facing message.
			httpx.JSON(w, http.StatusBadGateway, s.Snapshot())
		}
		return
	}
	h.Sessions.Remove(req.ID)
	httpx.JSON(w, http.StatusOK, map[string]any{"invoiceId": id, "state": draft.StateSucceeded})
}

// Discard: POST /drafts/discard – navigation-away without save. Nothing is
// rolled back; the in-memory draft is simply dropped.
func (h *DraftHandler) Discard(w http.ResponseWriter, r *http.Request) {
	var req submitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if _, ok := h.session(w, r, req.ID); !ok {
		return
	}
	h.Sessions.Remove(req.ID)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

// session resolves and ownership-checks a session id, writing the error
// response itself when it fails.
func (h *DraftHandler) session(w http.ResponseWriter, r *http.Request, id string) (*draft.Session, bool) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if strings.TrimSpace(id) == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"id": "required"})
		return nil, false
	}
	s, ok := h.Sessions.Get(id)
	if !ok || s.Owner() != uid {
		httpx.JSONError(w, http.StatusNotFound, "draft_not_found", nil)
		return nil, false
	}
	return s, true
}

// coerceValue accepts both string and numeric JSON values from the form
// boundary and flattens them to the string form the routing layer expects.
func coerceValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strings.Trim(string(raw), `"`)
}
