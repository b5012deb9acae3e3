package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oumar-d/invoicedesk/internal/auth"
	"github.com/oumar-d/invoicedesk/internal/draft"
	"github.com/oumar-d/invoicedesk/internal/models"
	"github.com/oumar-d/invoicedesk/internal/store"
)

func setupDraftTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Invoice{}, &models.InvoiceItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedDraftUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	u := models.User{
		Name:         "Ada",
		Email:        "ada@test",
		Password:     "x",
		BusinessName: "Ada Consulting",
		Address:      "1 Engine Road",
		Phone:        "555-0100",
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	return u
}

func newDraftHandler(db *gorm.DB) *DraftHandler {
	return NewDraftHandler(db, store.NewInvoices(db), draft.NewRegistry())
}

func doJSON(t *testing.T, h http.HandlerFunc, uid uint, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(auth.WithUserID(req.Context(), uid))
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) draft.Snapshot {
	t.Helper()
	var snap draft.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v body=%s", err, w.Body.String())
	}
	return snap
}

func TestDraftAuthoringFlow(t *testing.T) {
	db := setupDraftTestDB(t)
	user := seedDraftUser(t, db)
	h := newDraftHandler(db)

	// open a create-mode session: billFrom seeded from the profile,
	// number allocated from an empty invoice list
	w := doJSON(t, h.Create, user.ID, http.MethodPost, "/drafts", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	snap := decodeSnapshot(t, w)
	if snap.Draft.InvoiceNumber != "INV-001" {
		t.Fatalf("invoiceNumber = %q", snap.Draft.InvoiceNumber)
	}
	if snap.Draft.BillFrom.Name != "Ada Consulting" || snap.Draft.BillFrom.Email != "ada@test" {
		t.Fatalf("billFrom = %+v", snap.Draft.BillFrom)
	}
	id := snap.ID

	// fill the client block and the single item
	edits := []string{
		`{"id":%q,"name":"clientName","value":"Globex"}`,
		`{"id":%q,"name":"dueDate","value":"2025-04-01"}`,
		`{"id":%q,"name":"name","section":"items","index":0,"value":"Widget"}`,
		`{"id":%q,"name":"quantity","section":"items","index":0,"value":2}`,
		`{"id":%q,"name":"unitPrice","section":"items","index":0,"value":10}`,
		`{"id":%q,"name":"taxPercent","section":"items","index":0,"value":10}`,
	}
	for _, e := range edits {
		w = doJSON(t, h.Edit, user.ID, http.MethodPost, "/drafts/edit", fmt.Sprintf(e, id))
		if w.Code != http.StatusOK {
			t.Fatalf("edit %s: %d %s", e, w.Code, w.Body.String())
		}
	}
	snap = decodeSnapshot(t, w)
	if snap.Summary.Subtotal != 20 || snap.Summary.TaxTotal != 2 || snap.Summary.Total != 22 {
		t.Fatalf("summary = %+v", snap.Summary)
	}
	if snap.Draft.BillTo.Name != "Globex" {
		t.Fatalf("billTo = %+v", snap.Draft.BillTo)
	}

	// submit and verify the persisted invoice
	w = doJSON(t, h.Submit, user.ID, http.MethodPost, "/drafts/submit", fmt.Sprintf(`{"id":%q}`, id))
	if w.Code != http.StatusOK {
		t.Fatalf("submit: %d %s", w.Code, w.Body.String())
	}
	var result struct {
		InvoiceID uint `json:"invoiceId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil || result.InvoiceID == 0 {
		t.Fatalf("submit response: %s", w.Body.String())
	}
	inv, err := store.NewInvoices(db).Find(context.Background(), user.ID, result.InvoiceID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if inv.Subtotal != 20 || inv.TaxTotal != 2 || inv.Total != 22 {
		t.Fatalf("persisted totals: %v/%v/%v", inv.Subtotal, inv.TaxTotal, inv.Total)
	}
	if len(inv.Items) != 1 || inv.Items[0].Total != 20 {
		t.Fatalf("persisted items: %+v", inv.Items)
	}

	// the session is gone after a successful submit
	w = doJSON(t, h.Get, user.ID, http.MethodGet, "/drafts/get?id="+id, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after submit: %d", w.Code)
	}
}

func TestDraftItemLifecycleOverHTTP(t *testing.T) {
	db := setupDraftTestDB(t)
	user := seedDraftUser(t, db)
	h := newDraftHandler(db)

	snap := decodeSnapshot(t, doJSON(t, h.Create, user.ID, http.MethodPost, "/drafts", ""))
	id := snap.ID

	w := doJSON(t, h.AddItem, user.ID, http.MethodPost, "/drafts/items/add", fmt.Sprintf(`{"id":%q}`, id))
	snap = decodeSnapshot(t, w)
	if len(snap.Draft.Items) != 2 {
		t.Fatalf("items after add: %d", len(snap.Draft.Items))
	}

	for i := 0; i < 2; i++ {
		w = doJSON(t, h.RemoveItem, user.ID, http.MethodPost, "/drafts/items/remove", fmt.Sprintf(`{"id":%q,"index":0}`, id))
		if w.Code != http.StatusOK {
			t.Fatalf("remove: %d %s", w.Code, w.Body.String())
		}
	}
	snap = decodeSnapshot(t, w)
	if len(snap.Draft.Items) != 0 || snap.Summary.Total != 0 {
		t.Fatalf("empty collection: %+v %+v", snap.Draft.Items, snap.Summary)
	}

	w = doJSON(t, h.RemoveItem, user.ID, http.MethodPost, "/drafts/items/remove", fmt.Sprintf(`{"id":%q,"index":0}`, id))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range remove: %d", w.Code)
	}
}

func TestDraftCreateWithPrefill(t *testing.T) {
	db := setupDraftTestDB(t)
	user := seedDraftUser(t, db)
	h := newDraftHandler(db)

	body := `{"prefill":{"clientName":"Globex","email":"ap@globex.test","address":"2 Street","items":[{"name":"A","quantity":1,"unitPrice":5}]}}`
	snap := decodeSnapshot(t, doJSON(t, h.Create, user.ID, http.MethodPost, "/drafts", body))
	if snap.Draft.BillTo.Name != "Globex" || snap.Draft.BillTo.Phone != "" {
		t.Fatalf("billTo = %+v", snap.Draft.BillTo)
	}
	if len(snap.Draft.Items) != 1 || snap.Draft.Items[0].Name != "A" {
		t.Fatalf("prefill items not replacing default: %+v", snap.Draft.Items)
	}
	if snap.Summary.Subtotal != 5 {
		t.Fatalf("summary = %+v", snap.Summary)
	}
}

func TestDraftEditModeRoundTrip(t *testing.T) {
	db := setupDraftTestDB(t)
	user := seedDraftUser(t, db)
	h := newDraftHandler(db)

	// create and submit a first invoice
	snap := decodeSnapshot(t, doJSON(t, h.Create, user.ID, http.MethodPost, "/drafts", ""))
	w := doJSON(t, h.Submit, user.ID, http.MethodPost, "/drafts/submit", fmt.Sprintf(`{"id":%q}`, snap.ID))
	var created struct {
		InvoiceID uint `json:"invoiceId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// reopen it for editing: stored number kept, no reallocation
	body := fmt.Sprintf(`{"invoiceId":%d}`, created.InvoiceID)
	snap = decodeSnapshot(t, doJSON(t, h.Create, user.ID, http.MethodPost, "/drafts", body))
	if !snap.EditMode || snap.Draft.InvoiceNumber != "INV-001" {
		t.Fatalf("edit snapshot: %+v", snap)
	}

	// change notes and resubmit as an update
	doJSON(t, h.Edit, user.ID, http.MethodPost, "/drafts/edit", fmt.Sprintf(`{"id":%q,"name":"notes","value":"updated"}`, snap.ID))
	w = doJSON(t, h.Submit, user.ID, http.MethodPost, "/drafts/submit", fmt.Sprintf(`{"id":%q}`, snap.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("update submit: %d %s", w.Code, w.Body.String())
	}

	inv, err := store.NewInvoices(db).Find(context.Background(), user.ID, created.InvoiceID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if inv.Notes != "updated" {
		t.Fatalf("notes = %q", inv.Notes)
	}
	var count int64
	db.Model(&models.Invoice{}).Count(&count)
	if count != 1 {
		t.Fatalf("update created %d invoices", count)
	}
}

func TestDraftOwnership(t *testing.T) {
	db := setupDraftTestDB(t)
	owner := seedDraftUser(t, db)
	other := models.User{Email: "other@test", Password: "x"}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	h := newDraftHandler(db)

	snap := decodeSnapshot(t, doJSON(t, h.Create, owner.ID, http.MethodPost, "/drafts", ""))
	w := doJSON(t, h.Get, other.ID, http.MethodGet, "/drafts/get?id="+snap.ID, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign session access: %d", w.Code)
	}
}

func TestSequentialNumbersAcrossDrafts(t *testing.T) {
	db := setupDraftTestDB(t)
	user := seedDraftUser(t, db)
	h := newDraftHandler(db)

	for i, want := range []string{"INV-001", "INV-002", "INV-003"} {
		snap := decodeSnapshot(t, doJSON(t, h.Create, user.ID, http.MethodPost, "/drafts", ""))
		if snap.Draft.InvoiceNumber != want {
			t.Fatalf("draft %d number = %q, want %q", i, snap.Draft.InvoiceNumber, want)
		}
		w := doJSON(t, h.Submit, user.ID, http.MethodPost, "/drafts/submit", fmt.Sprintf(`{"id":%q}`, snap.ID))
		if w.Code != http.StatusOK {
			t.Fatalf("submit %d: %d %s", i, w.Code, w.Body.String())
		}
	}
}
