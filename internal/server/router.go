package server

import (
	"context"
	"net/http"

	"gorm.io/gorm"

	"github.com/oumar-d/invoicedesk/internal/auth"
	"github.com/oumar-d/invoicedesk/internal/draft"
	"github.com/oumar-d/invoicedesk/internal/handlers"
	"github.com/oumar-d/invoicedesk/internal/httpx"
	"github.com/oumar-d/invoicedesk/internal/models"
	"github.com/oumar-d/invoicedesk/internal/store"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB) http.Handler {
	mux := http.NewServeMux()

	// RequireAuth also checks the user still exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)

	protected := func(method string, h http.HandlerFunc) http.Handler {
		return auth.Middleware(auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				w.Header().Set("Allow", method)
				httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
				return
			}
			h(w, r)
		})))
	}

	invoices := store.NewInvoices(db)
	dh := handlers.NewDraftHandler(db, invoices, draft.NewRegistry())
	mux.Handle("/drafts", protected(http.MethodPost, dh.Create))
	mux.Handle("/drafts/get", protected(http.MethodGet, dh.Get))
	mux.Handle("/drafts/edit", protected(http.MethodPost, dh.Edit))
	mux.Handle("/drafts/items/add", protected(http.MethodPost, dh.AddItem))
	mux.Handle("/drafts/items/remove", protected(http.MethodPost, dh.RemoveItem))
	mux.Handle("/drafts/submit", protected(http.MethodPost, dh.Submit))
	mux.Handle("/drafts/discard", protected(http.MethodPost, dh.Discard))

	ih := handlers.NewInvoiceHandler(invoices)
	mux.Handle("/invoices", protected(http.MethodGet, ih.List))
	mux.Handle("/invoices/get", protected(http.MethodGet, ih.Get))

	return mux
}
