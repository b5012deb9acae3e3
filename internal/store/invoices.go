// Package store implements the authoring core's persistence gateway on top
// of gorm. Every gateway is scoped to the owning user; cross-user reads are
// impossible by construction.
package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/oumar-d/invoicedesk/internal/draft"
	"github.com/oumar-d/invoicedesk/internal/models"
)

type Invoices struct {
	DB *gorm.DB
}

func NewInvoices(db *gorm.DB) *Invoices { return &Invoices{DB: db} }

// ForUser binds the store to a principal, yielding the gateway the authoring
// session talks to.
func (s *Invoices) ForUser(userID uint) draft.Gateway {
	return &userGateway{db: s.DB, userID: userID}
}

// Find loads one invoice owned by the user, items in display order.
func (s *Invoices) Find(ctx context.Context, userID, id uint) (models.Invoice, error) {
	var inv models.Invoice
	err := s.DB.WithContext(ctx).
		Preload("Items", itemOrder).
		Where("user_id = ?", userID).
		First(&inv, id).Error
	return inv, err
}

// All lists the user's invoices, newest first.
func (s *Invoices) All(ctx context.Context, userID uint) ([]models.Invoice, error) {
	var invs []models.Invoice
	err := s.DB.WithContext(ctx).
		Preload("Items", itemOrder).
		Where("user_id = ?", userID).
		Order("id desc").
		Find(&invs).Error
	return invs, err
}

func itemOrder(db *gorm.DB) *gorm.DB { return db.Order("position asc") }

type userGateway struct {
	db     *gorm.DB
	userID uint
}

func (g *userGateway) List(ctx context.Context) ([]draft.Payload, error) {
	var invs []models.Invoice
	if err := g.db.WithContext(ctx).
		Preload("Items", itemOrder).
		Where("user_id = ?", g.userID).
		Order("id asc").
		Find(&invs).Error; err != nil {
		return nil, &draft.GatewayError{Code: "failed_to_list_invoices", Detail: err.Error()}
	}
	out := make([]draft.Payload, len(invs))
	for i, inv := range invs {
		out[i] = PayloadOf(inv)
	}
	return out, nil
}

func (g *userGateway) Create(ctx context.Context, p draft.Payload) (uint, error) {
	inv := toModel(p, g.userID)
	if err := g.db.WithContext(ctx).Create(&inv).Error; err != nil {
		return 0, &draft.GatewayError{Code: "failed_to_create_invoice", Detail: "Could not save the invoice."}
	}
	return inv.ID, nil
}

func (g *userGateway) Update(ctx context.Context, id uint, p draft.Payload) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Invoice
		if err := tx.Where("user_id = ?", g.userID).First(&existing, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &draft.GatewayError{Status: 404, Code: "invoice_not_found", Detail: "Invoice no longer exists."}
			}
			return &draft.GatewayError{Code: "failed_to_update_invoice", Detail: err.Error()}
		}
		next := toModel(p, g.userID)
		next.ID = existing.ID
		next.CreatedAt = existing.CreatedAt
		items := next.Items
		next.Items = nil
		if err := tx.Where("invoice_id = ?", existing.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return &draft.GatewayError{Code: "failed_to_update_invoice", Detail: err.Error()}
		}
		if err := tx.Save(&next).Error; err != nil {
			return &draft.GatewayError{Code: "failed_to_update_invoice", Detail: "Could not save the invoice."}
		}
		for i := range items {
			items[i].InvoiceID = existing.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return &draft.GatewayError{Code: "failed_to_update_invoice", Detail: "Could not save the invoice."}
			}
		}
		return nil
	})
}

// toModel converts a submitted payload into the persisted shape. Dates parse
// at calendar-day granularity; an unparsable date stores as the zero time.
func toModel(p draft.Payload, userID uint) models.Invoice {
	items := make([]models.InvoiceItem, len(p.Items))
	for i, it := range p.Items {
		items[i] = models.InvoiceItem{
			Position:   i,
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TaxPercent: it.TaxPercent,
			Total:      it.Total,
		}
	}
	return models.Invoice{
		UserID:        userID,
		InvoiceNumber: p.InvoiceNumber,
		InvoiceDate:   parseDay(p.InvoiceDate),
		DueDate:       parseDay(p.DueDate),
		BillFrom:      models.Contact(p.BillFrom),
		BillTo:        models.Contact(p.BillTo),
		Items:         items,
		Notes:         p.Notes,
		PaymentTerms:  p.PaymentTerms,
		Subtotal:      p.Subtotal,
		TaxTotal:      p.TaxTotal,
		Total:         p.Total,
	}
}

// PayloadOf maps a persisted invoice back to the wire shape, dates
// normalized to calendar days.
func PayloadOf(inv models.Invoice) draft.Payload {
	return draft.Payload{
		Draft:    DraftOf(inv),
		Subtotal: inv.Subtotal,
		TaxTotal: inv.TaxTotal,
		Total:    inv.Total,
	}
}

// DraftOf hydrates an edit-mode draft from a persisted invoice.
func DraftOf(inv models.Invoice) draft.Draft {
	items := make([]draft.LineItem, len(inv.Items))
	for i, it := range inv.Items {
		items[i] = draft.LineItem{
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TaxPercent: it.TaxPercent,
		}
	}
	return draft.Draft{
		InvoiceNumber: inv.InvoiceNumber,
		InvoiceDate:   formatDay(inv.InvoiceDate),
		DueDate:       formatDay(inv.DueDate),
		BillFrom:      draft.Contact(inv.BillFrom),
		BillTo:        draft.Contact(inv.BillTo),
		Items:         items,
		Notes:         inv.Notes,
		PaymentTerms:  inv.PaymentTerms,
	}
}

func parseDay(s string) time.Time {
	t, err := time.Parse(draft.DayFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(draft.DayFormat)
}
