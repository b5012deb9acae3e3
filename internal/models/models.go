package models

import "time"

// User is the authenticated principal. BusinessName/Address/Phone form the
// optional billing profile used to seed billFrom on a brand-new draft.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"index" json:"name"`
	Email        string    `gorm:"unique;not null;index" json:"email"`
	Password     string    `gorm:"not null" json:"-"` // bcrypt hash
	BusinessName string    `json:"businessName"`
	Address      string    `json:"address"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Contact is an embedded bill-from / bill-to block.
type Contact struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Invoice is the persisted shape of a submitted draft: the draft fields plus
// the totals computed at submit time.
type Invoice struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	UserID        uint          `gorm:"not null;index" json:"-"`
	InvoiceNumber string        `gorm:"not null;index" json:"invoiceNumber"`
	InvoiceDate   time.Time     `json:"invoiceDate"`
	DueDate       time.Time     `json:"dueDate"`
	BillFrom      Contact       `gorm:"embedded;embeddedPrefix:bill_from_" json:"billFrom"`
	BillTo        Contact       `gorm:"embedded;embeddedPrefix:bill_to_" json:"billTo"`
	Items         []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	Notes         string        `json:"notes"`
	PaymentTerms  string        `json:"paymentTerms"`
	Subtotal      float64       `json:"subtotal"`
	TaxTotal      float64       `json:"taxTotal"`
	Total         float64       `json:"total"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// InvoiceItem is one billable row. Total is set at submit time; during
// editing the per-item total is always derived, never stored.
type InvoiceItem struct {
	ID         uint    `gorm:"primaryKey" json:"-"`
	InvoiceID  uint    `gorm:"not null;index" json:"-"`
	Position   int     `gorm:"not null" json:"-"` // display order
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	TaxPercent float64 `json:"taxPercent"`
	Total      float64 `json:"total"`
}
