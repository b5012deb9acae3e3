// Package draft holds the invoice authoring core: the in-progress invoice
// aggregate, the routing of field edits into its nested blocks, the derived
// totals projection, the sequential number allocator, and the submit state
// machine. Persistence is reached only through the Gateway interface.
package draft

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DayFormat is the calendar-day granularity used for invoice dates.
const DayFormat = "2006-01-02"

// Contact is a bill-from or bill-to block.
type Contact struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// LineItem is one billable row. Total stays zero while editing; it is filled
// in only on the payload handed to the persistence boundary.
type LineItem struct {
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	TaxPercent float64 `json:"taxPercent"`
	Total      float64 `json:"total"`
}

// Draft is the in-progress invoice. Totals are never stored here; they are
// recomputed from Items on every read via Totals.
type Draft struct {
	InvoiceNumber string     `json:"invoiceNumber"`
	InvoiceDate   string     `json:"invoiceDate"`
	DueDate       string     `json:"dueDate"`
	BillFrom      Contact    `json:"billFrom"`
	BillTo        Contact    `json:"billTo"`
	Items         []LineItem `json:"items"`
	Notes         string     `json:"notes"`
	PaymentTerms  string     `json:"paymentTerms"`
}

// DefaultItem is the blank row appended by AddItem and seeded into a new draft.
func DefaultItem() LineItem { return LineItem{Quantity: 1} }

// New returns a fresh create-mode draft dated today, optionally seeded with
// the principal's billing profile. The invoice number is assigned separately
// by the allocator.
func New(now time.Time, profile *Contact) Draft {
	d := Draft{
		InvoiceDate:  now.Format(DayFormat),
		Items:        []LineItem{DefaultItem()},
		PaymentTerms: "Net 15",
	}
	if profile != nil {
		d.BillFrom = *profile
	}
	return d
}

// AddItem appends a blank row. Existing rows keep their position.
func (d *Draft) AddItem() {
	d.Items = append(d.Items, DefaultItem())
}

// RemoveItem drops the row at i, shifting later rows down. Removing the last
// row leaves an empty collection; no minimum is enforced. The index must be
// in range (the session boundary checks before calling).
func (d *Draft) RemoveItem(i int) {
	d.Items = append(d.Items[:i], d.Items[i+1:]...)
}

// Scope selects the slot an edit lands in.
type Scope int

const (
	ScopeRoot Scope = iota
	ScopeBillFrom
	ScopeBillTo
	ScopeItem
)

// FieldEdit is a routed edit command. Index is meaningful only for ScopeItem.
// Values arrive as strings from the form boundary; numeric item fields are
// parsed leniently so malformed input never blocks editing.
type FieldEdit struct {
	Scope Scope
	Index int
	Field string
	Value string
}

// Apply routes the edit into the draft. Unknown field names are ignored:
// the aggregate has no dynamic slots. No validation happens here.
func (d *Draft) Apply(e FieldEdit) {
	switch e.Scope {
	case ScopeItem:
		applyItem(&d.Items[e.Index], e.Field, e.Value)
	case ScopeBillFrom:
		applyContact(&d.BillFrom, e.Field, e.Value)
	case ScopeBillTo:
		applyContact(&d.BillTo, e.Field, e.Value)
	default:
		d.applyRoot(e.Field, e.Value)
	}
}

func (d *Draft) applyRoot(field, value string) {
	switch field {
	case "invoiceNumber":
		d.InvoiceNumber = value
	case "invoiceDate":
		d.InvoiceDate = value
	case "dueDate":
		d.DueDate = value
	case "notes":
		d.Notes = value
	case "paymentTerms":
		d.PaymentTerms = value
	}
}

func applyContact(c *Contact, field, value string) {
	switch field {
	case "name":
		c.Name = value
	case "email":
		c.Email = value
	case "address":
		c.Address = value
	case "phone":
		c.Phone = value
	}
}

func applyItem(it *LineItem, field, value string) {
	switch field {
	case "name":
		it.Name = value
	case "quantity":
		it.Quantity = parseAmount(value)
	case "unitPrice":
		it.UnitPrice = parseAmount(value)
	case "taxPercent":
		it.TaxPercent = parseAmount(value)
	}
}

// parseAmount converts form input to a number, treating anything malformed
// as 0 so editing is never rejected.
func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
