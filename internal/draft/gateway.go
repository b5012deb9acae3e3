package draft

import (
	"context"
	"fmt"
)

// Payload is the wire shape handed to the persistence boundary: the whole
// draft plus the totals computed at submit time. Per-item totals are filled
// in on its Items.
type Payload struct {
	Draft
	Subtotal float64 `json:"subtotal"`
	TaxTotal float64 `json:"taxTotal"`
	Total    float64 `json:"total"`
}

// Gateway is the persistence boundary as seen from the authoring core. List
// returns the principal's previously created invoices (used by the number
// allocator); Create and Update persist a submitted draft atomically.
type Gateway interface {
	List(ctx context.Context) ([]Payload, error)
	Create(ctx context.Context, p Payload) (uint, error)
	Update(ctx context.Context, id uint, p Payload) error
}

// GatewayError is a structured persistence failure. Detail, when set, is
// safe to surface to the user.
type GatewayError struct {
	Status int
	Code   string
	Detail string
}

func (e *GatewayError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Detail)
	}
	return e.Code
}
