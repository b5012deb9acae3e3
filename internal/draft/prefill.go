package draft

// Prefill is partial invoice data supplied by an upstream extraction step,
// carried on the navigation that opened the authoring session. It is applied
// once, on create only.
type Prefill struct {
	ClientName string     `json:"clientName"`
	Email      string     `json:"email"`
	Address    string     `json:"address"`
	Items      []LineItem `json:"items"`
}

// apply patches billTo (phone stays blank, the extracted shape has none) and
// replaces the item list wholesale when one was supplied. Everything else on
// the draft is untouched.
func (p *Prefill) apply(d *Draft) {
	d.BillTo = Contact{Name: p.ClientName, Email: p.Email, Address: p.Address}
	if len(p.Items) > 0 {
		d.Items = append([]LineItem(nil), p.Items...)
	}
}
