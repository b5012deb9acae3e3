package draft

// contactRoutes maps the flat form field names used by the authoring UI to
// their nested contact slot. Any name absent from this table routes to the
// draft root.
var contactRoutes = map[string]FieldEdit{
	"businessName":  {Scope: ScopeBillFrom, Field: "name"},
	"emailFrom":     {Scope: ScopeBillFrom, Field: "email"},
	"addressFrom":   {Scope: ScopeBillFrom, Field: "address"},
	"phoneFrom":     {Scope: ScopeBillFrom, Field: "phone"},
	"clientName":    {Scope: ScopeBillTo, Field: "name"},
	"clientEmail":   {Scope: ScopeBillTo, Field: "email"},
	"clientAddress": {Scope: ScopeBillTo, Field: "address"},
	"clientPhone":   {Scope: ScopeBillTo, Field: "phone"},
}

// SectionItems tags an edit as targeting a line item.
const SectionItems = "items"

// Route turns a raw (name, section, index, value) form event into a tagged
// edit command. It is purely structural; Apply does the mutation.
func Route(name, section string, index int, value string) FieldEdit {
	if section == SectionItems {
		return FieldEdit{Scope: ScopeItem, Index: index, Field: name, Value: value}
	}
	if e, ok := contactRoutes[name]; ok {
		e.Value = value
		return e
	}
	return FieldEdit{Scope: ScopeRoot, Field: name, Value: value}
}
