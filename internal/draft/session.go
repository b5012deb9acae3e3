package draft

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the submit lifecycle of a session. A failed submit returns the
// session to StateIdle with LastError set; there is no terminal failed state.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
)

var (
	ErrSubmitInFlight   = errors.New("submit already in progress")
	ErrAlreadySubmitted = errors.New("draft already submitted")
	ErrNotSubmittable   = errors.New("invoice number not assigned yet")
	ErrNoSuchItem       = errors.New("item index out of range")
)

// SaveFunc replaces the gateway call in embedded edit mode: the host decides
// how the finished payload is persisted.
type SaveFunc func(ctx context.Context, p Payload) error

// Options configures a new authoring session. Exactly one mode applies:
// Existing (edit) fully replaces the draft and skips prefill and allocation;
// otherwise a fresh draft is built from the profile, the prefill patch, and
// an allocated number.
type Options struct {
	Owner      uint
	Existing   *Draft
	ExistingID uint
	Profile    *Contact
	Prefill    *Prefill
	Gateway    Gateway
	OnSave     SaveFunc
	Now        func() time.Time
}

// Session owns one in-progress invoice. The draft is exclusively held by
// this session until submit; the mutex only serializes handler access, there
// is no cross-session sharing.
type Session struct {
	id         string
	owner      uint
	existingID uint
	gw         Gateway
	onSave     SaveFunc
	now        func() time.Time

	mu        sync.Mutex
	draft     Draft
	state     State
	lastError string
	savedID   uint
}

// Snapshot is the read model handed to callers: the draft plus its derived
// totals and submit status.
type Snapshot struct {
	ID        string  `json:"id"`
	Draft     Draft   `json:"draft"`
	Summary   Summary `json:"summary"`
	State     State   `json:"state"`
	LastError string  `json:"lastError,omitempty"`
	InvoiceID uint    `json:"invoiceId,omitempty"`
	EditMode  bool    `json:"editMode"`
}

// NewSession builds and initializes a session. In create mode the number
// allocation runs here, before the session is handed out, so the draft is
// never visible without its number.
func NewSession(ctx context.Context, opts Options) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Session{
		id:         uuid.NewString(),
		owner:      opts.Owner,
		existingID: opts.ExistingID,
		gw:         opts.Gateway,
		onSave:     opts.OnSave,
		now:        now,
		state:      StateIdle,
	}
	if opts.Existing != nil {
		s.draft = *opts.Existing
		if s.draft.Items == nil {
			s.draft.Items = []LineItem{}
		}
		s.draft.Items = append([]LineItem(nil), s.draft.Items...)
		return s
	}
	s.draft = New(now(), opts.Profile)
	if opts.Prefill != nil {
		opts.Prefill.apply(&s.draft)
	}
	if s.gw != nil {
		s.draft.InvoiceNumber = Allocator{Gateway: s.gw, Now: now}.Next(ctx)
	}
	return s
}

func (s *Session) ID() string { return s.id }

// Owner is the principal this session belongs to; the HTTP boundary refuses
// access from anyone else.
func (s *Session) Owner() uint { return s.owner }

// Snapshot recomputes totals from the current items on every call. The
// returned draft owns its item slice so later edits cannot race a reader.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.draft
	d.Items = append([]LineItem(nil), s.draft.Items...)
	return Snapshot{
		ID:        s.id,
		Draft:     d,
		Summary:   Totals(s.draft.Items),
		State:     s.state,
		LastError: s.lastError,
		InvoiceID: s.savedID,
		EditMode:  s.existingID != 0,
	}
}

// Apply routes one field edit into the draft. Any edit clears a previously
// surfaced submission error.
func (s *Session) Apply(e FieldEdit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Scope == ScopeItem && (e.Index < 0 || e.Index >= len(s.draft.Items)) {
		return ErrNoSuchItem
	}
	s.lastError = ""
	s.draft.Apply(e)
	return nil
}

// AddItem appends a blank line item.
func (s *Session) AddItem() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.AddItem()
}

// RemoveItem drops the item at index; the collection may become empty.
func (s *Session) RemoveItem(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.draft.Items) {
		return ErrNoSuchItem
	}
	s.draft.RemoveItem(index)
	return nil
}

// buildPayload stamps per-item totals and the invoice summary onto a copy of
// the draft. Caller holds the lock.
func (s *Session) buildPayload() Payload {
	sum := Totals(s.draft.Items)
	items := make([]LineItem, len(s.draft.Items))
	for i, it := range s.draft.Items {
		it.Total = ItemTotal(it)
		items[i] = it
	}
	d := s.draft
	d.Items = items
	return Payload{Draft: d, Subtotal: sum.Subtotal, TaxTotal: sum.TaxTotal, Total: sum.Total}
}

// Submit hands the whole draft plus computed totals to the persistence
// boundary in one request. Re-entry while submitting is rejected; on failure
// the session returns to idle with a user-visible message and nothing is
// lost. A draft with zero items is allowed through.
func (s *Session) Submit(ctx context.Context) (uint, error) {
	s.mu.Lock()
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		return 0, ErrSubmitInFlight
	case StateSucceeded:
		s.mu.Unlock()
		return 0, ErrAlreadySubmitted
	}
	if s.existingID == 0 && s.draft.InvoiceNumber == "" {
		s.mu.Unlock()
		return 0, ErrNotSubmittable
	}
	s.state = StateSubmitting
	payload := s.buildPayload()
	s.mu.Unlock()

	var id uint
	var err error
	switch {
	case s.onSave != nil:
		err = s.onSave(ctx, payload)
		id = s.existingID
	case s.existingID != 0:
		err = s.gw.Update(ctx, s.existingID, payload)
		id = s.existingID
	default:
		id, err = s.gw.Create(ctx, payload)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateIdle
		s.lastError = submitMessage(err, s.existingID == 0)
		return 0, err
	}
	s.state = StateSucceeded
	s.savedID = id
	return id, nil
}

// submitMessage prefers the gateway's structured detail, falling back to a
// generic message.
func submitMessage(err error, creating bool) string {
	var ge *GatewayError
	if errors.As(err, &ge) && ge.Detail != "" {
		return ge.Detail
	}
	if creating {
		return "Failed to create invoice."
	}
	return "Failed to update invoice."
}

// Registry is the in-memory set of live authoring sessions. A session that
// is never submitted is simply removed (or left to die with the process);
// nothing is rolled back.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}
