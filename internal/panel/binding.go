package panel

import (
	"fmt"
	"sync"
)

// Status is the lifecycle state of a single field.
type Status int

const (
	// StatusIdle means the field has not been read yet
	StatusIdle Status = iota
	// StatusLoading means a read is in flight
	StatusLoading
	// StatusReady means the field holds the last value read or written
	StatusReady
	// StatusError means the last read or write failed; Value is stale
	StatusError
	// StatusIndeterminate means a toggle write failed and the agent's state is unknown
	StatusIndeterminate
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	case StatusIndeterminate:
		return "indeterminate"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Placeholder and display texts.
const (
	LoadingText     = "Loading..."
	UnavailableText = "Unavailable"

	InvalidPlaceholder = "Invalid data"
	SuccessPlaceholder = "SUCCESSFUL"
	FailedPlaceholder  = "Update failed"
)

// FieldState is what a rendering surface needs to draw one field.
type FieldState struct {
	Value       string // text value; for toggles the Enabled/Disabled label
	Checked     bool   // toggles only
	Status      Status
	Placeholder string // input fields only
	Err         error  // last failure, nil when Status is not an error state
}

// Display returns the text to show for the field.
func (s FieldState) Display() string {
	if s.Status == StatusLoading {
		return LoadingText
	}
	if s.Value == "" && (s.Status == StatusError || s.Status == StatusIndeterminate) {
		return UnavailableText
	}
	return s.Value
}

// Binding is the field set shared by the mirror, the dispatcher and
// whatever renders the panel.
type Binding interface {
	Field(id FieldID) FieldState
	Update(id FieldID, fn func(*FieldState))
}

// Board is the in-memory Binding. It is safe for concurrent use and
// notifies subscribers after every update.
type Board struct {
	mu     sync.RWMutex
	fields map[FieldID]FieldState

	subMu  sync.Mutex
	subs   map[int]chan FieldID
	nextID int
}

// subscriberBuffer is how many change notifications a slow subscriber may
// fall behind before notifications for it are dropped.
const subscriberBuffer = 64

// NewBoard returns a board with every panel field idle.
func NewBoard() *Board {
	b := &Board{
		fields: make(map[FieldID]FieldState),
		subs:   make(map[int]chan FieldID),
	}
	for _, id := range AllFields() {
		b.fields[id] = FieldState{}
	}
	return b
}

// Field implements Binding.
func (b *Board) Field(id FieldID) FieldState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.fields[id]
}

// Update implements Binding. fn runs with the board locked and must not
// call back into the board.
func (b *Board) Update(id FieldID, fn func(*FieldState)) {
	b.mu.Lock()
	state := b.fields[id]
	fn(&state)
	b.fields[id] = state
	b.mu.Unlock()

	b.notify(id)
}

// Snapshot returns a copy of every field.
func (b *Board) Snapshot() map[FieldID]FieldState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[FieldID]FieldState, len(b.fields))
	for id, s := range b.fields {
		out[id] = s
	}
	return out
}

// Subscribe returns a channel receiving the ID of every changed field and a
// function that ends the subscription. Notifications are dropped rather
// than blocking an update, so subscribers should redraw from Snapshot.
func (b *Board) Subscribe() (<-chan FieldID, func()) {
	ch := make(chan FieldID, subscriberBuffer)

	b.subMu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.subMu.Lock()
			delete(b.subs, id)
			b.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (b *Board) notify(id FieldID) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- id:
		default:
		}
	}
}
