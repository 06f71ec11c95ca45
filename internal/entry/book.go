package entry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Choice is the participation path a payer selected for the current round.
type Choice int32

const (
	ChoiceVoteOnly Choice = iota
	ChoiceUpload
)

func (c Choice) String() string {
	if c == ChoiceUpload {
		return "upload"
	}
	return "vote_only"
}

// NotifyResult is the outcome of a payment notification.
type NotifyResult int32

const (
	NotifyAccepted NotifyResult = iota
	NotifyAlreadyProcessed
)

// PendingEntry is a payer awaiting settlement. The reference is the globally
// unique idempotency key for the payment pipeline and is never reused.
type PendingEntry struct {
	PayerID      int64
	Reference    string
	Choice       Choice
	DisplayName  string
	MediaRef     string
	Title        string
	DurationSec  int64 // 0 = unknown
	Lamports     int64
	PayerAddress string
	CreatedAt    time.Time
	Paid         bool
	Confirmed    bool
}

// Book is the payment ledger of pending entries. It carries its own lock so
// duplicate notifications are rejected idempotently without waiting behind an
// in-flight venue call on the engine's control flow.
type Book struct {
	mu      sync.Mutex
	byRef   map[string]*PendingEntry
	byPayer map[int64]string
}

func NewBook() *Book {
	return &Book{
		byRef:   make(map[string]*PendingEntry),
		byPayer: make(map[int64]string),
	}
}

// RegisterChoice creates (or updates) the payer's pending entry and returns
// its reference. At most one entry exists per payer per round: a repeated
// registration updates the choice on the existing entry and keeps the same
// reference, so the payment notifier always resolves to one entry.
func (b *Book) RegisterChoice(payerID int64, displayName string, choice Choice, now time.Time) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ref, ok := b.byPayer[payerID]; ok {
		e := b.byRef[ref]
		if !e.Confirmed {
			e.Choice = choice
			e.DisplayName = displayName
		}
		return ref
	}

	ref := uuid.NewString()
	e := &PendingEntry{
		PayerID:     payerID,
		Reference:   ref,
		Choice:      choice,
		DisplayName: displayName,
		CreatedAt:   now,
	}
	b.byRef[ref] = e
	b.byPayer[payerID] = ref
	return ref
}

// AttachMedia records the payer's uploaded track on their pending entry.
func (b *Book) AttachMedia(payerID int64, mediaRef, title string, durationSec int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	ref, ok := b.byPayer[payerID]
	if !ok {
		return false
	}

	e := b.byRef[ref]
	e.MediaRef = mediaRef
	e.Title = title
	e.DurationSec = durationSec
	return true
}

// RecordNotification applies a payment notification.
//
//   - Confirmed reference → NotifyAlreadyProcessed, no mutation. Safe to call
//     arbitrarily many times for the same reference.
//   - Known unconfirmed reference → mark paid+confirmed, record amount.
//   - Unknown reference → create a VoteOnly entry and confirm it (the payment
//     outran the choice registration).
//
// Amount/address validation happens before this call; the book never rejects.
func (b *Book) RecordNotification(reference string, payerID, lamports int64, payerAddress string, now time.Time) (NotifyResult, *PendingEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.byRef[reference]; ok {
		if e.Confirmed {
			return NotifyAlreadyProcessed, e
		}
		e.Paid = true
		e.Confirmed = true
		e.Lamports = lamports
		e.PayerAddress = payerAddress
		return NotifyAccepted, e
	}

	e := &PendingEntry{
		PayerID:      payerID,
		Reference:    reference,
		Choice:       ChoiceVoteOnly,
		Lamports:     lamports,
		PayerAddress: payerAddress,
		CreatedAt:    now,
		Paid:         true,
		Confirmed:    true,
	}
	b.byRef[reference] = e
	b.byPayer[payerID] = reference
	return NotifyAccepted, e
}

// Known reports whether the reference exists in the book, confirmed or not.
func (b *Book) Known(reference string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.byRef[reference]
	return ok
}

// Get returns the entry for a reference.
func (b *Book) Get(reference string) (*PendingEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.byRef[reference]
	return e, ok
}

// Remove deletes a settled entry.
func (b *Book) Remove(reference string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.byRef[reference]; ok {
		delete(b.byPayer, e.PayerID)
		delete(b.byRef, reference)
	}
}

// Sweep purges entries older than ttl, measured against each entry's own
// CreatedAt (falling back to roundStart when unset). Confirmed entries are
// skipped — they are already queued for settlement and will be removed by it.
// Returns the purged entries for best-effort payer notification.
func (b *Book) Sweep(now time.Time, ttl time.Duration, roundStart time.Time) []*PendingEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	var purged []*PendingEntry
	for ref, e := range b.byRef {
		if e.Confirmed {
			continue
		}
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = roundStart
		}
		if now.Sub(createdAt) >= ttl {
			purged = append(purged, e)
			delete(b.byPayer, e.PayerID)
			delete(b.byRef, ref)
		}
	}
	return purged
}

// Clear drops all pending entries (round reset).
func (b *Book) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byRef = make(map[string]*PendingEntry)
	b.byPayer = make(map[int64]string)
}

// Len returns the number of pending entries.
func (b *Book) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byRef)
}

// Snapshot returns copies of all entries for persistence.
func (b *Book) Snapshot() []PendingEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]PendingEntry, 0, len(b.byRef))
	for _, e := range b.byRef {
		out = append(out, *e)
	}
	return out
}

// Restore replaces the book's contents from a snapshot.
func (b *Book) Restore(entries []PendingEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.byRef = make(map[string]*PendingEntry, len(entries))
	b.byPayer = make(map[int64]string, len(entries))
	for i := range entries {
		e := entries[i]
		b.byRef[e.Reference] = &e
		b.byPayer[e.PayerID] = e.Reference
	}
}
