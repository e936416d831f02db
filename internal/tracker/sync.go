package tracker

import "gitlab.com/yelinaung/subday/internal/models"

// SyncKind is the stage of a record's last local change.
type SyncKind string

// Sync kinds.
const (
	SyncPending   SyncKind = "pending"
	SyncCommitted SyncKind = "committed"
	SyncFailed    SyncKind = "failed"
)

// SyncState tells whether a record's local value matches the store.
// Reason is set only for failed writes.
type SyncState struct {
	Kind   SyncKind `json:"state"`
	Reason string   `json:"reason,omitempty"`
}

// Pending is a change sent to the store and not yet confirmed.
func Pending() SyncState { return SyncState{Kind: SyncPending} }

// Committed means the store holds the local value.
func Committed() SyncState { return SyncState{Kind: SyncCommitted} }

// Failed is a rejected write. The local value is kept until Retry or Revert.
func Failed(reason string) SyncState { return SyncState{Kind: SyncFailed, Reason: reason} }

// IsPending reports whether a write is in flight.
func (s SyncState) IsPending() bool { return s.Kind == SyncPending }

// IsFailed reports whether the last write was rejected.
func (s SyncState) IsFailed() bool { return s.Kind == SyncFailed }

// Record is a subscription with its sync state.
type Record struct {
	models.Subscription
	Sync SyncState `json:"sync"`
}
