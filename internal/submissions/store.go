package submissions

import (
	"sync"
)

// userSlot holds one user's submission under its own lock, so operations on
// different users never contend with each other.
type userSlot struct {
	mu  sync.Mutex
	sub *Submission
}

// Store keeps the in-progress submission for each user. It is process-local
// and authoritative for flow control; persistence elsewhere is audit-only.
type Store struct {
	slots sync.Map // map[int64]*userSlot
}

// NewStore creates an empty submission store.
func NewStore() *Store {
	return &Store{}
}

func (st *Store) slot(userID int64) *userSlot {
	val, _ := st.slots.LoadOrStore(userID, &userSlot{})
	return val.(*userSlot)
}

// Create installs a new submission for its user. It fails with
// ErrAlreadyPending when an active submission already occupies the slot.
func (st *Store) Create(sub *Submission) error {
	slot := st.slot(sub.UserID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.sub != nil && slot.sub.Active() {
		return ErrAlreadyPending
	}
	slot.sub = sub
	return nil
}

// Get returns a snapshot of the user's active submission.
func (st *Store) Get(userID int64) (*Submission, bool) {
	slot := st.slot(userID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.sub == nil || !slot.sub.Active() {
		return nil, false
	}
	return slot.sub.Clone(), true
}

// Update runs fn on the user's active submission under the per-user lock.
// When fn returns an error the submission is left as fn left it; fn must not
// mutate on the error paths it reports.
func (st *Store) Update(userID int64, fn func(*Submission) error) error {
	slot := st.slot(userID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.sub == nil || !slot.sub.Active() {
		return ErrNoSubmission
	}
	return fn(slot.sub)
}

// Clear frees the user's slot, allowing a new submission immediately.
func (st *Store) Clear(userID int64) {
	slot := st.slot(userID)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	slot.sub = nil
}
