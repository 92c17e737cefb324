package submissions

import (
	"errors"
	"time"
)

// Step identifies the current position of a submission in the intake flow.
type Step string

const (
	// StepAwaitingConfirmation: the AI variant was offered, waiting for keep/edit.
	StepAwaitingConfirmation Step = "awaiting_confirmation"
	// StepAwaitingManualText: the user chose to write the text themselves.
	StepAwaitingManualText Step = "awaiting_manual_text"
	// StepCollectingPhotos: waiting for 1..10 photos, single or album.
	StepCollectingPhotos Step = "collecting_photos"
	// StepAwaitingAddress: photos stored, waiting for the address.
	StepAwaitingAddress Step = "awaiting_address"
	// StepAwaitingPrice: address stored, waiting for the price.
	StepAwaitingPrice Step = "awaiting_price"
	// StepSubmitted: handed to moderation, waiting for a decision.
	StepSubmitted Step = "submitted"
)

// Status is the lifecycle status of a submission.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusDeclined  Status = "declined"
)

// Error taxonomy reported to users as notices; none of these mutate state.
var (
	// ErrAlreadyPending: a new submission was attempted while one is active.
	ErrAlreadyPending = errors.New("an active submission already exists")
	// ErrPhotosExpected: text arrived while photos were expected.
	ErrPhotosExpected = errors.New("photos expected at this step")
	// ErrNoSubmission: the user has no active submission.
	ErrNoSubmission = errors.New("no active submission")
	// ErrWrongStep: the input does not match the submission's current step.
	ErrWrongStep = errors.New("input does not match the current step")
)

// Submission is one user's in-progress listing. A user has at most one
// submission with status draft or pending at any time.
type Submission struct {
	UserID       int64
	ChatID       int64
	Username     string
	Step         Step
	RawText      string
	ImprovedText string
	Price        string
	Address      string
	Photos       []string
	Status       Status
	CreatedAt    time.Time
}

// New creates a draft submission from the first inbound description.
// ImprovedText defaults to the raw text until the rewrite result arrives.
func New(userID, chatID int64, username, rawText string) *Submission {
	return &Submission{
		UserID:       userID,
		ChatID:       chatID,
		Username:     username,
		Step:         StepAwaitingConfirmation,
		RawText:      rawText,
		ImprovedText: rawText,
		Status:       StatusDraft,
		CreatedAt:    time.Now(),
	}
}

// Active reports whether the submission occupies the user's slot.
func (s *Submission) Active() bool {
	return s.Status == StatusDraft || s.Status == StatusPending
}

// Clone returns a deep copy safe to use outside the store's per-user lock.
func (s *Submission) Clone() *Submission {
	out := *s
	out.Photos = make([]string, len(s.Photos))
	copy(out.Photos, s.Photos)
	return &out
}
