package moderation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"classifieds-bot/internal/auth"
	"classifieds-bot/internal/database"
	"classifieds-bot/internal/database/models"
	"classifieds-bot/internal/locales"
	"classifieds-bot/internal/outbound"
	"classifieds-bot/internal/submissions"
	"classifieds-bot/pkg/telegoapi"
)

// Decision is the moderation outcome of a ticket.
type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

var (
	// ErrUnauthorized: the actor is not a recognized administrator.
	ErrUnauthorized = errors.New("actor is not an administrator")
	// ErrAlreadyDecided: the ticket already has a decision; no side effects rerun.
	ErrAlreadyDecided = errors.New("ticket already decided")
	// ErrTicketNotFound: the ticket reference does not resolve.
	ErrTicketNotFound = errors.New("ticket not found")
)

// reviewMessage locates one admin's copy of the review controls.
type reviewMessage struct {
	chatID    int64
	messageID int
}

// Ticket tracks the moderation decision for one completed submission.
// The decision transition is accepted exactly once.
type Ticket struct {
	ID         string
	Submission *submissions.Submission // snapshot taken at submit time
	Seq        int64                   // audit record number, 0 when auditing is off

	mu         sync.Mutex
	decision   Decision
	decidedBy  int64
	createdAt  time.Time
	decidedAt  time.Time
	reviewMsgs []reviewMessage
}

// Decision returns the ticket's current decision.
func (t *Ticket) Decision() Decision {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.decision
}

// Queue fans completed submissions out to the administrators and routes
// their decisions back to the submitter and the public channel.
type Queue struct {
	bot       telegoapi.BotAPI
	checker   *auth.AdminChecker
	channelID int64
	store     *submissions.Store
	repo      database.ListingRepository

	tickets sync.Map // map[string]*Ticket
}

// NewQueue creates a moderation queue.
func NewQueue(
	bot telegoapi.BotAPI,
	checker *auth.AdminChecker,
	channelID int64,
	store *submissions.Store,
	repo database.ListingRepository,
) *Queue {
	if bot == nil {
		log.Fatal("Moderation Queue: BotAPI instance is nil")
	}
	if checker == nil {
		log.Fatal("Moderation Queue: admin checker is nil")
	}
	if channelID == 0 {
		log.Fatal("Moderation Queue: target channel ID is not set")
	}
	if store == nil {
		log.Fatal("Moderation Queue: submission store is nil")
	}
	if repo == nil {
		log.Fatal("Moderation Queue: listing repository is nil")
	}

	return &Queue{
		bot:       bot,
		checker:   checker,
		channelID: channelID,
		store:     store,
		repo:      repo,
	}
}

// SubmitForReview creates a ticket for the submission and sends the rendered
// listing with approve/reject controls to every administrator. It fails only
// when no administrator could be notified.
func (q *Queue) SubmitForReview(ctx context.Context, sub *submissions.Submission) error {
	snapshot := sub.Clone()
	lz := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	ticket := &Ticket{
		ID:         primitive.NewObjectID().Hex(),
		Submission: snapshot,
		decision:   DecisionPending,
		createdAt:  time.Now(),
	}

	listing := &models.Listing{
		UserID:       snapshot.UserID,
		Username:     snapshot.Username,
		ChatID:       snapshot.ChatID,
		RawText:      snapshot.RawText,
		ImprovedText: snapshot.ImprovedText,
		Price:        snapshot.Price,
		Address:      snapshot.Address,
		PhotoFileIDs: snapshot.Photos,
		Status:       string(submissions.StatusPending),
	}
	if err := q.repo.CreateListing(ctx, listing); err != nil {
		log.Printf("[Moderation Ticket:%s] Failed to record listing audit entry: %v", ticket.ID, err)
		sentry.CaptureException(err)
	} else {
		ticket.Seq = listing.Seq
	}

	caption := locales.GetMessage(lz, "MsgModerationNewListing", nil, nil) + "\n\n" + renderCaption(lz, snapshot)
	keyboard := reviewKeyboard(lz, ticket.ID)

	notified := 0
	for _, adminID := range q.checker.AdminIDs() {
		controlMsg, err := q.sendReview(ctx, adminID, snapshot, caption, keyboard)
		if err != nil {
			log.Printf("[Moderation Ticket:%s] Failed to notify admin %d: %v", ticket.ID, adminID, err)
			sentry.CaptureException(err)
			continue
		}
		notified++
		if controlMsg != nil {
			ticket.reviewMsgs = append(ticket.reviewMsgs, reviewMessage{
				chatID:    adminID,
				messageID: controlMsg.MessageID,
			})
		}
	}
	if notified == 0 {
		return fmt.Errorf("ticket %s: no administrator could be notified", ticket.ID)
	}

	q.tickets.Store(ticket.ID, ticket)
	log.Printf("[Moderation Ticket:%s] Submission from user %d sent to %d admin(s).", ticket.ID, snapshot.UserID, notified)
	return nil
}

// sendReview delivers one admin's copy of the review. For a single photo the
// caption and controls ride on the photo itself; an album cannot carry a
// keyboard, so a separate control message follows it.
func (q *Queue) sendReview(
	ctx context.Context,
	adminID int64,
	sub *submissions.Submission,
	caption string,
	keyboard *telego.InlineKeyboardMarkup,
) (*telego.Message, error) {
	if len(sub.Photos) == 1 {
		return q.bot.SendPhoto(ctx, &telego.SendPhotoParams{
			ChatID:      tu.ID(adminID),
			Photo:       telego.InputFile{FileID: sub.Photos[0]},
			Caption:     caption,
			ReplyMarkup: keyboard,
		})
	}

	if _, err := q.bot.SendMediaGroup(ctx, &telego.SendMediaGroupParams{
		ChatID: tu.ID(adminID),
		Media:  outbound.InputMediaPhotos(sub.Photos, caption),
	}); err != nil {
		return nil, err
	}

	lz := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	params := tu.Message(tu.ID(adminID), locales.GetMessage(lz, "MsgModerationPrompt", nil, nil))
	params.ReplyMarkup = keyboard
	return q.bot.SendMessage(ctx, params)
}

// Decide applies an administrator's decision to a ticket. The first caller to
// observe a pending ticket wins; later callers get ErrAlreadyDecided and no
// side effects rerun. A failed publication reverts the ticket to pending so
// the approval can be retried.
func (q *Queue) Decide(ctx context.Context, ticketID string, actorID int64, decision Decision) error {
	if !q.checker.IsAdmin(actorID) {
		return ErrUnauthorized
	}
	if decision != DecisionApproved && decision != DecisionRejected {
		return fmt.Errorf("invalid decision %q", decision)
	}

	val, ok := q.tickets.Load(ticketID)
	if !ok {
		return ErrTicketNotFound
	}
	ticket := val.(*Ticket)

	ticket.mu.Lock()
	if ticket.decision != DecisionPending {
		ticket.mu.Unlock()
		return ErrAlreadyDecided
	}
	ticket.decision = decision
	ticket.decidedBy = actorID
	ticket.decidedAt = time.Now()
	ticket.mu.Unlock()

	if decision == DecisionApproved {
		if err := q.publish(ctx, ticket); err != nil {
			ticket.mu.Lock()
			ticket.decision = DecisionPending
			ticket.decidedBy = 0
			ticket.decidedAt = time.Time{}
			ticket.mu.Unlock()
			sentry.CaptureException(err)
			return fmt.Errorf("publish listing for ticket %s: %w", ticketID, err)
		}
	}

	q.finalize(ctx, ticket, decision, actorID)
	return nil
}

// publish broadcasts the approved listing to the public channel with a
// contact affordance back to the submitter.
func (q *Queue) publish(ctx context.Context, ticket *Ticket) error {
	sub := ticket.Submission
	lz := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	caption := renderCaption(lz, sub)

	if len(sub.Photos) == 1 {
		_, err := q.bot.SendPhoto(ctx, &telego.SendPhotoParams{
			ChatID:      tu.ID(q.channelID),
			Photo:       telego.InputFile{FileID: sub.Photos[0]},
			Caption:     caption,
			ReplyMarkup: contactKeyboard(lz, sub.Username),
		})
		return err
	}

	// Albums cannot carry an inline keyboard; the seller line in the caption
	// is the contact affordance.
	_, err := q.bot.SendMediaGroup(ctx, &telego.SendMediaGroupParams{
		ChatID: tu.ID(q.channelID),
		Media:  outbound.InputMediaPhotos(sub.Photos, caption),
	})
	return err
}

// finalize notifies the submitter, frees their slot, records the audit
// outcome and strips the review keyboards. Failures here are logged only;
// the decision itself is already committed.
func (q *Queue) finalize(ctx context.Context, ticket *Ticket, decision Decision, actorID int64) {
	sub := ticket.Submission
	lz := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	q.store.Clear(sub.UserID)

	noticeID := "MsgDeclinedNotice"
	status := string(submissions.StatusDeclined)
	if decision == DecisionApproved {
		noticeID = "MsgPublishedNotice"
		status = string(submissions.StatusPublished)
	}

	if _, err := q.bot.SendMessage(ctx, tu.Message(tu.ID(sub.ChatID),
		locales.GetMessage(lz, noticeID, nil, nil))); err != nil {
		log.Printf("[Moderation Ticket:%s] Failed to notify submitter %d: %v", ticket.ID, sub.UserID, err)
	}

	if ticket.Seq != 0 {
		if err := q.repo.UpdateListingStatus(ctx, ticket.Seq, status, actorID); err != nil {
			log.Printf("[Moderation Ticket:%s] Failed to update audit record: %v", ticket.ID, err)
			sentry.CaptureException(err)
		}
	}

	ticket.mu.Lock()
	reviewMsgs := make([]reviewMessage, len(ticket.reviewMsgs))
	copy(reviewMsgs, ticket.reviewMsgs)
	ticket.mu.Unlock()

	for _, rm := range reviewMsgs {
		if _, err := q.bot.EditMessageReplyMarkup(ctx, &telego.EditMessageReplyMarkupParams{
			ChatID:    tu.ID(rm.chatID),
			MessageID: rm.messageID,
		}); err != nil {
			log.Printf("[Moderation Ticket:%s] Failed to strip review keyboard in chat %d: %v", ticket.ID, rm.chatID, err)
		}
	}

	log.Printf("[Moderation Ticket:%s] Decision %s by admin %d.", ticket.ID, decision, actorID)
}
