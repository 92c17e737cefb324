package submissions

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"

	"classifieds-bot/internal/albums"
	"classifieds-bot/internal/locales"
	"classifieds-bot/internal/outbound"
	"classifieds-bot/pkg/telegoapi"
)

// Callback data for the text confirmation keyboard.
const (
	CallbackKeepText = "text:keep"
	CallbackEditText = "text:edit"
)

// Rewriter produces an improved listing description. Implementations must
// fail open: on any failure they return the original text.
type Rewriter interface {
	Rewrite(ctx context.Context, text string) string
}

// Moderator receives completed submissions for review.
type Moderator interface {
	SubmitForReview(ctx context.Context, sub *Submission) error
}

// Manager drives each user's submission through the intake flow. Inbound
// events mutate the submission via transitions in fsm.go; the resulting
// outbound commands are executed against the bot.
type Manager struct {
	bot             telegoapi.BotAPI
	store           *Store
	albums          *albums.Manager
	rewriter        Rewriter
	moderator       Moderator
	supportUsername string
}

// NewManager creates a submission manager.
func NewManager(
	bot telegoapi.BotAPI,
	store *Store,
	albumMgr *albums.Manager,
	rewriter Rewriter,
	moderator Moderator,
	supportUsername string,
) *Manager {
	if bot == nil {
		log.Fatal("Submission Manager: BotAPI instance is nil")
	}
	if store == nil {
		log.Fatal("Submission Manager: store is nil")
	}
	if albumMgr == nil {
		log.Fatal("Submission Manager: album manager is nil")
	}
	if rewriter == nil {
		log.Fatal("Submission Manager: rewriter is nil")
	}
	if moderator == nil {
		log.Fatal("Submission Manager: moderator is nil")
	}

	return &Manager{
		bot:             bot,
		store:           store,
		albums:          albumMgr,
		rewriter:        rewriter,
		moderator:       moderator,
		supportUsername: supportUsername,
	}
}

// HandleText processes a non-command text message from a user.
func (m *Manager) HandleText(ctx context.Context, message telego.Message) error {
	userID := message.From.ID
	chatID := message.Chat.ID
	lz := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	if _, ok := m.store.Get(userID); !ok {
		return m.startSubmission(ctx, message, lz)
	}

	var (
		cmds      []outbound.Command
		completed bool
	)
	err := m.store.Update(userID, func(s *Submission) error {
		var applyErr error
		cmds, completed, applyErr = applyText(s, message.Text, lz)
		return applyErr
	})

	switch {
	case errors.Is(err, ErrNoSubmission):
		// The slot was freed between Get and Update (moderator decided); treat
		// the message as a fresh submission.
		return m.startSubmission(ctx, message, lz)
	case errors.Is(err, ErrAlreadyPending):
		return m.sendNotice(ctx, chatID, lz, "MsgAlreadyPending")
	case errors.Is(err, ErrPhotosExpected):
		return m.sendNotice(ctx, chatID, lz, "MsgPhotoRequired")
	case err != nil:
		return err
	}

	if completed {
		return m.submitForReview(ctx, userID, chatID, lz)
	}
	return outbound.Execute(ctx, m.bot, cmds)
}

// startSubmission creates a draft from the first description message, offers
// the AI variant and asks the user to keep or rewrite it.
func (m *Manager) startSubmission(ctx context.Context, message telego.Message, lz *i18n.Localizer) error {
	userID := message.From.ID
	chatID := message.Chat.ID

	sub := New(userID, chatID, message.From.Username, message.Text)
	if err := m.store.Create(sub); err != nil {
		if errors.Is(err, ErrAlreadyPending) {
			return m.sendNotice(ctx, chatID, lz, "MsgAlreadyPending")
		}
		return err
	}

	// Placeholder shown while the rewrite runs; edited in place with the result.
	placeholder, sendErr := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID),
		locales.GetMessage(lz, "MsgAIThinking", nil, nil)))
	if sendErr != nil {
		log.Printf("[Submissions User:%d] Failed to send AI placeholder: %v", userID, sendErr)
	}

	improved := m.rewriter.Rewrite(ctx, message.Text)
	if err := m.store.Update(userID, func(s *Submission) error {
		s.ImprovedText = improved
		return nil
	}); err != nil {
		// The slot disappeared while the rewrite ran (e.g. /cancel); drop the offer.
		log.Printf("[Submissions User:%d] Submission vanished during rewrite: %v", userID, err)
		return nil
	}

	variant := locales.GetMessage(lz, "MsgImprovedVariant", map[string]interface{}{"Text": improved}, nil)
	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(locales.GetMessage(lz, "BtnKeepText", nil, nil)).WithCallbackData(CallbackKeepText),
			tu.InlineKeyboardButton(locales.GetMessage(lz, "BtnEditText", nil, nil)).WithCallbackData(CallbackEditText),
		),
	)

	if placeholder != nil {
		_, err := m.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
			ChatID:      tu.ID(chatID),
			MessageID:   placeholder.MessageID,
			Text:        variant,
			ReplyMarkup: keyboard,
		})
		if err == nil {
			return nil
		}
		log.Printf("[Submissions User:%d] Failed to edit AI placeholder, sending anew: %v", userID, err)
	}

	params := tu.Message(tu.ID(chatID), variant)
	params.ReplyMarkup = keyboard
	_, err := m.bot.SendMessage(ctx, params)
	return err
}

// HandleCallbackQuery processes the keep/edit choice for the offered text.
// Returns true if the callback belonged to this manager.
func (m *Manager) HandleCallbackQuery(ctx context.Context, query telego.CallbackQuery) (processed bool, err error) {
	if query.Data != CallbackKeepText && query.Data != CallbackEditText {
		return false, nil
	}

	userID := query.From.ID
	lz := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	var cmds []outbound.Command
	updateErr := m.store.Update(userID, func(s *Submission) error {
		var applyErr error
		if query.Data == CallbackKeepText {
			cmds, applyErr = applyKeep(s, lz)
		} else {
			cmds, applyErr = applyEditRequest(s, lz)
		}
		return applyErr
	})
	if updateErr != nil {
		staleMsg := locales.GetMessage(lz, "MsgCallbackNotHandled", nil, nil)
		_ = m.answerCallback(ctx, query.ID, staleMsg, true)
		return true, nil
	}

	_ = m.answerCallback(ctx, query.ID, "", false)
	m.removeKeyboard(ctx, query)

	return true, outbound.Execute(ctx, m.bot, cmds)
}

// HandlePhoto processes a photo message, feeding the album aggregator.
func (m *Manager) HandlePhoto(ctx context.Context, message telego.Message) error {
	userID := message.From.ID
	chatID := message.Chat.ID
	lz := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	sub, ok := m.store.Get(userID)
	if !ok {
		// Photos outside a submission flow are ignored.
		return nil
	}
	if sub.Step != StepCollectingPhotos {
		return m.sendNotice(ctx, chatID, lz, "MsgPhotoUnexpected")
	}

	fileID := largestPhotoFileID(message.Photo)
	if fileID == "" {
		return nil
	}

	albumKey := message.MediaGroupID
	if albumKey == "" {
		// A lone photo forms a singleton album under a synthetic key.
		albumKey = fmt.Sprintf("single:%d:%d", userID, message.MessageID)
	}

	err := m.albums.Ingest(albumKey, albums.Attachment{
		FileID: fileID,
		UserID: userID,
		ChatID: chatID,
	}, m.finishAlbum)
	if errors.Is(err, albums.ErrAlbumFull) {
		return m.sendNotice(ctx, chatID, lz, "MsgTooManyPhotos")
	}
	return err
}

// finishAlbum is the aggregator flush callback: it stores the collected
// photos and advances the submission to address collection.
func (m *Manager) finishAlbum(ctx context.Context, albumKey string, attachments []albums.Attachment) {
	if len(attachments) == 0 {
		return
	}
	userID := attachments[0].UserID
	chatID := attachments[0].ChatID
	lz := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	fileIDs := make([]string, 0, len(attachments))
	for _, att := range attachments {
		if att.FileID != "" {
			fileIDs = append(fileIDs, att.FileID)
		}
	}

	if len(fileIDs) == 0 {
		log.Printf("[Submissions User:%d Album:%s] Flush contained no usable photos, rejecting submission.", userID, albumKey)
		m.store.Clear(userID)
		if err := m.sendNotice(ctx, chatID, lz, "MsgAlbumEmptyRejected"); err != nil {
			log.Printf("[Submissions User:%d] Failed to send empty-album notice: %v", userID, err)
		}
		return
	}

	var cmds []outbound.Command
	err := m.store.Update(userID, func(s *Submission) error {
		var applyErr error
		cmds, applyErr = applyAlbum(s, fileIDs, lz)
		return applyErr
	})
	if err != nil {
		// Stale flush: the submission moved on or was cleared meanwhile.
		log.Printf("[Submissions User:%d Album:%s] Ignoring stale album flush: %v", userID, albumKey, err)
		return
	}

	if err := outbound.Execute(ctx, m.bot, cmds); err != nil {
		log.Printf("[Submissions User:%d Album:%s] Failed to send address prompt: %v", userID, albumKey, err)
		sentry.CaptureException(err)
	}
}

// submitForReview hands a completed submission to the moderation queue.
func (m *Manager) submitForReview(ctx context.Context, userID, chatID int64, lz *i18n.Localizer) error {
	sub, ok := m.store.Get(userID)
	if !ok {
		return ErrNoSubmission
	}

	if err := m.moderator.SubmitForReview(ctx, sub); err != nil {
		sentry.CaptureException(fmt.Errorf("submit for review (user %d): %w", userID, err))
		// Roll back so the user can resend the price and retry.
		_ = m.store.Update(userID, func(s *Submission) error {
			s.Status = StatusDraft
			s.Step = StepAwaitingPrice
			s.Price = ""
			return nil
		})
		if noticeErr := m.sendNotice(ctx, chatID, lz, "MsgErrorGeneral"); noticeErr != nil {
			log.Printf("[Submissions User:%d] Failed to send error notice: %v", userID, noticeErr)
		}
		return err
	}

	params := tu.Message(tu.ID(chatID), locales.GetMessage(lz, "MsgSubmittedForReview", nil, nil))
	if m.supportUsername != "" {
		params.ReplyMarkup = tu.InlineKeyboard(
			tu.InlineKeyboardRow(
				tu.InlineKeyboardButton(locales.GetMessage(lz, "BtnSupport", nil, nil)).
					WithURL("https://t.me/" + m.supportUsername),
			),
		)
	}
	_, err := m.bot.SendMessage(ctx, params)
	return err
}

func (m *Manager) sendNotice(ctx context.Context, chatID int64, lz *i18n.Localizer, msgID string) error {
	_, err := m.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), locales.GetMessage(lz, msgID, nil, nil)))
	return err
}

func (m *Manager) answerCallback(ctx context.Context, queryID, text string, alert bool) error {
	return m.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
		ShowAlert:       alert,
	})
}

// removeKeyboard strips the inline keyboard from the message a callback came
// from, preventing double taps. Best effort.
func (m *Manager) removeKeyboard(ctx context.Context, query telego.CallbackQuery) {
	msg, ok := query.Message.(*telego.Message)
	if !ok || msg == nil {
		return
	}
	_, err := m.bot.EditMessageReplyMarkup(ctx, &telego.EditMessageReplyMarkupParams{
		ChatID:    tu.ID(msg.Chat.ID),
		MessageID: msg.MessageID,
	})
	if err != nil {
		log.Printf("[Submissions User:%d] Failed to remove confirmation keyboard: %v", query.From.ID, err)
	}
}

// largestPhotoFileID picks the highest-resolution variant of a photo message.
func largestPhotoFileID(photos []telego.PhotoSize) string {
	if len(photos) == 0 {
		return ""
	}
	best := photos[0]
	for _, p := range photos {
		if p.FileSize > best.FileSize {
			best = p
		}
	}
	return best.FileID
}
