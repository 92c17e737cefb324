package moderation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mymmrac/telego"

	"classifieds-bot/internal/locales"
)

const (
	callbackPrefix = "mod"
	actionApprove  = "approve"
	actionReject   = "reject"
)

func callbackData(ticketID, action string) string {
	return fmt.Sprintf("%s:%s:%s", callbackPrefix, ticketID, action)
}

// HandleCallbackQuery handles moderation decision callbacks.
// Returns true if the callback was processed by this queue, false otherwise.
func (q *Queue) HandleCallbackQuery(ctx context.Context, query telego.CallbackQuery) (processed bool, err error) {
	if !strings.HasPrefix(query.Data, callbackPrefix+":") {
		return false, nil
	}

	lz := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	parts := strings.Split(query.Data, ":")
	if len(parts) != 3 {
		log.Printf("[Moderation Callback] Invalid data format: %s", query.Data)
		_ = q.answerCallback(ctx, query.ID, locales.GetMessage(lz, "MsgErrorGeneral", nil, nil), true)
		return true, fmt.Errorf("invalid moderation callback data %q", query.Data)
	}
	ticketID := parts[1]

	var decision Decision
	switch parts[2] {
	case actionApprove:
		decision = DecisionApproved
	case actionReject:
		decision = DecisionRejected
	default:
		log.Printf("[Moderation Callback] Unknown action: %s", parts[2])
		_ = q.answerCallback(ctx, query.ID, locales.GetMessage(lz, "MsgErrorGeneral", nil, nil), true)
		return true, fmt.Errorf("unknown moderation action %q", parts[2])
	}

	decideErr := q.Decide(ctx, ticketID, query.From.ID, decision)
	switch {
	case decideErr == nil:
		msgID := "MsgModerationRejected"
		if decision == DecisionApproved {
			msgID = "MsgModerationApproved"
		}
		_ = q.answerCallback(ctx, query.ID, locales.GetMessage(lz, msgID, nil, nil), false)
		return true, nil

	case errors.Is(decideErr, ErrUnauthorized):
		_ = q.answerCallback(ctx, query.ID, locales.GetMessage(lz, "MsgErrorRequiresAdmin", nil, nil), true)
		return true, nil

	case errors.Is(decideErr, ErrAlreadyDecided):
		_ = q.answerCallback(ctx, query.ID, locales.GetMessage(lz, "MsgModerationAlreadyHandled", nil, nil), true)
		return true, nil

	case errors.Is(decideErr, ErrTicketNotFound):
		_ = q.answerCallback(ctx, query.ID, locales.GetMessage(lz, "MsgCallbackNotHandled", nil, nil), true)
		return true, nil

	default:
		// Publication or transport failure; the ticket stays retryable.
		_ = q.answerCallback(ctx, query.ID, locales.GetMessage(lz, "MsgModerationPublishError", nil, nil), true)
		return true, decideErr
	}
}

func (q *Queue) answerCallback(ctx context.Context, queryID, text string, alert bool) error {
	return q.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
		ShowAlert:       alert,
	})
}
