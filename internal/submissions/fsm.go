package submissions

import (
	"github.com/nicksnyder/go-i18n/v2/i18n"

	"classifieds-bot/internal/locales"
	"classifieds-bot/internal/outbound"
)

// Transition functions mutate a submission in response to one inbound event
// and return the outbound commands that announce the result. They are called
// under the store's per-user lock and perform no I/O themselves, so the
// decision logic can be tested without a live transport. On error no state
// is changed and no commands are returned.

// applyText advances the submission with an inbound plain-text message.
// completed reports that the final required field was supplied and the
// submission is ready for moderation.
func applyText(s *Submission, text string, lz *i18n.Localizer) (cmds []outbound.Command, completed bool, err error) {
	switch s.Step {
	case StepAwaitingManualText:
		s.ImprovedText = text
		s.Step = StepCollectingPhotos
		return []outbound.Command{outbound.SendText{
			ChatID: s.ChatID,
			Text:   locales.GetMessage(lz, "MsgPhotosPrompt", nil, nil),
		}}, false, nil

	case StepCollectingPhotos:
		return nil, false, ErrPhotosExpected

	case StepAwaitingAddress:
		s.Address = text
		s.Step = StepAwaitingPrice
		return []outbound.Command{outbound.SendText{
			ChatID: s.ChatID,
			Text:   locales.GetMessage(lz, "MsgPricePrompt", nil, nil),
		}}, false, nil

	case StepAwaitingPrice:
		s.Price = text
		s.Status = StatusPending
		s.Step = StepSubmitted
		return nil, true, nil

	default:
		// awaiting_confirmation and submitted: any text here is an attempt to
		// start over while a submission is still active.
		return nil, false, ErrAlreadyPending
	}
}

// applyKeep adopts the offered text variant and moves on to photo collection.
func applyKeep(s *Submission, lz *i18n.Localizer) ([]outbound.Command, error) {
	if s.Step != StepAwaitingConfirmation {
		return nil, ErrWrongStep
	}
	s.Step = StepCollectingPhotos
	return []outbound.Command{outbound.SendText{
		ChatID: s.ChatID,
		Text:   locales.GetMessage(lz, "MsgPhotosPrompt", nil, nil),
	}}, nil
}

// applyEditRequest switches to manual text entry.
func applyEditRequest(s *Submission, lz *i18n.Localizer) ([]outbound.Command, error) {
	if s.Step != StepAwaitingConfirmation {
		return nil, ErrWrongStep
	}
	s.Step = StepAwaitingManualText
	return []outbound.Command{outbound.SendText{
		ChatID: s.ChatID,
		Text:   locales.GetMessage(lz, "MsgManualTextPrompt", nil, nil),
	}}, nil
}

// applyAlbum stores a flushed photo batch and advances to address collection.
func applyAlbum(s *Submission, fileIDs []string, lz *i18n.Localizer) ([]outbound.Command, error) {
	if s.Step != StepCollectingPhotos {
		return nil, ErrWrongStep
	}
	s.Photos = fileIDs
	s.Step = StepAwaitingAddress
	return []outbound.Command{outbound.SendText{
		ChatID: s.ChatID,
		Text:   locales.GetMessage(lz, "MsgAddressPrompt", nil, nil),
	}}, nil
}
