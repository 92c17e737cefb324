package moderation

import (
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"

	"classifieds-bot/internal/locales"
	"classifieds-bot/internal/submissions"
)

// renderCaption builds the listing body shared by the review copy and the
// published post: description, price, address and the seller contact line.
func renderCaption(lz *i18n.Localizer, sub *submissions.Submission) string {
	seller := locales.GetMessage(lz, "LabelSellerHidden", nil, nil)
	if sub.Username != "" {
		seller = "@" + sub.Username
	}

	var b strings.Builder
	b.WriteString(sub.ImprovedText)
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("%s: %s\n", locales.GetMessage(lz, "LabelPrice", nil, nil), sub.Price))
	b.WriteString(fmt.Sprintf("%s: %s\n", locales.GetMessage(lz, "LabelAddress", nil, nil), sub.Address))
	b.WriteString(fmt.Sprintf("%s: %s", locales.GetMessage(lz, "LabelSeller", nil, nil), seller))
	return b.String()
}

// reviewKeyboard builds the approve/reject controls for a ticket.
func reviewKeyboard(lz *i18n.Localizer, ticketID string) *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(locales.GetMessage(lz, "BtnApprove", nil, nil)).
				WithCallbackData(callbackData(ticketID, actionApprove)),
			tu.InlineKeyboardButton(locales.GetMessage(lz, "BtnReject", nil, nil)).
				WithCallbackData(callbackData(ticketID, actionReject)),
		),
	)
}

// contactKeyboard builds the "contact seller" affordance for a published
// single-photo listing. Returns nil when the submitter has no username.
func contactKeyboard(lz *i18n.Localizer, username string) *telego.InlineKeyboardMarkup {
	if username == "" {
		return nil
	}
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(locales.GetMessage(lz, "BtnContactSeller", nil, nil)).
				WithURL("https://t.me/" + username),
		),
	)
}
