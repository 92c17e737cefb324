package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"classifieds-bot/internal/locales"
	"classifieds-bot/internal/submissions"
	"classifieds-bot/pkg/telegoapi"
)

// Command maps a command string to its localized description key and handler.
type Command struct {
	Command     string
	Description string // message ID for the description
	Handler     func(ctx context.Context, message telego.Message) error
}

// MessageHandler handles bot commands.
type MessageHandler struct {
	bot             telegoapi.BotAPI
	store           *submissions.Store
	supportUsername string
	version         string
	commands        []Command
}

// NewMessageHandler creates a command handler.
func NewMessageHandler(bot telegoapi.BotAPI, store *submissions.Store, supportUsername, version string) *MessageHandler {
	if bot == nil {
		log.Fatal("MessageHandler: BotAPI instance is nil")
	}
	if store == nil {
		log.Fatal("MessageHandler: submission store is nil")
	}

	h := &MessageHandler{
		bot:             bot,
		store:           store,
		supportUsername: strings.TrimPrefix(supportUsername, "@"),
		version:         version,
	}
	h.commands = []Command{
		{Command: "start", Description: "CmdStartDesc", Handler: h.HandleStart},
		{Command: "help", Description: "CmdHelpDesc", Handler: h.HandleHelp},
		{Command: "cancel", Description: "CmdCancelDesc", Handler: h.HandleCancel},
		{Command: "version", Description: "CmdVersionDesc", Handler: h.HandleVersion},
	}
	return h
}

// GetCommandHandler retrieves the handler for a command string (e.g., "start").
// It returns nil if the command is not found.
func (h *MessageHandler) GetCommandHandler(command string) func(context.Context, telego.Message) error {
	for _, cmd := range h.commands {
		if cmd.Command == command {
			return cmd.Handler
		}
	}
	return nil
}

// HandleStart sends the welcome message with the support affordance.
func (h *MessageHandler) HandleStart(ctx context.Context, message telego.Message) error {
	lz := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	params := tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(lz, "MsgStart", nil, nil))
	if h.supportUsername != "" {
		params.ReplyMarkup = tu.InlineKeyboard(
			tu.InlineKeyboardRow(
				tu.InlineKeyboardButton(locales.GetMessage(lz, "BtnSupport", nil, nil)).
					WithURL("https://t.me/" + h.supportUsername),
			),
		)
	}
	_, err := h.bot.SendMessage(ctx, params)
	return err
}

// HandleHelp sends the command list.
func (h *MessageHandler) HandleHelp(ctx context.Context, message telego.Message) error {
	lz := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	var b strings.Builder
	b.WriteString(locales.GetMessage(lz, "MsgHelpHeader", nil, nil))
	for _, cmd := range h.commands {
		b.WriteString(fmt.Sprintf("\n/%s — %s", cmd.Command, locales.GetMessage(lz, cmd.Description, nil, nil)))
	}

	_, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), b.String()))
	return err
}

// HandleCancel discards the user's draft submission. A submission already in
// moderation cannot be cancelled.
func (h *MessageHandler) HandleCancel(ctx context.Context, message telego.Message) error {
	lz := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	userID := message.From.ID

	msgID := "MsgCancelNothing"
	if sub, ok := h.store.Get(userID); ok {
		if sub.Status == submissions.StatusPending {
			msgID = "MsgCancelPending"
		} else {
			h.store.Clear(userID)
			msgID = "MsgCancelDone"
		}
	}

	_, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), locales.GetMessage(lz, msgID, nil, nil)))
	return err
}

// HandleVersion reports the bot version.
func (h *MessageHandler) HandleVersion(ctx context.Context, message telego.Message) error {
	lz := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())
	text := locales.GetMessage(lz, "MsgVersion", map[string]interface{}{"Version": h.version}, nil)
	_, err := h.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), text))
	return err
}

// SetupCommands registers the command list with Telegram.
func (h *MessageHandler) SetupCommands(ctx context.Context) error {
	lz := locales.NewLocalizer(locales.GetDefaultLanguageTag().String())

	cmds := make([]telego.BotCommand, 0, len(h.commands))
	for _, cmd := range h.commands {
		cmds = append(cmds, telego.BotCommand{
			Command:     cmd.Command,
			Description: locales.GetMessage(lz, cmd.Description, nil, nil),
		})
	}

	if err := h.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: cmds}); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	return nil
}
