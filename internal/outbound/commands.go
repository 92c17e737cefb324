package outbound

import (
	"github.com/mymmrac/telego"
)

// Command is one outbound notification produced by a state transition.
// Transitions return commands instead of calling the transport directly,
// which keeps the decision logic testable without a live bot.
type Command interface {
	isCommand()
}

// SendText sends a plain text message, optionally with an inline keyboard.
type SendText struct {
	ChatID   int64
	Text     string
	Keyboard *telego.InlineKeyboardMarkup
}

// SendPhoto sends a single photo with an optional caption and inline keyboard.
type SendPhoto struct {
	ChatID   int64
	FileID   string
	Caption  string
	Keyboard *telego.InlineKeyboardMarkup
}

// SendAlbum sends a batch of photos; the caption is applied to the first item.
type SendAlbum struct {
	ChatID  int64
	FileIDs []string
	Caption string
}

func (SendText) isCommand()  {}
func (SendPhoto) isCommand() {}
func (SendAlbum) isCommand() {}
