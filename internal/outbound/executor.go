package outbound

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"classifieds-bot/pkg/telegoapi"
)

// Execute runs commands against the bot in order. It stops at the first
// transport error; by then the state change that produced the commands has
// already been committed, so the caller only reports the failure.
func Execute(ctx context.Context, bot telegoapi.BotAPI, commands []Command) error {
	for _, command := range commands {
		switch cmd := command.(type) {
		case SendText:
			params := tu.Message(tu.ID(cmd.ChatID), cmd.Text)
			if cmd.Keyboard != nil {
				params.ReplyMarkup = cmd.Keyboard
			}
			if _, err := bot.SendMessage(ctx, params); err != nil {
				return fmt.Errorf("send text to chat %d: %w", cmd.ChatID, err)
			}
		case SendPhoto:
			params := &telego.SendPhotoParams{
				ChatID:  tu.ID(cmd.ChatID),
				Photo:   telego.InputFile{FileID: cmd.FileID},
				Caption: cmd.Caption,
			}
			if cmd.Keyboard != nil {
				params.ReplyMarkup = cmd.Keyboard
			}
			if _, err := bot.SendPhoto(ctx, params); err != nil {
				return fmt.Errorf("send photo to chat %d: %w", cmd.ChatID, err)
			}
		case SendAlbum:
			if _, err := bot.SendMediaGroup(ctx, &telego.SendMediaGroupParams{
				ChatID: tu.ID(cmd.ChatID),
				Media:  InputMediaPhotos(cmd.FileIDs, cmd.Caption),
			}); err != nil {
				return fmt.Errorf("send album to chat %d: %w", cmd.ChatID, err)
			}
		default:
			return fmt.Errorf("unknown outbound command %T", command)
		}
	}
	return nil
}

// InputMediaPhotos converts photo file IDs into input media for SendMediaGroup,
// applying the caption to the first item.
func InputMediaPhotos(fileIDs []string, caption string) []telego.InputMedia {
	media := make([]telego.InputMedia, 0, len(fileIDs))
	for i, fileID := range fileIDs {
		photo := &telego.InputMediaPhoto{
			Type:  telego.MediaTypePhoto,
			Media: telego.InputFile{FileID: fileID},
		}
		if i == 0 {
			photo.Caption = caption
		}
		media = append(media, photo)
	}
	return media
}
