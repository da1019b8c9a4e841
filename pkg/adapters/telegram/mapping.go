package telegram

import (
	"strconv"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aretw0/formbot/pkg/domain"
)

// Telegram rejects longer texts and captions.
const (
	maxTextLength    = 4096
	maxCaptionLength = 1024
)

// Inbound is an update reduced to what the dialogue and the reply need.
type Inbound struct {
	ParticipantID string
	ChatID        int64
	// MessageID is the message carrying the pressed keyboard; 0 for plain messages.
	MessageID  int
	CallbackID string
	Event      domain.Event
}

// EventFromUpdate maps an update to an event. The participant is the sender,
// not the chat. It reports false for updates that carry no participant input.
func EventFromUpdate(u tgbotapi.Update) (Inbound, bool) {
	switch {
	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		if q.From == nil || q.Message == nil || q.Message.Chat == nil {
			return Inbound{CallbackID: q.ID}, false
		}
		return Inbound{
			ParticipantID: strconv.FormatInt(q.From.ID, 10),
			ChatID:        q.Message.Chat.ID,
			MessageID:     q.Message.MessageID,
			CallbackID:    q.ID,
			Event:         domain.ButtonEvent(q.Data),
		}, true

	case u.Message != nil:
		m := u.Message
		if m.From == nil || m.Chat == nil {
			return Inbound{}, false
		}
		in := Inbound{
			ParticipantID: strconv.FormatInt(m.From.ID, 10),
			ChatID:        m.Chat.ID,
		}
		if len(m.Photo) > 0 {
			variants := make([]domain.ImageVariant, 0, len(m.Photo))
			for _, p := range m.Photo {
				variants = append(variants, domain.ImageVariant{
					FileID:   p.FileID,
					UniqueID: p.FileUniqueID,
					Width:    p.Width,
					Height:   p.Height,
					FileSize: p.FileSize,
				})
			}
			in.Event = domain.ImageEvent(variants...)
			return in, true
		}
		// Documents, stickers and the like arrive as empty text, which every state rejects.
		in.Event = domain.TextEvent(m.Text)
		return in, true
	}
	return Inbound{}, false
}

// Render turns a reply into API calls for the given chat. messageID is the
// message the reply may edit or delete; with 0 both fall back to a new message.
func Render(chatID int64, messageID int, reply domain.Reply) []tgbotapi.Chattable {
	if reply.Text == "" && reply.AttachPhoto == "" {
		return nil
	}

	if reply.AttachPhoto != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(reply.AttachPhoto))
		photo.Caption = truncate(reply.Text, maxCaptionLength)
		if kb, ok := keyboard(reply.Buttons); ok {
			photo.ReplyMarkup = kb
		}
		return []tgbotapi.Chattable{photo}
	}

	text := truncate(reply.Text, maxTextLength)

	if reply.EditPrevious && messageID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
		// Without markup the old keyboard is removed, which is what a final answer wants.
		if kb, ok := keyboard(reply.Buttons); ok {
			edit.ReplyMarkup = &kb
		}
		return []tgbotapi.Chattable{edit}
	}

	var out []tgbotapi.Chattable
	if reply.DeletePrevious && messageID != 0 {
		out = append(out, tgbotapi.NewDeleteMessage(chatID, messageID))
	}
	return append(out, newMessage(chatID, text, reply.Buttons))
}

func newMessage(chatID int64, text string, buttons [][]domain.Button) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	if kb, ok := keyboard(buttons); ok {
		msg.ReplyMarkup = kb
	}
	return msg
}

func keyboard(buttons [][]domain.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(buttons) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, row := range buttons {
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			r = append(r, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Token))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(r...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-3]) + "..."
}
