package tgbot

import (
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

var ErrNotConfigured = errors.New("tgbot: photo storage chat is not configured")

// Media uploads user photos through the Bot API, using a private storage
// chat as the blob store, and resolves them to direct file URLs.
type Media struct {
	bot         *tgbotapi.BotAPI
	storageChat int64
}

// New connects the bot. storageChat == 0 yields a disabled uploader that
// fails every upload with ErrNotConfigured instead of dropping photos.
func New(botToken string, storageChat int64) (*Media, error) {
	if storageChat == 0 {
		return &Media{}, nil
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("tgbot: connect: %w", err)
	}
	bot.Debug = false
	return &Media{bot: bot, storageChat: storageChat}, nil
}

// UploadPhoto sends the image bytes to the storage chat and returns a direct
// download URL for the largest rendition Telegram kept.
func (m *Media) UploadPhoto(data []byte) (string, error) {
	if m.bot == nil {
		return "", ErrNotConfigured
	}

	file := tgbotapi.FileBytes{Name: uuid.NewString() + ".jpg", Bytes: data}
	msg, err := m.bot.Send(tgbotapi.NewPhoto(m.storageChat, file))
	if err != nil {
		return "", fmt.Errorf("tgbot: send photo: %w", err)
	}
	if len(msg.Photo) == 0 {
		return "", errors.New("tgbot: telegram returned no photo sizes")
	}

	// Photo sizes arrive smallest first.
	largest := msg.Photo[len(msg.Photo)-1]
	url, err := m.bot.GetFileDirectURL(largest.FileID)
	if err != nil {
		return "", fmt.Errorf("tgbot: resolve file url: %w", err)
	}
	return url, nil
}
