// Package telegram adapts the go-telegram/bot client to the narrow
// capability surfaces the rest of the bot depends on: a status Sink for
// progress messages and an Uploader for video delivery.
package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/vredditbot/vredditbot/internal/delivery"
)

const (
	requestTimeout = 30 * time.Second
	uploadTimeout  = 5 * time.Minute
)

type Sender struct {
	bot    *tgbot.Bot
	logger zerolog.Logger
}

func NewSender(b *tgbot.Bot, logger zerolog.Logger) *Sender {
	return &Sender{
		bot:    b,
		logger: logger.With().Str("component", "telegram").Logger(),
	}
}

// SendStatus posts a silent HTML status message and returns its message ID
// so later flushes can edit it in place.
func (s *Sender) SendStatus(ctx context.Context, chatID int64, replyTo int, text string) (int, error) {
	msgCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	msg, err := s.bot.SendMessage(msgCtx, &tgbot.SendMessageParams{
		ChatID:              chatID,
		Text:                text,
		ParseMode:           models.ParseModeHTML,
		DisableNotification: true,
		ReplyParameters:     replyParams(replyTo),
		LinkPreviewOptions:  noPreview(),
	})
	if err != nil {
		return 0, fmt.Errorf("send status message: %w", err)
	}
	return msg.ID, nil
}

func (s *Sender) EditStatus(ctx context.Context, chatID int64, messageID int, text string) error {
	msgCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	_, err := s.bot.EditMessageText(msgCtx, &tgbot.EditMessageTextParams{
		ChatID:             chatID,
		MessageID:          messageID,
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: noPreview(),
	})
	if err != nil {
		return fmt.Errorf("edit status message: %w", err)
	}
	return nil
}

// NotifyUploading shows the "uploading a video" chat action. Fire and
// forget: failures are logged and swallowed.
func (s *Sender) NotifyUploading(ctx context.Context, chatID int64) {
	msgCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	_, err := s.bot.SendChatAction(msgCtx, &tgbot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatAction("upload_video"),
	})
	if err != nil {
		s.logger.Warn().Err(err).Int64("chat", chatID).Msg("failed to send chat action")
	}
}

// UploadVideo streams a local file into the chat and returns the
// platform-issued file handle for cache reuse.
func (s *Sender) UploadVideo(ctx context.Context, up delivery.VideoUpload) (string, error) {
	f, err := os.Open(up.Path)
	if err != nil {
		return "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	msgCtx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	msg, err := s.bot.SendVideo(msgCtx, &tgbot.SendVideoParams{
		ChatID:            up.ChatID,
		Video:             &models.InputFileUpload{Filename: filepath.Base(up.Path), Data: f},
		Width:             up.Width,
		Height:            up.Height,
		Duration:          up.Duration,
		Caption:           up.Caption,
		ParseMode:         models.ParseModeHTML,
		SupportsStreaming: true,
		ReplyParameters:   replyParams(up.ReplyTo),
		ReplyMarkup:       sourceMarkup(up.SourceURL),
	})
	if err != nil {
		return "", fmt.Errorf("send video: %w", err)
	}
	if msg.Video == nil {
		return "", fmt.Errorf("send video: response carries no video")
	}
	return msg.Video.FileID, nil
}

// SendVideoByID re-sends an already uploaded video by its file handle.
func (s *Sender) SendVideoByID(ctx context.Context, chatID int64, fileID, caption, sourceURL string, replyTo int) error {
	msgCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	_, err := s.bot.SendVideo(msgCtx, &tgbot.SendVideoParams{
		ChatID:          chatID,
		Video:           &models.InputFileString{Data: fileID},
		Caption:         caption,
		ParseMode:       models.ParseModeHTML,
		ReplyParameters: replyParams(replyTo),
		ReplyMarkup:     sourceMarkup(sourceURL),
	})
	if err != nil {
		return fmt.Errorf("send cached video: %w", err)
	}
	return nil
}

func (s *Sender) SendText(ctx context.Context, chatID int64, replyTo int, text string) error {
	msgCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	_, err := s.bot.SendMessage(msgCtx, &tgbot.SendMessageParams{
		ChatID:             chatID,
		Text:               text,
		ReplyParameters:    replyParams(replyTo),
		LinkPreviewOptions: noPreview(),
	})
	if err != nil {
		return fmt.Errorf("send text message: %w", err)
	}
	return nil
}

func replyParams(replyTo int) *models.ReplyParameters {
	if replyTo == 0 {
		return nil
	}
	return &models.ReplyParameters{MessageID: replyTo}
}

func noPreview() *models.LinkPreviewOptions {
	disabled := true
	return &models.LinkPreviewOptions{IsDisabled: &disabled}
}

func sourceButton(url string) *models.InlineKeyboardMarkup {
	if url == "" {
		return nil
	}
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "Source", URL: url}},
		},
	}
}

// sourceMarkup adapts sourceButton for params whose ReplyMarkup field is
// the interface type; a plain nil there avoids a typed-nil marshalling as
// an explicit null.
func sourceMarkup(url string) models.ReplyMarkup {
	if b := sourceButton(url); b != nil {
		return b
	}
	return nil
}
