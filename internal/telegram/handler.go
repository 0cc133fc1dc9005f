package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vredditbot/vredditbot/internal/delivery"
	"github.com/vredditbot/vredditbot/internal/domain"
	"github.com/vredditbot/vredditbot/internal/resolver"
	"github.com/vredditbot/vredditbot/internal/status"
)

// Handler routes incoming updates: chat messages get videos delivered in
// place, inline queries get cached-video result lists. Everything else is
// ignored.
type Handler struct {
	resolver     *resolver.Resolver
	orchestrator *delivery.Orchestrator
	sender       *Sender
	cacheChatID  int64
	errorChatID  int64
	debounce     time.Duration
	logger       zerolog.Logger
}

func NewHandler(res *resolver.Resolver, orch *delivery.Orchestrator, sender *Sender, cacheChatID, errorChatID int64, debounce time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{
		resolver:     res,
		orchestrator: orch,
		sender:       sender,
		cacheChatID:  cacheChatID,
		errorChatID:  errorChatID,
		debounce:     debounce,
		logger:       logger.With().Str("component", "handler").Logger(),
	}
}

// HandleUpdate is the bot's default handler.
func (h *Handler) HandleUpdate(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
	switch {
	case update.Message != nil && update.Message.Text != "":
		h.handleMessage(ctx, update.Message)
	case update.InlineQuery != nil:
		h.handleInline(ctx, update.InlineQuery)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *models.Message) {
	posts, err := h.resolver.FindAllInText(ctx, msg.Text)
	if err != nil {
		h.reportError(ctx, err)
		return
	}
	if len(posts) == 0 {
		return
	}

	chat := delivery.Chat{ID: msg.Chat.ID, Type: string(msg.Chat.Type)}
	h.logger.Info().Int64("chat", chat.ID).Int("posts", len(posts)).Msg("processing message")

	// Fan out so one slow download does not hold up the other URLs in the
	// same message; each post reports into its own status message.
	var wg sync.WaitGroup
	for _, post := range posts {
		wg.Add(1)
		go func(post *domain.VideoPost) {
			defer wg.Done()
			h.processPost(ctx, post, chat, msg.ID)
		}(post)
	}
	wg.Wait()
}

func (h *Handler) processPost(ctx context.Context, post *domain.VideoPost, chat delivery.Chat, replyTo int) {
	defer func() {
		if r := recover(); r != nil {
			h.reportError(ctx, fmt.Errorf("panic processing %s: %v", post.URL, r))
		}
	}()

	rep := status.NewReporter(h.sender, chat.ID, replyTo, h.debounce, h.logger)

	del, err := h.orchestrator.DownloadAndSend(ctx, post, chat, replyTo, rep)
	if err != nil {
		h.reportError(ctx, err)
		return
	}
	if del == nil || del.Uploaded {
		return
	}

	switch {
	case del.FileID != "":
		if err := h.sender.SendVideoByID(ctx, chat.ID, del.FileID, del.Caption, del.SourceURL, del.ReplyTo); err != nil {
			h.reportError(ctx, err)
		}
	case del.Text != "":
		if err := h.sender.SendText(ctx, chat.ID, del.ReplyTo, del.Text); err != nil {
			h.logger.Warn().Err(err).Int64("chat", chat.ID).Msg("failed to send text reply")
		}
	}
}

// handleInline uploads the video into the cache chat first, then answers
// the query with the cached file handle. There is no status chat here, so
// the reporter is nil and failures just answer with an empty result list.
func (h *Handler) handleInline(ctx context.Context, q *models.InlineQuery) {
	post, err := h.resolver.FindInText(ctx, q.Query)
	if err != nil {
		h.reportError(ctx, err)
		h.answerInline(ctx, q.ID, nil)
		return
	}
	if post == nil || !h.inlineServable(post) {
		h.answerInline(ctx, q.ID, nil)
		return
	}

	del, err := h.orchestrator.DownloadAndSend(ctx, post, delivery.Chat{ID: h.cacheChatID, Type: "channel"}, 0, nil)
	if err != nil {
		h.reportError(ctx, err)
		h.answerInline(ctx, q.ID, nil)
		return
	}
	if del == nil || del.FileID == "" {
		h.answerInline(ctx, q.ID, nil)
		return
	}

	h.answerInline(ctx, q.ID, inlineResults(post, del.FileID))
}

// inlineServable reports whether an inline query for this post can be
// answered: the video is already cached, or a cache chat is configured to
// stage a fresh upload through. Without either there is nowhere to upload,
// so the query gets an empty answer instead of a doomed download.
func (h *Handler) inlineServable(post *domain.VideoPost) bool {
	return post.FileID != "" || h.cacheChatID != 0
}

func (h *Handler) answerInline(ctx context.Context, queryID string, results []models.InlineQueryResult) {
	if results == nil {
		results = []models.InlineQueryResult{}
	}
	_, err := h.sender.bot.AnswerInlineQuery(ctx, &tgbot.AnswerInlineQueryParams{
		InlineQueryID: queryID,
		Results:       results,
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("query", queryID).Msg("failed to answer inline query")
	}
}

// inlineResults offers the same video in four presentations so the user
// picks how much context travels with it.
func inlineResults(post *domain.VideoPost, fileID string) []models.InlineQueryResult {
	source := post.SourceLink()

	type variant struct {
		title   string
		caption string
		markup  *models.InlineKeyboardMarkup
	}
	var variants []variant
	if post.Title != "" {
		variants = append(variants,
			variant{"Video with title and source button", post.Title, sourceButton(source)},
			variant{"Video with title", post.Title, nil},
		)
	}
	variants = append(variants,
		variant{"Video with source button", "", sourceButton(source)},
		variant{"Video only", "", nil},
	)

	results := make([]models.InlineQueryResult, 0, len(variants))
	for _, v := range variants {
		result := &models.InlineQueryResultCachedVideo{
			ID:          uuid.NewString(),
			VideoFileID: fileID,
			Title:       v.title,
			Caption:     v.caption,
			ParseMode:   models.ParseModeHTML,
		}
		if v.markup != nil {
			result.ReplyMarkup = v.markup
		}
		results = append(results, result)
	}
	return results
}

func (h *Handler) reportError(ctx context.Context, err error) {
	h.logger.Error().Err(err).Msg("request failed")
	if h.errorChatID == 0 {
		return
	}
	if sendErr := h.sender.SendText(ctx, h.errorChatID, 0, fmt.Sprintf("vredditbot error: %v", err)); sendErr != nil {
		h.logger.Warn().Err(sendErr).Msg("failed to report error to operator chat")
	}
}
