package telegram

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	channelDomain "github.com/reshetovitsme/streamer-census/internal/modules/channel/domain"
	quotaDomain "github.com/reshetovitsme/streamer-census/internal/modules/quota/domain"
)

const recentLimit = 10

type Channels interface {
	Stats(ctx context.Context) (channelDomain.Stats, error)
	Recent(ctx context.Context, n int) ([]channelDomain.Record, error)
}

type Quota interface {
	Reload() error
	Report() quotaDomain.Report
}

type Subscribers interface {
	Subscribe(ctx context.Context, userID int64, username string, chatID int64) error
	Unsubscribe(ctx context.Context, userID int64) error
	IsAuthorized(userID int64, allowedUsers []int64) bool
}

// Handler handles Telegram bot commands
type Handler struct {
	allowedUsers []int64
	channels     Channels
	quota        Quota
	subscribers  Subscribers
	logger       *slog.Logger
}

// New creates a new Telegram handler
func New(allowedUsers []int64, channels Channels, quota Quota, subscribers Subscribers, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		allowedUsers: allowedUsers,
		channels:     channels,
		quota:        quota,
		subscribers:  subscribers,
		logger:       logger,
	}
}

// RegisterCommands registers bot commands
func (h *Handler) RegisterCommands(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.serve(h.start))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.serve(h.help))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/stop", bot.MatchTypeExact, h.serve(h.stop))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypeExact, h.serve(h.status))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypeExact, h.serve(h.stats))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/recent", bot.MatchTypeExact, h.serve(h.recent))
}

// HandleUpdate answers anything that is not a known command
func (h *Handler) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.dispatch(ctx, b, update, h.help)
}

// command computes the reply to one message; "" sends nothing.
type command func(ctx context.Context, update *models.Update) string

func (h *Handler) serve(cmd command) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		h.dispatch(ctx, b, update, cmd)
	}
}

func (h *Handler) dispatch(ctx context.Context, sender Sender, update *models.Update, cmd command) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	text := cmd(ctx, update)
	if text == "" {
		return
	}
	_, err := sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send reply", "error", err, "chat_id", update.Message.Chat.ID)
	}
}

func (h *Handler) authorized(update *models.Update) bool {
	return h.subscribers.IsAuthorized(update.Message.From.ID, h.allowedUsers)
}

func (h *Handler) start(ctx context.Context, update *models.Update) string {
	if !h.authorized(update) {
		h.logger.Warn("Unauthorized /start", "user_id", update.Message.From.ID)
		return "❌ No estás autorizado para usar este bot."
	}

	from := update.Message.From
	if err := h.subscribers.Subscribe(ctx, from.ID, from.Username, update.Message.Chat.ID); err != nil {
		h.logger.Error("Failed to save subscriber", "error", err, "user_id", from.ID)
		return "❌ No se pudo registrar la suscripción."
	}
	h.logger.Info("Subscriber added", "user_id", from.ID, "chat_id", update.Message.Chat.ID)
	return "👋 Suscripto a los resúmenes de cada corrida.\n\n" + helpText
}

func (h *Handler) help(_ context.Context, update *models.Update) string {
	if !h.authorized(update) {
		return ""
	}
	return helpText
}

func (h *Handler) stop(ctx context.Context, update *models.Update) string {
	if !h.authorized(update) {
		return ""
	}
	if err := h.subscribers.Unsubscribe(ctx, update.Message.From.ID); err != nil {
		h.logger.Error("Failed to remove subscriber", "error", err, "user_id", update.Message.From.ID)
		return "❌ No se pudo cancelar la suscripción."
	}
	return "✅ Suscripción cancelada."
}

func (h *Handler) status(ctx context.Context, update *models.Update) string {
	if !h.authorized(update) {
		return ""
	}
	if err := h.quota.Reload(); err != nil {
		h.logger.Warn("serving cached quota state", "error", err)
	}
	stats, err := h.channels.Stats(ctx)
	if err != nil {
		h.logger.Error("Error computing stats", "error", err)
		return "❌ No se pudo leer el estado."
	}
	return FormatStatus(h.quota.Report(), stats)
}

func (h *Handler) stats(ctx context.Context, update *models.Update) string {
	if !h.authorized(update) {
		return ""
	}
	stats, err := h.channels.Stats(ctx)
	if err != nil {
		h.logger.Error("Error computing stats", "error", err)
		return "❌ No se pudieron calcular las estadísticas."
	}
	return FormatStats(stats)
}

func (h *Handler) recent(ctx context.Context, update *models.Update) string {
	if !h.authorized(update) {
		return ""
	}
	records, err := h.channels.Recent(ctx, recentLimit)
	if err != nil {
		h.logger.Error("Error listing channels", "error", err)
		return "❌ No se pudieron listar los canales."
	}
	return FormatRecent(records)
}
