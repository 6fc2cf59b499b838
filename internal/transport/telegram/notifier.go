package telegram

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	acquisitionDomain "github.com/reshetovitsme/streamer-census/internal/modules/acquisition/domain"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Sender is the part of *bot.Bot the notifier needs.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type SubscriberLister interface {
	SubscriberChats(ctx context.Context) ([]int64, error)
}

// Notifier delivers run summaries. A configured chat takes precedence over
// subscribers registered through /start.
type Notifier struct {
	sender      Sender
	chatID      int64
	subscribers SubscriberLister
	logger      *slog.Logger
}

func NewNotifier(sender Sender, chatID int64, subscribers SubscriberLister, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{sender: sender, chatID: chatID, subscribers: subscribers, logger: logger}
}

// PublishSummary sends the summary to every target chat. Delivery is best
// effort: the first failure is returned after all chats were tried.
func (n *Notifier) PublishSummary(ctx context.Context, summary *acquisitionDomain.Summary) error {
	if n == nil || n.sender == nil || summary == nil {
		return nil
	}

	chats, err := n.targets(ctx)
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		n.logger.Debug("no telegram chats to notify")
		return nil
	}

	text := FormatSummary(summary)
	var firstErr error
	for _, chatID := range chats {
		if _, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			n.logger.Error("Failed to send run summary", "error", err, "chat_id", chatID)
			if firstErr == nil {
				firstErr = oops.With("chat_id", chatID, "run_id", summary.RunID).Wrap(err)
			}
		}
	}
	return firstErr
}

func (n *Notifier) targets(ctx context.Context) ([]int64, error) {
	if n.chatID != 0 {
		return []int64{n.chatID}, nil
	}
	if n.subscribers == nil {
		return nil, nil
	}
	chats, err := n.subscribers.SubscriberChats(ctx)
	if err != nil {
		return nil, oops.With("context", "failed to list subscribers").Wrap(err)
	}
	return lo.Filter(chats, func(id int64, _ int) bool { return id != 0 }), nil
}
