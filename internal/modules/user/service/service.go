package service

import (
	"context"
	"slices"
	"time"

	"github.com/reshetovitsme/streamer-census/internal/modules/user/domain"
	"github.com/reshetovitsme/streamer-census/internal/modules/user/repository"
	"github.com/samber/lo"
)

// Service manages summary subscribers
type Service struct {
	repo repository.Repository
	now  func() time.Time
}

// New creates a new user service
func New(repo repository.Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Subscribe stores the user so they receive run summaries in chatID. The
// original subscription date survives a re-subscribe.
func (s *Service) Subscribe(ctx context.Context, userID int64, username string, chatID int64) error {
	user := domain.User{ID: userID, Username: username, ChatID: chatID, AddedAt: s.now().UTC()}
	if prev, err := s.repo.Get(ctx, userID); err == nil {
		user.AddedAt = prev.AddedAt
	}
	return s.repo.Save(ctx, user)
}

func (s *Service) Unsubscribe(ctx context.Context, userID int64) error {
	return s.repo.Delete(ctx, userID)
}

func (s *Service) GetUser(ctx context.Context, userID int64) (domain.User, error) {
	return s.repo.Get(ctx, userID)
}

// SubscriberChats returns the distinct chats summaries are sent to
func (s *Service) SubscriberChats(ctx context.Context) ([]int64, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	chats := lo.Uniq(lo.Map(users, func(u domain.User, _ int) int64 {
		return u.ChatID
	}))
	slices.Sort(chats)
	return chats, nil
}

// IsAuthorized checks if a user is authorized
func (s *Service) IsAuthorized(userID int64, allowedUsers []int64) bool {
	if len(allowedUsers) == 0 {
		return true // No restrictions
	}
	return slices.Contains(allowedUsers, userID)
}
