package service

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/reshetovitsme/streamer-census/internal/modules/user/repository"
	"github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/reshetovitsme/streamer-census/internal/shared/sqlitedb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Subscriptions(t *testing.T) {
	factories := map[string]func(t *testing.T) repository.Repository{
		"file": func(t *testing.T) repository.Repository {
			repo, err := repository.NewFileStorage(t.TempDir())
			require.NoError(t, err)
			return repo
		},
		"sqlite": func(t *testing.T) repository.Repository {
			db, err := sqlitedb.Open(context.Background(), t.TempDir())
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })
			repo, err := repository.NewSQLiteStorage(context.Background(), db)
			require.NoError(t, err)
			return repo
		},
	}

	for name, open := range factories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := New(open(t))
			first := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
			svc.now = func() time.Time { return first }

			require.NoError(t, svc.Subscribe(ctx, 1, "ana", 100))
			require.NoError(t, svc.Subscribe(ctx, 2, "beto", 50))
			require.NoError(t, svc.Subscribe(ctx, 3, "caro", 100))

			chats, err := svc.SubscriberChats(ctx)
			require.NoError(t, err)
			assert.Equal(t, []int64{50, 100}, chats)

			svc.now = func() time.Time { return first.Add(48 * time.Hour) }
			require.NoError(t, svc.Subscribe(ctx, 2, "beto", 75))
			user, err := svc.GetUser(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, "beto", user.Username)
			assert.Equal(t, int64(75), user.ChatID)
			assert.True(t, first.Equal(user.AddedAt))

			require.NoError(t, svc.Unsubscribe(ctx, 2))
			require.NoError(t, svc.Unsubscribe(ctx, 2))
			chats, err = svc.SubscriberChats(ctx)
			require.NoError(t, err)
			assert.Equal(t, []int64{100}, chats)

			_, err = svc.GetUser(ctx, 2)
			assert.True(t, stderrors.Is(err, errors.ErrSubscriberNotFound))
		})
	}
}

func TestFileStorage_Reload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	repo, err := repository.NewFileStorage(dir)
	require.NoError(t, err)
	require.NoError(t, New(repo).Subscribe(ctx, 9, "dani", -100200))

	reopened, err := repository.NewFileStorage(dir)
	require.NoError(t, err)
	chats, err := New(reopened).SubscriberChats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{-100200}, chats)
}

func TestService_IsAuthorized(t *testing.T) {
	svc := New(nil)
	assert.True(t, svc.IsAuthorized(7, nil))
	assert.True(t, svc.IsAuthorized(7, []int64{1, 7}))
	assert.False(t, svc.IsAuthorized(8, []int64{1, 7}))
}
