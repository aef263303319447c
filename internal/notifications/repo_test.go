package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaksic84/rentmate-backend/pkg/db/dbtest"
	"github.com/bjaksic84/rentmate-backend/pkg/db/models"
	"github.com/bjaksic84/rentmate-backend/pkg/enums"
)

func seedNotification(t *testing.T, r Repository, userID uuid.UUID, createdAt time.Time) models.Notification {
	t.Helper()
	row := models.Notification{
		UserID:    userID,
		Event:     enums.NotificationEventRentalRequested,
		Title:     "New rental request",
		Message:   "hello",
		CreatedAt: createdAt,
	}
	require.NoError(t, r.Create(context.Background(), &row))
	return row
}

func TestRepositoryListPagesWithoutSkipping(t *testing.T) {
	r := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	userID := uuid.New()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	var want []uuid.UUID
	for i := 0; i < 5; i++ {
		row := seedNotification(t, r, userID, base.Add(time.Duration(i)*time.Minute))
		want = append([]uuid.UUID{row.ID}, want...)
	}
	seedNotification(t, r, uuid.New(), base)

	var got []uuid.UUID
	params := listNotificationsParams{UserID: userID, Limit: 2}
	for pages := 0; pages < 5; pages++ {
		rows, next, err := r.List(ctx, params)
		require.NoError(t, err)
		for _, row := range rows {
			got = append(got, row.ID)
		}
		if next == nil {
			break
		}
		params.Cursor = next
	}
	assert.Equal(t, want, got)
}

func TestRepositoryMarkRead(t *testing.T) {
	r := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	userID := uuid.New()
	row := seedNotification(t, r, userID, time.Now().UTC())
	now := time.Now().UTC()

	result, err := r.MarkRead(ctx, uuid.New(), row.ID, now)
	require.NoError(t, err)
	assert.False(t, result.Found, "other users cannot mark the row")

	result, err = r.MarkRead(ctx, userID, row.ID, now)
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.True(t, result.Updated)

	result, err = r.MarkRead(ctx, userID, row.ID, now)
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.False(t, result.Updated)

	unread, err := r.CountUnread(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestRepositoryMarkAllReadAndUnreadFilter(t *testing.T) {
	r := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	userID := uuid.New()
	for i := 0; i < 3; i++ {
		seedNotification(t, r, userID, time.Now().UTC().Add(time.Duration(i)*time.Second))
	}

	unread, _, err := r.List(ctx, listNotificationsParams{UserID: userID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread, 3)

	updated, err := r.MarkAllRead(ctx, userID, time.Now().UTC())
	require.NoError(t, err)
	assert.EqualValues(t, 3, updated)

	unread, _, err = r.List(ctx, listNotificationsParams{UserID: userID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestRepositoryDeleteOlderThan(t *testing.T) {
	r := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	userID := uuid.New()
	cutoff := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	seedNotification(t, r, userID, cutoff.Add(-48*time.Hour))
	seedNotification(t, r, userID, cutoff.Add(-time.Hour))
	kept := seedNotification(t, r, userID, cutoff.Add(time.Hour))

	deleted, err := r.DeleteOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	rows, _, err := r.List(ctx, listNotificationsParams{UserID: userID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, kept.ID, rows[0].ID)
}
