package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bjaksic84/rentmate-backend/api/responses"
	"github.com/bjaksic84/rentmate-backend/api/validators"
	"github.com/bjaksic84/rentmate-backend/internal/notifications"
	"github.com/bjaksic84/rentmate-backend/pkg/enums"
	pkgerrors "github.com/bjaksic84/rentmate-backend/pkg/errors"
	"github.com/bjaksic84/rentmate-backend/pkg/logger"
)

const defaultStreamHeartbeat = 25 * time.Second

// ListNotifications returns the caller's inbox, newest first.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "notifications")
			return
		}
		id, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unread_only")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.List(r.Context(), notifications.ListParams{
			UserID:     id.UserID,
			Limit:      page.Limit,
			Cursor:     page.Cursor,
			UnreadOnly: unreadOnly,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// UnreadNotificationCount returns how many inbox entries are unread.
func UnreadNotificationCount(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "notifications")
			return
		}
		id, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		count, err := svc.UnreadCount(r.Context(), id.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"unread": count})
	}
}

// MarkNotificationRead marks one of the caller's notifications as read.
func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "notifications")
			return
		}
		id, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		notificationID, err := validators.ParseUUIDParam(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), id.UserID, notificationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}

// MarkAllNotificationsRead marks every unread notification of the caller.
func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "notifications")
			return
		}
		id, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		updated, err := svc.MarkAllRead(r.Context(), id.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}

type streamEvent struct {
	ID         uuid.UUID               `json:"id"`
	Event      enums.NotificationEvent `json:"event"`
	Title      string                  `json:"title"`
	Message    string                  `json:"message"`
	Link       string                  `json:"link,omitempty"`
	Payload    json.RawMessage         `json:"payload"`
	OccurredAt time.Time               `json:"occurred_at"`
}

// StreamNotifications pushes the caller's notifications as server-sent
// events until the client disconnects. A comment line is sent every
// heartbeat to keep proxies from closing an idle connection.
func StreamNotifications(feed notifications.Feed, heartbeat time.Duration, logg *logger.Logger) http.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = defaultStreamHeartbeat
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if feed == nil {
			serviceUnavailable(w, r, logg, "notification stream")
			return
		}
		id, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		ctx := r.Context()
		messages, closeFeed, err := feed.Open(ctx, id.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeStorageUnavailable, err, "open notification stream"))
			return
		}
		defer func() {
			if err := closeFeed(); err != nil && logg != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "notifications.stream.close_failed")
			}
		}()

		// streams outlive the server write timeout
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case msg, ok := <-messages:
				if !ok {
					return
				}
				if err := writeStreamEvent(w, msg); err != nil {
					if logg != nil {
						logg.Warn(logg.WithField(ctx, "error", err.Error()), "notifications.stream.write_failed")
					}
					return
				}
				flusher.Flush()
			}
		}
	}
}

func writeStreamEvent(w http.ResponseWriter, msg notifications.Message) error {
	rendered := notifications.Render(msg)
	data, err := json.Marshal(streamEvent{
		ID:         msg.ID,
		Event:      msg.Event,
		Title:      rendered.Title,
		Message:    rendered.Message,
		Link:       rendered.Link,
		Payload:    msg.Payload,
		OccurredAt: msg.OccurredAt,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", msg.ID, msg.Event, data)
	return err
}
