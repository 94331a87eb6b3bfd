package controllers

import (
	"net/http"
	"strings"

	"github.com/pawcircle/pawcircle-backend/api/middleware"
	"github.com/pawcircle/pawcircle-backend/api/responses"
	"github.com/pawcircle/pawcircle-backend/api/validators"
	"github.com/pawcircle/pawcircle-backend/internal/notifications"
	pkgerrors "github.com/pawcircle/pawcircle-backend/pkg/errors"
	"github.com/pawcircle/pawcircle-backend/pkg/logger"
	"github.com/pawcircle/pawcircle-backend/pkg/pagination"
)

// inboxHandler adapts a notifications call that returns a JSON body or an error.
func inboxHandler(svc notifications.Service, logg *logger.Logger, fn func(r *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		body, err := fn(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, body)
	}
}

// ListNotifications pages the caller's inbox newest first. ?unreadOnly=true hides read rows.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request) (any, error) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			return nil, err
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unreadOnly")
		if err != nil {
			return nil, err
		}
		return svc.List(r.Context(), notifications.ListParams{
			UserID:     middleware.UserIDFromContext(r.Context()),
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			UnreadOnly: unreadOnly,
		})
	})
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request) (any, error) {
		id, err := validators.PathUUID(r, "notificationId")
		if err != nil {
			return nil, err
		}
		if err := svc.MarkRead(r.Context(), middleware.UserIDFromContext(r.Context()), id); err != nil {
			return nil, err
		}
		return map[string]bool{"read": true}, nil
	})
}

// MarkAllNotificationsRead reports how many rows flipped to read.
func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inboxHandler(svc, logg, func(r *http.Request) (any, error) {
		updated, err := svc.MarkAllRead(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			return nil, err
		}
		return map[string]int64{"updated": updated}, nil
	})
}
