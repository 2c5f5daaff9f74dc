package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/flash"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// FlashStore queues one-shot notices per session.
type FlashStore interface {
	Push(ctx context.Context, sessionID string, level enums.FlashLevel, msg string) error
	Pop(ctx context.Context, sessionID string) ([]flash.Message, error)
}

// requireUser returns the authenticated user id or writes UNAUTHORIZED.
func requireUser(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return uuid.Nil, false
	}
	return userID, true
}

// pushFlash queues a notice for the next page. A failing store only costs the
// notice.
func pushFlash(ctx context.Context, store FlashStore, logg *logger.Logger, level enums.FlashLevel, msg string) {
	if store == nil || msg == "" {
		return
	}
	sessionID := middleware.SessionIDFromContext(ctx)
	if sessionID == "" {
		return
	}
	if err := store.Push(ctx, sessionID, level, msg); err != nil && logg != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "flash.push_failed")
	}
}

func popFlash(ctx context.Context, store FlashStore, logg *logger.Logger) []flash.Message {
	out := []flash.Message{}
	sessionID := middleware.SessionIDFromContext(ctx)
	if store == nil || sessionID == "" {
		return out
	}
	msgs, err := store.Pop(ctx, sessionID)
	if err != nil {
		if logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "flash.pop_failed")
		}
		return out
	}
	return append(out, msgs...)
}

// flashFailure turns err into an error notice. Server-side failures are also
// logged since no error body will be rendered for them.
func flashFailure(ctx context.Context, store FlashStore, logg *logger.Logger, err error) {
	code, msg := responses.PublicMessage(err)
	if pkgerrors.MetadataFor(code).HTTPStatus >= http.StatusInternalServerError && logg != nil {
		logg.Error(ctx, "request.error", err)
	}
	pushFlash(ctx, store, logg, enums.FlashError, msg)
}
