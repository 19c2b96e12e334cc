package internalapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bizhub/credits-api/internal/pkg/logger"
	"github.com/bizhub/credits-api/internal/pkg/response"
	"github.com/bizhub/credits-api/internal/pkg/validator"
)

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Webhook handles POST /webhook
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	var ev WebhookEvent
	if !decode(w, r, &ev) {
		return
	}

	ctx := logger.WithFields(r.Context(), "event_type", ev.EventType, "event_id", ev.EventID)
	logger.LogInfo(ctx, "webhook received")

	var err error
	switch ev.EventType {
	case EventUserCreated, EventUserUpdated:
		err = h.onUserUpserted(ctx, ev.Data)
	case EventUserDeleted:
		err = h.onUserDeleted(ctx, ev.Data)
	default:
		logger.LogWarn(ctx, "unknown webhook event type")
	}
	if err != nil {
		WriteError(w, r.WithContext(ctx), err)
		return
	}

	response.OKWithMsg(w, "Webhook processed successfully", WebhookResponse{Received: true, EventID: ev.EventID})
}

// onUserUpserted syncs the user when data is a complete sync payload.
func (h *Handler) onUserUpserted(ctx context.Context, data json.RawMessage) error {
	var req SyncUserRequest
	if len(data) == 0 || json.Unmarshal(data, &req) != nil {
		logger.LogWarn(ctx, "webhook data is not a user payload")
		return nil
	}
	if errs := validator.Validate(req); errs != nil {
		logger.LogWarn(ctx, "webhook user payload incomplete", "details", errs)
		return nil
	}
	_, err := h.users.Sync(ctx, toSyncParams(req))
	return err
}

func (h *Handler) onUserDeleted(ctx context.Context, data json.RawMessage) error {
	var ref struct {
		BizhubUserID string `json:"bizhub_user_id"`
	}
	if len(data) == 0 || json.Unmarshal(data, &ref) != nil || ref.BizhubUserID == "" {
		logger.LogWarn(ctx, "webhook delete without bizhub_user_id")
		return nil
	}
	return h.users.MarkUnsynced(ctx, ref.BizhubUserID)
}
