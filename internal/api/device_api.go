// Package api exposes the authenticated device registration endpoints that
// write push-delivery fields onto the caller's user document.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-microservice-base/pkg/response"
	"github.com/tinywideclouds/go-platform/pkg/notification/v1"

	"github.com/taskmutual/go-chat-notifier/pkg/chat"
)

type DeviceAPI struct {
	Writer chat.TokenWriter
	Logger *slog.Logger
}

func NewDeviceAPI(writer chat.TokenWriter, logger *slog.Logger) *DeviceAPI {
	return &DeviceAPI{
		Writer: writer,
		Logger: logger,
	}
}

type registerFCMRequest struct {
	Token string `json:"token"`
}

func (api *DeviceAPI) RegisterFCM(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserHandleFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req registerFCMRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Token == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing token")
		return
	}

	if err := api.Writer.SetFCMToken(ctx, userID, req.Token); err != nil {
		api.Logger.Error("failed to register fcm token", "user_id", userID, "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "storage failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *DeviceAPI) UnregisterFCM(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserHandleFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := api.Writer.ClearFCMToken(ctx, userID); err != nil {
		// Log but don't fail hard; unregister is idempotent from the
		// client's point of view.
		api.Logger.Warn("failed to unregister fcm token", "user_id", userID, "err", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *DeviceAPI) RegisterWeb(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserHandleFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var sub notification.WebPushSubscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		api.Logger.Error("RegisterWeb: JSON decode failed", "err", err)
		response.WriteJSONError(w, http.StatusBadRequest, "invalid subscription json")
		return
	}

	if sub.Endpoint == "" || len(sub.Keys.P256dh) == 0 || len(sub.Keys.Auth) == 0 {
		response.WriteJSONError(w, http.StatusBadRequest, "incomplete subscription object")
		return
	}

	if err := api.Writer.SetWebSubscription(ctx, userID, sub); err != nil {
		api.Logger.Error("failed to register web subscription", "user_id", userID, "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "storage failed")
		return
	}
	api.Logger.Info("web subscription registered", "user_id", userID, "endpoint", sub.Endpoint)

	w.WriteHeader(http.StatusNoContent)
}

func (api *DeviceAPI) UnregisterWeb(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserHandleFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := api.Writer.ClearWebSubscription(ctx, userID); err != nil {
		api.Logger.Warn("failed to unregister web subscription", "user_id", userID, "err", err)
	}

	w.WriteHeader(http.StatusNoContent)
}
