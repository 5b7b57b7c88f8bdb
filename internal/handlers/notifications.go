package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Sidbot007/StudentBidz/internal/service"
)

const notificationParamKey string = "notificationId"

type NotificationHandler struct {
	svc service.NotificationServicer
	log *zap.Logger
}

func NewNotificationHandler(svc service.NotificationServicer, log *zap.Logger) (*NotificationHandler, error) {
	if svc == nil {
		return nil, errors.New("notification handler needs a notification service")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationHandler{svc: svc, log: log}, nil
}

type unreadCount struct {
	Count int `json:"count"`
}

// List godoc
//
//	@Summary	List notifications
//	@Tags		Notifications
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	401	{object}	map[string]any
//	@Router		/notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	notes, err := h.svc.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Notifications fetched successfully", notes)
}

func (h *NotificationHandler) Unread(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	notes, err := h.svc.Unread(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON(w, r, http.StatusOK, "Notifications fetched successfully", notes)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	n, err := h.svc.UnreadCount(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON(w, r, http.StatusOK, "", unreadCount{Count: n})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, notificationParamKey)
	if !ok {
		return
	}
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.svc.MarkRead(r.Context(), id, caller); err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON[any](w, r, http.StatusOK, "Notification marked as read", nil)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.svc.MarkAllRead(r.Context(), userID); err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON[any](w, r, http.StatusOK, "All notifications marked as read", nil)
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, notificationParamKey)
	if !ok {
		return
	}
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id, caller); err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	RespondSuccessJSON[any](w, r, http.StatusOK, "Notification deleted successfully", nil)
}
