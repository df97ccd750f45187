package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/camfleet/fleetnotify/internal/notification"
	"github.com/camfleet/fleetnotify/pkg/jsonutil"
)

type composerService interface {
	Compose(ctx context.Context, draft *notification.Draft, authorID string) (*notification.ComposeResult, error)
}

type trackerService interface {
	MarkRead(ctx context.Context, notificationID, recipientID string) error
}

type viewStore interface {
	List(ctx context.Context) ([]notification.ListItem, error)
	Detail(ctx context.Context, id string) (*notification.DetailView, error)
}

type directory interface {
	Bases(ctx context.Context) ([]notification.Base, error)
	Resolve(ctx context.Context, baseIDs []string) ([]notification.User, error)
}

type NotificationHandler struct {
	composer  composerService
	tracker   trackerService
	views     viewStore
	directory directory
	signer    *notification.LinkSigner
	log       *slog.Logger
}

func NewNotificationHandler(composer composerService, tracker trackerService, views viewStore, directory directory, signer *notification.LinkSigner, log *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		composer:  composer,
		tracker:   tracker,
		views:     views,
		directory: directory,
		signer:    signer,
		log:       log,
	}
}

type composeRequest struct {
	notification.Draft
	AuthorID string `json:"author_id"`
}

// Compose handles POST /api/notifications.
func (h *NotificationHandler) Compose(w http.ResponseWriter, r *http.Request) {
	var req composeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	authorID := req.AuthorID
	if authorID == "" {
		authorID = r.Header.Get("X-User-ID")
	}
	if authorID == "" {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "author is required")
		return
	}

	result, err := h.composer.Compose(r.Context(), &req.Draft, authorID)
	if err != nil {
		h.writeComposeError(w, err)
		return
	}
	jsonutil.WriteJSON(w, http.StatusCreated, result)
}

func (h *NotificationHandler) writeComposeError(w http.ResponseWriter, err error) {
	if notification.IsValidationError(err) {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	var resErr *notification.ResolutionError
	if errors.As(err, &resErr) {
		h.log.Error("compose aborted on recipient resolution", "error", err)
		jsonutil.WriteErrorJSON(w, http.StatusBadGateway, "recipient resolution failed")
		return
	}

	h.log.Error("compose failed", "error", err)
	jsonutil.WriteErrorJSON(w, http.StatusInternalServerError, "failed to create notification")
}

// List handles GET /api/notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.views.List(r.Context())
	if err != nil {
		h.log.Error("failed to list notifications", "error", err)
		jsonutil.WriteErrorJSON(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"count":         len(items),
	})
}

// Detail handles GET /api/notifications/{id}.
func (h *NotificationHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	view, err := h.views.Detail(r.Context(), id)
	if err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			jsonutil.WriteErrorJSON(w, http.StatusNotFound, "notification not found")
			return
		}
		h.log.Error("failed to load notification", "id", id, "error", err)
		jsonutil.WriteErrorJSON(w, http.StatusInternalServerError, "failed to load notification")
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, view)
}

// MarkReadLink handles GET /api/notifications/read, the link embedded in
// notification emails. It verifies the signed token and answers with a
// small HTML page the recipient's mail client can open directly.
func (h *NotificationHandler) MarkReadLink(w http.ResponseWriter, r *http.Request) {
	notificationID := r.URL.Query().Get("notification")
	recipientID := r.URL.Query().Get("recipient")
	token := r.URL.Query().Get("token")
	if notificationID == "" || recipientID == "" || token == "" {
		http.Error(w, "missing notification, recipient or token", http.StatusBadRequest)
		return
	}

	signedNotification, signedRecipient, err := h.signer.Verify(token)
	if err != nil || signedNotification != notificationID || signedRecipient != recipientID {
		http.Error(w, "invalid or expired link", http.StatusForbidden)
		return
	}

	if err := h.tracker.MarkRead(r.Context(), notificationID, recipientID); err != nil {
		if errors.Is(err, notification.ErrRecipientNotFound) {
			http.Error(w, "recipient not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to mark notification read", "recipient_id", recipientID, "error", err)
		http.Error(w, "something went wrong", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!doctype html><html><body style="font-family:Arial,sans-serif;text-align:center;padding:48px;">`+
		`<h2>Notification marked as read</h2><p>You can close this window.</p></body></html>`)
}

type markReadRequest struct {
	NotificationID string `json:"notification_id"`
	RecipientID    string `json:"recipient_id"`
}

// MarkRead handles POST /api/notifications/read from the dashboard UI.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RecipientID == "" {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "recipient_id is required")
		return
	}

	if err := h.tracker.MarkRead(r.Context(), req.NotificationID, req.RecipientID); err != nil {
		if errors.Is(err, notification.ErrRecipientNotFound) {
			jsonutil.WriteErrorJSON(w, http.StatusNotFound, "recipient not found")
			return
		}
		h.log.Error("failed to mark notification read", "recipient_id", req.RecipientID, "error", err)
		jsonutil.WriteErrorJSON(w, http.StatusInternalServerError, "failed to mark as read")
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// Bases handles GET /api/bases.
func (h *NotificationHandler) Bases(w http.ResponseWriter, r *http.Request) {
	bases, err := h.directory.Bases(r.Context())
	if err != nil {
		h.log.Error("failed to list bases", "error", err)
		jsonutil.WriteErrorJSON(w, http.StatusInternalServerError, "failed to list bases")
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, map[string]any{"bases": bases})
}

// Recipients handles GET /api/recipients?bases=a,b. It previews the
// membership the composer would resolve for the selected bases.
func (h *NotificationHandler) Recipients(w http.ResponseWriter, r *http.Request) {
	baseIDs := []string{}
	if raw := r.URL.Query().Get("bases"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				baseIDs = append(baseIDs, id)
			}
		}
	}

	users, err := h.directory.Resolve(r.Context(), baseIDs)
	if err != nil {
		h.log.Error("failed to resolve recipients", "error", err)
		jsonutil.WriteErrorJSON(w, http.StatusBadGateway, "failed to resolve recipients")
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, map[string]any{
		"recipients": users,
		"count":      len(users),
	})
}
