package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/camfleet/fleetnotify/internal/notification"
)

type mockComposer struct {
	ComposeFunc func(ctx context.Context, draft *notification.Draft, authorID string) (*notification.ComposeResult, error)
}

func (m *mockComposer) Compose(ctx context.Context, draft *notification.Draft, authorID string) (*notification.ComposeResult, error) {
	return m.ComposeFunc(ctx, draft, authorID)
}

type mockTracker struct {
	MarkReadFunc func(ctx context.Context, notificationID, recipientID string) error
	calls        []string
}

func (m *mockTracker) MarkRead(ctx context.Context, notificationID, recipientID string) error {
	m.calls = append(m.calls, recipientID)
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, notificationID, recipientID)
	}
	return nil
}

type mockViews struct {
	ListFunc   func(ctx context.Context) ([]notification.ListItem, error)
	DetailFunc func(ctx context.Context, id string) (*notification.DetailView, error)
}

func (m *mockViews) List(ctx context.Context) ([]notification.ListItem, error) {
	return m.ListFunc(ctx)
}

func (m *mockViews) Detail(ctx context.Context, id string) (*notification.DetailView, error) {
	return m.DetailFunc(ctx, id)
}

type mockDirectory struct {
	BasesFunc   func(ctx context.Context) ([]notification.Base, error)
	ResolveFunc func(ctx context.Context, baseIDs []string) ([]notification.User, error)
}

func (m *mockDirectory) Bases(ctx context.Context) ([]notification.Base, error) {
	return m.BasesFunc(ctx)
}

func (m *mockDirectory) Resolve(ctx context.Context, baseIDs []string) ([]notification.User, error) {
	return m.ResolveFunc(ctx, baseIDs)
}

func testSigner() *notification.LinkSigner {
	return notification.NewLinkSigner("http://localhost:8080", []byte("test-key"), time.Hour)
}

func TestNotificationHandler_Compose(t *testing.T) {
	tests := []struct {
		name           string
		reqBody        string
		headers        map[string]string
		composeErr     error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "valid request",
			reqBody:        `{"title":"t","body":"b","category":"alert","base_ids":["base-a"],"author_id":"sup-1"}`,
			expectedStatus: http.StatusCreated,
			expectedBody:   `"notification_id":"notif-1"`,
		},
		{
			name:           "author from header",
			reqBody:        `{"title":"t","body":"b","category":"alert","base_ids":["base-a"]}`,
			headers:        map[string]string{"X-User-ID": "sup-1"},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"notification_id"`,
		},
		{
			name:           "missing author",
			reqBody:        `{"title":"t","body":"b","category":"alert","base_ids":["base-a"]}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "author is required",
		},
		{
			name:           "validation error",
			reqBody:        `{"title":"","body":"b","category":"alert","base_ids":["base-a"],"author_id":"sup-1"}`,
			composeErr:     notification.ErrEmptyTitle,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "title must not be empty",
		},
		{
			name:           "resolution failure",
			reqBody:        `{"title":"t","body":"b","category":"alert","base_ids":["base-a"],"author_id":"sup-1"}`,
			composeErr:     &notification.ResolutionError{Err: context.DeadlineExceeded},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   "recipient resolution failed",
		},
		{
			name:           "malformed body",
			reqBody:        `{not json`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			composer := &mockComposer{
				ComposeFunc: func(ctx context.Context, draft *notification.Draft, authorID string) (*notification.ComposeResult, error) {
					if tt.composeErr != nil {
						return nil, tt.composeErr
					}
					return &notification.ComposeResult{NotificationID: "notif-1", RecipientCount: 2, EmailCount: 1}, nil
				},
			}
			h := NewNotificationHandler(composer, &mockTracker{}, &mockViews{}, &mockDirectory{}, testSigner(), slog.Default())

			req := httptest.NewRequest(http.MethodPost, "/api/notifications", strings.NewReader(tt.reqBody))
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()

			h.Compose(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.expectedBody) {
				t.Errorf("Expected body to contain %q, got %q", tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestNotificationHandler_MarkReadLink(t *testing.T) {
	signer := testSigner()
	link, err := signer.ReadURL("notif-1", "rec-7")
	if err != nil {
		t.Fatalf("ReadURL: %v", err)
	}
	parsed, _ := url.Parse(link)
	token := parsed.Query().Get("token")

	tests := []struct {
		name           string
		query          string
		markReadErr    error
		expectedStatus int
		expectedCalls  int
	}{
		{
			name:           "valid link",
			query:          "notification=notif-1&recipient=rec-7&token=" + token,
			expectedStatus: http.StatusOK,
			expectedCalls:  1,
		},
		{
			name:           "token bound to another row",
			query:          "notification=notif-1&recipient=rec-8&token=" + token,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "missing token",
			query:          "notification=notif-1&recipient=rec-7",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown recipient",
			query:          "notification=notif-1&recipient=rec-7&token=" + token,
			markReadErr:    notification.ErrRecipientNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := &mockTracker{
				MarkReadFunc: func(ctx context.Context, notificationID, recipientID string) error {
					return tt.markReadErr
				},
			}
			h := NewNotificationHandler(&mockComposer{}, tracker, &mockViews{}, &mockDirectory{}, signer, slog.Default())

			req := httptest.NewRequest(http.MethodGet, "/api/notifications/read?"+tt.query, nil)
			w := httptest.NewRecorder()

			h.MarkReadLink(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if len(tracker.calls) != tt.expectedCalls {
				t.Errorf("Expected %d tracker calls, got %d", tt.expectedCalls, len(tracker.calls))
			}
		})
	}
}

func TestNotificationHandler_MarkReadIdempotentResponse(t *testing.T) {
	tracker := &mockTracker{} // always succeeds, including already-read rows
	h := NewNotificationHandler(&mockComposer{}, tracker, &mockViews{}, &mockDirectory{}, testSigner(), slog.Default())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/notifications/read",
			strings.NewReader(`{"notification_id":"notif-1","recipient_id":"rec-7"}`))
		w := httptest.NewRecorder()
		h.MarkRead(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("call %d: expected 200, got %d", i+1, w.Code)
		}
	}
}

func TestNotificationHandler_Detail(t *testing.T) {
	views := &mockViews{
		DetailFunc: func(ctx context.Context, id string) (*notification.DetailView, error) {
			if id != "notif-1" {
				return nil, notification.ErrNotificationNotFound
			}
			return &notification.DetailView{
				Notification: notification.Notification{ID: "notif-1", Title: "t"},
				Recipients:   []notification.RecipientSummary{},
			}, nil
		},
	}
	h := NewNotificationHandler(&mockComposer{}, &mockTracker{}, views, &mockDirectory{}, testSigner(), slog.Default())

	r := mux.NewRouter()
	r.HandleFunc("/api/notifications/{id}", h.Detail)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications/notif-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/notifications/missing", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestNotificationHandler_Recipients(t *testing.T) {
	var got []string
	directory := &mockDirectory{
		ResolveFunc: func(ctx context.Context, baseIDs []string) ([]notification.User, error) {
			got = baseIDs
			return []notification.User{{ID: "u1", Name: "Ana"}}, nil
		},
	}
	h := NewNotificationHandler(&mockComposer{}, &mockTracker{}, &mockViews{}, directory, testSigner(), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/recipients?bases=base-a,%20base-b,", nil)
	w := httptest.NewRecorder()
	h.Recipients(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if len(got) != 2 || got[0] != "base-a" || got[1] != "base-b" {
		t.Errorf("Expected trimmed base ids, got %v", got)
	}
}
