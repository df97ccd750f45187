package notification

import (
	"strings"
	"testing"
	"time"
)

func TestRenderEmailBody(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	body, err := RenderEmailBody("Ana", "Unit 14 brake inspection is overdue.", "alert", at, "https://fleet.example.com/api/notifications/read?token=abc")
	if err != nil {
		t.Fatalf("RenderEmailBody: %v", err)
	}

	for _, want := range []string{
		"Hello Ana,",
		"Unit 14 brake inspection is overdue.",
		"<strong>alert</strong>",
		`href="https://fleet.example.com/api/notifications/read?token=abc"`,
		"Mark as read",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestRenderEmailBody_EscapesMessage(t *testing.T) {
	body, err := RenderEmailBody("Ana", `<script>alert("x")</script>`, "notice", time.Now(), "https://fleet.example.com/r")
	if err != nil {
		t.Fatalf("RenderEmailBody: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Error("message content must be HTML-escaped")
	}
}

func TestRenderEmailBody_DefaultsEmptyName(t *testing.T) {
	body, err := RenderEmailBody("", "msg", "notice", time.Now(), "https://fleet.example.com/r")
	if err != nil {
		t.Fatalf("RenderEmailBody: %v", err)
	}
	if !strings.Contains(body, "Hello colleague,") {
		t.Error("empty recipient name should fall back to a generic greeting")
	}
}
