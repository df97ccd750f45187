package notification

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestLinkSigner_RoundTrip(t *testing.T) {
	signer := NewLinkSigner("https://fleet.example.com", []byte("secret"), time.Hour)

	link, err := signer.ReadURL("notif-1", "rec-7")
	if err != nil {
		t.Fatalf("ReadURL: %v", err)
	}
	if !strings.HasPrefix(link, "https://fleet.example.com/api/notifications/read?") {
		t.Fatalf("unexpected link prefix: %s", link)
	}

	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("link is not a valid URL: %v", err)
	}
	q := parsed.Query()
	if q.Get("notification") != "notif-1" || q.Get("recipient") != "rec-7" {
		t.Errorf("link must carry notification and recipient ids, got %s", parsed.RawQuery)
	}

	nid, rid, err := signer.Verify(q.Get("token"))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if nid != "notif-1" || rid != "rec-7" {
		t.Errorf("token bound to (%s, %s), want (notif-1, rec-7)", nid, rid)
	}
}

func TestLinkSigner_RejectsTamperedToken(t *testing.T) {
	signer := NewLinkSigner("https://fleet.example.com", []byte("secret"), time.Hour)

	link, err := signer.ReadURL("notif-1", "rec-7")
	if err != nil {
		t.Fatalf("ReadURL: %v", err)
	}
	parsed, _ := url.Parse(link)
	token := parsed.Query().Get("token")

	if _, _, err := signer.Verify(token + "x"); err == nil {
		t.Error("a tampered token must not verify")
	}

	other := NewLinkSigner("https://fleet.example.com", []byte("different-key"), time.Hour)
	if _, _, err := other.Verify(token); err == nil {
		t.Error("a token signed with another key must not verify")
	}
}

func TestLinkSigner_RejectsExpiredToken(t *testing.T) {
	signer := NewLinkSigner("https://fleet.example.com", []byte("secret"), -time.Minute)

	link, err := signer.ReadURL("notif-1", "rec-7")
	if err != nil {
		t.Fatalf("ReadURL: %v", err)
	}
	parsed, _ := url.Parse(link)
	if _, _, err := signer.Verify(parsed.Query().Get("token")); err == nil {
		t.Error("an expired token must not verify")
	}
}
