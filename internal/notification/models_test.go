package notification

import (
	"errors"
	"testing"
)

func TestDraft_Validate(t *testing.T) {
	valid := Draft{
		Title:    "Shift change",
		Body:     "Night shift starts at 20:00.",
		Category: "notice",
		BaseIDs:  []string{"base-a", "base-b"},
		Attachments: Attachments{
			{Name: "roster.pdf", URL: "https://files.example.com/roster.pdf"},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid draft rejected: %v", err)
	}

	atLimit := valid
	atLimit.Attachments = Attachments{{}, {}, {}}
	if err := atLimit.Validate(); err != nil {
		t.Errorf("exactly %d attachments must be accepted: %v", MaxAttachments, err)
	}

	overLimit := valid
	overLimit.Attachments = Attachments{{}, {}, {}, {}}
	if err := overLimit.Validate(); !errors.Is(err, ErrTooManyAttachments) {
		t.Errorf("expected ErrTooManyAttachments, got %v", err)
	}
}

func TestAttachments_ValueNilIsEmptyList(t *testing.T) {
	var a Attachments
	v, err := a.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if string(v.([]byte)) != "[]" {
		t.Errorf("nil attachments must serialize as an empty list, got %s", v)
	}
}
