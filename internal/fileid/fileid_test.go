package fileid

import (
	"testing"

	"github.com/hyperjump/gijiroku/internal/models"
)

func TestMeetingID(t *testing.T) {
	id1 := MeetingID("/inbox/standup.txt")
	if id1 != MeetingID("/inbox/standup.txt") {
		t.Error("same path should give same ID")
	}
	if id1 == MeetingID("/inbox/retro.txt") {
		t.Error("different paths should give different IDs")
	}
	if _, err := models.ValidateID(id1); err != nil {
		t.Errorf("ID %q should be a valid meeting id: %v", id1, err)
	}
}

func TestMeetingID_cleansPath(t *testing.T) {
	if MeetingID("/inbox/./notes/../standup.txt") != MeetingID("/inbox/standup.txt") {
		t.Error("equivalent paths should give the same ID")
	}
}
