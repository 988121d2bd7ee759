package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/credential"
)

var (
	ownerX = Principal{AccountID: "acct-x", Email: "x@example.com"}
	ownerY = Principal{AccountID: "acct-y", Email: "y@example.com"}
)

func newMeetingFixture(t *testing.T) (*MeetingService, *memoryStore, *countingLimiter) {
	t.Helper()
	store := newMemoryStore()
	limiter := newCountingLimiter(5)
	svc := NewMeetingService(store, fakeHasher{}, limiter, sequence("meeting"), steppingClock(referenceTime, time.Minute))
	return svc, store, limiter
}

func TestMeetingService_CreateMeeting(t *testing.T) {
	t.Parallel()

	t.Run("persists an active meeting with a hashed password", func(t *testing.T) {
		t.Parallel()

		svc, store, _ := newMeetingFixture(t)
		desc := "  daily sync "
		meeting, err := svc.CreateMeeting(context.Background(), CreateMeetingParams{
			Principal: ownerX,
			Input:     MeetingInput{Name: " Standup ", Password: "abc123", Description: &desc},
		})
		if err != nil {
			t.Fatalf("CreateMeeting failed: %v", err)
		}
		if meeting.Name != "Standup" || meeting.Status != MeetingStatusActive {
			t.Fatalf("unexpected meeting %#v", meeting)
		}
		if meeting.Description == nil || *meeting.Description != "daily sync" {
			t.Fatalf("expected trimmed description, got %v", meeting.Description)
		}
		if !meeting.StartTime.Equal(referenceTime) || meeting.EndTime != nil {
			t.Fatalf("expected start now and no end, got %v %v", meeting.StartTime, meeting.EndTime)
		}
		if store.meetings[meeting.ID].PasswordHash == "abc123" {
			t.Fatalf("password must not be stored in clear")
		}
	})

	t.Run("requires a name and password", func(t *testing.T) {
		t.Parallel()

		svc, store, _ := newMeetingFixture(t)
		_, err := svc.CreateMeeting(context.Background(), CreateMeetingParams{Principal: ownerX, Input: MeetingInput{Name: "   "}})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if vErr.FieldErrors["name"] != "name is required" || vErr.FieldErrors["password"] != "password is required" {
			t.Fatalf("unexpected field errors %#v", vErr.FieldErrors)
		}
		if len(store.meetings) != 0 {
			t.Fatalf("expected nothing stored")
		}
	})

	t.Run("rejects passwords longer than 72 bytes", func(t *testing.T) {
		t.Parallel()

		store := newMemoryStore()
		svc := NewMeetingService(store, credential.NewHasher(credential.MinCost), nil, sequence("meeting"), nil)
		_, err := svc.CreateMeeting(context.Background(), CreateMeetingParams{
			Principal: ownerX,
			Input:     MeetingInput{Name: "Retro", Password: strings.Repeat("é", 40)},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if got := vErr.FieldErrors["password"]; got != "password must be at most 72 bytes" {
			t.Fatalf("unexpected password error %q", got)
		}
		if len(store.meetings) != 0 {
			t.Fatalf("expected nothing stored")
		}
	})

	t.Run("surfaces hashing failures", func(t *testing.T) {
		t.Parallel()

		store := newMemoryStore()
		svc := NewMeetingService(store, fakeHasher{failHash: true}, nil, sequence("meeting"), nil)
		_, err := svc.CreateMeeting(context.Background(), CreateMeetingParams{Principal: ownerX, Input: MeetingInput{Name: "A", Password: "p"}})
		if err == nil || ErrorKind(err) != "unexpected" {
			t.Fatalf("expected backend error, got %v", err)
		}
	})

	t.Run("requires an authenticated principal", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newMeetingFixture(t)
		_, err := svc.CreateMeeting(context.Background(), CreateMeetingParams{Input: MeetingInput{Name: "A", Password: "p"}})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestMeetingService_VerifyMeetingAccess(t *testing.T) {
	t.Parallel()

	svc, _, limiter := newMeetingFixture(t)
	ctx := context.Background()
	meeting, err := svc.CreateMeeting(ctx, CreateMeetingParams{Principal: ownerX, Input: MeetingInput{Name: "Standup", Password: "abc123"}})
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}

	cases := []struct {
		name      string
		principal Principal
		meetingID string
		password  string
		want      bool
	}{
		{name: "owner with correct password", principal: ownerX, meetingID: meeting.ID, password: "abc123", want: true},
		{name: "owner with wrong password", principal: ownerX, meetingID: meeting.ID, password: "wrong", want: false},
		{name: "other account with correct password", principal: ownerY, meetingID: meeting.ID, password: "abc123", want: false},
		{name: "missing meeting", principal: ownerX, meetingID: "meeting-404", password: "abc123", want: false},
	}
	for _, tc := range cases {
		got, err := svc.VerifyMeetingAccess(ctx, VerifyMeetingAccessParams{Principal: tc.principal, MeetingID: tc.meetingID, Password: tc.password})
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
	if limiter.resets != 1 {
		t.Fatalf("expected a successful check to reset attempts, got %d resets", limiter.resets)
	}
}

func TestMeetingService_VerifyMeetingAccessRateLimited(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	svc := NewMeetingService(store, fakeHasher{}, newCountingLimiter(2), sequence("meeting"), nil)
	ctx := context.Background()
	meeting, _ := svc.CreateMeeting(ctx, CreateMeetingParams{Principal: ownerX, Input: MeetingInput{Name: "Standup", Password: "abc123"}})

	for i := 0; i < 2; i++ {
		if ok, err := svc.VerifyMeetingAccess(ctx, VerifyMeetingAccessParams{Principal: ownerX, MeetingID: meeting.ID, Password: "nope"}); ok || err != nil {
			t.Fatalf("attempt %d: ok=%v err=%v", i+1, ok, err)
		}
	}
	_, err := svc.VerifyMeetingAccess(ctx, VerifyMeetingAccessParams{Principal: ownerX, MeetingID: meeting.ID, Password: "abc123"})
	if !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestMeetingService_ListAndSearch(t *testing.T) {
	t.Parallel()

	svc, _, _ := newMeetingFixture(t)
	ctx := context.Background()
	for _, name := range []string{"Weekly STANDUP", "Retro", "standup follow-up"} {
		if _, err := svc.CreateMeeting(ctx, CreateMeetingParams{Principal: ownerX, Input: MeetingInput{Name: name, Password: "p"}}); err != nil {
			t.Fatalf("CreateMeeting(%s) failed: %v", name, err)
		}
	}
	if _, err := svc.CreateMeeting(ctx, CreateMeetingParams{Principal: ownerY, Input: MeetingInput{Name: "Standup of Y", Password: "p"}}); err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}

	all, err := svc.ListMeetings(ctx, ownerX)
	if err != nil {
		t.Fatalf("ListMeetings failed: %v", err)
	}
	if len(all) != 3 || all[0].Name != "standup follow-up" || all[2].Name != "Weekly STANDUP" {
		t.Fatalf("expected newest first, got %v", meetingNames(all))
	}

	found, err := svc.SearchMeetings(ctx, ownerX, "StandUp")
	if err != nil {
		t.Fatalf("SearchMeetings failed: %v", err)
	}
	if got := meetingNames(found); len(got) != 2 || got[0] != "standup follow-up" || got[1] != "Weekly STANDUP" {
		t.Fatalf("unexpected search result %v", got)
	}

	folded := filterMeetingsByName([]Meeting{{Name: "Straße planning"}}, "STRASSE")
	if len(folded) != 1 {
		t.Fatalf("expected unicode case folding to match, got %v", folded)
	}
}

func meetingNames(meetings []Meeting) []string {
	names := make([]string, 0, len(meetings))
	for _, m := range meetings {
		names = append(names, m.Name)
	}
	return names
}

func TestMeetingService_StatusTransitions(t *testing.T) {
	t.Parallel()

	svc, _, _ := newMeetingFixture(t)
	ctx := context.Background()
	meeting, _ := svc.CreateMeeting(ctx, CreateMeetingParams{Principal: ownerX, Input: MeetingInput{Name: "Standup", Password: "p"}})

	if _, err := svc.EndMeeting(ctx, ownerY, meeting.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-owner, got %v", err)
	}
	if _, err := svc.EndMeeting(ctx, ownerX, "meeting-404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.ResumeMeeting(ctx, ownerX, meeting.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected resume of active meeting to fail, got %v", err)
	}

	paused, err := svc.PauseMeeting(ctx, ownerX, meeting.ID)
	if err != nil || paused.Status != MeetingStatusPaused {
		t.Fatalf("PauseMeeting: %v %v", paused.Status, err)
	}
	resumed, err := svc.ResumeMeeting(ctx, ownerX, meeting.ID)
	if err != nil || resumed.Status != MeetingStatusActive {
		t.Fatalf("ResumeMeeting: %v %v", resumed.Status, err)
	}

	ended, err := svc.EndMeeting(ctx, ownerX, meeting.ID)
	if err != nil {
		t.Fatalf("EndMeeting failed: %v", err)
	}
	if ended.Status != MeetingStatusEnded || ended.EndTime == nil || !ended.EndTime.After(ended.StartTime) {
		t.Fatalf("expected ended meeting with end time, got %#v", ended)
	}
	if _, err := svc.EndMeeting(ctx, ownerX, meeting.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected second end to fail, got %v", err)
	}
	if _, err := svc.PauseMeeting(ctx, ownerX, meeting.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected pause of ended meeting to fail, got %v", err)
	}
}

func TestMeetingService_DeleteMeetingCascades(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	meetings := NewMeetingService(store, fakeHasher{}, nil, sequence("meeting"), nil)
	participants := NewParticipantService(store, store, sequence("participant"), nil)
	notes := NewNoteService(store, store, sequence("note"), nil)
	ctx := context.Background()

	meeting, _ := meetings.CreateMeeting(ctx, CreateMeetingParams{Principal: ownerX, Input: MeetingInput{Name: "Standup", Password: "p"}})
	if _, err := participants.AddParticipant(ctx, AddParticipantParams{Principal: ownerX, MeetingID: meeting.ID, Input: ParticipantInput{Name: "Ana"}}); err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}
	if _, err := notes.CreateNote(ctx, CreateNoteParams{Principal: ownerX, MeetingID: meeting.ID, Input: NoteInput{Type: NoteTypeGeneral, Content: "hello"}}); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}

	if err := meetings.DeleteMeeting(ctx, ownerY, meeting.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := meetings.DeleteMeeting(ctx, ownerX, meeting.ID); err != nil {
		t.Fatalf("DeleteMeeting failed: %v", err)
	}
	if len(store.meetings) != 0 || len(store.participants) != 0 || len(store.notes) != 0 {
		t.Fatalf("expected cascade, got %d meetings %d participants %d notes", len(store.meetings), len(store.participants), len(store.notes))
	}
	if _, err := meetings.GetMeeting(ctx, ownerX, meeting.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
