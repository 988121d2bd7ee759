package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newNoteFixture(t *testing.T) (*NoteService, Meeting) {
	t.Helper()
	store := newMemoryStore()
	clock := steppingClock(referenceTime, time.Second)
	meetings := NewMeetingService(store, fakeHasher{}, nil, sequence("meeting"), clock)
	meeting, err := meetings.CreateMeeting(context.Background(), CreateMeetingParams{Principal: ownerX, Input: MeetingInput{Name: "Planning", Password: "p"}})
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}
	return NewNoteService(store, store, sequence("note"), clock), meeting
}

func strPtr(s string) *string { return &s }

func TestNoteService_CreateNote(t *testing.T) {
	t.Parallel()

	svc, meeting := newNoteFixture(t)
	ctx := context.Background()
	due := referenceTime.Add(48 * time.Hour)

	action, err := svc.CreateNote(ctx, CreateNoteParams{Principal: ownerX, MeetingID: meeting.ID, Input: NoteInput{
		Title:         strPtr(" Deploy "),
		Type:          NoteTypeAction,
		Content:       " ship the release ",
		AssigneeName:  strPtr("Bo"),
		AssigneeEmail: strPtr("BO@example.com"),
		DueDate:       &due,
	}})
	if err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}
	if action.Priority != NotePriorityMedium {
		t.Fatalf("expected default priority medium, got %s", action.Priority)
	}
	if action.AssigneeEmail == nil || *action.AssigneeEmail != "bo@example.com" || action.DueDate == nil {
		t.Fatalf("expected assignment to be kept for action notes, got %#v", action)
	}
	if action.Title == nil || *action.Title != "Deploy" || action.Content != "ship the release" {
		t.Fatalf("expected trimmed text, got %#v", action)
	}

	idea, err := svc.CreateNote(ctx, CreateNoteParams{Principal: ownerX, MeetingID: meeting.ID, Input: NoteInput{
		Type:          NoteTypeIdea,
		Content:       "try pairing",
		Priority:      NotePriorityHigh,
		AssigneeEmail: strPtr("bo@example.com"),
		DueDate:       &due,
	}})
	if err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}
	if idea.AssigneeEmail != nil || idea.DueDate != nil {
		t.Fatalf("expected assignment to be cleared for non-action notes, got %#v", idea)
	}

	_, err = svc.CreateNote(ctx, CreateNoteParams{Principal: ownerX, MeetingID: meeting.ID, Input: NoteInput{Type: "memo", Content: "x", Priority: "critical"}})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if vErr.FieldErrors["note_type"] == "" || vErr.FieldErrors["priority"] == "" {
		t.Fatalf("expected note_type and priority errors, got %#v", vErr.FieldErrors)
	}

	if _, err := svc.CreateNote(ctx, CreateNoteParams{Principal: ownerY, MeetingID: meeting.ID, Input: NoteInput{Type: NoteTypeGeneral, Content: "x"}}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestNoteService_UpdateListDelete(t *testing.T) {
	t.Parallel()

	svc, meeting := newNoteFixture(t)
	ctx := context.Background()

	first, _ := svc.CreateNote(ctx, CreateNoteParams{Principal: ownerX, MeetingID: meeting.ID, Input: NoteInput{Type: NoteTypeAction, Content: "first", AssigneeEmail: strPtr("bo@example.com")}})
	second, _ := svc.CreateNote(ctx, CreateNoteParams{Principal: ownerX, MeetingID: meeting.ID, Input: NoteInput{Type: NoteTypeDecision, Content: "second"}})

	status := NoteStatusCompleted
	general := NoteTypeGeneral
	updated, err := svc.UpdateNote(ctx, UpdateNoteParams{Principal: ownerX, NoteID: first.ID, Patch: NotePatch{Type: &general, Status: &status}})
	if err != nil {
		t.Fatalf("UpdateNote failed: %v", err)
	}
	if updated.Content != "first" {
		t.Fatalf("expected untouched content, got %q", updated.Content)
	}
	if updated.Status == nil || *updated.Status != NoteStatusCompleted || updated.AssigneeEmail != nil {
		t.Fatalf("expected status set and assignment cleared, got %#v", updated)
	}

	if _, err := svc.UpdateNote(ctx, UpdateNoteParams{Principal: ownerX, NoteID: first.ID, Patch: NotePatch{Content: strPtr("  ")}}); err == nil {
		t.Fatalf("expected blank content to be rejected")
	}
	if _, err := svc.UpdateNote(ctx, UpdateNoteParams{Principal: ownerY, NoteID: first.ID, Patch: NotePatch{Content: strPtr("x")}}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	notes, err := svc.ListNotes(ctx, ownerX, meeting.ID)
	if err != nil || len(notes) != 2 || notes[0].ID != first.ID || notes[1].ID != second.ID {
		t.Fatalf("expected chronological notes, got %#v %v", notes, err)
	}

	if err := svc.DeleteNote(ctx, ownerY, second.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.DeleteNote(ctx, ownerX, second.ID); err != nil {
		t.Fatalf("DeleteNote failed: %v", err)
	}
	if err := svc.DeleteNote(ctx, ownerX, second.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
