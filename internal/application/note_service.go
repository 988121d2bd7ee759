package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// NoteService manages structured notes attached to meetings.
type NoteService struct {
	meetings    MeetingRepository
	notes       NoteRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewNoteService constructs a note service with the provided dependencies.
func NewNoteService(meetings MeetingRepository, notes NoteRepository, idGenerator func() string, now func() time.Time) *NoteService {
	return NewNoteServiceWithLogger(meetings, notes, idGenerator, now, nil)
}

// NewNoteServiceWithLogger constructs a note service with a specified logger.
func NewNoteServiceWithLogger(meetings MeetingRepository, notes NoteRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *NoteService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &NoteService{meetings: meetings, notes: notes, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *NoteService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "NoteService", operation, attrs...)
}

func (s *NoteService) configured() error {
	if s == nil {
		return fmt.Errorf("NoteService is nil")
	}
	if s.meetings == nil || s.notes == nil {
		return fmt.Errorf("note dependencies not configured")
	}
	return nil
}

// CreateNote attaches a note to an owned meeting.
func (s *NoteService) CreateNote(ctx context.Context, params CreateNoteParams) (note Note, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateNote", "principal_id", params.Principal.AccountID, "meeting_id", params.MeetingID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create note", "note created", "note_id", note.ID)
	}()

	input := params.Input
	input.Title = normalizeOptionalString(input.Title)
	input.Content = strings.TrimSpace(input.Content)
	input.Type = NoteType(strings.ToLower(strings.TrimSpace(string(input.Type))))
	input.Priority = NotePriority(strings.ToLower(strings.TrimSpace(string(input.Priority))))
	input.AssigneeName = normalizeOptionalString(input.AssigneeName)
	input.AssigneeEmail = normalizeOptionalEmail(input.AssigneeEmail)
	if vErr := validateInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	var meeting Meeting
	meeting, err = loadOwnedMeeting(ctx, s.meetings, params.Principal, params.MeetingID)
	if err != nil {
		return
	}

	now := s.now()
	note = Note{
		ID:            s.idGenerator(),
		MeetingID:     meeting.ID,
		AccountID:     meeting.AccountID,
		Title:         input.Title,
		Type:          input.Type,
		Content:       input.Content,
		AssigneeName:  input.AssigneeName,
		AssigneeEmail: input.AssigneeEmail,
		DueDate:       input.DueDate,
		Priority:      input.Priority,
		Status:        input.Status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if note.Priority == "" {
		note.Priority = NotePriorityMedium
	}
	clearAssignmentUnlessAction(&note)

	note, err = s.notes.CreateNote(ctx, note)
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// ListNotes returns the notes of an owned meeting in creation order.
func (s *NoteService) ListNotes(ctx context.Context, principal Principal, meetingID string) (notes []Note, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ListNotes", "principal_id", principal.AccountID, "meeting_id", meetingID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to list notes", "notes listed", "count", len(notes))
	}()

	if _, err = loadOwnedMeeting(ctx, s.meetings, principal, meetingID); err != nil {
		return
	}
	notes, err = s.notes.ListNotes(ctx, meetingID)
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// UpdateNote applies the non-nil fields of the patch to an owned note.
func (s *NoteService) UpdateNote(ctx context.Context, params UpdateNoteParams) (note Note, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateNote", "principal_id", params.Principal.AccountID, "note_id", params.NoteID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update note", "note updated")
	}()

	patch := params.Patch
	if patch.Content != nil {
		trimmed := strings.TrimSpace(*patch.Content)
		if trimmed == "" {
			err = newValidationError("content", "content is required")
			return
		}
		patch.Content = &trimmed
	}
	if vErr := validateInput(patch); vErr.HasErrors() {
		err = vErr
		return
	}

	note, err = s.ownedNote(ctx, params.Principal, params.NoteID)
	if err != nil {
		return
	}

	if patch.Title != nil {
		note.Title = normalizeOptionalString(patch.Title)
	}
	if patch.Type != nil {
		note.Type = *patch.Type
	}
	if patch.Content != nil {
		note.Content = *patch.Content
	}
	if patch.AssigneeName != nil {
		note.AssigneeName = normalizeOptionalString(patch.AssigneeName)
	}
	if patch.AssigneeEmail != nil {
		note.AssigneeEmail = normalizeOptionalEmail(patch.AssigneeEmail)
	}
	if patch.DueDate != nil {
		note.DueDate = patch.DueDate
	}
	if patch.Priority != nil {
		note.Priority = *patch.Priority
	}
	if patch.Status != nil {
		status := *patch.Status
		note.Status = &status
	}
	clearAssignmentUnlessAction(&note)
	note.UpdatedAt = s.now()

	note, err = s.notes.UpdateNote(ctx, note)
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// DeleteNote removes an owned note.
func (s *NoteService) DeleteNote(ctx context.Context, principal Principal, noteID string) (err error) {
	if err = s.configured(); err != nil {
		return err
	}

	logger := s.loggerWith(ctx, "DeleteNote", "principal_id", principal.AccountID, "note_id", noteID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to delete note", "note deleted")
	}()

	if _, err = s.ownedNote(ctx, principal, noteID); err != nil {
		return err
	}
	if err = s.notes.DeleteNote(ctx, noteID); err != nil {
		err = mapRepoError(err)
	}
	return err
}

func (s *NoteService) ownedNote(ctx context.Context, principal Principal, noteID string) (Note, error) {
	if !principal.authenticated() {
		return Note{}, ErrUnauthorized
	}
	noteID = strings.TrimSpace(noteID)
	if noteID == "" {
		return Note{}, ErrNotFound
	}
	note, err := s.notes.GetNote(ctx, noteID)
	if err != nil {
		return Note{}, mapRepoError(err)
	}
	if note.AccountID != principal.AccountID {
		return Note{}, ErrUnauthorized
	}
	return note, nil
}

// clearAssignmentUnlessAction drops assignee and due date from notes that are not actions.
func clearAssignmentUnlessAction(note *Note) {
	if note.Type == NoteTypeAction {
		return
	}
	note.AssigneeName = nil
	note.AssigneeEmail = nil
	note.DueDate = nil
}
