package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
)

type noteService interface {
	CreateNote(ctx context.Context, params application.CreateNoteParams) (application.Note, error)
	ListNotes(ctx context.Context, principal application.Principal, meetingID string) ([]application.Note, error)
	UpdateNote(ctx context.Context, params application.UpdateNoteParams) (application.Note, error)
	DeleteNote(ctx context.Context, principal application.Principal, noteID string) error
}

// NoteHandler serves meeting note endpoints.
type NoteHandler struct {
	service   noteService
	responder responder
	logger    *slog.Logger
}

func NewNoteHandler(service noteService, logger *slog.Logger) *NoteHandler {
	base := defaultLogger(logger)
	return &NoteHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *NoteHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "NoteHandler", operation, attrs...)
}

// Create adds a note to an active meeting.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetingID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req noteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "meeting_id", meetingID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode note request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	input := application.NoteInput{
		Title:         req.Title,
		Content:       req.Content,
		AssigneeName:  req.AssigneeName,
		AssigneeEmail: req.AssigneeEmail,
		DueDate:       dueDate,
	}
	if req.NoteType != nil {
		input.Type = application.NoteType(strings.TrimSpace(*req.NoteType))
	}
	if req.Priority != nil {
		input.Priority = application.NotePriority(strings.TrimSpace(*req.Priority))
	}
	if req.Status != nil {
		status := application.NoteStatus(strings.TrimSpace(*req.Status))
		input.Status = &status
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.AccountID, "meeting_id", meetingID)
	note, err := h.service.CreateNote(r.Context(), application.CreateNoteParams{
		Principal: principal,
		MeetingID: meetingID,
		Input:     input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "note creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("note_id", note.ID).InfoContext(r.Context(), "note created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toNoteDTO(note))
}

// List returns the notes of a meeting in creation order.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetingID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.AccountID, "meeting_id", meetingID)

	notes, err := h.service.ListNotes(r.Context(), principal, meetingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "note list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]noteDTO, 0, len(notes))
	for _, note := range notes {
		dtos = append(dtos, toNoteDTO(note))
	}
	logger.With("result_count", len(dtos)).InfoContext(r.Context(), "notes listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listNotesResponse{Notes: dtos})
}

// Update applies a partial change to a note. Omitted fields are left untouched.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	noteID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req notePatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "note_id", noteID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode note patch", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	patch := application.NotePatch{
		Title:         req.Title,
		Content:       req.Content,
		AssigneeName:  req.AssigneeName,
		AssigneeEmail: req.AssigneeEmail,
		DueDate:       dueDate,
	}
	if req.NoteType != nil {
		noteType := application.NoteType(strings.TrimSpace(*req.NoteType))
		patch.Type = &noteType
	}
	if req.Priority != nil {
		priority := application.NotePriority(strings.TrimSpace(*req.Priority))
		patch.Priority = &priority
	}
	if req.Status != nil {
		status := application.NoteStatus(strings.TrimSpace(*req.Status))
		patch.Status = &status
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.AccountID, "note_id", noteID)
	note, err := h.service.UpdateNote(r.Context(), application.UpdateNoteParams{
		Principal: principal,
		NoteID:    noteID,
		Patch:     patch,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "note update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "note updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toNoteDTO(note))
}

// Delete removes a note.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	noteID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.AccountID, "note_id", noteID)

	if err := h.service.DeleteNote(r.Context(), principal, noteID); err != nil {
		logger.ErrorContext(r.Context(), "note delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "note deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// parseDueDate accepts either a calendar date or an RFC 3339 timestamp.
func parseDueDate(value *string) (*time.Time, error) {
	return parseOptionalDate("due_date", value)
}

// parseOptionalDate parses a "2006-01-02" date or an RFC 3339 timestamp into UTC.
// A nil or blank value yields nil.
func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	raw := strings.TrimSpace(*value)
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc, nil
		}
	}
	return nil, &application.ValidationError{FieldErrors: map[string]string{field: "must be a date (YYYY-MM-DD) or RFC 3339 timestamp"}}
}

type noteRequest struct {
	Title         *string `json:"title"`
	NoteType      *string `json:"note_type"`
	Content       string  `json:"content"`
	AssigneeName  *string `json:"assignee_name"`
	AssigneeEmail *string `json:"assignee_email"`
	DueDate       *string `json:"due_date"`
	Priority      *string `json:"priority"`
	Status        *string `json:"status"`
}

type notePatchRequest struct {
	Title         *string `json:"title"`
	NoteType      *string `json:"note_type"`
	Content       *string `json:"content"`
	AssigneeName  *string `json:"assignee_name"`
	AssigneeEmail *string `json:"assignee_email"`
	DueDate       *string `json:"due_date"`
	Priority      *string `json:"priority"`
	Status        *string `json:"status"`
}

type listNotesResponse struct {
	Notes []noteDTO `json:"notes"`
}

type noteDTO struct {
	ID            string  `json:"id"`
	MeetingID     string  `json:"meeting_id"`
	Title         *string `json:"title,omitempty"`
	NoteType      string  `json:"note_type"`
	Content       string  `json:"content"`
	AssigneeName  *string `json:"assignee_name,omitempty"`
	AssigneeEmail *string `json:"assignee_email,omitempty"`
	DueDate       *string `json:"due_date,omitempty"`
	Priority      string  `json:"priority"`
	Status        *string `json:"status,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func toNoteDTO(note application.Note) noteDTO {
	dto := noteDTO{
		ID:            note.ID,
		MeetingID:     note.MeetingID,
		Title:         note.Title,
		NoteType:      string(note.Type),
		Content:       note.Content,
		AssigneeName:  note.AssigneeName,
		AssigneeEmail: note.AssigneeEmail,
		DueDate:       formatOptionalTimestamp(note.DueDate),
		Priority:      string(note.Priority),
		CreatedAt:     formatTimestamp(note.CreatedAt),
		UpdatedAt:     formatTimestamp(note.UpdatedAt),
	}
	if note.Status != nil {
		status := string(*note.Status)
		dto.Status = &status
	}
	return dto
}
