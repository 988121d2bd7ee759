package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/aggregate"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/export"
)

type participantService interface {
	AddParticipant(ctx context.Context, params application.AddParticipantParams) (application.Participant, error)
	ListParticipants(ctx context.Context, principal application.Principal, meetingID string) ([]application.Participant, error)
	AwardSpeakingPoint(ctx context.Context, principal application.Principal, participantID string) (application.Participant, error)
	UpdateParticipantStatus(ctx context.Context, params application.UpdateParticipantStatusParams) (application.Participant, error)
	RemoveParticipant(ctx context.Context, principal application.Principal, participantID string) error
}

// ParticipantHandler serves attendance and speaking point endpoints.
type ParticipantHandler struct {
	service   participantService
	responder responder
	logger    *slog.Logger
}

func NewParticipantHandler(service participantService, logger *slog.Logger) *ParticipantHandler {
	base := defaultLogger(logger)
	return &ParticipantHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ParticipantHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ParticipantHandler", operation, attrs...)
}

// Add registers a participant in an active meeting.
func (h *ParticipantHandler) Add(w http.ResponseWriter, r *http.Request) {
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

	var req participantRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Add", "meeting_id", meetingID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode participant request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Add", "principal_id", principal.AccountID, "meeting_id", meetingID)
	participant, err := h.service.AddParticipant(r.Context(), application.AddParticipantParams{
		Principal: principal,
		MeetingID: meetingID,
		Input: application.ParticipantInput{
			Name:  strings.TrimSpace(req.Name),
			Email: req.Email,
		},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "participant creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("participant_id", participant.ID).InfoContext(r.Context(), "participant added")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toParticipantDTO(participant))
}

// List returns the participants of a meeting in the order selected by ?sort=.
func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
	participants, ok := h.sortedParticipants(w, r, "List")
	if !ok {
		return
	}
	dtos := make([]participantDTO, 0, len(participants))
	for _, p := range participants {
		dtos = append(dtos, toParticipantDTO(p))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listParticipantsResponse{Participants: dtos})
}

// Export downloads the participants of a meeting as a spreadsheet.
func (h *ParticipantHandler) Export(w http.ResponseWriter, r *http.Request) {
	participants, ok := h.sortedParticipants(w, r, "Export")
	if !ok {
		return
	}
	meetingID, _ := pathID(r, "id")
	if err := h.responder.writeSpreadsheet(r.Context(), w, export.ParticipantsFilename(meetingID), export.ParticipantsSheet(participants)); err != nil {
		h.log(r.Context(), "Export", "meeting_id", meetingID).ErrorContext(r.Context(), "participant export rejected", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
	}
}

// sortedParticipants loads and orders the participants of the meeting in the path,
// writing the error response itself when it returns false.
func (h *ParticipantHandler) sortedParticipants(w http.ResponseWriter, r *http.Request, operation string) ([]application.Participant, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}

	meetingID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return nil, false
	}

	sortParam := r.URL.Query().Get("sort")
	key, err := aggregate.ParseSortKey(sortParam)
	if err != nil {
		h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   statusMessage(http.StatusUnprocessableEntity),
			Errors:    map[string]string{"sort": "must be one of points, name, join_time"},
		})
		return nil, false
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), operation, "principal_id", principal.AccountID, "meeting_id", meetingID, "sort", string(key))
	participants, err := h.service.ListParticipants(r.Context(), principal, meetingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "participant list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return nil, false
	}

	logger.With("result_count", len(participants)).InfoContext(r.Context(), "participants listed")
	return aggregate.SortParticipants(participants, key), true
}

// AwardPoint adds one speaking point to a participant.
func (h *ParticipantHandler) AwardPoint(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	participantID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "AwardPoint", "principal_id", principal.AccountID, "participant_id", participantID)

	participant, err := h.service.AwardSpeakingPoint(r.Context(), principal, participantID)
	if err != nil {
		logger.ErrorContext(r.Context(), "speaking point rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "speaking point awarded", "speaking_count", participant.SpeakingCount)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toParticipantDTO(participant))
}

// UpdateStatus changes the attendance status of a participant.
func (h *ParticipantHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	participantID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "UpdateStatus", "participant_id", participantID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode status request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdateStatus", "principal_id", principal.AccountID, "participant_id", participantID)
	participant, err := h.service.UpdateParticipantStatus(r.Context(), application.UpdateParticipantStatusParams{
		Principal:     principal,
		ParticipantID: participantID,
		Status:        application.ParticipantStatus(strings.TrimSpace(req.Status)),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "participant status update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "participant status updated", "status", participant.Status)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toParticipantDTO(participant))
}

// Remove deletes a participant from an active meeting.
func (h *ParticipantHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	participantID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Remove", "principal_id", principal.AccountID, "participant_id", participantID)

	if err := h.service.RemoveParticipant(r.Context(), principal, participantID); err != nil {
		logger.ErrorContext(r.Context(), "participant removal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "participant removed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type participantRequest struct {
	Name  string  `json:"name"`
	Email *string `json:"email"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type listParticipantsResponse struct {
	Participants []participantDTO `json:"participants"`
}

type participantDTO struct {
	ID            string  `json:"id"`
	MeetingID     string  `json:"meeting_id"`
	Name          string  `json:"name"`
	Email         *string `json:"email,omitempty"`
	JoinTime      string  `json:"join_time"`
	SpeakingCount int     `json:"speaking_count"`
	LastSpoke     *string `json:"last_spoke,omitempty"`
	Status        string  `json:"status"`
}

func toParticipantDTO(p application.Participant) participantDTO {
	return participantDTO{
		ID:            p.ID,
		MeetingID:     p.MeetingID,
		Name:          p.Name,
		Email:         p.Email,
		JoinTime:      formatTimestamp(p.JoinTime),
		SpeakingCount: p.SpeakingCount,
		LastSpoke:     formatOptionalTimestamp(p.LastSpoke),
		Status:        string(p.Status),
	}
}
