package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/aggregate"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
)

type meetingService interface {
	CreateMeeting(ctx context.Context, params application.CreateMeetingParams) (application.Meeting, error)
	VerifyMeetingAccess(ctx context.Context, params application.VerifyMeetingAccessParams) (bool, error)
	GetMeeting(ctx context.Context, principal application.Principal, meetingID string) (application.Meeting, error)
	SearchMeetings(ctx context.Context, principal application.Principal, term string) ([]application.Meeting, error)
	EndMeeting(ctx context.Context, principal application.Principal, meetingID string) (application.Meeting, error)
	PauseMeeting(ctx context.Context, principal application.Principal, meetingID string) (application.Meeting, error)
	ResumeMeeting(ctx context.Context, principal application.Principal, meetingID string) (application.Meeting, error)
	DeleteMeeting(ctx context.Context, principal application.Principal, meetingID string) error
}

type minutesService interface {
	SendMinutes(ctx context.Context, params application.SendMinutesParams) (application.MinutesReport, error)
}

// MeetingHandler serves meeting lifecycle, statistics and minutes endpoints.
type MeetingHandler struct {
	service      meetingService
	participants participantService
	minutes      minutesService
	now          func() time.Time
	responder    responder
	logger       *slog.Logger
}

func NewMeetingHandler(service meetingService, participants participantService, minutes minutesService, now func() time.Time, logger *slog.Logger) *MeetingHandler {
	if now == nil {
		now = time.Now
	}
	base := defaultLogger(logger)
	return &MeetingHandler{
		service:      service,
		participants: participants,
		minutes:      minutes,
		now:          now,
		responder:    newResponder(base),
		logger:       base,
	}
}

func (h *MeetingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "MeetingHandler", operation, attrs...)
}

// Create starts a new active meeting.
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req meetingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.AccountID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode meeting request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.AccountID)
	meeting, err := h.service.CreateMeeting(r.Context(), application.CreateMeetingParams{
		Principal: principal,
		Input: application.MeetingInput{
			Name:        strings.TrimSpace(req.Name),
			Password:    req.Password,
			Description: req.Description,
		},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "meeting creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("meeting_id", meeting.ID).InfoContext(r.Context(), "meeting created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toMeetingDTO(meeting))
}

// List returns the caller's meetings, filtered by the optional q search term.
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	term := r.URL.Query().Get("q")
	logger := h.log(r.Context(), "List", "principal_id", principal.AccountID, "search", term != "")

	meetings, err := h.service.SearchMeetings(r.Context(), principal, term)
	if err != nil {
		logger.ErrorContext(r.Context(), "meeting list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]meetingDTO, 0, len(meetings))
	for _, meeting := range meetings {
		dtos = append(dtos, toMeetingDTO(meeting))
	}
	logger.With("result_count", len(dtos)).InfoContext(r.Context(), "meetings listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMeetingsResponse{Meetings: dtos})
}

// Get returns one meeting owned by the caller.
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withMeeting(w, r, "Get", func(ctx context.Context, principal application.Principal, meetingID string) (any, error) {
		meeting, err := h.service.GetMeeting(ctx, principal, meetingID)
		if err != nil {
			return nil, err
		}
		return toMeetingDTO(meeting), nil
	})
}

// VerifyAccess checks a meeting password. A wrong password, an unknown meeting and a
// meeting owned by someone else all answer granted=false.
func (h *MeetingHandler) VerifyAccess(w http.ResponseWriter, r *http.Request) {
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

	var req accessRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "VerifyAccess", "meeting_id", meetingID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode access request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "VerifyAccess", "principal_id", principal.AccountID, "meeting_id", meetingID)
	granted, err := h.service.VerifyMeetingAccess(r.Context(), application.VerifyMeetingAccessParams{
		Principal: principal,
		MeetingID: meetingID,
		Password:  req.Password,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "meeting access check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "meeting access checked", "granted", granted)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, accessResponse{Granted: granted})
}

// End closes an active or paused meeting.
func (h *MeetingHandler) End(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "End", meetingService.EndMeeting)
}

// Pause suspends an active meeting.
func (h *MeetingHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Pause", meetingService.PauseMeeting)
}

// Resume reactivates a paused meeting.
func (h *MeetingHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Resume", meetingService.ResumeMeeting)
}

func (h *MeetingHandler) transition(w http.ResponseWriter, r *http.Request, operation string, fn func(meetingService, context.Context, application.Principal, string) (application.Meeting, error)) {
	h.withMeeting(w, r, operation, func(ctx context.Context, principal application.Principal, meetingID string) (any, error) {
		meeting, err := fn(h.service, ctx, principal, meetingID)
		if err != nil {
			return nil, err
		}
		return toMeetingDTO(meeting), nil
	})
}

// Delete removes a meeting with its participants and notes.
func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	logger := h.log(r.Context(), "Delete", "principal_id", principal.AccountID, "meeting_id", meetingID)

	if err := h.service.DeleteMeeting(r.Context(), principal, meetingID); err != nil {
		logger.ErrorContext(r.Context(), "meeting delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "meeting deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Stats returns the derived attendance metrics of a meeting.
func (h *MeetingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	h.withMeeting(w, r, "Stats", func(ctx context.Context, principal application.Principal, meetingID string) (any, error) {
		if h.participants == nil {
			return nil, errParticipantsNotConfigured
		}
		meeting, err := h.service.GetMeeting(ctx, principal, meetingID)
		if err != nil {
			return nil, err
		}
		participants, err := h.participants.ListParticipants(ctx, principal, meetingID)
		if err != nil {
			return nil, err
		}
		return aggregate.ComputeMeetingStats(meeting, participants, h.now()), nil
	})
}

// SendMinutes emails the meeting minutes and reports every delivery.
func (h *MeetingHandler) SendMinutes(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.minutes == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	meetingID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req minutesRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			h.log(r.Context(), "SendMinutes", "meeting_id", meetingID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode minutes request", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}

	logger := h.log(r.Context(), "SendMinutes", "principal_id", principal.AccountID, "meeting_id", meetingID)
	report, err := h.minutes.SendMinutes(r.Context(), application.SendMinutesParams{
		Principal:       principal,
		MeetingID:       meetingID,
		ExtraRecipients: req.Recipients,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "minutes dispatch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := minutesResponse{MeetingID: report.MeetingID, Deliveries: make([]deliveryDTO, 0, len(report.Deliveries))}
	for _, d := range report.Deliveries {
		resp.Deliveries = append(resp.Deliveries, deliveryDTO{
			Recipient: d.Recipient,
			Kind:      string(d.Kind),
			MessageID: d.MessageID,
			Error:     d.Error,
			Delivered: d.Error == "",
		})
	}
	resp.Failed = len(report.Failed())

	logger.InfoContext(r.Context(), "minutes dispatched", "deliveries", len(resp.Deliveries), "failed", resp.Failed)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// withMeeting resolves the meeting id and principal, runs fn and writes its result as JSON.
func (h *MeetingHandler) withMeeting(w http.ResponseWriter, r *http.Request, operation string, fn func(context.Context, application.Principal, string) (any, error)) {
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
	logger := h.log(r.Context(), operation, "principal_id", principal.AccountID, "meeting_id", meetingID)

	payload, err := fn(r.Context(), principal, meetingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "meeting request failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "meeting request served")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

type meetingRequest struct {
	Name        string  `json:"name"`
	Password    string  `json:"password"`
	Description *string `json:"description"`
}

type accessRequest struct {
	Password string `json:"password"`
}

type accessResponse struct {
	Granted bool `json:"granted"`
}

type minutesRequest struct {
	Recipients []string `json:"recipients"`
}

type minutesResponse struct {
	MeetingID  string        `json:"meeting_id"`
	Deliveries []deliveryDTO `json:"deliveries"`
	Failed     int           `json:"failed"`
}

type deliveryDTO struct {
	Recipient string `json:"recipient"`
	Kind      string `json:"kind"`
	Delivered bool   `json:"delivered"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type listMeetingsResponse struct {
	Meetings []meetingDTO `json:"meetings"`
}

type meetingDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Status      string  `json:"status"`
	StartTime   string  `json:"start_time"`
	EndTime     *string `json:"end_time,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toMeetingDTO(meeting application.Meeting) meetingDTO {
	return meetingDTO{
		ID:          meeting.ID,
		Name:        meeting.Name,
		Description: meeting.Description,
		Status:      string(meeting.Status),
		StartTime:   formatTimestamp(meeting.StartTime),
		EndTime:     formatOptionalTimestamp(meeting.EndTime),
		CreatedAt:   formatTimestamp(meeting.CreatedAt),
		UpdatedAt:   formatTimestamp(meeting.UpdatedAt),
	}
}
