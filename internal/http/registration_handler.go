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

type registrationService interface {
	Register(ctx context.Context, trainingID string, input application.RegistrationInput) (application.Registration, error)
	GetRegistration(ctx context.Context, registrationID string) (application.Registration, error)
	ListByTraining(ctx context.Context, trainingID string) ([]application.Registration, error)
	UpdateStatus(ctx context.Context, params application.UpdateRegistrationStatusParams) (application.Registration, error)
	DeleteRegistration(ctx context.Context, registrationID string) error
}

type trainingAccess interface {
	GetTraining(ctx context.Context, principal application.Principal, trainingID string) (application.Training, error)
}

// RegistrationHandler serves the public sign up form and the organiser views on registrations.
// Everything except Register requires the caller to manage the training.
type RegistrationHandler struct {
	service   registrationService
	trainings trainingAccess
	responder responder
	logger    *slog.Logger
}

func NewRegistrationHandler(service registrationService, trainings trainingAccess, logger *slog.Logger) *RegistrationHandler {
	base := defaultLogger(logger)
	return &RegistrationHandler{service: service, trainings: trainings, responder: newResponder(base), logger: base}
}

func (h *RegistrationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RegistrationHandler", operation, attrs...)
}

func (h *RegistrationHandler) ready() bool {
	return h != nil && h.service != nil && h.trainings != nil
}

// Register accepts a public sign up for an active training.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	trainingID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return
	}

	var req registrationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Register", "training_id", trainingID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode registration request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input := application.RegistrationInput{
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Email:              req.Email,
		Phone:              req.Phone,
		EducationSpecialty: req.EducationSpecialty,
		EducationLevel:     req.EducationLevel,
		MemberType:         application.MemberType(req.MemberType),
		Notes:              req.Notes,
	}
	if req.TrainingLevel != nil {
		level := application.TrainingLevel(strings.ToLower(strings.TrimSpace(*req.TrainingLevel)))
		input.TrainingLevel = &level
	}

	logger := h.log(r.Context(), "Register", "training_id", trainingID)
	registration, err := h.service.Register(r.Context(), trainingID, input)
	if err != nil {
		logger.ErrorContext(r.Context(), "registration rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("registration_id", registration.ID).InfoContext(r.Context(), "registration accepted")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toRegistrationDTO(registration))
}

// List returns the registrations of a training. Completed trainings are grouped by level.
func (h *RegistrationHandler) List(w http.ResponseWriter, r *http.Request) {
	training, registrations, ok := h.trainingRegistrations(w, r, "List")
	if !ok {
		return
	}

	view := aggregate.GroupRegistrations(training, registrations)
	resp := registrationViewResponse{TrainingID: training.ID, Grouped: view.Grouped, Total: len(registrations)}
	if view.Grouped {
		resp.Groups = make([]registrationGroupDTO, 0, len(view.Groups))
		for _, group := range view.Groups {
			resp.Groups = append(resp.Groups, registrationGroupDTO{
				Level:         group.Level,
				Count:         len(group.Registrations),
				Registrations: toRegistrationDTOs(group.Registrations),
			})
		}
	} else {
		resp.Registrations = toRegistrationDTOs(view.Registrations)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Export downloads the registrations of a training as a spreadsheet.
func (h *RegistrationHandler) Export(w http.ResponseWriter, r *http.Request) {
	training, registrations, ok := h.trainingRegistrations(w, r, "Export")
	if !ok {
		return
	}
	if err := h.responder.writeSpreadsheet(r.Context(), w, export.RegistrationsFilename(training.ID), export.RegistrationsSheet(registrations)); err != nil {
		h.log(r.Context(), "Export", "training_id", training.ID).ErrorContext(r.Context(), "registration export rejected", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
	}
}

func (h *RegistrationHandler) trainingRegistrations(w http.ResponseWriter, r *http.Request, operation string) (application.Training, []application.Registration, bool) {
	if !h.ready() {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return application.Training{}, nil, false
	}

	trainingID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return application.Training{}, nil, false
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), operation, "principal_id", principal.AccountID, "training_id", trainingID)

	training, err := h.trainings.GetTraining(r.Context(), principal, trainingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "training access denied", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return application.Training{}, nil, false
	}
	registrations, err := h.service.ListByTraining(r.Context(), training.ID)
	if err != nil {
		logger.ErrorContext(r.Context(), "registration list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return application.Training{}, nil, false
	}

	logger.With("result_count", len(registrations)).InfoContext(r.Context(), "registrations listed")
	return training, registrations, true
}

// UpdateStatus sets the status and optionally the training level of a registration.
func (h *RegistrationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !h.ready() {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	registrationID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return
	}

	var req registrationStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "UpdateStatus", "registration_id", registrationID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode registration status", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger, err := h.authorize(r, "UpdateStatus", registrationID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	params := application.UpdateRegistrationStatusParams{RegistrationID: registrationID, Status: req.Status}
	if req.TrainingLevel != nil {
		level := application.TrainingLevel(strings.ToLower(strings.TrimSpace(*req.TrainingLevel)))
		params.TrainingLevel = &level
	}
	registration, err := h.service.UpdateStatus(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "registration update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "registration updated", "status", registration.Status)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRegistrationDTO(registration))
}

// Delete removes a registration.
func (h *RegistrationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready() {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	registrationID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return
	}

	logger, err := h.authorize(r, "Delete", registrationID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if err := h.service.DeleteRegistration(r.Context(), registrationID); err != nil {
		logger.ErrorContext(r.Context(), "registration delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "registration deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// authorize resolves the training behind a registration and checks the caller manages it.
func (h *RegistrationHandler) authorize(r *http.Request, operation, registrationID string) (*slog.Logger, error) {
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), operation, "principal_id", principal.AccountID, "registration_id", registrationID)

	registration, err := h.service.GetRegistration(r.Context(), registrationID)
	if err != nil {
		logger.ErrorContext(r.Context(), "registration lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		return logger, err
	}
	logger = logger.With("training_id", registration.TrainingID)
	if _, err := h.trainings.GetTraining(r.Context(), principal, registration.TrainingID); err != nil {
		logger.ErrorContext(r.Context(), "training access denied", "error", err, "error_kind", application.ErrorKind(err))
		return logger, err
	}
	return logger, nil
}

type registrationRequest struct {
	FirstName          string  `json:"first_name"`
	LastName           string  `json:"last_name"`
	Email              string  `json:"email"`
	Phone              *string `json:"phone"`
	EducationSpecialty string  `json:"education_specialty"`
	EducationLevel     int     `json:"education_level"`
	MemberType         string  `json:"member_type"`
	TrainingLevel      *string `json:"training_level"`
	Notes              *string `json:"notes"`
}

type registrationStatusRequest struct {
	Status        string  `json:"status"`
	TrainingLevel *string `json:"training_level"`
}

type registrationViewResponse struct {
	TrainingID    string                 `json:"training_id"`
	Grouped       bool                   `json:"grouped"`
	Total         int                    `json:"total"`
	Groups        []registrationGroupDTO `json:"groups,omitempty"`
	Registrations []registrationDTO      `json:"registrations,omitempty"`
}

type registrationGroupDTO struct {
	Level         string            `json:"level"`
	Count         int               `json:"count"`
	Registrations []registrationDTO `json:"registrations"`
}

type registrationDTO struct {
	ID                 string  `json:"id"`
	TrainingID         string  `json:"training_id"`
	FirstName          string  `json:"first_name"`
	LastName           string  `json:"last_name"`
	Email              string  `json:"email"`
	Phone              *string `json:"phone,omitempty"`
	EducationSpecialty string  `json:"education_specialty"`
	EducationLevel     int     `json:"education_level"`
	MemberType         string  `json:"member_type"`
	TrainingLevel      *string `json:"training_level,omitempty"`
	RegistrationDate   string  `json:"registration_date"`
	Status             string  `json:"status"`
	Notes              *string `json:"notes,omitempty"`
}

func toRegistrationDTO(r application.Registration) registrationDTO {
	dto := registrationDTO{
		ID:                 r.ID,
		TrainingID:         r.TrainingID,
		FirstName:          r.FirstName,
		LastName:           r.LastName,
		Email:              r.Email,
		Phone:              r.Phone,
		EducationSpecialty: r.EducationSpecialty,
		EducationLevel:     r.EducationLevel,
		MemberType:         string(r.MemberType),
		RegistrationDate:   formatTimestamp(r.RegisteredAt),
		Status:             r.Status,
		Notes:              r.Notes,
	}
	if r.TrainingLevel != nil {
		level := string(*r.TrainingLevel)
		dto.TrainingLevel = &level
	}
	return dto
}

func toRegistrationDTOs(registrations []application.Registration) []registrationDTO {
	dtos := make([]registrationDTO, 0, len(registrations))
	for _, r := range registrations {
		dtos = append(dtos, toRegistrationDTO(r))
	}
	return dtos
}
