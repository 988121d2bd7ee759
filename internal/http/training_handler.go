package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
)

type trainingService interface {
	CreateTraining(ctx context.Context, params application.CreateTrainingParams) (application.CreateTrainingResult, error)
	ListTrainings(ctx context.Context, principal application.Principal) ([]application.Training, error)
	GetTraining(ctx context.Context, principal application.Principal, trainingID string) (application.Training, error)
	UpdateTraining(ctx context.Context, params application.UpdateTrainingParams) (application.Training, error)
	UpdateTrainingStatus(ctx context.Context, params application.UpdateTrainingStatusParams) (application.Training, error)
	DeleteTraining(ctx context.Context, principal application.Principal, trainingID string) error
}

type collaboratorService interface {
	AddCollaborators(ctx context.Context, params application.AddCollaboratorsParams) ([]application.TrainingCollaborator, error)
	ListCollaborators(ctx context.Context, principal application.Principal, trainingID string) ([]application.TrainingCollaborator, error)
	RemoveCollaborator(ctx context.Context, principal application.Principal, trainingID, email string) error
}

// TrainingHandler serves training and collaborator management endpoints.
type TrainingHandler struct {
	service       trainingService
	collaborators collaboratorService
	responder     responder
	logger        *slog.Logger
}

func NewTrainingHandler(service trainingService, collaborators collaboratorService, logger *slog.Logger) *TrainingHandler {
	base := defaultLogger(logger)
	return &TrainingHandler{
		service:       service,
		collaborators: collaborators,
		responder:     newResponder(base),
		logger:        base,
	}
}

func (h *TrainingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TrainingHandler", operation, attrs...)
}

// Create stores a training owned by the caller together with its initial collaborators.
func (h *TrainingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req trainingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.AccountID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode training request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.AccountID)
	result, err := h.service.CreateTraining(r.Context(), application.CreateTrainingParams{
		Principal:          principal,
		Input:              input,
		CollaboratorEmails: req.CollaboratorEmails,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "training creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := createTrainingResponse{
		Training:      toTrainingDTO(result.Training),
		Collaborators: toCollaboratorDTOs(result.Collaborators),
		SkippedEmails: result.SkippedEmails,
	}
	if resp.SkippedEmails == nil {
		resp.SkippedEmails = []string{}
	}

	logger.With("training_id", result.Training.ID).InfoContext(r.Context(), "training created", "skipped", len(resp.SkippedEmails))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, resp)
}

// List returns the trainings the caller owns or collaborates on.
func (h *TrainingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.AccountID)

	trainings, err := h.service.ListTrainings(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "training list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]trainingDTO, 0, len(trainings))
	for _, training := range trainings {
		dto := toTrainingDTO(training)
		dto.Owned = training.AccountID == principal.AccountID
		dtos = append(dtos, dto)
	}
	logger.With("result_count", len(dtos)).InfoContext(r.Context(), "trainings listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTrainingsResponse{Trainings: dtos})
}

// Get returns a training the caller may manage.
func (h *TrainingHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withTraining(w, r, "Get", func(ctx context.Context, principal application.Principal, trainingID string) (any, error) {
		training, err := h.service.GetTraining(ctx, principal, trainingID)
		if err != nil {
			return nil, err
		}
		dto := toTrainingDTO(training)
		dto.Owned = training.AccountID == principal.AccountID
		return dto, nil
	})
}

// Update replaces the editable fields of a training.
func (h *TrainingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	trainingID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req trainingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "training_id", trainingID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode training request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.AccountID, "training_id", trainingID)
	training, err := h.service.UpdateTraining(r.Context(), application.UpdateTrainingParams{
		Principal:  principal,
		TrainingID: trainingID,
		Input:      input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "training update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "training updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTrainingDTO(training))
}

// UpdateStatus completes or cancels a training.
func (h *TrainingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	trainingID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "UpdateStatus", "training_id", trainingID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode status request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdateStatus", "principal_id", principal.AccountID, "training_id", trainingID)
	training, err := h.service.UpdateTrainingStatus(r.Context(), application.UpdateTrainingStatusParams{
		Principal:  principal,
		TrainingID: trainingID,
		Status:     application.TrainingStatus(strings.ToLower(strings.TrimSpace(req.Status))),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "training status update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "training status updated", "status", training.Status)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTrainingDTO(training))
}

// Delete removes a training with its collaborators and registrations.
func (h *TrainingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	trainingID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.AccountID, "training_id", trainingID)

	if err := h.service.DeleteTraining(r.Context(), principal, trainingID); err != nil {
		logger.ErrorContext(r.Context(), "training delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "training deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// ListCollaborators returns the collaborators of a training.
func (h *TrainingHandler) ListCollaborators(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.collaborators == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.withTraining(w, r, "ListCollaborators", func(ctx context.Context, principal application.Principal, trainingID string) (any, error) {
		collaborators, err := h.collaborators.ListCollaborators(ctx, principal, trainingID)
		if err != nil {
			return nil, err
		}
		return listCollaboratorsResponse{Collaborators: toCollaboratorDTOs(collaborators)}, nil
	})
}

// AddCollaborators grants management rights to a batch of emails.
func (h *TrainingHandler) AddCollaborators(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.collaborators == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	trainingID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req collaboratorsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "AddCollaborators", "training_id", trainingID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode collaborators request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "AddCollaborators", "principal_id", principal.AccountID, "training_id", trainingID)
	added, err := h.collaborators.AddCollaborators(r.Context(), application.AddCollaboratorsParams{
		Principal:  principal,
		TrainingID: trainingID,
		Emails:     req.Emails,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "collaborator add failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "collaborators added", "added", len(added))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, listCollaboratorsResponse{Collaborators: toCollaboratorDTOs(added)})
}

// RemoveCollaborator revokes the management rights of one email.
func (h *TrainingHandler) RemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.collaborators == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	trainingID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return
	}
	email, ok := pathID(r, "email")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "RemoveCollaborator", "principal_id", principal.AccountID, "training_id", trainingID)

	if err := h.collaborators.RemoveCollaborator(r.Context(), principal, trainingID, email); err != nil {
		logger.ErrorContext(r.Context(), "collaborator removal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "collaborator removed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *TrainingHandler) withTraining(w http.ResponseWriter, r *http.Request, operation string, fn func(context.Context, application.Principal, string) (any, error)) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	trainingID, ok := pathID(r, "id")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPathID)
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), operation, "principal_id", principal.AccountID, "training_id", trainingID)

	payload, err := fn(r.Context(), principal, trainingID)
	if err != nil {
		logger.ErrorContext(r.Context(), "training request failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "training request served")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

type trainingRequest struct {
	Title              string   `json:"title"`
	Description        *string  `json:"description"`
	Objectives         *string  `json:"objectives"`
	Duration           *string  `json:"duration"`
	Location           *string  `json:"location"`
	StartDate          *string  `json:"start_date"`
	EndDate            *string  `json:"end_date"`
	MaxParticipants    *int     `json:"max_participants"`
	CollaboratorEmails []string `json:"collaborator_emails"`
}

func (req trainingRequest) toInput() (application.TrainingInput, error) {
	input := application.TrainingInput{
		Title:           req.Title,
		Description:     req.Description,
		Objectives:      req.Objectives,
		Duration:        req.Duration,
		Location:        req.Location,
		MaxParticipants: req.MaxParticipants,
	}

	fieldErrors := make(map[string]string)
	var err error
	if input.StartDate, err = parseOptionalDate("start_date", req.StartDate); err != nil {
		fieldErrors["start_date"] = "must be a date (YYYY-MM-DD) or RFC 3339 timestamp"
	}
	if input.EndDate, err = parseOptionalDate("end_date", req.EndDate); err != nil {
		fieldErrors["end_date"] = "must be a date (YYYY-MM-DD) or RFC 3339 timestamp"
	}
	if len(fieldErrors) > 0 {
		return application.TrainingInput{}, &application.ValidationError{FieldErrors: fieldErrors}
	}
	return input, nil
}

type collaboratorsRequest struct {
	Emails []string `json:"emails"`
}

type createTrainingResponse struct {
	Training      trainingDTO       `json:"training"`
	Collaborators []collaboratorDTO `json:"collaborators"`
	SkippedEmails []string          `json:"skipped_emails"`
}

type listTrainingsResponse struct {
	Trainings []trainingDTO `json:"trainings"`
}

type listCollaboratorsResponse struct {
	Collaborators []collaboratorDTO `json:"collaborators"`
}

type trainingDTO struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Description     *string `json:"description,omitempty"`
	Objectives      *string `json:"objectives,omitempty"`
	Duration        *string `json:"duration,omitempty"`
	Location        *string `json:"location,omitempty"`
	StartDate       *string `json:"start_date,omitempty"`
	EndDate         *string `json:"end_date,omitempty"`
	MaxParticipants *int    `json:"max_participants,omitempty"`
	Status          string  `json:"status"`
	Owned           bool    `json:"owned"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func toTrainingDTO(training application.Training) trainingDTO {
	return trainingDTO{
		ID:              training.ID,
		Title:           training.Title,
		Description:     training.Description,
		Objectives:      training.Objectives,
		Duration:        training.Duration,
		Location:        training.Location,
		StartDate:       formatOptionalTimestamp(training.StartDate),
		EndDate:         formatOptionalTimestamp(training.EndDate),
		MaxParticipants: training.MaxParticipants,
		Status:          string(training.Status),
		Owned:           true,
		CreatedAt:       formatTimestamp(training.CreatedAt),
		UpdatedAt:       formatTimestamp(training.UpdatedAt),
	}
}

type collaboratorDTO struct {
	Email   string `json:"email"`
	AddedBy string `json:"added_by"`
	AddedAt string `json:"added_at"`
}

func toCollaboratorDTOs(collaborators []application.TrainingCollaborator) []collaboratorDTO {
	dtos := make([]collaboratorDTO, 0, len(collaborators))
	for _, c := range collaborators {
		dtos = append(dtos, collaboratorDTO{Email: c.Email, AddedBy: c.AddedBy, AddedAt: formatTimestamp(c.AddedAt)})
	}
	return dtos
}
