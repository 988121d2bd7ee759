package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// TrainingService manages trainings and who may administer them.
type TrainingService struct {
	trainings     TrainingRepository
	collaborators CollaboratorRepository
	directory     AccountDirectory
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewTrainingService constructs a training service with the provided dependencies.
func NewTrainingService(trainings TrainingRepository, collaborators CollaboratorRepository, directory AccountDirectory, idGenerator func() string, now func() time.Time) *TrainingService {
	return NewTrainingServiceWithLogger(trainings, collaborators, directory, idGenerator, now, nil)
}

// NewTrainingServiceWithLogger constructs a training service with a specified logger.
func NewTrainingServiceWithLogger(trainings TrainingRepository, collaborators CollaboratorRepository, directory AccountDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TrainingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TrainingService{
		trainings:     trainings,
		collaborators: collaborators,
		directory:     directory,
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

func (s *TrainingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TrainingService", operation, attrs...)
}

func (s *TrainingService) configured() error {
	if s == nil {
		return fmt.Errorf("TrainingService is nil")
	}
	if s.trainings == nil || s.collaborators == nil {
		return fmt.Errorf("training dependencies not configured")
	}
	return nil
}

// CreateTraining persists a training owned by the principal and attaches the valid collaborator emails.
// Unknown, malformed and self emails are skipped rather than failing the creation.
func (s *TrainingService) CreateTraining(ctx context.Context, params CreateTrainingParams) (result CreateTrainingResult, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateTraining", "principal_id", params.Principal.AccountID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create training", "training created",
			"training_id", result.Training.ID,
			"collaborators", len(result.Collaborators),
			"skipped", len(result.SkippedEmails),
		)
	}()

	if !params.Principal.authenticated() {
		err = ErrUnauthorized
		return
	}

	input := normalizeTrainingInput(params.Input)
	if vErr := validateTrainingInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	training := Training{
		ID:        s.idGenerator(),
		AccountID: params.Principal.AccountID,
		Status:    TrainingStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyTrainingInput(&training, input)

	training, err = s.trainings.CreateTraining(ctx, training)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	result.Training = training

	result.Collaborators, result.SkippedEmails, err = s.attachCollaborators(ctx, training, params.Principal, params.CollaboratorEmails)
	return
}

// ListTrainings returns the trainings the principal owns or collaborates on, newest first.
func (s *TrainingService) ListTrainings(ctx context.Context, principal Principal) (trainings []Training, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ListTrainings", "principal_id", principal.AccountID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to list trainings", "trainings listed", "count", len(trainings))
	}()

	if !principal.authenticated() {
		err = ErrUnauthorized
		return
	}

	var owned, shared []Training
	owned, err = s.trainings.ListTrainingsByOwner(ctx, principal.AccountID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if email := normalizeEmail(principal.Email); email != "" {
		shared, err = s.trainings.ListTrainingsByCollaborator(ctx, email)
		if err != nil {
			err = mapRepoError(err)
			return
		}
	}

	trainings = mergeTrainings(owned, shared)
	return
}

func mergeTrainings(sets ...[]Training) []Training {
	seen := make(map[string]struct{})
	merged := make([]Training, 0)
	for _, set := range sets {
		for _, training := range set {
			if _, ok := seen[training.ID]; ok {
				continue
			}
			seen[training.ID] = struct{}{}
			merged = append(merged, training)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}

// GetTraining returns a training the principal may manage.
func (s *TrainingService) GetTraining(ctx context.Context, principal Principal, trainingID string) (Training, error) {
	if err := s.configured(); err != nil {
		return Training{}, err
	}
	return s.manageable(ctx, principal, trainingID)
}

// CanManage reports whether the principal owns the training or is one of its collaborators.
func (s *TrainingService) CanManage(ctx context.Context, principal Principal, trainingID string) (bool, error) {
	if err := s.configured(); err != nil {
		return false, err
	}
	_, err := s.manageable(ctx, principal, trainingID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrUnauthorized):
		return false, nil
	default:
		return false, err
	}
}

// UpdateTraining replaces the editable fields of a manageable training.
func (s *TrainingService) UpdateTraining(ctx context.Context, params UpdateTrainingParams) (training Training, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateTraining", "principal_id", params.Principal.AccountID, "training_id", params.TrainingID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update training", "training updated")
	}()

	input := normalizeTrainingInput(params.Input)
	if vErr := validateTrainingInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	training, err = s.manageable(ctx, params.Principal, params.TrainingID)
	if err != nil {
		return
	}

	applyTrainingInput(&training, input)
	training.UpdatedAt = s.now()

	training, err = s.trainings.UpdateTraining(ctx, training)
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// UpdateTrainingStatus completes or cancels an active training. Terminal statuses are final.
func (s *TrainingService) UpdateTrainingStatus(ctx context.Context, params UpdateTrainingStatusParams) (training Training, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateTrainingStatus",
		"principal_id", params.Principal.AccountID,
		"training_id", params.TrainingID,
		"status", params.Status,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update training status", "training status updated")
	}()

	switch params.Status {
	case TrainingStatusActive, TrainingStatusCompleted, TrainingStatusCancelled:
	default:
		err = newValidationError("status", "status must be one of: active, completed, cancelled")
		return
	}

	var current Training
	current, err = s.manageable(ctx, params.Principal, params.TrainingID)
	if err != nil {
		return
	}
	if current.Status != TrainingStatusActive || params.Status == TrainingStatusActive {
		err = ErrInvalidTransition
		return
	}

	training, err = s.trainings.TransitionTraining(ctx, current.ID, current.Status, params.Status, s.now())
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// DeleteTraining removes a manageable training with its collaborators and registrations.
func (s *TrainingService) DeleteTraining(ctx context.Context, principal Principal, trainingID string) (err error) {
	if err = s.configured(); err != nil {
		return err
	}

	logger := s.loggerWith(ctx, "DeleteTraining", "principal_id", principal.AccountID, "training_id", trainingID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to delete training", "training deleted")
	}()

	if _, err = s.manageable(ctx, principal, trainingID); err != nil {
		return err
	}
	if err = s.trainings.DeleteTraining(ctx, trainingID); err != nil {
		err = mapRepoError(err)
	}
	return err
}

// manageable loads a training and checks ownership or collaborator membership.
func (s *TrainingService) manageable(ctx context.Context, principal Principal, trainingID string) (Training, error) {
	return loadManageableTraining(ctx, s.trainings, s.collaborators, principal, trainingID)
}

func loadManageableTraining(ctx context.Context, trainings TrainingRepository, collaborators CollaboratorRepository, principal Principal, trainingID string) (Training, error) {
	if !principal.authenticated() {
		return Training{}, ErrUnauthorized
	}
	trainingID = strings.TrimSpace(trainingID)
	if trainingID == "" {
		return Training{}, ErrNotFound
	}
	training, err := trainings.GetTraining(ctx, trainingID)
	if err != nil {
		return Training{}, mapRepoError(err)
	}
	if training.AccountID == principal.AccountID {
		return training, nil
	}
	email := normalizeEmail(principal.Email)
	if email == "" {
		return Training{}, ErrUnauthorized
	}
	ok, err := collaborators.IsCollaborator(ctx, training.ID, email)
	if err != nil {
		return Training{}, mapRepoError(err)
	}
	if !ok {
		return Training{}, ErrUnauthorized
	}
	return training, nil
}

// attachCollaborators inserts one collaborator row per acceptable email and reports the rest as skipped.
func (s *TrainingService) attachCollaborators(ctx context.Context, training Training, principal Principal, emails []string) ([]TrainingCollaborator, []string, error) {
	return insertCollaborators(ctx, s.collaborators, s.directory, s.idGenerator, s.now, training, principal, emails)
}

func insertCollaborators(ctx context.Context, repo CollaboratorRepository, directory AccountDirectory, idGenerator func() string, now func() time.Time, training Training, principal Principal, emails []string) ([]TrainingCollaborator, []string, error) {
	added := make([]TrainingCollaborator, 0, len(emails))
	skipped := make([]string, 0)
	seen := make(map[string]struct{}, len(emails))
	callerEmail := normalizeEmail(principal.Email)
	ownerEmail := callerEmail
	if directory != nil && training.AccountID != principal.AccountID {
		resolved, err := directory.AccountEmail(ctx, training.AccountID)
		if err != nil {
			return added, skipped, fmt.Errorf("resolve training owner: %w", err)
		}
		ownerEmail = normalizeEmail(resolved)
	}

	for _, raw := range emails {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		email := normalizeEmail(raw)
		if email == "" || email == callerEmail || email == ownerEmail {
			skipped = append(skipped, strings.TrimSpace(raw))
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}

		if directory != nil {
			exists, err := directory.EmailExists(ctx, email)
			if err != nil {
				return added, skipped, fmt.Errorf("check collaborator account: %w", err)
			}
			if !exists {
				skipped = append(skipped, email)
				continue
			}
		}

		collaborator, err := repo.CreateCollaborator(ctx, TrainingCollaborator{
			ID:         idGenerator(),
			TrainingID: training.ID,
			Email:      email,
			AddedBy:    principal.AccountID,
			AddedAt:    now(),
		})
		if err != nil {
			mapped := mapRepoError(err)
			if errors.Is(mapped, ErrAlreadyExists) {
				skipped = append(skipped, email)
				continue
			}
			return added, skipped, mapped
		}
		added = append(added, collaborator)
	}
	return added, skipped, nil
}

func normalizeTrainingInput(input TrainingInput) TrainingInput {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = normalizeOptionalString(input.Description)
	input.Objectives = normalizeOptionalString(input.Objectives)
	input.Duration = normalizeOptionalString(input.Duration)
	input.Location = normalizeOptionalString(input.Location)
	return input
}

func validateTrainingInput(input TrainingInput) *ValidationError {
	vErr := validateInput(input)
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		vErr.add("end_date", "end_date must not be before start_date")
	}
	return vErr
}

func applyTrainingInput(training *Training, input TrainingInput) {
	training.Title = input.Title
	training.Description = input.Description
	training.Objectives = input.Objectives
	training.Duration = input.Duration
	training.Location = input.Location
	training.StartDate = input.StartDate
	training.EndDate = input.EndDate
	training.MaxParticipants = input.MaxParticipants
}
