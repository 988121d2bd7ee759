package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CollaboratorService grants and revokes training management rights by email.
type CollaboratorService struct {
	trainings     TrainingRepository
	collaborators CollaboratorRepository
	directory     AccountDirectory
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewCollaboratorService constructs a collaborator service with the provided dependencies.
func NewCollaboratorService(trainings TrainingRepository, collaborators CollaboratorRepository, directory AccountDirectory, idGenerator func() string, now func() time.Time) *CollaboratorService {
	return NewCollaboratorServiceWithLogger(trainings, collaborators, directory, idGenerator, now, nil)
}

// NewCollaboratorServiceWithLogger constructs a collaborator service with a specified logger.
func NewCollaboratorServiceWithLogger(trainings TrainingRepository, collaborators CollaboratorRepository, directory AccountDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CollaboratorService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CollaboratorService{
		trainings:     trainings,
		collaborators: collaborators,
		directory:     directory,
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

func (s *CollaboratorService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CollaboratorService", operation, attrs...)
}

func (s *CollaboratorService) configured() error {
	if s == nil {
		return fmt.Errorf("CollaboratorService is nil")
	}
	if s.trainings == nil || s.collaborators == nil || s.directory == nil {
		return fmt.Errorf("collaborator dependencies not configured")
	}
	return nil
}

// AddCollaborators attaches every acceptable email to a manageable training.
// It fails with a ValidationError when no email could be added.
func (s *CollaboratorService) AddCollaborators(ctx context.Context, params AddCollaboratorsParams) (added []TrainingCollaborator, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "AddCollaborators",
		"principal_id", params.Principal.AccountID,
		"training_id", params.TrainingID,
		"requested", len(params.Emails),
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to add collaborators", "collaborators added", "added", len(added))
	}()

	var training Training
	training, err = loadManageableTraining(ctx, s.trainings, s.collaborators, params.Principal, params.TrainingID)
	if err != nil {
		return
	}

	added, _, err = insertCollaborators(ctx, s.collaborators, s.directory, s.idGenerator, s.now, training, params.Principal, params.Emails)
	if err != nil {
		return
	}
	if len(added) == 0 {
		err = newValidationError("emails", "no email belongs to a registered account that can be added")
	}
	return
}

// ListCollaborators returns the collaborators of a manageable training.
func (s *CollaboratorService) ListCollaborators(ctx context.Context, principal Principal, trainingID string) (collaborators []TrainingCollaborator, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ListCollaborators", "principal_id", principal.AccountID, "training_id", trainingID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to list collaborators", "collaborators listed", "count", len(collaborators))
	}()

	if _, err = loadManageableTraining(ctx, s.trainings, s.collaborators, principal, trainingID); err != nil {
		return
	}
	collaborators, err = s.collaborators.ListCollaborators(ctx, trainingID)
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// RemoveCollaborator revokes the management rights of email on a manageable training.
func (s *CollaboratorService) RemoveCollaborator(ctx context.Context, principal Principal, trainingID, email string) (err error) {
	if err = s.configured(); err != nil {
		return err
	}

	normalized := normalizeEmail(email)
	logger := s.loggerWith(ctx, "RemoveCollaborator",
		"principal_id", principal.AccountID,
		"training_id", trainingID,
		"email", normalized,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to remove collaborator", "collaborator removed")
	}()

	if normalized == "" {
		return newValidationError("email", "email is invalid")
	}
	if _, err = loadManageableTraining(ctx, s.trainings, s.collaborators, principal, trainingID); err != nil {
		return err
	}
	if err = s.collaborators.DeleteCollaborator(ctx, trainingID, normalized); err != nil {
		err = mapRepoError(err)
	}
	return err
}
