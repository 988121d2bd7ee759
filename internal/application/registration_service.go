package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// RegistrationOptions tunes the public registration flow.
type RegistrationOptions struct {
	// UniqueEmail rejects a second registration with the same email on a training.
	UniqueEmail bool
}

// RegistrationService accepts public sign ups for trainings and lets organisers triage them.
type RegistrationService struct {
	trainings     TrainingRepository
	registrations RegistrationRepository
	options       RegistrationOptions
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewRegistrationService constructs a registration service with the provided dependencies.
func NewRegistrationService(trainings TrainingRepository, registrations RegistrationRepository, options RegistrationOptions, idGenerator func() string, now func() time.Time) *RegistrationService {
	return NewRegistrationServiceWithLogger(trainings, registrations, options, idGenerator, now, nil)
}

// NewRegistrationServiceWithLogger constructs a registration service with a specified logger.
func NewRegistrationServiceWithLogger(trainings TrainingRepository, registrations RegistrationRepository, options RegistrationOptions, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RegistrationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RegistrationService{
		trainings:     trainings,
		registrations: registrations,
		options:       options,
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

func (s *RegistrationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RegistrationService", operation, attrs...)
}

func (s *RegistrationService) configured() error {
	if s == nil {
		return fmt.Errorf("RegistrationService is nil")
	}
	if s.trainings == nil || s.registrations == nil {
		return fmt.Errorf("registration dependencies not configured")
	}
	return nil
}

// Register records a public sign up for an active training.
func (s *RegistrationService) Register(ctx context.Context, trainingID string, input RegistrationInput) (registration Registration, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Register", "training_id", trainingID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to register for training", "training registration recorded", "registration_id", registration.ID)
	}()

	input = normalizeRegistrationInput(input)
	if vErr := validateInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	var training Training
	training, err = s.trainings.GetTraining(ctx, strings.TrimSpace(trainingID))
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if training.Status != TrainingStatusActive {
		err = ErrTrainingClosed
		return
	}

	if s.options.UniqueEmail {
		var exists bool
		exists, err = s.registrations.RegistrationEmailExists(ctx, training.ID, input.Email)
		if err != nil {
			err = mapRepoError(err)
			return
		}
		if exists {
			err = ErrAlreadyExists
			return
		}
	}

	if training.MaxParticipants != nil {
		var count int
		count, err = s.registrations.CountRegistrations(ctx, training.ID)
		if err != nil {
			err = mapRepoError(err)
			return
		}
		if count >= *training.MaxParticipants {
			err = ErrTrainingFull
			return
		}
	}

	now := s.now()
	registration = Registration{
		ID:                 s.idGenerator(),
		TrainingID:         training.ID,
		FirstName:          input.FirstName,
		LastName:           input.LastName,
		Email:              input.Email,
		Phone:              input.Phone,
		EducationSpecialty: input.EducationSpecialty,
		EducationLevel:     input.EducationLevel,
		MemberType:         input.MemberType,
		TrainingLevel:      input.TrainingLevel,
		RegisteredAt:       now,
		Status:             RegistrationStatusPending,
		Notes:              input.Notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	registration, err = s.registrations.CreateRegistration(ctx, registration)
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// ListByTraining returns the registrations of a training, most recent first.
func (s *RegistrationService) ListByTraining(ctx context.Context, trainingID string) (registrations []Registration, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ListByTraining", "training_id", trainingID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to list registrations", "registrations listed", "count", len(registrations))
	}()

	if _, err = s.trainings.GetTraining(ctx, strings.TrimSpace(trainingID)); err != nil {
		err = mapRepoError(err)
		return
	}
	registrations, err = s.registrations.ListRegistrations(ctx, strings.TrimSpace(trainingID))
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// GetRegistration returns one registration by id.
func (s *RegistrationService) GetRegistration(ctx context.Context, registrationID string) (Registration, error) {
	if err := s.configured(); err != nil {
		return Registration{}, err
	}
	id := strings.TrimSpace(registrationID)
	if id == "" {
		return Registration{}, ErrNotFound
	}
	registration, err := s.registrations.GetRegistration(ctx, id)
	if err != nil {
		return Registration{}, mapRepoError(err)
	}
	return registration, nil
}

// UpdateStatus sets the free form status of a registration and optionally its assigned level.
func (s *RegistrationService) UpdateStatus(ctx context.Context, params UpdateRegistrationStatusParams) (registration Registration, err error) {
	if err = s.configured(); err != nil {
		return
	}

	status := strings.TrimSpace(params.Status)
	logger := s.loggerWith(ctx, "UpdateStatus", "registration_id", params.RegistrationID, "status", status)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update registration status", "registration status updated")
	}()

	vErr := &ValidationError{}
	if status == "" {
		vErr.add("status", "status is required")
	} else if len(status) > 50 {
		vErr.add("status", "status must be at most 50 characters")
	}
	if params.TrainingLevel != nil {
		switch *params.TrainingLevel {
		case TrainingLevelBeginner, TrainingLevelIntermediate, TrainingLevelAdvanced:
		default:
			vErr.add("training_level", "training_level must be one of: beginner, intermediate, advanced")
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	registration, err = s.registrations.UpdateRegistrationStatus(ctx, strings.TrimSpace(params.RegistrationID), status, params.TrainingLevel, s.now())
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// DeleteRegistration removes a registration.
func (s *RegistrationService) DeleteRegistration(ctx context.Context, registrationID string) (err error) {
	if err = s.configured(); err != nil {
		return err
	}

	logger := s.loggerWith(ctx, "DeleteRegistration", "registration_id", registrationID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to delete registration", "registration deleted")
	}()

	if err = s.registrations.DeleteRegistration(ctx, strings.TrimSpace(registrationID)); err != nil {
		err = mapRepoError(err)
	}
	return err
}

func normalizeRegistrationInput(input RegistrationInput) RegistrationInput {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Phone = normalizeOptionalString(input.Phone)
	input.EducationSpecialty = strings.TrimSpace(input.EducationSpecialty)
	input.MemberType = MemberType(strings.ToLower(strings.TrimSpace(string(input.MemberType))))
	input.Notes = normalizeOptionalString(input.Notes)
	return input
}
