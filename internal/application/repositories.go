package application

import (
	"context"
	"errors"
	"time"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/persistence"
)

// AccountRepository captures the persistence operations for accounts.
type AccountRepository interface {
	CreateAccount(ctx context.Context, creds AccountCredentials) (Account, error)
	GetAccount(ctx context.Context, id string) (Account, error)
	GetAccountCredentialsByEmail(ctx context.Context, email string) (AccountCredentials, error)
	UpdatePasswordHash(ctx context.Context, accountID, hash string, updatedAt time.Time) error
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// MeetingRepository captures the persistence operations for meetings.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting Meeting) (Meeting, error)
	GetMeeting(ctx context.Context, id string) (Meeting, error)
	ListMeetingsByAccount(ctx context.Context, accountID string) ([]Meeting, error)
	// TransitionMeeting moves a meeting from one status to another, failing with
	// persistence.ErrConflict when the stored status is no longer from.
	TransitionMeeting(ctx context.Context, id string, from, to MeetingStatus, endTime *time.Time, updatedAt time.Time) (Meeting, error)
	// DeleteMeeting removes the meeting together with its participants and notes.
	DeleteMeeting(ctx context.Context, id string) error
}

// ParticipantRepository captures the persistence operations for participants.
type ParticipantRepository interface {
	CreateParticipant(ctx context.Context, participant Participant) (Participant, error)
	GetParticipant(ctx context.Context, id string) (Participant, error)
	ListParticipants(ctx context.Context, meetingID string) ([]Participant, error)
	// IncrementSpeakingCount adds one to speaking_count in a single statement and stamps last_spoke.
	IncrementSpeakingCount(ctx context.Context, id string, spokeAt time.Time) (Participant, error)
	UpdateParticipantStatus(ctx context.Context, id string, status ParticipantStatus, updatedAt time.Time) (Participant, error)
	DeleteParticipant(ctx context.Context, id string) error
}

// NoteRepository captures the persistence operations for meeting notes.
type NoteRepository interface {
	CreateNote(ctx context.Context, note Note) (Note, error)
	GetNote(ctx context.Context, id string) (Note, error)
	ListNotes(ctx context.Context, meetingID string) ([]Note, error)
	UpdateNote(ctx context.Context, note Note) (Note, error)
	DeleteNote(ctx context.Context, id string) error
}

// TrainingRepository captures the persistence operations for trainings.
type TrainingRepository interface {
	CreateTraining(ctx context.Context, training Training) (Training, error)
	GetTraining(ctx context.Context, id string) (Training, error)
	ListTrainingsByOwner(ctx context.Context, accountID string) ([]Training, error)
	ListTrainingsByCollaborator(ctx context.Context, email string) ([]Training, error)
	UpdateTraining(ctx context.Context, training Training) (Training, error)
	// TransitionTraining fails with persistence.ErrConflict when the stored status is no longer from.
	TransitionTraining(ctx context.Context, id string, from, to TrainingStatus, updatedAt time.Time) (Training, error)
	// DeleteTraining removes the training together with its collaborators and registrations.
	DeleteTraining(ctx context.Context, id string) error
}

// CollaboratorRepository captures the persistence operations for training collaborators.
type CollaboratorRepository interface {
	CreateCollaborator(ctx context.Context, collaborator TrainingCollaborator) (TrainingCollaborator, error)
	ListCollaborators(ctx context.Context, trainingID string) ([]TrainingCollaborator, error)
	IsCollaborator(ctx context.Context, trainingID, email string) (bool, error)
	DeleteCollaborator(ctx context.Context, trainingID, email string) error
}

// RegistrationRepository captures the persistence operations for training registrations.
type RegistrationRepository interface {
	CreateRegistration(ctx context.Context, registration Registration) (Registration, error)
	GetRegistration(ctx context.Context, id string) (Registration, error)
	ListRegistrations(ctx context.Context, trainingID string) ([]Registration, error)
	CountRegistrations(ctx context.Context, trainingID string) (int, error)
	RegistrationEmailExists(ctx context.Context, trainingID, email string) (bool, error)
	UpdateRegistrationStatus(ctx context.Context, id, status string, level *TrainingLevel, updatedAt time.Time) (Registration, error)
	DeleteRegistration(ctx context.Context, id string) error
}

// AccountDirectory resolves registered accounts by email and by id.
type AccountDirectory interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	AccountEmail(ctx context.Context, accountID string) (string, error)
}

// PasswordHasher hashes and verifies secrets.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// AttemptLimiter bounds repeated attempts against a key within a window.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// mapRepoError translates persistence sentinels into application errors.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConflict):
		return ErrInvalidTransition
	case errors.Is(err, persistence.ErrConstraintViolation):
		return newValidationError("record", "violates a storage constraint")
	default:
		return err
	}
}
