package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ParticipantService tracks attendance and speaking points for meetings.
type ParticipantService struct {
	meetings     MeetingRepository
	participants ParticipantRepository
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewParticipantService constructs a participant service with the provided dependencies.
func NewParticipantService(meetings MeetingRepository, participants ParticipantRepository, idGenerator func() string, now func() time.Time) *ParticipantService {
	return NewParticipantServiceWithLogger(meetings, participants, idGenerator, now, nil)
}

// NewParticipantServiceWithLogger constructs a participant service with a specified logger.
func NewParticipantServiceWithLogger(meetings MeetingRepository, participants ParticipantRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ParticipantService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ParticipantService{meetings: meetings, participants: participants, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *ParticipantService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ParticipantService", operation, attrs...)
}

func (s *ParticipantService) configured() error {
	if s == nil {
		return fmt.Errorf("ParticipantService is nil")
	}
	if s.meetings == nil || s.participants == nil {
		return fmt.Errorf("participant dependencies not configured")
	}
	return nil
}

// AddParticipant registers an attendee on an owned, active meeting.
func (s *ParticipantService) AddParticipant(ctx context.Context, params AddParticipantParams) (participant Participant, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "AddParticipant", "principal_id", params.Principal.AccountID, "meeting_id", params.MeetingID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to add participant", "participant added", "participant_id", participant.ID)
	}()

	input := params.Input
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeOptionalEmail(input.Email)
	if vErr := validateInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	var meeting Meeting
	meeting, err = s.activeMeeting(ctx, params.Principal, params.MeetingID)
	if err != nil {
		return
	}

	now := s.now()
	participant = Participant{
		ID:            s.idGenerator(),
		MeetingID:     meeting.ID,
		AccountID:     meeting.AccountID,
		Name:          input.Name,
		Email:         input.Email,
		JoinTime:      now,
		SpeakingCount: 0,
		Status:        ParticipantStatusPresent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	participant, err = s.participants.CreateParticipant(ctx, participant)
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// ListParticipants returns the participants of an owned meeting ordered by join time.
func (s *ParticipantService) ListParticipants(ctx context.Context, principal Principal, meetingID string) (participants []Participant, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ListParticipants", "principal_id", principal.AccountID, "meeting_id", meetingID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to list participants", "participants listed", "count", len(participants))
	}()

	if _, err = loadOwnedMeeting(ctx, s.meetings, principal, meetingID); err != nil {
		return
	}
	participants, err = s.participants.ListParticipants(ctx, meetingID)
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// AwardSpeakingPoint increments the participant's speaking count by one and stamps last_spoke.
func (s *ParticipantService) AwardSpeakingPoint(ctx context.Context, principal Principal, participantID string) (participant Participant, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "AwardSpeakingPoint", "principal_id", principal.AccountID, "participant_id", participantID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to award speaking point", "speaking point awarded", "speaking_count", participant.SpeakingCount)
	}()

	if _, err = s.mutableParticipant(ctx, principal, participantID); err != nil {
		return
	}
	participant, err = s.participants.IncrementSpeakingCount(ctx, participantID, s.now())
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// UpdateParticipantStatus records a participant as present, absent or left.
func (s *ParticipantService) UpdateParticipantStatus(ctx context.Context, params UpdateParticipantStatusParams) (participant Participant, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateParticipantStatus",
		"principal_id", params.Principal.AccountID,
		"participant_id", params.ParticipantID,
		"status", params.Status,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update participant status", "participant status updated")
	}()

	switch params.Status {
	case ParticipantStatusPresent, ParticipantStatusAbsent, ParticipantStatusLeft:
	default:
		err = newValidationError("status", "status must be one of: present, absent, left")
		return
	}

	if _, err = s.mutableParticipant(ctx, params.Principal, params.ParticipantID); err != nil {
		return
	}
	participant, err = s.participants.UpdateParticipantStatus(ctx, params.ParticipantID, params.Status, s.now())
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// RemoveParticipant hard deletes a participant of an owned, active meeting.
func (s *ParticipantService) RemoveParticipant(ctx context.Context, principal Principal, participantID string) (err error) {
	if err = s.configured(); err != nil {
		return err
	}

	logger := s.loggerWith(ctx, "RemoveParticipant", "principal_id", principal.AccountID, "participant_id", participantID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to remove participant", "participant removed")
	}()

	if _, err = s.mutableParticipant(ctx, principal, participantID); err != nil {
		return err
	}
	if err = s.participants.DeleteParticipant(ctx, participantID); err != nil {
		err = mapRepoError(err)
	}
	return err
}

func (s *ParticipantService) activeMeeting(ctx context.Context, principal Principal, meetingID string) (Meeting, error) {
	meeting, err := loadOwnedMeeting(ctx, s.meetings, principal, meetingID)
	if err != nil {
		return Meeting{}, err
	}
	if meeting.Status != MeetingStatusActive {
		return Meeting{}, ErrMeetingNotActive
	}
	return meeting, nil
}

// mutableParticipant loads a participant whose meeting is owned by the principal and active.
func (s *ParticipantService) mutableParticipant(ctx context.Context, principal Principal, participantID string) (Participant, error) {
	if !principal.authenticated() {
		return Participant{}, ErrUnauthorized
	}
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return Participant{}, ErrNotFound
	}
	participant, err := s.participants.GetParticipant(ctx, participantID)
	if err != nil {
		return Participant{}, mapRepoError(err)
	}
	if participant.AccountID != principal.AccountID {
		return Participant{}, ErrUnauthorized
	}
	if _, err := s.activeMeeting(ctx, principal, participant.MeetingID); err != nil {
		return Participant{}, err
	}
	return participant, nil
}
