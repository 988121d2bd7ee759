package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// MeetingService orchestrates validation, ownership checks and persistence for meetings.
type MeetingService struct {
	meetings    MeetingRepository
	hasher      PasswordHasher
	limiter     AttemptLimiter
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMeetingService constructs a meeting service with the provided dependencies.
func NewMeetingService(meetings MeetingRepository, hasher PasswordHasher, limiter AttemptLimiter, idGenerator func() string, now func() time.Time) *MeetingService {
	return NewMeetingServiceWithLogger(meetings, hasher, limiter, idGenerator, now, nil)
}

// NewMeetingServiceWithLogger constructs a meeting service with a specified logger.
func NewMeetingServiceWithLogger(meetings MeetingRepository, hasher PasswordHasher, limiter AttemptLimiter, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MeetingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MeetingService{meetings: meetings, hasher: hasher, limiter: limiter, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *MeetingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MeetingService", operation, attrs...)
}

// CreateMeeting hashes the password and persists an active meeting starting now.
func (s *MeetingService) CreateMeeting(ctx context.Context, params CreateMeetingParams) (meeting Meeting, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}
	if s.meetings == nil || s.hasher == nil {
		err = fmt.Errorf("meeting dependencies not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateMeeting", "principal_id", params.Principal.AccountID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create meeting", "meeting created", "meeting_id", meeting.ID)
	}()

	if !params.Principal.authenticated() {
		err = ErrUnauthorized
		return
	}

	input := params.Input
	input.Name = strings.TrimSpace(input.Name)
	input.Description = normalizeOptionalString(input.Description)
	if vErr := validateInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hasher.Hash(input.Password)
	if err != nil {
		err = fmt.Errorf("hash meeting password: %w", err)
		return
	}

	now := s.now()
	meeting = Meeting{
		ID:           s.idGenerator(),
		AccountID:    params.Principal.AccountID,
		Name:         input.Name,
		Description:  input.Description,
		PasswordHash: hash,
		StartTime:    now,
		Status:       MeetingStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	meeting, err = s.meetings.CreateMeeting(ctx, meeting)
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// VerifyMeetingAccess reports whether password opens the meeting for the principal.
// Missing meetings, meetings owned by someone else and wrong passwords all yield false.
func (s *MeetingService) VerifyMeetingAccess(ctx context.Context, params VerifyMeetingAccessParams) (granted bool, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}
	if s.meetings == nil || s.hasher == nil {
		err = fmt.Errorf("meeting dependencies not configured")
		return
	}

	logger := s.loggerWith(ctx, "VerifyMeetingAccess",
		"principal_id", params.Principal.AccountID,
		"meeting_id", params.MeetingID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "meeting access check failed", "meeting access checked", "granted", granted)
	}()

	if !params.Principal.authenticated() {
		err = ErrUnauthorized
		return
	}

	key := params.Principal.AccountID + ":" + params.MeetingID
	if s.limiter != nil {
		var allowed bool
		allowed, err = s.limiter.Allow(ctx, key)
		if err != nil {
			err = fmt.Errorf("check access attempts: %w", err)
			return
		}
		if !allowed {
			err = ErrTooManyAttempts
			return
		}
	}

	meeting, loadErr := s.meetings.GetMeeting(ctx, params.MeetingID)
	if loadErr != nil {
		if mapped := mapRepoError(loadErr); mapped != ErrNotFound {
			err = mapped
		}
		return
	}
	if meeting.AccountID != params.Principal.AccountID || meeting.PasswordHash == "" {
		return
	}

	ok, verifyErr := s.hasher.Verify(params.Password, meeting.PasswordHash)
	if verifyErr != nil {
		logger.WarnContext(ctx, "meeting password verification failed", "error", verifyErr)
		return
	}
	granted = ok

	if granted && s.limiter != nil {
		if resetErr := s.limiter.Reset(ctx, key); resetErr != nil {
			logger.WarnContext(ctx, "failed to reset access attempts", "error", resetErr)
		}
	}
	return
}

// GetMeeting returns a meeting owned by the principal.
func (s *MeetingService) GetMeeting(ctx context.Context, principal Principal, meetingID string) (Meeting, error) {
	if s == nil || s.meetings == nil {
		return Meeting{}, fmt.Errorf("meeting repository not configured")
	}
	return loadOwnedMeeting(ctx, s.meetings, principal, meetingID)
}

// ListMeetings returns the principal's meetings, newest start time first.
func (s *MeetingService) ListMeetings(ctx context.Context, principal Principal) ([]Meeting, error) {
	return s.SearchMeetings(ctx, principal, "")
}

// SearchMeetings returns the principal's meetings whose name contains term, ignoring case.
func (s *MeetingService) SearchMeetings(ctx context.Context, principal Principal, term string) (meetings []Meeting, err error) {
	if s == nil || s.meetings == nil {
		err = fmt.Errorf("meeting repository not configured")
		return
	}

	term = strings.TrimSpace(term)
	logger := s.loggerWith(ctx, "SearchMeetings", "principal_id", principal.AccountID, "term", term)
	defer func() {
		logOutcome(ctx, logger, err, "failed to list meetings", "meetings listed", "count", len(meetings))
	}()

	if !principal.authenticated() {
		err = ErrUnauthorized
		return
	}

	var all []Meeting
	all, err = s.meetings.ListMeetingsByAccount(ctx, principal.AccountID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	meetings = filterMeetingsByName(all, term)
	sort.SliceStable(meetings, func(i, j int) bool {
		return meetings[i].StartTime.After(meetings[j].StartTime)
	})
	return
}

func filterMeetingsByName(meetings []Meeting, term string) []Meeting {
	result := make([]Meeting, 0, len(meetings))
	if term == "" {
		return append(result, meetings...)
	}
	folder := cases.Fold()
	needle := folder.String(term)
	for _, meeting := range meetings {
		if strings.Contains(folder.String(meeting.Name), needle) {
			result = append(result, meeting)
		}
	}
	return result
}

// EndMeeting moves an active or paused meeting to ended and stamps its end time.
func (s *MeetingService) EndMeeting(ctx context.Context, principal Principal, meetingID string) (Meeting, error) {
	return s.transition(ctx, "EndMeeting", principal, meetingID, MeetingStatusEnded, MeetingStatusActive, MeetingStatusPaused)
}

// PauseMeeting moves an active meeting to paused.
func (s *MeetingService) PauseMeeting(ctx context.Context, principal Principal, meetingID string) (Meeting, error) {
	return s.transition(ctx, "PauseMeeting", principal, meetingID, MeetingStatusPaused, MeetingStatusActive)
}

// ResumeMeeting moves a paused meeting back to active.
func (s *MeetingService) ResumeMeeting(ctx context.Context, principal Principal, meetingID string) (Meeting, error) {
	return s.transition(ctx, "ResumeMeeting", principal, meetingID, MeetingStatusActive, MeetingStatusPaused)
}

func (s *MeetingService) transition(ctx context.Context, operation string, principal Principal, meetingID string, to MeetingStatus, allowedFrom ...MeetingStatus) (meeting Meeting, err error) {
	if s == nil || s.meetings == nil {
		err = fmt.Errorf("meeting repository not configured")
		return
	}

	logger := s.loggerWith(ctx, operation, "principal_id", principal.AccountID, "meeting_id", meetingID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to change meeting status", "meeting status changed", "status", meeting.Status)
	}()

	var current Meeting
	current, err = loadOwnedMeeting(ctx, s.meetings, principal, meetingID)
	if err != nil {
		return
	}

	permitted := false
	for _, from := range allowedFrom {
		if current.Status == from {
			permitted = true
			break
		}
	}
	if !permitted {
		err = ErrInvalidTransition
		return
	}

	now := s.now()
	var endTime *time.Time
	if to == MeetingStatusEnded {
		endTime = &now
	}

	meeting, err = s.meetings.TransitionMeeting(ctx, current.ID, current.Status, to, endTime, now)
	if err != nil {
		err = mapRepoError(err)
	}
	return
}

// DeleteMeeting removes an owned meeting together with its participants and notes.
func (s *MeetingService) DeleteMeeting(ctx context.Context, principal Principal, meetingID string) (err error) {
	if s == nil || s.meetings == nil {
		return fmt.Errorf("meeting repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteMeeting", "principal_id", principal.AccountID, "meeting_id", meetingID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to delete meeting", "meeting deleted")
	}()

	if _, err = loadOwnedMeeting(ctx, s.meetings, principal, meetingID); err != nil {
		return err
	}
	if err = s.meetings.DeleteMeeting(ctx, meetingID); err != nil {
		err = mapRepoError(err)
	}
	return err
}

// loadOwnedMeeting fetches a meeting and checks that the principal owns it.
func loadOwnedMeeting(ctx context.Context, meetings MeetingRepository, principal Principal, meetingID string) (Meeting, error) {
	if !principal.authenticated() {
		return Meeting{}, ErrUnauthorized
	}
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return Meeting{}, ErrNotFound
	}
	meeting, err := meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return Meeting{}, mapRepoError(err)
	}
	if meeting.AccountID != principal.AccountID {
		return Meeting{}, ErrUnauthorized
	}
	return meeting, nil
}
