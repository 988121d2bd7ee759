package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
)

var (
	accountCounter      uint64
	meetingCounter      uint64
	participantCounter  uint64
	noteCounter         uint64
	trainingCounter     uint64
	registrationCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Account fixtures -----------------------------

// AccountFixture represents a deterministic account record.
type AccountFixture struct {
	ID           string
	Email        string
	Username     string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}

// AccountOption configures the generated account fixture.
type AccountOption func(*AccountFixture)

// NewAccountFixture returns a deterministic account fixture with optional overrides.
func NewAccountFixture(opts ...AccountOption) AccountFixture {
	idx := atomic.AddUint64(&accountCounter, 1)
	id := fmt.Sprintf("acct-%03d", idx)
	fixture := AccountFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		Username:     fmt.Sprintf("user%03d", idx),
		DisplayName:  fmt.Sprintf("Account %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAccountID overrides the generated account ID.
func WithAccountID(id string) AccountOption {
	return func(f *AccountFixture) { f.ID = id }
}

// WithAccountEmail overrides the generated email address.
func WithAccountEmail(email string) AccountOption {
	return func(f *AccountFixture) { f.Email = email }
}

// WithAccountPasswordHash overrides the stored password hash.
func WithAccountPasswordHash(hash string) AccountOption {
	return func(f *AccountFixture) { f.PasswordHash = hash }
}

// Application returns the fixture as an application.Account.
func (f AccountFixture) Application() application.Account {
	return application.Account{
		ID:          f.ID,
		Email:       f.Email,
		Username:    f.Username,
		DisplayName: f.DisplayName,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
	}
}

// Credentials returns the fixture with its password hash.
func (f AccountFixture) Credentials() application.AccountCredentials {
	return application.AccountCredentials{Account: f.Application(), PasswordHash: f.PasswordHash}
}

// Principal returns the principal acting as this account.
func (f AccountFixture) Principal() application.Principal {
	return application.Principal{AccountID: f.ID, Email: f.Email}
}

// ----------------------------- Meeting fixtures -----------------------------

// MeetingFixture represents a deterministic meeting record.
type MeetingFixture struct {
	ID           string
	AccountID    string
	Name         string
	PasswordHash string
	StartTime    time.Time
	Status       application.MeetingStatus
}

// MeetingOption configures the generated meeting fixture.
type MeetingOption func(*MeetingFixture)

// NewMeetingFixture returns an active meeting owned by accountID.
func NewMeetingFixture(accountID string, opts ...MeetingOption) MeetingFixture {
	idx := atomic.AddUint64(&meetingCounter, 1)
	fixture := MeetingFixture{
		ID:           fmt.Sprintf("meeting-%03d", idx),
		AccountID:    accountID,
		Name:         fmt.Sprintf("Meeting %03d", idx),
		PasswordHash: "meeting-hash",
		StartTime:    referenceTime.Add(time.Duration(idx) * time.Hour),
		Status:       application.MeetingStatusActive,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMeetingID overrides the generated meeting ID.
func WithMeetingID(id string) MeetingOption {
	return func(f *MeetingFixture) { f.ID = id }
}

// WithMeetingName overrides the generated meeting name.
func WithMeetingName(name string) MeetingOption {
	return func(f *MeetingFixture) { f.Name = name }
}

// WithMeetingStatus overrides the lifecycle status.
func WithMeetingStatus(status application.MeetingStatus) MeetingOption {
	return func(f *MeetingFixture) { f.Status = status }
}

// WithMeetingStartTime overrides the start time.
func WithMeetingStartTime(t time.Time) MeetingOption {
	return func(f *MeetingFixture) { f.StartTime = t }
}

// Application returns the fixture as an application.Meeting. Ended meetings end one hour after they start.
func (f MeetingFixture) Application() application.Meeting {
	meeting := application.Meeting{
		ID:           f.ID,
		AccountID:    f.AccountID,
		Name:         f.Name,
		PasswordHash: f.PasswordHash,
		StartTime:    f.StartTime,
		Status:       f.Status,
		CreatedAt:    f.StartTime,
		UpdatedAt:    f.StartTime,
	}
	if f.Status == application.MeetingStatusEnded {
		end := f.StartTime.Add(time.Hour)
		meeting.EndTime = &end
		meeting.UpdatedAt = end
	}
	return meeting
}

// --------------------------- Participant fixtures ---------------------------

// ParticipantFixture represents a deterministic participant record.
type ParticipantFixture struct {
	ID            string
	MeetingID     string
	AccountID     string
	Name          string
	Email         *string
	JoinTime      time.Time
	SpeakingCount int
}

// ParticipantOption configures the generated participant fixture.
type ParticipantOption func(*ParticipantFixture)

// NewParticipantFixture returns a present participant of the given meeting.
func NewParticipantFixture(meeting MeetingFixture, opts ...ParticipantOption) ParticipantFixture {
	idx := atomic.AddUint64(&participantCounter, 1)
	fixture := ParticipantFixture{
		ID:        fmt.Sprintf("participant-%03d", idx),
		MeetingID: meeting.ID,
		AccountID: meeting.AccountID,
		Name:      fmt.Sprintf("Participant %03d", idx),
		JoinTime:  meeting.StartTime.Add(time.Duration(idx) * time.Second),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithParticipantName overrides the participant name.
func WithParticipantName(name string) ParticipantOption {
	return func(f *ParticipantFixture) { f.Name = name }
}

// WithParticipantEmail sets the participant email.
func WithParticipantEmail(email string) ParticipantOption {
	return func(f *ParticipantFixture) { f.Email = &email }
}

// WithSpeakingCount overrides the speaking point counter.
func WithSpeakingCount(count int) ParticipantOption {
	return func(f *ParticipantFixture) { f.SpeakingCount = count }
}

// Application returns the fixture as an application.Participant.
func (f ParticipantFixture) Application() application.Participant {
	return application.Participant{
		ID:            f.ID,
		MeetingID:     f.MeetingID,
		AccountID:     f.AccountID,
		Name:          f.Name,
		Email:         f.Email,
		JoinTime:      f.JoinTime,
		SpeakingCount: f.SpeakingCount,
		Status:        application.ParticipantStatusPresent,
		CreatedAt:     f.JoinTime,
		UpdatedAt:     f.JoinTime,
	}
}

// ------------------------------ Note fixtures ------------------------------

// NewNoteFixture returns a general note on the given meeting.
func NewNoteFixture(meeting MeetingFixture, noteType application.NoteType, content string) application.Note {
	idx := atomic.AddUint64(&noteCounter, 1)
	created := meeting.StartTime.Add(time.Duration(idx) * time.Minute)
	return application.Note{
		ID:        fmt.Sprintf("note-%03d", idx),
		MeetingID: meeting.ID,
		AccountID: meeting.AccountID,
		Type:      noteType,
		Content:   content,
		Priority:  application.NotePriorityMedium,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// ---------------------------- Training fixtures ----------------------------

// TrainingFixture represents a deterministic training record.
type TrainingFixture struct {
	ID              string
	AccountID       string
	Title           string
	MaxParticipants *int
	Status          application.TrainingStatus
	CreatedAt       time.Time
}

// TrainingOption configures the generated training fixture.
type TrainingOption func(*TrainingFixture)

// NewTrainingFixture returns an active training owned by accountID.
func NewTrainingFixture(accountID string, opts ...TrainingOption) TrainingFixture {
	idx := atomic.AddUint64(&trainingCounter, 1)
	fixture := TrainingFixture{
		ID:        fmt.Sprintf("training-%03d", idx),
		AccountID: accountID,
		Title:     fmt.Sprintf("Training %03d", idx),
		Status:    application.TrainingStatusActive,
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithTrainingStatus overrides the lifecycle status.
func WithTrainingStatus(status application.TrainingStatus) TrainingOption {
	return func(f *TrainingFixture) { f.Status = status }
}

// WithMaxParticipants sets the registration capacity.
func WithMaxParticipants(max int) TrainingOption {
	return func(f *TrainingFixture) { f.MaxParticipants = &max }
}

// WithTrainingCreatedAt overrides the creation time.
func WithTrainingCreatedAt(t time.Time) TrainingOption {
	return func(f *TrainingFixture) { f.CreatedAt = t }
}

// Application returns the fixture as an application.Training.
func (f TrainingFixture) Application() application.Training {
	return application.Training{
		ID:              f.ID,
		AccountID:       f.AccountID,
		Title:           f.Title,
		MaxParticipants: f.MaxParticipants,
		Status:          f.Status,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.CreatedAt,
	}
}

// -------------------------- Registration fixtures --------------------------

// NewRegistrationFixture returns a pending registration for the training.
func NewRegistrationFixture(training TrainingFixture, email string) application.Registration {
	idx := atomic.AddUint64(&registrationCounter, 1)
	registered := training.CreatedAt.Add(time.Duration(idx) * time.Minute)
	return application.Registration{
		ID:                 fmt.Sprintf("registration-%03d", idx),
		TrainingID:         training.ID,
		FirstName:          "First",
		LastName:           fmt.Sprintf("Last%03d", idx),
		Email:              email,
		EducationSpecialty: "Computer science",
		EducationLevel:     3,
		MemberType:         application.MemberTypeAdherent,
		RegisteredAt:       registered,
		Status:             application.RegistrationStatusPending,
		CreatedAt:          registered,
		UpdatedAt:          registered,
	}
}
