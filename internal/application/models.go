package application

import "time"

// Principal represents the authenticated account invoking a service method.
type Principal struct {
	AccountID string
	Email     string
}

func (p Principal) authenticated() bool {
	return p.AccountID != ""
}

// Account is a registered user owning meetings and trainings.
type Account struct {
	ID          string
	Email       string
	Username    string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AccountCredentials pairs an account with its stored password hash.
type AccountCredentials struct {
	Account      Account
	PasswordHash string
}

// RegisterAccountInput captures caller provided account attributes.
type RegisterAccountInput struct {
	Email       string `field:"email" validate:"required,email,max=254"`
	Username    string `field:"username" validate:"required,min=3,max=64"`
	Password    string `field:"password" validate:"required,min=8,max=72,maxbytes=72"`
	DisplayName string `field:"display_name" validate:"required,max=120"`
}

// Session represents an issued authentication session.
type Session struct {
	ID        string
	AccountID string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the login request.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult returns the account and the issued session.
type AuthenticateResult struct {
	Account Account
	Session Session
}

// MeetingStatus is the lifecycle state of a meeting.
type MeetingStatus string

const (
	MeetingStatusActive MeetingStatus = "active"
	MeetingStatusPaused MeetingStatus = "paused"
	MeetingStatusEnded  MeetingStatus = "ended"
)

// Meeting is a tracked session with participants and notes, gated by a password.
type Meeting struct {
	ID           string
	AccountID    string
	Name         string
	Description  *string
	PasswordHash string
	StartTime    time.Time
	EndTime      *time.Time
	Status       MeetingStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MeetingInput captures caller provided meeting fields.
type MeetingInput struct {
	Name        string  `field:"name" validate:"required,max=200"`
	Password    string  `field:"password" validate:"required,max=72,maxbytes=72"`
	Description *string `field:"description" validate:"omitempty,max=2000"`
}

// CreateMeetingParams wraps the data required to create a meeting.
type CreateMeetingParams struct {
	Principal Principal
	Input     MeetingInput
}

// VerifyMeetingAccessParams wraps a meeting password check.
type VerifyMeetingAccessParams struct {
	Principal Principal
	MeetingID string
	Password  string
}

// ParticipantStatus is the attendance state of a participant.
type ParticipantStatus string

const (
	ParticipantStatusPresent ParticipantStatus = "present"
	ParticipantStatusAbsent  ParticipantStatus = "absent"
	ParticipantStatusLeft    ParticipantStatus = "left"
)

// Participant is an attendee of a meeting with a speaking point counter.
type Participant struct {
	ID            string
	MeetingID     string
	AccountID     string
	Name          string
	Email         *string
	JoinTime      time.Time
	SpeakingCount int
	LastSpoke     *time.Time
	Status        ParticipantStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ParticipantInput captures caller provided participant fields.
type ParticipantInput struct {
	Name  string  `field:"name" validate:"required,max=200"`
	Email *string `field:"email" validate:"omitempty,email,max=254"`
}

// AddParticipantParams wraps the data required to add a participant.
type AddParticipantParams struct {
	Principal Principal
	MeetingID string
	Input     ParticipantInput
}

// UpdateParticipantStatusParams wraps an attendance change.
type UpdateParticipantStatusParams struct {
	Principal     Principal
	ParticipantID string
	Status        ParticipantStatus
}

// NoteType classifies a meeting note.
type NoteType string

const (
	NoteTypeGeneral   NoteType = "general"
	NoteTypeAction    NoteType = "action"
	NoteTypeObjective NoteType = "objective"
	NoteTypeDecision  NoteType = "decision"
	NoteTypeIdea      NoteType = "idea"
	NoteTypeIssue     NoteType = "issue"
	NoteTypeFollowUp  NoteType = "follow-up"
)

// NotePriority ranks a meeting note.
type NotePriority string

const (
	NotePriorityLow    NotePriority = "low"
	NotePriorityMedium NotePriority = "medium"
	NotePriorityHigh   NotePriority = "high"
	NotePriorityUrgent NotePriority = "urgent"
)

// NoteStatus tracks progress of an action note.
type NoteStatus string

const (
	NoteStatusPending    NoteStatus = "pending"
	NoteStatusInProgress NoteStatus = "in_progress"
	NoteStatusCompleted  NoteStatus = "completed"
	NoteStatusCancelled  NoteStatus = "cancelled"
)

// Note is a structured note taken during a meeting.
type Note struct {
	ID            string
	MeetingID     string
	AccountID     string
	Title         *string
	Type          NoteType
	Content       string
	AssigneeName  *string
	AssigneeEmail *string
	DueDate       *time.Time
	Priority      NotePriority
	Status        *NoteStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NoteInput captures caller provided note fields for creation.
type NoteInput struct {
	Title         *string      `field:"title" validate:"omitempty,max=200"`
	Type          NoteType     `field:"note_type" validate:"required,oneof=general action objective decision idea issue follow-up"`
	Content       string       `field:"content" validate:"required,max=10000"`
	AssigneeName  *string      `field:"assignee_name" validate:"omitempty,max=200"`
	AssigneeEmail *string      `field:"assignee_email" validate:"omitempty,email,max=254"`
	DueDate       *time.Time   `field:"due_date"`
	Priority      NotePriority `field:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status        *NoteStatus  `field:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
}

// NotePatch carries the fields of a partial note update; nil fields are left unchanged.
type NotePatch struct {
	Title         *string       `field:"title" validate:"omitempty,max=200"`
	Type          *NoteType     `field:"note_type" validate:"omitempty,oneof=general action objective decision idea issue follow-up"`
	Content       *string       `field:"content" validate:"omitempty,max=10000"`
	AssigneeName  *string       `field:"assignee_name" validate:"omitempty,max=200"`
	AssigneeEmail *string       `field:"assignee_email" validate:"omitempty,email,max=254"`
	DueDate       *time.Time    `field:"due_date"`
	Priority      *NotePriority `field:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status        *NoteStatus   `field:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
}

// CreateNoteParams wraps the data required to create a note.
type CreateNoteParams struct {
	Principal Principal
	MeetingID string
	Input     NoteInput
}

// UpdateNoteParams wraps the data required to patch a note.
type UpdateNoteParams struct {
	Principal Principal
	NoteID    string
	Patch     NotePatch
}

// TrainingStatus is the lifecycle state of a training.
type TrainingStatus string

const (
	TrainingStatusActive    TrainingStatus = "active"
	TrainingStatusCompleted TrainingStatus = "completed"
	TrainingStatusCancelled TrainingStatus = "cancelled"
)

// Training is a longer lived program with registrations.
type Training struct {
	ID              string
	AccountID       string
	Title           string
	Description     *string
	Objectives      *string
	Duration        *string
	Location        *string
	StartDate       *time.Time
	EndDate         *time.Time
	MaxParticipants *int
	Status          TrainingStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TrainingInput captures caller provided training fields.
type TrainingInput struct {
	Title           string     `field:"title" validate:"required,max=200"`
	Description     *string    `field:"description" validate:"omitempty,max=5000"`
	Objectives      *string    `field:"objectives" validate:"omitempty,max=5000"`
	Duration        *string    `field:"duration" validate:"omitempty,max=100"`
	Location        *string    `field:"location" validate:"omitempty,max=200"`
	StartDate       *time.Time `field:"start_date"`
	EndDate         *time.Time `field:"end_date"`
	MaxParticipants *int       `field:"max_participants" validate:"omitempty,gt=0"`
}

// CreateTrainingParams wraps the data required to create a training.
type CreateTrainingParams struct {
	Principal          Principal
	Input              TrainingInput
	CollaboratorEmails []string
}

// UpdateTrainingParams wraps the data required to update a training.
type UpdateTrainingParams struct {
	Principal  Principal
	TrainingID string
	Input      TrainingInput
}

// UpdateTrainingStatusParams wraps a training status change.
type UpdateTrainingStatusParams struct {
	Principal  Principal
	TrainingID string
	Status     TrainingStatus
}

// TrainingCollaborator grants an account, identified by email, management rights on a training.
type TrainingCollaborator struct {
	ID         string
	TrainingID string
	Email      string
	AddedBy    string
	AddedAt    time.Time
}

// AddCollaboratorsParams wraps a batch of collaborator emails.
type AddCollaboratorsParams struct {
	Principal  Principal
	TrainingID string
	Emails     []string
}

// MemberType classifies a registrant's association membership.
type MemberType string

const (
	MemberTypeAdherent MemberType = "adherent"
	MemberTypeActif    MemberType = "actif"
)

// TrainingLevel is the skill level assigned to a registrant.
type TrainingLevel string

const (
	TrainingLevelBeginner     TrainingLevel = "beginner"
	TrainingLevelIntermediate TrainingLevel = "intermediate"
	TrainingLevelAdvanced     TrainingLevel = "advanced"
)

// RegistrationStatusPending is the status of a freshly submitted registration.
const RegistrationStatusPending = "pending"

// Registration is a public sign up for a training.
type Registration struct {
	ID                 string
	TrainingID         string
	FirstName          string
	LastName           string
	Email              string
	Phone              *string
	EducationSpecialty string
	EducationLevel     int
	MemberType         MemberType
	TrainingLevel      *TrainingLevel
	RegisteredAt       time.Time
	Status             string
	Notes              *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RegistrationInput captures the public registration form.
type RegistrationInput struct {
	FirstName          string         `field:"first_name" validate:"required,max=100"`
	LastName           string         `field:"last_name" validate:"required,max=100"`
	Email              string         `field:"email" validate:"required,email,max=254"`
	Phone              *string        `field:"phone" validate:"omitempty,max=40"`
	EducationSpecialty string         `field:"education_specialty" validate:"required,max=100"`
	EducationLevel     int            `field:"education_level" validate:"gte=0,lte=20"`
	MemberType         MemberType     `field:"member_type" validate:"required,oneof=adherent actif"`
	TrainingLevel      *TrainingLevel `field:"training_level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Notes              *string        `field:"notes" validate:"omitempty,max=2000"`
}

// UpdateRegistrationStatusParams wraps a registration status change.
type UpdateRegistrationStatusParams struct {
	RegistrationID string
	Status         string
	TrainingLevel  *TrainingLevel
}

// CreateTrainingResult returns the persisted training and the collaborators that were attached.
type CreateTrainingResult struct {
	Training      Training
	Collaborators []TrainingCollaborator
	SkippedEmails []string
}
