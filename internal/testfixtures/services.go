package testfixtures

import (
	"log/slog"
	"strings"
	"time"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/persistence/sqlstore"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/ratelimit"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// PlainHasher is a reversible stand-in for the bcrypt hasher. It keeps tests fast.
type PlainHasher struct{}

const plainPrefix = "plain:"

// Hash implements application.PasswordHasher.
func (PlainHasher) Hash(password string) (string, error) {
	return plainPrefix + password, nil
}

// Verify implements application.PasswordHasher.
func (PlainHasher) Verify(password, hash string) (bool, error) {
	return strings.HasPrefix(hash, plainPrefix) && strings.TrimPrefix(hash, plainPrefix) == password, nil
}

// Services groups every application service wired against one store.
type Services struct {
	Accounts      *application.AccountService
	Auth          *application.AuthService
	Meetings      *application.MeetingService
	Participants  *application.ParticipantService
	Notes         *application.NoteService
	Trainings     *application.TrainingService
	Collaborators *application.CollaboratorService
	Registrations *application.RegistrationService
}

// ServicesOptions tunes the services built by Services.
type ServicesOptions struct {
	Hasher        application.PasswordHasher
	Limiter       application.AttemptLimiter
	SessionTTL    time.Duration
	Registrations application.RegistrationOptions
}

// Services builds every application service on top of store using the factory clock and ids.
func (f *ServiceFactory) Services(store *sqlstore.Store, opts ServicesOptions) Services {
	hasher := opts.Hasher
	if hasher == nil {
		hasher = PlainHasher{}
	}
	now := f.Clock.NowFunc()
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.NewMemory(5, 15*time.Minute, now)
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	ids := f.IDGenerator.NextFunc()

	return Services{
		Accounts:      application.NewAccountServiceWithLogger(store, hasher, ids, now, f.Logger),
		Auth:          application.NewAuthServiceWithLogger(store, store, hasher, ids, ids, now, ttl, f.Logger),
		Meetings:      application.NewMeetingServiceWithLogger(store, hasher, limiter, ids, now, f.Logger),
		Participants:  application.NewParticipantServiceWithLogger(store, store, ids, now, f.Logger),
		Notes:         application.NewNoteServiceWithLogger(store, store, ids, now, f.Logger),
		Trainings:     application.NewTrainingServiceWithLogger(store, store, store, ids, now, f.Logger),
		Collaborators: application.NewCollaboratorServiceWithLogger(store, store, store, ids, now, f.Logger),
		Registrations: application.NewRegistrationServiceWithLogger(store, store, opts.Registrations, ids, now, f.Logger),
	}
}
