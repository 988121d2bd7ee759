package main

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/config"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/credential"
	httptransport "github.com/kassemabbassi/meet-tracker-sub000/internal/http"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/mail"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/persistence/sqlstore"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/ratelimit"
)

// services holds every application service wired against one store.
type services struct {
	accounts      *application.AccountService
	auth          *application.AuthService
	meetings      *application.MeetingService
	participants  *application.ParticipantService
	notes         *application.NoteService
	minutes       *application.MinutesService
	trainings     *application.TrainingService
	collaborators *application.CollaboratorService
	registrations *application.RegistrationService

	closers []io.Closer
}

// Close releases the external clients opened by buildServices.
func (s *services) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func newID() string {
	return uuid.NewString()
}

// newTokenGenerator returns random session tokens keyed with secret.
func newTokenGenerator(secret string) func() string {
	return func() string {
		buf := make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, buf); err != nil {
			panic(fmt.Sprintf("tracker: read random bytes: %v", err))
		}
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(buf)
		return hex.EncodeToString(mac.Sum(nil))
	}
}

// buildLimiter picks the shared Redis limiter when a URL is configured.
func buildLimiter(ctx context.Context, cfg config.Config, logger *slog.Logger) (application.AttemptLimiter, io.Closer, error) {
	if cfg.RedisURL == "" {
		logger.Info("using in-memory access limiter")
		return ratelimit.NewMemory(cfg.AccessMaxAttempts, cfg.AccessWindow, time.Now), nil, nil
	}
	client, err := ratelimit.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using redis access limiter")
	return ratelimit.NewRedis(client, "tracker:access", cfg.AccessMaxAttempts, cfg.AccessWindow), client, nil
}

// buildSender picks the Gmail API sender when credentials are complete.
func buildSender(ctx context.Context, cfg config.Config, logger *slog.Logger) (mail.Sender, error) {
	if !cfg.Gmail.Complete() {
		logger.Info("gmail credentials incomplete, minutes are logged instead of sent")
		return mail.NewLogSender(logger), nil
	}
	sender, err := mail.NewGmailSender(ctx, mail.GmailConfig{
		ClientID:     cfg.Gmail.ClientID,
		ClientSecret: cfg.Gmail.ClientSecret,
		RefreshToken: cfg.Gmail.RefreshToken,
		From:         cfg.MailFrom,
	}, logger)
	if err != nil {
		return nil, err
	}
	return sender, nil
}

func buildServices(ctx context.Context, cfg config.Config, store *sqlstore.Store, logger *slog.Logger) (*services, error) {
	hasher := credential.NewHasher(cfg.BcryptCost)
	now := time.Now

	limiter, limiterCloser, err := buildLimiter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	sender, err := buildSender(ctx, cfg, logger)
	if err != nil {
		if limiterCloser != nil {
			_ = limiterCloser.Close()
		}
		return nil, err
	}

	svc := &services{
		accounts:      application.NewAccountServiceWithLogger(store, hasher, newID, now, logger),
		auth:          application.NewAuthServiceWithLogger(store, store, hasher, newID, newTokenGenerator(cfg.SessionSecret), now, cfg.SessionTTL, logger),
		meetings:      application.NewMeetingServiceWithLogger(store, hasher, limiter, newID, now, logger),
		participants:  application.NewParticipantServiceWithLogger(store, store, newID, now, logger),
		notes:         application.NewNoteServiceWithLogger(store, store, newID, now, logger),
		minutes:       application.NewMinutesService(store, store, store, store, sender, cfg.MailFrom, now, logger),
		trainings:     application.NewTrainingServiceWithLogger(store, store, store, newID, now, logger),
		collaborators: application.NewCollaboratorServiceWithLogger(store, store, store, newID, now, logger),
		registrations: application.NewRegistrationServiceWithLogger(store, store, application.RegistrationOptions{
			UniqueEmail: cfg.RegistrationUniqueEmail,
		}, newID, now, logger),
	}
	if limiterCloser != nil {
		svc.closers = append(svc.closers, limiterCloser)
	}
	return svc, nil
}

func buildHandler(svc *services, store *sqlstore.Store, logger *slog.Logger) http.Handler {
	return httptransport.NewRouter(httptransport.RouterConfig{
		Auth:          httptransport.NewAuthHandler(svc.auth, logger),
		Accounts:      httptransport.NewAccountHandler(svc.accounts, logger),
		Meetings:      httptransport.NewMeetingHandler(svc.meetings, svc.participants, svc.minutes, time.Now, logger),
		Participants:  httptransport.NewParticipantHandler(svc.participants, logger),
		Notes:         httptransport.NewNoteHandler(svc.notes, logger),
		Trainings:     httptransport.NewTrainingHandler(svc.trainings, svc.collaborators, logger),
		Registrations: httptransport.NewRegistrationHandler(svc.registrations, svc.trainings, logger),
		Sessions:      svc.auth,
		Health:        store,
		Logger:        logger,
		Middleware:    []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
}
