package http

import (
	"context"
	"log/slog"
	"net/http"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Auth          *AuthHandler
	Accounts      *AccountHandler
	Meetings      *MeetingHandler
	Participants  *ParticipantHandler
	Notes         *NoteHandler
	Trainings     *TrainingHandler
	Registrations *RegistrationHandler
	Sessions      SessionValidator
	Health        Pinger
	Logger        *slog.Logger
	Middleware    []func(http.Handler) http.Handler
}

// NewRouter wires every configured handler. Only account sign up, login, the public
// registration form and the health check are reachable without a session.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	logger := defaultLogger(cfg.Logger)

	protect := func(h http.HandlerFunc) http.Handler {
		if cfg.Sessions == nil {
			return h
		}
		return RequireSession(cfg.Sessions, logger)(h)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		responder := newResponder(logger)
		if cfg.Health != nil {
			if err := cfg.Health.Ping(r.Context()); err != nil {
				logger.ErrorContext(r.Context(), "health check failed", "error", err)
				responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	})

	if cfg.Accounts != nil {
		mux.HandleFunc("POST /accounts", cfg.Accounts.Register)
		mux.Handle("GET /accounts/me", protect(cfg.Accounts.Me))
	}

	if cfg.Auth != nil {
		mux.HandleFunc("POST /sessions", cfg.Auth.CreateSession)
		mux.Handle("POST /sessions/current/refresh", protect(cfg.Auth.RefreshCurrentSession))
		mux.Handle("DELETE /sessions/current", protect(cfg.Auth.DeleteCurrentSession))
	}

	if cfg.Meetings != nil {
		mux.Handle("POST /meetings", protect(cfg.Meetings.Create))
		mux.Handle("GET /meetings", protect(cfg.Meetings.List))
		mux.Handle("GET /meetings/{id}", protect(cfg.Meetings.Get))
		mux.Handle("DELETE /meetings/{id}", protect(cfg.Meetings.Delete))
		mux.Handle("POST /meetings/{id}/access", protect(cfg.Meetings.VerifyAccess))
		mux.Handle("POST /meetings/{id}/end", protect(cfg.Meetings.End))
		mux.Handle("POST /meetings/{id}/pause", protect(cfg.Meetings.Pause))
		mux.Handle("POST /meetings/{id}/resume", protect(cfg.Meetings.Resume))
		mux.Handle("GET /meetings/{id}/stats", protect(cfg.Meetings.Stats))
		mux.Handle("POST /meetings/{id}/minutes", protect(cfg.Meetings.SendMinutes))
	}

	if cfg.Participants != nil {
		mux.Handle("POST /meetings/{id}/participants", protect(cfg.Participants.Add))
		mux.Handle("GET /meetings/{id}/participants", protect(cfg.Participants.List))
		mux.Handle("GET /meetings/{id}/participants/export", protect(cfg.Participants.Export))
		mux.Handle("POST /participants/{id}/points", protect(cfg.Participants.AwardPoint))
		mux.Handle("PATCH /participants/{id}", protect(cfg.Participants.UpdateStatus))
		mux.Handle("DELETE /participants/{id}", protect(cfg.Participants.Remove))
	}

	if cfg.Notes != nil {
		mux.Handle("POST /meetings/{id}/notes", protect(cfg.Notes.Create))
		mux.Handle("GET /meetings/{id}/notes", protect(cfg.Notes.List))
		mux.Handle("PATCH /notes/{id}", protect(cfg.Notes.Update))
		mux.Handle("DELETE /notes/{id}", protect(cfg.Notes.Delete))
	}

	if cfg.Trainings != nil {
		mux.Handle("POST /trainings", protect(cfg.Trainings.Create))
		mux.Handle("GET /trainings", protect(cfg.Trainings.List))
		mux.Handle("GET /trainings/{id}", protect(cfg.Trainings.Get))
		mux.Handle("PUT /trainings/{id}", protect(cfg.Trainings.Update))
		mux.Handle("PATCH /trainings/{id}/status", protect(cfg.Trainings.UpdateStatus))
		mux.Handle("DELETE /trainings/{id}", protect(cfg.Trainings.Delete))
		mux.Handle("GET /trainings/{id}/collaborators", protect(cfg.Trainings.ListCollaborators))
		mux.Handle("POST /trainings/{id}/collaborators", protect(cfg.Trainings.AddCollaborators))
		mux.Handle("DELETE /trainings/{id}/collaborators/{email}", protect(cfg.Trainings.RemoveCollaborator))
	}

	if cfg.Registrations != nil {
		mux.HandleFunc("POST /trainings/{id}/registrations", cfg.Registrations.Register)
		mux.Handle("GET /trainings/{id}/registrations", protect(cfg.Registrations.List))
		mux.Handle("GET /trainings/{id}/registrations/export", protect(cfg.Registrations.Export))
		mux.Handle("PATCH /registrations/{id}", protect(cfg.Registrations.UpdateStatus))
		mux.Handle("DELETE /registrations/{id}", protect(cfg.Registrations.Delete))
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		handler = cfg.Middleware[i](handler)
	}
	return handler
}

type healthResponse struct {
	Status string `json:"status"`
}
