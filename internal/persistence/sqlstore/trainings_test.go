package sqlstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/persistence"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/testfixtures"
)

func collaborator(training application.Training, email, addedBy string) application.TrainingCollaborator {
	return application.TrainingCollaborator{
		ID:         training.ID + "-" + email,
		TrainingID: training.ID,
		Email:      email,
		AddedBy:    addedBy,
		AddedAt:    training.CreatedAt,
	}
}

func TestTrainings_ListByOwnerAndCollaborator(t *testing.T) {
	harness := testfixtures.NewSQLHarness(t)
	store := harness.Store
	ctx := context.Background()
	owner, _ := harness.SeedAccount(t)
	peer, _ := harness.SeedAccount(t)

	base := testfixtures.ReferenceTime()
	first := harness.SeedTraining(t, testfixtures.NewTrainingFixture(owner.ID, testfixtures.WithTrainingCreatedAt(base)))
	second := harness.SeedTraining(t, testfixtures.NewTrainingFixture(owner.ID, testfixtures.WithTrainingCreatedAt(base.Add(time.Hour))))
	foreign := harness.SeedTraining(t, testfixtures.NewTrainingFixture(peer.ID))

	owned, err := store.ListTrainingsByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListTrainingsByOwner failed: %v", err)
	}
	if len(owned) != 2 || owned[0].ID != second.ID || owned[1].ID != first.ID {
		t.Fatalf("expected newest training first, got %#v", owned)
	}

	if _, err := store.CreateCollaborator(ctx, collaborator(foreign, owner.Email, peer.Email)); err != nil {
		t.Fatalf("CreateCollaborator failed: %v", err)
	}
	if _, err := store.CreateCollaborator(ctx, collaborator(foreign, owner.Email, peer.Email)); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for repeated collaborator, got %v", err)
	}

	shared, err := store.ListTrainingsByCollaborator(ctx, owner.Email)
	if err != nil {
		t.Fatalf("ListTrainingsByCollaborator failed: %v", err)
	}
	if len(shared) != 1 || shared[0].ID != foreign.ID {
		t.Fatalf("expected shared training %s, got %#v", foreign.ID, shared)
	}

	ok, err := store.IsCollaborator(ctx, foreign.ID, owner.Email)
	if err != nil || !ok {
		t.Fatalf("expected collaborator, got %v (err %v)", ok, err)
	}
	if err := store.DeleteCollaborator(ctx, foreign.ID, owner.Email); err != nil {
		t.Fatalf("DeleteCollaborator failed: %v", err)
	}
	if err := store.DeleteCollaborator(ctx, foreign.ID, owner.Email); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if ok, _ := store.IsCollaborator(ctx, foreign.ID, owner.Email); ok {
		t.Errorf("collaborator still present after delete")
	}
}

func TestTrainings_UpdateAndTransition(t *testing.T) {
	harness := testfixtures.NewSQLHarness(t)
	store := harness.Store
	ctx := context.Background()
	owner, _ := harness.SeedAccount(t)
	training := harness.SeedTraining(t, testfixtures.NewTrainingFixture(owner.ID, testfixtures.WithMaxParticipants(20)))

	location := "Room B"
	start := testfixtures.ReferenceTime().Add(30 * 24 * time.Hour)
	training.Title = "Go for operators"
	training.Location = &location
	training.StartDate = &start
	training.MaxParticipants = nil
	training.UpdatedAt = training.CreatedAt.Add(time.Minute)

	updated, err := store.UpdateTraining(ctx, training)
	if err != nil {
		t.Fatalf("UpdateTraining failed: %v", err)
	}
	if updated.Title != "Go for operators" || updated.Location == nil || *updated.Location != location {
		t.Errorf("update not persisted: %#v", updated)
	}
	if updated.MaxParticipants != nil {
		t.Errorf("expected capacity cleared, got %d", *updated.MaxParticipants)
	}
	if updated.StartDate == nil || !updated.StartDate.Equal(start) {
		t.Errorf("expected start date %v, got %v", start, updated.StartDate)
	}

	now := training.UpdatedAt.Add(time.Hour)
	completed, err := store.TransitionTraining(ctx, training.ID, application.TrainingStatusActive, application.TrainingStatusCompleted, now)
	if err != nil {
		t.Fatalf("TransitionTraining failed: %v", err)
	}
	if completed.Status != application.TrainingStatusCompleted {
		t.Errorf("expected completed, got %s", completed.Status)
	}
	if _, err := store.TransitionTraining(ctx, training.ID, application.TrainingStatusActive, application.TrainingStatusCancelled, now); !errors.Is(err, persistence.ErrConflict) {
		t.Errorf("expected ErrConflict from stale status, got %v", err)
	}
	if _, err := store.TransitionTraining(ctx, "training-missing", application.TrainingStatusActive, application.TrainingStatusCancelled, now); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// An edit prepared from the active snapshot must not reopen the completed training.
	stale := updated
	stale.Title = "Go for operators, second edition"
	stale.UpdatedAt = now.Add(time.Minute)
	edited, err := store.UpdateTraining(ctx, stale)
	if err != nil {
		t.Fatalf("UpdateTraining after completion failed: %v", err)
	}
	if edited.Status != application.TrainingStatusCompleted || edited.Title != stale.Title {
		t.Errorf("expected completed training with new title, got %s %q", edited.Status, edited.Title)
	}
}

func TestRegistrations_Lifecycle(t *testing.T) {
	harness := testfixtures.NewSQLHarness(t)
	store := harness.Store
	ctx := context.Background()
	owner, _ := harness.SeedAccount(t)
	trainingFixture := testfixtures.NewTrainingFixture(owner.ID)
	harness.SeedTraining(t, trainingFixture)

	older, err := store.CreateRegistration(ctx, testfixtures.NewRegistrationFixture(trainingFixture, "lina@example.com"))
	if err != nil {
		t.Fatalf("CreateRegistration failed: %v", err)
	}
	newer, err := store.CreateRegistration(ctx, testfixtures.NewRegistrationFixture(trainingFixture, "omar@example.com"))
	if err != nil {
		t.Fatalf("CreateRegistration failed: %v", err)
	}

	list, err := store.ListRegistrations(ctx, trainingFixture.ID)
	if err != nil {
		t.Fatalf("ListRegistrations failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Fatalf("expected newest registration first, got %#v", list)
	}

	count, err := store.CountRegistrations(ctx, trainingFixture.ID)
	if err != nil || count != 2 {
		t.Fatalf("expected 2 registrations, got %d (err %v)", count, err)
	}
	exists, err := store.RegistrationEmailExists(ctx, trainingFixture.ID, "lina@example.com")
	if err != nil || !exists {
		t.Fatalf("expected email to exist, got %v (err %v)", exists, err)
	}
	if exists, _ := store.RegistrationEmailExists(ctx, trainingFixture.ID, "nobody@example.com"); exists {
		t.Errorf("unexpected registration for unknown email")
	}

	level := application.TrainingLevelIntermediate
	stamp := testfixtures.ReferenceTime().Add(96 * time.Hour)
	confirmed, err := store.UpdateRegistrationStatus(ctx, older.ID, "confirmed", &level, stamp)
	if err != nil {
		t.Fatalf("UpdateRegistrationStatus failed: %v", err)
	}
	if confirmed.Status != "confirmed" || confirmed.TrainingLevel == nil || *confirmed.TrainingLevel != level {
		t.Fatalf("unexpected registration %#v", confirmed)
	}

	attended, err := store.UpdateRegistrationStatus(ctx, older.ID, "attended", nil, stamp.Add(time.Hour))
	if err != nil {
		t.Fatalf("UpdateRegistrationStatus failed: %v", err)
	}
	if attended.TrainingLevel == nil || *attended.TrainingLevel != level {
		t.Errorf("expected level to be kept when omitted, got %v", attended.TrainingLevel)
	}

	bogus := application.TrainingLevel("expert")
	if _, err := store.UpdateRegistrationStatus(ctx, older.ID, "confirmed", &bogus, stamp); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Errorf("expected ErrConstraintViolation for unknown level, got %v", err)
	}
	if _, err := store.UpdateRegistrationStatus(ctx, "registration-missing", "confirmed", nil, stamp); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := store.DeleteRegistration(ctx, newer.ID); err != nil {
		t.Fatalf("DeleteRegistration failed: %v", err)
	}
	if _, err := store.GetRegistration(ctx, newer.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("registration still present: %v", err)
	}
}

func TestTrainings_DeleteCascades(t *testing.T) {
	harness := testfixtures.NewSQLHarness(t)
	store := harness.Store
	ctx := context.Background()
	owner, _ := harness.SeedAccount(t)
	trainingFixture := testfixtures.NewTrainingFixture(owner.ID)
	training := harness.SeedTraining(t, trainingFixture)

	registration, err := store.CreateRegistration(ctx, testfixtures.NewRegistrationFixture(trainingFixture, "sara@example.com"))
	if err != nil {
		t.Fatalf("CreateRegistration failed: %v", err)
	}
	if _, err := store.CreateCollaborator(ctx, collaborator(training, "helper@example.com", owner.Email)); err != nil {
		t.Fatalf("CreateCollaborator failed: %v", err)
	}

	if err := store.DeleteTraining(ctx, training.ID); err != nil {
		t.Fatalf("DeleteTraining failed: %v", err)
	}
	if _, err := store.GetTraining(ctx, training.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("training still present: %v", err)
	}
	if _, err := store.GetRegistration(ctx, registration.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("registration still present: %v", err)
	}
	collaborators, err := store.ListCollaborators(ctx, training.ID)
	if err != nil {
		t.Fatalf("ListCollaborators failed: %v", err)
	}
	if len(collaborators) != 0 {
		t.Errorf("expected collaborators removed, got %d", len(collaborators))
	}
	if err := store.DeleteTraining(ctx, training.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
