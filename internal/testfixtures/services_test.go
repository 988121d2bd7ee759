package testfixtures

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
)

func TestServiceFactoryMeetingFlow(t *testing.T) {
	harness := NewSQLHarness(t)
	factory := NewServiceFactory()
	services := factory.Services(harness.Store, ServicesOptions{})
	ctx := context.Background()

	account, err := services.Accounts.Register(ctx, application.RegisterAccountInput{
		Email:       "Host@Example.com",
		Username:    "host",
		Password:    "correct horse",
		DisplayName: "Host",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if account.ID != "id-1" || account.Email != "host@example.com" {
		t.Fatalf("unexpected account %#v", account)
	}

	login, err := services.Auth.Authenticate(ctx, application.AuthenticateParams{Email: "host@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	principal, err := services.Auth.ValidateSession(ctx, login.Session.Token)
	if err != nil {
		t.Fatalf("ValidateSession returned error: %v", err)
	}

	meeting, err := services.Meetings.CreateMeeting(ctx, application.CreateMeetingParams{
		Principal: principal,
		Input:     application.MeetingInput{Name: "Standup", Password: "s3cret"},
	})
	if err != nil {
		t.Fatalf("CreateMeeting returned error: %v", err)
	}
	if !meeting.StartTime.Equal(factory.Clock.Current()) {
		t.Fatalf("expected start time %v, got %v", factory.Clock.Current(), meeting.StartTime)
	}

	participant, err := services.Participants.AddParticipant(ctx, application.AddParticipantParams{
		Principal: principal,
		MeetingID: meeting.ID,
		Input:     application.ParticipantInput{Name: "Nour"},
	})
	if err != nil {
		t.Fatalf("AddParticipant returned error: %v", err)
	}

	factory.Clock.Advance(5 * time.Minute)
	for i := 0; i < 3; i++ {
		if participant, err = services.Participants.AwardSpeakingPoint(ctx, principal, participant.ID); err != nil {
			t.Fatalf("AwardSpeakingPoint returned error: %v", err)
		}
	}
	if participant.SpeakingCount != 3 || participant.LastSpoke == nil {
		t.Fatalf("expected three points with last spoke set, got %#v", participant)
	}

	if _, err := services.Meetings.EndMeeting(ctx, principal, meeting.ID); err != nil {
		t.Fatalf("EndMeeting returned error: %v", err)
	}
	if _, err := services.Participants.AwardSpeakingPoint(ctx, principal, participant.ID); !errors.Is(err, application.ErrMeetingNotActive) {
		t.Fatalf("expected ErrMeetingNotActive after end, got %v", err)
	}
}

func TestServiceFactoryTrainingFlow(t *testing.T) {
	harness := NewSQLHarness(t)
	factory := NewServiceFactory(WithIDGenerator(NewIDGenerator("tr")))
	services := factory.Services(harness.Store, ServicesOptions{Registrations: application.RegistrationOptions{UniqueEmail: true}})
	ctx := context.Background()

	owner, _ := harness.SeedAccount(t)
	colleague, _ := harness.SeedAccount(t)

	created, err := services.Trainings.CreateTraining(ctx, application.CreateTrainingParams{
		Principal:          owner.Principal(),
		Input:              application.TrainingInput{Title: "Public speaking"},
		CollaboratorEmails: []string{colleague.Email, "ghost@example.com"},
	})
	if err != nil {
		t.Fatalf("CreateTraining returned error: %v", err)
	}
	if len(created.Collaborators) != 1 || len(created.SkippedEmails) != 1 {
		t.Fatalf("expected one collaborator and one skipped email, got %#v", created)
	}

	if _, err := services.Trainings.GetTraining(ctx, colleague.Principal(), created.Training.ID); err != nil {
		t.Fatalf("collaborator should manage the training: %v", err)
	}

	_, err = services.Collaborators.AddCollaborators(ctx, application.AddCollaboratorsParams{
		Principal:  colleague.Principal(),
		TrainingID: created.Training.ID,
		Emails:     []string{owner.Email},
	})
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected the owner to be rejected as a collaborator, got %v", err)
	}
	collaborators, err := services.Collaborators.ListCollaborators(ctx, owner.Principal(), created.Training.ID)
	if err != nil || len(collaborators) != 1 {
		t.Fatalf("expected only the colleague as collaborator, got %#v %v", collaborators, err)
	}

	input := application.RegistrationInput{
		FirstName:          "Maya",
		LastName:           "Khoury",
		Email:              "maya@example.com",
		EducationSpecialty: "Design",
		EducationLevel:     2,
		MemberType:         application.MemberTypeActif,
	}
	if _, err := services.Registrations.Register(ctx, created.Training.ID, input); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := services.Registrations.Register(ctx, created.Training.ID, input); !errors.Is(err, application.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for duplicate email, got %v", err)
	}
}

func TestPlainHasher(t *testing.T) {
	hash, _ := PlainHasher{}.Hash("pw")
	if ok, _ := (PlainHasher{}).Verify("pw", hash); !ok {
		t.Fatal("expected hash to verify")
	}
	if ok, _ := (PlainHasher{}).Verify("pw", "pw"); ok {
		t.Fatal("unprefixed hash must not verify")
	}
}
