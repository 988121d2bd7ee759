package export

import (
	"strconv"
	"time"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
)

const timestampLayout = "2006-01-02 15:04"

// ParticipantsFilename returns the download name for a meeting's participant sheet.
func ParticipantsFilename(meetingID string) string {
	return "participants-" + meetingID + ".xls"
}

// RegistrationsFilename returns the download name for a training's registration sheet.
func RegistrationsFilename(trainingID string) string {
	return "registrations-" + trainingID + ".xls"
}

// ParticipantsSheet lays out participants in the given order.
func ParticipantsSheet(participants []application.Participant) Spreadsheet {
	sheet := Spreadsheet{
		Name:    "Participants",
		Headers: []string{"Name", "Email", "Status", "Speaking points", "Joined at", "Last spoke"},
		Rows:    make([][]string, 0, len(participants)),
	}
	for _, p := range participants {
		sheet.Rows = append(sheet.Rows, []string{
			p.Name,
			deref(p.Email),
			string(p.Status),
			strconv.Itoa(p.SpeakingCount),
			formatTime(&p.JoinTime),
			formatTime(p.LastSpoke),
		})
	}
	return sheet
}

// RegistrationsSheet lays out training registrations in the given order.
func RegistrationsSheet(registrations []application.Registration) Spreadsheet {
	sheet := Spreadsheet{
		Name: "Registrations",
		Headers: []string{
			"First name", "Last name", "Email", "Phone", "Education specialty", "Education level",
			"Member type", "Training level", "Status", "Registered at",
		},
		Rows: make([][]string, 0, len(registrations)),
	}
	for _, r := range registrations {
		level := ""
		if r.TrainingLevel != nil {
			level = string(*r.TrainingLevel)
		}
		sheet.Rows = append(sheet.Rows, []string{
			r.FirstName,
			r.LastName,
			r.Email,
			deref(r.Phone),
			r.EducationSpecialty,
			strconv.Itoa(r.EducationLevel),
			string(r.MemberType),
			level,
			r.Status,
			formatTime(&r.RegisteredAt),
		})
	}
	return sheet
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}
