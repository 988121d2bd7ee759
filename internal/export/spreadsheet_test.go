package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
)

func TestParticipantsSheetGolden(t *testing.T) {
	joined := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	spoke := joined.Add(10 * time.Minute)
	email := "tom@example.com"

	sheet := ParticipantsSheet([]application.Participant{
		{ID: "p1", Name: "Tom & <Jerry>", Email: &email, Status: application.ParticipantStatusPresent, SpeakingCount: 2, JoinTime: joined, LastSpoke: &spoke},
		{ID: "p2", Name: "Ana", Status: application.ParticipantStatusLeft, JoinTime: joined.Add(5 * time.Minute)},
	})

	var buf bytes.Buffer
	n, err := sheet.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "participants_sheet", buf.Bytes())
}

func TestSpreadsheetRejectsInvalidSheets(t *testing.T) {
	cases := map[string]struct {
		sheet Spreadsheet
		want  error
	}{
		"no rows":    {Spreadsheet{Headers: []string{"Name"}}, ErrNoRows},
		"no headers": {Spreadsheet{Rows: [][]string{{"x"}}}, ErrNoHeaders},
		"ragged row": {Spreadsheet{Headers: []string{"A", "B"}, Rows: [][]string{{"1", "2"}, {"3"}}}, ErrRaggedRow},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := tc.sheet.WriteTo(&buf)
			require.ErrorIs(t, err, tc.want)
			assert.Zero(t, n)
			assert.Zero(t, buf.Len())
		})
	}
}

func TestParticipantsSheetOfNothingIsRejected(t *testing.T) {
	var buf bytes.Buffer
	_, err := ParticipantsSheet(nil).WriteTo(&buf)
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestRegistrationsSheet(t *testing.T) {
	level := application.TrainingLevelIntermediate
	phone := "+216 20 000 000"
	sheet := RegistrationsSheet([]application.Registration{{
		FirstName:          "Lina",
		LastName:           "Haddad",
		Email:              "lina@example.com",
		Phone:              &phone,
		EducationSpecialty: "Informatique",
		EducationLevel:     3,
		MemberType:         application.MemberTypeActif,
		TrainingLevel:      &level,
		Status:             "accepted",
		RegisteredAt:       time.Date(2024, time.May, 1, 14, 30, 0, 0, time.UTC),
	}})

	require.NoError(t, sheet.Validate())
	assert.Equal(t, []string{
		"Lina", "Haddad", "lina@example.com", "+216 20 000 000", "Informatique", "3",
		"actif", "intermediate", "accepted", "2024-05-01 14:30",
	}, sheet.Rows[0])
	assert.Len(t, sheet.Headers, len(sheet.Rows[0]))
}

func TestFilenames(t *testing.T) {
	assert.Equal(t, "participants-m1.xls", ParticipantsFilename("m1"))
	assert.Equal(t, "registrations-t1.xls", RegistrationsFilename("t1"))
}
