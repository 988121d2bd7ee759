package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
)

var base = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

func participant(id, name string, points int, joinedAfter time.Duration) application.Participant {
	return application.Participant{ID: id, Name: name, SpeakingCount: points, JoinTime: base.Add(joinedAfter)}
}

func ids(ps []application.Participant) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestParseSortKey(t *testing.T) {
	t.Parallel()

	cases := map[string]SortKey{
		"":               SortByPoints,
		"points":         SortByPoints,
		"speaking_count": SortByPoints,
		" Name ":         SortByName,
		"join_time":      SortByJoinTime,
	}
	for input, want := range cases {
		got, err := ParseSortKey(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseSortKey("age")
	require.ErrorIs(t, err, ErrUnknownSortKey)
}

func TestSortParticipants(t *testing.T) {
	t.Parallel()

	// p1 got 2 points, p2 got 1, p3 none.
	participants := []application.Participant{
		participant("p3", "Émile", 0, 2*time.Minute),
		participant("p1", "bo", 2, 0),
		participant("p2", "Ana", 1, time.Minute),
	}

	t.Run("points descending by default", func(t *testing.T) {
		assert.Equal(t, []string{"p1", "p2", "p3"}, ids(SortParticipants(participants, "")))
	})

	t.Run("name ignores case and accents", func(t *testing.T) {
		assert.Equal(t, []string{"p2", "p1", "p3"}, ids(SortParticipants(participants, SortByName)))
	})

	t.Run("join time ascending", func(t *testing.T) {
		assert.Equal(t, []string{"p1", "p2", "p3"}, ids(SortParticipants(participants, SortByJoinTime)))
	})

	t.Run("ties fall back to join time", func(t *testing.T) {
		tied := []application.Participant{
			participant("late", "Zed", 1, time.Hour),
			participant("early", "Amy", 1, 0),
		}
		assert.Equal(t, []string{"early", "late"}, ids(SortParticipants(tied, SortByPoints)))
	})

	t.Run("input is not modified", func(t *testing.T) {
		SortParticipants(participants, SortByPoints)
		assert.Equal(t, []string{"p3", "p1", "p2"}, ids(participants))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, SortParticipants(nil, SortByName))
	})
}

func TestComputeMeetingStats(t *testing.T) {
	t.Parallel()

	participants := []application.Participant{
		participant("p1", "A", 2, 0),
		participant("p2", "B", 1, 0),
		participant("p3", "C", 0, 0),
	}

	t.Run("active meeting measured to now", func(t *testing.T) {
		meeting := application.Meeting{StartTime: base, Status: application.MeetingStatusActive}
		stats := ComputeMeetingStats(meeting, participants, base.Add(45*time.Minute+30*time.Second))
		assert.Equal(t, MeetingStats{TotalParticipants: 3, ActiveSpeakers: 2, TotalPoints: 3, DurationMinutes: 45}, stats)
	})

	t.Run("ended meeting measured to end time", func(t *testing.T) {
		end := base.Add(90 * time.Minute)
		meeting := application.Meeting{StartTime: base, EndTime: &end, Status: application.MeetingStatusEnded}
		stats := ComputeMeetingStats(meeting, nil, base.Add(24*time.Hour))
		assert.Equal(t, 90, stats.DurationMinutes)
		assert.Zero(t, stats.TotalParticipants)
	})

	t.Run("clock behind start yields zero duration", func(t *testing.T) {
		meeting := application.Meeting{StartTime: base}
		assert.Zero(t, ComputeMeetingStats(meeting, participants, base.Add(-time.Minute)).DurationMinutes)
	})
}
