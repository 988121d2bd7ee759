// Package aggregate derives presentation views from lists already loaded by the services:
// participant ordering, registration grouping and meeting statistics.
package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
)

// SortKey selects the ordering applied to participants.
type SortKey string

const (
	// SortByPoints orders by speaking count, highest first.
	SortByPoints SortKey = "points"
	// SortByName orders by display name.
	SortByName SortKey = "name"
	// SortByJoinTime orders by join time, earliest first.
	SortByJoinTime SortKey = "join_time"
)

// ErrUnknownSortKey indicates the requested ordering is not supported.
var ErrUnknownSortKey = errors.New("aggregate: unknown sort key")

// ParseSortKey resolves a query value to a SortKey. An empty value selects SortByPoints.
func ParseSortKey(value string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(SortByPoints), "speaking_count":
		return SortByPoints, nil
	case string(SortByName):
		return SortByName, nil
	case string(SortByJoinTime), "join":
		return SortByJoinTime, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, value)
	}
}

// SortParticipants returns a sorted copy of participants. The input slice is not modified.
// Ties fall back to join time and then id so the order is stable across requests.
func SortParticipants(participants []application.Participant, key SortKey) []application.Participant {
	sorted := make([]application.Participant, len(participants))
	copy(sorted, participants)

	var less func(a, b application.Participant) int
	switch key {
	case SortByName:
		collator := collate.New(language.Und, collate.IgnoreCase)
		less = func(a, b application.Participant) int {
			return collator.CompareString(a.Name, b.Name)
		}
	case SortByJoinTime:
		less = func(a, b application.Participant) int {
			return a.JoinTime.Compare(b.JoinTime)
		}
	default:
		less = func(a, b application.Participant) int {
			return b.SpeakingCount - a.SpeakingCount
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if c := less(sorted[i], sorted[j]); c != 0 {
			return c < 0
		}
		if c := sorted[i].JoinTime.Compare(sorted[j].JoinTime); c != 0 {
			return c < 0
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// MeetingStats summarises attendance for a meeting.
type MeetingStats struct {
	TotalParticipants int `json:"total_participants"`
	ActiveSpeakers    int `json:"active_speakers"`
	TotalPoints       int `json:"total_points"`
	DurationMinutes   int `json:"duration_minutes"`
}

// ComputeMeetingStats counts participants and speaking points and measures the meeting duration.
// Ended meetings are measured up to their end time, others up to now.
func ComputeMeetingStats(meeting application.Meeting, participants []application.Participant, now time.Time) MeetingStats {
	stats := MeetingStats{TotalParticipants: len(participants)}
	for _, p := range participants {
		if p.SpeakingCount > 0 {
			stats.ActiveSpeakers++
		}
		stats.TotalPoints += p.SpeakingCount
	}

	end := now
	if meeting.EndTime != nil {
		end = *meeting.EndTime
	}
	if !meeting.StartTime.IsZero() && end.After(meeting.StartTime) {
		stats.DurationMinutes = int(end.Sub(meeting.StartTime) / time.Minute)
	}
	return stats
}
