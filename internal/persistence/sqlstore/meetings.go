package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/persistence"
)

const meetingColumns = `id, account_id, name, description, password_hash, start_time, end_time, status, created_at, updated_at`

// CreateMeeting inserts a meeting.
func (s *Store) CreateMeeting(ctx context.Context, meeting application.Meeting) (application.Meeting, error) {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO meetings (`+meetingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meeting.ID,
		meeting.AccountID,
		meeting.Name,
		nullString(meeting.Description),
		meeting.PasswordHash,
		formatTime(meeting.StartTime),
		nullTime(meeting.EndTime),
		string(meeting.Status),
		formatTime(meeting.CreatedAt),
		formatTime(meeting.UpdatedAt),
	)
	if err != nil {
		return application.Meeting{}, err
	}
	return meeting, nil
}

// GetMeeting loads a meeting by id.
func (s *Store) GetMeeting(ctx context.Context, id string) (application.Meeting, error) {
	return scanMeeting(s.queryRow(ctx, s.db, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id))
}

// ListMeetingsByAccount returns the meetings of an account, most recent first.
func (s *Store) ListMeetingsByAccount(ctx context.Context, accountID string) ([]application.Meeting, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT `+meetingColumns+`
		FROM meetings
		WHERE account_id = ?
		ORDER BY start_time DESC, id ASC`, accountID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanMeeting)
}

// TransitionMeeting moves a meeting from one status to another in a single
// conditional statement. endTime, when set, replaces the stored end time.
func (s *Store) TransitionMeeting(ctx context.Context, id string, from, to application.MeetingStatus, endTime *time.Time, updatedAt time.Time) (application.Meeting, error) {
	meeting, err := scanMeeting(s.queryRow(ctx, s.db, `
		UPDATE meetings
		SET status = ?, end_time = COALESCE(?, end_time), updated_at = ?
		WHERE id = ? AND status = ?
		RETURNING `+meetingColumns,
		string(to), nullTime(endTime), formatTime(updatedAt), id, string(from),
	))
	if errors.Is(err, persistence.ErrNotFound) {
		return application.Meeting{}, s.resolveMiss(ctx, s.db, "meetings", id)
	}
	return meeting, err
}

// DeleteMeeting removes a meeting with its participants and notes in one transaction.
func (s *Store) DeleteMeeting(ctx context.Context, id string) error {
	return s.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, `DELETE FROM meeting_notes WHERE meeting_id = ?`, id); err != nil {
			return err
		}
		if _, err := s.exec(ctx, tx, `DELETE FROM participants WHERE meeting_id = ?`, id); err != nil {
			return err
		}
		result, err := s.exec(ctx, tx, `DELETE FROM meetings WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
}

func scanMeeting(row rowScanner) (application.Meeting, error) {
	var (
		meeting          application.Meeting
		description, end sql.NullString
		start, status    string
		created, updated string
	)
	err := row.Scan(
		&meeting.ID,
		&meeting.AccountID,
		&meeting.Name,
		&description,
		&meeting.PasswordHash,
		&start,
		&end,
		&status,
		&created,
		&updated,
	)
	if err != nil {
		return application.Meeting{}, mapError(err)
	}
	meeting.Description = stringPtr(description)
	meeting.Status = application.MeetingStatus(status)
	if meeting.StartTime, err = parseTime(start); err != nil {
		return application.Meeting{}, err
	}
	if meeting.EndTime, err = parseNullTime(end); err != nil {
		return application.Meeting{}, err
	}
	if meeting.CreatedAt, meeting.UpdatedAt, err = timestamps(created, updated); err != nil {
		return application.Meeting{}, err
	}
	return meeting, nil
}

const participantColumns = `id, meeting_id, account_id, name, email, join_time, speaking_count, last_spoke, status, created_at, updated_at`

// CreateParticipant inserts a participant.
func (s *Store) CreateParticipant(ctx context.Context, participant application.Participant) (application.Participant, error) {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO participants (`+participantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		participant.ID,
		participant.MeetingID,
		participant.AccountID,
		participant.Name,
		nullString(participant.Email),
		formatTime(participant.JoinTime),
		participant.SpeakingCount,
		nullTime(participant.LastSpoke),
		string(participant.Status),
		formatTime(participant.CreatedAt),
		formatTime(participant.UpdatedAt),
	)
	if err != nil {
		return application.Participant{}, err
	}
	return participant, nil
}

// GetParticipant loads a participant by id.
func (s *Store) GetParticipant(ctx context.Context, id string) (application.Participant, error) {
	return scanParticipant(s.queryRow(ctx, s.db, `SELECT `+participantColumns+` FROM participants WHERE id = ?`, id))
}

// ListParticipants returns the participants of a meeting by join time.
func (s *Store) ListParticipants(ctx context.Context, meetingID string) ([]application.Participant, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT `+participantColumns+`
		FROM participants
		WHERE meeting_id = ?
		ORDER BY join_time ASC, id ASC`, meetingID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanParticipant)
}

// IncrementSpeakingCount adds one speaking point atomically, so concurrent
// awards are never lost.
func (s *Store) IncrementSpeakingCount(ctx context.Context, id string, spokeAt time.Time) (application.Participant, error) {
	stamp := formatTime(spokeAt)
	return scanParticipant(s.queryRow(ctx, s.db, `
		UPDATE participants
		SET speaking_count = speaking_count + 1, last_spoke = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+participantColumns,
		stamp, stamp, id,
	))
}

// UpdateParticipantStatus sets the attendance status of a participant.
func (s *Store) UpdateParticipantStatus(ctx context.Context, id string, status application.ParticipantStatus, updatedAt time.Time) (application.Participant, error) {
	return scanParticipant(s.queryRow(ctx, s.db, `
		UPDATE participants
		SET status = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+participantColumns,
		string(status), formatTime(updatedAt), id,
	))
}

// DeleteParticipant removes a participant.
func (s *Store) DeleteParticipant(ctx context.Context, id string) error {
	result, err := s.exec(ctx, s.db, `DELETE FROM participants WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func scanParticipant(row rowScanner) (application.Participant, error) {
	var (
		p                application.Participant
		email, lastSpoke sql.NullString
		join, status     string
		created, updated string
	)
	err := row.Scan(
		&p.ID,
		&p.MeetingID,
		&p.AccountID,
		&p.Name,
		&email,
		&join,
		&p.SpeakingCount,
		&lastSpoke,
		&status,
		&created,
		&updated,
	)
	if err != nil {
		return application.Participant{}, mapError(err)
	}
	p.Email = stringPtr(email)
	p.Status = application.ParticipantStatus(status)
	if p.JoinTime, err = parseTime(join); err != nil {
		return application.Participant{}, err
	}
	if p.LastSpoke, err = parseNullTime(lastSpoke); err != nil {
		return application.Participant{}, err
	}
	if p.CreatedAt, p.UpdatedAt, err = timestamps(created, updated); err != nil {
		return application.Participant{}, err
	}
	return p, nil
}
