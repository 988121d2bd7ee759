package sqlstore

import (
	"context"
	"database/sql"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
)

const noteColumns = `id, meeting_id, account_id, title, note_type, content, assignee_name, assignee_email, due_date, priority, status, created_at, updated_at`

// CreateNote inserts a meeting note.
func (s *Store) CreateNote(ctx context.Context, note application.Note) (application.Note, error) {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO meeting_notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		note.ID,
		note.MeetingID,
		note.AccountID,
		nullString(note.Title),
		string(note.Type),
		note.Content,
		nullString(note.AssigneeName),
		nullString(note.AssigneeEmail),
		nullTime(note.DueDate),
		string(note.Priority),
		nullNoteStatus(note.Status),
		formatTime(note.CreatedAt),
		formatTime(note.UpdatedAt),
	)
	if err != nil {
		return application.Note{}, err
	}
	return note, nil
}

// GetNote loads a note by id.
func (s *Store) GetNote(ctx context.Context, id string) (application.Note, error) {
	return scanNote(s.queryRow(ctx, s.db, `SELECT `+noteColumns+` FROM meeting_notes WHERE id = ?`, id))
}

// ListNotes returns the notes of a meeting in creation order.
func (s *Store) ListNotes(ctx context.Context, meetingID string) ([]application.Note, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT `+noteColumns+`
		FROM meeting_notes
		WHERE meeting_id = ?
		ORDER BY created_at ASC, id ASC`, meetingID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanNote)
}

// UpdateNote rewrites every mutable field of a note.
func (s *Store) UpdateNote(ctx context.Context, note application.Note) (application.Note, error) {
	return scanNote(s.queryRow(ctx, s.db, `
		UPDATE meeting_notes
		SET title = ?, note_type = ?, content = ?, assignee_name = ?, assignee_email = ?,
			due_date = ?, priority = ?, status = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+noteColumns,
		nullString(note.Title),
		string(note.Type),
		note.Content,
		nullString(note.AssigneeName),
		nullString(note.AssigneeEmail),
		nullTime(note.DueDate),
		string(note.Priority),
		nullNoteStatus(note.Status),
		formatTime(note.UpdatedAt),
		note.ID,
	))
}

// DeleteNote removes a note.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	result, err := s.exec(ctx, s.db, `DELETE FROM meeting_notes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func nullNoteStatus(status *application.NoteStatus) sql.NullString {
	if status == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*status), Valid: true}
}

func scanNote(row rowScanner) (application.Note, error) {
	var (
		note                                 application.Note
		title, assigneeName, assigneeEmail   sql.NullString
		dueDate, status                      sql.NullString
		noteType, priority, created, updated string
	)
	err := row.Scan(
		&note.ID,
		&note.MeetingID,
		&note.AccountID,
		&title,
		&noteType,
		&note.Content,
		&assigneeName,
		&assigneeEmail,
		&dueDate,
		&priority,
		&status,
		&created,
		&updated,
	)
	if err != nil {
		return application.Note{}, mapError(err)
	}
	note.Title = stringPtr(title)
	note.Type = application.NoteType(noteType)
	note.AssigneeName = stringPtr(assigneeName)
	note.AssigneeEmail = stringPtr(assigneeEmail)
	note.Priority = application.NotePriority(priority)
	if status.Valid {
		s := application.NoteStatus(status.String)
		note.Status = &s
	}
	if note.DueDate, err = parseNullTime(dueDate); err != nil {
		return application.Note{}, err
	}
	if note.CreatedAt, note.UpdatedAt, err = timestamps(created, updated); err != nil {
		return application.Note{}, err
	}
	return note, nil
}
