package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/persistence"
)

const trainingColumns = `id, account_id, title, description, objectives, duration, location, start_date, end_date, max_participants, status, created_at, updated_at`

// CreateTraining inserts a training.
func (s *Store) CreateTraining(ctx context.Context, training application.Training) (application.Training, error) {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO trainings (`+trainingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		training.ID,
		training.AccountID,
		training.Title,
		nullString(training.Description),
		nullString(training.Objectives),
		nullString(training.Duration),
		nullString(training.Location),
		nullTime(training.StartDate),
		nullTime(training.EndDate),
		nullInt(training.MaxParticipants),
		string(training.Status),
		formatTime(training.CreatedAt),
		formatTime(training.UpdatedAt),
	)
	if err != nil {
		return application.Training{}, err
	}
	return training, nil
}

// GetTraining loads a training by id.
func (s *Store) GetTraining(ctx context.Context, id string) (application.Training, error) {
	return scanTraining(s.queryRow(ctx, s.db, `SELECT `+trainingColumns+` FROM trainings WHERE id = ?`, id))
}

// ListTrainingsByOwner returns the trainings created by an account, newest first.
func (s *Store) ListTrainingsByOwner(ctx context.Context, accountID string) ([]application.Training, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT `+trainingColumns+`
		FROM trainings
		WHERE account_id = ?
		ORDER BY created_at DESC, id ASC`, accountID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTraining)
}

// ListTrainingsByCollaborator returns the trainings an email collaborates on, newest first.
func (s *Store) ListTrainingsByCollaborator(ctx context.Context, email string) ([]application.Training, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT t.id, t.account_id, t.title, t.description, t.objectives, t.duration, t.location,
			t.start_date, t.end_date, t.max_participants, t.status, t.created_at, t.updated_at
		FROM trainings t
		JOIN training_collaborators c ON c.training_id = t.id
		WHERE c.email = ?
		ORDER BY t.created_at DESC, t.id ASC`, email)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTraining)
}

// UpdateTraining rewrites the descriptive fields of a training. Status changes go through TransitionTraining.
func (s *Store) UpdateTraining(ctx context.Context, training application.Training) (application.Training, error) {
	return scanTraining(s.queryRow(ctx, s.db, `
		UPDATE trainings
		SET title = ?, description = ?, objectives = ?, duration = ?, location = ?,
			start_date = ?, end_date = ?, max_participants = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+trainingColumns,
		training.Title,
		nullString(training.Description),
		nullString(training.Objectives),
		nullString(training.Duration),
		nullString(training.Location),
		nullTime(training.StartDate),
		nullTime(training.EndDate),
		nullInt(training.MaxParticipants),
		formatTime(training.UpdatedAt),
		training.ID,
	))
}

// TransitionTraining moves a training between statuses with a conditional update.
func (s *Store) TransitionTraining(ctx context.Context, id string, from, to application.TrainingStatus, updatedAt time.Time) (application.Training, error) {
	training, err := scanTraining(s.queryRow(ctx, s.db, `
		UPDATE trainings
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
		RETURNING `+trainingColumns,
		string(to), formatTime(updatedAt), id, string(from),
	))
	if errors.Is(err, persistence.ErrNotFound) {
		return application.Training{}, s.resolveMiss(ctx, s.db, "trainings", id)
	}
	return training, err
}

// DeleteTraining removes a training with its collaborators and registrations in one transaction.
func (s *Store) DeleteTraining(ctx context.Context, id string) error {
	return s.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, `DELETE FROM training_registrations WHERE training_id = ?`, id); err != nil {
			return err
		}
		if _, err := s.exec(ctx, tx, `DELETE FROM training_collaborators WHERE training_id = ?`, id); err != nil {
			return err
		}
		result, err := s.exec(ctx, tx, `DELETE FROM trainings WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireAffected(result)
	})
}

func scanTraining(row rowScanner) (application.Training, error) {
	var (
		t                                           application.Training
		description, objectives, duration, location sql.NullString
		startDate, endDate                          sql.NullString
		maxParticipants                             sql.NullInt64
		status, created, updated                    string
	)
	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.Title,
		&description,
		&objectives,
		&duration,
		&location,
		&startDate,
		&endDate,
		&maxParticipants,
		&status,
		&created,
		&updated,
	)
	if err != nil {
		return application.Training{}, mapError(err)
	}
	t.Description = stringPtr(description)
	t.Objectives = stringPtr(objectives)
	t.Duration = stringPtr(duration)
	t.Location = stringPtr(location)
	t.MaxParticipants = intPtr(maxParticipants)
	t.Status = application.TrainingStatus(status)
	if t.StartDate, err = parseNullTime(startDate); err != nil {
		return application.Training{}, err
	}
	if t.EndDate, err = parseNullTime(endDate); err != nil {
		return application.Training{}, err
	}
	if t.CreatedAt, t.UpdatedAt, err = timestamps(created, updated); err != nil {
		return application.Training{}, err
	}
	return t, nil
}

const collaboratorColumns = `id, training_id, email, added_by, added_at`

// CreateCollaborator inserts a collaborator; an existing (training, email) pair
// yields persistence.ErrDuplicate.
func (s *Store) CreateCollaborator(ctx context.Context, collaborator application.TrainingCollaborator) (application.TrainingCollaborator, error) {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO training_collaborators (`+collaboratorColumns+`)
		VALUES (?, ?, ?, ?, ?)`,
		collaborator.ID,
		collaborator.TrainingID,
		collaborator.Email,
		collaborator.AddedBy,
		formatTime(collaborator.AddedAt),
	)
	if err != nil {
		return application.TrainingCollaborator{}, err
	}
	return collaborator, nil
}

// ListCollaborators returns the collaborators of a training ordered by email.
func (s *Store) ListCollaborators(ctx context.Context, trainingID string) ([]application.TrainingCollaborator, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT `+collaboratorColumns+`
		FROM training_collaborators
		WHERE training_id = ?
		ORDER BY email ASC`, trainingID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCollaborator)
}

// IsCollaborator reports whether email collaborates on the training.
func (s *Store) IsCollaborator(ctx context.Context, trainingID, email string) (bool, error) {
	n, err := s.count(ctx, s.db, `SELECT COUNT(*) FROM training_collaborators WHERE training_id = ? AND email = ?`, trainingID, email)
	return n > 0, err
}

// DeleteCollaborator removes the (training, email) pair.
func (s *Store) DeleteCollaborator(ctx context.Context, trainingID, email string) error {
	result, err := s.exec(ctx, s.db, `DELETE FROM training_collaborators WHERE training_id = ? AND email = ?`, trainingID, email)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func scanCollaborator(row rowScanner) (application.TrainingCollaborator, error) {
	var (
		c       application.TrainingCollaborator
		addedAt string
	)
	if err := row.Scan(&c.ID, &c.TrainingID, &c.Email, &c.AddedBy, &addedAt); err != nil {
		return application.TrainingCollaborator{}, mapError(err)
	}
	var err error
	if c.AddedAt, err = parseTime(addedAt); err != nil {
		return application.TrainingCollaborator{}, err
	}
	return c, nil
}
