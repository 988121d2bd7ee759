package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
)

const registrationColumns = `id, training_id, first_name, last_name, email, phone, education_specialty, education_level, member_type, training_level, registration_date, status, notes, created_at, updated_at`

// CreateRegistration inserts a registration.
func (s *Store) CreateRegistration(ctx context.Context, r application.Registration) (application.Registration, error) {
	_, err := s.exec(ctx, s.db, `
		INSERT INTO training_registrations (`+registrationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.TrainingID,
		r.FirstName,
		r.LastName,
		r.Email,
		nullString(r.Phone),
		r.EducationSpecialty,
		r.EducationLevel,
		string(r.MemberType),
		nullLevel(r.TrainingLevel),
		formatTime(r.RegisteredAt),
		r.Status,
		nullString(r.Notes),
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
	)
	if err != nil {
		return application.Registration{}, err
	}
	return r, nil
}

// GetRegistration loads a registration by id.
func (s *Store) GetRegistration(ctx context.Context, id string) (application.Registration, error) {
	return scanRegistration(s.queryRow(ctx, s.db, `SELECT `+registrationColumns+` FROM training_registrations WHERE id = ?`, id))
}

// ListRegistrations returns the registrations of a training, newest first.
func (s *Store) ListRegistrations(ctx context.Context, trainingID string) ([]application.Registration, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT `+registrationColumns+`
		FROM training_registrations
		WHERE training_id = ?
		ORDER BY registration_date DESC, id ASC`, trainingID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanRegistration)
}

// CountRegistrations returns how many registrations a training has.
func (s *Store) CountRegistrations(ctx context.Context, trainingID string) (int, error) {
	return s.count(ctx, s.db, `SELECT COUNT(*) FROM training_registrations WHERE training_id = ?`, trainingID)
}

// RegistrationEmailExists reports whether email already registered for the training.
func (s *Store) RegistrationEmailExists(ctx context.Context, trainingID, email string) (bool, error) {
	n, err := s.count(ctx, s.db, `SELECT COUNT(*) FROM training_registrations WHERE training_id = ? AND email = ?`, trainingID, email)
	return n > 0, err
}

// UpdateRegistrationStatus sets the status and, when level is non-nil, the training level.
func (s *Store) UpdateRegistrationStatus(ctx context.Context, id, status string, level *application.TrainingLevel, updatedAt time.Time) (application.Registration, error) {
	return scanRegistration(s.queryRow(ctx, s.db, `
		UPDATE training_registrations
		SET status = ?, training_level = COALESCE(?, training_level), updated_at = ?
		WHERE id = ?
		RETURNING `+registrationColumns,
		status, nullLevel(level), formatTime(updatedAt), id,
	))
}

// DeleteRegistration removes a registration.
func (s *Store) DeleteRegistration(ctx context.Context, id string) error {
	result, err := s.exec(ctx, s.db, `DELETE FROM training_registrations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func nullLevel(level *application.TrainingLevel) sql.NullString {
	if level == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*level), Valid: true}
}

func scanRegistration(row rowScanner) (application.Registration, error) {
	var (
		r                      application.Registration
		phone, level, notes    sql.NullString
		memberType, registered string
		created, updated       string
	)
	err := row.Scan(
		&r.ID,
		&r.TrainingID,
		&r.FirstName,
		&r.LastName,
		&r.Email,
		&phone,
		&r.EducationSpecialty,
		&r.EducationLevel,
		&memberType,
		&level,
		&registered,
		&r.Status,
		&notes,
		&created,
		&updated,
	)
	if err != nil {
		return application.Registration{}, mapError(err)
	}
	r.Phone = stringPtr(phone)
	r.Notes = stringPtr(notes)
	r.MemberType = application.MemberType(memberType)
	if level.Valid {
		l := application.TrainingLevel(level.String)
		r.TrainingLevel = &l
	}
	if r.RegisteredAt, err = parseTime(registered); err != nil {
		return application.Registration{}, err
	}
	if r.CreatedAt, r.UpdatedAt, err = timestamps(created, updated); err != nil {
		return application.Registration{}, err
	}
	return r, nil
}
