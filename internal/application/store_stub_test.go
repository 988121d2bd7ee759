package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/persistence"
)

// memoryStore implements every repository interface over maps for service tests.
type memoryStore struct {
	mu            sync.Mutex
	accounts      map[string]AccountCredentials
	sessions      map[string]Session
	meetings      map[string]Meeting
	participants  map[string]Participant
	notes         map[string]Note
	trainings     map[string]Training
	collaborators map[string]TrainingCollaborator
	registrations map[string]Registration
	failWith      error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts:      make(map[string]AccountCredentials),
		sessions:      make(map[string]Session),
		meetings:      make(map[string]Meeting),
		participants:  make(map[string]Participant),
		notes:         make(map[string]Note),
		trainings:     make(map[string]Training),
		collaborators: make(map[string]TrainingCollaborator),
		registrations: make(map[string]Registration),
	}
}

func (m *memoryStore) CreateAccount(_ context.Context, creds AccountCredentials) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Account.Email == creds.Account.Email || existing.Account.Username == creds.Account.Username {
			return Account{}, persistence.ErrDuplicate
		}
	}
	m.accounts[creds.Account.ID] = creds
	return creds.Account, nil
}

func (m *memoryStore) GetAccount(_ context.Context, id string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	creds, ok := m.accounts[id]
	if !ok {
		return Account{}, persistence.ErrNotFound
	}
	return creds.Account, nil
}

func (m *memoryStore) GetAccountCredentialsByEmail(_ context.Context, email string) (AccountCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, creds := range m.accounts {
		if creds.Account.Email == email {
			return creds, nil
		}
	}
	return AccountCredentials{}, persistence.ErrNotFound
}

func (m *memoryStore) UpdatePasswordHash(_ context.Context, accountID, hash string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	creds, ok := m.accounts[accountID]
	if !ok {
		return persistence.ErrNotFound
	}
	creds.PasswordHash = hash
	creds.Account.UpdatedAt = updatedAt
	m.accounts[accountID] = creds
	return nil
}

func (m *memoryStore) CreateSession(_ context.Context, session Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.Token] = session
	return session, nil
}

func (m *memoryStore) GetSession(_ context.Context, token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return Session{}, m.failWith
	}
	session, ok := m.sessions[token]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (m *memoryStore) UpdateSession(_ context.Context, session Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, existing := range m.sessions {
		if existing.ID == session.ID {
			delete(m.sessions, token)
		}
	}
	m.sessions[session.Token] = session
	return session, nil
}

func (m *memoryStore) RevokeSession(_ context.Context, token string, revokedAt time.Time) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	session.RevokedAt = &revokedAt
	m.sessions[token] = session
	return session, nil
}

func (m *memoryStore) DeleteExpiredSessions(_ context.Context, reference time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, session := range m.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(m.sessions, token)
		}
	}
	return nil
}

func (m *memoryStore) CreateMeeting(_ context.Context, meeting Meeting) (Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return Meeting{}, m.failWith
	}
	m.meetings[meeting.ID] = meeting
	return meeting, nil
}

func (m *memoryStore) GetMeeting(_ context.Context, id string) (Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meeting, ok := m.meetings[id]
	if !ok {
		return Meeting{}, persistence.ErrNotFound
	}
	return meeting, nil
}

func (m *memoryStore) ListMeetingsByAccount(_ context.Context, accountID string) ([]Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Meeting, 0)
	for _, meeting := range m.meetings {
		if meeting.AccountID == accountID {
			result = append(result, meeting)
		}
	}
	return result, nil
}

func (m *memoryStore) TransitionMeeting(_ context.Context, id string, from, to MeetingStatus, endTime *time.Time, updatedAt time.Time) (Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meeting, ok := m.meetings[id]
	if !ok {
		return Meeting{}, persistence.ErrNotFound
	}
	if meeting.Status != from {
		return Meeting{}, persistence.ErrConflict
	}
	meeting.Status = to
	if endTime != nil {
		meeting.EndTime = endTime
	}
	meeting.UpdatedAt = updatedAt
	m.meetings[id] = meeting
	return meeting, nil
}

func (m *memoryStore) DeleteMeeting(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.meetings[id]; !ok {
		return persistence.ErrNotFound
	}
	for pid, p := range m.participants {
		if p.MeetingID == id {
			delete(m.participants, pid)
		}
	}
	for nid, n := range m.notes {
		if n.MeetingID == id {
			delete(m.notes, nid)
		}
	}
	delete(m.meetings, id)
	return nil
}

func (m *memoryStore) CreateParticipant(_ context.Context, participant Participant) (Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants[participant.ID] = participant
	return participant, nil
}

func (m *memoryStore) GetParticipant(_ context.Context, id string) (Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	participant, ok := m.participants[id]
	if !ok {
		return Participant{}, persistence.ErrNotFound
	}
	return participant, nil
}

func (m *memoryStore) ListParticipants(_ context.Context, meetingID string) ([]Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Participant, 0)
	for _, p := range m.participants {
		if p.MeetingID == meetingID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].JoinTime.Equal(result[j].JoinTime) {
			return result[i].ID < result[j].ID
		}
		return result[i].JoinTime.Before(result[j].JoinTime)
	})
	return result, nil
}

func (m *memoryStore) IncrementSpeakingCount(_ context.Context, id string, spokeAt time.Time) (Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	participant, ok := m.participants[id]
	if !ok {
		return Participant{}, persistence.ErrNotFound
	}
	participant.SpeakingCount++
	participant.LastSpoke = &spokeAt
	participant.UpdatedAt = spokeAt
	m.participants[id] = participant
	return participant, nil
}

func (m *memoryStore) UpdateParticipantStatus(_ context.Context, id string, status ParticipantStatus, updatedAt time.Time) (Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	participant, ok := m.participants[id]
	if !ok {
		return Participant{}, persistence.ErrNotFound
	}
	participant.Status = status
	participant.UpdatedAt = updatedAt
	m.participants[id] = participant
	return participant, nil
}

func (m *memoryStore) DeleteParticipant(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.participants[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.participants, id)
	return nil
}

func (m *memoryStore) CreateNote(_ context.Context, note Note) (Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[note.ID] = note
	return note, nil
}

func (m *memoryStore) GetNote(_ context.Context, id string) (Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	note, ok := m.notes[id]
	if !ok {
		return Note{}, persistence.ErrNotFound
	}
	return note, nil
}

func (m *memoryStore) ListNotes(_ context.Context, meetingID string) ([]Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Note, 0)
	for _, n := range m.notes {
		if n.MeetingID == meetingID {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *memoryStore) UpdateNote(_ context.Context, note Note) (Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[note.ID]; !ok {
		return Note{}, persistence.ErrNotFound
	}
	m.notes[note.ID] = note
	return note, nil
}

func (m *memoryStore) DeleteNote(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.notes, id)
	return nil
}

func (m *memoryStore) CreateTraining(_ context.Context, training Training) (Training, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainings[training.ID] = training
	return training, nil
}

func (m *memoryStore) GetTraining(_ context.Context, id string) (Training, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	training, ok := m.trainings[id]
	if !ok {
		return Training{}, persistence.ErrNotFound
	}
	return training, nil
}

func (m *memoryStore) ListTrainingsByOwner(_ context.Context, accountID string) ([]Training, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Training, 0)
	for _, t := range m.trainings {
		if t.AccountID == accountID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *memoryStore) ListTrainingsByCollaborator(_ context.Context, email string) ([]Training, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Training, 0)
	for _, c := range m.collaborators {
		if c.Email == email {
			if t, ok := m.trainings[c.TrainingID]; ok {
				result = append(result, t)
			}
		}
	}
	return result, nil
}

func (m *memoryStore) UpdateTraining(_ context.Context, training Training) (Training, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.trainings[training.ID]
	if !ok {
		return Training{}, persistence.ErrNotFound
	}
	training.Status = existing.Status
	m.trainings[training.ID] = training
	return training, nil
}

func (m *memoryStore) TransitionTraining(_ context.Context, id string, from, to TrainingStatus, updatedAt time.Time) (Training, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	training, ok := m.trainings[id]
	if !ok {
		return Training{}, persistence.ErrNotFound
	}
	if training.Status != from {
		return Training{}, persistence.ErrConflict
	}
	training.Status = to
	training.UpdatedAt = updatedAt
	m.trainings[id] = training
	return training, nil
}

func (m *memoryStore) DeleteTraining(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trainings[id]; !ok {
		return persistence.ErrNotFound
	}
	for cid, c := range m.collaborators {
		if c.TrainingID == id {
			delete(m.collaborators, cid)
		}
	}
	for rid, r := range m.registrations {
		if r.TrainingID == id {
			delete(m.registrations, rid)
		}
	}
	delete(m.trainings, id)
	return nil
}

func (m *memoryStore) CreateCollaborator(_ context.Context, collaborator TrainingCollaborator) (TrainingCollaborator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.collaborators {
		if existing.TrainingID == collaborator.TrainingID && existing.Email == collaborator.Email {
			return TrainingCollaborator{}, persistence.ErrDuplicate
		}
	}
	m.collaborators[collaborator.ID] = collaborator
	return collaborator, nil
}

func (m *memoryStore) ListCollaborators(_ context.Context, trainingID string) ([]TrainingCollaborator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]TrainingCollaborator, 0)
	for _, c := range m.collaborators {
		if c.TrainingID == trainingID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Email < result[j].Email })
	return result, nil
}

func (m *memoryStore) IsCollaborator(_ context.Context, trainingID, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.collaborators {
		if c.TrainingID == trainingID && c.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) DeleteCollaborator(_ context.Context, trainingID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.collaborators {
		if c.TrainingID == trainingID && c.Email == email {
			delete(m.collaborators, id)
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (m *memoryStore) CreateRegistration(_ context.Context, registration Registration) (Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registrations[registration.ID] = registration
	return registration, nil
}

func (m *memoryStore) GetRegistration(_ context.Context, id string) (Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	registration, ok := m.registrations[id]
	if !ok {
		return Registration{}, persistence.ErrNotFound
	}
	return registration, nil
}

func (m *memoryStore) ListRegistrations(_ context.Context, trainingID string) ([]Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Registration, 0)
	for _, r := range m.registrations {
		if r.TrainingID == trainingID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RegisteredAt.After(result[j].RegisteredAt) })
	return result, nil
}

func (m *memoryStore) CountRegistrations(_ context.Context, trainingID string) (int, error) {
	list, _ := m.ListRegistrations(context.Background(), trainingID)
	return len(list), nil
}

func (m *memoryStore) RegistrationEmailExists(_ context.Context, trainingID, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.registrations {
		if r.TrainingID == trainingID && r.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) UpdateRegistrationStatus(_ context.Context, id, status string, level *TrainingLevel, updatedAt time.Time) (Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	registration, ok := m.registrations[id]
	if !ok {
		return Registration{}, persistence.ErrNotFound
	}
	registration.Status = status
	if level != nil {
		registration.TrainingLevel = level
	}
	registration.UpdatedAt = updatedAt
	m.registrations[id] = registration
	return registration, nil
}

func (m *memoryStore) DeleteRegistration(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.registrations[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.registrations, id)
	return nil
}

// seedAccount stores an account directly, bypassing hashing.
func (m *memoryStore) seedAccount(id, email string) Account {
	account := Account{ID: id, Email: email, Username: strings.Split(email, "@")[0], DisplayName: id}
	m.mu.Lock()
	m.accounts[id] = AccountCredentials{Account: account, PasswordHash: fakeHash("password")}
	m.mu.Unlock()
	return account
}

// fakeHasher is a cheap deterministic PasswordHasher for service tests.
type fakeHasher struct {
	failHash bool
}

func fakeHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return "fake$" + hex.EncodeToString(sum[:])
}

func (h fakeHasher) Hash(password string) (string, error) {
	if h.failHash {
		return "", errors.New("hash backend failure")
	}
	if password == "" {
		return "", errors.New("empty password")
	}
	return fakeHash(password), nil
}

func (h fakeHasher) Verify(password, hash string) (bool, error) {
	if !strings.HasPrefix(hash, "fake$") {
		return false, fmt.Errorf("malformed hash")
	}
	return fakeHash(password) == hash, nil
}

// sequence returns an id generator yielding prefix-1, prefix-2, ...
func sequence(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// steppingClock returns a time source that advances by step on each call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := current
		current = current.Add(step)
		return now
	}
}

// countingLimiter allows max attempts per key until Reset.
type countingLimiter struct {
	mu       sync.Mutex
	max      int
	attempts map[string]int
	resets   int
}

func newCountingLimiter(max int) *countingLimiter {
	return &countingLimiter{max: max, attempts: make(map[string]int)}
}

func (l *countingLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts[key]++
	return l.attempts[key] <= l.max, nil
}

func (l *countingLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
	l.resets++
	return nil
}

var referenceTime = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
