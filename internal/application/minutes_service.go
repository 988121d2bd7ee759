package application

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/mail"
)

// DeliveryKind distinguishes the full minutes from an assignee digest.
type DeliveryKind string

const (
	DeliveryFull     DeliveryKind = "full"
	DeliveryAssignee DeliveryKind = "assignee"
)

// Delivery records the outcome of sending minutes to one recipient.
type Delivery struct {
	Recipient string
	Kind      DeliveryKind
	MessageID string
	Error     string
}

// MinutesReport lists every attempted delivery.
type MinutesReport struct {
	MeetingID  string
	Deliveries []Delivery
}

// Failed returns the deliveries that did not succeed.
func (r MinutesReport) Failed() []Delivery {
	failed := make([]Delivery, 0)
	for _, d := range r.Deliveries {
		if d.Error != "" {
			failed = append(failed, d)
		}
	}
	return failed
}

// SendMinutesParams wraps a minutes dispatch request.
type SendMinutesParams struct {
	Principal       Principal
	MeetingID       string
	ExtraRecipients []string
}

// MinutesService emails meeting minutes to the owner and per-assignee action digests.
type MinutesService struct {
	meetings     MeetingRepository
	participants ParticipantRepository
	notes        NoteRepository
	accounts     AccountRepository
	sender       mail.Sender
	from         string
	now          func() time.Time
	logger       *slog.Logger
}

// NewMinutesService constructs a minutes service with the provided dependencies.
func NewMinutesService(meetings MeetingRepository, participants ParticipantRepository, notes NoteRepository, accounts AccountRepository, sender mail.Sender, from string, now func() time.Time, logger *slog.Logger) *MinutesService {
	if now == nil {
		now = time.Now
	}
	return &MinutesService{
		meetings:     meetings,
		participants: participants,
		notes:        notes,
		accounts:     accounts,
		sender:       sender,
		from:         from,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *MinutesService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MinutesService", operation, attrs...)
}

// SendMinutes sends one full email to the owner and extra recipients together, then one email per
// unique assignee holding only that assignee's action notes. Every recipient is attempted.
func (s *MinutesService) SendMinutes(ctx context.Context, params SendMinutesParams) (report MinutesReport, err error) {
	if s == nil {
		err = fmt.Errorf("MinutesService is nil")
		return
	}
	if s.meetings == nil || s.participants == nil || s.notes == nil || s.accounts == nil || s.sender == nil {
		err = fmt.Errorf("minutes dependencies not configured")
		return
	}

	logger := s.loggerWith(ctx, "SendMinutes", "principal_id", params.Principal.AccountID, "meeting_id", params.MeetingID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to send minutes", "minutes sent",
			"deliveries", len(report.Deliveries),
			"failed", len(report.Failed()),
		)
	}()

	extras := make([]string, 0, len(params.ExtraRecipients))
	vErr := &ValidationError{}
	for _, raw := range params.ExtraRecipients {
		email := normalizeEmail(raw)
		if email == "" {
			vErr.add("recipients", fmt.Sprintf("%q is not a valid email", strings.TrimSpace(raw)))
			continue
		}
		extras = append(extras, email)
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var meeting Meeting
	meeting, err = loadOwnedMeeting(ctx, s.meetings, params.Principal, params.MeetingID)
	if err != nil {
		return
	}

	var owner Account
	owner, err = s.accounts.GetAccount(ctx, meeting.AccountID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	var participants []Participant
	if participants, err = s.participants.ListParticipants(ctx, meeting.ID); err != nil {
		err = mapRepoError(err)
		return
	}
	var notes []Note
	if notes, err = s.notes.ListNotes(ctx, meeting.ID); err != nil {
		err = mapRepoError(err)
		return
	}

	report.MeetingID = meeting.ID

	full := minutesView{Meeting: meeting, Participants: participants, Notes: notes, GeneratedAt: s.now()}
	var body string
	body, err = renderMinutes(full)
	if err != nil {
		return
	}
	recipients := uniqueStrings(append([]string{strings.ToLower(owner.Email)}, extras...))
	report.Deliveries = append(report.Deliveries, s.deliver(ctx, logger, DeliveryFull, recipients, "Minutes: "+meeting.Name, body)...)

	for _, assignee := range groupActionsByAssignee(notes) {
		digest := minutesView{Meeting: meeting, Notes: assignee.notes, Assignee: assignee.name, GeneratedAt: s.now()}
		body, err = renderMinutes(digest)
		if err != nil {
			return
		}
		report.Deliveries = append(report.Deliveries, s.deliver(ctx, logger, DeliveryAssignee, []string{assignee.email}, "Your action items: "+meeting.Name, body)...)
	}
	return
}

// deliver sends one message to the recipients and reports a delivery per recipient.
func (s *MinutesService) deliver(ctx context.Context, logger *slog.Logger, kind DeliveryKind, recipients []string, subject, body string) []Delivery {
	id, sendErr := s.sender.Send(ctx, mail.Message{From: s.from, To: recipients, Subject: subject, HTML: body})
	deliveries := make([]Delivery, 0, len(recipients))
	for _, recipient := range recipients {
		d := Delivery{Recipient: recipient, Kind: kind, MessageID: id}
		if sendErr != nil {
			d.MessageID = ""
			d.Error = sendErr.Error()
		}
		deliveries = append(deliveries, d)
	}
	if sendErr != nil {
		logger.WarnContext(ctx, "minutes delivery failed", "kind", kind, "recipients", strings.Join(recipients, ", "), "error", sendErr)
	}
	return deliveries
}

type assigneeActions struct {
	email string
	name  string
	notes []Note
}

// groupActionsByAssignee collects action notes per assignee email, in order of first appearance.
func groupActionsByAssignee(notes []Note) []assigneeActions {
	index := make(map[string]int)
	groups := make([]assigneeActions, 0)
	for _, note := range notes {
		if note.Type != NoteTypeAction || note.AssigneeEmail == nil {
			continue
		}
		email := normalizeEmail(*note.AssigneeEmail)
		if email == "" {
			continue
		}
		pos, ok := index[email]
		if !ok {
			pos = len(groups)
			index[email] = pos
			name := email
			if note.AssigneeName != nil {
				name = *note.AssigneeName
			}
			groups = append(groups, assigneeActions{email: email, name: name})
		}
		groups[pos].notes = append(groups[pos].notes, note)
	}
	return groups
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

type minutesView struct {
	Meeting      Meeting
	Participants []Participant
	Notes        []Note
	Assignee     string
	GeneratedAt  time.Time
}

func (v minutesView) Duration() string {
	end := v.GeneratedAt
	if v.Meeting.EndTime != nil {
		end = *v.Meeting.EndTime
	}
	minutes := int(end.Sub(v.Meeting.StartTime).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%d min", minutes)
}

func (v minutesView) SortedParticipants() []Participant {
	sorted := append([]Participant(nil), v.Participants...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SpeakingCount > sorted[j].SpeakingCount
	})
	return sorted
}

var minutesTemplate = template.Must(template.New("minutes").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 UTC") },
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}).Parse(`<h1>{{.Meeting.Name}}</h1>
<p>Started {{date .Meeting.StartTime}} &middot; {{.Duration}}</p>
{{- if .Assignee}}
<p>Action items assigned to {{.Assignee}}</p>
{{- end}}
{{- with .SortedParticipants}}
<h2>Participants</h2>
<table><tr><th>Name</th><th>Speaking points</th></tr>
{{- range .}}
<tr><td>{{.Name}}</td><td>{{.SpeakingCount}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- with .Notes}}
<h2>Notes</h2>
<ul>
{{- range .}}
<li><strong>{{.Type}}</strong>{{with .Title}} {{deref .}}{{end}} ({{.Priority}}): {{.Content}}
{{- if .DueDate}} due {{date .DueDate}}{{end}}</li>
{{- end}}
</ul>
{{- end}}
`))

func renderMinutes(view minutesView) (string, error) {
	var buf bytes.Buffer
	if err := minutesTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render minutes: %w", err)
	}
	return buf.String(), nil
}
