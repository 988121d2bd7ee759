package aggregate

import "github.com/kassemabbassi/meet-tracker-sub000/internal/application"

// LevelUnassigned labels registrations without a training level in a grouped view.
const LevelUnassigned = "unassigned"

var groupOrder = []application.TrainingLevel{
	application.TrainingLevelBeginner,
	application.TrainingLevelIntermediate,
	application.TrainingLevelAdvanced,
}

// RegistrationGroup holds the registrations sharing one training level.
type RegistrationGroup struct {
	Level         string
	Registrations []application.Registration
}

// RegistrationView is either a flat list or a partition by training level.
type RegistrationView struct {
	Grouped       bool
	Groups        []RegistrationGroup
	Registrations []application.Registration
}

// GroupRegistrations partitions the registrations of a completed training into beginner,
// intermediate and advanced groups, in that order. Registrations without a level are collected
// in a trailing unassigned group, which is omitted when empty. Trainings that are not completed
// get a flat view in the given order.
func GroupRegistrations(training application.Training, registrations []application.Registration) RegistrationView {
	if training.Status != application.TrainingStatusCompleted {
		flat := make([]application.Registration, len(registrations))
		copy(flat, registrations)
		return RegistrationView{Registrations: flat}
	}

	buckets := make(map[application.TrainingLevel][]application.Registration, len(groupOrder))
	unassigned := make([]application.Registration, 0)
	for _, r := range registrations {
		if r.TrainingLevel == nil || !knownLevel(*r.TrainingLevel) {
			unassigned = append(unassigned, r)
			continue
		}
		buckets[*r.TrainingLevel] = append(buckets[*r.TrainingLevel], r)
	}

	view := RegistrationView{Grouped: true, Groups: make([]RegistrationGroup, 0, len(groupOrder)+1)}
	for _, level := range groupOrder {
		members := buckets[level]
		if members == nil {
			members = []application.Registration{}
		}
		view.Groups = append(view.Groups, RegistrationGroup{Level: string(level), Registrations: members})
	}
	if len(unassigned) > 0 {
		view.Groups = append(view.Groups, RegistrationGroup{Level: LevelUnassigned, Registrations: unassigned})
	}
	return view
}

func knownLevel(level application.TrainingLevel) bool {
	for _, l := range groupOrder {
		if l == level {
			return true
		}
	}
	return false
}
