package model

import (
	"fmt"
	"strings"
)

// Status is the admission status of an applicant. It is the single canonical
// representation used by the engine, the record stores and the exporters.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusWaitlisted Status = "waitlisted"
	StatusRejected   Status = "rejected"
)

// statusLabels are the localized labels written by the exporters
var statusLabels = map[Status]string{
	StatusPending:    "Menunggu",
	StatusApproved:   "Diterima",
	StatusWaitlisted: "Cadangan",
	StatusRejected:   "Tidak Diterima",
}

// Label returns the localized label for the status
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return statusLabels[StatusPending]
}

// IsOverride reports whether a persisted status is an explicit administrative decision.
// Pending (or absent) is not a decision.
func (s Status) IsOverride() bool {
	return s == StatusApproved || s == StatusWaitlisted || s == StatusRejected
}

// ParseStatus maps any stored or user supplied status string to a Status.
// An empty string is treated as pending. Localized labels and common aliases are accepted.
func ParseStatus(raw string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch normalized {
	case "", "pending", "menunggu":
		return StatusPending, nil
	case "approved", "accepted", "diterima":
		return StatusApproved, nil
	case "waitlisted", "waitlist", "reserve", "cadangan":
		return StatusWaitlisted, nil
	case "rejected", "tidak diterima", "ditolak":
		return StatusRejected, nil
	}
	return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", raw)}
}

// AchievementLevel is the highest level at which an applicant won an achievement
type AchievementLevel string

const (
	LevelNone          AchievementLevel = "none"
	LevelSchool        AchievementLevel = "school"
	LevelDistrict      AchievementLevel = "district"
	LevelRegency       AchievementLevel = "regency"
	LevelProvince      AchievementLevel = "province"
	LevelNational      AchievementLevel = "national"
	LevelInternational AchievementLevel = "international"
)

// Accreditation is the accreditation grade of the applicant's previous school
type Accreditation string

const (
	AccreditationA            Accreditation = "A"
	AccreditationB            Accreditation = "B"
	AccreditationC            Accreditation = "C"
	AccreditationUnaccredited Accreditation = "unaccredited"
)

// Program is an academic or vocational track applicants choose
type Program struct {
	Code string
	Name string
}

// SubjectScores holds the four raw subject scores (each 0-100)
type SubjectScores struct {
	Math       float64 `validate:"min=0,max=100"`
	Indonesian float64 `validate:"min=0,max=100"`
	English    float64 `validate:"min=0,max=100"`
	Science    float64 `validate:"min=0,max=100"`
}

// Achievements holds the achievement level per category
type Achievements struct {
	Academic    AchievementLevel `validate:"omitempty,oneof=none school district regency province national international"`
	NonAcademic AchievementLevel `validate:"omitempty,oneof=none school district regency province national international"`
	Certificate AchievementLevel `validate:"omitempty,oneof=none school district regency province national international"`
}

// Applicant is one registered applicant with the inputs needed for ranking
type Applicant struct {
	ID            string        `validate:"required"`
	NISN          string
	FullName      string
	Program       string
	Scores        SubjectScores
	Achievements  Achievements
	Accreditation Accreditation `validate:"omitempty,oneof=A B C unaccredited"`

	// PersistedStatus is the status last set by an administrator or a bulk apply.
	// Empty means no status has been persisted yet.
	PersistedStatus Status
}
