package db

import (
	"fmt"

	"github.com/jakechorley/admissions-allocator/pkg/core/model"
)

// ApplicantRecord represents a stored applicant record
type ApplicantRecord struct {
	ID               string  `yaml:"id"`
	NISN             string  `yaml:"nisn"`
	FullName         string  `yaml:"fullName"`
	Program          string  `yaml:"program"`
	Math             float64 `yaml:"math"`
	Indonesian       float64 `yaml:"indonesian"`
	English          float64 `yaml:"english"`
	Science          float64 `yaml:"science"`
	AcademicLevel    string  `yaml:"academicLevel,omitempty"`
	NonAcademicLevel string  `yaml:"nonAcademicLevel,omitempty"`
	CertificateLevel string  `yaml:"certificateLevel,omitempty"`
	Accreditation    string  `yaml:"accreditation,omitempty"`
	Status           string  `yaml:"status,omitempty"` // empty if no status was ever persisted
}

// QuotaRecord represents a stored per-program quota
type QuotaRecord struct {
	Program   string `yaml:"program"`
	Seats     int    `yaml:"seats"`
	UpdatedAt string `yaml:"updatedAt,omitempty"` // RFC3339
}

// StatusChange is an audit record written whenever a persisted status changes
type StatusChange struct {
	ID          string `yaml:"id"`
	ApplicantID string `yaml:"applicantID"`
	FromStatus  string `yaml:"fromStatus"`
	ToStatus    string `yaml:"toStatus"`
	RunID       string `yaml:"runID,omitempty"` // empty for manual changes
	ChangedAt   string `yaml:"changedAt"`       // RFC3339
}

// ToApplicant converts a stored record into the engine's applicant model.
// The stored status string is mapped through model.ParseStatus.
func (r ApplicantRecord) ToApplicant() (model.Applicant, error) {
	var status model.Status
	if r.Status != "" {
		parsed, err := model.ParseStatus(r.Status)
		if err != nil {
			return model.Applicant{}, fmt.Errorf("applicant %s: %w", r.ID, err)
		}
		status = parsed
	}

	return model.Applicant{
		ID:       r.ID,
		NISN:     r.NISN,
		FullName: r.FullName,
		Program:  r.Program,
		Scores: model.SubjectScores{
			Math:       r.Math,
			Indonesian: r.Indonesian,
			English:    r.English,
			Science:    r.Science,
		},
		Achievements: model.Achievements{
			Academic:    model.AchievementLevel(r.AcademicLevel),
			NonAcademic: model.AchievementLevel(r.NonAcademicLevel),
			Certificate: model.AchievementLevel(r.CertificateLevel),
		},
		Accreditation:   model.Accreditation(r.Accreditation),
		PersistedStatus: status,
	}, nil
}

// ToApplicants converts a batch of stored records, failing on the first malformed one
func ToApplicants(records []ApplicantRecord) ([]model.Applicant, error) {
	applicants := make([]model.Applicant, 0, len(records))
	for _, r := range records {
		a, err := r.ToApplicant()
		if err != nil {
			return nil, err
		}
		applicants = append(applicants, a)
	}
	return applicants, nil
}

// QuotaMap converts quota records into a program -> seats map
func QuotaMap(records []QuotaRecord) map[string]int {
	quotas := make(map[string]int, len(records))
	for _, r := range records {
		quotas[r.Program] = r.Seats
	}
	return quotas
}
