package allocator

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/jakechorley/admissions-allocator/pkg/core/model"
)

// achievementPoints maps an achievement level to the points it adds per category
var achievementPoints = map[model.AchievementLevel]int64{
	model.LevelNone:          0,
	model.LevelSchool:        5,
	model.LevelDistrict:      10,
	model.LevelRegency:       15,
	model.LevelProvince:      20,
	model.LevelNational:      25,
	model.LevelInternational: 30,
}

var accreditationPoints = map[model.Accreditation]int64{
	model.AccreditationA:            10,
	model.AccreditationB:            5,
	model.AccreditationC:            0,
	model.AccreditationUnaccredited: 0,
}

var validate = validator.New()

// ComputeScore returns the composite score of an applicant rounded to 2 decimal places:
// the mean of the four subject scores plus achievement points plus accreditation points.
// Ranges are not validated here; see ValidateApplicant. A non-finite subject score yields 0.
func ComputeScore(a model.Applicant) float64 {
	for _, v := range []float64{a.Scores.Math, a.Scores.Indonesian, a.Scores.English, a.Scores.Science} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
	}

	subjects := decimal.NewFromFloat(a.Scores.Math).
		Add(decimal.NewFromFloat(a.Scores.Indonesian)).
		Add(decimal.NewFromFloat(a.Scores.English)).
		Add(decimal.NewFromFloat(a.Scores.Science))
	average := subjects.Div(decimal.NewFromInt(4))

	bonus := achievementPoints[a.Achievements.Academic] +
		achievementPoints[a.Achievements.NonAcademic] +
		achievementPoints[a.Achievements.Certificate] +
		accreditationPoints[a.Accreditation]

	score, _ := average.Add(decimal.NewFromInt(bonus)).Round(2).Float64()
	return score
}

// ValidateApplicant checks the inputs ComputeScore depends on
func ValidateApplicant(a model.Applicant) error {
	scores := map[string]float64{
		"math":       a.Scores.Math,
		"indonesian": a.Scores.Indonesian,
		"english":    a.Scores.English,
		"science":    a.Scores.Science,
	}
	for _, field := range []string{"math", "indonesian", "english", "science"} {
		value := scores[field]
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return &model.ValidationError{Subject: a.ID, Field: field, Reason: "score must be a finite number"}
		}
	}

	if err := validate.Struct(a); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &model.ValidationError{
				Subject: a.ID,
				Field:   strings.ToLower(fe.Field()),
				Reason:  describeFieldError(fe),
			}
		}
		return fmt.Errorf("failed to validate applicant %s: %w", a.ID, err)
	}

	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "max":
		return fmt.Sprintf("must be between 0 and 100, got %v", fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	}
	return fmt.Sprintf("failed %s check", fe.Tag())
}

func roundScore(v float64) float64 {
	rounded, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return rounded
}
