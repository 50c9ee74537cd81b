package report

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidInput marks request validation failures; callers map it to a 400.
var ErrInvalidInput = errors.New("invalid input")

// Title is the fixed report title.
const Title = "Comprehensive Health Analysis Report"

// HealthData holds the patient attributes collected upstream.
type HealthData struct {
	PatientID       string  `json:"patientId"`
	Age             float64 `json:"age"`
	Height          float64 `json:"height"` // cm
	Weight          float64 `json:"weight"` // kg
	BloodReportText string  `json:"bloodReportText,omitempty"`
}

// Score is one analysed category: a 0..10 score with its explanation.
type Score struct {
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// Analysis carries the five scored categories.
type Analysis struct {
	OverallHealthScore Score `json:"overallHealthScore"`
	CholesterolLevels  Score `json:"cholesterolLevels"`
	DiabetesRisk       Score `json:"diabetesRisk"`
	FattyLiverRisk     Score `json:"fattyLiverRisk"`
	HypertensionRisk   Score `json:"hypertensionRisk"`
}

// Category is a titled score in report order.
type Category struct {
	Key   string
	Title string
	Score
}

// Categories returns the scores in the order they are printed.
func (a Analysis) Categories() []Category {
	return []Category{
		{Key: "overallHealthScore", Title: "Overall Health Score", Score: a.OverallHealthScore},
		{Key: "cholesterolLevels", Title: "Cholesterol Levels", Score: a.CholesterolLevels},
		{Key: "diabetesRisk", Title: "Diabetes Risk", Score: a.DiabetesRisk},
		{Key: "fattyLiverRisk", Title: "Fatty Liver Risk", Score: a.FattyLiverRisk},
		{Key: "hypertensionRisk", Title: "Hypertension Risk", Score: a.HypertensionRisk},
	}
}

// Request is the body of a report generation call. Narrative, when set,
// is used instead of asking the configured NarrativeSource. SourceText
// falls back to HealthData.BloodReportText.
type Request struct {
	HealthData HealthData `json:"healthData"`
	Analysis   Analysis   `json:"analysis"`
	Narrative  string     `json:"narrative,omitempty"`
	SourceText string     `json:"sourceText,omitempty"`
}

// Validate checks the request and wraps every failure in ErrInvalidInput.
func (r Request) Validate() error {
	var problems []string
	if strings.TrimSpace(r.HealthData.PatientID) == "" {
		problems = append(problems, "healthData.patientId is required")
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"age", r.HealthData.Age},
		{"height", r.HealthData.Height},
		{"weight", r.HealthData.Weight},
	} {
		if f.value < 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			problems = append(problems, fmt.Sprintf("healthData.%s must be a non-negative number", f.name))
		}
	}
	for _, c := range r.Analysis.Categories() {
		if c.Score.Score < 0 || c.Score.Score > 10 || math.IsNaN(c.Score.Score) {
			problems = append(problems, fmt.Sprintf("analysis.%s.score must be between 0 and 10", c.Key))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
}

// BMI is weight / (height in metres)^2, or 0 when height is unknown.
func (r Request) BMI() float64 {
	h := r.HealthData.Height / 100
	if h <= 0 {
		return 0
	}
	return r.HealthData.Weight / (h * h)
}

func (r Request) sourceText() string {
	if strings.TrimSpace(r.SourceText) != "" {
		return r.SourceText
	}
	return r.HealthData.BloodReportText
}

// Bindings exposes the request to the report template.
func (r Request) Bindings(now time.Time, narrative string) map[string]any {
	categories := make([]any, 0, 5)
	for _, c := range r.Analysis.Categories() {
		categories = append(categories, map[string]any{
			"key":         c.Key,
			"title":       c.Title,
			"score":       c.Score.Score,
			"explanation": c.Explanation,
		})
	}
	return map[string]any{
		"title":       Title,
		"generatedOn": now.Format("1/2/2006"),
		"patientId":   r.HealthData.PatientID,
		"age":         r.HealthData.Age,
		"height":      r.HealthData.Height,
		"weight":      r.HealthData.Weight,
		"bmi":         strconv.FormatFloat(r.BMI(), 'f', 1, 64),
		"categories":  categories,
		"narrative":   narrative,
		"sourceText":  r.sourceText(),
	}
}
