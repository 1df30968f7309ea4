package insights

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/carbocredit/backend/internal/models"
)

const sampleWindow = 30

// EmissionSource provides the recent reports the heuristics run over.
type EmissionSource interface {
	RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.EmissionReport, error)
}

type Service struct {
	emissions EmissionSource
}

func NewService(emissions EmissionSource) *Service {
	return &Service{emissions: emissions}
}

// PredictedPoint is one day of the emission forecast.
type PredictedPoint struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// Prediction is a seven-day forward estimate assuming a modest reduction
// against the user's recent average.
type Prediction struct {
	Points  []PredictedPoint `json:"points"`
	Message string           `json:"message,omitempty"`
}

// Predictions projects the user's recent daily average forward one week,
// discounted 5% to reflect expected improvement.
func (s *Service) Predictions(ctx context.Context, userID uuid.UUID, now time.Time) (*Prediction, error) {
	reports, err := s.emissions.RecentByUser(ctx, userID, sampleWindow)
	if err != nil {
		return nil, err
	}
	points := make([]PredictedPoint, 0, 7)
	if len(reports) == 0 {
		for i := 1; i <= 7; i++ {
			points = append(points, PredictedPoint{Date: now.AddDate(0, 0, i).Format("2006-01-02")})
		}
		return &Prediction{Points: points, Message: "no emission history yet; report emissions to unlock predictions"}, nil
	}

	var total float64
	for _, r := range reports {
		total += r.Amount
	}
	projected := total / float64(len(reports)) * 0.95
	for i := 1; i <= 7; i++ {
		points = append(points, PredictedPoint{
			Date:   now.AddDate(0, 0, i).Format("2006-01-02"),
			Amount: math.Round(projected*100) / 100,
		})
	}
	return &Prediction{Points: points}, nil
}

var recommendationsByCategory = map[string][]string{
	models.CategoryTransport: {
		"Switch short trips to public transport or cycling",
		"Combine errands into fewer journeys",
		"Consider carpooling for regular commutes",
	},
	models.CategoryEnergy: {
		"Audit standby power consumption in your building",
		"Shift heavy usage to off-peak renewable windows",
		"Upgrade to LED lighting where still pending",
	},
	models.CategoryFood: {
		"Prioritise seasonal, locally produced ingredients",
		"Reduce red meat portions a few days per week",
		"Plan meals to cut food waste",
	},
	models.CategoryIndustry: {
		"Review process heat recovery opportunities",
		"Schedule equipment maintenance to keep efficiency up",
		"Track supplier emission factors for procurement",
	},
}

var defaultRecommendations = []string{
	"Report emissions regularly to build a baseline",
	"Focus on your largest category first",
	"Offset residual emissions through verified credits",
}

// Recommendations returns tips keyed off the user's most recent report
// category, falling back to general guidance.
func (s *Service) Recommendations(ctx context.Context, userID uuid.UUID) ([]string, error) {
	reports, err := s.emissions.RecentByUser(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(reports) > 0 {
		if tips, ok := recommendationsByCategory[reports[0].Category]; ok {
			return tips, nil
		}
	}
	return defaultRecommendations, nil
}

// Anomaly flags a report that deviates strongly from the user's recent mean.
type Anomaly struct {
	ReportID uuid.UUID `json:"report_id"`
	Amount   float64   `json:"amount"`
	Category string    `json:"category"`
	ZScore   float64   `json:"z_score"`
}

// AnomalyReport carries the flagged outliers, or a message when the sample
// is too small to score.
type AnomalyReport struct {
	Anomalies []Anomaly `json:"anomalies"`
	Message   string    `json:"message,omitempty"`
}

// Anomalies scores the user's recent reports with a z-test over the sample
// mean and flags anything beyond two standard deviations.
func (s *Service) Anomalies(ctx context.Context, userID uuid.UUID) (*AnomalyReport, error) {
	reports, err := s.emissions.RecentByUser(ctx, userID, sampleWindow)
	if err != nil {
		return nil, err
	}
	if len(reports) < 7 {
		return &AnomalyReport{
			Anomalies: []Anomaly{},
			Message:   "not enough history to detect anomalies; at least 7 reports are required",
		}, nil
	}

	var sum float64
	for _, r := range reports {
		sum += r.Amount
	}
	mean := sum / float64(len(reports))

	var variance float64
	for _, r := range reports {
		d := r.Amount - mean
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(len(reports)))
	if stddev == 0 {
		return &AnomalyReport{Anomalies: []Anomaly{}}, nil
	}

	anomalies := []Anomaly{}
	for _, r := range reports {
		z := (r.Amount - mean) / stddev
		if math.Abs(z) > 2 {
			anomalies = append(anomalies, Anomaly{
				ReportID: r.ID,
				Amount:   r.Amount,
				Category: r.Category,
				ZScore:   math.Round(z*100) / 100,
			})
		}
	}
	return &AnomalyReport{Anomalies: anomalies}, nil
}
