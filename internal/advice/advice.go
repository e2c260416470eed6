// Package advice generates model-assisted weather guidance from the
// computed analysis and forecast payloads. The language model is an
// optional collaborator: failures degrade to a canned low-confidence
// fallback instead of failing the request.
package advice

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/analysis"
)

// Completer produces a text completion for a prompt. Implemented by the
// OpenRouter-backed client in production and by fakes in tests.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const promptTemplate = `You are an expert meteorologist and weather forecaster. Analyze the following weather data and generate a JSON object with keys: summary (string), detailed_forecast (string), precautions (array of strings), confidence_level (high|medium|low).

HISTORICAL WEATHER DATA:
%s

FORECAST WEATHER DATA:
%s

LOCATION: Latitude: %g, Longitude: %g

DATE OF INTEREST: %s

Provide the response strictly as a JSON object. Avoid additional commentary.
`

// Advisor implements analysis.Advisor over a chat completion model.
type Advisor struct {
	completer Completer
}

// NewAdvisor creates a new Advisor.
func NewAdvisor(completer Completer) *Advisor {
	return &Advisor{completer: completer}
}

// Recommend builds the guidance prompt from the computed payloads and
// parses the model's JSON reply.
func (a *Advisor) Recommend(ctx context.Context, coord analysis.Coordinate, date string, historical *analysis.AnalysisResult, forecast *analysis.ForecastResult) (*analysis.Recommendation, error) {
	histJSON, err := json.MarshalIndent(historical, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding historical payload: %w", err)
	}
	fcJSON, err := json.MarshalIndent(forecast, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding forecast payload: %w", err)
	}

	prompt := fmt.Sprintf(promptTemplate, histJSON, fcJSON, coord.Latitude, coord.Longitude, date)

	reply, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		log.Printf("advice: completion failed: %v", err)
		return fallback(), nil
	}
	return parseReply(reply), nil
}

// parseReply decodes the model output, tolerating prose around the JSON
// object and missing keys.
func parseReply(reply string) *analysis.Recommendation {
	var rec analysis.Recommendation
	if err := json.Unmarshal([]byte(reply), &rec); err != nil {
		start := strings.Index(reply, "{")
		end := strings.LastIndex(reply, "}")
		if start < 0 || end <= start || json.Unmarshal([]byte(reply[start:end+1]), &rec) != nil {
			return &analysis.Recommendation{
				Summary:          "Unable to parse model response.",
				DetailedForecast: reply,
				Precautions:      []string{"Refer to other weather services."},
				ConfidenceLevel:  "low",
			}
		}
	}
	if rec.Precautions == nil {
		rec.Precautions = []string{}
	}
	if rec.ConfidenceLevel == "" {
		rec.ConfidenceLevel = "low"
	}
	return &rec
}

func fallback() *analysis.Recommendation {
	return &analysis.Recommendation{
		Summary:          "Unable to generate guidance at this time.",
		DetailedForecast: "There was an error processing the weather data. Please try again later.",
		Precautions:      []string{"Consider checking other weather sources for now."},
		ConfidenceLevel:  "low",
	}
}
