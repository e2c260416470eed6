package advice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/amanvermaa01/will-it-rain-on-my-parade-NASA-2025/internal/analysis"
)

// fakeCompleter returns a canned reply and records the prompt it saw.
type fakeCompleter struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func testPayloads() (*analysis.AnalysisResult, *analysis.ForecastResult) {
	historical := &analysis.AnalysisResult{
		Temperature: &analysis.TemperatureStats{AverageTemp: 23.8, DataPoints: 29},
	}
	forecast := &analysis.ForecastResult{
		Forecast: []analysis.ForecastPoint{
			{Date: "2024-07-15", PredictedTemperatureC: 24.1},
		},
	}
	return historical, forecast
}

var testCoord = analysis.Coordinate{Latitude: 40.7, Longitude: -74.0}

func TestRecommendParsesCleanJSON(t *testing.T) {
	completer := &fakeCompleter{reply: `{
		"summary": "Warm and mostly dry.",
		"detailed_forecast": "Typical mid-July conditions with low rain chances.",
		"precautions": ["Carry water", "Use sunscreen"],
		"confidence_level": "high"
	}`}
	advisor := NewAdvisor(completer)

	historical, forecast := testPayloads()
	rec, err := advisor.Recommend(context.Background(), testCoord, "2024-07-15", historical, forecast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Summary != "Warm and mostly dry." {
		t.Errorf("summary: got %q", rec.Summary)
	}
	if len(rec.Precautions) != 2 {
		t.Errorf("precautions: got %v", rec.Precautions)
	}
	if rec.ConfidenceLevel != "high" {
		t.Errorf("confidence: got %q", rec.ConfidenceLevel)
	}

	// The prompt carries the computed payloads and the request context.
	for _, fragment := range []string{"23.8", "2024-07-15", "40.7", "-74"} {
		if !strings.Contains(completer.prompt, fragment) {
			t.Errorf("prompt missing %q", fragment)
		}
	}
}

func TestRecommendExtractsEmbeddedJSON(t *testing.T) {
	completer := &fakeCompleter{reply: "Here is the analysis:\n" +
		`{"summary": "Mild.", "detailed_forecast": "Calm day.", "precautions": [], "confidence_level": "medium"}` +
		"\nLet me know if you need more."}
	advisor := NewAdvisor(completer)

	historical, forecast := testPayloads()
	rec, err := advisor.Recommend(context.Background(), testCoord, "2024-07-15", historical, forecast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Summary != "Mild." {
		t.Errorf("summary: got %q", rec.Summary)
	}
	if rec.ConfidenceLevel != "medium" {
		t.Errorf("confidence: got %q", rec.ConfidenceLevel)
	}
}

func TestRecommendUnparseableReply(t *testing.T) {
	completer := &fakeCompleter{reply: "It will probably be nice out."}
	advisor := NewAdvisor(completer)

	historical, forecast := testPayloads()
	rec, err := advisor.Recommend(context.Background(), testCoord, "2024-07-15", historical, forecast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.DetailedForecast != "It will probably be nice out." {
		t.Errorf("detailed_forecast should carry the raw reply, got %q", rec.DetailedForecast)
	}
	if rec.ConfidenceLevel != "low" {
		t.Errorf("confidence: got %q", rec.ConfidenceLevel)
	}
}

func TestRecommendCompleterFailureFallsBack(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("api key not set")}
	advisor := NewAdvisor(completer)

	historical, forecast := testPayloads()
	rec, err := advisor.Recommend(context.Background(), testCoord, "2024-07-15", historical, forecast)
	if err != nil {
		t.Fatalf("completer failure must degrade, not error: %v", err)
	}
	if rec.Summary != "Unable to generate guidance at this time." {
		t.Errorf("summary: got %q", rec.Summary)
	}
	if rec.ConfidenceLevel != "low" {
		t.Errorf("confidence: got %q", rec.ConfidenceLevel)
	}
}

func TestRecommendFillsMissingKeys(t *testing.T) {
	completer := &fakeCompleter{reply: `{"summary": "Fine.", "detailed_forecast": "No surprises."}`}
	advisor := NewAdvisor(completer)

	historical, forecast := testPayloads()
	rec, err := advisor.Recommend(context.Background(), testCoord, "2024-07-15", historical, forecast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Precautions == nil {
		t.Error("precautions must be an empty list, not null")
	}
	if rec.ConfidenceLevel != "low" {
		t.Errorf("missing confidence must default to low, got %q", rec.ConfidenceLevel)
	}
}
