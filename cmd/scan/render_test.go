package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/bosocmputer/biometric_scan_gemini/internal/ai"
	"github.com/bosocmputer/biometric_scan_gemini/internal/analysis"
	"github.com/bosocmputer/biometric_scan_gemini/internal/report"
)

func TestBar(t *testing.T) {
	tests := map[report.Score]int{0: 0, 50: 10, 100: 20, 150: 20, -5: 0}
	for score, filled := range tests {
		got := bar(score)
		if strings.Count(got, "█") != filled || strings.Count(got, "░") != barWidth-filled {
			t.Errorf("bar(%d) = %q", score, got)
		}
	}
}

func TestRenderResultSimulatedBanner(t *testing.T) {
	rep := report.NewFallbackGenerator(nil).Generate(report.ModeHeritage, report.LangTurkish)
	out := renderResult(&analysis.Result{
		Report:    rep,
		Simulated: true,
		Notice:    ai.SimulationNotice(report.LangTurkish),
	}, report.LangTurkish)

	if !strings.Contains(out, "SİMÜLASYON") {
		t.Error("simulated result must show the simulation banner")
	}
	if !strings.Contains(out, rep.PrimaryMatch.Name) || !strings.Contains(out, "Karizma") {
		t.Error("report content missing")
	}
}

func TestErrorMessageHidesRawErrors(t *testing.T) {
	raw := errors.New("googleapi: Error 500: internal stack")
	if strings.Contains(errorMessage(raw, report.LangEnglish), "stack") {
		t.Error("raw error leaked")
	}
	analysisErr := ai.NewAnalysisError(ai.FailureRateLimited, report.LangTurkish, 4, raw)
	if errorMessage(analysisErr, report.LangTurkish) != analysisErr.Message {
		t.Error("analysis error should show its localized message")
	}
}
