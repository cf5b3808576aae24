// main.go - Interactive terminal client: pick a portrait, choose a mode, read the report.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bosocmputer/biometric_scan_gemini/configs"
	"github.com/bosocmputer/biometric_scan_gemini/internal/ai"
	"github.com/bosocmputer/biometric_scan_gemini/internal/analysis"
	"github.com/bosocmputer/biometric_scan_gemini/internal/common"
	"github.com/bosocmputer/biometric_scan_gemini/internal/report"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
)

// scanTimeout covers a full candidate walk including backoff.
const scanTimeout = 3 * time.Minute

func main() {
	cfg := configs.Load()
	// Keep the form readable; only problems reach the terminal.
	common.ConfigureLogger("warn", cfg.LogFormat)

	svc, closeClients, err := analysis.FromConfig(context.Background(), cfg, nil, nil)
	if err != nil {
		fmt.Println(errorStyle.Render("Error: " + err.Error()))
		os.Exit(1)
	}
	defer closeClients()

	fmt.Println(titleStyle.Render("🧬 BIOMETRIC HERITAGE SCAN"))

	for {
		if !runScan(svc) {
			break
		}
	}

	fmt.Println(mutedStyle.Render("\nScan session closed."))
}

type scanChoices struct {
	imagePath string
	mode      string
	style     string
	language  string
}

func askChoices() (*scanChoices, error) {
	choices := &scanChoices{
		mode:     string(report.ModeHeritage),
		style:    string(report.StyleScientific),
		language: string(report.LangEnglish),
	}
	startDir, _ := os.Getwd()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewFilePicker().
				Title("Select a portrait").
				Description("A clear, front-facing photo works best").
				Picking(true).
				CurrentDirectory(startDir).
				ShowHidden(false).
				ShowSize(true).
				Height(12).
				AllowedTypes([]string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".bmp"}).
				Value(&choices.imagePath),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Analysis mode").
				Options(
					huh.NewOption("Heritage: historical figure or celebrity", string(report.ModeHeritage)),
					huh.NewOption("Past life: who you were before", string(report.ModePastLife)),
					huh.NewOption("Cyber archetype: your cyberpunk role", string(report.ModeCyberArchetype)),
				).
				Value(&choices.mode),
			huh.NewSelect[string]().
				Title("Tone").
				Options(
					huh.NewOption("Scientific", string(report.StyleScientific)),
					huh.NewOption("Roast", string(report.StyleRoast)),
				).
				Value(&choices.style),
			huh.NewSelect[string]().
				Title("Language").
				Options(
					huh.NewOption("English", string(report.LangEnglish)),
					huh.NewOption("Türkçe", string(report.LangTurkish)),
				).
				Value(&choices.language),
		),
	).WithTheme(huh.ThemeCatppuccin())

	if err := form.Run(); err != nil {
		return nil, err
	}
	return choices, nil
}

func runScan(svc *analysis.Service) bool {
	choices, err := askChoices()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false
		}
		fmt.Println(errorStyle.Render("Error: " + err.Error()))
		return false
	}

	data, err := os.ReadFile(choices.imagePath)
	if err != nil {
		fmt.Println(errorStyle.Render("Error: " + err.Error()))
		return askToContinue()
	}

	lang := report.ParseLanguage(choices.language)
	req := report.AnalysisRequest{
		Image:    data,
		Mode:     report.ParseMode(choices.mode),
		Style:    report.ParseStyle(choices.style),
		Language: lang,
	}

	var result *analysis.Result
	var analyzeErr error
	err = spinner.New().
		Title("🔬 Mapping facial landmarks...").
		Action(func() {
			ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
			defer cancel()
			result, analyzeErr = svc.Analyze(ctx, req)
		}).
		Run()
	if err != nil {
		fmt.Println(errorStyle.Render("Error: " + err.Error()))
		return askToContinue()
	}

	if analyzeErr != nil {
		fmt.Println(renderError(analyzeErr, lang))
		return askToContinue()
	}

	fmt.Println(renderResult(result, lang))
	return askToContinue()
}

func askToContinue() bool {
	var next string
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("What next?").
			Options(
				huh.NewOption("Scan another face", "another"),
				huh.NewOption("Exit", "exit"),
			).
			Value(&next),
	)).WithTheme(huh.ThemeCatppuccin()).Run()
	return err == nil && next == "another"
}

// errorMessage picks the localized text for err; raw provider detail is never shown.
func errorMessage(err error, lang report.Language) string {
	var analysisErr *ai.AnalysisError
	if errors.As(err, &analysisErr) {
		return analysisErr.Message
	}
	if errors.Is(err, analysis.ErrEmptyImage) {
		return "The selected file is empty."
	}
	return ai.Message(ai.ErrorUnknown, lang)
}
