package tui

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/medivoice/medivoice/internal/config"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// ConfigSection represents a configuration section
type ConfigSection string

const (
	SectionBackend       ConfigSection = "backend"
	SectionFinalize      ConfigSection = "finalize"
	SectionRecording     ConfigSection = "recording"
	SectionResults       ConfigSection = "results"
	SectionNotifications ConfigSection = "notifications"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Run starts the menu-based configuration editor on a copy of cfg.
func Run(existing *config.Config) (*ConfigureResult, error) {
	cfg := config.DefaultConfig()
	if existing != nil {
		copied := *existing
		cfg = &copied
	}

	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch section {
		case SectionSaveExit:
			if err := cfg.Validate(); err != nil {
				fmt.Println(StyleError.Render(err.Error()))
				if !pause() {
					return &ConfigureResult{Cancelled: true}, nil
				}
				continue
			}
			confirmed, err := showSummary(cfg)
			if err != nil {
				return &ConfigureResult{Cancelled: true}, nil
			}
			if confirmed {
				return &ConfigureResult{Config: cfg}, nil
			}

		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil

		case SectionBackend:
			_ = editBackend(cfg)
		case SectionFinalize:
			_ = editFinalize(cfg)
		case SectionRecording:
			_ = editRecording(cfg)
		case SectionResults:
			_ = editResults(cfg)
		case SectionNotifications:
			_ = editNotifications(cfg)
		}
	}
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(formatBackendLabel(cfg), SectionBackend),
		huh.NewOption(formatFinalizeLabel(cfg), SectionFinalize),
		huh.NewOption(formatRecordingLabel(cfg), SectionRecording),
		huh.NewOption(fmt.Sprintf("Results (recent=%d, paste=%s)", cfg.Results.RecentLimit, cfg.Results.Paste), SectionResults),
		huh.NewOption(formatNotificationsLabel(cfg), SectionNotifications),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}

func editBackend(cfg *config.Config) error {
	baseURL := cfg.Backend.BaseURL
	timeout := cfg.Backend.RequestTimeout.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Backend URL").
				Description("Base URL of the consultations API. "+config.EnvAPIURL+" overrides it.").
				Placeholder("https://api.example.com").
				Value(&baseURL).
				Validate(validateBaseURL),
			huh.NewInput().
				Title("Request timeout").
				Description("Per-request limit, e.g. 60s").
				Value(&timeout).
				Validate(validatePositiveDuration),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Backend.BaseURL = baseURL
	cfg.Backend.RequestTimeout = mustDuration(timeout)
	return nil
}

func editFinalize(cfg *config.Config) error {
	deadline := cfg.Finalize.Deadline.String()
	interval := cfg.Finalize.Interval.String()
	multiplier := strconv.FormatFloat(cfg.Finalize.Multiplier, 'f', -1, 64)
	maxInterval := cfg.Finalize.MaxInterval.String()
	strict := cfg.Finalize.StrictBody

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Processing deadline").
				Description("How long to wait for a transcript before giving up").
				Value(&deadline).
				Validate(validatePositiveDuration),
			huh.NewInput().
				Title("Poll interval").
				Description("Wait between checks while the backend is still processing").
				Value(&interval).
				Validate(validatePositiveDuration),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Backoff multiplier").
				Description("1 keeps the interval fixed").
				Value(&multiplier).
				Validate(validateMultiplier),
			huh.NewInput().
				Title("Maximum interval").
				Description("Upper bound when backing off").
				Value(&maxInterval).
				Validate(validatePositiveDuration),
			huh.NewConfirm().
				Title("Fail on unreadable responses?").
				Description("When off, an unreadable success response gives empty results").
				Value(&strict),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Finalize.Deadline = mustDuration(deadline)
	cfg.Finalize.Interval = mustDuration(interval)
	cfg.Finalize.Multiplier, _ = strconv.ParseFloat(multiplier, 64)
	cfg.Finalize.MaxInterval = mustDuration(maxInterval)
	if cfg.Finalize.MaxInterval < cfg.Finalize.Interval {
		cfg.Finalize.MaxInterval = cfg.Finalize.Interval
	}
	cfg.Finalize.StrictBody = strict
	return nil
}

func editRecording(cfg *config.Config) error {
	sampleRate := strconv.Itoa(cfg.Recording.SampleRate)
	channels := strconv.Itoa(cfg.Recording.Channels)
	device := cfg.Recording.Device
	timeout := cfg.Recording.Timeout.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Sample Rate (Hz)").
				Description("16000 is optimal for speech").
				Value(&sampleRate).
				Validate(validatePositiveInt),
			huh.NewSelect[string]().
				Title("Channels").
				Options(
					huh.NewOption("1 (Mono) - Recommended", "1"),
					huh.NewOption("2 (Stereo)", "2"),
				).
				Value(&channels),
			huh.NewInput().
				Title("PipeWire device").
				Description("Leave empty for the default microphone").
				Value(&device),
			huh.NewInput().
				Title("Maximum recording length").
				Description("Recording stops automatically after this, e.g. 60m").
				Value(&timeout).
				Validate(validatePositiveDuration),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Recording.SampleRate, _ = strconv.Atoi(sampleRate)
	cfg.Recording.Channels, _ = strconv.Atoi(channels)
	cfg.Recording.Device = device
	cfg.Recording.Timeout = mustDuration(timeout)
	return nil
}

func editResults(cfg *config.Config) error {
	limit := strconv.Itoa(cfg.Results.RecentLimit)
	mode := cfg.Results.Paste

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Recent consultations").
				Description("How many entries to show after a submission").
				Value(&limit).
				Validate(validatePositiveInt),
			huh.NewSelect[string]().
				Title("When a consultation is ready").
				Options(
					huh.NewOption("Do nothing", "off"),
					huh.NewOption("Copy summary to clipboard", "clipboard"),
					huh.NewOption("Type summary into focused window", "type"),
					huh.NewOption("Type, keep clipboard copy if typing fails", "fallback"),
				).
				Value(&mode),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}
	cfg.Results.RecentLimit, _ = strconv.Atoi(limit)
	cfg.Results.Paste = mode
	return nil
}

func showSummary(cfg *config.Config) (bool, error) {
	fmt.Println()
	fmt.Println(RenderConfigSummary(cfg))

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

func pause() bool {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Go back and fix it?").
				Affirmative("Back").
				Negative("Quit").
				Value(&ok),
		),
	).WithTheme(getTheme()).Run()
	return err == nil && ok
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func getTheme() *huh.Theme {
	lipgloss.SetHasDarkBackground(termenv.HasDarkBackground())

	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = t.Focused.Base.BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
