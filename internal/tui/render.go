package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/medivoice/medivoice/internal/config"
	"github.com/medivoice/medivoice/internal/consult"
)

const dateLayout = "02/01/2006 15:04"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(dateLayout)
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return StyleSubtle.Render(placeholder)
	}
	return s
}

// RenderDetails shows one finished consultation.
func RenderDetails(d consult.Details, width int) string {
	body := lipgloss.NewStyle().Width(wrapWidth(width))

	var b strings.Builder
	b.WriteString(StyleHeader.Render(orPlaceholder(d.DisplayName, "Untitled consultation")))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s   %s %s\n\n",
		StyleLabel.Render("ID:"), d.ID,
		StyleLabel.Render("Date:"), formatDate(d.CreatedAt))

	b.WriteString(StyleHighlight.Render("Transcript"))
	b.WriteString("\n")
	b.WriteString(body.Render(orPlaceholder(d.Transcript, "No transcript available")))
	b.WriteString("\n\n")
	b.WriteString(StyleHighlight.Render("Summary"))
	b.WriteString("\n")
	b.WriteString(body.Render(orPlaceholder(d.Summary, "No summary available")))
	return b.String()
}

func wrapWidth(width int) int {
	if width <= 0 || width > 100 {
		return 100
	}
	return width
}

// RenderList shows consultations one per line, newest as the backend orders them.
func RenderList(items []consult.Summary) string {
	if len(items) == 0 {
		return StyleMuted.Render("No consultations yet.")
	}

	idWidth := 2
	for _, it := range items {
		idWidth = max(idWidth, len(it.ID))
	}

	var rows []string
	header := fmt.Sprintf("%-*s  %-16s  %s", idWidth, "ID", "DATE", "NAME")
	rows = append(rows, StyleLabel.Render(header))
	for _, it := range items {
		row := fmt.Sprintf("%-*s  %-16s  %s", idWidth, it.ID, formatDate(it.CreatedAt), orPlaceholder(it.DisplayName, "(untitled)"))
		if it.Status != "" {
			row += "  " + StyleMuted.Render("["+it.Status+"]")
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

// RenderProfile shows the account and its usage counters side by side.
func RenderProfile(p consult.Profile, s consult.Stats) string {
	account := strings.Join([]string{
		StyleHighlight.Render("Account"),
		fmt.Sprintf("%s %s", StyleLabel.Render("Name:"), orPlaceholder(p.Name, "-")),
		fmt.Sprintf("%s %s", StyleLabel.Render("Email:"), orPlaceholder(p.Email, "-")),
		fmt.Sprintf("%s %s", StyleLabel.Render("Specialty:"), orPlaceholder(p.Specialty, "-")),
		fmt.Sprintf("%s %s", StyleLabel.Render("Plan:"), orPlaceholder(p.Plan, "-")),
	}, "\n")

	usage := strings.Join([]string{
		StyleHighlight.Render("Usage"),
		fmt.Sprintf("%s %d", StyleLabel.Render("Consultations:"), s.TotalConsults),
		fmt.Sprintf("%s %d", StyleLabel.Render("Transcriptions:"), s.TotalTranscriptions),
		fmt.Sprintf("%s %s", StyleLabel.Render("Time saved:"), formatHours(s.TimeSaved)),
	}, "\n")

	return lipgloss.JoinHorizontal(lipgloss.Top, StyleBox.Render(account), " ", StyleBox.Render(usage))
}

func formatHours(h float64) string {
	if h == float64(int(h)) {
		return fmt.Sprintf("%dh", int(h))
	}
	return fmt.Sprintf("%.1fh", h)
}

// RenderError formats err for the terminal.
func RenderError(err error) string {
	return StyleError.Render("Error: ") + err.Error()
}

func RenderSuccess(msg string) string {
	return StyleSuccess.Render("✓ ") + msg
}

// RenderConfigSummary lists the settings that matter before saving.
func RenderConfigSummary(cfg *config.Config) string {
	lines := []string{
		StyleHeader.Render("Configuration Summary"),
		fmt.Sprintf("  %s %s", StyleLabel.Render("Backend:"), orPlaceholder(cfg.Backend.BaseURL, "(not set)")),
		fmt.Sprintf("  %s %s", StyleLabel.Render("Token:"), maskToken(cfg.Backend.Token)),
		fmt.Sprintf("  %s deadline %s, every %s (x%g up to %s)", StyleLabel.Render("Processing:"),
			cfg.Finalize.Deadline, cfg.Finalize.Interval, cfg.Finalize.Multiplier, cfg.Finalize.MaxInterval),
		fmt.Sprintf("  %s %d Hz, %d ch, max %s", StyleLabel.Render("Recording:"),
			cfg.Recording.SampleRate, cfg.Recording.Channels, cfg.Recording.Timeout),
		fmt.Sprintf("  %s %d", StyleLabel.Render("Recent results:"), cfg.Results.RecentLimit),
		fmt.Sprintf("  %s %s", StyleLabel.Render("Paste summary:"), cfg.Results.Paste),
	}
	if cfg.Notifications.Enabled {
		lines = append(lines, fmt.Sprintf("  %s %s", StyleLabel.Render("Notifications:"), cfg.Notifications.Type))
	} else {
		lines = append(lines, fmt.Sprintf("  %s disabled", StyleLabel.Render("Notifications:")))
	}
	return strings.Join(lines, "\n")
}
