package tui

import "github.com/charmbracelet/lipgloss"

// Color palette for the medivoice TUI. Adaptive colors keep text readable
// on light terminals.
var (
	// Primary colors
	ColorPrimary   = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#14B8A6"} // Teal - main accent
	ColorSecondary = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"} // Blue - secondary accent

	// Status colors
	ColorSuccess = lipgloss.Color("#22C55E") // Green
	ColorError   = lipgloss.Color("#EF4444") // Red
	ColorWarning = lipgloss.Color("#F59E0B") // Amber

	// Text colors
	ColorText   = lipgloss.AdaptiveColor{Light: "#0F172A", Dark: "#F8FAFC"}
	ColorMuted  = lipgloss.Color("#94A3B8") // Slate gray
	ColorSubtle = lipgloss.Color("#64748B") // Darker gray
)
