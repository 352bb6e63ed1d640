package style

import "github.com/charmbracelet/lipgloss"

// Palette used by boxed output such as "offtube check" and "offtube cookies status".
var (
	Text    = lipgloss.Color("#cdd6f4")
	Subtext = lipgloss.Color("#a6adc8")
	Surface = lipgloss.Color("#313244")

	Mauve  = lipgloss.Color("#cba6f7")
	Red    = lipgloss.Color("#f38ba8")
	Yellow = lipgloss.Color("#f9e2af")

	AccentColor  = Mauve
	WarningColor = Yellow
	ErrorColor   = Red
	HiRed        = Red
	BorderColor  = Surface
)
