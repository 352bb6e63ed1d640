// Package icon renders CLI status symbols in the configured variant.
package icon

import (
	"github.com/offtube/offtube/key"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Icon identifies a status symbol.
type Icon int

const (
	Fail Icon = iota
	Success
	Progress
	Warn
	Info
	Cookie
	Video
	Key
)

// variants in the column order of glyphs.
var variants = []string{"emoji", "nerd", "plain", "kaomoji", "squares"}

// glyphs holds one rendering per variant.
type glyphs [5]string

var table = map[Icon]glyphs{
	Fail:     {"❌", "", "x", "(×_×)", "🟥"},
	Success:  {"✅", "", "ok", "(ᵔ◡ᵔ)", "🟩"},
	Progress: {"⏳", "", "..", "(・_・)", "🟦"},
	Warn:     {"⚠️", "", "!", "(ーー;)", "🟨"},
	Info:     {"ℹ️", "", "i", "(・ω・)", "🟪"},
	Cookie:   {"🍪", "", "*", "(っ˘ڡ˘ς)", "🟫"},
	Video:    {"🎬", "", ">", "(⌐■_■)", "⬛"},
	Key:      {"🔑", "", "#", "(¬‿¬)", "🟧"},
}

// AvailableVariants lists the accepted values of the icons variant setting.
func AvailableVariants() []string {
	return append([]string(nil), variants...)
}

// Get renders i in the configured variant. An unknown variant renders nothing.
func Get(i Icon) string {
	col := lo.IndexOf(variants, viper.GetString(key.IconsVariant))
	if col < 0 {
		return ""
	}
	return table[i][col]
}

// ForOutcome picks the symbol for a cookie health check outcome.
func ForOutcome(outcome string) Icon {
	switch outcome {
	case "healthy", "refreshed":
		return Success
	case "failed":
		return Fail
	default:
		return Info
	}
}
