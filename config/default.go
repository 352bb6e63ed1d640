// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/offtube/offtube/color"
	"github.com/offtube/offtube/constant"
	"github.com/offtube/offtube/key"
	"github.com/offtube/offtube/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.Offtube + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// Secret reports whether the field holds a credential that must not be echoed.
func (f *Field) Secret() bool {
	return secretKeys[f.Key]
}

// Current returns the effective value, masked for secret fields.
func (f *Field) Current() any {
	value := viper.Get(f.Key)
	if f.Secret() && fmt.Sprint(value) != "" {
		return "********"
	}
	return value
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       f.Current(),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

// typeName returns the string representation of the field's underlying value type.
func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	case []int:
		return "[]int"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

var secretKeys = map[string]bool{
	key.ServerAPIKey:     true,
	key.IdentityPassword: true,
	key.StorageSecret:    true,
}

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	// register validates and adds a new configuration field to the global registry.
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		f := Field{Key: k, Value: v, Description: desc}
		Default[k] = f
		EnvExposed = append(EnvExposed, k)
	}

	register(key.ServerAddress, ":10000", "Address the HTTP server listens on")
	register(key.ServerAPIKey, "", "API key required by /debug and DELETE /media/:id.\n/debug is disabled when empty")
	register(key.ServerRateLimit, 2, "Sustained download requests per second")
	register(key.ServerRateBurst, 5, "Burst size for download requests")
	register(key.ServerRequireSigned, false, "Require a valid signature to stream stored media")

	register(key.SourceAllowedHosts, []string{"youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be"}, "Hosts accepted as download sources")

	register(key.QualityTarget, 720, "Target vertical resolution.\nLower qualities are preferred over higher ones when no exact match exists")

	register(key.ExtractOrder, []string{"native", "scrape:mates", "scrape:savefrom", "replay"}, "Extraction strategies in priority order.\nAvailable: native, scrape:mates, scrape:savefrom, replay")
	register(key.ExtractMetadataTimeout, "60s", "Timeout for a single metadata resolution call")
	register(key.ExtractTransientRetries, 1, "In-place retries of a strategy after a transient failure")
	register(key.ExtractAuthKeywords, []string{"cookies", "login", "log in", "authentication", "private video", "sign in", "account", "restricted", "confirm your age", "not a bot", "http error 403", "403 forbidden", "members-only"}, "Case-insensitive markers of an authentication failure")
	register(key.ExtractNotFoundKeywords, []string{"video unavailable", "not available", "has been removed", "does not exist", "http error 404", "404 not found", "unsupported url"}, "Case-insensitive markers of a missing source")
	register(key.ExtractTransientKeywords, []string{"timed out", "timeout", "connection reset", "temporary failure", "http error 5", "502", "503", "504", "too many requests", "429"}, "Case-insensitive markers of a transient failure")

	register(key.ToolPath, "yt-dlp", "Downloader tool executable")
	register(key.ToolTimeout, "300s", "Timeout of a single downloader tool run")
	register(key.ToolFormat, "best[ext=mp4][height<=720]/best[ext=mp4]/best", "Format filter passed to the downloader tool")
	register(key.ToolSelfUpdate, true, "Update the downloader tool when the server starts")
	register(key.ToolReleaseURL, "https://api.github.com/repos/yt-dlp/yt-dlp/releases/latest", "Release feed used to detect an outdated downloader tool.\nThe check is skipped when empty")

	register(key.ScrapeMatesURL, "https://www.y2mate.com", "Base URL of the JSON conversion service")
	register(key.ScrapeSavefromURL, "https://en.savefrom.net", "Base URL of the HTML conversion service")

	register(key.IdentityEmail, "", "Account email used to mint session cookies")
	register(key.IdentityPassword, "", "Account password.\nPrefer \"offtube auth set\" which stores it in the system keyring")
	register(key.IdentityLoginURL, "https://accounts.google.com/ServiceLogin?service=youtube&continue=https%3A%2F%2Fwww.youtube.com%2F", "Identity provider login page")
	register(key.IdentityFormURL, "https://accounts.google.com/signin/challenge/sl/password", "Form endpoint the browserless login posts credentials to")
	register(key.IdentityTargetURL, "https://www.youtube.com/", "Site visited after login to collect cookies")
	register(key.IdentityChallengeMarkers, []string{"verify it's you", "verify it\u2019s you", "verificar sua identidade", "2-step verification", "confirm it's you"}, "Page markers of an extra verification challenge")

	register(key.BrowserBin, "", "Chromium executable.\nDownloaded automatically when empty")
	register(key.BrowserHeadless, true, "Run the browser without a window")
	register(key.BrowserTimeout, "45s", "Timeout of each browser wait")
	register(key.BrowserSettle, "5s", "Pause after submitting a login step")

	register(key.CookiesDomains, []string{"youtube", "google"}, "Cookie domain fragments kept after login")
	register(key.CookiesMaxFailures, 5, "Consecutive authentication failures before a cooldown")
	register(key.CookiesMaxRefreshAttempts, 3, "Consecutive refresh attempts before a cooldown")
	register(key.CookiesCooldown, "1h", "Cooldown after too many failures")
	register(key.CookiesCheckInterval, "1h", "How often the cookie health monitor runs")
	register(key.CookiesMaxAge, "6h", "Bundle age after which the monitor probes it")
	register(key.CookiesProbeURL, "https://www.youtube.com/watch?v=jNQXAC9IVRw", "Known-good source used by the health probe")

	register(key.RetentionMaxAge, "12h", "Stored artifacts older than this are deleted")
	register(key.RetentionInterval, "1h", "How often the retention sweeper runs")

	register(key.FetchTimeout, "30m", "Timeout of a single media download")
	register(key.StorageSignedURLTTL, "1h", "Lifetime of signed media URLs")
	register(key.StorageSecret, "", "Secret used to sign media URLs.\nA random secret is generated per process when empty")

	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")
	register(key.LogsWrite, false, "Also write logs to a daily file")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl .Current }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
