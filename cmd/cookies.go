package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/offtube/offtube/app"
	"github.com/offtube/offtube/color"
	"github.com/offtube/offtube/credential"
	"github.com/offtube/offtube/filesystem"
	"github.com/offtube/offtube/icon"
	"github.com/offtube/offtube/key"
	"github.com/offtube/offtube/style"
	"github.com/offtube/offtube/util"
	"github.com/offtube/offtube/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(cookiesCmd)
}

// cookiesCmd groups the session cookie operations.
var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "Inspect, refresh, import and export the session cookie bundle",
}

func init() {
	cookiesCmd.AddCommand(cookiesStatusCmd)
	cookiesStatusCmd.Flags().Bool("probe", false, "Also run one health check against the probe URL")
}

var cookiesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health of the persisted cookie bundle",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		bundle, err := credential.Load(where.Cookies())
		if errors.Is(err, os.ErrNotExist) {
			fmt.Printf("%s no cookies at %s\n", icon.Get(icon.Warn), where.Cookies())
			return
		}
		handleErr(err)

		fmt.Println(renderBundle(bundle, time.Now()))

		if !lo.Must(cmd.Flags().GetBool("probe")) {
			return
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		a, err := app.New()
		handleErr(err)
		a.LoadCookies()

		erase := util.PrintErasable(fmt.Sprintf("%s Probing %s...", icon.Get(icon.Progress), viper.GetString(key.CookiesProbeURL)))
		err = a.Monitor.Check(ctx)
		erase()
		handleErr(err)

		report := a.Monitor.Last()
		fmt.Printf("%s %s %s\n", icon.Get(icon.ForOutcome(string(report.Outcome))), style.Bold(string(report.Outcome)), style.Faint(report.Detail))
	},
}

// renderBundle summarises a bundle without printing any cookie value.
func renderBundle(b credential.Bundle, now time.Time) string {
	label := style.New().Foreground(style.Subtext).Width(12).Render
	value := style.New().Foreground(style.Text).Bold(true).Render

	domains := lo.Uniq(lo.Map(b.Cookies, func(c credential.Cookie, _ int) string {
		return strings.TrimPrefix(c.Domain, ".")
	}))
	sort.Strings(domains)

	age := b.Age(now)
	ageText := value(age.Round(time.Second).String())
	if maxAge := viper.GetDuration(key.CookiesMaxAge); maxAge > 0 && age > maxAge {
		ageText = style.Fg(style.WarningColor)(age.Round(time.Second).String() + " (stale)")
	}

	expiry := "session only"
	if soonest, ok := soonestExpiry(b.Cookies); ok {
		expiry = soonest.Sub(now).Round(time.Minute).String()
		if soonest.Before(now) {
			expiry = style.Fg(style.ErrorColor)("expired " + now.Sub(soonest).Round(time.Minute).String() + " ago")
		}
	}

	width := util.WrapWidth(80)
	rows := []string{
		style.Title(icon.Get(icon.Cookie) + " Session cookies"),
		"",
		label("Cookies") + value(util.Quantify(len(b.Cookies), "cookie", "cookies")),
		label("Captured") + ageText,
		label("Expires in") + value(expiry),
		label("Domains") + wordwrap.String(strings.Join(domains, ", "), width-20),
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.BorderColor).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func soonestExpiry(cookies []credential.Cookie) (time.Time, bool) {
	persistent := lo.Filter(cookies, func(c credential.Cookie, _ int) bool {
		return c.Expires > 0
	})
	if len(persistent) == 0 {
		return time.Time{}, false
	}

	soonest := lo.MinBy(persistent, func(a, b credential.Cookie) bool {
		return a.Expires < b.Expires
	})
	return time.Unix(soonest.Expires, 0), true
}

func init() {
	cookiesCmd.AddCommand(cookiesRefreshCmd)
}

var cookiesRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Log in with the configured identity and persist a fresh bundle",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		a, err := app.New()
		handleErr(err)
		a.LoadCookies()

		_, generation := a.Store.Snapshot()

		erase := util.PrintErasable(fmt.Sprintf("%s Logging in...", icon.Get(icon.Progress)))
		bundle, err := a.Refresher.Refresh(ctx, generation)
		erase()
		handleErr(err)

		fmt.Printf("%s saved %s to %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			util.Quantify(len(bundle.Cookies), "cookie", "cookies"),
			where.Cookies(),
		)
	},
}

func init() {
	cookiesCmd.AddCommand(cookiesImportCmd)
	cookiesImportCmd.Flags().Bool("all-domains", false, "Keep cookies outside cookies.domains")
}

var cookiesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the bundle with cookies from a Netscape cookie file",
	Long: `Replace the bundle with cookies from a Netscape cookie file.

Browser extensions that export "cookies.txt" produce this format. Only cookies
whose domain contains one of cookies.domains are kept unless --all-domains is set.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := filesystem.API().ReadFile(args[0])
		handleErr(err)

		cookies, err := credential.Parse(bytes.NewReader(data))
		handleErr(err)

		if !lo.Must(cmd.Flags().GetBool("all-domains")) {
			cookies = filterDomains(cookies, viper.GetStringSlice(key.CookiesDomains))
		}

		if len(cookies) == 0 {
			handleErr(fmt.Errorf("%s holds no usable cookies", args[0]))
		}

		handleErr(credential.Save(where.Cookies(), credential.Bundle{Cookies: cookies, CapturedAt: time.Now()}))
		fmt.Printf("%s imported %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			util.Quantify(len(cookies), "cookie", "cookies"),
		)
	},
}

func filterDomains(cookies []credential.Cookie, fragments []string) []credential.Cookie {
	if len(fragments) == 0 {
		return cookies
	}

	return lo.Filter(cookies, func(c credential.Cookie, _ int) bool {
		domain := strings.ToLower(c.Domain)
		return lo.SomeBy(fragments, func(f string) bool {
			return strings.Contains(domain, strings.ToLower(f))
		})
	})
}

func init() {
	cookiesCmd.AddCommand(cookiesExportCmd)
	cookiesExportCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
}

var cookiesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the bundle as a Netscape cookie file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		bundle, err := credential.Load(where.Cookies())
		handleErr(err)

		output := lo.Must(cmd.Flags().GetString("output"))
		if output == "" {
			_, err = os.Stdout.Write(credential.Marshal(bundle.Cookies))
			handleErr(err)
			return
		}

		handleErr(credential.Save(output, bundle))
		fmt.Fprintf(os.Stderr, "%s exported %s to %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			util.Quantify(len(bundle.Cookies), "cookie", "cookies"),
			output,
		)
	},
}
