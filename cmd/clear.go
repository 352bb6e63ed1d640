package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/offtube/offtube/app"
	"github.com/offtube/offtube/icon"
	"github.com/offtube/offtube/util"
	"github.com/offtube/offtube/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

// clearTarget defines a filesystem resource eligible for cleanup.
type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	location func() string
}

// clearTargets registry of all application artifacts that can be selectively cleared.
var clearTargets = []clearTarget{
	{"videos", "videos", mo.Some("v"), where.Videos},
	{"thumbnails", "thumbnails", mo.Some("t"), where.Thumbnails},
	{"artifact index", "index", mo.None[string](), where.Artifacts},
	{"session cookies", "cookies", mo.Some("k"), where.Cookies},
	{"partial downloads", "temp", mo.None[string](), where.Temp},
	{"release cache", "cache", mo.Some("c"), where.Cache},
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		if target.argShort.IsPresent() {
			clearCmd.Flags().BoolP(target.argLong, target.argShort.MustGet(), false, help)
		} else {
			clearCmd.Flags().Bool(target.argLong, false, help)
		}
	}

	clearCmd.Flags().Bool("expired", false, "run one retention sweep instead of clearing everything")
}

// clearCmd removes stored media and session state.
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear stored media, session cookies and temporary files",
	Long: `Clear stored media, session cookies and temporary files.

Clearing videos also clears the artifact index so stale entries are not served.
Do not run this while "offtube serve" is downloading.`,
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("expired")) {
			a, err := app.New()
			handleErr(err)

			erase := util.PrintErasable(fmt.Sprintf("%s Sweeping...", icon.Get(icon.Progress)))
			removed, err := a.Sweeper.SweepOnce()
			erase()
			handleErr(err)

			fmt.Printf("%s removed %s\n", icon.Get(icon.Success), util.Quantify(removed, "expired file", "expired files"))
			return
		}

		var anyCleared bool

		doClear := func(what string) bool {
			return lo.Must(cmd.Flags().GetBool(what))
		}

		for _, target := range clearTargets {
			if !doClear(target.argLong) && !(target.argLong == "index" && doClear("videos")) {
				continue
			}

			anyCleared = true
			e := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Progress), target.name))
			err := util.Delete(target.location())
			e()

			if err != nil && !errors.Is(err, os.ErrNotExist) {
				handleErr(err)
			}
			fmt.Printf("%s %s cleared\n", icon.Get(icon.Success), util.Capitalize(target.name))
		}

		if !anyCleared {
			handleErr(cmd.Help())
		}
	},
}
