package version

import (
	"context"
	"fmt"

	"github.com/offtube/offtube/color"
	"github.com/offtube/offtube/icon"
	"github.com/offtube/offtube/style"
	"github.com/offtube/offtube/util"
)

// Outdated reports whether a newer tool release than installed exists.
func Outdated(ctx context.Context, installed string) (latest string, outdated bool, err error) {
	latest, err = Latest(ctx)
	if err != nil {
		return "", false, err
	}

	comp, err := Compare(latest, installed)
	if err != nil {
		return latest, false, err
	}

	return latest, comp > 0, nil
}

// Notify prints a terminal notice when the installed tool is behind the latest release.
// Lookup failures are silent.
func Notify(ctx context.Context, installed string) {
	erase := util.PrintErasable(fmt.Sprintf("%s Checking for a newer downloader release...", icon.Get(icon.Progress)))
	latest, outdated, err := Outdated(ctx, installed)
	erase()

	if err != nil || !outdated {
		return
	}

	fmt.Printf(`
%s Downloader %s is available %s
%s

`,
		style.Fg(color.Yellow)("▇▇▇"),
		style.Bold(latest),
		style.Faint(fmt.Sprintf("(installed %s)", installed)),
		style.Faint("Run \"offtube check --update\" or set tool.self_update"),
	)
}
