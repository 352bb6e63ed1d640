package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/offtube/offtube/constant"
	"github.com/offtube/offtube/extract"
	"github.com/offtube/offtube/icon"
	"github.com/offtube/offtube/key"
	"github.com/offtube/offtube/style"
	"github.com/offtube/offtube/util"
	"github.com/offtube/offtube/version"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolP("update", "u", false, "Update the downloader tool in place")
}

// checkCmd verifies the external programs offtube shells out to.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that the downloader tool and browser are available",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		tool := &extract.NativeTool{Path: viper.GetString(key.ToolPath)}
		if !CheckDependencies(tool.Path) {
			os.Exit(1)
		}

		if lo.Must(cmd.Flags().GetBool("update")) {
			erase := util.PrintErasable(fmt.Sprintf("%s Updating %s...", icon.Get(icon.Progress), tool.Path))
			err := tool.Update(ctx)
			erase()
			handleErr(err)
		}

		installed, err := tool.Version(ctx)
		handleErr(err)
		fmt.Printf("%s %s %s\n", icon.Get(icon.Success), tool.Path, style.Bold(installed))

		if bin := viper.GetString(key.BrowserBin); bin != "" {
			if _, err := exec.LookPath(bin); err != nil {
				printMissingDependencyError(bin, browserHint(), false)
			}
		}

		version.Notify(ctx, installed)
	},
}

// CheckDependencies reports whether the downloader tool resolves on PATH,
// printing install instructions when it does not.
func CheckDependencies(tool string) bool {
	if _, err := exec.LookPath(tool); err != nil {
		printMissingDependencyError(tool, toolHint(), true)
		return false
	}
	return true
}

func toolHint() string {
	switch runtime.GOOS {
	case constant.Darwin:
		return "brew install yt-dlp"
	case constant.Linux:
		return "python3 -m pip install -U yt-dlp"
	case constant.Windows:
		return "winget install yt-dlp"
	}
	return ""
}

func browserHint() string {
	switch runtime.GOOS {
	case constant.Darwin:
		return "brew install --cask chromium"
	case constant.Linux:
		return "sudo apt install chromium"
	}
	return ""
}

func printMissingDependencyError(dep, installCmd string, fatal bool) {
	accent := style.HiRed
	heading := "Error: Missing Dependency"
	if !fatal {
		accent = style.WarningColor
		heading = "Warning: Missing Optional Dependency"
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(1, 2).
		Margin(1, 0)

	width := util.WrapWidth(72) - 8

	title := style.New().Bold(true).Foreground(accent).Render(fmt.Sprintf("%s %s", icon.Get(icon.Fail), heading))
	body := style.New().Foreground(style.Text).Render(wordwrap.String(
		fmt.Sprintf("'%s' was not found in your PATH. Set %s or %s to its absolute path if it is installed elsewhere.", dep, key.ToolPath, key.BrowserBin),
		width,
	))

	suggestion := ""
	if installCmd != "" {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.New().Foreground(style.AccentColor).Bold(true).Render(installCmd))
	}

	fmt.Println(box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	))
}
