package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/offtube/offtube/app"
	"github.com/offtube/offtube/color"
	"github.com/offtube/offtube/icon"
	"github.com/offtube/offtube/style"
	"github.com/offtube/offtube/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(mediaCmd)
}

// mediaCmd inspects the stored artifacts.
var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "List and delete stored videos",
}

func init() {
	mediaCmd.AddCommand(mediaListCmd)
	mediaListCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	mediaListCmd.SetOut(os.Stdout)
}

var mediaListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored videos, oldest first",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := app.New()
		handleErr(err)

		artifacts, err := a.Catalog.List()
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(artifacts))
			return
		}

		if len(artifacts) == 0 {
			cmd.Println(style.Faint("nothing stored"))
			return
		}

		now := time.Now()
		for _, artifact := range artifacts {
			cmd.Printf("%s %s %s\n",
				icon.Get(icon.Video),
				style.Tag(color.HiWhite, color.Purple)(artifact.SourceID),
				artifact.Title,
			)
			cmd.Printf("  %s\n", style.Faint(fmt.Sprintf("%.1f MiB, %s ago",
				float64(artifact.Size)/(1<<20),
				now.Sub(artifact.CreatedAt).Round(time.Minute),
			)))
		}

		cmd.Println()
		cmd.Println(style.Faint(util.Quantify(len(artifacts), "video", "videos")))
	},
}

func init() {
	mediaCmd.AddCommand(mediaDeleteCmd)
}

var mediaDeleteCmd = &cobra.Command{
	Use:     "delete <source-id>...",
	Aliases: []string{"rm"},
	Short:   "Delete stored videos and their thumbnails",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := app.New()
		handleErr(err)

		for _, id := range args {
			handleErr(a.Catalog.Delete(id))
			fmt.Printf("%s deleted %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), id)
		}
	},
}
