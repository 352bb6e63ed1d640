package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/muesli/reflow/wrap"
	"github.com/offtube/offtube/acquire"
	"github.com/offtube/offtube/app"
	"github.com/offtube/offtube/color"
	"github.com/offtube/offtube/icon"
	"github.com/offtube/offtube/style"
	"github.com/offtube/offtube/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// getOutput is what "offtube get" prints on success.
type getOutput struct {
	SourceID  string    `json:"sourceId" jsonschema:"description=Stable identifier derived from the source URL."`
	Title     string    `json:"title" jsonschema:"description=Title reported by the extraction strategy."`
	File      string    `json:"file" jsonschema:"description=Absolute path of the stored video."`
	Thumbnail string    `json:"thumbnail,omitempty" jsonschema:"description=Absolute path of the stored thumbnail. Omitted when none was available."`
	Strategy  string    `json:"strategy" jsonschema:"description=Strategy that produced the media. 'stored' when it was already on disk."`
	Cached    bool      `json:"cached" jsonschema:"description=True when no new download happened."`
	Size      int64     `json:"size" jsonschema:"description=Video size in bytes."`
	Quality   int       `json:"quality,omitempty" jsonschema:"description=Vertical resolution of the selected stream, when known."`
	CreatedAt time.Time `json:"createdAt" jsonschema:"description=When the artifact was stored."`
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().Bool("schema", false, "Print the JSON schema of the output and exit")
	getCmd.Flags().BoolP("pretty", "p", false, "Indent the JSON output")
	getCmd.SetOut(os.Stdout)
}

// getCmd acquires and stores a single source without starting the server.
var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Download a single video and print the stored artifact as JSON",
	Example: `  offtube get https://youtu.be/jNQXAC9IVRw
  offtube get --quality 480 https://www.youtube.com/watch?v=jNQXAC9IVRw`,
	Args: func(cmd *cobra.Command, args []string) error {
		if lo.Must(cmd.Flags().GetBool("schema")) {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		if lo.Must(cmd.Flags().GetBool("pretty")) {
			encoder.SetIndent("", "  ")
		}

		if lo.Must(cmd.Flags().GetBool("schema")) {
			reflector := new(jsonschema.Reflector)
			reflector.Anonymous = true
			reflector.Namer = func(t reflect.Type) string {
				if t == reflect.TypeOf(getOutput{}) {
					return "offtube.Artifact"
				}
				return t.Name()
			}

			handleErr(encoder.Encode(reflector.Reflect(&getOutput{})))
			return
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		a, err := app.New()
		handleErr(err)
		a.LoadCookies()

		erase := util.PrintErasable(fmt.Sprintf("%s Acquiring %s...", icon.Get(icon.Progress), args[0]))
		result, err := a.Pipeline.Download(ctx, args[0])
		erase()

		var acqErr *acquire.AcquisitionError
		if errors.As(err, &acqErr) {
			printAttempts(acqErr)
		}
		handleErr(err)

		artifact := result.Artifact
		out := getOutput{
			SourceID:  artifact.SourceID,
			Title:     artifact.Title,
			File:      a.Storage.Path(artifact.VideoPath),
			Strategy:  result.Strategy,
			Cached:    result.Cached,
			Size:      artifact.Size,
			Quality:   artifact.Quality,
			CreatedAt: artifact.CreatedAt,
		}
		if artifact.HasThumbnail() {
			out.Thumbnail = a.Storage.Path(artifact.ThumbnailPath)
		}

		handleErr(encoder.Encode(out))
	},
}

func printAttempts(err *acquire.AcquisitionError) {
	width := util.WrapWidth(100)

	fmt.Fprintln(os.Stderr, style.ErrorTitle(fmt.Sprintf("all strategies failed for %s", err.SourceID)))

	for _, attempt := range err.Attempts {
		line := fmt.Sprintf("%s %s", style.Fg(color.Yellow)(string(attempt.Err.Kind)), attempt.Err.Detail)
		if attempt.Refresh != nil {
			line += style.Faint(fmt.Sprintf(" (refresh: %s)", attempt.Refresh))
		}

		fmt.Fprintf(os.Stderr, "  %s\n", style.Fg(color.Purple)(attempt.Strategy))
		fmt.Fprintln(os.Stderr, wrap.String("    "+line, width))
	}
}
