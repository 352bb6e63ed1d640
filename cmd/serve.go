package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/offtube/offtube/app"
	"github.com/offtube/offtube/key"
	"github.com/offtube/offtube/log"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", "", "Address to listen on")
	lo.Must0(viper.BindPFlag(key.ServerAddress, serveCmd.Flags().Lookup("address")))

	serveCmd.Flags().Bool("self-update", true, "Update the downloader tool before serving")
	lo.Must0(viper.BindPFlag(key.ToolSelfUpdate, serveCmd.Flags().Lookup("self-update")))
}

// serveCmd runs the HTTP service with its background loops.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP download service",
	Long: `Run the HTTP download service.

The retention sweeper and the cookie health monitor run alongside the server
until the process receives SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !CheckDependencies(viper.GetString(key.ToolPath)) {
			log.Warn("downloader tool not found, the native strategy will fail")
		}

		a, err := app.New()
		handleErr(err)

		err = a.Serve(ctx)
		if errors.Is(err, context.Canceled) {
			return
		}
		handleErr(err)
	},
}
