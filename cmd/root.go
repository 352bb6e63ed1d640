// Package cmd implements the offtube command-line interface.
package cmd

import (
	"fmt"
	"os"
	"strings"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/offtube/offtube/color"
	"github.com/offtube/offtube/constant"
	"github.com/offtube/offtube/icon"
	"github.com/offtube/offtube/key"
	"github.com/offtube/offtube/log"
	"github.com/offtube/offtube/style"
	"github.com/offtube/offtube/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, squares)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.PersistentFlags().String("log-level", "", "Override logs.level for this run")
	lo.Must0(viper.BindPFlag(key.LogsLevel, rootCmd.PersistentFlags().Lookup("log-level")))

	rootCmd.PersistentFlags().IntP("quality", "q", 0, "Override the target vertical resolution for this run")
	lo.Must0(viper.BindPFlag(key.QualityTarget, rootCmd.PersistentFlags().Lookup("quality")))
}

// rootCmd defines the entry point for offtube.
var rootCmd = &cobra.Command{
	Use:   constant.Offtube,
	Short: "Self-hosted video retrieval with fallback extraction and session refresh",
	Long: constant.AsciiArtLogo + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - Self-hosted video retrieval with fallback extraction and session refresh"),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Flags bound above are only visible after parsing.
		return log.Setup()
	},
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		handleErr(cmd.Help())
	},
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) && util.IsTerminal() {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
