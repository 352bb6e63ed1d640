package cmd

import (
	"os"
	"strings"

	"github.com/offtube/offtube/color"
	"github.com/offtube/offtube/config"
	"github.com/offtube/offtube/constant"
	"github.com/offtube/offtube/style"
	"github.com/offtube/offtube/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.Flags().BoolP("set-only", "s", false, "Display only environment variables that are currently defined")
	envCmd.Flags().BoolP("unset-only", "u", false, "Display only environment variables that are currently undefined")

	envCmd.MarkFlagsMutuallyExclusive("set-only", "unset-only")
	envCmd.SetOut(os.Stdout)
}

// envCmd displays the current process values for all supported environment variables.
var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Display the collection of supported environment variables",
	Long:  `Display the collection of supported environment variables and their current process values.`,
	Run: func(cmd *cobra.Command, args []string) {
		setOnly := lo.Must(cmd.Flags().GetBool("set-only"))
		unsetOnly := lo.Must(cmd.Flags().GetBool("unset-only"))

		names := lo.Map(config.EnvExposed, func(k string, _ int) string {
			return strings.ToUpper(constant.Offtube + "_" + config.EnvKeyReplacer.Replace(k))
		})
		names = append(names, where.EnvConfigPath, where.EnvDataPath)
		slices.Sort(names)

		for _, env := range names {
			value := os.Getenv(env)
			if field, ok := fieldByEnv(env); ok && field.Secret() && value != "" {
				value = "********"
			}
			present := value != ""

			if setOnly || unsetOnly {
				if !present && setOnly {
					continue
				}

				if present && unsetOnly {
					continue
				}
			}

			cmd.Print(style.New().Bold(true).Foreground(color.Purple).Render(env))
			cmd.Print("=")

			if present {
				cmd.Println(style.Fg(color.Green)(value))
			} else {
				cmd.Println(style.Fg(color.Red)("unset"))
			}
		}
	},
}

func fieldByEnv(env string) (config.Field, bool) {
	return lo.Find(lo.Values(config.Default), func(f config.Field) bool {
		return f.Env() == env
	})
}
