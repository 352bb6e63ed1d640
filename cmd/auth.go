package cmd

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/offtube/offtube/auth"
	"github.com/offtube/offtube/color"
	"github.com/offtube/offtube/icon"
	"github.com/offtube/offtube/key"
	"github.com/offtube/offtube/log"
	"github.com/offtube/offtube/style"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(authCmd)
}

// authCmd manages the identity used to mint session cookies.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the account used to refresh session cookies",
}

func init() {
	authCmd.AddCommand(authSetCmd)
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the account password in the system keyring",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		email := viper.GetString(key.IdentityEmail)
		if email == "" {
			input := survey.Input{
				Message: "Account email:",
			}
			handleErr(survey.AskOne(&input, &email, survey.WithValidator(survey.Required)))

			viper.Set(key.IdentityEmail, email)
			writeConfig()
		}

		var password string
		prompt := survey.Password{
			Message: fmt.Sprintf("Password for %s:", email),
			Help:    "Stored in the system keyring, never in the config file",
		}
		handleErr(survey.AskOne(&prompt, &password, survey.WithValidator(survey.Required)))

		handleErr(auth.SetPassword(email, password))
		log.WithFields(log.Fields{"email": email}).Info("identity password stored")
		fmt.Printf("%s password for %s stored in the keyring\n",
			style.Fg(color.Green)(icon.Get(icon.Key)),
			style.Fg(color.Purple)(email),
		)
	},
}

func init() {
	authCmd.AddCommand(authDeleteCmd)
}

var authDeleteCmd = &cobra.Command{
	Use:     "delete",
	Aliases: []string{"remove"},
	Short:   "Remove the stored account password",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		email := viper.GetString(key.IdentityEmail)
		if email == "" {
			handleErr(errors.New(key.IdentityEmail + " is not set"))
		}

		handleErr(auth.DeletePassword(email))
		fmt.Printf("%s password for %s removed\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Fg(color.Purple)(email),
		)
	},
}

// writeConfig persists viper's current values, creating the file on first use.
func writeConfig() {
	switch err := viper.WriteConfig(); err.(type) {
	case viper.ConfigFileNotFoundError:
		handleErr(viper.SafeWriteConfig())
	default:
		handleErr(err)
	}
}
