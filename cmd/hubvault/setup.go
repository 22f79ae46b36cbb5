package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure vault encryption with a new password",
	Long: `Setup chooses the vault password, persists a password verifier
and an encrypted marker, and leaves the vault unlocked.`,
	Example: `  hubvault setup`,
	Args:    cobra.NoArgs,
	RunE:    runSetup,
}

var setupPassword string

func init() {
	rootCmd.AddCommand(setupCmd)

	setupCmd.Flags().StringVarP(&setupPassword, "password", "p", "",
		"Vault password (will prompt if not provided)")
}

func runSetup(cmd *cobra.Command, args []string) error {
	password := setupPassword
	if password == "" {
		var err error
		password, err = promptPassword("New vault password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}
	}

	strength := apiClient.Crypto.AssessStrength(password)
	if strength.Score < 3 && !jsonOutput {
		printInfo("Password strength %d/4; consider adding: %s",
			strength.Score, strings.Join(strength.Missing, ", "))
	}

	if err := apiClient.Vault.Setup(password); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success":        true,
			"strength_score": strength.Score,
		})
	} else {
		printSuccess("Vault configured and unlocked")
	}
	return nil
}
