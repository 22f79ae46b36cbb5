package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pentesthub/hubvault/internal/crypto"
	"github.com/pentesthub/hubvault/internal/vault"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the corpus as an encrypted archive file",
	Long: `Export writes the full corpus as a single password-sealed envelope.
The file is safe to store or mail as-is; nothing in it is readable
without the password.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		envelope, err := apiClient.ExportArchive("")
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(envelope, "", "  ")
		if err != nil {
			return fmt.Errorf("encode archive: %w", err)
		}
		if err := os.WriteFile(args[0], data, 0o600); err != nil {
			return fmt.Errorf("write archive: %w", err)
		}

		if jsonOutput {
			printJSON(map[string]interface{}{"success": true, "file": args[0]})
		} else {
			printSuccess("Exported archive to %s", args[0])
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import an encrypted archive file, replacing local data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}

		var envelope crypto.Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			return fmt.Errorf("parse archive: %w", err)
		}
		if err := envelope.Validate(); err != nil {
			return fmt.Errorf("parse archive: %w", err)
		}

		password, err := promptPassword("Archive password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		if err := apiClient.ImportArchive(&envelope, password); err != nil {
			if vault.ErrIsCredentialFailure(err) {
				printError("Wrong password or corrupt archive")
			}
			return err
		}

		if jsonOutput {
			printJSON(map[string]interface{}{"success": true, "file": args[0]})
		} else {
			printSuccess("Imported archive from %s", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
