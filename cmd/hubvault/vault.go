package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pentesthub/hubvault/internal/vault"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock the vault for this session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptPassword("Vault password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		if err := apiClient.Vault.Unlock(password); err != nil {
			if vault.ErrIsCredentialFailure(err) {
				printError("Wrong password")
			}
			return err
		}

		if jsonOutput {
			printJSON(map[string]interface{}{"success": true})
		} else {
			printSuccess("Vault unlocked")
		}
		return nil
	},
}

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock the vault and clear session key material",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		apiClient.Vault.Lock()
		if jsonOutput {
			printJSON(map[string]interface{}{"success": true})
		} else {
			printSuccess("Vault locked")
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault and sync status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state := apiClient.Vault.State()
		syncState := apiClient.Sync.State()

		if jsonOutput {
			printJSON(map[string]interface{}{
				"vault_state":    string(state),
				"local_version":  syncState.LocalVersion,
				"remote_version": syncState.RemoteVersion,
				"locator":        syncState.Locator,
				"last_synced_at": syncState.LastSyncedAt,
				"last_error":     syncState.LastError,
			})
			return nil
		}

		printInfo("Vault: %s", state)
		if syncState.Locator != "" {
			printInfo("Remote: %s (local v%d, remote v%d)",
				syncState.Locator, syncState.LocalVersion, syncState.RemoteVersion)
			if !syncState.LastSyncedAt.IsZero() {
				printInfo("Last synced: %s", syncState.LastSyncedAt.Format("2006-01-02 15:04:05"))
			}
		} else {
			printInfo("Remote: not connected")
		}
		if syncState.LastError != "" {
			printError("Last sync error: %s", syncState.LastError)
		}
		return nil
	},
}

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the vault password",
	Long: `Passwd re-encrypts the entire corpus under a new password. The
old password stays valid until every new artifact is in place, so an
interrupted change never strands the vault.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		current, err := promptPassword("Current password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		next, err := promptPassword("New password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		confirm, err := promptPassword("Confirm new password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if next != confirm {
			return fmt.Errorf("passwords do not match")
		}

		if err := apiClient.Vault.ChangePassword(current, next); err != nil {
			if vault.ErrIsCredentialFailure(err) {
				printError("Current password is wrong")
			}
			return err
		}

		if jsonOutput {
			printJSON(map[string]interface{}{"success": true})
		} else {
			printSuccess("Password changed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(passwdCmd)
}
