package main

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// startSpinner shows progress on stderr during a remote call. It stays
// quiet in JSON or verbose mode so machine output and debug logs stay
// clean. The returned stop function is safe to call either way.
func startSpinner(message string) func() {
	if jsonOutput || verbose {
		return func() {}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
		spinner.WithWriter(rootCmd.ErrOrStderr()))
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()
	return s.Stop
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Encrypt the local corpus and overwrite the remote archive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stop := startSpinner("Pushing to remote...")
		result, err := apiClient.Sync.Push(cmd.Context(), "")
		stop()
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(result)
		} else {
			printSuccess("Pushed version %d to %s", result.Version, result.Locator)
		}
		return nil
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace the local corpus with the remote archive",
	Long: `Pull downloads the remote archive, decrypts it and replaces all
local data. There is no merge: pulling discards local changes that were
never pushed. Local data is left untouched when decryption fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stop := startSpinner("Pulling from remote...")
		result, err := apiClient.Sync.Pull(cmd.Context(), "")
		stop()
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(result)
		} else {
			printSuccess("Pulled version %d (%d items)", result.Version, result.ItemCount)
		}
		return nil
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the corpus in the browsable per-section layout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stop := startSpinner("Publishing corpus...")
		result, err := apiClient.Sync.Publish(cmd.Context())
		stop()
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(result)
		} else {
			printSuccess("Published version %d (%d items) to %s",
				result.Version, result.ItemsPublished, result.Locator)
		}
		return nil
	},
}

var autoloadCmd = &cobra.Command{
	Use:   "autoload",
	Short: "Load a published corpus over the read-only channel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stop := startSpinner("Checking remote...")
		info, err := apiClient.Sync.CheckRemoteExists(cmd.Context())
		stop()
		if err != nil {
			return err
		}
		if !info.Exists {
			if jsonOutput {
				printJSON(info)
			} else {
				printInfo("No published corpus found")
			}
			return nil
		}

		stop = startSpinner(fmt.Sprintf("Loading version %d...", info.RemoteVersion))
		result, err := apiClient.Sync.AutoLoad(cmd.Context())
		stop()
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(result)
			return nil
		}
		if !result.Success {
			printInfo("Nothing loaded: %s", result.Reason)
			return nil
		}
		printSuccess("Loaded version %d (%d item lists)", result.RemoteVersion, result.ItemsLoaded)
		if result.ItemsSkipped > 0 {
			printError("Skipped %d malformed item lists", result.ItemsSkipped)
		}
		return nil
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Forget the remote binding, keeping local data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient.Sync.Disconnect(); err != nil {
			return err
		}
		if jsonOutput {
			printJSON(map[string]interface{}{"success": true})
		} else {
			printSuccess("Disconnected from remote")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(autoloadCmd)
	rootCmd.AddCommand(disconnectCmd)
}
