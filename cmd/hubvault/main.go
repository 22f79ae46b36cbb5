package main

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pentesthub/hubvault/internal/client"
	"github.com/pentesthub/hubvault/internal/config"
	"github.com/pentesthub/hubvault/internal/events"
)

var (
	cfgPath    string
	jsonOutput bool
	verbose    bool

	cfg       *config.Config
	apiClient *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "hubvault",
	Short: "Encrypted personal knowledge vault with remote sync",
	Long: `Hubvault stores prompts, notes, snippets and resources in an
encrypted local vault and synchronizes the corpus with a remote blob
store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.NewLoader(cfgPath).Load()
		if err != nil {
			return err
		}

		if verbose {
			cfg.Log.Level = "debug"
		}

		logger, err := events.NewLogger(&cfg.Log)
		if err != nil {
			return err
		}

		apiClient, err = client.New(cfg, logger)
		if err != nil {
			return err
		}

		apiClient.SetLockWarning(func(remainingSeconds float64) {
			if !jsonOutput {
				printInfo("Vault locks in %.0fs without activity", remainingSeconds)
			}
		})

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if apiClient != nil {
			_ = apiClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "",
		"Config file path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !jsonOutput {
			printError("%v", err)
		}
		os.Exit(1)
	}
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", err
	}
	return string(password), nil
}

func printSuccess(format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(os.Stderr, "✓ "+format+"\n", args...)
}

func printError(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

func printInfo(format string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(os.Stderr, "• "+format+"\n", args...)
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		printError("marshal output: %v", err)
		return
	}
	fmt.Println(string(data))
}
