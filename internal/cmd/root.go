package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/user/duologin/internal/logging"
)

var (
	cfgFile string
	profile string
	verbose bool
	debug   bool
)

// NewRootCmd creates the root command
func NewRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "duologin",
		Short: "Authenticate to Duo-protected web services from the terminal",
		Long: `duologin performs the institutional username/password login, answers the
Duo second-factor challenge (push or passcode), and completes the SAML
handoff to the protected service, all without a browser.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.InitLogger(verbose, debug)

			if cfgFile == "" {
				home, err := os.UserHomeDir()
				if err == nil {
					cfgFile = filepath.Join(home, ".duologin", "config.yaml")
				}
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "default", "Profile name")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.duologin/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newConfigureCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	return rootCmd
}

// GetProfile returns the current profile name
func GetProfile() string {
	return profile
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}
