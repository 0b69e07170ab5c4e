package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/user/duologin/internal/config"
	"github.com/user/duologin/internal/keyring"
	"github.com/user/duologin/internal/prompter"
)

func newConfigureCmd() *cobra.Command {
	var (
		flagEntryURL    string
		flagACSPath     string
		flagUsername    string
		flagMethod      string
		flagDevice      string
		flagPollTimeout int
	)

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Configure a profile",
		Long: `Interactively configure a profile for a protected service.

This will prompt for:
- The protected service entry URL
- The assertion consumer path (where the SAML response is posted)
- Username
- Second-factor method and device (optional)
- Approval timeout (optional)

If --entry-url, --acs-path, and --username flags are all provided,
the command runs in non-interactive mode.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(flagEntryURL, flagACSPath, flagUsername, flagMethod, flagDevice, flagPollTimeout)
		},
	}

	cmd.Flags().StringVar(&flagEntryURL, "entry-url", "", "Protected service entry URL (non-interactive)")
	cmd.Flags().StringVar(&flagACSPath, "acs-path", "", "Assertion consumer path (non-interactive)")
	cmd.Flags().StringVar(&flagUsername, "username", "", "Username (non-interactive)")
	cmd.Flags().StringVar(&flagMethod, "method", "", `Second-factor method: "push" or "passcode"`)
	cmd.Flags().StringVar(&flagDevice, "device", "", "Push target device (e.g. phone1)")
	cmd.Flags().IntVar(&flagPollTimeout, "timeout", 0, "Approval deadline in seconds (default: 60)")

	return cmd
}

func runConfigure(flagEntryURL, flagACSPath, flagUsername, flagMethod, flagDevice string, flagPollTimeout int) error {
	profileName := GetProfile()
	configPath := GetConfigFile()

	cfg, err := config.LoadOrCreateConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var existing config.Profile
	if cfg.HasProfile(profileName) {
		mp, _ := cfg.GetProfile(profileName)
		existing = config.Profile{
			EntryURL:    mp.EntryURL,
			ACSPath:     mp.ACSPath,
			Username:    mp.Username,
			Method:      mp.Method,
			Device:      mp.Device,
			PollTimeout: mp.PollTimeout,
		}
		fmt.Printf("Updating existing profile: %s\n", profileName)
	} else {
		fmt.Printf("Creating new profile: %s\n", profileName)
	}

	nonInteractive := flagEntryURL != "" && flagACSPath != "" && flagUsername != ""

	var newProfile config.Profile

	if nonInteractive {
		if flagMethod != "" {
			if _, err := parseMethod(flagMethod); err != nil {
				return err
			}
		}
		newProfile = config.Profile{
			EntryURL:    flagEntryURL,
			ACSPath:     flagACSPath,
			Username:    flagUsername,
			Method:      flagMethod,
			Device:      flagDevice,
			PollTimeout: flagPollTimeout,
		}
	} else {
		p := prompter.New()

		defaultEntryURL := existing.EntryURL
		if flagEntryURL != "" {
			defaultEntryURL = flagEntryURL
		}
		entryURL, err := p.PromptString("Protected service entry URL", defaultEntryURL)
		if err != nil {
			return err
		}

		defaultACSPath := existing.ACSPath
		if flagACSPath != "" {
			defaultACSPath = flagACSPath
		}
		acsPath, err := p.PromptString("Assertion consumer path (e.g. Shibboleth.sso/SAML2/POST)", defaultACSPath)
		if err != nil {
			return err
		}

		defaultUsername := existing.Username
		if flagUsername != "" {
			defaultUsername = flagUsername
		}
		username, err := p.PromptString("Username", defaultUsername)
		if err != nil {
			return err
		}

		methods := []string{"Duo Push", "Passcode"}
		idx, err := p.PromptSelect("Second-factor method:", methods)
		if err != nil {
			return err
		}
		method := methods[idx]

		device := existing.Device
		if method == "Duo Push" {
			defaultDevice := existing.Device
			if defaultDevice == "" {
				defaultDevice = cfg.Defaults.Device
			}
			device, err = p.PromptString("Push target device", defaultDevice)
			if err != nil {
				return err
			}
		}

		newProfile = config.Profile{
			EntryURL:    entryURL,
			ACSPath:     acsPath,
			Username:    username,
			Method:      method,
			Device:      device,
			PollTimeout: flagPollTimeout,
		}

		if keyring.IsAvailable() {
			savePassword, err := p.PromptConfirm("Save password to keyring?", false)
			if err != nil {
				return err
			}

			if savePassword {
				password, err := p.PromptPassword("Password")
				if err != nil {
					return err
				}

				if password != "" {
					if err := keyring.SavePassword(profileName, password); err != nil {
						fmt.Printf("Warning: Failed to save password to keyring: %v\n", err)
					} else {
						fmt.Println("Password saved to keyring.")
					}
				}
			}
		}
	}

	if newProfile.EntryURL == "" {
		return fmt.Errorf("entry URL is required")
	}
	if newProfile.ACSPath == "" {
		return fmt.Errorf("assertion consumer path is required")
	}
	if newProfile.Username == "" {
		return fmt.Errorf("username is required")
	}
	if newProfile.PollTimeout < 0 {
		return fmt.Errorf("timeout must be positive")
	}

	cfg.SetProfile(profileName, newProfile)

	if err := config.SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("\nProfile '%s' saved to %s\n", profileName, configPath)
	fmt.Println("\nConfiguration:")
	fmt.Printf("  Entry URL: %s\n", newProfile.EntryURL)
	fmt.Printf("  ACS path:  %s\n", newProfile.ACSPath)
	fmt.Printf("  Username:  %s\n", newProfile.Username)
	if newProfile.Method != "" {
		fmt.Printf("  Method:    %s\n", newProfile.Method)
	}
	if newProfile.Device != "" {
		fmt.Printf("  Device:    %s\n", newProfile.Device)
	}
	if newProfile.PollTimeout > 0 {
		fmt.Printf("  Timeout:   %d seconds\n", newProfile.PollTimeout)
	}

	return nil
}
