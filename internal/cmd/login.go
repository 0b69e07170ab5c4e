package cmd

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/duologin/internal/config"
	"github.com/user/duologin/internal/keyring"
	"github.com/user/duologin/internal/prompter"
	"github.com/user/duologin/internal/provider"
	"github.com/user/duologin/internal/provider/duo"
	"github.com/user/duologin/internal/saml"
)

func newLoginCmd() *cobra.Command {
	var (
		flagMethod     string
		flagPasscode   string
		flagDevice     string
		flagTimeout    int
		flagShowBody   bool
		flagOutput     string
		flagSkipPrompt bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and access the protected service",
		Long: `Performs the full authentication flow for the configured service: the
username/password login, the Duo second factor, and the SAML handoff.
On success the protected service is fetched with the authenticated session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(flagMethod, flagPasscode, flagDevice, flagTimeout, flagShowBody, flagOutput, flagSkipPrompt)
		},
	}

	cmd.Flags().StringVar(&flagMethod, "method", "", `Second-factor method: "push" or "passcode" (default from profile)`)
	cmd.Flags().StringVar(&flagPasscode, "passcode", "", "One-time passcode (passcode method only)")
	cmd.Flags().StringVar(&flagDevice, "device", "", "Push target device (default from profile)")
	cmd.Flags().IntVar(&flagTimeout, "timeout", 0, "Approval deadline in seconds (default from profile)")
	cmd.Flags().BoolVar(&flagShowBody, "show-body", false, "Print the protected resource body to stdout")
	cmd.Flags().StringVar(&flagOutput, "output", "", "Write the protected resource body to a file")
	cmd.Flags().BoolVar(&flagSkipPrompt, "skip-prompt", false, "Skip interactive prompts (use stored credentials)")

	return cmd
}

func runLogin(flagMethod, flagPasscode, flagDevice string, flagTimeout int, showBody bool, output string, skipPrompt bool) error {
	profileName := GetProfile()
	configPath := GetConfigFile()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'duologin configure --profile %s' to set up a profile", err, profileName)
	}

	if warning := config.WarnInsecurePermissions(configPath); warning != "" {
		fmt.Fprintln(os.Stderr, warning)
	}

	prof, err := cfg.GetProfile(profileName)
	if err != nil {
		return fmt.Errorf("profile '%s' not found\nRun 'duologin configure --profile %s' to set up a profile", profileName, profileName)
	}

	methodName := prof.Method
	if flagMethod != "" {
		methodName = flagMethod
	}
	method, err := parseMethod(methodName)
	if err != nil {
		return err
	}

	passcode := flagPasscode
	if method == duo.MethodPasscode && passcode == "" {
		if skipPrompt {
			return fmt.Errorf("passcode method requires --passcode when --skip-prompt is set")
		}
		passcode, err = prompter.String("Duo passcode", "")
		if err != nil {
			return fmt.Errorf("failed to read passcode: %w", err)
		}
	}

	device := prof.Device
	if flagDevice != "" {
		device = flagDevice
	}

	pollTimeout := prof.PollTimeout
	if flagTimeout > 0 {
		pollTimeout = flagTimeout
	}

	password, err := getPassword(profileName, prof.Username, skipPrompt)
	if err != nil {
		return fmt.Errorf("failed to get password: %w", err)
	}

	client, err := duo.NewClient(provider.NewCredentials(prof.Username, password), &duo.ClientOptions{
		EntryURL:    prof.EntryURL,
		ACSPath:     prof.ACSPath,
		PollTimeout: time.Duration(pollTimeout) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	fmt.Printf("Authenticating as %s...\n", prof.Username)
	if method == duo.MethodPush {
		fmt.Println("Approve the push notification on your device.")
	}

	if err := client.Authenticate(duo.AuthOptions{
		Method:   method,
		Passcode: passcode,
		Device:   device,
	}); err != nil {
		switch {
		case errors.Is(err, duo.ErrDenied):
			return fmt.Errorf("second factor was denied")
		case errors.Is(err, duo.ErrPollTimeout):
			return fmt.Errorf("second factor was not approved within %d seconds", pollTimeout)
		}
		return fmt.Errorf("authentication failed: %w", err)
	}

	reportAssertion(client, prof.EntryURL)

	res, err := client.AccessService()
	if err != nil {
		return fmt.Errorf("failed to access service: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("service returned status %d after authentication", res.StatusCode)
	}

	fmt.Println("\n✓ Authenticated; protected service is reachable")

	if showBody || output != "" {
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return fmt.Errorf("failed to read service response: %w", err)
		}
		if output != "" {
			if err := os.WriteFile(output, body, 0600); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Printf("Response body written to %s\n", output)
		}
		if showBody {
			fmt.Println(string(body))
		}
	}

	if !skipPrompt && !keyring.HasPassword(profileName) {
		if savePassword, err := prompter.Confirm("Save password to keyring for future logins?", false); err == nil && savePassword {
			if err := keyring.SavePassword(profileName, password); err != nil {
				fmt.Printf("Warning: Failed to save password: %v\n", err)
			} else {
				fmt.Println("Password saved to keyring.")
			}
		}
	}

	return nil
}

// reportAssertion prints diagnostic details from the accepted assertion.
// Failures here never fail the login; the service already accepted it.
func reportAssertion(client *duo.Client, entryURL string) {
	info, err := saml.Inspect(client.Assertion())
	if err != nil {
		return
	}

	if info.Subject != "" {
		fmt.Printf("Authenticated as %s\n", info.Subject)
	}
	if !info.NotOnOrAfter.IsZero() {
		fmt.Printf("Session valid until %s\n", info.NotOnOrAfter.Local().Format("2006-01-02 15:04:05"))
	}
	if info.Destination != "" && !strings.HasPrefix(info.Destination, strings.TrimSuffix(entryURL, "/")) {
		fmt.Printf("Warning: assertion destination %s does not match the configured service\n", info.Destination)
	}
}

func parseMethod(name string) (duo.Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "push", "duo push":
		return duo.MethodPush, nil
	case "passcode":
		return duo.MethodPasscode, nil
	default:
		return "", fmt.Errorf("unknown method %q (expected \"push\" or \"passcode\")", name)
	}
}

func getPassword(profileName, username string, skipPrompt bool) (string, error) {
	if password, err := keyring.GetPassword(profileName); err == nil && password != "" {
		return password, nil
	}

	if skipPrompt {
		return "", fmt.Errorf("no password found in keyring and --skip-prompt is set")
	}

	return prompter.Password(fmt.Sprintf("Password for %s", username))
}
