package duo

import "regexp"

// Method is the second-factor method requested from Duo.
type Method string

const (
	// MethodPush sends a push notification to the enrolled device.
	MethodPush Method = "Duo Push"
	// MethodPasscode submits a one-time passcode. Requires AuthOptions.Passcode.
	MethodPasscode Method = "Passcode"
)

func (m Method) valid() bool {
	return m == MethodPush || m == MethodPasscode
}

const (
	// DefaultEntryURL and DefaultACSPath describe the service unlocked when
	// SetService is never called.
	DefaultEntryURL = "https://acorn.utoronto.ca/"
	DefaultACSPath  = "spACS"

	// idpBaseURL is where relative login form actions are resolved against.
	idpBaseURL = "https://idpz.utorauth.utoronto.ca"

	// fallbackDuoHost is used when the post-login redirect URL does not embed
	// a *.duosecurity.com hostname. Known fragility: if the tenant's API host
	// rotates, this constant silently misroutes the second factor.
	fallbackDuoHost = "api-832cdf07.duosecurity.com"

	// DefaultDevice is the device identifier sent for push challenges when
	// the caller does not name one.
	DefaultDevice = "phone1"

	// nullDevice marks the device field as unused for non-push factors.
	nullDevice = "null"

	frameVersion        = "v4"
	postAuthDestination = "OIDC_EXIT"

	// browserFeatures is the fixed capability descriptor the prompt endpoint
	// expects alongside a challenge.
	browserFeatures = `{"touch_supported": false, "platform_authenticator_status": "available", "webauthn_supported": true}`

	statOK = "OK"

	statusAllow  = "allow"
	statusDeny   = "deny"
	statusPushed = "pushed"
)

var (
	sidPattern     = regexp.MustCompile(`sid=([^&]+)`)
	duoHostPattern = regexp.MustCompile(`https://([^/]+\.duosecurity\.com)`)
)

// frameResponse is the JSON envelope returned by the frame endpoints.
type frameResponse struct {
	Stat     string `json:"stat"`
	Response struct {
		TxID       string `json:"txid"`
		StatusCode string `json:"status_code"`
	} `json:"response"`
}

// transaction is the mutable state threaded through one authentication
// attempt. Each field is written once, by the step that produces it.
type transaction struct {
	sid      string // identity-provider session id
	duoHost  string // Duo API hostname for this tenant
	frameURL string // URL the Duo frame was served from
	tx       string // frame transaction id
	txid     string // challenge transaction id
	xsrf     string // frame anti-forgery token
	akey     string // application key
}
