package duo

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/user/duologin/internal/logging"
)

const (
	// DefaultPollTimeout bounds how long Authenticate waits for the user to
	// answer the challenge.
	DefaultPollTimeout = 60 * time.Second

	// pollInterval is the minimum spacing between two status requests.
	pollInterval = time.Second
)

var errChallengePending = errors.New("challenge still pending")

// pollStatus asks the status endpoint for the challenge decision until it is
// terminal or the deadline passes. Unrecognized status codes are logged and
// polling continues; the provider may emit benign transitional statuses.
func (c *Client) pollStatus(frame *frameTransport, tx *transaction) error {
	payload := url.Values{
		"txid": {tx.txid},
		"sid":  {tx.sid},
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.pollTimeout)
	defer cancel()

	poll := func() error {
		res, err := frame.Status(payload)
		if err != nil {
			return backoff.Permanent(err)
		}

		fr, err := decodeFrameResponse("status", res)
		if err != nil {
			return backoff.Permanent(err)
		}

		if fr.Stat != statOK {
			return backoff.Permanent(&ProtocolError{Endpoint: "status", Stat: fr.Stat})
		}

		switch fr.Response.StatusCode {
		case statusAllow:
			logging.Info("second factor approved")
			return nil
		case statusDeny:
			return backoff.Permanent(ErrDenied)
		case statusPushed:
			logging.Info("waiting for second factor approval")
			return errChallengePending
		default:
			logging.Warn("unrecognized second factor status, continuing to poll",
				"status", fr.Response.StatusCode)
			return errChallengePending
		}
	}

	err := backoff.Retry(poll, backoff.WithContext(backoff.NewConstantBackOff(pollInterval), ctx))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrPollTimeout
		}
		return err
	}

	return nil
}
