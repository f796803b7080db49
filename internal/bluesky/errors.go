package bluesky

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bluesky-social/indigo/xrpc"
)

var (
	ErrNoCredentials = errors.New("account has no stored bluesky credentials")
	ErrRateLimited   = errors.New("bluesky rate limit exceeded")
	ErrUnauthorized  = errors.New("bluesky session rejected")
)

// expiredToken reports whether err is the PDS rejecting a stale access token.
func expiredToken(err error) bool {
	var xerr *xrpc.Error
	if !errors.As(err, &xerr) {
		return false
	}
	if xerr.StatusCode == http.StatusUnauthorized {
		return true
	}
	var body *xrpc.XRPCError
	if errors.As(err, &body) {
		return body.ErrStr == "ExpiredToken" || body.ErrStr == "InvalidToken"
	}
	return false
}

// wrapCallError tags err with the method and maps throttling to ErrRateLimited.
func wrapCallError(method string, err error) error {
	var xerr *xrpc.Error
	if errors.As(err, &xerr) && xerr.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s: %w", ErrRateLimited, method, err)
	}
	return fmt.Errorf("%s: %w", method, err)
}
