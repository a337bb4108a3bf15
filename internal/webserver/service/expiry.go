package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Expiry headers of a share request.
const (
	HeaderExpireAfter = "X-Expire-After"
	HeaderExpireAt    = "X-Expire-At"
)

// ShareExpiry reads the expiry of a share from the request headers.
// It returns nil when the share never expires.
func ShareExpiry(r *http.Request, now time.Time) (*time.Time, error) {
	if raw := r.Header.Get(HeaderExpireAfter); raw != "" {
		seconds, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, HeaderExpireAfter)
		}

		at := now.Add(time.Duration(seconds) * time.Second)
		return &at, nil
	}

	if raw := r.Header.Get(HeaderExpireAt); raw != "" {
		unix, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, HeaderExpireAt)
		}

		at := time.Unix(unix, 0)
		return &at, nil
	}

	return nil, nil
}
