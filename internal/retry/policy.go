// Package retry implements the bounded exponential backoff applied to
// transient delivery failures. The retry count rides on the message as a
// header so the schedule survives process restarts.
package retry

import "time"

// Policy decides whether a failed message gets another attempt and how
// long to wait before it. retryCount is the number of republishes the
// message has already been through, read from its retry-count header.
type Policy struct {
	BaseDelay  time.Duration
	MaxRetries int
}

func DefaultPolicy() Policy {
	return Policy{BaseDelay: time.Second, MaxRetries: 3}
}

// ShouldRetry reports whether a message that has been republished
// retryCount times may be republished once more. The ceiling is
// inclusive: with MaxRetries 3, failures at counts 0, 1 and 2 retry and
// a failure at count 3 dead-letters.
func (p Policy) ShouldRetry(retryCount int) bool {
	return retryCount < p.MaxRetries
}

// Delay returns the backoff before the attempt-th republish, doubling
// from BaseDelay: base × 2^(attempt−1).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay << (attempt - 1)
}
