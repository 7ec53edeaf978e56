// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package auth

import "time"

// Lockout defaults.
const (
	// DefaultLockoutThreshold is the number of consecutive failures that
	// triggers a lockout.
	DefaultLockoutThreshold = 4

	// DefaultLockoutDuration is how long an account stays locked.
	DefaultLockoutDuration = 10 * time.Minute
)

// LockoutPolicy decides when repeated login failures lock an account.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// DefaultLockoutPolicy returns the policy used when none is configured.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: DefaultLockoutThreshold, Duration: DefaultLockoutDuration}
}

// withDefaults fills zero fields from DefaultLockoutPolicy.
func (p LockoutPolicy) withDefaults() LockoutPolicy {
	if p.Threshold <= 0 {
		p.Threshold = DefaultLockoutThreshold
	}
	if p.Duration <= 0 {
		p.Duration = DefaultLockoutDuration
	}
	return p
}

// Exceeded reports whether failures has reached the threshold.
func (p LockoutPolicy) Exceeded(failures int) bool {
	return failures >= p.withDefaults().Threshold
}

// LockoutTime returns the end of the lockout window for the given failure
// count, or nil if the threshold has not been reached.
func (p LockoutPolicy) LockoutTime(failures int, now time.Time) *time.Time {
	p = p.withDefaults()
	if failures < p.Threshold {
		return nil
	}
	until := now.Add(p.Duration)
	return &until
}
