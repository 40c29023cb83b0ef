/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package backoff wraps cenkalti/backoff with the retry profiles used across
// the broker and dispatcher loops.
package backoff

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry runs f with exponential backoff until it succeeds, maxElapsedTime
// passes, or the interval cap is reached. A zero maxElapsedTime retries
// forever.
func Retry(f backoff.Operation, maxElapsedTime, maxInterval time.Duration) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxElapsedTime
	policy.MaxInterval = maxInterval
	return backoff.Retry(f, policy)
}
