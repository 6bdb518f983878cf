// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package retry provides exponential backoff for operations at the edge of the
// process, such as initializing the matcher before a server starts accepting
// requests. Core packages never retry on their own.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Option configures WithBackoff.
type Option func(*settings)

type settings struct {
	maxDelay time.Duration
	logger   *slog.Logger
}

// WithMaxDelay caps the delay between attempts. Zero means no cap.
func WithMaxDelay(d time.Duration) Option {
	return func(s *settings) {
		s.maxDelay = d
	}
}

// WithLogger sets the logger used to report failed attempts.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// An error wrapped with Permanent stops the loop and is returned unwrapped.
// Returns the error from the last attempt if all attempts fail.
func WithBackoff(ctx context.Context, operation func(ctx context.Context) error, maxAttempts int, baseDelay time.Duration, opts ...Option) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	s := &settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			if attempt > 1 {
				s.logger.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil // Success
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		// Don't sleep after the last attempt
		if attempt == maxAttempts {
			break
		}

		delay := backoff(baseDelay, attempt, s.maxDelay)
		s.logger.Warn("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "delay", delay, "err", lastErr)

		// Sleep with context awareness
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Continue to next attempt
		}
	}

	return lastErr
}

// backoff returns baseDelay * 2^(attempt-1), capped at maxDelay when it is positive.
func backoff(baseDelay time.Duration, attempt int, maxDelay time.Duration) time.Duration {
	delay := baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if maxDelay > 0 && delay >= maxDelay {
			return maxDelay
		}
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}
