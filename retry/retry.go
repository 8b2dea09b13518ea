// Copyright (c) 2025-present deep.rent GmbH (https://deep.rent)
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

// Package retry repeats operations that fail with transient errors.
//
// An operation is retried as long as the Policy approves the failed Attempt.
// Delays between attempts come from a backoff.Strategy:
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		return db.PingContext(ctx)
//	},
//		retry.WithAttemptLimit(5),
//		retry.WithPolicy(retry.Transient),
//	)
package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/deep-rent/keykit/backoff"
	"github.com/deep-rent/keykit/log"
)

// DefaultAttemptLimit is the total number of attempts made by Do unless
// configured otherwise.
const DefaultAttemptLimit = 3

// Attempt describes a failed call of the operation.
type Attempt struct {
	Err   error
	Count int
}

// Policy decides whether a failed attempt is retried.
type Policy func(a Attempt) bool

// Transient approves network errors and unexpected connection closes.
// Context cancellation is never retried.
func Transient(a Attempt) bool {
	if a.Err == nil ||
		errors.Is(a.Err, context.Canceled) ||
		errors.Is(a.Err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(a.Err, io.ErrUnexpectedEOF) || errors.Is(a.Err, io.EOF) {
		return true
	}
	var ne net.Error
	return errors.As(a.Err, &ne)
}

// Or combines policies, approving an attempt if any of them does.
func (p Policy) Or(other Policy) Policy {
	return func(a Attempt) bool {
		return p(a) || other(a)
	}
}

type config struct {
	policy   Policy
	attempts int
	backoff  backoff.Strategy
	logger   *slog.Logger
}

// Option customizes Do.
type Option func(*config)

// WithPolicy sets the retry policy. Transient is used by default. A nil
// policy is ignored.
func WithPolicy(policy Policy) Option {
	return func(c *config) {
		if policy != nil {
			c.policy = policy
		}
	}
}

// WithAttemptLimit caps the total number of attempts. Values below one are
// treated as one, which disables retries.
func WithAttemptLimit(n int) Option {
	return func(c *config) {
		c.attempts = max(1, n)
	}
}

// WithBackoff sets the delay strategy. A nil strategy is ignored.
func WithBackoff(strategy backoff.Strategy) Option {
	return func(c *config) {
		if strategy != nil {
			c.backoff = strategy
		}
	}
}

// WithLogger sets the logger for retried attempts. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Do calls op until it succeeds, the policy rejects the failure, the attempt
// limit is reached or ctx is done. It returns the last error of op, or the
// context error if ctx ends while waiting.
func Do(ctx context.Context, op func(context.Context) error, opts ...Option) error {
	c := config{
		policy:   Transient,
		attempts: DefaultAttemptLimit,
		backoff:  backoff.New(),
		logger:   log.Discard(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	defer c.backoff.Done()

	for count := 1; ; count++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if count >= c.attempts || !c.policy(Attempt{Err: err, Count: count}) {
			return err
		}
		delay := c.backoff.Next()
		c.logger.DebugContext(ctx, "Attempt failed, retrying",
			slog.Int("attempt", count),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
