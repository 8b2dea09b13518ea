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

// Package backoff computes the delays between retry attempts.
package backoff

import (
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

// Defaults used by New.
const (
	DefaultMinDelay     = 250 * time.Millisecond
	DefaultMaxDelay     = 10 * time.Second
	DefaultGrowthFactor = 2.0
	DefaultJitterAmount = 0.2
)

// Strategy yields growing delays. Implementations are safe for concurrent
// use.
type Strategy interface {
	// Next returns the delay before the upcoming attempt. Each call counts
	// as one attempt until Done is called.
	Next() time.Duration
	// Done resets the attempt counter.
	Done()
}

// Rand is the subset of rand.Rand used for jitter.
type Rand interface {
	// Float64 returns a number in [0.0, 1.0).
	Float64() float64
}

var _ Rand = (*rand.Rand)(nil)

type constant time.Duration

// Constant returns a Strategy that always yields delay. Negative delays
// are treated as zero.
func Constant(delay time.Duration) Strategy {
	return constant(max(0, delay))
}

func (c constant) Next() time.Duration { return time.Duration(c) }
func (constant) Done()                 {}

// growing covers both linear (factor 1) and exponential growth.
type growing struct {
	minDelay time.Duration
	maxDelay time.Duration
	factor   float64
	jitter   float64
	r        Rand
	attempts atomic.Int64
}

func (g *growing) Next() time.Duration {
	n := float64(g.attempts.Add(1))
	var d float64
	if g.factor <= 1 {
		d = float64(g.minDelay) * n
	} else {
		d = float64(g.minDelay) * math.Pow(g.factor, n-1)
	}
	d = max(float64(g.minDelay), min(float64(g.maxDelay), d))
	if g.jitter > 0 {
		// Subtractive: the delay never exceeds the bound.
		d *= 1 - g.r.Float64()*g.jitter
	}
	return time.Duration(d)
}

func (g *growing) Done() { g.attempts.Store(0) }

type config struct {
	minDelay time.Duration
	maxDelay time.Duration
	factor   float64
	jitter   float64
	r        Rand
}

// Option customizes a Strategy created by New.
type Option func(*config)

// WithMinDelay sets the delay before the first retry. Negative values are
// treated as zero.
func WithMinDelay(d time.Duration) Option {
	return func(c *config) {
		c.minDelay = max(0, d)
	}
}

// WithMaxDelay caps the delay. Negative values are treated as zero. A cap at
// or below the minimum delay yields a constant strategy.
func WithMaxDelay(d time.Duration) Option {
	return func(c *config) {
		c.maxDelay = max(0, d)
	}
}

// WithGrowthFactor sets the multiplier between consecutive delays. Factors
// of one or less grow the delay linearly in steps of the minimum delay.
func WithGrowthFactor(f float64) Option {
	return func(c *config) {
		c.factor = f
	}
}

// WithJitterAmount sets the fraction (0 to 1) by which a delay may be
// randomly shortened.
func WithJitterAmount(p float64) Option {
	return func(c *config) {
		c.jitter = min(1, max(0, p))
	}
}

// WithRand sets the jitter source. A nil value is ignored.
func WithRand(r Rand) Option {
	return func(c *config) {
		if r != nil {
			c.r = r
		}
	}
}

// New creates a Strategy from the given options.
func New(opts ...Option) Strategy {
	c := config{
		minDelay: DefaultMinDelay,
		maxDelay: DefaultMaxDelay,
		factor:   DefaultGrowthFactor,
		jitter:   DefaultJitterAmount,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.minDelay >= c.maxDelay {
		return Constant(c.maxDelay)
	}
	if c.r == nil {
		c.r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &growing{
		minDelay: c.minDelay,
		maxDelay: c.maxDelay,
		factor:   c.factor,
		jitter:   c.jitter,
		r:        c.r,
	}
}
