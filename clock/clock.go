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

// Package clock abstracts the current time for code that records
// timestamps.
package clock

import "time"

// Clock returns the current time.
type Clock func() time.Time

// System reads the wall clock.
func System() Clock { return time.Now }

// Frozen always returns t.
func Frozen(t time.Time) Clock { return func() time.Time { return t } }

// UTC wraps c so that it reports times in UTC.
func (c Clock) UTC() Clock { return func() time.Time { return c().UTC() } }
