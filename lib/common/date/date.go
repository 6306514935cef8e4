// Copyright 2021 Silvio Böhler
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package date

import (
	"fmt"
	"time"
)

// layouts accepted for timestamps in journal and price sources, tried
// in order.
var layouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Parse parses a timestamp in one of the accepted layouts. The result
// is always in UTC.
func Parse(s string) (time.Time, error) {
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing date %q", s)
}

// Date creates a UTC date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Average returns the midpoint between two timestamps.
func Average(t1, t2 time.Time) time.Time {
	if t2.Before(t1) {
		t1, t2 = t2, t1
	}
	return t1.Add(t2.Sub(t1) / 2)
}

// Distance returns the absolute duration between two timestamps.
func Distance(t1, t2 time.Time) time.Duration {
	d := t1.Sub(t2)
	if d < 0 {
		return -d
	}
	return d
}
