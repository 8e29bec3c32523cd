/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package schema

import (
	"errors"
	"time"
)

// RangeBound describes which ends of a range are inclusive, using the
// Postgres bound notation.
type RangeBound string

const (
	BoundIncludeInclude RangeBound = "[]"
	BoundExcludeExclude RangeBound = "()"
	BoundIncludeExclude RangeBound = "[)"
	BoundExcludeInclude RangeBound = "(]"
)

// DateRange is the validation-side value for a date-range column. Nil ends
// mean unbounded.
type DateRange struct {
	Lower  *time.Time `json:"lower"`
	Upper  *time.Time `json:"upper"`
	Bounds RangeBound `json:"bounds"`
}

// Validate checks bound ordering.
func (r *DateRange) Validate() error {
	if r.Lower != nil && r.Upper != nil && r.Lower.After(*r.Upper) {
		return errors.New("schema: range lower must be equal or less than upper limit")
	}
	return nil
}

// Normalize rewrites the range into inclusive-inclusive form by shifting
// excluded ends one day inward. Postgres stores date ranges as `[)`
// regardless of how they were written, so callers see a stable shape.
func (r *DateRange) Normalize() {
	if r.Bounds == "" || r.Bounds == BoundIncludeInclude {
		r.Bounds = BoundIncludeInclude
		return
	}
	switch r.Bounds {
	case BoundExcludeInclude:
		if r.Lower != nil {
			lower := r.Lower.AddDate(0, 0, 1)
			r.Lower = &lower
		}
	case BoundIncludeExclude:
		if r.Upper != nil {
			upper := r.Upper.AddDate(0, 0, -1)
			r.Upper = &upper
		}
	case BoundExcludeExclude:
		if r.Lower != nil {
			lower := r.Lower.AddDate(0, 0, 1)
			r.Lower = &lower
		}
		if r.Upper != nil {
			upper := r.Upper.AddDate(0, 0, -1)
			r.Upper = &upper
		}
	}
	r.Bounds = BoundIncludeInclude
}
