// Copyright 2025 Esteban Alvarez. All Rights Reserved.
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

package purge

import (
	"strconv"
	"strings"
	"time"

	"opserver/internal/apierr"
)

// computeCutoffs implements spec.md §4.7's two purge_input modes.
func computeCutoffs(input PurgeInput, startTimes map[string]int64, ttls map[string]time.Duration, now time.Time) (map[string]int64, error) {
	switch {
	case input.Percentage != nil:
		return percentageCutoffs(*input.Percentage, startTimes, ttls, now)
	case input.TimeLiteral != nil:
		return timeLiteralCutoffs(*input.TimeLiteral, startTimes, now)
	default:
		return nil, apierr.New(apierr.KindInvalidInput, "purge_input must be a percentage or a time literal")
	}
}

// percentageCutoffs: cutoff_class = now − ((100−p)/100)·min(now−start_time_class, TTL_class·1h),
// computed independently per class.
func percentageCutoffs(p int, startTimes map[string]int64, ttls map[string]time.Duration, now time.Time) (map[string]int64, error) {
	if p < 1 || p > 100 {
		return nil, apierr.New(apierr.KindInvalidInput, "purge_input percentage must be in [1, 100]")
	}
	nowMicros := now.UnixMicro()
	frac := float64(100-p) / 100.0

	out := make(map[string]int64, len(Classes))
	for _, class := range Classes {
		start, ok := startTimes[class]
		if !ok {
			return nil, apierr.New(apierr.KindInvalidInput, "missing start time for class "+class)
		}
		ttl, ok := ttls[class]
		if !ok {
			return nil, apierr.New(apierr.KindInvalidInput, "missing TTL for class "+class)
		}
		age := nowMicros - start
		ttlMicros := ttl.Microseconds()
		bounded := age
		if ttlMicros < bounded {
			bounded = ttlMicros
		}
		out[class] = nowMicros - int64(frac*float64(bounded))
	}
	return out, nil
}

// timeLiteralCutoffs applies one cutoff to every class, rejecting it if
// it falls at or before the earliest known analytics start time.
func timeLiteralCutoffs(literal string, startTimes map[string]int64, now time.Time) (map[string]int64, error) {
	cutoff, err := parseTimeLiteral(literal, now)
	if err != nil {
		return nil, err
	}
	cutoffMicros := cutoff.UnixMicro()

	var earliest int64 = -1
	for _, s := range startTimes {
		if earliest == -1 || s < earliest {
			earliest = s
		}
	}
	if earliest != -1 && cutoffMicros <= earliest {
		return nil, apierr.New(apierr.KindInvalidInput, "purge_input time literal must be after analytics start time")
	}

	out := make(map[string]int64, len(Classes))
	for _, class := range Classes {
		out[class] = cutoffMicros
	}
	return out, nil
}

// parseTimeLiteral accepts an absolute RFC3339 timestamp, or the relative
// form "now[-N{h,m,s}]" (spec.md §4.7).
func parseTimeLiteral(s string, now time.Time) (time.Time, error) {
	if s == "now" {
		return now, nil
	}
	if strings.HasPrefix(s, "now-") {
		rest := s[len("now-"):]
		if len(rest) < 2 {
			return time.Time{}, apierr.New(apierr.KindInvalidInput, "malformed relative time literal "+s)
		}
		unit := rest[len(rest)-1]
		numPart := rest[:len(rest)-1]
		n, err := strconv.Atoi(numPart)
		if err != nil {
			return time.Time{}, apierr.New(apierr.KindInvalidInput, "malformed relative time literal "+s)
		}
		var d time.Duration
		switch unit {
		case 'h':
			d = time.Duration(n) * time.Hour
		case 'm':
			d = time.Duration(n) * time.Minute
		case 's':
			d = time.Duration(n) * time.Second
		default:
			return time.Time{}, apierr.New(apierr.KindInvalidInput, "unknown time unit in "+s)
		}
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apierr.Wrap(apierr.KindInvalidInput, err, "malformed time literal "+s)
	}
	return t, nil
}
