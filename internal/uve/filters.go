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

package uve

import "strings"

// Filters bundles the five query-string filters spec.md §4.4 names:
// sfilt/mfilt restrict by producer, cfilt projects struct attributes down
// to named fields, kfilt globs the key itself, ackfilt restricts alarms
// by acknowledgement state.
type Filters struct {
	SFilt   string
	MFilt   string
	CFilt   map[string][]string // attr -> kept map-keys
	KFilt   []string            // glob patterns, '*' matches any run of characters
	AckFilt *bool
}

func (f Filters) acceptsProducer(p Producer) bool {
	if f.SFilt != "" && p.Source != f.SFilt {
		return false
	}
	if f.MFilt != "" && p.Module != f.MFilt {
		return false
	}
	return true
}

func (f Filters) projectMap(attr string, m map[string]string) map[string]string {
	keep, ok := f.CFilt[attr]
	if !ok {
		return m
	}
	kept := make(map[string]string, len(keep))
	for _, k := range keep {
		if v, ok := m[k]; ok {
			kept[k] = v
		}
	}
	return kept
}

func (f Filters) filterAlarms(alarms []Alarm) []Alarm {
	if f.AckFilt == nil {
		return alarms
	}
	out := alarms[:0:0]
	for _, a := range alarms {
		if a.Ack == *f.AckFilt {
			out = append(out, a)
		}
	}
	return out
}

func matchesKFilt(key string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if globMatch(p, key) {
			return true
		}
	}
	return false
}

// globMatch implements '*' (any run of characters) glob matching; every
// other rune matches itself literally.
func globMatch(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for i := 1; i < len(parts)-1; i++ {
		idx := strings.Index(s, parts[i])
		if idx < 0 {
			return false
		}
		s = s[idx+len(parts[i]):]
	}
	last := parts[len(parts)-1]
	return strings.HasSuffix(s, last)
}
