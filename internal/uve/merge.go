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

import "sort"

// merge folds every producer's per-attribute contributions into one
// MergedAttr per attribute name, applying f along the way (spec.md §4.4):
//
//   - list attributes concatenate across producers
//   - map attributes union, with the greatest Seq winning per inner key
//   - scalar attributes never collapse: every producer's value survives,
//     tagged with its Producer, so provenance is never lost
//   - alarm-list attributes concatenate, then ackfilt applies
func merge(byProd map[Producer]map[string]Contribution, f Filters) map[string]MergedAttr {
	out := map[string]MergedAttr{}
	// producers processed in a stable order so list-concatenation and
	// map-tie-break (when Seq is equal) are deterministic across calls.
	producers := make([]Producer, 0, len(byProd))
	for p := range byProd {
		if f.acceptsProducer(p) {
			producers = append(producers, p)
		}
	}
	sort.Slice(producers, func(i, j int) bool {
		return producerLess(producers[i], producers[j])
	})

	mapWinnerSeq := map[string]uint64{}

	for _, p := range producers {
		for attr, contrib := range byProd[p] {
			ma := out[attr]
			ma.Kind = contrib.Value.Kind
			switch contrib.Value.Kind {
			case KindList:
				ma.List = append(ma.List, contrib.Value.List...)
			case KindMap:
				if ma.Map == nil {
					ma.Map = map[string]string{}
				}
				for k, v := range contrib.Value.Map {
					if contrib.Seq >= mapWinnerSeq[attr+"\x00"+k] {
						ma.Map[k] = v
						mapWinnerSeq[attr+"\x00"+k] = contrib.Seq
					}
				}
			case KindAlarmList:
				ma.Alarms = append(ma.Alarms, contrib.Value.Alarms...)
			default: // KindScalar
				ma.ScalarContribs = append(ma.ScalarContribs, ScalarContrib{
					Producer: p,
					Value:    contrib.Value.Scalar,
				})
			}
			out[attr] = ma
		}
	}

	for attr, ma := range out {
		if ma.Kind == KindMap && ma.Map != nil {
			ma.Map = f.projectMap(attr, ma.Map)
		}
		if ma.Kind == KindAlarmList {
			ma.Alarms = f.filterAlarms(ma.Alarms)
		}
		out[attr] = ma
	}
	return out
}

func producerLess(a, b Producer) bool {
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	if a.Module != b.Module {
		return a.Module < b.Module
	}
	return a.Instance < b.Instance
}
