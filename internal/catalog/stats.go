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

package catalog

// StatsTableSpec is the declared shape of a statistics table before
// column expansion: spec.md §3's "(stat_type, stat_attr, attributes[])".
type StatsTableSpec struct {
	StatType   string
	StatAttr   string
	ObjTable   string // non-empty when this stats table is scoped to an object type
	Attributes []NumericAttr
}

// NumericAttr is one numeric field a statistics table aggregates.
type NumericAttr struct {
	Name string
}

// objectIDField is the implicit column appended when the caller's
// attribute list omits it (spec.md §3).
const objectIDField = "name"

// ExpandStatsTable synthesizes the full column set for a statistics table
// per spec.md §3: SOURCE, time fields T and T= with CLASS(...) bucketing,
// UUID, COUNT(attr), and for each numeric attribute SUM/CLASS/MAX/MIN.
func ExpandStatsTable(spec StatsTableSpec) Table {
	name := "Stat" + spec.StatType + "." + spec.StatAttr
	cols := []Column{
		{Name: "SOURCE", DataType: "string", Indexed: true},
		{Name: "T", DataType: "int", Indexed: true},
		{Name: "T=", DataType: "int", Indexed: false},
		{Name: "CLASS(T)", DataType: "int", Indexed: false},
		{Name: "CLASS(T=)", DataType: "int", Indexed: false},
		{Name: "UUID", DataType: "string", Indexed: true},
		{Name: "COUNT(" + spec.StatAttr + ")", DataType: "int", Indexed: false},
	}

	hasObjectID := false
	for _, a := range spec.Attributes {
		if a.Name == objectIDField {
			hasObjectID = true
			cols = append(cols, Column{Name: objectIDField, DataType: "string", Indexed: true})
			continue
		}
		base := spec.StatAttr + "." + a.Name
		cols = append(cols,
			Column{Name: "SUM(" + base + ")", DataType: "double", Indexed: false},
			Column{Name: "CLASS(" + base + ")", DataType: "double", Indexed: false},
			Column{Name: "MAX(" + base + ")", DataType: "double", Indexed: false},
			Column{Name: "MIN(" + base + ")", DataType: "double", Indexed: false},
		)
	}
	if !hasObjectID {
		cols = append(cols, Column{Name: objectIDField, DataType: "string", Indexed: true})
	}

	t := Table{
		Name:        name,
		DisplayName: spec.StatType + " " + spec.StatAttr,
		Type:        TableStat,
		Columns:     cols,
	}
	if spec.ObjTable != "" {
		t.ColumnValuesAvailable = []string{"STAT_OBJECTID_FIELD"}
	}
	return t
}
