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

// Package catalog implements C6: the virtual-table schema registry
// composed once at startup from static log/flow tables, one object table
// per registered UVE type, and synthesized statistics tables.
package catalog

import (
	"context"
	"sort"
	"strings"

	"opserver/internal/kvshard"
)

// TableType is the schema.type enum from spec.md §3.
type TableType string

const (
	TableLog    TableType = "LOG"
	TableStat   TableType = "STAT"
	TableObject TableType = "OBJECT"
	TableFlow   TableType = "FLOW"
)

// Column is one schema column.
type Column struct {
	Name     string
	DataType string
	Indexed  bool
}

// Table is a fully-resolved virtual table.
type Table struct {
	Name                  string
	DisplayName           string
	Type                  TableType
	Columns               []Column
	ColumnValuesAvailable []string
}

// AlarmType is one entry of the alarm-type registry, keyed by UVE table.
type AlarmType struct {
	Name string
	Type string
	Doc  string
}

// Catalog is the process-wide, read-only table registry.
type Catalog struct {
	tables     map[string]Table
	alarmTypes map[string][]AlarmType
	fleet      *kvshard.Fleet // for column_values(MODULE/SOURCE) NGENERATORS scans
}

// staticTables are the fixed log/flow tables every deployment exposes,
// independent of which UVE object types are registered.
var staticTables = []Table{
	{Name: "MessageTable", DisplayName: "System Log Messages", Type: TableLog, Columns: []Column{
		{Name: "Source", DataType: "string", Indexed: true},
		{Name: "ModuleId", DataType: "string", Indexed: true},
		{Name: "Category", DataType: "string", Indexed: true},
		{Name: "Level", DataType: "int", Indexed: true},
		{Name: "Messagetype", DataType: "string", Indexed: false},
		{Name: "Timestamp", DataType: "int", Indexed: true},
	}},
	{Name: "FlowRecordTable", DisplayName: "Flow Records", Type: TableFlow, Columns: []Column{
		{Name: "sourcevn", DataType: "string", Indexed: true},
		{Name: "destvn", DataType: "string", Indexed: true},
		{Name: "sourceip", DataType: "string", Indexed: true},
		{Name: "destip", DataType: "string", Indexed: true},
		{Name: "protocol", DataType: "int", Indexed: false},
		{Name: "bytes", DataType: "int", Indexed: false},
		{Name: "packets", DataType: "int", Indexed: false},
	}},
}

// New builds a Catalog from the static tables, one object table per
// objectType, and alarmTypes keyed by UVE table name. fleet backs
// column_values(MODULE/SOURCE); it may be nil if that lookup is unused.
func New(objectTypes []string, alarmTypes map[string][]AlarmType, fleet *kvshard.Fleet) *Catalog {
	c := &Catalog{
		tables:     map[string]Table{},
		alarmTypes: alarmTypes,
		fleet:      fleet,
	}
	for _, t := range staticTables {
		c.tables[t.Name] = t
	}
	for _, ot := range objectTypes {
		c.tables["Object"+ot+"Table"] = objectTable(ot)
	}
	return c
}

func objectTable(objectType string) Table {
	name := "Object" + objectType + "Table"
	return Table{
		Name:        name,
		DisplayName: objectType,
		Type:        TableObject,
		Columns: []Column{
			{Name: "ObjectId", DataType: "string", Indexed: true},
			{Name: "UveInfo", DataType: "string", Indexed: false},
		},
		ColumnValuesAvailable: []string{"Category", "Level", "MODULE", "SOURCE"},
	}
}

// AddStatsTable registers a synthesized statistics table (ExpandStatsTable
// builds its columns; the caller supplies the already-expanded Table).
func (c *Catalog) AddStatsTable(t Table) {
	c.tables[t.Name] = t
}

// ObjectTypeNames returns the registered UVE object type names (e.g.
// "VRouter" for table "ObjectVRouterTable"), sorted for stable listing.
func (c *Catalog) ObjectTypeNames() []string {
	var out []string
	for _, t := range c.tables {
		if t.Type == TableObject {
			out = append(out, strings.TrimSuffix(strings.TrimPrefix(t.Name, "Object"), "Table"))
		}
	}
	sort.Strings(out)
	return out
}

// ObjectTableName converts a UVE object type name to its table name.
func ObjectTableName(objectType string) string { return "Object" + objectType + "Table" }

// Table looks up a registered table by name.
func (c *Catalog) Table(name string) (Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// Tables returns every registered table, sorted by name for stable listing.
func (c *Catalog) Tables() []Table {
	out := make([]Table, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AlarmTypes returns the alarm-type registry entries for a UVE table.
func (c *Catalog) AlarmTypes(uveTable string) []AlarmType {
	return c.alarmTypes[uveTable]
}

// knownCategories and knownLevels are the static maps spec.md §4.6 names
// for column_values(Category) / column_values(Level).
var knownCategories = []string{"default", "sandesh", "uve", "xmpp", "bgp"}
var knownLevels = []string{"EMERG", "ALERT", "CRIT", "ERROR", "WARN", "NOTICE", "INFO", "DEBUG"}

// ColumnValues resolves column_values(table, column) per spec.md §4.6's
// four-way dispatch.
func (c *Catalog) ColumnValues(ctx context.Context, table, column string, objectKeys func() []string) ([]string, error) {
	switch column {
	case "MODULE", "SOURCE":
		return c.generatorColumnValues(ctx, column)
	case "Category":
		return knownCategories, nil
	case "Level":
		return knownLevels, nil
	case "STAT_OBJECTID_FIELD":
		if objectKeys == nil {
			return nil, nil
		}
		return objectKeys(), nil
	default:
		return nil, nil
	}
}

func (c *Catalog) generatorColumnValues(ctx context.Context, column string) ([]string, error) {
	if c.fleet == nil {
		return nil, nil
	}
	members, err := c.fleet.SMembersAll(ctx, "NGENERATORS")
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var out []string
	for _, m := range members {
		// entries are shaped "source:_:module:_"
		parts := strings.Split(m, ":")
		if len(parts) < 3 {
			continue
		}
		var v string
		if column == "SOURCE" {
			v = parts[0]
		} else {
			v = parts[2]
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out, nil
}
