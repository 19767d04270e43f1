package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandStatsTableSynthesizesAggregateColumns(t *testing.T) {
	tbl := ExpandStatsTable(StatsTableSpec{
		StatType: "VrouterStats",
		StatAttr: "if_stats",
		ObjTable: "ObjectVRouterTable",
		Attributes: []NumericAttr{
			{Name: "in_pkts"},
		},
	})

	names := make([]string, len(tbl.Columns))
	for i, c := range tbl.Columns {
		names[i] = c.Name
	}

	assert.Contains(t, names, "SOURCE")
	assert.Contains(t, names, "T")
	assert.Contains(t, names, "T=")
	assert.Contains(t, names, "UUID")
	assert.Contains(t, names, "COUNT(if_stats)")
	assert.Contains(t, names, "SUM(if_stats.in_pkts)")
	assert.Contains(t, names, "MAX(if_stats.in_pkts)")
	assert.Contains(t, names, "MIN(if_stats.in_pkts)")
	assert.Contains(t, names, "name") // implicit STAT_OBJECTID_FIELD
	assert.Equal(t, []string{"STAT_OBJECTID_FIELD"}, tbl.ColumnValuesAvailable)
}

func TestExpandStatsTableRespectsExplicitObjectIDField(t *testing.T) {
	tbl := ExpandStatsTable(StatsTableSpec{
		StatType:   "FlowStats",
		StatAttr:   "flow",
		Attributes: []NumericAttr{{Name: "name"}},
	})
	count := 0
	for _, c := range tbl.Columns {
		if c.Name == "name" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
