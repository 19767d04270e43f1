package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersStaticAndObjectTables(t *testing.T) {
	c := New([]string{"VRouter"}, nil, nil)

	_, ok := c.Table("MessageTable")
	assert.True(t, ok)

	ot, ok := c.Table("ObjectVRouterTable")
	require.True(t, ok)
	assert.Equal(t, TableObject, ot.Type)
}

func TestColumnValuesStaticMaps(t *testing.T) {
	c := New(nil, nil, nil)
	vals, err := c.ColumnValues(context.Background(), "MessageTable", "Level", nil)
	require.NoError(t, err)
	assert.Contains(t, vals, "ERROR")
}

func TestColumnValuesObjectIDFieldUsesCallback(t *testing.T) {
	c := New(nil, nil, nil)
	vals, err := c.ColumnValues(context.Background(), "StatX", "STAT_OBJECTID_FIELD", func() []string {
		return []string{"vr1", "vr2"}
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vr1", "vr2"}, vals)
}

func TestAddStatsTableIsRetrievable(t *testing.T) {
	c := New(nil, nil, nil)
	t2 := ExpandStatsTable(StatsTableSpec{
		StatType: "VrouterStats", StatAttr: "if_stats",
		Attributes: []NumericAttr{{Name: "in_pkts"}, {Name: "out_pkts"}},
	})
	c.AddStatsTable(t2)

	got, ok := c.Table(t2.Name)
	require.True(t, ok)
	assert.Equal(t, TableStat, got.Type)
}
