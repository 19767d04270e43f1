package uve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyAndGetScalarPreservesProvenance(t *testing.T) {
	c := NewCache(4)
	p1 := Producer{Source: "a1", Module: "VrouterAgent", Instance: "0"}
	p2 := Producer{Source: "a2", Module: "VrouterAgent", Instance: "0"}

	c.Apply(Event{Kind: EventAdd, Table: "ObjectVRouter", Key: "vr1", Producer: p1, Attr: "state", Value: Value{Kind: KindScalar, Scalar: "up"}})
	c.Apply(Event{Kind: EventAdd, Table: "ObjectVRouter", Key: "vr1", Producer: p2, Attr: "state", Value: Value{Kind: KindScalar, Scalar: "down"}})

	merged, ok := c.Get("ObjectVRouter", "vr1", Filters{})
	require.True(t, ok)
	require.Contains(t, merged, "state")
	assert.Len(t, merged["state"].ScalarContribs, 2)
}

func TestApplyListConcatenates(t *testing.T) {
	c := NewCache(4)
	p1 := Producer{Source: "a1"}
	p2 := Producer{Source: "a2"}
	c.Apply(Event{Kind: EventAdd, Table: "T", Key: "k", Producer: p1, Attr: "tags", Value: Value{Kind: KindList, List: []string{"x"}}})
	c.Apply(Event{Kind: EventAdd, Table: "T", Key: "k", Producer: p2, Attr: "tags", Value: Value{Kind: KindList, List: []string{"y"}}})

	merged, ok := c.Get("T", "k", Filters{})
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"x", "y"}, merged["tags"].List)
}

func TestApplyMapUnionLastWriterWins(t *testing.T) {
	c := NewCache(4)
	p1 := Producer{Source: "a1"}
	p2 := Producer{Source: "a2"}
	c.Apply(Event{Kind: EventAdd, Table: "T", Key: "k", Producer: p1, Attr: "m", Value: Value{Kind: KindMap, Map: map[string]string{"a": "1", "b": "2"}}})
	c.Apply(Event{Kind: EventMod, Table: "T", Key: "k", Producer: p2, Attr: "m", Value: Value{Kind: KindMap, Map: map[string]string{"a": "9"}}})

	merged, ok := c.Get("T", "k", Filters{})
	require.True(t, ok)
	assert.Equal(t, "9", merged["m"].Map["a"])
	assert.Equal(t, "2", merged["m"].Map["b"])
}

func TestDeleteProducerRemovesAllItsAttrs(t *testing.T) {
	c := NewCache(4)
	p1 := Producer{Source: "a1"}
	c.Apply(Event{Kind: EventAdd, Table: "T", Key: "k", Producer: p1, Attr: "x", Value: Value{Kind: KindScalar, Scalar: "1"}})
	c.Apply(Event{Kind: EventDel, Table: "T", Key: "k", Producer: p1})

	_, ok := c.Get("T", "k", Filters{})
	assert.False(t, ok)
}

func TestClearPartitionEmptiesOwnedKeys(t *testing.T) {
	c := NewCache(1) // single partition so every key lands on it
	p1 := Producer{Source: "a1"}
	c.Apply(Event{Kind: EventAdd, Table: "T", Key: "k", Producer: p1, Attr: "x", Value: Value{Kind: KindScalar, Scalar: "1"}})
	c.ClearPartition(0)

	_, ok := c.Get("T", "k", Filters{})
	assert.False(t, ok)
}

func TestSFiltMFiltRestrictProducers(t *testing.T) {
	c := NewCache(4)
	c.Apply(Event{Kind: EventAdd, Table: "T", Key: "k", Producer: Producer{Source: "a1", Module: "M1"}, Attr: "x", Value: Value{Kind: KindScalar, Scalar: "1"}})
	c.Apply(Event{Kind: EventAdd, Table: "T", Key: "k", Producer: Producer{Source: "a2", Module: "M2"}, Attr: "x", Value: Value{Kind: KindScalar, Scalar: "2"}})

	merged, ok := c.Get("T", "k", Filters{SFilt: "a1"})
	require.True(t, ok)
	require.Len(t, merged["x"].ScalarContribs, 1)
	assert.Equal(t, "1", merged["x"].ScalarContribs[0].Value)
}

func TestAckFiltRestrictsAlarms(t *testing.T) {
	c := NewCache(4)
	p1 := Producer{Source: "a1"}
	c.Apply(Event{Kind: EventAdd, Table: "T", Key: "k", Producer: p1, Attr: "UVEAlarms", Value: Value{
		Kind: KindAlarmList,
		Alarms: []Alarm{
			{Type: "PartitionUnhealthy", Ack: false},
			{Type: "ProcessStateChange", Ack: true},
		},
	}})

	ackTrue := true
	merged, ok := c.Get("T", "k", Filters{AckFilt: &ackTrue})
	require.True(t, ok)
	require.Len(t, merged["UVEAlarms"].Alarms, 1)
	assert.True(t, merged["UVEAlarms"].Alarms[0].Ack)
}

func TestKeysMatchesGlob(t *testing.T) {
	c := NewCache(4)
	c.Apply(Event{Kind: EventAdd, Table: "T", Key: "vrouter-1", Producer: Producer{Source: "a"}, Attr: "x", Value: Value{Kind: KindScalar, Scalar: "1"}})
	c.Apply(Event{Kind: EventAdd, Table: "T", Key: "control-1", Producer: Producer{Source: "a"}, Attr: "x", Value: Value{Kind: KindScalar, Scalar: "1"}})

	keys := c.Keys("T", Filters{KFilt: []string{"vrouter*"}})
	assert.Equal(t, []string{"vrouter-1"}, keys)
}

func TestMultiGetStreamsAllMatchingKeys(t *testing.T) {
	c := NewCache(4)
	for _, k := range []string{"k1", "k2", "k3"} {
		c.Apply(Event{Kind: EventAdd, Table: "T", Key: k, Producer: Producer{Source: "a"}, Attr: "x", Value: Value{Kind: KindScalar, Scalar: "1"}})
	}

	var got []string
	for ku := range c.MultiGet("T", Filters{}) {
		got = append(got, ku.Key)
	}
	assert.Len(t, got, 3)
}
