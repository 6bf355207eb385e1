package dba

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangingTable_RecordRTT_CountsEachSubordinateOnce(t *testing.T) {
	// GIVEN a table for 3 subordinates
	rt := NewRangingTable(3)

	// WHEN subordinate 1 answers twice and subordinate 0 once
	rt.RecordRTT(1, 500)
	rt.RecordRTT(1, 700)
	rt.RecordRTT(0, 200)

	// THEN two distinct responses are counted and the latest RTT wins
	assert.Equal(t, 2, rt.Recorded())
	assert.False(t, rt.AllRecorded(3))
	assert.Equal(t, int64(700), rt.Get(1))
	assert.Equal(t, []SubordinateID{2}, rt.Missing())
}

func TestRangingTable_AllRecorded_AfterEveryResponse(t *testing.T) {
	// GIVEN a table for 3 subordinates that all answer
	rt := NewRangingTable(3)
	for i, rtt := range []int64{300, 900, 100} {
		rt.RecordRTT(SubordinateID(i), rtt)
	}

	// THEN ranging is complete and the worst RTT is the maximum
	assert.True(t, rt.AllRecorded(3))
	assert.Empty(t, rt.Missing())
	assert.Equal(t, int64(900), rt.Worst())
}

func TestRangingTable_OutOfRangeID_Panics(t *testing.T) {
	rt := NewRangingTable(2)

	assert.Panics(t, func() { rt.RecordRTT(2, 10) })
	assert.Panics(t, func() { rt.RecordRTT(-1, 10) })
	assert.Panics(t, func() { rt.Get(5) })
}

func TestRangingTable_NegativeRTT_Panics(t *testing.T) {
	rt := NewRangingTable(1)
	assert.Panics(t, func() { rt.RecordRTT(0, -1) })
}
