// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordAllocationAttemptTracksOutcome(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordAllocationAttempt("success")
	c.RecordAllocationAttempt("conflict")
	c.RecordAllocationAttempt("conflict")

	stats := c.GetStats()
	assert.Equal(t, int64(3), stats.AllocationAttempts)
	assert.Equal(t, int64(1), stats.AllocationsByOutcome["success"])
	assert.Equal(t, int64(2), stats.AllocationsByOutcome["conflict"])
}

func TestRecordAllocationRetryIncrements(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordAllocationRetry()
	c.RecordAllocationRetry()

	assert.Equal(t, int64(2), c.GetStats().AllocationRetries)
}

func TestRecordExpirationSweepAggregatesDuration(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordExpirationSweep(10*time.Millisecond, 3)
	c.RecordExpirationSweep(20*time.Millisecond, 1)

	stats := c.GetStats()
	assert.Equal(t, int64(2), stats.ExpirationSweeps)
	assert.Equal(t, int64(4), stats.ExpiredReservations)
	assert.Equal(t, int64(2), stats.SweepDurationStats.Count)
	assert.Equal(t, 10*time.Millisecond, stats.SweepDurationStats.Min)
	assert.Equal(t, 20*time.Millisecond, stats.SweepDurationStats.Max)
}

func TestRecordCrisisRouteIncrements(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordCrisisRoute()
	assert.Equal(t, int64(1), c.GetStats().CrisisRoutes)
}

func TestRecordToolCallTimeoutByTool(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordToolCallTimeout("reserve_bed")
	c.RecordToolCallTimeout("reserve_bed")
	c.RecordToolCallTimeout("check_availability")

	stats := c.GetStats()
	assert.Equal(t, int64(3), stats.ToolCallTimeouts)
	assert.Equal(t, int64(2), stats.TimeoutsByTool["reserve_bed"])
	assert.Equal(t, int64(1), stats.TimeoutsByTool["check_availability"])
}

func TestRecordBedSnapshotReplacesGauges(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordBedSnapshot(map[string]int{"available": 50, "held": 3, "occupied": 55})
	c.RecordBedSnapshot(map[string]int{"available": 49, "held": 4, "occupied": 55})

	stats := c.GetStats()
	assert.Equal(t, 49, stats.BedsByStatus["available"])
	assert.Equal(t, 4, stats.BedsByStatus["held"])
}

func TestResetClearsAllCounters(t *testing.T) {
	c := NewInMemoryCollector()
	c.RecordAllocationAttempt("success")
	c.RecordCrisisRoute()
	c.RecordBedSnapshot(map[string]int{"available": 10})

	c.Reset()

	stats := c.GetStats()
	assert.Equal(t, int64(0), stats.AllocationAttempts)
	assert.Equal(t, int64(0), stats.CrisisRoutes)
	assert.Empty(t, stats.BedsByStatus)
}

func TestNoOpCollectorDiscardsEverything(t *testing.T) {
	var c Collector = NoOpCollector{}
	c.RecordAllocationAttempt("success")
	c.RecordCrisisRoute()
	stats := c.GetStats()
	assert.Equal(t, int64(0), stats.AllocationAttempts)
}

func TestDefaultCollectorDefaultsToNoOp(t *testing.T) {
	assert.IsType(t, NoOpCollector{}, GetDefaultCollector())
}

func TestSetDefaultCollectorRejectsNil(t *testing.T) {
	SetDefaultCollector(nil)
	assert.IsType(t, NoOpCollector{}, GetDefaultCollector())
}
