// Package metrics defines the per round measurement vector, the table that
// describes how each measurement is labelled and scaled, and the collector
// that reads the kernel counters behind most of them.
package metrics

import "fmt"

// Metric indexes a Vector
type Metric int

// the order here is the storage order of a Vector, the report order is
// the order of Table
const (
	Duration Metric = iota
	Rate
	OpRate

	MemTotal
	MemFree
	MemAvailable
	MemBuffers
	MemCached
	MemDirty
	MemWriteback

	ResponseTime
	ResponseTimeP50
	ResponseTimeP99

	ReadsCompleted
	ReadsMerged
	SectorsRead
	ReadTimeMs
	WritesCompleted
	WritesMerged
	SectorsWritten
	WriteTimeMs
	IOInProgress
	IOTimeSpentMs
	IOTimeSpentWeightedMs

	PidIORChar
	PidIOWChar
	PidIOSyscR
	PidIOSyscW
	PidIORead
	PidIOWrite
	PidIOCancelledWrite

	PidUTime
	PidSTime
	PidTTime

	SlabBlkdevQueue
	SlabBlkdevRequests
	SlabBdevCache
	SlabBufferHead
	SlabInodeCache
	SlabDentryCache

	NumMetrics
)

// Separator marks a group break in Table, it never indexes a Vector
const Separator Metric = -1

// Vector holds one value per metric for a single round or snapshot
type Vector [NumMetrics]float64

// Descriptor says how a metric is reported
type Descriptor struct {
	Metric Metric
	Label  string
	Units  string  // empty when the value is a plain count
	Scale  float64 // raw values are divided by Scale before reporting
	Delta  bool    // round value is after minus before
	Ignore bool    // computed but left out of reports
}

// IsSeparator reports whether d is a group break
func (d Descriptor) IsSeparator() bool {
	return d.Metric == Separator
}

var sep = Descriptor{Metric: Separator, Scale: 1}

const mb = 1024 * 1024

// Table lists every metric once, in report order, with separators between
// groups
var Table = []Descriptor{
	{Duration, "Duration", "secs", 1, false, false},
	{Rate, "Rate", "MB/sec", mb, false, false},
	{OpRate, "Op-Rate", "Ops/sec", 1, false, false},
	sep,

	{PidUTime, "CPU user %", "", 1, true, false},
	{PidSTime, "CPU system %", "", 1, true, false},
	{PidTTime, "CPU total %", "", 1, true, false},
	sep,

	{ReadsCompleted, "Reads Completed", "", 1, true, false},
	{ReadsMerged, "Reads Merged", "", 1, true, false},
	{SectorsRead, "Sectors Read", "", 1, true, false},
	{ReadTimeMs, "Read Time", "ms", 1, true, false},
	{PidIORChar, "Read", "MB", mb, true, false},
	{PidIOSyscR, "Read Syscalls", "", 1, true, false},
	{PidIORead, "Read (from device)", "MB", mb, true, false},
	sep,

	{WritesCompleted, "Writes Completed", "", 1, true, false},
	{WritesMerged, "Writes Merged", "", 1, true, false},
	{SectorsWritten, "Sectors Written", "", 1, true, false},
	{WriteTimeMs, "Write Time", "ms", 1, true, false},
	{PidIOWChar, "Write", "MB", mb, true, false},
	{PidIOSyscW, "Write Syscalls", "", 1, true, false},
	{PidIOWrite, "Write (to device)", "MB", mb, true, false},
	{PidIOCancelledWrite, "Cancelled Write", "MB", mb, true, false},
	sep,

	// the round response time is in ms, reported in us
	{ResponseTime, "Response Time", "us", 0.001, true, false},
	{ResponseTimeP50, "Response Time P50", "us", 1, false, false},
	{ResponseTimeP99, "Response Time P99", "us", 1, false, false},
	{IOInProgress, "I/O In Progress", "", 1, true, true},
	{IOTimeSpentMs, "I/O Time Spent", "ms", 1, true, false},
	{IOTimeSpentWeightedMs, "I/O Time Spent (Weighted)", "ms", 1, true, true},
	sep,

	{SlabBlkdevQueue, "Slab Blkdev Queue Objs", "", 1, true, false},
	{SlabBlkdevRequests, "Slab Blkdev Request Objs", "", 1, true, false},
	{SlabBdevCache, "Slab Bdev Cache Objs", "", 1, true, false},
	{SlabBufferHead, "Slab Buffer Head Objs", "", 1, true, false},
	{SlabInodeCache, "Slab Inode Cache Objs", "", 1, true, false},
	{SlabDentryCache, "Slab Dentry Cache Objs", "", 1, true, false},
	sep,

	// meminfo values are in kB
	{MemTotal, "Memory Total", "MB", 1024, false, false},
	{MemFree, "Memory Free", "MB", 1024, false, false},
	{MemAvailable, "Memory Available", "MB", 1024, false, false},
	{MemBuffers, "Memory Buffers", "MB", 1024, false, false},
	{MemCached, "Memory Cached", "MB", 1024, false, false},
	{MemDirty, "Memory Dirty", "MB", 1024, false, false},
	{MemWriteback, "Memory Writeback", "MB", 1024, false, false},
}

// byMetric maps each metric to its descriptor, filled by init
var byMetric [NumMetrics]Descriptor

func init() {
	if err := ValidateTable(Table); err != nil {
		panic(err)
	}
	for _, d := range Table {
		if !d.IsSeparator() {
			byMetric[d.Metric] = d
		}
	}
}

// ValidateTable checks that table names every metric exactly once with a
// usable scale
func ValidateTable(table []Descriptor) error {
	var seen [NumMetrics]bool
	for i, d := range table {
		if d.IsSeparator() {
			continue
		}
		if d.Metric < 0 || d.Metric >= NumMetrics {
			return fmt.Errorf("metric table row %d: metric %d out of range", i, d.Metric)
		}
		if seen[d.Metric] {
			return fmt.Errorf("metric table row %d: %q listed twice", i, d.Label)
		}
		if d.Label == "" {
			return fmt.Errorf("metric table row %d: metric %d has no label", i, d.Metric)
		}
		if d.Scale == 0 {
			return fmt.Errorf("metric table row %d: %q has zero scale", i, d.Label)
		}
		seen[d.Metric] = true
	}
	for m, ok := range seen {
		if !ok {
			return fmt.Errorf("metric %d missing from metric table", m)
		}
	}
	return nil
}

// Describe returns the descriptor of m
func Describe(m Metric) Descriptor {
	return byMetric[m]
}

func (m Metric) String() string {
	if m == Separator {
		return "separator"
	}
	if m < 0 || m >= NumMetrics {
		return fmt.Sprintf("Metric(%d)", int(m))
	}
	return byMetric[m].Label
}

// Delta returns the round vector for a pair of snapshots. Delta metrics
// are after minus before, every other metric is taken from after.
func Delta(before, after Vector) Vector {
	out := after
	for _, d := range Table {
		if d.IsSeparator() || !d.Delta {
			continue
		}
		out[d.Metric] = after[d.Metric] - before[d.Metric]
	}
	return out
}

// NormalizeCPU turns the CPU time deltas of v into percentages of the
// round's wall clock duration
func NormalizeCPU(v *Vector, duration float64) {
	if duration <= 0 {
		return
	}
	for _, m := range []Metric{PidUTime, PidSTime, PidTTime} {
		v[m] /= duration
	}
}
