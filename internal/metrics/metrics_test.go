package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakePid = 1234

// fakeRoots lays out a minimal proc and sys tree, diskstats carries an
// entry for the device holding dataDir
func fakeRoots(t *testing.T, dataDir string) (string, string) {
	t.Helper()
	root := t.TempDir()
	proc := filepath.Join(root, "proc")
	sys := filepath.Join(root, "sys")
	require.NoError(t, os.MkdirAll(filepath.Join(proc, fmt.Sprint(fakePid)), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(proc, "sys", "vm"), 0o755))
	require.NoError(t, os.MkdirAll(sys, 0o755))

	major, minor, err := DeviceOf(dataDir)
	require.NoError(t, err)

	files := map[string]string{
		"meminfo": "MemTotal:       16384000 kB\n" +
			"MemFree:         8192000 kB\n" +
			"MemAvailable:   12288000 kB\n" +
			"Buffers:          204800 kB\n" +
			"Cached:          4096000 kB\n" +
			"Dirty:              1024 kB\n" +
			"Writeback:           512 kB\n",
		fmt.Sprintf("%d/io", fakePid): "rchar: 1048576\n" +
			"wchar: 2097152\n" +
			"syscr: 300\n" +
			"syscw: 400\n" +
			"read_bytes: 4096\n" +
			"write_bytes: 8192\n" +
			"cancelled_write_bytes: 0\n",
		fmt.Sprintf("%d/stat", fakePid): "1234 (fsbench) R 1 1234 1234 34816 1234 4194304 1500 0 0 0 250 50 0 0 20 0 4 0 12345 1234567 890 18446744073709551615 94000000000000 94000000100000 140700000000000 0 0 0 0 0 0 0 0 0 17 3 0 0 0 0 0 94000000200000 94000000300000 94000000400000 140700000100000 140700000100100 140700000100100 140700000200000 0\n",
		"slabinfo": "slabinfo - version: 2.1\n" +
			"# name            <active_objs> <num_objs> <objsize> <objperslab> <pagesperslab> : tunables <limit> <batchcount> <sharedfactor> : slabdata <active_slabs> <num_slabs> <sharedavail>\n" +
			"dentry 120000 130000 192 21 1 : tunables 0 0 0 : slabdata 6190 6190 0\n" +
			"inode_cache 5000 5100 600 27 4 : tunables 0 0 0 : slabdata 189 189 0\n" +
			"buffer_head 7000 7100 104 39 1 : tunables 0 0 0 : slabdata 182 182 0\n" +
			"bdev_cache 40 40 832 39 8 : tunables 0 0 0 : slabdata 1 1 0\n" +
			"kmalloc-64 9999 9999 64 64 1 : tunables 0 0 0 : slabdata 156 156 0\n",
		"diskstats": "7 0 loop0 1 0 2 0 0 0 0 0 0 0 0 0 0 0 0 0 0\n" +
			fmt.Sprintf("%d %d fake0 100 5 800 40 200 10 1600 60 2 90 110 0 0 0 0 0 0\n", major, minor),
		"sys/vm/drop_caches": "",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(proc, name), []byte(body), 0o600))
	}
	return proc, sys
}

func TestTableIsValid(t *testing.T) {
	require.NoError(t, ValidateTable(Table))

	count := 0
	for _, d := range Table {
		if !d.IsSeparator() {
			count++
			assert.Equal(t, d, Describe(d.Metric))
			assert.Equal(t, d.Label, d.Metric.String())
		}
	}
	assert.Equal(t, int(NumMetrics), count)
}

func TestValidateTableRejects(t *testing.T) {
	missing := Table[:len(Table)-1]
	assert.Error(t, ValidateTable(missing))

	dup := append([]Descriptor{}, Table...)
	dup = append(dup, Descriptor{Metric: Duration, Label: "Again", Scale: 1})
	assert.Error(t, ValidateTable(dup))

	zero := append([]Descriptor{}, Table...)
	zero[0].Scale = 0
	assert.Error(t, ValidateTable(zero))
}

func TestDelta(t *testing.T) {
	var before, after Vector
	before[SectorsWritten] = 10
	after[SectorsWritten] = 35
	before[MemFree] = 1000
	after[MemFree] = 400
	before[PidUTime] = 50
	after[PidUTime] = 80

	d := Delta(before, after)
	assert.Equal(t, 25.0, d[SectorsWritten])
	assert.Equal(t, 30.0, d[PidUTime])
	// not a delta metric, the after value is kept
	assert.Equal(t, 400.0, d[MemFree])

	// inputs are values, never modified
	assert.Equal(t, 10.0, before[SectorsWritten])
}

func TestNormalizeCPU(t *testing.T) {
	var v Vector
	v[PidUTime], v[PidSTime], v[PidTTime] = 150, 50, 200
	v[Rate] = 7

	NormalizeCPU(&v, 2)
	assert.Equal(t, 75.0, v[PidUTime])
	assert.Equal(t, 25.0, v[PidSTime])
	assert.Equal(t, 100.0, v[PidTTime])
	assert.Equal(t, 7.0, v[Rate])

	NormalizeCPU(&v, 0)
	assert.Equal(t, 75.0, v[PidUTime])
}

func TestSnapshot(t *testing.T) {
	data := t.TempDir()
	proc, sys := fakeRoots(t, data)

	c, err := NewCollector(proc, sys, fakePid)
	require.NoError(t, err)

	v := c.Snapshot(data)

	assert.Equal(t, 16384000.0, v[MemTotal])
	assert.Equal(t, 8192000.0, v[MemFree])
	assert.Equal(t, 12288000.0, v[MemAvailable])
	assert.Equal(t, 204800.0, v[MemBuffers])
	assert.Equal(t, 4096000.0, v[MemCached])
	assert.Equal(t, 1024.0, v[MemDirty])
	assert.Equal(t, 512.0, v[MemWriteback])

	assert.Equal(t, 1048576.0, v[PidIORChar])
	assert.Equal(t, 2097152.0, v[PidIOWChar])
	assert.Equal(t, 300.0, v[PidIOSyscR])
	assert.Equal(t, 400.0, v[PidIOSyscW])
	assert.Equal(t, 4096.0, v[PidIORead])
	assert.Equal(t, 8192.0, v[PidIOWrite])
	assert.Zero(t, v[PidIOCancelledWrite])

	// 250 and 50 ticks at 100 Hz
	assert.InDelta(t, 250.0, v[PidUTime], 1e-9)
	assert.InDelta(t, 50.0, v[PidSTime], 1e-9)
	assert.InDelta(t, 300.0, v[PidTTime], 1e-9)

	assert.Equal(t, 120000.0, v[SlabDentryCache])
	assert.Equal(t, 5000.0, v[SlabInodeCache])
	assert.Equal(t, 7000.0, v[SlabBufferHead])
	assert.Equal(t, 40.0, v[SlabBdevCache])
	assert.Zero(t, v[SlabBlkdevQueue])

	assert.Equal(t, 100.0, v[ReadsCompleted])
	assert.Equal(t, 5.0, v[ReadsMerged])
	assert.Equal(t, 800.0, v[SectorsRead])
	assert.Equal(t, 40.0, v[ReadTimeMs])
	assert.Equal(t, 200.0, v[WritesCompleted])
	assert.Equal(t, 10.0, v[WritesMerged])
	assert.Equal(t, 1600.0, v[SectorsWritten])
	assert.Equal(t, 60.0, v[WriteTimeMs])
	assert.Equal(t, 2.0, v[IOInProgress])
	assert.Equal(t, 90.0, v[IOTimeSpentMs])
	assert.Equal(t, 110.0, v[IOTimeSpentWeightedMs])

	// nothing the collector reads touches the throughput metrics
	assert.Zero(t, v[Duration])
	assert.Zero(t, v[Rate])
}

func TestSnapshotDegradesPerSource(t *testing.T) {
	data := t.TempDir()
	proc, sys := fakeRoots(t, data)
	require.NoError(t, os.Remove(filepath.Join(proc, "slabinfo")))
	require.NoError(t, os.Remove(filepath.Join(proc, "diskstats")))

	c, err := NewCollector(proc, sys, fakePid)
	require.NoError(t, err)

	v := c.Snapshot(data)
	assert.Zero(t, v[SlabDentryCache])
	assert.Zero(t, v[SectorsWritten])
	// the remaining sources still report
	assert.Equal(t, 16384000.0, v[MemTotal])
	assert.Equal(t, 400.0, v[PidIOSyscW])
}

func TestSnapshotUnknownDevice(t *testing.T) {
	data := t.TempDir()
	proc, sys := fakeRoots(t, data)
	require.NoError(t, os.WriteFile(filepath.Join(proc, "diskstats"),
		[]byte("7 0 loop0 1 0 2 0 0 0 0 0 0 0 0 0 0 0 0 0 0\n"), 0o600))

	c, err := NewCollector(proc, sys, fakePid)
	require.NoError(t, err)

	var v Vector
	assert.ErrorIs(t, c.readDiskstats(data, &v), ErrNoDevice)
}

func TestMemTotal(t *testing.T) {
	proc, sys := fakeRoots(t, t.TempDir())
	c, err := NewCollector(proc, sys, fakePid)
	require.NoError(t, err)

	total, err := c.MemTotal()
	require.NoError(t, err)
	assert.Equal(t, uint64(16384000*1024), total)
}

func TestDropCaches(t *testing.T) {
	proc, sys := fakeRoots(t, t.TempDir())
	c, err := NewCollector(proc, sys, fakePid)
	require.NoError(t, err)

	require.NoError(t, c.DropCaches())
	got, err := os.ReadFile(filepath.Join(proc, "sys", "vm", "drop_caches"))
	require.NoError(t, err)
	assert.Equal(t, "3", string(got))

	require.NoError(t, os.Remove(filepath.Join(proc, "sys", "vm", "drop_caches")))
	require.NoError(t, os.Remove(filepath.Join(proc, "sys", "vm")))
	assert.Error(t, c.DropCaches())
}

func TestNewCollectorMissingProc(t *testing.T) {
	_, err := NewCollector(filepath.Join(t.TempDir(), "nope"), "/sys", 1)
	assert.Error(t, err)
}
