package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/procfs"
	"github.com/prometheus/procfs/blockdevice"
	"golang.org/x/sys/unix"

	"github.com/jessegalley/fsbench/internal/logging"
)

const (
	// DefaultProcRoot and DefaultSysRoot are the usual pseudo filesystem mounts
	DefaultProcRoot = procfs.DefaultMountPoint
	DefaultSysRoot  = "/sys"

	// userHZ is the unit of the utime and stime fields of /proc/<pid>/stat
	userHZ = 100
)

// ErrNoDevice is returned when diskstats has no entry for the device
// backing the test path
var ErrNoDevice = errors.New("device not found in diskstats")

// Collector reads kernel counters for one process and one filesystem.
// It is used by a single goroutine.
type Collector struct {
	procRoot string
	proc     procfs.FS
	block    blockdevice.FS
	blockErr error
	pid      int

	// sources that already logged a warning
	warned map[string]bool
}

// NewCollector returns a collector reading the proc and sys trees mounted
// at procRoot and sysRoot, attributing process counters to pid
func NewCollector(procRoot, sysRoot string, pid int) (*Collector, error) {
	proc, err := procfs.NewFS(procRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs at %s: %w", procRoot, err)
	}

	c := &Collector{
		procRoot: procRoot,
		proc:     proc,
		pid:      pid,
		warned:   map[string]bool{},
	}

	// a missing sys tree only costs the device metrics
	c.block, c.blockErr = blockdevice.NewFS(procRoot, sysRoot)

	return c, nil
}

// NewSelfCollector returns a collector for this process on the default mounts
func NewSelfCollector() (*Collector, error) {
	return NewCollector(DefaultProcRoot, DefaultSysRoot, os.Getpid())
}

// Snapshot reads every counter source. path selects the block device whose
// diskstats are read. A source that cannot be read is logged and leaves its
// metrics at zero; the other sources are unaffected.
func (c *Collector) Snapshot(path string) Vector {
	var v Vector

	sources := []struct {
		name string
		read func(*Vector) error
	}{
		{"process stat", c.readProcStat},
		{"slabinfo", c.readSlabInfo},
		{"diskstats", func(v *Vector) error { return c.readDiskstats(path, v) }},
		{"process io", c.readProcIO},
		{"meminfo", c.readMeminfo},
	}

	for _, src := range sources {
		if err := src.read(&v); err != nil {
			c.warn(src.name, err)
		}
	}

	return v
}

// warn logs the first failure of each source at warn level, repeats go to
// debug
func (c *Collector) warn(source string, err error) {
	if c.warned[source] {
		logging.Debugf("cannot read %s: %v", source, err)
		return
	}
	c.warned[source] = true
	logging.Warnf("cannot read %s, its metrics will be zero: %v", source, err)
}

// readDiskstats matches the major and minor number of path's device
// against diskstats
func (c *Collector) readDiskstats(path string, v *Vector) error {
	if c.blockErr != nil {
		return c.blockErr
	}

	major, minor, err := DeviceOf(path)
	if err != nil {
		return err
	}

	stats, err := c.block.ProcDiskstats()
	if err != nil {
		return err
	}

	for _, d := range stats {
		if d.MajorNumber != major || d.MinorNumber != minor {
			continue
		}
		v[ReadsCompleted] = float64(d.ReadIOs)
		v[ReadsMerged] = float64(d.ReadMerges)
		v[SectorsRead] = float64(d.ReadSectors)
		v[ReadTimeMs] = float64(d.ReadTicks)
		v[WritesCompleted] = float64(d.WriteIOs)
		v[WritesMerged] = float64(d.WriteMerges)
		v[SectorsWritten] = float64(d.WriteSectors)
		v[WriteTimeMs] = float64(d.WriteTicks)
		v[IOInProgress] = float64(d.IOsInProgress)
		v[IOTimeSpentMs] = float64(d.IOsTotalTicks)
		v[IOTimeSpentWeightedMs] = float64(d.WeightedIOTicks)
		return nil
	}

	return fmt.Errorf("%w: %d:%d (%s)", ErrNoDevice, major, minor, path)
}

// DeviceOf returns the major and minor number of the device holding path
func DeviceOf(path string) (uint32, uint32, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	dev := uint64(st.Dev)
	return unix.Major(dev), unix.Minor(dev), nil
}

func (c *Collector) readProcIO(v *Vector) error {
	p, err := c.proc.Proc(c.pid)
	if err != nil {
		return err
	}
	pio, err := p.IO()
	if err != nil {
		return err
	}

	v[PidIORChar] = float64(pio.RChar)
	v[PidIOWChar] = float64(pio.WChar)
	v[PidIOSyscR] = float64(pio.SyscR)
	v[PidIOSyscW] = float64(pio.SyscW)
	v[PidIORead] = float64(pio.ReadBytes)
	v[PidIOWrite] = float64(pio.WriteBytes)
	v[PidIOCancelledWrite] = float64(pio.CancelledWriteBytes)
	return nil
}

// readProcStat stores CPU time as percent seconds, NormalizeCPU later turns
// the round delta into a percentage
func (c *Collector) readProcStat(v *Vector) error {
	p, err := c.proc.Proc(c.pid)
	if err != nil {
		return err
	}
	st, err := p.Stat()
	if err != nil {
		return err
	}

	v[PidUTime] = 100 * float64(st.UTime) / userHZ
	v[PidSTime] = 100 * float64(st.STime) / userHZ
	v[PidTTime] = 100 * float64(st.UTime+st.STime) / userHZ
	return nil
}

// slab caches of interest, by slabinfo name
var slabMetrics = map[string]Metric{
	"blkdev_queue":    SlabBlkdevQueue,
	"blkdev_requests": SlabBlkdevRequests,
	"bdev_cache":      SlabBdevCache,
	"buffer_head":     SlabBufferHead,
	"inode_cache":     SlabInodeCache,
	"dentry":          SlabDentryCache,
}

func (c *Collector) readSlabInfo(v *Vector) error {
	info, err := c.proc.SlabInfo()
	if err != nil {
		return err
	}

	for _, s := range info.Slabs {
		if m, ok := slabMetrics[s.Name]; ok {
			v[m] = float64(s.ObjActive)
		}
	}
	return nil
}

func (c *Collector) readMeminfo(v *Vector) error {
	mi, err := c.proc.Meminfo()
	if err != nil {
		return err
	}

	set := func(m Metric, kb *uint64) {
		if kb != nil {
			v[m] = float64(*kb)
		}
	}
	set(MemTotal, mi.MemTotal)
	set(MemFree, mi.MemFree)
	set(MemAvailable, mi.MemAvailable)
	set(MemBuffers, mi.Buffers)
	set(MemCached, mi.Cached)
	set(MemDirty, mi.Dirty)
	set(MemWriteback, mi.Writeback)
	return nil
}

// MemTotal returns the size of physical memory in bytes
func (c *Collector) MemTotal() (uint64, error) {
	mi, err := c.proc.Meminfo()
	if err != nil {
		return 0, err
	}
	if mi.MemTotal == nil {
		return 0, fmt.Errorf("MemTotal missing from meminfo")
	}
	return *mi.MemTotal * 1024, nil
}

// DropCaches flushes dirty data and drops the page cache, dentries and
// inodes. It needs root.
func (c *Collector) DropCaches() error {
	unix.Sync()

	fn := filepath.Join(c.procRoot, "sys", "vm", "drop_caches")
	for _, level := range []string{"1", "2", "3"} {
		if err := os.WriteFile(fn, []byte(level), 0200); err != nil {
			return fmt.Errorf("cannot drop caches, need to run as root: %w", err)
		}
	}
	return nil
}
