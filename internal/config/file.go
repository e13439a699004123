package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jessegalley/fsbench/internal/logging"
)

// File is the on-disk form of a run configuration. Keys match the long
// command line flag names so a file can be written from a command line.
//
//	test: rd_rnd
//	path: /mnt/scratch
//	block: 4k
//	length: 1g
//	threads: 8
//	repeats: 5
//	direct: true
type File struct {
	Test        string `yaml:"test"`
	Path        string `yaml:"path"`
	Block       string `yaml:"block"`
	Length      string `yaml:"length"`
	Blocks      uint64 `yaml:"blocks"`
	Threads     int    `yaml:"threads"`
	Repeats     int    `yaml:"repeats"`
	NoAtime     bool   `yaml:"noatime"`
	Direct      bool   `yaml:"direct"`
	Sync        bool   `yaml:"sync"`
	Human       bool   `yaml:"human"`
	ThreadStats bool   `yaml:"thread-stats"`
	Output      string `yaml:"output"`
}

// LoadFile reads a YAML run configuration file
func LoadFile(fn string) (*File, error) {
	logging.Debugf("reading configuration file %s", fn)
	buf, err := os.ReadFile(fn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	var f File
	if err := yaml.Unmarshal(buf, &f); err != nil {
		return nil, fmt.Errorf("%w: in file %q: %v", ErrConfig, fn, err)
	}
	return &f, nil
}

// Apply copies every value set in the file into c, skipping the keys for
// which override reports true. override is normally "was this flag given
// on the command line".
func (f *File) Apply(c *RunConfig, override func(key string) bool) error {
	if override == nil {
		override = func(string) bool { return false }
	}

	setString := func(key, v string, dst *string) {
		if v != "" && !override(key) {
			*dst = v
		}
	}
	setBool := func(key string, v bool, dst *bool) {
		if v && !override(key) {
			*dst = v
		}
	}
	setInt := func(key string, v int, dst *int) {
		if v != 0 && !override(key) {
			*dst = v
		}
	}
	setSize := func(key, v string, dst *uint64) error {
		if v == "" || override(key) {
			return nil
		}
		n, err := ParseSize(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	setString("test", f.Test, &c.Test)
	setString("path", f.Path, &c.Path)
	setString("output", f.Output, &c.Output)
	setInt("threads", f.Threads, &c.Threads)
	setInt("repeats", f.Repeats, &c.Repeats)
	setBool("noatime", f.NoAtime, &c.NoAtime)
	setBool("direct", f.Direct, &c.Direct)
	setBool("sync", f.Sync, &c.Sync)
	setBool("human", f.Human, &c.Human)
	setBool("thread-stats", f.ThreadStats, &c.ThreadStats)

	if f.Blocks != 0 && !override("blocks") {
		c.Blocks = f.Blocks
	}
	if err := setSize("block", f.Block, &c.BlockSize); err != nil {
		return err
	}
	return setSize("length", f.Length, &c.FileSize)
}
