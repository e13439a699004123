package cmd

import (
	"github.com/spf13/pflag"

	"github.com/jessegalley/fsbench/internal/config"
)

// sizeValue is a byte count flag accepting b, k, m and g suffixes
type sizeValue uint64

var _ pflag.Value = (*sizeValue)(nil)

func (s *sizeValue) String() string {
	return config.FormatSize(uint64(*s))
}

func (s *sizeValue) Set(val string) error {
	n, err := config.ParseSize(val)
	if err != nil {
		return err
	}
	*s = sizeValue(n)
	return nil
}

func (s *sizeValue) Type() string {
	return "size"
}
