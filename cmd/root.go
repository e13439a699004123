/*
Copyright © 2025 jesse galley <jesse@jessegalley.net>
*/
package cmd

import (
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/jessegalley/fsbench/internal/logging"
)

// program flags shared by every subcommand
var (
	version    bool   // print version and exit
	debug      bool   // debug logging
	configFile string // optional yaml run configuration
	cpuProfile string // write a cpu profile here
)

// program info const
const progVersion string = "0.3.0"
const progAuthor string = "jesse galley <jesse@jessegalley.net>"

var profileFile *os.File

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fsbench",
	Short: "Measure filesystem i/o performance.",
	Long: `fsbench runs a selected read/write workload against a test file in the
target directory for a number of rounds, samples process, memory, slab and
block device counters around each round and reports min/max/average/stddev
of every metric across the rounds.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// check if version flag was set
		if version {
			fmt.Printf("fsbench v%s\n%s\ngithub.com/jessegalley/fsbench\n", progVersion, progAuthor)
			os.Exit(0)
		}

		if debug {
			logging.SetDebug()
		}

		if cpuProfile != "" {
			f, err := os.Create(cpuProfile)
			if err != nil {
				return fmt.Errorf("cannot create cpu profile: %w", err)
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				f.Close()
				return fmt.Errorf("cannot start cpu profile: %w", err)
			}
			profileFile = f
			logging.Debugf("writing cpu profile to %s", cpuProfile)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	stopProfile()
	if err != nil {
		os.Exit(1)
	}
}

func stopProfile() {
	if profileFile == nil {
		return
	}
	pprof.StopCPUProfile()
	profileFile.Close()
	profileFile = nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&version, "version", "V", false, "print version and exit")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "yaml run configuration, flags given on the command line take precedence")
	rootCmd.PersistentFlags().StringVar(&cpuProfile, "cpuprofile", "", "write a cpu profile of fsbench itself to this file")
}
