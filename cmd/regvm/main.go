// regvm runs register VM program images.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	log "github.com/colorfulnotion/regvm/log"
	"github.com/colorfulnotion/regvm/rvm/program"
	"github.com/colorfulnotion/regvm/types"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// errFault marks a VM failure that has already been reported.
var errFault = errors.New("vm fault")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

type flagValues struct {
	configPath string
	debug      bool
	logLevel   string
	logModules string
	trace      string
	seed       uint64
	timeout    time.Duration
	stats      bool
	history    string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var fv flagValues

	rootCmd := &cobra.Command{
		Use:   "regvm [-d|--debug] <image-file>",
		Short: "Register VM",
		Long: `regvm executes a program image on a register virtual machine with 16 typed
registers, a read-only image and an append-only heap.`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, &fv)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			err = runImage(cmd.Context(), cfg, args[0], stdout, stderr)
			if errors.Is(err, errFault) {
				cmd.SilenceErrors = true
			}
			return err
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&fv.configPath, "config", "", "YAML run configuration")
	pf.BoolVarP(&fv.debug, "debug", "d", false, "log every executed instruction")
	pf.StringVar(&fv.logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error, crit)")
	pf.StringVar(&fv.logModules, "log-modules", "", "comma separated modules to enable debug logs for")
	pf.Uint64Var(&fv.seed, "seed", 0, "seed RANDOM for reproducible runs")

	f := rootCmd.Flags()
	f.StringVar(&fv.trace, "trace", "", "write a JSON Lines execution trace to this file")
	f.DurationVar(&fv.timeout, "timeout", 0, "abort the run after this long (0 = no limit)")
	f.BoolVar(&fv.stats, "stats", false, "print tick and heap statistics to stderr")

	disasmCmd := &cobra.Command{
		Use:   "disasm <image-file>",
		Short: "Disassemble a program image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := program.LoadImage(args[0])
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			text, err := program.DisassembleString(image)
			fmt.Fprint(stdout, text)
			return err
		},
	}

	debugCmd := &cobra.Command{
		Use:   "debug <image-file>",
		Short: "Step through a program interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, &fv)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			return debugImage(cfg, args[0], fv.history, stdout)
		},
	}
	debugCmd.Flags().StringVar(&fv.history, "history", "", "readline history file")

	rootCmd.AddCommand(disasmCmd, debugCmd)
	return rootCmd
}

// resolveConfig layers explicitly set flags over the config file and sets up
// logging.
func resolveConfig(cmd *cobra.Command, fv *flagValues) (*types.RunConfig, error) {
	cfg := types.DefaultRunConfig()
	if fv.configPath != "" {
		loaded, err := types.LoadRunConfig(fv.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug = fv.debug
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if flags.Changed("log-modules") {
		cfg.LogModules = fv.logModules
	}
	if flags.Changed("seed") {
		seed := fv.seed
		cfg.Seed = &seed
	}
	if flags.Lookup("trace") != nil && flags.Changed("trace") {
		cfg.Trace = fv.trace
	}
	if flags.Lookup("timeout") != nil && flags.Changed("timeout") {
		cfg.Timeout = fv.timeout
	}
	if flags.Lookup("stats") != nil && flags.Changed("stats") {
		cfg.Stats = fv.stats
	}

	level := cfg.LogLevel
	if cfg.Debug && level != "trace" {
		level = "debug"
	}
	if err := log.InitLogger(level); err != nil {
		return nil, err
	}
	log.EnableModules(cfg.LogModules)
	if cfg.Debug {
		log.EnableModule(log.RvmMonitoring)
	}
	log.Debug(log.CliMonitoring, "config", "cfg", cfg.String())
	return cfg, nil
}
