package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	log "github.com/colorfulnotion/regvm/log"
	"github.com/colorfulnotion/regvm/rvm"
	"github.com/colorfulnotion/regvm/rvm/debugger"
	"github.com/colorfulnotion/regvm/rvm/ops"
	"github.com/colorfulnotion/regvm/rvm/program"
	"github.com/colorfulnotion/regvm/rvm/trace"
	"github.com/colorfulnotion/regvm/types"
	"github.com/colorfulnotion/regvm/vmerrors"
)

func vmOptions(cfg *types.RunConfig, out io.Writer) []rvm.Option {
	opts := []rvm.Option{rvm.WithOutput(out), rvm.WithDebug(cfg.Debug)}
	if cfg.Seed != nil {
		opts = append(opts, rvm.WithRandom(rvm.NewSeededSource(*cfg.Seed)))
	}
	return opts
}

// runImage executes the image at path to completion. On a VM failure the
// error and a register dump go to stderr and errFault is returned.
func runImage(ctx context.Context, cfg *types.RunConfig, path string, stdout, stderr io.Writer) (err error) {
	image, err := program.LoadImage(path)
	if err != nil {
		return err
	}
	runID := uuid.New()
	logger := log.New("run", runID.String())
	logger.Info(log.CliMonitoring, "run started", "image", path, "size", len(image), "seed", cfg.Seed != nil)

	out := bufio.NewWriter(stdout)
	opts := vmOptions(cfg, out)

	if cfg.Trace != "" {
		tw, terr := trace.NewJSONLTraceWriterFile(cfg.Trace)
		if terr != nil {
			return fmt.Errorf("open trace: %w", terr)
		}
		defer func() {
			if cerr := tw.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close trace: %w", cerr)
			}
		}()
		header := &trace.Header{RunID: runID.String(), Image: path, ImageSize: uint64(len(image)), Started: time.Now().UTC()}
		if herr := tw.WriteHeader(header); herr != nil {
			return fmt.Errorf("write trace header: %w", herr)
		}
		opts = append(opts, rvm.WithTracer(tw))
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	vm := ops.NewVM(image, opts...)
	start := time.Now()
	runErr := vm.Run(ctx)
	if ferr := out.Flush(); ferr != nil && runErr == nil {
		runErr = fmt.Errorf("flush output: %w", ferr)
	}

	if cfg.Stats {
		fmt.Fprintf(stderr, "ticks: %s  heap: %s in %d segments  elapsed: %s\n",
			humanize.Comma(int64(vm.Ticks())), humanize.Bytes(vm.HeapSize()), vm.Heap().Len(), time.Since(start).Round(time.Microsecond))
	}
	if runErr != nil {
		logger.Error(log.CliMonitoring, "run failed", "err", runErr, "code", vmerrors.GetErrorCodeWithName(runErr), "ticks", vm.Ticks())
		fmt.Fprintf(stderr, "error: %v\n", runErr)
		vm.DumpRegisters(stderr)
		return fmt.Errorf("%w: %v", errFault, runErr)
	}
	logger.Info(log.CliMonitoring, "run finished", "ticks", vm.Ticks(), "heap", vm.HeapSize())
	return nil
}

func debugImage(cfg *types.RunConfig, path, history string, stdout io.Writer) error {
	image, err := program.LoadImage(path)
	if err != nil {
		return err
	}
	vm := ops.NewVM(image, vmOptions(cfg, stdout)...)
	return debugger.New(vm, stdout).Run(history)
}
