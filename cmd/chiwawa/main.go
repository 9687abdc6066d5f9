// Command chiwawa is the CLI entrypoint wiring the execution core together
// (spec.md §6 "CLI (reference surface)"): decode a .wasm file, instantiate
// it against a fixed WASI host bridge, invoke an exported function (or
// restore from a prior checkpoint first), and watch for a checkpoint
// trigger while it runs. This is intentionally thin — spec.md §1 excludes
// the CLI surface itself from the execution core.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oss-fun/chiwawa/api"
	"github.com/oss-fun/chiwawa/internal/checkpoint"
	"github.com/oss-fun/chiwawa/internal/clog"
	"github.com/oss-fun/chiwawa/internal/config"
	"github.com/oss-fun/chiwawa/internal/hostbridge"
	"github.com/oss-fun/chiwawa/internal/interpreter"
	"github.com/oss-fun/chiwawa/internal/wasm"
	"github.com/oss-fun/chiwawa/internal/wasm/binary"
)

type flags struct {
	invoke string
	params string
	// appArgs is accepted for CLI-surface parity with spec.md §6 but not
	// yet threaded into the WASI bridge: args_get/args_sizes_get need
	// access to the calling instance's linear memory to write argv into,
	// which the fixed signature-only Bridge interface doesn't expose.
	appArgs           string
	cr                bool
	restore           string
	superinstructions bool
	stats             bool
	trace             bool
	traceEvents       string
	traceResource     string
	logLevel          string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "chiwawa [OPTIONS] <WASM_FILE>",
		Short: "A checkpoint/restore-capable WebAssembly interpreter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f, args[0])
		},
		SilenceUsage: true,
	}

	flagset := cmd.Flags()
	flagset.StringVar(&f.invoke, "invoke", "_start", "entry point")
	flagset.StringVar(&f.params, "params", "", "I32(n) | I64(n) | F32(x) | F64(x), comma-separated")
	flagset.StringVar(&f.appArgs, "app-args", "", "argv[1..] for the guest WASI program")
	flagset.BoolVar(&f.cr, "cr", false, "enable checkpoint/restore")
	flagset.StringVar(&f.restore, "restore", "", "restore before execution")
	flagset.BoolVar(&f.superinstructions, "superinstructions", false, "enable operand/store folding")
	flagset.BoolVar(&f.stats, "stats", false, "emit execution counters")
	flagset.BoolVar(&f.trace, "trace", false, "enable event tracing")
	flagset.StringVar(&f.traceEvents, "trace-events", "", "subset of {all, store, load, call, branch}")
	flagset.StringVar(&f.traceResource, "trace-resource", "", "subset of {regs, memory, locals, globals, pc}")
	flagset.StringVar(&f.logLevel, "log-level", "info", "clog level")

	return cmd
}

func run(f *flags, wasmPath string) error {
	if err := clog.SetLevel(f.logLevel); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}

	cfg := config.New(
		config.WithSuperinstructions(f.superinstructions),
		config.WithStats(f.stats),
		config.WithTrace(f.trace),
		config.WithTraceEvents(f.traceEvents != ""),
		config.WithTraceResource(f.traceResource != ""),
		config.WithRestorePath(f.restore),
		config.WithTriggerPath(filepath.Join(filepath.Dir(wasmPath), "checkpoint.trigger")),
		config.WithCheckpointDir(filepath.Dir(wasmPath)),
		config.WithLogLevel(f.logLevel),
	)

	params, err := parseParams(f.params)
	if err != nil {
		return err
	}

	buf, err := os.ReadFile(wasmPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", wasmPath, err)
	}
	mod, err := binary.DecodeModule(buf)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", wasmPath, err)
	}

	store := wasm.NewStore()
	bridge := hostbridge.NewWASIPreview1Bridge()
	hostImports := make([]wasm.HostImport, 0, len(bridge.Imports()))
	for _, imp := range bridge.Imports() {
		hostImports = append(hostImports, wasm.HostImport{Module: imp.Module, Name: imp.Name, Type: imp.Type})
	}

	mi, err := store.Instantiate("root", mod, hostImports, bridge)
	if err != nil {
		return fmt.Errorf("instantiating %s: %w", wasmPath, err)
	}

	engine := interpreter.NewEngine(store, f.superinstructions, bridge)

	// A restore re-instantiates the module fresh and then overwrites its
	// state from the checkpoint (internal/checkpoint.Restore), so running
	// start here would execute it once as part of this fresh instantiation
	// and then leave its host-visible side effects (e.g. WASI output)
	// duplicated alongside whatever the checkpointed run already produced.
	if f.restore == "" {
		if idx, ok := mi.PendingStart(); ok {
			if _, err := engine.InvokeAddr(mi.FuncAddrs[idx], nil, nil); err != nil {
				return reportRunError(err)
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var trigger *checkpoint.Trigger
	var safePoint interpreter.SafePointFunc
	if f.cr {
		trigger, err = checkpoint.NewFromConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("starting checkpoint trigger: %w", err)
		}
		defer trigger.Stop()
		safePoint = trigger.SafePoint(cfg)
	}

	var stacks *interpreter.Stacks
	var vals []api.Val
	if f.restore != "" {
		stacks, err = checkpoint.Restore(store, mi, f.restore)
		if err != nil {
			return fmt.Errorf("restoring %s: %w", f.restore, err)
		}
		vals, err = engine.Run(stacks, safePoint)
	} else {
		stacks, vals, err = engine.InvokeResumable(mi, f.invoke, params, safePoint)
	}

	if err == interpreter.ErrCheckpointRequested {
		path := filepath.Join(cfg.CheckpointDir, "checkpoint.bin")
		if cerr := checkpoint.Checkpoint(stacks, store, mi, path); cerr != nil {
			return fmt.Errorf("writing checkpoint: %w", cerr)
		}
		// spec.md §6: "On checkpoint, the process terminates after writing
		// checkpoint.bin."
		return nil
	}
	if err != nil {
		return reportRunError(err)
	}
	for _, v := range vals {
		fmt.Println(v)
	}
	return nil
}

func reportRunError(err error) error {
	if trap, ok := err.(*wasm.Trap); ok {
		clog.Errorf("trap: %s (function %s, ip %d)", trap.Code, trap.Function, trap.IP)
		return err
	}
	clog.Errorf("execution failed: %v", err)
	return err
}
