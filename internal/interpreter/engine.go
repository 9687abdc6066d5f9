package interpreter

import (
	"fmt"

	"github.com/oss-fun/chiwawa/api"
	"github.com/oss-fun/chiwawa/internal/clog"
	"github.com/oss-fun/chiwawa/internal/wasm"
	"github.com/oss-fun/chiwawa/internal/wazeroir"
)

// HostBridge is the interface the call/call_indirect handlers invoke for
// host-imported functions (spec.md §6 "Host call bridge"). internal/
// hostbridge implements it; interpreter declares it locally so the two
// packages don't form an import cycle — hostbridge only needs api types,
// never anything from interpreter.
type HostBridge interface {
	Call(module, name string, args []api.Val) (results []api.Val, errno int32, err error)
}

// SafePointFunc is polled at every call-boundary safe point (spec.md §4.3
// "Safe point"); when it returns true, Run stops cleanly before entering the
// callee so the caller can serialize *Stacks and exit, rather than being
// consulted from inside a handler.
type SafePointFunc func() bool

// Engine owns the handler table, the compiled-code cache (keyed by
// FunctionAddr, per spec.md §9's "frame holds module by handle + lookup"
// decoupling of internal/wasm from internal/wazeroir/internal/interpreter),
// and the Store every Stacks it runs reads through.
type Engine struct {
	Store    *wasm.Store
	Fold     bool
	Bridge   HostBridge
	compiled map[wasm.FunctionAddr]*wazeroir.Result
}

func NewEngine(store *wasm.Store, fold bool, bridge HostBridge) *Engine {
	return &Engine{Store: store, Fold: fold, Bridge: bridge, compiled: map[wasm.FunctionAddr]*wazeroir.Result{}}
}

// compile lazily preprocesses a guest function's body on first use and
// caches the result, matching internal/wasm/function.go's documented
// "lazily populated on first invocation" contract.
func (e *Engine) compile(addr wasm.FunctionAddr) (*wazeroir.Result, error) {
	if r, ok := e.compiled[addr]; ok {
		return r, nil
	}
	fn := e.Store.Funcs[addr]
	if fn.Kind != wasm.FunctionKindGuest {
		return nil, fmt.Errorf("function %s is not a guest function", fn.DebugName)
	}
	r, err := wazeroir.Preprocess(fn.Module.SourceModule, fn.Idx, fn.Type, fn.Code, e.Fold)
	if err != nil {
		return nil, err
	}
	e.compiled[addr] = r
	return r, nil
}

// Invoke resolves name in mi's exports, builds a fresh Stacks, and runs it
// to completion. It is the entrypoint cmd/chiwawa uses for a normal
// (non-restore) run.
func (e *Engine) Invoke(mi *wasm.ModuleInstance, name string, args []api.Val, safePoint SafePointFunc) ([]api.Val, error) {
	_, vals, err := e.InvokeResumable(mi, name, args, safePoint)
	return vals, err
}

// InvokeResumable is Invoke, additionally returning the *Stacks used (see
// InvokeAddrResumable).
func (e *Engine) InvokeResumable(mi *wasm.ModuleInstance, name string, args []api.Val, safePoint SafePointFunc) (*Stacks, []api.Val, error) {
	exp, err := mi.LookupExport(name, api.ExternTypeFunc)
	if err != nil {
		return nil, nil, err
	}
	addr := mi.FuncAddrs[exp.Index]
	return e.InvokeAddrResumable(addr, args, safePoint)
}

// InvokeAddr is Invoke by Store address directly, used for the start
// function and for host->guest re-entrancy.
func (e *Engine) InvokeAddr(addr wasm.FunctionAddr, args []api.Val, safePoint SafePointFunc) ([]api.Val, error) {
	_, vals, err := e.InvokeAddrResumable(addr, args, safePoint)
	return vals, err
}

// InvokeAddrResumable is InvokeAddr but also returns the *Stacks the run
// used, even when it stops early with ErrCheckpointRequested — the caller
// (cmd/chiwawa, when --cr is set) needs that *Stacks to hand to
// internal/checkpoint.Checkpoint, since Run only ever leaves it in a safe,
// checkpointable state, it never serializes it itself.
func (e *Engine) InvokeAddrResumable(addr wasm.FunctionAddr, args []api.Val, safePoint SafePointFunc) (*Stacks, []api.Val, error) {
	stacks := &Stacks{}
	fs, err := e.newActivation(addr, args)
	if err != nil {
		return nil, nil, err
	}
	stacks.Push(fs)
	vals, err := e.Run(stacks, safePoint)
	return stacks, vals, err
}

func (e *Engine) newActivation(addr wasm.FunctionAddr, args []api.Val) (*FrameStack, error) {
	fn := e.Store.Funcs[addr]
	if fn.Kind == wasm.FunctionKindHost {
		return nil, fmt.Errorf("cannot create a guest activation for host function %s", fn.DebugName)
	}
	result, err := e.compile(addr)
	if err != nil {
		return nil, err
	}
	locals := make([]uint64, result.FrameLocalCount)
	localTypes := make([]api.ValueType, result.FrameLocalCount)
	for i, p := range fn.Type.Params {
		localTypes[i] = p
		if i < len(args) {
			lo, _ := args[i].Raw()
			locals[i] = lo
		}
	}
	copy(localTypes[len(fn.Type.Params):], fn.Code.LocalTypes)

	fs := &FrameStack{
		Frame: Frame{
			Locals:        locals,
			LocalTypes:    localTypes,
			FuncTypeArity: len(fn.Type.Results),
			Module:        fn.Module,
			FuncAddr:      addr,
			DebugName:     fn.DebugName,
		},
		ValueStack: make([]uint64, 0, result.MaxValueStackDepth),
	}
	// The function body's own implicit outer block is never pushed by a
	// block/loop/if handler (there is no such opcode for it), yet a br
	// targeting it falls out of Preprocess's virtual outer control frame as
	// target_ip == len(code) (see wazeroir.Preprocess's handling of the
	// compile-time outer frame). Pushing a matching root label here means
	// doBranch's generic depth+1 unwind never runs out of labels to pop.
	fs.Labels = append(fs.Labels, Label{
		Kind:                    LabelBlock,
		Arity:                   len(fn.Type.Results),
		ContinuationIP:          uint32(len(result.Code)),
		ValueStackHeightAtEntry: 0,
	})
	return fs, nil
}

// Run drives the inner dispatch loop (spec.md §4.2 "Inner loop") until the
// activation stack empties (the call completes) or a safe point requests a
// checkpoint, in which case Run returns (nil, ErrCheckpointRequested) and
// leaves stacks exactly as it was at the safe point so the caller can
// serialize it.
func (e *Engine) Run(stacks *Stacks, safePoint SafePointFunc) ([]api.Val, error) {
	for {
		fs := stacks.Current()
		if fs == nil {
			return nil, fmt.Errorf("run called with no active frame")
		}
		code, err := e.compile(fs.Frame.FuncAddr)
		if err != nil {
			return nil, err
		}

		result, trap := e.runFrame(stacks, fs, code.Code)
		if trap != nil {
			return nil, trap
		}

		switch result.Kind {
		case ResultReturn:
			results, done := e.handleReturn(stacks, fs)
			if done {
				return results, nil
			}
		case ResultInvoke:
			if safePoint != nil && safePoint() {
				return nil, ErrCheckpointRequested
			}
			// Past the safe point the call is committed: the caller resumes
			// at the instruction after it once the callee returns.
			fs.IP++
			callee := e.Store.Funcs[result.InvokeAddr]
			if callee.Kind == wasm.FunctionKindHost {
				if err := e.callHost(fs, callee); err != nil {
					return nil, err
				}
				continue
			}
			args := fs.popN(result.InvokeArity)
			argVals := rawToVals(args, callee.Type.Params)
			calleeFS, err := e.newActivation(result.InvokeAddr, argVals)
			if err != nil {
				return nil, err
			}
			stacks.Push(calleeFS)
		default:
			return nil, fmt.Errorf("unexpected top-level handler result kind %d", result.Kind)
		}
	}
}

// ErrCheckpointRequested is returned by Run when a safe point fires; the
// caller (cmd/chiwawa, through internal/checkpoint.Checkpoint) serializes
// stacks itself, since
// Run has already left it in a consistent, safe-point state.
var ErrCheckpointRequested = fmt.Errorf("checkpoint requested at safe point")

func (e *Engine) handleReturn(stacks *Stacks, fs *FrameStack) ([]api.Val, bool) {
	results := fs.popN(fs.Frame.FuncTypeArity)
	stacks.Pop()
	if len(stacks.Activation) == 0 {
		fn := e.Store.Funcs[fs.Frame.FuncAddr]
		return rawToVals(results, fn.Type.Results), true
	}
	caller := stacks.Current()
	caller.pushN(results)
	return nil, false
}

func (e *Engine) callHost(fs *FrameStack, callee *wasm.FunctionInstance) error {
	argsRaw := fs.popN(len(callee.Type.Params))
	args := rawToVals(argsRaw, callee.Type.Params)
	if e.Bridge == nil {
		return &wasm.Trap{Code: wasm.TrapCodeUnreachable, Function: callee.DebugName}
	}
	results, errno, err := e.Bridge.Call(callee.HostImportModule, callee.HostImportName, args)
	if err != nil {
		clog.Warnf("host call %s.%s failed: %v", callee.HostImportModule, callee.HostImportName, err)
		return err
	}
	_ = errno // host errno is carried in results per the bridge's own ABI convention; never unwinds frames (spec.md §7)
	for _, r := range results {
		lo, _ := r.Raw()
		fs.push(lo)
	}
	return nil
}

func rawToVals(raw []uint64, types []api.ValueType) []api.Val {
	vals := make([]api.Val, len(raw))
	for i, v := range raw {
		t := api.ValueTypeI64
		if i < len(types) {
			t = types[i]
		}
		vals[i] = api.FromRaw(t, v, 0)
	}
	return vals
}
