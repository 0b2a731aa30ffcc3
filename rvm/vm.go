package rvm

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"github.com/colorfulnotion/regvm/log"
	"github.com/colorfulnotion/regvm/rvm/program"
	"github.com/colorfulnotion/regvm/rvm/trace"
	"github.com/colorfulnotion/regvm/vmerrors"
)

// Handler executes one instruction. The opcode byte has already been
// consumed; the handler fetches its own operands. It returns false to halt.
type Handler interface {
	Execute(vm *VM) (bool, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(vm *VM) (bool, error)

func (f HandlerFunc) Execute(vm *VM) (bool, error) { return f(vm) }

// Module is a group of handlers that binds itself into a VM.
type Module interface {
	Attach(vm *VM)
}

// Tracer receives one record per executed tick.
type Tracer interface {
	WriteStep(step *trace.TraceStep) error
}

// VM is a single-threaded register machine executing a read-only program
// image followed by an append-only heap.
type VM struct {
	image    []byte
	regs     Registers
	heap     *Heap
	handlers [256]Handler
	opcode   program.Opcode
	ticks    uint64
	debug    bool

	out    io.Writer
	random io.Reader
	tracer Tracer

	// heap bytes written during the current tick
	dirty            bool
	dirtyLo, dirtyHi uint64
}

type Option func(*VM)

// WithOutput sets the sink of the PRINT_* instructions.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithRandom sets the byte source of RANDOM.
func WithRandom(r io.Reader) Option {
	return func(vm *VM) { vm.random = r }
}

func WithDebug(debug bool) Option {
	return func(vm *VM) { vm.debug = debug }
}

func WithTracer(t Tracer) Option {
	return func(vm *VM) { vm.tracer = t }
}

// WithModules attaches handler modules in order; later modules win on
// conflicting opcodes.
func WithModules(modules ...Module) Option {
	return func(vm *VM) { vm.Use(modules...) }
}

// New creates a VM over image. An empty image leaves the VM unloaded.
func New(image []byte, opts ...Option) *VM {
	vm := &VM{
		heap:   NewHeap(uint64(len(image))),
		out:    os.Stdout,
		random: rand.Reader,
	}
	vm.image = image
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Load replaces the program image and resets the PC. Registers, ticks and
// existing heap segments are kept. Once the heap has segments the new image
// must fit below the heap start; a longer image is rejected and nothing
// changes.
func (vm *VM) Load(image []byte) error {
	if vm.heap.Len() > 0 && uint64(len(image)) > vm.heap.Base() {
		return fmt.Errorf("%w: image of %d bytes overlaps the heap at %d", vmerrors.ErrOutOfBounds, len(image), vm.heap.Base())
	}
	vm.image = image
	vm.heap.Rebase(uint64(len(image)))
	vm.regs.ResetPC()
	return nil
}

// Use attaches handler modules.
func (vm *VM) Use(modules ...Module) {
	for _, m := range modules {
		m.Attach(vm)
	}
}

// Register binds h to op, replacing any previous binding.
func (vm *VM) Register(op program.Opcode, h Handler) {
	vm.handlers[op] = h
}

// Bound reports whether op has a handler.
func (vm *VM) Bound(op program.Opcode) bool {
	return vm.handlers[op] != nil
}

// Fetch8 returns the image byte at PC and advances PC.
func (vm *VM) Fetch8() (byte, error) {
	pc := vm.regs.PC()
	if pc >= uint64(len(vm.image)) {
		return 0, fmt.Errorf("%w: fetch at pc %d, image is %d bytes", vmerrors.ErrOutOfBounds, pc, len(vm.image))
	}
	vm.regs.AdvancePC()
	return vm.image[pc], nil
}

// FetchOpcode fetches the next byte and records it as the current opcode.
func (vm *VM) FetchOpcode() (program.Opcode, error) {
	b, err := vm.Fetch8()
	if err != nil {
		return 0, err
	}
	vm.opcode = program.Opcode(b)
	return vm.opcode, nil
}

// Opcode is the opcode of the instruction being executed.
func (vm *VM) Opcode() program.Opcode { return vm.opcode }

// Step executes exactly one instruction. It returns false when the program
// halted; a non-nil error aborts execution and leaves the state as it was at
// the point of failure.
func (vm *VM) Step() (bool, error) {
	pc := vm.regs.PC()
	op, err := vm.FetchOpcode()
	if err != nil {
		return false, err
	}
	vm.ticks++
	if vm.debug && log.Root().Enabled(context.Background(), log.LevelDebug) {
		log.Root().Debug(log.RvmMonitoring, op.String(), "pc", pc, "tick", vm.ticks)
	}
	vm.dirty = false

	cont, err := vm.dispatch(op, pc)
	if vm.tracer != nil {
		if terr := vm.traceStep(pc, op, cont, err); terr != nil && err == nil {
			return false, fmt.Errorf("trace tick %d: %w", vm.ticks, terr)
		}
	}
	return cont, err
}

func (vm *VM) dispatch(op program.Opcode, pc uint64) (bool, error) {
	h := vm.handlers[op]
	if h == nil {
		return false, fmt.Errorf("%w: 0x%02x at pc %d", vmerrors.ErrInvalidOpcode, byte(op), pc)
	}
	return h.Execute(vm)
}

func (vm *VM) traceStep(pc uint64, op program.Opcode, cont bool, stepErr error) error {
	step := trace.NewTraceStep(vm.ticks, pc, uint8(op), op.String())
	step.PostPC = vm.regs.PC()
	regs := vm.regs.Snapshot()
	step.SetPostRegister(&regs)
	if vm.dirty {
		length := vm.dirtyHi - vm.dirtyLo + 1
		if data, err := vm.ReadBytes(vm.dirtyLo, length); err == nil {
			step.SetChangedMemory(vm.dirtyLo, length, data)
		}
	}
	step.Halted = !cont && stepErr == nil
	step.SetError(stepErr)
	return vm.tracer.WriteStep(step)
}

// Run steps until the program halts, fails or ctx is done.
func (vm *VM) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		cont, err := vm.Step()
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}

// ReadMemory reads one byte of the unified address space: the image first,
// then the heap.
func (vm *VM) ReadMemory(addr uint64) (byte, error) {
	if addr < uint64(len(vm.image)) {
		return vm.image[addr], nil
	}
	seg, err := vm.segmentFor(addr)
	if err != nil {
		return 0, err
	}
	return seg.Get(addr)
}

// WriteMemory writes one heap byte. The image is read-only.
func (vm *VM) WriteMemory(addr uint64, b byte) error {
	seg, err := vm.writableSegment(addr)
	if err != nil {
		return err
	}
	if err := seg.Set(addr, b); err != nil {
		return err
	}
	vm.markDirty(addr)
	return nil
}

// ReadBytes reads n consecutive bytes starting at addr. Both ends of the range
// are checked before anything is read.
func (vm *VM) ReadBytes(addr, n uint64) ([]byte, error) {
	if n > 0 {
		last := addr + n - 1
		if last < addr {
			return nil, fmt.Errorf("%w: %d bytes at %d wrap the address space", vmerrors.ErrOutOfBounds, n, addr)
		}
		if _, err := vm.ReadMemory(last); err != nil {
			return nil, err
		}
	}
	out := make([]byte, n)
	for i := uint64(0); i < n; i++ {
		b, err := vm.ReadMemory(addr + i)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// WriteBytes writes p at addr. Every target address is checked before the
// first byte is written, so a failing write leaves memory unchanged.
func (vm *VM) WriteBytes(addr uint64, p []byte) error {
	for i := range p {
		if _, err := vm.writableSegment(addr + uint64(i)); err != nil {
			return err
		}
	}
	for i, b := range p {
		if err := vm.WriteMemory(addr+uint64(i), b); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) segmentFor(addr uint64) (*Segment, error) {
	if len(vm.image) == 0 && vm.heap.Len() == 0 {
		return nil, fmt.Errorf("%w: address %d", vmerrors.ErrInvalidMemory, addr)
	}
	seg := vm.heap.Find(addr)
	if seg == nil {
		return nil, fmt.Errorf("%w: address %d", vmerrors.ErrInvalidHeapAccess, addr)
	}
	return seg, nil
}

func (vm *VM) writableSegment(addr uint64) (*Segment, error) {
	if addr < uint64(len(vm.image)) {
		return nil, fmt.Errorf("%w: address %d", vmerrors.ErrReadOnlyViolation, addr)
	}
	return vm.segmentFor(addr)
}

func (vm *VM) markDirty(addr uint64) {
	if !vm.dirty {
		vm.dirty = true
		vm.dirtyLo, vm.dirtyHi = addr, addr
		return
	}
	vm.dirtyLo = min(vm.dirtyLo, addr)
	vm.dirtyHi = max(vm.dirtyHi, addr)
}

// AllocateHeap appends a zeroed segment of size bytes and returns its start
// address.
func (vm *VM) AllocateHeap(size uint64) (uint64, error) {
	seg, err := vm.heap.Allocate(size)
	if err != nil {
		return 0, err
	}
	log.Trace(log.RvmMonitoring, "heap grown", "start", seg.Start(), "size", size, "total", vm.heap.Total())
	return seg.Start(), nil
}

func (vm *VM) Regs() *Registers { return &vm.regs }

func (vm *VM) Heap() *Heap { return vm.heap }

// HeapSize is the total number of heap bytes allocated.
func (vm *VM) HeapSize() uint64 { return vm.heap.Total() }

// HeapStart is the address of the first heap byte.
func (vm *VM) HeapStart() uint64 { return vm.heap.Base() }

// ImageSize is the length of the loaded image.
func (vm *VM) ImageSize() uint64 { return uint64(len(vm.image)) }

// Image returns the loaded image. Callers must not modify it.
func (vm *VM) Image() []byte { return vm.image }

// IsHeap reports whether addr lies in an allocated heap segment.
func (vm *VM) IsHeap(addr uint64) bool { return vm.heap.Find(addr) != nil }

func (vm *VM) Ticks() uint64 { return vm.ticks }

func (vm *VM) Output() io.Writer { return vm.out }

func (vm *VM) Random() io.Reader { return vm.random }

func (vm *VM) Debug() bool { return vm.debug }

func (vm *VM) SetDebug(debug bool) { vm.debug = debug }
