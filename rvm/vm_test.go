package rvm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/colorfulnotion/regvm/rvm/program"
	"github.com/colorfulnotion/regvm/rvm/trace"
	"github.com/colorfulnotion/regvm/vmerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func haltOn(op program.Opcode) Module {
	return moduleFunc(func(vm *VM) {
		vm.Register(op, HandlerFunc(func(*VM) (bool, error) { return false, nil }))
	})
}

type moduleFunc func(vm *VM)

func (f moduleFunc) Attach(vm *VM) { f(vm) }

func TestEmptyVM(t *testing.T) {
	vm := New(nil)
	_, err := vm.Step()
	assert.ErrorIs(t, err, vmerrors.ErrOutOfBounds)

	_, err = vm.ReadMemory(0)
	assert.ErrorIs(t, err, vmerrors.ErrInvalidMemory)
	assert.ErrorIs(t, vm.WriteMemory(0, 1), vmerrors.ErrInvalidMemory)

	// a zero-length image is as unloaded as a nil one
	require.NoError(t, vm.Load([]byte{}))
	_, err = vm.ReadMemory(0)
	assert.ErrorIs(t, err, vmerrors.ErrInvalidMemory)
	_, err = New([]byte{}).ReadBytes(3, 2)
	assert.ErrorIs(t, err, vmerrors.ErrInvalidMemory)
}

func TestFetch(t *testing.T) {
	vm := New([]byte{1, 2, 3})
	for want := byte(1); want <= 3; want++ {
		b, err := vm.Fetch8()
		require.NoError(t, err)
		assert.Equal(t, want, b)
	}
	assert.Equal(t, uint64(3), vm.Regs().PC())
	_, err := vm.Fetch8()
	assert.ErrorIs(t, err, vmerrors.ErrOutOfBounds)
	assert.Equal(t, uint64(3), vm.Regs().PC())

	require.NoError(t, vm.Load([]byte{9}))
	assert.Zero(t, vm.Regs().PC())
	op, err := vm.FetchOpcode()
	require.NoError(t, err)
	assert.Equal(t, program.Opcode(9), op)
	assert.Equal(t, program.Opcode(9), vm.Opcode())
}

func TestUnboundOpcode(t *testing.T) {
	vm := New([]byte{0x7f})
	cont, err := vm.Step()
	assert.False(t, cont)
	assert.ErrorIs(t, err, vmerrors.ErrInvalidOpcode)
	assert.Contains(t, err.Error(), "0x7f")
	assert.Equal(t, uint64(1), vm.Ticks())
}

func TestDispatchAndTicks(t *testing.T) {
	var seen []program.Opcode
	record := HandlerFunc(func(vm *VM) (bool, error) {
		seen = append(seen, vm.Opcode())
		return true, nil
	})
	vm := New([]byte{0x00, 0x00, 0xff}, WithModules(haltOn(program.STOP)))
	vm.Register(program.NOP, record)
	assert.True(t, vm.Bound(program.NOP))
	assert.False(t, vm.Bound(program.JMP8))

	require.NoError(t, vm.Run(context.Background()))
	assert.Equal(t, []program.Opcode{program.NOP, program.NOP}, seen)
	assert.Equal(t, uint64(3), vm.Ticks())

	// rebinding replaces the previous handler
	vm.Register(program.NOP, HandlerFunc(func(*VM) (bool, error) { return false, errors.New("replaced") }))
	require.NoError(t, vm.Load([]byte{0x00}))
	_, err := vm.Step()
	assert.EqualError(t, err, "replaced")
}

func TestRunCancelled(t *testing.T) {
	vm := New([]byte{0x00})
	vm.Register(program.NOP, HandlerFunc(func(vm *VM) (bool, error) {
		vm.Regs().ResetPC()
		return true, nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, vm.Run(ctx), context.Canceled)
}

func TestMemoryRegions(t *testing.T) {
	image := []byte{0xaa, 0xbb, 0xcc, 0xdd}
	vm := New(image)
	assert.Equal(t, uint64(4), vm.ImageSize())
	assert.Equal(t, uint64(4), vm.HeapStart())

	b, err := vm.ReadMemory(1)
	require.NoError(t, err)
	assert.Equal(t, byte(0xbb), b)
	assert.ErrorIs(t, vm.WriteMemory(1, 0), vmerrors.ErrReadOnlyViolation)

	_, err = vm.ReadMemory(4)
	assert.ErrorIs(t, err, vmerrors.ErrInvalidHeapAccess)

	assert.Equal(t, uint64(4), allocate(t, vm, 10))
	assert.Equal(t, uint64(14), allocate(t, vm, 10))
	assert.Equal(t, uint64(20), vm.HeapSize())
	assert.True(t, vm.IsHeap(4))
	assert.True(t, vm.IsHeap(23))
	assert.False(t, vm.IsHeap(24))
	assert.False(t, vm.IsHeap(3))

	require.NoError(t, vm.WriteMemory(13, 1))
	require.NoError(t, vm.WriteMemory(14, 2))
	got, err := vm.ReadBytes(13, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, got)

	_, err = vm.ReadMemory(24)
	assert.ErrorIs(t, err, vmerrors.ErrInvalidHeapAccess)

	// a write straddling the heap end changes nothing
	err = vm.WriteBytes(22, []byte{7, 7, 7})
	assert.ErrorIs(t, err, vmerrors.ErrInvalidHeapAccess)
	got, err = vm.ReadBytes(22, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0}, got)

	assert.ErrorIs(t, vm.WriteBytes(3, []byte{1, 2}), vmerrors.ErrReadOnlyViolation)

	// oversized ranges fail before any buffer is sized for them
	_, err = vm.ReadBytes(0, 1<<62)
	assert.ErrorIs(t, err, vmerrors.ErrInvalidHeapAccess)
	_, err = vm.ReadBytes(5, ^uint64(0))
	assert.ErrorIs(t, err, vmerrors.ErrOutOfBounds)
	got, err = vm.ReadBytes(30, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func allocate(t *testing.T, vm *VM, size uint64) uint64 {
	t.Helper()
	start, err := vm.AllocateHeap(size)
	require.NoError(t, err)
	return start
}

func TestHeapLimit(t *testing.T) {
	vm := New([]byte{0})
	_, err := vm.AllocateHeap(1 << 62)
	assert.ErrorIs(t, err, vmerrors.ErrHeapExhausted)
	_, err = vm.AllocateHeap(^uint64(0))
	assert.ErrorIs(t, err, vmerrors.ErrHeapExhausted)
	assert.Zero(t, vm.HeapSize())
	assert.Zero(t, vm.Heap().Len())

	assert.Equal(t, uint64(1), allocate(t, vm, 16))
	_, err = vm.AllocateHeap(MaxHeapSize - 15)
	assert.ErrorIs(t, err, vmerrors.ErrHeapExhausted)
	assert.Equal(t, uint64(16), vm.HeapSize())
}

func TestHeapSurvivesReload(t *testing.T) {
	vm := New([]byte{0, 0, 0})
	start := allocate(t, vm, 4)
	require.NoError(t, vm.Load([]byte{0}))
	assert.Equal(t, start, vm.HeapStart())
	assert.True(t, vm.IsHeap(start))

	fresh := New(nil)
	require.NoError(t, fresh.Load([]byte{0, 0}))
	assert.Equal(t, uint64(2), allocate(t, fresh, 1))
}

func TestReloadOverlappingHeap(t *testing.T) {
	vm := New([]byte{0x00})
	start := allocate(t, vm, 8)
	require.NoError(t, vm.WriteMemory(2, 0x42))

	err := vm.Load([]byte{0, 0, 0, 0})
	assert.ErrorIs(t, err, vmerrors.ErrOutOfBounds)
	assert.Equal(t, uint64(1), vm.ImageSize())
	assert.Equal(t, start, vm.HeapStart())
	require.NoError(t, vm.WriteMemory(2, 0x43))
	b, err := vm.ReadMemory(2)
	require.NoError(t, err)
	assert.Equal(t, byte(0x43), b)

	// an image ending exactly at the heap start still fits
	require.NoError(t, vm.Load([]byte{0x01}))
	assert.Equal(t, start, vm.HeapStart())
}

type recordingTracer struct {
	steps []*trace.TraceStep
}

func (r *recordingTracer) WriteStep(step *trace.TraceStep) error {
	r.steps = append(r.steps, step)
	return nil
}

func TestTracer(t *testing.T) {
	tracer := &recordingTracer{}
	vm := New([]byte{0x01, 0xff}, WithTracer(tracer), WithModules(haltOn(program.STOP)))
	allocate(t, vm, 4)
	vm.Register(program.STORE_INT, HandlerFunc(func(vm *VM) (bool, error) {
		if err := vm.Regs().PutInt(0, 5); err != nil {
			return false, err
		}
		return true, vm.WriteBytes(3, []byte{0xbe, 0xef})
	}))

	require.NoError(t, vm.Run(context.Background()))
	require.Len(t, tracer.steps, 2)

	first := tracer.steps[0]
	assert.Equal(t, uint64(1), first.Tick)
	assert.Equal(t, "STORE_INT", first.OpcodeStr)
	assert.Equal(t, uint64(1), first.PostPC)
	assert.Equal(t, "int:5", first.PostRegister[0])
	require.NotNil(t, first.ChangedMemoryAddr)
	assert.Equal(t, uint64(3), *first.ChangedMemoryAddr)
	assert.Equal(t, []byte{0xbe, 0xef}, first.ChangedMemoryBytes)

	last := tracer.steps[1]
	assert.True(t, last.Halted)
	assert.Nil(t, last.ChangedMemoryAddr)
}

func TestDumpRegisters(t *testing.T) {
	vm := New([]byte{0})
	require.NoError(t, vm.Regs().PutInt(0, 42))
	require.NoError(t, vm.Regs().PutFloat(1, 2.5))
	require.NoError(t, vm.Regs().PutString(2, "Hi"))
	vm.Regs().SetPC(7)

	var out bytes.Buffer
	vm.DumpRegisters(&out)
	text := out.String()
	assert.Contains(t, text, "42 (0x2a)")
	assert.Contains(t, text, "2.5")
	assert.Contains(t, text, `"Hi"`)
	assert.Contains(t, text, "7 (0x7)")
	assert.Contains(t, text, "r15")
	// header, 17 rows and borders
	assert.GreaterOrEqual(t, strings.Count(text, "\n"), 18)
}

func TestSeededSource(t *testing.T) {
	a := make([]byte, 32)
	b := make([]byte, 32)
	_, err := NewSeededSource(7).Read(a)
	require.NoError(t, err)
	_, err = NewSeededSource(7).Read(b)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = NewSeededSource(8).Read(b)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	src := NewSeededSource(7)
	c := make([]byte, 16)
	_, _ = src.Read(c)
	d := make([]byte, 16)
	_, _ = src.Read(d)
	assert.Equal(t, a, append(c, d...))
}
