package ops

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/colorfulnotion/regvm/rvm"
	"github.com/colorfulnotion/regvm/rvm/program"
	"github.com/colorfulnotion/regvm/vmerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopStop(t *testing.T) {
	image := asm().Op(program.NOP).Op(program.NOP).Op(program.STOP).Op(program.NOP).Bytes()
	vm, _, err := run(t, image)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), vm.Ticks())
	assert.Equal(t, uint64(3), vm.Regs().PC())
}

func TestUnassignedOpcode(t *testing.T) {
	_, _, err := run(t, []byte{0x7f})
	assert.ErrorIs(t, err, vmerrors.ErrInvalidOpcode)

	// running off the end of the image without STOP
	_, _, err = run(t, asm().Op(program.NOP).Bytes())
	assert.ErrorIs(t, err, vmerrors.ErrOutOfBounds)
}

func TestAllBindsEveryOpcode(t *testing.T) {
	vm := NewVM(nil)
	for _, op := range program.Opcodes() {
		assert.True(t, vm.Bound(op), "%s not bound", op)
	}
}

func TestMov(t *testing.T) {
	image := asm().
		Op(program.LOAD_STR).Reg(0).Str("abc").
		Op(program.MOV).Reg(1).Reg(0).
		Op(program.LOAD_STR).Reg(0).Str("xyz").
		Op(program.MOV).Reg(2).Reg(2).
		Op(program.STOP).
		Bytes()
	vm, _, err := run(t, image)
	require.NoError(t, err)
	assert.Equal(t, "abc", regStr(t, vm, 1))
	assert.Equal(t, "xyz", regStr(t, vm, 0))
	assert.Zero(t, regInt(t, vm, 2))

	_, _, err = run(t, asm().Op(program.MOV).Reg(1).Reg(rvm.PCRegister).Bytes())
	assert.ErrorIs(t, err, vmerrors.ErrInvalidRegister)
}

func TestHeapGrowth(t *testing.T) {
	image := asm().
		Op(program.LOAD_INT8).Reg(0).U8(10).
		Op(program.HEAP).Reg(0).
		Op(program.HEAP).Reg(0).
		Op(program.INFO).Reg(1).U8(uint8(program.InfoHeapSize)).
		Op(program.INFO).Reg(2).U8(uint8(program.InfoHeapStart)).
		Op(program.STOP).
		Bytes()
	vm, _, err := run(t, image)
	require.NoError(t, err)

	size := uint64(len(image))
	assert.Equal(t, uint64(20), regInt(t, vm, 1))
	assert.Equal(t, size, regInt(t, vm, 2))
	assert.Equal(t, []rvm.SegmentInfo{{Start: size, Size: 10}, {Start: size + 10, Size: 10}}, vm.Heap().Segments())
	for addr := size; addr < size+20; addr++ {
		assert.True(t, vm.IsHeap(addr))
		b, err := vm.ReadMemory(addr)
		require.NoError(t, err)
		assert.Zero(t, b)
	}
	assert.False(t, vm.IsHeap(size+20))
}

func TestHeapGrowthTooLarge(t *testing.T) {
	image := asm().
		Op(program.LOAD_INT8).Reg(1).U8(4).
		Op(program.HEAP).Reg(1).
		Op(program.LOAD_INT64).Reg(0).U64(1 << 62).
		Op(program.HEAP).Reg(0).
		Op(program.STOP).
		Bytes()
	vm, _, err := run(t, image)
	require.ErrorIs(t, err, vmerrors.ErrHeapExhausted)
	assert.Equal(t, uint64(4), vm.HeapSize())
	assert.Equal(t, 1, vm.Heap().Len())
	assert.Equal(t, uint64(4), vm.Ticks())
	assert.Equal(t, uint64(1<<62), regInt(t, vm, 0))
}

func TestInfo(t *testing.T) {
	image := asm().
		Op(program.INFO).Reg(0).U8(uint8(program.InfoTicks)).
		Op(program.INFO).Reg(1).U8(uint8(program.InfoTicks)).
		Op(program.INFO).Reg(2).U8(uint8(program.InfoMagic)).
		Op(program.INFO).Reg(3).U8(uint8(program.InfoHeapSize)).
		Op(program.STOP).
		Bytes()
	vm, _, err := run(t, image)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), regInt(t, vm, 0))
	assert.Equal(t, uint64(2), regInt(t, vm, 1))
	assert.Equal(t, uint64(0xdeadbeef), regInt(t, vm, 2))
	assert.Zero(t, regInt(t, vm, 3))

	_, _, err = run(t, asm().Op(program.INFO).Reg(0).U8(255).Bytes())
	require.ErrorIs(t, err, vmerrors.ErrUnimplementedInfoEntry)
	assert.Contains(t, err.Error(), "255")
}

func TestRandomSeeded(t *testing.T) {
	image := asm().
		Op(program.RANDOM).Reg(0).
		Op(program.RANDOM).Reg(1).
		Op(program.STOP).
		Bytes()
	a, _, err := run(t, image, rvm.WithRandom(rvm.NewSeededSource(42)))
	require.NoError(t, err)
	b, _, err := run(t, image, rvm.WithRandom(rvm.NewSeededSource(42)))
	require.NoError(t, err)
	assert.Equal(t, regInt(t, a, 0), regInt(t, b, 0))
	assert.Equal(t, regInt(t, a, 1), regInt(t, b, 1))
	assert.NotEqual(t, regInt(t, a, 0), regInt(t, a, 1))

	var first [8]byte
	_, err = rvm.NewSeededSource(42).Read(first[:])
	require.NoError(t, err)
	assert.Equal(t, binary.BigEndian.Uint64(first[:]), regInt(t, a, 0))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestRandomSourceFailure(t *testing.T) {
	_, _, err := run(t, asm().Op(program.RANDOM).Reg(0).Bytes(), rvm.WithRandom(failingReader{}))
	assert.ErrorContains(t, err, "entropy exhausted")
}

func TestRandomDefaultSource(t *testing.T) {
	vm, _, err := run(t, asm().Op(program.RANDOM).Reg(0).Op(program.STOP).Bytes())
	require.NoError(t, err)
	kind, err := vm.Regs().Type(0)
	require.NoError(t, err)
	assert.Equal(t, rvm.KindInt, kind)
}
