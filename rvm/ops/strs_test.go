package ops

import (
	"testing"

	"github.com/colorfulnotion/regvm/rvm/program"
	"github.com/colorfulnotion/regvm/vmerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAndPrintStr(t *testing.T) {
	image := asm().
		Op(program.LOAD_STR).Reg(0).Str("Hi").
		Op(program.PRINT_STR).Reg(0).
		Op(program.STOP).
		Bytes()
	vm, out, err := run(t, image)
	require.NoError(t, err)
	assert.Equal(t, "Hi", out)
	assert.Equal(t, "Hi", regStr(t, vm, 0))
}

func TestStoreStrAlias(t *testing.T) {
	image := asm().
		Op(program.STORE_STR).Reg(3).Str("").
		Op(program.STORE_STR).Reg(4).Str("abc").
		Op(program.STOP).
		Bytes()
	vm, _, err := run(t, image)
	require.NoError(t, err)
	assert.Equal(t, "", regStr(t, vm, 3))
	assert.Equal(t, "abc", regStr(t, vm, 4))
}

func TestStringsThroughHeap(t *testing.T) {
	image := asm().
		Op(program.LOAD_INT8).Reg(0).U8(8).
		Op(program.HEAP).Reg(0).
		Op(program.INFO).Reg(1).U8(uint8(program.InfoHeapStart)).
		Op(program.LOAD_STR).Reg(2).Str("hello").
		Op(program.STORE_STR_MEM).Reg(2).Reg(1).
		Op(program.LOAD_STR_MEM).Reg(3).Reg(1).
		Op(program.PRINT_STR).Reg(3).
		Op(program.STOP).
		Bytes()
	vm, out, err := run(t, image)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	start := regInt(t, vm, 1)
	data, err := vm.ReadBytes(start, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\x00\x00\x00"), data)
}

func TestLoadStrMemFromImage(t *testing.T) {
	b := asm().
		Op(program.LOAD_INT8).Reg(0).U8(0).
		Op(program.LOAD_STR_MEM).Reg(1).Reg(0).
		Op(program.STOP)
	strAt := b.Len()
	image := b.Str("const").Bytes()
	image[2] = byte(strAt)

	vm, _, err := run(t, image)
	require.NoError(t, err)
	assert.Equal(t, "const", regStr(t, vm, 1))
}

func TestStringFaults(t *testing.T) {
	tests := []struct {
		name  string
		image []byte
		want  error
	}{
		{"unterminated literal", asm().Op(program.LOAD_STR).Reg(0).Raw('a', 'b').Bytes(), vmerrors.ErrOutOfBounds},
		{"print int register", asm().Op(program.PRINT_STR).Reg(0).Bytes(), vmerrors.ErrTypeMismatch},
		{"store into image", asm().Op(program.LOAD_STR).Reg(1).Str("x").Op(program.STORE_STR_MEM).Reg(1).Reg(0).Bytes(), vmerrors.ErrReadOnlyViolation},
		{"store int register", asm().Op(program.STORE_STR_MEM).Reg(1).Reg(0).Bytes(), vmerrors.ErrTypeMismatch},
		{"read unterminated heap", asm().
			Op(program.LOAD_INT8).Reg(0).U8(1).
			Op(program.HEAP).Reg(0).
			Op(program.INFO).Reg(1).U8(uint8(program.InfoHeapStart)).
			Op(program.LOAD_INT8).Reg(2).U8('A').
			Op(program.STORE_INT).Reg(2).U8(1).Reg(1).
			Op(program.LOAD_STR_MEM).Reg(3).Reg(1).
			Bytes(), vmerrors.ErrInvalidHeapAccess},
		{"invalid register", asm().Op(program.LOAD_STR).Reg(16).Str("x").Bytes(), vmerrors.ErrInvalidRegister},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := run(t, tc.image)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
