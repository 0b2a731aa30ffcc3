package ops

import (
	"bytes"
	"context"
	"testing"

	"github.com/colorfulnotion/regvm/rvm"
	"github.com/colorfulnotion/regvm/rvm/program"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, image []byte, opts ...rvm.Option) (*rvm.VM, string, error) {
	t.Helper()
	var out bytes.Buffer
	vm := NewVM(image, append([]rvm.Option{rvm.WithOutput(&out)}, opts...)...)
	err := vm.Run(context.Background())
	return vm, out.String(), err
}

func asm() *program.Builder {
	return program.NewBuilder()
}

func regInt(t *testing.T, vm *rvm.VM, idx uint8) uint64 {
	t.Helper()
	v, err := vm.Regs().GetInt(idx)
	require.NoError(t, err)
	return v
}

func regStr(t *testing.T, vm *rvm.VM, idx uint8) string {
	t.Helper()
	v, err := vm.Regs().GetString(idx)
	require.NoError(t, err)
	return v
}
