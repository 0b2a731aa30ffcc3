// Package ops holds the instruction handler modules of the register VM. Each
// module binds its opcodes into a VM's dispatch table when attached.
package ops

import (
	"github.com/colorfulnotion/regvm/rvm"
	"github.com/colorfulnotion/regvm/rvm/program"
)

// All returns every handler module of the instruction set.
func All() []rvm.Module {
	return []rvm.Module{
		NopStop{},
		Ints{},
		Strs{},
		Jump{},
		Mov{},
		HeapInfo{},
		Random{},
	}
}

// Attach binds the complete instruction set into vm.
func Attach(vm *rvm.VM) {
	vm.Use(All()...)
}

// NewVM returns a VM over image with the complete instruction set bound.
func NewVM(image []byte, opts ...rvm.Option) *rvm.VM {
	vm := rvm.New(image, opts...)
	Attach(vm)
	return vm
}

func bind(vm *rvm.VM, op program.Opcode, f func(vm *rvm.VM) (bool, error)) {
	vm.Register(op, rvm.HandlerFunc(f))
}

// fetchBE fetches an n-byte big-endian operand.
func fetchBE(vm *rvm.VM, n int) (uint64, error) {
	var v uint64
	for i := 0; i < n; i++ {
		b, err := vm.Fetch8()
		if err != nil {
			return 0, err
		}
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// fetchRegs fetches one register index operand per element of dst.
func fetchRegs(vm *rvm.VM, dst ...*uint8) error {
	for _, d := range dst {
		b, err := vm.Fetch8()
		if err != nil {
			return err
		}
		*d = b
	}
	return nil
}
