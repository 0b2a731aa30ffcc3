package ops

import (
	"fmt"
	"strconv"

	"github.com/colorfulnotion/regvm/rvm"
	"github.com/colorfulnotion/regvm/rvm/program"
	"github.com/colorfulnotion/regvm/vmerrors"
)

// Ints binds integer loads, stores, arithmetic and numeric output.
type Ints struct{}

func (Ints) Attach(vm *rvm.VM) {
	bind(vm, program.LOAD_INT8, loadImm(1))
	bind(vm, program.LOAD_INT16, loadImm(2))
	bind(vm, program.LOAD_INT32, loadImm(4))
	bind(vm, program.LOAD_INT64, loadImm(8))
	bind(vm, program.LOAD_INT, loadInt)
	bind(vm, program.LOAD_INT_MEM, loadIntMem)
	bind(vm, program.STORE_INT, storeInt)
	bind(vm, program.STORE_INT_MEM, storeIntMem)

	bind(vm, program.INC_INT, step(1))
	bind(vm, program.DEC_INT, step(^uint64(0)))
	bind(vm, program.ADD_INT, arith(func(a, b uint64) (uint64, error) { return a + b, nil }))
	bind(vm, program.SUB_INT, arith(func(a, b uint64) (uint64, error) { return a - b, nil }))
	bind(vm, program.MUL_INT, arith(func(a, b uint64) (uint64, error) { return a * b, nil }))
	bind(vm, program.DIV_INT, arith(func(a, b uint64) (uint64, error) {
		if b == 0 {
			return 0, fmt.Errorf("%w: %d / 0", vmerrors.ErrDivideByZero, a)
		}
		return a / b, nil
	}))
	bind(vm, program.MOD_INT, arith(func(a, b uint64) (uint64, error) {
		if b == 0 {
			return 0, fmt.Errorf("%w: %d %% 0", vmerrors.ErrDivideByZero, a)
		}
		return a % b, nil
	}))

	bind(vm, program.PRINT_INT, printInt)
	bind(vm, program.PRINT_FLOAT, printFloat)
}

func loadImm(width int) func(vm *rvm.VM) (bool, error) {
	return func(vm *rvm.VM) (bool, error) {
		var dst uint8
		if err := fetchRegs(vm, &dst); err != nil {
			return false, err
		}
		v, err := fetchBE(vm, width)
		if err != nil {
			return false, err
		}
		return true, vm.Regs().PutInt(dst, v)
	}
}

func checkSize(size uint8) error {
	if size > 8 {
		return fmt.Errorf("%w: %d", vmerrors.ErrInvalidSize, size)
	}
	return nil
}

func readInt(vm *rvm.VM, dst, size uint8, addr uint64) (bool, error) {
	if err := checkSize(size); err != nil {
		return false, err
	}
	data, err := vm.ReadBytes(addr, uint64(size))
	if err != nil {
		return false, err
	}
	return true, vm.Regs().PutInt(dst, program.DecodeBE(data))
}

func writeInt(vm *rvm.VM, src, size uint8, addr uint64) (bool, error) {
	if err := checkSize(size); err != nil {
		return false, err
	}
	v, err := vm.Regs().GetInt(src)
	if err != nil {
		return false, err
	}
	return true, vm.WriteBytes(addr, program.EncodeBE(v, int(size)))
}

// LOAD_INT dst, size, addrReg
func loadInt(vm *rvm.VM) (bool, error) {
	var dst, size, addrReg uint8
	if err := fetchRegs(vm, &dst, &size, &addrReg); err != nil {
		return false, err
	}
	if err := checkSize(size); err != nil {
		return false, err
	}
	addr, err := vm.Regs().GetInt(addrReg)
	if err != nil {
		return false, err
	}
	return readInt(vm, dst, size, addr)
}

// LOAD_INT_MEM dst, size, addr64
func loadIntMem(vm *rvm.VM) (bool, error) {
	var dst, size uint8
	if err := fetchRegs(vm, &dst, &size); err != nil {
		return false, err
	}
	addr, err := fetchBE(vm, 8)
	if err != nil {
		return false, err
	}
	return readInt(vm, dst, size, addr)
}

// STORE_INT src, size, addrReg
func storeInt(vm *rvm.VM) (bool, error) {
	var src, size, addrReg uint8
	if err := fetchRegs(vm, &src, &size, &addrReg); err != nil {
		return false, err
	}
	if err := checkSize(size); err != nil {
		return false, err
	}
	addr, err := vm.Regs().GetInt(addrReg)
	if err != nil {
		return false, err
	}
	return writeInt(vm, src, size, addr)
}

// STORE_INT_MEM src, size, addr64
func storeIntMem(vm *rvm.VM) (bool, error) {
	var src, size uint8
	if err := fetchRegs(vm, &src, &size); err != nil {
		return false, err
	}
	addr, err := fetchBE(vm, 8)
	if err != nil {
		return false, err
	}
	return writeInt(vm, src, size, addr)
}

func step(delta uint64) func(vm *rvm.VM) (bool, error) {
	return func(vm *rvm.VM) (bool, error) {
		var reg uint8
		if err := fetchRegs(vm, &reg); err != nil {
			return false, err
		}
		v, err := vm.Regs().GetInt(reg)
		if err != nil {
			return false, err
		}
		return true, vm.Regs().PutInt(reg, v+delta)
	}
}

// arith handles "dst, a, b" instructions. dst is written only when f succeeds.
func arith(f func(a, b uint64) (uint64, error)) func(vm *rvm.VM) (bool, error) {
	return func(vm *rvm.VM) (bool, error) {
		var dst, ra, rb uint8
		if err := fetchRegs(vm, &dst, &ra, &rb); err != nil {
			return false, err
		}
		a, err := vm.Regs().GetInt(ra)
		if err != nil {
			return false, err
		}
		b, err := vm.Regs().GetInt(rb)
		if err != nil {
			return false, err
		}
		v, err := f(a, b)
		if err != nil {
			return false, err
		}
		return true, vm.Regs().PutInt(dst, v)
	}
}

func printInt(vm *rvm.VM) (bool, error) {
	var reg uint8
	if err := fetchRegs(vm, &reg); err != nil {
		return false, err
	}
	v, err := vm.Regs().GetInt(reg)
	if err != nil {
		return false, err
	}
	if _, err := vm.Output().Write(strconv.AppendUint(nil, v, 10)); err != nil {
		return false, fmt.Errorf("print_int: %w", err)
	}
	return true, nil
}

// printFloat uses six significant digits in the shortest of fixed or
// exponent notation.
func printFloat(vm *rvm.VM) (bool, error) {
	var reg uint8
	if err := fetchRegs(vm, &reg); err != nil {
		return false, err
	}
	v, err := vm.Regs().GetFloat(reg)
	if err != nil {
		return false, err
	}
	if _, err := vm.Output().Write(strconv.AppendFloat(nil, v, 'g', 6, 64)); err != nil {
		return false, fmt.Errorf("print_float: %w", err)
	}
	return true, nil
}
