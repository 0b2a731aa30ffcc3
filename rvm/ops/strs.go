package ops

import (
	"fmt"
	"io"

	"github.com/colorfulnotion/regvm/rvm"
	"github.com/colorfulnotion/regvm/rvm/program"
)

// Strs binds string loads, stores and output.
type Strs struct{}

func (Strs) Attach(vm *rvm.VM) {
	bind(vm, program.LOAD_STR, loadStr)
	bind(vm, program.STORE_STR, loadStr)
	bind(vm, program.LOAD_STR_MEM, loadStrMem)
	bind(vm, program.STORE_STR_MEM, storeStrMem)
	bind(vm, program.PRINT_STR, printStr)
}

// LOAD_STR dst, bytes..., 0
func loadStr(vm *rvm.VM) (bool, error) {
	var dst uint8
	if err := fetchRegs(vm, &dst); err != nil {
		return false, err
	}
	var s []byte
	for {
		b, err := vm.Fetch8()
		if err != nil {
			return false, err
		}
		if b == 0 {
			break
		}
		s = append(s, b)
	}
	return true, vm.Regs().PutString(dst, string(s))
}

// LOAD_STR_MEM dst, addrReg reads a NUL-terminated string from memory.
func loadStrMem(vm *rvm.VM) (bool, error) {
	var dst, addrReg uint8
	if err := fetchRegs(vm, &dst, &addrReg); err != nil {
		return false, err
	}
	addr, err := vm.Regs().GetInt(addrReg)
	if err != nil {
		return false, err
	}
	var s []byte
	for ; ; addr++ {
		b, err := vm.ReadMemory(addr)
		if err != nil {
			return false, err
		}
		if b == 0 {
			break
		}
		s = append(s, b)
	}
	return true, vm.Regs().PutString(dst, string(s))
}

// STORE_STR_MEM src, addrReg writes the string and a NUL terminator.
func storeStrMem(vm *rvm.VM) (bool, error) {
	var src, addrReg uint8
	if err := fetchRegs(vm, &src, &addrReg); err != nil {
		return false, err
	}
	s, err := vm.Regs().GetString(src)
	if err != nil {
		return false, err
	}
	addr, err := vm.Regs().GetInt(addrReg)
	if err != nil {
		return false, err
	}
	data := make([]byte, 0, len(s)+1)
	data = append(data, s...)
	return true, vm.WriteBytes(addr, append(data, 0))
}

func printStr(vm *rvm.VM) (bool, error) {
	var reg uint8
	if err := fetchRegs(vm, &reg); err != nil {
		return false, err
	}
	s, err := vm.Regs().GetString(reg)
	if err != nil {
		return false, err
	}
	if _, err := io.WriteString(vm.Output(), s); err != nil {
		return false, fmt.Errorf("print_str: %w", err)
	}
	return true, nil
}
