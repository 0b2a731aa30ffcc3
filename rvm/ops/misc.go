package ops

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/colorfulnotion/regvm/log"
	"github.com/colorfulnotion/regvm/rvm"
	"github.com/colorfulnotion/regvm/rvm/program"
	"github.com/colorfulnotion/regvm/vmerrors"
)

// NopStop binds NOP and STOP.
type NopStop struct{}

func (NopStop) Attach(vm *rvm.VM) {
	bind(vm, program.NOP, func(*rvm.VM) (bool, error) { return true, nil })
	bind(vm, program.STOP, func(*rvm.VM) (bool, error) { return false, nil })
}

// Mov binds MOV dst, src.
type Mov struct{}

func (Mov) Attach(vm *rvm.VM) {
	bind(vm, program.MOV, func(vm *rvm.VM) (bool, error) {
		var dst, src uint8
		if err := fetchRegs(vm, &dst, &src); err != nil {
			return false, err
		}
		return true, vm.Regs().Copy(dst, src)
	})
}

// HeapInfo binds HEAP and INFO.
type HeapInfo struct{}

func (HeapInfo) Attach(vm *rvm.VM) {
	bind(vm, program.HEAP, heapGrow)
	bind(vm, program.INFO, info)
}

// HEAP sizeReg
func heapGrow(vm *rvm.VM) (bool, error) {
	var reg uint8
	if err := fetchRegs(vm, &reg); err != nil {
		return false, err
	}
	size, err := vm.Regs().GetInt(reg)
	if err != nil {
		return false, err
	}
	if _, err := vm.AllocateHeap(size); err != nil {
		return false, fmt.Errorf("heap: %w", err)
	}
	return true, nil
}

// INFO dst, code
func info(vm *rvm.VM) (bool, error) {
	var dst, code uint8
	if err := fetchRegs(vm, &dst, &code); err != nil {
		return false, err
	}
	var v uint64
	switch program.Info(code) {
	case program.InfoMagic:
		v = program.Magic
	case program.InfoTicks:
		v = vm.Ticks()
	case program.InfoHeapSize:
		v = vm.HeapSize()
	case program.InfoHeapStart:
		v = vm.HeapStart()
	default:
		return false, fmt.Errorf("%w: %d", vmerrors.ErrUnimplementedInfoEntry, code)
	}
	return true, vm.Regs().PutInt(dst, v)
}

// Random binds RANDOM dst, filling dst with 8 bytes of the VM's random source.
type Random struct{}

func (Random) Attach(vm *rvm.VM) {
	bind(vm, program.RANDOM, func(vm *rvm.VM) (bool, error) {
		var dst uint8
		if err := fetchRegs(vm, &dst); err != nil {
			return false, err
		}
		var buf [8]byte
		if _, err := io.ReadFull(vm.Random(), buf[:]); err != nil {
			log.Warn(log.RvmMonitoring, "random source failed", "err", err)
			return false, fmt.Errorf("random: %w", err)
		}
		return true, vm.Regs().PutInt(dst, binary.BigEndian.Uint64(buf[:]))
	})
}
