package ops

import (
	"fmt"

	"github.com/colorfulnotion/regvm/rvm"
	"github.com/colorfulnotion/regvm/rvm/program"
	"github.com/colorfulnotion/regvm/vmerrors"
)

// Jump binds unconditional and conditional jumps.
//
// 8, 16 and 32-bit forms carry a signed displacement relative to the offset
// of the displacement operand. The 64-bit and register forms are absolute.
type Jump struct{}

func (Jump) Attach(vm *rvm.VM) {
	bind(vm, program.JMP8, jumpRel(1))
	bind(vm, program.JMP16, jumpRel(2))
	bind(vm, program.JMP32, jumpRel(4))
	bind(vm, program.JMP64, jumpAbs)
	bind(vm, program.JMP_INT, jumpReg)
	bind(vm, program.JMP_LE8, jumpIf(targetRel(1)))
	bind(vm, program.JMP_LE16, jumpIf(targetRel(2)))
	bind(vm, program.JMP_LE32, jumpIf(targetRel(4)))
	bind(vm, program.JMP_LE64, jumpIf(targetAbs))
	bind(vm, program.JMP_LE_INT, jumpIf(targetReg))
}

// A target fetches the jump destination operand and resolves it.
type target func(vm *rvm.VM) (uint64, error)

func targetRel(width int) target {
	return func(vm *rvm.VM) (uint64, error) {
		pos := vm.Regs().PC()
		raw, err := fetchBE(vm, width)
		if err != nil {
			return 0, err
		}
		return program.AddOffset(pos, program.SignExtend(raw, width)), nil
	}
}

func targetAbs(vm *rvm.VM) (uint64, error) {
	return fetchBE(vm, 8)
}

func targetReg(vm *rvm.VM) (uint64, error) {
	var reg uint8
	if err := fetchRegs(vm, &reg); err != nil {
		return 0, err
	}
	return vm.Regs().GetInt(reg)
}

func goTo(t target) func(vm *rvm.VM) (bool, error) {
	return func(vm *rvm.VM) (bool, error) {
		dest, err := t(vm)
		if err != nil {
			return false, err
		}
		vm.Regs().SetPC(dest)
		return true, nil
	}
}

func jumpRel(width int) func(vm *rvm.VM) (bool, error) {
	return goTo(targetRel(width))
}

var (
	jumpAbs = goTo(targetAbs)
	jumpReg = goTo(targetReg)
)

// jumpIf decodes "cond, a, b, target" in full before jumping, so a jump not
// taken leaves PC at the next instruction.
func jumpIf(t target) func(vm *rvm.VM) (bool, error) {
	return func(vm *rvm.VM) (bool, error) {
		var cond, ra, rb uint8
		if err := fetchRegs(vm, &cond, &ra, &rb); err != nil {
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
		taken, err := Compare(program.Cond(cond), a, b)
		if err != nil {
			return false, err
		}
		dest, err := t(vm)
		if err != nil {
			return false, err
		}
		if taken {
			vm.Regs().SetPC(dest)
		}
		return true, nil
	}
}

// Compare evaluates a comparison code on two unsigned operands. CondMod is
// true when a is not a multiple of b.
func Compare(c program.Cond, a, b uint64) (bool, error) {
	switch c {
	case program.CondEq:
		return a == b, nil
	case program.CondLt:
		return a < b, nil
	case program.CondGt:
		return a > b, nil
	case program.CondLe:
		return a <= b, nil
	case program.CondGe:
		return a >= b, nil
	case program.CondNe:
		return a != b, nil
	case program.CondNotA:
		return a == 0, nil
	case program.CondNotB:
		return b == 0, nil
	case program.CondAnd:
		return a != 0 && b != 0, nil
	case program.CondOr:
		return a != 0 || b != 0, nil
	case program.CondAOrNotB:
		return a != 0 || ^b != 0, nil
	case program.CondNotAOrB:
		return ^a != 0 || b != 0, nil
	case program.CondAAndNotB:
		return a != 0 && ^b != 0, nil
	case program.CondNotAAndB:
		return ^a != 0 && b != 0, nil
	case program.CondXor:
		return a^b != 0, nil
	case program.CondMod:
		if b == 0 {
			return false, fmt.Errorf("%w: %d %% 0 in jump", vmerrors.ErrDivideByZero, a)
		}
		return a%b != 0, nil
	}
	return false, fmt.Errorf("%w: code %d", vmerrors.ErrInvalidComparison, byte(c))
}
