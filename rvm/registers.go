package rvm

import (
	"fmt"
	"strconv"

	"github.com/colorfulnotion/regvm/vmerrors"
)

const (
	NumRegisters = 16

	// PCRegister addresses the program counter through the integer accessors.
	PCRegister uint8 = 0xff
)

// Kind is the type tag of a register value.
type Kind uint8

const (
	KindInt Kind = iota
	KindFloat
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "str"
	}
	return "kind_" + strconv.Itoa(int(k))
}

// Value is the content of one register. Only the field selected by Kind is
// meaningful.
type Value struct {
	Kind  Kind
	Int   uint64
	Float float64
	Str   string
}

func IntValue(v uint64) Value { return Value{Kind: KindInt, Int: v} }
func FloatValue(v float64) Value { return Value{Kind: KindFloat, Float: v} }
func StringValue(v string) Value { return Value{Kind: KindString, Str: v} }

// String renders the value as "kind:value".
func (v Value) String() string {
	switch v.Kind {
	case KindFloat:
		return "float:" + strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return "str:" + strconv.Quote(v.Str)
	}
	return "int:" + strconv.FormatUint(v.Int, 10)
}

// Registers is the general purpose register file plus the program counter.
type Registers struct {
	regs [NumRegisters]Value
	pc   uint64
}

func (r *Registers) check(idx uint8) error {
	if idx >= NumRegisters {
		return fmt.Errorf("%w: %d", vmerrors.ErrInvalidRegister, idx)
	}
	return nil
}

func typeMismatch(idx uint8, want, got Kind) error {
	return fmt.Errorf("%w: r%d holds %s, want %s", vmerrors.ErrTypeMismatch, idx, got, want)
}

func (r *Registers) PutInt(idx uint8, v uint64) error {
	if idx == PCRegister {
		r.pc = v
		return nil
	}
	if err := r.check(idx); err != nil {
		return err
	}
	r.regs[idx] = IntValue(v)
	return nil
}

func (r *Registers) GetInt(idx uint8) (uint64, error) {
	if idx == PCRegister {
		return r.pc, nil
	}
	if err := r.check(idx); err != nil {
		return 0, err
	}
	if v := r.regs[idx]; v.Kind != KindInt {
		return 0, typeMismatch(idx, KindInt, v.Kind)
	}
	return r.regs[idx].Int, nil
}

func (r *Registers) PutFloat(idx uint8, v float64) error {
	if err := r.check(idx); err != nil {
		return err
	}
	r.regs[idx] = FloatValue(v)
	return nil
}

func (r *Registers) GetFloat(idx uint8) (float64, error) {
	if err := r.check(idx); err != nil {
		return 0, err
	}
	if v := r.regs[idx]; v.Kind != KindFloat {
		return 0, typeMismatch(idx, KindFloat, v.Kind)
	}
	return r.regs[idx].Float, nil
}

func (r *Registers) PutString(idx uint8, v string) error {
	if err := r.check(idx); err != nil {
		return err
	}
	r.regs[idx] = StringValue(v)
	return nil
}

func (r *Registers) GetString(idx uint8) (string, error) {
	if err := r.check(idx); err != nil {
		return "", err
	}
	if v := r.regs[idx]; v.Kind != KindString {
		return "", typeMismatch(idx, KindString, v.Kind)
	}
	return r.regs[idx].Str, nil
}

// Type reports the kind of a general purpose register.
func (r *Registers) Type(idx uint8) (Kind, error) {
	if err := r.check(idx); err != nil {
		return 0, err
	}
	return r.regs[idx].Kind, nil
}

// Get returns a copy of a general purpose register.
func (r *Registers) Get(idx uint8) (Value, error) {
	if err := r.check(idx); err != nil {
		return Value{}, err
	}
	return r.regs[idx], nil
}

// Copy copies src into dst by value. dst == src is allowed.
func (r *Registers) Copy(dst, src uint8) error {
	if err := r.check(dst); err != nil {
		return err
	}
	if err := r.check(src); err != nil {
		return err
	}
	r.regs[dst] = r.regs[src]
	return nil
}

func (r *Registers) PC() uint64 { return r.pc }

func (r *Registers) SetPC(pc uint64) { r.pc = pc }

func (r *Registers) AdvancePC() { r.pc++ }

func (r *Registers) ResetPC() { r.pc = 0 }

// Snapshot renders every general purpose register with Value.String.
func (r *Registers) Snapshot() [NumRegisters]string {
	var out [NumRegisters]string
	for i, v := range r.regs {
		out[i] = v.String()
	}
	return out
}
