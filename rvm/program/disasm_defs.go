package program

import (
	"fmt"
	"strconv"
	"strings"
)

// ArgType represents the type of an instruction argument
type ArgType int

const (
	ArgTypeReg  ArgType = iota // register index, 1 byte
	ArgTypeSize                // memory operand width, 1 byte
	ArgTypeU8                  // big-endian immediates
	ArgTypeU16
	ArgTypeU32
	ArgTypeU64
	ArgTypeOff8 // signed displacements, relative to the displacement operand
	ArgTypeOff16
	ArgTypeOff32
	ArgTypeAddr // absolute 8-byte address
	ArgTypeCond // comparison code, 1 byte
	ArgTypeInfo // info code, 1 byte
	ArgTypeStr  // NUL-terminated bytes
)

var argTypeNames = map[ArgType]string{
	ArgTypeReg:   "reg",
	ArgTypeSize:  "size",
	ArgTypeU8:    "u8",
	ArgTypeU16:   "u16",
	ArgTypeU32:   "u32",
	ArgTypeU64:   "u64",
	ArgTypeOff8:  "off8",
	ArgTypeOff16: "off16",
	ArgTypeOff32: "off32",
	ArgTypeAddr:  "addr",
	ArgTypeCond:  "cond",
	ArgTypeInfo:  "info",
	ArgTypeStr:   "str",
}

func (t ArgType) String() string {
	if s, ok := argTypeNames[t]; ok {
		return s
	}
	return "arg_" + strconv.Itoa(int(t))
}

// Width is the encoded size of the argument in bytes, or 0 for variable width.
func (t ArgType) Width() int {
	switch t {
	case ArgTypeReg, ArgTypeSize, ArgTypeU8, ArgTypeOff8, ArgTypeCond, ArgTypeInfo:
		return 1
	case ArgTypeU16, ArgTypeOff16:
		return 2
	case ArgTypeU32, ArgTypeOff32:
		return 4
	case ArgTypeU64, ArgTypeAddr:
		return 8
	}
	return 0
}

// Argument represents a single instruction argument
type Argument struct {
	Name string
	Type ArgType
}

// InstructionSpec represents a complete instruction specification
type InstructionSpec struct {
	Opcode Opcode
	Name   string
	Args   []Argument
	Format string
}

// Global instruction specifications map
var InstrSpecs = make(map[Opcode]*InstructionSpec)

// DSL helper functions
func Reg(name string) Argument { return Argument{Name: name, Type: ArgTypeReg} }
func Size(name string) Argument { return Argument{Name: name, Type: ArgTypeSize} }
func Imm(name string, width int) Argument {
	switch width {
	case 1:
		return Argument{Name: name, Type: ArgTypeU8}
	case 2:
		return Argument{Name: name, Type: ArgTypeU16}
	case 4:
		return Argument{Name: name, Type: ArgTypeU32}
	}
	return Argument{Name: name, Type: ArgTypeU64}
}
func Off(name string, width int) Argument {
	switch width {
	case 1:
		return Argument{Name: name, Type: ArgTypeOff8}
	case 2:
		return Argument{Name: name, Type: ArgTypeOff16}
	}
	return Argument{Name: name, Type: ArgTypeOff32}
}
func Addr(name string) Argument { return Argument{Name: name, Type: ArgTypeAddr} }
func CondArg(name string) Argument { return Argument{Name: name, Type: ArgTypeCond} }
func InfoArg(name string) Argument { return Argument{Name: name, Type: ArgTypeInfo} }
func Str(name string) Argument { return Argument{Name: name, Type: ArgTypeStr} }

// InstructionBuilder provides a fluent interface for defining instructions
type InstructionBuilder struct {
	spec *InstructionSpec
}

// RegisterInstr creates a new instruction specification with the given opcode and name
func RegisterInstr(opcode Opcode, name string) *InstructionBuilder {
	spec := &InstructionSpec{
		Opcode: opcode,
		Name:   name,
	}
	InstrSpecs[opcode] = spec
	return &InstructionBuilder{spec: spec}
}

// Args sets the arguments for the instruction
func (b *InstructionBuilder) Args(args ...Argument) *InstructionBuilder {
	b.spec.Args = args
	return b
}

// Format sets the format template for the instruction
func (b *InstructionBuilder) Format(format string) *InstructionBuilder {
	b.spec.Format = format
	return b
}

func opcodeStrLower(op Opcode) string {
	return strings.ToLower(op.String())
}

// FormatInstruction renders decoded operand values with the opcode's template.
// Displacements must already be resolved to absolute targets (uint64).
func FormatInstruction(opcode Opcode, values []interface{}) string {
	spec, exists := InstrSpecs[opcode]
	if !exists {
		return fmt.Sprintf("unknown_opcode_%02x", byte(opcode))
	}
	if len(values) != len(spec.Args) {
		return fmt.Sprintf("%s <invalid_args>", spec.Name)
	}

	result := spec.Format
	for i, arg := range spec.Args {
		var formatted string
		switch arg.Type {
		case ArgTypeReg:
			r, _ := values[i].(uint8)
			formatted = fmt.Sprintf("r%d", r)
		case ArgTypeSize:
			formatted = fmt.Sprintf("%v", values[i])
		case ArgTypeU8, ArgTypeU16, ArgTypeU32, ArgTypeU64:
			formatted = fmt.Sprintf("%d", values[i])
		case ArgTypeOff8, ArgTypeOff16, ArgTypeOff32, ArgTypeAddr:
			formatted = fmt.Sprintf("@%d", values[i])
		case ArgTypeCond:
			c, _ := values[i].(Cond)
			formatted = c.String()
		case ArgTypeInfo:
			info, _ := values[i].(Info)
			formatted = info.String()
		case ArgTypeStr:
			s, _ := values[i].(string)
			formatted = strconv.Quote(s)
		default:
			formatted = fmt.Sprintf("%v", values[i])
		}
		result = strings.ReplaceAll(result, "{"+arg.Name+"}", formatted)
	}
	return result
}

// Initialize all instruction definitions using the DSL
func init() {
	RegisterInstr(NOP, opcodeStrLower(NOP)).Args().Format("nop")
	RegisterInstr(STOP, opcodeStrLower(STOP)).Args().Format("stop")

	// integers and memory
	RegisterInstr(STORE_INT, opcodeStrLower(STORE_INT)).
		Args(Reg("src"), Size("size"), Reg("addr")).
		Format("[{addr}:{size}] = {src}")
	RegisterInstr(STORE_INT_MEM, opcodeStrLower(STORE_INT_MEM)).
		Args(Reg("src"), Size("size"), Addr("addr")).
		Format("[{addr}:{size}] = {src}")
	RegisterInstr(LOAD_INT, opcodeStrLower(LOAD_INT)).
		Args(Reg("dst"), Size("size"), Reg("addr")).
		Format("{dst} = [{addr}:{size}]")
	RegisterInstr(LOAD_INT_MEM, opcodeStrLower(LOAD_INT_MEM)).
		Args(Reg("dst"), Size("size"), Addr("addr")).
		Format("{dst} = [{addr}:{size}]")
	RegisterInstr(LOAD_INT8, opcodeStrLower(LOAD_INT8)).
		Args(Reg("dst"), Imm("imm", 1)).
		Format("{dst} = {imm}")
	RegisterInstr(LOAD_INT16, opcodeStrLower(LOAD_INT16)).
		Args(Reg("dst"), Imm("imm", 2)).
		Format("{dst} = {imm}")
	RegisterInstr(LOAD_INT32, opcodeStrLower(LOAD_INT32)).
		Args(Reg("dst"), Imm("imm", 4)).
		Format("{dst} = {imm}")
	RegisterInstr(LOAD_INT64, opcodeStrLower(LOAD_INT64)).
		Args(Reg("dst"), Imm("imm", 8)).
		Format("{dst} = {imm}")

	// strings
	RegisterInstr(LOAD_STR, opcodeStrLower(LOAD_STR)).
		Args(Reg("dst"), Str("str")).
		Format("{dst} = {str}")
	RegisterInstr(STORE_STR, opcodeStrLower(STORE_STR)).
		Args(Reg("dst"), Str("str")).
		Format("{dst} = {str}")
	RegisterInstr(LOAD_STR_MEM, opcodeStrLower(LOAD_STR_MEM)).
		Args(Reg("dst"), Reg("addr")).
		Format("{dst} = str [{addr}]")
	RegisterInstr(STORE_STR_MEM, opcodeStrLower(STORE_STR_MEM)).
		Args(Reg("src"), Reg("addr")).
		Format("str [{addr}] = {src}")

	// arithmetic
	RegisterInstr(INC_INT, opcodeStrLower(INC_INT)).Args(Reg("reg")).Format("{reg} += 1")
	RegisterInstr(DEC_INT, opcodeStrLower(DEC_INT)).Args(Reg("reg")).Format("{reg} -= 1")
	for op, sym := range map[Opcode]string{ADD_INT: "+", SUB_INT: "-", MUL_INT: "*", DIV_INT: "/", MOD_INT: "%"} {
		RegisterInstr(op, opcodeStrLower(op)).
			Args(Reg("dst"), Reg("a"), Reg("b")).
			Format("{dst} = {a} " + sym + " {b}")
	}

	// output
	RegisterInstr(PRINT_INT, opcodeStrLower(PRINT_INT)).Args(Reg("reg")).Format("print_int {reg}")
	RegisterInstr(PRINT_FLOAT, opcodeStrLower(PRINT_FLOAT)).Args(Reg("reg")).Format("print_float {reg}")
	RegisterInstr(PRINT_STR, opcodeStrLower(PRINT_STR)).Args(Reg("reg")).Format("print_str {reg}")
	RegisterInstr(RANDOM, opcodeStrLower(RANDOM)).Args(Reg("dst")).Format("{dst} = random")

	// control flow
	RegisterInstr(JMP8, opcodeStrLower(JMP8)).Args(Off("target", 1)).Format("jump {target}")
	RegisterInstr(JMP16, opcodeStrLower(JMP16)).Args(Off("target", 2)).Format("jump {target}")
	RegisterInstr(JMP32, opcodeStrLower(JMP32)).Args(Off("target", 4)).Format("jump {target}")
	RegisterInstr(JMP64, opcodeStrLower(JMP64)).Args(Addr("target")).Format("jump {target}")
	RegisterInstr(JMP_INT, opcodeStrLower(JMP_INT)).Args(Reg("target")).Format("jump [{target}]")
	RegisterInstr(JMP_LE8, opcodeStrLower(JMP_LE8)).
		Args(CondArg("cond"), Reg("a"), Reg("b"), Off("target", 1)).
		Format("jump {target} if {a} {cond} {b}")
	RegisterInstr(JMP_LE16, opcodeStrLower(JMP_LE16)).
		Args(CondArg("cond"), Reg("a"), Reg("b"), Off("target", 2)).
		Format("jump {target} if {a} {cond} {b}")
	RegisterInstr(JMP_LE32, opcodeStrLower(JMP_LE32)).
		Args(CondArg("cond"), Reg("a"), Reg("b"), Off("target", 4)).
		Format("jump {target} if {a} {cond} {b}")
	RegisterInstr(JMP_LE64, opcodeStrLower(JMP_LE64)).
		Args(CondArg("cond"), Reg("a"), Reg("b"), Addr("target")).
		Format("jump {target} if {a} {cond} {b}")
	RegisterInstr(JMP_LE_INT, opcodeStrLower(JMP_LE_INT)).
		Args(CondArg("cond"), Reg("a"), Reg("b"), Reg("target")).
		Format("jump [{target}] if {a} {cond} {b}")

	RegisterInstr(MOV, opcodeStrLower(MOV)).Args(Reg("dst"), Reg("src")).Format("{dst} = {src}")
	RegisterInstr(HEAP, opcodeStrLower(HEAP)).Args(Reg("size")).Format("heap += {size}")
	RegisterInstr(INFO, opcodeStrLower(INFO)).Args(Reg("dst"), InfoArg("entry")).Format("{dst} = info {entry}")
}
