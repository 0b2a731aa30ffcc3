package program

import "fmt"

// Opcode is the first byte of every instruction.
type Opcode byte

const (
	NOP Opcode = 0x00

	// integers and memory
	STORE_INT     Opcode = 0x01
	STORE_INT_MEM Opcode = 0x02
	LOAD_INT      Opcode = 0x03
	LOAD_INT_MEM  Opcode = 0x04
	LOAD_INT8     Opcode = 0x05
	LOAD_INT16    Opcode = 0x06
	LOAD_INT32    Opcode = 0x07
	LOAD_INT64    Opcode = 0x08

	// strings
	LOAD_STR      Opcode = 0x09
	LOAD_STR_MEM  Opcode = 0x0a
	STORE_STR     Opcode = 0x0b
	STORE_STR_MEM Opcode = 0x0c

	// arithmetic
	INC_INT Opcode = 0x0d
	DEC_INT Opcode = 0x0e
	ADD_INT Opcode = 0x0f
	SUB_INT Opcode = 0x10
	MUL_INT Opcode = 0x11
	DIV_INT Opcode = 0x12
	MOD_INT Opcode = 0x13

	// output
	PRINT_INT   Opcode = 0x14
	PRINT_FLOAT Opcode = 0x15
	PRINT_STR   Opcode = 0x16

	RANDOM Opcode = 0x17

	// control flow
	JMP8       Opcode = 0x18
	JMP16      Opcode = 0x19
	JMP32      Opcode = 0x1a
	JMP64      Opcode = 0x1b
	JMP_INT    Opcode = 0x1c
	JMP_LE8    Opcode = 0x1d
	JMP_LE16   Opcode = 0x1e
	JMP_LE32   Opcode = 0x1f
	JMP_LE64   Opcode = 0x20
	JMP_LE_INT Opcode = 0x21

	MOV  Opcode = 0x22
	HEAP Opcode = 0x23
	INFO Opcode = 0x24

	STOP Opcode = 0xff
)

var opcodeNames = map[Opcode]string{
	NOP:           "NOP",
	STORE_INT:     "STORE_INT",
	STORE_INT_MEM: "STORE_INT_MEM",
	LOAD_INT:      "LOAD_INT",
	LOAD_INT_MEM:  "LOAD_INT_MEM",
	LOAD_INT8:     "LOAD_INT8",
	LOAD_INT16:    "LOAD_INT16",
	LOAD_INT32:    "LOAD_INT32",
	LOAD_INT64:    "LOAD_INT64",
	LOAD_STR:      "LOAD_STR",
	LOAD_STR_MEM:  "LOAD_STR_MEM",
	STORE_STR:     "STORE_STR",
	STORE_STR_MEM: "STORE_STR_MEM",
	INC_INT:       "INC_INT",
	DEC_INT:       "DEC_INT",
	ADD_INT:       "ADD_INT",
	SUB_INT:       "SUB_INT",
	MUL_INT:       "MUL_INT",
	DIV_INT:       "DIV_INT",
	MOD_INT:       "MOD_INT",
	PRINT_INT:     "PRINT_INT",
	PRINT_FLOAT:   "PRINT_FLOAT",
	PRINT_STR:     "PRINT_STR",
	RANDOM:        "RANDOM",
	JMP8:          "JMP8",
	JMP16:         "JMP16",
	JMP32:         "JMP32",
	JMP64:         "JMP64",
	JMP_INT:       "JMP_INT",
	JMP_LE8:       "JMP_LE8",
	JMP_LE16:      "JMP_LE16",
	JMP_LE32:      "JMP_LE32",
	JMP_LE64:      "JMP_LE64",
	JMP_LE_INT:    "JMP_LE_INT",
	MOV:           "MOV",
	HEAP:          "HEAP",
	INFO:          "INFO",
	STOP:          "STOP",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_0x%02x", byte(op))
}

// Valid reports whether op is part of the instruction set.
func (op Opcode) Valid() bool {
	_, ok := opcodeNames[op]
	return ok
}

// Opcodes returns every assigned opcode in ascending order.
func Opcodes() []Opcode {
	ops := make([]Opcode, 0, len(opcodeNames))
	for i := 0; i < 256; i++ {
		if op := Opcode(i); op.Valid() {
			ops = append(ops, op)
		}
	}
	return ops
}

// Info selects the machine fact written by INFO.
type Info byte

const (
	InfoMagic     Info = 0
	InfoTicks     Info = 1
	InfoHeapSize  Info = 2
	InfoHeapStart Info = 3
)

// Magic is the constant reported by INFO InfoMagic.
const Magic uint64 = 0xdeadbeef

func (i Info) String() string {
	switch i {
	case InfoMagic:
		return "magic"
	case InfoTicks:
		return "ticks"
	case InfoHeapSize:
		return "heap_size"
	case InfoHeapStart:
		return "heap_start"
	}
	return fmt.Sprintf("info_%d", byte(i))
}

// Cond is the comparison code of a conditional jump.
type Cond byte

const (
	CondEq        Cond = iota // a == b
	CondLt                    // a < b
	CondGt                    // a > b
	CondLe                    // a <= b
	CondGe                    // a >= b
	CondNe                    // a != b
	CondNotA                  // !a
	CondNotB                  // !b
	CondAnd                   // a && b
	CondOr                    // a || b
	CondAOrNotB               // a || ~b
	CondNotAOrB               // ~a || b
	CondAAndNotB              // a && ~b
	CondNotAAndB              // ~a && b
	CondXor                   // a ^ b
	CondMod                   // a % b
	NumConds
)

var condSymbols = [NumConds]string{"==", "<", ">", "<=", ">=", "!=", "!a", "!b", "&&", "||", "a||~b", "~a||b", "a&&~b", "~a&&b", "^", "%"}

func (c Cond) String() string {
	if c < NumConds {
		return condSymbols[c]
	}
	return fmt.Sprintf("cond_%d", byte(c))
}
