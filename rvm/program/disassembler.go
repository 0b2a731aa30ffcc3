package program

import (
	"fmt"
	"strings"

	"github.com/colorfulnotion/regvm/vmerrors"
)

// Instruction is one decoded instruction of an image.
type Instruction struct {
	Offset uint64
	Opcode Opcode
	Name   string
	Values []interface{}
	Text   string
	Length int
}

// Raw returns the encoded bytes of the instruction within image.
func (in Instruction) Raw(image []byte) []byte {
	return image[in.Offset : in.Offset+uint64(in.Length)]
}

// DecodeAt decodes the instruction starting at offset. Unknown opcodes decode
// as a single byte.
func DecodeAt(image []byte, offset uint64) (Instruction, error) {
	if offset >= uint64(len(image)) {
		return Instruction{}, fmt.Errorf("%w: offset %d of %d", vmerrors.ErrOutOfBounds, offset, len(image))
	}
	op := Opcode(image[offset])
	in := Instruction{Offset: offset, Opcode: op, Length: 1}
	spec, ok := InstrSpecs[op]
	if !ok {
		in.Name = opcodeStrLower(op)
		in.Text = fmt.Sprintf("db 0x%02x", byte(op))
		return in, nil
	}
	in.Name = spec.Name

	pos := offset + 1
	values := make([]interface{}, 0, len(spec.Args))
	for _, arg := range spec.Args {
		if arg.Type == ArgTypeStr {
			end := pos
			for end < uint64(len(image)) && image[end] != 0 {
				end++
			}
			if end >= uint64(len(image)) {
				return in, fmt.Errorf("%w: unterminated string at %d", vmerrors.ErrOutOfBounds, pos)
			}
			values = append(values, string(image[pos:end]))
			pos = end + 1
			continue
		}
		n := uint64(arg.Type.Width())
		if pos+n > uint64(len(image)) {
			return in, fmt.Errorf("%w: %s operand %q of %s truncated at %d", vmerrors.ErrOutOfBounds, arg.Type, arg.Name, spec.Name, pos)
		}
		raw := DecodeBE(image[pos : pos+n])
		switch arg.Type {
		case ArgTypeReg, ArgTypeSize:
			values = append(values, uint8(raw))
		case ArgTypeCond:
			values = append(values, Cond(raw))
		case ArgTypeInfo:
			values = append(values, Info(raw))
		case ArgTypeOff8, ArgTypeOff16, ArgTypeOff32:
			values = append(values, AddOffset(pos, SignExtend(raw, int(n))))
		default:
			values = append(values, raw)
		}
		pos += n
	}
	in.Values = values
	in.Length = int(pos - offset)
	in.Text = FormatInstruction(op, values)
	return in, nil
}

// Disassemble decodes image linearly from offset 0. Decoding stops at the
// first truncated instruction; the instructions decoded so far are returned
// with the error.
func Disassemble(image []byte) ([]Instruction, error) {
	var out []Instruction
	for offset := uint64(0); offset < uint64(len(image)); {
		in, err := DecodeAt(image, offset)
		if err != nil {
			return out, err
		}
		out = append(out, in)
		offset += uint64(in.Length)
	}
	return out, nil
}

func bytesToHex(data []byte) string {
	var sb strings.Builder
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}

// DisassembleString renders image one instruction per line as
// "offset: raw bytes  mnemonic text".
func DisassembleString(image []byte) (string, error) {
	instrs, err := Disassemble(image)
	var sb strings.Builder
	for _, in := range instrs {
		fmt.Fprintf(&sb, "%6d: %-24s %-14s %s\n", in.Offset, bytesToHex(in.Raw(image)), in.Name, in.Text)
	}
	return sb.String(), err
}
