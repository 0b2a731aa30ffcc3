package program

// Builder assembles an image byte by byte.
type Builder struct {
	code []byte
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Op appends an opcode.
func (b *Builder) Op(op Opcode) *Builder {
	b.code = append(b.code, byte(op))
	return b
}

// Reg appends a register index.
func (b *Builder) Reg(r uint8) *Builder {
	b.code = append(b.code, r)
	return b
}

func (b *Builder) U8(v uint8) *Builder { return b.push(uint64(v), 1) }
func (b *Builder) U16(v uint16) *Builder { return b.push(uint64(v), 2) }
func (b *Builder) U32(v uint32) *Builder { return b.push(uint64(v), 4) }
func (b *Builder) U64(v uint64) *Builder { return b.push(v, 8) }

// I8, I16 and I32 append signed displacements.
func (b *Builder) I8(v int8) *Builder { return b.push(uint64(v), 1) }
func (b *Builder) I16(v int16) *Builder { return b.push(uint64(v), 2) }
func (b *Builder) I32(v int32) *Builder { return b.push(uint64(v), 4) }

// Str appends s followed by a NUL terminator.
func (b *Builder) Str(s string) *Builder {
	b.code = append(b.code, s...)
	b.code = append(b.code, 0)
	return b
}

// Raw appends bytes verbatim.
func (b *Builder) Raw(p ...byte) *Builder {
	b.code = append(b.code, p...)
	return b
}

func (b *Builder) push(v uint64, n int) *Builder {
	b.code = append(b.code, EncodeBE(v, n)...)
	return b
}

// Len is the offset the next byte will be written at.
func (b *Builder) Len() uint64 {
	return uint64(len(b.code))
}

// Bytes returns a copy of the assembled image.
func (b *Builder) Bytes() []byte {
	out := make([]byte, len(b.code))
	copy(out, b.code)
	return out
}
