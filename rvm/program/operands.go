package program

// DecodeBE decodes up to 8 bytes as a big-endian unsigned integer.
func DecodeBE(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

// EncodeBE returns the low n bytes of v, most significant first.
func EncodeBE(v uint64, n int) []byte {
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

// SignExtend interprets the low n bytes of x as a two's complement integer.
func SignExtend(x uint64, n int) int64 {
	if n >= 8 {
		return int64(x)
	}
	shift := uint(64 - 8*n)
	return int64(x<<shift) >> shift
}

// AddOffset applies a signed displacement to an unsigned position.
func AddOffset(pos uint64, disp int64) uint64 {
	return uint64(int64(pos) + disp)
}
