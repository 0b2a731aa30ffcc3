package rvm

import (
	"encoding/binary"
	"io"

	"golang.org/x/crypto/chacha20"
)

type seededSource struct {
	cipher *chacha20.Cipher
}

// NewSeededSource returns an endless ChaCha20 keystream keyed by seed, so
// RANDOM yields the same sequence on every run with that seed.
func NewSeededSource(seed uint64) io.Reader {
	key := make([]byte, chacha20.KeySize)
	binary.BigEndian.PutUint64(key, seed)
	nonce := make([]byte, chacha20.NonceSize)
	c, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		// key and nonce sizes are fixed above
		panic(err)
	}
	return &seededSource{cipher: c}
}

func (s *seededSource) Read(p []byte) (int, error) {
	clear(p)
	s.cipher.XORKeyStream(p, p)
	return len(p), nil
}
