package trace

import (
	"time"

	"golang.org/x/crypto/blake2b"
)

// maxInlineMemory is the largest memory change stored verbatim; larger
// changes are stored as their blake2b-256 digest.
const maxInlineMemory = 32

// Header is the first record of a trace.
type Header struct {
	RunID     string    `json:"runId"`
	Image     string    `json:"image,omitempty"`
	ImageSize uint64    `json:"imageSize"`
	Started   time.Time `json:"started"`
}

// TraceStep records the machine state after one tick.
type TraceStep struct {
	Tick      uint64 `json:"tick"`
	PC        uint64 `json:"pc"`
	Opcode    uint8  `json:"opcode"`
	OpcodeStr string `json:"opcodeStr,omitempty"`

	PostPC              uint64      `json:"postPC"`
	PostRegister        *[16]string `json:"postRegister,omitempty"`
	ChangedMemoryAddr   *uint64     `json:"changedMemoryAddr,omitempty"`
	ChangedMemoryLength *uint64     `json:"changedMemoryLength,omitempty"`
	ChangedMemoryBytes  []byte      `json:"changedMemoryBytes,omitempty"`
	Halted              bool        `json:"halted,omitempty"`
	Error               string      `json:"error,omitempty"`
}

func NewTraceStep(tick uint64, pc uint64, opcode uint8, opcodeStr string) *TraceStep {
	return &TraceStep{
		Tick:      tick,
		PC:        pc,
		Opcode:    opcode,
		OpcodeStr: opcodeStr,
	}
}

func (ts *TraceStep) SetPostRegister(regs *[16]string) {
	copied := *regs
	ts.PostRegister = &copied
}

func (ts *TraceStep) SetChangedMemory(addr uint64, length uint64, bytes []byte) {
	ts.ChangedMemoryAddr = &addr
	ts.ChangedMemoryLength = &length
	switch {
	case len(bytes) == 0:
		ts.ChangedMemoryBytes = nil
	case len(bytes) > maxInlineMemory:
		digest := blake2b.Sum256(bytes)
		ts.ChangedMemoryBytes = digest[:]
	default:
		ts.ChangedMemoryBytes = make([]byte, len(bytes))
		copy(ts.ChangedMemoryBytes, bytes)
	}
}

func (ts *TraceStep) SetError(err error) {
	if err != nil {
		ts.Error = err.Error()
	}
}
