package rvm

import (
	"fmt"

	"github.com/colorfulnotion/regvm/vmerrors"
)

// Segment is one contiguous, zero-initialised heap allocation addressed by
// absolute address.
type Segment struct {
	start uint64
	data  []byte
}

func NewSegment(start, size uint64) *Segment {
	return &Segment{start: start, data: make([]byte, size)}
}

func (s *Segment) Start() uint64 { return s.start }

func (s *Segment) Size() uint64 { return uint64(len(s.data)) }

// End is the first address after the segment.
func (s *Segment) End() uint64 { return s.start + s.Size() }

func (s *Segment) Contains(addr uint64) bool {
	return addr >= s.start && addr-s.start < s.Size()
}

func (s *Segment) Get(addr uint64) (byte, error) {
	if !s.Contains(addr) {
		return 0, fmt.Errorf("%w: heap address %d outside [%d, %d)", vmerrors.ErrOutOfBounds, addr, s.start, s.End())
	}
	return s.data[addr-s.start], nil
}

func (s *Segment) Set(addr uint64, b byte) error {
	if !s.Contains(addr) {
		return fmt.Errorf("%w: heap address %d outside [%d, %d)", vmerrors.ErrOutOfBounds, addr, s.start, s.End())
	}
	s.data[addr-s.start] = b
	return nil
}

// SegmentInfo describes a segment without exposing its contents.
type SegmentInfo struct {
	Start uint64
	Size  uint64
}

// MaxHeapSize bounds the total size of all heap segments.
const MaxHeapSize = 1 << 30

// Heap is an append-only list of segments laid out contiguously from a base
// address. Segments are never freed or moved.
type Heap struct {
	segments []*Segment
	base     uint64
	cursor   uint64
}

func NewHeap(base uint64) *Heap {
	return &Heap{base: base, cursor: base}
}

// Rebase moves the start of an empty heap. It has no effect once a segment
// exists.
func (h *Heap) Rebase(base uint64) {
	if len(h.segments) == 0 {
		h.base = base
		h.cursor = base
	}
}

// Allocate appends a zeroed segment of size bytes at the cursor. The heap is
// left unchanged when the request would take it past MaxHeapSize.
func (h *Heap) Allocate(size uint64) (*Segment, error) {
	if size > MaxHeapSize-h.Total() || h.cursor+size < h.cursor {
		return nil, fmt.Errorf("%w: %d bytes requested with %d of %d in use", vmerrors.ErrHeapExhausted, size, h.Total(), MaxHeapSize)
	}
	seg := NewSegment(h.cursor, size)
	h.segments = append(h.segments, seg)
	h.cursor += size
	return seg, nil
}

// Find returns the segment containing addr, or nil.
func (h *Heap) Find(addr uint64) *Segment {
	for _, seg := range h.segments {
		if seg.Contains(addr) {
			return seg
		}
	}
	return nil
}

func (h *Heap) Base() uint64 { return h.base }

// Total is the sum of all segment sizes.
func (h *Heap) Total() uint64 { return h.cursor - h.base }

func (h *Heap) Len() int { return len(h.segments) }

func (h *Heap) Segments() []SegmentInfo {
	out := make([]SegmentInfo, len(h.segments))
	for i, seg := range h.segments {
		out[i] = SegmentInfo{Start: seg.Start(), Size: seg.Size()}
	}
	return out
}
