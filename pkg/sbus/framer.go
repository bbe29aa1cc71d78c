package sbus

import "bytes"

// Framer recovers frames from an SBUS byte stream.
// It is not safe for concurrent use.
type Framer struct {
	backlog []byte
	stats   FramerStats
}

// FramerStats are cumulative counters of a Framer.
type FramerStats struct {
	Frames    uint64 // frames emitted
	Discarded uint64 // bytes dropped while resyncing
}

// Feed appends bytes to the backlog and returns all frames completed by
// them, in arrival order. Misaligned or garbage bytes are dropped silently.
func (r *Framer) Feed(data []byte) (frames []Frame) {
	r.backlog = append(r.backlog, data...)
	for len(r.backlog) >= FrameLen {
		start := bytes.IndexByte(r.backlog, StartByte)
		if start < 0 {
			// no start marker at all, nothing worth keeping.
			r.discard(len(r.backlog))
			break
		}
		r.discard(start)
		if len(r.backlog) < FrameLen {
			break
		}
		if r.backlog[FrameLen-1] != EndByte {
			// false start marker.
			r.discard(1)
			continue
		}
		var f Frame
		copy(f[:], r.backlog[:FrameLen])
		r.consume(FrameLen)
		if _, err := Decode(f); err == nil {
			frames = append(frames, f)
			r.stats.Frames++
		}
	}
	r.compact()
	return
}

// Buffered returns the number of bytes waiting in the backlog.
func (r *Framer) Buffered() int {
	return len(r.backlog)
}

// Stats returns the counters.
func (r *Framer) Stats() FramerStats {
	return r.stats
}

// Reset drops the backlog. Counters are kept.
func (r *Framer) Reset() {
	r.backlog = nil
}

func (r *Framer) discard(n int) {
	r.stats.Discarded += uint64(n)
	r.consume(n)
}

func (r *Framer) consume(n int) {
	r.backlog = r.backlog[n:]
}

// compact copies the remaining tail into a small array once the old one
// has grown large.
func (r *Framer) compact() {
	if len(r.backlog) == 0 {
		r.backlog = nil
		return
	}
	if cap(r.backlog) > 4*FrameLen {
		r.backlog = append(make([]byte, 0, 2*FrameLen), r.backlog...)
	}
}
