package framer

import "bytes"

// Terminator selects the frame-end convention for a protocol
// generation.
type Terminator int

const (
	// TerminatorChecksum ends a frame at the '*' checksum marker.
	TerminatorChecksum Terminator = iota
	// TerminatorCRLF ends a frame at "\r\n" (newer firmware).
	TerminatorCRLF
)

// maxBufferSize caps buffered bytes from a peer that never produces a
// frame boundary.
const maxBufferSize = 1024 * 1024

var crlf = []byte("\r\n")

// Framer extracts delimiter-framed packets from a continuous byte
// stream. Partial frames are retained across Push calls, so splitting
// the same stream into different chunk sizes yields the same frames.
type Framer struct {
	terminator Terminator
	buffer     []byte
}

func New(terminator Terminator) *Framer {
	return &Framer{terminator: terminator}
}

// Push appends newly read bytes and returns the complete frames now
// available, start marker and terminator included.
func (f *Framer) Push(chunk []byte) [][]byte {
	f.buffer = append(f.buffer, chunk...)

	var frames [][]byte

	for {
		start := bytes.IndexByte(f.buffer, '$')
		if start == -1 {
			// Nothing resembling a frame; drop the buffer once it gets
			// silly rather than let a misbehaving peer grow it forever.
			if len(f.buffer) > maxBufferSize {
				f.buffer = nil
			}
			break
		}

		end, frameLen := f.findEnd(start)
		if end == -1 {
			if start > 0 {
				// Discard junk preceding the start marker.
				f.buffer = f.buffer[start:]
			}
			if len(f.buffer) > maxBufferSize {
				f.buffer = nil
			}
			break
		}

		frame := make([]byte, frameLen)
		copy(frame, f.buffer[start:start+frameLen])
		frames = append(frames, frame)

		f.buffer = f.buffer[start+frameLen:]
	}

	return frames
}

// findEnd locates the terminator after start and returns its index and
// the full frame length measured from start, or (-1, 0) when the frame
// is still incomplete.
func (f *Framer) findEnd(start int) (int, int) {
	switch f.terminator {
	case TerminatorCRLF:
		if start+2 > len(f.buffer) {
			return -1, 0
		}
		end := bytes.Index(f.buffer[start+2:], crlf)
		if end == -1 {
			return -1, 0
		}
		end += start + 2
		return end, end + 2 - start
	default:
		end := bytes.IndexByte(f.buffer[start+1:], '*')
		if end == -1 {
			return -1, 0
		}
		end += start + 1
		return end, end + 1 - start
	}
}
