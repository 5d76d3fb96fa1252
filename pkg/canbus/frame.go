package canbus

import (
	"strconv"
	"strings"
)

// Frame is one raw CAN frame as carried inline in the extended
// location packet: an 8 hex char identifier and 16 hex chars (8 bytes)
// of payload.
type Frame struct {
	ID   string
	Data string
}

// canSentinel introduces the CAN segment inside the packet field.
const canSentinel = "02|"

// ExtractFrames pulls the embedded CAN frames out of the raw payload
// field. Only tokens shaped exactly {8 hex}:{16 hex} are accepted;
// everything else (partial frames, corrupted tokens, the leading event
// timestamp) is skipped.
func ExtractFrames(payload string) []Frame {
	_, canPart, found := strings.Cut(payload, canSentinel)
	if !found {
		return nil
	}

	// Drop the trailing checksum.
	canPart, _, _ = strings.Cut(canPart, "*")

	tokens := strings.Split(canPart, "|")
	if len(tokens) > 0 {
		// The first token is the event timestamp, not a frame.
		tokens = tokens[1:]
	}

	var frames []Frame
	for _, token := range tokens {
		id, data, found := strings.Cut(token, ":")
		if !found {
			continue
		}
		if len(id) != 8 || len(data) != 16 {
			continue
		}

		frames = append(frames, Frame{
			ID:   strings.ToUpper(id),
			Data: strings.ToUpper(data),
		})
	}

	return frames
}

// PGN derives the parameter group number from an extended 29 bit
// identifier.
func PGN(canID string) uint32 {
	id, err := strconv.ParseUint(canID, 16, 32)
	if err != nil {
		return 0
	}
	return uint32(id>>8) & 0x3FFFF
}
