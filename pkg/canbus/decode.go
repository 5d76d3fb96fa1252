package canbus

import (
	"encoding/hex"
	"strconv"
)

// Decode extracts every profile signal present in the frame list. For
// each rule the first matching frame wins. Values failing the rule's
// min/max bounds are dropped rather than stored.
func Decode(frames []Frame, profile *Profile) map[string]interface{} {
	signals := map[string]interface{}{}

	for i := range profile.Signals {
		rule := &profile.Signals[i]

		for _, frame := range frames {
			if !rule.matches(frame) {
				continue
			}

			data, err := hex.DecodeString(frame.Data)
			if err != nil || len(data) != 8 {
				continue
			}

			value, ok := decodeRule(data, rule)
			if ok {
				signals[rule.Name] = value
			}
			break
		}
	}

	return signals
}

func decodeRule(data []byte, rule *SignalRule) (interface{}, bool) {
	switch rule.Kind {
	case RuleKindUint:
		raw := littleEndian(data, rule.StartByte-1, rule.Length)
		return boundsCheck(float64(raw)*rule.scale()+rule.Offset, rule)

	case RuleKindInt:
		raw := signExtend(littleEndian(data, rule.StartByte-1, rule.Length), rule.Length)
		return boundsCheck(float64(raw)*rule.scale()+rule.Offset, rule)

	case RuleKindBit:
		bit := (data[rule.Byte-1] >> rule.Bit) & 1
		return float64(bit), true

	case RuleKindBool:
		return (data[rule.Byte-1]>>rule.Bit)&1 == 1, true

	case RuleKindEnum:
		label, ok := rule.Enum[strconv.Itoa(int(data[rule.Byte-1]))]
		return label, ok

	case RuleKindBitfield:
		raw := bitField(data, rule.BitOffset, rule.BitLength)
		return boundsCheck(float64(raw)*rule.scale()+rule.Offset, rule)
	}

	// Unknown kinds are rejected at profile load.
	return nil, false
}

func boundsCheck(value float64, rule *SignalRule) (interface{}, bool) {
	if rule.Min != nil && value < *rule.Min {
		return nil, false
	}
	if rule.Max != nil && value > *rule.Max {
		return nil, false
	}
	return value, true
}

func littleEndian(data []byte, start int, length int) uint64 {
	var value uint64
	for i := length - 1; i >= 0; i-- {
		value = value<<8 | uint64(data[start+i])
	}
	return value
}

func signExtend(value uint64, length int) int64 {
	shift := uint(64 - 8*length)
	return int64(value<<shift) >> shift
}

// bitField reads length bits starting at offset, LSB first over the
// little-endian payload.
func bitField(data []byte, offset int, length int) uint64 {
	var value uint64
	for i := 0; i < length; i++ {
		bit := offset + i
		if data[bit/8]>>(bit%8)&1 == 1 {
			value |= 1 << i
		}
	}
	return value
}
