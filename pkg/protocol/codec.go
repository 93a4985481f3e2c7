package protocol

import (
	"encoding/binary"
	"fmt"
)

// TypeIDLen is the length of the ASCII type identifier at the start of every
// output data payload.
const TypeIDLen = 4

// maxPayloadLen guards against corrupt length prefixes. Image passes are the
// largest payloads the build emits and stay well under this.
const maxPayloadLen = 64 << 20

// maxPayloadCount guards against corrupt payload counts.
const maxPayloadCount = 1 << 16

// Frame is one complete response from the build: zero or more output data
// payloads plus the build's frame number. Each payload begins with a 4-byte
// type identifier.
type Frame struct {
	Payloads [][]byte
	Number   uint64
}

// PayloadID returns the 4-byte type identifier of a payload, or "" if the
// payload is too short to carry one.
func PayloadID(payload []byte) string {
	if len(payload) < TypeIDLen {
		return ""
	}
	return string(payload[:TypeIDLen])
}

// EncodeFrame serializes a frame into a single binary message. The frame
// number is appended as a final 8-byte little-endian payload.
func EncodeFrame(f *Frame) []byte {
	size := 4
	for _, p := range f.Payloads {
		size += 4 + len(p)
	}
	size += 4 + 8

	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(f.Payloads)+1))
	for _, p := range f.Payloads {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p)))
		buf = append(buf, p...)
	}
	buf = binary.LittleEndian.AppendUint32(buf, 8)
	buf = binary.LittleEndian.AppendUint64(buf, f.Number)
	return buf
}

// ParseFrame decodes a binary message from the build. The final payload must
// be the 8-byte frame number; everything before it is kept as raw payloads for
// the outputdata package to interpret.
func ParseFrame(data []byte) (*Frame, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("frame too short: %d bytes", len(data))
	}
	count := binary.LittleEndian.Uint32(data[:4])
	if count == 0 {
		return nil, fmt.Errorf("frame has no payloads")
	}
	if count > maxPayloadCount {
		return nil, fmt.Errorf("frame payload count %d exceeds limit", count)
	}
	off := 4

	payloads := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+4 > len(data) {
			return nil, fmt.Errorf("frame truncated at payload %d length", i)
		}
		n := binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
		if n > maxPayloadLen {
			return nil, fmt.Errorf("payload %d length %d exceeds limit", i, n)
		}
		if off+int(n) > len(data) {
			return nil, fmt.Errorf("frame truncated at payload %d body", i)
		}
		payloads = append(payloads, data[off:off+int(n)])
		off += int(n)
	}
	if off != len(data) {
		return nil, fmt.Errorf("frame has %d trailing bytes", len(data)-off)
	}

	last := payloads[len(payloads)-1]
	if len(last) != 8 {
		return nil, fmt.Errorf("frame number payload is %d bytes, want 8", len(last))
	}
	return &Frame{
		Payloads: payloads[:len(payloads)-1],
		Number:   binary.LittleEndian.Uint64(last),
	}, nil
}
