package outputdata

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/simbridge/simbridge/pkg/protocol"
)

// reader walks a payload body, tracking the first error it hits. Callers
// check err once at the end instead of after every field.
type reader struct {
	data []byte
	off  int
	err  error
}

func newReader(payload []byte, id string) (*reader, error) {
	if got := protocol.PayloadID(payload); got != id {
		return nil, fmt.Errorf("payload id %q, want %q", got, id)
	}
	return &reader{data: payload, off: protocol.TypeIDLen}, nil
}

func (r *reader) fail(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("truncated payload: %s at offset %d", what, r.off)
	}
}

func (r *reader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	if r.off+1 > len(r.data) {
		r.fail("uint8")
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

func (r *reader) bool() bool { return r.u8() != 0 }

func (r *reader) u16() uint16 {
	if r.err != nil {
		return 0
	}
	if r.off+2 > len(r.data) {
		r.fail("uint16")
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.data) {
		r.fail("uint32")
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *reader) i32() int32 { return int32(r.u32()) }

func (r *reader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	if r.off+8 > len(r.data) {
		r.fail("uint64")
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v
}

func (r *reader) f32() float64 {
	return float64(math.Float32frombits(r.u32()))
}

func (r *reader) vec3() protocol.Vector3 {
	return protocol.Vector3{X: r.f32(), Y: r.f32(), Z: r.f32()}
}

func (r *reader) quat() protocol.Quaternion {
	return protocol.Quaternion{W: r.f32(), X: r.f32(), Y: r.f32(), Z: r.f32()}
}

func (r *reader) str() string {
	n := int(r.u16())
	if r.err != nil {
		return ""
	}
	if r.off+n > len(r.data) {
		r.fail("string body")
		return ""
	}
	s := string(r.data[r.off : r.off+n])
	r.off += n
	return s
}

func (r *reader) rgb() [3]uint8 {
	return [3]uint8{r.u8(), r.u8(), r.u8()}
}

// count reads a collection length with a sanity bound.
func (r *reader) count() int {
	n := r.u32()
	if r.err == nil && n > 1<<20 {
		r.err = fmt.Errorf("collection count %d exceeds limit", n)
	}
	return int(n)
}

// finish ensures the whole body was consumed.
func (r *reader) finish() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.data) {
		return fmt.Errorf("payload has %d trailing bytes", len(r.data)-r.off)
	}
	return nil
}

// writer builds a payload body. The mock build and tests use it; a real build
// produces the same layout on the engine side.
type writer struct {
	buf []byte
}

func newWriter(id string) *writer {
	return &writer{buf: append(make([]byte, 0, 64), id...)}
}

func (w *writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *writer) i32(v int32)  { w.u32(uint32(v)) }
func (w *writer) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

func (w *writer) bool(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) f32(v float64) {
	w.u32(math.Float32bits(float32(v)))
}

func (w *writer) vec3(v protocol.Vector3) {
	w.f32(v.X)
	w.f32(v.Y)
	w.f32(v.Z)
}

func (w *writer) quat(v protocol.Quaternion) {
	w.f32(v.W)
	w.f32(v.X)
	w.f32(v.Y)
	w.f32(v.Z)
}

func (w *writer) str(s string) {
	w.u16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) rgb(c [3]uint8) {
	w.u8(c[0])
	w.u8(c[1])
	w.u8(c[2])
}

func (w *writer) bytes() []byte { return w.buf }
