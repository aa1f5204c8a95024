// Package telemetry defines the fixed binary record the controller emits
// each cycle for external datalogging. Consumers decode by field order;
// there is no embedded schema or versioning.
package telemetry

import (
	"encoding/binary"
	"fmt"
	"math"
)

// RecordSize is the encoded size: 17 float32 fields, 4 bytes each,
// little-endian, no padding.
const RecordSize = 68

// Record is one control cycle's state, in wire order.
type Record struct {
	X, Y, Theta  float32
	VF, VR, W    float32
	IErrV, IErrW float32
	Delta        float32

	TargetK, TargetV, TargetW float32
	YE, PsiE, K               float32
	BWw, BWv                  float32
}

// ChannelNames gives the wire-order field names, used for plot captions
// and CSV headers.
var ChannelNames = [17]string{
	"x", "y", "theta", "vf", "vr", "w", "ierr_v", "ierr_w", "delta",
	"target_k", "target_v", "target_w", "ye", "psie", "k", "bw_w", "bw_v",
}

func (r *Record) fields() [17]*float32 {
	return [17]*float32{
		&r.X, &r.Y, &r.Theta, &r.VF, &r.VR, &r.W, &r.IErrV, &r.IErrW, &r.Delta,
		&r.TargetK, &r.TargetV, &r.TargetW, &r.YE, &r.PsiE, &r.K, &r.BWw, &r.BWv,
	}
}

// Channels returns the record as a wire-order array.
func (r *Record) Channels() [17]float32 {
	var out [17]float32
	for i, f := range r.fields() {
		out[i] = *f
	}
	return out
}

// Encode writes the record into buf and returns the number of bytes
// written. buf must hold at least RecordSize bytes.
func (r *Record) Encode(buf []byte) (int, error) {
	if len(buf) < RecordSize {
		return 0, fmt.Errorf("telemetry: buffer too small: %d < %d", len(buf), RecordSize)
	}
	for i, f := range r.fields() {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(*f))
	}
	return RecordSize, nil
}

// DecodeRecord reads one record from buf.
func DecodeRecord(buf []byte) (Record, error) {
	var r Record
	if len(buf) < RecordSize {
		return r, fmt.Errorf("telemetry: buffer too small: %d < %d", len(buf), RecordSize)
	}
	for i, f := range r.fields() {
		*f = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return r, nil
}
