package shader

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/nuance-go/common"
	"github.com/pkg/errors"
)

// ParameterSize is the number of bytes a single parameter occupies in the parameter buffer.
const ParameterSize = 4

// ErrUnknownParameter is returned when a parameter name is not declared by the current shader.
var ErrUnknownParameter = errors.New("unknown parameter")

// ErrInvalidValue is returned when a parameter is set to NaN.
var ErrInvalidValue = errors.New("parameter value is NaN")

// Parameter is a single tunable f32 value declared by a //@nuance:param annotation.
type Parameter struct {
	// Name is the WGSL field name inside the generated Params struct. Unique within a shader.
	Name string

	// Value is the live value written to the GPU each frame.
	Value float32

	// Min and Max are the inclusive bounds the value is kept within.
	Min, Max float32

	// Default is the declared initial value.
	Default float32
}

// Parameters is an ordered parameter list. The order is the GPU buffer layout order.
type Parameters []Parameter

// Len returns the number of parameters.
func (ps Parameters) Len() int {
	return len(ps)
}

// Size returns the serialized size of the list in bytes.
func (ps Parameters) Size() uint64 {
	return uint64(len(ps) * ParameterSize)
}

// Index returns the position of the named parameter, or -1 if it is not declared.
//
// Parameters:
//   - name: the parameter name
//
// Returns:
//   - int: the index of the parameter, or -1
func (ps Parameters) Index(name string) int {
	for i := range ps {
		if ps[i].Name == name {
			return i
		}
	}
	return -1
}

// Set assigns a new live value to the named parameter, clamped to its bounds.
// NaN has no position within the bounds and is rejected, leaving the value unchanged.
//
// Parameters:
//   - name: the parameter name
//   - value: the requested value
//
// Returns:
//   - float32: the value actually stored after clamping
//   - error: ErrUnknownParameter if the name is not declared, ErrInvalidValue for NaN
func (ps Parameters) Set(name string, value float32) (float32, error) {
	i := ps.Index(name)
	if i < 0 {
		return 0, errors.Wrapf(ErrUnknownParameter, "%q", name)
	}
	if math.IsNaN(float64(value)) {
		return ps[i].Value, errors.Wrapf(ErrInvalidValue, "%q", name)
	}
	ps[i].Value = common.Clamp(value, ps[i].Min, ps[i].Max)
	return ps[i].Value, nil
}

// Clone returns a copy that shares no storage with ps.
func (ps Parameters) Clone() Parameters {
	if ps == nil {
		return nil
	}
	out := make(Parameters, len(ps))
	copy(out, ps)
	return out
}

// Bytes serializes the live values into a freshly allocated buffer of little-endian f32s,
// one 4-byte slot per parameter in declaration order.
//
// Returns:
//   - []byte: the parameter buffer contents, len == 4 * Len()
func (ps Parameters) Bytes() []byte {
	buf := make([]byte, len(ps)*ParameterSize)
	for i, p := range ps {
		binary.LittleEndian.PutUint32(buf[i*ParameterSize:], math.Float32bits(p.Value))
	}
	return buf
}

// Merge combines a freshly extracted list with the live list it replaces. The result follows
// next's order and bounds. A parameter whose name exists in prev keeps its live value clamped
// to the new bounds; new names start at their declared default. Neither input is modified.
//
// Parameters:
//   - prev: the live parameter list currently in use
//   - next: the list produced by the latest extraction
//
// Returns:
//   - Parameters: the merged list
func Merge(prev, next Parameters) Parameters {
	out := next.Clone()
	for i := range out {
		j := prev.Index(out[i].Name)
		if j < 0 {
			out[i].Value = out[i].Default
			continue
		}
		out[i].Value = common.Clamp(prev[j].Value, out[i].Min, out[i].Max)
	}
	return out
}
