// Package tensor converts between JSON payloads and the dense float32
// tensors the model consumes and produces.
package tensor

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/pkg/errors"
	gt "gorgonia.org/tensor"
)

// Every input image is Height x Width.
const (
	Height    = 28
	Width     = 28
	ImageSize = Height * Width
)

// ErrNotNumeric is returned when a leaf of the input is not a number.
var ErrNotNumeric = errors.New("input contains a non-numeric value")

// ErrNonFinite is returned when an output value is NaN or infinite.
var ErrNonFinite = errors.New("tensor contains a non-finite value")

// ErrRagged is returned when sibling arrays have different lengths or depths.
var ErrRagged = errors.New("input is not a regular nested array")

// FromJSON flattens a decoded JSON value and reshapes it to (-1, 28, 28).
// Numbers may be float64 or json.Number.
func FromJSON(v any) (*gt.Dense, error) {
	data, err := Flatten(v)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("cannot reshape empty input into images")
	}
	if len(data)%ImageSize != 0 {
		return nil, fmt.Errorf("cannot reshape array of size %d into shape (-1, %d, %d)", len(data), Height, Width)
	}

	t := gt.New(gt.WithShape(len(data)), gt.WithBacking(data))
	if err := t.Reshape(len(data)/ImageSize, Height, Width); err != nil {
		return nil, errors.Wrap(err, "reshape input")
	}
	return t, nil
}

// Flatten walks v in row-major order. Nested arrays must be regular.
func Flatten(v any) ([]float32, error) {
	if _, err := shapeOf(v); err != nil {
		return nil, err
	}
	var out []float32
	if err := appendLeaves(&out, v); err != nil {
		return nil, err
	}
	return out, nil
}

func shapeOf(v any) ([]int, error) {
	arr, ok := v.([]any)
	if !ok {
		if _, err := toFloat(v); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if len(arr) == 0 {
		return []int{0}, nil
	}
	inner, err := shapeOf(arr[0])
	if err != nil {
		return nil, err
	}
	for _, el := range arr[1:] {
		s, err := shapeOf(el)
		if err != nil {
			return nil, err
		}
		if !equalShape(s, inner) {
			return nil, ErrRagged
		}
	}
	return append([]int{len(arr)}, inner...), nil
}

func appendLeaves(out *[]float32, v any) error {
	if arr, ok := v.([]any); ok {
		for _, el := range arr {
			if err := appendLeaves(out, el); err != nil {
				return err
			}
		}
		return nil
	}
	f, err := toFloat(v)
	if err != nil {
		return err
	}
	*out = append(*out, f)
	return nil
}

func toFloat(v any) (float32, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, errors.Wrapf(ErrNotNumeric, "%q", n.String())
		}
		f = parsed
	default:
		return 0, errors.Wrapf(ErrNotNumeric, "%T", v)
	}
	// values outside float32 range would turn into ±Inf
	f32 := float32(f)
	if !finite(f32) {
		return 0, errors.Wrapf(ErrNotNumeric, "%v is out of float32 range", v)
	}
	return f32, nil
}

func finite(f float32) bool {
	return !math.IsInf(float64(f), 0) && !math.IsNaN(float64(f))
}

func equalShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Nest turns a dense float32 tensor into nested slices that mirror its shape,
// ready for JSON encoding. The innermost dimension is a []float32.
func Nest(t *gt.Dense) (any, error) {
	data, ok := t.Data().([]float32)
	if !ok {
		// scalar tensors hold a bare value
		if f, isScalar := t.Data().(float32); isScalar {
			if !finite(f) {
				return nil, ErrNonFinite
			}
			return f, nil
		}
		return nil, errors.Errorf("unsupported tensor dtype %v", t.Dtype())
	}
	shape := []int(t.Shape())
	if len(shape) == 0 {
		if len(data) != 1 {
			return nil, errors.Errorf("scalar tensor with %d values", len(data))
		}
		if !finite(data[0]) {
			return nil, ErrNonFinite
		}
		return data[0], nil
	}
	for _, f := range data {
		if !finite(f) {
			return nil, ErrNonFinite
		}
	}
	size := 1
	for _, d := range shape {
		size *= d
	}
	if size != len(data) {
		return nil, errors.Errorf("shape %v does not match %d values", shape, len(data))
	}
	return nest(data, shape), nil
}

func nest(data []float32, shape []int) any {
	if len(shape) == 1 {
		out := make([]float32, shape[0])
		copy(out, data)
		return out
	}
	if shape[0] == 0 {
		return []any{}
	}
	stride := len(data) / shape[0]
	out := make([]any, shape[0])
	for i := range out {
		out[i] = nest(data[i*stride:(i+1)*stride], shape[1:])
	}
	return out
}
