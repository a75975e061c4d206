package tensor

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/pkg/errors"
	gt "gorgonia.org/tensor"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return v
}

func zeros(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = float64(0)
	}
	return out
}

func image() []any {
	rows := make([]any, Height)
	for i := range rows {
		rows[i] = zeros(Width)
	}
	return rows
}

func TestFromJSONSingleImage(t *testing.T) {
	d, err := FromJSON(image())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Shape().Eq(gt.Shape{1, Height, Width}) {
		t.Fatalf("unexpected shape %v", d.Shape())
	}
}

func TestFromJSONInfersLeadingDimension(t *testing.T) {
	cases := map[string]any{
		"flat":          zeros(3 * ImageSize),
		"batch":         []any{image(), image(), image()},
		"rows of image": append(append([]any{}, image()...), append(image(), image()...)...),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			d, err := FromJSON(in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Shape()[0] != 3 {
				t.Fatalf("expected batch of 3, got shape %v", d.Shape())
			}
		})
	}
}

func TestFromJSONRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"not divisible": `[1,2,3]`,
		"empty":         `[]`,
		"scalar":        `5`,
		"string leaf":   `[[1,"a"]]`,
		"null":          `null`,
		"object":        `{"a":1}`,
		"ragged":        `[[1,2],[3]]`,
		"mixed depth":   `[[1,2],3]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := FromJSON(decode(t, body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestFlattenErrors(t *testing.T) {
	_, err := Flatten(decode(t, `[[1,2],[3]]`))
	if !errors.Is(err, ErrRagged) {
		t.Fatalf("expected ErrRagged, got %v", err)
	}
	_, err = Flatten(decode(t, `[true]`))
	if !errors.Is(err, ErrNotNumeric) {
		t.Fatalf("expected ErrNotNumeric, got %v", err)
	}
}

func TestFlattenRowMajor(t *testing.T) {
	got, err := Flatten(decode(t, `[[1,2],[3,4.5]]`))
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{1, 2, 3, 4.5}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestNestMirrorsShape(t *testing.T) {
	d := gt.New(gt.WithShape(2, 3), gt.WithBacking([]float32{1, 2, 3, 4, 5, 6}))
	v, err := Nest(d)
	if err != nil {
		t.Fatal(err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `[[1,2,3],[4,5,6]]` {
		t.Fatalf("unexpected encoding %s", out)
	}
}

func TestNestThreeDims(t *testing.T) {
	d := gt.New(gt.WithShape(2, 1, 2), gt.WithBacking([]float32{1, 2, 3, 4}))
	v, err := Nest(d)
	if err != nil {
		t.Fatal(err)
	}
	out, _ := json.Marshal(v)
	if string(out) != `[[[1,2]],[[3,4]]]` {
		t.Fatalf("unexpected encoding %s", out)
	}
}

func TestFromJSONRejectsOutOfRangeValues(t *testing.T) {
	for _, body := range []string{`[1e39]`, `[-3.5e38]`, `[1e999]`} {
		_, err := Flatten(decode(t, body))
		if !errors.Is(err, ErrNotNumeric) {
			t.Fatalf("%s: expected ErrNotNumeric, got %v", body, err)
		}
	}
	if _, err := Flatten(decode(t, `[3.4e38]`)); err != nil {
		t.Fatalf("max float32 should be accepted: %v", err)
	}
}

func TestNestRejectsNonFinite(t *testing.T) {
	for _, v := range []float32{float32(math.NaN()), float32(math.Inf(-1))} {
		d := gt.New(gt.WithShape(1, 2), gt.WithBacking([]float32{0.5, v}))
		if _, err := Nest(d); !errors.Is(err, ErrNonFinite) {
			t.Fatalf("%v: expected ErrNonFinite, got %v", v, err)
		}
	}
}
