package codec

import (
	"bytes"
	"reflect"
	"testing"
)

type sample struct {
	Terms   []string           `json:"terms" cbor:"terms"`
	Weights map[string]float64 `json:"weights" cbor:"weights"`
}

func TestCBORIsDeterministicAndCompressed(t *testing.T) {
	v := sample{
		Terms:   []string{"cat", "dog", "bird"},
		Weights: map[string]float64{"cat": 0.58, "dog": 0, "bird": 1.58},
	}
	a, err := Marshal(FormatCBOR, v)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(FormatCBOR, v)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("cbor encoding is not deterministic")
	}
	// zstd frame magic number.
	if !bytes.HasPrefix(a, []byte{0x28, 0xb5, 0x2f, 0xfd}) {
		t.Errorf("payload is not a zstd frame: % x", a[:4])
	}

	var got sample
	if err := Unmarshal(FormatCBOR, a, &got); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Errorf("got %+v, want %+v", got, v)
	}
}

func TestWriteReadJSON(t *testing.T) {
	var buf bytes.Buffer
	in := sample{Terms: []string{"x"}}
	if err := Write(&buf, FormatJSON, in); err != nil {
		t.Fatal(err)
	}
	var out sample
	if err := Read(&buf, FormatJSON, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Terms) != 1 || out.Terms[0] != "x" {
		t.Errorf("got %+v", out)
	}
}

func TestParseFormat(t *testing.T) {
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
	f, err := ParseFormat("cbor")
	if err != nil || f.Extension() != ".cbor.zst" {
		t.Errorf("ParseFormat(cbor) = %v, %v", f, err)
	}
}
