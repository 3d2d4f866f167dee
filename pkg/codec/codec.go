// Package codec serializes persisted artifacts. Two formats are supported:
// indented JSON for inspection, and deterministic CBOR compressed with zstd
// for compact snapshots. Deterministic encoding means the same value always
// produces the same bytes.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Format selects the on-disk representation.
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// Extension returns the file suffix used for the format.
func (f Format) Extension() string {
	if f == FormatCBOR {
		return ".cbor.zst"
	}
	return ".json"
}

// ParseFormat validates a configured format name.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatJSON, FormatCBOR:
		return Format(name), nil
	default:
		return "", fmt.Errorf("unknown codec format %q", name)
	}
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{MaxArrayElements: 1 << 27, MaxMapPairs: 1 << 27}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("codec: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("codec: zstd decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v in the given format.
func Marshal(f Format, v any) ([]byte, error) {
	switch f {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding json: %w", err)
		}
		return data, nil
	case FormatCBOR:
		raw, err := encMode.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding cbor: %w", err)
		}
		return zstdEncoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
	default:
		return nil, fmt.Errorf("unknown codec format %q", f)
	}
}

// Unmarshal decodes data produced by Marshal with the same format.
func Unmarshal(f Format, data []byte, v any) error {
	switch f {
	case FormatJSON:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decoding json: %w", err)
		}
		return nil
	case FormatCBOR:
		raw, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return fmt.Errorf("decompressing zstd: %w", err)
		}
		if err := decMode.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("decoding cbor: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown codec format %q", f)
	}
}

// Write encodes v to w.
func Write(w io.Writer, f Format, v any) error {
	data, err := Marshal(f, v)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, bytes.NewReader(data))
	return err
}

// Read decodes the whole of r into v.
func Read(r io.Reader, f Format, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading encoded data: %w", err)
	}
	return Unmarshal(f, data, v)
}
