package encoder

import (
	"bytes"
	"testing"
)

func TestWriteU32(t *testing.T) {
	tests := []struct {
		v    uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{7, []byte{0x07}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{624485, []byte{0xE5, 0x8E, 0x26}},
		{0xFFFFFFFF, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}},
	}
	for _, tt := range tests {
		b := &Buffer{}
		b.WriteU32(tt.v)
		if !bytes.Equal(b.Bytes, tt.want) {
			t.Errorf("WriteU32(%d) = % x, want % x", tt.v, b.Bytes, tt.want)
		}
	}
}

func TestWriteI32(t *testing.T) {
	tests := []struct {
		v    int32
		want []byte
	}{
		{0, []byte{0x00}},
		{63, []byte{0x3F}},
		{64, []byte{0xC0, 0x00}},
		{-1, []byte{0x7F}},
		{-64, []byte{0x40}},
		{-65, []byte{0xBF, 0x7F}},
		{-123456, []byte{0xC0, 0xBB, 0x78}},
	}
	for _, tt := range tests {
		b := &Buffer{}
		b.WriteI32(tt.v)
		if !bytes.Equal(b.Bytes, tt.want) {
			t.Errorf("WriteI32(%d) = % x, want % x", tt.v, b.Bytes, tt.want)
		}
	}
}

func TestWriteI64(t *testing.T) {
	b := &Buffer{}
	b.WriteI64(-1)
	if !bytes.Equal(b.Bytes, []byte{0x7F}) {
		t.Errorf("WriteI64(-1) = % x", b.Bytes)
	}
	b = &Buffer{}
	b.WriteI64(9223372036854775807)
	if !bytes.Equal(b.Bytes, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}) {
		t.Errorf("WriteI64(max) = % x", b.Bytes)
	}
}

func TestWriteFloatBits(t *testing.T) {
	b := &Buffer{}
	b.WriteF32Bits(0x7FC00001) // NaN with payload, must not be canonicalized
	if !bytes.Equal(b.Bytes, []byte{0x01, 0x00, 0xC0, 0x7F}) {
		t.Errorf("WriteF32Bits = % x", b.Bytes)
	}
	b = &Buffer{}
	b.WriteF64Bits(0x8000000000000000) // negative zero
	if !bytes.Equal(b.Bytes, []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x80}) {
		t.Errorf("WriteF64Bits = % x", b.Bytes)
	}
}

func TestWriteLimits(t *testing.T) {
	b := &Buffer{}
	b.WriteLimits(1, nil)
	if !bytes.Equal(b.Bytes, []byte{0x00, 0x01}) {
		t.Errorf("no-max limits = % x", b.Bytes)
	}
	max := uint32(2)
	b = &Buffer{}
	b.WriteLimits(1, &max)
	if !bytes.Equal(b.Bytes, []byte{0x01, 0x01, 0x02}) {
		t.Errorf("max limits = % x", b.Bytes)
	}
}
