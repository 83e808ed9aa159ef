package script

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies one of the four wasm numeric value types.
type Kind byte

const (
	KindI32 Kind = iota
	KindI64
	KindF32
	KindF64
)

func (k Kind) String() string {
	switch k {
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	}
	return "unknown"
}

// Value is a tagged wasm value. The payload is the raw bit pattern: floats
// are carried as bits, never as host floats, so NaN payloads survive the
// trip through the harness untouched. The tag never changes after
// construction and no arithmetic is ever performed here.
type Value struct {
	Bits uint64
	Kind Kind
}

func I32(bits uint32) Value     { return Value{uint64(bits), KindI32} }
func I64(bits uint64) Value     { return Value{bits, KindI64} }
func F32Bits(bits uint32) Value { return Value{uint64(bits), KindF32} }
func F64Bits(bits uint64) Value { return Value{bits, KindF64} }

// Equal reports bit-exact equality. +0.0 and -0.0 differ in the sign bit
// and are therefore not equal under this comparison.
func (v Value) Equal(o Value) bool {
	return v.Kind == o.Kind && v.Bits == o.Bits
}

func (v Value) String() string {
	switch v.Kind {
	case KindI32:
		return fmt.Sprintf("i32:%d", uint32(v.Bits))
	case KindI64:
		return fmt.Sprintf("i64:%d", v.Bits)
	case KindF32:
		return fmt.Sprintf("f32:0x%08x", uint32(v.Bits))
	case KindF64:
		return fmt.Sprintf("f64:0x%016x", v.Bits)
	}
	return "unknown"
}

// IsCanonicalNaN reports whether a float value carries the canonical quiet
// NaN pattern for its width, ignoring the sign bit.
func (v Value) IsCanonicalNaN() bool {
	switch v.Kind {
	case KindF32:
		return uint32(v.Bits)&0x7fffffff == 0x7fc00000
	case KindF64:
		return v.Bits&0x7fffffffffffffff == 0x7ff8000000000000
	}
	return false
}

// IsArithmeticNaN reports whether a float value is a NaN with the quiet bit
// set; the payload and sign are unconstrained.
func (v Value) IsArithmeticNaN() bool {
	switch v.Kind {
	case KindF32:
		return uint32(v.Bits)&0x7fc00000 == 0x7fc00000
	case KindF64:
		return v.Bits&0x7ff8000000000000 == 0x7ff8000000000000
	}
	return false
}

// NaNClass distinguishes the two NaN expectation sentinels from a concrete
// expected value.
type NaNClass byte

const (
	NaNNone NaNClass = iota
	NaNCanonical
	NaNArithmetic
)

// Expected is one expected result of an assert_return. Either a concrete
// Value, or a NaN sentinel of the Value's width. AnyWidth marks sentinels
// from the legacy assert_return_canonical_nan/assert_return_arithmetic_nan
// forms, which carry no width of their own.
type Expected struct {
	Value    Value
	NaN      NaNClass
	AnyWidth bool
}

// Matches checks one actual value against the expectation using wasm
// numeric equality: bit-exact for everything except NaN sentinels.
func (e Expected) Matches(v Value) bool {
	if e.NaN == NaNNone {
		return e.Value.Equal(v)
	}
	if !e.AnyWidth && e.Value.Kind != v.Kind {
		return false
	}
	if e.NaN == NaNCanonical {
		return v.IsCanonicalNaN()
	}
	return v.IsArithmeticNaN()
}

func (e Expected) String() string {
	switch e.NaN {
	case NaNCanonical:
		if e.AnyWidth {
			return "nan:canonical"
		}
		return e.Value.Kind.String() + ":nan:canonical"
	case NaNArithmetic:
		if e.AnyWidth {
			return "nan:arithmetic"
		}
		return e.Value.Kind.String() + ":nan:arithmetic"
	}
	return e.Value.String()
}

// ParseI32 parses a wast i32 literal (decimal or hex, optional sign and
// underscores) into its 32-bit pattern.
func ParseI32(lit string) (uint32, error) {
	bits, err := parseInt(lit, 32)
	return uint32(bits), err
}

// ParseI64 parses a wast i64 literal into its 64-bit pattern.
func ParseI64(lit string) (uint64, error) {
	return parseInt(lit, 64)
}

func parseInt(lit string, width int) (uint64, error) {
	s := strings.ReplaceAll(lit, "_", "")
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+")

	var mag uint64
	var err error
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		mag, err = strconv.ParseUint(s[2:], 16, 64)
	} else {
		mag, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("can't parse %q as i%d", lit, width)
	}

	if neg {
		if mag > 1<<(width-1) {
			return 0, fmt.Errorf("i%d literal %q out of range", width, lit)
		}
		mag = -mag
	} else if width < 64 && mag >= 1<<width {
		return 0, fmt.Errorf("i%d literal %q out of range", width, lit)
	}
	if width < 64 {
		mag &= 1<<width - 1
	}
	return mag, nil
}

// floatCodec parses float literals of one specific bit width. Literal
// magnitude parsing must be precise per width, so the parser is handed one
// codec per float type rather than duplicating the grammar.
type floatCodec interface {
	width() string
	bits(lit string) (uint64, error)
}

type f32Codec struct{}

func (f32Codec) width() string { return "f32" }

func (f32Codec) bits(lit string) (uint64, error) {
	neg, s := splitSign(lit)
	var bits uint32
	switch {
	case s == "inf":
		bits = 0x7f800000
	case s == "nan":
		bits = 0x7fc00000
	case strings.HasPrefix(s, "nan:0x"):
		payload, err := nanPayload(s, 23)
		if err != nil {
			return 0, err
		}
		bits = 0x7f800000 | uint32(payload)
	default:
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 32)
		if err != nil {
			return 0, fmt.Errorf("can't parse %q as f32", lit)
		}
		bits = math.Float32bits(float32(f))
	}
	if neg {
		bits |= 0x80000000
	}
	return uint64(bits), nil
}

type f64Codec struct{}

func (f64Codec) width() string { return "f64" }

func (f64Codec) bits(lit string) (uint64, error) {
	neg, s := splitSign(lit)
	var bits uint64
	switch {
	case s == "inf":
		bits = 0x7ff0000000000000
	case s == "nan":
		bits = 0x7ff8000000000000
	case strings.HasPrefix(s, "nan:0x"):
		payload, err := nanPayload(s, 52)
		if err != nil {
			return 0, err
		}
		bits = 0x7ff0000000000000 | payload
	default:
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64)
		if err != nil {
			return 0, fmt.Errorf("can't parse %q as f64", lit)
		}
		bits = math.Float64bits(f)
	}
	if neg {
		bits |= 1 << 63
	}
	return bits, nil
}

func splitSign(lit string) (neg bool, rest string) {
	switch {
	case strings.HasPrefix(lit, "-"):
		return true, lit[1:]
	case strings.HasPrefix(lit, "+"):
		return false, lit[1:]
	}
	return false, lit
}

func nanPayload(s string, mantissaBits int) (uint64, error) {
	payload, err := strconv.ParseUint(strings.ReplaceAll(s[len("nan:0x"):], "_", ""), 16, 64)
	if err != nil || payload == 0 || payload >= 1<<mantissaBits {
		return 0, fmt.Errorf("NaN payload %q out of range", s)
	}
	return payload, nil
}

// ParseF32 parses a wast f32 literal into its exact 32-bit pattern.
func ParseF32(lit string) (uint32, error) {
	bits, err := f32Codec{}.bits(lit)
	return uint32(bits), err
}

// ParseF64 parses a wast f64 literal into its exact 64-bit pattern.
func ParseF64(lit string) (uint64, error) {
	return f64Codec{}.bits(lit)
}
