// Package pgcopy encodes typed rows into the PostgreSQL COPY BINARY stream
// format. The byte layout is fixed by the external protocol: all multi-byte
// integers are big-endian, NUMERIC values are packed as base-10000 digit
// groups, and timestamps are microsecond offsets from 2000-01-01 UTC.
package pgcopy

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/fluxload/fluxload/internal/errors"
)

// Sign flags of the NUMERIC wire format. The NaN flag (0xC000) is never
// produced: non-finite inputs are rejected before encoding.
const (
	NumericPositive uint16 = 0x0000
	NumericNegative uint16 = 0x4000
)

// Numeric is the decomposed wire representation of a decimal value:
// sign flag, weight (power-of-10000 position of the most significant digit
// group), display scale, and the base-10000 digit groups, most significant
// first.
type Numeric struct {
	Sign   uint16
	Weight int16
	Scale  int16
	Digits []int16
}

// EncodeNumeric converts a finite float64 into its NUMERIC wire
// representation using the shortest decimal rendering of the value.
// NaN and infinities are rejected with an encoding error.
func EncodeNumeric(value float64) (Numeric, error) {
	return encodeNumeric(value, -1)
}

// EncodeNumericScaled is EncodeNumeric with a fixed number of fractional
// digits; the rendering is rounded and zero-padded to exactly that scale.
// The metrics temperature column uses scale 2, matching numeric(10,2).
func EncodeNumericScaled(value float64, scale int) (Numeric, error) {
	if scale < 0 {
		scale = -1
	}
	return encodeNumeric(value, scale)
}

func encodeNumeric(value float64, scale int) (Numeric, error) {
	if math.IsNaN(value) {
		return Numeric{}, apperrors.NewEncodingError(apperrors.CodeNonFiniteValue, "cannot encode NaN as numeric")
	}
	if math.IsInf(value, 0) {
		return Numeric{}, apperrors.NewEncodingError(apperrors.CodeNonFiniteValue, "cannot encode infinity as numeric")
	}

	sign := NumericPositive
	if math.Signbit(value) {
		sign = NumericNegative
	}

	rendered := strconv.FormatFloat(math.Abs(value), 'f', scale, 64)

	integer := rendered
	fraction := ""
	if dot := strings.IndexByte(rendered, '.'); dot >= 0 {
		integer = rendered[:dot]
		fraction = rendered[dot+1:]
	}

	// Weight is the base-10000 position of the most significant digit group.
	// Only the integer part is left-padded to a multiple of 4; the fraction is
	// appended as-is and the whole digit string is grouped from the left, so a
	// short trailing chunk is zero-filled on its right.
	weight := int16((len(integer) - 1) / 4)
	padding := 0
	if len(integer)%4 != 0 {
		padding = 4 - len(integer)%4
	}
	padded := strings.Repeat("0", padding) + integer + fraction

	digits := make([]int16, 0, (len(padded)+3)/4)
	for i := 0; i < len(padded); i += 4 {
		chunk := padded[i:min(i+4, len(padded))]
		var group int16
		for j := 0; j < len(chunk); j++ {
			d := chunk[j]
			if d < '0' || d > '9' {
				return Numeric{}, apperrors.NewEncodingError(apperrors.CodeMalformedDigits, "non-digit in rendered decimal "+strconv.Quote(rendered))
			}
			group += int16(d-'0') * pow10[3-j]
		}
		digits = append(digits, group)
	}

	return Numeric{
		Sign:   sign,
		Weight: weight,
		Scale:  int16(len(fraction)),
		Digits: digits,
	}, nil
}

var pow10 = [4]int16{1, 10, 100, 1000}

// Bytes serializes the value: ndigits, weight, sign, dscale, then each digit
// group, all as big-endian int16.
func (n Numeric) Bytes() []byte {
	buf := make([]byte, 0, 8+2*len(n.Digits))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(n.Digits)))
	buf = binary.BigEndian.AppendUint16(buf, uint16(n.Weight))
	buf = binary.BigEndian.AppendUint16(buf, n.Sign)
	buf = binary.BigEndian.AppendUint16(buf, uint16(n.Scale))
	for _, d := range n.Digits {
		buf = binary.BigEndian.AppendUint16(buf, uint16(d))
	}
	return buf
}

// Float64 reconstructs the decimal value from the digit groups. It rebuilds
// the textual decimal form, so the result is exact for any value produced by
// the encoder (strconv round-trips shortest renderings bit-for-bit).
func (n Numeric) Float64() float64 {
	if len(n.Digits) == 0 {
		return 0
	}

	var sb strings.Builder
	for _, d := range n.Digits {
		sb.WriteString(pad4(d))
	}
	digits := sb.String()

	// The decimal point sits after (weight+1) groups. Weight is never
	// negative in this packing scheme because the integer part always
	// contributes at least one group.
	split := (int(n.Weight) + 1) * 4
	if split > len(digits) {
		digits += strings.Repeat("0", split-len(digits))
	}
	integer, fraction := digits[:split], digits[split:]

	switch {
	case int(n.Scale) < len(fraction):
		fraction = fraction[:n.Scale]
	case int(n.Scale) > len(fraction):
		fraction += strings.Repeat("0", int(n.Scale)-len(fraction))
	}

	text := integer
	if len(fraction) > 0 {
		text += "." + fraction
	}

	v, _ := strconv.ParseFloat(text, 64)
	if n.Sign == NumericNegative {
		v = -v
	}
	return v
}

func pad4(d int16) string {
	s := strconv.Itoa(int(d))
	return "0000"[:4-len(s)] + s
}
