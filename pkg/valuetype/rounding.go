package valuetype

// RoundingMode selects how a raw sample value is quantized before it is
// counted into a Histogram.
type RoundingMode int

const (
	// RoundingNone counts the raw value exactly.
	RoundingNone RoundingMode = iota

	// RoundingSignificantDigits keeps Param significant decimal digits,
	// zeroing the rest — e.g. with Param=2, 12345 rounds to 12000.
	RoundingSignificantDigits

	// RoundingByteCount quantizes to the nearest multiple of Param —
	// e.g. with Param=1024, 1500 rounds to 1024 or 2048, whichever is
	// nearer.
	RoundingByteCount
)

// Rounding configures Histogram.Observe's quantization step.
type Rounding struct {
	Mode  RoundingMode
	Param int64
}

// None is the default, unquantized rounding.
var None = Rounding{Mode: RoundingNone}

// SignificantDigits builds a RoundingSignificantDigits rule keeping n
// significant digits.
func SignificantDigits(n int64) Rounding {
	return Rounding{Mode: RoundingSignificantDigits, Param: n}
}

// ByteCount builds a RoundingByteCount rule quantizing to multiples of
// factor.
func ByteCount(factor int64) Rounding {
	return Rounding{Mode: RoundingByteCount, Param: factor}
}

// Apply quantizes v according to r.
func (r Rounding) Apply(v int64) int64 {
	switch r.Mode {
	case RoundingSignificantDigits:
		return roundSignificantDigits(v, r.Param)
	case RoundingByteCount:
		return roundByteCount(v, r.Param)
	default:
		return v
	}
}

func roundSignificantDigits(v, digits int64) int64 {
	if v == 0 || digits <= 0 {
		return v
	}

	sign := int64(1)
	if v < 0 {
		sign = -1
		v = -v
	}

	magnitude := int64(1)
	count := int64(0)
	for n := v; n > 0; n /= 10 {
		count++
	}
	if count <= digits {
		return sign * v
	}

	for i := int64(0); i < count-digits; i++ {
		magnitude *= 10
	}

	rounded := ((v + magnitude/2) / magnitude) * magnitude
	return sign * rounded
}

func roundByteCount(v, factor int64) int64 {
	if factor <= 0 {
		return v
	}

	sign := int64(1)
	if v < 0 {
		sign = -1
		v = -v
	}

	rounded := ((v + factor/2) / factor) * factor
	return sign * rounded
}
