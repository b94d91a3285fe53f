package usage

// Rates price metered units in nano-USD per unit. Integer fixed point
// keeps repeated increments exact; the float drift of accumulating
// per-call dollar fractions is what this replaces.
type Rates struct {
	InputNanosPerUnit  int64
	OutputNanosPerUnit int64
}

// DefaultRates correspond to $0.15 / $0.60 per million input/output units.
var DefaultRates = Rates{
	InputNanosPerUnit:  150,
	OutputNanosPerUnit: 600,
}

// EstimateMicros converts unit counts to an estimated cost in micro-USD,
// rounded half up. Negative counts are treated as zero.
func (r Rates) EstimateMicros(inputUnits, outputUnits int64) int64 {
	if inputUnits < 0 {
		inputUnits = 0
	}
	if outputUnits < 0 {
		outputUnits = 0
	}
	nanos := inputUnits*r.InputNanosPerUnit + outputUnits*r.OutputNanosPerUnit
	return (nanos + 500) / 1000
}
