package mlp

import "github.com/pkg/errors"

// mask clears the low q bits of x, used to apply a channel's
// quant_step_size after filtering and after rematrixing.
func mask(x int32, q int) int32 {
	if q == 0 {
		return x
	}
	return (x >> uint(q)) << uint(q)
}

// filterChannel runs one channel's residuals through its FIR and IIR
// filters: sum = FIR(history) + IIR(history), shifted
// down, then added to the residual and masked to quantStepSize. FIR and
// IIR each keep a state tail of up to 8 samples that persists into the
// next block.
func filterChannel(residuals []int32, fir, iir *FilterParameters, quantStepSize int) ([]int32, error) {
	if fir.Order+iir.Order > 8 {
		return nil, errors.New("mlp: filter order exceeds 8")
	}
	var shift int
	switch {
	case fir.Shift > 0 && iir.Shift > 0:
		if fir.Shift != iir.Shift {
			return nil, errors.New("mlp: FIR/IIR shift mismatch")
		}
		shift = fir.Shift
	case fir.Order > 0:
		shift = fir.Shift
	default:
		shift = iir.Shift
	}

	filtered := make([]int32, len(residuals))

	for i, residual := range residuals {
		var sum int64
		for j := 0; j < fir.Order; j++ {
			sum += int64(fir.Coeff[j]) * int64(historyAt(fir.State, j))
		}
		for k := 0; k < iir.Order; k++ {
			sum += int64(iir.Coeff[k]) * int64(historyAt(iir.State, k))
		}

		shiftedSum := int32(sum >> uint(shift))
		value := mask(shiftedSum+residual, quantStepSize)

		filtered[i] = value
		fir.State = append(fir.State, value)
		iir.State = append(iir.State, value-shiftedSum)
	}

	fir.State = tail(fir.State, 8)
	iir.State = tail(iir.State, 8)

	return filtered, nil
}

// historyAt returns the sample j positions back from the end of s (0 is
// the most recent), or 0 if s doesn't yet hold that much history -- the
// natural state of a filter immediately after a restart header.
func historyAt(s []int32, j int) int32 {
	idx := len(s) - j - 1
	if idx < 0 {
		return 0
	}
	return s[idx]
}

// tail keeps at most the last n elements of s.
func tail(s []int32, n int) []int32 {
	if len(s) <= n {
		return s
	}
	out := make([]int32, n)
	copy(out, s[len(s)-n:])
	return out
}
