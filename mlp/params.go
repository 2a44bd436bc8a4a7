package mlp

import (
	"dvda/bitio"
)

func readFlag(r *bitio.Reader) (bool, error) {
	v, err := r.ReadBits(1)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// readFlagBits reads the 8-bit parameter-presence field into flags.
// The field is sent most-significant-first: the first bit on the wire is
// flag7 (block size) and the last is flag0, matching the flags[7..0]
// keying used throughout the decoding-parameters sections.
func readFlagBits(r *bitio.Reader, flags *[8]bool) error {
	v, err := r.ReadBits(8)
	if err != nil {
		return err
	}
	for i := range flags {
		flags[i] = v&(1<<uint(i)) != 0
	}
	return nil
}

// decodeDecodingParameters parses a block's decoding-parameters
// section, which may be entirely absent (the block reuses the
// previous block's parameters), or update any subset of the eight
// sections its presence-flag byte names. prev is the substream's
// parameters as of the previous block; it is not mutated, a new value is
// returned.
func decodeDecodingParameters(r *bitio.Reader, headerPresent bool, minChannel, maxChannel, maxMatrixChannel int, prev DecodingParameters) (DecodingParameters, bool, error) {
	p := prev.clone()

	if headerPresent {
		present, err := readFlag(r)
		if err != nil {
			return p, false, err
		}
		if present {
			if err := readFlagBits(r, &p.Flags); err != nil {
				return p, false, err
			}
		} else {
			for i := range p.Flags {
				p.Flags[i] = true
			}
		}
	} else if p.Flags[0] {
		present, err := readFlag(r)
		if err != nil {
			return p, false, err
		}
		if present {
			if err := readFlagBits(r, &p.Flags); err != nil {
				return p, false, err
			}
		}
	}

	// block size
	if p.Flags[7] {
		present, err := readFlag(r)
		if err != nil {
			return p, false, err
		}
		if present {
			size, err := r.ReadBits(9)
			if err != nil {
				return p, false, err
			}
			if size < 8 {
				return p, false, nil
			}
			p.BlockSize = int(size)
		} else if headerPresent {
			p.BlockSize = 8
		}
	} else if headerPresent {
		p.BlockSize = 8
	}

	// matrix parameters
	if p.Flags[6] {
		present, err := readFlag(r)
		if err != nil {
			return p, false, err
		}
		if present {
			matrix, ok, err := decodeMatrixParameters(r, maxMatrixChannel)
			if err != nil || !ok {
				return p, false, err
			}
			p.Matrix = matrix
		} else if headerPresent {
			p.Matrix = nil
		}
	} else if headerPresent {
		p.Matrix = nil
	}

	// output shifts
	if p.Flags[5] {
		present, err := readFlag(r)
		if err != nil {
			return p, false, err
		}
		if present {
			for c := 0; c <= maxMatrixChannel; c++ {
				v, err := r.ReadSignedBits(4)
				if err != nil {
					return p, false, err
				}
				p.OutputShift[c] = int(v)
			}
		} else if headerPresent {
			for c := range p.OutputShift {
				p.OutputShift[c] = 0
			}
		}
	} else if headerPresent {
		for c := range p.OutputShift {
			p.OutputShift[c] = 0
		}
	}

	// quant step sizes
	if p.Flags[4] {
		present, err := readFlag(r)
		if err != nil {
			return p, false, err
		}
		if present {
			for c := 0; c <= maxChannel; c++ {
				v, err := r.ReadBits(4)
				if err != nil {
					return p, false, err
				}
				p.QuantStepSize[c] = int(v)
			}
		} else if headerPresent {
			for c := range p.QuantStepSize {
				p.QuantStepSize[c] = 0
			}
		}
	} else if headerPresent {
		for c := range p.QuantStepSize {
			p.QuantStepSize[c] = 0
		}
	}

	// channel parameters
	for c := minChannel; c <= maxChannel; c++ {
		present, err := readFlag(r)
		if err != nil {
			return p, false, err
		}
		if present {
			if p.Flags[3] {
				f, err := readFlag(r)
				if err != nil {
					return p, false, err
				}
				if f {
					fir, ok, err := decodeFIRParameters(r)
					if err != nil || !ok {
						return p, false, err
					}
					p.Channel[c].FIR = fir
				} else if headerPresent {
					p.Channel[c].FIR = FilterParameters{}
				}
			} else if headerPresent {
				p.Channel[c].FIR = FilterParameters{}
			}

			if p.Flags[2] {
				f, err := readFlag(r)
				if err != nil {
					return p, false, err
				}
				if f {
					iir, ok, err := decodeIIRParameters(r)
					if err != nil || !ok {
						return p, false, err
					}
					p.Channel[c].IIR = iir
				} else if headerPresent {
					p.Channel[c].IIR = FilterParameters{}
				}
			} else if headerPresent {
				p.Channel[c].IIR = FilterParameters{}
			}

			if p.Flags[1] {
				f, err := readFlag(r)
				if err != nil {
					return p, false, err
				}
				if f {
					v, err := r.ReadSignedBits(15)
					if err != nil {
						return p, false, err
					}
					p.Channel[c].HuffmanOffset = v
				} else if headerPresent {
					p.Channel[c].HuffmanOffset = 0
				}
			} else if headerPresent {
				p.Channel[c].HuffmanOffset = 0
			}

			codebook, err := r.ReadBits(2)
			if err != nil {
				return p, false, err
			}
			p.Channel[c].Codebook = int(codebook)

			lsbs, err := r.ReadBits(5)
			if err != nil {
				return p, false, err
			}
			if lsbs > 24 {
				return p, false, nil
			}
			p.Channel[c].HuffmanLSBs = int(lsbs)
		} else if headerPresent {
			p.Channel[c].FIR = FilterParameters{}
			p.Channel[c].IIR = FilterParameters{}
			p.Channel[c].HuffmanOffset = 0
			p.Channel[c].Codebook = 0
			p.Channel[c].HuffmanLSBs = 24
		}
	}

	return p, true, nil
}

func decodeMatrixParameters(r *bitio.Reader, maxMatrixChannel int) ([]MatrixParameters, bool, error) {
	n, err := r.ReadBits(4)
	if err != nil {
		return nil, false, err
	}
	out := make([]MatrixParameters, n)
	for m := 0; m < int(n); m++ {
		outChannel, err := r.ReadBits(4)
		if err != nil {
			return nil, false, err
		}
		if int(outChannel) > maxMatrixChannel {
			return nil, false, nil
		}
		fractionalBits, err := r.ReadBits(4)
		if err != nil {
			return nil, false, err
		}
		if fractionalBits > 14 {
			return nil, false, nil
		}
		lsbBypass, err := readFlag(r)
		if err != nil {
			return nil, false, err
		}

		mp := MatrixParameters{
			OutChannel:     int(outChannel),
			FractionalBits: int(fractionalBits),
			LSBBypass:      lsbBypass,
		}
		for c := 0; c < maxMatrixChannel+3; c++ {
			present, err := readFlag(r)
			if err != nil {
				return nil, false, err
			}
			if present {
				v, err := r.ReadSignedBits(int(fractionalBits) + 2)
				if err != nil {
					return nil, false, err
				}
				mp.Coeff[c] = v << (14 - fractionalBits)
			}
		}
		out[m] = mp
	}
	return out, true, nil
}

func decodeFIRParameters(r *bitio.Reader) (FilterParameters, bool, error) {
	order, err := r.ReadBits(4)
	if err != nil {
		return FilterParameters{}, false, err
	}
	if order > 8 {
		return FilterParameters{}, false, nil
	}
	if order == 0 {
		return FilterParameters{}, true, nil
	}

	shift, err := r.ReadBits(4)
	if err != nil {
		return FilterParameters{}, false, err
	}
	coeffBits, err := r.ReadBits(5)
	if err != nil {
		return FilterParameters{}, false, err
	}
	if coeffBits < 1 || coeffBits > 16 {
		return FilterParameters{}, false, nil
	}
	coeffShift, err := r.ReadBits(3)
	if err != nil {
		return FilterParameters{}, false, err
	}
	if coeffBits+coeffShift > 16 {
		return FilterParameters{}, false, nil
	}

	coeff := make([]int32, order)
	for i := range coeff {
		v, err := r.ReadSignedBits(int(coeffBits))
		if err != nil {
			return FilterParameters{}, false, err
		}
		coeff[i] = v << coeffShift
	}

	extra, err := readFlag(r)
	if err != nil {
		return FilterParameters{}, false, err
	}
	if extra {
		return FilterParameters{}, false, nil
	}

	return FilterParameters{Order: int(order), Shift: int(shift), Coeff: coeff}, true, nil
}

func decodeIIRParameters(r *bitio.Reader) (FilterParameters, bool, error) {
	order, err := r.ReadBits(4)
	if err != nil {
		return FilterParameters{}, false, err
	}
	if order > 8 {
		return FilterParameters{}, false, nil
	}
	if order == 0 {
		return FilterParameters{}, true, nil
	}

	shift, err := r.ReadBits(4)
	if err != nil {
		return FilterParameters{}, false, err
	}
	coeffBits, err := r.ReadBits(5)
	if err != nil {
		return FilterParameters{}, false, err
	}
	if coeffBits < 1 || coeffBits > 16 {
		return FilterParameters{}, false, nil
	}
	coeffShift, err := r.ReadBits(3)
	if err != nil {
		return FilterParameters{}, false, err
	}
	if coeffBits+coeffShift > 16 {
		return FilterParameters{}, false, nil
	}

	coeff := make([]int32, order)
	for i := range coeff {
		v, err := r.ReadSignedBits(int(coeffBits))
		if err != nil {
			return FilterParameters{}, false, err
		}
		coeff[i] = v << coeffShift
	}

	fp := FilterParameters{Order: int(order), Shift: int(shift), Coeff: coeff}

	hasState, err := readFlag(r)
	if err != nil {
		return FilterParameters{}, false, err
	}
	if hasState {
		stateBits, err := r.ReadBits(4)
		if err != nil {
			return FilterParameters{}, false, err
		}
		stateShift, err := r.ReadBits(4)
		if err != nil {
			return FilterParameters{}, false, err
		}
		state := make([]int32, order)
		for i := range state {
			v, err := r.ReadSignedBits(int(stateBits))
			if err != nil {
				return FilterParameters{}, false, err
			}
			state[i] = v << stateShift
		}
		// state arrives most-recent-first; keep it oldest-first
		for i, j := 0, len(state)-1; i < j; i, j = i+1, j-1 {
			state[i], state[j] = state[j], state[i]
		}
		fp.State = state
	}

	return fp, true, nil
}
