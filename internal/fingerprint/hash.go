package fingerprint

const (
	maxSubfield = 1024 // subfields are 10 bits wide: [0, 1024)
)

// Quantize rounds x down to the nearest multiple of bin, using floor
// division so negative inputs (possible transiently while nudging a
// neighbourhood candidate) round toward negative infinity rather than
// toward zero.
func Quantize(x, bin int) int {
	q := x / bin
	if x%bin != 0 && (x < 0) != (bin < 0) {
		q--
	}
	return q * bin
}

// Hash packs three 10-bit quantized subfields into a single 30-bit key:
// anchor frequency in bits 29-20, target frequency in bits 19-10, and
// time delta in bits 9-0.
func Hash(f1, f2, dt int) uint32 {
	return uint32(f1)<<20 | uint32(f2)<<10 | uint32(dt)
}

// Neighbourhood returns the quantized primary hash for (f1, f2, dt) plus
// up to six neighbouring hashes obtained by nudging exactly one of the
// three raw values by one bin in each direction before quantizing. A
// neighbour is dropped if the nudged, quantized subfield falls outside
// [0, 1024). The result always includes the primary key and contains no
// duplicates beyond what bin collisions naturally produce.
func Neighbourhood(f1, f2, dt, freqBin, timeBin int) []uint32 {
	qf1 := Quantize(f1, freqBin)
	qf2 := Quantize(f2, freqBin)
	qdt := Quantize(dt, timeBin)

	keys := []uint32{Hash(qf1, qf2, qdt)}

	type nudge struct {
		delta int
		bin   int
		which int // 0=f1, 1=f2, 2=dt
	}
	nudges := []nudge{
		{-freqBin, freqBin, 0}, {freqBin, freqBin, 0},
		{-freqBin, freqBin, 1}, {freqBin, freqBin, 1},
		{-timeBin, timeBin, 2}, {timeBin, timeBin, 2},
	}

	for _, n := range nudges {
		var v1, v2, v3 int
		switch n.which {
		case 0:
			v1, v2, v3 = Quantize(f1+n.delta, freqBin), qf2, qdt
		case 1:
			v1, v2, v3 = qf1, Quantize(f2+n.delta, freqBin), qdt
		default:
			v1, v2, v3 = qf1, qf2, Quantize(dt+n.delta, timeBin)
		}
		if v1 < 0 || v1 >= maxSubfield || v2 < 0 || v2 >= maxSubfield || v3 < 0 || v3 >= maxSubfield {
			continue
		}
		keys = append(keys, Hash(v1, v2, v3))
	}

	return keys
}
