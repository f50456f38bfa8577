package graph

// VolumeSteps is the number of master volume positions: attenuation index 0
// (reference, loudest) through 90 (-90 dB).
const VolumeSteps = 91

// dbToVol maps whole-dB attenuation to a Q15 linear multiplier. The table
// is stored quietest-first; index [90-step] gives the multiplier for an
// attenuation step. Entry 90 is 0x7fff, as close to unity as Q15 allows.
var dbToVol = [VolumeSteps]uint16{
	0x0001, 0x0001, 0x0001, 0x0001, 0x0001, 0x0001, 0x0002, 0x0002, 0x0002, 0x0002, 0x0003, 0x0003, 0x0004, 0x0004, 0x0005, 0x0005,
	0x0006, 0x0007, 0x0008, 0x0009, 0x000a, 0x000b, 0x000d, 0x000e, 0x0010, 0x0012, 0x0014, 0x0017, 0x001a, 0x001d, 0x0020, 0x0024,
	0x0029, 0x002e, 0x0033, 0x003a, 0x0041, 0x0049, 0x0052, 0x005c, 0x0067, 0x0074, 0x0082, 0x0092, 0x00a4, 0x00b8, 0x00ce, 0x00e7,
	0x0104, 0x0124, 0x0147, 0x016f, 0x019c, 0x01ce, 0x0207, 0x0246, 0x028d, 0x02dd, 0x0337, 0x039b, 0x040c, 0x048a, 0x0518, 0x05b7,
	0x066a, 0x0732, 0x0813, 0x090f, 0x0a2a, 0x0b68, 0x0ccc, 0x0e5c, 0x101d, 0x1214, 0x1449, 0x16c3, 0x198a, 0x1ca7, 0x2026, 0x2413,
	0x287a, 0x2d6a, 0x32f5, 0x392c, 0x4026, 0x47fa, 0x50c3, 0x5a9d, 0x65ac, 0x7214, 0x7fff,
}

// volumeMultiplier returns the linear multiplier for an attenuation step,
// clamping out-of-range steps into [0, 90]. Step 0 is exact unity so the
// reference position is bit-transparent.
func volumeMultiplier(step int) float64 {
	if step <= 0 {
		return 1
	}
	if step > VolumeSteps-1 {
		step = VolumeSteps - 1
	}
	return float64(dbToVol[VolumeSteps-1-step]) / 32768
}
