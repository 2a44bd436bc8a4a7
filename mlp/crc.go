package mlp

// crc8Table is the literal CRC-8 lookup table used by the substream
// parity/checksum validation.
var crc8Table = [256]byte{
	0x00, 0x63, 0xC6, 0xA5, 0xEF, 0x8C, 0x29, 0x4A,
	0xBD, 0xDE, 0x7B, 0x18, 0x52, 0x31, 0x94, 0xF7,
	0x19, 0x7A, 0xDF, 0xBC, 0xF6, 0x95, 0x30, 0x53,
	0xA4, 0xC7, 0x62, 0x01, 0x4B, 0x28, 0x8D, 0xEE,
	0x32, 0x51, 0xF4, 0x97, 0xDD, 0xBE, 0x1B, 0x78,
	0x8F, 0xEC, 0x49, 0x2A, 0x60, 0x03, 0xA6, 0xC5,
	0x2B, 0x48, 0xED, 0x8E, 0xC4, 0xA7, 0x02, 0x61,
	0x96, 0xF5, 0x50, 0x33, 0x79, 0x1A, 0xBF, 0xDC,
	0x64, 0x07, 0xA2, 0xC1, 0x8B, 0xE8, 0x4D, 0x2E,
	0xD9, 0xBA, 0x1F, 0x7C, 0x36, 0x55, 0xF0, 0x93,
	0x7D, 0x1E, 0xBB, 0xD8, 0x92, 0xF1, 0x54, 0x37,
	0xC0, 0xA3, 0x06, 0x65, 0x2F, 0x4C, 0xE9, 0x8A,
	0x56, 0x35, 0x90, 0xF3, 0xB9, 0xDA, 0x7F, 0x1C,
	0xEB, 0x88, 0x2D, 0x4E, 0x04, 0x67, 0xC2, 0xA1,
	0x4F, 0x2C, 0x89, 0xEA, 0xA0, 0xC3, 0x66, 0x05,
	0xF2, 0x91, 0x34, 0x57, 0x1D, 0x7E, 0xDB, 0xB8,
	0xC8, 0xAB, 0x0E, 0x6D, 0x27, 0x44, 0xE1, 0x82,
	0x75, 0x16, 0xB3, 0xD0, 0x9A, 0xF9, 0x5C, 0x3F,
	0xD1, 0xB2, 0x17, 0x74, 0x3E, 0x5D, 0xF8, 0x9B,
	0x6C, 0x0F, 0xAA, 0xC9, 0x83, 0xE0, 0x45, 0x26,
	0xFA, 0x99, 0x3C, 0x5F, 0x15, 0x76, 0xD3, 0xB0,
	0x47, 0x24, 0x81, 0xE2, 0xA8, 0xCB, 0x6E, 0x0D,
	0xE3, 0x80, 0x25, 0x46, 0x0C, 0x6F, 0xCA, 0xA9,
	0x5E, 0x3D, 0x98, 0xFB, 0xB1, 0xD2, 0x77, 0x14,
	0xAC, 0xCF, 0x6A, 0x09, 0x43, 0x20, 0x85, 0xE6,
	0x11, 0x72, 0xD7, 0xB4, 0xFE, 0x9D, 0x38, 0x5B,
	0xB5, 0xD6, 0x73, 0x10, 0x5A, 0x39, 0x9C, 0xFF,
	0x08, 0x6B, 0xCE, 0xAD, 0xE7, 0x84, 0x21, 0x42,
	0x9E, 0xFD, 0x58, 0x3B, 0x71, 0x12, 0xB7, 0xD4,
	0x23, 0x40, 0xE5, 0x86, 0xCC, 0xAF, 0x0A, 0x69,
	0x87, 0xE4, 0x41, 0x22, 0x68, 0x0B, 0xAE, 0xCD,
	0x3A, 0x59, 0xFC, 0x9F, 0xD5, 0xB6, 0x13, 0x70,
}

// crc8Init is the CRC accumulator's seed value; parityMask is XORed with
// the trailing parity byte to validate it.
const (
	crc8Init   = 0x3C
	parityMask = 0xA9
)

// checkdata accumulates the running parity and CRC-8 over a substream's
// bytes, mirroring checkdata_callback.
type checkdata struct {
	parity byte
	crc    byte
}

func newCheckdata() *checkdata {
	return &checkdata{crc: crc8Init}
}

func (c *checkdata) update(b byte) {
	c.parity ^= b
	c.crc = crc8Table[c.crc^b]
}
