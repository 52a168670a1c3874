// Package mask encodes fixed-width slot sets.
//
// A mask of N slots (N a multiple of 8) is stored as N/8 bytes in big-endian
// order: byte 0 holds slots N-1..N-8, the last byte holds slots 7..0. This is
// the same layout as an unsigned integer written most significant byte first,
// so Encode and Decode round-trip with math/big:
//
//	m, _ := mask.Encode(big.NewInt(0b00101101), 1)
//	mask.Decode(m) // 45
//
// A user mask U satisfies an event mask E when U & E == E (see Mask.Covers).
package mask
