// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ring

import (
	"encoding/base64"
	"math/big"
)

// SignLen returns the byte length of a signature over a ring of n
// members: c_0, n uncompressed public keys, n response scalars.
func SignLen(n int) int {
	if n < 1 {
		return 0
	}
	return ScalarSize + n*(PointSize+ScalarSize)
}

// SignB64Len returns the length of the padded std base64 envelope of a
// signature over a ring of n members.
func SignB64Len(n int) int {
	if n < 1 {
		return 0
	}
	return base64.StdEncoding.EncodedLen(SignLen(n))
}

// Signature is the parsed form of a ring signature.
type Signature struct {
	C0   *big.Int   // opening challenge
	Pubs Ring       // ring public keys in signing order
	R    []*big.Int // response scalars, one per member
}

// Serialize packs the signature as c_0 || P_0..P_{n-1} || r_0..r_{n-1},
// every field fixed-width big-endian.
func (sig *Signature) Serialize() []byte {
	n := len(sig.Pubs)
	out := make([]byte, SignLen(n))
	sig.C0.FillBytes(out[:ScalarSize])

	offset := ScalarSize
	for _, p := range sig.Pubs {
		copy(out[offset:], encodePoint(p.X, p.Y))
		offset += PointSize
	}
	for _, r := range sig.R {
		r.FillBytes(out[offset : offset+ScalarSize])
		offset += ScalarSize
	}
	return out
}

// ParseSignature unpacks a signature over a ring of n members,
// validating the embedded public keys. Bytes beyond SignLen(n) are
// ignored.
func ParseSignature(data []byte, n int) (*Signature, error) {
	if n < 1 {
		return nil, ErrInvalidRingSize
	}
	if len(data) < SignLen(n) {
		return nil, ErrInvalidSignature
	}

	sig := &Signature{
		C0: new(big.Int).SetBytes(data[:ScalarSize]),
		R:  make([]*big.Int, n),
	}

	pubs, err := ParseRing(data[ScalarSize : ScalarSize+n*PointSize])
	if err != nil {
		return nil, err
	}
	sig.Pubs = pubs

	offset := ScalarSize + n*PointSize
	for i := 0; i < n; i++ {
		sig.R[i] = new(big.Int).SetBytes(data[offset : offset+ScalarSize])
		offset += ScalarSize
	}
	return sig, nil
}
