// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ring

import (
	"bytes"
	"encoding"
	"hash"
	"math/big"

	"github.com/emmansun/gmsm/sm3"
)

// prehash is an SM3 state that has absorbed the message once. Deriving
// a challenge forks that state and finalizes it over one encoded point,
// so the message is not re-ingested for each of the n challenges that a
// sign or verify call derives.
type prehash struct {
	msg []byte // retained for the re-absorb fallback
	h   hash.Hash
}

func newPrehash(msg []byte) *prehash {
	h := sm3.New()
	h.Write(msg)
	return &prehash{msg: bytes.Clone(msg), h: h}
}

// fork returns an independent SM3 whose state equals the absorbed
// message. The digest's binary state export makes this O(1); a digest
// without one falls back to re-absorbing the retained message.
func (p *prehash) fork() hash.Hash {
	if m, ok := p.h.(encoding.BinaryMarshaler); ok {
		if state, err := m.MarshalBinary(); err == nil {
			h := sm3.New()
			if u, ok := h.(encoding.BinaryUnmarshaler); ok && u.UnmarshalBinary(state) == nil {
				return h
			}
		}
	}
	h := sm3.New()
	h.Write(p.msg)
	return h
}

// hashPoint finalizes a fork of the prehashed state over the encoded
// point and interprets the digest as a big-endian integer. The result
// is not reduced mod q; subsequent modular arithmetic takes care of it.
func (p *prehash) hashPoint(x, y *big.Int) *big.Int {
	h := p.fork()
	h.Write(encodePoint(x, y))
	return new(big.Int).SetBytes(h.Sum(nil))
}
