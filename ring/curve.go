// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ring

import (
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/emmansun/gmsm/sm2"
)

// sm2Curve is the SM2 recommended curve: a 256-bit prime field group of
// prime order with cofactor 1. The curve (and SM3, see hash.go) are
// contractual; swapping either breaks wire compatibility.
var sm2Curve elliptic.Curve = sm2.P256()

// sampleScalar draws a scalar uniformly from [1, q-1]. Zero draws are
// rejected and resampled.
func sampleScalar(rnd io.Reader) (*big.Int, error) {
	for {
		k, err := rand.Int(rnd, sm2Curve.Params().N)
		if err != nil {
			return nil, fmt.Errorf("scalar sampling: %w", err)
		}
		if k.Sign() != 0 {
			return k, nil
		}
	}
}

// GenerateKeypair returns a fresh private scalar in [1, q-1] and its
// public key priv*G.
func GenerateKeypair(rnd io.Reader) (*big.Int, Point, error) {
	priv, err := sampleScalar(rnd)
	if err != nil {
		return nil, Point{}, err
	}
	x, y := sm2Curve.ScalarBaseMult(priv.Bytes())
	return priv, Point{X: x, Y: y}, nil
}

// mulAdd computes r*G + c*P.
func mulAdd(r, c *big.Int, p Point) (*big.Int, *big.Int) {
	rgx, rgy := sm2Curve.ScalarBaseMult(r.Bytes())
	cpx, cpy := sm2Curve.ScalarMult(p.X, p.Y, c.Bytes())
	return sm2Curve.Add(rgx, rgy, cpx, cpy)
}

// encodePoint serializes a point in uncompressed SEC1 form with
// fixed-width zero-padded coordinates.
func encodePoint(x, y *big.Int) []byte {
	buf := make([]byte, PointSize)
	buf[0] = 0x04
	x.FillBytes(buf[1 : 1+ScalarSize])
	y.FillBytes(buf[1+ScalarSize:])
	return buf
}

// decodePoint inverts encodePoint, rejecting anything that is not a
// well-formed point on the curve.
func decodePoint(buf []byte) (*big.Int, *big.Int, error) {
	if len(buf) != PointSize || buf[0] != 0x04 {
		return nil, nil, ErrInvalidPublicKey
	}
	p := sm2Curve.Params().P
	x := new(big.Int).SetBytes(buf[1 : 1+ScalarSize])
	y := new(big.Int).SetBytes(buf[1+ScalarSize:])
	if x.Cmp(p) >= 0 || y.Cmp(p) >= 0 {
		return nil, nil, ErrInvalidPublicKey
	}
	if !sm2Curve.IsOnCurve(x, y) {
		return nil, nil, ErrInvalidPublicKey
	}
	return x, y, nil
}

// EncodeScalar serializes a scalar as 32 bytes big-endian, zero-padded.
func EncodeScalar(s *big.Int) []byte {
	buf := make([]byte, ScalarSize)
	s.FillBytes(buf)
	return buf
}

// wipeScalar zeroes the scalar's limbs. big.Int does not clear retired
// buffers on its own, so secret scalars are wiped explicitly.
func wipeScalar(z *big.Int) {
	if z == nil {
		return
	}
	limbs := z.Bits()
	for i := range limbs {
		limbs[i] = 0
	}
	z.SetInt64(0)
}

// WipeScalar zeroes a secret scalar's backing storage. Callers that
// hold private keys outside this package use it on release.
func WipeScalar(z *big.Int) { wipeScalar(z) }
