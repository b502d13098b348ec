// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ring implements SAG (Spontaneous Anonymous Group) ring
// signatures over the SM2 curve with SM3 as the challenge hash.
//
// A ring signature proves that one of n enumerated key holders signed a
// message without revealing which one. The signature carries the opening
// challenge c_0 and one response per member; the verifier recomputes the
// chain of challenges c_0..c_n, each derived from the previous one
// through a curve point, and accepts iff the chain closes back onto c_0.
package ring

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/big"
)

var (
	ErrInvalidRingSize   = errors.New("ring size must be >= 1")
	ErrInvalidSignerIdx  = errors.New("signer index out of bounds")
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrInvalidPublicKey  = errors.New("invalid public key in ring")
	ErrInvalidSignature  = errors.New("invalid ring signature")
)

// Sizes
const (
	ScalarSize = 32
	PointSize  = 65 // uncompressed: 0x04 || X(32) || Y(32)
)

// Point is an affine point on the SM2 curve.
type Point struct {
	X, Y *big.Int
}

// Ring is an ordered sequence of public keys. The order is part of the
// signature contract: signer and verifier must agree on it.
type Ring []Point

// Bytes returns the ring as concatenated uncompressed points.
func (r Ring) Bytes() []byte {
	buf := make([]byte, 0, len(r)*PointSize)
	for _, p := range r {
		buf = append(buf, encodePoint(p.X, p.Y)...)
	}
	return buf
}

// ParseRing parses concatenated uncompressed points, validating curve
// membership of every one.
func ParseRing(data []byte) (Ring, error) {
	if len(data) == 0 || len(data)%PointSize != 0 {
		return nil, ErrInvalidPublicKey
	}
	r := make(Ring, len(data)/PointSize)
	for i := range r {
		x, y, err := decodePoint(data[i*PointSize : (i+1)*PointSize])
		if err != nil {
			return nil, fmt.Errorf("ring member %d: %w", i, err)
		}
		r[i] = Point{X: x, Y: y}
	}
	return r, nil
}

// Member is the signing view handed to one ring member for a single
// signature: the encoded ring shared by all members plus the member's
// own private scalar.
type Member struct {
	Priv  string // base64 private scalar, 32 bytes decoded
	Pubs  string // base64 concatenation of the ring's public keys
	N     int    // ring size
	Index int    // position of this member's key in the ring
}

// Sign produces a ring signature on msg by the given member. The
// returned signature is c_0 || P_0..P_{n-1} || r_0..r_{n-1}, every
// field fixed-width big-endian, SignLen(n) bytes total.
//
// The anonymity of the signer depends on the entropy of rand; it must
// be a cryptographically secure source.
func Sign(rand io.Reader, m *Member, msg []byte) ([]byte, error) {
	n := m.N
	if n < 1 {
		return nil, ErrInvalidRingSize
	}
	pi := m.Index
	if pi < 0 || pi >= n {
		return nil, ErrInvalidSignerIdx
	}

	priv, err := decodeScalarB64(m.Priv)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	defer wipeScalar(priv)
	if priv.Sign() == 0 {
		return nil, ErrInvalidPrivateKey
	}
	pubs, err := decodeRingB64(m.Pubs, n)
	if err != nil {
		return nil, err
	}

	order := sm2Curve.Params().N
	ph := newPrehash(msg)

	k, err := sampleScalar(rand)
	if err != nil {
		return nil, err
	}
	defer wipeScalar(k)

	c := make([]*big.Int, n)
	r := make([]*big.Int, n)

	kx, ky := sm2Curve.ScalarBaseMult(k.Bytes())
	c[(pi+1)%n] = ph.hashPoint(kx, ky)

	for i := (pi + 1) % n; i != pi; i = (i + 1) % n {
		if r[i], err = sampleScalar(rand); err != nil {
			return nil, err
		}
		tx, ty := mulAdd(r[i], c[i], pubs[i])
		c[(i+1)%n] = ph.hashPoint(tx, ty)
	}

	// Close the ring: r_pi*G + c_pi*pub_pi == k*G, so the verifier's
	// recomputation passes through index pi without singling it out.
	rpi := new(big.Int).Mul(c[pi], priv)
	defer wipeScalar(rpi)
	rpi.Mod(rpi, order)
	rpi.Sub(k, rpi)
	rpi.Mod(rpi, order)
	r[pi] = rpi

	sig := &Signature{C0: c[0], Pubs: pubs, R: r}
	return sig.Serialize(), nil
}

// SignB64 is Sign with the result wrapped in a padded std base64
// envelope of SignB64Len(n) bytes.
func SignB64(rand io.Reader, m *Member, msg []byte) (string, error) {
	sig, err := Sign(rand, m, msg)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify reports whether sig is a valid ring signature on msg under the
// given ring. The ring supplied by the caller is authoritative: the
// public keys embedded in the signature must match it byte for byte.
// Bytes beyond SignLen(len(r)) are ignored.
//
// Malformed input is indistinguishable from a signature that fails the
// challenge chain; both report false.
func Verify(r Ring, msg, sig []byte) bool {
	n := len(r)
	if n < 1 || len(sig) < SignLen(n) {
		return false
	}
	if !bytes.Equal(sig[ScalarSize:ScalarSize+n*PointSize], r.Bytes()) {
		return false
	}

	c0 := new(big.Int).SetBytes(sig[:ScalarSize])
	ph := newPrehash(msg)

	c := c0
	scalars := sig[ScalarSize+n*PointSize:]
	for i := 0; i < n; i++ {
		ri := new(big.Int).SetBytes(scalars[i*ScalarSize : (i+1)*ScalarSize])
		tx, ty := mulAdd(ri, c, r[i])
		c = ph.hashPoint(tx, ty)
	}
	return c.Cmp(c0) == 0
}

// VerifyB64 decodes a padded std base64 envelope and verifies the
// enclosed signature. Malformed base64 reports false.
func VerifyB64(r Ring, msg []byte, sigB64 string) bool {
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false
	}
	return Verify(r, msg, sig)
}

// VerifyBatch reports whether every signature in sigs is valid on the
// corresponding message in msgs under the given ring. The slices must
// have the same nonzero length.
func VerifyBatch(r Ring, msgs, sigs [][]byte) bool {
	if len(msgs) == 0 || len(msgs) != len(sigs) {
		return false
	}
	for i := range sigs {
		if !Verify(r, msgs[i], sigs[i]) {
			return false
		}
	}
	return true
}

func decodeScalarB64(s string) (*big.Int, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(buf) != ScalarSize {
		return nil, ErrInvalidPrivateKey
	}
	return new(big.Int).SetBytes(buf), nil
}

func decodeRingB64(s string, n int) (Ring, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("ring encoding: %w", err)
	}
	if len(buf) != n*PointSize {
		return nil, ErrInvalidPublicKey
	}
	return ParseRing(buf)
}
