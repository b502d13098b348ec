// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package keyset manages a rotatable ring of SM2 keypairs for the ring
// signature scheme: fresh key generation, signer-view dispatch, and
// verification against the current ring. A process-wide ambient keyset
// mirrors the classic global-verifier pattern behind an explicit Init.
package keyset

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"math/big"
	"sync"

	log "github.com/luxfi/log"
	"github.com/zeebo/blake3"

	"github.com/luxfi/ringsig/ring"
)

var (
	ErrInvalidRingSize = errors.New("keyset: ring size must be >= 1")
	ErrIndexOutOfRange = errors.New("keyset: member index out of bounds")
	ErrNotInitialized  = errors.New("keyset: ambient keyset not initialized")
)

// Keyset owns a ring of n keypairs. The scalar/point form is the source
// of truth; the base64 form handed to signers is derived from it at
// generation time. Reads (Member, Verify*, accessors) may run
// concurrently; Renew excludes them while it swaps the ring.
type Keyset struct {
	mu sync.RWMutex

	n     int
	privs []*big.Int
	pubs  ring.Ring

	extPrivs []string // per-member base64 private scalars
	extPubs  string   // base64 of the concatenated public ring

	fp  [32]byte // blake3 fingerprint of the public ring
	log log.Logger
}

// New generates a keyset of n fresh keypairs. A nil logger disables
// logging.
func New(n int, logger log.Logger) (*Keyset, error) {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	ks := &Keyset{log: logger}
	if err := ks.generate(n); err != nil {
		return nil, err
	}
	ks.log.Info("keyset initialized", "members", n, "ring", hex.EncodeToString(ks.fp[:8]))
	return ks, nil
}

// generate replaces the keyset's fields with n fresh keypairs. The
// caller holds the write lock (or owns the keyset exclusively).
func (ks *Keyset) generate(n int) error {
	if n < 1 {
		return ErrInvalidRingSize
	}
	privs := make([]*big.Int, n)
	pubs := make(ring.Ring, n)
	extPrivs := make([]string, n)
	for i := 0; i < n; i++ {
		priv, pub, err := ring.GenerateKeypair(rand.Reader)
		if err != nil {
			for _, p := range privs[:i] {
				ring.WipeScalar(p)
			}
			return err
		}
		privs[i] = priv
		pubs[i] = pub
		extPrivs[i] = base64.StdEncoding.EncodeToString(ring.EncodeScalar(priv))
	}

	ringBytes := pubs.Bytes()
	ks.n = n
	ks.privs = privs
	ks.pubs = pubs
	ks.extPrivs = extPrivs
	ks.extPubs = base64.StdEncoding.EncodeToString(ringBytes)
	ks.fp = blake3.Sum256(ringBytes)
	return nil
}

// Renew atomically replaces every keypair, possibly changing the ring
// size. Retired private scalars are wiped. Signatures issued under the
// old ring no longer verify.
func (ks *Keyset) Renew(n int) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	retired := ks.privs
	oldFp := ks.fp
	if err := ks.generate(n); err != nil {
		return err
	}
	for _, p := range retired {
		ring.WipeScalar(p)
	}
	ks.log.Info("keyset renewed",
		"members", n,
		"retired", hex.EncodeToString(oldFp[:8]),
		"ring", hex.EncodeToString(ks.fp[:8]))
	return nil
}

// Member returns the signing view for ring member i: the shared public
// ring blob and the member's own private scalar, both base64.
func (ks *Keyset) Member(i int) (*ring.Member, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	if i < 0 || i >= ks.n {
		return nil, ErrIndexOutOfRange
	}
	return &ring.Member{
		Priv:  ks.extPrivs[i],
		Pubs:  ks.extPubs,
		N:     ks.n,
		Index: i,
	}, nil
}

// Verify checks a binary ring signature against the current ring.
func (ks *Keyset) Verify(msg, sig []byte) bool {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ring.Verify(ks.pubs, msg, sig)
}

// VerifyB64 checks a base64-enveloped ring signature against the
// current ring.
func (ks *Keyset) VerifyB64(msg []byte, sigB64 string) bool {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ring.VerifyB64(ks.pubs, msg, sigB64)
}

// Size returns the current ring size.
func (ks *Keyset) Size() int {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.n
}

// Fingerprint returns the blake3 fingerprint of the current public
// ring. It changes on every renewal and identifies a key generation in
// logs.
func (ks *Keyset) Fingerprint() [32]byte {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.fp
}

// PublicRing returns a copy of the current ring's public keys.
func (ks *Keyset) PublicRing() ring.Ring {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	out := make(ring.Ring, len(ks.pubs))
	copy(out, ks.pubs)
	return out
}

// The ambient keyset: one process-wide instance for callers that want
// the global-verifier pattern. Every accessor returns ErrNotInitialized
// before Init.
var (
	ambientMu sync.RWMutex
	ambient   *Keyset
)

// Init creates the ambient keyset with n members, replacing any
// previous one.
func Init(n int) error {
	ks, err := New(n, nil)
	if err != nil {
		return err
	}
	ambientMu.Lock()
	ambient = ks
	ambientMu.Unlock()
	return nil
}

func ambientKeyset() (*Keyset, error) {
	ambientMu.RLock()
	ks := ambient
	ambientMu.RUnlock()
	if ks == nil {
		return nil, ErrNotInitialized
	}
	return ks, nil
}

// Renew rotates the ambient keyset to n fresh members.
func Renew(n int) error {
	ks, err := ambientKeyset()
	if err != nil {
		return err
	}
	return ks.Renew(n)
}

// Dispatch returns the signing view for ambient ring member i.
func Dispatch(i int) (*ring.Member, error) {
	ks, err := ambientKeyset()
	if err != nil {
		return nil, err
	}
	return ks.Member(i)
}

// Verify checks a binary ring signature against the ambient ring.
func Verify(msg, sig []byte) (bool, error) {
	ks, err := ambientKeyset()
	if err != nil {
		return false, err
	}
	return ks.Verify(msg, sig), nil
}

// VerifyB64 checks a base64-enveloped ring signature against the
// ambient ring.
func VerifyB64(msg []byte, sigB64 string) (bool, error) {
	ks, err := ambientKeyset()
	if err != nil {
		return false, err
	}
	return ks.VerifyB64(msg, sigB64), nil
}
