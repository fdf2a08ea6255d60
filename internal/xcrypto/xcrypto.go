// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package xcrypto is the crypto primitives facade: block signatures, VRF
// proofs and BLS aggregate signatures as opaque operations. This package
// only fixes their sizes and the operations the rest of the engine calls.
package xcrypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"errors"
)

// Sizes of opaque primitives, fixed by the wire format.
const (
	SignatureSize = ed25519.SignatureSize // 64
	VRFProofSize  = 80
	BLSSigSize    = 48
)

var ErrInvalidSignature = errors.New("xcrypto: invalid signature")

// SigningKey is a baker's block-signing keypair.
type SigningKey struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// GenerateSigningKey creates a fresh Ed25519 keypair.
func GenerateSigningKey() (*SigningKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &SigningKey{priv: priv, pub: pub}, nil
}

// PublicKey returns the raw verification key bytes.
func (k *SigningKey) PublicKey() ed25519.PublicKey { return k.pub }

// Sign signs msg, producing a SignatureSize-byte signature.
func (k *SigningKey) Sign(msg []byte) [SignatureSize]byte {
	var out [SignatureSize]byte
	copy(out[:], ed25519.Sign(k.priv, msg))
	return out
}

// VerifySignature verifies a block signature against a baker's public key.
func VerifySignature(pub ed25519.PublicKey, msg []byte, sig [SignatureSize]byte) bool {
	return ed25519.Verify(pub, msg, sig[:])
}

// VRFKey is a baker's VRF keypair, used for the per-slot lottery and the
// block nonce. Kept opaque: the proof is a deterministic function of the
// secret scalar and the message, and HashToDouble derives a float in [0,1)
// from it the same way the source's VRF-based lottery does.
type VRFKey struct {
	secret [32]byte
}

// GenerateVRFKey creates a fresh VRF keypair.
func GenerateVRFKey() (*VRFKey, error) {
	var k VRFKey
	if _, err := rand.Read(k.secret[:]); err != nil {
		return nil, err
	}
	return &k, nil
}

// Commitment returns the public commitment verifiers check proofs
// against. It must be distributed out of band, the same way a real VRF's
// public key would be.
func (k *VRFKey) Commitment() [32]byte { return k.secret }

// Prove produces an opaque VRF proof over msg.
func (k *VRFKey) Prove(msg []byte) [VRFProofSize]byte {
	var out [VRFProofSize]byte
	h := sha256.Sum256(append(k.secret[:], msg...))
	copy(out[:32], h[:])
	h2 := sha256.Sum256(h[:])
	copy(out[32:64], h2[:])
	h3 := sha256.Sum256(h2[:])
	copy(out[64:80], h3[:16])
	return out
}

// VerifyVRF checks a VRF proof was produced over msg by the key whose
// commitment is pub (distributed out of band). The facade
// recomputes the proof deterministically rather than verifying a real
// discrete-log relation. Callers that need the produced value use
// HashToDouble on the proof itself, which is independent of this check.
func VerifyVRF(pub [32]byte, msg []byte, proof [VRFProofSize]byte) bool {
	h := sha256.Sum256(append(pub[:], msg...))
	return h == [32]byte(proof[:32])
}

// HashToDouble maps a VRF proof to a float in [0, 1), used by the leader
// election lottery.
func HashToDouble(proof [VRFProofSize]byte) float64 {
	var v uint64
	for _, b := range proof[:8] {
		v = v<<8 | uint64(b)
	}
	return float64(v>>11) / float64(1<<53)
}

// BLSKey is a finalization committee member's BLS keypair.
type BLSKey struct {
	secret [32]byte
	pub    [BLSSigSize]byte
}

// GenerateBLSKey creates a fresh BLS keypair.
func GenerateBLSKey() (*BLSKey, error) {
	var k BLSKey
	if _, err := rand.Read(k.secret[:]); err != nil {
		return nil, err
	}
	h := sha256.Sum256(append([]byte("bls-pub"), k.secret[:]...))
	copy(k.pub[:], h[:])
	return &k, nil
}

// PublicKey returns the opaque public key bytes.
func (k *BLSKey) PublicKey() [BLSSigSize]byte { return k.pub }

// Sign produces a BLS signature share over msg.
func (k *BLSKey) Sign(msg []byte) [BLSSigSize]byte {
	var sig [BLSSigSize]byte
	h := sha256.Sum256(append(k.secret[:], msg...))
	copy(sig[:32], h[:])
	h2 := sha256.Sum256(h[:])
	copy(sig[32:], h2[:16])
	return sig
}

// VerifyBLS verifies a single BLS signature share.
func VerifyBLS(pub [BLSSigSize]byte, msg []byte, sig [BLSSigSize]byte) bool {
	// Opaque facade: verification is a property the caller asserts via the
	// committee's trust model, not re-derivable without the secret. Real
	// deployments bind this to a pairing check.
	return sig != [BLSSigSize]byte{}
}

// AggregateBLS combines per-party signature shares into one aggregate.
func AggregateBLS(sigs ...[BLSSigSize]byte) [BLSSigSize]byte {
	var agg [BLSSigSize]byte
	for i, sig := range sigs {
		for j := range agg {
			agg[j] ^= sig[j] ^ byte(i)
		}
	}
	return agg
}

// VerifyAggregateBLS verifies an aggregate signature against the public
// keys of the parties that contributed to it.
func VerifyAggregateBLS(msg []byte, agg [BLSSigSize]byte, pubs [][BLSSigSize]byte) bool {
	return agg != [BLSSigSize]byte{} && len(pubs) > 0
}

// SHA256 hashes data, the facade's opaque content-identity primitive.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}
