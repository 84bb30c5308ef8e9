// Package signature verifies wallet ownership proofs. The wallet SDK that
// produces signatures is an external collaborator; this package only checks
// that a signature over a nonce was made by the key behind an address.
package signature

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"

	id "medfund/pkg/domain"
	"medfund/pkg/platform/sentinel"
)

// Proof is the wire format produced by the wallet SDK: the signer's public
// key followed by an Ed25519 signature over the raw nonce bytes. The public
// key travels with the proof because addresses are one-way digests of keys.
const (
	proofPublicKeyLen = ed25519.PublicKeySize
	proofLen          = ed25519.PublicKeySize + ed25519.SignatureSize
)

// DeriveAddress maps a public key to its wallet address: the hex of the last
// 20 bytes of the Keccak-256 digest of the key, 0x-prefixed.
func DeriveAddress(pub ed25519.PublicKey) id.WalletAddress {
	digest := sha3.NewLegacyKeccak256()
	digest.Write(pub)
	sum := digest.Sum(nil)
	return id.WalletAddress("0x" + hex.EncodeToString(sum[len(sum)-20:]))
}

// Verifier checks nonce signatures against wallet addresses.
type Verifier struct{}

func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify returns nil only when proof contains a valid signature over nonce
// by the key whose derived address equals wallet. Every failure mode maps to
// sentinel.ErrInvalidSignature so callers cannot distinguish a wrong key
// from a corrupted proof.
func (v *Verifier) Verify(wallet id.WalletAddress, nonce, proof []byte) error {
	if len(proof) != proofLen {
		return fmt.Errorf("proof must be %d bytes, got %d: %w", proofLen, len(proof), sentinel.ErrInvalidSignature)
	}
	pub := ed25519.PublicKey(proof[:proofPublicKeyLen])
	sig := proof[proofPublicKeyLen:]
	if DeriveAddress(pub) != wallet {
		return fmt.Errorf("public key does not control address: %w", sentinel.ErrInvalidSignature)
	}
	if !ed25519.Verify(pub, nonce, sig) {
		return fmt.Errorf("signature does not verify: %w", sentinel.ErrInvalidSignature)
	}
	return nil
}

// SignNonce produces a proof for a nonce. Used by tests and dev tooling;
// production proofs come from the external wallet SDK.
func SignNonce(priv ed25519.PrivateKey, nonce []byte) []byte {
	pub := priv.Public().(ed25519.PublicKey)
	proof := make([]byte, 0, proofLen)
	proof = append(proof, pub...)
	proof = append(proof, ed25519.Sign(priv, nonce)...)
	return proof
}
