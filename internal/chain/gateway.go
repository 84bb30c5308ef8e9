// Package chain holds the port to the blockchain node. The core never
// builds or decodes transactions; callers hand over signed bytes and get
// back the transaction hash the ledger keys on.
package chain

import (
	"context"
	"encoding/hex"
	"sync"

	"golang.org/x/crypto/sha3"

	dErrors "medfund/pkg/domain-errors"
)

// Gateway submits an already-signed transaction to the chain and returns
// its hash.
type Gateway interface {
	SubmitTransaction(ctx context.Context, signedTx []byte) (string, error)
}

// DevGateway is an in-process Gateway for tests and local development. The
// hash is the Keccak-256 of the payload, so resubmitting the same signed
// bytes yields the same hash and exercises the ledger's idempotency the way
// a real node would.
type DevGateway struct {
	mu        sync.Mutex
	submitted map[string][]byte
}

func NewDevGateway() *DevGateway {
	return &DevGateway{submitted: make(map[string][]byte)}
}

func (g *DevGateway) SubmitTransaction(_ context.Context, signedTx []byte) (string, error) {
	if len(signedTx) == 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "signed transaction is empty")
	}

	hash := sha3.NewLegacyKeccak256()
	hash.Write(signedTx)
	txHash := "0x" + hex.EncodeToString(hash.Sum(nil))

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.submitted[txHash]; !exists {
		copied := make([]byte, len(signedTx))
		copy(copied, signedTx)
		g.submitted[txHash] = copied
	}
	return txHash, nil
}
