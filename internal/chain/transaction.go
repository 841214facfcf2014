// Package chain implements the block, transaction, and proof-of-work
// consensus rules: transaction signing and verification, Merkle roots,
// nibble-granularity difficulty retargeting, and the linear blockchain
// engine that validates and appends new blocks.
package chain

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/djkazic/rblocknode/internal/ecdsa"
	"github.com/djkazic/rblocknode/internal/rhash"
	"github.com/djkazic/rblocknode/internal/secp256k1"
)

// Reward is the fixed amount credited to a miner's reward transaction.
const Reward float32 = 1.5

// TransactionLimit is the maximum number of transactions a single block may
// carry.
const TransactionLimit = 5000

// Transaction moves an amount from sender to recipient, authorized by a
// signature over (sender, recipient, amount) under the sender's key. A
// reward transaction uses the identity point as its sender and carries an
// empty signature — it needs no authorization since it originates with the
// miner, not a spend.
type Transaction struct {
	Sender    secp256k1.Point `json:"sender" cbor:"1,keyasint"`
	Recipient secp256k1.Point `json:"recipient" cbor:"2,keyasint"`
	Amount    float32         `json:"amount" cbor:"3,keyasint"`
	Signature ecdsa.Signature `json:"signature" cbor:"4,keyasint"`
}

// RewardTransaction builds the unsigned coinbase-style transaction credited
// to a block's miner.
func RewardTransaction(recipient secp256k1.Point) Transaction {
	return Transaction{
		Sender:    secp256k1.Identity(),
		Recipient: recipient,
		Amount:    Reward,
		Signature: ecdsa.Empty(),
	}
}

// NewTransaction builds and signs a transfer from sender to recipient under
// privateKey.
func NewTransaction(sender, recipient secp256k1.Point, amount float32, privateKey *big.Int) (Transaction, error) {
	tx := Transaction{Sender: sender, Recipient: recipient, Amount: amount}
	sig, err := ecdsa.Sign(tx.message(), privateKey, nil)
	if err != nil {
		return Transaction{}, fmt.Errorf("chain: sign transaction: %w", err)
	}
	tx.Signature = sig
	return tx, nil
}

// message is the exact string signed and verified: sender display, then
// recipient display, then the amount's canonical decimal rendering,
// concatenated with no separators.
func (t Transaction) message() string {
	return t.Sender.Display() + t.Recipient.Display() + formatAmount(t.Amount)
}

// formatAmount renders an f32 the way the source's default Display does:
// the shortest decimal string that round-trips back to the same float32.
func formatAmount(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

// IsReward reports whether t is a reward (coinbase-style) transaction.
func (t Transaction) IsReward() bool {
	return t.Sender.IsIdentity()
}

// Verify checks the transaction's signature against its sender. Reward
// transactions are never signed and always report valid since their
// legitimacy comes from block-level reward accounting, not a signature.
func (t Transaction) Verify() bool {
	if t.IsReward() {
		return true
	}
	return ecdsa.Verify(t.Signature, t.message(), t.Sender)
}

// Hash returns the transaction's leaf hash, used only when building a
// block's Merkle root.
func (t Transaction) Hash() string {
	return rhash.Sum256(t.Sender.Display() + t.Recipient.Display() + formatAmount(t.Amount) + t.Signature.Display())
}
