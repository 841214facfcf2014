package chain

import (
	"fmt"

	"github.com/djkazic/rblocknode/internal/rhash"
	"github.com/djkazic/rblocknode/internal/secp256k1"
)

// Block is one link in the chain: a height-ordered, proof-of-work-sealed
// batch of transactions.
type Block struct {
	Height       uint64        `json:"height" cbor:"1,keyasint"`
	Hash         string        `json:"hash" cbor:"2,keyasint"`
	Timestamp    uint64        `json:"timestamp" cbor:"3,keyasint"`
	PrevHash     string        `json:"prev_hash" cbor:"4,keyasint"`
	Nonce        uint32        `json:"nonce" cbor:"5,keyasint"`
	Difficulty   uint32        `json:"difficulty" cbor:"6,keyasint"`
	MerkleRoot   string        `json:"merkle_root" cbor:"7,keyasint"`
	Transactions []Transaction `json:"transactions" cbor:"8,keyasint"`
}

// message is the exact string hashed to produce a block's hash.
func (b Block) message() string {
	return fmt.Sprintf("%d%d%s%d%d%s", b.Height, b.Timestamp, b.PrevHash, b.Nonce, b.Difficulty, b.MerkleRoot)
}

func (b *Block) setHash() {
	b.Hash = rhash.Sum256(b.message())
}

// Genesis builds the chain's first block: height 0, empty parent hash,
// maximum (easiest) difficulty, no transactions.
func Genesis(now uint64) Block {
	b := Block{
		Height:     0,
		Timestamp:  now,
		Nonce:      0,
		Difficulty: MaxDifficulty,
		PrevHash:   "",
	}
	b.MerkleRoot = merkleRoot(b.Transactions)
	b.setHash()
	return b
}

// NewBlock builds a candidate block extending prev, carrying transactions
// and sealed for miner at the difficulty prev currently holds. The
// returned block still needs its proof of work found via Mine before it is
// valid.
func NewBlock(prev Block, transactions []Transaction, miner secp256k1.Point, now uint64) Block {
	txs := append(append([]Transaction{}, transactions...), RewardTransaction(miner))

	b := Block{
		Height:       prev.Height + 1,
		Timestamp:    now,
		PrevHash:     prev.Hash,
		Nonce:        0,
		Difficulty:   prev.Difficulty,
		Transactions: txs,
	}
	b.MerkleRoot = merkleRoot(b.Transactions)
	b.setHash()
	return b
}

// SetDifficulty overrides the block's difficulty (used when the chain's
// retargeting decides the candidate should seal at a different difficulty
// than its parent) and re-seals the hash.
func (b *Block) SetDifficulty(difficulty uint32) {
	b.Difficulty = difficulty
	b.setHash()
}

// ErrNonceExhausted is returned by Mine when every nonce value has been
// tried without finding a hash that meets the block's difficulty. In
// practice this only happens at the hardest possible difficulty with an
// unlucky transaction set; callers should reshuffle transactions (changing
// the Merkle root) and retry.
type ErrNonceExhausted struct{}

func (ErrNonceExhausted) Error() string {
	return "chain: nonce space exhausted before a hash met the block's difficulty"
}

// Mine repeatedly increments the block's nonce and re-seals its hash until
// the hash meets the block's own difficulty, or the nonce space is
// exhausted.
func (b *Block) Mine() error {
	if meetsDifficulty(b.Hash, b.Difficulty) {
		return nil
	}
	for b.Nonce != ^uint32(0) {
		b.Nonce++
		b.setHash()
		if meetsDifficulty(b.Hash, b.Difficulty) {
			return nil
		}
	}
	return ErrNonceExhausted{}
}

// VerifyHash reports whether the block's stored hash matches a fresh
// recomputation from its fields.
func (b Block) VerifyHash() bool {
	return b.Hash == rhash.Sum256(b.message())
}

// VerifyDifficulty reports whether the block's hash meets its own declared
// difficulty.
func (b Block) VerifyDifficulty() bool {
	return meetsDifficulty(b.Hash, b.Difficulty)
}

// VerifyTransactions reports whether every non-reward transaction carries a
// valid signature and the block does not exceed the per-block transaction
// limit. It does not check account balances — that is the chainstate's
// responsibility.
func (b Block) VerifyTransactions() bool {
	if len(b.Transactions) > TransactionLimit {
		return false
	}
	for _, tx := range b.Transactions {
		if !tx.Verify() {
			return false
		}
	}
	return true
}
