// Package testutil holds fixtures shared across this module's test
// suites: deterministic keypairs, sample transactions, and sample chains.
package testutil

import (
	"math/big"

	"github.com/djkazic/rblocknode/internal/chain"
	"github.com/djkazic/rblocknode/internal/secp256k1"
)

// KeyA and KeyB are fixed private keys for deterministic tests. They are
// constants, not drawn from entropy, so tests using them are reproducible.
var (
	KeyA, _ = new(big.Int).SetString("78c8ca876adc4094c7ff87980d237de55a1eb4047573ef72366c8c0e0c5553b", 16)
	KeyB, _ = new(big.Int).SetString("4f3edf983ac636a65a842ce7c78d9aa706d3b113bce3c7e5e9f6e9e2d44c0a6a", 16)
)

// SampleKeypair returns a deterministic private key and its public point.
func SampleKeypair() (*big.Int, secp256k1.Point) {
	return KeyA, secp256k1.MultiplyGenerator(KeyA)
}

// SampleTransaction returns a signed transfer from KeyA's key to KeyB's,
// for tests that need a well-formed, independently verifiable transaction.
func SampleTransaction(amount float32) (chain.Transaction, error) {
	sender := secp256k1.MultiplyGenerator(KeyA)
	recipient := secp256k1.MultiplyGenerator(KeyB)
	return chain.NewTransaction(sender, recipient, amount, KeyA)
}

// SampleChain builds a chain of count mined blocks extending genesis, each
// carrying a single reward transaction to the given miner. It is meant for
// tests that exercise store replay or chainstate rebuilds rather than
// mining performance, so it uses the easiest possible difficulty
// throughout instead of following real retargeting.
func SampleChain(count int, miner secp256k1.Point, now uint64) []chain.Block {
	blocks := make([]chain.Block, 0, count+1)
	genesis := chain.Genesis(now)
	blocks = append(blocks, genesis)

	for i := 0; i < count; i++ {
		prev := blocks[len(blocks)-1]
		b := chain.NewBlock(prev, nil, miner, now+uint64(i)+1)
		b.SetDifficulty(chain.MaxDifficulty)
		if err := b.Mine(); err != nil {
			panic(err) // MaxDifficulty never exhausts the nonce space in practice
		}
		blocks = append(blocks, b)
	}

	return blocks
}
