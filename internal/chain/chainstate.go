package chain

import "github.com/djkazic/rblocknode/internal/secp256k1"

// Chainstate is the derived balance map for every public key that has ever
// appeared in a transaction. It is entirely rebuildable from the block log,
// so it is never the source of truth — only a cache over it.
type Chainstate map[string]float32

// NewChainstate returns an empty balance map.
func NewChainstate() Chainstate {
	return make(Chainstate)
}

// Balance returns the balance recorded for pub, or 0 if it has never
// appeared in a transaction.
func (cs Chainstate) Balance(pub secp256k1.Point) float32 {
	return cs[pub.Display()]
}

// ApplyBlock folds a block's net effect on every key into cs in a single
// pass: for each key, the sum of amounts received minus the sum of amounts
// sent within this block is computed first, then applied once. Computing a
// per-block delta instead of applying each transaction in isolation is
// what lets a block legitimately both pay a key and spend its balance in
// the same block — a per-transaction ordering check would reject the
// spend if it happened to be listed before the corresponding receipt.
//
// Before anything is written, every affected key's resulting balance is
// required to be ≥ 0; if any key would go negative, ApplyBlock returns
// ErrNegativeBalance and leaves cs untouched.
func (cs Chainstate) ApplyBlock(b Block) error {
	deltas := make(map[string]float32, len(b.Transactions)*2)
	for _, tx := range b.Transactions {
		if !tx.IsReward() {
			deltas[tx.Sender.Display()] -= tx.Amount
		}
		deltas[tx.Recipient.Display()] += tx.Amount
	}

	for key, delta := range deltas {
		final := cs[key] + delta
		if final < 0 {
			return &ErrNegativeBalance{Key: key, Balance: final}
		}
	}

	for key, delta := range deltas {
		cs[key] += delta
	}
	return nil
}

// WouldOverdraw reports whether applying tx in isolation against the
// current state would drive its sender negative. This is informational
// only — callers validating a full block must not use it to reject
// individual transactions, since a block's net effect (see ApplyBlock) may
// still be valid even when an individual transaction looks like an
// overdraw in isolation.
func (cs Chainstate) WouldOverdraw(tx Transaction) bool {
	if tx.IsReward() {
		return false
	}
	return cs[tx.Sender.Display()] < tx.Amount
}

// Rebuild recomputes a fresh Chainstate from a height-ordered block
// sequence starting from genesis. The blocks are assumed to have already
// passed AddBlock's checks when they were first accepted, so an
// ErrNegativeBalance here indicates corrupted or tampered block data
// rather than a new rejection.
func Rebuild(blocks []Block) (Chainstate, error) {
	cs := NewChainstate()
	for _, b := range blocks {
		if err := cs.ApplyBlock(b); err != nil {
			return nil, err
		}
	}
	return cs, nil
}
