package chain

import (
	"fmt"

	"go.uber.org/zap"
)

// Blockchain is the in-memory, linearly-ordered sequence of validated
// blocks. It holds no persistence of its own; internal/store keeps its own
// block log and uses only Validate from this package.
type Blockchain struct {
	blocks []Block
	logger *zap.Logger
}

// New creates a blockchain seeded with a freshly minted genesis block.
func New(logger *zap.Logger, now uint64) *Blockchain {
	return &Blockchain{
		blocks: []Block{Genesis(now)},
		logger: logger,
	}
}

// FromBlocks reconstructs a Blockchain from an already-validated,
// height-ordered block sequence (e.g. loaded from the store at startup).
// The caller is responsible for having validated the sequence previously;
// FromBlocks does not re-run AddBlock's checks.
func FromBlocks(logger *zap.Logger, blocks []Block) *Blockchain {
	return &Blockchain{blocks: blocks, logger: logger}
}

// LatestBlock returns the chain's tip.
func (bc *Blockchain) LatestBlock() Block {
	return bc.blocks[len(bc.blocks)-1]
}

// Blocks returns the full validated sequence, oldest first. The returned
// slice is owned by the caller; mutating it does not affect the chain.
func (bc *Blockchain) Blocks() []Block {
	out := make([]Block, len(bc.blocks))
	copy(out, bc.blocks)
	return out
}

// NextDifficulty computes the difficulty a candidate block extending the
// current tip is required to declare, given the candidate's timestamp.
func (bc *Blockchain) NextDifficulty(candidateTimestamp uint64) uint32 {
	tip := bc.LatestBlock()
	return nextDifficulty(tip.Difficulty, tip.Timestamp, candidateTimestamp)
}

// AddBlock validates candidate against the current tip and consensus rules
// and, if valid, appends it. The checks run in a fixed order: transaction
// count and signatures, then linkage to the tip, hash recomputation, the
// expected difficulty, and finally PoW.
func (bc *Blockchain) AddBlock(candidate Block) error {
	if len(candidate.Transactions) > TransactionLimit {
		return &ErrTooManyTx{Count: len(candidate.Transactions)}
	}
	if !candidate.VerifyTransactions() {
		return &ErrBadSignature{}
	}

	tip := bc.LatestBlock()
	if tip.Hash != candidate.PrevHash {
		return &ErrLinkageMismatch{Want: tip.Hash, Got: candidate.PrevHash}
	}

	if !candidate.VerifyHash() {
		return &ErrHashMismatch{}
	}

	supposedDifficulty := nextDifficulty(tip.Difficulty, tip.Timestamp, candidate.Timestamp)
	if candidate.Difficulty != supposedDifficulty {
		return &ErrDifficultyMismatch{Want: supposedDifficulty, Got: candidate.Difficulty}
	}

	if !candidate.VerifyDifficulty() {
		return &ErrBadPoW{}
	}

	bc.blocks = append(bc.blocks, candidate)
	if bc.logger != nil {
		bc.logger.Debug("block appended",
			zap.Uint64("height", candidate.Height),
			zap.String("hash", candidate.Hash),
			zap.Int("transactions", len(candidate.Transactions)),
		)
	}
	return nil
}

// Validate re-runs AddBlock's checks against an arbitrary (tip, candidate)
// pair without mutating the chain. Used by the store's AddBlock and by the
// peer server to check a candidate against the persisted tip.
func Validate(tip, candidate Block) error {
	if len(candidate.Transactions) > TransactionLimit {
		return &ErrTooManyTx{Count: len(candidate.Transactions)}
	}
	if !candidate.VerifyTransactions() {
		return &ErrBadSignature{}
	}
	if tip.Hash != candidate.PrevHash {
		return &ErrLinkageMismatch{Want: tip.Hash, Got: candidate.PrevHash}
	}
	if !candidate.VerifyHash() {
		return &ErrHashMismatch{}
	}
	supposedDifficulty := nextDifficulty(tip.Difficulty, tip.Timestamp, candidate.Timestamp)
	if candidate.Difficulty != supposedDifficulty {
		return &ErrDifficultyMismatch{Want: supposedDifficulty, Got: candidate.Difficulty}
	}
	if !candidate.VerifyDifficulty() {
		return &ErrBadPoW{}
	}
	return nil
}

// String implements fmt.Stringer for debugging.
func (bc *Blockchain) String() string {
	return fmt.Sprintf("Blockchain{height=%d, tip=%s}", bc.LatestBlock().Height, bc.LatestBlock().Hash)
}
