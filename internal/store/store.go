// Package store persists the blockchain and its derived chainstate to a
// bbolt database, keeping both consistent under a single mutex so tip
// reads, chainstate updates, and on-disk writes for one block happen as one
// atomic unit.
package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/djkazic/rblocknode/internal/chain"
	"github.com/djkazic/rblocknode/internal/secp256k1"
)

var (
	blocksBucket   = []byte("blocks")
	metaBucket     = []byte("meta")
	balanceBucket  = []byte("balances")
	userKeyPrefix  = []byte("userPK_")
	latestBlockKey = []byte("latest")
)

// Store wraps a bbolt database holding the block log (keyed by height), the
// current tip (keyed separately so it is a single lookup instead of a
// height scan), and the derived chainstate (keyed by serialized public
// key).
type Store struct {
	db     *bbolt.DB
	logger *zap.Logger

	mu sync.Mutex
}

// Open creates or opens the bbolt database at path and ensures its buckets
// exist.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{blocksBucket, metaBucket, balanceBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init buckets: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SizeBytes returns the current on-disk size of the database file.
func (s *Store) SizeBytes() (int64, error) {
	info, err := os.Stat(s.db.Path())
	if err != nil {
		return 0, fmt.Errorf("store: stat db file: %w", err)
	}
	return info.Size(), nil
}

// Seed writes genesis as block 0 and the chain tip, and credits funding
// balances to a set of initial holders. It is meant for bootstrapping a
// brand new database and fails if a genesis block is already stored.
func (s *Store) Seed(genesis chain.Block, funding map[secp256k1.Point]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		blocks := tx.Bucket(blocksBucket)
		if blocks.Get(heightKey(genesis.Height)) != nil {
			return &ErrAlreadyExists{What: "genesis block"}
		}

		if err := putBlock(blocks, genesis); err != nil {
			return err
		}
		if err := putLatest(tx.Bucket(metaBucket), genesis); err != nil {
			return err
		}

		balances := tx.Bucket(balanceBucket)
		for pub, amount := range funding {
			if err := putBalance(balances, pub, amount); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetBlock returns the block at height, or ErrNotFound.
func (s *Store) GetBlock(height uint64) (chain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var block chain.Block
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(blocksBucket).Get(heightKey(height))
		if raw == nil {
			return &ErrNotFound{What: "block"}
		}
		b, err := decodeBlock(raw)
		if err != nil {
			return err
		}
		block = b
		return nil
	})
	return block, err
}

// GetLatestBlock returns the current chain tip.
func (s *Store) GetLatestBlock() (chain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var block chain.Block
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(metaBucket).Get(latestBlockKey)
		if raw == nil {
			return &ErrNotFound{What: "latest block"}
		}
		b, err := decodeBlock(raw)
		if err != nil {
			return err
		}
		block = b
		return nil
	})
	return block, err
}

// GetBalance returns the chainstate balance for pub, or 0 if the key has
// never appeared in a transaction.
func (s *Store) GetBalance(pub secp256k1.Point) (float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var balance float32
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(balanceBucket).Get(userKey(pub))
		if raw == nil {
			return nil
		}
		if len(raw) != 4 {
			return &ErrCorruption{Reason: "balance value is not 4 bytes"}
		}
		balance = math.Float32frombits(binary.LittleEndian.Uint32(raw))
		return nil
	})
	return balance, err
}

// WouldOverdraw reports whether applying tx in isolation against the
// currently persisted balance would drive its sender negative. This is a
// read-only diagnostic helper; AddBlock never uses it to gate acceptance,
// since a block's net effect on a key can be valid even when one of its
// transactions looks like an overdraw taken alone.
func (s *Store) WouldOverdraw(tx chain.Transaction) (bool, error) {
	if tx.IsReward() {
		return false, nil
	}
	balance, err := s.GetBalance(tx.Sender)
	if err != nil {
		return false, err
	}
	return balance < tx.Amount, nil
}

// AddBlock validates candidate against the current tip via chain.Validate,
// then persists the block, advances the tip, and folds the block's net
// transaction effects into the chainstate — all under one lock, so a
// concurrent reader never observes a tip update without its matching
// chainstate update.
func (s *Store) AddBlock(candidate chain.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		blocks := tx.Bucket(blocksBucket)
		meta := tx.Bucket(metaBucket)
		balances := tx.Bucket(balanceBucket)

		rawLatest := meta.Get(latestBlockKey)
		if rawLatest == nil {
			return &ErrNotFound{What: "latest block"}
		}
		latest, err := decodeBlock(rawLatest)
		if err != nil {
			return err
		}

		if candidate.Height == 0 {
			return &ErrNotSupported{Reason: "cannot add another genesis block"}
		}
		if candidate.Height != latest.Height+1 {
			return &ErrNotSupported{Reason: fmt.Sprintf("block height %d does not directly extend tip height %d", candidate.Height, latest.Height)}
		}

		if err := chain.Validate(latest, candidate); err != nil {
			return &ErrInvalidData{Reason: err.Error()}
		}

		if blocks.Get(heightKey(candidate.Height)) != nil {
			return &ErrAlreadyExists{What: "block"}
		}

		deltas := make(map[string]float32, len(candidate.Transactions)*2)
		points := make(map[string]secp256k1.Point, len(candidate.Transactions)*2)
		for _, txn := range candidate.Transactions {
			if !txn.IsReward() {
				key := txn.Sender.Display()
				deltas[key] -= txn.Amount
				points[key] = txn.Sender
			}
			key := txn.Recipient.Display()
			deltas[key] += txn.Amount
			points[key] = txn.Recipient
		}

		// Compute every affected key's resulting balance and reject the
		// whole block, writing nothing, if any of them would go negative.
		finals := make(map[string]float32, len(deltas))
		for key, delta := range deltas {
			raw := balances.Get(userKey(points[key]))
			var current float32
			if raw != nil {
				if len(raw) != 4 {
					return &ErrCorruption{Reason: "balance value is not 4 bytes"}
				}
				current = math.Float32frombits(binary.LittleEndian.Uint32(raw))
			}
			final := current + delta
			if final < 0 {
				return &ErrInvalidData{Reason: fmt.Sprintf("block would drive %s to a negative balance of %v", key, final)}
			}
			finals[key] = final
		}

		if err := putBlock(blocks, candidate); err != nil {
			return err
		}
		if err := putLatest(meta, candidate); err != nil {
			return err
		}

		for key, final := range finals {
			if err := putBalance(balances, points[key], final); err != nil {
				return err
			}
		}

		if s.logger != nil {
			s.logger.Info("block persisted",
				zap.Uint64("height", candidate.Height),
				zap.String("hash", candidate.Hash),
			)
		}
		return nil
	})
}

// RebuildChainstate wipes every stored balance and replays every block from
// genesis through the current tip to recompute it from scratch. This is the
// recovery path after an ErrCorruption surfaces elsewhere; it aborts
// outright (rather than leaving a partially rebuilt chainstate) if any
// block in the log cannot be decoded.
func (s *Store) RebuildChainstate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(balanceBucket); err != nil {
			return fmt.Errorf("store: rebuild chainstate: drop balances: %w", err)
		}
		balances, err := tx.CreateBucket(balanceBucket)
		if err != nil {
			return fmt.Errorf("store: rebuild chainstate: recreate balances: %w", err)
		}

		meta := tx.Bucket(metaBucket)
		rawLatest := meta.Get(latestBlockKey)
		if rawLatest == nil {
			return &ErrNotFound{What: "latest block"}
		}
		latest, err := decodeBlock(rawLatest)
		if err != nil {
			return err
		}

		blocks := tx.Bucket(blocksBucket)
		running := make(map[string]float32)
		for height := uint64(0); height <= latest.Height; height++ {
			raw := blocks.Get(heightKey(height))
			if raw == nil {
				return &ErrCorruption{Reason: fmt.Sprintf("missing block at height %d during chainstate rebuild", height)}
			}
			block, err := decodeBlock(raw)
			if err != nil {
				return &ErrCorruption{Reason: fmt.Sprintf("block at height %d: %v", height, err)}
			}

			deltas := make(map[string]float32, len(block.Transactions)*2)
			points := make(map[string]secp256k1.Point, len(block.Transactions)*2)
			for _, txn := range block.Transactions {
				if !txn.IsReward() {
					key := txn.Sender.Display()
					deltas[key] -= txn.Amount
					points[key] = txn.Sender
				}
				key := txn.Recipient.Display()
				deltas[key] += txn.Amount
				points[key] = txn.Recipient
			}
			for key, delta := range deltas {
				final := running[key] + delta
				if final < 0 {
					return &ErrCorruption{Reason: fmt.Sprintf("replaying block at height %d drives %s to a negative balance of %v", height, key, final)}
				}
				running[key] = final
				if err := putBalance(balances, points[key], running[key]); err != nil {
					return err
				}
			}
		}

		return nil
	})
}

func heightKey(height uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, height)
	return buf
}

func userKey(pub secp256k1.Point) []byte {
	x, y := pub.MarshalStruct()
	payload, _ := cbor.Marshal(struct {
		X string `cbor:"x"`
		Y string `cbor:"y"`
	}{X: x, Y: y})
	return append(append([]byte{}, userKeyPrefix...), payload...)
}

func putBlock(bucket *bbolt.Bucket, b chain.Block) error {
	raw, err := cbor.Marshal(b)
	if err != nil {
		return &ErrInternal{Err: err}
	}
	if err := bucket.Put(heightKey(b.Height), raw); err != nil {
		return &ErrInternal{Err: err}
	}
	return nil
}

func putLatest(bucket *bbolt.Bucket, b chain.Block) error {
	raw, err := cbor.Marshal(b)
	if err != nil {
		return &ErrInternal{Err: err}
	}
	if err := bucket.Put(latestBlockKey, raw); err != nil {
		return &ErrInternal{Err: err}
	}
	return nil
}

func putBalance(bucket *bbolt.Bucket, pub secp256k1.Point, value float32) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(value))
	if err := bucket.Put(userKey(pub), buf); err != nil {
		return &ErrInternal{Err: err}
	}
	return nil
}

func decodeBlock(raw []byte) (chain.Block, error) {
	var b chain.Block
	if err := cbor.Unmarshal(raw, &b); err != nil {
		return chain.Block{}, &ErrCorruption{Reason: err.Error()}
	}
	return b, nil
}
