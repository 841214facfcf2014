package store

import (
	"math/big"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/djkazic/rblocknode/internal/chain"
	"github.com/djkazic/rblocknode/internal/secp256k1"
)

func testKey(t *testing.T, hex string) (*big.Int, secp256k1.Point) {
	t.Helper()
	d, ok := new(big.Int).SetString(hex, 16)
	if !ok {
		t.Fatalf("bad test key hex %q", hex)
	}
	return d, secp256k1.MultiplyGenerator(d)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SeedAndGetBlock(t *testing.T) {
	s := openTestStore(t)
	genesis := chain.Genesis(1000)

	if err := s.Seed(genesis, nil); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	got, err := s.GetBlock(0)
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	if got.Hash != genesis.Hash {
		t.Errorf("got hash %s, want %s", got.Hash, genesis.Hash)
	}

	latest, err := s.GetLatestBlock()
	if err != nil {
		t.Fatalf("GetLatestBlock: %v", err)
	}
	if latest.Hash != genesis.Hash {
		t.Error("latest block should be genesis right after seeding")
	}
}

func TestStore_SeedTwiceFails(t *testing.T) {
	s := openTestStore(t)
	genesis := chain.Genesis(1000)
	if err := s.Seed(genesis, nil); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	err := s.Seed(genesis, nil)
	if _, ok := err.(*ErrAlreadyExists); !ok {
		t.Fatalf("second Seed error = %v (%T), want *ErrAlreadyExists", err, err)
	}
}

func TestStore_SeedFunding(t *testing.T) {
	s := openTestStore(t)
	_, a := testKey(t, "1")
	_, b := testKey(t, "2")

	genesis := chain.Genesis(1000)
	err := s.Seed(genesis, map[secp256k1.Point]float32{a: 100, b: 50})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}

	balA, err := s.GetBalance(a)
	if err != nil {
		t.Fatalf("GetBalance(a): %v", err)
	}
	if balA != 100 {
		t.Errorf("balance A = %v, want 100", balA)
	}

	balB, err := s.GetBalance(b)
	if err != nil {
		t.Fatalf("GetBalance(b): %v", err)
	}
	if balB != 50 {
		t.Errorf("balance B = %v, want 50", balB)
	}
}

func mineNext(t *testing.T, bc *chain.Blockchain, txs []chain.Transaction, miner secp256k1.Point, now uint64) chain.Block {
	t.Helper()
	prev := bc.LatestBlock()
	difficulty := bc.NextDifficulty(now)
	b := chain.NewBlock(prev, txs, miner, now)
	b.SetDifficulty(difficulty)
	if err := b.Mine(); err != nil {
		t.Fatalf("Mine: %v", err)
	}
	return b
}

func TestStore_AddBlock_UpdatesChainstate(t *testing.T) {
	s := openTestStore(t)
	_, miner := testKey(t, "3")

	genesis := chain.Genesis(1000)
	if err := s.Seed(genesis, nil); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	bc := chain.FromBlocks(zap.NewNop(), []chain.Block{genesis})
	candidate := mineNext(t, bc, nil, miner, genesis.Timestamp+1)

	if err := s.AddBlock(candidate); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}

	balance, err := s.GetBalance(miner)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != chain.Reward {
		t.Errorf("miner balance = %v, want %v", balance, chain.Reward)
	}

	latest, err := s.GetLatestBlock()
	if err != nil {
		t.Fatalf("GetLatestBlock: %v", err)
	}
	if latest.Height != 1 {
		t.Errorf("latest height = %d, want 1", latest.Height)
	}
}

func TestStore_AddBlock_RejectsNonSequentialHeight(t *testing.T) {
	s := openTestStore(t)
	_, miner := testKey(t, "4")

	genesis := chain.Genesis(1000)
	if err := s.Seed(genesis, nil); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	bc := chain.FromBlocks(zap.NewNop(), []chain.Block{genesis})
	block1 := mineNext(t, bc, nil, miner, genesis.Timestamp+1)
	if err := s.AddBlock(block1); err != nil {
		t.Fatalf("AddBlock(1): %v", err)
	}

	bc2 := chain.FromBlocks(zap.NewNop(), []chain.Block{genesis, block1})
	block2 := mineNext(t, bc2, nil, miner, block1.Timestamp+1)
	block2.Height = 3 // tamper to skip ahead
	block2.PrevHash = block1.Hash

	err := s.AddBlock(block2)
	if _, ok := err.(*ErrNotSupported); !ok {
		t.Fatalf("AddBlock error = %v (%T), want *ErrNotSupported", err, err)
	}
}

func TestStore_AddBlock_RejectsOverdraft(t *testing.T) {
	s := openTestStore(t)
	dSender, sender := testKey(t, "78c8ca876adc4094c7ff87980d237de55a1eb4047573ef72366c8c0e0c5553b")
	_, recipient := testKey(t, "8")

	genesis := chain.Genesis(1000)
	if err := s.Seed(genesis, map[secp256k1.Point]float32{sender: 1}); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	tx, err := chain.NewTransaction(sender, recipient, 5, dSender)
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}

	bc := chain.FromBlocks(zap.NewNop(), []chain.Block{genesis})
	block := mineNext(t, bc, []chain.Transaction{tx}, sender, genesis.Timestamp+1)

	err = s.AddBlock(block)
	if _, ok := err.(*ErrInvalidData); !ok {
		t.Fatalf("AddBlock error = %v (%T), want *ErrInvalidData", err, err)
	}

	if _, err := s.GetBlock(1); err == nil {
		t.Error("overdrawing block should not have been persisted")
	}
	latest, err := s.GetLatestBlock()
	if err != nil {
		t.Fatalf("GetLatestBlock: %v", err)
	}
	if latest.Height != 0 {
		t.Errorf("tip advanced to height %d despite rejected block", latest.Height)
	}

	balance, err := s.GetBalance(sender)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != 1 {
		t.Errorf("sender balance = %v, want unchanged 1", balance)
	}
}

func TestStore_RebuildChainstate_MatchesLiveUpdates(t *testing.T) {
	s := openTestStore(t)
	_, miner := testKey(t, "5")

	genesis := chain.Genesis(1000)
	if err := s.Seed(genesis, nil); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	bc := chain.FromBlocks(zap.NewNop(), []chain.Block{genesis})
	block1 := mineNext(t, bc, nil, miner, genesis.Timestamp+1)
	if err := s.AddBlock(block1); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}

	before, err := s.GetBalance(miner)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}

	if err := s.RebuildChainstate(); err != nil {
		t.Fatalf("RebuildChainstate: %v", err)
	}

	after, err := s.GetBalance(miner)
	if err != nil {
		t.Fatalf("GetBalance after rebuild: %v", err)
	}
	if before != after {
		t.Errorf("balance before rebuild = %v, after = %v", before, after)
	}
}

func TestStore_WouldOverdraw(t *testing.T) {
	s := openTestStore(t)
	dSender, sender := testKey(t, "78c8ca876adc4094c7ff87980d237de55a1eb4047573ef72366c8c0e0c5553b")
	_, recipient := testKey(t, "6")

	genesis := chain.Genesis(1000)
	if err := s.Seed(genesis, map[secp256k1.Point]float32{sender: 1}); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	tx, err := chain.NewTransaction(sender, recipient, 5, dSender)
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}

	overdraw, err := s.WouldOverdraw(tx)
	if err != nil {
		t.Fatalf("WouldOverdraw: %v", err)
	}
	if !overdraw {
		t.Error("sending more than the sender's balance should report an overdraw")
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	_, miner := testKey(t, "7")

	genesis := chain.Genesis(1000)
	func() {
		s, err := Open(dbPath, zap.NewNop())
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		defer s.Close()

		if err := s.Seed(genesis, nil); err != nil {
			t.Fatalf("Seed: %v", err)
		}
		bc := chain.FromBlocks(zap.NewNop(), []chain.Block{genesis})
		block1 := mineNext(t, bc, nil, miner, genesis.Timestamp+1)
		if err := s.AddBlock(block1); err != nil {
			t.Fatalf("AddBlock: %v", err)
		}
	}()

	s, err := Open(dbPath, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}
	defer s.Close()

	latest, err := s.GetLatestBlock()
	if err != nil {
		t.Fatalf("GetLatestBlock after reopen: %v", err)
	}
	if latest.Height != 1 {
		t.Errorf("height after reopen = %d, want 1", latest.Height)
	}

	balance, err := s.GetBalance(miner)
	if err != nil {
		t.Fatalf("GetBalance after reopen: %v", err)
	}
	if balance != chain.Reward {
		t.Errorf("balance after reopen = %v, want %v", balance, chain.Reward)
	}
}
