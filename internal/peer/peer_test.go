package peer

import (
	"math/big"
	"net"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/djkazic/rblocknode/internal/chain"
	"github.com/djkazic/rblocknode/internal/secp256k1"
	"github.com/djkazic/rblocknode/internal/store"
)

func newTestServer(t *testing.T) (*Server, chain.Block) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	genesis := chain.Genesis(1000)
	if err := st.Seed(genesis, nil); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	srv, err := Listen("127.0.0.1:0", st, zap.NewNop())
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	go srv.Serve()

	return srv, genesis
}

func TestServer_ConnectTest(t *testing.T) {
	srv, _ := newTestServer(t)
	if err := ConnectTest(srv.Addr().String()); err != nil {
		t.Fatalf("ConnectTest: %v", err)
	}
}

func TestServer_PushBlock_Accepted(t *testing.T) {
	srv, genesis := newTestServer(t)

	d, _ := new(big.Int).SetString("1", 16)
	miner := secp256k1.MultiplyGenerator(d)

	bc := chain.FromBlocks(zap.NewNop(), []chain.Block{genesis})
	difficulty := bc.NextDifficulty(genesis.Timestamp + 1)
	block := chain.NewBlock(genesis, nil, miner, genesis.Timestamp+1)
	block.SetDifficulty(difficulty)
	if err := block.Mine(); err != nil {
		t.Fatalf("Mine: %v", err)
	}

	status, err := PushBlock(srv.Addr().String(), block)
	if err != nil {
		t.Fatalf("PushBlock: %v", err)
	}
	if status != StatusOK {
		t.Errorf("status = %v, want StatusOK", status)
	}
}

func TestServer_PushBlock_RejectsBadPoW(t *testing.T) {
	srv, genesis := newTestServer(t)

	d, _ := new(big.Int).SetString("2", 16)
	miner := secp256k1.MultiplyGenerator(d)

	block := chain.NewBlock(genesis, nil, miner, genesis.Timestamp+1)
	block.SetDifficulty(0) // unmined, will not meet any real difficulty

	status, err := PushBlock(srv.Addr().String(), block)
	if err != nil {
		t.Fatalf("PushBlock: %v", err)
	}
	if status != StatusBadData {
		t.Errorf("status = %v, want StatusBadData", status)
	}
}

func TestServer_PushBlock_AheadOfTipIsOK(t *testing.T) {
	srv, genesis := newTestServer(t)

	d, _ := new(big.Int).SetString("9", 16)
	miner := secp256k1.MultiplyGenerator(d)

	bc := chain.FromBlocks(zap.NewNop(), []chain.Block{genesis})
	block1 := chain.NewBlock(genesis, nil, miner, genesis.Timestamp+1)
	block1.SetDifficulty(bc.NextDifficulty(genesis.Timestamp + 1))
	if err := block1.Mine(); err != nil {
		t.Fatalf("Mine block1: %v", err)
	}

	bc2 := chain.FromBlocks(zap.NewNop(), []chain.Block{genesis, block1})
	block2 := chain.NewBlock(block1, nil, miner, block1.Timestamp+1)
	block2.SetDifficulty(bc2.NextDifficulty(block1.Timestamp + 1))
	if err := block2.Mine(); err != nil {
		t.Fatalf("Mine block2: %v", err)
	}

	// Push block2 (height 2) while the server's tip is still genesis
	// (height 0) — a gap of more than one height.
	status, err := PushBlock(srv.Addr().String(), block2)
	if err != nil {
		t.Fatalf("PushBlock: %v", err)
	}
	if status != StatusOK {
		t.Errorf("status = %v, want StatusOK for a block ahead of the tip", status)
	}
}

func TestServer_PushBlock_MissingBlockIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	codec := NewCodec(conn)
	if err := codec.SendRequest(&Request{Kind: KindPushBlock}); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	resp, err := codec.ReadResponse()
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if resp.Status != StatusBadReq {
		t.Errorf("status = %v, want StatusBadReq", resp.Status)
	}
}
