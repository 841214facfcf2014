package peer

import (
	"fmt"
	"net"
	"time"

	"github.com/djkazic/rblocknode/internal/chain"
)

// dialTimeout bounds how long connecting to a peer may take.
const dialTimeout = 5 * time.Second

// ConnectTest dials addr and issues a connectivity check, returning nil
// only if the peer responds with StatusOK.
func ConnectTest(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("peer: dial %s: %w", addr, err)
	}
	defer conn.Close()

	codec := NewCodec(conn)
	if err := codec.SendRequest(&Request{Kind: KindConnectTest}); err != nil {
		return err
	}
	resp, err := codec.ReadResponse()
	if err != nil {
		return err
	}
	if resp.Status != StatusOK {
		return fmt.Errorf("peer: connect test to %s failed: %s", addr, resp.Status)
	}
	return nil
}

// PushBlock dials addr and announces block, returning the peer's response
// status.
func PushBlock(addr string, block chain.Block) (Status, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return StatusIntErr, fmt.Errorf("peer: dial %s: %w", addr, err)
	}
	defer conn.Close()

	codec := NewCodec(conn)
	if err := codec.SendRequest(&Request{Kind: KindPushBlock, Block: &block}); err != nil {
		return StatusIntErr, err
	}
	resp, err := codec.ReadResponse()
	if err != nil {
		return StatusIntErr, err
	}
	return resp.Status, nil
}
