package rnode

import "github.com/djkazic/rblocknode/internal/chain"

// Event types describing the state changes a running node goes through.
// Node has no observer hook and does not construct or emit these events.

// BlockMinedEvent signals that this node found a new block locally.
type BlockMinedEvent struct {
	Block chain.Block
}

// BlockAcceptedEvent signals that a block (locally mined or received from a
// peer) was accepted onto the chain.
type BlockAcceptedEvent struct {
	Block chain.Block
}

// BlockRejectedEvent signals that a candidate block failed validation.
type BlockRejectedEvent struct {
	Block chain.Block
	Err   error
}

// PeerPushEvent signals that a remote peer pushed a block to this node.
type PeerPushEvent struct {
	Addr  string
	Block chain.Block
}
