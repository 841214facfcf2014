// Package peer implements the node-to-node wire protocol: a length-prefixed
// CBOR envelope carrying connectivity checks and block announcements over
// plain TCP.
package peer

import "github.com/djkazic/rblocknode/internal/chain"

// Kind identifies the purpose of a Request/Response pair.
type Kind uint8

const (
	// KindConnectTest verifies that a peer is reachable and speaking the
	// protocol, without exchanging any chain data.
	KindConnectTest Kind = 1

	// KindPushBlock announces a newly mined or received block to a peer.
	KindPushBlock Kind = 2
)

// Status reports how a peer handled a Request.
type Status uint8

const (
	// StatusOK indicates the request was handled successfully.
	StatusOK Status = 0
	// StatusBadReq indicates the request was malformed (e.g. missing a
	// required field for its Kind).
	StatusBadReq Status = 1
	// StatusBadData indicates the request was well-formed but carried data
	// that failed validation (bad hash, bad signature, bad PoW, wrong
	// height).
	StatusBadData Status = 2
	// StatusIntErr indicates the peer hit an internal error unrelated to
	// the request's validity (e.g. its own store is unavailable).
	StatusIntErr Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusBadReq:
		return "bad request"
	case StatusBadData:
		return "bad data"
	case StatusIntErr:
		return "internal error"
	default:
		return "unknown status"
	}
}

// Request is the envelope sent by the initiating peer.
type Request struct {
	Kind  Kind         `cbor:"1,keyasint"`
	Block *chain.Block `cbor:"2,keyasint,omitempty"`
}

// Response is the envelope sent back by the receiving peer.
type Response struct {
	Kind   Kind   `cbor:"1,keyasint"`
	Status Status `cbor:"2,keyasint"`
}
