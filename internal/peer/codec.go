package peer

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const (
	// ioTimeout bounds every individual read or write on a connection, so a
	// slow or unresponsive peer cannot hold a handler goroutine open
	// indefinitely.
	ioTimeout = 5 * time.Second

	// maxMessageSize bounds the declared length prefix, rejecting a peer
	// that claims an absurd payload size before any allocation happens.
	maxMessageSize = 8 * 1024 * 1024
)

// Codec frames messages on a TCP connection as a 4-byte little-endian
// length prefix followed by a CBOR-encoded payload.
type Codec struct {
	conn net.Conn
}

// NewCodec wraps conn in a Codec.
func NewCodec(conn net.Conn) *Codec {
	return &Codec{conn: conn}
}

// ReadRequest reads one framed Request.
func (c *Codec) ReadRequest() (*Request, error) {
	var req Request
	if err := c.readFrame(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ReadResponse reads one framed Response.
func (c *Codec) ReadResponse() (*Response, error) {
	var resp Response
	if err := c.readFrame(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Codec) readFrame(out interface{}) error {
	c.conn.SetReadDeadline(time.Now().Add(ioTimeout))

	var lengthBuf [4]byte
	if _, err := io.ReadFull(c.conn, lengthBuf[:]); err != nil {
		return fmt.Errorf("peer: read length prefix: %w", err)
	}
	length := binary.LittleEndian.Uint32(lengthBuf[:])
	if length > maxMessageSize {
		return fmt.Errorf("peer: declared message length %d exceeds maximum %d", length, maxMessageSize)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(c.conn, buf); err != nil {
		return fmt.Errorf("peer: read payload: %w", err)
	}

	if err := cbor.Unmarshal(buf, out); err != nil {
		return fmt.Errorf("peer: decode payload: %w", err)
	}
	return nil
}

// SendRequest writes one framed Request.
func (c *Codec) SendRequest(req *Request) error {
	return c.writeFrame(req)
}

// SendResponse writes one framed Response.
func (c *Codec) SendResponse(resp *Response) error {
	return c.writeFrame(resp)
}

func (c *Codec) writeFrame(v interface{}) error {
	payload, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("peer: encode payload: %w", err)
	}

	c.conn.SetWriteDeadline(time.Now().Add(ioTimeout))

	var lengthBuf [4]byte
	binary.LittleEndian.PutUint32(lengthBuf[:], uint32(len(payload)))
	if _, err := c.conn.Write(lengthBuf[:]); err != nil {
		return fmt.Errorf("peer: write length prefix: %w", err)
	}
	if _, err := c.conn.Write(payload); err != nil {
		return fmt.Errorf("peer: write payload: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (c *Codec) Close() error {
	return c.conn.Close()
}
