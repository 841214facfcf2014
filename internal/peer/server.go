package peer

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/djkazic/rblocknode/internal/chain"
	"github.com/djkazic/rblocknode/internal/store"
	"github.com/djkazic/rblocknode/pkg/metrics"
)

const (
	// connRateLimit is the steady-state rate of requests a single peer
	// address may issue per second.
	connRateLimit rate.Limit = 5
	// connRateBurst allows a short burst above the steady-state rate
	// before limiting kicks in.
	connRateBurst = 10
)

// Server accepts node-to-node TCP connections and serves ConnectTest and
// PushBlock requests against a shared store.
type Server struct {
	listener net.Listener
	store    *store.Store
	logger   *zap.Logger

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
}

// Listen starts a Server bound to addr.
func Listen(addr string, st *store.Store, logger *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("peer: listen on %s: %w", addr, err)
	}
	return &Server{
		listener: ln,
		store:    st,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}, nil
}

// Addr returns the server's bound address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}

// Serve accepts connections until the listener is closed, handling each on
// its own goroutine.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("peer: accept: %w", err)
		}
		go s.handle(conn)
	}
}

func (s *Server) limiterFor(addr string) *rate.Limiter {
	s.limitersMu.Lock()
	defer s.limitersMu.Unlock()

	lim, ok := s.limiters[addr]
	if !ok {
		lim = rate.NewLimiter(connRateLimit, connRateBurst)
		s.limiters[addr] = lim
	}
	return lim
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}

	if !s.limiterFor(host).Allow() {
		if s.logger != nil {
			s.logger.Warn("peer rate limited", zap.String("addr", host))
		}
		return
	}

	codec := NewCodec(conn)
	req, err := codec.ReadRequest()
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("failed to read request", zap.String("addr", host), zap.Error(err))
		}
		return
	}

	resp := s.dispatch(req)
	if err := codec.SendResponse(resp); err != nil {
		if s.logger != nil {
			s.logger.Debug("failed to send response", zap.String("addr", host), zap.Error(err))
		}
	}
}

func (s *Server) dispatch(req *Request) *Response {
	var resp *Response
	switch req.Kind {
	case KindConnectTest:
		resp = &Response{Kind: KindConnectTest, Status: StatusOK}
	case KindPushBlock:
		resp = &Response{Kind: KindPushBlock, Status: s.handlePushBlock(req)}
	default:
		resp = &Response{Kind: req.Kind, Status: StatusBadReq}
	}
	metrics.PushesReceived.WithLabelValues(kindLabel(resp.Kind), resp.Status.String()).Inc()
	return resp
}

func kindLabel(k Kind) string {
	switch k {
	case KindConnectTest:
		return "connect_test"
	case KindPushBlock:
		return "push_block"
	default:
		return "unknown"
	}
}

func (s *Server) handlePushBlock(req *Request) Status {
	if req.Block == nil {
		return StatusBadReq
	}
	block := *req.Block

	if !block.VerifyHash() || !block.VerifyTransactions() || !block.VerifyDifficulty() {
		return StatusBadData
	}

	latest, err := s.store.GetLatestBlock()
	if err != nil {
		if s.logger != nil {
			s.logger.Error("push block: read latest", zap.Error(err))
		}
		return StatusIntErr
	}

	if latest.Height >= block.Height {
		return StatusBadData
	}

	// block is ahead of more than one height: it cannot be linked to our
	// tip directly, but it isn't invalid either — the gap needs backfill,
	// which is a future concern, not a reason to reject this push.
	if latest.Height+1 < block.Height {
		if s.logger != nil {
			s.logger.Info("pushed block is ahead of tip, backfill needed",
				zap.Uint64("tip_height", latest.Height),
				zap.Uint64("pushed_height", block.Height),
			)
		}
		return StatusOK
	}

	if err := chain.Validate(latest, block); err != nil {
		return StatusBadData
	}

	if err := s.store.AddBlock(block); err != nil {
		if s.logger != nil {
			s.logger.Warn("push block: rejected by store", zap.Error(err))
		}
		return StatusBadData
	}
	metrics.BlocksAccepted.Inc()

	if s.logger != nil {
		s.logger.Info("accepted pushed block", zap.Uint64("height", block.Height), zap.String("hash", block.Hash))
	}
	return StatusOK
}
