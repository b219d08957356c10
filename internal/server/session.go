package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/spark-swap/internal/auth"
	"github.com/aman-zulfiqar/spark-swap/internal/flashnet"
	"github.com/aman-zulfiqar/spark-swap/internal/models"
	"github.com/aman-zulfiqar/spark-swap/internal/swap"
	"github.com/aman-zulfiqar/spark-swap/internal/wallet"
)

// Client message types
const (
	msgConnect         = "connect"
	msgDisconnect      = "disconnect"
	msgSelectPool      = "select_pool"
	msgSetAmount       = "set_amount"
	msgToggleDirection = "toggle_direction"
	msgSetSlippage     = "set_slippage"
	msgSwap            = "swap"
	msgWalletResponse  = "wallet_response"
)

// Server message types
const (
	msgState         = "state"
	msgWalletRequest = "wallet_request"
	msgSwapResult    = "swap_result"
	msgError         = "error"
)

type clientMessage struct {
	Type        string          `json:"type"`
	PoolID      string          `json:"poolId,omitempty"`
	Amount      string          `json:"amount,omitempty"`
	SlippageBps uint32          `json:"slippageBps,omitempty"`
	ID          string          `json:"id,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
}

type serverMessage struct {
	Type   string             `json:"type"`
	State  *swap.Snapshot     `json:"state,omitempty"`
	ID     string             `json:"id,omitempty"`
	Method string             `json:"method,omitempty"`
	Params any                `json:"params,omitempty"`
	Result *models.SwapResult `json:"result,omitempty"`
	Op     string             `json:"op,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// SessionsConfig holds the shared dependencies of websocket swap sessions
type SessionsConfig struct {
	Flashnet        *flashnet.Client // Shared client; each session derives its own
	AuthAPI         auth.API
	Market          swap.Market
	Journal         swap.Journal
	Risk            swap.RiskConfig
	Debounce        time.Duration
	WalletTimeout   time.Duration // How long to wait for the browser wallet
	SessionLifetime time.Duration
	RefreshBuffer   time.Duration
	Logger          *logrus.Logger
}

// Sessions upgrades /v1/session to a websocket and runs one swap
// orchestrator per connection. Wallet calls are relayed to the browser.
type Sessions struct {
	cfg      SessionsConfig
	upgrader websocket.Upgrader
}

func NewSessions(cfg SessionsConfig) (*Sessions, error) {
	if cfg.Flashnet == nil || cfg.Market == nil {
		return nil, errors.New("server: sessions need a flashnet client and market")
	}
	if cfg.WalletTimeout <= 0 {
		cfg.WalletTimeout = 2 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Sessions{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}, nil
}

// Handle runs one session until the socket closes
func (s *Sessions) Handle(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.cfg.Logger.WithError(err).Warn("websocket upgrade failed")
		return nil
	}

	conn := &wsConn{ws: ws}
	defer conn.close()

	sessionID := uuid.NewString()
	log := s.cfg.Logger.WithField("session", sessionID[:8])

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	relay := newWalletRelay(conn, s.cfg.WalletTimeout)
	defer relay.closeAll()

	walletClient := wallet.NewClient(relay)
	authMgr := auth.NewManager(auth.Config{
		API:           s.cfg.AuthAPI,
		Lifetime:      s.cfg.SessionLifetime,
		RefreshBuffer: s.cfg.RefreshBuffer,
		Logger:        s.cfg.Logger,
	})

	var authenticator swap.Authenticator
	if s.cfg.AuthAPI != nil {
		authenticator = authMgr
	}

	orch, err := swap.NewOrchestrator(swap.Config{
		Wallet:   walletClient,
		Auth:     authenticator,
		Swapper:  s.cfg.Flashnet.WithSession(authMgr, walletClient),
		Market:   s.cfg.Market,
		Journal:  s.cfg.Journal,
		Risk:     s.cfg.Risk,
		Debounce: s.cfg.Debounce,
		OnChange: func(snap swap.Snapshot) {
			_ = conn.send(serverMessage{Type: msgState, State: &snap})
		},
		Logger: s.cfg.Logger,
	})
	if err != nil {
		_ = conn.send(serverMessage{Type: msgError, Error: err.Error()})
		return nil
	}
	defer orch.Close()

	log.Info("session opened")
	defer log.Info("session closed")

	snap := orch.Snapshot()
	if err := conn.send(serverMessage{Type: msgState, State: &snap}); err != nil {
		return nil
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	// Wallet round trips arrive on this same socket, so blocking operations
	// run off the read loop.
	async := func(op string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				_ = conn.send(serverMessage{Type: msgError, Op: op, Error: err.Error()})
			}
		}()
	}

	for {
		var msg clientMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("websocket read ended")
			}
			cancel()
			relay.closeAll()
			return nil
		}

		var opErr error
		switch msg.Type {
		case msgConnect:
			async(msg.Type, func() error { return orch.Connect(ctx) })
		case msgDisconnect:
			orch.Disconnect()
		case msgSelectPool:
			poolID := msg.PoolID
			async(msg.Type, func() error { return orch.SelectPool(ctx, poolID) })
		case msgSetAmount:
			opErr = orch.SetAmount(msg.Amount)
		case msgToggleDirection:
			opErr = orch.ToggleDirection()
		case msgSetSlippage:
			opErr = orch.SetSlippage(msg.SlippageBps)
		case msgSwap:
			async(msg.Type, func() error {
				res, err := orch.Swap(ctx)
				if err != nil {
					return err
				}
				return conn.send(serverMessage{Type: msgSwapResult, Result: res})
			})
		case msgWalletResponse:
			opErr = relay.resolve(msg.ID, msg.Response)
		default:
			opErr = fmt.Errorf("unknown message type %q", msg.Type)
		}
		if opErr != nil {
			_ = conn.send(serverMessage{Type: msgError, Op: msg.Type, Error: opErr.Error()})
		}
	}
}

// wsConn serializes writes; gorilla connections allow one writer at a time.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) send(m serverMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteJSON(m)
}

func (c *wsConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	_ = c.ws.Close()
}

type relayReply struct {
	resp *wallet.Response
	err  error
}

// walletRelay is a wallet.Provider backed by the browser on the other end
// of the socket. Each request gets an id the browser echoes back.
type walletRelay struct {
	conn    *wsConn
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]chan relayReply
	closed  bool
}

func newWalletRelay(conn *wsConn, timeout time.Duration) *walletRelay {
	return &walletRelay{conn: conn, timeout: timeout, pending: make(map[string]chan relayReply)}
}

func (r *walletRelay) Request(ctx context.Context, method string, params any) (*wallet.Response, error) {
	id := uuid.NewString()
	ch := make(chan relayReply, 1)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, wallet.ErrWalletUnavailable
	}
	r.pending[id] = ch
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
	}()

	if err := r.conn.send(serverMessage{Type: msgWalletRequest, ID: id, Method: method, Params: params}); err != nil {
		return nil, fmt.Errorf("%w: %w", wallet.ErrWalletUnavailable, err)
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case reply := <-ch:
		return reply.resp, reply.err
	case <-timer.C:
		return nil, wallet.ErrWalletUnavailable
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve hands a browser reply to the waiting request.
func (r *walletRelay) resolve(id string, raw json.RawMessage) error {
	r.mu.Lock()
	ch, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("no pending wallet request %q", id)
	}

	resp, err := wallet.DecodeResponse(raw)
	ch <- relayReply{resp: resp, err: err}
	return nil
}

// closeAll fails every pending request.
func (r *walletRelay) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for id, ch := range r.pending {
		ch <- relayReply{err: wallet.ErrWalletUnavailable}
		delete(r.pending, id)
	}
}
