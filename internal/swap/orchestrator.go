package swap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/spark-swap/internal/amount"
	"github.com/aman-zulfiqar/spark-swap/internal/constants"
	"github.com/aman-zulfiqar/spark-swap/internal/models"
	"github.com/aman-zulfiqar/spark-swap/internal/wallet"
)

// Config wires an orchestrator to its collaborators. Auth and Journal are
// optional.
type Config struct {
	Wallet   Wallet
	Auth     Authenticator
	Swapper  Swapper
	Market   Market
	Journal  Journal
	Risk     RiskConfig
	Debounce time.Duration // Delay before a quote is requested after an edit

	// OnChange receives a snapshot after every state change. It may be
	// called from several goroutines.
	OnChange func(Snapshot)
	Logger   *logrus.Logger
}

// Orchestrator is the session state machine. All methods are safe for
// concurrent use; network calls never run under the lock.
type Orchestrator struct {
	wallet   Wallet
	auth     Authenticator
	swapper  Swapper
	market   Market
	journal  Journal
	risk     *RiskManager
	debounce time.Duration
	onChange func(Snapshot)
	logger   *logrus.Logger

	// ctx bounds background quote requests; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	// notifyMu orders deliveries; snapshots are taken while holding it.
	notifyMu sync.Mutex

	mu          sync.Mutex
	state       State
	account     *wallet.Account
	pools       []models.Pool
	pool        *models.Pool
	direction   Direction
	amountText  string
	amountIn    *big.Int
	slippageBps uint32
	quote       *models.SwapQuote
	quoteKey    string
	quoteErr    string
	lastResult  *models.SwapResult
	generation  uint64
	timer       *time.Timer
}

func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Wallet == nil || cfg.Swapper == nil || cfg.Market == nil {
		return nil, fmt.Errorf("swap: wallet, swapper and market are required")
	}
	if cfg.Debounce < 0 {
		cfg.Debounce = 0
	}
	if cfg.Risk == (RiskConfig{}) {
		cfg.Risk = DefaultRiskConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	risk := NewRiskManager(cfg.Risk)

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		wallet:      cfg.Wallet,
		auth:        cfg.Auth,
		swapper:     cfg.Swapper,
		market:      cfg.Market,
		journal:     cfg.Journal,
		risk:        risk,
		debounce:    cfg.Debounce,
		onChange:    cfg.OnChange,
		logger:      cfg.Logger,
		ctx:         ctx,
		cancel:      cancel,
		state:       StateDisconnected,
		direction:   AToB,
		slippageBps: risk.DefaultSlippage(),
	}, nil
}

// Connect connects the wallet, authenticates and selects the first pool
// when none is selected. An authentication failure is logged and leaves
// the session connected; API calls then run unauthenticated.
func (o *Orchestrator) Connect(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateDisconnected {
		o.mu.Unlock()
		return nil
	}
	o.state = StateConnecting
	gen := o.generation
	o.mu.Unlock()
	o.notify()

	acct, err := o.wallet.Connect(ctx)
	if err != nil {
		o.mu.Lock()
		if o.generation == gen {
			o.state = StateDisconnected
		}
		o.mu.Unlock()
		o.notify()
		return err
	}

	log := o.logger.WithField("publicKey", shortKey(acct.PublicKey))
	if o.auth != nil {
		if err := o.auth.Authenticate(ctx, acct.PublicKey, o.wallet.SignMessage); err != nil {
			log.WithError(err).Warn("authentication failed, continuing without session")
		}
	}

	pools, err := o.market.Pools(ctx, &models.ListPoolsQuery{
		Limit: constants.DefaultPoolPageSize,
		Sort:  models.SortTVLDesc,
	})
	if err != nil {
		log.WithError(err).Warn("pool listing failed")
	}

	o.mu.Lock()
	if o.generation != gen {
		// Disconnected while connecting.
		o.mu.Unlock()
		return ErrNotConnected
	}
	o.account = acct
	o.pools = append([]models.Pool(nil), pools...)
	o.state = StateConnected
	if o.pool == nil && len(pools) > 0 {
		p := pools[0]
		o.pool = &p
		o.state = StatePoolSelected
	}
	o.mu.Unlock()

	log.WithField("pools", len(pools)).Info("wallet connected")
	o.notify()
	return nil
}

// Disconnect drops the wallet, the pool selection and any pending quote.
func (o *Orchestrator) Disconnect() {
	o.mu.Lock()
	o.generation++
	o.stopTimerLocked()
	o.state = StateDisconnected
	o.account = nil
	o.pools = nil
	o.pool = nil
	o.direction = AToB
	o.amountText = ""
	o.amountIn = nil
	o.clearQuoteLocked()
	o.lastResult = nil
	o.mu.Unlock()

	if o.auth != nil {
		o.auth.Clear()
	}
	o.notify()
}

// SelectPool switches pools and clears the amount.
func (o *Orchestrator) SelectPool(ctx context.Context, poolID string) error {
	o.mu.Lock()
	if err := o.editableLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	var found *models.Pool
	for i := range o.pools {
		if o.pools[i].PoolID == poolID {
			p := o.pools[i]
			found = &p
			break
		}
	}
	gen := o.generation
	o.mu.Unlock()

	if found == nil {
		p, err := o.market.Pool(ctx, poolID)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: %s", ErrUnknownPool, poolID)
		}
		found = p
	}

	o.mu.Lock()
	if o.generation != gen {
		o.mu.Unlock()
		return ErrQuoteStale
	}
	if err := o.editableLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	o.pool = found
	o.direction = AToB
	o.amountText = ""
	o.amountIn = nil
	o.invalidateLocked()
	o.mu.Unlock()

	o.notify()
	return nil
}

// SetAmount updates the input amount in display units. A quote is
// requested once the amount parses to a positive value.
func (o *Orchestrator) SetAmount(text string) error {
	o.mu.Lock()
	if err := o.editableLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	o.amountText = strings.TrimSpace(text)
	o.invalidateLocked()
	o.mu.Unlock()

	o.notify()
	return nil
}

// ToggleDirection swaps the sold and bought token of the current pool.
func (o *Orchestrator) ToggleDirection() error {
	o.mu.Lock()
	if err := o.editableLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	if o.pool == nil {
		o.mu.Unlock()
		return ErrNoPool
	}
	if o.direction == AToB {
		o.direction = BToA
	} else {
		o.direction = AToB
	}
	o.invalidateLocked()
	o.mu.Unlock()

	o.notify()
	return nil
}

// SetSlippage sets the tolerance, clamped to the risk maximum.
func (o *Orchestrator) SetSlippage(bps uint32) error {
	o.mu.Lock()
	if err := o.editableLocked(); err != nil {
		o.mu.Unlock()
		return err
	}
	o.slippageBps = o.risk.ClampSlippage(bps)
	o.invalidateLocked()
	o.mu.Unlock()

	o.notify()
	return nil
}

// Swap executes the displayed quote. It returns an error only when the
// session is not in a state that allows swapping; execution failures are
// reported in the result.
func (o *Orchestrator) Swap(ctx context.Context) (*models.SwapResult, error) {
	o.mu.Lock()
	if o.account == nil {
		o.mu.Unlock()
		return nil, ErrNotConnected
	}
	switch o.state {
	case StateSwapping:
		o.mu.Unlock()
		return nil, ErrSwapInProgress
	case StateReadyToSwap, StateFailed:
	default:
		o.mu.Unlock()
		return nil, ErrNoQuote
	}
	params, key, ok := o.paramsLocked()
	if !ok || o.quote == nil {
		o.mu.Unlock()
		return nil, ErrNoQuote
	}
	if key != o.quoteKey {
		o.mu.Unlock()
		return nil, ErrQuoteStale
	}
	quote := o.quote
	if check := o.risk.CheckQuote(quote); !check.Allowed {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrRiskRejected, check.Reason)
	}
	params.UserPublicKey = o.account.PublicKey
	o.stopTimerLocked()
	o.state = StateSwapping
	gen := o.generation
	o.mu.Unlock()
	o.notify()

	log := o.logger.WithFields(logrus.Fields{
		"pool":     shortKey(params.PoolID),
		"amountIn": params.AmountIn.String(),
	})
	res := o.swapper.ExecuteQuoted(ctx, params, quote)
	if res == nil {
		res = &models.SwapResult{Error: "Swap failed"}
	}

	o.mu.Lock()
	if o.generation == gen {
		o.lastResult = res
		if res.Success {
			o.state = StateSucceeded
			o.amountText = ""
			o.amountIn = nil
			o.clearQuoteLocked()
			o.generation++
		} else {
			// Keep the quote so the user can retry.
			o.state = StateFailed
		}
	}
	o.mu.Unlock()

	if res.Success {
		log.WithField("tx", res.TxID).Info("swap succeeded")
		o.market.InvalidateAfterSwap(ctx)
		o.refreshPool(ctx, params.PoolID)
	} else {
		log.WithField("error", res.Error).Warn("swap failed")
	}
	o.record(ctx, params, quote, res)
	o.notify()
	return res, nil
}

// Snapshot returns a copy of the current session.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Pools returns the listing loaded at connect.
func (o *Orchestrator) Pools() []models.Pool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.Pool(nil), o.pools...)
}

// Close stops background quoting.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.stopTimerLocked()
	o.mu.Unlock()
	o.cancel()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	s := Snapshot{
		State:       o.state,
		Direction:   o.direction,
		Amount:      o.amountText,
		SlippageBps: o.slippageBps,
		Quote:       o.quote,
		QuoteError:  o.quoteErr,
		LastResult:  o.lastResult,
	}
	if o.account != nil {
		acct := *o.account
		s.Account = &acct
	}
	if o.pool != nil {
		p := *o.pool
		s.Pool = &p
		in, out, _, _ := Tokens(o.pool, o.direction)
		s.TokenIn, s.TokenOut = &in, &out
	}
	if o.quote != nil {
		s.Risk = o.risk.CheckQuote(o.quote)
	}
	return s
}

func (o *Orchestrator) editableLocked() error {
	switch o.state {
	case StateDisconnected, StateConnecting:
		return ErrNotConnected
	case StateSwapping:
		return ErrSwapInProgress
	}
	return nil
}

// invalidateLocked drops the current quote after an input edit and
// schedules a new one when the inputs are quotable.
func (o *Orchestrator) invalidateLocked() {
	o.generation++
	o.stopTimerLocked()
	o.clearQuoteLocked()
	o.amountIn = nil

	if o.pool == nil {
		o.state = StateConnected
		return
	}
	o.state = StatePoolSelected

	if o.amountText == "" {
		return
	}
	in, _, _, _ := Tokens(o.pool, o.direction)
	v, err := amount.Parse(o.amountText, in.Decimals)
	if err != nil || v.Sign() <= 0 {
		return
	}
	o.amountIn = v

	params, key, _ := o.paramsLocked()
	o.state = StateQuoting
	gen := o.generation
	o.timer = time.AfterFunc(o.debounce, func() { o.runQuote(gen, key, params) })
}

func (o *Orchestrator) runQuote(gen uint64, key string, params models.SwapParams) {
	o.mu.Lock()
	superseded := o.generation != gen
	o.mu.Unlock()
	if superseded {
		return
	}

	quote, err := o.swapper.SimulateSwap(o.ctx, params)

	o.mu.Lock()
	_, current, ok := o.paramsLocked()
	if o.generation != gen || !ok || current != key {
		o.mu.Unlock()
		o.logger.WithField("amountIn", params.AmountIn.String()).Debug("discarding stale quote")
		return
	}
	if err != nil {
		o.quote = nil
		o.quoteKey = ""
		o.quoteErr = err.Error()
		o.state = StatePoolSelected
	} else {
		o.quote = quote
		o.quoteKey = key
		o.quoteErr = ""
		o.state = StateReadyToSwap
	}
	o.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		o.logger.WithError(err).Warn("quote failed")
	}
	o.notify()
}

// paramsLocked builds swap params from the current inputs and the key
// identifying them.
func (o *Orchestrator) paramsLocked() (models.SwapParams, string, bool) {
	if o.pool == nil || o.amountIn == nil {
		return models.SwapParams{}, "", false
	}
	_, _, inAddr, outAddr := Tokens(o.pool, o.direction)
	p := models.SwapParams{
		PoolID:          o.pool.PoolID,
		AssetInAddress:  inAddr,
		AssetOutAddress: outAddr,
		AmountIn:        new(big.Int).Set(o.amountIn),
		SlippageBps:     o.slippageBps,
	}
	key := fmt.Sprintf("%s|%s|%s|%s|%d", p.PoolID, inAddr, outAddr, p.AmountIn, p.SlippageBps)
	return p, key, true
}

func (o *Orchestrator) clearQuoteLocked() {
	o.quote = nil
	o.quoteKey = ""
	o.quoteErr = ""
}

func (o *Orchestrator) stopTimerLocked() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

// notify delivers the current snapshot. Deliveries never overtake each
// other, so the last one seen is always the latest state.
func (o *Orchestrator) notify() {
	if o.onChange == nil {
		return
	}
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()
	o.onChange(o.Snapshot())
}

// refreshPool reloads a pool whose reserves moved and updates the
// selection and listing when they still hold it.
func (o *Orchestrator) refreshPool(ctx context.Context, poolID string) {
	p, err := o.market.Pool(ctx, poolID)
	if err != nil || p == nil {
		if err != nil {
			o.logger.WithError(err).WithField("pool", shortKey(poolID)).Warn("pool refresh failed")
		}
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pool != nil && o.pool.PoolID == poolID {
		fresh := *p
		o.pool = &fresh
	}
	for i := range o.pools {
		if o.pools[i].PoolID == poolID {
			o.pools[i] = *p
		}
	}
}

func (o *Orchestrator) record(ctx context.Context, params models.SwapParams, quote *models.SwapQuote, res *models.SwapResult) {
	if o.journal == nil {
		return
	}
	ev := &models.SwapEvent{
		Timestamp:          time.Now().UTC(),
		PoolID:             params.PoolID,
		UserPublicKey:      params.UserPublicKey,
		AssetIn:            params.AssetInAddress,
		AssetOut:           params.AssetOutAddress,
		AmountIn:           params.AmountIn.String(),
		ExpectedAmountOut:  quote.ExpectedAmountOut.String(),
		MinimumAmountOut:   quote.MinimumAmountOut.String(),
		SlippageBps:        params.SlippageBps,
		PriceImpactBps:     quote.PriceImpactBps,
		QuoteSource:        string(quote.Source),
		Success:            res.Success,
		TxID:               res.TxID,
		OutboundTransferID: res.OutboundTransferID,
		Error:              res.Error,
	}
	// Journal errors are logged by the journal.
	_ = o.journal.Record(ctx, ev)
}

func shortKey(k string) string {
	if len(k) <= 12 {
		return k
	}
	return k[:12] + "..."
}
