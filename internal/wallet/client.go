package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aman-zulfiqar/spark-swap/internal/constants"
)

// Account is the identity returned by a successful connect.
type Account struct {
	SparkAddress string `json:"sparkAddress"`
	PublicKey    string `json:"publicKey"`
}

type Balance struct {
	Balance string `json:"balance"`
}

// ExecuteSwapRequest is the parameter object of spark_flashnet_executeSwap.
type ExecuteSwapRequest struct {
	PoolID                    string `json:"poolId"`
	AssetInAddress            string `json:"assetInAddress"`
	AssetOutAddress           string `json:"assetOutAddress"`
	AmountIn                  string `json:"amountIn"`
	MinAmountOut              string `json:"minAmountOut"`
	MaxSlippageBps            uint32 `json:"maxSlippageBps"`
	UserPublicKey             string `json:"userPublicKey"`
	TotalIntegratorFeeRateBps uint32 `json:"totalIntegratorFeeRateBps"`
	IntegratorPublicKey       string `json:"integratorPublicKey"`
}

type ExecuteSwapResult struct {
	TxID               string `json:"txId"`
	OutboundTransferID string `json:"outboundTransferId"`
	AmountOut          string `json:"amountOut,omitempty"`
}

// Client wraps a Provider with typed methods and maps wallet outcomes to
// the errors shown to users.
type Client struct {
	provider Provider
}

func NewClient(p Provider) *Client {
	return &Client{provider: p}
}

func (c *Client) Connect(ctx context.Context) (*Account, error) {
	res, err := c.request(ctx, MethodConnect, map[string]string{"message": constants.WalletConnectMessage})
	if err != nil {
		return nil, connectError(err)
	}
	switch res.Status {
	case StatusCanceled:
		return nil, ErrConnectionRejected
	case StatusError:
		return nil, connectError(res.Error)
	}

	var acct Account
	if err := res.Decode(&acct); err != nil {
		return nil, err
	}
	if strings.TrimSpace(acct.PublicKey) == "" {
		return nil, fmt.Errorf("%w: connect returned no publicKey", ErrMalformedResponse)
	}
	return &acct, nil
}

func (c *Client) GetBalance(ctx context.Context) (*Balance, error) {
	res, err := c.request(ctx, MethodGetBalance, map[string]any{})
	if err != nil {
		return nil, classify(err, nil)
	}
	switch res.Status {
	case StatusCanceled:
		return nil, ErrUserCanceled
	case StatusError:
		return nil, classify(res.Error, res.Error)
	}
	var b Balance
	if err := res.Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

// SignMessage signs message with the connected key. Its signature matches
// the session manager's signer so it can be passed directly.
func (c *Client) SignMessage(ctx context.Context, message string) (string, error) {
	res, err := c.request(ctx, MethodSignMessage, map[string]string{"message": message})
	if err != nil {
		return "", classify(err, nil)
	}
	switch res.Status {
	case StatusCanceled:
		return "", ErrUserCanceled
	case StatusError:
		return "", classify(res.Error, res.Error)
	}
	var out struct {
		Signature string `json:"signature"`
	}
	if err := res.Decode(&out); err != nil {
		return "", err
	}
	if out.Signature == "" {
		return "", fmt.Errorf("%w: empty signature", ErrMalformedResponse)
	}
	return out.Signature, nil
}

// ExecuteSwap asks the wallet to sign and submit a swap.
func (c *Client) ExecuteSwap(ctx context.Context, req ExecuteSwapRequest) (*ExecuteSwapResult, error) {
	res, err := c.request(ctx, MethodExecuteSwap, req)
	if err != nil {
		return nil, classify(err, nil)
	}
	switch res.Status {
	case StatusCanceled:
		return nil, ErrUserCanceled
	case StatusError:
		return nil, classify(res.Error, res.Error)
	}
	var out ExecuteSwapResult
	if err := res.Decode(&out); err != nil {
		return nil, err
	}
	if out.TxID == "" {
		out.TxID = out.OutboundTransferID
	}
	return &out, nil
}

func (c *Client) request(ctx context.Context, method string, params any) (*Response, error) {
	if c == nil || c.provider == nil {
		return nil, ErrWalletNotFound
	}
	res, err := c.provider.Request(ctx, method, params)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

// classify maps wallet failures onto the user-facing sentinels. Unmatched
// wallet errors are returned as is so their message reaches the user.
func classify(err error, walletErr *RPCError) error {
	for _, known := range []error{ErrUserCanceled, ErrConnectionRejected, ErrWalletNotFound, ErrWalletUnavailable, ErrMalformedResponse} {
		if errors.Is(err, known) {
			return err
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user rejected"), strings.Contains(msg, "cancel"):
		return ErrUserCanceled
	case strings.Contains(msg, "no wallet"), strings.Contains(msg, "not found"), strings.Contains(msg, "not installed"):
		return ErrWalletNotFound
	case strings.Contains(msg, "locked"), strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return ErrWalletUnavailable
	}
	if walletErr != nil {
		return walletErr
	}
	return err
}

func connectError(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "rejected") {
		return ErrConnectionRejected
	}
	var we *RPCError
	if errors.As(err, &we) {
		return classify(err, we)
	}
	return classify(err, nil)
}
