package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	res    *Response
	err    error
	method string
	params any
}

func (s *stubProvider) Request(_ context.Context, method string, params any) (*Response, error) {
	s.method = method
	s.params = params
	return s.res, s.err
}

func mustSuccess(t *testing.T, v any) *Response {
	t.Helper()
	r, err := Success(v)
	require.NoError(t, err)
	return r
}

func TestDecodeResponse(t *testing.T) {
	r, err := DecodeResponse([]byte(`{"status":"success","result":{"publicKey":"02ab"}}`))
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, r.Status)

	r, err = DecodeResponse([]byte(`{"status":"error"}`))
	require.NoError(t, err)
	require.NotNil(t, r.Error)
	assert.Equal(t, "unknown wallet error", r.Error.Message)

	r, err = DecodeResponse([]byte(`{"status":"canceled","result":{"x":1}}`))
	require.NoError(t, err)
	assert.Nil(t, r.Result)

	_, err = DecodeResponse([]byte(`{"status":"success"}`))
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = DecodeResponse([]byte(`{"status":"pending"}`))
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = DecodeResponse([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClient_Connect(t *testing.T) {
	p := &stubProvider{res: mustSuccess(t, Account{SparkAddress: "sp1qq", PublicKey: "02ab"})}
	acct, err := NewClient(p).Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "02ab", acct.PublicKey)
	assert.Equal(t, MethodConnect, p.method)
	assert.Equal(t, map[string]string{"message": "Connect to BitPlex DEX"}, p.params)

	_, err = NewClient(&stubProvider{res: Canceled()}).Connect(context.Background())
	assert.ErrorIs(t, err, ErrConnectionRejected)

	_, err = NewClient(&stubProvider{res: Failure(4001, "User rejected the request")}).Connect(context.Background())
	assert.ErrorIs(t, err, ErrConnectionRejected)

	_, err = NewClient(&stubProvider{res: mustSuccess(t, Account{})}).Connect(context.Background())
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = NewClient(nil).Connect(context.Background())
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestClient_ExecuteSwap(t *testing.T) {
	req := ExecuteSwapRequest{PoolID: "p1", AmountIn: "100", MinAmountOut: "90", UserPublicKey: "02ab", IntegratorPublicKey: "02ab"}

	p := &stubProvider{res: mustSuccess(t, map[string]string{"outboundTransferId": "tr-1"})}
	out, err := NewClient(p).ExecuteSwap(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "tr-1", out.TxID)
	assert.Equal(t, "tr-1", out.OutboundTransferID)
	assert.Equal(t, MethodExecuteSwap, p.method)

	tests := []struct {
		name string
		p    *stubProvider
		want error
		msg  string
	}{
		{"canceled status", &stubProvider{res: Canceled()}, ErrUserCanceled, "Transaction cancelled by user"},
		{"user rejected", &stubProvider{res: Failure(4001, "User rejected signing")}, ErrUserCanceled, ""},
		{"no wallet", &stubProvider{err: errors.New("No wallet provider found")}, ErrWalletNotFound, "Xverse wallet not detected. Please install Xverse browser extension."},
		{"locked", &stubProvider{err: errors.New("wallet locked")}, ErrWalletUnavailable, ""},
		{"other", &stubProvider{res: Failure(-1, "insufficient balance")}, nil, "insufficient balance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.p).ExecuteSwap(context.Background(), req)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			if tt.msg != "" {
				assert.Equal(t, tt.msg, err.Error())
			}
		})
	}
}

func TestKeyProvider_SignAndVerify(t *testing.T) {
	kp, err := NewKeyProvider("0x11" + strings.Repeat("22", 31))
	require.NoError(t, err)
	assert.Len(t, kp.PublicKey(), 66)

	c := NewClient(kp)
	acct, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), acct.PublicKey)

	sig, err := c.SignMessage(context.Background(), "challenge-123")
	require.NoError(t, err)
	assert.True(t, VerifySignature(kp.PublicKey(), "challenge-123", sig))
	assert.False(t, VerifySignature(kp.PublicKey(), "challenge-124", sig))

	_, err = c.ExecuteSwap(context.Background(), ExecuteSwapRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}

func TestParsePrivateKey(t *testing.T) {
	arr := make([]int, 32)
	for i := range arr {
		arr[i] = i + 1
	}
	raw, _ := json.Marshal(arr)
	b, err := parsePrivateKey(string(raw))
	require.NoError(t, err)
	assert.Equal(t, byte(1), b[0])

	_, err = parsePrivateKey("abcd")
	assert.Error(t, err)
	_, err = parsePrivateKey("[1,2,3]")
	assert.Error(t, err)
	_, err = parsePrivateKey("zz")
	assert.Error(t, err)
}

func TestBridge_Request(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		b, _ := io.ReadAll(r.Body)
		var req rpcRequest
		_ = json.Unmarshal(b, &req)

		switch req.Method {
		case MethodGetBalance:
			if calls.Load() == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"status":"success","result":{"balance":"1500"}}}`))
		case MethodConnect:
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"status":"canceled"}}`))
		default:
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`))
		}
	}))
	defer srv.Close()

	br, err := NewBridge(BridgeConfig{URL: srv.URL, MaxRetries: 2, RetryBackoff: time.Millisecond})
	require.NoError(t, err)
	c := NewClient(br)

	bal, err := c.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1500", bal.Balance)
	assert.Equal(t, int32(2), calls.Load())

	_, err = c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrConnectionRejected)

	res, err := br.Request(context.Background(), "spark_unknown", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "method not found", res.Error.Message)
}

func TestBridge_Unreachable(t *testing.T) {
	br, err := NewBridge(BridgeConfig{URL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	_, err = NewClient(br).ExecuteSwap(context.Background(), ExecuteSwapRequest{})
	assert.ErrorIs(t, err, ErrWalletNotFound)
}
