// Package wallet talks to the user's Spark wallet through a method-keyed
// request/response interface. Every response is decoded into a tagged
// Response before any caller sees it.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Wallet methods
const (
	MethodConnect     = "spark_connect"
	MethodGetBalance  = "spark_getBalance"
	MethodSignMessage = "spark_signMessage"
	MethodExecuteSwap = "spark_flashnet_executeSwap"
)

type Status string

const (
	StatusSuccess  Status = "success"
	StatusCanceled Status = "canceled"
	StatusError    Status = "error"
)

var (
	ErrUserCanceled       = errors.New("Transaction cancelled by user")
	ErrConnectionRejected = errors.New("Connection rejected by user")
	ErrWalletNotFound     = errors.New("Xverse wallet not detected. Please install Xverse browser extension.")
	ErrWalletUnavailable  = errors.New("Wallet is not responding. Please unlock your wallet and try again.")
	ErrMalformedResponse  = errors.New("malformed wallet response")
	ErrUnsupportedMethod  = errors.New("wallet method not supported")
)

// Provider sends one request to a wallet. A non-nil error means the wallet
// could not be reached; wallet-side outcomes are carried in the Response.
type Provider interface {
	Request(ctx context.Context, method string, params any) (*Response, error)
}

// RPCError is the error payload of a failed wallet request.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("wallet error %d", e.Code)
	}
	return e.Message
}

// Response is the tagged result of a wallet request: exactly one of
// success (with Result), canceled, or error (with Error).
type Response struct {
	Status Status          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// Validate normalizes the response in place and rejects unknown shapes.
func (r *Response) Validate() error {
	switch r.Status {
	case StatusSuccess:
		if len(r.Result) == 0 || string(r.Result) == "null" {
			return fmt.Errorf("%w: success without result", ErrMalformedResponse)
		}
		r.Error = nil
	case StatusCanceled:
		r.Result = nil
		r.Error = nil
	case StatusError:
		r.Result = nil
		if r.Error == nil {
			r.Error = &RPCError{Message: "unknown wallet error"}
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrMalformedResponse, r.Status)
	}
	return nil
}

// Decode unmarshals the result of a successful response into out.
func (r *Response) Decode(out any) error {
	if r.Status != StatusSuccess {
		return fmt.Errorf("%w: status %s has no result", ErrMalformedResponse, r.Status)
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

// DecodeResponse parses and validates a raw wallet response.
func DecodeResponse(raw []byte) (*Response, error) {
	var r Response
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Success builds a success response around result.
func Success(result any) (*Response, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Response{Status: StatusSuccess, Result: data}, nil
}

func Canceled() *Response {
	return &Response{Status: StatusCanceled}
}

func Failure(code int, message string) *Response {
	return &Response{Status: StatusError, Error: &RPCError{Code: code, Message: message}}
}
