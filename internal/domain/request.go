package domain

import (
	"encoding/json"
	"fmt"

	"go.uber.org/atomic"
)

const JSONRPCVersion = "2.0"

const (
	MethodSubscribeNewHeads       = "chain_subscribeNewHeads"
	MethodSubscribeJustifications = "grandpa_subscribeJustifications"
	MethodSystemHealth            = "system_health"
)

type RequestID uint64

// Request field order is the wire order: id, jsonrpc, method, params.
type Request struct {
	ID      RequestID `json:"id"`
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  []any     `json:"params"`
}

func NewRequest(id RequestID, method string, params ...any) Request {
	if params == nil {
		params = []any{}
	}

	return Request{
		ID:      id,
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  params,
	}
}

func (r Request) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode %s request: %w", r.Method, err)
	}

	return string(data), nil
}

// BuildRequest returns the canonical request text for method.
func BuildRequest(id RequestID, method string, params ...any) (string, error) {
	return NewRequest(id, method, params...).Encode()
}

// BootstrapMethods lists the subscriptions issued on every successful connect,
// in submission order.
func BootstrapMethods() []string {
	return []string{MethodSubscribeNewHeads, MethodSubscribeJustifications}
}

// RequestIDs hands out request ids for the whole process. The zero value starts
// at 1 and the sequence is never reset.
type RequestIDs struct {
	last atomic.Uint64
}

func (c *RequestIDs) Next() RequestID {
	return RequestID(c.last.Inc())
}

func (c *RequestIDs) Last() RequestID {
	return RequestID(c.last.Load())
}
