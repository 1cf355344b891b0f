// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package decode parses one relayer observation record into the normalized
// fields the banhammer engine consults, and validates (without consulting)
// every other field in the wire schema. Any malformed field drops the
// whole record - this is a pure function at the boundary with no retries
// and no I/O.
package decode

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aurora-is-near/banhammer/internal/banhammer/engine"
)

// relayerErrPattern is the exact substring identifying the relayer's own
// issue tracker, taken from the original decoder. An error string
// containing it is never attributed to the client that triggered it.
const relayerErrPattern = "httpsgithub.comaurora-is-nearaurora-relayerissues"

// wireParams mirrors the "params" object of the input schema.
type wireParams struct {
	From         string `json:"from"`
	SignatureVer string `json:"sigver"`
	AuroraResult string `json:"aurora_result"`
	NearGas      uint64 `json:"near_gas"`
	To           string `json:"to"`
	EthGas       uint64 `json:"eth_gas"`
	EthNonce     uint64 `json:"eth_nonce"`
	EthValue     string `json:"eth_value"`
	Tx           string `json:"tx"`
}

// wireMessage mirrors the full input record schema.
type wireMessage struct {
	Host         string     `json:"host"`
	Timestamp    int64      `json:"timestamp"`
	Status       int        `json:"status"`
	Client       string     `json:"client"`
	ResponseTime float32    `json:"response_time"`
	Error        string     `json:"error"`
	Token        string     `json:"token"`
	Method       string     `json:"method"`
	Params       wireParams `json:"params"`
}

// SignatureVersion is the EVM transaction signature encoding.
type SignatureVersion uint8

const (
	Legacy SignatureVersion = iota
	Eip2930
	Eip1559
)

// Record is the fully parsed, schema-validated relayer observation. Only
// a subset of its fields are consulted by the engine; the rest exist so
// that malformed values anywhere in the record still drop it, per the
// decoder's documented contract.
type Record struct {
	Host             string
	Timestamp        int64
	Status           int
	Client           net.IP
	ResponseTime     float32
	Error            *engine.ErrorVariant
	Token            string // empty = absent
	Method           string
	From             common.Address
	SignatureVersion SignatureVersion
	AuroraResult     []byte // nil = absent
	To               *common.Address
	EthGas           uint64
	EthNonce         uint64
	EthValue         *big.Int
	Tx               []byte
}

// Parse decodes and validates one JSON relayer observation record. A
// malformed field anywhere in the schema causes the record to be dropped
// (nil, error); callers should log and continue, never propagate.
func Parse(raw []byte) (*Record, error) {
	var wire wireMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode: invalid json: %w", err)
	}

	rec := &Record{
		Host:         wire.Host,
		Timestamp:    wire.Timestamp,
		Status:       wire.Status,
		ResponseTime: wire.ResponseTime,
		Method:       wire.Method,
		EthGas:       wire.Params.EthGas,
		EthNonce:     wire.Params.EthNonce,
	}

	if wire.Host != "" {
		if _, err := url.Parse(wire.Host); err != nil {
			return nil, fmt.Errorf("decode: invalid host %q: %w", wire.Host, err)
		}
	}

	if http.StatusText(wire.Status) == "" {
		return nil, fmt.Errorf("decode: invalid status code %d", wire.Status)
	}

	ip := net.ParseIP(wire.Client)
	if ip == nil {
		return nil, fmt.Errorf("decode: invalid client IP %q", wire.Client)
	}
	rec.Client = ip

	if wire.Token != "" {
		if len(wire.Token) != 43 && len(wire.Token) != 44 {
			return nil, fmt.Errorf("decode: token must be 43 or 44 characters, got %d", len(wire.Token))
		}
		rec.Token = wire.Token
	}

	if wire.Error != "" {
		ev := classifyError(wire.Error)
		rec.Error = &ev
	}

	from, err := parseAddress(wire.Params.From)
	if err != nil {
		return nil, fmt.Errorf("decode: invalid params.from: %w", err)
	}
	if from == nil {
		return nil, fmt.Errorf("decode: params.from must not be empty")
	}
	rec.From = *from

	sigver, err := parseSignatureVersion(wire.Params.SignatureVer)
	if err != nil {
		return nil, fmt.Errorf("decode: invalid params.sigver: %w", err)
	}
	rec.SignatureVersion = sigver

	if wire.Params.AuroraResult != "" {
		b, err := hexDecode(wire.Params.AuroraResult)
		if err != nil {
			return nil, fmt.Errorf("decode: invalid params.aurora_result: %w", err)
		}
		rec.AuroraResult = b
	}

	to, err := parseAddress(wire.Params.To)
	if err != nil {
		return nil, fmt.Errorf("decode: invalid params.to: %w", err)
	}
	rec.To = to

	value, ok := new(big.Int).SetString(wire.Params.EthValue, 10)
	if !ok {
		return nil, fmt.Errorf("decode: invalid params.eth_value %q", wire.Params.EthValue)
	}
	rec.EthValue = value

	tx, err := hexDecode(wire.Params.Tx)
	if err != nil {
		return nil, fmt.Errorf("decode: invalid params.tx: %w", err)
	}
	rec.Tx = tx

	return rec, nil
}

func hexDecode(s string) ([]byte, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if trimmed == "" {
		return []byte{}, nil
	}
	if len(trimmed)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string")
	}
	if !isHex(trimmed) {
		return nil, fmt.Errorf("invalid hex string")
	}
	return common.FromHex(s), nil
}

func parseAddress(s string) (*common.Address, error) {
	if s == "" {
		return nil, nil
	}
	trimmed := strings.TrimPrefix(s, "0x")
	if len(trimmed) != 40 {
		return nil, fmt.Errorf("address must be 20 bytes hex, got %d hex chars", len(trimmed))
	}
	if !isHex(trimmed) {
		return nil, fmt.Errorf("address is not valid hex")
	}
	addr := common.HexToAddress(s)
	return &addr, nil
}

func isHex(s string) bool {
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

func parseSignatureVersion(s string) (SignatureVersion, error) {
	switch s {
	case "Berlin":
		return Eip2930, nil
	case "London":
		return Eip1559, nil
	default:
		return 0, fmt.Errorf("unknown signature version %q", s)
	}
}

// classifyError maps a raw "error" string onto the engine's closed error
// taxonomy, in the exact precedence order the original decoder uses:
// relayer-issue-tracker substring match first, then the two known
// exact-match strings, then an open-ended revert.
func classifyError(raw string) engine.ErrorVariant {
	if strings.Contains(raw, relayerErrPattern) {
		return engine.NewRelayer(raw)
	}
	switch raw {
	case "ERR_INCORRECT_NONCE":
		return engine.NewErrorVariant(engine.ErrIncorrectNonce)
	case "Exceeded the maximum amount of gas allowed to burn per contract.":
		return engine.NewErrorVariant(engine.ErrMaxGas)
	case "ERR_INVALID_ECDSA_SIGNATURE":
		return engine.NewErrorVariant(engine.ErrInvalidECDSA)
	default:
		return engine.NewRevert(raw)
	}
}

// ToMessage projects a fully parsed Record down to the fields the engine's
// ReadInput consults.
func (r *Record) ToMessage() engine.Message {
	return engine.Message{
		ClientIP:      r.Client.String(),
		SenderAddress: strings.ToLower(r.From.Hex()),
		Token:         r.Token,
		Error:         r.Error,
	}
}
