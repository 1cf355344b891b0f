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

package decode

import (
	"strings"
	"testing"
)

// This fixture is adapted from the original relayer decoder's own unit
// test payload: same host, client IP, method, and transaction shape.
const validPayload = `
{
  "host": "westcoast004.relayers.aurora.dev",
  "timestamp": 1644082737464,
  "status": 200,
  "client": "197.251.253.48",
  "response_time": 8.747,
  "error": "",
  "token": "",
  "method": "eth_sendrawtransaction",
  "params": {
    "from": "0x0b845796ae42f5061c65717e3e29ff33495b1652",
    "sigver": "London",
    "aurora_result": "0x6fa5f6cd64bd7510a7c67e68f0bbe87a580d22a175b342d50eb9698800b9992a",
    "near_gas": 0,
    "to": "",
    "eth_gas": 6721975,
    "eth_nonce": 10,
    "eth_value": "0",
    "tx": "0xf904e90a80836691b780"
  }
}
`

func TestParse_ValidPayload(t *testing.T) {
	rec, err := Parse([]byte(validPayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Host != "westcoast004.relayers.aurora.dev" {
		t.Fatalf("unexpected host: %q", rec.Host)
	}
	if rec.Client.String() != "197.251.253.48" {
		t.Fatalf("unexpected client: %v", rec.Client)
	}
	if rec.Method != "eth_sendrawtransaction" {
		t.Fatalf("unexpected method: %q", rec.Method)
	}
	if rec.Error != nil {
		t.Fatalf("expected no error, got %v", rec.Error)
	}
	if rec.Token != "" {
		t.Fatalf("expected no token, got %q", rec.Token)
	}
	if rec.SignatureVersion != Eip1559 {
		t.Fatalf("expected London to map to Eip1559, got %v", rec.SignatureVersion)
	}
	if rec.To != nil {
		t.Fatalf("expected absent params.to, got %v", rec.To)
	}
	if got := strings.ToLower(rec.From.Hex()); got != "0x0b845796ae42f5061c65717e3e29ff33495b1652" {
		t.Fatalf("unexpected from address: %s", got)
	}
}

func TestParse_RejectsMalformedHost(t *testing.T) {
	payload := strings.Replace(validPayload, `"host": "westcoast004.relayers.aurora.dev"`, `"host": "://bad"`, 1)
	if _, err := Parse([]byte(payload)); err == nil {
		t.Fatalf("expected an error for a malformed host")
	}
}

func TestParse_RejectsInvalidClientIP(t *testing.T) {
	payload := strings.Replace(validPayload, `"197.251.253.48"`, `"not-an-ip"`, 1)
	if _, err := Parse([]byte(payload)); err == nil {
		t.Fatalf("expected an error for an invalid client IP")
	}
}

func TestParse_RejectsBadTokenLength(t *testing.T) {
	payload := strings.Replace(validPayload, `"token": ""`, `"token": "tooshort"`, 1)
	if _, err := Parse([]byte(payload)); err == nil {
		t.Fatalf("expected an error for a token of the wrong length")
	}
}

func TestParse_AcceptsTokenLength43And44(t *testing.T) {
	tok43 := strings.Repeat("a", 43)
	tok44 := strings.Repeat("a", 44)
	for _, tok := range []string{tok43, tok44} {
		payload := strings.Replace(validPayload, `"token": ""`, `"token": "`+tok+`"`, 1)
		rec, err := Parse([]byte(payload))
		if err != nil {
			t.Fatalf("unexpected error for token length %d: %v", len(tok), err)
		}
		if rec.Token != tok {
			t.Fatalf("expected token to round-trip, got %q", rec.Token)
		}
	}
}

func TestParse_RejectsInvalidEthValue(t *testing.T) {
	payload := strings.Replace(validPayload, `"eth_value": "0"`, `"eth_value": "not-a-number"`, 1)
	if _, err := Parse([]byte(payload)); err == nil {
		t.Fatalf("expected an error for a non-numeric eth_value")
	}
}

func TestParse_RejectsMalformedTxHex(t *testing.T) {
	payload := strings.Replace(validPayload, `"tx": "0xf904e90a80836691b780"`, `"tx": "0xnothex"`, 1)
	if _, err := Parse([]byte(payload)); err == nil {
		t.Fatalf("expected an error for malformed tx hex")
	}
}

func TestParse_RejectsWrongLengthAddress(t *testing.T) {
	payload := strings.Replace(validPayload, `"from": "0x0b845796ae42f5061c65717e3e29ff33495b1652"`, `"from": "0xabcd"`, 1)
	if _, err := Parse([]byte(payload)); err == nil {
		t.Fatalf("expected an error for a short address")
	}
}

func TestParse_RejectsUnknownSignatureVersion(t *testing.T) {
	payload := strings.Replace(validPayload, `"sigver": "London"`, `"sigver": "Shanghai"`, 1)
	if _, err := Parse([]byte(payload)); err == nil {
		t.Fatalf("expected an error for an unknown sigver")
	}
}

func TestClassifyError_IncorrectNonce(t *testing.T) {
	rec := mustParseWithError(t, "ERR_INCORRECT_NONCE")
	if rec.Error == nil {
		t.Fatalf("expected a classified error")
	}
}

func TestClassifyError_RelayerInternalPatternTakesPrecedence(t *testing.T) {
	raw := "httpsgithub.comaurora-is-nearaurora-relayerissues/123: boom"
	rec := mustParseWithError(t, raw)
	if rec.Error == nil {
		t.Fatalf("expected a classified error")
	}
	if rec.Error.Message != raw {
		t.Fatalf("expected the relayer error to preserve the original string, got %q", rec.Error.Message)
	}
}

func TestClassifyError_UnknownStringIsRevert(t *testing.T) {
	rec := mustParseWithError(t, "execution reverted: custom message")
	if rec.Error == nil || rec.Error.Message != "execution reverted: custom message" {
		t.Fatalf("expected an open-ended revert, got %v", rec.Error)
	}
}

func mustParseWithError(t *testing.T, errStr string) *Record {
	t.Helper()
	payload := strings.Replace(validPayload, `"error": ""`, `"error": "`+errStr+`"`, 1)
	rec, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec
}

func TestToMessage_ProjectsConsultedFieldsOnly(t *testing.T) {
	rec, err := Parse([]byte(validPayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := rec.ToMessage()
	if msg.ClientIP != "197.251.253.48" {
		t.Fatalf("unexpected ClientIP: %q", msg.ClientIP)
	}
	if msg.SenderAddress != "0x0b845796ae42f5061c65717e3e29ff33495b1652" {
		t.Fatalf("unexpected SenderAddress: %q", msg.SenderAddress)
	}
}
