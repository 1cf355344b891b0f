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

// Package bucket defines the identity model shared by every leaky-bucket
// counter in the banhammer engine: the closed set of principal kinds a
// counter can be keyed on, the closed set of misbehavior error kinds, and
// the composite key formed from the two plus a principal value.
package bucket

import "fmt"

// PrincipalKind identifies what kind of value a bucket is keyed on.
type PrincipalKind uint8

const (
	// IP keys a bucket on the client's source IP address.
	IP PrincipalKind = iota
	// Address keys a bucket on the EVM sender address of the transaction.
	Address
	// Token keys a bucket on an opaque API token string.
	Token
)

func (k PrincipalKind) String() string {
	switch k {
	case IP:
		return "ip"
	case Address:
		return "address"
	case Token:
		return "token"
	default:
		return fmt.Sprintf("principal(%d)", uint8(k))
	}
}

// ErrorKindTag identifies which misbehavior class a bucket tracks.
type ErrorKindTag uint8

const (
	// IncorrectNonce covers both ERR_INCORRECT_NONCE and
	// ERR_INVALID_ECDSA_SIGNATURE relayer errors.
	IncorrectNonce ErrorKindTag = iota
	// MaxGas covers the relayer's maximum-gas-per-contract rejection.
	MaxGas
	// Reverts covers EVM execution reverts.
	Reverts
	// UsedExcessiveGas is the aggregate NEAR-gas-spend bucket maintained
	// for every message regardless of its error classification.
	UsedExcessiveGas
	// Custom is a reserved, operator-provisioned error kind. The decoder
	// never produces it; it exists so a bucket configuration can be
	// pre-provisioned for a future decoder extension without an engine
	// code change.
	Custom
)

func (t ErrorKindTag) String() string {
	switch t {
	case IncorrectNonce:
		return "incorrect_nonce"
	case MaxGas:
		return "max_gas"
	case Reverts:
		return "reverts"
	case UsedExcessiveGas:
		return "used_excessive_gas"
	case Custom:
		return "custom"
	default:
		return fmt.Sprintf("error(%d)", uint8(t))
	}
}

// ErrorKind is an error classification, with an associated tag string for
// the Custom variant.
type ErrorKind struct {
	Tag       ErrorKindTag
	CustomTag string
}

// NewErrorKind constructs a non-Custom error kind.
func NewErrorKind(tag ErrorKindTag) ErrorKind {
	return ErrorKind{Tag: tag}
}

// NewCustomErrorKind constructs a Custom(tag) error kind.
func NewCustomErrorKind(tag string) ErrorKind {
	return ErrorKind{Tag: Custom, CustomTag: tag}
}

func (e ErrorKind) String() string {
	if e.Tag == Custom {
		return fmt.Sprintf("custom(%s)", e.CustomTag)
	}
	return e.Tag.String()
}

// Key is the composite identity of a single leaky bucket: a principal kind,
// the concrete value of that principal, and the error kind it tracks.
// Key is comparable and safe to use as a map key.
type Key struct {
	Kind  PrincipalKind
	Value string
	Error ErrorKind
}

// NewKey constructs a bucket key. value is the principal's canonical string
// form (a dotted/colon IP, a 0x-prefixed lowercase hex address, or the raw
// token string).
func NewKey(kind PrincipalKind, value string, errKind ErrorKind) Key {
	return Key{Kind: kind, Value: value, Error: errKind}
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Kind, k.Value, k.Error)
}
