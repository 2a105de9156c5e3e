// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package mq carries messages between builtins and off-chain parties. Outbound messages are
// fire and forget; inbound messages are routed by topic after a per-sender sequence check.
package mq

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/enclavenet/enclave/builtin/reverts"
	"github.com/enclavenet/enclave/enclave"
)

var (
	ErrInvalidMessage = reverts.New("InvalidMessage")
	ErrBadSequence    = reverts.New("BadSequence")
)

// OriginKind classifies message senders.
type OriginKind uint8

const (
	KindModule OriginKind = iota
	KindGatekeeper
	KindWorker
	KindAccount
)

func (k OriginKind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindGatekeeper:
		return "gatekeeper"
	case KindWorker:
		return "worker"
	case KindAccount:
		return "account"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Origin identifies the sender of a message.
type Origin struct {
	Kind OriginKind
	ID   []byte
}

// GatekeeperOrigin is the single trusted origin of mining updates.
func GatekeeperOrigin() Origin {
	return Origin{Kind: KindGatekeeper}
}

func WorkerOrigin(pubkey enclave.WorkerPubkey) Origin {
	return Origin{Kind: KindWorker, ID: pubkey.Bytes()}
}

func ModuleOrigin(name string) Origin {
	return Origin{Kind: KindModule, ID: []byte(name)}
}

func AccountOrigin(addr enclave.Address) Origin {
	return Origin{Kind: KindAccount, ID: addr.Bytes()}
}

// IsGatekeeper reports whether o is the gatekeeper.
func (o Origin) IsGatekeeper() bool {
	return o.Kind == KindGatekeeper
}

// Bytes implements the storage key interface.
func (o Origin) Bytes() []byte {
	return append([]byte{byte(o.Kind)}, o.ID...)
}

func (o Origin) String() string {
	switch o.Kind {
	case KindModule:
		return "module:" + string(o.ID)
	case KindGatekeeper:
		return "gatekeeper"
	default:
		return fmt.Sprintf("%v:%x", o.Kind, o.ID)
	}
}

// Topic is the destination path of a message.
type Topic string

// Message is a sequenced, rlp encoded payload.
type Message struct {
	Sender      Origin
	Destination Topic
	Sequence    uint64
	Payload     []byte
}

// NewMessage encodes payload into a message. The sequence is assigned on push or by the sender.
func NewMessage(sender Origin, topic Topic, payload any) (Message, error) {
	data, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return Message{}, errors.Wrap(err, "encode message payload")
	}
	return Message{Sender: sender, Destination: topic, Payload: data}, nil
}

// Decode decodes the payload of msg into v.
func Decode(msg Message, v any) error {
	if err := rlp.DecodeBytes(msg.Payload, v); err != nil {
		return errors.WithMessage(ErrInvalidMessage, err.Error())
	}
	return nil
}
