// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mq

import (
	"github.com/enclavenet/enclave/builtin/store"
	"github.com/enclavenet/enclave/log"
)

var logger = log.WithContext("pkg", "mq")

var (
	slotEgressSeq  = store.Slot("egress-seq")
	slotIngressSeq = store.Slot("ingress-seq")
)

// Queue publishes outbound messages, assigning per-sender sequence numbers.
type Queue struct {
	egress *store.Mapping[Origin, uint64]
	outbox *Outbox
}

func NewQueue(ctx *store.Context, outbox *Outbox) *Queue {
	return &Queue{
		egress: store.NewMapping[Origin, uint64](ctx, slotEgressSeq),
		outbox: outbox,
	}
}

// Push encodes payload and appends it to the outbox.
func (q *Queue) Push(sender Origin, topic Topic, payload any) error {
	msg, err := NewMessage(sender, topic, payload)
	if err != nil {
		return err
	}
	seq, err := q.egress.Get(sender)
	if err != nil {
		return err
	}
	if err := q.egress.Set(sender, seq+1); err != nil {
		return err
	}
	msg.Sequence = seq
	q.outbox.append(msg)
	logger.Trace("message pushed", "sender", sender, "topic", topic, "seq", seq)
	return nil
}

// EgressSequence returns the sequence the next message of sender will carry.
func (q *Queue) EgressSequence(sender Origin) (uint64, error) {
	return q.egress.Get(sender)
}

// Handler consumes a routed message.
type Handler func(msg Message) error

// Router dispatches inbound messages by topic.
type Router struct {
	ingress  *store.Mapping[Origin, uint64]
	handlers map[Topic]Handler
}

func NewRouter(ctx *store.Context) *Router {
	return &Router{
		ingress:  store.NewMapping[Origin, uint64](ctx, slotIngressSeq),
		handlers: make(map[Topic]Handler),
	}
}

// Handle registers h for topic, replacing any previous handler.
func (r *Router) Handle(topic Topic, h Handler) {
	r.handlers[topic] = h
}

// Dispatch checks the sequence of msg and passes it to the handler of its topic.
// Messages of unknown topics are consumed without effect.
func (r *Router) Dispatch(msg Message) error {
	expected, err := r.ingress.Get(msg.Sender)
	if err != nil {
		return err
	}
	if msg.Sequence != expected {
		return ErrBadSequence
	}
	if err := r.ingress.Set(msg.Sender, expected+1); err != nil {
		return err
	}

	h, ok := r.handlers[msg.Destination]
	if !ok {
		logger.Debug("no handler for topic", "topic", msg.Destination, "sender", msg.Sender)
		return nil
	}
	return h(msg)
}

// IngressSequence returns the sequence expected for the next message of sender.
func (r *Router) IngressSequence(sender Origin) (uint64, error) {
	return r.ingress.Get(sender)
}
