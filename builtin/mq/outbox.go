// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mq

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Outbox collects the messages published while executing a block.
type Outbox struct {
	msgs []Message
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) append(msg Message) {
	o.msgs = append(o.msgs, msg)
}

// Len returns the number of published messages.
func (o *Outbox) Len() int {
	return len(o.msgs)
}

// Truncate drops the messages published after the first n.
func (o *Outbox) Truncate(n int) {
	if n < len(o.msgs) {
		o.msgs = o.msgs[:n]
	}
}

// Messages returns the published messages in emission order.
func (o *Outbox) Messages() []Message {
	return append([]Message(nil), o.msgs...)
}

// ByTopic groups messages per topic. Topics keep the order of their first message.
func (o *Outbox) ByTopic() *orderedmap.OrderedMap[Topic, []Message] {
	om := orderedmap.New[Topic, []Message]()
	for _, msg := range o.msgs {
		existing, _ := om.Get(msg.Destination)
		om.Set(msg.Destination, append(existing, msg))
	}
	return om
}
