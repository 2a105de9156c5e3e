// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"github.com/enclavenet/enclave/builtin/mq"
	"github.com/enclavenet/enclave/builtin/reverts"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/xenv"
)

// Receipt represents the result of a call, a delivered message or a block finalization.
type Receipt struct {
	ID   enclave.Bytes32
	Name string
	// Reverted is set when the unit was rolled back. Events and Messages are then empty.
	Reverted bool
	// Reason is the name of the revert error.
	Reason string
	// events emitted
	Events []xenv.Event
	// messages published to the outbox
	Messages []mq.Message
}

// Revert turns the receipt into a reverted one caused by err.
func (r *Receipt) Revert(err error) {
	r.Reverted = true
	r.Reason = reverts.NameOf(err)
	if r.Reason == "" {
		r.Reason = err.Error()
	}
	r.Events = nil
	r.Messages = nil
}

// Receipts slice of receipts.
type Receipts []*Receipt

// Reverted counts the reverted receipts.
func (rs Receipts) Reverted() (n int) {
	for _, r := range rs {
		if r.Reverted {
			n++
		}
	}
	return
}

// EventCount counts events by name.
func (rs Receipts) EventCount() map[string]int {
	counts := make(map[string]int)
	for _, r := range rs {
		for _, ev := range r.Events {
			counts[ev.EventName()]++
		}
	}
	return counts
}
