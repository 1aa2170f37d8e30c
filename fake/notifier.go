// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"context"
	"sync"

	"github.com/momentics/voicering/voice"
)

// State is one recorded NotifyState call.
type State struct {
	Kind voice.StateKind
	Data uint32
}

// Notifier records deliveries. Payloads are copied since the agent reuses them.
type Notifier struct {
	mu     sync.Mutex
	msgs   []voice.Message
	states []State
	MsgErr error
	// Entered, if set, gets a send as each NotifyMsg begins.
	Entered chan struct{}
	// Block, if set, is received from before each NotifyMsg returns.
	Block chan struct{}
}

func (n *Notifier) NotifyMsg(ctx context.Context, msg voice.Message) error {
	if n.Entered != nil {
		n.Entered <- struct{}{}
	}
	if n.Block != nil {
		select {
		case <-n.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.MsgErr != nil {
		return n.MsgErr
	}
	msg.Payload = append([]byte(nil), msg.Payload...)
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *Notifier) NotifyState(_ context.Context, kind voice.StateKind, data uint32) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states = append(n.states, State{Kind: kind, Data: data})
	return nil
}

// Messages returns the delivered messages in order.
func (n *Notifier) Messages() []voice.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]voice.Message(nil), n.msgs...)
}

// States returns the recorded state notifications in order.
func (n *Notifier) States() []State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]State(nil), n.states...)
}
