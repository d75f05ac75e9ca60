// Package script drives the device when the server runs in passive script mode.
package script

import (
	"sync"
	"time"

	"github.com/alfachiu/rollball-api-tcp/poll"
	"github.com/alfachiu/rollball-api-tcp/tool"
	"github.com/alfachiu/rollball-api-tcp/types"
)

// Passive picks the WriteCommand code of each cycle from the flags read
// earlier in the same cycle:
//
//	ready, not rolling, for DropDelay   -> drop
//	complete with error                 -> force pickup
//	complete                            -> pickup
//	anything else                       -> idle
//
// A drop is sent once per ready phase and a pickup once per complete
// phase. The flags must move on before the same command goes out again.
//
// Nothing is sent besides the idle code unless the server reports passive
// mode with an enabled, healthy device that is not busy.
type Passive struct {
	DropDelay time.Duration
	Idle      types.Command
	Now       func() time.Time

	mu         sync.Mutex
	readySince time.Time
	dropped    bool
	pickedUp   bool
	last       types.Command
}

func NewPassive(dropDelay time.Duration) *Passive {
	return &Passive{DropDelay: dropDelay, Idle: types.CommandNone, Now: time.Now}
}

func (p *Passive) Command(calls []poll.Call) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	cmd := p.decide(calls)
	if cmd != p.last {
		tool.DefaultLogger.Info("Passive script command", "command", cmd.String(), "code", string(cmd))
		p.last = cmd
	}
	return string(cmd)
}

func (p *Passive) decide(calls []poll.Call) types.Command {
	state, ok := parse(calls, types.OpReadStateOfEnable, types.ParseStateOfEnable)
	if !ok || !state.PassiveMode || !state.DeviceEnabled || state.DeviceError {
		p.readySince = time.Time{}
		p.dropped = false
		p.pickedUp = false
		return p.Idle
	}
	last, ok := parse(calls, types.OpReadQueryLastOperate, types.ParseLastOperate)
	if !ok || last.Busy {
		return p.Idle
	}
	flow, ok := parse(calls, types.OpReadFlowOfOperate, types.ParseFlowOfOperate)
	if !ok {
		return p.Idle
	}

	if !flow.Complete {
		p.pickedUp = false
	}
	if !flow.Ready || flow.Rolling {
		p.readySince = time.Time{}
		p.dropped = false
	}

	switch {
	case flow.Complete:
		p.readySince = time.Time{}
		if p.pickedUp {
			return p.Idle
		}
		p.pickedUp = true
		if flow.Error {
			return types.CommandPickupForce
		}
		return types.CommandPickup
	case flow.Ready && !flow.Rolling:
		if p.dropped {
			return p.Idle
		}
		now := p.Now()
		if p.readySince.IsZero() {
			p.readySince = now
		}
		if now.Sub(p.readySince) < p.DropDelay {
			return p.Idle
		}
		p.dropped = true
		return types.CommandDrop
	default:
		return p.Idle
	}
}

func parse[T any](calls []poll.Call, op string, fn func([]string) (T, error)) (T, bool) {
	var zero T
	values, ok := poll.Lookup(calls, op)
	if !ok {
		return zero, false
	}
	v, err := fn(values)
	if err != nil {
		tool.DefaultLogger.Debugf("Passive script ignores %s: %v", op, err)
		return zero, false
	}
	return v, true
}
