// Package poll runs the fixed cycle of remote calls against the RollBall server.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alfachiu/rollball-api-tcp/remote"
	"github.com/alfachiu/rollball-api-tcp/tool"
	"github.com/alfachiu/rollball-api-tcp/types"
)

// Policy decides what a failing remote call does to the loop.
type Policy string

const (
	PolicyContinue Policy = "continue" // log, record and carry on
	PolicyFatal    Policy = "fatal"    // stop the loop with a *CallError
)

// Call is one remote invocation and its unmodified result.
type Call struct {
	Iteration int       `json:"iteration"`
	Operation string    `json:"operation"`
	Args      []string  `json:"args"`
	Values    []string  `json:"values,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
	Err       error     `json:"-"`
}

// Cycle is one full pass over the operations.
type Cycle struct {
	Iteration int
	Calls     []Call
}

// Values returns the result of op if it succeeded in this cycle.
func (c Cycle) Values(op string) ([]string, bool) {
	return Lookup(c.Calls, op)
}

// Lookup finds the successful result of op among calls.
func Lookup(calls []Call, op string) ([]string, bool) {
	for _, call := range calls {
		if call.Operation == op && call.Err == nil {
			return call.Values, true
		}
	}
	return nil, false
}

// CallError reports the call that stopped a fatal-policy loop.
type CallError struct {
	Iteration int
	Operation string
	Err       error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("iteration %d: %s failed: %v", e.Iteration, e.Operation, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// CommandSource picks the WriteCommand code once the earlier calls of the
// cycle are known.
type CommandSource interface {
	Command(calls []Call) string
}

// FixedCommand always sends the same code.
type FixedCommand string

func (c FixedCommand) Command([]Call) string {
	return string(c)
}

// Recorder receives every call as it completes.
type Recorder interface {
	Begin(iteration int)
	Record(call Call)
}

// Hook runs after every completed cycle.
type Hook interface {
	AfterCycle(ctx context.Context, cycle Cycle)
}

// Options configures a Poller. Zero values fall back to the demo defaults,
// except Iterations.
type Options struct {
	Interval   time.Duration
	Iterations int // 0 polls until ctx is cancelled
	Policy     Policy
	Hello      string
	Verify     []string
	Command    CommandSource
	Recorder   Recorder
	Hooks      []Hook
}

// Operation is a named remote call with its argument shape.
type Operation struct {
	Name string
	Args func(prior []Call) []string
	Call func(ctx context.Context, svc remote.Service, args []string) ([]string, error)
}

func emptyArg([]Call) []string {
	return []string{""}
}

func single(v string, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	return []string{v}, nil
}

// readOperation builds a status read. Reads take one unused empty argument.
func readOperation(name string, fn func(remote.Service, context.Context, string) ([]string, error)) Operation {
	return Operation{
		Name: name,
		Args: emptyArg,
		Call: func(ctx context.Context, svc remote.Service, args []string) ([]string, error) {
			return fn(svc, ctx, args[0])
		},
	}
}

// Poller invokes the operations in order, one cycle per interval.
type Poller struct {
	svc  remote.Service
	opts Options
	ops  []Operation
}

func New(svc remote.Service, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 700 * time.Millisecond
	}
	if opts.Policy == "" {
		opts.Policy = PolicyContinue
	}
	if opts.Hello == "" {
		opts.Hello = "World"
	}
	if len(opts.Verify) == 0 {
		opts.Verify = types.DefaultVerify()
	}
	if opts.Command == nil {
		opts.Command = FixedCommand(types.CommandNone)
	}
	p := &Poller{svc: svc, opts: opts}
	p.ops = p.buildOperations()
	return p
}

// Operations returns the polled operations in their stable order.
func (p *Poller) Operations() []Operation {
	return p.ops
}

func (p *Poller) buildOperations() []Operation {
	hello := p.opts.Hello
	verify := append([]string(nil), p.opts.Verify...)
	return []Operation{
		{
			Name: types.OpHello,
			Args: func([]Call) []string { return []string{hello} },
			Call: func(ctx context.Context, svc remote.Service, args []string) ([]string, error) {
				return single(svc.Hello(ctx, args[0]))
			},
		},
		{
			Name: types.OpVerify,
			Args: func([]Call) []string { return verify },
			Call: func(ctx context.Context, svc remote.Service, args []string) ([]string, error) {
				return single(svc.Verify(ctx, args))
			},
		},
		readOperation(types.OpReadStateOfEnable, remote.Service.ReadStateOfEnable),
		readOperation(types.OpReadScriptRemain, remote.Service.ReadScriptRemain),
		readOperation(types.OpReadQueryLastOperate, remote.Service.ReadQueryLastOperate),
		readOperation(types.OpReadFlowOfOperate, remote.Service.ReadFlowOfOperate),
		readOperation(types.OpReadGetAnswer, remote.Service.ReadGetAnswer),
		{
			Name: types.OpWriteCommand,
			Args: func(prior []Call) []string { return []string{p.opts.Command.Command(prior)} },
			Call: func(ctx context.Context, svc remote.Service, args []string) ([]string, error) {
				return single(svc.WriteCommand(ctx, args[0]))
			},
		},
	}
}

// Run polls until the configured iterations are done or ctx is cancelled.
// Cancellation is a clean stop and returns nil. Under PolicyFatal the first
// failing call ends the loop with a *CallError.
func (p *Poller) Run(ctx context.Context) error {
	timer := time.NewTimer(p.opts.Interval)
	defer timer.Stop()

	for i := 0; p.opts.Iterations == 0 || i < p.opts.Iterations; i++ {
		cycle, err := p.RunCycle(ctx, i)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				tool.DefaultLogger.Info("Polling cancelled", "iteration", i)
				return nil
			}
			return err
		}
		for _, h := range p.opts.Hooks {
			h.AfterCycle(ctx, cycle)
		}
		if p.opts.Iterations != 0 && i == p.opts.Iterations-1 {
			break
		}

		timer.Reset(p.opts.Interval)
		select {
		case <-ctx.Done():
			tool.DefaultLogger.Info("Polling cancelled", "iteration", i)
			return nil
		case <-timer.C:
		}
	}
	tool.DefaultLogger.Info("Polling finished", "iterations", p.opts.Iterations)
	return nil
}

// RunCycle performs one pass over the operations.
func (p *Poller) RunCycle(ctx context.Context, iteration int) (Cycle, error) {
	cycle := Cycle{Iteration: iteration, Calls: make([]Call, 0, len(p.ops))}
	if p.opts.Recorder != nil {
		p.opts.Recorder.Begin(iteration)
	}
	for _, op := range p.ops {
		if err := ctx.Err(); err != nil {
			return cycle, err
		}
		args := op.Args(cycle.Calls)
		values, err := op.Call(ctx, p.svc, args)
		call := Call{
			Iteration: iteration,
			Operation: op.Name,
			Args:      args,
			Values:    values,
			At:        time.Now(),
			Err:       err,
		}
		if err != nil {
			if ctx.Err() != nil {
				return cycle, ctx.Err()
			}
			call.Error = err.Error()
		}
		cycle.Calls = append(cycle.Calls, call)
		if p.opts.Recorder != nil {
			p.opts.Recorder.Record(call)
		}
		if err != nil {
			if p.opts.Policy == PolicyFatal {
				return cycle, &CallError{Iteration: iteration, Operation: op.Name, Err: err}
			}
			tool.DefaultLogger.Warn("Remote call failed", "iteration", iteration, "operation", op.Name, "err", err)
		}
	}
	return cycle, nil
}
