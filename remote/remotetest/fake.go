// Package remotetest provides an in-memory remote.Service for tests.
package remotetest

import (
	"context"
	"errors"
	"sync"

	"github.com/alfachiu/rollball-api-tcp/remote"
	"github.com/alfachiu/rollball-api-tcp/types"
)

var _ remote.Service = (*Fake)(nil)

// ErrFault is returned by a Fake for its configured failing call.
var ErrFault = errors.New("remote fault")

// AnswerExample is the documented ReadGetAnswer sample.
var AnswerExample = []string{"7", "3", "5", "2017/12/29 02:48:02 +08:00", "120.5", "88.2"}

// Invocation is one call received by a Fake.
type Invocation struct {
	Op   string
	Args []string
}

// Fake answers every operation with a fixed literal. When FailOp is set,
// the FailAt-th (0-based) invocation of that operation returns ErrFault.
type Fake struct {
	mu        sync.Mutex
	log       []Invocation
	counts    map[string]int
	Responses map[string][]string
	FailOp    string
	FailAt    int
}

func NewFake() *Fake {
	return &Fake{
		counts: map[string]int{},
		Responses: map[string][]string{
			types.OpHello:                {"Hello World"},
			types.OpVerify:               {"True"},
			types.OpReadStateOfEnable:    {"True", "False", "True", "False"},
			types.OpReadScriptRemain:     {"5", "3", "30", "8"},
			types.OpReadQueryLastOperate: {"100", "False"},
			types.OpReadFlowOfOperate:    {"True", "False", "False", "False", "False"},
			types.OpReadGetAnswer:        AnswerExample,
			types.OpWriteScriptRemain:    {"True"},
			types.OpWriteCommand:         {"True"},
		},
		FailAt: -1,
	}
}

// SetResponse replaces the literal returned for op.
func (f *Fake) SetResponse(op string, values ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[op] = values
}

// Invocations returns the calls received so far, in order.
func (f *Fake) Invocations() []Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Invocation(nil), f.log...)
}

func (f *Fake) do(ctx context.Context, op string, args ...string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, Invocation{Op: op, Args: append([]string(nil), args...)})
	n := f.counts[op]
	f.counts[op] = n + 1
	if op == f.FailOp && n == f.FailAt {
		return nil, ErrFault
	}
	return f.Responses[op], nil
}

func (f *Fake) one(ctx context.Context, op string, args ...string) (string, error) {
	v, err := f.do(ctx, op, args...)
	if err != nil {
		return "", err
	}
	if len(v) == 0 {
		return "", nil
	}
	return v[0], nil
}

func (f *Fake) Hello(ctx context.Context, name string) (string, error) {
	return f.one(ctx, types.OpHello, name)
}

func (f *Fake) Verify(ctx context.Context, args []string) (string, error) {
	return f.one(ctx, types.OpVerify, args...)
}

func (f *Fake) ReadStateOfEnable(ctx context.Context, arg string) ([]string, error) {
	return f.do(ctx, types.OpReadStateOfEnable, arg)
}

func (f *Fake) ReadScriptRemain(ctx context.Context, arg string) ([]string, error) {
	return f.do(ctx, types.OpReadScriptRemain, arg)
}

func (f *Fake) ReadQueryLastOperate(ctx context.Context, arg string) ([]string, error) {
	return f.do(ctx, types.OpReadQueryLastOperate, arg)
}

func (f *Fake) ReadFlowOfOperate(ctx context.Context, arg string) ([]string, error) {
	return f.do(ctx, types.OpReadFlowOfOperate, arg)
}

func (f *Fake) ReadGetAnswer(ctx context.Context, arg string) ([]string, error) {
	return f.do(ctx, types.OpReadGetAnswer, arg)
}

func (f *Fake) WriteScriptRemain(ctx context.Context, args []string) (string, error) {
	return f.one(ctx, types.OpWriteScriptRemain, args...)
}

func (f *Fake) WriteCommand(ctx context.Context, code string) (string, error) {
	return f.one(ctx, types.OpWriteCommand, code)
}
