package poll

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfachiu/rollball-api-tcp/remote/remotetest"
	"github.com/alfachiu/rollball-api-tcp/tool"
	"github.com/alfachiu/rollball-api-tcp/types"
)

var answerExample = remotetest.AnswerExample

type callLog struct {
	mu     sync.Mutex
	begins []int
	calls  []Call
}

func (l *callLog) Begin(iteration int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.begins = append(l.begins, iteration)
}

func (l *callLog) Record(call Call) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

type hookFunc func(ctx context.Context, cycle Cycle)

func (f hookFunc) AfterCycle(ctx context.Context, cycle Cycle) { f(ctx, cycle) }

var verifyArgs = []string{"114.35.45.13", "admin@52farfar.com", "name", "company", "notes"}

func TestOperationsStableOrder(t *testing.T) {
	p := New(remotetest.NewFake(), Options{})
	ops := p.Operations()
	require.Len(t, ops, len(types.PollOrder))
	for i, op := range ops {
		assert.Equal(t, types.PollOrder[i], op.Name)
	}
}

func TestRunCycleArgumentShapesAndResults(t *testing.T) {
	svc := remotetest.NewFake()
	rec := &callLog{}
	p := New(svc, Options{Hello: "World", Verify: verifyArgs, Recorder: rec})

	cycle, err := p.RunCycle(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, cycle.Calls, 8)

	wantArgs := map[string][]string{
		types.OpHello:                {"World"},
		types.OpVerify:               verifyArgs,
		types.OpReadStateOfEnable:    {""},
		types.OpReadScriptRemain:     {""},
		types.OpReadQueryLastOperate: {""},
		types.OpReadFlowOfOperate:    {""},
		types.OpReadGetAnswer:        {""},
		types.OpWriteCommand:         {"0"},
	}
	for i, inv := range svc.Invocations() {
		assert.Equal(t, types.PollOrder[i], inv.Op)
		assert.Equal(t, wantArgs[inv.Op], inv.Args, inv.Op)
	}
	for _, call := range cycle.Calls {
		assert.Equal(t, svc.Responses[call.Operation], call.Values, call.Operation)
		assert.Equal(t, wantArgs[call.Operation], call.Args, call.Operation)
		assert.NoError(t, call.Err)
	}
	assert.Equal(t, []int{0}, rec.begins)
	assert.Equal(t, cycle.Calls, rec.calls)
}

func TestNewDefaultsToDemoArguments(t *testing.T) {
	svc := remotetest.NewFake()
	_, err := New(svc, Options{}).RunCycle(context.Background(), 0)
	require.NoError(t, err)

	invs := svc.Invocations()
	assert.Equal(t, []string{"World"}, invs[0].Args)
	assert.Equal(t, types.DefaultVerify(), invs[1].Args)
	assert.Equal(t, []string{"0"}, invs[7].Args)
}

func TestWriteCommandDispatchedLiterally(t *testing.T) {
	for _, code := range []string{"1", "2", "9"} {
		svc := remotetest.NewFake()
		p := New(svc, Options{Command: FixedCommand(code)})
		_, err := p.RunCycle(context.Background(), 0)
		require.NoError(t, err)

		invs := svc.Invocations()
		last := invs[len(invs)-1]
		assert.Equal(t, types.OpWriteCommand, last.Op)
		assert.Equal(t, []string{code}, last.Args)
	}
}

type priorCapture struct {
	prior []Call
}

func (c *priorCapture) Command(calls []Call) string {
	c.prior = append([]Call(nil), calls...)
	return "3"
}

func TestCommandSourceSeesEarlierCalls(t *testing.T) {
	src := &priorCapture{}
	p := New(remotetest.NewFake(), Options{Command: src})
	_, err := p.RunCycle(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, src.prior, 7)
	flow, ok := Lookup(src.prior, types.OpReadFlowOfOperate)
	require.True(t, ok)
	assert.Equal(t, []string{"True", "False", "False", "False", "False"}, flow)
}

func TestRunInvokesFullCyclePerIteration(t *testing.T) {
	svc := remotetest.NewFake()
	cycles := 0
	p := New(svc, Options{
		Interval:   5 * time.Millisecond,
		Iterations: 3,
		Hooks:      []Hook{hookFunc(func(context.Context, Cycle) { cycles++ })},
	})
	require.NoError(t, p.Run(context.Background()))

	invs := svc.Invocations()
	require.Len(t, invs, 3*8)
	for i, inv := range invs {
		assert.Equal(t, types.PollOrder[i%8], inv.Op)
	}
	assert.Equal(t, 3, cycles)
}

func TestRunObservesInterval(t *testing.T) {
	const interval = 40 * time.Millisecond
	rec := &callLog{}
	p := New(remotetest.NewFake(), Options{Interval: interval, Iterations: 3, Recorder: rec})
	require.NoError(t, p.Run(context.Background()))

	require.Len(t, rec.calls, 24)
	for k := 1; k < 3; k++ {
		lastOfPrev := rec.calls[8*k-1].At
		firstOfNext := rec.calls[8*k].At
		assert.GreaterOrEqual(t, firstOfNext.Sub(lastOfPrev), interval)
		assert.GreaterOrEqual(t, rec.calls[8*k].At.Sub(rec.calls[8*(k-1)].At), interval)
	}
}

func TestFatalPolicyStopsAtFailingCall(t *testing.T) {
	svc := remotetest.NewFake()
	svc.FailOp = types.OpReadGetAnswer
	svc.FailAt = 1 // second iteration
	rec := &callLog{}
	p := New(svc, Options{Interval: time.Millisecond, Iterations: 3, Policy: PolicyFatal, Recorder: rec})

	err := p.Run(context.Background())
	require.Error(t, err)
	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, 1, callErr.Iteration)
	assert.Equal(t, types.OpReadGetAnswer, callErr.Operation)

	// 8 calls in the first cycle, 7 up to and including the failure
	assert.Len(t, svc.Invocations(), 15)
	last := rec.calls[len(rec.calls)-1]
	assert.Equal(t, "remote fault", last.Error)
}

func TestContinuePolicyKeepsPolling(t *testing.T) {
	svc := remotetest.NewFake()
	svc.FailOp = types.OpReadGetAnswer
	svc.FailAt = 1
	var cycles []Cycle
	p := New(svc, Options{
		Interval:   time.Millisecond,
		Iterations: 3,
		Policy:     PolicyContinue,
		Hooks:      []Hook{hookFunc(func(_ context.Context, c Cycle) { cycles = append(cycles, c) })},
	})

	require.NoError(t, p.Run(context.Background()))
	assert.Len(t, svc.Invocations(), 24)
	require.Len(t, cycles, 3)

	failed := cycles[1].Calls[6]
	assert.Equal(t, types.OpReadGetAnswer, failed.Operation)
	assert.Error(t, failed.Err)
	_, ok := cycles[1].Values(types.OpReadGetAnswer)
	assert.False(t, ok)
	// the command after the failure is still sent
	assert.Equal(t, types.OpWriteCommand, cycles[1].Calls[7].Operation)
	assert.NoError(t, cycles[1].Calls[7].Err)
	_, ok = cycles[2].Values(types.OpReadGetAnswer)
	assert.True(t, ok)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cycles := 0
	p := New(remotetest.NewFake(), Options{
		Interval:   time.Hour,
		Iterations: 0,
		Hooks: []Hook{hookFunc(func(context.Context, Cycle) {
			cycles++
			cancel()
		})},
	})

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancel")
	}
	assert.Equal(t, 1, cycles)
}

func TestConsoleTextSurfacesAnswerUnaltered(t *testing.T) {
	var buf bytes.Buffer
	p := New(remotetest.NewFake(), Options{Recorder: NewConsole(&buf, FormatText)})
	cycle, err := p.RunCycle(context.Background(), 0)
	require.NoError(t, err)

	answer, ok := cycle.Values(types.OpReadGetAnswer)
	require.True(t, ok)
	assert.Equal(t, answerExample, answer)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "0.\n"))
	assert.Contains(t, out, "Hello: Hello World\n")
	assert.Contains(t, out, "ReadStateOfEnable: True, False, True, False\n")
	assert.Contains(t, out, "ReadGetAnswer: 7, 3, 5, 2017/12/29 02:48:02 +08:00, 120.5, 88.2\n")
	assert.Contains(t, out, "WriteCommand: True\n")
}

func TestConsoleJSON(t *testing.T) {
	var buf bytes.Buffer
	p := New(remotetest.NewFake(), Options{Recorder: NewConsole(&buf, FormatJSON)})
	_, err := p.RunCycle(context.Background(), 4)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 8)
	var got struct {
		Iteration int      `json:"iteration"`
		Operation string   `json:"operation"`
		Values    []string `json:"values"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[6]), &got))
	assert.Equal(t, 4, got.Iteration)
	assert.Equal(t, types.OpReadGetAnswer, got.Operation)
	assert.Equal(t, answerExample, got.Values)
}

func TestConsoleTextReportsErrors(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, FormatText)
	c.Record(Call{Operation: types.OpVerify, Err: errors.New("remote fault")})
	assert.Equal(t, "Verify: error: remote fault\n", buf.String())
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestConsoleLogsWriteErrors(t *testing.T) {
	var logs bytes.Buffer
	tool.DefaultLogger.SetOutput(&logs)
	t.Cleanup(func() { tool.DefaultLogger.SetOutput(os.Stderr) })

	NewConsole(brokenWriter{}, FormatJSON).Record(Call{Operation: types.OpHello, Values: []string{"Hello World"}})
	assert.Contains(t, logs.String(), "Failed to write call Hello")
	assert.Contains(t, logs.String(), "disk full")

	logs.Reset()
	NewConsole(brokenWriter{}, FormatText).Record(Call{Operation: types.OpVerify, Values: []string{"True"}})
	assert.Contains(t, logs.String(), "Failed to write call Verify")
}
