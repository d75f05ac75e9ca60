package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfachiu/rollball-api-tcp/poll"
	"github.com/alfachiu/rollball-api-tcp/remote/remotetest"
	"github.com/alfachiu/rollball-api-tcp/tool"
	"github.com/alfachiu/rollball-api-tcp/types"
)

func testConfig() tool.AppConfig {
	cfg := tool.DefaultConfig()
	cfg.Poll.Interval = 5 * time.Millisecond
	cfg.Poll.Iterations = 2
	cfg.Poll.WaitOnExit = false
	return cfg
}

func TestRunPollsConfiguredIterations(t *testing.T) {
	svc := remotetest.NewFake()
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), testConfig(), svc, &out))

	assert.Len(t, svc.Invocations(), 16)
	text := out.String()
	assert.True(t, strings.HasPrefix(text, "[TCP Client]\n0.\n"))
	assert.Contains(t, text, "\n1.\n")
	assert.Equal(t, 2, strings.Count(text, "ReadGetAnswer: 7, 3, 5, 2017/12/29 02:48:02 +08:00, 120.5, 88.2\n"))
	assert.NotContains(t, text, "Ending")
}

func TestRunFatalPolicy(t *testing.T) {
	svc := remotetest.NewFake()
	svc.FailOp = types.OpHello
	svc.FailAt = 0
	cfg := testConfig()
	cfg.Poll.OnError = tool.OnErrorFatal

	err := run(context.Background(), cfg, svc, &bytes.Buffer{})
	var callErr *poll.CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, types.OpHello, callErr.Operation)
	assert.Len(t, svc.Invocations(), 1)
}

func TestRunWaitsForCancelAfterPolling(t *testing.T) {
	cfg := testConfig()
	cfg.Poll.WaitOnExit = true
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var out bytes.Buffer
	svc := remotetest.NewFake()
	go func() { done <- run(ctx, cfg, svc, &out) }()

	require.Eventually(t, func() bool { return len(svc.Invocations()) == 16 }, 2*time.Second, 5*time.Millisecond)
	select {
	case <-done:
		t.Fatal("run returned before cancellation")
	case <-time.After(50 * time.Millisecond):
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestRunPassiveScriptDrivesCommands(t *testing.T) {
	svc := remotetest.NewFake()
	svc.SetResponse(types.OpReadStateOfEnable, "True", "False", "True", "True")
	svc.SetResponse(types.OpReadFlowOfOperate, "False", "False", "True", "True", "True")
	cfg := testConfig()
	cfg.Script.Passive = true

	require.NoError(t, run(context.Background(), cfg, svc, &bytes.Buffer{}))
	var codes []string
	for _, inv := range svc.Invocations() {
		if inv.Op == types.OpWriteCommand {
			codes = append(codes, inv.Args[0])
		}
	}
	assert.Equal(t, []string{"9", "0"}, codes)
}

func TestSendCommand(t *testing.T) {
	for _, code := range []string{"1", "2", "9"} {
		svc := remotetest.NewFake()
		var out bytes.Buffer
		require.NoError(t, sendCommand(context.Background(), svc, code, &out))
		invs := svc.Invocations()
		require.Len(t, invs, 1)
		assert.Equal(t, []string{code}, invs[0].Args)
		assert.Equal(t, "WriteCommand: True\n", out.String())
	}

	svc := remotetest.NewFake()
	assert.Error(t, sendCommand(context.Background(), svc, "5", &bytes.Buffer{}))
	assert.Empty(t, svc.Invocations())
}

func TestWriteScriptRemain(t *testing.T) {
	svc := remotetest.NewFake()
	var out bytes.Buffer
	require.NoError(t, writeScriptRemain(context.Background(), svc, "5, 3,30,8", &out))
	invs := svc.Invocations()
	require.Len(t, invs, 1)
	assert.Equal(t, types.OpWriteScriptRemain, invs[0].Op)
	assert.Equal(t, []string{"5", "3", "30", "8"}, invs[0].Args)

	assert.Error(t, writeScriptRemain(context.Background(), svc, "5,3", &bytes.Buffer{}))
}
