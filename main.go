package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/alfachiu/rollball-api-tcp/api"
	"github.com/alfachiu/rollball-api-tcp/notify"
	"github.com/alfachiu/rollball-api-tcp/poll"
	"github.com/alfachiu/rollball-api-tcp/remote"
	"github.com/alfachiu/rollball-api-tcp/script"
	"github.com/alfachiu/rollball-api-tcp/share"
	"github.com/alfachiu/rollball-api-tcp/tool"
	"github.com/alfachiu/rollball-api-tcp/types"
)

func buildPoller(cfg tool.AppConfig, svc remote.Service, out io.Writer, store *share.Store) *poll.Poller {
	hooks := []poll.Hook{store}
	if cfg.Notify.URL != "" {
		hooks = append(hooks, notify.NewAnswerNotifier(notify.Options{
			URL:     cfg.Notify.URL,
			Timeout: cfg.Notify.Timeout,
		}, share.DefaultTTL))
	}

	var command poll.CommandSource = poll.FixedCommand(cfg.Poll.Command)
	if cfg.Script.Passive {
		driver := script.NewPassive(cfg.Script.DropDelay)
		driver.Idle = types.Command(cfg.Poll.Command)
		command = driver
		tool.DefaultLogger.Info("Passive script driver enabled", "drop_delay", cfg.Script.DropDelay)
	}

	return poll.New(svc, poll.Options{
		Interval:   cfg.Poll.Interval,
		Iterations: cfg.Poll.Iterations,
		Policy:     poll.Policy(cfg.Poll.OnError),
		Hello:      cfg.Poll.Hello,
		Verify:     cfg.Poll.Verify,
		Command:    command,
		Recorder:   poll.NewConsole(out, cfg.Poll.Format),
		Hooks:      hooks,
	})
}

// run polls and, when enabled, serves the status API until polling ends
// or ctx is cancelled. With WaitOnExit it holds after the last iteration
// until ctx is cancelled.
func run(ctx context.Context, cfg tool.AppConfig, svc remote.Service, out io.Writer) error {
	store := share.NewStore(share.DefaultTTL)
	poller := buildPoller(cfg, svc, out, store)
	tool.DefaultLogger.Debug("Poll run started", "run_id", store.RunID())

	g, gctx := errgroup.WithContext(ctx)
	apiCtx, stopAPI := context.WithCancel(gctx)
	defer stopAPI()

	if cfg.API.Enabled {
		server := api.NewServer(cfg.API.Addr, store, cfg.API.Rate, cfg.API.Burst)
		if cfg.API.QRCode {
			if qr, err := tool.QRCodeString(server.URL()); err != nil {
				tool.DefaultLogger.Warnf("%v", err)
			} else {
				fmt.Fprintln(out, qr)
			}
		}
		g.Go(func() error { return server.Start(apiCtx) })
	}

	fmt.Fprintln(out, "[TCP Client]")
	g.Go(func() error {
		defer stopAPI()
		if err := poller.Run(gctx); err != nil {
			return err
		}
		if cfg.Poll.WaitOnExit && gctx.Err() == nil {
			fmt.Fprintln(out, "Ending, press Ctrl+C to exit!")
			<-gctx.Done()
		}
		return nil
	})
	return g.Wait()
}

// sendCommand dispatches one WriteCommand with the code exactly as given.
func sendCommand(ctx context.Context, svc remote.Service, code string, out io.Writer) error {
	if _, err := types.ParseCommand(code); err != nil {
		return err
	}
	result, err := svc.WriteCommand(ctx, code)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s\n", types.OpWriteCommand, result)
	return nil
}

// writeScriptRemain dispatches WriteScriptRemain from "ready,roll,timeout,answer".
func writeScriptRemain(ctx context.Context, svc remote.Service, csv string, out io.Writer) error {
	values := tool.SplitList(csv)
	if _, err := types.ParseScriptRemain(values); err != nil {
		return err
	}
	result, err := svc.WriteScriptRemain(ctx, values)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s\n", types.OpWriteScriptRemain, result)
	return nil
}

func probeServer(ctx context.Context, cfg tool.AppConfig) {
	result, err := tool.ProbeHost(ctx, cfg.Server.Host, cfg.Probe.Count, cfg.Probe.Timeout, cfg.Probe.Privileged)
	if err != nil {
		tool.DefaultLogger.Warnf("Probe failed: %v", err)
		return
	}
	tool.DefaultLogger.Info("Probe succeeded", "host", cfg.Server.Host, "recv", result.Recv, "sent", result.Sent, "avg_rtt", result.AvgRtt)
}

func main() {
	flags := tool.SetFlags()
	cfg, err := tool.LoadConfig(flags.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	flags.Apply(&cfg)

	tool.InitLogger(cfg.Log.Dir)
	tool.SetLogMode(cfg.Log.Mode)

	if err := cfg.Validate(); err != nil {
		tool.DefaultLogger.Fatalf("Invalid config: %v", err)
	}
	if !cfg.IntervalInTolerance() {
		tool.DefaultLogger.Warnf("Poll interval %s is outside the %s-%s the server tolerates",
			cfg.Poll.Interval, tool.MinPollInterval, tool.MaxPollInterval)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Probe.Enabled {
		probeServer(ctx, cfg)
	}

	opts := remote.Options{Host: cfg.Server.Host, Port: cfg.Server.Port, Timeout: cfg.Server.Timeout}
	client, err := remote.Dial(ctx, opts)
	if err != nil {
		tool.DefaultLogger.Fatalf("Connection failed: %v", err)
	}
	defer client.Close()
	tool.DefaultLogger.Infof("Connected to %s", client.URI())

	switch {
	case flags.Send != "":
		err = sendCommand(ctx, client, flags.Send, os.Stdout)
	case flags.ScriptRemain != "":
		err = writeScriptRemain(ctx, client, flags.ScriptRemain, os.Stdout)
	default:
		err = run(ctx, cfg, client, os.Stdout)
	}
	if err != nil {
		client.Close()
		tool.DefaultLogger.Fatalf("%v", err)
	}
}
