// Package remote binds the RollBall server's Hprose operations to a Go interface.
package remote

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/hprose/hprose-golang/rpc"

	"github.com/alfachiu/rollball-api-tcp/tool"
	"github.com/alfachiu/rollball-api-tcp/types"
)

// Service is the set of operations exposed by the RollBall server.
// Every value crosses the wire as text and is returned unmodified.
type Service interface {
	Hello(ctx context.Context, name string) (string, error)
	Verify(ctx context.Context, args []string) (string, error)
	ReadStateOfEnable(ctx context.Context, arg string) ([]string, error)
	ReadScriptRemain(ctx context.Context, arg string) ([]string, error)
	ReadQueryLastOperate(ctx context.Context, arg string) ([]string, error)
	ReadFlowOfOperate(ctx context.Context, arg string) ([]string, error)
	ReadGetAnswer(ctx context.Context, arg string) ([]string, error)
	WriteScriptRemain(ctx context.Context, args []string) (string, error)
	WriteCommand(ctx context.Context, code string) (string, error)
}

// Options configures the connection to the server.
type Options struct {
	Host    string
	Port    int
	Timeout time.Duration // per call, also used for the initial dial
}

// URI returns the Hprose endpoint for the options.
func (o Options) URI() string {
	return "tcp://" + net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// stub fields are bound by name to the remote functions.
type stub struct {
	Hello                func(string) (string, error)
	Verify               func([]string) (string, error)
	ReadStateOfEnable    func(string) ([]string, error)
	ReadScriptRemain     func(string) ([]string, error)
	ReadQueryLastOperate func(string) ([]string, error)
	ReadFlowOfOperate    func(string) ([]string, error)
	ReadGetAnswer        func(string) ([]string, error)
	WriteScriptRemain    func([]string) (string, error)
	WriteCommand         func(string) (string, error)
}

// Client is a Service backed by an Hprose TCP client.
type Client struct {
	uri    string
	client rpc.Client
	stub   *stub
}

// Dial checks that the server accepts TCP connections, then binds the
// remote operations. It does not retry.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.Host == "" || opts.Port <= 0 {
		return nil, fmt.Errorf("invalid server address %q:%d", opts.Host, opts.Port)
	}
	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	dialer := net.Dialer{Timeout: opts.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	_ = conn.Close()

	uri := opts.URI()
	client := rpc.NewClient(uri)
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	var s *stub
	client.UseService(&s)
	if s == nil {
		client.Close()
		return nil, fmt.Errorf("failed to bind remote operations on %s", uri)
	}
	tool.DefaultLogger.Debugf("Bound remote operations on %s", uri)
	return &Client{uri: uri, client: client, stub: s}, nil
}

func (c *Client) URI() string {
	return c.uri
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

// invoke runs fn unless ctx is done first. An abandoned call finishes in
// the background and is bounded by the client timeout.
func invoke[T any](ctx context.Context, op string, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return zero, fmt.Errorf("%s: %w", op, r.err)
		}
		return r.value, nil
	}
}

func (c *Client) Hello(ctx context.Context, name string) (string, error) {
	return invoke(ctx, types.OpHello, func() (string, error) { return c.stub.Hello(name) })
}

func (c *Client) Verify(ctx context.Context, args []string) (string, error) {
	return invoke(ctx, types.OpVerify, func() (string, error) { return c.stub.Verify(args) })
}

func (c *Client) ReadStateOfEnable(ctx context.Context, arg string) ([]string, error) {
	return invoke(ctx, types.OpReadStateOfEnable, func() ([]string, error) { return c.stub.ReadStateOfEnable(arg) })
}

func (c *Client) ReadScriptRemain(ctx context.Context, arg string) ([]string, error) {
	return invoke(ctx, types.OpReadScriptRemain, func() ([]string, error) { return c.stub.ReadScriptRemain(arg) })
}

func (c *Client) ReadQueryLastOperate(ctx context.Context, arg string) ([]string, error) {
	return invoke(ctx, types.OpReadQueryLastOperate, func() ([]string, error) { return c.stub.ReadQueryLastOperate(arg) })
}

func (c *Client) ReadFlowOfOperate(ctx context.Context, arg string) ([]string, error) {
	return invoke(ctx, types.OpReadFlowOfOperate, func() ([]string, error) { return c.stub.ReadFlowOfOperate(arg) })
}

func (c *Client) ReadGetAnswer(ctx context.Context, arg string) ([]string, error) {
	return invoke(ctx, types.OpReadGetAnswer, func() ([]string, error) { return c.stub.ReadGetAnswer(arg) })
}

func (c *Client) WriteScriptRemain(ctx context.Context, args []string) (string, error) {
	return invoke(ctx, types.OpWriteScriptRemain, func() (string, error) { return c.stub.WriteScriptRemain(args) })
}

func (c *Client) WriteCommand(ctx context.Context, code string) (string, error) {
	return invoke(ctx, types.OpWriteCommand, func() (string, error) { return c.stub.WriteCommand(code) })
}
