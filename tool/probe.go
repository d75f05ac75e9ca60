package tool

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// ProbeResult summarises an ICMP reachability check.
type ProbeResult struct {
	Sent   int
	Recv   int
	Loss   float64
	AvgRtt time.Duration
}

// ProbeHost pings host count times. Unprivileged mode needs the
// net.ipv4.ping_group_range sysctl on Linux.
func ProbeHost(ctx context.Context, host string, count int, timeout time.Duration, privileged bool) (ProbeResult, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("failed to create pinger for %s: %w", host, err)
	}
	if count <= 0 {
		count = 1
	}
	pinger.Count = count
	pinger.Timeout = timeout
	pinger.SetPrivileged(privileged)
	if err := pinger.RunWithContext(ctx); err != nil {
		return ProbeResult{}, fmt.Errorf("failed to ping %s: %w", host, err)
	}
	stats := pinger.Statistics()
	result := ProbeResult{
		Sent:   stats.PacketsSent,
		Recv:   stats.PacketsRecv,
		Loss:   stats.PacketLoss,
		AvgRtt: stats.AvgRtt,
	}
	if result.Recv == 0 {
		return result, fmt.Errorf("host %s did not answer %d pings", host, result.Sent)
	}
	return result, nil
}
