package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/moyoez/speeder2raw-web/types"
	probing "github.com/prometheus-community/pro-bing"
)

const (
	probeCount    = 3
	probeInterval = 200 * time.Millisecond
	probeTimeout  = 3 * time.Second
)

// NewPingProbe returns a ProbeFunc sending ICMP echo requests. Unprivileged mode uses UDP ping
// sockets, which need net.ipv4.ping_group_range to include the process group on Linux.
func NewPingProbe(privileged bool) ProbeFunc {
	return func(ctx context.Context, host string) (*types.ProbeResult, error) {
		if host == "" {
			return nil, fmt.Errorf("remote host is empty")
		}
		pinger, err := probing.NewPinger(host)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", host, err)
		}
		pinger.Count = probeCount
		pinger.Interval = probeInterval
		pinger.Timeout = probeTimeout
		pinger.SetPrivileged(privileged)

		if err := pinger.RunWithContext(ctx); err != nil {
			return nil, fmt.Errorf("ping %s: %w", host, err)
		}
		stats := pinger.Statistics()
		return &types.ProbeResult{
			Host:       host,
			Addr:       stats.IPAddr.String(),
			Sent:       stats.PacketsSent,
			Received:   stats.PacketsRecv,
			PacketLoss: stats.PacketLoss,
			MinRttMs:   millis(stats.MinRtt),
			AvgRttMs:   millis(stats.AvgRtt),
			MaxRttMs:   millis(stats.MaxRtt),
		}, nil
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
