package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// NetworkStatus is what a probe reports, already formatted for the card.
type NetworkStatus struct {
	Latency    string
	PacketLoss string
}

// NetworkProbe measures latency and packet loss.
type NetworkProbe interface {
	Probe(ctx context.Context) (NetworkStatus, error)
}

// staticProbe reports fixed values. It is used when no probe target is
// configured.
type staticProbe struct {
	status NetworkStatus
}

func newStaticProbe() *staticProbe {
	return &staticProbe{status: NetworkStatus{Latency: "50ms", PacketLoss: "0%"}}
}

func (p *staticProbe) Probe(context.Context) (NetworkStatus, error) {
	return p.status, nil
}

// tcpProbe times TCP handshakes against target. A failed handshake counts
// as a lost packet.
type tcpProbe struct {
	target  string
	count   int
	timeout time.Duration
	dial    func(ctx context.Context, network, address string) (net.Conn, error)
}

func newTCPProbe(target string, count int, timeout time.Duration) *tcpProbe {
	if count <= 0 {
		count = 1
	}
	dialer := &net.Dialer{Timeout: timeout}
	return &tcpProbe{
		target:  target,
		count:   count,
		timeout: timeout,
		dial:    dialer.DialContext,
	}
}

func (p *tcpProbe) Probe(ctx context.Context) (NetworkStatus, error) {
	var (
		total   time.Duration
		success int
		lastErr error
	)
	for i := 0; i < p.count; i++ {
		if err := ctx.Err(); err != nil {
			return NetworkStatus{}, err
		}
		dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
		start := time.Now()
		conn, err := p.dial(dialCtx, "tcp", p.target)
		elapsed := time.Since(start)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close()
		total += elapsed
		success++
	}

	if success == 0 {
		if lastErr == nil {
			lastErr = errors.New("no successful dials")
		}
		return NetworkStatus{}, fmt.Errorf("probing %s: %w", p.target, lastErr)
	}

	loss := (p.count - success) * 100 / p.count
	return NetworkStatus{
		Latency:    fmt.Sprintf("%dms", (total / time.Duration(success)).Milliseconds()),
		PacketLoss: fmt.Sprintf("%d%%", loss),
	}, nil
}
