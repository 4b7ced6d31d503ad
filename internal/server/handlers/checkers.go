package handlers

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/costlens/costlens/internal/graphql"
	"github.com/costlens/costlens/internal/metrics"
)

// BreakerChecker reports unhealthy while the circuit breaker is open.
type BreakerChecker struct {
	Client *graphql.Client
}

func (c *BreakerChecker) CheckHealth(ctx context.Context) error {
	start := time.Now()

	var err error
	if c.Client == nil {
		err = fmt.Errorf("client not configured")
	} else if state := c.Client.BreakerState(); state == graphql.BreakerOpen {
		err = fmt.Errorf("circuit breaker is %s", state)
	}

	metrics.RecordHealthCheck("breaker", err == nil, time.Since(start))
	return err
}

// BudgetChecker reports unhealthy when the cost bucket is fully drained,
// meaning every new call would block waiting for restore.
type BudgetChecker struct {
	Client *graphql.Client
}

func (c *BudgetChecker) CheckHealth(ctx context.Context) error {
	start := time.Now()

	var err error
	if c.Client == nil {
		err = fmt.Errorf("client not configured")
	} else {
		snapshot := c.Client.BudgetSnapshot()
		if snapshot.Capacity > 0 && snapshot.Available <= 0 {
			err = fmt.Errorf("cost budget exhausted: %.1f/%.1f", snapshot.Available, snapshot.Capacity)
		}
	}

	metrics.RecordHealthCheck("budget", err == nil, time.Since(start))
	return err
}

// UpstreamChecker verifies the upstream endpoint accepts TCP connections. It
// never issues a GraphQL operation, so probes consume no cost budget.
type UpstreamChecker struct {
	Endpoint string
	Timeout  time.Duration
}

func (c *UpstreamChecker) CheckHealth(ctx context.Context) error {
	start := time.Now()

	err := c.dial(ctx)
	metrics.RecordHealthCheck("upstream", err == nil, time.Since(start))
	return err
}

func (c *UpstreamChecker) dial(ctx context.Context) error {
	parsed, err := url.Parse(c.Endpoint)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("upstream endpoint is not a valid URL: %q", c.Endpoint)
	}

	host := parsed.Host
	if parsed.Port() == "" {
		port := "443"
		if parsed.Scheme == "http" {
			port = "80"
		}
		host = net.JoinHostPort(parsed.Hostname(), port)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		return fmt.Errorf("upstream %s unreachable: %w", host, err)
	}
	return conn.Close()
}
