package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"portalgate/internal/firewall"
)

// Start runs the gateway core: it applies the firewall configuration and
// drives the periodic auth server health check and client expiry until
// ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	if !a.enabled.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.enabled.Store(false)
	a.startedAt = time.Now()

	cfg := a.Config()

	fw, err := firewall.New(cfg)
	if err != nil {
		return err
	}
	if err := fw.Init(); err != nil {
		return fmt.Errorf("firewall init fail: %w", err)
	}
	a.mu.Lock()
	a.fw = fw
	a.mu.Unlock()
	defer func() {
		// Reload may have swapped the executor; tear down the current one.
		if cur := a.Firewall(); cur != nil {
			cur.Destroy()
		}
	}()

	interval := time.Duration(cfg.CheckInterval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("gateway core started")
	for {
		select {
		case <-ticker.C:
			a.checkAuthServer(ctx)
			a.expireClients(interval)
		case <-ctx.Done():
			return nil
		}
	}
}

// expireClients denies and drops clients that have been idle for more
// than ClientTimeout check intervals.
func (a *App) expireClients(interval time.Duration) {
	cfg := a.Config()
	fw := a.Firewall()
	timeout := interval * time.Duration(cfg.ClientTimeout)
	if timeout <= 0 {
		return
	}
	for _, c := range a.clients.All() {
		if time.Since(c.LastSeen) <= timeout {
			continue
		}
		if fw != nil {
			if err := fw.DenyClient(c.IP, c.MAC); err != nil {
				log.Warn().Err(err).Str("ip", c.IP).Msg("failed to revoke expired client")
			}
		}
		a.clients.Remove(c.IP)
		log.Info().Str("ip", c.IP).Str("mac", c.MAC).Msg("client expired")
	}
}
