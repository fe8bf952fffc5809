package app

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/vishvananda/netlink"
)

// DiscoverGateway fills GatewayAddress and GatewayMAC from the gateway
// interface when the config file did not set them. Must run after
// validation and before the listeners start.
func (a *App) DiscoverGateway() error {
	cfg := a.Config()
	if cfg.GatewayInterface == "" {
		return errors.New("gateway interface is not set")
	}
	link, err := netlink.LinkByName(cfg.GatewayInterface)
	if err != nil {
		return fmt.Errorf("failed to find interface %q: %w", cfg.GatewayInterface, err)
	}

	if cfg.GatewayMAC == "" {
		if hw := link.Attrs().HardwareAddr; len(hw) > 0 {
			cfg.GatewayMAC = hw.String()
		}
	}
	if cfg.GatewayAddress == "" {
		addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
		if err != nil {
			return fmt.Errorf("failed to list addresses of %q: %w", cfg.GatewayInterface, err)
		}
		if len(addrs) == 0 {
			return fmt.Errorf("interface %q has no IPv4 address", cfg.GatewayInterface)
		}
		cfg.GatewayAddress = addrs[0].IP.String()
	}

	log.Info().
		Str("interface", cfg.GatewayInterface).
		Str("address", cfg.GatewayAddress).
		Str("mac", cfg.GatewayMAC).
		Msg("gateway interface ready")
	return nil
}
