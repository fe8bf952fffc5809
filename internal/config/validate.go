package config

import (
	"errors"
	"fmt"
)

// Validate checks the parsed configuration for completeness. All
// failures are accumulated and reported together so an operator sees
// every missing parameter at once.
func (c *Config) Validate() error {
	var errs []error
	if c.GatewayInterface == "" {
		errs = append(errs, errors.New("GatewayInterface is not set"))
	}
	if len(c.AuthServers) == 0 {
		errs = append(errs, errors.New("AuthServer is not set"))
	}
	if c.HTTPDUsername != "" && c.HTTPDPassword == "" {
		errs = append(errs, errors.New("HTTPDUserName requires a HTTPDPassword to be set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration is not complete: %w", errors.Join(errs...))
	}
	return nil
}
