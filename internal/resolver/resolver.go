// Package resolver performs the single hostname-to-address lookup used
// to pre-resolve portal and platform server hostnames.
package resolver

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

const resolvConfPath = "/etc/resolv.conf"

var errNoAddress = errors.New("no IPv4 address found")

// LookupIPv4 resolves hostname to a single IPv4 address. Literal
// addresses are returned as-is. The system resolver from resolv.conf is
// queried directly; if that fails the lookup falls back to the stdlib
// resolver.
func LookupIPv4(hostname string) (net.IP, error) {
	if ip := net.ParseIP(hostname); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
		return nil, fmt.Errorf("%w: %q is not IPv4", errNoAddress, hostname)
	}

	if ip, err := queryA(hostname); err == nil {
		return ip, nil
	}
	return lookupFallback(hostname)
}

func queryA(hostname string) (net.IP, error) {
	conf, err := dns.ClientConfigFromFile(resolvConfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", resolvConfPath, err)
	}

	c := &dns.Client{Timeout: 5 * time.Second}
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(hostname), dns.TypeA)
	m.RecursionDesired = true

	var lastErr error
	for _, server := range conf.Servers {
		r, _, err := c.Exchange(m, net.JoinHostPort(server, conf.Port))
		if err != nil {
			lastErr = err
			continue
		}
		if r.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("query for %q returned rcode %d", hostname, r.Rcode)
			continue
		}
		for _, rr := range r.Answer {
			if a, ok := rr.(*dns.A); ok {
				return a.A.To4(), nil
			}
		}
		lastErr = fmt.Errorf("%w for %q", errNoAddress, hostname)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no nameservers in %s", resolvConfPath)
	}
	return nil, lastErr
}

func lookupFallback(hostname string) (net.IP, error) {
	addrs, err := net.LookupIP(hostname)
	if err != nil {
		return nil, err
	}
	for _, ip := range addrs {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
	}
	return nil, fmt.Errorf("%w for %q", errNoAddress, hostname)
}
