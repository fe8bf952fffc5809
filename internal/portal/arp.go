package portal

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

const arpTablePath = "/proc/net/arp"

// arpGet looks up the MAC address the kernel has cached for ip.
func arpGet(ip string) (string, error) {
	f, err := os.Open(arpTablePath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", arpTablePath, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Scan() // header
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			continue
		}
		if fields[0] == ip {
			return fields[3], nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no ARP entry for %s", ip)
}
