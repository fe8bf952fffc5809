// Package clients tracks the devices currently connected through the
// gateway.
package clients

import (
	"sync"
	"time"
)

// Client is one connected device. Counters are updated by the firewall
// accounting pass.
type Client struct {
	IP        string    `json:"ip"`
	MAC       string    `json:"mac"`
	Token     string    `json:"token"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Incoming  uint64    `json:"incoming"`
	Outgoing  uint64    `json:"outgoing"`
}

// List is a mutex-guarded, insertion-ordered client list. Lookups are
// linear; the list stays small (one entry per connected device).
type List struct {
	locker  sync.Mutex
	clients []*Client
}

func New() *List {
	return &List{}
}

// Add registers a client, replacing any previous entry with the same IP.
func (l *List) Add(ip, mac, token string) *Client {
	l.locker.Lock()
	defer l.locker.Unlock()

	now := time.Now()
	for i, c := range l.clients {
		if c.IP == ip {
			l.clients[i] = &Client{IP: ip, MAC: mac, Token: token, FirstSeen: c.FirstSeen, LastSeen: now}
			return l.clients[i]
		}
	}
	c := &Client{IP: ip, MAC: mac, Token: token, FirstSeen: now, LastSeen: now}
	l.clients = append(l.clients, c)
	return c
}

// FindByIP returns the client with the given IP, or nil.
func (l *List) FindByIP(ip string) *Client {
	l.locker.Lock()
	defer l.locker.Unlock()
	for _, c := range l.clients {
		if c.IP == ip {
			return c
		}
	}
	return nil
}

// FindByMAC returns the client with the given MAC, or nil.
func (l *List) FindByMAC(mac string) *Client {
	l.locker.Lock()
	defer l.locker.Unlock()
	for _, c := range l.clients {
		if c.MAC == mac {
			return c
		}
	}
	return nil
}

// FindByToken returns the client holding the given token, or nil.
func (l *List) FindByToken(token string) *Client {
	l.locker.Lock()
	defer l.locker.Unlock()
	for _, c := range l.clients {
		if c.Token == token {
			return c
		}
	}
	return nil
}

// Remove deletes the client with the given IP and reports whether an
// entry was removed.
func (l *List) Remove(ip string) bool {
	l.locker.Lock()
	defer l.locker.Unlock()
	for i, c := range l.clients {
		if c.IP == ip {
			l.clients = append(l.clients[:i], l.clients[i+1:]...)
			return true
		}
	}
	return false
}

// Touch refreshes the client's last-seen timestamp.
func (l *List) Touch(ip string) {
	l.locker.Lock()
	defer l.locker.Unlock()
	for _, c := range l.clients {
		if c.IP == ip {
			c.LastSeen = time.Now()
			return
		}
	}
}

// All returns a snapshot of the list in insertion order.
func (l *List) All() []*Client {
	l.locker.Lock()
	defer l.locker.Unlock()
	out := make([]*Client, len(l.clients))
	copy(out, l.clients)
	return out
}

// Len returns the number of connected clients.
func (l *List) Len() int {
	l.locker.Lock()
	defer l.locker.Unlock()
	return len(l.clients)
}
