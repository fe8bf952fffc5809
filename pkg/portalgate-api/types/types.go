package types

import "time"

type ErrorRes struct {
	Error string `json:"error"`
}

type StatusRes struct {
	Version          string   `json:"version"`
	UptimeSeconds    int64    `json:"uptime_seconds"`
	GatewayID        string   `json:"gateway_id"`
	GatewayInterface string   `json:"gateway_interface"`
	GatewayAddress   string   `json:"gateway_address"`
	GatewayPort      int      `json:"gateway_port"`
	AuthServer       string   `json:"auth_server"`
	ClientCount      int      `json:"client_count"`
	Rulesets         []string `json:"rulesets,omitempty"`
}

type ClientRes struct {
	IP        string    `json:"ip"`
	MAC       string    `json:"mac"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

type RotateRes struct {
	AuthServer string `json:"auth_server"`
}
