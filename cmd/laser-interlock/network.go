package main

import (
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/sweeney/laser-interlock/internal/status"
)

// networkEnv mirrors the variables pi-helper writes to /run/pi-helper.env.
type networkEnv struct {
	Type       string `env:"NETWORK_TYPE"`
	IP         string `env:"NETWORK_IP"`
	Status     string `env:"NETWORK_STATUS"`
	Gateway    string `env:"NETWORK_GATEWAY"`
	WifiStatus string `env:"NETWORK_WIFI_STATUS"`
	SSID       string `env:"NETWORK_WIFI_SSID"`
}

// readNetworkInfo returns nil when pi-helper has not reported a status.
func readNetworkInfo() *status.NetworkInfo {
	var n networkEnv
	if err := env.Parse(&n); err != nil {
		log.Printf("network env: %v", err)
		return nil
	}
	if n.Status == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       n.Type,
		IP:         n.IP,
		Status:     n.Status,
		Gateway:    n.Gateway,
		WifiStatus: n.WifiStatus,
		SSID:       n.SSID,
	}
}
