// Package network waits for the host to join a network and reports what it
// joined. Link management itself belongs to pi-helper; this package only reads
// the state it publishes (or the kernel's interface table when it is absent).
package network

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultPollInterval is how often WaitAssociated re-checks the link.
const DefaultPollInterval = 500 * time.Millisecond

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

// StatusConnected is the pi-helper NETWORK_STATUS value for a usable link.
const StatusConnected = "connected"

var errNotAssociated = errors.New("network not associated")

// Info describes the network the host is on, as reported by pi-helper.
type Info struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Probe reports whether the host currently has a usable network.
type Probe func() bool

// ReadInfo returns the pi-helper network description, or nil when pi-helper
// has not written one.
func ReadInfo() *Info {
	return readInfo(os.Getenv)
}

func readInfo(getenv func(string) string) *Info {
	s := getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &Info{
		Type:       getenv(envNetworkType),
		IP:         getenv(envNetworkIP),
		Status:     s,
		Gateway:    getenv(envNetworkGateway),
		WifiStatus: getenv(envNetworkWifiStatus),
		SSID:       getenv(envNetworkWifiSSID),
	}
}

// Associated is the default Probe. pi-helper's status wins when present;
// otherwise any up, non-loopback interface with an address counts.
func Associated() bool {
	return associated(os.Getenv, net.Interfaces)
}

func associated(getenv func(string) string, ifaces func() ([]net.Interface, error)) bool {
	if info := readInfo(getenv); info != nil {
		return info.Status == StatusConnected
	}

	list, err := ifaces()
	if err != nil {
		log.Printf("network: list interfaces: %v", err)
		return false
	}
	for _, iface := range list {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}
		return true
	}
	return false
}

// WaitAssociated blocks until probe reports a usable network, checking every
// interval. There is no timeout; only ctx cancellation ends the wait early.
// A nil timer uses the real clock.
func WaitAssociated(ctx context.Context, probe Probe, interval time.Duration, timer backoff.Timer) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	polls := 0
	check := func() error {
		polls++
		if probe() {
			return nil
		}
		return errNotAssociated
	}
	notify := func(_ error, _ time.Duration) {
		if polls == 1 {
			log.Printf("network: waiting for association")
		}
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(interval), ctx)
	if err := backoff.RetryNotifyWithTimer(check, b, notify, timer); err != nil {
		return fmt.Errorf("wait for network: %w", err)
	}
	if polls > 1 {
		log.Printf("network: associated after %d polls", polls)
	}
	return nil
}
