package util

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
)

const defaultPort = "8091"

// InterfaceIPv4 returns the first IPv4 address bound to an interface.
func InterfaceIPv4(name string) (netip.Addr, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return netip.Addr{}, err
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return netip.Addr{}, err
	}
	for _, addr := range addrs {
		prefix, err := netip.ParsePrefix(addr.String())
		if err != nil {
			continue
		}
		if ip := prefix.Addr().Unmap(); ip.Is4() {
			return ip, nil
		}
	}
	return netip.Addr{}, errors.New("no IPv4 address found")
}

// ResolveListenAddress binds addr to the IPv4 address of listenInterface
// when one is given. addr may be ":port", "host:port" or a bare port.
func ResolveListenAddress(addr, listenInterface string, lookup func(string) (netip.Addr, error)) (string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		port = strings.TrimPrefix(strings.TrimSpace(addr), ":")
		if port == "" {
			port = defaultPort
		}
		host = ""
	}
	listenInterface = strings.TrimSpace(listenInterface)
	if listenInterface == "" {
		return net.JoinHostPort(host, port), nil
	}
	if lookup == nil {
		lookup = InterfaceIPv4
	}
	ip, err := lookup(listenInterface)
	if err != nil {
		return net.JoinHostPort(host, port), fmt.Errorf("resolve interface %s: %w", listenInterface, err)
	}
	return net.JoinHostPort(ip.String(), port), nil
}
