package bridge

import (
	"fmt"
	"net/netip"

	"vpnd/internal/mgmt"
	"vpnd/internal/vpn"
)

// ConnectionConfigToWire converts a connection config, setting exactly the
// sub-message that matches its backend.
func ConnectionConfigToWire(config vpn.ConnectionConfig) *mgmt.ConnectionConfig {
	switch config := config.(type) {
	case *vpn.OpenVPNConfig:
		return &mgmt.ConnectionConfig{OpenVPN: openVPNToWire(config)}
	case *vpn.WireguardConfig:
		return &mgmt.ConnectionConfig{WireGuard: wireguardToWire(config)}
	default:
		panic(fmt.Sprintf("bridge: unhandled connection config %T", config))
	}
}

func openVPNToWire(config *vpn.OpenVPNConfig) *mgmt.OpenVPNConfig {
	return &mgmt.OpenVPNConfig{
		Address:  formatAddrPort(config.Endpoint.Address),
		Protocol: ProtocolToWire(config.Endpoint.Protocol),
		Username: config.Username,
		Password: config.Password,
	}
}

func wireguardToWire(config *vpn.WireguardConfig) *mgmt.WireGuardConfig {
	return &mgmt.WireGuardConfig{
		Tunnel: &mgmt.TunnelConfig{
			PrivateKey: config.Tunnel.PrivateKey.Bytes(),
			Addresses:  formatAll(config.Tunnel.Addresses, formatAddr),
		},
		Peer: &mgmt.PeerConfig{
			PublicKey:  config.Peer.PublicKey.Bytes(),
			AllowedIPs: formatAll(config.Peer.AllowedIPs, formatPrefix),
			Endpoint:   formatAddrPort(config.Peer.Endpoint),
			Protocol:   ProtocolToWire(config.Peer.Protocol),
		},
		IPv4Gateway: formatAddr(config.IPv4Gateway),
		IPv6Gateway: encodeOptional(config.IPv6Gateway, formatAddr),
	}
}

// ConnectionConfigFromWire validates and converts an inbound connection config.
func ConnectionConfigFromWire(msg *mgmt.ConnectionConfig) (vpn.ConnectionConfig, error) {
	if msg == nil {
		return nil, fieldError(ErrMissingField, "connection_config", nil)
	}
	switch {
	case msg.OpenVPN != nil && msg.WireGuard != nil:
		return nil, fieldError(ErrMissingVariant, "connection_config", fmt.Errorf("both openvpn and wireguard are set"))
	case msg.OpenVPN != nil:
		config, err := openVPNFromWire(msg.OpenVPN)
		if err != nil {
			return nil, err
		}
		return config, nil
	case msg.WireGuard != nil:
		config, err := wireguardFromWire(msg.WireGuard)
		if err != nil {
			return nil, err
		}
		return config, nil
	default:
		return nil, fieldError(ErrMissingVariant, "connection_config", fmt.Errorf("neither openvpn nor wireguard is set"))
	}
}

func openVPNFromWire(msg *mgmt.OpenVPNConfig) (*vpn.OpenVPNConfig, error) {
	address, err := parseAddrPort(msg.Address, "openvpn.address")
	if err != nil {
		return nil, err
	}
	protocol, err := protocolFromWire(msg.Protocol, "openvpn.protocol")
	if err != nil {
		return nil, err
	}
	return &vpn.OpenVPNConfig{
		Endpoint: vpn.Endpoint{Address: address, Protocol: protocol},
		Username: msg.Username,
		Password: msg.Password,
	}, nil
}

func wireguardFromWire(msg *mgmt.WireGuardConfig) (*vpn.WireguardConfig, error) {
	if msg.Tunnel == nil {
		return nil, fieldError(ErrMissingField, "wireguard.tunnel", nil)
	}
	if msg.Peer == nil {
		return nil, fieldError(ErrMissingField, "wireguard.peer", nil)
	}

	privateKey, err := vpn.PrivateKeyFromBytes(msg.Tunnel.PrivateKey)
	if err != nil {
		return nil, fieldError(ErrInvalidKeyLength, "wireguard.tunnel.private_key", err)
	}
	addresses, err := parseAll(msg.Tunnel.Addresses, "wireguard.tunnel.addresses", netip.ParseAddr)
	if err != nil {
		return nil, err
	}

	publicKey, err := vpn.PublicKeyFromBytes(msg.Peer.PublicKey)
	if err != nil {
		return nil, fieldError(ErrInvalidKeyLength, "wireguard.peer.public_key", err)
	}
	allowedIPs, err := parseAll(msg.Peer.AllowedIPs, "wireguard.peer.allowed_ips", netip.ParsePrefix)
	if err != nil {
		return nil, err
	}
	endpoint, err := parseAddrPort(msg.Peer.Endpoint, "wireguard.peer.endpoint")
	if err != nil {
		return nil, err
	}
	protocol, err := protocolFromWire(msg.Peer.Protocol, "wireguard.peer.protocol")
	if err != nil {
		return nil, err
	}

	ipv4Gateway, err := netip.ParseAddr(msg.IPv4Gateway)
	if err != nil {
		return nil, fieldError(ErrInvalidAddress, "wireguard.ipv4_gateway", err)
	}
	if !ipv4Gateway.Is4() {
		return nil, fieldError(ErrInvalidAddress, "wireguard.ipv4_gateway", fmt.Errorf("%s is not an IPv4 address", ipv4Gateway))
	}
	ipv6Gateway, err := decodeOptional(msg.IPv6Gateway, netip.ParseAddr)
	if err != nil {
		return nil, fieldError(ErrInvalidAddress, "wireguard.ipv6_gateway", err)
	}
	if ipv6Gateway != nil && (!ipv6Gateway.Is6() || ipv6Gateway.Is4In6()) {
		return nil, fieldError(ErrInvalidAddress, "wireguard.ipv6_gateway", fmt.Errorf("%s is not an IPv6 address", *ipv6Gateway))
	}

	return &vpn.WireguardConfig{
		Tunnel: vpn.TunnelConfig{
			PrivateKey: privateKey,
			Addresses:  addresses,
		},
		Peer: vpn.PeerConfig{
			PublicKey:  publicKey,
			AllowedIPs: allowedIPs,
			Endpoint:   endpoint,
			Protocol:   protocol,
		},
		IPv4Gateway: ipv4Gateway,
		IPv6Gateway: ipv6Gateway,
	}, nil
}

// Endpoints use netip.AddrPort's form in both directions: "198.51.100.1:51820"
// and "[2001:db8::1]:51820".

func formatAddrPort(addr netip.AddrPort) string {
	if !addr.IsValid() {
		panic(fmt.Sprintf("bridge: invalid domain endpoint %v", addr))
	}
	return addr.String()
}

func formatAddr(addr netip.Addr) string {
	if !addr.IsValid() {
		panic("bridge: invalid domain address")
	}
	return addr.String()
}

func formatPrefix(prefix netip.Prefix) string {
	if !prefix.IsValid() {
		panic("bridge: invalid domain network")
	}
	return prefix.String()
}

func parseAddrPort(raw, field string) (netip.AddrPort, error) {
	addr, err := netip.ParseAddrPort(raw)
	if err != nil {
		return netip.AddrPort{}, fieldError(ErrInvalidAddress, field, err)
	}
	return addr, nil
}

// formatAll and parseAll keep element order. An empty list is omitted on the
// wire like an absent one, so both directions map empty to nil. Callers
// must not give the two different meanings.

func formatAll[T any](values []T, format func(T) string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, value := range values {
		out[i] = format(value)
	}
	return out
}

func parseAll[T any](raw []string, field string, parse func(string) (T, error)) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]T, len(raw))
	for i, entry := range raw {
		value, err := parse(entry)
		if err != nil {
			return nil, fieldError(ErrInvalidAddress, indexed(field, i), err)
		}
		out[i] = value
	}
	return out, nil
}
