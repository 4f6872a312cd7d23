package vpn

import (
	"errors"
	"fmt"
	"net/netip"

	"go4.org/netipx"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid connection config")

// Kind names a connection backend.
type Kind string

const (
	KindOpenVPN   Kind = "openvpn"
	KindWireGuard Kind = "wireguard"
)

// ConnectionConfig is the configuration of exactly one tunnel backend.
// It is implemented only by *OpenVPNConfig and *WireguardConfig.
type ConnectionConfig interface {
	Kind() Kind
	Validate() error
	isConnectionConfig()
}

// Profile is a named, stored connection config.
type Profile struct {
	Name   string
	Config ConnectionConfig
}

// Endpoint is a remote socket address plus the transport used to reach it.
type Endpoint struct {
	Address  netip.AddrPort
	Protocol TransportProtocol
}

func (e Endpoint) String() string {
	return e.Address.String() + "/" + e.Protocol.String()
}

// OpenVPNConfig holds what the daemon needs to start an OpenVPN tunnel.
type OpenVPNConfig struct {
	Endpoint Endpoint
	Username string
	Password string
}

func (*OpenVPNConfig) Kind() Kind { return KindOpenVPN }

func (*OpenVPNConfig) isConnectionConfig() {}

// Validate checks the endpoint.
func (c *OpenVPNConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: openvpn config is nil", ErrInvalidConfig)
	}
	if err := validateAddrPort(c.Endpoint.Address); err != nil {
		return fmt.Errorf("%w: endpoint: %v", ErrInvalidConfig, err)
	}
	if !c.Endpoint.Protocol.Valid() {
		return fmt.Errorf("%w: endpoint protocol %v", ErrInvalidConfig, c.Endpoint.Protocol)
	}
	return nil
}

// WireguardConfig holds what the daemon needs to start a WireGuard tunnel.
type WireguardConfig struct {
	Tunnel      TunnelConfig
	Peer        PeerConfig
	IPv4Gateway netip.Addr
	// IPv6Gateway is nil when the tunnel has no IPv6 gateway.
	IPv6Gateway *netip.Addr
}

// TunnelConfig is the local side of a WireGuard tunnel.
type TunnelConfig struct {
	PrivateKey PrivateKey
	Addresses  []netip.Addr
}

// PeerConfig is the remote side of a WireGuard tunnel.
type PeerConfig struct {
	PublicKey  PublicKey
	AllowedIPs []netip.Prefix
	Endpoint   netip.AddrPort
	Protocol   TransportProtocol
}

func (*WireguardConfig) Kind() Kind { return KindWireGuard }

func (*WireguardConfig) isConnectionConfig() {}

// Validate checks addresses, gateways and the peer endpoint.
func (c *WireguardConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: wireguard config is nil", ErrInvalidConfig)
	}
	for i, addr := range c.Tunnel.Addresses {
		if !addr.IsValid() {
			return fmt.Errorf("%w: tunnel address %d is invalid", ErrInvalidConfig, i)
		}
	}
	for i, prefix := range c.Peer.AllowedIPs {
		if !prefix.IsValid() {
			return fmt.Errorf("%w: allowed ip %d is invalid", ErrInvalidConfig, i)
		}
	}
	if err := validateAddrPort(c.Peer.Endpoint); err != nil {
		return fmt.Errorf("%w: peer endpoint: %v", ErrInvalidConfig, err)
	}
	if !c.Peer.Protocol.Valid() {
		return fmt.Errorf("%w: peer protocol %v", ErrInvalidConfig, c.Peer.Protocol)
	}
	if !c.IPv4Gateway.Is4() {
		return fmt.Errorf("%w: ipv4 gateway %q is not an IPv4 address", ErrInvalidConfig, c.IPv4Gateway)
	}
	if c.IPv6Gateway != nil && (!c.IPv6Gateway.Is6() || c.IPv6Gateway.Is4In6()) {
		return fmt.Errorf("%w: ipv6 gateway %q is not an IPv6 address", ErrInvalidConfig, *c.IPv6Gateway)
	}
	return nil
}

// RoutesAllTraffic reports whether the allowed IPs cover the whole IPv4 and IPv6 space.
func (p PeerConfig) RoutesAllTraffic() bool {
	var builder netipx.IPSetBuilder
	for _, prefix := range p.AllowedIPs {
		if prefix.IsValid() {
			builder.AddPrefix(prefix.Masked())
		}
	}
	set, err := builder.IPSet()
	if err != nil {
		return false
	}
	return set.ContainsPrefix(netip.MustParsePrefix("0.0.0.0/0")) &&
		set.ContainsPrefix(netip.MustParsePrefix("::/0"))
}

func validateAddrPort(addr netip.AddrPort) error {
	if !addr.Addr().IsValid() {
		return errors.New("address is missing")
	}
	if addr.Port() == 0 {
		return errors.New("port is zero")
	}
	return nil
}
