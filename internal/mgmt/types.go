// Package mgmt defines the management interface wire schema shared with the
// UI process.
//
// Every message is a CBOR map keyed by small integer field identifiers.
// Identifiers are part of the contract and never change meaning; new fields
// take new identifiers. Every field is optional at this layer. Presence and
// validity are enforced by the bridge package, not here.
package mgmt

import "github.com/fxamacker/cbor/v2"

// TransportProtocol is the wire enumeration of tunnel transports. Values
// outside the declared constants can arrive from the peer and must be
// rejected by the receiver. It decodes as int64 so any out-of-range value
// that fits reaches the bridge rather than failing in the CBOR decoder.
type TransportProtocol int64

const (
	TransportProtocolUDP TransportProtocol = 0
	TransportProtocolTCP TransportProtocol = 1
)

// AppVersionInfo reports daemon version status. An empty SuggestedUpgrade
// means no upgrade is suggested.
type AppVersionInfo struct {
	Supported        bool   `cbor:"1,keyasint,omitempty"`
	LatestStable     string `cbor:"2,keyasint,omitempty"`
	LatestBeta       string `cbor:"3,keyasint,omitempty"`
	SuggestedUpgrade string `cbor:"4,keyasint,omitempty"`
}

// TransportProtocolConstraint carries a protocol the user requires, as
// opposed to the protocol a tunnel currently uses.
type TransportProtocolConstraint struct {
	Protocol TransportProtocol `cbor:"1,keyasint,omitempty"`
}

// ConnectionConfig is a discriminated value: exactly one of OpenVPN and
// WireGuard is expected to be set.
type ConnectionConfig struct {
	OpenVPN   *OpenVPNConfig   `cbor:"1,keyasint,omitempty"`
	WireGuard *WireGuardConfig `cbor:"2,keyasint,omitempty"`
}

// OpenVPNConfig carries the endpoint as a single "host:port" string.
type OpenVPNConfig struct {
	Address  string            `cbor:"1,keyasint,omitempty"`
	Protocol TransportProtocol `cbor:"2,keyasint,omitempty"`
	Username string            `cbor:"3,keyasint,omitempty"`
	Password string            `cbor:"4,keyasint,omitempty"`
}

type WireGuardConfig struct {
	Tunnel      *TunnelConfig `cbor:"1,keyasint,omitempty"`
	Peer        *PeerConfig   `cbor:"2,keyasint,omitempty"`
	IPv4Gateway string        `cbor:"3,keyasint,omitempty"`
	// IPv6Gateway is empty when the tunnel has no IPv6 gateway.
	IPv6Gateway string `cbor:"4,keyasint,omitempty"`
}

type TunnelConfig struct {
	PrivateKey []byte   `cbor:"1,keyasint,omitempty"`
	Addresses  []string `cbor:"2,keyasint,omitempty"`
}

type PeerConfig struct {
	PublicKey  []byte            `cbor:"1,keyasint,omitempty"`
	AllowedIPs []string          `cbor:"2,keyasint,omitempty"`
	Endpoint   string            `cbor:"3,keyasint,omitempty"`
	Protocol   TransportProtocol `cbor:"4,keyasint,omitempty"`
}

// Response is the envelope around every management API reply. Kind and
// Field are set when an inbound value was rejected during conversion.
type Response struct {
	OK    bool            `cbor:"1,keyasint"`
	Error string          `cbor:"2,keyasint,omitempty"`
	Kind  string          `cbor:"3,keyasint,omitempty"`
	Field string          `cbor:"4,keyasint,omitempty"`
	Data  cbor.RawMessage `cbor:"5,keyasint,omitempty"`
}

// ProfileSummary is one entry of the profile listing.
type ProfileSummary struct {
	Name   string `cbor:"1,keyasint,omitempty"`
	Kind   string `cbor:"2,keyasint,omitempty"`
	Digest string `cbor:"3,keyasint,omitempty"`

	// RoutesAllTraffic is true when the profile tunnels every destination.
	RoutesAllTraffic bool `cbor:"4,keyasint,omitempty"`
}
