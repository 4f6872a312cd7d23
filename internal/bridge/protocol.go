package bridge

import (
	"fmt"

	"vpnd/internal/mgmt"
	"vpnd/internal/vpn"
)

// Fails to compile when a TransportProtocol is added or removed, so both
// mappings below get revisited.
var _ = [1]struct{}{}[vpn.TransportProtocolCount-2]

// ProtocolToWire maps a domain protocol to its wire value.
func ProtocolToWire(protocol vpn.TransportProtocol) mgmt.TransportProtocol {
	switch protocol {
	case vpn.UDP:
		return mgmt.TransportProtocolUDP
	case vpn.TCP:
		return mgmt.TransportProtocolTCP
	default:
		panic(fmt.Sprintf("bridge: invalid domain transport protocol %d", uint8(protocol)))
	}
}

// ProtocolFromWire maps a wire protocol to its domain value.
func ProtocolFromWire(protocol mgmt.TransportProtocol) (vpn.TransportProtocol, error) {
	return protocolFromWire(protocol, "protocol")
}

func protocolFromWire(protocol mgmt.TransportProtocol, field string) (vpn.TransportProtocol, error) {
	switch protocol {
	case mgmt.TransportProtocolUDP:
		return vpn.UDP, nil
	case mgmt.TransportProtocolTCP:
		return vpn.TCP, nil
	default:
		return 0, fieldError(ErrUnknownProtocol, field, fmt.Errorf("value %d", int64(protocol)))
	}
}

// ProtocolConstraintToWire wraps a required protocol in the constraint
// message. An unconstrained protocol is encoded as nil.
func ProtocolConstraintToWire(constraint vpn.Constraint[vpn.TransportProtocol]) *mgmt.TransportProtocolConstraint {
	protocol, ok := constraint.Value()
	if !ok {
		return nil
	}
	return &mgmt.TransportProtocolConstraint{Protocol: ProtocolToWire(protocol)}
}

// ProtocolConstraintFromWire unwraps a constraint message. nil means any protocol.
func ProtocolConstraintFromWire(msg *mgmt.TransportProtocolConstraint) (vpn.Constraint[vpn.TransportProtocol], error) {
	if msg == nil {
		return vpn.Any[vpn.TransportProtocol](), nil
	}
	protocol, err := protocolFromWire(msg.Protocol, "constraint.protocol")
	if err != nil {
		return vpn.Constraint[vpn.TransportProtocol]{}, err
	}
	return vpn.Only(protocol), nil
}
