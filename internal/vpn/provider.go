package vpn

import "fmt"

// Credentials are the account details an OpenVPN tunnel authenticates with.
type Credentials struct {
	Username string
	Password string
}

// Provider is the strategy interface for backend-specific profile parsing.
type Provider interface {
	Type() Kind
	ValidateConfig(raw string) error
	ParseConfig(raw string, creds Credentials) (ConnectionConfig, error)
}

// ProviderFor returns the provider for a backend kind.
func ProviderFor(kind Kind) (Provider, error) {
	switch kind {
	case KindWireGuard:
		return NewWireGuardProvider(), nil
	case KindOpenVPN:
		return NewOpenVPNProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported vpn type %q", kind)
	}
}
