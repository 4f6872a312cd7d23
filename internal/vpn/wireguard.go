package vpn

import (
	"bufio"
	"fmt"
	"net/netip"
	"strings"
)

// WireGuardProvider implements Provider for wg-quick style configs.
type WireGuardProvider struct{}

func NewWireGuardProvider() *WireGuardProvider {
	return &WireGuardProvider{}
}

func (p *WireGuardProvider) Type() Kind {
	return KindWireGuard
}

func (p *WireGuardProvider) ValidateConfig(raw string) error {
	_, err := p.ParseConfig(raw, Credentials{})
	return err
}

// ParseConfig builds a WireguardConfig from wg-quick text. Credentials are
// not used by WireGuard and are ignored.
func (p *WireGuardProvider) ParseConfig(raw string, _ Credentials) (ConnectionConfig, error) {
	cfg, err := parseWireGuardConfig(raw)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

type wgSection struct {
	fields map[string][]string
}

func (s *wgSection) first(key string) string {
	values := s.fields[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (s *wgSection) list(key string) []string {
	var items []string
	for _, value := range s.fields[key] {
		items = append(items, parseCSVList(value)...)
	}
	return items
}

func parseWireGuardConfig(raw string) (*WireguardConfig, error) {
	iface, peers, err := scanWireGuardSections(raw)
	if err != nil {
		return nil, err
	}
	if iface == nil {
		return nil, fmt.Errorf("[Interface] section is required")
	}
	if len(peers) == 0 {
		return nil, fmt.Errorf("at least one [Peer] section is required")
	}
	if len(peers) > 1 {
		return nil, fmt.Errorf("only one [Peer] section is supported, got %d", len(peers))
	}

	cfg := &WireguardConfig{}

	privateKey := iface.first("privatekey")
	if privateKey == "" {
		return nil, fmt.Errorf("[Interface] PrivateKey is required")
	}
	if cfg.Tunnel.PrivateKey, err = ParsePrivateKey(privateKey); err != nil {
		return nil, fmt.Errorf("[Interface] PrivateKey: %v", err)
	}

	addresses := iface.list("address")
	if len(addresses) == 0 {
		return nil, fmt.Errorf("[Interface] Address is required")
	}
	prefixes := make([]netip.Prefix, 0, len(addresses))
	for _, entry := range addresses {
		prefix, err := parseInterfaceAddress(entry)
		if err != nil {
			return nil, fmt.Errorf("[Interface] Address: %v", err)
		}
		prefixes = append(prefixes, prefix)
		cfg.Tunnel.Addresses = append(cfg.Tunnel.Addresses, prefix.Addr())
	}

	if cfg.IPv4Gateway, err = resolveGateway(iface.first("ipv4gateway"), prefixes, true); err != nil {
		return nil, fmt.Errorf("[Interface] IPv4Gateway: %v", err)
	}
	if rawV6 := iface.first("ipv6gateway"); rawV6 != "" {
		gateway, err := resolveGateway(rawV6, prefixes, false)
		if err != nil {
			return nil, fmt.Errorf("[Interface] IPv6Gateway: %v", err)
		}
		cfg.IPv6Gateway = &gateway
	}

	peer := peers[0]
	publicKey := peer.first("publickey")
	if publicKey == "" {
		return nil, fmt.Errorf("[Peer] PublicKey is required")
	}
	if cfg.Peer.PublicKey, err = ParsePublicKey(publicKey); err != nil {
		return nil, fmt.Errorf("[Peer] PublicKey: %v", err)
	}
	if cfg.Peer.PublicKey == cfg.Tunnel.PrivateKey.PublicKey() {
		return nil, fmt.Errorf("[Peer] PublicKey is the interface's own public key")
	}

	allowed := peer.list("allowedips")
	if len(allowed) == 0 {
		return nil, fmt.Errorf("[Peer] AllowedIPs is required")
	}
	for _, entry := range allowed {
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return nil, fmt.Errorf("[Peer] AllowedIPs: invalid CIDR %q", entry)
		}
		cfg.Peer.AllowedIPs = append(cfg.Peer.AllowedIPs, prefix)
	}

	endpoint := peer.first("endpoint")
	if endpoint == "" {
		return nil, fmt.Errorf("[Peer] Endpoint is required")
	}
	if cfg.Peer.Endpoint, err = netip.ParseAddrPort(endpoint); err != nil {
		return nil, fmt.Errorf("[Peer] Endpoint must be a literal ip:port, got %q", endpoint)
	}

	cfg.Peer.Protocol = UDP
	if proto := peer.first("protocol"); proto != "" {
		if cfg.Peer.Protocol, err = ParseTransportProtocol(proto); err != nil {
			return nil, fmt.Errorf("[Peer] Protocol: %v", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func scanWireGuardSections(raw string) (*wgSection, []*wgSection, error) {
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 1024), 1024*1024)

	var (
		iface   *wgSection
		peers   []*wgSection
		current *wgSection
	)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section := strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			switch section {
			case "interface":
				if iface != nil {
					return nil, nil, fmt.Errorf("line %d: duplicate [Interface] section", lineNum)
				}
				iface = &wgSection{fields: make(map[string][]string)}
				current = iface
			case "peer":
				peer := &wgSection{fields: make(map[string][]string)}
				peers = append(peers, peer)
				current = peer
			default:
				return nil, nil, fmt.Errorf("line %d: unsupported section [%s]", lineNum, section)
			}
			continue
		}

		key, value, ok := splitINIKeyValue(line)
		if !ok {
			return nil, nil, fmt.Errorf("line %d: invalid key-value pair", lineNum)
		}
		if current == nil {
			return nil, nil, fmt.Errorf("line %d: key outside known section", lineNum)
		}
		lowerKey := strings.ToLower(key)
		current.fields[lowerKey] = append(current.fields[lowerKey], stripInlineComment(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return iface, peers, nil
}

// parseInterfaceAddress accepts "ip" or "ip/len". A bare IP becomes a host prefix.
func parseInterfaceAddress(entry string) (netip.Prefix, error) {
	if strings.Contains(entry, "/") {
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid address %q", entry)
		}
		return prefix, nil
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid address %q", entry)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// resolveGateway parses an explicit gateway, or derives the first host of the
// first tunnel prefix of the wanted family that has room for one. Host-length
// prefixes such as /32 are skipped.
func resolveGateway(raw string, prefixes []netip.Prefix, wantV4 bool) (netip.Addr, error) {
	if raw != "" {
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return netip.Addr{}, fmt.Errorf("invalid address %q", raw)
		}
		return addr, nil
	}
	var hostOnly []string
	for _, prefix := range prefixes {
		if prefix.Addr().Is4() != wantV4 {
			continue
		}
		if prefix.Bits() >= prefix.Addr().BitLen()-1 {
			hostOnly = append(hostOnly, prefix.String())
			continue
		}
		return prefix.Masked().Addr().Next(), nil
	}
	if len(hostOnly) > 0 {
		return netip.Addr{}, fmt.Errorf("no gateway can be derived from %s; add IPv4Gateway = <address> to [Interface]", strings.Join(hostOnly, ", "))
	}
	return netip.Addr{}, fmt.Errorf("no tunnel address to derive a gateway from")
}

func splitINIKeyValue(line string) (string, string, bool) {
	if idx := strings.Index(line, "="); idx >= 0 {
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key == "" {
			return "", "", false
		}
		return key, value, true
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", false
	}
	key := fields[0]
	value := strings.TrimSpace(line[len(key):])
	return key, value, true
}

func parseCSVList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		items = append(items, trimmed)
	}
	return items
}

func stripInlineComment(value string) string {
	for _, marker := range []string{" #", " ;"} {
		if idx := strings.Index(value, marker); idx >= 0 {
			value = value[:idx]
		}
	}
	return strings.TrimSpace(value)
}
