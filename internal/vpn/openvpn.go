package vpn

import (
	"bufio"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

const defaultOpenVPNPort = 1194

// OpenVPNProvider implements Provider for .ovpn client profiles.
type OpenVPNProvider struct{}

func NewOpenVPNProvider() *OpenVPNProvider {
	return &OpenVPNProvider{}
}

func (p *OpenVPNProvider) Type() Kind {
	return KindOpenVPN
}

func (p *OpenVPNProvider) ValidateConfig(raw string) error {
	_, err := p.ParseConfig(raw, Credentials{})
	return err
}

// ParseConfig builds an OpenVPNConfig from the first remote of an .ovpn
// profile. Credentials are copied as given.
func (p *OpenVPNProvider) ParseConfig(raw string, creds Credentials) (ConnectionConfig, error) {
	endpoint, err := parseOpenVPNEndpoint(raw)
	if err != nil {
		return nil, err
	}
	cfg := &OpenVPNConfig{
		Endpoint: endpoint,
		Username: creds.Username,
		Password: creds.Password,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseOpenVPNEndpoint(raw string) (Endpoint, error) {
	directives, err := scanOpenVPNDirectives(raw)
	if err != nil {
		return Endpoint{}, err
	}
	if _, ok := directives["client"]; !ok {
		return Endpoint{}, fmt.Errorf("'client' directive is required")
	}
	remoteEntries := directives["remote"]
	if len(remoteEntries) == 0 {
		return Endpoint{}, fmt.Errorf("'remote' directive is required")
	}

	fields := strings.Fields(remoteEntries[0])
	if len(fields) == 0 {
		return Endpoint{}, fmt.Errorf("invalid 'remote' directive")
	}
	addr, err := netip.ParseAddr(fields[0])
	if err != nil {
		return Endpoint{}, fmt.Errorf("'remote' host must be a literal IP address, got %q", fields[0])
	}

	port := defaultOpenVPNPort
	if portEntries := directives["port"]; len(portEntries) > 0 {
		if port, err = parsePort(firstToken(portEntries[0])); err != nil {
			return Endpoint{}, fmt.Errorf("'port' directive: %v", err)
		}
	}
	if len(fields) > 1 {
		if port, err = parsePort(fields[1]); err != nil {
			return Endpoint{}, fmt.Errorf("'remote' directive: %v", err)
		}
	}

	protocol := UDP
	if protoEntries := directives["proto"]; len(protoEntries) > 0 {
		if protocol, err = ParseTransportProtocol(firstToken(protoEntries[0])); err != nil {
			return Endpoint{}, fmt.Errorf("'proto' directive: %v", err)
		}
	}
	if len(fields) > 2 {
		if protocol, err = ParseTransportProtocol(fields[2]); err != nil {
			return Endpoint{}, fmt.Errorf("'remote' directive: %v", err)
		}
	}

	return Endpoint{
		Address:  netip.AddrPortFrom(addr, uint16(port)),
		Protocol: protocol,
	}, nil
}

func scanOpenVPNDirectives(raw string) (map[string][]string, error) {
	directives := make(map[string][]string)

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 1024), 1024*1024)

	lineNum := 0
	activeBlock := ""

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Inline blocks carry certificates and keys; their contents are skipped.
		if activeBlock != "" {
			if strings.EqualFold(line, "</"+activeBlock+">") {
				activeBlock = ""
			}
			continue
		}

		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "</") {
			return nil, fmt.Errorf("line %d: unexpected closing block", lineNum)
		}
		if strings.HasPrefix(line, "<") && strings.HasSuffix(line, ">") {
			blockName := strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			if blockName == "" || strings.Contains(blockName, " ") {
				return nil, fmt.Errorf("line %d: invalid inline block name", lineNum)
			}
			activeBlock = blockName
			continue
		}

		fields := strings.Fields(line)
		key := strings.ToLower(fields[0])
		value := ""
		if len(fields) > 1 {
			value = strings.TrimSpace(line[len(fields[0]):])
		}
		directives[key] = append(directives[key], value)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if activeBlock != "" {
		return nil, fmt.Errorf("unclosed inline block <%s>", activeBlock)
	}
	return directives, nil
}

func parsePort(raw string) (int, error) {
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", raw)
	}
	return port, nil
}

func firstToken(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
