package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"vpnd/internal/bridge"
	"vpnd/internal/database"
	"vpnd/internal/diaglog"
	"vpnd/internal/mgmt"
	"vpnd/internal/profiles"
	"vpnd/internal/version"
	"vpnd/internal/vpn"
)

const testWireGuardConfig = `[Interface]
PrivateKey = QLowSWJxH9WJ4Az7MwZXN49wdMUt8KAe9yU8xgoJGGs=
Address = 10.64.0.2/10,fc00:bbbb:bbbb:bb01::2/64
IPv6Gateway = fc00:bbbb:bbbb:bb01::1

[Peer]
PublicKey = bbbaUHaEAPokg0IlEh2ShB35kIAosMo1pSlB3TduUTA=
AllowedIPs = 0.0.0.0/0, ::/0
Endpoint = 198.51.100.1:51820
`

type testServer struct {
	handler http.Handler
	store   *profiles.Store
	diag    *bytes.Buffer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store, err := profiles.NewStore(db)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	var diagBuf bytes.Buffer
	diag := diaglog.NewWriter(&diagBuf)
	if err := diag.Configure(true, "debug"); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	s, err := New(Options{
		Profiles:       store,
		Diagnostics:    diag,
		CurrentVersion: "2024.1",
		Releases: version.Releases{
			Stable: []string{"2023.6", "2024.1", "2024.2"},
			Beta:   []string{"2024.3-beta1"},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testServer{handler: s.Router(), store: store, diag: &diagBuf}
}

func (ts *testServer) do(t *testing.T, method, path string, body []byte, header http.Header) (*httptest.ResponseRecorder, mgmt.Response) {
	t.Helper()
	request := httptest.NewRequest(method, path, bytes.NewReader(body))
	for key, values := range header {
		for _, value := range values {
			request.Header.Add(key, value)
		}
	}
	recorder := httptest.NewRecorder()
	ts.handler.ServeHTTP(recorder, request)

	if got := recorder.Header().Get("Content-Type"); got != contentTypeCBOR {
		t.Fatalf("%s %s: unexpected content type %q", method, path, got)
	}
	var resp mgmt.Response
	if err := mgmt.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: decode envelope: %v", method, path, err)
	}
	return recorder, resp
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := mgmt.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return data
}

func testOpenVPNMessage() *mgmt.ConnectionConfig {
	return bridge.ConnectionConfigToWire(&vpn.OpenVPNConfig{
		Endpoint: vpn.Endpoint{
			Address:  netip.MustParseAddrPort("[2001:db8::1]:1194"),
			Protocol: vpn.TCP,
		},
		Username: "user",
		Password: "secret",
	})
}

func requestWithProfileNameParam(name string) *http.Request {
	request := httptest.NewRequest("GET", "/api/profiles/"+name, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("name", name)
	return request.WithContext(context.WithValue(request.Context(), chi.RouteCtxKey, rctx))
}

func TestRequireProfileNameRejectsTraversal(t *testing.T) {
	s := &Server{}
	recorder := httptest.NewRecorder()

	_, ok := s.requireProfileName(recorder, requestWithProfileNameParam("../etc/passwd"))
	if ok {
		t.Fatalf("expected traversal name to be rejected")
	}
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", recorder.Code)
	}
	var resp mgmt.Response
	if err := mgmt.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if resp.OK || !strings.Contains(resp.Error, "invalid profile name") {
		t.Fatalf("expected invalid profile name error, got %#v", resp)
	}
}

func TestRequireProfileNameAcceptsValidName(t *testing.T) {
	s := &Server{}
	recorder := httptest.NewRecorder()

	name, ok := s.requireProfileName(recorder, requestWithProfileNameParam("se-got.wg-001"))
	if !ok {
		t.Fatalf("expected valid name to pass validation")
	}
	if name != "se-got.wg-001" {
		t.Fatalf("unexpected name %q", name)
	}
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error without a profile store")
	}
}

func TestHandleVersion(t *testing.T) {
	ts := newTestServer(t)
	recorder, resp := ts.do(t, http.MethodGet, "/api/version", nil, nil)
	if recorder.Code != http.StatusOK || !resp.OK {
		t.Fatalf("unexpected response %d %#v", recorder.Code, resp)
	}
	var msg mgmt.AppVersionInfo
	if err := mgmt.Unmarshal(resp.Data, &msg); err != nil {
		t.Fatalf("decode version: %v", err)
	}
	info, err := bridge.VersionInfoFromWire(&msg)
	if err != nil {
		t.Fatalf("VersionInfoFromWire: %v", err)
	}
	if !info.Supported || info.LatestStable != "2024.2" || info.LatestBeta != "2024.3-beta1" {
		t.Fatalf("unexpected version info %#v", info)
	}
	if info.SuggestedUpgrade == nil || *info.SuggestedUpgrade != "2024.2" {
		t.Fatalf("expected upgrade to 2024.2, got %v", info.SuggestedUpgrade)
	}
}

func TestPutThenGetProfileReturnsCanonicalConfig(t *testing.T) {
	ts := newTestServer(t)
	body := mustMarshal(t, testOpenVPNMessage())

	recorder, resp := ts.do(t, http.MethodPut, "/api/profiles/home", body, nil)
	if recorder.Code != http.StatusOK || !resp.OK {
		t.Fatalf("PUT failed: %d %#v", recorder.Code, resp)
	}
	etag := recorder.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag on PUT")
	}

	recorder, resp = ts.do(t, http.MethodGet, "/api/profiles/home", nil, nil)
	if recorder.Code != http.StatusOK || !resp.OK {
		t.Fatalf("GET failed: %d %#v", recorder.Code, resp)
	}
	if got := recorder.Header().Get("ETag"); got != etag {
		t.Fatalf("expected ETag %s, got %s", etag, got)
	}
	if !bytes.Equal(resp.Data, body) {
		t.Fatalf("stored config changed:\n got %x\nwant %x", []byte(resp.Data), body)
	}

	recorder, resp = ts.do(t, http.MethodGet, "/api/profiles", nil, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("list failed: %d %#v", recorder.Code, resp)
	}
	var list []mgmt.ProfileSummary
	if err := mgmt.Unmarshal(resp.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].Name != "home" || list[0].Kind != "openvpn" || formatETag(list[0].Digest) != etag {
		t.Fatalf("unexpected list %#v", list)
	}
}

func TestPutProfileRejectsAmbiguousVariant(t *testing.T) {
	ts := newTestServer(t)
	msg := testOpenVPNMessage()
	msg.WireGuard = &mgmt.WireGuardConfig{}

	recorder, resp := ts.do(t, http.MethodPut, "/api/profiles/home", mustMarshal(t, msg), nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if resp.OK || resp.Kind != "missing_variant" || resp.Field != "connection_config" {
		t.Fatalf("unexpected rejection %#v", resp)
	}
	if !strings.Contains(ts.diag.String(), "[WARN]") || !strings.Contains(ts.diag.String(), "kind=missing_variant") {
		t.Fatalf("expected warning in diagnostics log: %q", ts.diag.String())
	}
	if _, _, err := ts.store.Get(context.Background(), "home"); err == nil {
		t.Fatalf("rejected profile must not be stored")
	}
}

func TestPutProfileRejectsBadFields(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name  string
		msg   *mgmt.ConnectionConfig
		kind  string
		field string
	}{
		{
			name: "short key",
			msg: &mgmt.ConnectionConfig{WireGuard: &mgmt.WireGuardConfig{
				Tunnel:      &mgmt.TunnelConfig{PrivateKey: make([]byte, 31)},
				Peer:        &mgmt.PeerConfig{PublicKey: make([]byte, 32), Endpoint: "198.51.100.1:51820"},
				IPv4Gateway: "10.64.0.1",
			}},
			kind:  "invalid_key_length",
			field: "wireguard.tunnel.private_key",
		},
		{
			name:  "hostname endpoint",
			msg:   &mgmt.ConnectionConfig{OpenVPN: &mgmt.OpenVPNConfig{Address: "relay.example.net:1194"}},
			kind:  "invalid_address",
			field: "openvpn.address",
		},
		{
			name:  "protocol beyond int32",
			msg:   &mgmt.ConnectionConfig{OpenVPN: &mgmt.OpenVPNConfig{Address: "198.51.100.1:1194", Protocol: 1 << 33}},
			kind:  "unknown_protocol",
			field: "openvpn.protocol",
		},
		{
			name:  "unknown protocol",
			msg:   &mgmt.ConnectionConfig{OpenVPN: &mgmt.OpenVPNConfig{Address: "198.51.100.1:1194", Protocol: 5}},
			kind:  "unknown_protocol",
			field: "openvpn.protocol",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder, resp := ts.do(t, http.MethodPut, "/api/profiles/bad", mustMarshal(t, tc.msg), nil)
			if recorder.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", recorder.Code)
			}
			if resp.Kind != tc.kind || resp.Field != tc.field {
				t.Fatalf("expected %s at %s, got %#v", tc.kind, tc.field, resp)
			}
		})
	}
}

func TestPutProfileRejectsDomainInvalidConfig(t *testing.T) {
	ts := newTestServer(t)
	msg := &mgmt.ConnectionConfig{OpenVPN: &mgmt.OpenVPNConfig{Address: "198.51.100.1:0"}}

	recorder, resp := ts.do(t, http.MethodPut, "/api/profiles/zero", mustMarshal(t, msg), nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if resp.Kind != "" || !strings.Contains(resp.Error, "port is zero") {
		t.Fatalf("unexpected rejection %#v", resp)
	}
}

func TestPutProfileRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)
	recorder, resp := ts.do(t, http.MethodPut, "/api/profiles/home", []byte{0x5f, 0x41}, nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if !strings.Contains(resp.Error, "invalid CBOR body") {
		t.Fatalf("unexpected error %q", resp.Error)
	}
}

func TestPutProfileRejectsOversizedBody(t *testing.T) {
	ts := newTestServer(t)
	recorder, _ := ts.do(t, http.MethodPut, "/api/profiles/home", make([]byte, maxRequestSize+1), nil)
	if recorder.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", recorder.Code)
	}
}

func TestPutProfileIfMatch(t *testing.T) {
	ts := newTestServer(t)
	body := mustMarshal(t, testOpenVPNMessage())

	recorder, _ := ts.do(t, http.MethodPut, "/api/profiles/home", body, http.Header{"If-Match": {`"nope"`}})
	if recorder.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412 for conditional create, got %d", recorder.Code)
	}

	recorder, _ = ts.do(t, http.MethodPut, "/api/profiles/home", body, nil)
	etag := recorder.Header().Get("ETag")

	recorder, resp := ts.do(t, http.MethodPut, "/api/profiles/home", body, http.Header{"If-Match": {`"0000"`}})
	if recorder.Code != http.StatusPreconditionFailed || resp.OK {
		t.Fatalf("expected 412 for stale digest, got %d %#v", recorder.Code, resp)
	}

	recorder, resp = ts.do(t, http.MethodPut, "/api/profiles/home", body, http.Header{"If-Match": {etag}})
	if recorder.Code != http.StatusOK || !resp.OK {
		t.Fatalf("expected 200 for matching digest, got %d %#v", recorder.Code, resp)
	}
}

func TestImportProfile(t *testing.T) {
	ts := newTestServer(t)

	recorder, resp := ts.do(t, http.MethodPost, "/api/profiles/sgp/import?type=wireguard", []byte(testWireGuardConfig), nil)
	if recorder.Code != http.StatusCreated || !resp.OK {
		t.Fatalf("import failed: %d %#v", recorder.Code, resp)
	}
	var summary mgmt.ProfileSummary
	if err := mgmt.Unmarshal(resp.Data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Name != "sgp" || summary.Kind != "wireguard" || !summary.RoutesAllTraffic {
		t.Fatalf("unexpected summary %#v", summary)
	}
	if !strings.Contains(ts.diag.String(), "routes_all_traffic=true") {
		t.Fatalf("expected import log line, got %q", ts.diag.String())
	}

	_, listResp := ts.do(t, http.MethodGet, "/api/profiles", nil, nil)
	var list []mgmt.ProfileSummary
	if err := mgmt.Unmarshal(listResp.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || !list[0].RoutesAllTraffic {
		t.Fatalf("unexpected list %#v", list)
	}

	profile, _, err := ts.store.Get(context.Background(), "sgp")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	cfg, ok := profile.Config.(*vpn.WireguardConfig)
	if !ok {
		t.Fatalf("expected wireguard config, got %T", profile.Config)
	}
	if cfg.IPv4Gateway.String() != "10.64.0.1" || cfg.IPv6Gateway == nil {
		t.Fatalf("unexpected gateways %v %v", cfg.IPv4Gateway, cfg.IPv6Gateway)
	}
}

func TestImportOpenVPNProfileUsesQueryCredentials(t *testing.T) {
	ts := newTestServer(t)
	raw := "client\nproto tcp\nremote 198.51.100.7 443\n"

	recorder, resp := ts.do(t, http.MethodPost, "/api/profiles/office/import?type=openvpn&username=alice&password=pw", []byte(raw), nil)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("import failed: %d %#v", recorder.Code, resp)
	}
	profile, _, err := ts.store.Get(context.Background(), "office")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	cfg := profile.Config.(*vpn.OpenVPNConfig)
	if cfg.Username != "alice" || cfg.Password != "pw" || cfg.Endpoint.Protocol != vpn.TCP {
		t.Fatalf("unexpected config %#v", cfg)
	}
}

func TestImportProfileRejects(t *testing.T) {
	ts := newTestServer(t)
	tests := map[string]string{
		"unknown type":  "/api/profiles/x/import?type=ipsec",
		"missing type":  "/api/profiles/x/import",
		"unparseable":   "/api/profiles/x/import?type=wireguard",
		"openvpn no ip": "/api/profiles/x/import?type=openvpn",
	}
	for name, path := range tests {
		recorder, resp := ts.do(t, http.MethodPost, path, []byte("[Interface]\nremote relay.example.net\n"), nil)
		if recorder.Code != http.StatusBadRequest || resp.OK {
			t.Fatalf("%s: expected 400, got %d %#v", name, recorder.Code, resp)
		}
	}
}

func TestDeleteProfile(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPut, "/api/profiles/home", mustMarshal(t, testOpenVPNMessage()), nil)

	recorder, resp := ts.do(t, http.MethodDelete, "/api/profiles/home", nil, nil)
	if recorder.Code != http.StatusOK || !resp.OK || len(resp.Data) != 0 {
		t.Fatalf("delete failed: %d %#v", recorder.Code, resp)
	}
	recorder, _ = ts.do(t, http.MethodGet, "/api/profiles/home", nil, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", recorder.Code)
	}
	recorder, _ = ts.do(t, http.MethodDelete, "/api/profiles/home", nil, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", recorder.Code)
	}
}

func TestProtocolSetting(t *testing.T) {
	ts := newTestServer(t)

	recorder, resp := ts.do(t, http.MethodGet, "/api/settings/protocol", nil, nil)
	if recorder.Code != http.StatusOK || len(resp.Data) != 0 {
		t.Fatalf("expected absent constraint by default, got %d %#v", recorder.Code, resp)
	}

	body := mustMarshal(t, bridge.ProtocolConstraintToWire(vpn.Only(vpn.TCP)))
	if recorder, resp := ts.do(t, http.MethodPut, "/api/settings/protocol", body, nil); recorder.Code != http.StatusOK {
		t.Fatalf("PUT failed: %d %#v", recorder.Code, resp)
	}
	_, resp = ts.do(t, http.MethodGet, "/api/settings/protocol", nil, nil)
	var msg *mgmt.TransportProtocolConstraint
	if err := mgmt.Unmarshal(resp.Data, &msg); err != nil {
		t.Fatalf("decode constraint: %v", err)
	}
	constraint, err := bridge.ProtocolConstraintFromWire(msg)
	if err != nil || constraint != vpn.Only(vpn.TCP) {
		t.Fatalf("expected only tcp, got %v (%v)", constraint, err)
	}

	recorder, resp = ts.do(t, http.MethodPut, "/api/settings/protocol", []byte{0xa1, 0x01, 0x07}, nil)
	if recorder.Code != http.StatusBadRequest || resp.Kind != "unknown_protocol" || resp.Field != "constraint.protocol" {
		t.Fatalf("expected unknown_protocol rejection, got %d %#v", recorder.Code, resp)
	}

	if recorder, _ := ts.do(t, http.MethodPut, "/api/settings/protocol", nil, nil); recorder.Code != http.StatusOK {
		t.Fatalf("clearing constraint failed: %d", recorder.Code)
	}
	stored, err := ts.store.ProtocolConstraint(context.Background())
	if err != nil || !stored.IsAny() {
		t.Fatalf("expected any after clearing, got %v (%v)", stored, err)
	}
}

func TestParseIfMatch(t *testing.T) {
	tests := map[string]string{
		"":          "",
		"*":         "*",
		`"abc"`:     "abc",
		` W/"abc" `: "abc",
		"abc":       "abc",
	}
	for header, want := range tests {
		if got := parseIfMatch(header); got != want {
			t.Fatalf("parseIfMatch(%q) = %q, want %q", header, got, want)
		}
	}
}
