// Package profiles persists named connection configs in SQLite.
//
// Configs are stored in their wire encoding and decoded through the bridge
// on every load, so a damaged row is reported as a conversion error.
package profiles

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/zeebo/blake3"

	"vpnd/internal/bridge"
	"vpnd/internal/mgmt"
	"vpnd/internal/vpn"
)

var (
	ErrNotFound       = errors.New("profile not found")
	ErrDigestMismatch = errors.New("profile digest mismatch")
	ErrCorrupt        = errors.New("stored profile is corrupt")
)

const protocolSettingKey = "relay.protocol"

// Summary describes a stored profile without decoding it.
type Summary struct {
	Name      string
	Kind      vpn.Kind
	Digest    string
	UpdatedAt time.Time

	// RoutesAllTraffic is set for WireGuard profiles whose allowed IPs cover
	// both address families entirely.
	RoutesAllTraffic bool
}

// Store persists profiles and daemon settings.
type Store struct {
	db *sql.DB
}

// NewStore creates a store backed by an existing SQLite handle.
func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	return &Store{db: db}, nil
}

// routesAllTraffic reports whether a config sends every destination through
// the tunnel. OpenVPN routes are pushed by the server and unknown here.
func routesAllTraffic(config vpn.ConnectionConfig) bool {
	wg, ok := config.(*vpn.WireguardConfig)
	return ok && wg.Peer.RoutesAllTraffic()
}

// Digest returns the BLAKE3 digest of encoded wire bytes, hex encoded.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Save creates or overwrites a profile.
func (s *Store) Save(ctx context.Context, profile vpn.Profile) (Summary, error) {
	return s.Replace(ctx, profile, "")
}

// Replace writes a profile only if the stored digest equals ifMatch. An
// empty ifMatch writes unconditionally; "*" requires an existing profile.
func (s *Store) Replace(ctx context.Context, profile vpn.Profile, ifMatch string) (Summary, error) {
	if err := vpn.ValidateName(profile.Name); err != nil {
		return Summary{}, fmt.Errorf("%w: %v", vpn.ErrInvalidConfig, err)
	}
	if profile.Config == nil {
		return Summary{}, fmt.Errorf("%w: profile %s has no config", vpn.ErrInvalidConfig, profile.Name)
	}
	if err := profile.Config.Validate(); err != nil {
		return Summary{}, err
	}
	data, err := mgmt.Marshal(bridge.ConnectionConfigToWire(profile.Config))
	if err != nil {
		return Summary{}, fmt.Errorf("encode profile %s: %w", profile.Name, err)
	}
	summary := Summary{
		Name:      profile.Name,
		Kind:      profile.Config.Kind(),
		Digest:    Digest(data),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),

		RoutesAllTraffic: routesAllTraffic(profile.Config),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Summary{}, err
	}
	defer tx.Rollback()

	if ifMatch != "" {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT digest FROM profiles WHERE name = ?`, profile.Name).Scan(&current)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return Summary{}, fmt.Errorf("%w: %s", ErrNotFound, profile.Name)
		case err != nil:
			return Summary{}, err
		case ifMatch != "*" && ifMatch != current:
			return Summary{}, fmt.Errorf("%w: %s", ErrDigestMismatch, profile.Name)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO profiles (name, kind, config, digest, updated_at, routes_all_traffic)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			kind = excluded.kind,
			config = excluded.config,
			digest = excluded.digest,
			updated_at = excluded.updated_at,
			routes_all_traffic = excluded.routes_all_traffic
	`, summary.Name, string(summary.Kind), data, summary.Digest, summary.UpdatedAt.Unix(), summary.RoutesAllTraffic); err != nil {
		return Summary{}, err
	}
	if err := tx.Commit(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// Get loads and decodes a profile.
func (s *Store) Get(ctx context.Context, name string) (vpn.Profile, Summary, error) {
	var (
		kind      string
		data      []byte
		digest    string
		updatedAt int64
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT kind, config, digest, updated_at
		FROM profiles
		WHERE name = ?
	`, name)
	if err := row.Scan(&kind, &data, &digest, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return vpn.Profile{}, Summary{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return vpn.Profile{}, Summary{}, err
	}

	var msg mgmt.ConnectionConfig
	if err := mgmt.Unmarshal(data, &msg); err != nil {
		return vpn.Profile{}, Summary{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	config, err := bridge.ConnectionConfigFromWire(&msg)
	if err != nil {
		return vpn.Profile{}, Summary{}, fmt.Errorf("%w: %s: %w", ErrCorrupt, name, err)
	}
	if string(config.Kind()) != kind {
		return vpn.Profile{}, Summary{}, fmt.Errorf("%w: %s: stored as %s but decodes as %s", ErrCorrupt, name, kind, config.Kind())
	}

	summary := Summary{
		Name:      name,
		Kind:      config.Kind(),
		Digest:    digest,
		UpdatedAt: time.Unix(updatedAt, 0).UTC(),

		RoutesAllTraffic: routesAllTraffic(config),
	}
	return vpn.Profile{Name: name, Config: config}, summary, nil
}

// Digest returns the stored digest of a profile.
func (s *Store) Digest(ctx context.Context, name string) (string, error) {
	var digest string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM profiles WHERE name = ?`, name).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return digest, err
}

// List returns all profiles sorted by name.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, kind, digest, updated_at, routes_all_traffic
		FROM profiles
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Summary, 0)
	for rows.Next() {
		var (
			summary   Summary
			kind      string
			updatedAt int64
		)
		if err := rows.Scan(&summary.Name, &kind, &summary.Digest, &updatedAt, &summary.RoutesAllTraffic); err != nil {
			return nil, err
		}
		summary.Kind = vpn.Kind(kind)
		summary.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, summary)
	}
	return out, rows.Err()
}

// Delete removes a profile.
func (s *Store) Delete(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE name = ?`, name)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
