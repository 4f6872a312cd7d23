package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vpnd/internal/bridge"
	"vpnd/internal/mgmt"
	"vpnd/internal/vpn"
)

// ProtocolConstraint returns the stored relay protocol preference. No row means any.
func (s *Store) ProtocolConstraint(ctx context.Context) (vpn.Constraint[vpn.TransportProtocol], error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, protocolSettingKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return vpn.Any[vpn.TransportProtocol](), nil
	}
	if err != nil {
		return vpn.Constraint[vpn.TransportProtocol]{}, err
	}

	var msg mgmt.TransportProtocolConstraint
	if err := mgmt.Unmarshal(data, &msg); err != nil {
		return vpn.Constraint[vpn.TransportProtocol]{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, protocolSettingKey, err)
	}
	constraint, err := bridge.ProtocolConstraintFromWire(&msg)
	if err != nil {
		return vpn.Constraint[vpn.TransportProtocol]{}, fmt.Errorf("%w: %s: %w", ErrCorrupt, protocolSettingKey, err)
	}
	return constraint, nil
}

// SetProtocolConstraint stores the relay protocol preference. Any removes the row.
func (s *Store) SetProtocolConstraint(ctx context.Context, constraint vpn.Constraint[vpn.TransportProtocol]) error {
	msg := bridge.ProtocolConstraintToWire(constraint)
	if msg == nil {
		_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, protocolSettingKey)
		return err
	}
	data, err := mgmt.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, protocolSettingKey, data)
	return err
}
