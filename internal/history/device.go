package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Device kinds.
const (
	KindLogger   = "logger"
	KindInverter = "inverter"
	KindPanel    = "panel"
	KindMeter    = "meter"
)

// ValidKind reports whether kind is a known device kind.
func ValidKind(kind string) bool {
	switch kind {
	case KindLogger, KindInverter, KindPanel, KindMeter:
		return true
	}
	return false
}

// Device is one inventory entry.
//
// Empty strings and a nil Connected leave the stored value unchanged on
// upsert, so real-data and app-info frames can each fill in what they know.
type Device struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`

	// ParentID is the DTU serial (or inverter serial for panels).
	ParentID string `json:"parentId,omitempty"`

	Connected       *bool  `json:"connected"`
	SoftwareVersion string `json:"softwareVersion,omitempty"`
	HardwareVersion string `json:"hardwareVersion,omitempty"`

	// Descriptor is the meter descriptor as JSON.
	Descriptor string `json:"descriptor,omitempty"`

	FirstSeen time.Time `json:"firstSeen"`
	LastSeen  time.Time `json:"lastSeen"`
}

// DeviceRepository stores the device inventory.
type DeviceRepository struct {
	db *sql.DB
}

// NewDeviceRepository creates a repository on an open, migrated database.
func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

const upsertDeviceSQL = `
	INSERT INTO devices (kind, id, parent_id, connected, software_version, hardware_version, descriptor, first_seen, last_seen)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(kind, id) DO UPDATE SET
		parent_id = CASE WHEN excluded.parent_id != '' THEN excluded.parent_id ELSE devices.parent_id END,
		connected = COALESCE(excluded.connected, devices.connected),
		software_version = CASE WHEN excluded.software_version != '' THEN excluded.software_version ELSE devices.software_version END,
		hardware_version = CASE WHEN excluded.hardware_version != '' THEN excluded.hardware_version ELSE devices.hardware_version END,
		descriptor = CASE WHEN excluded.descriptor != '' THEN excluded.descriptor ELSE devices.descriptor END,
		last_seen = CASE WHEN excluded.last_seen > devices.last_seen THEN excluded.last_seen ELSE devices.last_seen END`

// Upsert inserts d or merges it into the existing entry.
func (r *DeviceRepository) Upsert(ctx context.Context, d Device) error {
	return r.UpsertAll(ctx, []Device{d})
}

// UpsertAll upserts devices in one transaction.
func (r *DeviceRepository) UpsertAll(ctx context.Context, devices []Device) error {
	if len(devices) == 0 {
		return nil
	}
	for _, d := range devices {
		if err := validateDevice(d); err != nil {
			return err
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning device upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, upsertDeviceSQL)
	if err != nil {
		return fmt.Errorf("preparing device upsert: %w", err)
	}
	defer stmt.Close()

	for _, d := range devices {
		seen := d.LastSeen
		if seen.IsZero() {
			seen = time.Now()
		}
		ts := formatTime(seen)

		var connected any
		if d.Connected != nil {
			connected = *d.Connected
		}

		if _, err := stmt.ExecContext(ctx,
			d.Kind, d.ID, d.ParentID, connected,
			d.SoftwareVersion, d.HardwareVersion, d.Descriptor,
			ts, ts,
		); err != nil {
			return fmt.Errorf("upserting %s %q: %w", d.Kind, d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing device upsert: %w", err)
	}
	return nil
}

// List returns devices of kind, or all devices when kind is empty, ordered
// by kind then id.
func (r *DeviceRepository) List(ctx context.Context, kind string) ([]Device, error) {
	query := `
		SELECT kind, id, parent_id, connected, software_version, hardware_version, descriptor, first_seen, last_seen
		FROM devices`
	var args []any
	if kind != "" {
		if !ValidKind(kind) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
		}
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY kind, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	devices := make([]Device, 0)
	for rows.Next() {
		var d Device
		var connected sql.NullBool
		var firstSeen, lastSeen string

		if err := rows.Scan(&d.Kind, &d.ID, &d.ParentID, &connected,
			&d.SoftwareVersion, &d.HardwareVersion, &d.Descriptor,
			&firstSeen, &lastSeen); err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		if connected.Valid {
			c := connected.Bool
			d.Connected = &c
		}
		if d.FirstSeen, err = parseTime(firstSeen); err != nil {
			return nil, err
		}
		if d.LastSeen, err = parseTime(lastSeen); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

func validateDevice(d Device) error {
	if !ValidKind(d.Kind) {
		return fmt.Errorf("%w: %q", ErrInvalidKind, d.Kind)
	}
	if d.ID == "" {
		return fmt.Errorf("%w: %s without id", ErrInvalidDevice, d.Kind)
	}
	return nil
}

// formatTime renders t as fixed-width UTC RFC3339 so stored values sort
// lexically.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", value, err)
	}
	return t, nil
}
