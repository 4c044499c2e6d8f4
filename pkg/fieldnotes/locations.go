package fieldnotes

import (
	"context"
	"database/sql"
	"time"
)

const (
	insertLocationStatement = `
	INSERT INTO location_history (latitude, longitude, timestamp, location_name)
	VALUES (?, ?, ?, ?)
	`

	insertLocationWithIDStatement = `
	INSERT OR IGNORE INTO location_history (id, latitude, longitude, timestamp, location_name)
	VALUES (?, ?, ?, ?, ?)
	`

	latestLocationStatement = `
	SELECT id, latitude, longitude, timestamp, location_name
	FROM location_history
	ORDER BY timestamp DESC LIMIT 1
	`
)

// rangeClause appends an inclusive timestamp filter to a base statement. Both
// bounds are optional and independently applicable.
func rangeClause(base string, start, end *int64) (string, []any) {
	var args []any
	if start != nil || end != nil {
		base += " WHERE"
		if start != nil {
			base += " timestamp >= ?"
			args = append(args, *start)
		}
		if start != nil && end != nil {
			base += " AND"
		}
		if end != nil {
			base += " timestamp <= ?"
			args = append(args, *end)
		}
	}
	return base, args
}

// AppendLocation inserts one record into the location log. A zero Timestamp
// defaults to now. When rec.ID is set (the import path), the id is preserved
// and an existing row with that id wins; the returned id is rec.ID either way.
func AppendLocation(ctx context.Context, db *sql.DB, rec LocationRecord) (int64, error) {
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}
	if rec.ID > 0 {
		_, err := db.ExecContext(ctx, insertLocationWithIDStatement,
			rec.ID, rec.Latitude, rec.Longitude, rec.Timestamp, rec.LocationName)
		if err != nil {
			return 0, classifyStorageErr(err)
		}
		return rec.ID, nil
	}

	res, err := db.ExecContext(ctx, insertLocationStatement,
		rec.Latitude, rec.Longitude, rec.Timestamp, rec.LocationName)
	if err != nil {
		return 0, classifyStorageErr(err)
	}
	return res.LastInsertId()
}

// QueryLocations returns records whose timestamp falls inside the inclusive
// range, newest first. Nil bounds are open ends; both nil returns everything.
func QueryLocations(ctx context.Context, db *sql.DB, start, end *int64) ([]LocationRecord, error) {
	query, args := rangeClause(
		`SELECT id, latitude, longitude, timestamp, location_name FROM location_history`,
		start, end,
	)
	query += " ORDER BY timestamp DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyStorageErr(err)
	}
	defer rows.Close()

	var records []LocationRecord
	for rows.Next() {
		var rec LocationRecord
		if err := rows.Scan(&rec.ID, &rec.Latitude, &rec.Longitude, &rec.Timestamp, &rec.LocationName); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// LatestLocation returns the most recent record, or ErrLocationNotFound when
// the log is empty.
func LatestLocation(ctx context.Context, db *sql.DB) (LocationRecord, error) {
	var rec LocationRecord
	err := db.QueryRowContext(ctx, latestLocationStatement).Scan(
		&rec.ID, &rec.Latitude, &rec.Longitude, &rec.Timestamp, &rec.LocationName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return LocationRecord{}, ErrLocationNotFound
		}
		return LocationRecord{}, classifyStorageErr(err)
	}
	return rec, nil
}

// DeleteLocationRange removes records inside the inclusive range, with the same
// bound semantics as QueryLocations. Omitting both bounds deletes everything.
func DeleteLocationRange(ctx context.Context, db *sql.DB, start, end *int64) error {
	query, args := rangeClause(`DELETE FROM location_history`, start, end)
	_, err := db.ExecContext(ctx, query, args...)
	return classifyStorageErr(err)
}

// ClearLocationHistory unconditionally deletes the whole log.
func ClearLocationHistory(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `DELETE FROM location_history`)
	return classifyStorageErr(err)
}
