package service

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tavolo-pos/api/internal/enum"
)

// ResolveStation maps a menu category's station type to a preparation
// station. The mapping is static configuration on the category; anything
// unset or unrecognized routes to the kitchen.
func ResolveStation(stationType pgtype.Text) string {
	if stationType.Valid && stationType.String == enum.StationBar {
		return enum.StationBar
	}
	return enum.StationKitchen
}

// IsStation reports whether s names a known preparation station.
func IsStation(s string) bool {
	return s == enum.StationKitchen || s == enum.StationBar
}

// StationStatus returns the status column that is authoritative for the
// item's resolved station.
func StationStatus(station, kitchenStatus, barStatus string) string {
	if station == enum.StationBar {
		return barStatus
	}
	return kitchenStatus
}
