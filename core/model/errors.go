package model

import "errors"

var (
	// ErrNoMatchingBin is returned when no power curve bin covers a SoC.
	ErrNoMatchingBin = errors.New("no power curve bin matches soc")
	// ErrChargerBusy is returned when connecting to an occupied charger.
	ErrChargerBusy = errors.New("charger already has a vehicle connected")
	// ErrUnknownCharger is returned for charger IDs missing from a cluster.
	ErrUnknownCharger = errors.New("unknown charger")
	// ErrVehicleNotFound is returned when a vehicle handle does not resolve.
	ErrVehicleNotFound = errors.New("vehicle not found")
)
