package charging

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/clustercharge/core/model"
)

// ErrBudgetExceeded signals an allocation drawing more grid power than the
// budget. It can only result from an allocator bug.
var ErrBudgetExceeded = errors.New("allocation exceeds cluster budget")

// NoMatchingBinError reports a power curve without a bin for the vehicle's
// SoC. It is a data fault and is never retried.
type NoMatchingBinError struct {
	VehicleID string
	ChargerID string
	SoC       float64
}

func (e *NoMatchingBinError) Error() string {
	return fmt.Sprintf("vehicle %s on charger %s: %v %v", e.VehicleID, e.ChargerID, model.ErrNoMatchingBin, e.SoC)
}

// Is makes errors.Is(err, model.ErrNoMatchingBin) hold.
func (e *NoMatchingBinError) Is(target error) bool { return target == model.ErrNoMatchingBin }

// ClusterFault aborts one cluster's tick.
type ClusterFault struct {
	ClusterID string
	Timestamp time.Time
	Phase     Phase
	Err       error
}

func (f *ClusterFault) Error() string {
	return fmt.Sprintf("cluster %s tick %s (%s): %v", f.ClusterID, f.Timestamp.Format(time.RFC3339), f.Phase, f.Err)
}

func (f *ClusterFault) Unwrap() error { return f.Err }

// VehicleID returns the vehicle the fault relates to, if known.
func (f *ClusterFault) VehicleID() string {
	var nb *NoMatchingBinError
	if errors.As(f.Err, &nb) {
		return nb.VehicleID
	}
	var mv *MissingVehicleError
	if errors.As(f.Err, &mv) {
		return mv.VehicleID
	}
	return ""
}

// MissingVehicleError reports a charger referring to a vehicle absent from
// the fleet.
type MissingVehicleError struct {
	VehicleID string
	ChargerID string
}

func (e *MissingVehicleError) Error() string {
	return fmt.Sprintf("charger %s: %v: %s", e.ChargerID, model.ErrVehicleNotFound, e.VehicleID)
}

func (e *MissingVehicleError) Is(target error) bool { return target == model.ErrVehicleNotFound }

// TickError collects the cluster faults of one driver step, sorted by
// cluster ID.
type TickError struct {
	Timestamp time.Time
	Faults    []*ClusterFault
}

func (e *TickError) Error() string {
	msgs := make([]string, len(e.Faults))
	for i, f := range e.Faults {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%d cluster(s) failed: %s", len(e.Faults), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual faults to errors.Is and errors.As.
func (e *TickError) Unwrap() []error {
	errs := make([]error, len(e.Faults))
	for i, f := range e.Faults {
		errs[i] = f
	}
	return errs
}
