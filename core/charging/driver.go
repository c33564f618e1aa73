package charging

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/clustercharge/core/model"
)

// Driver ticks every cluster of a system. Clusters share no state besides the
// fleet table, so they are processed concurrently by up to Workers
// goroutines. The outcome does not depend on the worker count.
type Driver struct {
	Controller *ClusterController
	Workers    int // <= 0 means one worker per cluster

	mu      sync.Mutex
	reports []*TickReport
}

// NewDriver creates a driver around ctrl.
func NewDriver(ctrl *ClusterController, workers int) *Driver {
	if ctrl == nil {
		ctrl = NewClusterController(nil, nil, nil)
	}
	return &Driver{Controller: ctrl, Workers: workers}
}

// Step runs the tick starting at ts and lasting dt on every cluster. Faulty
// clusters do not affect the others; their faults are returned together as a
// *TickError.
func (d *Driver) Step(ts time.Time, dt time.Duration, system *model.System, fleet *model.Fleet) error {
	tick := Tick{Timestamp: ts, Duration: dt}
	if err := tick.Validate(); err != nil {
		return err
	}
	ids := system.ClusterIDs()
	reports := make([]*TickReport, len(ids))
	faults := make([]*ClusterFault, len(ids))

	workers := d.Workers
	if workers <= 0 || workers > len(ids) {
		workers = len(ids)
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				reports[i], faults[i] = d.tickCluster(system.Clusters[ids[i]], fleet, tick)
			}
		}()
	}
	for i := range ids {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	d.mu.Lock()
	d.reports = reports
	d.mu.Unlock()

	var te *TickError
	for _, f := range faults {
		if f == nil {
			continue
		}
		if te == nil {
			te = &TickError{Timestamp: ts}
		}
		te.Faults = append(te.Faults, f)
	}
	if te == nil {
		return nil
	}
	sort.Slice(te.Faults, func(i, j int) bool { return te.Faults[i].ClusterID < te.Faults[j].ClusterID })
	return te
}

func (d *Driver) tickCluster(c *model.Cluster, fleet *model.Fleet, tick Tick) (*TickReport, *ClusterFault) {
	rep, err := d.Controller.Tick(c, fleet, tick)
	if err == nil {
		return rep, nil
	}
	var f *ClusterFault
	if !errors.As(err, &f) {
		f = &ClusterFault{ClusterID: c.ID, Timestamp: tick.Timestamp, Phase: PhaseIdle, Err: err}
	}
	return rep, f
}

// Reports returns the reports of the last step sorted by cluster ID.
func (d *Driver) Reports() []*TickReport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*TickReport(nil), d.reports...)
}
