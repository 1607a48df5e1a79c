package sim

import (
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"
)

// defaultParallelThreshold is used when the config leaves the threshold unset.
const defaultParallelThreshold = 64

// particleSnapshot captures read-only state for parallel processing.
type particleSnapshot struct {
	Entity ecs.Entity
	ID     uint32
	Pos    r3.Vec
	Vel    r3.Vec
}

// intent captures computed outputs to apply after the parallel phase.
type intent struct {
	Force  r3.Vec
	NewVel r3.Vec
	NewPos r3.Vec

	Curl       r3.Vec
	Divergence float64
}

type task uint8

const (
	taskForce task = iota
	taskDiagnostics
)

// workChunk represents a range of particles for a worker to process.
type workChunk struct {
	start, end int
	task       task
}

// parallelState holds resources for parallel force computation.
type parallelState struct {
	snapshots  []particleSnapshot
	intents    []intent
	numWorkers int
	threshold  int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newParallelState(threshold int) *parallelState {
	if threshold <= 0 {
		threshold = defaultParallelThreshold
	}
	return &parallelState{
		numWorkers: runtime.GOMAXPROCS(0),
		threshold:  threshold,
		snapshots:  make([]particleSnapshot, 0, 512),
		intents:    make([]intent, 0, 512),
	}
}

// startWorkers launches persistent worker goroutines.
func (p *parallelState) startWorkers(s *Sim) {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(s)
	}
}

// stopWorkers signals all workers to exit and waits for them.
func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *parallelState) worker(s *Sim) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			s.computeChunk(chunk)
			p.doneChan <- struct{}{}
		}
	}
}

// buildSnapshots copies particle state out of the ECS (single-threaded)
// and returns the particle count.
func (s *Sim) buildSnapshots() int {
	p := s.parallel
	p.snapshots = p.snapshots[:0]

	query := s.particleFilter.Query()
	for query.Next() {
		pos, vel, part, _ := query.Get()
		p.snapshots = append(p.snapshots, particleSnapshot{
			Entity: query.Entity(),
			ID:     part.ID,
			Pos:    pos.Vec,
			Vel:    vel.Vec,
		})
	}

	n := len(p.snapshots)
	if cap(p.intents) < n {
		p.intents = make([]intent, n)
	}
	p.intents = p.intents[:n]
	return n
}

// dispatch runs t over all snapshots, on the worker pool when the
// population is above the threshold.
func (s *Sim) dispatch(n int, t task) {
	if n == 0 {
		return
	}
	p := s.parallel
	if n < p.threshold {
		s.computeChunk(workChunk{start: 0, end: n, task: t})
		return
	}

	if !p.running {
		p.startWorkers(s)
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	chunksDispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		p.workChan <- workChunk{start: start, end: end, task: t}
		chunksDispatched++
	}

	// Barrier
	for i := 0; i < chunksDispatched; i++ {
		<-p.doneChan
	}
}

// computeChunk processes a range of particles for a single worker. It only
// reads the snapshot, the field and the viewpoint, and writes its own
// intents.
func (s *Sim) computeChunk(chunk workChunk) {
	switch chunk.task {
	case taskForce:
		s.computeForces(chunk.start, chunk.end)
	case taskDiagnostics:
		s.computeDiagnostics(chunk.start, chunk.end)
	}
}

// computeForces integrates one step:
//
//	F = field(p, viewpoint) + (viewpoint - p)*attraction
//	v' = (v + F*dt)*damping
//	p' = p + v'*dt
func (s *Sim) computeForces(i0, i1 int) {
	sc := &s.cfg.Simulation
	dt := sc.DT
	vp := s.viewpoint

	for i := i0; i < i1; i++ {
		snap := &s.parallel.snapshots[i]
		in := &s.parallel.intents[i]

		force := s.field.Force(snap.Pos, vp)
		force = r3.Add(force, r3.Scale(sc.Attraction, r3.Sub(vp, snap.Pos)))

		vel := r3.Scale(sc.Damping, r3.Add(snap.Vel, r3.Scale(dt, force)))

		in.Force = force
		in.NewVel = vel
		in.NewPos = r3.Add(snap.Pos, r3.Scale(dt, vel))
	}
}

// computeDiagnostics samples curl and divergence of the composed field at
// each particle's pre-step position.
func (s *Sim) computeDiagnostics(i0, i1 int) {
	vp := s.viewpoint
	for i := i0; i < i1; i++ {
		in := &s.parallel.intents[i]
		in.Curl, in.Divergence = s.field.Diagnostics(s.parallel.snapshots[i].Pos, vp)
	}
}

// applyIntents writes computed results back to ECS components.
func (s *Sim) applyIntents(withDiagnostics bool) {
	for i, snap := range s.parallel.snapshots {
		in := &s.parallel.intents[i]

		pos := s.posMap.Get(snap.Entity)
		vel := s.velMap.Get(snap.Entity)
		part := s.partMap.Get(snap.Entity)
		if pos == nil || vel == nil || part == nil {
			continue
		}

		pos.Vec = in.NewPos
		vel.Vec = in.NewVel
		part.LastForce = in.Force

		if withDiagnostics {
			if diag := s.diagMap.Get(snap.Entity); diag != nil {
				diag.Curl = in.Curl
				diag.Divergence = in.Divergence
				diag.Step = s.step
				diag.Valid = true
			}
		}
	}
}
