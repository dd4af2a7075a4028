package process

import (
	"context"
	"fmt"
)

// Background creates a job for the given PIDs and command text, returning
// its job ID. Job IDs start at 1 and are recycled only after every PID in
// the job has been reaped (spec section 4.7).
func (r *Registry) Background(pids []int, commandText string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.allocJobIDLocked()
	ctx, cancel := context.WithCancel(context.Background())

	r.jobs[id] = &Job{
		ID:          id,
		PIDs:        append([]int(nil), pids...),
		CommandText: commandText,
		Status:      Running,
		ctx:         ctx,
		cancel:      cancel,
	}
	r.jobOrder = append(r.jobOrder, id)

	for _, pid := range pids {
		if p, ok := r.processes[pid]; ok {
			p.JobID = id
		}
	}

	return id
}

func (r *Registry) allocJobIDLocked() int {
	for {
		if _, used := r.jobs[r.nextJob]; !used {
			id := r.nextJob
			r.nextJob++
			return id
		}
		r.nextJob++
	}
}

func (r *Registry) GetByJobID(id int) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	return j, ok
}

func (r *Registry) GetBackgroundJobs() []*Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Job, 0, len(r.jobOrder))
	for _, id := range r.jobOrder {
		out = append(out, r.jobs[id])
	}
	return out
}

// CurrentJob resolves "%+", the most recently created job still present.
func (r *Registry) CurrentJob() (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.jobOrder) == 0 {
		return nil, false
	}
	id := r.jobOrder[len(r.jobOrder)-1]
	return r.jobs[id], true
}

// PreviousJob resolves "%-", the job before the current one.
func (r *Registry) PreviousJob() (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.jobOrder) < 2 {
		return nil, false
	}
	id := r.jobOrder[len(r.jobOrder)-2]
	return r.jobs[id], true
}

// ResolveJobSpec parses a "%N", "%+", "%-", or bare "N" job reference.
func (r *Registry) ResolveJobSpec(spec string) (*Job, error) {
	if spec == "" || spec == "%+" || spec == "%%" {
		if j, ok := r.CurrentJob(); ok {
			return j, nil
		}
		return nil, fmt.Errorf("no current job")
	}
	if spec == "%-" {
		if j, ok := r.PreviousJob(); ok {
			return j, nil
		}
		return nil, fmt.Errorf("no previous job")
	}

	var id int
	if _, err := fmt.Sscanf(spec, "%%%d", &id); err != nil {
		if _, err2 := fmt.Sscanf(spec, "%d", &id); err2 != nil {
			return nil, fmt.Errorf("invalid job spec %q", spec)
		}
	}
	if j, ok := r.GetByJobID(id); ok {
		return j, nil
	}
	return nil, fmt.Errorf("no such job %s", spec)
}

// CancelJob fires the job's cancellation token, which every PID in it
// should observe cooperatively.
func (r *Registry) CancelJob(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return false
	}
	if j.cancel != nil {
		j.cancel()
	}
	for _, pid := range j.PIDs {
		if p, ok := r.processes[pid]; ok && p.cancel != nil {
			p.cancel()
		}
	}
	return true
}
