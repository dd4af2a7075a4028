// Package process implements the process registry and job table from
// spec section 4.7: PID allocation, status lifecycle, job IDs, reaping
// and cancellation. Grounded on minimega's pattern of a single global
// lock guarding a small set of maps (minicli's handlers/history globals),
// adapted here into a struct so each session owns its own registry
// instead of sharing process-global state (spec section 9).
package process

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the process lifecycle state from spec section 3.1.
type Status int

const (
	Running Status = iota
	Sleeping
	Stopped
	Zombie
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Sleeping:
		return "sleeping"
	case Stopped:
		return "stopped"
	case Zombie:
		return "zombie"
	}
	return "unknown"
}

// Signal is the subset of kill(2)-style signals this registry understands.
type Signal int

const (
	SigTerm Signal = iota
	SigKill
	SigStop
	SigCont
)

// Exit codes reserved by the interpreter/process contract (spec section 4.6).
const (
	ExitCancelled = 130
	ExitError     = 1
)

// Process is one tracked command invocation.
type Process struct {
	PID     int
	PPID    int
	JobID   int // 0 if not part of a background job
	Command string
	Args    []string
	Cwd     string
	Env     map[string]string

	Status   Status
	ExitCode *int

	StartTime    time.Time
	IsForeground bool

	Token uuid.UUID

	cancel context.CancelFunc
	ctx    context.Context
}

// Context returns the process's cancellation context; command
// implementations observe ctx.Done() at safe points per spec section 5.
func (p *Process) Context() context.Context { return p.ctx }

// SpawnOptions describes a new process to register.
type SpawnOptions struct {
	Command      string
	Args         []string
	Cwd          string
	Env          map[string]string
	IsForeground bool
	PPID         int

	// Done, if non-nil, is awaited by the registry to auto-transition the
	// process to Zombie once it settles, capturing the resulting exit code.
	Done <-chan int
}

// Job is a job-table entry: one or more PIDs backgrounded together.
type Job struct {
	ID          int
	PIDs        []int
	CommandText string
	Status      Status
	cancel      context.CancelFunc
	ctx         context.Context
}

// Registry owns every Process and Job for one session. PID 1 is reserved
// for the shell itself and is never killable or reapable, per spec
// section 4.7.
type Registry struct {
	mu sync.Mutex

	processes map[int]*Process
	nextPID   int

	jobs     map[int]*Job
	jobOrder []int // insertion order, for %+ / %- resolution
	nextJob  int
}

// New constructs an empty registry. Call RegisterShell once to seed PID 1.
func New() *Registry {
	return &Registry{
		processes: make(map[int]*Process),
		nextPID:   2,
		jobs:      make(map[int]*Job),
		nextJob:   1,
	}
}

// RegisterShell installs PID 1, the shell itself.
func (r *Registry) RegisterShell(cwd string, env map[string]string) *Process {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	p := &Process{
		PID:          1,
		PPID:         0,
		Command:      "shell",
		Cwd:          cwd,
		Env:          env,
		Status:       Running,
		StartTime:    time.Now(),
		IsForeground: true,
		Token:        uuid.New(),
		ctx:          ctx,
		cancel:       cancel,
	}
	r.processes[1] = p
	return p
}

// Spawn registers a new process and returns its PID. If opts.Done is
// provided, a goroutine awaits it and transitions the process to Zombie.
func (r *Registry) Spawn(opts SpawnOptions) int {
	r.mu.Lock()
	ctx, cancel := context.WithCancel(context.Background())
	pid := r.nextPID
	r.nextPID++

	p := &Process{
		PID:          pid,
		PPID:         opts.PPID,
		Command:      opts.Command,
		Args:         opts.Args,
		Cwd:          opts.Cwd,
		Env:          opts.Env,
		Status:       Running,
		StartTime:    time.Now(),
		IsForeground: opts.IsForeground,
		Token:        uuid.New(),
		ctx:          ctx,
		cancel:       cancel,
	}
	r.processes[pid] = p
	r.mu.Unlock()

	if opts.Done != nil {
		go func() {
			code := <-opts.Done
			r.settle(pid, code)
		}()
	}

	return pid
}

func (r *Registry) settle(pid int, code int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.processes[pid]
	if !ok || p.PID == 1 {
		return
	}
	p.Status = Zombie
	p.ExitCode = &code
}

// Settle manually transitions pid to Zombie with the given exit code; used
// by callers that don't plumb a Done channel through Spawn.
func (r *Registry) Settle(pid int, code int) {
	r.settle(pid, code)
}

func (r *Registry) Get(pid int) (*Process, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.processes[pid]
	return p, ok
}

func (r *Registry) GetAll() []*Process {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Process, 0, len(r.processes))
	for _, p := range r.processes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

func (r *Registry) GetRunning() []*Process {
	var out []*Process
	for _, p := range r.GetAll() {
		if p.Status == Running || p.Status == Sleeping {
			out = append(out, p)
		}
	}
	return out
}

func (r *Registry) GetZombies() []*Process {
	var out []*Process
	for _, p := range r.GetAll() {
		if p.Status == Zombie {
			out = append(out, p)
		}
	}
	return out
}

// Kill applies signal to pid. PID 1 is never affected and Kill returns
// false for it. TERM/KILL fire the cancellation token; STOP/CONT just flip
// status.
func (r *Registry) Kill(pid int, sig Signal) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.processes[pid]
	if !ok || pid == 1 {
		return false
	}

	switch sig {
	case SigStop:
		p.Status = Stopped
	case SigCont:
		if p.Status == Stopped {
			p.Status = Running
		}
	case SigTerm, SigKill:
		if p.cancel != nil {
			p.cancel()
		}
	}
	return true
}

// Reap removes pid from the registry if it is a zombie. PID 1 can never be
// reaped.
func (r *Registry) Reap(pid int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.processes[pid]
	if !ok || pid == 1 || p.Status != Zombie {
		return false
	}
	delete(r.processes, pid)
	r.reapFromJobsLocked(pid)
	return true
}

// CollectZombies reaps every zombie process and returns them.
func (r *Registry) CollectZombies() []*Process {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reaped []*Process
	for pid, p := range r.processes {
		if p.Status == Zombie {
			reaped = append(reaped, p)
			delete(r.processes, pid)
			r.reapFromJobsLocked(pid)
		}
	}
	sort.Slice(reaped, func(i, j int) bool { return reaped[i].PID < reaped[j].PID })
	return reaped
}

func (r *Registry) reapFromJobsLocked(pid int) {
	for jid, j := range r.jobs {
		for i, jp := range j.PIDs {
			if jp == pid {
				j.PIDs = append(j.PIDs[:i], j.PIDs[i+1:]...)
				break
			}
		}
		if len(j.PIDs) == 0 {
			delete(r.jobs, jid)
			for i, id := range r.jobOrder {
				if id == jid {
					r.jobOrder = append(r.jobOrder[:i], r.jobOrder[i+1:]...)
					break
				}
			}
		}
	}
}

// UpdateStatus sets pid's status directly (used for Sleeping, which has no
// dedicated signal in spec section 4.7).
func (r *Registry) UpdateStatus(pid int, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.processes[pid]; ok {
		p.Status = status
	}
}

func (r *Registry) GetUptime(pid int) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.processes[pid]
	if !ok {
		return 0, false
	}
	return time.Since(p.StartTime), true
}

// GetFormattedInfo renders the ps(1)-style line from spec section 4.7.
func (r *Registry) GetFormattedInfo(pid int) (string, bool) {
	r.mu.Lock()
	p, ok := r.processes[pid]
	r.mu.Unlock()
	if !ok {
		return "", false
	}

	suffix := ""
	switch p.Status {
	case Zombie:
		suffix = " <defunct>"
	case Stopped:
		suffix = " <stopped>"
	}

	uptime, _ := r.GetUptime(pid)
	cmd := p.Command
	if len(p.Args) > 0 {
		cmd = fmt.Sprintf("%s %v", p.Command, p.Args)
	}

	return fmt.Sprintf("%d pts/0 %s %s %s%s", p.PID, p.Status, uptime.Round(time.Second), cmd, suffix), true
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.processes)
}

// Reset clears all state, PID 1 included; used by tests.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processes = make(map[int]*Process)
	r.nextPID = 2
	r.jobs = make(map[int]*Job)
	r.jobOrder = nil
	r.nextJob = 1
}
