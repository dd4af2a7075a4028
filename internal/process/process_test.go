package process

import "testing"

func TestPID1Invariance(t *testing.T) {
	r := New()
	r.RegisterShell("/", map[string]string{})

	if r.Kill(1, SigTerm) {
		t.Fatal("kill(1) should return false")
	}
	if r.Reap(1) {
		t.Fatal("reap(1) should return false")
	}
	p, ok := r.Get(1)
	if !ok || p.Status != Running {
		t.Fatal("PID 1 should remain running")
	}
}

func TestSpawnAndReapClosure(t *testing.T) {
	r := New()
	r.RegisterShell("/", nil)

	pid := r.Spawn(SpawnOptions{Command: "echo", IsForeground: true})
	r.Settle(pid, 0)

	zs := r.GetZombies()
	if len(zs) != 1 || zs[0].PID != pid {
		t.Fatalf("expected pid %d to be a zombie, got %v", pid, zs)
	}

	reaped := r.CollectZombies()
	if len(reaped) != 1 {
		t.Fatalf("expected 1 reaped process, got %d", len(reaped))
	}
	if len(r.GetZombies()) != 0 {
		t.Fatal("no process should remain a zombie after CollectZombies")
	}
}

func TestKillFiresCancellation(t *testing.T) {
	r := New()
	r.RegisterShell("/", nil)
	pid := r.Spawn(SpawnOptions{Command: "sleep", IsForeground: true})

	p, _ := r.Get(pid)
	select {
	case <-p.Context().Done():
		t.Fatal("context should not be cancelled yet")
	default:
	}

	r.Kill(pid, SigTerm)

	select {
	case <-p.Context().Done():
	default:
		t.Fatal("context should be cancelled after kill")
	}
}

func TestStopCont(t *testing.T) {
	r := New()
	r.RegisterShell("/", nil)
	pid := r.Spawn(SpawnOptions{Command: "sleep", IsForeground: true})

	r.Kill(pid, SigStop)
	p, _ := r.Get(pid)
	if p.Status != Stopped {
		t.Fatalf("expected Stopped, got %v", p.Status)
	}

	r.Kill(pid, SigCont)
	p, _ = r.Get(pid)
	if p.Status != Running {
		t.Fatalf("expected Running, got %v", p.Status)
	}
}

func TestJobLifecycle(t *testing.T) {
	r := New()
	r.RegisterShell("/", nil)

	pid1 := r.Spawn(SpawnOptions{Command: "sleep", IsForeground: false})
	pid2 := r.Spawn(SpawnOptions{Command: "sleep", IsForeground: false})
	id := r.Background([]int{pid1, pid2}, "sleep 1 & sleep 2 &")

	j, ok := r.GetByJobID(id)
	if !ok || len(j.PIDs) != 2 {
		t.Fatalf("expected job with 2 pids, got %v", j)
	}

	r.Settle(pid1, 0)
	r.Reap(pid1)

	j, ok = r.GetByJobID(id)
	if !ok || len(j.PIDs) != 1 {
		t.Fatalf("expected job to shrink to 1 pid, got %v", j)
	}

	r.Settle(pid2, 0)
	r.Reap(pid2)

	if _, ok := r.GetByJobID(id); ok {
		t.Fatal("job should be gone once all its pids are reaped")
	}
}

func TestPIDsMonotonicStartingAt2(t *testing.T) {
	r := New()
	r.RegisterShell("/", nil)

	pid1 := r.Spawn(SpawnOptions{Command: "a"})
	pid2 := r.Spawn(SpawnOptions{Command: "b"})
	if pid1 != 2 || pid2 != 3 {
		t.Fatalf("expected pids 2,3, got %d,%d", pid1, pid2)
	}
}
