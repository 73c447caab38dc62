//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/markkurossi/usloss/machine"
)

const runTimeout = 10 * time.Second

type testEnv struct {
	kern    *Kernel
	clock   *clock.Mock
	console *bytes.Buffer
}

func newTestEnv(params *Params) *testEnv {
	env := &testEnv{
		clock:   clock.NewMock(),
		console: new(bytes.Buffer),
	}
	m := machine.New(&machine.Params{
		Clock:   env.clock,
		Console: env.console,
	})
	env.kern = New(m, params)
	return env
}

// run runs main on the kernel and returns the halt status and cause.
func (env *testEnv) run(t *testing.T, main EntryFunc) (int, error) {
	t.Helper()

	type result struct {
		status int
		err    error
	}
	c := make(chan result, 1)
	go func() {
		status, err := env.kern.Run(main, nil)
		c <- result{status, err}
	}()
	select {
	case r := <-c:
		return r.status, r.err
	case <-time.After(runTimeout):
		t.Fatalf("kernel did not halt in %v", runTimeout)
		return 0, nil
	}
}

func (env *testEnv) expectHalt(t *testing.T, main EntryFunc, msg string) {
	t.Helper()
	status, err := env.run(t, main)
	if status != 1 {
		t.Errorf("status=%v, expected 1", status)
	}
	if err == nil || !strings.Contains(err.Error(), msg) {
		t.Errorf("cause=%v, expected %q", err, msg)
	}
}

func TestRunExitStatus(t *testing.T) {
	env := newTestEnv(nil)
	status, err := env.run(t, func(arg any) int {
		return 7
	})
	if err != nil {
		t.Errorf("Run failed: %v", err)
	}
	if status != 7 {
		t.Errorf("status=%v, expected 7", status)
	}
}

func TestSporkValidation(t *testing.T) {
	env := newTestEnv(nil)
	kern := env.kern
	entry := func(arg any) int { return 0 }

	tests := []struct {
		name     string
		entry    EntryFunc
		stack    int
		priority int
		err      error
	}{
		{"small", entry, MinStack - 1, 3, ErrStackTooSmall},
		{"small", entry, MinStack - 1, 0, ErrStackTooSmall},
		{"prio0", entry, MinStack, 0, ErrInvalidArgument},
		{"prio6", entry, MinStack, RootPriority, ErrInvalidArgument},
		{"", entry, MinStack, 3, ErrInvalidArgument},
		{strings.Repeat("x", MaxName), entry, MinStack, 3, ErrInvalidArgument},
		{"noentry", nil, MinStack, 3, ErrInvalidArgument},
	}
	env.run(t, func(arg any) int {
		for i, test := range tests {
			pid, err := kern.Spork(test.name, test.entry, nil, test.stack,
				test.priority)
			if !errors.Is(err, test.err) {
				t.Errorf("test-%v: Spork=%v, expected %v", i, err, test.err)
			}
			if pid != 0 {
				t.Errorf("test-%v: pid=%v, expected 0", i, pid)
			}
		}
		return 0
	})
}

func TestPreemption(t *testing.T) {
	env := newTestEnv(nil)
	kern := env.kern
	var trace []string

	env.run(t, func(arg any) int {
		trace = append(trace, "main")
		_, err := kern.Spork("low", func(arg any) int {
			trace = append(trace, "low")
			return 0
		}, nil, MinStack, 4)
		if err != nil {
			t.Errorf("Spork failed: %v", err)
		}
		trace = append(trace, "spork-low")

		_, err = kern.Spork("high", func(arg any) int {
			trace = append(trace, "high")
			for _, pid := range kern.runq.pids(1) {
				if pid == kern.Getpid() {
					t.Errorf("running process %v is queued", pid)
				}
			}
			return 0
		}, nil, MinStack, 1)
		if err != nil {
			t.Errorf("Spork failed: %v", err)
		}
		trace = append(trace, "spork-high")

		var status int
		for i := 0; i < 2; i++ {
			if _, err := kern.Join(&status); err != nil {
				t.Errorf("Join failed: %v", err)
			}
		}
		trace = append(trace, "joined")
		return 0
	})

	expected := []string{"main", "spork-low", "high", "spork-high", "low",
		"joined"}
	if !reflect.DeepEqual(trace, expected) {
		t.Errorf("trace=%v, expected %v", trace, expected)
	}
}

func TestJoin(t *testing.T) {
	env := newTestEnv(nil)
	kern := env.kern

	env.run(t, func(arg any) int {
		if _, err := kern.Join(nil); !errors.Is(err, ErrNullOutput) {
			t.Errorf("Join(nil)=%v, expected %v", err, ErrNullOutput)
		}
		var status int
		if _, err := kern.Join(&status); !errors.Is(err, ErrNoChildren) {
			t.Errorf("Join=%v, expected %v", err, ErrNoChildren)
		}

		var pids []PID
		for i := 0; i < 3; i++ {
			pid, err := kern.Spork("child", func(arg any) int {
				return 10 + arg.(int)
			}, i, MinStack, 4)
			if err != nil {
				t.Errorf("Spork failed: %v", err)
			}
			pids = append(pids, pid)
		}
		for i := 0; i < 3; i++ {
			pid, err := kern.Join(&status)
			if err != nil {
				t.Errorf("Join failed: %v", err)
			}
			if pid != pids[i] {
				t.Errorf("Join=%v, expected %v", pid, pids[i])
			}
			if status != 10+i {
				t.Errorf("status=%v, expected %v", status, 10+i)
			}
			if kern.lookup(pid) != nil {
				t.Errorf("joined process %v not reclaimed", pid)
			}
		}
		if _, err := kern.Join(&status); !errors.Is(err, ErrNoChildren) {
			t.Errorf("Join=%v, expected %v", err, ErrNoChildren)
		}
		return 0
	})
}

func TestProcessTableFull(t *testing.T) {
	env := newTestEnv(nil)
	kern := env.kern

	env.run(t, func(arg any) int {
		var count int
		for {
			_, err := kern.Spork("child", func(arg any) int {
				return 0
			}, nil, MinStack, LowestPriority)
			if err != nil {
				if !errors.Is(err, ErrTableFull) {
					t.Errorf("Spork=%v, expected %v", err, ErrTableFull)
				}
				break
			}
			count++
		}
		if count != MaxProc-2 {
			t.Errorf("sporked %v, expected %v", count, MaxProc-2)
		}
		var status int
		for i := 0; i < count; i++ {
			if _, err := kern.Join(&status); err != nil {
				t.Errorf("Join failed: %v", err)
			}
		}
		_, err := kern.Spork("again", func(arg any) int {
			return 0
		}, nil, MinStack, LowestPriority)
		if err != nil {
			t.Errorf("Spork after joins failed: %v", err)
		}
		kern.Join(&status)
		return 0
	})
}

func TestPIDReuse(t *testing.T) {
	env := newTestEnv(nil)
	kern := env.kern

	env.run(t, func(arg any) int {
		seen := make(map[PID]bool)
		var status int
		for i := 0; i < 2*MaxProc; i++ {
			pid, err := kern.Spork("child", func(arg any) int {
				return 0
			}, nil, MinStack, 2)
			if err != nil {
				t.Errorf("Spork failed: %v", err)
				break
			}
			if seen[pid] {
				t.Errorf("pid %v reused", pid)
			}
			seen[pid] = true
			if _, err := kern.Join(&status); err != nil {
				t.Errorf("Join failed: %v", err)
			}
		}
		return 0
	})
}

func TestQuitWithChildrenHalts(t *testing.T) {
	env := newTestEnv(nil)
	kern := env.kern

	env.expectHalt(t, func(arg any) int {
		kern.Spork("child", func(arg any) int {
			return 0
		}, nil, MinStack, LowestPriority)
		return 0
	}, "still had children")

	if !strings.Contains(env.console.String(), "child") {
		t.Errorf("console does not show process table:\n%s",
			env.console.String())
	}
}

func TestQuitReapsZombies(t *testing.T) {
	env := newTestEnv(nil)
	kern := env.kern
	var grandchild PID

	env.run(t, func(arg any) int {
		kern.Spork("child", func(arg any) int {
			grandchild, _ = kern.Spork("grandchild", func(arg any) int {
				return 0
			}, nil, MinStack, 1)
			return 0
		}, nil, MinStack, 2)

		if kern.lookup(grandchild) != nil {
			t.Errorf("zombie grandchild %v not reclaimed", grandchild)
		}
		var status int
		if _, err := kern.Join(&status); err != nil {
			t.Errorf("Join failed: %v", err)
		}
		return 0
	})
}

func TestZap(t *testing.T) {
	env := newTestEnv(nil)
	kern := env.kern
	var trace []string

	env.run(t, func(arg any) int {
		child, _ := kern.Spork("child", func(arg any) int {
			trace = append(trace, "child")
			if !kern.IsZapped() {
				t.Errorf("IsZapped=false, expected true")
			}
			return 3
		}, nil, MinStack, LowestPriority)

		if kern.IsZapped() {
			t.Errorf("IsZapped=true, expected false")
		}
		kern.Zap(child)
		trace = append(trace, "zapped")

		var status int
		pid, err := kern.Join(&status)
		if err != nil || pid != child || status != 3 {
			t.Errorf("Join=%v,%v,%v, expected %v,nil,3", pid, err, status,
				child)
		}
		return 0
	})

	expected := []string{"child", "zapped"}
	if !reflect.DeepEqual(trace, expected) {
		t.Errorf("trace=%v, expected %v", trace, expected)
	}
}

func TestZapErrors(t *testing.T) {
	tests := []struct {
		name string
		pid  func(kern *Kernel) PID
		msg  string
	}{
		{"self", func(kern *Kernel) PID { return kern.Getpid() }, "itself"},
		{"init", func(kern *Kernel) PID { return kern.rootPID }, "init"},
		{"unknown", func(kern *Kernel) PID { return 4711 }, "non-existent"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env := newTestEnv(nil)
			kern := env.kern
			env.expectHalt(t, func(arg any) int {
				kern.Zap(test.pid(kern))
				return 0
			}, test.msg)
		})
	}
}

func TestBlockMe(t *testing.T) {
	env := newTestEnv(nil)
	kern := env.kern
	var trace []string

	env.run(t, func(arg any) int {
		child, _ := kern.Spork("child", func(arg any) int {
			trace = append(trace, "block")
			kern.BlockMe(20)
			trace = append(trace, "unblocked")
			return 0
		}, nil, MinStack, 2)

		proc := kern.lookup(child)
		if proc.State() != StateBlocked {
			t.Errorf("state=%v, expected %v", proc.State(), StateBlocked)
		}
		if err := kern.UnblockProc(kern.Getpid()); !errors.Is(err, ErrNotBlocked) {
			t.Errorf("UnblockProc(self)=%v, expected %v", err, ErrNotBlocked)
		}
		if err := kern.UnblockProc(4711); !errors.Is(err, ErrNotBlocked) {
			t.Errorf("UnblockProc(4711)=%v, expected %v", err, ErrNotBlocked)
		}
		trace = append(trace, "unblock")
		if err := kern.UnblockProc(child); err != nil {
			t.Errorf("UnblockProc failed: %v", err)
		}
		trace = append(trace, "main")

		var status int
		kern.Join(&status)
		return 0
	})

	expected := []string{"block", "unblock", "unblocked", "main"}
	if !reflect.DeepEqual(trace, expected) {
		t.Errorf("trace=%v, expected %v", trace, expected)
	}
}

func TestBlockMeReservedReason(t *testing.T) {
	env := newTestEnv(nil)
	kern := env.kern

	env.expectHalt(t, func(arg any) int {
		kern.BlockMe(MinBlockReason - 1)
		return 0
	}, "invalid block reason")
}

func TestDeadlockHalts(t *testing.T) {
	env := newTestEnv(nil)
	kern := env.kern

	env.expectHalt(t, func(arg any) int {
		kern.BlockMe(20)
		return 0
	}, "no runnable processes")
}

func TestUserModeHalts(t *testing.T) {
	env := newTestEnv(nil)
	kern := env.kern

	env.expectHalt(t, func(arg any) int {
		m := kern.Machine()
		m.SetPSR(m.PSR() &^ machine.PsrCurrentMode)
		kern.Spork("child", func(arg any) int {
			return 0
		}, nil, MinStack, 3)
		return 0
	}, "user mode")
}

func TestTimeSlice(t *testing.T) {
	env := newTestEnv(nil)
	kern := env.kern
	var trace []string
	var cpuTime int

	worker := func(arg any) int {
		for i := 0; i < 6; i++ {
			trace = append(trace, arg.(string))
			env.clock.Add(30 * time.Millisecond)
			kern.Dispatcher()
		}
		if arg.(string) == "A" {
			cpuTime = kern.ReadTime()
		}
		return 0
	}

	env.run(t, func(arg any) int {
		kern.Spork("A", worker, "A", MinStack, 4)
		kern.Spork("B", worker, "B", MinStack, 4)
		var status int
		kern.Join(&status)
		kern.Join(&status)
		return 0
	})

	expected := strings.Split("AAABBBAAABBB", "")
	if !reflect.DeepEqual(trace, expected) {
		t.Errorf("trace=%v, expected %v", trace, expected)
	}
	if cpuTime != 180 {
		t.Errorf("ReadTime=%v, expected 180", cpuTime)
	}
}

func TestCurrentTime(t *testing.T) {
	env := newTestEnv(nil)
	kern := env.kern

	env.run(t, func(arg any) int {
		start := kern.CurrentTime()
		env.clock.Add(1500 * time.Microsecond)
		if d := kern.CurrentTime() - start; d != 1500 {
			t.Errorf("CurrentTime delta=%v, expected 1500", d)
		}
		if kern.ReadCurStartTime() > start {
			t.Errorf("ReadCurStartTime=%v after %v", kern.ReadCurStartTime(),
				start)
		}
		return 0
	})
}

func TestDumpProcesses(t *testing.T) {
	env := newTestEnv(nil)
	kern := env.kern

	env.run(t, func(arg any) int {
		kern.DumpProcesses()
		return 0
	})
	out := env.console.String()
	for _, s := range []string{"PID", "init", "main", "Running"} {
		if !strings.Contains(out, s) {
			t.Errorf("DumpProcesses output missing %q:\n%s", s, out)
		}
	}
}

func TestJoinGrandchild(t *testing.T) {
	env := newTestEnv(nil)
	kern := env.kern

	status, err := env.run(t, func(arg any) int {
		child, err := kern.Spork("B", func(arg any) int {
			return 7
		}, nil, MinStack, 2)
		if err != nil {
			t.Errorf("Spork failed: %v", err)
		}
		var st int
		pid, err := kern.Join(&st)
		if err != nil || pid != child || st != 7 {
			t.Errorf("Join=%v,%v,%v, expected %v,nil,7", pid, err, st, child)
		}
		return 0
	})
	if err != nil || status != 0 {
		t.Errorf("Run=%v,%v, expected 0,nil", status, err)
	}
}
