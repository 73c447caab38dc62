//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

// Spork creates a child process of the caller that runs entry(arg) at
// the priority. The new process runs immediately if its priority is
// higher than the caller's.
func (kern *Kernel) Spork(name string, entry EntryFunc, arg any,
	stackSize, priority int) (PID, error) {

	old := kern.enter("spork")

	if stackSize < MinStack {
		kern.leave(old)
		return 0, ErrStackTooSmall
	}
	if priority < HighestPriority || priority > LowestPriority ||
		len(name) == 0 || len(name) >= MaxName || entry == nil {
		kern.leave(old)
		return 0, ErrInvalidArgument
	}
	proc, err := kern.allocProc()
	if err != nil {
		kern.leave(old)
		return 0, err
	}
	proc.name = name
	proc.priority = priority
	proc.entry = entry
	proc.arg = arg
	proc.stack = make([]byte, stackSize)
	proc.ctx, err = kern.m.ContextInit(kern.trampoline(proc), proc.stack)
	if err != nil {
		kern.panicf("spork: %v", err)
	}
	proc.state = StateRunnable
	if kern.current != nil {
		kern.addChild(kern.current, proc)
	}
	pid := proc.pid
	kern.ktraceSpork(proc)
	kern.runq.push(proc)

	kern.preempt()
	kern.leave(old)

	return pid, nil
}

// Join waits for a child to quit, stores its exit status to status,
// reclaims the child and returns its pid.
func (kern *Kernel) Join(status *int) (PID, error) {
	old := kern.enter("join")

	if status == nil {
		kern.leave(old)
		return 0, ErrNullOutput
	}
	cur := kern.current
	if cur.firstChild < 0 {
		kern.leave(old)
		return 0, ErrNoChildren
	}
	for {
		for _, child := range kern.children(cur) {
			if child.state != StateZombie {
				continue
			}
			pid := child.pid
			*status = child.exitStatus
			kern.removeChild(cur, child)
			kern.reclaim(child)
			kern.leave(old)
			return pid, nil
		}
		cur.state = StateBlockedOnJoin
		kern.ktraceBlock(cur)
		kern.dispatch()
	}
}

// Quit terminates the caller with the exit status. Children that have
// quit but were never joined are reclaimed. It is a fatal error to
// quit while any child is still alive. Quit never returns.
func (kern *Kernel) Quit(status int) {
	kern.enter("quit")

	cur := kern.current
	if cur.parent < 0 {
		kern.panicf("quit: root process %d cannot quit", cur.pid)
	}
	children := kern.children(cur)
	for _, child := range children {
		if child.state != StateZombie {
			kern.panicf("ERROR: Process pid %d called quit() while it still had children.",
				cur.pid)
		}
	}
	for _, child := range children {
		kern.removeChild(cur, child)
		kern.reclaim(child)
	}

	cur.state = StateZombie
	cur.exitStatus = status
	kern.ktraceQuit(cur)

	parent := kern.procAt(cur.parent)
	if parent.state == StateBlockedOnJoin {
		kern.wake(parent)
	}
	for _, pid := range cur.zappers {
		zapper := kern.lookup(pid)
		if zapper != nil && zapper.state == StateBlocked &&
			zapper.blockReason == blockZap {
			kern.wake(zapper)
		}
	}
	cur.zappers = nil

	kern.dispatch()
	kern.panicf("quit: zombie process %d resumed", cur.pid)
}

// Zap blocks the caller until the process pid quits.
func (kern *Kernel) Zap(pid PID) {
	old := kern.enter("zap")

	cur := kern.current
	if pid == cur.pid {
		kern.panicf("ERROR: Attempt to zap() itself.")
	}
	if pid == kern.rootPID {
		kern.panicf("ERROR: Attempt to zap() init.")
	}
	target := kern.lookup(pid)
	if target == nil {
		kern.panicf("ERROR: Attempt to zap() a non-existent process.")
	}
	if target.state == StateZombie {
		kern.panicf("ERROR: Attempt to zap() a process that is already in the process of dying.")
	}
	target.zappers = append(target.zappers, cur.pid)
	kern.block(blockZap)

	kern.leave(old)
}

// IsZapped reports whether any process is waiting in Zap for the
// caller to quit.
func (kern *Kernel) IsZapped() bool {
	old := kern.enter("isZapped")
	zapped := len(kern.current.zappers) > 0
	kern.leave(old)
	return zapped
}

// BlockMe blocks the caller with the reason until another process
// unblocks it with UnblockProc. The reason must be at least
// MinBlockReason.
func (kern *Kernel) BlockMe(reason int) {
	old := kern.enter("blockMe")

	if reason < MinBlockReason {
		kern.panicf("blockMe: invalid block reason %d", reason)
	}
	kern.block(reason)

	kern.leave(old)
}

// UnblockProc makes the process blocked in BlockMe runnable.
func (kern *Kernel) UnblockProc(pid PID) error {
	old := kern.enter("unblockProc")

	proc := kern.lookup(pid)
	if proc == nil || proc.state != StateBlocked ||
		proc.blockReason < MinBlockReason {
		kern.leave(old)
		return ErrNotBlocked
	}
	kern.wake(proc)
	kern.preempt()

	kern.leave(old)
	return nil
}

// Getpid returns the pid of the current process.
func (kern *Kernel) Getpid() PID {
	if kern.current == nil {
		return 0
	}
	return kern.current.pid
}

// block blocks the current process with the reason and runs the
// dispatcher. It returns after the process has been woken.
func (kern *Kernel) block(reason int) {
	cur := kern.current
	cur.state = StateBlocked
	cur.blockReason = reason
	kern.ktraceBlock(cur)
	kern.dispatch()
}

// wake makes the blocked process runnable.
func (kern *Kernel) wake(proc *Process) {
	proc.state = StateRunnable
	proc.blockReason = 0
	kern.ktraceWake(proc)
	kern.runq.push(proc)
}
