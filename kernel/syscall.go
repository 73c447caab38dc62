//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"fmt"

	"github.com/markkurossi/usloss/machine"
)

// Syscall defines system calls.
type Syscall uint8

func (call Syscall) String() string {
	name, ok := syscallNames[call]
	if ok {
		return name
	}
	return fmt.Sprintf("{Syscall %d}", call)
}

// Process system calls.
const (
	SysSpork Syscall = iota + 1
	SysJoin
	SysQuit
	SysZap
	SysGetpid
	SysGetTimeOfDay
	SysCPUTime
)

// Mailbox system calls.
const (
	SysMboxCreate Syscall = iota + 100
	SysMboxRelease
	SysMboxSend
	SysMboxRecv
	SysMboxCondSend
	SysMboxCondRecv
	SysWaitDevice
)

var syscallNames = map[Syscall]string{
	SysSpork:        "spork",
	SysJoin:         "join",
	SysQuit:         "quit",
	SysZap:          "zap",
	SysGetpid:       "getpid",
	SysGetTimeOfDay: "gettimeofday",
	SysCPUTime:      "cputime",

	SysMboxCreate:   "mboxcreate",
	SysMboxRelease:  "mboxrelease",
	SysMboxSend:     "mboxsend",
	SysMboxRecv:     "mboxrecv",
	SysMboxCondSend: "mboxcondsend",
	SysMboxCondRecv: "mboxcondrecv",
	SysWaitDevice:   "waitdevice",
}

// SysArgs holds system call arguments and results. Arg1 and Arg2 are
// integer arguments, ArgBuf the message or receive buffer. On return
// Arg0 holds the result value and Errno the error code, or 0 on
// success.
type SysArgs struct {
	Call   Syscall
	Arg0   int32
	Arg1   int32
	Arg2   int32
	ArgBuf []byte
	Name   string
	Entry  EntryFunc
	Arg    any
	Errno  Errno
}

func (sys *SysArgs) setError(err error) {
	if err == nil {
		sys.Errno = 0
		return
	}
	sys.Errno = Errno(-mapError(err))
	sys.Arg0 = -1
}

type syscallHandler func(kern *Kernel, sys *SysArgs)

var syscalls = [...]syscallHandler{
	SysSpork:        sysSpork,
	SysJoin:         sysJoin,
	SysQuit:         sysQuit,
	SysZap:          sysZap,
	SysGetpid:       sysGetpid,
	SysGetTimeOfDay: sysGetTimeOfDay,
	SysCPUTime:      sysCPUTime,

	SysMboxCreate:   sysMboxCreate,
	SysMboxRelease:  sysMboxRelease,
	SysMboxSend:     sysMboxSend,
	SysMboxRecv:     sysMboxRecv,
	SysMboxCondSend: sysMboxCondSend,
	SysMboxCondRecv: sysMboxCondRecv,
	SysWaitDevice:   sysWaitDevice,
}

// Syscall traps into kernel mode and executes the system call. It
// returns to the caller's previous mode.
func (kern *Kernel) Syscall(sys *SysArgs) {
	old := kern.m.Trap()
	kern.ktraceCall(sys)

	var handler syscallHandler
	if int(sys.Call) < len(syscalls) {
		handler = syscalls[sys.Call]
	}
	if handler == nil {
		kern.nullsys(sys, old)
	}
	handler(kern, sys)

	kern.ktraceRet(sys)
	kern.m.Return(old)
}

func (kern *Kernel) nullsys(sys *SysArgs, psr machine.PSR) {
	kern.panicf("nullsys(): Program called an unimplemented syscall.  syscall no: %d   PSR: %v",
		sys.Call, psr)
}

func sysSpork(kern *Kernel, sys *SysArgs) {
	pid, err := kern.Spork(sys.Name, sys.Entry, sys.Arg, int(sys.Arg1),
		int(sys.Arg2))
	sys.Arg0 = int32(pid)
	sys.setError(err)
}

func sysJoin(kern *Kernel, sys *SysArgs) {
	var status int
	pid, err := kern.Join(&status)
	sys.Arg0 = int32(pid)
	sys.Arg1 = int32(status)
	sys.setError(err)
}

func sysQuit(kern *Kernel, sys *SysArgs) {
	kern.Quit(int(sys.Arg1))
}

func sysZap(kern *Kernel, sys *SysArgs) {
	kern.Zap(PID(sys.Arg1))
	sys.Arg0 = 0
	sys.setError(nil)
}

func sysGetpid(kern *Kernel, sys *SysArgs) {
	sys.Arg0 = int32(kern.Getpid())
	sys.setError(nil)
}

func sysGetTimeOfDay(kern *Kernel, sys *SysArgs) {
	sys.Arg0 = int32(kern.CurrentTime())
	sys.setError(nil)
}

func sysCPUTime(kern *Kernel, sys *SysArgs) {
	sys.Arg0 = int32(kern.ReadTime())
	sys.setError(nil)
}

func sysMboxCreate(kern *Kernel, sys *SysArgs) {
	id, err := kern.MboxCreate(int(sys.Arg1), int(sys.Arg2))
	sys.Arg0 = int32(id)
	sys.setError(err)
}

func sysMboxRelease(kern *Kernel, sys *SysArgs) {
	err := kern.MboxRelease(MboxID(sys.Arg1))
	sys.Arg0 = 0
	sys.setError(err)
}

func sysMboxSend(kern *Kernel, sys *SysArgs) {
	err := kern.MboxSend(MboxID(sys.Arg1), sys.ArgBuf)
	sys.Arg0 = 0
	sys.setError(err)
}

func sysMboxRecv(kern *Kernel, sys *SysArgs) {
	n, err := kern.MboxRecv(MboxID(sys.Arg1), sys.ArgBuf)
	sys.Arg0 = int32(n)
	sys.setError(err)
}

func sysMboxCondSend(kern *Kernel, sys *SysArgs) {
	err := kern.MboxCondSend(MboxID(sys.Arg1), sys.ArgBuf)
	sys.Arg0 = 0
	sys.setError(err)
}

func sysMboxCondRecv(kern *Kernel, sys *SysArgs) {
	n, err := kern.MboxCondRecv(MboxID(sys.Arg1), sys.ArgBuf)
	sys.Arg0 = int32(n)
	sys.setError(err)
}

func sysWaitDevice(kern *Kernel, sys *SysArgs) {
	status, err := kern.WaitDevice(machine.Device(sys.Arg1), int(sys.Arg2))
	sys.Arg0 = int32(status)
	sys.setError(err)
}
