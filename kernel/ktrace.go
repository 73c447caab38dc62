//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"go.uber.org/zap"
)

func (kern *Kernel) ktracef(msg string, fields ...zap.Field) {
	if !kern.params.Trace {
		return
	}
	kern.log.Debug(msg, append(fields,
		zap.Int32("pid", int32(kern.Getpid())),
		zap.Duration("time", kern.m.Now()))...)
}

func (kern *Kernel) ktraceSwitch(prev, next *Process) {
	if !kern.params.Trace {
		return
	}
	var from PID
	if prev != nil {
		from = prev.pid
	}
	kern.ktracef("SWCH",
		zap.Int32("from", int32(from)),
		zap.Int32("to", int32(next.pid)),
		zap.String("name", next.name),
		zap.Int("priority", next.priority))
}

func (kern *Kernel) ktraceSpork(proc *Process) {
	if !kern.params.Trace {
		return
	}
	kern.ktracef("SPRK",
		zap.Int32("child", int32(proc.pid)),
		zap.String("name", proc.name),
		zap.Int("priority", proc.priority))
}

func (kern *Kernel) ktraceQuit(proc *Process) {
	if !kern.params.Trace {
		return
	}
	kern.ktracef("QUIT",
		zap.Int("status", proc.exitStatus),
		zap.Duration("cpu", proc.cpuTime))
}

func (kern *Kernel) ktraceBlock(proc *Process) {
	if !kern.params.Trace {
		return
	}
	kern.ktracef("BLCK", zap.String("state", proc.stateString()))
}

func (kern *Kernel) ktraceWake(proc *Process) {
	if !kern.params.Trace {
		return
	}
	kern.ktracef("WAKE", zap.Int32("proc", int32(proc.pid)))
}

func (kern *Kernel) ktraceMbox(op string, mb *Mailbox) {
	if !kern.params.Trace {
		return
	}
	kern.ktracef("MBOX",
		zap.String("op", op),
		zap.Int32("mbox", int32(mb.id)),
		zap.Int("capacity", mb.capacity),
		zap.Int("slotSize", mb.slotSize),
		zap.Int("queued", mb.queued))
}

func (kern *Kernel) ktraceCall(sys *SysArgs) {
	if !kern.params.Trace {
		return
	}
	const dataLimit = 16

	fields := []zap.Field{
		zap.Stringer("call", sys.Call),
	}
	switch sys.Call {
	case SysSpork:
		fields = append(fields, zap.String("name", sys.Name),
			zap.Int32("stack", sys.Arg1), zap.Int32("priority", sys.Arg2))

	case SysQuit, SysZap, SysMboxRelease:
		fields = append(fields, zap.Int32("arg1", sys.Arg1))

	case SysMboxCreate, SysWaitDevice:
		fields = append(fields, zap.Int32("arg1", sys.Arg1),
			zap.Int32("arg2", sys.Arg2))

	case SysMboxSend, SysMboxCondSend:
		data := sys.ArgBuf
		if len(data) > dataLimit {
			data = data[:dataLimit]
		}
		fields = append(fields, zap.Int32("mbox", sys.Arg1),
			zap.Binary("data", data), zap.Int("len", len(sys.ArgBuf)))

	case SysMboxRecv, SysMboxCondRecv:
		fields = append(fields, zap.Int32("mbox", sys.Arg1),
			zap.Int("size", len(sys.ArgBuf)))
	}
	kern.ktracef("CALL", fields...)
}

func (kern *Kernel) ktraceRet(sys *SysArgs) {
	if !kern.params.Trace {
		return
	}
	fields := []zap.Field{
		zap.Stringer("call", sys.Call),
		zap.Int32("ret", sys.Arg0),
	}
	if sys.Errno != 0 {
		fields = append(fields, zap.Stringer("errno", sys.Errno))
	}
	kern.ktracef("RET", fields...)
}
