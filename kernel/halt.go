//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// panicf reports a fatal kernel error, dumps the kernel tables to the
// console and halts the machine with status 1. It never returns.
func (kern *Kernel) panicf(format string, a ...interface{}) {
	err := errors.Errorf(format, a...)

	kern.log.Error("kernel panic",
		zap.Error(err),
		zap.Int32("pid", int32(kern.Getpid())))

	console := kern.m.Console()
	fmt.Fprintf(console, "%v\n", err)
	kern.dumpProcesses(console)
	kern.dumpMailboxes(console)

	kern.m.Halt(1, err)
}
