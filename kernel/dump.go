//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"fmt"
	"io"
	"time"

	"github.com/markkurossi/tabulate"
)

// DumpProcesses prints the process table to the machine console.
func (kern *Kernel) DumpProcesses() {
	kern.dumpProcesses(kern.m.Console())
}

func (kern *Kernel) dumpProcesses(w io.Writer) {
	tab := tabulate.New(tabulate.Unicode)
	tab.Header("PID").SetAlign(tabulate.MR)
	tab.Header("PPID").SetAlign(tabulate.MR)
	tab.Header("NAME").SetAlign(tabulate.ML)
	tab.Header("PRIORITY").SetAlign(tabulate.MR)
	tab.Header("STATE").SetAlign(tabulate.ML)
	tab.Header("CPU").SetAlign(tabulate.MR)

	for i := range kern.procs {
		proc := &kern.procs[i]
		if proc.state == StateFree {
			continue
		}
		var ppid PID
		if parent := kern.procAt(proc.parent); parent != nil {
			ppid = parent.pid
		}
		row := tab.Row()
		row.Column(fmt.Sprintf("%d", proc.pid))
		row.Column(fmt.Sprintf("%d", ppid))
		row.Column(proc.name)
		row.Column(fmt.Sprintf("%d", proc.priority))
		row.Column(proc.stateString())
		row.Column(proc.cpuTime.Round(time.Millisecond).String())
	}
	tab.Print(w)
}

// DumpMailboxes prints the mailbox table to the machine console.
func (kern *Kernel) DumpMailboxes() {
	kern.dumpMailboxes(kern.m.Console())
}

func (kern *Kernel) dumpMailboxes(w io.Writer) {
	tab := tabulate.New(tabulate.Unicode)
	tab.Header("MBOX").SetAlign(tabulate.MR)
	tab.Header("CAPACITY").SetAlign(tabulate.MR)
	tab.Header("SLOTSIZE").SetAlign(tabulate.MR)
	tab.Header("QUEUED").SetAlign(tabulate.MR)
	tab.Header("PRODUCERS").SetAlign(tabulate.MR)
	tab.Header("CONSUMERS").SetAlign(tabulate.MR)

	for i := range kern.mboxes {
		mb := &kern.mboxes[i]
		if !mb.inUse {
			continue
		}
		row := tab.Row()
		row.Column(fmt.Sprintf("%d", mb.id))
		row.Column(fmt.Sprintf("%d", mb.capacity))
		row.Column(fmt.Sprintf("%d", mb.slotSize))
		row.Column(fmt.Sprintf("%d", mb.queued))
		row.Column(fmt.Sprintf("%d", mb.producers.count))
		row.Column(fmt.Sprintf("%d", mb.consumers.count))
	}
	tab.Print(w)
	fmt.Fprintf(w, "slots in use: %d/%d\n", kern.slots.inUse, MaxSlots)
}
