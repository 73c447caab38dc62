//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package machine

import (
	"fmt"
)

// PSR defines the processor status register.
type PSR uint8

// PSR bits.
const (
	PsrCurrentMode PSR = 1 << iota
	PsrCurrentInt
	PsrPrevMode
	PsrPrevInt
)

// KernelMode tests if the register has the kernel mode bit set.
func (psr PSR) KernelMode() bool {
	return psr&PsrCurrentMode != 0
}

// Interrupts tests if the register has interrupts enabled.
func (psr PSR) Interrupts() bool {
	return psr&PsrCurrentInt != 0
}

// trap moves the current mode and interrupt bits to the previous
// bits and enters kernel mode with interrupts disabled.
func (psr PSR) trap() PSR {
	prev := (psr & (PsrCurrentMode | PsrCurrentInt)) << 2
	return prev | PsrCurrentMode
}

func (psr PSR) String() string {
	mode := "user"
	if psr.KernelMode() {
		mode = "kernel"
	}
	ints := "off"
	if psr.Interrupts() {
		ints = "on"
	}
	return fmt.Sprintf("0x%02x(%s,int=%s)", uint8(psr), mode, ints)
}

// PSR returns the current processor status register.
func (m *Machine) PSR() PSR {
	return m.psr
}

// SetPSR sets the processor status register. Enabling interrupts
// delivers any pending interrupts.
func (m *Machine) SetPSR(psr PSR) {
	enabling := !m.psr.Interrupts() && psr.Interrupts()
	m.psr = psr
	if enabling {
		m.Poll()
	}
}

// Trap enters kernel mode with interrupts disabled and returns the
// previous register value for Return.
func (m *Machine) Trap() PSR {
	old := m.psr
	m.psr = old.trap()
	return old
}

// Return restores the register saved by Trap.
func (m *Machine) Return(old PSR) {
	m.SetPSR(old)
}
