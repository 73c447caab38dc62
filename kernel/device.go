//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"encoding/binary"

	"github.com/markkurossi/usloss/machine"
	"go.uber.org/zap"
)

var (
	bo = binary.BigEndian
)

const (
	numDeviceMboxes = machine.ClockUnits + machine.DiskUnits +
		machine.TermUnits

	// The clock handler reports every clockSendInterval ticks.
	clockSendInterval = 5

	statusSize = 4
)

// initDevices creates the device mailboxes and installs the interrupt
// handlers.
func (kern *Kernel) initDevices() {
	for dev := machine.DevClock; dev < machine.NumDevices; dev++ {
		for unit := 0; unit < dev.Units(); unit++ {
			id, err := kern.mboxCreate(1, statusSize)
			if err != nil {
				kern.panicf("device %v.%d: %v", dev, unit, err)
			}
			kern.devMboxes[dev] = append(kern.devMboxes[dev], id)
		}
	}
	kern.m.IntVec[machine.DevClock] = kern.clockHandler
	kern.m.IntVec[machine.DevDisk] = kern.deviceHandler
	kern.m.IntVec[machine.DevTerm] = kern.deviceHandler
}

func (kern *Kernel) clockHandler(dev machine.Device, unit, status int) {
	kern.clockTicks++
	if kern.clockTicks%clockSendInterval == 0 {
		kern.deviceSend(dev, unit, status)
	}
	kern.handlerDispatch()
}

func (kern *Kernel) deviceHandler(dev machine.Device, unit, status int) {
	kern.deviceSend(dev, unit, status)
	kern.handlerDispatch()
}

// deviceSend reports the device status to the device mailbox without
// blocking. A status is dropped if the previous one is still unread.
func (kern *Kernel) deviceSend(dev machine.Device, unit, status int) {
	if unit < 0 || unit >= len(kern.devMboxes[dev]) {
		kern.log.Warn("interrupt from unknown unit",
			zap.Stringer("device", dev), zap.Int("unit", unit))
		return
	}
	var buf [statusSize]byte
	bo.PutUint32(buf[:], uint32(int32(status)))

	kern.inHandler = true
	err := kern.send(kern.devMboxes[dev][unit], buf[:], true)
	kern.inHandler = false

	if err != nil && kern.params.Verbose {
		kern.log.Debug("device status dropped",
			zap.Stringer("device", dev), zap.Int("unit", unit),
			zap.Error(err))
	}
}

// handlerDispatch runs the dispatcher at the end of an interrupt
// unless the kernel is idling, in which case the idle loop selects the
// next process itself.
func (kern *Kernel) handlerDispatch() {
	if kern.idle || kern.current == nil {
		return
	}
	kern.dispatch()
}

// WaitDevice waits for the next interrupt of the device unit and
// returns its status.
func (kern *Kernel) WaitDevice(dev machine.Device, unit int) (int, error) {
	old := kern.enter("waitDevice")

	if dev < 0 || dev >= machine.NumDevices ||
		unit < 0 || unit >= len(kern.devMboxes[dev]) {
		kern.leave(old)
		return 0, ErrInvalidArgument
	}
	var buf [statusSize]byte

	kern.devWaiters++
	_, err := kern.recv(kern.devMboxes[dev][unit], buf[:], false)
	kern.devWaiters--

	kern.leave(old)
	if err != nil {
		return 0, err
	}
	return int(int32(bo.Uint32(buf[:]))), nil
}

// DeviceMbox returns the mailbox receiving the device unit's status.
func (kern *Kernel) DeviceMbox(dev machine.Device, unit int) (MboxID, error) {
	if dev < 0 || dev >= machine.NumDevices ||
		unit < 0 || unit >= len(kern.devMboxes[dev]) {
		return -1, ErrInvalidArgument
	}
	return kern.devMboxes[dev][unit], nil
}
