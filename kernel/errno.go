//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"errors"
	"fmt"
)

// Errno defines error numbers.
type Errno int32

// Error numbers.
const (
	EPERM    Errno = 1
	ESRCH    Errno = 3
	EBADF    Errno = 9
	ECHILD   Errno = 10
	EAGAIN   Errno = 11
	EFAULT   Errno = 14
	EINVAL   Errno = 22
	ENFILE   Errno = 23
	ENOSPC   Errno = 28
	ERANGE   Errno = 34
	ENOSYS   Errno = 38
	EMSGSIZE Errno = 40
	EIDRM    Errno = 43
	EPROCLIM Errno = 67
	ESTACK   Errno = 100
	ENOTBLK  Errno = 101
)

// Recoverable kernel errors.
const (
	ErrInvalidArgument = EINVAL
	ErrStackTooSmall   = ESTACK
	ErrTableFull       = EPROCLIM
	ErrNullOutput      = EFAULT
	ErrNoChildren      = ECHILD
	ErrNotBlocked      = ENOTBLK
	ErrNoSuchProcess   = ESRCH
	ErrMboxTableFull   = ENFILE
	ErrNoSlots         = ENOSPC
	ErrInvalidMailbox  = EBADF
	ErrMessageTooLarge = EMSGSIZE
	ErrBufferTooSmall  = ERANGE
	ErrWouldBlock      = EAGAIN
	ErrMailboxReleased = EIDRM
	ErrNotImplemented  = ENOSYS
)

func (err Errno) Error() string {
	return err.Description()
}

func (err Errno) String() string {
	name, ok := errnoNames[err]
	if ok {
		desc, ok := errnoDescriptions[err]
		if ok {
			return name + " " + desc
		}
		return name
	}
	return fmt.Sprintf("{Errno %d}", err)
}

// Description returns a short description about the error code.
func (err Errno) Description() string {
	desc, ok := errnoDescriptions[err]
	if ok {
		return desc
	}
	return fmt.Sprintf("{Errno %d}", err)
}

var errnoNames = map[Errno]string{
	EPERM:    "EPERM",
	ESRCH:    "ESRCH",
	EBADF:    "EBADF",
	ECHILD:   "ECHILD",
	EAGAIN:   "EAGAIN",
	EFAULT:   "EFAULT",
	EINVAL:   "EINVAL",
	ENFILE:   "ENFILE",
	ENOSPC:   "ENOSPC",
	ERANGE:   "ERANGE",
	ENOSYS:   "ENOSYS",
	EMSGSIZE: "EMSGSIZE",
	EIDRM:    "EIDRM",
	EPROCLIM: "EPROCLIM",
	ESTACK:   "ESTACK",
	ENOTBLK:  "ENOTBLK",
}

var errnoDescriptions = map[Errno]string{
	EPERM:    "Operation not permitted",
	ESRCH:    "No such process",
	EBADF:    "Bad mailbox descriptor",
	ECHILD:   "No child processes",
	EAGAIN:   "Resource temporarily unavailable",
	EFAULT:   "Bad address",
	EINVAL:   "Invalid argument",
	ENFILE:   "Mailbox table full",
	ENOSPC:   "No mail slots left",
	ERANGE:   "Result too large for buffer",
	ENOSYS:   "Function not implemented",
	EMSGSIZE: "Message too long",
	EIDRM:    "Mailbox released",
	EPROCLIM: "Too many processes",
	ESTACK:   "Stack too small",
	ENOTBLK:  "Process not blocked",
}

// mapError maps the error into a negative error number for system
// call results.
func mapError(err error) int32 {
	if err == nil {
		return 0
	}
	var errno Errno
	if errors.As(err, &errno) {
		return int32(-errno)
	}
	return int32(-EINVAL)
}
