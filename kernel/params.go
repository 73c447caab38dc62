//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package kernel

import (
	"time"

	"go.uber.org/zap"
)

// DefaultQuantum defines the default time slice of same-priority
// processes.
const DefaultQuantum = 80 * time.Millisecond

// Params define kernel parameters.
type Params struct {
	Trace   bool
	Verbose bool
	Quantum time.Duration
	Logger  *zap.Logger
}
