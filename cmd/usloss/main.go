//
// Copyright (c) 2023-2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/markkurossi/usloss/kernel"
	"github.com/markkurossi/usloss/machine"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	kern     *kernel.Kernel
	logger   *zap.Logger
	workers  int
	messages int
	ticks    int
)

func main() {
	fVerbose := flag.Bool("v", false, "verbose output")
	ktrace := flag.Bool("ktrace", false, "kernel trace")
	fQuantum := flag.Duration("quantum", kernel.DefaultQuantum,
		"time slice of same-priority processes")
	fTick := flag.Duration("tick", 20*time.Millisecond, "clock interval")
	flag.IntVar(&workers, "workers", 4, "number of producer processes")
	flag.IntVar(&messages, "messages", 10, "messages per producer")
	flag.IntVar(&ticks, "ticks", 3, "clock reports to wait for")
	flag.Parse()

	log.SetFlags(0)

	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	switch {
	case *ktrace:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case *fVerbose:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	var err error
	logger, err = cfg.Build()
	if err != nil {
		log.Fatal(err)
	}

	m := machine.New(&machine.Params{
		Console:       os.Stdout,
		ClockInterval: *fTick,
	})
	kern = kernel.New(m, &kernel.Params{
		Trace:   *ktrace,
		Verbose: *fVerbose,
		Quantum: *fQuantum,
		Logger:  logger,
	})

	fmt.Printf("USLOSS kernel: %d producers, %d messages each\n",
		workers, messages)

	m.StartClock()
	status, err := kern.Run(start, *fVerbose)
	if err != nil {
		log.Printf("kernel halted: %+v", err)
	}
	logger.Sync()
	os.Exit(status)
}

// start runs the demo workload: producers of different priorities
// send messages to one consumer while a clock process samples the
// clock device.
func start(arg any) int {
	verbose := arg.(bool)

	mbox, err := kern.MboxCreate(5, 64)
	if err != nil {
		logger.Error("MboxCreate", zap.Error(err))
		return 1
	}

	_, err = kern.Spork("consumer", consumer, mbox, kernel.MinStack, 2)
	if err != nil {
		logger.Error("spork consumer", zap.Error(err))
		return 1
	}
	_, err = kern.Spork("clock", clockWatcher, nil, kernel.MinStack, 1)
	if err != nil {
		logger.Error("spork clock", zap.Error(err))
		return 1
	}
	for i := 0; i < workers; i++ {
		priority := 3 + i%2
		_, err = kern.Spork(fmt.Sprintf("producer%d", i), producer, mbox,
			kernel.MinStack, priority)
		if err != nil {
			logger.Error("spork producer", zap.Int("producer", i),
				zap.Error(err))
			break
		}
	}
	if verbose {
		kern.DumpProcesses()
	}

	var failed bool
	for {
		var status int
		pid, err := kern.Join(&status)
		if err != nil {
			break
		}
		logger.Info("joined", zap.Int32("pid", int32(pid)),
			zap.Int("status", status))
		if status != 0 {
			failed = true
		}
	}
	kern.MboxRelease(mbox)
	if verbose {
		kern.DumpMailboxes()
	}
	if failed {
		return 1
	}
	return 0
}

func producer(arg any) int {
	mbox := arg.(kernel.MboxID)
	pid := kern.Getpid()

	for i := 0; i < messages; i++ {
		msg := fmt.Sprintf("pid %d message %d", pid, i)
		err := kern.MboxSend(mbox, []byte(msg))
		if err != nil {
			logger.Error("MboxSend", zap.Error(err))
			return 1
		}
		kern.Dispatcher()
	}
	return 0
}

func consumer(arg any) int {
	mbox := arg.(kernel.MboxID)
	buf := make([]byte, kernel.MaxMessage)

	for i := 0; i < workers*messages; i++ {
		n, err := kern.MboxRecv(mbox, buf)
		if err != nil {
			logger.Error("MboxRecv", zap.Error(err))
			return 1
		}
		fmt.Printf("%8d: %s\n", kern.CurrentTime(), buf[:n])
	}
	return 0
}

func clockWatcher(arg any) int {
	for i := 0; i < ticks; i++ {
		status, err := kern.WaitDevice(machine.DevClock, 0)
		if err != nil {
			logger.Error("WaitDevice", zap.Error(err))
			return 1
		}
		fmt.Printf("%8d: clock %d\n", kern.CurrentTime(), status)
	}
	return 0
}
