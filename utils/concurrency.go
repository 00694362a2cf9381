package utils

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

var GOMAXPROCS = min(runtime.GOMAXPROCS(0), runtime.NumCPU())

// SplitWork runs do for every index in [0, workSize) across routines goroutines.
// routines <= 0 means GOMAXPROCS minus -routines, at least one.
// init is called once per routine before any work is handed out.
// The first error returned by do stops the routine that produced it and is returned.
func SplitWork(routines int, workSize uint64, do func(workIndex uint64, routineIndex int) error, init func(routines, routineIndex int) error) error {
	if routines <= 0 {
		routines = max(GOMAXPROCS+routines, 1)
	}

	if workSize < uint64(routines) {
		routines = max(int(workSize), 1)
	}

	if init == nil {
		init = func(int, int) error {
			return nil
		}
	}

	if routines == 1 {
		if err := init(routines, 0); err != nil {
			return err
		}

		for workIndex := range workSize {
			if err := do(workIndex, 0); err != nil {
				return err
			}
		}
		return nil
	}

	for routineIndex := range routines {
		if err := init(routines, routineIndex); err != nil {
			return err
		}
	}

	var counter atomic.Uint64
	var eg errgroup.Group

	for routineIndex := range routines {
		eg.Go(func() error {
			for {
				workIndex := counter.Add(1)
				if workIndex > workSize {
					return nil
				}

				if err := do(workIndex-1, routineIndex); err != nil {
					return err
				}
			}
		})
	}
	return eg.Wait()
}
