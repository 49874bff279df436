package nodebuilder

import (
	"context"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/raulk/go-watchdog"
	"go.uber.org/fx"
)

const (
	// heapProfileThreshold is the share of memory in use at which a heap profile is captured.
	heapProfileThreshold = 0.9
	heapProfileCaptures  = 10
	watchdogFrequency    = 5 * time.Second
)

var (
	// watchdog is process wide, so tests running several Nodes must start it only once
	onceWatchdog = sync.Once{}
	logWatchdog  = logging.Logger("watchdog")
)

// invokeWatchdog starts the memory watchdog forcing GC as the system memory usage climbs through
// the watermarks. Heap profiles are saved into pprofdir once usage crosses heapProfileThreshold.
func invokeWatchdog(pprofdir string) func(lc fx.Lifecycle) error {
	return func(lc fx.Lifecycle) (errOut error) {
		onceWatchdog.Do(func() {
			watchdog.Logger = logWatchdog
			watchdog.HeapProfileDir = pprofdir
			watchdog.HeapProfileMaxCaptures = heapProfileCaptures
			watchdog.HeapProfileThreshold = heapProfileThreshold

			policy := watchdog.NewWatermarkPolicy(0.50, 0.60, 0.70, 0.85, 0.90, 0.925, 0.95)
			err, stop := watchdog.SystemDriven(0, watchdogFrequency, policy)
			if err != nil {
				errOut = err
				return
			}

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					stop()
					return nil
				},
			})
		})
		return
	}
}
