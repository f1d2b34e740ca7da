package chordring

import (
	"context"
	"time"
)

// StartStabilizers launches the three periodic maintenance loops spec §4.1
// calls out — stabilize, fix_fingers, check_predecessor — each ticking at
// its own interval until ctx is canceled. One call per ring per process.
func (n *Node) StartStabilizers(ctx context.Context, stabilizeInterval, fixFingersInterval, checkPredecessorInterval time.Duration) {
	go n.tickLoop(ctx, stabilizeInterval, "stabilize", func() { n.Stabilize(ctx) })
	go n.tickLoop(ctx, fixFingersInterval, "fix_fingers", func() { n.FixFingers(ctx) })
	go n.tickLoop(ctx, checkPredecessorInterval, "check_predecessor", func() { n.CheckPredecessor(ctx) })
}

func (n *Node) tickLoop(ctx context.Context, interval time.Duration, name string, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			n.lgr.Info(name + " loop stopped")
			return
		case <-ticker.C:
			fn()
		}
	}
}
