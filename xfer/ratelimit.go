package xfer

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// newBandwidthLimiter creates a rate.Limiter that caps aggregate copy
// throughput to bytesPerSec, shared across a CopyFiles/MoveFiles call's
// worker pool. Burst is capped to 1 MiB so normal chunk sizes pass through
// without needless blocking on small reads.
func newBandwidthLimiter(bytesPerSec int64) *rate.Limiter {
	burst := 1 << 20
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// rateLimitedReader wraps an io.Reader and throttles reads against a shared
// limiter, used for the bandwidth-limited copy path in place of the
// OS-accelerated fd-to-fd path (which has no hook to throttle).
type rateLimitedReader struct {
	r       io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

func newRateLimitedReader(ctx context.Context, r io.Reader, limiter *rate.Limiter) *rateLimitedReader {
	return &rateLimitedReader{r: r, limiter: limiter, ctx: ctx}
}

func (rl *rateLimitedReader) Read(p []byte) (int, error) {
	// WaitN rejects counts above the burst, so read at most one burst.
	if b := rl.limiter.Burst(); len(p) > b {
		p = p[:b]
	}
	n, err := rl.r.Read(p)
	if n > 0 {
		if waitErr := rl.limiter.WaitN(rl.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}
