// Package memory keeps in-process image decoding within a memory budget.
//
// Full-resolution photos decode to tens of megabytes each, and with many
// worker threads the pure Go and libvips converters can exhaust a
// container's memory long before the external ImageMagick converter would.
//
// # Configuration
//
// [ConfigureLimit] sets GOMEMLIMIT from the environment. It should run
// before any photos are decoded:
//
//   - GOMEMLIMIT: standard Go variable. If set it takes precedence.
//   - DYPHAL_MEMORY_LIMIT: memory available to dyphal, in bytes.
//   - DYPHAL_MEMORY_RATIO: share of DYPHAL_MEMORY_LIMIT given to the Go
//     heap, between 0 and 1. Defaults to 0.75; the remainder is left for
//     libvips and the external tools.
//
// # Backpressure
//
// A [Guard] samples the heap periodically. Once allocation passes the
// critical mark it pauses callers of [Guard.Wait] until allocation drops
// below the high mark again:
//
//	guard := memory.NewGuard(memory.DefaultConfig())
//	guard.Start()
//	defer guard.Stop()
//
//	if err := guard.Wait(ctx); err != nil {
//	    return err
//	}
//	// decode the photo
package memory
