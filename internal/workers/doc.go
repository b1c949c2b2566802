/*
Package workers sizes the background task pool.

The generator runs every background step (metadata extraction, resizing,
thumbnailing, file copies, uploads) on one shared pool. Most of those steps
spend their time waiting on an external process or on disk, so the default
pool is twice the number of usable CPUs, capped at MaxThreads.

GOMAXPROCS is used rather than runtime.NumCPU so that container CPU limits
are respected:

	// Returns 2 on a 64-core host when the cgroup allows 2 CPUs
	n := runtime.GOMAXPROCS(0)

# Usage

	threads := workers.DefaultThreads()
	if cfg.Threads != 0 && workers.Valid(cfg.Threads) {
		threads = cfg.Threads
	}

# Environment

DYPHAL_THREADS pins the worker count regardless of CPU count, still subject
to the limit passed by the caller.
*/
package workers
