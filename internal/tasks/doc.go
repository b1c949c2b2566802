/*
Package tasks runs background work for the album generator.

All work goes through one bounded Pool shared by every batch. A Batch is a
group of tasks started together (adding photos, generating an album,
installing the template) plus one barrier task that waits for all of them,
tears down shared resources and reports every failure in a single message.

# Batch lifecycle

	b := orch.Begin("generate", steps)    // populating; the orchestrator is busy
	dir := b.Submit("create_directory", "photos", nil, mkdir)
	b.Submit("resize", name, dir, resize) // runs only after dir has finished
	b.Start(func(results []tasks.TaskResult) {
		// every task has finished here, whatever its outcome
	})

A task may name one predecessor. It will not run its function until the
predecessor has finished, whether it succeeded, failed or was cancelled.
Chains are how directories are created before anything is written into
them.

Work that may run in parallel but must publish its result in order does
not name a predecessor. Each task keeps the previous task's handle and
calls its Wait only after its own slow part is done:

	var prev *tasks.Task
	for _, src := range sources {
		before := prev
		prev = b.Submit("add_photo", src.Name, nil, func(ctx context.Context) error {
			p, err := load(ctx, src) // runs concurrently
			if before != nil {
				before.Wait() // orders the append
			}
			if err == nil {
				appendPhoto(p)
			}
			return err
		})
	}

This is how photos are loaded concurrently yet appended in submission
order.

# Cancellation

Cancellation is cooperative. Orchestrator.Cancel marks every task that has
not started so the pool skips it, waits for the tasks that are already
running, and then forces the orchestrator idle. Barriers are never
cancelled: each one still waits for its batch and still releases the
batch's resources.

# Outcomes

Every task finishes with exactly one Outcome. Failures never stop sibling
tasks, and Cancelled results are not failures: Failures and Aggregate skip
them.
*/
package tasks
