/*
Package runner schedules inbound events onto a Dialogue.

Every participant gets a FIFO mailbox. Events for one participant are applied
strictly in arrival order, while different participants proceed concurrently.
A mailbox goroutine is started on demand and exits once its queue drains, so
idle participants cost nothing.

The runner is also the last line of defence in front of the engine: it
sanitizes inbound text, recovers panics and turns store faults into a polite
"try again" reply.

# Usage

	r := runner.New(engine,
		runner.WithLogger(logger),
		runner.WithCatalog(engine.Catalog()),
	)
	defer r.Close(ctx)

	r.Submit(ctx, "42", domain.TextEvent("/fillform"), func(reply domain.Reply, err error) {
		// send reply back to the transport
	})
*/
package runner
