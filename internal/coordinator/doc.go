// Package coordinator schedules Beestat polls and publishes snapshots.
//
// The coordinator runs the poll cycle: a timer tick fetches thermostat.read
// through an injected beestat.Caller, the payload is normalized into a
// thermostat.Snapshot, diffed against the cached one, cached, and delivered
// to subscribers as an Update.
//
// # States
//
//	Idle ──tick──▶ Fetching ──ok──────▶ Ready
//	                  │    ──transport/api/normalize──▶ Unavailable
//	                  └────auth───────▶ Halted (until Reconfigure)
//
// On failure the cached snapshot is kept and re-published flagged
// unavailable. Retry happens on the next tick at the fixed interval; there
// is no backoff. An authentication failure stops the timer.
//
// # Usage
//
//	c, err := coordinator.New(coordinator.Options{Client: client, Interval: 5 * time.Minute})
//	unsubscribe := c.Subscribe(func(u coordinator.Update) { ... })
//	if err := c.Start(ctx); err != nil {
//	    // errors.Is(err, beestat.ErrAuth)
//	}
//	defer c.Stop()
package coordinator
