package engine

import "time"

// Start launches the background eviction ticker. Safe to call once per
// engine; pair with Stop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.done != nil {
		e.mu.Unlock()
		return
	}
	done := make(chan struct{})
	e.done = done
	e.mu.Unlock()

	go func() {
		ticker := time.NewTicker(e.cfg.EvictionInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.EvictStale()
			case <-done:
				return
			}
		}
	}()
}

// Stop shuts down the background ticker and the change watcher.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.done != nil {
		close(e.done)
		e.done = nil
	}
	e.mu.Unlock()
	e.closeWatcher()
}

// EvictStale runs one eviction pass. Overlapping triggers (the periodic
// ticker plus the opportunistic per-access checks) coalesce into a single
// in-flight sweep.
func (e *Engine) EvictStale() {
	e.evictGroup.Do("sweep", func() (any, error) {
		e.sweep(time.Now().Add(-e.cfg.CacheTTL))
		return nil, nil
	})
}

// sweep removes every path idle since before cutoff from all four per-path
// maps and closes its reader asynchronously.
func (e *Engine) sweep(cutoff time.Time) {
	type victim struct {
		path   string
		reader Reader
		idle   time.Duration
	}

	e.mu.Lock()
	var victims []victim
	for path, last := range e.lastAccess {
		if !last.Before(cutoff) {
			continue
		}
		victims = append(victims, victim{
			path:   path,
			reader: e.readers[path],
			idle:   time.Since(last),
		})
		delete(e.readers, path)
		delete(e.caches, path)
		delete(e.statuses, path)
		delete(e.lastAccess, path)
	}
	// Status queries create records without an access timestamp; drop them
	// here so paths that are only ever status-polled do not accumulate.
	for path := range e.statuses {
		if _, ok := e.lastAccess[path]; !ok {
			delete(e.statuses, path)
		}
	}
	e.mu.Unlock()

	for _, v := range victims {
		e.unwatchPath(v.path)
		e.logger.Info("evicted idle bundle", "path", v.path, "idle", v.idle)
		if v.reader == nil {
			continue
		}
		go func(v victim) {
			if err := v.reader.Close(); err != nil {
				e.logger.Warn("closing evicted reader", "path", v.path, "error", err)
			}
		}(v)
	}
}

// Invalidate drops all cached state for path immediately, regardless of
// idle time. Used by the change watcher when the underlying file changes.
func (e *Engine) Invalidate(path string) {
	e.mu.Lock()
	r := e.readers[path]
	delete(e.readers, path)
	delete(e.caches, path)
	delete(e.statuses, path)
	delete(e.lastAccess, path)
	e.mu.Unlock()

	e.unwatchPath(path)
	if r != nil {
		go func() {
			if err := r.Close(); err != nil {
				e.logger.Warn("closing invalidated reader", "path", path, "error", err)
			}
		}()
	}
}
