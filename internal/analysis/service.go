// SPDX-License-Identifier: MIT
package analysis

import (
	"context"

	"bandfx/internal/pcm"
	"bandfx/internal/result"
)

// Service fronts a Pipeline with a result cache keyed by track identity.
type Service struct {
	pipeline *Pipeline
	cache    *result.Cache
}

// NewService returns a Service. A nil cache disables caching.
func NewService(p *Pipeline, cache *result.Cache) *Service {
	return &Service{pipeline: p, cache: cache}
}

// Load returns a completed Task when a valid result for id is cached,
// otherwise it starts analysis and caches the result on success.
// Failures leave the cache untouched so consumers see no data.
func (s *Service) Load(ctx context.Context, id string, buf *pcm.Buffer) *Task {
	if s.cache != nil {
		if res, ok := s.cache.Get(id); ok {
			logger.Debugf("cache hit for %q", id)
			return Completed(res)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &Task{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(t.done)
		defer cancel()
		t.res, t.err = s.pipeline.Analyze(ctx, buf)
		if t.err != nil {
			logger.Warnf("analysis of %q failed: %v", id, t.err)
			return
		}
		if s.cache != nil {
			if err := s.cache.Put(id, t.res); err != nil {
				logger.Debugf("not caching %q: %v", id, err)
			}
		}
	}()
	return t
}
