package scraper

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// snapshotter archives raw page bodies so a bad extraction day can be
// replayed later. Saving is best effort; archive trouble never fails a run.
type snapshotter struct {
	archiver Archiver
	hasher   Hasher
	clock    Clock
	logger   *zap.Logger
	source   string
	ext      string
}

func (s snapshotter) save(ctx context.Context, body []byte, page int) {
	if s.archiver == nil || s.hasher == nil {
		return
	}
	sum, err := s.hasher.Hash(body)
	if err != nil || len(sum) < 16 {
		s.logger.Warn("snapshot digest failed", zap.String("source", s.source), zap.Error(err))
		return
	}
	name := fmt.Sprintf("%s/%s/page-%03d-%s.%s",
		s.source, s.clock.Now().UTC().Format("2006-01-02"), page, sum[:16], s.ext)
	if err := s.archiver.Save(ctx, name, body); err != nil {
		s.logger.Warn("snapshot archive failed",
			zap.String("source", s.source), zap.String("object", name), zap.Error(err))
	}
}
