package datasource

import (
	"context"

	"github.com/campusapp/go-campusdata/logger"
)

// FallbackSource tries primary and, if it fails for any reason, returns
// whatever secondary produces. The primary is never retried and its error
// is never returned.
type FallbackSource struct {
	primary   ContentSource
	secondary ContentSource
	logger    logger.Logger
}

var _ ContentSource = (*FallbackSource)(nil)

func NewFallback(log logger.Logger, primary, secondary ContentSource) *FallbackSource {
	return &FallbackSource{
		primary:   primary,
		secondary: secondary,
		logger:    log.WithPrefix("[fallback]"),
	}
}

func (s *FallbackSource) Fetch(ctx context.Context) ([]byte, error) {
	data, err := s.primary.Fetch(ctx)
	if err == nil {
		return data, nil
	}
	s.logger.Warn("primary source failed, using fallback: %s", err)
	return s.secondary.Fetch(ctx)
}
