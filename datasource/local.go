package datasource

import (
	"context"
	"io/fs"
	"path"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/campusapp/go-campusdata/logger"
)

// LocalSource reads a bundled asset from a file system, normally an embed.FS.
type LocalSource struct {
	assets fs.FS
	name   string
	path   string
	logger logger.Logger
}

var _ ContentSource = (*LocalSource)(nil)

// AssetPath maps a resource name to its path in the asset file system.
// A name without an extension refers to a JSON asset.
func AssetPath(name string) string {
	p := path.Clean(strings.TrimPrefix(name, "/"))
	if path.Ext(p) == "" {
		p += ".json"
	}
	return p
}

// NewLocal returns a source reading name from assets.
func NewLocal(log logger.Logger, assets fs.FS, name string) *LocalSource {
	return &LocalSource{
		assets: assets,
		name:   name,
		path:   AssetPath(name),
		logger: log.WithPrefix("[local]"),
	}
}

// Name returns the asset name the source was built with.
func (s *LocalSource) Name() string {
	return s.name
}

func (s *LocalSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := canceled(ctx); err != nil {
		return nil, err
	}
	if s.assets == nil {
		s.logger.Error("no bundled assets configured for %s", s.name)
		return nil, FileNotFound(s.name)
	}
	data, err := fs.ReadFile(s.assets, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			s.logger.Error("local file not found: %s", s.name)
			return nil, FileNotFound(s.name)
		}
		s.logger.Error("local file %s unreadable: %s", s.name, err)
		return nil, Unknown(errors.Wrapf(err, "read %s", s.path))
	}
	s.logger.Debug("loaded from local bundle: %s (%d bytes)", s.name, len(data))
	return data, nil
}
