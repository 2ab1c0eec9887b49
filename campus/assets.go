package campus

import (
	"embed"
	"io/fs"
)

//go:embed assets/*.json
var embedded embed.FS

// Assets holds the bundled copies of every resource, rooted so that
// "guides.json" names the bundled guides.
var Assets fs.FS = mustSub(embedded, "assets")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
