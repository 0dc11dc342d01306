package mailer

import (
	"embed"
	"io/fs"
)

//go:embed templates
var embedded embed.FS

// DefaultFS holds the built-in sign-in template ("signin.md") and
// layout ("layouts/base.html").
var DefaultFS fs.FS = mustSub(embedded, "templates")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
