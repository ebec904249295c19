package app

import (
	"embed"
	"io/fs"
)

//go:embed web/*.html
var pagesFS embed.FS

// EmbeddedPages returns the dashboard pages compiled into the binary.
func EmbeddedPages() fs.FS {
	sub, err := fs.Sub(pagesFS, "web")
	if err != nil {
		// embed guarantees the directory exists at build time
		panic(err)
	}
	return sub
}
