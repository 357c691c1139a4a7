// Package web serves the embedded browser front end. The page is a plain
// HTTP client of the API: it keeps the bearer token in sessionStorage and
// has no business logic of its own.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var assets embed.FS

func Handler() http.Handler {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
