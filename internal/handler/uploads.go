package handler

import (
	"io/fs"
	"net/http"
	"strings"
)

// Uploads serves stored attachments read-only from dir under prefix.
// Directory requests return 404 instead of a listing.
func Uploads(prefix, dir string) http.Handler {
	prefix = "/" + strings.Trim(prefix, "/")
	return http.StripPrefix(prefix, http.FileServer(noListingFS{http.Dir(dir)}))
}

// noListingFS hides directories from http.FileServer.
type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}
