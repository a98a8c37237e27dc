// Package sitefs holds small helpers over the billy filesystem rooted at a
// photoblog checkout.
package sitefs

import (
	"errors"
	"os"

	"github.com/go-git/go-billy/v5"
)

// Exists reports whether name exists (file or directory).
func Exists(fs billy.Basic, name string) bool {
	_, err := fs.Stat(name)
	return err == nil
}

// IsDir reports whether name exists and is a directory.
func IsDir(fs billy.Basic, name string) bool {
	fi, err := fs.Stat(name)
	return err == nil && fi.IsDir()
}

// IsNotExist reports whether err means a missing file.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
