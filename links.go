package compositefs

import (
	"os"

	"github.com/spf13/afero"
)

// Lstat returns file info without following a final symlink when the backing fs supports it
func (a *AferoFS) Lstat(p string) (os.FileInfo, error) {
	if lstater, ok := a.fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(a.real(p))
		return info, err
	}
	return a.fs.Stat(a.real(p))
}

// Lexists reports whether p exists, counting dangling symlinks as present
func (a *AferoFS) Lexists(p string) (bool, error) {
	_, err := a.Lstat(p)
	if err == nil {
		return true, nil
	}
	if isNotExist(err) {
		return false, nil
	}
	return false, err
}

// Readlink returns the destination of the symlink p
func (a *AferoFS) Readlink(p string) (string, error) {
	if reader, ok := a.fs.(afero.LinkReader); ok {
		return reader.ReadlinkIfPossible(a.real(p))
	}
	return "", pathError("readlink", cleanPath(p), ErrUnsupported)
}

// Symlink creates newname pointing at oldname
func (a *AferoFS) Symlink(oldname, newname string) error {
	if linker, ok := a.fs.(afero.Linker); ok {
		return linker.SymlinkIfPossible(oldname, a.real(newname))
	}
	return pathError("symlink", cleanPath(newname), ErrUnsupported)
}
