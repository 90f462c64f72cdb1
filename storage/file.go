package storage

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// file is a JSON document rewritten in full on every mutation.
type file struct {
	path string
	lock sync.RWMutex
}

func newFile(path string) *file {
	return &file{path: path}
}

// read decodes the file into v; a missing file leaves v untouched.
func (f *file) read(v interface{}) error {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.loadExisting(v)
}

// update loads v, applies fn, and writes the result back.
func (f *file) update(v interface{}, fn func() error) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if err := f.loadExisting(v); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return f.store(v)
}

func (f *file) loadExisting(v interface{}) error {
	in, err := ioutil.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "can't read %s", f.path)
	}
	if len(in) == 0 {
		return nil
	}

	return errors.Wrapf(jsoniter.Unmarshal(in, v), "can't parse %s", f.path)
}

func (f *file) store(v interface{}) error {
	out, err := jsoniter.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := ioutil.WriteFile(tmp, out, 0600); err != nil {
		return errors.Wrapf(err, "can't write %s", tmp)
	}
	return errors.Wrapf(os.Rename(tmp, f.path), "can't replace %s", f.path)
}

func (f *file) remove() error {
	f.lock.Lock()
	defer f.lock.Unlock()

	err := os.Remove(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func ensureDir(dir string) error {
	return errors.Wrapf(os.MkdirAll(filepath.Clean(dir), 0700), "can't create %s", dir)
}
