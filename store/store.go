// Package store persists the tunnel group document as a single JSON file.
//
// Every call reads or rewrites the whole file. The store keeps nothing in memory and takes no
// locks: two read-modify-write cycles that interleave lose one update, and the last writer wins.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/bytedance/sonic"
	"github.com/moyoez/speeder2raw-web/faults"
	"github.com/moyoez/speeder2raw-web/tool"
	"github.com/moyoez/speeder2raw-web/types"
)

const (
	DefaultRemoteHost = "1.2.3.4"
	DefaultPassword   = "password123"
)

// Store reads and writes the document at a fixed path.
type Store struct {
	path string
}

// New returns a store backed by path. The file is created on the first Read if it is missing.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// DefaultDocument is written when no config file exists yet.
func DefaultDocument() *types.RootDocument {
	return &types.RootDocument{
		Global: types.GlobalConfig{
			RemoteHost: DefaultRemoteHost,
			Password:   DefaultPassword,
		},
		Groups: []types.Group{},
	}
}

// Read loads the document, creating it with defaults when the file does not exist.
func (s *Store) Read() (*types.RootDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s.createDefault()
		}
		return nil, faults.New(faults.KindConfigRead, fmt.Errorf("read %s: %w", s.path, err))
	}
	return decode(s.path, data)
}

// Write replaces the file content with doc.
func (s *Store) Write(doc *types.RootDocument) error {
	data, err := encode(doc)
	if err != nil {
		return faults.New(faults.KindConfigWrite, err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		tool.DefaultLogger.Errorf("[Store] Failed to write config file: %v", err)
		return faults.New(faults.KindConfigWrite, fmt.Errorf("write %s: %w", s.path, err))
	}
	return nil
}

// createDefault writes the default document with O_EXCL so that only one caller creates the file.
// A caller that loses the race reads what the winner wrote.
func (s *Store) createDefault() (*types.RootDocument, error) {
	doc := DefaultDocument()
	data, err := encode(doc)
	if err != nil {
		return nil, faults.New(faults.KindConfigWrite, err)
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return s.Read()
		}
		return nil, faults.New(faults.KindConfigWrite, fmt.Errorf("create %s: %w", s.path, err))
	}
	_, werr := f.Write(data)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return nil, faults.New(faults.KindConfigWrite, fmt.Errorf("write %s: %w", s.path, werr))
	}
	tool.DefaultLogger.Infof("[Store] Created default config file: %s", s.path)
	return doc, nil
}

func encode(doc *types.RootDocument) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("nil document")
	}
	out := *doc
	if out.Groups == nil {
		out.Groups = []types.Group{}
	}
	data, err := sonic.ConfigStd.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func decode(path string, data []byte) (*types.RootDocument, error) {
	var doc types.RootDocument
	if err := sonic.ConfigStd.Unmarshal(data, &doc); err != nil {
		tool.DefaultLogger.Errorf("[Store] Failed to parse config file %s: %v", path, err)
		return nil, faults.New(faults.KindConfigRead, fmt.Errorf("parse %s: %w", path, err))
	}
	if doc.Groups == nil {
		doc.Groups = []types.Group{}
	}
	return &doc, nil
}
