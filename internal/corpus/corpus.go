// Package corpus maps a directory tree of mined SQL files onto
// processing units: files attributed to repositories and users, grouped
// per repository or taken one file at a time.
package corpus

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// UnitMode selects the processing-unit granularity.
type UnitMode string

const (
	// UnitRepo groups every file of one repository into a unit.
	UnitRepo UnitMode = "repo"
	// UnitFile makes each file its own unit.
	UnitFile UnitMode = "file"
)

// File is one SQL source attributed to its repository and user.
type File struct {
	Path string // absolute path on disk
	Rel  string // path relative to the corpus root
	Repo string
	User string
}

// Unit is one schedulable work item: the files that share a catalog.
type Unit struct {
	// Key identifies the unit across runs: the repository name in repo
	// mode, the relative file path in file mode.
	Key   string
	Repo  string
	User  string
	Files []File
}

// Layout is a scanned corpus directory.
type Layout struct {
	Root  string
	Files []File
}

var sqlExtensions = map[string]bool{
	".sql": true,
	".ddl": true,
	".dml": true,
}

// Scan walks root for SQL files. Attribution comes from the manifest
// when one matches, otherwise from the <user>/<repo>/... directory
// convention. Files directly under root fall into a repository named
// after the root directory.
func Scan(root string, manifest *Manifest) (*Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving corpus root: %w", err)
	}

	layout := &Layout{Root: abs}
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != abs {
				return filepath.SkipDir
			}
			return nil
		}
		if !sqlExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		f := File{Path: path, Rel: filepath.ToSlash(rel)}
		if manifest != nil {
			if repo, user, ok := manifest.Lookup(f.Rel); ok {
				f.Repo, f.User = repo, user
			}
		}
		if f.Repo == "" {
			f.User, f.Repo = Attribute(f.Rel, filepath.Base(abs))
		}
		layout.Files = append(layout.Files, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning corpus: %w", err)
	}

	sort.Slice(layout.Files, func(i, j int) bool {
		return layout.Files[i].Rel < layout.Files[j].Rel
	})
	return layout, nil
}

// Attribute derives (user, repo) from the first two path segments.
// One segment deep means a repo with no user; files at the top level
// belong to the fallback repo.
func Attribute(rel, fallback string) (user, repo string) {
	parts := strings.Split(rel, "/")
	switch {
	case len(parts) >= 3:
		return parts[0], parts[0] + "/" + parts[1]
	case len(parts) == 2:
		return "", parts[0]
	default:
		return "", fallback
	}
}

// Units groups the layout's files into processing units.
func (l *Layout) Units(mode UnitMode) []Unit {
	if mode == UnitFile {
		units := make([]Unit, 0, len(l.Files))
		for _, f := range l.Files {
			units = append(units, Unit{
				Key:   f.Rel,
				Repo:  f.Repo,
				User:  f.User,
				Files: []File{f},
			})
		}
		return units
	}

	byRepo := make(map[string]*Unit)
	var order []string
	for _, f := range l.Files {
		u, ok := byRepo[f.Repo]
		if !ok {
			u = &Unit{Key: f.Repo, Repo: f.Repo, User: f.User}
			byRepo[f.Repo] = u
			order = append(order, f.Repo)
		}
		u.Files = append(u.Files, f)
	}

	sort.Strings(order)
	units := make([]Unit, 0, len(order))
	for _, repo := range order {
		units = append(units, *byRepo[repo])
	}
	return units
}
