package corpus

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is an optional corpus.yaml placed at the corpus root. It
// attributes files to repositories when the directory layout doesn't
// encode them, e.g. a flat dump of scraped files.
type Manifest struct {
	Entries []ManifestEntry `yaml:"repositories"`
}

// ManifestEntry maps a path prefix to a repository and user.
type ManifestEntry struct {
	Prefix string `yaml:"prefix"`
	Repo   string `yaml:"repo"`
	User   string `yaml:"user"`
}

// LoadManifest reads a corpus.yaml. A missing file is not an error:
// the layout convention takes over.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	// Longest prefix wins; sort once so Lookup can take the first hit.
	sort.Slice(m.Entries, func(i, j int) bool {
		return len(m.Entries[i].Prefix) > len(m.Entries[j].Prefix)
	})
	return &m, nil
}

// Lookup matches rel (slash-separated, corpus-root relative) against
// the manifest prefixes.
func (m *Manifest) Lookup(rel string) (repo, user string, ok bool) {
	if m == nil {
		return "", "", false
	}
	for _, e := range m.Entries {
		if strings.HasPrefix(rel, e.Prefix) {
			return e.Repo, e.User, true
		}
	}
	return "", "", false
}
