package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanAttributesByLayout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "alice/shop/schema.sql", "CREATE TABLE t (a INT);")
	writeFile(t, root, "alice/shop/queries/q1.sql", "SELECT a FROM t;")
	writeFile(t, root, "bob/blog/dump.ddl", "CREATE TABLE p (id INT);")
	writeFile(t, root, "loose.sql", "SELECT 1;")
	writeFile(t, root, "README.md", "not sql")
	writeFile(t, root, ".git/objects/junk.sql", "SELECT 0;")

	layout, err := Scan(root, nil)
	require.NoError(t, err)
	require.Len(t, layout.Files, 4, "non-SQL and dot-directory files are skipped")

	byRel := make(map[string]File)
	for _, f := range layout.Files {
		byRel[f.Rel] = f
	}

	f := byRel["alice/shop/queries/q1.sql"]
	assert.Equal(t, "alice/shop", f.Repo)
	assert.Equal(t, "alice", f.User)

	f = byRel["loose.sql"]
	assert.Equal(t, filepath.Base(root), f.Repo, "top-level files fall into the root repo")
	assert.Empty(t, f.User)
}

func TestScanUsesManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "dump1.sql", "SELECT 1;")
	writeFile(t, root, "dump2.sql", "SELECT 2;")

	m := &Manifest{Entries: []ManifestEntry{
		{Prefix: "dump1", Repo: "acme/billing", User: "acme"},
	}}

	layout, err := Scan(root, m)
	require.NoError(t, err)
	require.Len(t, layout.Files, 2)

	assert.Equal(t, "acme/billing", layout.Files[0].Repo)
	assert.Equal(t, "acme", layout.Files[0].User)
	assert.Equal(t, filepath.Base(root), layout.Files[1].Repo, "unmatched files use the layout convention")
}

func TestUnitsRepoMode(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "alice/shop/a.sql", "SELECT 1;")
	writeFile(t, root, "alice/shop/b.sql", "SELECT 2;")
	writeFile(t, root, "bob/blog/c.sql", "SELECT 3;")

	layout, err := Scan(root, nil)
	require.NoError(t, err)

	units := layout.Units(UnitRepo)
	require.Len(t, units, 2)
	assert.Equal(t, "alice/shop", units[0].Key)
	assert.Len(t, units[0].Files, 2)
	assert.Equal(t, "bob/blog", units[1].Key)
}

func TestUnitsFileMode(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "alice/shop/a.sql", "SELECT 1;")
	writeFile(t, root, "alice/shop/b.sql", "SELECT 2;")

	layout, err := Scan(root, nil)
	require.NoError(t, err)

	units := layout.Units(UnitFile)
	require.Len(t, units, 2)
	assert.Equal(t, "alice/shop/a.sql", units[0].Key)
	assert.Equal(t, "alice/shop", units[0].Repo)
	assert.Len(t, units[0].Files, 1)
}

func TestManifestLongestPrefixWins(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "corpus.yaml", `repositories:
  - prefix: vendor/
    repo: misc/vendor
  - prefix: vendor/pg/
    repo: misc/postgres
    user: misc
`)

	m, err := LoadManifest(filepath.Join(root, "corpus.yaml"))
	require.NoError(t, err)
	require.NotNil(t, m)

	repo, user, ok := m.Lookup("vendor/pg/schema.sql")
	require.True(t, ok)
	assert.Equal(t, "misc/postgres", repo)
	assert.Equal(t, "misc", user)

	repo, _, ok = m.Lookup("vendor/other.sql")
	require.True(t, ok)
	assert.Equal(t, "misc/vendor", repo)

	_, _, ok = m.Lookup("elsewhere/x.sql")
	assert.False(t, ok)
}

func TestLoadManifestMissingFile(t *testing.T) {
	m, err := LoadManifest(filepath.Join(t.TempDir(), "corpus.yaml"))
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestParseSample(t *testing.T) {
	tests := []struct {
		spec    string
		want    Sample
		wantErr bool
	}{
		{spec: "all", want: Sample{Statement: -1}},
		{spec: "", want: Sample{Statement: -1}},
		{spec: "0.25", want: Sample{Fraction: 0.25, Statement: -1}},
		{spec: "1", want: Sample{Statement: -1}},
		{spec: "repo:alice/shop", want: Sample{Repo: "alice/shop", Statement: -1}},
		{spec: "file:a/b/c.sql", want: Sample{File: "a/b/c.sql", Statement: -1}},
		{spec: "stmt:a/b/c.sql:7", want: Sample{File: "a/b/c.sql", Statement: 7}},
		{spec: "stmt:a.sql", wantErr: true},
		{spec: "stmt:a.sql:-1", wantErr: true},
		{spec: "repo:", wantErr: true},
		{spec: "2.5", wantErr: true},
		{spec: "bogus", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseSample(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSampleApplyRepo(t *testing.T) {
	units := []Unit{
		{Key: "a/x", Repo: "a/x"},
		{Key: "b/y", Repo: "b/y"},
	}
	out := Sample{Repo: "b/y", Statement: -1}.Apply(units)
	require.Len(t, out, 1)
	assert.Equal(t, "b/y", out[0].Key)
}

func TestSampleApplyFileNarrowsUnit(t *testing.T) {
	units := []Unit{
		{Key: "a/x", Repo: "a/x", Files: []File{
			{Rel: "a/x/one.sql"},
			{Rel: "a/x/two.sql"},
		}},
	}
	out := Sample{File: "a/x/two.sql", Statement: -1}.Apply(units)
	require.Len(t, out, 1)
	require.Len(t, out[0].Files, 1)
	assert.Equal(t, "a/x/two.sql", out[0].Files[0].Rel)
}

func TestSampleApplyFractionDeterministic(t *testing.T) {
	units := make([]Unit, 0, 100)
	for i := 0; i < 100; i++ {
		units = append(units, Unit{Key: string(rune('a'+i%26)) + string(rune('0'+i/26))})
	}
	s := Sample{Fraction: 0.3, Statement: -1}

	first := s.Apply(units)
	second := s.Apply(units)
	assert.Equal(t, first, second, "hashing the key gives the same subset every run")
	assert.Less(t, len(first), len(units))
	assert.NotEmpty(t, first)
}
