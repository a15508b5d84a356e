package corpus

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// Sample narrows a run to a subset of the corpus. The zero value (or
// "all") keeps everything.
type Sample struct {
	Fraction  float64 // (0,1): keep units whose key hashes under it
	Repo      string  // keep one repository
	File      string  // keep one file (corpus-relative path)
	Statement int     // statement index within the file; -1 = all
}

// ParseSample parses a sample spec string:
//
//	all | <fraction> | repo:<name> | file:<rel> | stmt:<rel>:<index>
func ParseSample(spec string) (Sample, error) {
	s := Sample{Statement: -1}
	spec = strings.TrimSpace(spec)
	if spec == "" || spec == "all" {
		return s, nil
	}

	switch {
	case strings.HasPrefix(spec, "repo:"):
		s.Repo = strings.TrimPrefix(spec, "repo:")
		if s.Repo == "" {
			return s, fmt.Errorf("sample spec %q: empty repository", spec)
		}
	case strings.HasPrefix(spec, "file:"):
		s.File = strings.TrimPrefix(spec, "file:")
		if s.File == "" {
			return s, fmt.Errorf("sample spec %q: empty file path", spec)
		}
	case strings.HasPrefix(spec, "stmt:"):
		rest := strings.TrimPrefix(spec, "stmt:")
		idx := strings.LastIndex(rest, ":")
		if idx <= 0 {
			return s, fmt.Errorf("sample spec %q: want stmt:<file>:<index>", spec)
		}
		n, err := strconv.Atoi(rest[idx+1:])
		if err != nil || n < 0 {
			return s, fmt.Errorf("sample spec %q: bad statement index", spec)
		}
		s.File = rest[:idx]
		s.Statement = n
	default:
		f, err := strconv.ParseFloat(spec, 64)
		if err != nil {
			return s, fmt.Errorf("sample spec %q: not a fraction or known form", spec)
		}
		if f <= 0 || f > 1 {
			return s, fmt.Errorf("sample spec %q: fraction out of (0,1]", spec)
		}
		if f < 1 {
			s.Fraction = f
		}
	}
	return s, nil
}

// Apply filters units by the sample. Fractional sampling hashes the
// unit key so the same subset comes back on every run.
func (s Sample) Apply(units []Unit) []Unit {
	switch {
	case s.Repo != "":
		var out []Unit
		for _, u := range units {
			if u.Repo == s.Repo {
				out = append(out, u)
			}
		}
		return out

	case s.File != "":
		var out []Unit
		for _, u := range units {
			var keep []File
			for _, f := range u.Files {
				if f.Rel == s.File {
					keep = append(keep, f)
				}
			}
			if len(keep) > 0 {
				u.Files = keep
				out = append(out, u)
			}
		}
		return out

	case s.Fraction > 0:
		var out []Unit
		for _, u := range units {
			if keyFraction(u.Key) < s.Fraction {
				out = append(out, u)
			}
		}
		return out

	default:
		return units
	}
}

func keyFraction(key string) float64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return float64(h.Sum64()%100000) / 100000
}
