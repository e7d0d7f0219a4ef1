// Package discovery finds the side files a JIT host writes for a process.
//
// Files are named <prefix>_<pid>_<sequence>.txt for the root domain and
// <prefix>_<pid>_<sequence>_<domain>.txt otherwise. The host starts a new file
// with a higher sequence number when it restarts a domain, so only the newest
// file per domain is worth reading.
package discovery

import (
	"cmp"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultPrefix = "pmip"
	Extension     = ".txt"
	// RootDomain is the domain of names that do not carry one.
	RootDomain = 0
)

var ErrNotSideFile = errors.New("not a side file name")

type Name struct {
	Path     string `json:"path"`
	Prefix   string `json:"prefix"`
	PID      int    `json:"pid"`
	Sequence int    `json:"sequence"`
	Domain   int    `json:"domain"`
}

// ParseName extracts pid, sequence and domain from a side file path.
func ParseName(path string) (Name, error) {
	base := filepath.Base(path)
	if filepath.Ext(base) != Extension {
		return Name{}, fmt.Errorf("%w: %s", ErrNotSideFile, base)
	}
	tokens := strings.Split(strings.TrimSuffix(base, Extension), "_")
	if len(tokens) != 3 && len(tokens) != 4 {
		return Name{}, fmt.Errorf("%w: %s", ErrNotSideFile, base)
	}

	numbers := make([]int, 0, 3)
	for _, token := range tokens[1:] {
		n, err := strconv.Atoi(token)
		if err != nil || n < 0 {
			return Name{}, fmt.Errorf("%w: %s: bad number %q", ErrNotSideFile, base, token)
		}
		numbers = append(numbers, n)
	}

	name := Name{
		Path:     path,
		Prefix:   tokens[0],
		PID:      numbers[0],
		Sequence: numbers[1],
		Domain:   RootDomain,
	}
	if len(numbers) == 3 {
		name.Domain = numbers[2]
	}
	return name, nil
}

// Newest keeps the highest sequence number for every pid and domain pair,
// ordered by pid then domain.
func Newest(names []Name) []Name {
	type key struct{ pid, domain int }
	newest := make(map[key]Name)
	for _, name := range names {
		k := key{name.PID, name.Domain}
		if cur, ok := newest[k]; !ok || cur.Sequence < name.Sequence {
			newest[k] = name
		}
	}
	result := make([]Name, 0, len(newest))
	for _, name := range newest {
		result = append(result, name)
	}
	sortNames(result)
	return result
}

func sortNames(names []Name) {
	slices.SortFunc(names, func(a, b Name) int {
		return cmp.Or(
			cmp.Compare(a.PID, b.PID),
			cmp.Compare(a.Domain, b.Domain),
			cmp.Compare(a.Sequence, b.Sequence),
			strings.Compare(a.Path, b.Path),
		)
	})
}
