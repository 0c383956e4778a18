package loader

import (
	"os"
	"sort"
	"strings"
)

// listCrontabs returns the regular files in dir, sorted by name. Hidden
// files and editor leftovers are not crontabs.
func listCrontabs(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, de := range ents {
		if !de.Type().IsRegular() || ignoredName(de.Name()) {
			continue
		}
		out = append(out, de.Name())
	}
	sort.Strings(out)
	return out, nil
}

func ignoredName(name string) bool {
	switch {
	case name == "", strings.HasPrefix(name, "."), strings.HasPrefix(name, "#"):
		return true
	case strings.HasSuffix(name, "~"), strings.HasSuffix(name, ".swp"):
		return true
	case strings.HasSuffix(name, ".rpmsave"), strings.HasSuffix(name, ".rpmorig"), strings.HasSuffix(name, ".rpmnew"):
		return true
	case strings.HasSuffix(name, ".dpkg-old"), strings.HasSuffix(name, ".dpkg-dist"), strings.HasSuffix(name, ".dpkg-new"):
		return true
	}
	return false
}
