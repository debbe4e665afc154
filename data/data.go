// Package data embeds the default price catalog and regional factor sets
// so the tools work without a data directory or network access.
package data

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// DefaultRegion is used when no region is configured
const DefaultRegion = "national"

//go:embed catalog.json regions/*.json
var files embed.FS

// FS returns the embedded data set laid out as catalog.json and
// regions/<code>.json
func FS() fs.FS {
	return files
}

// Regions lists the region codes present in fsys, sorted
func Regions(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, "regions")
	if err != nil {
		return nil, err
	}
	var codes []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".json" {
			continue
		}
		codes = append(codes, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(codes)
	return codes, nil
}
