package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// mapLocator is the trivial result.SourceLocator backed by a pre-built
// lookup table: building the table (walking a directory) is this
// collaborator's job, not the core's.
type mapLocator map[string]string

func (m mapLocator) Locate(moduleName string) (string, bool) {
	loc, ok := m[moduleName]
	return loc, ok
}

var moduleDeclRe = regexp.MustCompile(`\bmodule\s+([A-Za-z0-9_]+::[A-Za-z0-9_]+)\b`)

// scanSourceLocations walks every .move file under dir looking for
// "module ADDR::NAME" declarations, recording the first line each module
// name is declared on. It returns a mapLocator ready to hand to
// result.Aggregate.
func scanSourceLocations(dir string) mapLocator {
	locations := mapLocator{}
	filepath.Walk(dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil || fi.IsDir() || !strings.HasSuffix(path, ".move") {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		lineno := 0
		for scanner.Scan() {
			lineno++
			m := moduleDeclRe.FindStringSubmatch(scanner.Text())
			if m == nil {
				continue
			}
			if _, seen := locations[m[1]]; !seen {
				locations[m[1]] = fmt.Sprintf("%s:%d", path, lineno)
			}
		}
		return nil
	})
	return locations
}
