// Package xyz reads and writes tiles stored as individual files with paths like "/z/x/y.pbf".
package xyz

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/eak1mov/go-vectiles/tile"
)

var ErrInvalidPattern = errors.New("vectiles: invalid file pattern")

var placeholders = [...]string{"{x}", "{y}", "{z}"}

func validatePattern(pattern string) error {
	for _, p := range placeholders {
		if !strings.Contains(pattern, p) {
			return fmt.Errorf("%w: placeholder %v not found", ErrInvalidPattern, p)
		}
	}
	return nil
}

func formatPattern(pattern string, tileID tile.ID) string {
	return strings.NewReplacer(
		"{x}", strconv.FormatUint(uint64(tileID.X), 10),
		"{y}", strconv.FormatUint(uint64(tileID.Y), 10),
		"{z}", strconv.FormatUint(uint64(tileID.Z), 10),
	).Replace(pattern)
}

// compilePattern turns the file pattern into an anchored regexp with x, y and z groups.
// Everything except the placeholders is matched literally.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.NewReplacer(
		regexp.QuoteMeta("{x}"), `(?P<x>\d+)`,
		regexp.QuoteMeta("{y}"), `(?P<y>\d+)`,
		regexp.QuoteMeta("{z}"), `(?P<z>\d+)`,
	).Replace(quoted)
	re, err := regexp.Compile("^" + quoted + "$")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	return re, nil
}
