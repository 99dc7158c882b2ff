// Package normalize cleans scraped labels and buckets ranks for display.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// CleanLabel strips trailing comma-separated qualifiers from a free-text
// label, e.g. "Auburn High School, Hawthorn East, 3123" -> "Auburn High
// School". The suburb and postcode confuse geocoding queries and break
// join keys.
func CleanLabel(label string) string {
	name, _, _ := strings.Cut(label, ",")
	return strings.TrimSpace(name)
}

// foldTransformer decomposes accented characters and drops the combining
// marks, so "Carnegie" and "Carnégie" produce the same join key.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// JoinKey standardizes a label for cross-dataset matching:
//  1. Strip trailing comma qualifiers
//  2. Fold accents
//  3. Uppercase
//  4. Strip punctuation
//  5. Collapse runs of spaces
func JoinKey(label string) string {
	name := CleanLabel(label)
	if name == "" {
		return ""
	}

	if folded, _, err := transform.String(foldTransformer, name); err == nil {
		name = folded
	}

	name = strings.ToUpper(name)
	name = strings.NewReplacer(
		".", "",
		"'", "",
		"\"", "",
		"&", "AND",
		"-", " ",
		"(", "",
		")", "",
	).Replace(name)

	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// RankBand buckets a 1-based rank into a discrete band for icon selection:
// ceiling(rank / bandSize) * bandSize. Ranks 1-10 map to band 10 with the
// default size.
func RankBand(rank, bandSize int) int {
	if bandSize <= 0 {
		bandSize = 10
	}
	if rank < 1 {
		rank = 1
	}
	return ((rank + bandSize - 1) / bandSize) * bandSize
}

// BandLabel returns the band as the string used for icon lookup.
func BandLabel(rank, bandSize int) string {
	return strconv.Itoa(RankBand(rank, bandSize))
}
