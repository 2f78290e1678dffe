// Package fuzzy canonicalizes track titles and artist names so that edition
// variants of the same recording compare equal.
package fuzzy

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	remasterSuffixRegex = regexp.MustCompile(`(?i)\s+-\s+.*remaster.*$`)
	bracketRegex        = regexp.MustCompile(`\s*[\(\[][^\)\]]*[\)\]]`)
	whitespaceRegex     = regexp.MustCompile(`\s+`)
)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeTitle drops " - ... Remaster ..." suffixes and every parenthesized
// or bracketed segment, then lowercases.
func (n *Normalizer) NormalizeTitle(title string) string {
	title = norm.NFC.String(title)

	title = remasterSuffixRegex.ReplaceAllString(title, "")
	title = bracketRegex.ReplaceAllString(title, "")

	return n.basicNormalize(title)
}

func (n *Normalizer) NormalizeArtist(artist string) string {
	return n.basicNormalize(norm.NFC.String(artist))
}

// TrackKey is the identity used for duplicate detection. The artist is part
// of the key so that equal titles by different artists stay distinct.
func (n *Normalizer) TrackKey(title, primaryArtist string) string {
	return n.NormalizeTitle(title) + "|" + n.NormalizeArtist(primaryArtist)
}

func (n *Normalizer) basicNormalize(text string) string {
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(strings.ToLower(text))
}
