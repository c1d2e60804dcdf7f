package service

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	codeFallbackPrefix = "CT"
	codeSuffixLength   = 6
	base36Alphabet     = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// CodeGenerator produces human-readable, collision-resistant certificate
// codes. Uniqueness comes from the millisecond timestamp plus the random
// suffix; the codes are not secrets and are not meant to be unguessable.
type CodeGenerator struct{}

// NewCodeGenerator constructs a CodeGenerator.
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{}
}

// Generate returns a new uppercase certificate code. The student name is
// accepted for future entropy but currently unused. Never fails and never
// returns an empty string.
func (g *CodeGenerator) Generate(courseName, studentName string) string {
	_ = studentName

	prefix := coursePrefix(courseName)
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 36)
	suffix := randomBase36(codeSuffixLength)

	return strings.ToUpper(prefix + timestamp + suffix)
}

// coursePrefix derives a short alphabetic prefix: the first two letters of up
// to the first two words, or up to six letters when the name is a single word.
func coursePrefix(courseName string) string {
	words := splitLetterWords(courseName)
	if len(words) == 0 {
		return codeFallbackPrefix
	}
	if len(words) == 1 {
		return firstRunes(words[0], 6)
	}
	return firstRunes(words[0], 2) + firstRunes(words[1], 2)
}

func splitLetterWords(s string) []string {
	rawWords := strings.Fields(s)
	words := make([]string, 0, len(rawWords))
	for _, w := range rawWords {
		var b strings.Builder
		for _, r := range w {
			if unicode.IsLetter(r) {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			words = append(words, b.String())
		}
	}
	return words
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}

func randomBase36(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// clock fallback keeps the never-empty contract
		nano := strconv.FormatInt(time.Now().UnixNano(), 36)
		for len(nano) < n {
			nano += "0"
		}
		return nano[len(nano)-n:]
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}
	return string(out)
}
