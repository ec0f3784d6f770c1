package moderation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var spamPhrases = []string{
	"onlyfans.com",
	"join my vip",
	"subscribe to my",
	"check my profile",
	"check my bio",
	"link in bio",
	"link in profile",
	"follow me",
	"follow back",
	"follow for follow",
	"f4f",
	// Adult content, kept short to avoid false positives
	"porn",
	"xxx",
	"nsfw",
	"18+",
}

const (
	maxEmoji    = 8
	maxHashtags = 5
	maxMentions = 5
)

// ContainsSpam reports whether text matches a known spam phrase or is
// stuffed with emoji, hashtags or mentions.
func ContainsSpam(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range spamPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}

	emoji := 0
	for _, r := range text {
		if r >= 0x1F300 {
			emoji++
		}
	}
	if emoji > maxEmoji {
		return true
	}

	hashtags := strings.Count(text, "#")
	mentions := strings.Count(text, "@")
	if hashtags > maxHashtags || mentions > maxMentions {
		return true
	}
	if strings.Contains(text, "##") || strings.Contains(text, "@@") {
		return true
	}

	// Posts that are mostly tags
	if words := strings.Fields(text); len(words) > 0 {
		if float64(hashtags+mentions)/float64(len(words)) > 0.5 {
			return true
		}
	}

	return false
}

// symbols splits text into visible symbols, keeping combining marks,
// zero width joiners and variation selectors with the rune before them.
func symbols(text string) []string {
	var out []string
	for len(text) > 0 {
		r, size := utf8.DecodeRuneInString(text)
		text = text[size:]
		if r == utf8.RuneError {
			continue
		}

		var b strings.Builder
		b.WriteRune(r)
		for len(text) > 0 {
			next, nextSize := utf8.DecodeRuneInString(text)
			if !unicode.Is(unicode.Mn, next) && next != '\u200d' && next != '\ufe0f' {
				break
			}
			b.WriteRune(next)
			text = text[nextSize:]
			// A joiner glues the following rune to this symbol as well
			if next == '\u200d' && len(text) > 0 {
				joined, joinedSize := utf8.DecodeRuneInString(text)
				b.WriteRune(joined)
				text = text[joinedSize:]
			}
		}
		out = append(out, b.String())
	}
	return out
}

// ContainsRepetitivePattern reports whether text, ignoring case and
// whitespace, repeats one symbol four times in a row or repeats a short
// pattern back to back.
func ContainsRepetitivePattern(text string) bool {
	text = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, text)

	s := symbols(text)
	if len(s) < 4 {
		return false
	}

	run := 1
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1] {
			run++
			if run >= 4 {
				return true
			}
		} else {
			run = 1
		}
	}

	for size := 2; size <= 8; size++ {
		// Short patterns must repeat more often to count
		needed := 4
		if size >= 4 {
			needed = 2
		}
		for start := 0; start+size*needed <= len(s); start++ {
			if repeats(s, start, size) >= needed {
				return true
			}
		}
	}

	return false
}

// repeats counts consecutive copies of s[start:start+size] from start
func repeats(s []string, start, size int) int {
	count := 1
	for next := start + size; next+size <= len(s); next += size {
		for k := 0; k < size; k++ {
			if s[next+k] != s[start+k] {
				return count
			}
		}
		count++
	}
	return count
}
