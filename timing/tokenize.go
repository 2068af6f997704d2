// Package timing estimates per-word playback timestamps from streamed
// text-to-speech chunk data. Given a chunk's text, an approximate phonetic
// transcription, and the chunk's audio length, it produces an ordered,
// contiguous sequence of word timings suitable for highlight scheduling.
package timing

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// sentenceEndRegex matches one or more sentence-terminating marks at the
// end of a token, so "done?!", "wait..." and plain "end." all qualify.
var sentenceEndRegex = regexp.MustCompile(`[.!?]+$`)

// phonemeMarks are IPA annotations that carry no speaking duration of their
// own: primary/secondary stress, length and half-length marks, aspiration,
// labialization and palatalization superscripts, and the nasalization tilde.
const phonemeMarks = "ˈˌːˑʰʷʲ̃"

// lettersPerPhoneme approximates average English phoneme-per-letter density,
// used when no phonetic transcription is available for a word.
const lettersPerPhoneme = 0.7

// TokenizeText splits text into word tokens on runs of whitespace.
// Punctuation, contractions, and hyphenation stay attached to the word they
// touch. Empty or whitespace-only input yields no tokens.
func TokenizeText(text string) []string {
	return strings.Fields(text)
}

// SplitPhonemesByWord splits a phonetic transcription into per-word groups
// on runs of whitespace. The result may legitimately be shorter or longer
// than the word tokenization of the matching text (abbreviations and
// numerals are common culprits); callers must not assume a 1:1 match.
func SplitPhonemesByWord(phonemes string) []string {
	return strings.Fields(phonemes)
}

// IsSentenceEnd reports whether a token ends a sentence, i.e. whether it
// ends with one or more of ".", "!", "?" after trimming. Tokens ending in
// commas, semicolons, or colons are not sentence ends.
func IsSentenceEnd(token string) bool {
	return sentenceEndRegex.MatchString(strings.TrimSpace(token))
}

// CountPhonemes counts the duration-bearing characters in a phoneme group.
// Stress, length, and articulation marks are stripped first, along with any
// internal whitespace. This is a character count, not true linguistic
// segmentation: a diphthong written as two characters counts as two. That
// approximation is intentional and good enough for highlight pacing.
func CountPhonemes(group string) int {
	count := 0
	for _, r := range group {
		if unicode.IsSpace(r) || strings.ContainsRune(phonemeMarks, r) {
			continue
		}
		count++
	}
	return count
}

// EstimatePhonemeCount approximates a word's phoneme count from its letters
// and digits when no phonetic transcription exists for it. The result is
// never below 1 so symbol-only tokens cannot zero out a distribution.
func EstimatePhonemeCount(word string) int {
	letters := 0
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			letters++
		}
	}
	n := int(math.Round(float64(letters) * lettersPerPhoneme))
	if n < 1 {
		n = 1
	}
	return n
}

// letterWeight weights a word by its letter and digit count, minimum 1.
func letterWeight(word string) int {
	n := 0
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}
