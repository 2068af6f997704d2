package timing

import (
	"time"

	"github.com/charmbracelet/log"
)

// WordTiming is one word's slot on the playback timeline. Start and End are
// relative to the start of the whole read-aloud session's audio. Within a
// single estimation batch timings are contiguous: each word's End equals the
// next word's Start.
type WordTiming struct {
	Word  string
	Start time.Duration
	End   time.Duration
	Index int
}

// SamplesToDuration converts a sample count at the given rate to a duration.
// Non-positive inputs yield zero rather than an error; a zero-length chunk
// is a no-op for callers, never a divide-by-zero.
func SamplesToDuration(samples, sampleRate int) time.Duration {
	if samples <= 0 || sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}

// CalculateWordTimings estimates per-word start/end timestamps for one TTS
// chunk. text is the exact string sent to the synthesizer for the chunk,
// phonemes its (possibly empty) aligned transcription, and sampleOffset/
// sampleCount/sampleRate describe the chunk's span within the audio stream.
//
// When phoneme data exists, each word is weighted by its phoneme count and
// durations are distributed sentence by sentence: every sentence takes a
// share of the remaining chunk duration proportional to its share of the
// remaining words, and the last word of each sentence absorbs the share's
// rounding remainder. Resetting the weight accumulation at sentence
// boundaries bounds drift to one sentence's worth of estimation error
// instead of letting it compound across a whole article. Words with a
// missing or empty phoneme group fall back to a letter-count weight; a
// group-count mismatch is expected, not an error.
//
// Indices are 0-based and local to the chunk. Callers appending the result
// to a session timeline re-base Index, Start, and End themselves.
func CalculateWordTimings(text, phonemes string, sampleOffset, sampleCount, sampleRate int) []WordTiming {
	words := TokenizeText(text)
	if len(words) == 0 {
		return nil
	}

	offset := SamplesToDuration(sampleOffset, sampleRate)
	total := SamplesToDuration(sampleCount, sampleRate)

	groups := SplitPhonemesByWord(phonemes)
	if len(groups) == 0 {
		log.Debug("no phoneme data for chunk, falling back to character weighting",
			"words", len(words), "duration", total)
		return CalculateCharacterWeightedTimings(words, offset, total)
	}
	weights := make([]int, len(words))
	for i, w := range words {
		if i < len(groups) {
			if n := CountPhonemes(groups[i]); n > 0 {
				weights[i] = n
				continue
			}
		}
		weights[i] = EstimatePhonemeCount(w)
	}

	timings := make([]WordTiming, 0, len(words))
	cursor := offset
	remaining := total
	wordsLeft := len(words)

	for start := 0; start < len(words); {
		end := start
		for end < len(words) && !IsSentenceEnd(words[end]) {
			end++
		}
		if end < len(words) {
			end++ // include the sentence-terminating token
		}
		count := end - start

		// The final sentence takes exactly what remains so the timeline
		// sums to the chunk duration regardless of earlier rounding.
		var sentenceDur time.Duration
		if end >= len(words) {
			sentenceDur = remaining
		} else {
			sentenceDur = time.Duration(float64(remaining) * float64(count) / float64(wordsLeft))
		}

		timings = appendWeightedTimings(timings, words[start:end], weights[start:end], cursor, sentenceDur, start)

		cursor += sentenceDur
		remaining -= sentenceDur
		wordsLeft -= count
		start = end
	}

	return timings
}

// CalculateCharacterWeightedTimings distributes a chunk's duration across
// words weighted by letter-and-digit count, in a single pass with no
// sentence partitioning. It is the standalone fallback used when a chunk
// arrives with no phonetic transcription at all.
func CalculateCharacterWeightedTimings(words []string, startOffset, totalDuration time.Duration) []WordTiming {
	if len(words) == 0 {
		return nil
	}
	weights := make([]int, len(words))
	for i, w := range words {
		weights[i] = letterWeight(w)
	}
	return appendWeightedTimings(nil, words, weights, startOffset, totalDuration, 0)
}

// appendWeightedTimings lays out one run of words over [start, start+total)
// proportionally to weights, walking a cursor so the output is contiguous
// and non-overlapping. The run's last word absorbs the rounding remainder,
// which keeps the run's end exact. If every weight is zero the duration is
// split evenly.
func appendWeightedTimings(out []WordTiming, words []string, weights []int, start, total time.Duration, baseIndex int) []WordTiming {
	sum := 0
	for _, w := range weights {
		sum += w
	}

	cursor := start
	remaining := total
	for i, word := range words {
		var d time.Duration
		switch {
		case i == len(words)-1:
			d = remaining
		case sum > 0:
			d = time.Duration(float64(total) * float64(weights[i]) / float64(sum))
		default:
			d = remaining / time.Duration(len(words)-i)
		}
		out = append(out, WordTiming{
			Word:  word,
			Start: cursor,
			End:   cursor + d,
			Index: baseIndex + i,
		})
		cursor += d
		remaining -= d
	}
	return out
}
