package provenance

import (
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/RishiKendai/vigil/internal/models"
)

const (
	// pastes shorter than this only match exactly or after whitespace normalization
	minNearDuplicateTokens = 3
	// shortest run of tokens counted as a tile
	minTileLength = 3
	// fingerprint k-gram size
	kgramSize = 5
	// tiling is cubic in token count; longer inputs are scored by fingerprints only
	maxTilingTokens = 400
	// a copy more than this many times longer than the paste dilutes containment
	maxContainmentRatio = 3

	normalizedScore = 0.95
)

// Similarity scores how closely pasted content matches copied content.
// Exact matches score 1, whitespace-insensitive matches 0.95, and anything else
// is the larger of the token tiling score and the k-gram containment score.
// Tiling only runs when both sides fit under maxTilingTokens.
func Similarity(copied, pasted string) (float64, models.MatchType) {
	if copied == "" || pasted == "" {
		return 0, models.MatchNone
	}
	if copied == pasted {
		return 1, models.MatchExact
	}
	if normalizeWhitespace(copied) == normalizeWhitespace(pasted) {
		return normalizedScore, models.MatchNormalized
	}

	pastedTokens := codeTokens(pasted)
	copiedTokens := codeTokens(copied)
	if len(pastedTokens) < minNearDuplicateTokens || len(copiedTokens) < minNearDuplicateTokens {
		return 0, models.MatchNone
	}

	score := fingerprintContainment(copiedTokens, pastedTokens)
	if len(pastedTokens) <= maxTilingTokens && len(copiedTokens) <= maxTilingTokens {
		score = max(score, tokenSimilarity(copiedTokens, pastedTokens))
	}
	if score == 0 {
		return 0, models.MatchNone
	}
	return score, models.MatchNearDuplicate
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// codeTokens splits source text into identifiers, numbers and single punctuation marks.
func codeTokens(s string) []string {
	tokens := make([]string, 0, len(s)/4)
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$':
			word.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			tokens = append(tokens, string(r))
		}
	}
	flush()
	return tokens
}

// tokenSimilarity is 2·tiled / (lenA + lenB) over greedy string tiling.
func tokenSimilarity(tokensA, tokensB []string) float64 {
	totalLen := len(tokensA) + len(tokensB)
	if totalLen == 0 {
		return 0
	}
	return 2 * float64(greedyStringTiling(tokensA, tokensB, minTileLength)) / float64(totalLen)
}

// greedyStringTiling repeatedly marks the longest unmarked common token run
// and returns the number of tiled tokens.
func greedyStringTiling(tokensA, tokensB []string, minLength int) int {
	markedA := make([]bool, len(tokensA))
	markedB := make([]bool, len(tokensB))
	total := 0

	for {
		maxMatch, startA, startB := 0, -1, -1
		for i := range tokensA {
			if markedA[i] {
				continue
			}
			for j := range tokensB {
				if markedB[j] {
					continue
				}
				k := 0
				for i+k < len(tokensA) && j+k < len(tokensB) &&
					!markedA[i+k] && !markedB[j+k] && tokensA[i+k] == tokensB[j+k] {
					k++
				}
				if k >= minLength && k > maxMatch {
					maxMatch, startA, startB = k, i, j
				}
			}
		}
		if maxMatch == 0 {
			return total
		}
		for k := 0; k < maxMatch; k++ {
			markedA[startA+k] = true
			markedB[startB+k] = true
		}
		total += maxMatch
	}
}

// fingerprintContainment is the share of the pasted k-gram hashes also present in
// the copy. When the copy has more than maxContainmentRatio times the paste's
// k-grams, the copy's size divided by that ratio is the denominator instead.
func fingerprintContainment(copied, pasted []string) float64 {
	copiedHashes := kgramHashes(copied)
	pastedHashes := kgramHashes(pasted)
	if len(copiedHashes) == 0 || len(pastedHashes) == 0 {
		return 0
	}
	shared := 0
	for h := range pastedHashes {
		if copiedHashes[h] {
			shared++
		}
	}
	denom := max(len(pastedHashes), len(copiedHashes)/maxContainmentRatio)
	return float64(shared) / float64(denom)
}

func kgramHashes(tokens []string) map[uint64]bool {
	hashes := make(map[uint64]bool)
	if len(tokens) < kgramSize {
		return hashes
	}
	for i := 0; i+kgramSize <= len(tokens); i++ {
		h := fnv.New64a()
		for _, tok := range tokens[i : i+kgramSize] {
			_, _ = h.Write([]byte(tok))
			_, _ = h.Write([]byte{0})
		}
		hashes[h.Sum64()] = true
	}
	return hashes
}
