package governance

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/RishiKendai/vigil/internal/models"
)

// promptFeatures is the analyzer output shared by every detector.
type promptFeatures struct {
	raw        string
	normalized string
	tokens     []string
	wordCount  int
	analysis   models.PromptAnalysis

	directSolutionHit string
	offTopicHits      int
	smallTalk         bool
}

// AnalyzePrompt derives intent, language, topics and complexity from a raw prompt.
func AnalyzePrompt(prompt string) models.PromptAnalysis {
	return extractFeatures(prompt).analysis
}

func extractFeatures(prompt string) *promptFeatures {
	f := &promptFeatures{raw: prompt, normalized: Normalize(prompt)}
	f.tokens = Tokenize(f.normalized)
	f.wordCount = len(strings.Fields(prompt))

	for _, re := range directSolutionPatterns {
		if m := re.FindString(f.normalized); m != "" {
			f.directSolutionHit = m
			break
		}
	}

	seScore := 0.0
	for _, p := range socialEngineeringPatterns {
		if p.re.MatchString(f.normalized) {
			seScore += p.weight
		}
	}

	for _, tok := range f.tokens {
		if matchesAnyStem(tok, offTopicStems) {
			f.offTopicHits++
		}
	}
	f.smallTalk = containsAny(f.normalized, smallTalkMarkers)

	topics := detectTopics(f.tokens)

	f.analysis = models.PromptAnalysis{
		Language:               detectLanguage(f.tokens),
		Topics:                 topics,
		Complexity:             complexityOf(f.wordCount, len(topics)),
		HasCodeRequest:         codeRequestPattern.MatchString(f.normalized),
		SocialEngineeringScore: round2(seScore),
	}
	f.analysis.Intent = f.intent()
	return f
}

// isOffTopic reports prompts about non-programming subjects with no programming topic at all.
func (f *promptFeatures) isOffTopic() bool {
	return (f.offTopicHits > 0 || f.smallTalk) && len(f.analysis.Topics) == 0
}

func (f *promptFeatures) intent() models.Intent {
	switch {
	case f.analysis.SocialEngineeringScore >= 1:
		return models.IntentSocialEngineering
	case f.directSolutionHit != "":
		return models.IntentSolutionSeeking
	case f.isOffTopic():
		return models.IntentOffTopic
	case containsAny(f.normalized, educationalMarkers):
		return models.IntentEducational
	default:
		return models.IntentUnclear
	}
}

// Normalize lower-cases text and strips diacritics.
func Normalize(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.ToLower(folded)
}

// Tokenize splits normalized text on anything that is not a letter or digit.
func Tokenize(normalized string) []string {
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// contentTerms drops stopwords and single characters.
func contentTerms(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) < 2 || stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		terms = append(terms, tok)
	}
	return terms
}

func detectLanguage(tokens []string) string {
	pt, en := 0, 0
	for _, tok := range tokens {
		if portugueseMarkers[tok] {
			pt++
		}
		if englishMarkers[tok] {
			en++
		}
	}
	switch {
	case pt == 0 && en == 0:
		return "unknown"
	case pt > en:
		return "pt"
	case en > pt:
		return "en"
	default:
		return "mixed"
	}
}

func detectTopics(tokens []string) []string {
	topics := make([]string, 0)
	for topic, stems := range topicLexicon {
		for _, tok := range tokens {
			if matchesAnyStem(tok, stems) {
				topics = append(topics, topic)
				break
			}
		}
	}
	sort.Strings(topics)
	return topics
}

func complexityOf(words, topics int) models.Complexity {
	switch {
	case words > 60 || topics >= 4 || (words > 35 && topics >= 2):
		return models.ComplexityComplex
	case words <= 12 && topics <= 1:
		return models.ComplexitySimple
	default:
		return models.ComplexityModerate
	}
}

func matchesAnyStem(token string, stems []string) bool {
	for _, stem := range stems {
		if token == stem || (len(stem) >= 4 && strings.HasPrefix(token, stem)) {
			return true
		}
	}
	return false
}

// containsAny matches whole-word phrases inside normalized text.
func containsAny(normalized string, phrases []string) bool {
	padded := " " + strings.Join(Tokenize(normalized), " ") + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}
