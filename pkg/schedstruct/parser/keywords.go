package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

// typeKeywords lists class-type spellings, longest first within a type so
// that alternation prefers "laboratory" over "lab".
var typeKeywords = []struct {
	word string
	kind models.ClassType
}{
	{"laboratorium", models.ClassLab},
	{"laboratory", models.ClassLab},
	{"labs", models.ClassLab},
	{"lab.", models.ClassLab},
	{"lab", models.ClassLab},
	{"lecture", models.ClassLecture},
	{"lect.", models.ClassLecture},
	{"wykład", models.ClassLecture},
	{"wyk.", models.ClassLecture},
	{"exercises", models.ClassExercise},
	{"exercise", models.ClassExercise},
	{"tutorial", models.ClassExercise},
	{"ćwiczenia", models.ClassExercise},
	{"ćw.", models.ClassExercise},
	{"project", models.ClassProject},
	{"projekt", models.ClassProject},
	{"seminarium", models.ClassSeminar},
	{"seminar", models.ClassSeminar},
}

// typeCodes are single-letter type codes accepted in positional fields only.
var typeCodes = map[string]models.ClassType{
	"w": models.ClassLecture,
	"l": models.ClassLab,
	"c": models.ClassExercise,
	"ć": models.ClassExercise,
	"p": models.ClassProject,
	"s": models.ClassSeminar,
}

var typeKeywordPattern = func() *regexp.Regexp {
	alts := make([]string, 0, len(typeKeywords))
	for _, k := range typeKeywords {
		alts = append(alts, regexp.QuoteMeta(k.word))
	}
	return regexp.MustCompile(`(?i)(` + strings.Join(alts, "|") + `)`)
}()

var (
	remotePattern = regexp.MustCompile(`(?i)(?:^|[^\p{L}\d])(remote|online|zdalnie|e-learning)(?:$|[^\p{L}\d])`)
	roomPattern   = regexp.MustCompile(`(?i)(?:^|[^\p{L}])((?:room|sala|aula|hall|s\.)\s*[A-Za-z]{0,2}[-.]?\d+[A-Za-z0-9./-]*|aula\s+\p{Lu}[\p{L}]*)`)
	// trailingCodePattern matches short all-caps group or level codes at the end.
	trailingCodePattern = regexp.MustCompile(`(?:[\s,;/]+(?:[A-Z]{2,3}\d*|[A-Z]\d+|I{1,3}|IV|V|VI{1,3}))+\s*$`)
	extendedPattern     = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(extended|weekend|part-time|niestacjonarne|zaoczne)(?:$|[^\p{L}])`)
	placeholderPattern  = regexp.MustCompile(`^[-–—_.x\s]*$`)
)

// keywordHit is one class-type keyword occurrence.
type keywordHit struct {
	start, end int
	kind       models.ClassType
}

// findTypeKeywords returns keyword occurrences that sit on word boundaries.
func findTypeKeywords(text string) []keywordHit {
	var hits []keywordHit
	for _, loc := range typeKeywordPattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if !boundaryBefore(text, start) || !boundaryAfter(text, end) {
			continue
		}
		hits = append(hits, keywordHit{start: start, end: end, kind: classifyKeyword(text[start:end])})
	}
	return hits
}

// classifyKeyword maps a keyword spelling to its class type.
func classifyKeyword(word string) models.ClassType {
	w := strings.ToLower(word)
	for _, k := range typeKeywords {
		if k.word == w {
			return k.kind
		}
	}
	return models.ClassUnknown
}

// classifyTypeField classifies a positional type field.
func classifyTypeField(field string) models.ClassType {
	f := strings.ToLower(strings.Trim(strings.TrimSpace(field), "()."))
	if kind, ok := typeCodes[f]; ok {
		return kind
	}
	if hits := findTypeKeywords(field); len(hits) > 0 {
		return hits[0].kind
	}
	return models.ClassUnknown
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	// Keywords ending in '.' already carry their boundary.
	if s[i-1] == '.' {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// isPlaceholder reports whether a cell holds only filler such as "---".
func isPlaceholder(s string) bool {
	return strings.TrimSpace(s) == "" || placeholderPattern.MatchString(s)
}

// isExtendedMode reports whether header text names an extended study mode.
func isExtendedMode(s string) bool {
	return extendedPattern.MatchString(s)
}
