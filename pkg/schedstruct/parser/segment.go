package parser

import (
	"regexp"
	"strings"

	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

var (
	fieldSplitPattern = regexp.MustCompile(`\t|\n| {4,}`)
	weakSplitPattern  = regexp.MustCompile(`,\s*| {2,}|\s+[-–]\s+`)
	mentionSplit      = regexp.MustCompile(`[,/;\n]`)
	spaceRun          = regexp.MustCompile(`\s+`)
	titleContinuation = regexp.MustCompile(`^(?:(?i:prof)\.?(?:\s+(?:(?i:uczelni)|[A-Z]{1,5}))?|(?i:ph\.?\s?d\.?|d\.?sc\.?|m\.?sc\.?|eng\.?|inż\.?|jr\.?|sr\.?))$`)
)

const subjectTrimSet = " \t\n,;:-–—(|"

// Segment splits the raw text of one cell into an unresolved ClassInfo.
// Blank and placeholder cells yield nil. The only error is a leading time
// range that cannot be parsed.
func Segment(raw string) (*models.ClassInfo, error) {
	if isPlaceholder(raw) {
		return nil, nil
	}

	text := strings.TrimSpace(raw)
	info := &models.ClassInfo{
		ClassType:   models.ClassUnknown,
		Instructors: []models.InstructorMention{},
		RawCellText: raw,
	}

	tr, rest, ok, err := splitTimeOverride(text)
	if err != nil {
		return nil, err
	}
	if ok {
		info.TimeOverride = &tr
		text = strings.TrimSpace(rest)
		if isPlaceholder(text) {
			return nil, nil
		}
	}

	if hit, found := pickAnchor(text, findTypeKeywords(text)); found {
		segmentAnchored(info, text, hit)
	} else {
		segmentDelimited(info, text)
	}
	return info, nil
}

// pickAnchor chooses the keyword that separates subject from the rest.
// A keyword set off by a strong separator wins; otherwise the last one
// not at the start of the text; otherwise the one at the start.
func pickAnchor(text string, hits []keywordHit) (keywordHit, bool) {
	if len(hits) == 0 {
		return keywordHit{}, false
	}
	for _, h := range hits {
		if h.start > 0 && strongSeparatorBefore(text, h.start) {
			return h, true
		}
	}
	for i := len(hits) - 1; i >= 0; i-- {
		if hits[i].start > 0 {
			return hits[i], true
		}
	}
	return hits[0], true
}

func strongSeparatorBefore(text string, i int) bool {
	j := i
	spaces := 0
	for j > 0 {
		c := text[j-1]
		if c == '\t' || c == '\n' {
			return true
		}
		if c != ' ' {
			break
		}
		spaces++
		j--
	}
	if spaces >= 2 {
		return true
	}
	if j == 0 {
		return false
	}
	switch text[j-1] {
	case ',', ';', '(', '|', '-':
		return true
	}
	return false
}

func segmentAnchored(info *models.ClassInfo, text string, hit keywordHit) {
	info.ClassType = hit.kind

	if hit.start == 0 {
		first, rest, _ := strings.Cut(text, "\n")
		subject := cleanSubject(first[hit.end:])
		if subject == "" {
			// "lecture" alone on the first line: the subject is the next line.
			subject, rest, _ = strings.Cut(rest, "\n")
			subject = cleanSubject(subject)
		}
		info.SubjectText = subject
		parseTail(info, rest)
		return
	}

	info.SubjectText = cleanSubject(text[:hit.start])
	parseTail(info, text[hit.end:])
}

func segmentDelimited(info *models.ClassInfo, text string) {
	var fields []string
	for _, f := range fieldSplitPattern.Split(text, -1) {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}

	if len(fields) >= 2 {
		info.SubjectText = cleanSubject(fields[0])
		rest := fields[1:]
		if kind := classifyTypeField(rest[0]); kind != models.ClassUnknown {
			info.ClassType = kind
			rest = rest[1:]
		}
		if len(rest) < 2 {
			parseTail(info, strings.Join(rest, "\n"))
			return
		}
		// subject, type, instructors, location
		for _, m := range splitMentions(rest[0]) {
			info.Instructors = append(info.Instructors, models.InstructorMention{Text: m})
		}
		parseLocation(info, rest[1:])
		return
	}

	if loc := weakSplitPattern.FindStringIndex(text); loc != nil {
		info.SubjectText = cleanSubject(text[:loc[0]])
		parseTail(info, text[loc[1]:])
		return
	}
	info.SubjectText = cleanSubject(text)
}

// parseTail extracts the remote flag, rooms and instructor mentions from
// the text that follows the subject.
func parseTail(info *models.ClassInfo, tail string) {
	if spans := submatchSpans(remotePattern, tail); len(spans) > 0 {
		info.IsRemote = true
		tail = blankSpans(tail, spans)
	}

	var rooms []string
	if spans := submatchSpans(roomPattern, tail); len(spans) > 0 {
		for _, sp := range spans {
			rooms = append(rooms, collapseSpaces(tail[sp[0]:sp[1]]))
		}
		tail = blankSpans(tail, spans)
	}
	if !info.IsRemote && len(rooms) > 0 {
		room := strings.Join(rooms, ", ")
		info.RoomText = &room
	}

	for _, m := range splitMentions(tail) {
		info.Instructors = append(info.Instructors, models.InstructorMention{Text: m})
	}
}

// parseLocation reads positional location fields. A field without a room
// marker is taken verbatim.
func parseLocation(info *models.ClassInfo, fields []string) {
	var rooms []string
	for _, f := range fields {
		if spans := submatchSpans(remotePattern, f); len(spans) > 0 {
			info.IsRemote = true
			f = blankSpans(f, spans)
		}
		if spans := submatchSpans(roomPattern, f); len(spans) > 0 {
			for _, sp := range spans {
				rooms = append(rooms, collapseSpaces(f[sp[0]:sp[1]]))
			}
			continue
		}
		if f = collapseSpaces(strings.Trim(f, subjectTrimSet+")")); f != "" && !isPlaceholder(f) {
			rooms = append(rooms, f)
		}
	}
	if !info.IsRemote && len(rooms) > 0 {
		room := strings.Join(rooms, ", ")
		info.RoomText = &room
	}
}

// splitMentions splits instructor text on comma, slash, semicolon and
// newline, rejoining honorific suffixes to the preceding name.
func splitMentions(s string) []string {
	var out []string
	for _, piece := range mentionSplit.Split(s, -1) {
		piece = collapseSpaces(strings.Trim(piece, subjectTrimSet+")"))
		if piece == "" || isPlaceholder(piece) {
			continue
		}
		if len(out) > 0 && titleContinuation.MatchString(piece) {
			out[len(out)-1] += ", " + piece
			continue
		}
		out = append(out, stripTrailingCodes(piece))
	}
	return out
}

// stripTrailingCodes removes short all-caps codes at the end of s unless
// nothing would remain.
func stripTrailingCodes(s string) string {
	loc := trailingCodePattern.FindStringIndex(s)
	if loc == nil || loc[0] == 0 {
		return s
	}
	stripped := strings.TrimRight(s[:loc[0]], subjectTrimSet)
	if stripped == "" {
		return s
	}
	return stripped
}

func cleanSubject(s string) string {
	return collapseSpaces(strings.Trim(s, subjectTrimSet+")"))
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// submatchSpans returns the spans of capture group 1 for every match.
func submatchSpans(re *regexp.Regexp, s string) [][2]int {
	var spans [][2]int
	for _, loc := range re.FindAllStringSubmatchIndex(s, -1) {
		if len(loc) >= 4 && loc[2] >= 0 {
			spans = append(spans, [2]int{loc[2], loc[3]})
		}
	}
	return spans
}

// blankSpans replaces each span with a single space.
func blankSpans(s string, spans [][2]int) string {
	var b strings.Builder
	prev := 0
	for _, sp := range spans {
		b.WriteString(s[prev:sp[0]])
		b.WriteByte(' ')
		prev = sp[1]
	}
	b.WriteString(s[prev:])
	return b.String()
}
