package moderation

import (
	"regexp"
	"strings"

	"studentconnect/internal/domain"
	"studentconnect/internal/models"
)

// Result is the outcome of moderating one message. CleanText is always safe
// to broadcast; the original text never leaves the gateway.
type Result struct {
	IsClean    bool
	CleanText  string
	Violations []string
	Details    models.ModerationDetails
}

var (
	nonWordRe    = regexp.MustCompile(`[^\p{L}\p{N}_\s@.]`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\+?\d{1,4}[-.\s]?)?\(?\d{1,4}\)?[-.\s]?\d{1,4}[-.\s]?\d{1,9}`),
		regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`),
		regexp.MustCompile(`\b\d{10,15}\b`),
	}
	emailPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
		regexp.MustCompile(`\b[A-Za-z0-9._%+-]+\s*@\s*[A-Za-z0-9.-]+\s*\.\s*[A-Za-z]{2,}\b`),
	}
	socialPatterns = []*regexp.Regexp{
		regexp.MustCompile(`@[a-zA-Z0-9._]+`),
		regexp.MustCompile(`(?i)instagram\.com/[a-zA-Z0-9._]+`),
		regexp.MustCompile(`(?i)facebook\.com/[a-zA-Z0-9._]+`),
		regexp.MustCompile(`(?i)twitter\.com/[a-zA-Z0-9._]+`),
		regexp.MustCompile(`(?i)tiktok\.com/@[a-zA-Z0-9._]+`),
		regexp.MustCompile(`(?i)snapchat\.com/add/[a-zA-Z0-9._]+`),
		regexp.MustCompile(`(?i)t\.me/[a-zA-Z0-9._]+`),
		regexp.MustCompile(`(?i)wa\.me/[0-9]+`),
		regexp.MustCompile(`(?i)whatsapp\.com/[a-zA-Z0-9._]+`),
	}
	allCapsRe = regexp.MustCompile(`[A-Z]{5,}`)
)

// normalize lowercases, strips punctuation except @ and ., and collapses
// whitespace. Letters and digits of every script survive so the non-Latin
// lexicons match.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = nonWordRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Moderate inspects a message and returns the cleaned text plus any
// violations found. Pure and deterministic; safe for concurrent use. Input
// it cannot make sense of (empty strings included) comes back clean.
func Moderate(text string) Result {
	res := Result{CleanText: strings.TrimSpace(text)}
	if text == "" {
		res.IsClean = true
		return res
	}
	clean := text

	lang, words := matchLexicons(text)
	if len(words) > 0 {
		res.Violations = append(res.Violations, domain.ViolationInappropriateLanguage)
		res.Details.Language = lang
		res.Details.Words = words
		for _, w := range words {
			clean = maskTerm(clean, w)
		}
	}

	types, matches := matchContactInfo(text)
	if len(types) > 0 {
		res.Violations = append(res.Violations, domain.ViolationContactSharing)
		res.Details.ContactTypes = types
		res.Details.Matches = matches
		// Literal matches first, then pattern passes per category. A later
		// pass may re-cover an earlier placeholder; that is accepted.
		for _, m := range matches {
			re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(m))
			if err != nil {
				continue
			}
			clean = re.ReplaceAllString(clean, "[CONTACT REMOVED]")
		}
		for _, p := range phonePatterns {
			clean = p.ReplaceAllString(clean, "[PHONE REMOVED]")
		}
		for _, p := range emailPatterns {
			clean = p.ReplaceAllString(clean, "[EMAIL REMOVED]")
		}
		for _, p := range socialPatterns {
			clean = p.ReplaceAllString(clean, "[SOCIAL REMOVED]")
		}
	}

	if isSpam(text) {
		res.Violations = append(res.Violations, domain.ViolationSpamPattern)
	}

	res.IsClean = len(res.Violations) == 0
	res.CleanText = strings.TrimSpace(clean)
	return res
}

// matchLexicons collects every banned term found in the normalized text. The
// reported language is the first lexicon (in declaration order) with a hit.
func matchLexicons(text string) (lang string, words []string) {
	normalized := normalize(text)
	for _, entry := range lexicons {
		for _, term := range entry.terms {
			nt := normalize(term)
			if nt == "" {
				continue
			}
			if strings.Contains(normalized, nt) {
				if lang == "" {
					lang = entry.lang
				}
				words = append(words, term)
			}
		}
	}
	return lang, words
}

// maskTerm replaces every case-insensitive occurrence of term with an
// equal-length run of asterisks, preserving the surrounding original casing.
func maskTerm(text, term string) string {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(term))
	if err != nil {
		return text
	}
	return re.ReplaceAllString(text, strings.Repeat("*", len([]rune(term))))
}

// matchContactInfo runs the five contact detectors. Pattern families scan the
// raw text (URLs do not survive normalization); keyword and phrase lists scan
// the normalized text. Types and matches are de-duplicated.
func matchContactInfo(text string) (types, matches []string) {
	seenType := map[string]bool{}
	seenMatch := map[string]bool{}
	addType := func(t string) {
		if !seenType[t] {
			seenType[t] = true
			types = append(types, t)
		}
	}
	addMatch := func(m string) {
		if !seenMatch[m] {
			seenMatch[m] = true
			matches = append(matches, m)
		}
	}

	for _, p := range phonePatterns {
		for _, m := range p.FindAllString(text, -1) {
			addType(domain.ContactTypePhone)
			addMatch(m)
		}
	}
	for _, p := range emailPatterns {
		for _, m := range p.FindAllString(text, -1) {
			addType(domain.ContactTypeEmail)
			addMatch(m)
		}
	}
	for _, p := range socialPatterns {
		for _, m := range p.FindAllString(text, -1) {
			addType(domain.ContactTypeSocialMedia)
			addMatch(m)
		}
	}

	normalized := normalize(text)
	for _, kw := range socialKeywords {
		if strings.Contains(normalized, kw) {
			addType(domain.ContactTypeSocialKeyword)
			addMatch(kw)
		}
	}
	for _, phrase := range contactRequestPhrases {
		if strings.Contains(normalized, phrase) {
			addType(domain.ContactTypeContactRequest)
			addMatch(phrase)
		}
	}
	return types, matches
}

// isSpam flags repeated characters (>=5), shouting runs (>=5 capitals) and a
// short pattern of 1-3 characters repeated >=4 times contiguously. Spam only
// flags; it never rewrites the text.
func isSpam(text string) bool {
	if hasCharRun(text, 5) {
		return true
	}
	if allCapsRe.MatchString(text) {
		return true
	}
	return hasRepeatedPattern(text)
}

func hasCharRun(s string, min int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run >= min {
			return true
		}
	}
	return false
}

// hasRepeatedPattern reports a 1-3 rune unit repeated at least four times in
// a row. Go's regexp has no backreferences, so this is a direct scan.
func hasRepeatedPattern(s string) bool {
	rs := []rune(s)
	for unit := 1; unit <= 3; unit++ {
		for start := 0; start+4*unit <= len(rs); start++ {
			match := true
			for rep := 1; rep < 4 && match; rep++ {
				for k := 0; k < unit; k++ {
					if rs[start+k] != rs[start+rep*unit+k] {
						match = false
						break
					}
				}
			}
			if match {
				return true
			}
		}
	}
	return false
}

// ViolationMessage renders the sender-facing explanation for a moderated
// message. Shown only to the offender, never broadcast.
func ViolationMessage(violations []string, details models.ModerationDetails) string {
	var msgs []string
	for _, v := range violations {
		switch v {
		case domain.ViolationInappropriateLanguage:
			lang := details.Language
			if lang == "" {
				lang = "unknown"
			}
			msgs = append(msgs, "Inappropriate language detected ("+lang+")")
		case domain.ViolationContactSharing:
			for _, t := range details.ContactTypes {
				switch t {
				case domain.ContactTypePhone:
					msgs = append(msgs, "Phone number sharing is not allowed")
				case domain.ContactTypeEmail:
					msgs = append(msgs, "Email sharing is not allowed")
				case domain.ContactTypeSocialMedia, domain.ContactTypeSocialKeyword:
					msgs = append(msgs, "Social media sharing is not allowed")
				case domain.ContactTypeContactRequest:
					msgs = append(msgs, "Requesting personal contact is not allowed")
				}
			}
		case domain.ViolationSpamPattern:
			msgs = append(msgs, "Spam-like content detected")
		}
	}
	// social_media and social_keyword both render the same sentence; drop the
	// duplicate before joining.
	seen := map[string]bool{}
	out := msgs[:0]
	for _, m := range msgs {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return strings.Join(out, ". ")
}
