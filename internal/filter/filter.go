// Package filter masks contact details in chat messages so that clients and
// workshops keep their exchanges on the platform. Matching is best-effort:
// it catches the common ways of writing a phone number or an email address,
// not every conceivable obfuscation. Arabic-Indic digits are only caught as
// a run of 9 or more digits with single separators.
package filter

import "regexp"

// Marker replaces every redacted span. It contains no digit and no '@' so a
// second pass never matches it.
const Marker = "[coordonnées masquées]"

const maxPasses = 4

// sep is one separator between digit groups; parentheses count so that
// "(0555) 12 34 56" and "+213 (0) 555..." read as a single number
const sep = `[\s.,\-/()]`

var (
	// +213 / 00213, an optional trunk 0, then 8 or 9 national digits
	internationalPhone = regexp.MustCompile(`(?:\+|\b00)` + sep + `*213` + sep + `*(?:0` + sep + `*)?\d(?:` + sep + `*\d){7,8}`)

	// 0 followed by 8 or 9 digits: landlines (9 digits) and mobiles (10 digits)
	localPhone = regexp.MustCompile(`\b0(?:` + sep + `*\d){8,9}\b`)

	// any other run of 9 or more digits with single separators
	digitRun = regexp.MustCompile(`\p{Nd}(?:` + sep + `?\p{Nd}){8,}`)

	email = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// name (at) domain (dot) com and friends
	obfuscatedEmail = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+\s*[\(\[\{]\s*(?:at|arobase)\s*[\)\]\}]\s*[a-z0-9\-]+(?:\s*[\(\[\{]\s*(?:dot|point)\s*[\)\]\}]\s*[a-z]{2,})+`)

	contactPhrases = regexp.MustCompile(`(?i)\b(?:` +
		// English
		`call me|text me|my number|my phone|my cell|my email|my mail|contact me directly|reach me at|` +
		// French
		`appelle[\s\-]?moi|appelez[\s\-]?moi|contacte[\s\-]?moi|contactez[\s\-]?moi|joignez[\s\-]?moi|` +
		`mon num[ée]ro|mon t[ée]l[ée]phone|mon tel|mon portable|mon mail|mon e[\s\-]?mail|mon adresse mail|` +
		// transliterated Darja
		`3ayetli|3ayet li|3ayatli|a3tini numero|a3tini ra9m|ra9mi|numero dyali|numrou dyali|n3tik numero|` +
		// messaging apps
		`whats\s?app|wa\.me|viber|telegram|t\.me|signal app` +
		`)\b`)
)

// passes run in order; phone patterns go first so a number is masked as one span
var passes = []*regexp.Regexp{
	internationalPhone,
	localPhone,
	digitRun,
	email,
	obfuscatedEmail,
	contactPhrases,
}

// Redact masks phone numbers, email addresses and contact-solicitation
// phrases in text. The second return value reports whether anything was
// masked. Redact(Redact(x)) == Redact(x).
func Redact(text string) (string, bool) {
	out := text
	for i := 0; i < maxPasses; i++ {
		next := redactOnce(out)
		if next == out {
			break
		}
		out = next
	}
	return out, out != text
}

func redactOnce(text string) string {
	for _, re := range passes {
		text = re.ReplaceAllString(text, Marker)
	}
	return text
}
