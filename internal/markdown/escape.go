package markdown

import "strings"

// Characters Telegram reserves in MarkdownV2 text.
var v2Reserved = map[byte]bool{
	'_': true,
	'*': true,
	'[': true,
	']': true,
	'(': true,
	')': true,
	'~': true,
	'`': true,
	'>': true,
	'#': true,
	'+': true,
	'-': true,
	'=': true,
	'|': true,
	'{': true,
	'}': true,
	'.': true,
	'!': true,
}

// EscapeV2 backslash-escapes every MarkdownV2-reserved character in text.
// Single pass only; already-escaped input gets escaped again.
func EscapeV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 16)
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if v2Reserved[ch] {
			b.WriteByte('\\')
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// StripForSpeech removes markup characters that read badly when spoken.
func StripForSpeech(text string) string {
	r := strings.NewReplacer("*", "", "#", "", "`", "", "_", "")
	return r.Replace(text)
}
