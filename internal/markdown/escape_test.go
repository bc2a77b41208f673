package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeV2(t *testing.T) {
	// Every reserved character gets exactly one backslash prefix.
	in := "_*[]()~`>#+-=|{}.!"
	want := `\_\*\[\]\(\)\~` + "\\`" + `\>\#\+\-\=\|\{\}\.\!`
	assert.Equal(t, want, EscapeV2(in))
}

func TestEscapeV2PlainTextUnchanged(t *testing.T) {
	assert.Equal(t, "hello world", EscapeV2("hello world"))
	assert.Equal(t, "", EscapeV2(""))
}

func TestEscapeV2Mixed(t *testing.T) {
	assert.Equal(t, "итог \\(всё\\): да\\!", EscapeV2("итог (всё): да!"))
}

func TestStripForSpeech(t *testing.T) {
	assert.Equal(t, "bold and code", StripForSpeech("*bold* and `code`"))
	assert.Equal(t, " heading", StripForSpeech("# heading"))
	assert.Equal(t, "underscored", StripForSpeech("_underscored_"))
}
