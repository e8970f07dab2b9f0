package vcs

import (
	"fmt"
	"strings"
)

// quoteChars are the characters that make a value unsafe to pass unquoted
// through shell word splitting.
const quoteChars = " \t\r\n\"'\\;&|<>$`()#*?"

// ArgumentBuilder assembles a command-line argument string. The zero value
// is ready to use. Blank values are dropped together with their flag, so
// optional configuration can be added unconditionally.
type ArgumentBuilder struct {
	tokens  []string
	secrets []string
}

// AddArgument adds a positional value, quoting it when needed.
func (b *ArgumentBuilder) AddArgument(value string) {
	if isBlank(value) {
		return
	}
	b.tokens = append(b.tokens, Quote(value))
}

// AddFlag adds "name value". Nothing is added when value is blank.
func (b *ArgumentBuilder) AddFlag(name, value string) {
	if isBlank(value) {
		return
	}
	b.tokens = append(b.tokens, name+" "+Quote(value))
}

// AddSecretFlag is AddFlag for values that must not appear in logs.
func (b *ArgumentBuilder) AddSecretFlag(name, value string) {
	if isBlank(value) {
		return
	}
	b.AddFlag(name, value)
	// The quoted form is what appears on the command line; it goes first so
	// it is masked whole before the raw value.
	if quoted := Quote(value); quoted != value {
		b.secrets = append(b.secrets, quoted)
	}
	b.secrets = append(b.secrets, value)
}

// AppendArgument adds literal unmodified. Use it for tokens that carry their
// own quoting.
func (b *ArgumentBuilder) AppendArgument(literal string) {
	if isBlank(literal) {
		return
	}
	b.tokens = append(b.tokens, literal)
}

// AppendIf adds the formatted token only when condition holds.
func (b *ArgumentBuilder) AppendIf(condition bool, format string, args ...any) {
	if condition {
		b.AppendArgument(fmt.Sprintf(format, args...))
	}
}

// Secrets returns the values added with AddSecretFlag, each preceded by its
// quoted form when quoting changed it.
func (b *ArgumentBuilder) Secrets() []string {
	return append([]string(nil), b.secrets...)
}

func (b *ArgumentBuilder) String() string {
	return strings.Join(b.tokens, " ")
}

// Quote wraps value in double quotes when it contains whitespace, quotes or
// shell metacharacters. Embedded backslashes and double quotes are escaped.
func Quote(value string) string {
	if value == "" {
		return `""`
	}
	if !strings.ContainsAny(value, quoteChars) {
		return value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
	return `"` + escaped + `"`
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
