// Package telegramutil holds Telegram-specific text helpers shared by the
// transport layer.
package telegramutil

import "strings"

var markdownV2Escapes = map[byte]bool{
	'\\': true,
	'_':  true,
	'*':  true,
	'[':  true,
	']':  true,
	'(':  true,
	')':  true,
	'~':  true,
	'`':  true,
	'>':  true,
	'#':  true,
	'+':  true,
	'-':  true,
	'=':  true,
	'|':  true,
	'{':  true,
	'}':  true,
	'.':  true,
	'!':  true,
}

// EscapeMarkdownV2 escapes every MarkdownV2 special character.
func EscapeMarkdownV2(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 8)
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if markdownV2Escapes[ch] {
			b.WriteByte('\\')
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// EscapeMarkdownUnderscores escapes underscores outside code spans and fenced
// blocks. Model output often contains identifiers like "one_on_one" which
// Telegram would otherwise render as italics.
func EscapeMarkdownUnderscores(text string) string {
	if !strings.Contains(text, "_") {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + 8)

	inCodeBlock := false
	inInlineCode := false

	for i := 0; i < len(text); i++ {
		if !inInlineCode && strings.HasPrefix(text[i:], "```") {
			inCodeBlock = !inCodeBlock
			b.WriteString("```")
			i += 2
			continue
		}

		ch := text[i]

		if !inCodeBlock && ch == '`' {
			inInlineCode = !inInlineCode
			b.WriteByte(ch)
			continue
		}

		if !inCodeBlock && !inInlineCode && ch == '_' {
			// Avoid double-escaping if the model already emitted \_
			if i > 0 && text[i-1] == '\\' {
				b.WriteByte('_')
				continue
			}
			b.WriteByte('\\')
			b.WriteByte('_')
			continue
		}

		b.WriteByte(ch)
	}

	return b.String()
}
