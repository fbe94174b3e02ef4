package format

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MarkdownV1 denotes Telegram markdown version 1.
	MarkdownV1 = 1
	// MarkdownV2 denotes Telegram markdown version 2.
	MarkdownV2 = 2
)

const mdV2Specials = "_*[]()~`>#+-=|{}.!"

var (
	mdV1Re = regexp.MustCompile(`([_*\\\[` + "`" + `])`)
	// QuoteMeta leaves '-' alone, which would open a range inside the class.
	mdV2Re = regexp.MustCompile("([" + strings.ReplaceAll(regexp.QuoteMeta(mdV2Specials), "-", `\-`) + "])")
)

// EscapeMarkdown escapes special characters for MarkdownV1 or V2.
func EscapeMarkdown(text string, version int) (string, error) {
	switch version {
	case MarkdownV1:
		return mdV1Re.ReplaceAllString(text, `\$1`), nil
	case MarkdownV2:
		return mdV2Re.ReplaceAllString(text, `\$1`), nil
	}
	return "", fmt.Errorf("unsupported markdown version: %d", version)
}

// EscapeOutsideCode escapes underscores for legacy Markdown everywhere except
// inside `inline code` spans, where Telegram takes text literally.
func EscapeOutsideCode(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 16)
	inCode := false
	for _, r := range text {
		switch {
		case r == '`':
			inCode = !inCode
		case r == '_' && !inCode:
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
