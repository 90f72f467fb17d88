package format

import (
	"fmt"
	"strings"
)

const (
	// MarkdownV1 denotes Telegram markdown version 1.
	MarkdownV1 = 1
	// MarkdownV2 denotes Telegram markdown version 2.
	MarkdownV2 = 2
)

const mdV2Specials = "_*[]()~`>#+-=|{}.!\\"

var (
	mdV1Escaper = escaper("_*`[\\")
	mdV2Escaper = escaper(mdV2Specials)
	// Inside pre/code entities only ` and \ need escaping, inside text_link URLs only ) and \.
	mdV2CodeEscaper = escaper("`\\")
	mdV2LinkEscaper = escaper(")\\")
)

func escaper(specials string) *strings.Replacer {
	pairs := make([]string, 0, 2*len(specials))
	for _, r := range specials {
		pairs = append(pairs, string(r), `\`+string(r))
	}
	return strings.NewReplacer(pairs...)
}

// EscapeMarkdown escapes special characters for MarkdownV1 or V2. entityType
// selects the V2 rules for "pre", "code" and "text_link"; anything else uses the
// plain text rules.
func EscapeMarkdown(text string, version int, entityType string) (string, error) {
	switch version {
	case MarkdownV1:
		return mdV1Escaper.Replace(text), nil
	case MarkdownV2:
		switch entityType {
		case "pre", "code":
			return mdV2CodeEscaper.Replace(text), nil
		case "text_link":
			return mdV2LinkEscaper.Replace(text), nil
		}
		return mdV2Escaper.Replace(text), nil
	}
	return "", fmt.Errorf("unsupported markdown version: %d", version)
}

// EscapeV2 is EscapeMarkdown for plain MarkdownV2 text.
func EscapeV2(text string) string {
	return mdV2Escaper.Replace(text)
}
