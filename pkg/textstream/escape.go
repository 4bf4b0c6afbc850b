package textstream

import "strings"

// escaper encodes more than the minimal HTML set so substituted values are
// safe in text nodes and in unquoted attribute values. It is not safe for
// script or style content.
var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"`", "&#x60;",
	" ", "&#x20;",
	"!", "&#x21;",
	"@", "&#x40;",
	"$", "&#x24;",
	"%", "&#x25;",
	"(", "&#x28;",
	")", "&#x29;",
	"=", "&#x3D;",
	"+", "&#x2B;",
	"{", "&#x7B;",
	"}", "&#x7D;",
	"[", "&#x5B;",
	"]", "&#x5D;",
)

// Escape HTML-encodes text for inclusion in markup
func Escape(text string) string {
	return escaper.Replace(text)
}
