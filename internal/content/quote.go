package content

import (
	"regexp"
	"strings"
)

const (
	monthsPat   = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*`
	weekdaysPat = `(?:Mon|Tue|Wed|Thu|Fri|Sat|Sun)[a-z]*`
)

var (
	// Marker lines that introduce a quoted block in common mail clients.
	replyMarkerRE = regexp.MustCompile(`(?i)^(?:` +
		`-+ ?original message ?-+|` +
		`_{8,}|` +
		`on .{0,200}wrote:|` +
		`sent from my \S+` +
		`)\s*$`)

	// "---On <date>, <sender> wrote:" style tails (Yahoo and friends).
	dashOnWroteRE = regexp.MustCompile(`(?is)\n?-{2,3}\s*on .{0,300}?wrote:.*$`)

	// "On <weekday>?, <month> <day> ... wrote:" with either "Mon DD" or
	// "DD Mon" date order, weekday optional.
	onDateWroteRE = regexp.MustCompile(`(?is)\n?on\s+(?:` + weekdaysPat + `,?\s+)?` +
		`(?:` + monthsPat + `\s+\d{1,2}|\d{1,2}\s+` + monthsPat + `)` +
		`[^\n]{0,200}?wrote:\s*\n?.*$`)

	// Trailing Outlook-style forwarded header block.
	outlookHeaderRE = regexp.MustCompile(`(?is)\n\s*from:[^\n]*\n(?:[^\n]*\n)?\s*sent:[^\n]*\n.*$`)

	// Unsubscribe-style conversation footer.
	leaveFooterRE = regexp.MustCompile(`(?is)\n?leave this conversation.*$`)

	// Lone "--" signature separator.
	sigSeparatorRE = regexp.MustCompile(`(?m)^--\s*$`)

	zeroWidthReplacer = strings.NewReplacer(
		"\u200b", "", // zero-width space
		"\u200c", "", // zero-width non-joiner
		"\u200d", "", // zero-width joiner
		"\ufeff", "", // byte order mark
	)
)

// StripQuotedReplies removes trailing quoted content from an inbound email
// body. The steps run in a fixed order, each over the output of the previous
// one, so a marker cut by an earlier step can never resurface:
//
//  1. cut at the first standard reply-marker line
//  2. cut "---On <date>, <sender> wrote:" tails
//  3. cut "On <date> ... wrote:" tails (both date orders, weekday optional)
//  4. drop trailing "> " quoted lines
//  5. drop a trailing Outlook From:/Sent: header block
//  6. strip zero-width characters and trailing blank lines
//  7. drop a "Leave this conversation" footer
//  8. truncate at a lone "--" signature separator
func StripQuotedReplies(s string) string {
	if s == "" {
		return ""
	}
	out := s

	// 1. First marker line wins; everything after it is quoted history.
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if replyMarkerRE.MatchString(strings.TrimSpace(line)) {
			lines = lines[:i]
			break
		}
	}
	out = strings.Join(lines, "\n")

	// 2 and 3. Provider-specific "wrote:" tails.
	out = dashOnWroteRE.ReplaceAllString(out, "")
	out = onDateWroteRE.ReplaceAllString(out, "")

	// 4. Trailing quoted lines.
	lines = strings.Split(out, "\n")
	for len(lines) > 0 {
		last := strings.TrimSpace(lines[len(lines)-1])
		if last == "" || strings.HasPrefix(last, ">") {
			lines = lines[:len(lines)-1]
			continue
		}
		break
	}
	out = strings.Join(lines, "\n")

	// 5. Forwarded-header block.
	out = outlookHeaderRE.ReplaceAllString(out, "")

	// 6. Invisible characters and trailing whitespace.
	out = zeroWidthReplacer.Replace(out)
	out = strings.TrimRight(out, " \t\n")

	// 7. Conversation footer.
	out = leaveFooterRE.ReplaceAllString(out, "")

	// 8. Signature separator.
	if loc := sigSeparatorRE.FindStringIndex(out); loc != nil {
		out = out[:loc[0]]
	}

	return strings.TrimSpace(out)
}

// BuildQuotedReply appends a quoted block to fresh reply content: the quoted
// body is flattened to plain text, every line prefixed with "> ", and
// introduced by an "On {date}, {sender} wrote:" line.
func BuildQuotedReply(newContent, quotedContent, quotedSender, quotedDate string) string {
	quoted := HTMLToPlainText(quotedContent)
	lines := strings.Split(quoted, "\n")
	for i := range lines {
		lines[i] = "> " + lines[i]
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(newContent, "\n"))
	b.WriteString("\n\nOn ")
	b.WriteString(quotedDate)
	b.WriteString(", ")
	b.WriteString(quotedSender)
	b.WriteString(" wrote:\n")
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}
