package tools

import (
	"encoding/json"
	"regexp"
	"strings"
)

// decodeJSONBody pretty-prints JSON content for display; falls back to the
// raw body when it doesn't parse as JSON.
func decodeJSONBody(body []byte) (string, string) {
	var data interface{}
	if err := json.Unmarshal(body, &data); err == nil {
		formatted, _ := json.MarshalIndent(data, "", "  ")
		return string(formatted), "json"
	}
	return string(body), "raw"
}

// htmlBlockPatterns match elements that are dropped entirely before any
// other conversion runs: scripts, styles, comments, and chrome (nav/footer)
// that is rarely part of the article content a fetch is after.
var htmlBlockPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script[\s\S]*?</script>`),
	regexp.MustCompile(`(?is)<style[\s\S]*?</style>`),
	regexp.MustCompile(`<!--[\s\S]*?-->`),
	regexp.MustCompile(`(?is)<nav[\s\S]*?</nav>`),
	regexp.MustCompile(`(?is)<footer[\s\S]*?</footer>`),
}

// htmlHeaderPattern is stripped only in plain-text mode; markdown mode keeps
// <header> content, headings included. Header removal alone is conditional
// on the target format.
var htmlHeaderPattern = regexp.MustCompile(`(?is)<header[\s\S]*?</header>`)

var (
	htmlHeadingPatterns = []struct {
		re     *regexp.Regexp
		prefix string
	}{
		{regexp.MustCompile(`(?i)<h1[^>]*>([\s\S]*?)</h1>`), "# "},
		{regexp.MustCompile(`(?i)<h2[^>]*>([\s\S]*?)</h2>`), "## "},
		{regexp.MustCompile(`(?i)<h3[^>]*>([\s\S]*?)</h3>`), "### "},
		{regexp.MustCompile(`(?i)<h4[^>]*>([\s\S]*?)</h4>`), "#### "},
		{regexp.MustCompile(`(?i)<h5[^>]*>([\s\S]*?)</h5>`), "##### "},
		{regexp.MustCompile(`(?i)<h6[^>]*>([\s\S]*?)</h6>`), "###### "},
	}

	htmlParagraphPattern = regexp.MustCompile(`(?i)<p[^>]*>([\s\S]*?)</p>`)
	htmlBreakPattern     = regexp.MustCompile(`(?i)<br\s*/?>`)
	htmlRulePattern      = regexp.MustCompile(`(?i)<hr\s*/?>`)
	htmlListItemPattern  = regexp.MustCompile(`(?i)<li[^>]*>([\s\S]*?)</li>`)
	htmlAnchorPattern    = regexp.MustCompile(`(?i)<a[^>]*href="([^"]*)"[^>]*>([\s\S]*?)</a>`)
	htmlPrePattern       = regexp.MustCompile(`(?is)<pre[^>]*>([\s\S]*?)</pre>`)
	htmlCodePattern      = regexp.MustCompile(`(?i)<code[^>]*>([\s\S]*?)</code>`)
	htmlStrongPattern    = regexp.MustCompile(`(?i)<(?:strong|b)[^>]*>([\s\S]*?)</(?:strong|b)>`)
	htmlEmPattern        = regexp.MustCompile(`(?i)<(?:em|i)[^>]*>([\s\S]*?)</(?:em|i)>`)
	htmlBlockquotePattern = regexp.MustCompile(`(?is)<blockquote[^>]*>([\s\S]*?)</blockquote>`)
	htmlImagePattern     = regexp.MustCompile(`(?i)<img[^>]*alt="([^"]*)"[^>]*/?>`)
	htmlTablePattern     = regexp.MustCompile(`(?is)<table[^>]*>([\s\S]*?)</table>`)
	htmlTableRowPattern  = regexp.MustCompile(`(?is)<tr[^>]*>([\s\S]*?)</tr>`)
	htmlTableCellPattern = regexp.MustCompile(`(?is)<t[hd][^>]*>([\s\S]*?)</t[hd]>`)

	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	htmlMultiNLPattern = regexp.MustCompile(`\n{3,}`)
	htmlMultiSPPattern = regexp.MustCompile(`[ \t]{2,}`)
)

// stripNonContentElements removes markup that never contributes readable
// content, regardless of output format.
func stripNonContentElements(html string) string {
	s := html
	for _, p := range htmlBlockPatterns {
		s = p.ReplaceAllString(s, "")
	}
	return s
}

// htmlTableToMarkdown renders a <table> as a GitHub-flavored markdown table.
// Column widths are not aligned; this favors a correct, readable structure
// over cosmetic padding.
func htmlTableToMarkdown(tableHTML string) string {
	rows := htmlTableRowPattern.FindAllStringSubmatch(tableHTML, -1)
	if len(rows) == 0 {
		return ""
	}

	var lines []string
	for i, row := range rows {
		cells := htmlTableCellPattern.FindAllStringSubmatch(row[1], -1)
		var fields []string
		for _, c := range cells {
			fields = append(fields, strings.TrimSpace(htmlTagPattern.ReplaceAllString(c[1], " ")))
		}
		if len(fields) == 0 {
			continue
		}
		lines = append(lines, "| "+strings.Join(fields, " | ")+" |")
		if i == 0 {
			sep := make([]string, len(fields))
			for j := range sep {
				sep[j] = "---"
			}
			lines = append(lines, "| "+strings.Join(sep, " | ")+" |")
		}
	}
	return "\n" + strings.Join(lines, "\n") + "\n"
}

// convertHTMLToMarkdown renders HTML as a markdown approximation. It is not
// a full Readability/Turndown port, just enough structure (headings, lists,
// links, code, tables) to keep a fetched page legible as markdown.
func convertHTMLToMarkdown(html string) string {
	s := stripNonContentElements(html)

	for _, h := range htmlHeadingPatterns {
		s = h.re.ReplaceAllString(s, "\n"+h.prefix+"$1\n")
	}

	s = htmlPrePattern.ReplaceAllString(s, "\n```\n$1\n```\n")
	s = htmlCodePattern.ReplaceAllString(s, "`$1`")

	s = htmlTablePattern.ReplaceAllStringFunc(s, func(match string) string {
		inner := htmlTablePattern.FindStringSubmatch(match)
		if len(inner) < 2 {
			return match
		}
		return htmlTableToMarkdown(inner[1])
	})

	s = htmlBlockquotePattern.ReplaceAllStringFunc(s, func(match string) string {
		inner := htmlBlockquotePattern.FindStringSubmatch(match)
		if len(inner) < 2 {
			return match
		}
		lines := strings.Split(strings.TrimSpace(inner[1]), "\n")
		quoted := make([]string, 0, len(lines))
		for _, l := range lines {
			quoted = append(quoted, "> "+strings.TrimSpace(l))
		}
		return "\n" + strings.Join(quoted, "\n") + "\n"
	})

	s = htmlAnchorPattern.ReplaceAllString(s, "[$2]($1)")
	s = htmlImagePattern.ReplaceAllString(s, "![$1]")
	s = htmlStrongPattern.ReplaceAllString(s, "**$1**")
	s = htmlEmPattern.ReplaceAllString(s, "*$1*")
	s = htmlRulePattern.ReplaceAllString(s, "\n---\n")
	s = htmlParagraphPattern.ReplaceAllString(s, "\n$1\n")
	s = htmlBreakPattern.ReplaceAllString(s, "\n")
	s = htmlListItemPattern.ReplaceAllString(s, "\n- $1")
	s = htmlTagPattern.ReplaceAllString(s, "")

	s = decodeHTMLEntities(s)
	s = htmlMultiNLPattern.ReplaceAllString(s, "\n\n")
	s = htmlMultiSPPattern.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// convertHTMLToText extracts plain, readable text from HTML, dropping all
// formatting and markup.
func convertHTMLToText(html string) string {
	s := stripNonContentElements(html)
	s = htmlHeaderPattern.ReplaceAllString(s, "")

	s = htmlParagraphPattern.ReplaceAllString(s, "\n$1\n")
	s = htmlBreakPattern.ReplaceAllString(s, "\n")
	s = htmlListItemPattern.ReplaceAllString(s, "\n- $1")
	s = htmlTagPattern.ReplaceAllString(s, "")

	s = decodeHTMLEntities(s)
	s = htmlMultiSPPattern.ReplaceAllString(s, " ")
	s = htmlMultiNLPattern.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	clean := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			clean = append(clean, line)
		}
	}
	return strings.Join(clean, "\n")
}

// stripMarkdownFormatting removes markdown syntax for plain-text output.
func stripMarkdownFormatting(md string) string {
	s := md
	s = regexp.MustCompile(`(?m)^#{1,6}\s+`).ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = regexp.MustCompile("`[^`]+`").ReplaceAllStringFunc(s, func(m string) string {
		return strings.Trim(m, "`")
	})
	s = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`).ReplaceAllString(s, "$1")
	s = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`).ReplaceAllString(s, "$1")
	s = htmlMultiNLPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// decodeHTMLEntities unescapes the handful of named entities common in
// fetched web content; &#39; is decoded, other numeric entities (&#123;) are
// left as-is.
func decodeHTMLEntities(s string) string {
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&apos;", "'",
		"&nbsp;", " ",
		"&mdash;", "—",
		"&ndash;", "–",
		"&laquo;", "«",
		"&raquo;", "»",
		"&bull;", "•",
		"&hellip;", "...",
		"&copy;", "(c)",
		"&reg;", "(R)",
		"&trade;", "(TM)",
	)
	return replacer.Replace(s)
}
