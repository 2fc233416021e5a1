package report

import (
	"bytes"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"github.com/tuumbleweed/xerr"
)

/*
RenderHTML converts a Report into a single HTML string using inline CSS only.
*/
func RenderHTML(report Report) (htmlText string, e *xerr.Error) {
	var buffer bytes.Buffer

	buffer.WriteString("<!doctype html>")
	buffer.WriteString("<html>")
	buffer.WriteString("<head>")
	buffer.WriteString(`<meta charset="utf-8">`)
	buffer.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	buffer.WriteString("</head>")

	bodyStyle := "margin:0;padding:0;background-color:#F3F4F6;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Inter,Arial,sans-serif;color:#111827;"
	buffer.WriteString(`<body style="` + bodyStyle + `">`)

	// Outer wrapper table (email-safe centering).
	buffer.WriteString(`<table role="presentation" cellpadding="0" cellspacing="0" border="0" width="100%" style="border-collapse:collapse;background-color:#F3F4F6;">`)
	buffer.WriteString(`<tr><td align="center" style="padding:24px;">`)
	buffer.WriteString(`<table role="presentation" cellpadding="0" cellspacing="0" border="0" width="680" style="border-collapse:separate;background-color:#F3F4F6;width:680px;max-width:680px;">`)
	buffer.WriteString(`<tr><td style="padding:0;">`)

	// Header.
	buffer.WriteString(`<div style="padding:8px 4px 18px 4px;">`)
	buffer.WriteString(`<div style="font-size:24px;font-weight:800;line-height:1.2;color:#111827;">` + html.EscapeString(report.Title) + `</div>`)
	buffer.WriteString(`<div style="margin-top:6px;font-size:13px;line-height:1.5;color:#6B7280;">`)
	buffer.WriteString(`Samples: <span style="font-weight:700;color:#111827;">` + formatIntHuman(int64(report.Samples)) + `</span>`)
	buffer.WriteString(` &nbsp;•&nbsp; Augmented: <span style="font-weight:700;color:#111827;">` + formatIntHuman(int64(report.Augmented)) + `</span>`)
	buffer.WriteString(` &nbsp;•&nbsp; With backdrop: <span style="font-weight:700;color:#111827;">` + formatIntHuman(int64(report.Background)) + `</span>`)
	buffer.WriteString(`</div>`)
	buffer.WriteString(`</div>`)

	// Run card.
	if len(report.Stats) > 0 {
		buffer.WriteString(`<div style="padding:0 0 18px 0;">`)
		buffer.WriteString(cardOpen())
		buffer.WriteString(`<div style="padding:18px;">`)
		buffer.WriteString(`<div style="font-size:12px;letter-spacing:0.10em;text-transform:uppercase;color:#6B7280;">Run</div>`)
		buffer.WriteString(`<table role="presentation" cellpadding="0" cellspacing="0" border="0" width="100%" style="margin-top:10px;border-collapse:collapse;font-size:13px;">`)
		buffer.WriteString(`<tr style="color:#6B7280;"><td>Kind</td><td align="right">Requested</td><td align="right">Successful</td><td align="right">Failed</td><td align="right">Skipped</td><td align="right">Exhausted</td></tr>`)
		kinds := make([]string, 0, len(report.Stats))
		for kind := range report.Stats {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			s := report.Stats[kind]
			buffer.WriteString(`<tr style="font-weight:700;color:#111827;">`)
			buffer.WriteString(`<td style="padding-top:6px;">` + html.EscapeString(displayName(kind)) + `</td>`)
			for _, v := range []int{s.Requested, s.Successful, s.Failed, s.SkippedDuplicate, s.Exhausted} {
				buffer.WriteString(`<td align="right" style="padding-top:6px;">` + formatIntHuman(int64(v)) + `</td>`)
			}
			buffer.WriteString(`</tr>`)
		}
		buffer.WriteString(`</table>`)
		buffer.WriteString(`</div>`)
		buffer.WriteString(cardClose())
		buffer.WriteString(`</div>`)
	}

	writeBreakdown(&buffer, "Content", "Share of samples per content kind.", report.Kinds)
	writeBreakdown(&buffer, "Fonts", "Share of samples per font.", report.Fonts)
	writeBreakdown(&buffer, "Augmentation", "How often each transform fired on augmented samples.", report.Transforms)
	writeBreakdown(&buffer, "Backdrop effects", "How often each layer fired on samples with a backdrop.", report.Effects)

	// Notes card.
	buffer.WriteString(`<div style="padding:0 0 18px 0;">`)
	buffer.WriteString(cardOpen())
	buffer.WriteString(`<div style="padding:16px 18px 16px 18px;">`)
	buffer.WriteString(`<div style="font-size:13px;font-weight:900;color:#111827;">Notes</div>`)
	buffer.WriteString(`<div style="margin-top:10px;font-size:12px;line-height:1.7;color:#6B7280;">`)
	for _, note := range report.Notes {
		buffer.WriteString(`• ` + html.EscapeString(note) + `<br>`)
	}
	buffer.WriteString(`</div>`)
	buffer.WriteString(`<div style="margin-top:12px;font-size:11px;color:#9CA3AF;">Generated ` + html.EscapeString(report.GeneratedAt.Format("2006-01-02 15:04:05")) + `</div>`)
	buffer.WriteString(`</div>`)
	buffer.WriteString(cardClose())
	buffer.WriteString(`</div>`)

	// Close main container and wrappers.
	buffer.WriteString(`</td></tr></table>`)
	buffer.WriteString(`</td></tr></table>`)
	buffer.WriteString(`</body>`)
	buffer.WriteString(`</html>`)

	htmlText = buffer.String()
	return htmlText, e
}

// writeBreakdown renders one card of bars. Empty breakdowns are skipped.
func writeBreakdown(buffer *bytes.Buffer, title, subtitle string, rows []Row) {
	if len(rows) == 0 {
		return
	}
	buffer.WriteString(`<div style="padding:0 0 18px 0;">`)
	buffer.WriteString(cardOpen())
	buffer.WriteString(`<div style="padding:18px 18px 4px 18px;">`)
	buffer.WriteString(`<div style="font-size:14px;font-weight:800;color:#111827;">` + html.EscapeString(title) + `</div>`)
	buffer.WriteString(`<div style="margin-top:4px;font-size:12px;line-height:1.5;color:#6B7280;">` + html.EscapeString(subtitle) + `</div>`)
	buffer.WriteString(`</div>`)

	buffer.WriteString(`<div style="padding:0 18px 18px 18px;">`)
	buffer.WriteString(`<table role="presentation" cellpadding="0" cellspacing="0" border="0" width="100%" style="border-collapse:separate;border-spacing:0 10px;">`)
	for _, row := range rows {
		buffer.WriteString(`<tr><td style="padding:0;">`)
		buffer.WriteString(`<table role="presentation" cellpadding="0" cellspacing="0" border="0" width="100%" style="border-collapse:collapse;">`)
		buffer.WriteString(`<tr>`)
		buffer.WriteString(`<td style="vertical-align:top;padding-right:10px;">`)
		buffer.WriteString(`<div style="display:inline-block;width:10px;height:10px;border-radius:999px;background-color:` + row.Color + `;margin-right:8px;position:relative;top:1px;"></div>`)
		buffer.WriteString(`<span style="font-size:13px;font-weight:800;color:#111827;">` + html.EscapeString(row.Label) + `</span>`)
		buffer.WriteString(`</td>`)
		buffer.WriteString(`<td align="right" style="vertical-align:top;font-size:13px;font-weight:900;color:#111827;">`)
		buffer.WriteString(formatIntHuman(row.Count) + ` <span style="font-size:12px;font-weight:800;color:#6B7280;">` + fmt.Sprintf("%.1f%%", row.Percent) + `</span>`)
		buffer.WriteString(`</td>`)
		buffer.WriteString(`</tr>`)

		// Bar.
		buffer.WriteString(`<tr><td colspan="2" style="padding-top:6px;">`)
		buffer.WriteString(`<div style="width:100%;height:8px;border-radius:999px;background-color:#EEF2FF;overflow:hidden;border:1px solid #E5E7EB;">`)
		buffer.WriteString(`<div style="height:8px;width:` + strconv.Itoa(row.BarPercent) + `%;background-color:` + row.Color + `;border-radius:999px;"></div>`)
		buffer.WriteString(`</div>`)
		buffer.WriteString(`</td></tr>`)
		buffer.WriteString(`</table>`)
		buffer.WriteString(`</td></tr>`)
	}
	buffer.WriteString(`</table>`)
	buffer.WriteString(`</div>`)
	buffer.WriteString(cardClose())
	buffer.WriteString(`</div>`)
}

/*
RenderText is the plain-text alternative of the report for email clients
that do not show HTML.
*/
func RenderText(report Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", report.Title)
	fmt.Fprintf(&b, "Samples: %s, augmented: %s, with backdrop: %s\n",
		formatIntHuman(int64(report.Samples)), formatIntHuman(int64(report.Augmented)), formatIntHuman(int64(report.Background)))

	kinds := make([]string, 0, len(report.Stats))
	for kind := range report.Stats {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(&b, "%s: %s\n", kind, report.Stats[kind])
	}
	for _, row := range report.Fonts {
		fmt.Fprintf(&b, "  %s: %s (%.1f%%)\n", row.Label, formatIntHuman(row.Count), row.Percent)
	}
	for _, note := range report.Notes {
		fmt.Fprintf(&b, "- %s\n", note)
	}
	return b.String()
}

/*
cardOpen returns the opening HTML for a card-like container (email-safe).
*/
func cardOpen() string {
	return `<div style="background-color:#FFFFFF;border:1px solid #E5E7EB;border-radius:16px;box-shadow:0 8px 24px rgba(17,24,39,0.06);overflow:hidden;">`
}

/*
cardClose returns the closing HTML for a card-like container.
*/
func cardClose() string {
	return `</div>`
}

/*
groupThousands groups digits in a base-10 string using the provided separator.
*/
func groupThousands(raw string, sep string) string {
	if len(raw) <= 3 {
		return raw
	}

	var builder strings.Builder
	firstGroupLen := len(raw) % 3
	if firstGroupLen == 0 {
		firstGroupLen = 3
	}

	builder.WriteString(raw[:firstGroupLen])

	for index := firstGroupLen; index < len(raw); index += 3 {
		builder.WriteString(sep)
		builder.WriteString(raw[index : index+3])
	}

	return builder.String()
}

/*
formatIntHuman formats a count with comma separators for readability.
*/
func formatIntHuman(value int64) string {
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}
	return sign + groupThousands(strconv.FormatInt(value, 10), ",")
}
