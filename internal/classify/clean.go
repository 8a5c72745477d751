/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package classify turns raw offer reply mail into a coarse decision.
package classify

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var punctuation = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "‛", "'",
	"“", `"`, "”", `"`, "„", `"`,
	"‐", "-", "‑", "-", "‒", "-", "–", "-", "—", "-", "−", "-",
	"…", "...",
	" ", " ", "​", "",
)

var (
	wroteLine    = regexp.MustCompile(`(?i)^on .+ wrote:?$`)
	originalLine = regexp.MustCompile(`(?i)^-{2,}\s*original message\s*-{2,}$`)
	headerLine   = regexp.MustCompile(`(?i)^(from|sent|to|subject|date):\s`)
	ruleLine     = regexp.MustCompile(`^[_=-]{5,}$`)
	sentFromLine = regexp.MustCompile(`(?i)^sent from my\b`)
)

// CleanReply strips quoted history and signatures from a reply body and
// normalizes it to single-spaced ASCII punctuation. Only the text the sender
// actually wrote on top of the thread is kept.
func CleanReply(body string) string {
	body = norm.NFKC.String(body)
	body = punctuation.Replace(body)
	body = strings.ReplaceAll(body, "\r\n", "\n")

	var kept []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "--" || strings.HasPrefix(line, "-- ") {
			break
		}
		if wroteLine.MatchString(trimmed) || originalLine.MatchString(trimmed) ||
			ruleLine.MatchString(trimmed) || sentFromLine.MatchString(trimmed) {
			break
		}
		// A forwarded header block only starts a quote once something was written.
		if len(kept) > 0 && headerLine.MatchString(trimmed) {
			break
		}
		if trimmed == "" || strings.HasPrefix(trimmed, ">") {
			continue
		}
		kept = append(kept, trimmed)
	}

	return strings.Join(strings.Fields(strings.Join(kept, " ")), " ")
}
