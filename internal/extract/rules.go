package extract

import (
	"regexp"
	"strings"
)

// A skipRule rejects a line outright before any signal detection runs.
// Rules are evaluated top to bottom, first match wins; the order below is a
// documented contract, not incidental.
type skipRule struct {
	name    string
	matches func(line string) bool
}

var (
	reImagePlaceholder = regexp.MustCompile(`(?i)^\[image:`)
	reSalutation       = regexp.MustCompile(`(?i)^(?:hi|hello|hey|dear|g'?day|good\s+(?:morning|afternoon|evening|day))\b`)
	reByline           = regexp.MustCompile(`^[Bb]y\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\s*$`)
	reRoleLabel        = regexp.MustCompile(`(?i)^(?:owner|lead|responsible|assignee|poc|dri|point\s+of\s+contact)\s*:`)
	reOnOpener         = regexp.MustCompile(`(?i)^on\s+\w`)
	reWroteTail        = regexp.MustCompile(`(?i)wrote:\s*$|<\s*$|@[\w.\-]+>\s*$`)
	reQuotedWrote      = regexp.MustCompile(`(?i)@[\w.\-]+>\s*wrote:\s*$`)
	reFooter           = regexp.MustCompile(`(?i)^(?:google\s+llc|you\s+have\s+received\s+this\s+email\s+because` +
		`|this\s+email\s+was\s+sent\s+to|unsubscribe|privacy\s+policy` +
		`|©\s*\d{4}|all\s+rights\s+reserved` +
		`|\d+\s+\w+.*(?:ave|blvd|pkwy|way|street|road|drive).*\busa\b` +
		`|mountain\s+view|1600\s+amphitheatre)`)
	reShareNotice  = regexp.MustCompile(`(?i)^[\w\s.\-]+ shared (?:a |an )?(?:document|file|folder|spreadsheet|slide)`)
	reInviteLine   = regexp.MustCompile(`(?i)^[\w\s.\-]+\([\w.\-+]+@[\w.\-]+\)\s+has\s+(?:invited|shared)`)
	reContactLine  = regexp.MustCompile(`(?i)^[\w\s.\-]+[(<][\w.\-+]+@[\w.\-]+\.(?:com|net|org|io)[>)]\s*(?:has\s+invited|shared|wrote|said)?`)
	reBareAddress  = regexp.MustCompile(`^[\w.\-+]+@[\w.\-]+`)
	reHeaderLine   = regexp.MustCompile(`(?i)^[>\s]*(?:from|to|cc|bcc|subject|date|reply-to|message-id|delivered-to|received|x-[\w-]+)\s*:`)
	reCalendarLine = regexp.MustCompile(`(?i)^[>\s]*(?:organizer|when|where|attendees?|time|location|` +
		`event(?:\s+title)?|join\s+(?:zoom|the\s+meeting)|` +
		`dial[\s\-]?in|conference\s+(?:id|room)|` +
		`proposed\s+(?:new\s+)?time|video\s+call|meeting\s+link)\s*[:\-]`)
	reBareDomain  = regexp.MustCompile(`(?i)^(?:www\.)?[\w\-]+\.(?:com|net|org|io|ai|co|us)\s*$`)
	rePhoneNumber = regexp.MustCompile(`\+?\d[\d\s.\-()]{6,}\d`)
	reAnyAddress  = regexp.MustCompile(`[\w.\-+]+@[\w.\-]+`)
	reTimeSlot    = regexp.MustCompile(`(?i)^\d{1,2}:\d{2}\s*(?:am|pm)\b`)
	reWeekdayLead = regexp.MustCompile(`(?i)^(?:mon|tue|wed|thu|fri|sat|sun)\w*\b`)
	reClockTime   = regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*(?:am|pm)\b`)
	reBareName    = regexp.MustCompile(`^[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\s*(?:[-–]\s*[\w\s]+)?$`)
	reActionWord  = regexp.MustCompile(`(?i)\b(?:please|must|should|need|action|follow|next\s+step)\b`)
	// Line-wrapped fragments end with a word that almost never closes a
	// complete sentence: prepositions, conjunctions, articles, determiners,
	// pronouns.
	reDanglingTail = regexp.MustCompile(`(?i)\b(?:to|and|or|but|for|in|of|at|by|from|with|into|onto|over|through|about` +
		`|the|a|an|this|that|these|those|your|our|their|its|my|his|her` +
		`|me|us|them|him)\s*$`)
)

func wordCount(line string) int {
	return len(strings.Fields(line))
}

// skipRules is the ordered hard-skip cascade. A line matching any rule is
// discarded before signal detection and never reaches later checks.
var skipRules = []skipRule{
	{"image-placeholder", func(l string) bool {
		return reImagePlaceholder.MatchString(l)
	}},
	{"salutation", func(l string) bool {
		return reSalutation.MatchString(l) && wordCount(l) <= 20
	}},
	{"document-byline", func(l string) bool {
		return reByline.MatchString(l)
	}},
	{"role-label", func(l string) bool {
		return reRoleLabel.MatchString(l)
	}},
	{"thread-attribution", func(l string) bool {
		return reOnOpener.MatchString(l) && reWroteTail.MatchString(l)
	}},
	{"quoted-attribution", func(l string) bool {
		return reQuotedWrote.MatchString(l)
	}},
	{"footer-boilerplate", func(l string) bool {
		return reFooter.MatchString(l)
	}},
	{"share-notification", func(l string) bool {
		return reShareNotice.MatchString(l)
	}},
	{"invite-line", func(l string) bool {
		return reInviteLine.MatchString(l)
	}},
	{"contact-line", func(l string) bool {
		return reContactLine.MatchString(l) && wordCount(l) <= 15
	}},
	{"bare-address", func(l string) bool {
		return reBareAddress.MatchString(l) && wordCount(l) <= 4
	}},
	{"header-continuation", func(l string) bool {
		return reHeaderLine.MatchString(l)
	}},
	{"calendar-field", func(l string) bool {
		return reCalendarLine.MatchString(l)
	}},
	{"bare-domain", func(l string) bool {
		return reBareDomain.MatchString(l)
	}},
	{"signature-contact", func(l string) bool {
		return rePhoneNumber.MatchString(l) && reAnyAddress.MatchString(l)
	}},
	{"time-slot", func(l string) bool {
		return reTimeSlot.MatchString(l)
	}},
	{"weekday-time", func(l string) bool {
		return reWeekdayLead.MatchString(l) && reClockTime.MatchString(l) && wordCount(l) <= 12
	}},
	{"bare-name", func(l string) bool {
		return reBareName.MatchString(l) && wordCount(l) <= 6 && !reActionWord.MatchString(l)
	}},
	{"section-header", func(l string) bool {
		return strings.HasSuffix(strings.TrimRight(l, " \t"), ":")
	}},
	{"dangling-fragment", func(l string) bool {
		return reDanglingTail.MatchString(l) && wordCount(l) >= 5
	}},
	{"multi-address", func(l string) bool {
		return len(reAnyAddress.FindAllString(l, 3)) >= 2
	}},
}

// skipReason returns the name of the first matching hard-skip rule, if any.
func skipReason(line string) (string, bool) {
	for _, rule := range skipRules {
		if rule.matches(line) {
			return rule.name, true
		}
	}
	return "", false
}
