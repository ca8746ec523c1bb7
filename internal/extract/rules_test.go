package extract

import "testing"

func TestSkipRulesFireInOrder(t *testing.T) {
	cases := []struct {
		line string
		rule string
	}{
		{"[image: logo.png]", "image-placeholder"},
		{"Hi Justin,", "salutation"},
		{"G'day Justin,", "salutation"},
		{"Good morning team, quick update below", "salutation"},
		{"By Justin Miller", "document-byline"},
		{"Owner: Justin, Drew", "role-label"},
		{"Assignee: Mike Chen", "role-label"},
		{"On Tue, Feb 24 at 3:13 AM Sara Bunjaku <bunjaks@ccf.org> wrote:", "thread-attribution"},
		{"bunjaks@ccf.org> wrote:", "quoted-attribution"},
		{"You have received this email because you are subscribed to updates", "footer-boilerplate"},
		{"© 2026 Pactum AI, all rights reserved", "footer-boilerplate"},
		{"Drew Carlson shared a document", "share-notification"},
		{"Drew Carlson (drew@pactum.com) has invited you to edit the following document", "invite-line"},
		{"Sara Bunjaku <bunjaks@ccf.org>", "contact-line"},
		{"bunjaks@ccf.org", "bare-address"},
		{"> From: Mike Chen <mike@pactum.com>", "header-continuation"},
		{"Subject: Q3 pricing review", "header-continuation"},
		{"Organizer: drew@pactum.com", "calendar-field"},
		{"When: Tuesday Apr 28, 2026 9am", "calendar-field"},
		{"Join Zoom: https://zoom.us/j/123", "calendar-field"},
		{"www.pactum.ai", "bare-domain"},
		{"Pactum.com", "bare-domain"},
		{"Mike Chen | +1 415 555 0134 | mike@pactum.com", "signature-contact"},
		{"10:30am - 11am (CST)", "time-slot"},
		{"Tue Apr 28, 2026 9am – 9:30am", "weekday-time"},
		{"Justin Miller - organizer", "bare-name"},
		{"The next step is confirming your preferred setup approach:", "section-header"},
		{"If at any point you have questions please let me", "dangling-fragment"},
		{"who from Pactum would be best to", "dangling-fragment"},
		{"Lehmanc@ccf.org>, <hutchij@ccf.org>, Sara Bunjaku <bunjaks@ccf.org>", "multi-address"},
	}
	for _, tc := range cases {
		reason, skipped := skipReason(tc.line)
		if !skipped {
			t.Errorf("%q: expected skip by %s, was not skipped", tc.line, tc.rule)
			continue
		}
		if reason != tc.rule {
			t.Errorf("%q: skipped by %s, want %s", tc.line, reason, tc.rule)
		}
	}
}

func TestSkipRulesLeaveDirectivesAlone(t *testing.T) {
	lines := []string{
		"Justin, can you follow up with Drew on pricing by next Friday?",
		"Please send the updated pricing deck to the whole team",
		"Action item for Justin: update the Cleveland Clinic proposal",
		"Justin needs to confirm the rollout date with legal",
	}
	for _, line := range lines {
		if reason, skipped := skipReason(line); skipped {
			t.Errorf("%q: unexpectedly skipped by %s", line, reason)
		}
	}
}

func TestDanglingFragmentNeedsFiveWords(t *testing.T) {
	// Ends with an article but is too short to be a wrapped fragment.
	if _, skipped := skipReason("Check the"); skipped {
		t.Error("short line should not hit the dangling-fragment rule")
	}
}

func TestBareNameWithActionVocabularySurvives(t *testing.T) {
	if reason, skipped := skipReason("Justin Miller please follow"); skipped {
		t.Errorf("name line with action vocabulary skipped by %s", reason)
	}
}
