package engine

import (
	"fmt"
	"strings"

	"ai-networking-be/pkg/store"
)

const (
	replyIdleHelp     = "Tell me about someone you met, for example \"Add John Smith, CEO at Acme\"."
	replyNothingSave  = "There's no contact in progress to save."
	replyNothingDrop  = "There's no contact in progress to cancel."
	replyNeedIdentity = "What's their name? I need a name or an email before I can save this contact."
	replyAskName      = "Got it. Who is this? Tell me their name."
)

func describeStarted(d *store.Draft) string {
	subject := d.Subject()
	if subject == "" {
		return replyAskName
	}
	return fmt.Sprintf("Started a new contact: %s.%s", subject, summarySuffix(d))
}

func describeUpdated(d *store.Draft, applied []store.Field) string {
	subject := label(d)
	if len(applied) == 0 {
		return fmt.Sprintf("Still working on %s. Anything else? Say \"done\" when finished.", subject)
	}
	names := make([]string, len(applied))
	for i, f := range applied {
		names[i] = fieldLabel(f)
	}
	return fmt.Sprintf("Updated %s: %s.%s", subject, strings.Join(names, ", "), hintSuffix(d))
}

func describeReopened(d *store.Draft) string {
	return fmt.Sprintf("Reopened %s to add that. Say \"done\" to save the changes.%s", label(d), summarySuffix(d))
}

func describeReopenedEmpty(d *store.Draft) string {
	return fmt.Sprintf("Reopened %s. What should I add or change?", label(d))
}

func describeConfirm(d *store.Draft) string {
	return fmt.Sprintf("Ready to save %s:\n%s\nSave it? (yes/no)", label(d), summary(d))
}

func describeCommitted(subject string, created bool) string {
	if created {
		return fmt.Sprintf("Saved %s.", subject)
	}
	return fmt.Sprintf("Updated the saved contact %s.", subject)
}

func describeCommitFailed(d *store.Draft) string {
	return fmt.Sprintf("I couldn't save %s right now. Your draft is kept; say \"done\" to try again.", label(d))
}

func describeDiscarded(subject string) string {
	if subject == "" {
		return "Discarded the contact in progress."
	}
	return fmt.Sprintf("Discarded %s.", subject)
}

func describePending(current, next string) string {
	if next == "" {
		return fmt.Sprintf("You're still working on %s. Say \"done\" to save them first, or \"cancel\" to discard.", current)
	}
	return fmt.Sprintf("You're still working on %s. Should I save %s first and then start %s? Say \"done\" to save %s, or \"cancel\" to discard.",
		current, current, next, current)
}

func describeStale(d *store.Draft) string {
	return fmt.Sprintf("It's been a while. Are you still working on %s? Send that again to add it, \"done\" to save, or \"cancel\" to discard.", label(d))
}

func describeUnclear(d *store.Draft) string {
	return fmt.Sprintf("I didn't catch that. Tell me more about %s, or say \"done\" or \"cancel\".", label(d))
}

func label(d *store.Draft) string {
	if s := d.Subject(); s != "" {
		return s
	}
	if e := d.Get(store.FieldEmail); e != "" {
		return e
	}
	return "this contact"
}

func summary(d *store.Draft) string {
	var lines []string
	for _, f := range d.SortedFields() {
		lines = append(lines, fmt.Sprintf("- %s: %s", fieldLabel(f), d.Get(f)))
	}
	return strings.Join(lines, "\n")
}

func summarySuffix(d *store.Draft) string {
	if d.Len() <= 1 {
		return hintSuffix(d)
	}
	return "\n" + summary(d) + hintSuffix(d)
}

func hintSuffix(d *store.Draft) string {
	missing := d.MissingHints()
	if len(missing) == 0 {
		return ""
	}
	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = fieldLabel(f)
	}
	return fmt.Sprintf("\nStill missing: %s.", strings.Join(names, ", "))
}

func fieldLabel(f store.Field) string {
	switch f {
	case store.FieldLinkedInURL:
		return "LinkedIn"
	case store.FieldCompanyLinkedIn:
		return "company LinkedIn"
	default:
		return strings.ReplaceAll(string(f), "_", " ")
	}
}
