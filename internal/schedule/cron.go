package schedule

import (
	"fmt"
	"time"
)

// Deadline computes the absolute UTC expiry instant for a session starting
// now. Kept separate from CronExpression so the wall-clock arithmetic and the
// scheduler translation can be tested on their own.
func Deadline(now time.Time, timeoutMinutes int) time.Time {
	return now.UTC().Add(time.Duration(timeoutMinutes) * time.Minute)
}

// CronExpression renders t as the scheduler's one-shot cron form,
// cron(minute hour day-of-month month ? year). Seconds are dropped, so the
// actual firing can drift up to a minute from the requested instant.
func CronExpression(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("cron(%d %d %d %d ? %d)",
		t.Minute(), t.Hour(), t.Day(), int(t.Month()), t.Year())
}

// RuleName derives the scheduler rule name for a charger. Downstream tooling
// matches on this prefix, so the format is part of the external contract.
func RuleName(chargerID string) string {
	return "charger-timeout-rule-" + chargerID
}

// TargetID derives the rule's single target id.
func TargetID(chargerID string) string {
	return "charger-target-" + chargerID
}

// StatementID derives the invoke-permission statement id for a rule.
func StatementID(ruleName string) string {
	return "allow-cloudwatch-" + ruleName
}

// RuleSourceARN builds the rule ARN used to scope the invoke permission so
// only this rule can invoke the expiry function.
func RuleSourceARN(region, accountID, ruleName string) string {
	return fmt.Sprintf("arn:aws:events:%s:%s:rule/%s", region, accountID, ruleName)
}
