// Package policy gates model-planned actions before device execution.
//
// Every action is checked against the current device registry snapshot
// and the configured deny/allow lists of domain.service pairs. Checks
// are stateless and evaluated fresh per action, so rule changes apply
// mid-plan.
package policy
