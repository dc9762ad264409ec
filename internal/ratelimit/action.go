package ratelimit

import (
	"strings"
	"time"
)

// Action names a throttled diary operation.
type Action string

const (
	// ActionSignIn covers register, login and admin activation. Counted per client IP.
	ActionSignIn Action = "signin"
	// ActionWrite covers creating, editing and deleting diaries and profile edits.
	ActionWrite Action = "write"
	// ActionLike covers diary likes and profile likes.
	ActionLike Action = "like"
	// ActionFollow covers follow toggles.
	ActionFollow Action = "follow"
	// ActionFeedback covers feedback submission.
	ActionFeedback Action = "feedback"
	// ActionSummarize covers major event extraction requests.
	ActionSummarize Action = "summarize"
)

// Rule is a fixed-window budget.
type Rule struct {
	Limit  int
	Window time.Duration
}

func (r Rule) enabled() bool { return r.Limit > 0 && r.Window > 0 }

// Caller identifies who performs an action.
type Caller struct {
	UID   string
	Admin bool
	IP    string
}

// Decision is the resolved budget and counter key of one action.
type Decision struct {
	Action Action
	Rule   Rule
	Key    string
}

// Result describes the outcome of a check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Decide resolves the counter key of caller performing action. Admins and actions
// without a rule get an empty key and are never throttled. Sign-in is always counted
// per client IP, everything else per uid with the client IP as anonymous fallback.
func (p Policy) Decide(action Action, caller Caller) Decision {
	rule, ok := p[action]
	if !ok || !rule.enabled() || caller.Admin {
		return Decision{Action: action}
	}
	who := ""
	uid := strings.TrimSpace(caller.UID)
	ip := strings.TrimSpace(caller.IP)
	switch {
	case action != ActionSignIn && uid != "":
		who = "u:" + uid
	case ip != "":
		who = "ip:" + ip
	}
	if who == "" {
		return Decision{Action: action}
	}
	return Decision{Action: action, Rule: rule, Key: string(action) + ":" + who}
}

// windowOf returns the start and end of the fixed window containing now.
func windowOf(now time.Time, window time.Duration) (time.Time, time.Time) {
	start := now.Truncate(window)
	return start, start.Add(window)
}
