// Package merge reconciles local reading positions against the remote state
// document using last-writer-wins on epoch-millisecond timestamps.
//
// Merge is pure: it performs no I/O, never fails and returns the same result
// for the same inputs.
package merge

import (
	"sort"
	"time"

	"github.com/mrlokans/lumina/internal/syncdoc"
)

// Action is the per-book outcome of a merge.
type Action string

const (
	ActionPull Action = "pull"
	ActionPush Action = "push"
	ActionNoop Action = "noop"
)

// Local is the part of a local book record the merge looks at.
type Local struct {
	BookID    string
	CFI       string
	Timestamp int64
}

// Decision tells the orchestrator what to do with one local book.
type Decision struct {
	BookID string
	Action Action
	// Entry is the value the merged document carries for the book. For a
	// pull it is the remote position to apply locally.
	Entry syncdoc.Entry
}

// Result is the merged document plus one decision per local book, ordered by book id.
type Result struct {
	Document  *syncdoc.Document
	Decisions []Decision
}

// Pulls returns the pull decisions.
func (r Result) Pulls() []Decision {
	return r.filter(ActionPull)
}

// Pushes returns the push decisions.
func (r Result) Pushes() []Decision {
	return r.filter(ActionPush)
}

// PushIDs returns the ids of pushed books in decision order.
func (r Result) PushIDs() []string {
	pushes := r.Pushes()
	ids := make([]string, 0, len(pushes))
	for _, d := range pushes {
		ids = append(ids, d.BookID)
	}
	return ids
}

// Counts returns the number of decisions per action.
func (r Result) Counts() map[Action]int {
	counts := map[Action]int{ActionPull: 0, ActionPush: 0, ActionNoop: 0}
	for _, d := range r.Decisions {
		counts[d.Action]++
	}
	return counts
}

func (r Result) filter(action Action) []Decision {
	var out []Decision
	for _, d := range r.Decisions {
		if d.Action == action {
			out = append(out, d)
		}
	}
	return out
}

// Merge combines locals with remote. remote may be nil when no document
// exists yet. Remote entries for books that are not local are carried
// through unchanged. On equal timestamps the remote entry wins and the
// decision is a noop.
func Merge(locals []Local, remote *syncdoc.Document, deviceLabel string, now time.Time) Result {
	merged := syncdoc.New()
	if remote != nil {
		merged = remote.Clone()
		if merged.Books == nil {
			merged.Books = make(map[string]syncdoc.Entry)
		}
	}

	decisions := make([]Decision, 0, len(locals))
	for _, local := range locals {
		localEntry := syncdoc.Entry{CFI: local.CFI, TS: local.Timestamp}
		remoteEntry, ok := remote.Entry(local.BookID)

		var d Decision
		switch {
		case !ok:
			d = Decision{BookID: local.BookID, Action: ActionPush, Entry: localEntry}
		case remoteEntry.TS > local.Timestamp:
			d = Decision{BookID: local.BookID, Action: ActionPull, Entry: remoteEntry}
		case remoteEntry.TS < local.Timestamp:
			d = Decision{BookID: local.BookID, Action: ActionPush, Entry: localEntry}
		default:
			d = Decision{BookID: local.BookID, Action: ActionNoop, Entry: remoteEntry}
		}
		merged.Books[local.BookID] = d.Entry
		decisions = append(decisions, d)
	}

	sort.SliceStable(decisions, func(i, j int) bool {
		return decisions[i].BookID < decisions[j].BookID
	})

	if deviceLabel != "" {
		merged.LastDevice = deviceLabel
	}
	merged.LastSynced = syncdoc.FormatTimestamp(now)

	return Result{Document: merged, Decisions: decisions}
}
