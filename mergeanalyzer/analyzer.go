// Package mergeanalyzer classifies a branch diff against a schema registry
// (spec.md §4.7 "Merge analyzer"): which modified tables can be merged
// without a human, and which need conflict resolution.
package mergeanalyzer

import (
	"sort"

	"github.com/rhizodata/rhizo/algebra"
	"github.com/rhizodata/rhizo/branch"
)

// Classification is the merge analyzer's output.
type Classification struct {
	AutoMergeable []string
	Conflicting   []string
	SourceOnly    []string
	TargetOnly    []string
	Unchanged     []string
}

// Analyze classifies diff's tables using registry's declared op types. A
// table is auto_mergeable iff its default op type and every one of its
// registered columns report is_conflict_free; a table with no registered
// schema is conservatively
// treated as conflicting, since its default op type resolves to Unknown.
func Analyze(diff branch.Diff, registry *algebra.Registry) Classification {
	c := Classification{
		Unchanged:  append([]string{}, diff.Unchanged...),
		SourceOnly: namesOf(diff.AddedInSource),
		TargetOnly: namesOf(diff.AddedInTarget),
	}

	for _, m := range diff.Modified {
		if registry.Registered(m.Table) && registry.CanAutoMerge(m.Table, registry.Columns(m.Table)) {
			c.AutoMergeable = append(c.AutoMergeable, m.Table)
		} else {
			c.Conflicting = append(c.Conflicting, m.Table)
		}
	}

	sort.Strings(c.Unchanged)
	sort.Strings(c.SourceOnly)
	sort.Strings(c.TargetOnly)
	sort.Strings(c.AutoMergeable)
	sort.Strings(c.Conflicting)
	return c
}

func namesOf(pairs []branch.TableVersionPair) []string {
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.Table
	}
	return out
}
