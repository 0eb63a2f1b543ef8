package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"implindex/internal/crawler"
	"implindex/internal/extractor"
)

func entry(path, className, status string, transitions ...extractor.Transition) crawler.Entry {
	return crawler.Entry{
		Path: path,
		Record: &extractor.Record{
			ClassName:   className,
			Meta:        extractor.Meta{Status: status},
			Transitions: transitions,
		},
	}
}

func TestFromManifest(t *testing.T) {
	m := &crawler.Manifest{
		Files: []crawler.Entry{
			entry("a.js", "PendingBookingImplications", "pending",
				extractor.Transition{Event: "ACCEPT", Target: "AcceptedBooking"},
				extractor.Transition{Event: "LOST", Target: "ghost"},
			),
			entry("b.js", "AcceptedBookingImplications", "accepted_booking",
				extractor.Transition{Event: "BACK", Target: "#pending"},
			),
			entry("c.js", "", ""),
			entry("d.js", "DuplicateImplications", "pending"),
		},
		Transitions: []crawler.Transition{
			{From: "pending", Event: "ACCEPT", To: "ignored"},
			{From: "accepted_booking", Event: "ARCHIVE", To: "pendingBooking"},
			{From: "nobody", Event: "X", To: "pending"},
		},
	}
	g := FromManifest(m)

	t.Run("Nodes", func(t *testing.T) {
		assert.Equal(t, []string{"pending", "accepted_booking"}, g.StateIDs())
		assert.Equal(t, "a.js", g.Nodes["pending"].Filepath)
	})

	t.Run("Alias resolution", func(t *testing.T) {
		out := g.Outgoing("pending")
		require.Len(t, out, 2)
		assert.Equal(t, "accepted_booking", out[0].To, "class name without suffix resolves")
		assert.Empty(t, out[1].To)

		back := g.Outgoing("accepted_booking")
		require.Len(t, back, 2)
		assert.Equal(t, "pending", back[0].To)
		assert.Equal(t, "pending", back[1].To, "camel case class alias resolves")
	})

	t.Run("Incoming", func(t *testing.T) {
		in, out := g.Degree("pending")
		assert.Equal(t, 2, in)
		assert.Equal(t, 2, out)
		assert.Len(t, g.Incoming("accepted_booking"), 1)
	})

	t.Run("Unresolved", func(t *testing.T) {
		require.Len(t, g.Unresolved, 1)
		assert.Equal(t, "ghost", g.Unresolved[0].Target)
		assert.Equal(t, map[UnresolvedReason]int{ReasonNoCandidate: 1}, g.UnresolvedReasonCounts())
	})
}

func TestGraph_Resolve(t *testing.T) {
	g := NewGraph()
	g.AddNode(&Node{ID: "checked_in", ClassName: "CheckedInImplications"})

	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"checked_in", "checked_in", true},
		{"#checked_in", "checked_in", true},
		{"CheckedIn", "checked_in", true},
		{"checkedIn", "checked_in", true},
		{"CheckedInImplications", "checked_in", true},
		{"checked-in", "checked_in", true},
		{"checked", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := g.Resolve(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGraph_Summarize(t *testing.T) {
	m := &crawler.Manifest{Files: []crawler.Entry{
		entry("a.js", "", "pending",
			extractor.Transition{Event: "ACCEPT", Target: "accepted"},
			extractor.Transition{Event: "LOSE", Target: "ghost"},
			extractor.Transition{Event: "NOWHERE", Target: ""},
		),
		entry("b.js", "", "accepted"),
	}}
	s := FromManifest(m).Summarize()

	assert.Equal(t, 2, s.States)
	assert.Equal(t, 3, s.Edges)
	assert.Equal(t, map[UnresolvedReason]int{ReasonNoCandidate: 1, ReasonEmptyTarget: 1}, s.Unresolved)
	assert.Equal(t, []StateDegree{
		{State: "pending", Incoming: 0, Outgoing: 3},
		{State: "accepted", Incoming: 1, Outgoing: 0},
	}, s.Degrees)

	var nilGraph *Graph
	assert.Equal(t, 0, nilGraph.Summarize().States)
}
