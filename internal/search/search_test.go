package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"implindex/internal/crawler"
	"implindex/internal/index"
)

type mapReader map[string]string

func (r mapReader) ReadSource(path string) ([]byte, error) {
	src, ok := r[path]
	if !ok {
		return nil, errors.New("file not found")
	}
	return []byte(src), nil
}

var sources = mapReader{
	"PendingImplications.js": `class PendingImplications {
  static xstateConfig = {
    meta: { status: "pending", statusLabel: "Pending review", entity: "booking" },
    on: {
      ACCEPT: { target: "accepted", description: "Club accepts the booking" },
      REJECT: "rejected",
    },
  };
  static mirrorsOn = {
    UI: {
      web: {
        bookingList: [
          { blockId: "row", label: "SC-13092 Booking row",
            conditions: [ { field: "booking.status", equals: "pending" } ] },
          { blockId: "badge", label: "SC-13092 status badge",
            conditions: [ { field: "booking.paid", truthy: true } ] },
        ],
      },
    },
  };
}`,
	"AcceptedImplications.js": `class AcceptedImplications {
  static xstateConfig = {
    meta: { status: "accepted", statusLabel: "Accepted booking" },
    on: { CANCEL: { target: "cancelled", description: "Dancer cancels" } },
  };
}`,
}

func buildIndex(t *testing.T) *index.Index {
	t.Helper()
	m := &crawler.Manifest{Files: []crawler.Entry{
		{Path: "PendingImplications.js"},
		{Path: "AcceptedImplications.js"},
	}}
	idx, err := index.NewBuilder(nil, index.WithReader(sources)).Build(context.Background(), m, "/p")
	require.NoError(t, err)
	return idx
}

func ids(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.ID)
	}
	return out
}

func TestSearch_TicketFastPath(t *testing.T) {
	idx := buildIndex(t)

	results := Search(idx, "sc-13092", Options{Limit: 1, MinScore: 1000})
	expected := FindByTicket(idx, "SC-13092")
	require.Len(t, expected, 2)
	require.Len(t, results, len(expected), "limit and minScore do not apply")
	for i, r := range results {
		assert.Equal(t, TicketScore, r.Score)
		assert.Equal(t, expected[i].ID, r.ID)
	}
}

func TestSearch_UnknownTicketFallsBackToText(t *testing.T) {
	idx := buildIndex(t)
	results := Search(idx, "SC-1", Options{})
	for _, r := range results {
		assert.NotEqual(t, TicketScore, r.Score)
	}
}

func TestSearch_EmptyQueries(t *testing.T) {
	idx := buildIndex(t)
	assert.Empty(t, Search(idx, "", Options{}))
	assert.Empty(t, Search(idx, "   ", Options{}))
	assert.Empty(t, Search(idx, "a", Options{}))
	assert.Empty(t, Search(nil, "booking", Options{}))
}

func TestSearch_General(t *testing.T) {
	idx := buildIndex(t)

	t.Run("Sorted by score then id", func(t *testing.T) {
		results := Search(idx, "booking", Options{})
		require.NotEmpty(t, results)
		for i := 1; i < len(results); i++ {
			prev, cur := results[i-1], results[i]
			assert.True(t, prev.Score > cur.Score || (prev.Score == cur.Score && prev.ID < cur.ID),
				"%s (%v) before %s (%v)", prev.ID, prev.Score, cur.ID, cur.Score)
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		assert.Equal(t, ids(Search(idx, "booking status", Options{})), ids(Search(idx, "booking status", Options{})))
	})

	t.Run("Type filter", func(t *testing.T) {
		results := Search(idx, "booking", Options{Types: []index.DocType{index.TypeCondition}})
		require.NotEmpty(t, results)
		for _, r := range results {
			assert.Equal(t, index.TypeCondition, r.Type)
		}
	})

	t.Run("Prefix match", func(t *testing.T) {
		results := Search(idx, "cancel", Options{})
		assert.Contains(t, ids(results), "accepted.CANCEL")
	})

	t.Run("Score threshold", func(t *testing.T) {
		// "booking" is a prefix of the token, so its documents are
		// candidates, but none contains the token itself.
		assert.Empty(t, Search(idx, "bookingsx", Options{}))

		all := Search(idx, "bookingsx", Options{MinScore: NoMinScore})
		require.NotEmpty(t, all)
		for _, r := range all {
			assert.Less(t, r.Score, DefaultMinScore)
		}
	})

	t.Run("Limit", func(t *testing.T) {
		assert.Len(t, Search(idx, "booking", Options{Limit: 2}), 2)
	})

	t.Run("Field matches rank conditions first", func(t *testing.T) {
		results := Search(idx, "paid", Options{})
		require.NotEmpty(t, results)
		assert.Equal(t, "pending.web.bookingList.badge.booking.paid.1", results[0].ID)
	})
}

func TestScorer_PhraseIncreasesScore(t *testing.T) {
	queries := []string{"refund window", "club accepts", "status badge"}
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			base := "unrelated words only"
			without := &index.StateDocument{Common: index.Common{ID: "s", Type: index.TypeState, Text: base}}
			with := &index.StateDocument{Common: index.Common{ID: "s", Type: index.TypeState, Text: base + " | " + q}}

			sc := newScorer(q, index.Tokenize(q))
			assert.Greater(t, sc.score(with), sc.score(without))
		})
	}

	t.Run("Phrase bonus on top of terms", func(t *testing.T) {
		q := "refund window"
		scattered := &index.StateDocument{Common: index.Common{ID: "s", Type: index.TypeState, Text: "window for refund"}}
		phrased := &index.StateDocument{Common: index.Common{ID: "s", Type: index.TypeState, Text: "window for refund | refund window"}}

		sc := newScorer(q, index.Tokenize(q))
		assert.InDelta(t, 30.0, sc.score(scattered), 1e-9)
		assert.InDelta(t, 45.0, sc.score(phrased), 1e-9)
	})

	t.Run("Transition event earns no label weight", func(t *testing.T) {
		sc := newScorer("reject", []string{"reject"})
		tr := &index.TransitionDocument{
			Common: index.Common{ID: "x.y", Type: index.TypeTransition, Text: "unrelated"},
			Event:  "REJECT",
		}
		assert.InDelta(t, 0.0, sc.score(tr), 1e-9)
	})

	t.Run("Type priors", func(t *testing.T) {
		sc := newScorer("refund", []string{"refund"})
		v := &index.ValidationDocument{Common: index.Common{ID: "v", Type: index.TypeValidation, Text: "refund"}}
		c := &index.ConditionDocument{Common: index.Common{ID: "c", Type: index.TypeCondition, Text: "refund"}}
		assert.InDelta(t, 15*1.5*1.1, sc.score(v), 1e-9)
		assert.InDelta(t, 15*1.5*1.2, sc.score(c), 1e-9)
	})
}

func TestLookups(t *testing.T) {
	idx := buildIndex(t)

	t.Run("FindByTicket ignores case", func(t *testing.T) {
		docs := FindByTicket(idx, "sc-13092")
		require.Len(t, docs, 2)
		assert.Equal(t, "pending.web.bookingList.row", docs[0].ID)
		assert.Empty(t, FindByTicket(idx, "SC-1"))
	})

	t.Run("FindByEvent", func(t *testing.T) {
		require.Len(t, FindByEvent(idx, "ACCEPT"), 1)
		require.Len(t, FindByEvent(idx, "accept"), 1)
		assert.Empty(t, FindByEvent(idx, "MISSING"))
	})

	t.Run("FindByCondition", func(t *testing.T) {
		assert.Len(t, FindByCondition(idx, "booking.status"), 1)
		assert.Len(t, FindByCondition(idx, "status"), 1)
		assert.Len(t, FindByCondition(idx, "booking.*"), 2)
		assert.Len(t, FindByCondition(idx, "PAID"), 1)
		assert.Empty(t, FindByCondition(idx, ""))
	})

	t.Run("GetStateDetails", func(t *testing.T) {
		d, ok := GetStateDetails(idx, "accepted")
		require.True(t, ok)
		assert.Equal(t, "Accepted booking", d.State.StatusLabel)
		require.Len(t, d.Incoming, 1)
		assert.Equal(t, "pending.ACCEPT", d.Incoming[0].ID)
		require.Len(t, d.Outgoing, 1)

		pending, ok := GetStateDetails(idx, "pending")
		require.True(t, ok)
		assert.Len(t, pending.Validations, 2)
		assert.Len(t, pending.Conditions, 2)

		missing, ok := GetStateDetails(idx, "nope")
		assert.False(t, ok)
		assert.Nil(t, missing)
	})

	t.Run("Suggest", func(t *testing.T) {
		got := Suggest(idx, "Boo", 0)
		require.NotEmpty(t, got)
		assert.Equal(t, "booking", got[0].Term)
		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[i-1].Documents, got[i].Documents)
		}
		assert.Empty(t, Suggest(idx, "zzz", 5))
		assert.Len(t, Suggest(idx, "b", 1), 1)
	})
}
