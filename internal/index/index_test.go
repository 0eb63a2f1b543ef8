package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"implindex/internal/crawler"
	"implindex/internal/extractor"
)

// mapReader serves sources from memory.
type mapReader map[string]string

func (r mapReader) ReadSource(path string) ([]byte, error) {
	src, ok := r[path]
	if !ok {
		return nil, errors.New("file not found")
	}
	return []byte(src), nil
}

const pendingSrc = `class PendingImplications {
  static xstateConfig = {
    meta: { status: "pending", statusLabel: "Pending review", platform: "club", entity: "booking" },
    on: {
      ACCEPT: { target: "accepted", description: "Club accepts the request" },
      REJECT: "rejected",
    },
  };
  static mirrorsOn = {
    UI: {
      web: {
        bookingList: [
          { blockId: "row", label: "SC-13092 Booking row",
            conditions: { checks: [ { field: "booking.status", equals: "pending" } ] } },
          { label: "Second block" },
        ],
        details: { description: "inherits base screen" },
      },
    },
  };
}`

const acceptedSrc = `class AcceptedImplications {
  static xstateConfig = {
    meta: { status: "accepted", statusLabel: "Accepted" },
    on: { CANCEL: "cancelled" },
  };
}`

const duplicateSrc = `class OtherPendingImplications {
  static xstateConfig = { meta: { status: "pending" }, on: { LATE: "late" } };
}`

func testSources() mapReader {
	return mapReader{
		"states/PendingImplications.js":      pendingSrc,
		"states/AcceptedImplications.js":     acceptedSrc,
		"states/HelperImplications.js":       "export const x = 1;",
		"states/OtherPendingImplications.js": duplicateSrc,
	}
}

func testManifest() *crawler.Manifest {
	return &crawler.Manifest{
		Root: "/project",
		Files: []crawler.Entry{
			{Path: "states/PendingImplications.js"},
			{Path: "states/AcceptedImplications.js"},
			{Path: "states/HelperImplications.js"},
			{Path: "states/MissingImplications.js"},
			{Path: "states/OtherPendingImplications.js"},
		},
		Transitions: []crawler.Transition{
			{From: "pending", Event: "ACCEPT", To: "accepted"},
			{From: "accepted", Event: "ARCHIVE", To: "#archived"},
		},
	}
}

func buildTestIndex(t *testing.T, m *crawler.Manifest) *Index {
	t.Helper()
	b := NewBuilder(extractor.NewExtractor(), WithReader(testSources()), WithWorkers(2))
	idx, err := b.Build(context.Background(), m, "")
	require.NoError(t, err)
	return idx
}

func TestBuilder_Build(t *testing.T) {
	idx := buildTestIndex(t, testManifest())

	t.Run("Stats", func(t *testing.T) {
		assert.Equal(t, 5, idx.Stats.FilesSeen)
		assert.Equal(t, 2, idx.Stats.FilesIndexed)
		assert.Equal(t, 1, idx.Stats.FilesSkipped)
		assert.Equal(t, 1, idx.Stats.Errors)
		assert.Equal(t, 1, idx.Stats.DuplicatesDropped)
		assert.Equal(t, 1, idx.Stats.ManifestTransitions)
		assert.Equal(t, 2, idx.Stats.Documents[TypeState])
		assert.Equal(t, "/project", idx.Root)
	})

	t.Run("States", func(t *testing.T) {
		pending, ok := idx.ByState["pending"]
		require.True(t, ok)
		assert.Equal(t, "Pending review", pending.StatusLabel)
		assert.Equal(t, "club", pending.Platform)
		assert.Equal(t, "states/PendingImplications.js", pending.SourceFile)
		assert.Equal(t, 2, pending.TransitionCount)
		assert.Contains(t, pending.Text, "Pending review")

		accepted := idx.ByState["accepted"]
		require.NotNil(t, accepted)
		assert.Equal(t, 2, accepted.TransitionCount, "manifest transition is folded in")
	})

	t.Run("Transitions", func(t *testing.T) {
		ids := make([]string, 0, len(idx.Transitions))
		for _, tr := range idx.Transitions {
			ids = append(ids, tr.ID)
		}
		assert.Equal(t, []string{"pending.ACCEPT", "pending.REJECT", "accepted.CANCEL", "accepted.ARCHIVE"}, ids)
		assert.Equal(t, "archived", idx.Transitions[3].To)
		assert.Len(t, idx.ByEvent["ACCEPT"], 1)
		require.Len(t, idx.Incoming("accepted"), 1)
		assert.Equal(t, "pending", idx.Incoming("accepted")[0].From)
		assert.Len(t, idx.Outgoing("pending"), 2)
	})

	t.Run("Validations", func(t *testing.T) {
		ids := make([]string, 0, len(idx.Validations))
		for _, v := range idx.Validations {
			ids = append(ids, v.ID)
		}
		assert.Equal(t, []string{
			"pending.web.bookingList.row",
			"pending.web.bookingList.block2",
			"pending.web.details",
		}, ids)
		assert.True(t, idx.Validations[0].HasConditions)
		assert.False(t, idx.Validations[1].HasConditions)
		assert.Equal(t, "inherits base screen", idx.Validations[2].Description)
	})

	t.Run("Tickets", func(t *testing.T) {
		require.Len(t, idx.ByTicket["SC-13092"], 1)
		assert.Equal(t, "pending.web.bookingList.row", idx.ByTicket["SC-13092"][0].ID)
	})

	t.Run("Conditions", func(t *testing.T) {
		require.Len(t, idx.Conditions, 1)
		c := idx.Conditions[0]
		assert.Equal(t, "pending.web.bookingList.row.booking.status.1", c.ID)
		assert.Equal(t, extractor.OpEquals, c.Operator)
		assert.Equal(t, "pending", c.Value)
		assert.Len(t, idx.ByField["booking.status"], 1)
		assert.Len(t, idx.ByField["status"], 1)
	})

	t.Run("Terms", func(t *testing.T) {
		assert.Contains(t, idx.Postings("13092"), "pending.web.bookingList.row")
		assert.Contains(t, idx.Postings("status"), "pending.web.bookingList.row.booking.status.1")
		assert.NotContains(t, idx.Terms, "a")
		assert.IsIncreasing(t, idx.SortedTerms())
	})

	t.Run("Unique ids", func(t *testing.T) {
		total := len(idx.States) + len(idx.Transitions) + len(idx.Validations) + len(idx.Conditions)
		assert.Equal(t, total, len(idx.ByID))
	})
}

func TestBuilder_NoManifest(t *testing.T) {
	_, err := NewBuilder(nil).Build(context.Background(), nil, "/x")
	assert.ErrorIs(t, err, ErrNoData)
	assert.EqualError(t, err, "no data to index")
}

func TestBuilder_Idempotent(t *testing.T) {
	m := testManifest()
	m.Files = m.Files[:4]

	a := buildTestIndex(t, m)
	b := buildTestIndex(t, m)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	reversed := *m
	reversed.Files = nil
	for i := len(m.Files) - 1; i >= 0; i-- {
		reversed.Files = append(reversed.Files, m.Files[i])
	}
	c := buildTestIndex(t, &reversed)
	assert.Equal(t, a.Fingerprint(), c.Fingerprint(), "file order does not change content")
}

func TestBuilder_UsesEmbeddedRecordWhenUnreadable(t *testing.T) {
	m := &crawler.Manifest{Files: []crawler.Entry{{
		Path:   "gone/GoneImplications.js",
		Record: &extractor.Record{Meta: extractor.Meta{Status: "gone"}, Quality: extractor.QualityLiteral},
	}}}
	idx := buildTestIndex(t, m)
	assert.Contains(t, idx.ByState, "gone")
	assert.Zero(t, idx.Stats.Errors)
}

func TestChainMemo(t *testing.T) {
	idx := buildTestIndex(t, testManifest())
	_, ok := idx.CachedChain("accepted")
	assert.False(t, ok)

	idx.StoreChain("accepted", Chain{Target: "accepted", Status: ChainFound, Steps: []string{"pending", "accepted"}})
	c, ok := idx.CachedChain("accepted")
	require.True(t, ok)
	assert.Equal(t, []string{"pending", "accepted"}, c.Steps)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"SC-13092 Booking_row", []string{"sc", "13092", "booking", "row"}},
		{"booking.status", []string{"booking", "status"}},
		{"a b! c?? ok", []string{"ok"}},
		{"Don't stop", []string{"dont", "stop"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Tokenize(tt.in)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "checked in", Humanize("checked_in"))
	assert.Equal(t, "booking details", Humanize("bookingDetails"))
	assert.Equal(t, "booking status", Humanize("booking.status"))
	assert.Equal(t, "", Humanize(""))
}
