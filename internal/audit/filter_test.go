package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilterMatches(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := Entry{
		Timestamp:    ts,
		Action:       ActionEvidenceDeleted,
		Category:     CategoryCompliance,
		Severity:     SeverityWarning,
		ActorID:      "user-1",
		ResourceType: "evidence",
		ResourceID:   "ev-9",
		Success:      true,
	}

	boolPtr := func(v bool) *bool { return &v }
	timePtr := func(v time.Time) *time.Time { return &v }

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter matches everything", Filter{}, true},
		{"from inclusive", Filter{From: timePtr(ts)}, true},
		{"from excludes earlier", Filter{From: timePtr(ts.Add(time.Second))}, false},
		{"to inclusive", Filter{To: timePtr(ts)}, true},
		{"to excludes later", Filter{To: timePtr(ts.Add(-time.Second))}, false},
		{"action match", Filter{Actions: []Action{ActionEvidenceDeleted, ActionAuthLogin}}, true},
		{"action mismatch", Filter{Actions: []Action{ActionAuthLogin}}, false},
		{"category match", Filter{Categories: []Category{CategoryCompliance}}, true},
		{"severity mismatch", Filter{Severities: []Severity{SeverityCritical}}, false},
		{"actor match", Filter{ActorID: "user-1"}, true},
		{"actor mismatch", Filter{ActorID: "user-2"}, false},
		{"resource match", Filter{ResourceType: "evidence", ResourceID: "ev-9"}, true},
		{"resource id mismatch", Filter{ResourceType: "evidence", ResourceID: "ev-1"}, false},
		{"success match", Filter{Success: boolPtr(true)}, true},
		{"success mismatch", Filter{Success: boolPtr(false)}, false},
		{"all predicates together", Filter{
			From:       timePtr(ts.Add(-time.Hour)),
			To:         timePtr(ts.Add(time.Hour)),
			Actions:    []Action{ActionEvidenceDeleted},
			Categories: []Category{CategoryCompliance},
			Severities: []Severity{SeverityWarning},
			ActorID:    "user-1",
			Success:    boolPtr(true),
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(entry))
		})
	}
}

func TestFilterSummary(t *testing.T) {
	t.Run("empty filter summarizes to nothing", func(t *testing.T) {
		assert.Empty(t, Filter{}.Summary())
	})

	t.Run("set predicates appear", func(t *testing.T) {
		from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		success := false
		summary := Filter{
			From:    &from,
			Actions: []Action{ActionAuthLoginFailed},
			Success: &success,
		}.Summary()

		assert.Equal(t, "2026-03-01T00:00:00Z", summary["from"])
		assert.Equal(t, []Action{ActionAuthLoginFailed}, summary["actions"])
		assert.Equal(t, false, summary["success"])
	})
}
