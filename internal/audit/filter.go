package audit

import "time"

// Filter bounds a query. Zero-valued fields are ignored. Both sinks apply the
// same predicates: the remote sink pushes them down as SQL, the fallback sink
// evaluates Matches in-process, so callers observe no difference in behavior.
type Filter struct {
	From         *time.Time `json:"from,omitempty"`
	To           *time.Time `json:"to,omitempty"`
	Actions      []Action   `json:"actions,omitempty"`
	Categories   []Category `json:"categories,omitempty"`
	Severities   []Severity `json:"severities,omitempty"`
	ActorID      string     `json:"actor_id,omitempty"`
	ResourceType string     `json:"resource_type,omitempty"`
	ResourceID   string     `json:"resource_id,omitempty"`
	Success      *bool      `json:"success,omitempty"`
}

// Matches reports whether an entry satisfies every set predicate.
func (f Filter) Matches(e Entry) bool {
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	if len(f.Actions) > 0 && !containsAction(f.Actions, e.Action) {
		return false
	}
	if len(f.Categories) > 0 && !containsCategory(f.Categories, e.Category) {
		return false
	}
	if len(f.Severities) > 0 && !containsSeverity(f.Severities, e.Severity) {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	if f.ResourceID != "" && e.ResourceID != f.ResourceID {
		return false
	}
	if f.Success != nil && e.Success != *f.Success {
		return false
	}
	return true
}

// Summary renders the set predicates for audit metadata on export events.
func (f Filter) Summary() map[string]any {
	out := map[string]any{}
	if f.From != nil {
		out["from"] = f.From.Format(time.RFC3339)
	}
	if f.To != nil {
		out["to"] = f.To.Format(time.RFC3339)
	}
	if len(f.Actions) > 0 {
		out["actions"] = f.Actions
	}
	if len(f.Categories) > 0 {
		out["categories"] = f.Categories
	}
	if len(f.Severities) > 0 {
		out["severities"] = f.Severities
	}
	if f.ActorID != "" {
		out["actor_id"] = f.ActorID
	}
	if f.ResourceType != "" {
		out["resource_type"] = f.ResourceType
	}
	if f.ResourceID != "" {
		out["resource_id"] = f.ResourceID
	}
	if f.Success != nil {
		out["success"] = *f.Success
	}
	return out
}

func containsAction(list []Action, v Action) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsCategory(list []Category, v Category) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsSeverity(list []Severity, v Severity) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
