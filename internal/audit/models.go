// Package audit produces a durable, queryable record of security- and
// business-relevant events. Entries buffer in memory and flush to a ranked
// list of sinks; a transient sink outage never loses an entry.
package audit

import (
	"strings"
	"time"
)

// Category is a coarse grouping of audit actions derived from the action's
// dotted namespace.
type Category string

const (
	CategoryAuthentication Category = "authentication"
	CategoryCompliance     Category = "compliance"
	CategoryVendor         Category = "vendor"
	CategorySecurity       Category = "security"
	CategoryReport         Category = "report"
	CategorySystem         Category = "system"
)

// Severity is a four-level urgency classification.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Action is the closed vocabulary of dotted audit action names.
type Action string

const (
	// Authentication
	ActionAuthLogin       Action = "auth.login"
	ActionAuthLoginFailed Action = "auth.login_failed"
	ActionAuthLogout      Action = "auth.logout"
	ActionAuthMFAEnabled  Action = "auth.mfa_enabled"

	// Compliance
	ActionEvidenceUploaded     Action = "evidence.uploaded"
	ActionEvidenceDeleted      Action = "evidence.deleted"
	ActionControlStatusChanged Action = "control.status_changed"
	ActionControlAssigned      Action = "control.assigned"

	// Vendor
	ActionVendorAdded   Action = "vendor.added"
	ActionVendorRemoved Action = "vendor.removed"

	// Security
	ActionRateLimitExceeded  Action = "security.rate_limit_exceeded"
	ActionSuspiciousActivity Action = "security.suspicious_activity"
	ActionBreachDetected     Action = "security.breach_detected"
	ActionDataExported       Action = "security.data_exported"

	// Report
	ActionReportGenerated     Action = "report.generated"
	ActionCertificateIssued   Action = "certificate.issued"
	ActionAuditBundleExported Action = "audit_bundle.exported"

	// System
	ActionOrgDeleted      Action = "org.deleted"
	ActionUserRoleChanged Action = "user.role_changed"
	ActionUserInvited     Action = "user.invited"
)

// categoryPrefixes maps action namespace prefixes to categories. Order matters
// only for readability; prefixes are disjoint.
var categoryPrefixes = []struct {
	prefix   string
	category Category
}{
	{"auth.", CategoryAuthentication},
	{"evidence.", CategoryCompliance},
	{"control.", CategoryCompliance},
	{"vendor.", CategoryVendor},
	{"security.", CategorySecurity},
	{"report.", CategoryReport},
	{"certificate.", CategoryReport},
	{"audit_bundle.", CategoryReport},
}

// CategoryOf derives the category from the action's dotted prefix.
// Unknown prefixes default to CategorySystem.
func CategoryOf(action Action) Category {
	for _, m := range categoryPrefixes {
		if strings.HasPrefix(string(action), m.prefix) {
			return m.category
		}
	}
	return CategorySystem
}

// severityOverrides lists actions whose successful outcome is still notable.
var severityOverrides = map[Action]Severity{
	ActionOrgDeleted:         SeverityCritical,
	ActionSuspiciousActivity: SeverityCritical,
	ActionBreachDetected:     SeverityCritical,
	ActionAuthLoginFailed:    SeverityWarning,
	ActionEvidenceDeleted:    SeverityWarning,
	ActionUserRoleChanged:    SeverityWarning,
	ActionDataExported:       SeverityWarning,
	ActionRateLimitExceeded:  SeverityWarning,
}

// SeverityOf derives the severity for an action and outcome. Failure always
// wins: an unsuccessful action is SeverityError regardless of any override.
func SeverityOf(action Action, success bool) Severity {
	if !success {
		return SeverityError
	}
	if sev, ok := severityOverrides[action]; ok {
		return sev
	}
	return SeverityInfo
}

// Entry is an immutable audit record. The JSON field set is the stable wire
// shape shared by the remote sink rows and the JSON export.
type Entry struct {
	ID             string         `json:"id"`
	Timestamp      time.Time      `json:"timestamp"`
	Action         Action         `json:"action"`
	Category       Category       `json:"category"`
	Severity       Severity       `json:"severity"`
	ActorID        string         `json:"actor_id"`
	ActorLabel     string         `json:"actor_label,omitempty"`
	OrganizationID string         `json:"organization_id,omitempty"`
	ResourceType   string         `json:"resource_type,omitempty"`
	ResourceID     string         `json:"resource_id,omitempty"`
	Description    string         `json:"description"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Success        bool           `json:"success"`
}
