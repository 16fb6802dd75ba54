package audit

import (
	"context"
	"fmt"

	"veritrail/internal/ratelimit/models"
)

// Namespaced convenience recorders. Pure sugar over Log/Success/Failure; they
// carry no additional contract.

func (s *Service) RecordLogin(ctx context.Context, actorID, actorLabel string) Entry {
	return s.Success(ctx, ActionAuthLogin,
		fmt.Sprintf("User %s signed in", actorLabel),
		WithActor(actorID, actorLabel))
}

func (s *Service) RecordLoginFailed(ctx context.Context, identifier, reason string) Entry {
	return s.Failure(ctx, ActionAuthLoginFailed,
		fmt.Sprintf("Sign-in failed for %s: %s", identifier, reason),
		WithMetadata(map[string]any{"identifier": identifier, "reason": reason}))
}

func (s *Service) RecordLogout(ctx context.Context) Entry {
	return s.Success(ctx, ActionAuthLogout, "User signed out")
}

func (s *Service) RecordEvidenceUploaded(ctx context.Context, evidenceID, name string) Entry {
	return s.Success(ctx, ActionEvidenceUploaded,
		fmt.Sprintf("Evidence %q uploaded", name),
		WithResource("evidence", evidenceID))
}

func (s *Service) RecordEvidenceDeleted(ctx context.Context, evidenceID, name string) Entry {
	return s.Success(ctx, ActionEvidenceDeleted,
		fmt.Sprintf("Evidence %q deleted", name),
		WithResource("evidence", evidenceID))
}

func (s *Service) RecordControlStatusChanged(ctx context.Context, controlID, from, to string) Entry {
	return s.Success(ctx, ActionControlStatusChanged,
		fmt.Sprintf("Control status changed from %s to %s", from, to),
		WithResource("control", controlID),
		WithMetadata(map[string]any{"from": from, "to": to}))
}

func (s *Service) RecordReportGenerated(ctx context.Context, reportID, kind string) Entry {
	return s.Success(ctx, ActionReportGenerated,
		fmt.Sprintf("Report generated (%s)", kind),
		WithResource("report", reportID),
		WithMetadata(map[string]any{"kind": kind}))
}

func (s *Service) RecordVendorAdded(ctx context.Context, vendorID, name string) Entry {
	return s.Success(ctx, ActionVendorAdded,
		fmt.Sprintf("Vendor %q added", name),
		WithResource("vendor", vendorID))
}

func (s *Service) RecordSuspiciousActivity(ctx context.Context, description string, metadata map[string]any) Entry {
	return s.Success(ctx, ActionSuspiciousActivity, description, WithMetadata(metadata))
}

// RecordRateLimitDenied captures a throttled action's rejection. Wired into
// the rate limit middleware so denials leave a security trail.
func (s *Service) RecordRateLimitDenied(ctx context.Context, profile, identity string, result *models.Result) {
	s.Failure(ctx, ActionRateLimitExceeded,
		fmt.Sprintf("Rate limit exceeded for profile %q", profile),
		WithMetadata(map[string]any{
			"profile":     profile,
			"identity":    identity,
			"retry_after": models.RetryAfterSeconds(result.RetryAfter),
		}))
}
