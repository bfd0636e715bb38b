package registry

import (
	"context"
	"fmt"
	"log/slog"

	federation "github.com/federatedsec/federation"
)

// Sweeper runs the periodic retention pass: expired verdicts and aged audit
// entries. One cleanup failing is logged and does not stop the other.
type Sweeper struct {
	audit              *AuditLog
	blacklist          *BlacklistManager
	enabled            bool
	cleanAuditLogs     bool
	cleanAuditDays     int
	cleanBlacklist     bool
	cleanBlacklistDays int
}

// RunMaintenance performs one sweep and appends a MAINTENANCE_RUN entry with
// the removal counts. A disabled sweeper returns immediately.
func (s *Sweeper) RunMaintenance(ctx context.Context) error {
	if !s.enabled {
		return nil
	}
	var auditRemoved, blacklistRemoved int64
	if s.cleanAuditLogs {
		n, err := s.audit.CleanOlderThan(ctx, s.cleanAuditDays)
		if err != nil {
			slog.Error("audit log cleanup failed", "error", err)
		} else {
			auditRemoved = n
		}
	}
	if s.cleanBlacklist {
		n, err := s.blacklist.CleanOlderThan(ctx, s.cleanBlacklistDays)
		if err != nil {
			slog.Error("blacklist cleanup failed", "error", err)
		} else {
			blacklistRemoved = n
		}
	}
	slog.Info("maintenance sweep finished",
		"audit_removed", auditRemoved, "blacklist_removed", blacklistRemoved)
	return s.audit.Append(ctx, federation.AuditMaintenanceRun,
		fmt.Sprintf("maintenance removed %d audit entries and %d verdicts", auditRemoved, blacklistRemoved),
		nil, nil)
}
