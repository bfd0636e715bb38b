package registry

import (
	"context"

	federation "github.com/federatedsec/federation"
)

// QueriedBlacklist is one verdict with its linked evidence resolved.
// Evidence is nil when the verdict carries none or when the linked evidence
// is confidential and the caller may not see it; attachments are listed only
// when the evidence itself is visible.
type QueriedBlacklist struct {
	federation.BlacklistRecord `json:"blacklist"`
	Evidence                   *federation.EvidenceRecord        `json:"evidence"`
	Attachments                []federation.FileAttachmentRecord `json:"attachments"`
}

// EntityQueryResult is the full reputation picture of one entity.
type EntityQueryResult struct {
	Entity            federation.EntityRecord     `json:"entity"`
	QueriedBlacklists []QueriedBlacklist          `json:"queriedBlacklists"`
	Evidence          []federation.EvidenceRecord `json:"evidence"`
	AuditLogs         []federation.AuditLogRecord `json:"auditLogs"`
}

// Composer assembles entity query results across the managers.
type Composer struct {
	entities    *EntityManager
	evidence    *EvidenceManager
	attachments *FileAttachmentManager
	blacklist   *BlacklistManager
	audit       *AuditLog
}

// Query composes the verdicts, evidence and audit trail of one entity.
// Confidential evidence is withheld unless includeConfidential; lifted
// verdicts are included only on request.
func (c *Composer) Query(ctx context.Context, entity federation.UUID, includeConfidential, includeLifted bool) (*EntityQueryResult, error) {
	ent, err := c.entities.GetByUUID(ctx, entity)
	if err != nil {
		return nil, err
	}

	verdicts, err := c.blacklist.ListByEntity(ctx, entity, includeLifted, queryListLimit, 1)
	if err != nil {
		return nil, err
	}
	queried := make([]QueriedBlacklist, 0, len(verdicts))
	for _, v := range verdicts {
		qb := QueriedBlacklist{BlacklistRecord: v}
		if v.Evidence != nil {
			ev, err := c.evidence.Get(ctx, *v.Evidence)
			if err != nil {
				if federation.CodeOf(err) == federation.NotFound {
					queried = append(queried, qb)
					continue
				}
				return nil, err
			}
			if !ev.Confidential || includeConfidential {
				qb.Evidence = ev
				atts, err := c.attachments.ListByEvidence(ctx, ev.UUID)
				if err != nil {
					return nil, err
				}
				qb.Attachments = atts
			}
		}
		queried = append(queried, qb)
	}

	allEvidence, err := c.evidence.ListByEntity(ctx, entity, queryListLimit, 1)
	if err != nil {
		return nil, err
	}
	visible := make([]federation.EvidenceRecord, 0, len(allEvidence))
	for _, ev := range allEvidence {
		if ev.Confidential && !includeConfidential {
			continue
		}
		visible = append(visible, ev)
	}

	logs, err := c.audit.ListByEntity(ctx, entity, queryListLimit, 1)
	if err != nil {
		return nil, err
	}

	return &EntityQueryResult{
		Entity:            *ent,
		QueriedBlacklists: queried,
		Evidence:          visible,
		AuditLogs:         logs,
	}, nil
}

// QueryByHash resolves the entity by canonical hash first.
func (c *Composer) QueryByHash(ctx context.Context, hash string, includeConfidential, includeLifted bool) (*EntityQueryResult, error) {
	ent, err := c.entities.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, ent.UUID, includeConfidential, includeLifted)
}
