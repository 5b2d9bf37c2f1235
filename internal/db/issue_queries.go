package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// IssueRow is the core read model for one issue.
type IssueRow struct {
	IssueID        int64      `json:"issue_id"`
	IssueUUID      string     `json:"issue_uuid"`
	Title          string     `json:"title"`
	Category       string     `json:"category"`
	Status         string     `json:"status"`
	ApprovalStatus string     `json:"approval_status"`
	HeatIndex      *int       `json:"heat_index,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IssueSummary extends IssueRow with member counts for list output.
type IssueSummary struct {
	IssueRow
	NewsCount      int64 `json:"news_count"`
	CommunityCount int64 `json:"community_count"`
}

// NewIssue carries the fields of an issue about to be registered.
type NewIssue struct {
	Title          string
	Category       string
	ApprovalStatus string
	ApprovedAt     *time.Time
	CreatedAt      time.Time
}

const issueColumns = `
	i.issue_id,
	i.issue_uuid::text,
	i.title,
	i.category,
	i.status,
	i.approval_status,
	i.heat_index,
	i.approved_at,
	i.created_at,
	i.updated_at
`

func scanIssueRow(row interface{ Scan(...any) error }) (IssueRow, error) {
	var issue IssueRow
	err := row.Scan(
		&issue.IssueID,
		&issue.IssueUUID,
		&issue.Title,
		&issue.Category,
		&issue.Status,
		&issue.ApprovalStatus,
		&issue.HeatIndex,
		&issue.ApprovedAt,
		&issue.CreatedAt,
		&issue.UpdatedAt,
	)
	return issue, err
}

// FindIssueByTitleSince looks up the most recent issue with an exact title
// created at or after since.
func (p *Pool) FindIssueByTitleSince(ctx context.Context, title string, since time.Time) (IssueRow, bool, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return IssueRow{}, false, fmt.Errorf("title is required")
	}

	q := `
SELECT` + issueColumns + `
FROM ember.issues i
WHERE i.title = $1
  AND i.created_at >= $2
ORDER BY i.created_at DESC, i.issue_id DESC
LIMIT 1
`

	issue, err := scanIssueRow(p.QueryRow(ctx, q, trimmed, since.UTC()))
	if err != nil {
		if IsNoRows(err) {
			return IssueRow{}, false, nil
		}
		return IssueRow{}, false, fmt.Errorf("query issue by title: %w", err)
	}
	return issue, true, nil
}

// GetIssueByID fetches one issue. found=false when no issue has the id.
func (p *Pool) GetIssueByID(ctx context.Context, issueID int64) (IssueRow, bool, error) {
	q := `
SELECT` + issueColumns + `
FROM ember.issues i
WHERE i.issue_id = $1
`

	issue, err := scanIssueRow(p.QueryRow(ctx, q, issueID))
	if err != nil {
		if IsNoRows(err) {
			return IssueRow{}, false, nil
		}
		return IssueRow{}, false, fmt.Errorf("query issue by id: %w", err)
	}
	return issue, true, nil
}

// InsertIssue registers a new issue. The (title, dedup_bucket) unique index
// absorbs the race between concurrent gate runs: on conflict nothing is
// inserted and inserted=false is returned.
func (p *Pool) InsertIssue(ctx context.Context, issue NewIssue) (int64, bool, error) {
	title := strings.TrimSpace(issue.Title)
	if title == "" {
		return 0, false, fmt.Errorf("title is required")
	}
	category := issue.Category
	if !IsValidCategory(category) {
		category = CategoryDefault
	}
	approval := issue.ApprovalStatus
	if approval == "" {
		approval = ApprovalPending
	}
	createdAt := issue.CreatedAt.UTC()

	const q = `
INSERT INTO ember.issues (
	title,
	category,
	status,
	approval_status,
	approved_at,
	dedup_bucket,
	created_at,
	updated_at
)
VALUES ($1, $2, $3, $4, $5, $6::date, $7, $7)
ON CONFLICT (title, dedup_bucket) DO NOTHING
RETURNING issue_id
`

	var approvedAt *time.Time
	if issue.ApprovedAt != nil {
		utc := issue.ApprovedAt.UTC()
		approvedAt = &utc
	}

	var issueID int64
	err := p.QueryRow(ctx, q, title, category, StatusIgnite, approval, approvedAt, createdAt, createdAt).Scan(&issueID)
	if err != nil {
		if IsNoRows(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("insert issue: %w", err)
	}
	return issueID, true, nil
}

// UpdateIssueHeat writes a freshly computed heat index.
func (p *Pool) UpdateIssueHeat(ctx context.Context, issueID int64, heat int, now time.Time) error {
	const q = `
UPDATE ember.issues
SET
	heat_index = $2,
	updated_at = $3
WHERE issue_id = $1
`
	if _, err := p.Exec(ctx, q, issueID, heat, now.UTC()); err != nil {
		return fmt.Errorf("update heat for issue %d: %w", issueID, err)
	}
	return nil
}

// UpdateIssueApproval changes the moderation state. approvedAt is only
// written when moving to 승인.
func (p *Pool) UpdateIssueApproval(ctx context.Context, issueID int64, approval string, now time.Time) error {
	const q = `
UPDATE ember.issues
SET
	approval_status = $2,
	approved_at = CASE WHEN $2 = $3 THEN $4 ELSE approved_at END,
	updated_at = $4
WHERE issue_id = $1
`
	if _, err := p.Exec(ctx, q, issueID, approval, ApprovalApproved, now.UTC()); err != nil {
		return fmt.Errorf("update approval for issue %d: %w", issueID, err)
	}
	return nil
}

// UpdateIssueStatus advances the lifecycle stage.
func (p *Pool) UpdateIssueStatus(ctx context.Context, issueID int64, status string, now time.Time) error {
	const q = `
UPDATE ember.issues
SET
	status = $2,
	updated_at = $3
WHERE issue_id = $1
`
	if _, err := p.Exec(ctx, q, issueID, status, now.UTC()); err != nil {
		return fmt.Errorf("update status for issue %d: %w", issueID, err)
	}
	return nil
}

// TouchIssue bumps updated_at, marking fresh activity on the issue.
func (p *Pool) TouchIssue(ctx context.Context, issueID int64, now time.Time) error {
	const q = `
UPDATE ember.issues
SET updated_at = $2
WHERE issue_id = $1
`
	if _, err := p.Exec(ctx, q, issueID, now.UTC()); err != nil {
		return fmt.Errorf("touch issue %d: %w", issueID, err)
	}
	return nil
}

// ListApprovedOpenIssues returns approved, not yet closed issues ordered by
// most recent activity. Shared by the heat rescorer, the transition engine
// and the linker.
func (p *Pool) ListApprovedOpenIssues(ctx context.Context, limit int) ([]IssueRow, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	q := `
SELECT` + issueColumns + `
FROM ember.issues i
WHERE i.approval_status = $1
  AND i.status <> $2
ORDER BY i.updated_at DESC, i.issue_id DESC
LIMIT $3
`

	rows, err := p.Query(ctx, q, ApprovalApproved, StatusClosed, limit)
	if err != nil {
		return nil, fmt.Errorf("query approved open issues: %w", err)
	}
	defer rows.Close()

	issues := make([]IssueRow, 0, limit)
	for rows.Next() {
		issue, err := scanIssueRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue row: %w", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issue rows: %w", err)
	}
	return issues, nil
}

// IssueListOptions filters the issues read model.
type IssueListOptions struct {
	Status         string
	ApprovalStatus string
	Limit          int
}

// ListIssueSummaries lists issues with member counts, newest activity first.
func (p *Pool) ListIssueSummaries(ctx context.Context, opts IssueListOptions) ([]IssueSummary, error) {
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	q := `
SELECT` + issueColumns + `,
	(SELECT COUNT(*) FROM ember.news_items n WHERE n.issue_id = i.issue_id) AS news_count,
	(SELECT COUNT(*) FROM ember.community_items c WHERE c.issue_id = i.issue_id) AS community_count
FROM ember.issues i
WHERE ($1 = '' OR i.status = $1)
  AND ($2 = '' OR i.approval_status = $2)
ORDER BY i.updated_at DESC, i.issue_id DESC
LIMIT $3
`

	rows, err := p.Query(ctx, q, strings.TrimSpace(opts.Status), strings.TrimSpace(opts.ApprovalStatus), opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("query issue summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]IssueSummary, 0, opts.Limit)
	for rows.Next() {
		var summary IssueSummary
		if err := rows.Scan(
			&summary.IssueID,
			&summary.IssueUUID,
			&summary.Title,
			&summary.Category,
			&summary.Status,
			&summary.ApprovalStatus,
			&summary.HeatIndex,
			&summary.ApprovedAt,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&summary.NewsCount,
			&summary.CommunityCount,
		); err != nil {
			return nil, fmt.Errorf("scan issue summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issue summaries: %w", err)
	}
	return summaries, nil
}

// PipelineStats is the read model behind the stats endpoint.
type PipelineStats struct {
	NewsItems         int64            `json:"news_items"`
	CommunityItems    int64            `json:"community_items"`
	UnlinkedNews      int64            `json:"unlinked_news"`
	UnlinkedCommunity int64            `json:"unlinked_community"`
	Issues            int64            `json:"issues"`
	IssuesByApproval  map[string]int64 `json:"issues_by_approval"`
	IssuesByStatus    map[string]int64 `json:"issues_by_status"`
	PendingCandidates int64            `json:"pending_candidates"`
}

// QueryPipelineStats collects store-wide counters.
func (p *Pool) QueryPipelineStats(ctx context.Context) (*PipelineStats, error) {
	stats := &PipelineStats{
		IssuesByApproval: make(map[string]int64, 3),
		IssuesByStatus:   make(map[string]int64, 3),
	}

	const totalsQ = `
SELECT
	(SELECT COUNT(*) FROM ember.news_items),
	(SELECT COUNT(*) FROM ember.community_items),
	(SELECT COUNT(*) FROM ember.news_items WHERE issue_id IS NULL),
	(SELECT COUNT(*) FROM ember.community_items WHERE issue_id IS NULL),
	(SELECT COUNT(*) FROM ember.issues),
	(SELECT COUNT(*) FROM ember.ai_candidates WHERE status = $1)
`
	if err := p.QueryRow(ctx, totalsQ, CandidatePending).Scan(
		&stats.NewsItems,
		&stats.CommunityItems,
		&stats.UnlinkedNews,
		&stats.UnlinkedCommunity,
		&stats.Issues,
		&stats.PendingCandidates,
	); err != nil {
		return nil, fmt.Errorf("query pipeline totals: %w", err)
	}

	const approvalQ = `
SELECT approval_status, COUNT(*)::BIGINT
FROM ember.issues
GROUP BY approval_status
`
	rows, err := p.Query(ctx, approvalQ)
	if err != nil {
		return nil, fmt.Errorf("query approval counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan approval count: %w", err)
		}
		stats.IssuesByApproval[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approval counts: %w", err)
	}

	const statusQ = `
SELECT status, COUNT(*)::BIGINT
FROM ember.issues
GROUP BY status
`
	statusRows, err := p.Query(ctx, statusQ)
	if err != nil {
		return nil, fmt.Errorf("query status counts: %w", err)
	}
	defer statusRows.Close()
	for statusRows.Next() {
		var key string
		var count int64
		if err := statusRows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.IssuesByStatus[key] = count
	}
	if err := statusRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	return stats, nil
}
