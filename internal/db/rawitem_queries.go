package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// NewsItemRow is the read model for collected news articles.
type NewsItemRow struct {
	NewsItemID int64      `json:"news_item_id"`
	Title      string     `json:"title"`
	Source     string     `json:"source"`
	Category   *string    `json:"category,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	IssueID    *int64     `json:"issue_id,omitempty"`
	LinkedAt   *time.Time `json:"linked_at,omitempty"`
}

// CommunityItemRow is the read model for collected community posts.
type CommunityItemRow struct {
	CommunityItemID int64      `json:"community_item_id"`
	Title           string     `json:"title"`
	ViewCount       int64      `json:"view_count"`
	CommentCount    int64      `json:"comment_count"`
	CreatedAt       time.Time  `json:"created_at"`
	IssueID         *int64     `json:"issue_id,omitempty"`
	LinkedAt        *time.Time `json:"linked_at,omitempty"`
}

// ListUnlinkedNews returns unlinked news items created at or after since,
// oldest first.
func (p *Pool) ListUnlinkedNews(ctx context.Context, since time.Time, limit int) ([]NewsItemRow, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT
	n.news_item_id,
	n.title,
	n.source,
	n.category,
	n.created_at
FROM ember.news_items n
WHERE n.issue_id IS NULL
  AND n.created_at >= $1
ORDER BY n.created_at ASC, n.news_item_id ASC
LIMIT $2
`

	rows, err := p.Query(ctx, q, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query unlinked news items: %w", err)
	}
	defer rows.Close()

	items := make([]NewsItemRow, 0, limit)
	for rows.Next() {
		var item NewsItemRow
		if err := rows.Scan(&item.NewsItemID, &item.Title, &item.Source, &item.Category, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan news item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate news item rows: %w", err)
	}
	return items, nil
}

// CommunityEngagementEligible is the engagement predicate applied by
// ListUnlinkedCommunity's WHERE clause: both floors at 0 means no filter,
// otherwise an item qualifies by meeting any active floor. A disabled
// floor never qualifies on its own, so zeroing one floor cannot defeat
// the other.
func CommunityEngagementEligible(views, comments, viewFloor, commentFloor int64) bool {
	if viewFloor <= 0 && commentFloor <= 0 {
		return true
	}
	if viewFloor > 0 && views >= viewFloor {
		return true
	}
	return commentFloor > 0 && comments >= commentFloor
}

// ListUnlinkedCommunity returns unlinked community items created at or after
// since, oldest first, filtered per CommunityEngagementEligible.
func (p *Pool) ListUnlinkedCommunity(ctx context.Context, since time.Time, viewFloor, commentFloor int64, limit int) ([]CommunityItemRow, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT
	c.community_item_id,
	c.title,
	c.view_count,
	c.comment_count,
	c.created_at
FROM ember.community_items c
WHERE c.issue_id IS NULL
  AND c.created_at >= $1
  AND (($2 <= 0 AND $3 <= 0) OR ($2 > 0 AND c.view_count >= $2) OR ($3 > 0 AND c.comment_count >= $3))
ORDER BY c.created_at ASC, c.community_item_id ASC
LIMIT $4
`

	rows, err := p.Query(ctx, q, since.UTC(), viewFloor, commentFloor, limit)
	if err != nil {
		return nil, fmt.Errorf("query unlinked community items: %w", err)
	}
	defer rows.Close()

	items := make([]CommunityItemRow, 0, limit)
	for rows.Next() {
		var item CommunityItemRow
		if err := rows.Scan(&item.CommunityItemID, &item.Title, &item.ViewCount, &item.CommentCount, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan community item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate community item rows: %w", err)
	}
	return items, nil
}

// ListNewsByIssue returns all news items currently linked to an issue.
func (p *Pool) ListNewsByIssue(ctx context.Context, issueID int64) ([]NewsItemRow, error) {
	const q = `
SELECT
	n.news_item_id,
	n.title,
	n.source,
	n.category,
	n.created_at
FROM ember.news_items n
WHERE n.issue_id = $1
ORDER BY n.created_at ASC, n.news_item_id ASC
`

	rows, err := p.Query(ctx, q, issueID)
	if err != nil {
		return nil, fmt.Errorf("query news items for issue %d: %w", issueID, err)
	}
	defer rows.Close()

	items := make([]NewsItemRow, 0, 16)
	for rows.Next() {
		var item NewsItemRow
		if err := rows.Scan(&item.NewsItemID, &item.Title, &item.Source, &item.Category, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan news item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate news item rows: %w", err)
	}
	return items, nil
}

// ListCommunityByIssue returns all community items currently linked to an issue.
func (p *Pool) ListCommunityByIssue(ctx context.Context, issueID int64) ([]CommunityItemRow, error) {
	const q = `
SELECT
	c.community_item_id,
	c.title,
	c.view_count,
	c.comment_count,
	c.created_at
FROM ember.community_items c
WHERE c.issue_id = $1
ORDER BY c.created_at ASC, c.community_item_id ASC
`

	rows, err := p.Query(ctx, q, issueID)
	if err != nil {
		return nil, fmt.Errorf("query community items for issue %d: %w", issueID, err)
	}
	defer rows.Close()

	items := make([]CommunityItemRow, 0, 16)
	for rows.Next() {
		var item CommunityItemRow
		if err := rows.Scan(&item.CommunityItemID, &item.Title, &item.ViewCount, &item.CommentCount, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan community item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate community item rows: %w", err)
	}
	return items, nil
}

// LinkNewsItems assigns unlinked news items to an issue. Already-linked
// items are left untouched, so re-linking is a no-op.
func (p *Pool) LinkNewsItems(ctx context.Context, issueID int64, ids []int64, now time.Time) (int64, error) {
	return p.linkItems(ctx, "ember.news_items", "news_item_id", issueID, ids, now)
}

// LinkCommunityItems assigns unlinked community items to an issue.
func (p *Pool) LinkCommunityItems(ctx context.Context, issueID int64, ids []int64, now time.Time) (int64, error) {
	return p.linkItems(ctx, "ember.community_items", "community_item_id", issueID, ids, now)
}

func (p *Pool) linkItems(ctx context.Context, table, idColumn string, issueID int64, ids []int64, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	q := fmt.Sprintf(`
UPDATE %s
SET
	issue_id = $1,
	linked_at = $2
WHERE %s IN (%s)
  AND issue_id IS NULL
`, table, idColumn, idPlaceholders(3, len(ids)))

	args := make([]any, 0, len(ids)+2)
	args = append(args, issueID, now.UTC())
	for _, id := range ids {
		args = append(args, id)
	}

	tag, err := p.Exec(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("link items into issue %d: %w", issueID, err)
	}
	return tag.RowsAffected(), nil
}

// CountItemsLinkedSince counts raw items of both source types attached to
// the issue at or after since. Used for idle detection.
func (p *Pool) CountItemsLinkedSince(ctx context.Context, issueID int64, since time.Time) (int64, error) {
	const q = `
SELECT
	(SELECT COUNT(*) FROM ember.news_items n
		WHERE n.issue_id = $1 AND n.linked_at >= $2)
	+
	(SELECT COUNT(*) FROM ember.community_items c
		WHERE c.issue_id = $1 AND c.linked_at >= $2)
`

	var count int64
	if err := p.QueryRow(ctx, q, issueID, since.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("count recent links for issue %d: %w", issueID, err)
	}
	return count, nil
}

// RetentionResult reports rows removed per source type.
type RetentionResult struct {
	News      int64 `json:"news"`
	Community int64 `json:"community"`
}

// DeleteUnlinkedBefore removes raw items that never joined an issue and
// are older than cutoff. Linked items are never touched.
func (p *Pool) DeleteUnlinkedBefore(ctx context.Context, cutoff time.Time) (RetentionResult, error) {
	var result RetentionResult

	const newsQ = `
DELETE FROM ember.news_items
WHERE issue_id IS NULL
  AND created_at < $1
`
	tag, err := p.Exec(ctx, newsQ, cutoff.UTC())
	if err != nil {
		return result, fmt.Errorf("delete stale news items: %w", err)
	}
	result.News = tag.RowsAffected()

	const communityQ = `
DELETE FROM ember.community_items
WHERE issue_id IS NULL
  AND created_at < $1
`
	tag, err = p.Exec(ctx, communityQ, cutoff.UTC())
	if err != nil {
		return result, fmt.Errorf("delete stale community items: %w", err)
	}
	result.Community = tag.RowsAffected()

	return result, nil
}

func idPlaceholders(start, count int) string {
	parts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		parts = append(parts, fmt.Sprintf("$%d", start+i))
	}
	return strings.Join(parts, ", ")
}
