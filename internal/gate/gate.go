// Package gate turns candidate clusters into issues. It applies the
// volume and source-diversity thresholds, deduplicates against recently
// registered issues and decides the initial moderation outcome.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"hotissue.kr/ember/internal/cluster"
	"hotissue.kr/ember/internal/config"
	"hotissue.kr/ember/internal/db"
	"hotissue.kr/ember/internal/globaltime"
	"hotissue.kr/ember/internal/heat"
)

const (
	fetchLimit = 2000

	// Community reaction lags the news cycle, so community items always
	// use a full day of lookback regardless of the news window.
	communityLookback = 24 * time.Hour

	dedupLookback = 24 * time.Hour
)

type Service struct {
	pool       *db.Pool
	logger     zerolog.Logger
	heat       *heat.Service
	thresholds config.Thresholds
}

func NewService(pool *db.Pool, logger zerolog.Logger, thresholds config.Thresholds) *Service {
	return &Service{
		pool:       pool,
		logger:     logger,
		heat:       heat.NewService(pool, logger),
		thresholds: thresholds,
	}
}

// Result summarizes one detection pass.
type Result struct {
	Clusters     int
	Ignored      int
	Created      int
	Updated      int
	AutoApproved int
	Rejected     int
	Skipped      int
	Errors       []error
}

// Run fetches the unlinked raw item window, clusters it and gates every
// cluster. Per-cluster failures are collected; only a store failure on
// the initial fetch aborts the pass.
func (s *Service) Run(ctx context.Context) (Result, error) {
	var result Result
	if s == nil || s.pool == nil {
		return result, fmt.Errorf("gate service is not initialized")
	}

	now := globaltime.UTC()
	newsSince := now.Add(-time.Duration(s.thresholds.WindowHours) * time.Hour)
	communitySince := now.Add(-communityLookback)

	news, err := s.pool.ListUnlinkedNews(ctx, newsSince, fetchLimit)
	if err != nil {
		return result, err
	}
	community, err := s.pool.ListUnlinkedCommunity(ctx, communitySince, 0, 0, fetchLimit)
	if err != nil {
		return result, err
	}

	items := make([]cluster.Item, 0, len(news)+len(community))
	for _, row := range news {
		category := ""
		if row.Category != nil {
			category = *row.Category
		}
		items = append(items, cluster.Item{
			ID:        row.NewsItemID,
			Kind:      db.SourceTypeNews,
			Title:     row.Title,
			Source:    row.Source,
			Category:  category,
			CreatedAt: row.CreatedAt,
		})
	}
	for _, row := range community {
		items = append(items, cluster.Item{
			ID:        row.CommunityItemID,
			Kind:      db.SourceTypeCommunity,
			Title:     row.Title,
			CreatedAt: row.CreatedAt,
		})
	}

	clusters := cluster.Build(items)
	result.Clusters = len(clusters)

	for _, candidate := range clusters {
		if !Qualifies(candidate, s.thresholds) {
			result.Ignored++
			continue
		}
		if err := s.gateCluster(ctx, candidate, community, now, &result); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("cluster %q: %w", candidate.RepresentativeTitle(), err))
		}
	}

	s.logger.Info().
		Int("clusters", result.Clusters).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("auto_approved", result.AutoApproved).
		Int("rejected", result.Rejected).
		Int("skipped", result.Skipped).
		Int("errors", len(result.Errors)).
		Msg("detection pass finished")

	return result, nil
}

// Qualifies applies the volume and diversity thresholds to one cluster.
func Qualifies(c *cluster.Cluster, th config.Thresholds) bool {
	if len(c.Members) < th.AlertThreshold {
		return false
	}
	// A single outlet republishing wire copy is volume without diversity.
	if c.CountKind(db.SourceTypeNews) > 0 && len(c.NewsSources()) < th.MinUniqueSources {
		return false
	}
	return true
}

// ShouldAutoApprove reports whether a qualifying cluster has sustained
// enough for long enough to bypass the operator queue.
func ShouldAutoApprove(c *cluster.Cluster, now time.Time, th config.Thresholds) bool {
	if len(c.Members) < th.AutoApproveThreshold {
		return false
	}
	earliest := c.EarliestCreatedAt()
	if earliest.IsZero() {
		return false
	}
	return now.Sub(earliest) > time.Duration(th.NoResponseHours)*time.Hour
}

// DedupAction is the gate's decision for a cluster whose title was looked
// up against recently registered issues.
type DedupAction int

const (
	// DedupCreate registers a new issue.
	DedupCreate DedupAction = iota
	// DedupUpdate attaches the cluster to an existing pending issue.
	DedupUpdate
	// DedupSkip leaves an already-decided issue untouched.
	DedupSkip
)

// DedupOutcome decides what to do with a cluster given the recent-issue
// lookup result. A title that already has an issue within the dedup window
// never produces a second issue: pending issues absorb the new members,
// decided ones are left alone.
func DedupOutcome(existing db.IssueRow, found bool) DedupAction {
	if !found {
		return DedupCreate
	}
	if existing.ApprovalStatus == db.ApprovalPending {
		return DedupUpdate
	}
	return DedupSkip
}

// MajorityCategory votes across the news members' categories. Ties go to
// the category seen first; clusters without a usable signal default to 사회.
func MajorityCategory(members []cluster.Item) string {
	counts := make(map[string]int, 4)
	order := make([]string, 0, 4)
	for _, member := range members {
		if member.Kind != db.SourceTypeNews || !db.IsValidCategory(member.Category) {
			continue
		}
		if counts[member.Category] == 0 {
			order = append(order, member.Category)
		}
		counts[member.Category]++
	}

	best := ""
	bestCount := 0
	for _, category := range order {
		if counts[category] > bestCount {
			best = category
			bestCount = counts[category]
		}
	}
	if best == "" {
		return db.CategoryDefault
	}
	return best
}

// BonusCommunityMatches selects community items whose titles share at
// least matchThreshold tokens with the representative title. This is a
// stricter bar than clustering: a relevance bonus, not a membership rule.
func BonusCommunityMatches(representativeTitle string, community []db.CommunityItemRow, matchThreshold int, exclude map[int64]struct{}) []int64 {
	keywords := cluster.Tokenize(representativeTitle)
	if len(keywords) == 0 {
		return nil
	}

	matched := make([]int64, 0, 8)
	for _, item := range community {
		if _, skip := exclude[item.CommunityItemID]; skip {
			continue
		}
		if cluster.SharedTokens(keywords, cluster.Tokenize(item.Title)) >= matchThreshold {
			matched = append(matched, item.CommunityItemID)
		}
	}
	return matched
}

func (s *Service) gateCluster(ctx context.Context, c *cluster.Cluster, communityWindow []db.CommunityItemRow, now time.Time, result *Result) error {
	title := c.RepresentativeTitle()

	newsIDs := make([]int64, 0, len(c.Members))
	communityIDs := make([]int64, 0, len(c.Members))
	memberCommunity := make(map[int64]struct{}, len(c.Members))
	for _, member := range c.Members {
		switch member.Kind {
		case db.SourceTypeNews:
			newsIDs = append(newsIDs, member.ID)
		case db.SourceTypeCommunity:
			communityIDs = append(communityIDs, member.ID)
			memberCommunity[member.ID] = struct{}{}
		}
	}
	communityIDs = append(communityIDs, BonusCommunityMatches(title, communityWindow, s.thresholds.CommunityMatchThreshold, memberCommunity)...)

	existing, found, err := s.pool.FindIssueByTitleSince(ctx, title, now.Add(-dedupLookback))
	if err != nil {
		return err
	}
	switch DedupOutcome(existing, found) {
	case DedupSkip:
		// Already decided by an operator or a previous pass.
		result.Skipped++
		return nil
	case DedupUpdate:
		return s.updateExisting(ctx, existing.IssueID, newsIDs, communityIDs, now, result)
	}

	approval := db.ApprovalPending
	var approvedAt *time.Time
	if ShouldAutoApprove(c, now, s.thresholds) {
		approval = db.ApprovalApproved
		approvedAt = &now
	}

	issueID, inserted, err := s.pool.InsertIssue(ctx, db.NewIssue{
		Title:          title,
		Category:       MajorityCategory(c.Members),
		ApprovalStatus: approval,
		ApprovedAt:     approvedAt,
		CreatedAt:      now,
	})
	if err != nil {
		return err
	}
	if !inserted {
		// A concurrent gate run registered the same title first.
		result.Skipped++
		return nil
	}

	if _, err := s.pool.LinkNewsItems(ctx, issueID, newsIDs, now); err != nil {
		return err
	}
	if _, err := s.pool.LinkCommunityItems(ctx, issueID, communityIDs, now); err != nil {
		return err
	}

	result.Created++
	if approval == db.ApprovalApproved {
		result.AutoApproved++
	}

	index, err := s.heat.RescoreIssue(ctx, issueID)
	if err != nil {
		// The issue exists either way; heat self-heals on the next pass.
		s.logger.Warn().Err(err).Int64("issue_id", issueID).Msg("initial heat computation failed")
		if writeErr := s.pool.UpdateIssueHeat(ctx, issueID, 0, now); writeErr != nil {
			result.Errors = append(result.Errors, fmt.Errorf("issue %d: write fallback heat: %w", issueID, writeErr))
		}
	} else if index < s.thresholds.MinHeatToRegister {
		// Volume without engagement: suppress from the operator queue
		// instead of deleting.
		if err := s.pool.UpdateIssueApproval(ctx, issueID, db.ApprovalRejected, now); err != nil {
			return err
		}
		result.Rejected++
		if approval == db.ApprovalApproved {
			result.AutoApproved--
		}
		return nil
	}

	if approval == db.ApprovalPending {
		s.logger.Info().
			Int64("issue_id", issueID).
			Str("title", title).
			Int("members", len(c.Members)).
			Int("news", len(newsIDs)).
			Int("community", len(communityIDs)).
			Int("heat_index", index).
			Msg("issue pending operator review")
	}
	return nil
}

func (s *Service) updateExisting(ctx context.Context, issueID int64, newsIDs, communityIDs []int64, now time.Time, result *Result) error {
	if _, err := s.pool.LinkNewsItems(ctx, issueID, newsIDs, now); err != nil {
		return err
	}
	if _, err := s.pool.LinkCommunityItems(ctx, issueID, communityIDs, now); err != nil {
		return err
	}
	if _, err := s.heat.RescoreIssue(ctx, issueID); err != nil {
		s.logger.Warn().Err(err).Int64("issue_id", issueID).Msg("heat refresh failed on dedup update")
	}
	if err := s.pool.TouchIssue(ctx, issueID, now); err != nil {
		return err
	}
	result.Updated++
	return nil
}
