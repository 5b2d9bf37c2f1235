// Package linker continuously attaches newly collected raw items to
// already-approved issues by keyword overlap against the issue title.
package linker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"hotissue.kr/ember/internal/cluster"
	"hotissue.kr/ember/internal/db"
	"hotissue.kr/ember/internal/globaltime"
)

const (
	// Fraction of issue keywords an item title must contain.
	minOverlap = 0.30

	// New links per issue per pass, bounding write volume.
	maxLinksPerIssue = 20

	issueBatchLimit  = 50
	itemWindowLimit  = 500
	itemWindowPeriod = 24 * time.Hour
)

type Service struct {
	pool   *db.Pool
	logger zerolog.Logger
}

func NewService(pool *db.Pool, logger zerolog.Logger) *Service {
	return &Service{
		pool:   pool,
		logger: logger,
	}
}

// Result summarizes one linking pass.
type Result struct {
	Issues          int
	LinkedNews      int64
	LinkedCommunity int64
	Errors          []error
}

// Matches reports whether an item title satisfies the keyword-overlap rule
// against the issue keywords.
func Matches(issueKeywords, titleTokens map[string]struct{}) bool {
	fraction, matched := cluster.OverlapFraction(issueKeywords, titleTokens)
	return matched >= 1 && fraction >= minOverlap
}

// SelectMatching returns up to limit ids whose titles match the issue
// keywords. titles maps the candidate id to its title, iterated in ids
// order so selection is deterministic.
func SelectMatching(issueKeywords map[string]struct{}, ids []int64, titles map[int64]string, limit int) []int64 {
	if len(issueKeywords) == 0 || limit <= 0 {
		return nil
	}
	selected := make([]int64, 0, limit)
	for _, id := range ids {
		if len(selected) >= limit {
			break
		}
		if Matches(issueKeywords, cluster.Tokenize(titles[id])) {
			selected = append(selected, id)
		}
	}
	return selected
}

// Run walks approved issues, most recently updated first, and links any
// still-unlinked raw items whose titles overlap the issue keywords.
func (s *Service) Run(ctx context.Context) (Result, error) {
	var result Result
	if s == nil || s.pool == nil {
		return result, fmt.Errorf("linker service is not initialized")
	}

	now := globaltime.UTC()
	windowStart := now.Add(-itemWindowPeriod)

	news, err := s.pool.ListUnlinkedNews(ctx, windowStart, itemWindowLimit)
	if err != nil {
		return result, err
	}
	community, err := s.pool.ListUnlinkedCommunity(ctx, windowStart, 0, 0, itemWindowLimit)
	if err != nil {
		return result, err
	}

	newsIDs := make([]int64, 0, len(news))
	newsTitles := make(map[int64]string, len(news))
	for _, item := range news {
		newsIDs = append(newsIDs, item.NewsItemID)
		newsTitles[item.NewsItemID] = item.Title
	}
	communityIDs := make([]int64, 0, len(community))
	communityTitles := make(map[int64]string, len(community))
	for _, item := range community {
		communityIDs = append(communityIDs, item.CommunityItemID)
		communityTitles[item.CommunityItemID] = item.Title
	}

	issues, err := s.pool.ListApprovedOpenIssues(ctx, issueBatchLimit)
	if err != nil {
		return result, err
	}

	claimed := make(map[int64]struct{}, 64)
	for _, issue := range issues {
		result.Issues++

		keywords := cluster.Tokenize(issue.Title)
		if len(keywords) == 0 {
			continue
		}

		budget := maxLinksPerIssue
		matchedNews := SelectMatching(keywords, unclaimed(newsIDs, claimed), newsTitles, budget)
		budget -= len(matchedNews)
		matchedCommunity := SelectMatching(keywords, unclaimed(communityIDs, claimed), communityTitles, budget)

		if len(matchedNews) == 0 && len(matchedCommunity) == 0 {
			continue
		}

		linkedNews, err := s.pool.LinkNewsItems(ctx, issue.IssueID, matchedNews, now)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("issue %d: %w", issue.IssueID, err))
			continue
		}
		linkedCommunity, err := s.pool.LinkCommunityItems(ctx, issue.IssueID, matchedCommunity, now)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("issue %d: %w", issue.IssueID, err))
			continue
		}

		// Claimed in this pass even if the store-side guard skipped some:
		// another issue re-trying the same ids would be a wasted write.
		for _, id := range matchedNews {
			claimed[id] = struct{}{}
		}
		for _, id := range matchedCommunity {
			claimed[id] = struct{}{}
		}

		result.LinkedNews += linkedNews
		result.LinkedCommunity += linkedCommunity

		if linkedNews+linkedCommunity > 0 {
			if err := s.pool.TouchIssue(ctx, issue.IssueID, now); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("issue %d: %w", issue.IssueID, err))
			}
			s.logger.Debug().
				Int64("issue_id", issue.IssueID).
				Int64("news", linkedNews).
				Int64("community", linkedCommunity).
				Msg("items linked to issue")
		}
	}

	return result, nil
}

func unclaimed(ids []int64, claimed map[int64]struct{}) []int64 {
	if len(claimed) == 0 {
		return ids
	}
	remaining := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, taken := claimed[id]; !taken {
			remaining = append(remaining, id)
		}
	}
	return remaining
}
