package db

import (
	"encoding/json"
	"time"
)

// Issue lifecycle stages.
const (
	StatusIgnite  = "점화"
	StatusDebated = "논란중"
	StatusClosed  = "종결"
)

// Issue moderation states.
const (
	ApprovalPending  = "대기"
	ApprovalApproved = "승인"
	ApprovalRejected = "반려"
)

// Issue categories. CategoryDefault is used when member news items carry
// no usable category signal.
const (
	CategoryEntertainment = "연예"
	CategorySports        = "스포츠"
	CategoryPolitics      = "정치"
	CategorySociety       = "사회"
	CategoryTech          = "기술"

	CategoryDefault = CategorySociety
)

// Categories lists every valid issue category.
func Categories() []string {
	return []string{
		CategoryEntertainment,
		CategorySports,
		CategoryPolitics,
		CategorySociety,
		CategoryTech,
	}
}

// IsValidCategory reports whether value is one of the fixed categories.
func IsValidCategory(value string) bool {
	for _, category := range Categories() {
		if value == category {
			return true
		}
	}
	return false
}

// Raw item source types.
const (
	SourceTypeNews      = "news"
	SourceTypeCommunity = "community"
)

// AI candidate workflow state. Promotion past pending is human-only.
const CandidatePending = "pending"

// NewsItem maps ember.news_items. Written by collectors; the pipeline only
// ever sets issue_id/linked_at or deletes aged unlinked rows.
type NewsItem struct {
	NewsItemID   int64      `gorm:"column:news_item_id;primaryKey;autoIncrement"`
	NewsItemUUID string     `gorm:"column:news_item_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Title        string     `gorm:"column:title;type:text;not null"`
	Source       string     `gorm:"column:source;type:text;not null"`
	Category     *string    `gorm:"column:category;type:text"`
	PublishedAt  *time.Time `gorm:"column:published_at;type:timestamptz"`
	IssueID      *int64     `gorm:"column:issue_id;type:bigint;index"`
	LinkedAt     *time.Time `gorm:"column:linked_at;type:timestamptz"`
	CreatedAt    time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now();index"`
}

func (NewsItem) TableName() string { return "ember.news_items" }

// CommunityItem maps ember.community_items.
type CommunityItem struct {
	CommunityItemID   int64      `gorm:"column:community_item_id;primaryKey;autoIncrement"`
	CommunityItemUUID string     `gorm:"column:community_item_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Title             string     `gorm:"column:title;type:text;not null"`
	URL               *string    `gorm:"column:url;type:text"`
	ViewCount         int64      `gorm:"column:view_count;type:bigint;not null;default:0"`
	CommentCount      int64      `gorm:"column:comment_count;type:bigint;not null;default:0"`
	WrittenAt         *time.Time `gorm:"column:written_at;type:timestamptz"`
	IssueID           *int64     `gorm:"column:issue_id;type:bigint;index"`
	LinkedAt          *time.Time `gorm:"column:linked_at;type:timestamptz"`
	CreatedAt         time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now();index"`
}

func (CommunityItem) TableName() string { return "ember.community_items" }

// Issue maps ember.issues, the durable unit of the lifecycle.
// dedup_bucket carries the creation day so (title, dedup_bucket) can be
// enforced unique at the store layer; the rolling 24h title lookup remains
// the primary dedup check.
type Issue struct {
	IssueID        int64      `gorm:"column:issue_id;primaryKey;autoIncrement"`
	IssueUUID      string     `gorm:"column:issue_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Title          string     `gorm:"column:title;type:text;not null;uniqueIndex:ux_issues_title_bucket"`
	Category       string     `gorm:"column:category;type:text;not null;default:사회"`
	Status         string     `gorm:"column:status;type:text;not null;default:점화"`
	ApprovalStatus string     `gorm:"column:approval_status;type:text;not null;default:대기"`
	HeatIndex      *int       `gorm:"column:heat_index;type:integer"`
	ApprovedAt     *time.Time `gorm:"column:approved_at;type:timestamptz"`
	DedupBucket    time.Time  `gorm:"column:dedup_bucket;type:date;not null;uniqueIndex:ux_issues_title_bucket"`
	CreatedAt      time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Issue) TableName() string { return "ember.issues" }

// AICandidate maps ember.ai_candidates, the staging table of the AI
// relevance filter. Rows stay pending until an operator promotes them.
type AICandidate struct {
	CandidateID   int64           `gorm:"column:candidate_id;primaryKey;autoIncrement"`
	CandidateUUID string          `gorm:"column:candidate_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Title         string          `gorm:"column:title;type:text;not null"`
	SourceType    string          `gorm:"column:source_type;type:text;not null"`
	NewsIDs       json.RawMessage `gorm:"column:news_ids;type:jsonb;not null;default:'[]'"`
	CommunityIDs  json.RawMessage `gorm:"column:community_ids;type:jsonb;not null;default:'[]'"`
	AIScore       float64         `gorm:"column:ai_score;type:double precision;not null"`
	AICategory    string          `gorm:"column:ai_category;type:text;not null"`
	AIReason      string          `gorm:"column:ai_reason;type:text;not null;default:''"`
	Status        string          `gorm:"column:status;type:text;not null;default:pending"`
	CreatedAt     time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now();index"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (AICandidate) TableName() string { return "ember.ai_candidates" }

func autoMigrateModels() []any {
	return []any{
		&NewsItem{},
		&CommunityItem{},
		&Issue{},
		&AICandidate{},
	}
}
