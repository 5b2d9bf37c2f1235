package cluster

import (
	"sort"
	"time"
)

// Clusters never hold more than this many accumulated tokens; absorbing
// items past the cap would turn a long-lived cluster into a universal
// matcher.
const maxClusterTokens = 64

// Item is one raw collected record fed into clustering.
type Item struct {
	ID        int64
	Kind      string // "news" or "community"
	Title     string
	Source    string
	Category  string
	CreatedAt time.Time
}

// Cluster is an ephemeral in-run grouping of items believed to describe
// the same real-world event.
type Cluster struct {
	Tokens  map[string]struct{}
	Members []Item
}

// RepresentativeTitle is the title of the chronologically first member.
func (c *Cluster) RepresentativeTitle() string {
	if c == nil || len(c.Members) == 0 {
		return ""
	}
	return c.Members[0].Title
}

// EarliestCreatedAt is the creation time of the chronologically first member.
func (c *Cluster) EarliestCreatedAt() time.Time {
	if c == nil || len(c.Members) == 0 {
		return time.Time{}
	}
	return c.Members[0].CreatedAt
}

// NewsSources returns the distinct source names among news members.
func (c *Cluster) NewsSources() map[string]struct{} {
	sources := make(map[string]struct{}, len(c.Members))
	for _, member := range c.Members {
		if member.Kind == "news" && member.Source != "" {
			sources[member.Source] = struct{}{}
		}
	}
	return sources
}

// CountKind returns how many members have the given kind.
func (c *Cluster) CountKind(kind string) int {
	count := 0
	for _, member := range c.Members {
		if member.Kind == kind {
			count++
		}
	}
	return count
}

// Build groups items into clusters by shared title tokens. Items are
// processed in chronological order (ties broken by id, so runs are
// reproducible); an item joins the first cluster it shares at least one
// token with, and the cluster absorbs the item's tokens. Items whose
// titles produce no tokens are skipped.
//
// A single shared token is deliberately enough to merge: titles about the
// same event phrase it very differently, and the volume and source
// thresholds downstream suppress false merges.
func Build(items []Item) []*Cluster {
	ordered := make([]Item, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	clusters := make([]*Cluster, 0, len(ordered)/2+1)
	for _, item := range ordered {
		tokens := Tokenize(item.Title)
		if len(tokens) == 0 {
			continue
		}

		var target *Cluster
		for _, candidate := range clusters {
			if SharedTokens(candidate.Tokens, tokens) >= 1 {
				target = candidate
				break
			}
		}

		if target == nil {
			clusters = append(clusters, &Cluster{
				Tokens:  tokens,
				Members: []Item{item},
			})
			continue
		}

		target.Members = append(target.Members, item)
		for token := range tokens {
			if len(target.Tokens) >= maxClusterTokens {
				break
			}
			target.Tokens[token] = struct{}{}
		}
	}

	return clusters
}
