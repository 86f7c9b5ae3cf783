package domain

import "time"

// ClusterRepresentative is the canonical member of a duplicate cluster.
// The chronologically oldest item wins.
type ClusterRepresentative struct {
	// ID is the representative evidence id.
	ID string

	// Text is the representative evidence text.
	Text string
}

// ClusterMember is a near-duplicate of a cluster's representative.
type ClusterMember struct {
	// ID is the member evidence id.
	ID string

	// Text is the member evidence text.
	Text string

	// Similarity is the member's score against the representative's
	// search query.
	Similarity float64
}

// DuplicateCluster groups one representative with its near-duplicates.
// Clusters are disjoint: no evidence id appears in two clusters.
type DuplicateCluster struct {
	// ClusterID identifies the cluster within one report.
	ClusterID string

	// Representative is the oldest member, kept as canonical.
	Representative ClusterRepresentative

	// Members are the near-duplicates of the representative.
	Members []ClusterMember
}

// DuplicateCount is the number of redundant records in the cluster.
// The representative is canonical, so every member counts as one duplicate.
func (c DuplicateCluster) DuplicateCount() int {
	return len(c.Members)
}

// DefaultDedupThreshold is the similarity above which two evidence
// records are considered duplicates of each other.
const DefaultDedupThreshold = 0.90

// DedupNeighbourLimit bounds how many neighbours one clustering query
// retrieves per item.
const DedupNeighbourLimit = 20

// DedupReport summarises duplicate clusters across a project.
type DedupReport struct {
	// ProjectID scopes the report.
	ProjectID string

	// Threshold is the similarity threshold used for clustering.
	Threshold float64

	// Clusters holds the discovered duplicate groups.
	Clusters []DuplicateCluster

	// TotalEvidence is the number of active evidence records scanned.
	TotalEvidence int

	// DuplicateCount is the sum of redundant records over all clusters.
	DuplicateCount int

	// SavingsPercentage is DuplicateCount / TotalEvidence * 100.
	SavingsPercentage float64

	// GeneratedAt is when the report was produced.
	GeneratedAt time.Time
}
