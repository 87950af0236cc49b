package reader

// SearchSummary is the aggregate view of a checkpointed search run.
type SearchSummary struct {
	SearchID    string   `json:"search_id"`
	Seed        int64    `json:"seed"`
	ResumedFrom *string  `json:"resumed_from,omitempty"`
	NodeCount   int      `json:"node_count"`
	Roots       int      `json:"roots"`
	Drafts      int      `json:"drafts"`
	Debugs      int      `json:"debugs"`
	Improves    int      `json:"improves"`
	GoodNodes   int      `json:"good_nodes"`
	BuggyNodes  int      `json:"buggy_nodes"`
	MaxDepth    int      `json:"max_depth"`
	BestNodeID  *string  `json:"best_node_id,omitempty"`
	BestMetric  *float64 `json:"best_metric,omitempty"`
}

// NodeDetail is the deep view of a single node.
type NodeDetail struct {
	ID            string   `json:"id"`
	ParentID      *string  `json:"parent_id,omitempty"`
	Stage         string   `json:"stage"`
	Status        string   `json:"status"`
	IsBuggy       bool     `json:"is_buggy"`
	Metric        *float64 `json:"metric,omitempty"`
	Depth         int      `json:"depth"`
	CreationOrder int64    `json:"creation_order"`
	CreatedAt     string   `json:"created_at"`
	Plan          string   `json:"plan,omitempty"`
	Code          string   `json:"code,omitempty"`
}
