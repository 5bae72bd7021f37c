package models

// APIResponse is the standard JSON envelope for all API responses.
type APIResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total int `json:"total,omitempty"`
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

// Board is one physical unit tracked through the production flow.
// SerialNumber is stored verbatim; comparisons use the normalized form.
type Board struct {
	ID           string       `json:"id"`
	SerialNumber string       `json:"serialNumber"`
	BatchNumber  string       `json:"batchNumber"`
	Kind         string       `json:"kind"`
	Stage        string       `json:"stage"`
	StartTime    string       `json:"startTime"`
	LastUpdate   string       `json:"lastUpdate"`
	Operator     string       `json:"operator"`
	SlipNumber   string       `json:"slipNumber"`
	NGFlag       bool         `json:"ngFlag"`
	NGReason     *string      `json:"ngReason"`
	NGTime       *string      `json:"ngTime"`
	History      []StageEvent `json:"history"`
}

// StageEvent is one append-only history row for a board.
type StageEvent struct {
	Stage     string `json:"stage"`
	Timestamp string `json:"timestamp"`
	Operator  string `json:"operator"`
	Notes     string `json:"notes"`
}

// BoardCreate is the request payload for creating a board or scanning one.
type BoardCreate struct {
	SerialNumber string `json:"serialNumber"`
	BatchNumber  string `json:"batchNumber"`
	Kind         string `json:"kind"`
	Stage        string `json:"stage"`
	SlipNumber   string `json:"slipNumber"`
	TargetPairs  *int   `json:"targetPairs"`
	Operator     string `json:"operator"`
}

// BoardStagePatch carries an ordinary stage-advance request.
type BoardStagePatch struct {
	Stage string `json:"stage"`
}

// NGPatch toggles the defect flag on a board.
type NGPatch struct {
	NG     bool   `json:"ng"`
	Reason string `json:"reason"`
}

// BoardAdminPatch is the sparse admin-edit payload. Every field is optional;
// nil means "leave unchanged". Validated field by field rather than as a
// free-form map.
type BoardAdminPatch struct {
	SerialNumber *string `json:"newSerialNumber"`
	BatchNumber  *string `json:"batchNumber"`
	Kind         *string `json:"kind"`
	Stage        *string `json:"stage"`
	SlipNumber   *string `json:"slipNumber"`
	StartTime    *string `json:"startTime"`
	TargetPairs  *int    `json:"targetPairs"`
	Note         *string `json:"note"`
}

// Slip is a packing-list target.
type Slip struct {
	SlipNumber  string `json:"slipNumber"`
	TargetPairs int    `json:"targetPairs"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// SlipUpsert creates or updates a slip target.
type SlipUpsert struct {
	SlipNumber  string `json:"slipNumber"`
	TargetPairs int    `json:"targetPairs"`
}

// SlipTargetPatch updates a single slip's target.
type SlipTargetPatch struct {
	TargetPairs int `json:"targetPairs"`
}

// SlipStatus is the per-slip progress report. Board counts per stage are
// raw; all pair counts exclude NG boards.
type SlipStatus struct {
	SlipNumber             string `json:"slipNumber"`
	TargetPairs            int    `json:"targetPairs"`
	Aging                  int    `json:"aging"`
	Coating                int    `json:"coating"`
	Completed              int    `json:"completed"`
	CompletedAM7           int    `json:"completedAM7"`
	CompletedAU8           int    `json:"completedAU8"`
	AgingPairs             int    `json:"agingPairs"`
	CoatingPairs           int    `json:"coatingPairs"`
	WIPPairs               int    `json:"wipPairs"`
	CompletedPairs         int    `json:"completedPairs"`
	RemainingPairs         int    `json:"remainingPairs"`
	RemainingPairsAfterWIP int    `json:"remainingPairsAfterWIP"`
}

// SlipListItem is one row of the slip overview.
type SlipListItem struct {
	SlipNumber     string `json:"slipNumber"`
	TargetPairs    int    `json:"targetPairs"`
	Aging          int    `json:"aging"`
	Coating        int    `json:"coating"`
	Completed      int    `json:"completed"`
	CompletedPairs int    `json:"completedPairs"`
	UpdatedAt      string `json:"updatedAt"`
}

// KindBucket is the raw per-stage distribution for one kind (NG included).
type KindBucket struct {
	Total     int `json:"total"`
	Aging     int `json:"aging"`
	Coating   int `json:"coating"`
	Completed int `json:"completed"`
}

// Statistics is the reconciliation snapshot. It is derived on demand and
// never persisted; available counts are clamped at zero.
type Statistics struct {
	Total           int                   `json:"total"`
	Aging           int                   `json:"aging"`
	Coating         int                   `json:"coating"`
	Completed       int                   `json:"completed"`
	Efficiency      float64               `json:"efficiency"`
	ByKind          map[string]KindBucket `json:"byKind"`
	CompletedByKind map[string]int        `json:"completedByKind"`
	ConsumedAM7     int                   `json:"consumedAM7"`
	ConsumedAU8     int                   `json:"consumedAU8"`
	ConsumedTotal   int                   `json:"consumedTotal"`
	AvailableAM7    int                   `json:"availableAM7"`
	AvailableAU8    int                   `json:"availableAU8"`
	AvailableTotal  int                   `json:"availableTotal"`
	PairsAvailable  int                   `json:"pairsAvailable"`
}

// InventorySummary is the dashboard projection of a Statistics snapshot.
type InventorySummary struct {
	AvailableAM7   int `json:"availableAM7"`
	AvailableAU8   int `json:"availableAU8"`
	AvailableTotal int `json:"availableTotal"`
	UsedAM7        int `json:"usedAM7"`
	UsedAU8        int `json:"usedAU8"`
	UsedTotal      int `json:"usedTotal"`
	CompletedAM7   int `json:"completedAM7"`
	CompletedAU8   int `json:"completedAU8"`
	PairsAvailable int `json:"pairsAvailable"`
}

// WeeklyStats summarizes scan activity for the current Mon-Sun facility week.
// Each serial is bucketed by its latest event inside the window.
type WeeklyStats struct {
	Range           string         `json:"range"`
	Aging           int            `json:"aging"`
	Coating         int            `json:"coating"`
	Completed       int            `json:"completed"`
	Pairs           int            `json:"pairs"`
	CompletedByKind map[string]int `json:"completedByKind"`
}

// HealthStatus reports store integrity.
type HealthStatus struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
	DBPath string `json:"dbPath"`
}
