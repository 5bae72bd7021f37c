package main

import "boardtrack/internal/models"

type Board = models.Board
type StageEvent = models.StageEvent
type BoardCreate = models.BoardCreate
type BoardStagePatch = models.BoardStagePatch
type NGPatch = models.NGPatch
type BoardAdminPatch = models.BoardAdminPatch
type Slip = models.Slip
type SlipUpsert = models.SlipUpsert
type SlipTargetPatch = models.SlipTargetPatch
type SlipStatus = models.SlipStatus
type SlipListItem = models.SlipListItem
type KindBucket = models.KindBucket
type Statistics = models.Statistics
type InventorySummary = models.InventorySummary
type WeeklyStats = models.WeeklyStats
type HealthStatus = models.HealthStatus
