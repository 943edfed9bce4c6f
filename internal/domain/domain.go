package domain

import (
	"github.com/yungbote/assetwatch-backend/internal/domain/assets"
	"github.com/yungbote/assetwatch-backend/internal/domain/migrations"
)

const (
	CategoryCore         = assets.CategoryCore
	CategoryMembers      = assets.CategoryMembers
	CategoryEcommerce    = assets.CategoryEcommerce
	CategoryZeroBlock    = assets.CategoryZeroBlock
	CategoryUIComponents = assets.CategoryUIComponents
	CategoryUtilities    = assets.CategoryUtilities
	CategoryUnknown      = assets.CategoryUnknown

	PriorityCritical = assets.PriorityCritical
	PriorityHigh     = assets.PriorityHigh
	PriorityMedium   = assets.PriorityMedium
	PriorityLow      = assets.PriorityLow

	FileKindScript     = assets.FileKindScript
	FileKindStylesheet = assets.FileKindStylesheet

	SeverityCritical = assets.SeverityCritical
	SeverityNotable  = assets.SeverityNotable
	SeverityMinor    = assets.SeverityMinor

	CandidateStatusNew      = assets.CandidateStatusNew
	CandidateStatusPromoted = assets.CandidateStatusPromoted
	CandidateStatusIgnored  = assets.CandidateStatusIgnored

	MigrationStatusPending    = migrations.StatusPending
	MigrationStatusValidating = migrations.StatusValidating
	MigrationStatusArchiving  = migrations.StatusArchiving
	MigrationStatusActivating = migrations.StatusActivating
	MigrationStatusCompleted  = migrations.StatusCompleted
	MigrationStatusFailed     = migrations.StatusFailed
	MigrationStatusRolledBack = migrations.StatusRolledBack

	MigrationTriggerAuto     = migrations.TriggerAuto
	MigrationTriggerManual   = migrations.TriggerManual
	MigrationTriggerRollback = migrations.TriggerRollback

	ReasonParseAmbiguous     = migrations.ReasonParseAmbiguous
	ReasonValidationFailed   = migrations.ReasonValidationFailed
	ReasonArchiveFailed      = migrations.ReasonArchiveFailed
	ReasonActivateFailed     = migrations.ReasonActivateFailed
	ReasonRollbackIncomplete = migrations.ReasonRollbackIncomplete
	ReasonNotFound           = migrations.ReasonNotFound
	ReasonEmpty              = migrations.ReasonEmpty
	ReasonTimeout            = migrations.ReasonTimeout
	ReasonNetwork            = migrations.ReasonNetwork

	NotifyKindChangeDetected      = migrations.NotifyKindChangeDetected
	NotifyKindUpdateFound         = migrations.NotifyKindUpdateFound
	NotifyKindMigrationCompleted  = migrations.NotifyKindMigrationCompleted
	NotifyKindMigrationFailed     = migrations.NotifyKindMigrationFailed
	NotifyKindMigrationRolledBack = migrations.NotifyKindMigrationRolledBack
	NotifyKindCandidateFound      = migrations.NotifyKindCandidateFound
	NotifyKindFailureThreshold    = migrations.NotifyKindFailureThreshold
	NotifyKindBatchSummary        = migrations.NotifyKindBatchSummary

	NotifyChannelRedis = migrations.NotifyChannelRedis
	NotifyChannelLog   = migrations.NotifyChannelLog
)

type TrackedAsset = assets.TrackedAsset
type ArchivedVersion = assets.ArchivedVersion
type CandidateAsset = assets.CandidateAsset
type Change = assets.Change

type MigrationRecord = migrations.MigrationRecord
type MigrationMetric = migrations.MigrationMetric
type NotificationLog = migrations.NotificationLog
