package ingest

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ruleforge/ruleforge/internal/logger"
	"github.com/ruleforge/ruleforge/internal/models"
)

// Mapping kinds reported in run results.
const (
	MappingKindTechnique     = "technique"
	MappingKindVulnerability = "vulnerability"
)

// Result summarizes one ingestion run. It is accumulated locally inside Run
// and returned by value; no counter state survives between invocations.
type Result struct {
	RunID            string         `json:"run_id"`
	Message          string         `json:"message"`
	DurationSeconds  float64        `json:"duration_seconds"`
	RecordsProcessed int            `json:"records_processed"`
	RecordsSkipped   int            `json:"records_skipped"`
	Created          int            `json:"created"`
	Updated          int            `json:"updated"`
	MappingsCreated  map[string]int `json:"mappings_created"`
	Errors           int            `json:"errors"`
}

// NewResult returns an empty result with an assigned run id.
func NewResult() Result {
	return Result{
		RunID:           uuid.NewString(),
		MappingsCreated: make(map[string]int),
	}
}

// Merge folds another result's counters into this one. Used when a single
// trigger event carries several export objects.
func (r *Result) Merge(other Result) {
	r.RecordsProcessed += other.RecordsProcessed
	r.RecordsSkipped += other.RecordsSkipped
	r.Created += other.Created
	r.Updated += other.Updated
	r.Errors += other.Errors
	for kind, count := range other.MappingsCreated {
		r.MappingsCreated[kind] += count
	}
}

// Runner drives one export payload through adapter, canonicalizer, change
// detector and reconciler. Each record runs in its own transaction so one bad
// record never poisons the rest of the file.
type Runner struct {
	DB *gorm.DB
}

// NewRunner returns a runner bound to the canonical store.
func NewRunner(db *gorm.DB) *Runner {
	return &Runner{DB: db}
}

type recordOutcome struct {
	change   Change
	mappings int
}

// Run ingests one export payload. It always returns a structured result; a
// fatal parse or source failure shows up as a nonzero error count rather than
// an aborting error.
func (r *Runner) Run(adapter Adapter, input io.Reader) Result {
	start := time.Now()
	info := adapter.Source()
	res := NewResult()
	res.MappingsCreated[MappingKindTechnique] = 0

	log := logger.WithFields(map[string]interface{}{
		"run_id": res.RunID,
		"source": info.Name,
	})
	log.Info("starting rule processing")

	parsed, err := adapter.Parse(input)
	res.RecordsSkipped += parsed.Skipped
	if err != nil {
		log.WithError(err).Error("failed to parse export payload")
		res.Errors++
		res.Message = fmt.Sprintf("%s rule processing failed.", info.Name)
		res.DurationSeconds = time.Since(start).Seconds()
		return res
	}

	source, err := r.getOrCreateSource(info)
	if err != nil {
		log.WithError(err).Error("failed to resolve rule source")
		res.Errors++
		res.Message = fmt.Sprintf("%s rule processing failed.", info.Name)
		res.DurationSeconds = time.Since(start).Seconds()
		return res
	}

	for _, rec := range parsed.Records {
		res.RecordsProcessed++

		var outcome recordOutcome
		err := r.DB.Transaction(func(tx *gorm.DB) error {
			var txErr error
			outcome, txErr = processRecord(tx, source, rec)
			return txErr
		})
		if err != nil {
			res.Errors++
			log.WithError(err).WithFields(map[string]interface{}{
				"rule_id":    rec.NativeID,
				"error_kind": string(KindOf(err)),
			}).Error("failed to process record")
			continue
		}

		switch outcome.change {
		case ChangeCreate:
			res.Created++
		case ChangeUpdate:
			res.Updated++
		}
		res.MappingsCreated[MappingKindTechnique] += outcome.mappings
	}

	res.Message = fmt.Sprintf("%s rule processing completed.", info.Name)
	res.DurationSeconds = time.Since(start).Seconds()

	log.WithFields(map[string]interface{}{
		"processed": res.RecordsProcessed,
		"skipped":   res.RecordsSkipped,
		"created":   res.Created,
		"updated":   res.Updated,
		"mappings":  res.MappingsCreated,
		"errors":    res.Errors,
	}).Info("rule processing finished")

	return res
}

// processRecord upserts one canonical rule and reconciles its technique
// mappings inside the caller's transaction.
func processRecord(tx *gorm.DB, source models.RuleSource, rec Record) (recordOutcome, error) {
	fields := Canonicalize(rec)
	hash := Fingerprint(rec.RawContent)

	var existing models.DetectionRule
	err := tx.Where("source_id = ? AND rule_id = ?", source.ID, rec.NativeID).First(&existing).Error

	var rule *models.DetectionRule
	var change Change

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		change = ChangeCreate
		rule = &models.DetectionRule{SourceID: source.ID, RuleID: rec.NativeID}
		ApplyCanonical(rule, fields, hash)
		if err := tx.Create(rule).Error; err != nil {
			return recordOutcome{}, WrapError(KindStorage, fmt.Errorf("create rule %s: %w", rec.NativeID, err))
		}
	case err != nil:
		return recordOutcome{}, WrapError(KindStorage, fmt.Errorf("look up rule %s: %w", rec.NativeID, err))
	default:
		rule = &existing
		change = Decide(&existing, hash)
		if change == ChangeUpdate {
			ApplyCanonical(rule, fields, hash)
			if err := tx.Save(rule).Error; err != nil {
				return recordOutcome{}, WrapError(KindStorage, fmt.Errorf("update rule %s: %w", rec.NativeID, err))
			}
		}
	}

	mapped, err := MapTechniques(tx, rule, TechniqueCandidates(rec), source.Name)
	if err != nil {
		return recordOutcome{}, err
	}

	return recordOutcome{change: change, mappings: mapped}, nil
}

// getOrCreateSource resolves the vendor's RuleSource row, creating it on the
// first record ever seen from that vendor. Sources are never deleted.
func (r *Runner) getOrCreateSource(info SourceInfo) (models.RuleSource, error) {
	source := models.RuleSource{
		Name:        info.Name,
		Description: info.Description,
		SourceType:  info.SourceType,
		BaseURL:     info.BaseURL,
		IsActive:    true,
	}

	err := r.DB.Where("name = ?", info.Name).FirstOrCreate(&source).Error
	if err != nil {
		return models.RuleSource{}, WrapError(KindStorage, fmt.Errorf("get or create source %s: %w", info.Name, err))
	}

	return source, nil
}
