// Package enrichment converges vulnerability ids mentioned by canonical rules
// with the entries actually stored, fetching the gap from an external
// authority under a strict serial rate limit.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ruleforge/ruleforge/internal/ingest"
	"github.com/ruleforge/ruleforge/internal/logger"
	"github.com/ruleforge/ruleforge/internal/models"
)

// Client fetches one vulnerability record from the external authority.
type Client interface {
	Fetch(ctx context.Context, cveID string) (*models.CveEntry, error)
}

// Fetcher runs the scan/diff/fetch/map cycle. Only BatchSize missing ids are
// fetched per invocation; the rest wait for the next scheduled run, which
// bounds external API load and keeps runs safely repeatable.
type Fetcher struct {
	DB        *gorm.DB
	Client    Client
	BatchSize int
	Delay     time.Duration

	// sleep is swapped out by tests; production uses time.Sleep.
	sleep func(time.Duration)
}

// NewFetcher returns a fetcher with the given pacing.
func NewFetcher(db *gorm.DB, client Client, batchSize int, delay time.Duration) *Fetcher {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Fetcher{
		DB:        db,
		Client:    client,
		BatchSize: batchSize,
		Delay:     delay,
		sleep:     time.Sleep,
	}
}

// Result summarizes one enrichment run.
type Result struct {
	RunID           string  `json:"run_id"`
	Message         string  `json:"message"`
	DurationSeconds float64 `json:"duration_seconds"`
	Mentioned       int     `json:"cves_mentioned"`
	Missing         int     `json:"cves_missing"`
	Enriched        int     `json:"cves_enriched"`
	MappingsCreated int     `json:"mappings_created"`
	Errors          int     `json:"errors"`
}

// Run executes one enrichment pass. A failure on one id never affects the
// rest of the batch; the returned result is always structured.
func (f *Fetcher) Run(ctx context.Context) Result {
	start := time.Now()
	res := Result{RunID: uuid.NewString()}
	log := logger.WithFields(map[string]interface{}{"run_id": res.RunID})
	log.Info("starting vulnerability enrichment")

	mentions, err := f.scanMentions()
	if err != nil {
		log.WithError(err).Error("failed to scan rules for vulnerability mentions")
		res.Errors++
		res.Message = "Vulnerability enrichment failed."
		res.DurationSeconds = time.Since(start).Seconds()
		return res
	}
	res.Mentioned = len(mentions)

	mentioned := make([]string, 0, len(mentions))
	for id := range mentions {
		mentioned = append(mentioned, id)
	}

	stored, err := f.storedCves(mentioned)
	if err != nil {
		log.WithError(err).Error("failed to query stored vulnerability entries")
		res.Errors++
		res.Message = "Vulnerability enrichment failed."
		res.DurationSeconds = time.Since(start).Seconds()
		return res
	}

	var missing []string
	for _, id := range mentioned {
		if _, ok := stored[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	res.Missing = len(missing)
	log.WithFields(map[string]interface{}{
		"mentioned": res.Mentioned,
		"missing":   res.Missing,
	}).Info("computed enrichment gap")

	batch := missing
	if len(batch) > f.BatchSize {
		batch = batch[:f.BatchSize]
	}

	for i, cveID := range batch {
		if ctx.Err() != nil {
			log.Warn("enrichment cancelled mid-batch")
			break
		}
		// Blocking rate limit: never two external calls back to back.
		if i > 0 {
			f.sleep(f.Delay)
		}

		entry, err := f.Client.Fetch(ctx, cveID)
		if err != nil {
			res.Errors++
			log.WithError(err).WithField("cve_id", cveID).Warn("failed to fetch vulnerability")
			continue
		}
		entry.CveID = strings.ToUpper(entry.CveID)
		if entry.CveID == "" {
			entry.CveID = strings.ToUpper(cveID)
		}

		if err := f.DB.Create(entry).Error; err != nil {
			res.Errors++
			log.WithError(err).WithField("cve_id", cveID).Error("failed to store vulnerability entry")
			continue
		}
		res.Enriched++
		log.WithField("cve_id", entry.CveID).Debug("enriched vulnerability")
	}

	created, err := f.createMissingMappings(mentions)
	if err != nil {
		res.Errors++
		log.WithError(err).Error("failed to create vulnerability mappings")
	}
	res.MappingsCreated = created

	res.Message = "Vulnerability enrichment finished."
	res.DurationSeconds = time.Since(start).Seconds()
	log.WithFields(map[string]interface{}{
		"enriched": res.Enriched,
		"mappings": res.MappingsCreated,
		"errors":   res.Errors,
	}).Info("vulnerability enrichment finished")

	return res
}

// scanMentions walks every canonical rule and rebuilds the mention index:
// vulnerability id (uppercase) to the set of rule ids referencing it.
func (f *Fetcher) scanMentions() (map[string][]uint, error) {
	var rules []models.DetectionRule
	if err := f.DB.Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	mentions := make(map[string][]uint)
	for _, rule := range rules {
		for _, cveID := range ingest.CveMentions(rule) {
			mentions[cveID] = append(mentions[cveID], rule.ID)
		}
	}

	return mentions, nil
}

// storedCves returns which of the given ids already have entries.
func (f *Fetcher) storedCves(ids []string) (map[string]struct{}, error) {
	stored := make(map[string]struct{})
	if len(ids) == 0 {
		return stored, nil
	}

	var found []string
	if err := f.DB.Model(&models.CveEntry{}).
		Where("cve_id IN ?", ids).
		Pluck("cve_id", &found).Error; err != nil {
		return nil, fmt.Errorf("query stored cves: %w", err)
	}

	for _, id := range found {
		stored[id] = struct{}{}
	}

	return stored, nil
}

// createMissingMappings inserts rule-to-cve rows for every mention whose
// entry now exists, respecting the one-row-per-pair invariant.
func (f *Fetcher) createMissingMappings(mentions map[string][]uint) (int, error) {
	created := 0

	cveIDs := make([]string, 0, len(mentions))
	for id := range mentions {
		cveIDs = append(cveIDs, id)
	}
	sort.Strings(cveIDs)

	for _, cveID := range cveIDs {
		var entry models.CveEntry
		err := f.DB.Where("cve_id = ?", cveID).First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue // still missing, deferred to a later run
		}
		if err != nil {
			return created, fmt.Errorf("look up cve %s: %w", cveID, err)
		}

		for _, ruleID := range mentions[cveID] {
			var count int64
			if err := f.DB.Model(&models.RuleCveMapping{}).
				Where("rule_id = ? AND cve_id = ?", ruleID, entry.ID).
				Count(&count).Error; err != nil {
				return created, fmt.Errorf("check existing cve mapping: %w", err)
			}
			if count > 0 {
				continue
			}

			mapping := models.RuleCveMapping{
				RuleID:           ruleID,
				CveID:            entry.ID,
				RelationshipType: models.RelationshipDetects,
			}
			if err := f.DB.Create(&mapping).Error; err != nil {
				return created, fmt.Errorf("create cve mapping: %w", err)
			}
			created++
		}
	}

	return created, nil
}
