package connections

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kmarchetti/conndock/internal/models"
	"github.com/kmarchetti/conndock/internal/secrets"
	"github.com/kmarchetti/conndock/internal/storage"
	apperrors "github.com/kmarchetti/conndock/pkg/errors"
	"github.com/kmarchetti/conndock/pkg/logger"
	"github.com/kmarchetti/conndock/pkg/metrics"
)

// Orphan reconciliation is a fixed-point sweep over a forest that may contain
// inconsistent parent references. The ceilings below bound its effort: a hard
// iteration cap, and a stuck-loop guard that stops when the same non-zero
// removal count repeats too many times (a cycle the per-pass orphan check
// cannot resolve). Residual orphans are retried on the next sweep.
const (
	maxCleanupIterations         = 20
	maxRepeatedRemovalIterations = 5
)

// Cleanup outcomes reported per zone.
const (
	OutcomeClean   = "clean"
	OutcomeCeiling = "ceiling"
	OutcomeStuck   = "stuck"
)

// ZoneCleanupReport summarises one zone's orphan reconciliation sweep.
type ZoneCleanupReport struct {
	Zone       string `json:"zone"`
	Removed    int    `json:"removed"`
	Iterations int    `json:"iterations"`
	Outcome    string `json:"outcome"`
}

// Store owns the connection/folder tree for every zone: CRUD with stable ids,
// a secret bag per item kept in its own backend, and the orphan reconciliation
// that restores referential integrity after non-cascading deletes.
type Store struct {
	adapter storage.Adapter
	secrets secrets.Store
	zones   []string
	log     *zap.Logger

	locksMu   sync.Mutex
	zoneLocks map[string]*sync.Mutex
}

// NewStore constructs a connection store over the supplied backends. When no
// zones are given the store sweeps DefaultZones during reconciliation.
func NewStore(adapter storage.Adapter, secretStore secrets.Store, zones ...string) (*Store, error) {
	if adapter == nil {
		return nil, errors.New("connection store: storage adapter is required")
	}
	if secretStore == nil {
		return nil, errors.New("connection store: secret store is required")
	}

	if len(zones) == 0 {
		zones = DefaultZones
	}

	return &Store{
		adapter:   adapter,
		secrets:   secretStore,
		zones:     append([]string(nil), zones...),
		log:       logger.WithModule("connections"),
		zoneLocks: make(map[string]*sync.Mutex),
	}, nil
}

// Zones returns the zones this store reconciles.
func (s *Store) Zones() []string {
	return append([]string(nil), s.zones...)
}

// Save upserts an item's properties and secrets under the same id, generating
// an id when the caller did not supply one. Parent references are not
// validated here: a folder and its first child may be created in either
// order, and the reconciliation pass sweeps up whatever never resolves.
func (s *Store) Save(ctx context.Context, zone string, item Item) (*Item, error) {
	ctx = ensureContext(ctx)

	zone = strings.TrimSpace(zone)
	if zone == "" {
		return nil, apperrors.NewBadRequest("zone is required")
	}
	if strings.TrimSpace(item.Name) == "" {
		return nil, apperrors.NewBadRequest("item name is required")
	}
	if !item.Type.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown item type %q", item.Type))
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	record, err := toRecord(zone, item)
	if err != nil {
		return nil, err
	}

	if err := s.adapter.Push(ctx, zone, record, true); err != nil {
		return nil, fmt.Errorf("connection store: save %s: %w", item.ID, err)
	}

	if item.Secrets != nil {
		if err := s.secrets.Put(ctx, zone, item.ID, item.Secrets); err != nil {
			return nil, fmt.Errorf("connection store: save secrets for %s: %w", item.ID, err)
		}
	}

	metrics.ItemsSaved.WithLabelValues(zone, string(item.Type)).Inc()
	return &item, nil
}

// Get returns the item with the given id including its secrets bag, or nil
// when it does not exist. Zone is part of the lookup key, so an id never
// leaks across zones.
func (s *Store) Get(ctx context.Context, zone, id string) (*Item, error) {
	ctx = ensureContext(ctx)

	record, err := s.adapter.GetItem(ctx, zone, id)
	if err != nil {
		return nil, fmt.Errorf("connection store: get %s: %w", id, err)
	}
	if record == nil {
		return nil, nil
	}

	item, err := fromRecord(*record)
	if err != nil {
		return nil, err
	}

	bag, err := s.secrets.Get(ctx, zone, id)
	if err != nil {
		return nil, fmt.Errorf("connection store: get secrets for %s: %w", id, err)
	}
	item.Secrets = bag

	return &item, nil
}

// GetAll returns the connection items in a zone, excluding folders and
// omitting secret material.
func (s *Store) GetAll(ctx context.Context, zone string) ([]Item, error) {
	items, err := s.GetAllItems(ctx, zone)
	if err != nil {
		return nil, err
	}

	out := items[:0:0]
	for _, item := range items {
		if item.Type == TypeConnection {
			out = append(out, item)
		}
	}
	return out, nil
}

// GetAllItems returns every item in a zone, folders included, omitting
// secret material.
func (s *Store) GetAllItems(ctx context.Context, zone string) ([]Item, error) {
	ctx = ensureContext(ctx)

	records, err := s.adapter.GetItems(ctx, zone)
	if err != nil {
		return nil, fmt.Errorf("connection store: list items: %w", err)
	}

	items := make([]Item, 0, len(records))
	for _, record := range records {
		item, err := fromRecord(record)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Delete removes an item's properties and its secret entry. Children are not
// cascaded; they become orphans and are swept by the next reconciliation
// pass, keeping delete O(1).
func (s *Store) Delete(ctx context.Context, zone, id string) error {
	ctx = ensureContext(ctx)

	var errs error
	if err := s.adapter.Delete(ctx, zone, id); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("connection store: delete %s: %w", id, err))
	}
	if err := s.secrets.Delete(ctx, zone, id); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("connection store: delete secrets for %s: %w", id, err))
	}
	if errs != nil {
		return errs
	}

	metrics.ItemsDeleted.WithLabelValues(zone, "api").Inc()
	return nil
}

// CleanupOrphanedItems sweeps every configured zone for items whose parentId
// points at a missing item or at a non-folder, deleting them until a pass
// removes nothing or a safety ceiling trips. Safe to call repeatedly;
// concurrent sweeps of the same zone are serialised.
func (s *Store) CleanupOrphanedItems(ctx context.Context) ([]ZoneCleanupReport, error) {
	ctx = ensureContext(ctx)

	reports := make([]ZoneCleanupReport, 0, len(s.zones))
	var errs error
	for _, zone := range s.zones {
		report, err := s.cleanupZone(ctx, zone)
		reports = append(reports, report)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return reports, errs
}

func (s *Store) cleanupZone(ctx context.Context, zone string) (ZoneCleanupReport, error) {
	lock := s.zoneLock(zone)
	lock.Lock()
	defer lock.Unlock()

	report := ZoneCleanupReport{Zone: zone, Outcome: OutcomeCeiling}

	lastRemoved := -1
	repeatStreak := 0

	for report.Iterations < maxCleanupIterations {
		records, err := s.adapter.GetItems(ctx, zone)
		if err != nil {
			report.Outcome = OutcomeStuck
			return report, fmt.Errorf("connection store: reconcile %s: %w", zone, err)
		}

		orphans := orphanedIDs(records)
		if len(orphans) == 0 {
			report.Outcome = OutcomeClean
			break
		}

		report.Iterations++

		removed := 0
		for _, id := range orphans {
			if err := s.adapter.Delete(ctx, zone, id); err != nil {
				// A single corrupt or locked record must not block the
				// rest of the sweep.
				s.log.Warn("orphan delete failed, skipping",
					zap.String("zone", zone),
					zap.String("item_id", id),
					zap.Error(err),
				)
				continue
			}
			if err := s.secrets.Delete(ctx, zone, id); err != nil {
				s.log.Warn("orphan secret delete failed",
					zap.String("zone", zone),
					zap.String("item_id", id),
					zap.Error(err),
				)
			}
			metrics.ItemsDeleted.WithLabelValues(zone, "reconciliation").Inc()
			removed++
		}
		report.Removed += removed

		if removed == 0 {
			// Every delete in this pass failed; spinning will not help.
			report.Outcome = OutcomeStuck
			break
		}

		if removed == lastRemoved {
			repeatStreak++
		} else {
			lastRemoved = removed
			repeatStreak = 1
		}
		if repeatStreak >= maxRepeatedRemovalIterations {
			report.Outcome = OutcomeStuck
			break
		}
	}

	// The ceiling can land exactly on the pass that removes the last orphan;
	// check once more before reporting residuals.
	if report.Outcome == OutcomeCeiling {
		if records, err := s.adapter.GetItems(ctx, zone); err == nil && len(orphanedIDs(records)) == 0 {
			report.Outcome = OutcomeClean
		}
	}

	metrics.ReconciliationRuns.WithLabelValues(zone, report.Outcome).Inc()
	metrics.ReconciliationIterations.WithLabelValues(zone).Observe(float64(report.Iterations))

	s.log.Info("orphan reconciliation finished",
		zap.String("zone", zone),
		zap.Int("removed", report.Removed),
		zap.Int("iterations", report.Iterations),
		zap.String("outcome", report.Outcome),
	)
	return report, nil
}

// orphanedIDs returns every item whose parent reference does not resolve to a
// folder in the same record set, either because the parent is gone or because
// it is a connection.
func orphanedIDs(records []models.StorageItem) []string {
	folders := make(map[string]struct{}, len(records))
	for _, record := range records {
		if ItemType(record.Type) == TypeFolder {
			folders[record.ItemID] = struct{}{}
		}
	}

	var orphans []string
	for _, record := range records {
		if record.ParentID == nil {
			continue
		}
		if _, ok := folders[*record.ParentID]; !ok {
			orphans = append(orphans, record.ItemID)
		}
	}
	return orphans
}

func (s *Store) zoneLock(zone string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.zoneLocks[zone]
	if !ok {
		lock = &sync.Mutex{}
		s.zoneLocks[zone] = lock
	}
	return lock
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
