// Package importer copies allow-listed vPIC makes and their models into a store.
package importer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fwolasyar/car-perfector/store"
	"github.com/fwolasyar/car-perfector/vpic"
)

// Source is the upstream catalogue.
type Source interface {
	FetchMakes(ctx context.Context) ([]vpic.Make, error)
	FetchModelsForMake(ctx context.Context, makeID int) ([]vpic.Model, error)
}

// Sink receives the rows to persist.
type Sink interface {
	InsertMake(ctx context.Context, row store.MakeRow) error
	InsertModel(ctx context.Context, row store.ModelRow) error
}

type Options struct {
	AllowedMakes    []string
	InterPhaseDelay time.Duration
}

type Importer struct {
	source Source
	sink   Sink
	log    *zap.Logger
	opts   Options
	newID  func() uuid.UUID
}

func New(source Source, sink Sink, log *zap.Logger, opts Options) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{source: source, sink: sink, log: log, opts: opts, newID: uuid.New}
}

// Run fetches makes, keeps the allow-listed ones, inserts them, waits for
// the inter-phase delay and then imports the models of every make that was
// inserted. Row insert failures are recorded as skips. A fetch failure or a
// cancelled ctx ends the run and is returned together with the partial summary.
func (im *Importer) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	im.log.Info("🚀 starting vPIC import", zap.Int("allowed_makes", len(im.opts.AllowedMakes)))

	/*──────── 1. Makes ────────*/
	makes, err := im.source.FetchMakes(ctx)
	if err != nil {
		return sum, err
	}
	sum.MakesFetched = len(makes)

	allowed := FilterAllowed(makes, im.opts.AllowedMakes)
	sum.MakesAllowed = len(allowed)

	var inserted []vpic.Make
	for _, m := range allowed {
		o, err := im.insertMake(ctx, m)
		if err != nil {
			return sum, err
		}
		sum.recordMake(o, fmt.Sprintf("%d %s", m.ID, m.Name))
		if o.Status == Inserted {
			inserted = append(inserted, m)
		}
	}
	im.log.Info("✔ makes imported",
		zap.Int("fetched", sum.MakesFetched),
		zap.Int("allowed", sum.MakesAllowed),
		zap.Int("inserted", sum.MakesInserted),
		zap.Int("skipped", sum.MakesSkipped))

	if err := sleep(ctx, im.opts.InterPhaseDelay); err != nil {
		return sum, err
	}

	/*──────── 2. Models ────────*/
	total := len(inserted)
	for i, m := range inserted {
		im.log.Info("🔄 importing models",
			zap.String("progress", fmt.Sprintf("%d/%d", i+1, total)),
			zap.String("make", m.Name))

		models, err := im.source.FetchModelsForMake(ctx, m.ID)
		if err != nil {
			return sum, err
		}
		sum.ModelsFetched += len(models)

		for _, md := range models {
			o, err := im.insertModel(ctx, m.ID, md)
			if err != nil {
				return sum, err
			}
			sum.recordModel(o, fmt.Sprintf("%s/%s", m.Name, md.Name))
		}
		sum.MakesProcessed++
	}
	im.log.Info("✔ models imported",
		zap.Int("fetched", sum.ModelsFetched),
		zap.Int("inserted", sum.ModelsInserted),
		zap.Int("skipped", sum.ModelsSkipped))

	return sum, nil
}

// insertMake returns a non-nil error only when ctx is done; the run must
// stop then instead of recording a skip.
func (im *Importer) insertMake(ctx context.Context, m vpic.Make) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	row := store.MakeRow{ID: im.newID(), MakeID: m.ID, MakeName: m.Name}
	if err := im.sink.InsertMake(ctx, row); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, ctxErr
		}
		im.log.Warn("⚠️ skipping make", zap.Int("make_id", m.ID), zap.String("make", m.Name), zap.Error(err))
		return Outcome{Status: Skipped, Reason: err}, nil
	}
	return Outcome{Status: Inserted}, nil
}

// insertModel stores md under makeID, the id of the make it was fetched for.
// Like insertMake, it only returns an error when ctx is done.
func (im *Importer) insertModel(ctx context.Context, makeID int, md vpic.Model) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	row := store.ModelRow{ID: im.newID(), MakeID: makeID, ModelName: md.Name}
	if md.ID != 0 {
		row.NHTSAModelID = strconv.Itoa(md.ID)
	}
	if err := im.sink.InsertModel(ctx, row); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, ctxErr
		}
		im.log.Warn("⚠️ skipping model", zap.Int("make_id", makeID), zap.String("model", md.Name), zap.Error(err))
		return Outcome{Status: Skipped, Reason: err}, nil
	}
	return Outcome{Status: Inserted}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
