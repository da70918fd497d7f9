package change

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/merge"
	"github.com/NERVsystems/osmdelta/pkg/monitoring"
	"github.com/NERVsystems/osmdelta/pkg/tracing"
)

// BatchMerger merges a batch of changes into one change per
// (identifier, kind, change type). Partitions are independent and merge
// concurrently; within a partition changes are merged in input order.
type BatchMerger struct {
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchMerger
type BatchOption func(*BatchMerger)

// WithConcurrency bounds the number of partitions merged at once
func WithConcurrency(n int) BatchOption {
	return func(b *BatchMerger) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithLogger sets the logger used for batch summaries
func WithLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchMerger) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBatchMerger creates a batch merger. Concurrency defaults to GOMAXPROCS.
func NewBatchMerger(opts ...BatchOption) *BatchMerger {
	b := &BatchMerger{
		concurrency: runtime.GOMAXPROCS(0),
		logger:      slog.Default().With("component", "batch_merger"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type partitionKey struct {
	key        entity.Key
	changeType ChangeType
}

func (p partitionKey) compare(other partitionKey) int {
	switch {
	case p.key.Less(other.key):
		return -1
	case other.key.Less(p.key):
		return 1
	}
	return cmp.Compare(p.changeType, other.changeType)
}

// PartitionError reports the failure of one partition of a batch
type PartitionError struct {
	Key        entity.Key
	ChangeType ChangeType
	Err        error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.ChangeType, e.Key, e.Err)
}

func (e *PartitionError) Unwrap() error {
	return e.Err
}

// Merge merges every partition of changes. The result holds one change per
// successfully merged partition, ordered by key then change type. Failed
// partitions are reported together as a joined error of *PartitionError;
// the successful ones are still returned. A cancelled context aborts the
// batch.
func (b *BatchMerger) Merge(ctx context.Context, changes []*FeatureChange) ([]*FeatureChange, error) {
	batchID := uuid.NewString()
	logger := b.logger.With("batch_id", batchID)

	var invalid []error
	partitions := make(map[partitionKey][]*FeatureChange)
	for i, c := range changes {
		if c == nil {
			invalid = append(invalid, fmt.Errorf("change %d: %w: nil change", i, ErrInvalid))
			continue
		}
		pk := partitionKey{key: c.Key(), changeType: c.changeType}
		partitions[pk] = append(partitions[pk], c)
	}

	keys := make([]partitionKey, 0, len(partitions))
	for pk := range partitions {
		keys = append(keys, pk)
	}
	slices.SortFunc(keys, partitionKey.compare)

	ctx, span := tracing.StartSpan(ctx, "change.merge_batch")
	defer span.End()
	span.SetAttributes(tracing.BatchAttributes(batchID, len(changes), len(keys))...)

	merged := make([]*FeatureChange, len(keys))
	errs := make([]error, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, pk := range keys {
		group := partitions[pk]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := mergePartition(group)
			if err != nil {
				errs[i] = &PartitionError{Key: pk.key, ChangeType: pk.changeType, Err: err}
				return nil
			}
			merged[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		monitoring.RecordBatch(len(changes), false)
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("merge batch %s: %w", batchID, err)
	}

	out := make([]*FeatureChange, 0, len(keys))
	failed := 0
	for i := range keys {
		if errs[i] != nil {
			failed++
			var ce *merge.ConflictError
			if errors.As(errs[i], &ce) {
				tracing.RecordConflict(ctx, keys[i].key.ID, keys[i].key.Kind.String(),
					keys[i].changeType.String(), ce.Field, string(ce.Kind))
			}
			continue
		}
		out = append(out, merged[i])
	}

	err := errors.Join(append(invalid, errs...)...)
	monitoring.RecordBatch(len(changes), err == nil)
	span.SetAttributes(attribute.Int(tracing.AttrBatchFailures, failed+len(invalid)))
	if err != nil {
		span.SetStatus(codes.Error, "partitions failed")
		logger.Warn("batch merged with failures",
			"changes", len(changes),
			"partitions", len(keys),
			"failed", failed,
			"invalid", len(invalid))
	} else {
		logger.Info("batch merged", "changes", len(changes), "partitions", len(keys))
	}
	return out, err
}

func mergePartition(group []*FeatureChange) (*FeatureChange, error) {
	acc := group[0]
	for _, c := range group[1:] {
		next, err := acc.Merge(c)
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}
