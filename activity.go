package authflow

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"time"

	"github.com/MrEthical07/authflow/internal/audit"
	"github.com/MrEthical07/authflow/internal/flows"
)

// activityRelay bounds each write to the configured sink by the effect timeout.
type activityRelay struct {
	sink    ActivitySink
	timeout time.Duration
}

func (r activityRelay) Write(ctx context.Context, rec audit.Record) error {
	if r.sink == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.sink.RecordActivity(ctx, rec)
}

func (c *Controller) logActivityFailure(rec audit.Record, err error) {
	c.logger.Warn("authflow: activity record failed",
		slog.String("action", rec.Action),
		slog.String("email", rec.Email),
		slog.Any("err", err),
	)
}

func (c *Controller) newActivityRecord(ctx context.Context, a flows.Activity) ActivityRecord {
	metadata := a.Metadata
	ip, ua := clientIPFromContext(ctx), userAgentFromContext(ctx)
	if ip != "" || ua != "" {
		metadata = maps.Clone(metadata)
		if metadata == nil {
			metadata = make(map[string]string, 2)
		}
		if ip != "" {
			metadata["ip"] = ip
		}
		if ua != "" {
			metadata["user_agent"] = ua
		}
	}
	return ActivityRecord{
		ID:        c.newID(),
		Timestamp: c.now().UTC(),
		UserID:    a.UserID,
		Email:     a.Email,
		Category:  a.Category,
		Action:    a.Action,
		Success:   a.Success,
		Metadata:  metadata,
	}
}

// recordActivity queues the record for the background writer. A full queue
// costs the transition at most Activity.EnqueueTimeout.
func (c *Controller) recordActivity(ctx context.Context, a flows.Activity) {
	if c.dispatcher == nil {
		return
	}
	c.dispatcher.Submit(context.WithoutCancel(ctx), c.newActivityRecord(ctx, a))
}

// streamActivitySink encodes records onto an io.Writer.
type streamActivitySink struct {
	s *audit.StreamSink
}

func (s streamActivitySink) RecordActivity(ctx context.Context, record ActivityRecord) error {
	return s.s.Write(ctx, record)
}

// NewJSONActivitySink writes one JSON object per line.
func NewJSONActivitySink(w io.Writer) ActivitySink {
	return streamActivitySink{audit.NewJSONSink(w)}
}

// NewCBORActivitySink writes a stream of CBOR items, one per record. Read it
// back with [ReadCBORActivity].
func NewCBORActivitySink(w io.Writer) ActivitySink {
	return streamActivitySink{audit.NewCBORSink(w)}
}

// ReadCBORActivity decodes a stream written by [NewCBORActivitySink].
func ReadCBORActivity(r io.Reader) ([]ActivityRecord, error) {
	return audit.ReadCBOR(r)
}

// MultiActivitySink fans a record out to every sink and returns the first error.
type MultiActivitySink []ActivitySink

func (m MultiActivitySink) RecordActivity(ctx context.Context, record ActivityRecord) error {
	var first error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.RecordActivity(ctx, record); err != nil && first == nil {
			first = err
		}
	}
	return first
}
