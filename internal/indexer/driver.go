// Package indexer drives the connectors against the relational store and
// the inverted index: resolve watermarks, scan, filter, upsert, commit,
// advance watermarks.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/cass/internal/connectors"
	"github.com/fyrsmithlabs/cass/internal/invindex"
	"github.com/fyrsmithlabs/cass/internal/logging"
	"github.com/fyrsmithlabs/cass/internal/metrics"
	"github.com/fyrsmithlabs/cass/internal/model"
	"github.com/fyrsmithlabs/cass/internal/secrets"
	"github.com/fyrsmithlabs/cass/internal/store"
	"github.com/fyrsmithlabs/cass/internal/textnorm"
	"go.uber.org/zap"
)

// ConnectorSummary reports what happened for a single connector during a
// Run.
type ConnectorSummary struct {
	Slug              string
	Detected          bool
	Evidence          []string
	ConversationCount int
	MessageCount      int
	Err               error
}

// Summary aggregates a full indexer Run across every registered connector.
type Summary struct {
	Connectors []ConnectorSummary
}

// Driver orchestrates connectors against a relational store and an inverted
// index writer.
type Driver struct {
	store    *store.Store
	invdir   string
	log      *logging.Logger
	redactor *secrets.Redactor
}

// NewDriver builds a Driver. invindexDir is the on-disk inverted-index
// directory passed to invindex.OpenWriter once per Run. redactor may be nil
// to disable the secret-redaction pass.
func NewDriver(st *store.Store, invindexDir string, log *logging.Logger, redactor *secrets.Redactor) *Driver {
	return &Driver{store: st, invdir: invindexDir, log: log, redactor: redactor}
}

// RunOptions configures one indexer pass.
type RunOptions struct {
	// Full forces a from-scratch scan, ignoring watermarks.
	Full bool
	// DataRoot overrides a connector's default discovery root. Empty means
	// every connector uses its own default.
	DataRoot string
}

// Run scans every connector in registry, upserts emitted conversations into
// the relational store, mirrors the same messages into the inverted index,
// and advances each connector's watermark after its batch commits.
func (d *Driver) Run(ctx context.Context, registry *connectors.Registry, opts RunOptions) (Summary, error) {
	writer, err := d.openWriter(opts)
	if err != nil {
		return Summary{}, fmt.Errorf("indexer: open inverted index: %w", err)
	}
	if opts.Full {
		if err := writer.DeleteAll(); err != nil {
			return Summary{}, fmt.Errorf("indexer: clear inverted index for full reindex: %w", err)
		}
	}

	var summary Summary
	for _, c := range registry.All() {
		summary.Connectors = append(summary.Connectors, d.runConnector(ctx, c, opts, writer))
	}

	return summary, nil
}

// openWriter opens the inverted-index writer for one Run or one Watch
// rescan. It does not itself clear anything; callers decide whether a Full
// pass needs to call writer.DeleteAll() first.
func (d *Driver) openWriter(opts RunOptions) (*invindex.Writer, error) {
	return invindex.OpenWriter(d.invdir)
}

// runConnector detects, scans, and indexes a single connector, recording its
// scan metrics on every exit path via defer.
func (d *Driver) runConnector(ctx context.Context, c connectors.Connector, opts RunOptions, writer *invindex.Writer) ConnectorSummary {
	cs := ConnectorSummary{Slug: c.Slug()}
	wallStart := time.Now()
	defer func() {
		metrics.RecordScan(cs.Slug, time.Since(wallStart).Seconds(), cs.ConversationCount, cs.MessageCount, cs.Err != nil)
	}()

	detection := c.Detect()
	cs.Detected = detection.Detected
	cs.Evidence = detection.Evidence
	if !detection.Detected {
		return cs
	}

	scanStart := time.Now().UnixMilli()
	var since *int64
	var err error
	if !opts.Full {
		since, err = d.store.Watermark(ctx, c.Slug())
		if err != nil {
			cs.Err = err
			return cs
		}
	}

	scanCtx := connectors.ScanContext{
		Context:        ctx,
		DataRoot:       opts.DataRoot,
		RootIsOverride: opts.DataRoot != "",
		SinceTS:        since,
	}

	convs, err := c.Scan(scanCtx)
	if err != nil {
		d.warn("scan failed", c.Slug(), err)
		cs.Err = err
		return cs
	}

	for _, conv := range convs {
		processConversation(&conv)
		if conv.IsEmpty() {
			continue
		}
		if d.redactor != nil {
			d.redactMessages(conv.Messages)
		}

		if _, err := d.store.UpsertConversation(ctx, conv); err != nil {
			d.warn("store upsert failed, conversation skipped", conv.SourcePath, err)
			continue
		}
		if !opts.Full {
			// Full reindexes already cleared the whole document log above;
			// an incremental re-scan of an appended or edited artifact must
			// drop its prior documents before re-adding, mirroring the
			// store's replace-as-a-set semantics.
			if err := writer.DeleteBySource(conv.AgentSlug, conv.SourcePath); err != nil {
				d.warn("invindex delete-by-source failed, conversation skipped", conv.SourcePath, err)
				continue
			}
		}
		writeInvindexDocs(writer, conv)

		cs.ConversationCount++
		cs.MessageCount += len(conv.Messages)
	}

	if err := writer.Commit(); err != nil {
		cs.Err = err
		return cs
	}

	if err := d.store.SetWatermark(ctx, c.Slug(), scanStart); err != nil {
		cs.Err = err
	}
	return cs
}

// processConversation applies the ingest-time filter pipeline in place:
// drop empty/noise/duplicate messages, re-index densely, derive a title.
func processConversation(conv *model.Conversation) {
	seen := make(map[string]bool, len(conv.Messages))
	kept := conv.Messages[:0]
	for _, msg := range conv.Messages {
		if msg.IsEmpty() {
			continue
		}
		if textnorm.IsToolNoise(msg.Content) {
			continue
		}
		key := textnorm.DedupeKey(msg.Content)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, msg)
	}
	conv.Messages = kept
	conv.Reindex()
	conv.DeriveTitle()
}

func (d *Driver) redactMessages(messages []model.Message) {
	for i := range messages {
		redacted, n := d.redactor.Redact(messages[i].Content)
		if n > 0 {
			messages[i].Content = redacted
		}
	}
}

func writeInvindexDocs(writer *invindex.Writer, conv model.Conversation) {
	for _, msg := range conv.Messages {
		createdAt := msg.CreatedAt
		if createdAt == nil {
			createdAt = conv.StartedAt
		}
		writer.Add(invindex.Document{
			Agent:      conv.AgentSlug,
			Workspace:  conv.Workspace,
			SourcePath: conv.SourcePath,
			MsgIdx:     msg.Idx,
			CreatedAt:  createdAt,
			Title:      conv.Title,
			Content:    msg.Content,
		})
	}
}

func (d *Driver) warn(msg, detail string, err error) {
	if d.log == nil {
		return
	}
	d.log.Warn(context.Background(), msg, zap.String("detail", detail), zap.Error(err))
}
