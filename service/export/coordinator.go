package export

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"signal-export/domain"
	"signal-export/service/classify"
	"signal-export/service/identity"
	"signal-export/util"

	"golang.org/x/sync/errgroup"
)

//----------------------------------------------------------------------------------------------------
// Export Coordination (one run over the whole store)
//----------------------------------------------------------------------------------------------------

// MessageSource is the read side of the decrypted store: the two query
// shapes the exporter issues, and nothing else.
type MessageSource interface {
	Conversations(ctx context.Context) ([]domain.ConversationRecord, error)
	ForEachMessage(ctx context.Context, conversationID string, fn func(payload []byte) error) error
}

// Summary collects the per-run totals across all conversation workers.
type Summary struct {
	Conversations atomic.Int64
	Lines         atomic.Int64
	Skipped       atomic.Int64
	Copied        atomic.Int64
	CopyFailures  atomic.Int64
	Failed        atomic.Int64
}

// Coordinator drives a full export: for every conversation, fetch its
// messages chronologically, classify them, append them to that
// conversation's segmented log, and optionally extract attachments.
// Conversations share nothing mutable, so they run on a bounded worker pool.
type Coordinator struct {
	Source      MessageSource
	SelfName    string
	OutputRoot  string
	Attachments *AttachmentStore // nil disables attachment extraction
	Workers     int
	Verbose     bool
}

// Run exports every conversation in the store and returns the run totals.
// A failure to list conversations is fatal; failures inside one conversation
// are isolated to it.
func (c *Coordinator) Run(ctx context.Context) (*Summary, error) {
	records, err := c.Source.Conversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	ids := identity.BuildIdentityMap(records)
	names := identity.BuildConversationMap(records)
	slugs := uniqueSlugs(records, names)

	workers := c.Workers
	if workers < 1 {
		workers = 1
	}

	summary := &Summary{}
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i := range records {
		rec := records[i]
		group.Go(func() error {
			if err := c.exportConversation(ctx, &rec, slugs[rec.ID], ids, summary); err != nil {
				// Isolated: one broken conversation must not sink the run.
				log.Printf("Error exporting conversation %q: %v", rec.ID, err)
				summary.Failed.Add(1)
			}
			return ctx.Err()
		})
	}
	if err := group.Wait(); err != nil {
		return summary, err
	}
	return summary, nil
}

// uniqueSlugs maps every conversation id to its output slug. Distinct
// conversations can resolve to the same display name (any two unnamed groups
// do), and each conversation must own its output directory exclusively, so a
// colliding slug gets the conversation id appended.
func uniqueSlugs(records []domain.ConversationRecord, names map[string]string) map[string]string {
	counts := make(map[string]int, len(records))
	for i := range records {
		counts[util.ConversationSlug(names[records[i].ID])]++
	}

	slugs := make(map[string]string, len(records))
	for i := range records {
		id := records[i].ID
		s := util.ConversationSlug(names[id])
		if counts[s] > 1 {
			s = s + "-" + util.ConversationSlug(id)
		}
		slugs[id] = s
	}
	return slugs
}

// exportConversation runs the classify -> write -> extract pipeline for one
// conversation. It owns exactly one open segment file at a time.
func (c *Coordinator) exportConversation(ctx context.Context, rec *domain.ConversationRecord, slug string, ids map[string]string, summary *Summary) error {
	writer := NewSegmentWriter(c.OutputRoot, slug)
	defer func() {
		if err := writer.Close(); err != nil {
			log.Printf("Error closing segment for conversation %q: %v", slug, err)
		}
	}()

	err := c.Source.ForEachMessage(ctx, rec.ID, func(payload []byte) error {
		msg, err := domain.ParseRawMessage(payload)
		if err != nil {
			log.Printf("Warning: skipping undecodable message in conversation %q: %v", rec.ID, err)
			return nil
		}

		event := classify.Classify(ids, c.SelfName, msg)
		if event == nil {
			if c.Verbose {
				log.Printf("Dropping message of unknown type %q in conversation %q.", msg.Type, rec.ID)
			}
			return nil
		}

		written, err := writer.Append(event)
		if err != nil {
			return err
		}
		if written {
			summary.Lines.Add(1)
		} else {
			summary.Skipped.Add(1)
		}

		// Extraction is independent of the line watermark: a rerun that adds
		// --attachments must still materialize files for lines already present.
		if c.Attachments != nil {
			c.extractAttachments(rec.ID, event, summary)
		}
		return nil
	})
	if err != nil {
		return err
	}

	summary.Conversations.Add(1)
	return nil
}

// extractAttachments copies every locally-available attachment of one event.
// Copy failures are reported and skipped, the conversation export continues.
func (c *Coordinator) extractAttachments(conversationID string, event *domain.LogEvent, summary *Summary) {
	for i := range event.Attachments {
		_, copied, err := c.Attachments.Copy(&event.Attachments[i])
		if err != nil {
			log.Printf("Warning: attachment in conversation %q not copied: %v", conversationID, err)
			summary.CopyFailures.Add(1)
			continue
		}
		if copied {
			summary.Copied.Add(1)
		}
	}
}
