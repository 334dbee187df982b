package export

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"signal-export/domain"
)

//----------------------------------------------------------------------------------------------------
// Segmented Log Writer (one conversation, monthly segment files)
//----------------------------------------------------------------------------------------------------

// timeLayout is the per-line timestamp marker. Local time, same as the logs
// a user would have produced by hand.
const timeLayout = "2006-01-02 15:04:05"

// tailScanBytes bounds how far back the watermark recovery reads into an
// existing segment file. Log lines are short; 64 KiB covers far more than
// one line of slack.
const tailScanBytes = 64 * 1024

// lineMarker matches the leading timestamp marker of a well-formed log line.
var lineMarker = regexp.MustCompile(`^\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\]`)

// SegmentWriter owns one conversation's output tree. It splits events into
// monthly segment files, recovers each segment's resume watermark from the
// tail of a pre-existing file, and appends only events strictly newer than
// that watermark. Events must arrive in non-decreasing timestamp order.
type SegmentWriter struct {
	root string // conversation output directory, <outputRoot>/<slug>
	slug string

	file      *os.File
	month     string // yearMonth key of the open segment, e.g. "2024_03"
	watermark int64  // last timestamp known durably written to the open segment

	// Per-writer counters for diagnostics.
	Written int
	Skipped int
}

// NewSegmentWriter creates a writer for one conversation under the output
// root. No file is opened until the first event arrives.
func NewSegmentWriter(outputRoot, slug string) *SegmentWriter {
	return &SegmentWriter{
		root: filepath.Join(outputRoot, slug),
		slug: slug,
	}
}

// Append writes the event to its monthly segment, or skips it when it is
// already represented in a previous run's output. It reports whether the
// event was written.
func (w *SegmentWriter) Append(event *domain.LogEvent) (bool, error) {
	month := monthKey(event.Timestamp)
	if w.file == nil || month != w.month {
		if err := w.roll(month); err != nil {
			return false, err
		}
	}

	// The +1 guards against re-writing the exact last line on every rerun.
	if event.Timestamp < w.watermark+1 {
		w.Skipped++
		return false, nil
	}

	line := fmt.Sprintf("[%s] %s: %s\n",
		time.Unix(event.Timestamp, 0).Format(timeLayout), event.ActorName, event.Body)
	if _, err := w.file.WriteString(line); err != nil {
		return false, fmt.Errorf("appending to segment %q: %w", w.file.Name(), err)
	}
	w.watermark = event.Timestamp
	w.Written++
	return true, nil
}

// Close flushes and releases the open segment file, if any.
func (w *SegmentWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// roll closes the current segment and opens the one for the given month,
// recovering the watermark when the file already exists from a prior run.
func (w *SegmentWriter) roll(month string) error {
	if err := w.Close(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return fmt.Errorf("creating conversation directory %q: %w", w.root, err)
	}

	path := filepath.Join(w.root, fmt.Sprintf("%s_%s.txt", w.slug, month))

	watermark := int64(0)
	if _, err := os.Stat(path); err == nil {
		recovered, found, err := recoverWatermark(path)
		if err != nil {
			return err
		}
		if !found {
			// Non-fatal, but earlier lines may be re-emitted into this file.
			log.Printf("Warning: no timestamp marker found in existing segment %q, resuming from epoch.", path)
		}
		watermark = recovered
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening segment %q: %w", path, err)
	}
	w.file = file
	w.month = month
	w.watermark = watermark
	return nil
}

// recoverWatermark scans the tail of an existing segment file backward for
// the last line carrying a timestamp marker and parses it, in local time.
// State is always derivable from the visible output; there is no separate
// state file to lose or corrupt.
func recoverWatermark(path string) (int64, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, false, fmt.Errorf("opening segment %q for watermark recovery: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, false, fmt.Errorf("inspecting segment %q: %w", path, err)
	}

	offset := info.Size() - tailScanBytes
	if offset < 0 {
		offset = 0
	}
	buf := make([]byte, info.Size()-offset)
	if _, err := file.ReadAt(buf, offset); err != nil {
		return 0, false, fmt.Errorf("reading tail of segment %q: %w", path, err)
	}

	lines := strings.Split(string(buf), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		m := lineMarker.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		t, err := time.ParseInLocation(timeLayout, m[1], time.Local)
		if err != nil {
			continue
		}
		return t.Unix(), true, nil
	}
	return 0, false, nil
}

// monthKey derives the yearMonth segment key from an event timestamp.
func monthKey(ts int64) string {
	return time.Unix(ts, 0).Format("2006_01")
}
