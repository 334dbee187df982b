package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"signal-export/domain"
	"signal-export/util"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

//----------------------------------------------------------------------------------------------------
// Attachment Resolution and Extraction
//----------------------------------------------------------------------------------------------------

// AttachmentStore copies attachment bytes out of the local attachment store
// into the export tree. The destination directory is shared across all
// conversations; filename collisions between conversations are accepted, not
// treated as a race to prevent.
type AttachmentStore struct {
	SourceRoot string // Root of Signal's attachments.noindex store
	DestDir    string // <outputRoot>/attachments
}

// NewAttachmentStore builds the store for one run.
func NewAttachmentStore(sourceRoot, outputRoot string) *AttachmentStore {
	return &AttachmentStore{
		SourceRoot: sourceRoot,
		DestDir:    filepath.Join(outputRoot, "attachments"),
	}
}

// Resolve computes the stable output filename for an attachment reference.
// It reports false when the reference has no local bytes to copy, which is
// not an error, there is just nothing to do. The filename is deterministic
// for a given reference, so re-exports never rename already-copied files.
func (s *AttachmentStore) Resolve(ref *domain.AttachmentRef) (string, bool) {
	if util.ValueOrDefault(ref.Path) == "" {
		return "", false
	}
	if name := util.ValueOrDefault(ref.FileName); name != "" {
		return name, true
	}
	return attachmentIdentifier(ref) + fileExtension(ref.ContentType), true
}

// Copy materializes one attachment reference into the shared destination
// directory and returns the destination path plus whether bytes were written.
// Filenames are deterministic, so a destination already holding a copy of the
// same size is left alone; a short file from an interrupted run is rewritten.
// Failures are per-attachment; the caller logs them and moves on.
func (s *AttachmentStore) Copy(ref *domain.AttachmentRef) (string, bool, error) {
	name, ok := s.Resolve(ref)
	if !ok {
		return "", false, nil
	}

	src := *ref.Path
	if !filepath.IsAbs(src) {
		src = filepath.Join(s.SourceRoot, src)
	}

	if err := os.MkdirAll(s.DestDir, 0o755); err != nil {
		return "", false, fmt.Errorf("creating attachments directory %q: %w", s.DestDir, err)
	}
	dest := filepath.Join(s.DestDir, name)

	srcInfo, err := os.Stat(src)
	if err != nil {
		return "", false, fmt.Errorf("opening attachment source %q: %w", src, err)
	}
	if destInfo, err := os.Stat(dest); err == nil && destInfo.Size() == srcInfo.Size() {
		return dest, false, nil
	}

	in, err := os.Open(src)
	if err != nil {
		return "", false, fmt.Errorf("opening attachment source %q: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return "", false, fmt.Errorf("creating attachment copy %q: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return "", false, fmt.Errorf("copying attachment %q: %w", src, err)
	}
	return dest, true, nil
}

// attachmentIdentifier picks the first usable identifier for a reference:
// the attachment's own id, its CDN record id, its CDN key, and finally a
// deterministic hash over the serialized reference so even a reference with
// no identifying fields resolves to the same name on every run.
func attachmentIdentifier(ref *domain.AttachmentRef) string {
	for _, id := range []string{ref.ID, ref.CdnID, ref.CdnKey} {
		if id != "" {
			return id
		}
	}
	serialized, _ := json.Marshal(ref)
	return uuid.NewSHA1(uuid.NameSpaceURL, serialized).String()
}

// fileExtension maps a declared content type to a file extension. The
// mimetype table occasionally answers ".jpe" for JPEG, a historical artifact
// nobody wants in their filenames; unknown types fall back to the slash
// suffix of the type string itself.
func fileExtension(contentType string) string {
	ext := ""
	if m := mimetype.Lookup(contentType); m != nil {
		ext = m.Extension()
	}
	if ext == ".jpe" {
		ext = ".jpg"
	}
	if ext == "" {
		if _, suffix, ok := strings.Cut(contentType, "/"); ok && suffix != "" {
			ext = "." + suffix
		}
	}
	return ext
}
