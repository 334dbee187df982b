package infra

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"signal-export/config"

	_ "modernc.org/sqlite" // Pure-Go sqlite driver
)

// StoreDB provides read-only database access to the decrypted message store.
type StoreDB struct {
	DB *sql.DB

	// tempPath is the plaintext copy produced by the external decryption
	// tool, removed again on Close. Empty when the store was opened directly.
	tempPath string
}

// OpenStore opens the message store described by the configuration. An
// encrypted store is first exported to a plaintext temp copy through the
// external sqlcipher tool; a store without a key is assumed to be plaintext
// already and opened in place. Every failure here is fatal to the run, no
// conversation data is obtainable without the store.
func OpenStore(ctx context.Context, cfg *config.Config) (*StoreDB, error) {
	if _, err := os.Stat(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("message store %q not readable: %w", cfg.DBPath, err)
	}

	path := cfg.DBPath
	tempPath := ""
	if cfg.Key != "" {
		decrypted, err := decryptStore(ctx, cfg.SQLCipherBin, cfg.DBPath, cfg.Key)
		if err != nil {
			return nil, err
		}
		path = decrypted
		tempPath = decrypted
	} else {
		log.Printf("No key configured, opening %q as a plaintext store.", path)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open message store: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Probe for the two tables the exporter queries. A bad key or an
	// incompatible store version surfaces here, before any conversation work.
	var n int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('conversations', 'messages')`).Scan(&n)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to inspect message store %q: %w", path, err)
	}
	if n != 2 {
		db.Close()
		return nil, fmt.Errorf("store %q does not look like a decrypted Signal database (conversations/messages tables missing)", path)
	}

	log.Printf("Successfully opened message store at %q.", path)
	return &StoreDB{DB: db, tempPath: tempPath}, nil
}

// Close releases the database connection and removes the decrypted temp copy.
func (s *StoreDB) Close() error {
	err := s.DB.Close()
	if s.tempPath != "" {
		if rmErr := os.Remove(s.tempPath); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}

// decryptStore shells out to the sqlcipher CLI and exports a plaintext copy
// of the encrypted store into the temp directory. Decrypting the proprietary
// format in-process is deliberately out of scope; the external tool owns it.
func decryptStore(ctx context.Context, bin, src, key string) (string, error) {
	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("signal-export-%d.sqlite", os.Getpid()))
	os.Remove(tmp)

	script := strings.Join([]string{
		fmt.Sprintf(`PRAGMA key = "x'%s'";`, key),
		fmt.Sprintf(`ATTACH DATABASE '%s' AS plaintext KEY '';`, tmp),
		`SELECT sqlcipher_export('plaintext');`,
		`DETACH DATABASE plaintext;`,
	}, "\n")

	cmd := exec.CommandContext(ctx, bin, src, script)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("decrypting store %q with %q failed: %w (%s)", src, bin, err, strings.TrimSpace(string(out)))
	}
	if _, err := os.Stat(tmp); err != nil {
		return "", fmt.Errorf("decryption tool %q produced no plaintext store: %w", bin, err)
	}

	log.Printf("Decrypted store exported to temporary copy %q.", tmp)
	return tmp, nil
}
