package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

//----------------------------------------------------------------------------------------------------
// Exporter Configuration
//----------------------------------------------------------------------------------------------------

// PlatformPaths holds the per-OS default locations of the Signal Desktop
// profile. Resolved once at startup and passed down, never read as ambient
// global state.
type PlatformPaths struct {
	ConfigFile     string // Signal's config.json, carries the database key
	Database       string // Encrypted sqlite store
	AttachmentsDir string // Root of the local attachment store
}

// DefaultPaths resolves the Signal Desktop profile directory for the current
// platform.
func DefaultPaths() PlatformPaths {
	var profile string
	switch runtime.GOOS {
	case "windows":
		profile = filepath.Join(os.Getenv("APPDATA"), "Signal")
	case "darwin":
		home, _ := os.UserHomeDir()
		profile = filepath.Join(home, "Library", "Application Support", "Signal")
	default:
		home, _ := os.UserHomeDir()
		profile = filepath.Join(home, ".config", "Signal")
	}
	return PlatformPaths{
		ConfigFile:     filepath.Join(profile, "config.json"),
		Database:       filepath.Join(profile, "sql", "db.sqlite"),
		AttachmentsDir: filepath.Join(profile, "attachments.noindex"),
	}
}

// Config is the struct that stores the resolved exporter configuration.
// All values are fully derived here; the rest of the program never consults
// flags, files or the environment.
type Config struct {
	Key                string // Hex key for the encrypted store; empty means the store is already plaintext
	DBPath             string // Location of the sqlite store
	AttachmentsPath    string // Root of the attachment store (attachments.noindex)
	OutputRoot         string // Directory to write conversation logs into
	SelfName           string // Name to tag outgoing messages with
	ExtractAttachments bool   // Copy attachment bytes alongside the logs
	SQLCipherBin       string // External decryption tool
	Workers            int    // Concurrent conversation exports
	Verbose            bool   // Log dropped message types
}

// Load parses the command line and, when no explicit key is given, reads the
// decryption key out of Signal's own config.json.
func Load(args []string) (*Config, error) {
	paths := DefaultPaths()

	flags := pflag.NewFlagSet("signal-export", pflag.ContinueOnError)
	key := flags.StringP("key", "k", "", "Decryption key for the Signal Desktop database")
	configFile := flags.StringP("config", "j", paths.ConfigFile, "Location of Signal's config.json with the decryption key")
	dbPath := flags.StringP("db-path", "d", paths.Database, "Location of the encrypted Signal sqlite db file")
	selfName := flags.StringP("i-am", "i", "me", "Name to tag outgoing messages with")
	outputRoot := flags.StringP("output", "o", "", "Directory to output log files to (required)")
	attachments := flags.BoolP("attachments", "a", false, "Copy attachments alongside the logs")
	attachmentsPath := flags.String("attachments-path", paths.AttachmentsDir, "Root of Signal's local attachment store")
	sqlcipherBin := flags.String("sqlcipher", "sqlcipher", "External sqlcipher binary used to decrypt the store")
	plaintext := flags.Bool("plaintext", false, "Treat the store as already decrypted and skip the decryption step")
	workers := flags.Int("workers", 4, "Number of conversations exported concurrently")
	verbose := flags.BoolP("verbose", "v", false, "Log messages dropped for having an unknown type")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if *outputRoot == "" {
		return nil, errors.New("an output directory is required (--output)")
	}
	if *workers < 1 {
		*workers = 1
	}

	resolvedKey := *key
	if *plaintext {
		resolvedKey = ""
	} else if resolvedKey == "" {
		// Same behavior as Signal itself: the key lives in config.json next
		// to the database. A missing file only matters when no explicit key
		// was passed.
		k, err := keyFromSignalConfig(*configFile)
		if err != nil {
			return nil, err
		}
		resolvedKey = k
	}

	return &Config{
		Key:                resolvedKey,
		DBPath:             *dbPath,
		AttachmentsPath:    *attachmentsPath,
		OutputRoot:         *outputRoot,
		SelfName:           *selfName,
		ExtractAttachments: *attachments,
		SQLCipherBin:       *sqlcipherBin,
		Workers:            *workers,
		Verbose:            *verbose,
	}, nil
}

// keyFromSignalConfig extracts the sqlcipher key from Signal's config.json.
func keyFromSignalConfig(path string) (string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("reading Signal config %q: %w", path, err)
	}
	k := v.GetString("key")
	if k == "" {
		return "", fmt.Errorf("signal config %q contains no database key", path)
	}
	return k, nil
}
