package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"signal-export/config"
	"signal-export/infra"
	"signal-export/repository"
	"signal-export/service/export"
)

//----------------------------------------------------------------------------------------------------
// Entry Point
//----------------------------------------------------------------------------------------------------

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalf("Configuration error: %v", err)
	}

	// Errors surface here, after every deferred cleanup in run has fired.
	// The decrypted temp copy of the store must never outlive the process.
	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(cfg *config.Config) error {
	// A cleanly interrupted run leaves flushed lines intact and is safely
	// resumable on the next run.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := infra.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("could not open message store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Error closing message store: %v", err)
		}
	}()

	var attachments *export.AttachmentStore
	if cfg.ExtractAttachments {
		attachments = export.NewAttachmentStore(cfg.AttachmentsPath, cfg.OutputRoot)
	}

	coordinator := &export.Coordinator{
		Source:      repository.New(store.DB),
		SelfName:    cfg.SelfName,
		OutputRoot:  cfg.OutputRoot,
		Attachments: attachments,
		Workers:     cfg.Workers,
		Verbose:     cfg.Verbose,
	}

	summary, err := coordinator.Run(ctx)
	if err != nil {
		return fmt.Errorf("export aborted: %w", err)
	}

	log.Printf("Export finished: %d conversations, %d lines written, %d lines already present, %d attachments copied, %d attachment failures, %d conversations failed.",
		summary.Conversations.Load(),
		summary.Lines.Load(),
		summary.Skipped.Load(),
		summary.Copied.Load(),
		summary.CopyFailures.Load(),
		summary.Failed.Load())
	return nil
}
