package main

import (
	"fmt"
	"mime"
	"path/filepath"

	"redress/internal/capability"
	"redress/internal/communicate"
	"redress/internal/config"
	"redress/internal/consistency"
	"redress/internal/corpus"
	"redress/internal/evidence"
	"redress/internal/pipeline"
	"redress/internal/policy"
	"redress/internal/resolution"
	"redress/internal/returns"
	"redress/internal/store"
)

func openStore(cfg config.Config) (*store.SqlStore, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func openCorpus(cfg config.Config) (*corpus.SqlStore, error) {
	cs, err := corpus.Open(cfg.Store.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("open policy corpus: %w", err)
	}
	return cs, nil
}

func thresholdsFrom(cfg config.ResolutionConfig) resolution.Thresholds {
	return resolution.Thresholds{
		WindowDays:            cfg.WindowDays,
		ApproveThreshold:      cfg.ApproveThreshold,
		LowConfidenceFloor:    cfg.LowConfidenceFloor,
		ManufacturingDiscount: cfg.ManufacturingDiscount,
		AgreementBoost:        cfg.AgreementBoost,
		ConsistencyFloor:      cfg.ConsistencyFloor,
	}
}

// buildService wires the full pipeline over the given stores. An
// unconfigured capability endpoint leaves every stage on its
// deterministic fallback.
func buildService(cfg config.Config, st store.Store, clauses corpus.Store) *returns.Service {
	client := capability.New(cfg.Capability)
	p := pipeline.New(
		evidence.New(client),
		consistency.New(client),
		policy.New(clauses, client, cfg.Policy.TopN),
		resolution.New(thresholdsFrom(cfg.Resolution)),
		communicate.New(client),
	)
	return returns.NewService(st, p)
}

// mimeTypeFor guesses a media MIME type from the file extension.
func mimeTypeFor(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
