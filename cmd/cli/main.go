package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/wadjakorntonsri/pretty-links/pkg/adapters/repository"
	"github.com/wadjakorntonsri/pretty-links/pkg/config"
	"github.com/wadjakorntonsri/pretty-links/pkg/core/domain"
	"github.com/wadjakorntonsri/pretty-links/pkg/logger"
	"github.com/wadjakorntonsri/pretty-links/pkg/ports"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportFile := exportCmd.String("file", "", "write JSON to this file instead of stdout")
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file to import")

	if len(os.Args) < 2 {
		fmt.Println("expected 'export' or 'import' subcommands")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	// stdout carries the export, so logs go to stderr
	logger.Setup(cfg.LogLevel, "text", os.Stderr)
	log := logger.New().WithField("backend", cfg.StoreBackend)

	ctx := context.Background()
	repo, err := repository.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open record store")
	}
	defer repo.Close()

	switch os.Args[1] {
	case "export":
		_ = exportCmd.Parse(os.Args[2:])
		out := io.Writer(os.Stdout)
		if *exportFile != "" {
			f, err := os.Create(*exportFile)
			if err != nil {
				log.WithError(err).Fatal("failed to create export file")
			}
			defer f.Close()
			out = f
		}
		n, err := doExport(ctx, repo, out)
		if err != nil {
			log.WithError(err).Fatal("export failed")
		}
		log.WithField("count", n).Info("exported components")
	case "import":
		_ = importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		f, err := os.Open(*importFile)
		if err != nil {
			log.WithError(err).Fatal("failed to open import file")
		}
		defer f.Close()
		res, err := doImport(ctx, repo, f, log)
		if err != nil {
			log.WithError(err).Fatal("import failed")
		}
		log.WithFields(map[string]interface{}{
			"imported": res.Imported,
			"skipped":  res.Skipped,
			"failed":   res.Failed,
		}).Info("import finished")
	default:
		fmt.Println("expected 'export' or 'import' subcommands")
		os.Exit(1)
	}
}

func doExport(ctx context.Context, repo ports.ComponentRepository, w io.Writer) (int, error) {
	components, err := repo.Dump(ctx)
	if err != nil {
		return 0, err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(components); err != nil {
		return 0, fmt.Errorf("encode: %w", err)
	}
	return len(components), nil
}

type importResult struct {
	Imported int
	Skipped  int
	Failed   int
}

// doImport creates every component in r. Existing ids are skipped and
// invalid records are logged and counted; a storage failure aborts.
func doImport(ctx context.Context, repo ports.ComponentRepository, r io.Reader, log *logger.Logger) (importResult, error) {
	var res importResult
	var components []domain.Component
	if err := json.NewDecoder(r).Decode(&components); err != nil {
		return res, fmt.Errorf("decode: %w", err)
	}

	for i := range components {
		c := components[i]
		err := repo.Create(ctx, &c)
		switch {
		case err == nil:
			res.Imported++
		case domain.IsDuplicateID(err):
			log.WithField("id", c.ID).Info("skipping existing component")
			res.Skipped++
		case domain.IsInvalidRecord(err):
			log.WithField("id", c.ID).WithError(err).Warn("skipping invalid component")
			res.Failed++
		default:
			return res, err
		}
	}
	return res, nil
}
