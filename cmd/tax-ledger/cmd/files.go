package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/rezonia/tax-ledger/internal/archive"
	"github.com/rezonia/tax-ledger/internal/metrics"
	"github.com/rezonia/tax-ledger/internal/processor"
)

// bindFlag ties a config key to a flag; an explicitly set flag wins over
// file and environment values.
func bindFlag(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag.Name, err))
	}
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", arg, err)
		}

		if len(matches) == 0 {
			info, err := os.Stat(arg)
			if err != nil {
				return nil, fmt.Errorf("file not found: %s", arg)
			}
			if !info.IsDir() {
				files = append(files, arg)
				continue
			}
			matches = []string{arg}
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}
			if !info.IsDir() {
				if isSupportedFile(match) {
					files = append(files, match)
				}
				continue
			}
			err = filepath.Walk(match, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && isSupportedFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}

	return files, nil
}

func isSupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml", ".zip":
		return true
	default:
		return false
	}
}

// loadDocuments opens every file as an archive. Unreadable files become
// failures so the rest still run.
func loadDocuments(files []string) ([]processor.Document, []processor.Failure) {
	var docs []processor.Document
	var failures []processor.Failure

	for _, file := range files {
		name := filepath.Base(file)
		data, err := os.ReadFile(file)
		if err == nil {
			var entries []processor.Document
			entries, err = archive.Open(name, data, cfg.Processing.MaxFileBytes)
			if err == nil {
				printVerbose("%s: %d documents\n", file, len(entries))
				docs = append(docs, entries...)
				continue
			}
		}
		failures = append(failures, processor.Failure{
			Archive: name,
			Reason:  metrics.ReasonArchive,
			Message: err.Error(),
			Err:     err,
		})
	}

	return docs, failures
}
