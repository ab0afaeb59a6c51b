package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dgallion1/bookgest/internal/analyze"
	"github.com/dgallion1/bookgest/internal/config"
	"github.com/dgallion1/bookgest/internal/llm"
	"github.com/dgallion1/bookgest/internal/parser"
	"github.com/dgallion1/bookgest/internal/pipeline"
	"github.com/dgallion1/bookgest/internal/script"
	"github.com/dgallion1/bookgest/internal/translate"
)

func main() {
	outDir := flag.String("out", "", "output directory (default OUTPUT_DIR or book_reports)")
	workers := flag.Int("workers", 0, "max books processed concurrently (default WORKER_COUNT)")
	doTranslate := flag.Bool("translate", false, "translate report fields via DeepL")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file-or-directory> [more paths...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.Load()
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}
	if *workers > 0 {
		cfg.WorkerCount = *workers
	}
	if *doTranslate {
		cfg.Translate = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	files, err := collectFiles(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "error: no supported book files found")
		os.Exit(1)
	}

	normalizer, err := script.NewOpenCC("s2tw")
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: opencc init failed:", err)
		os.Exit(1)
	}

	client := llm.NewClient(cfg, log)
	defer client.Close()
	analyzer := analyze.NewAnalyzer(client, normalizer, cfg, log)

	var translator pipeline.Translator
	if cfg.Translate {
		deepl := translate.NewClient(cfg, log)
		defer deepl.Close()
		translator = deepl
	}

	ctx := context.Background()

	type result struct {
		file   string
		status pipeline.JobStatus
		report string
		errs   []string
	}
	results := make([]result, len(files))

	// Books run concurrently up to the worker bound. Stages within one
	// book stay sequential inside Worker.Process.
	sem := make(chan struct{}, cfg.WorkerCount)
	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, file string) {
			defer wg.Done()
			defer func() { <-sem }()

			w := pipeline.NewWorker(analyzer, translator, cfg, log)
			data, err := os.ReadFile(file)
			if err != nil {
				results[i] = result{file: file, status: pipeline.StatusFailed, errs: []string{err.Error()}}
				return
			}
			job := pipeline.NewJob(filepath.Base(file), data)
			w.Process(ctx, job)

			snap := job.Snapshot()
			results[i] = result{file: file, status: snap.Status, report: snap.ReportPath, errs: snap.Errors}
		}(i, file)
	}
	wg.Wait()

	succeeded, failed := 0, 0
	for _, r := range results {
		switch r.status {
		case pipeline.StatusCompleted, pipeline.StatusPartial:
			succeeded++
			fmt.Printf("ok   %s -> %s\n", r.file, r.report)
			if r.status == pipeline.StatusPartial {
				fmt.Printf("     partial: %s\n", strings.Join(r.errs, "; "))
			}
		default:
			failed++
			fmt.Printf("FAIL %s: %s\n", r.file, strings.Join(r.errs, "; "))
		}
	}
	fmt.Printf("\n%d succeeded, %d failed\n", succeeded, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// collectFiles expands each argument into supported book files. Directories
// contribute their immediate children.
func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if !parser.IsSupportedExtension(arg) {
				return nil, fmt.Errorf("unsupported file type: %s", arg)
			}
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !parser.IsSupportedExtension(e.Name()) {
				continue
			}
			files = append(files, filepath.Join(arg, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
