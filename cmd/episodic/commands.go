// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/poiesic/episodic"
	"github.com/poiesic/episodic/config"
	"github.com/poiesic/episodic/core"
	"github.com/poiesic/episodic/query"
	"github.com/poiesic/episodic/reindex"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func openDatabase(c *cli.Context) (*episodic.Database, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := episodic.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serveCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signalContext()
	defer stop()

	srv, err := db.NewServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	if !c.Bool("no-worker") {
		g.Go(func() error { return db.RunWorker(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), db.Config().HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func workerCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signalContext()
	defer stop()

	return db.RunWorker(ctx)
}

func dispatchCommand(c *cli.Context) error {
	docs, err := loadCandidates(c.String("file"))
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	dispatcher, err := db.NewDispatcher(ctx)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	dispatch := dispatcher.RequestIndexing
	if c.Bool("force") {
		dispatch = dispatcher.ForceIndexing
	}
	enqueued, err := dispatch(ctx, docs)
	fmt.Fprintf(c.App.Writer, "Enqueued %d of %d episodes\n", enqueued, len(docs))
	if err != nil {
		return fmt.Errorf("some episodes were not enqueued: %w", err)
	}
	return nil
}

func reindexCommand(c *cli.Context) error {
	cfg := reindex.DefaultConfig()
	cfg.BatchSize = c.Int("batch-size")
	for _, name := range c.StringSlice("status") {
		status, err := core.ParseStatus(name)
		if err != nil {
			return err
		}
		cfg.Statuses = append(cfg.Statuses, status)
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signalContext()
	defer stop()

	dispatcher, err := db.NewDispatcher(ctx)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	r := reindex.NewReindexer(db.CatalogRepository(), db.Tracker(), dispatcher, cfg, c.App.ErrWriter)
	if _, err := r.Run(ctx); err != nil {
		return fmt.Errorf("reindex incomplete: %w", err)
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	var records []*core.StatusRecord

	if c.NArg() == 0 {
		records, err = db.Tracker().List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list statuses: %w", err)
		}
	} else {
		for _, arg := range c.Args().Slice() {
			id := core.DocumentID(arg)
			rec, err := db.Tracker().GetRecord(ctx, id)
			if err != nil {
				rec = &core.StatusRecord{ID: id, Status: core.StatusUnknown}
			}
			records = append(records, rec)
		}
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPARTITIONS\tATTEMPTS\tUPDATED\tREASON")
	for _, rec := range records {
		updated := "-"
		if !rec.UpdatedAt.IsZero() {
			updated = rec.UpdatedAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			rec.ID, rec.Status, rec.PartitionCount, rec.Attempts, updated, rec.Reason)
	}
	return w.Flush()
}

func askCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("a question is required")
	}
	question := joinArgs(c.Args().Slice())

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	engine, err := db.NewEngine()
	if err != nil {
		return fmt.Errorf("failed to create query engine: %w", err)
	}

	minRelevance := db.Config().Query.DefaultMinRelevance
	if v := c.Float64("min-relevance"); v >= 0 {
		minRelevance = float32(v)
	}
	filter := buildFilter(c.StringSlice("speaker"), c.StringSlice("topic"))

	var monitor query.Monitor
	if c.Bool("verbose") {
		monitor = newPrintMonitor(c.App.ErrWriter)
	}

	ctx, stop := signalContext()
	defer stop()

	result, err := engine.AskWithMonitor(ctx, question, filter, minRelevance, monitor)
	if err != nil {
		return err
	}

	if c.Bool("speak") {
		renderer, err := db.NewSpeechRenderer()
		if err != nil {
			return fmt.Errorf("failed to create speech renderer: %w", err)
		}
		if renderer == nil {
			result.Warnings = append(result.Warnings, "speech is not enabled in the configuration")
		} else {
			renderer.Render(ctx, result)
		}
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printAnswer(c.App.Writer, result)
	return nil
}
