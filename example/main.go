package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/lineage"
	"github.com/meikuraledutech/lineage/frame"
	"github.com/meikuraledutech/lineage/postgres"
)

func main() {
	ctx := context.Background()

	// ── Build a workspace ─────────────────────────────────────────────
	w := lineage.NewWorkspace("demo")

	orders, err := frame.New(
		frame.NewSeries("id", frame.Number, 1, 2, 3, 4),
		frame.NewSeries("amount", frame.Number, 10, 25, 40, 55),
		frame.NewSeries("customer", frame.String, "ada", "bob", "ada", "cyd"),
	)
	if err != nil {
		log.Fatalf("build frame: %v", err)
	}

	root, err := w.SpawnRoot(orders, "orders")
	if err != nil {
		log.Fatalf("spawn root: %v", err)
	}
	fmt.Println("root:", root)

	// ── Derive some lineage ───────────────────────────────────────────
	big, err := root.Filter(frame.Col("amount").Gt(20))
	if err != nil {
		log.Fatalf("filter: %v", err)
	}
	fmt.Println("filtered:", big)

	first, err := root.Slice(0, 2)
	if err != nil {
		log.Fatalf("slice: %v", err)
	}
	fmt.Println("sliced:", first)

	grouped, err := root.GroupBy("customer")
	if err != nil {
		log.Fatalf("group: %v", err)
	}
	totals, err := grouped.Agg(frame.Sum("amount"))
	if err != nil {
		log.Fatalf("agg: %v", err)
	}
	fmt.Println("totals:", totals)

	// ── Lazy branch: collect records materialization in the graph ─────
	lazyRoot, err := w.SpawnRoot(orders.Lazy(), "orders_lazy")
	if err != nil {
		log.Fatalf("spawn lazy root: %v", err)
	}
	collected, err := lazyRoot.Collect()
	if err != nil {
		log.Fatalf("collect: %v", err)
	}
	fmt.Printf("collected %s from lazy parent %s\n", collected.Name(), lazyRoot.Name())

	// ── Inspect the graph ─────────────────────────────────────────────
	printJSON(w.Graph())

	// ── Persist, when a database is available ─────────────────────────
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		fmt.Println("DATABASE_URL not set, skipping persistence")
		return
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	var store lineage.Store = postgres.New(pool)

	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	if err := store.SaveWorkspace(ctx, w); err != nil {
		log.Fatalf("save: %v", err)
	}
	fmt.Println("workspace saved")

	loaded, warnings, err := store.LoadWorkspace(ctx, w.ID())
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	for _, warning := range warnings {
		fmt.Println("warning:", warning)
	}
	fmt.Printf("reloaded %q with %d nodes\n", loaded.Name(), loaded.Len())
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
