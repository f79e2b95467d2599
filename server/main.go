package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/lineage"
	"github.com/meikuraledutech/lineage/frame"
	"github.com/meikuraledutech/lineage/postgres"
)

type columnSpec struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
}

type rootRequest struct {
	Name           string       `json:"name"`
	Columns        []columnSpec `json:"columns"`
	Rows           [][]any      `json:"rows"`
	Lazy           bool         `json:"lazy"`
	IsDocument     bool         `json:"is_document"`
	DocumentColumn string       `json:"document_column"`
}

type aggSpec struct {
	Col string `json:"col"`
	Op  string `json:"op"`
	As  string `json:"as"`
}

type opRequest struct {
	Op      string    `json:"op"`
	Column  string    `json:"column"`
	Cmp     string    `json:"cmp"`
	Value   any       `json:"value"`
	Columns []string  `json:"columns"`
	Offset  int       `json:"offset"`
	Length  int       `json:"length"`
	Count   int       `json:"count"`
	Desc    bool      `json:"desc"`
	Other   string    `json:"other"`
	On      []string  `json:"on"`
	How     string    `json:"how"`
	Keys    []string  `json:"keys"`
	Aggs    []aggSpec `json:"aggs"`
}

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":3000"
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	var store lineage.Store = postgres.New(pool)

	// Live workspaces keyed by id. The engine supplies no locking; the host
	// serializes access per workspace, which a single fiber handler chain
	// per request satisfies here.
	live := make(map[string]*lineage.Workspace)

	app := fiber.New()

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := store.CreateSchema(c.Context()); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := store.DropSchema(c.Context()); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Workspaces ────────────────────────────────────────────────────
	app.Post("/workspaces", func(c fiber.Ctx) error {
		var body struct {
			Name string `json:"name"`
		}
		if err := c.Bind().JSON(&body); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		w := lineage.NewWorkspace(body.Name)
		live[w.ID()] = w
		return c.Status(201).JSON(w.Summary())
	})

	app.Get("/workspaces", func(c fiber.Ctx) error {
		summaries := []lineage.WorkspaceSummary{}
		for _, w := range live {
			summaries = append(summaries, w.Summary())
		}
		return c.JSON(summaries)
	})

	app.Get("/workspaces/:id", func(c fiber.Ctx) error {
		w, ok := live[c.Params("id")]
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": lineage.ErrWorkspaceNotFound.Error()})
		}
		return c.JSON(w.Summary())
	})

	app.Get("/workspaces/:id/graph", func(c fiber.Ctx) error {
		w, ok := live[c.Params("id")]
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": lineage.ErrWorkspaceNotFound.Error()})
		}
		return c.JSON(w.Graph())
	})

	app.Delete("/workspaces/:id", func(c fiber.Ctx) error {
		if _, ok := live[c.Params("id")]; !ok {
			return c.Status(404).JSON(fiber.Map{"error": lineage.ErrWorkspaceNotFound.Error()})
		}
		delete(live, c.Params("id"))
		return c.SendStatus(204)
	})

	// ── Persistence ───────────────────────────────────────────────────
	app.Post("/workspaces/:id/save", func(c fiber.Ctx) error {
		w, ok := live[c.Params("id")]
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": lineage.ErrWorkspaceNotFound.Error()})
		}
		if err := store.SaveWorkspace(c.Context(), w); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "workspace saved"})
	})

	app.Post("/workspaces/:id/load", func(c fiber.Ctx) error {
		w, warnings, err := store.LoadWorkspace(c.Context(), c.Params("id"))
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		if w == nil {
			return c.Status(404).JSON(fiber.Map{"error": lineage.ErrWorkspaceNotFound.Error()})
		}
		live[w.ID()] = w
		return c.JSON(fiber.Map{"workspace": w.Summary(), "warnings": warnings})
	})

	app.Get("/stored", func(c fiber.Ctx) error {
		records, err := store.ListWorkspaces(c.Context())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(records)
	})

	app.Delete("/stored/:id", func(c fiber.Ctx) error {
		if err := store.DeleteWorkspace(c.Context(), c.Params("id")); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(204)
	})

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/workspaces/:id/nodes", func(c fiber.Ctx) error {
		w, ok := live[c.Params("id")]
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": lineage.ErrWorkspaceNotFound.Error()})
		}
		var body rootRequest
		if err := c.Bind().JSON(&body); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		value, err := buildTable(body)
		if err != nil {
			return c.Status(422).JSON(fiber.Map{"error": err.Error()})
		}
		node, err := lineage.NewNode(value, body.Name, w, nil, "load_data")
		if err != nil {
			return c.Status(422).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(201).JSON(node.Summary())
	})

	app.Get("/workspaces/:id/nodes", func(c fiber.Ctx) error {
		w, ok := live[c.Params("id")]
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": lineage.ErrWorkspaceNotFound.Error()})
		}
		summaries := []lineage.NodeSummary{}
		for _, n := range w.Nodes() {
			summaries = append(summaries, n.Summary())
		}
		return c.JSON(summaries)
	})

	app.Get("/workspaces/:id/nodes/:nodeID", func(c fiber.Ctx) error {
		w, ok := live[c.Params("id")]
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": lineage.ErrWorkspaceNotFound.Error()})
		}
		n := w.GetNode(c.Params("nodeID"))
		if n == nil {
			return c.Status(404).JSON(fiber.Map{"error": lineage.ErrNodeNotFound.Error()})
		}
		return c.JSON(n.Summary())
	})

	app.Delete("/workspaces/:id/nodes/:nodeID", func(c fiber.Ctx) error {
		w, ok := live[c.Params("id")]
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": lineage.ErrWorkspaceNotFound.Error()})
		}
		materialize := c.Query("materialize") == "true"
		if !w.RemoveNode(c.Params("nodeID"), materialize) {
			return c.Status(404).JSON(fiber.Map{"error": lineage.ErrNodeNotFound.Error()})
		}
		return c.SendStatus(204)
	})

	// ── Operations ────────────────────────────────────────────────────
	app.Post("/workspaces/:id/nodes/:nodeID/apply", func(c fiber.Ctx) error {
		w, ok := live[c.Params("id")]
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": lineage.ErrWorkspaceNotFound.Error()})
		}
		n := w.GetNode(c.Params("nodeID"))
		if n == nil {
			return c.Status(404).JSON(fiber.Map{"error": lineage.ErrNodeNotFound.Error()})
		}
		var body opRequest
		if err := c.Bind().JSON(&body); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		result, err := applyOp(w, n, body)
		if err != nil {
			return c.Status(422).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(201).JSON(result.Summary())
	})

	log.Fatal(app.Listen(addr))
}

// buildTable turns a root request into one of the four engine table kinds.
func buildTable(body rootRequest) (any, error) {
	schema := make(frame.Schema, 0, len(body.Columns))
	for _, col := range body.Columns {
		dt, err := frame.DTypeFromString(col.DType)
		if err != nil {
			return nil, err
		}
		schema = append(schema, frame.Field{Name: col.Name, DType: dt})
	}
	f, err := frame.FromRows(schema, body.Rows)
	if err != nil {
		return nil, err
	}
	switch {
	case body.IsDocument && body.Lazy:
		return frame.NewDocLazyFrame(f.Lazy(), body.DocumentColumn)
	case body.IsDocument:
		return frame.NewDocFrame(f, body.DocumentColumn)
	case body.Lazy:
		return f.Lazy(), nil
	default:
		return f, nil
	}
}

// applyOp dispatches a named operation against a node.
func applyOp(w *lineage.Workspace, n *lineage.Node, body opRequest) (*lineage.Node, error) {
	switch body.Op {
	case "filter":
		pred, err := buildPredicate(body.Column, body.Cmp, body.Value)
		if err != nil {
			return nil, err
		}
		return n.Filter(pred)
	case "select":
		return n.Select(body.Columns...)
	case "column":
		return n.Column(body.Column)
	case "slice":
		return n.Slice(body.Offset, body.Length)
	case "sort":
		return n.Sort(body.Column, body.Desc)
	case "head":
		return n.Head(body.Count)
	case "unique":
		return n.Unique()
	case "join":
		other := w.GetNode(body.Other)
		if other == nil {
			return nil, lineage.ErrNodeNotFound
		}
		return n.Join(other, body.On, frame.JoinType(body.How))
	case "group":
		g, err := n.GroupBy(body.Keys...)
		if err != nil {
			return nil, err
		}
		aggs := make([]frame.Aggregation, 0, len(body.Aggs))
		for _, a := range body.Aggs {
			agg := frame.Aggregation{Col: a.Col, Op: frame.AggOp(a.Op), As: a.As}
			if agg.As == "" {
				agg.As = a.Col + "_" + a.Op
			}
			aggs = append(aggs, agg)
		}
		return g.Agg(aggs...)
	case "collect":
		return n.Collect()
	case "materialize":
		return n.Materialize()
	default:
		return nil, fmt.Errorf("%w: %q", lineage.ErrCapabilityNotFound, body.Op)
	}
}

// buildPredicate maps a comparison request onto an engine predicate.
func buildPredicate(column, cmp string, value any) (frame.Predicate, error) {
	num := func() (float64, error) {
		n, ok := value.(float64)
		if !ok {
			return 0, fmt.Errorf("comparison %q needs a numeric value", cmp)
		}
		return n, nil
	}
	switch cmp {
	case "gt", "lt", "gte", "lte":
		v, err := num()
		if err != nil {
			return nil, err
		}
		switch cmp {
		case "gt":
			return frame.Col(column).Gt(v), nil
		case "lt":
			return frame.Col(column).Lt(v), nil
		case "gte":
			return frame.Col(column).GtEq(v), nil
		default:
			return frame.Col(column).LtEq(v), nil
		}
	case "eq":
		return frame.Col(column).Eq(value), nil
	case "neq":
		return frame.Col(column).Neq(value), nil
	case "contains":
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("contains needs a string value")
		}
		return frame.Col(column).Contains(s), nil
	default:
		return nil, fmt.Errorf("unknown comparison %q", cmp)
	}
}
