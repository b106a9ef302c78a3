// ask answers natural-language questions against the configured database from
// the terminal, using the same pipeline as the HTTP service.
//
// Usage:
//
//	go run ./scripts/ask -q "How many DAM bids were placed today?"
//	go run ./scripts/ask -json < questions.txt
//
// Without -q, one question is read per line from stdin.
// Configuration: config.yaml in the working directory plus environment overrides.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource/postgres"
	"github.com/ekaya-inc/ekaya-askdb/pkg/audit"
	"github.com/ekaya-inc/ekaya-askdb/pkg/config"
	"github.com/ekaya-inc/ekaya-askdb/pkg/llm"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	"github.com/ekaya-inc/ekaya-askdb/pkg/prompts"
	"github.com/ekaya-inc/ekaya-askdb/pkg/services"
)

func main() {
	question := flag.String("q", "", "Question to answer (reads stdin when empty)")
	asJSON := flag.Bool("json", false, "Print the response envelope as JSON")
	verbose := flag.Bool("v", false, "Log pipeline activity to stderr")
	flag.Parse()

	cfg, err := config.Load("cli")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if *verbose {
		logConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, _ := logConfig.Build()
	defer logger.Sync()

	ctx := context.Background()

	connMgr := datasource.NewConnectionManager(datasource.ConnectionManagerConfig{TTL: cfg.Database.ConnTTL}, logger)
	defer connMgr.Close()

	adapter, err := datasource.NewAdapter(ctx, datasource.ParamsFromConfig(cfg.Database), connMgr, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer adapter.Close()

	completer, err := llm.NewCompleter(cfg.LLM, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create model client: %v\n", err)
		os.Exit(1)
	}

	glossary := prompts.DefaultGlossary()
	if cfg.Prompt.GlossaryFile != "" {
		if glossary, err = prompts.LoadGlossary(cfg.Prompt.GlossaryFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load glossary: %v\n", err)
			os.Exit(1)
		}
	}

	pipeline := services.NewQueryPipeline(
		services.NewSchemaService(adapter, adapter.Dialect(), cfg.Schema, logger),
		completer,
		services.NewGuardedExecutor(adapter, logger),
		audit.NewSecurityAuditor(logger),
		services.PipelineConfig{
			Dialect:      adapter.Dialect(),
			DefaultTable: cfg.Prompt.DefaultTable,
			Tables:       cfg.Prompt.Tables,
			Glossary:     glossary,
			MaxRetries:   cfg.LLM.MaxRetries,
		},
		logger,
	)

	if *question != "" {
		if !answer(ctx, pipeline, *question, *asJSON) {
			os.Exit(1)
		}
		return
	}

	failed := false
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !answer(ctx, pipeline, line, *asJSON) {
			failed = true
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read stdin: %v\n", err)
		os.Exit(1)
	}
	if failed {
		os.Exit(1)
	}
}

// answer prints one envelope and reports whether it succeeded.
func answer(ctx context.Context, pipeline *services.QueryPipeline, question string, asJSON bool) bool {
	envelope := pipeline.Answer(ctx, question)
	ok := !envelope.Failed() && envelope.Results != nil && envelope.Results.Success()

	if asJSON {
		out, err := json.Marshal(envelope)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode response: %v\n", err)
			return false
		}
		fmt.Println(string(out))
		return ok
	}

	fmt.Printf("Q: %s\n", envelope.NaturalQuery)
	if envelope.GeneratedSQL != "" {
		fmt.Printf("SQL: %s\n", envelope.GeneratedSQL)
	}
	switch {
	case envelope.Failed():
		fmt.Printf("Error: %s\n", envelope.Error)
	case envelope.Results == nil:
	case envelope.Results.Kind == models.ResultKindRows:
		fmt.Print(models.RenderTable(envelope.Results.Columns, envelope.Results.Rows))
		fmt.Printf("(%d rows)\n", envelope.Results.RowCount())
	case envelope.Results.Kind == models.ResultKindAffected:
		fmt.Printf("%s (%d rows affected)\n", envelope.Results.Message, envelope.Results.AffectedRows)
	default:
		fmt.Printf("Error: %s\n", envelope.Results.Error)
	}
	fmt.Println()
	return ok
}
