// ABOUTME: Benchmark runner - ingests scenario corpora and evaluates retrieval
// ABOUTME: Wires a Bolt store, local encoder, and retriever per scenario for isolation

package ragas

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/omni-webui/omni-webui/internal/embeddings"
	"github.com/omni-webui/omni-webui/internal/ingest"
	"github.com/omni-webui/omni-webui/internal/models"
	"github.com/omni-webui/omni-webui/internal/rerank"
	"github.com/omni-webui/omni-webui/internal/retrieval"
	"github.com/omni-webui/omni-webui/internal/vector/bolt"
)

const (
	benchmarkDimension    = 256
	benchmarkChunkSize    = 400
	benchmarkChunkOverlap = 40
)

// BenchmarkRunner executes retrieval benchmark scenarios
type BenchmarkRunner struct {
	dataDir string
	hybrid  bool
	verbose bool
	metrics *MetricsCalculator
}

// NewBenchmarkRunner creates a runner that stores scenario data under dataDir
func NewBenchmarkRunner(dataDir string, hybrid, verbose bool) *BenchmarkRunner {
	return &BenchmarkRunner{
		dataDir: dataDir,
		hybrid:  hybrid,
		verbose: verbose,
		metrics: NewMetricsCalculator(),
	}
}

// RunAll executes every scenario and returns their results
func (r *BenchmarkRunner) RunAll(ctx context.Context) []ScenarioResult {
	scenarios := AllScenarios()
	results := make([]ScenarioResult, 0, len(scenarios))
	for _, scenario := range scenarios {
		result, err := r.RunScenario(ctx, scenario)
		if err != nil {
			result = ScenarioResult{
				ScenarioID:   scenario.ID,
				ScenarioName: scenario.Name,
				Status:       "ERROR",
				ErrorMessage: err.Error(),
			}
		}
		if r.verbose {
			log.Printf("[%s] %s: %s (recall=%.2f precision=%.2f)",
				result.ScenarioID, result.ScenarioName, result.Status,
				result.ContextRecallScore, result.ContextPrecisionScore)
		}
		results = append(results, result)
	}
	return results
}

// RunScenario ingests the scenario corpus into a fresh store and evaluates
// the retrieval for its query.
func (r *BenchmarkRunner) RunScenario(ctx context.Context, scenario Scenario) (ScenarioResult, error) {
	store, err := bolt.Open(filepath.Join(r.dataDir, "bench-"+scenario.ID+".db"))
	if err != nil {
		return ScenarioResult{}, fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	encoder := embeddings.NewLocalEncoder(benchmarkDimension)
	splitter, err := ingest.NewCharacterSplitter(benchmarkChunkSize, benchmarkChunkOverlap)
	if err != nil {
		return ScenarioResult{}, fmt.Errorf("building splitter: %w", err)
	}

	embedCfg := models.EmbeddingConfig{
		Engine:    models.EngineLocal,
		Model:     "hashed",
		BatchSize: embeddings.DefaultBatchSize,
	}
	pipeline := ingest.New(store, encoder, splitter, embedCfg)

	for _, doc := range scenario.Documents {
		_, err := pipeline.Process(ctx, ingest.Request{
			Collection: doc.Collection,
			Name:       doc.Name,
			Content:    doc.Content,
			Mode:       ingest.ModeAdd,
		})
		if err != nil {
			return ScenarioResult{}, fmt.Errorf("ingesting %s: %w", doc.Name, err)
		}
	}

	var reranker rerank.Reranker
	if r.hybrid {
		reranker = rerank.NewLateInteraction(encoder)
	}
	retriever := retrieval.New(store, encoder, reranker, retrieval.Options{
		TopK: scenario.TopK,
	})

	passages, err := retriever.QueryCollections(ctx, scenario.Collections, scenario.Query, scenario.TopK)
	if err != nil {
		return ScenarioResult{}, fmt.Errorf("querying: %w", err)
	}

	retrievedContext := make([]string, 0, len(passages))
	for _, p := range passages {
		retrievedContext = append(retrievedContext, p.Text)
	}

	return r.metrics.EvaluateScenario(scenario, retrievedContext), nil
}

// Summarize aggregates scenario results into a pass count and mean score
func Summarize(results []ScenarioResult) (passed int, meanScore float64) {
	if len(results) == 0 {
		return 0, 0
	}
	var total float64
	for _, result := range results {
		if result.Status == "PASS" {
			passed++
		}
		total += result.OverallScore
	}
	return passed, total / float64(len(results))
}
