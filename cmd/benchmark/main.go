// ABOUTME: Command-line benchmark runner for RAGAS retrieval tests
// ABOUTME: Executes retrieval benchmarks and outputs JSON results

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/omni-webui/omni-webui/benchmarks/ragas"
)

func main() {
	// Command-line flags
	scenarioID := flag.String("scenario", "", "Run specific scenario (1a, 2a, 3a). If empty, runs all scenarios.")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	hybrid := flag.Bool("hybrid", false, "Enable MaxSim reranking during benchmarks")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	dataDir, err := os.MkdirTemp("", "ragas-bench-")
	if err != nil {
		log.Fatalf("Failed to create benchmark data dir: %v", err)
	}
	defer os.RemoveAll(dataDir)

	// Print header
	fmt.Println("========================================")
	fmt.Println("Retrieval RAGAS Benchmarks")
	fmt.Println("========================================")
	fmt.Println()

	runner := ragas.NewBenchmarkRunner(dataDir, *hybrid, *verbose)
	ctx := context.Background()

	var results []ragas.ScenarioResult

	if *scenarioID == "" {
		fmt.Println("Running all retrieval benchmark scenarios...")
		fmt.Println()
		results = runner.RunAll(ctx)
	} else {
		scenario, ok := findScenario(*scenarioID)
		if !ok {
			log.Fatalf("Unknown scenario ID: %s (valid options: 1a, 2a, 3a)", *scenarioID)
		}

		fmt.Printf("Running scenario: %s\n\n", scenario.Name)

		result, err := runner.RunScenario(ctx, scenario)
		if err != nil {
			log.Fatalf("Scenario failed: %v", err)
		}
		results = []ragas.ScenarioResult{result}
	}

	// Print summary
	passed, meanScore := ragas.Summarize(results)
	for _, result := range results {
		fmt.Printf("[%s] %-28s %s  (recall=%.2f precision=%.2f)\n",
			result.ScenarioID, result.ScenarioName, result.Status,
			result.ContextRecallScore, result.ContextPrecisionScore)
	}
	fmt.Printf("\n%d/%d passed, mean score %.2f\n", passed, len(results), meanScore)

	// Write JSON results
	jsonData, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal results: %v", err)
	}
	if err := os.WriteFile(*outputPath, jsonData, 0o644); err != nil {
		log.Fatalf("Failed to write results: %v", err)
	}
	fmt.Printf("Results written to %s\n", *outputPath)

	if passed != len(results) {
		os.Exit(1)
	}
}

func findScenario(id string) (ragas.Scenario, bool) {
	for _, scenario := range ragas.AllScenarios() {
		if strings.EqualFold(scenario.ID, id) {
			return scenario, true
		}
	}
	return ragas.Scenario{}, false
}
