// ABOUTME: Integration tests for ingest, query, and collections commands
// ABOUTME: Runs the full CLI against a Bolt-backed store in a temp directory

package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runCLI executes the root command with args and returns combined output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetErr(&output)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return output.String(), err
}

func setupCLIEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("VECTOR_DB", "bolt")
	t.Setenv("RAG_EMBEDDING_ENGINE", "local")
	t.Setenv("CHUNK_SIZE", "80")
	t.Setenv("CHUNK_OVERLAP", "10")
}

func writeTestDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test doc: %v", err)
	}
	return path
}

func TestIngestCmd_RequiresCollection(t *testing.T) {
	setupCLIEnv(t)

	path := writeTestDoc(t, "notes.md", "some content")
	_, err := runCLI(t, "ingest", path)
	if err == nil {
		t.Fatal("Expected error when --collection is missing")
	}
}

func TestIngestCmd_StoresDocument(t *testing.T) {
	setupCLIEnv(t)

	path := writeTestDoc(t, "animals.md",
		"The quick brown fox jumps over the lazy dog. Foxes are small wild canines found across the northern hemisphere.")

	output, err := runCLI(t, "ingest", "--collection", "animals", path)
	if err != nil {
		t.Fatalf("ingest error = %v", err)
	}
	if !strings.Contains(output, "Ingested animals.md into animals") {
		t.Errorf("Unexpected ingest output: %s", output)
	}

	output, err = runCLI(t, "collections", "exists", "animals")
	if err != nil {
		t.Fatalf("collections exists error = %v", err)
	}
	if !strings.Contains(output, "Collection animals exists") {
		t.Errorf("Unexpected exists output: %s", output)
	}
}

func TestIngestCmd_DefaultModeSkipsExisting(t *testing.T) {
	setupCLIEnv(t)

	path := writeTestDoc(t, "doc.md", "original content for the collection")
	if _, err := runCLI(t, "ingest", "--collection", "docs", path); err != nil {
		t.Fatalf("first ingest error = %v", err)
	}

	other := writeTestDoc(t, "other.md", "newer content for the same collection")
	output, err := runCLI(t, "ingest", "--collection", "docs", other)
	if err != nil {
		t.Fatalf("second ingest error = %v", err)
	}
	if !strings.Contains(output, "skipped") {
		t.Errorf("Expected skip notice, got: %s", output)
	}
}

func TestIngestCmd_DuplicateContentIsNonFatal(t *testing.T) {
	setupCLIEnv(t)

	path := writeTestDoc(t, "doc.md", "content that will be ingested twice")
	if _, err := runCLI(t, "ingest", "--collection", "docs", path); err != nil {
		t.Fatalf("first ingest error = %v", err)
	}

	output, err := runCLI(t, "ingest", "--collection", "docs", "--mode", "add", path)
	if err != nil {
		t.Fatalf("duplicate ingest should not fail, got: %v", err)
	}
	if !strings.Contains(output, "already indexed") {
		t.Errorf("Expected already-indexed notice, got: %s", output)
	}
}

func TestQueryCmd_FindsIngestedContent(t *testing.T) {
	setupCLIEnv(t)

	foxPath := writeTestDoc(t, "fox.md",
		"The quick brown fox jumps over the lazy dog. Foxes hunt rabbits at dusk.")
	financePath := writeTestDoc(t, "finance.md",
		"Quarterly revenue grew by twelve percent. Operating margin improved slightly.")

	if _, err := runCLI(t, "ingest", "--collection", "fox", foxPath); err != nil {
		t.Fatalf("ingest fox error = %v", err)
	}
	if _, err := runCLI(t, "ingest", "--collection", "finance", financePath); err != nil {
		t.Fatalf("ingest finance error = %v", err)
	}

	output, err := runCLI(t, "query", "--collections", "fox,finance", "quick brown fox")
	if err != nil {
		t.Fatalf("query error = %v", err)
	}
	if !strings.Contains(output, "fox.md") {
		t.Errorf("Expected fox.md in results, got:\n%s", output)
	}
}

func TestQueryCmd_NoResults(t *testing.T) {
	setupCLIEnv(t)

	output, err := runCLI(t, "query", "--collections", "missing", "anything at all")
	if err != nil {
		t.Fatalf("query error = %v", err)
	}
	if !strings.Contains(output, "No results found") {
		t.Errorf("Expected no-results notice, got: %s", output)
	}
}

func TestCollectionsCmd_DeleteAndReset(t *testing.T) {
	setupCLIEnv(t)

	path := writeTestDoc(t, "doc.md", "content to delete later")
	if _, err := runCLI(t, "ingest", "--collection", "docs", path); err != nil {
		t.Fatalf("ingest error = %v", err)
	}

	output, err := runCLI(t, "collections", "list")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(output, "docs") {
		t.Errorf("Expected docs in listing, got: %s", output)
	}

	output, err = runCLI(t, "collections", "delete", "docs")
	if err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if !strings.Contains(output, "Deleted collection docs") {
		t.Errorf("Unexpected delete output: %s", output)
	}

	output, err = runCLI(t, "collections", "exists", "docs")
	if err != nil {
		t.Fatalf("exists error = %v", err)
	}
	if !strings.Contains(output, "does not exist") {
		t.Errorf("Expected missing collection, got: %s", output)
	}

	if _, err := runCLI(t, "collections", "reset"); err == nil {
		t.Error("Expected reset without --force to fail")
	}
	if _, err := runCLI(t, "collections", "reset", "--force"); err != nil {
		t.Errorf("reset --force error = %v", err)
	}
}
