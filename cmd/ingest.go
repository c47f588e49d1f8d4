package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quorra0/sage/internal/corpus"
)

// textExtensions lists file types ingested when walking a directory.
var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true,
	".rst": true, ".csv": true, ".json": true,
	".html": true, ".htm": true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Index documents into the knowledge base",
	Long: `Ingest reads the given files (or directories, recursively) and indexes
their content: text is chunked, embedded, and stored for retrieval, and
entities are extracted into the knowledge graph. Re-ingesting a file
replaces its previous chunks.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	docs, err := collectDocuments(args)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		cmd.Println("No ingestible documents found.")
		return nil
	}

	report, err := a.Pipeline.Run(cmd.Context(), docs)
	if err != nil {
		return err
	}

	if err := a.SaveGraph(); err != nil {
		return fmt.Errorf("saving knowledge graph: %w", err)
	}

	cmd.Printf("Ingested %d documents (%d chunks) in %s\n",
		report.Documents, report.Chunks, report.Elapsed.Round(time.Millisecond))
	for _, f := range report.Failures {
		cmd.PrintErrf("failed: %s: %v\n", f.DocumentID, f.Err)
	}
	if len(report.Failures) > 0 {
		return fmt.Errorf("%d documents failed", len(report.Failures))
	}
	return nil
}

// collectDocuments reads each path into a document. Directories are walked
// recursively, keeping only known text extensions.
func collectDocuments(paths []string) ([]corpus.Document, error) {
	var docs []corpus.Document
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		if !info.IsDir() {
			doc, err := readDocument(path)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !textExtensions[strings.ToLower(filepath.Ext(p))] {
				return nil
			}
			doc, err := readDocument(p)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %q: %w", path, err)
		}
	}
	return docs, nil
}

func readDocument(path string) (corpus.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return corpus.Document{}, fmt.Errorf("reading %q: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	return corpus.Document{
		ID:         abs,
		Origin:     corpus.OriginUpload,
		Text:       string(data),
		IngestedAt: time.Now().UTC(),
	}, nil
}
