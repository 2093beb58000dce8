package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/paperqa/internal/models"
	"github.com/xhad/paperqa/pkg/answer"
	"github.com/xhad/paperqa/pkg/chunker"
	cfgPkg "github.com/xhad/paperqa/pkg/config"
	"github.com/xhad/paperqa/pkg/embedder"
	"github.com/xhad/paperqa/pkg/extractor"
	"github.com/xhad/paperqa/pkg/llm"
	"github.com/xhad/paperqa/pkg/pipeline"
	"github.com/xhad/paperqa/pkg/store"
	"github.com/xhad/paperqa/server"
)

type flags struct {
	configPath string
	ingestPath string
	question   string
	documentID string
	topK       int
}

func main() {
	godotenv.Load()

	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.StringVar(&f.ingestPath, "ingest", "", "PDF file to ingest, then exit")
	flag.StringVar(&f.question, "ask", "", "Question to ask, then exit (requires -doc)")
	flag.StringVar(&f.documentID, "doc", "", "Document identifier for -ask")
	flag.IntVar(&f.topK, "top-k", 0, "Number of chunks to retrieve for -ask")
	flag.Parse()

	if err := run(f); err != nil {
		log.Fatal(err)
	}
}

func run(f flags) error {
	cfg, err := cfgPkg.LoadConfig(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config error: %s", e.Error())
		}
		return fmt.Errorf("invalid configuration")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	pdfExtractor := extractor.New()

	tokenChunker, err := chunker.NewWithConfig(chunker.ChunkerConfig{
		ChunkSize:    cfg.Chunker.ChunkSize,
		ChunkOverlap: cfg.Chunker.ChunkOverlap,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chunker: %v", err)
	}

	cache, err := embedder.NewPGCache(embedder.PGCacheConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.CacheTable,
		VectorDim:  cfg.Embedding.Dimension,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedding cache: %v", err)
	}
	defer cache.Close()

	emb, err := embedder.NewWithConfig(embedder.EmbedderConfig{
		Model:         cfg.Embedding.Model,
		BaseURL:       cfg.Embedding.BaseURL,
		MaxConcurrent: cfg.Embedding.MaxConcurrent,
	}, cache)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	vectorStore, err := store.NewWithConfig(store.VectorStoreConfig{
		ConnString:  cfg.Database.URL,
		TableName:   cfg.Database.TableName,
		VectorDim:   cfg.Database.VectorDim,
		SearchLimit: cfg.Retrieval.TopK,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		BaseURL:     cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	engine := answer.NewWithConfig(answer.EngineConfig{
		SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
	}, chatEngine)

	rag := pipeline.NewWithConfig(pipeline.PipelineConfig{
		MaxPDFSizeMB:   cfg.Server.MaxPDFSizeMB,
		TopK:           cfg.Retrieval.TopK,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second,
	}, pdfExtractor, tokenChunker, emb, vectorStore, engine, logger)

	if f.ingestPath != "" {
		return ingest(rag, f.ingestPath)
	}
	if f.question != "" {
		return ask(rag, f)
	}

	return serve(rag, logger, cfg)
}

func ingest(rag *pipeline.Pipeline, path string) error {
	spinner := getSpinner(" Indexing document...")
	result, err := rag.Upload(context.Background(), path)
	spinner.Finish()

	if err != nil {
		return err
	}

	if result.Status == models.StatusAlreadyIndexed {
		color.Yellow("✓ Document already indexed: %s\n", result.DocumentID)
	} else {
		color.Green("✓ Document indexed: %s\n", result.DocumentID)
	}
	return nil
}

func ask(rag *pipeline.Pipeline, f flags) error {
	if f.documentID == "" {
		return fmt.Errorf("-ask requires -doc")
	}

	spinner := getSpinner(" Searching document...")
	result, err := rag.Query(context.Background(), models.QueryRequest{
		DocumentID: f.documentID,
		Question:   f.question,
		TopK:       f.topK,
	})
	spinner.Finish()

	if err != nil {
		return err
	}

	assistantPrompt := color.New(color.FgCyan).PrintfFunc()
	assistantPrompt("\nAnswer: %s\n", result.Text)

	if len(result.Citations) > 0 {
		color.Blue("\nCitations:")
		for _, c := range result.Citations {
			fmt.Printf("  [%s, p.%d] %s\n", c.Section, c.Page, c.TextSnippet)
		}
	}
	return nil
}

func serve(rag *pipeline.Pipeline, logger *slog.Logger, cfg *cfgPkg.Config) error {
	srv := server.NewServer(rag, logger, server.ServerConfig{
		MaxPDFSizeMB: cfg.Server.MaxPDFSizeMB,
	})

	logger.Info("starting server", "port", cfg.Server.Port)
	if err := http.ListenAndServe(":"+cfg.Server.Port, srv); err != nil {
		return fmt.Errorf("server failed: %v", err)
	}
	return nil
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
