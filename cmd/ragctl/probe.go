package main

import (
	"context"
	"fmt"
	"time"

	"ai-docqa-be/internal/bootstrap"
	"ai-docqa-be/internal/config"
	"ai-docqa-be/internal/entity"
	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/llm/ollama"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var probeTexts = []string{
	"This is a short test",
	"This is a longer test with more words to see if length affects embedding",
	"Another test to verify embedding dimensions",
}

type check struct {
	name string
	run  func(ctx context.Context) (string, error)
}

func probeCMD() *cobra.Command {
	var timeout time.Duration

	var probe = &cobra.Command{
		Use:   "probe",
		Short: "Check the model server, embeddings and the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			return withContainer(ctx, func(cfg *config.Config, c *bootstrap.Container) error {
				checks := probeChecks(cfg, c)
				failed := 0
				for _, chk := range checks {
					detail, err := chk.run(ctx)
					if err != nil {
						failed++
						color.Red("FAIL  %-22s %v", chk.name, err)
						continue
					}
					color.Green("PASS  %-22s %s", chk.name, detail)
				}

				if failed > 0 {
					return fmt.Errorf("%d of %d checks failed", failed, len(checks))
				}
				color.Cyan("All connection tests passed")
				return nil
			})
		},
	}
	probe.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall deadline")

	return probe
}

func probeChecks(cfg *config.Config, c *bootstrap.Container) []check {
	models := ollama.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.LLMModel, 10*time.Second)
	// The raw provider, so failures surface instead of becoming zero vectors.
	embedder := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel, cfg.Ai.EmbeddingTimeout)

	return []check{
		{"model server", func(ctx context.Context) (string, error) {
			names, err := models.Models(ctx)
			if err != nil {
				return "", err
			}
			if len(names) == 0 {
				return "", fmt.Errorf("connected, but no models are installed")
			}
			return fmt.Sprintf("models: %v", names), nil
		}},
		{"embedding", func(ctx context.Context) (string, error) {
			vec, err := embedder.Generate(ctx, "This is a test query")
			if err != nil {
				return "", err
			}
			if len(vec) == 0 {
				return "", fmt.Errorf("empty embedding")
			}
			return fmt.Sprintf("%d dimensions", len(vec)), nil
		}},
		{"embedding dimensions", func(ctx context.Context) (string, error) {
			dims := map[int]bool{}
			for _, text := range probeTexts {
				vec, err := embedder.Generate(ctx, text)
				if err != nil {
					return "", err
				}
				dims[len(vec)] = true
			}
			if len(dims) != 1 {
				return "", fmt.Errorf("inconsistent dimensions: %v", dims)
			}
			for d := range dims {
				return fmt.Sprintf("consistent at %d", d), nil
			}
			return "", nil
		}},
		{"vector store", func(ctx context.Context) (string, error) {
			return vectorStoreRoundTrip(ctx, c)
		}},
	}
}

// vectorStoreRoundTrip stores one document in a scratch collection, reads it back and removes it.
func vectorStoreRoundTrip(ctx context.Context, c *bootstrap.Container) (string, error) {
	scratch := "ragctl_probe_" + uuid.New().String()
	coll, err := c.Collections.Setup(ctx, scratch)
	if err != nil {
		return "", err
	}
	defer c.Collections.Delete(context.WithoutCancel(ctx), scratch)

	text := "This is a test document for the vector store"
	if err := coll.Upsert(ctx, &entity.ChunkRecord{Id: "test_document", Text: text}); err != nil {
		return "", err
	}
	matches := coll.Query(ctx, "test", 1)
	if len(matches) == 0 {
		return "", fmt.Errorf("could not retrieve the stored document")
	}
	return fmt.Sprintf("%s round trip, distance %.4f", c.Collections.Backend(), matches[0].Distance), nil
}
