package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sbstnppl/branch-engine/internal/services"
	"github.com/sbstnppl/branch-engine/pkg/branch"
	"github.com/sbstnppl/branch-engine/pkg/prompts"
)

// oracleKeyResolver builds the post-processor's bounded clarification
// callback: one backend-model round trip that either names a candidate key
// or declares the unknown key a new entity. Any malformed answer is
// treated as create-new, never retried.
func oracleKeyResolver(oracle services.Oracle, logger *slog.Logger) branch.KeyResolver {
	return func(ctx context.Context, unknown string, candidates []string) (string, bool, error) {
		reply, model, err := oracle.GenerateStructured(ctx, prompts.ClarifyKeyMessages(unknown, candidates))
		if err != nil {
			return "", false, fmt.Errorf("key clarification failed: %w", err)
		}

		answer := strings.ToLower(strings.TrimSpace(reply))
		if answer == "new" {
			return "", true, nil
		}
		for _, c := range candidates {
			if answer == c {
				return c, false, nil
			}
		}

		logger.Warn("Key clarification returned no usable answer",
			"unknown", unknown, "answer", truncate(reply, 80), "model", model)
		return "", true, nil
	}
}
