package services

import (
	"context"

	"github.com/sbstnppl/branch-engine/pkg/chat"
)

// Oracle is the narrow interface to the generative text backend. Its
// output is untrusted: callers must treat every response as potentially
// malformed, inconsistent, or fabricated. All trust decisions live in the
// post-processor and validator layers, never at the call site.
type Oracle interface {
	// InitModel prepares the backing model on startup.
	InitModel(ctx context.Context, modelName string) error

	// Generate produces free text with the narrative model at its
	// creative default temperature. Branch generation runs here.
	Generate(ctx context.Context, messages []chat.Message) (string, error)

	// GenerateWithTemperature produces free text with the narrative
	// model at a caller-chosen temperature. Refinement passes cool the
	// model below the branch generator's setting because format
	// compliance matters more than variety there.
	GenerateWithTemperature(ctx context.Context, messages []chat.Message, temperature float64) (string, error)

	// GenerateStructured produces text that is expected (but not
	// guaranteed) to be a single JSON object. It runs on the backend
	// model at temperature zero and returns the model actually used.
	GenerateStructured(ctx context.Context, messages []chat.Message) (string, string, error)
}
