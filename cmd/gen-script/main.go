// Command gen-script writes a small demo script repository to disk, one
// markdown document per state. Useful as a starting point for new
// scripts and as a fixture for the directory loader.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/loam"

	loamAdapter "github.com/aretw0/parley/pkg/adapters/loam"
)

func main() {
	targetDir := "examples/support"
	if len(os.Args) > 1 {
		targetDir = os.Args[1]
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		panic(err)
	}

	fmt.Printf("Generating demo script in: %s\n", targetDir)

	// No versioning, pure file generation.
	repo, err := loam.Init(targetDir, loam.WithVersioning(false))
	if err != nil {
		panic(err)
	}

	typedRepo := loam.NewTypedRepository[loamAdapter.StateMetadata](repo)
	ctx := context.TODO()

	// 1. Shared tag table
	err = typedRepo.Save(ctx, &loam.DocumentModel[loamAdapter.StateMetadata]{
		ID: "tags",
		Data: loamAdapter.StateMetadata{
			Tags: map[string]any{
				"hello":   "greeting",
				"hi":      "greeting",
				"broken":  []any{"problem"},
				"crashed": []any{"problem", "urgent"},
				"thanks":  "gratitude",
			},
		},
	})
	check(err)

	// 2. Default state
	err = typedRepo.Save(ctx, &loam.DocumentModel[loamAdapter.StateMetadata]{
		ID:      "waiting",
		Content: "Hello! Tell me what is going on.",
		Data: loamAdapter.StateMetadata{
			Default: true,
			Rules: []any{
				map[string]any{"when": "problem", "go_to": "diagnose"},
				map[string]any{"when": "greeting", "go_to": "diagnose"},
			},
			Else: map[string]any{"finish": "confused"},
		},
	})
	check(err)

	// 3. Diagnose (urgent twice escalates)
	err = typedRepo.Save(ctx, &loam.DocumentModel[loamAdapter.StateMetadata]{
		ID:      "diagnose",
		Content: "What seems to be broken?",
		Data: loamAdapter.StateMetadata{
			Rules: []any{
				map[string]any{"when": "urgent", "min_count": 2, "finish": "escalated"},
				map[string]any{"when": "problem", "finish": "solved"},
				map[string]any{"when": "gratitude", "finish": "solved"},
			},
			Else: map[string]any{"finish": "confused"},
		},
	})
	check(err)

	// 4. Parting lines
	err = typedRepo.Save(ctx, &loam.DocumentModel[loamAdapter.StateMetadata]{
		ID:      "finish/confused",
		Content: "Sorry, I did not follow that. Let us start over.",
	})
	check(err)

	err = typedRepo.Save(ctx, &loam.DocumentModel[loamAdapter.StateMetadata]{
		ID:      "finish/solved",
		Content: "Glad we sorted it out!",
	})
	check(err)

	err = typedRepo.Save(ctx, &loam.DocumentModel[loamAdapter.StateMetadata]{
		ID:      "finish/escalated",
		Content: "This sounds serious, I am escalating it to a human right away.",
	})
	check(err)

	fmt.Println("Done. Verify contents in", targetDir)
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}
