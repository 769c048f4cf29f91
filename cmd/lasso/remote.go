package main

import (
	"fmt"
	"os"

	"github.com/steveyegge/lasso/internal/enhance"
	"github.com/steveyegge/lasso/internal/remote"
	"github.com/steveyegge/lasso/internal/remote/azuredevops"
	"github.com/steveyegge/lasso/internal/ui"
)

// newADOClient builds the Azure DevOps client, refusing to proceed when the
// remote settings are incomplete.
func newADOClient() *azuredevops.Client {
	if issues := cfg.ValidateRemote(); len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "Remote store is not configured:")
		fmt.Fprint(os.Stderr, ui.RenderIssues(issues))
		os.Exit(1)
	}
	return azuredevops.NewClient(cfg.Organization(), cfg.Project(), cfg.PAT())
}

// newGenerator builds the model-backed content generator for enhance actions.
func newGenerator() remote.ContentGenerator {
	if issues := cfg.ValidateEnhance(); len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "Enhance actions are not configured:")
		fmt.Fprint(os.Stderr, ui.RenderIssues(issues))
		os.Exit(1)
	}
	g, err := enhance.NewGenerator(cfg.AnthropicAPIKey(), cfg.Model())
	if err != nil {
		FatalError("%v", err)
	}
	return g
}
