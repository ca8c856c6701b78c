// Package evidence defines the evidence record shared by all providers,
// the provider capability contract, and the token-budget rules applied
// to provider output.
package evidence

import (
	"context"

	"ctxrank/internal/signal"
)

// ProviderType tags the source family an evidence item came from
type ProviderType string

const (
	// TypeDiff is the recent-changes provider
	TypeDiff ProviderType = "diff"
	// TypeLSP is the symbol definition/reference provider
	TypeLSP ProviderType = "lsp"
	// TypeSearch is the full-text search provider
	TypeSearch ProviderType = "search"
)

// ChangeType describes how a diffed file changed
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
)

// Evidence kinds recorded by the symbol provider.
const (
	KindDefinition = "definition"
	KindReference  = "reference"
)

// Metadata carries provider-specific annotations on an evidence item.
type Metadata struct {
	// ChangeType is set by the diff provider; renames report "modified"
	// with OldPath carrying the pre-rename path.
	ChangeType ChangeType `json:"changeType,omitempty"`
	OldPath    string     `json:"oldPath,omitempty"`

	// Kind distinguishes definition from reference sites (lsp provider).
	Kind string `json:"kind,omitempty"`

	// Symbol names the enclosing or matched declaration when known.
	Symbol string `json:"symbol,omitempty"`
}

// Evidence is one scored, bounded excerpt of repository content. Records
// are created fresh per query and owned by the orchestrator once a
// provider returns them; they are never mutated afterwards.
type Evidence struct {
	ID             string          `json:"id"`
	Provider       ProviderType    `json:"provider"`
	Path           string          `json:"path"`
	Range          [2]int          `json:"range"`
	Content        string          `json:"content"`
	Tokens         int             `json:"tokens"`
	BaseScore      float64         `json:"baseScore"`
	MatchedSignals []signal.Signal `json:"matchedSignals"`
	Metadata       Metadata        `json:"metadata"`
}

// QueryOptions bounds a single provider query. Zero values mean
// "no limit".
type QueryOptions struct {
	MaxResults      int
	MaxTokens       int
	IncludePatterns []string
	ExcludePatterns []string
	ContextLines    int
}

// Provider is the capability every evidence source implements. Providers
// are stateless apart from provider-local pointers (the diff provider's
// snapshot reference); Query must degrade to an empty result rather than
// fail the cycle wherever possible.
type Provider interface {
	Type() ProviderType
	Name() string
	BaseWeight() float64
	IsAvailable() bool
	Query(ctx context.Context, signals []signal.Signal, opts QueryOptions) ([]Evidence, error)
}
