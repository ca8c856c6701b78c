// Package scip serves symbol definitions and references out of a SCIP
// index file, filling the lsp evidence slot.
package scip

import (
	"fmt"
	"os"
	"strings"
	"time"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"ctxrank/internal/errors"
)

// SymbolRoleDefinition is the SCIP definition role bit.
const SymbolRoleDefinition int32 = 1

// Occurrence is one symbol mention in a document. Lines are 0-based as on
// the wire; the provider converts to 1-based evidence ranges.
type Occurrence struct {
	Symbol     string
	Name       string
	StartLine  int
	EndLine    int
	Definition bool
}

// Document is one indexed source file.
type Document struct {
	Path        string
	Language    string
	Occurrences []Occurrence
}

// Index is a loaded SCIP index, reduced to what evidence queries need.
type Index struct {
	Documents     []Document
	IndexedCommit string
	LoadedAt      time.Time
}

// Load reads and parses a SCIP index file.
func Load(path string) (*Index, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.NewCtxError(
			errors.IndexMissing,
			fmt.Sprintf("SCIP index not found at %s", path),
			err,
			errors.GetSuggestedFixes(errors.IndexMissing),
		)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewCtxError(
			errors.InternalError,
			fmt.Sprintf("failed to read SCIP index from %s", path),
			err,
			nil,
		)
	}

	var raw scippb.Index
	if err := proto.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewCtxError(
			errors.InternalError,
			fmt.Sprintf("failed to parse SCIP index from %s", path),
			err,
			[]errors.FixAction{{
				Type:        errors.RunCommand,
				Command:     "scip print --index=" + path,
				Safe:        true,
				Description: "Verify the SCIP index is valid",
			}},
		)
	}

	idx := &Index{LoadedAt: time.Now()}

	for _, doc := range raw.Documents {
		names := make(map[string]string, len(doc.Symbols))
		for _, sym := range doc.Symbols {
			if sym.DisplayName != "" {
				names[sym.Symbol] = sym.DisplayName
			}
		}

		d := Document{Path: doc.RelativePath, Language: doc.Language}
		for _, occ := range doc.Occurrences {
			if occ.Symbol == "" || len(occ.Range) < 3 {
				continue
			}
			name := names[occ.Symbol]
			if name == "" {
				name = SymbolName(occ.Symbol)
			}
			start := int(occ.Range[0])
			end := start
			if len(occ.Range) >= 4 {
				end = int(occ.Range[2])
			}
			d.Occurrences = append(d.Occurrences, Occurrence{
				Symbol:     occ.Symbol,
				Name:       name,
				StartLine:  start,
				EndLine:    end,
				Definition: occ.SymbolRoles&SymbolRoleDefinition != 0,
			})
		}
		idx.Documents = append(idx.Documents, d)
	}

	if raw.Metadata != nil && raw.Metadata.ToolInfo != nil {
		idx.IndexedCommit = commitFromToolInfo(raw.Metadata.ToolInfo)
	}

	return idx, nil
}

// Stale reports whether the index predates the given HEAD commit. An index
// with no recorded commit is always considered stale.
func (i *Index) Stale(head string) bool {
	if i.IndexedCommit == "" {
		return true
	}
	return i.IndexedCommit != head
}

// SymbolName extracts a short display name from a raw SCIP symbol ID.
// Format: scheme ' ' package ' ' descriptor, where the descriptor ends in
// "Name#", "Name()." or "Name.".
func SymbolName(symbolID string) string {
	parts := strings.Fields(symbolID)
	for i := len(parts) - 1; i >= 0; i-- {
		part := parts[i]
		switch {
		case strings.HasSuffix(part, "()."):
			return lastSegment(strings.TrimSuffix(part, "()."))
		case strings.HasSuffix(part, "#"):
			return lastSegment(strings.TrimSuffix(part, "#"))
		case strings.HasSuffix(part, "."):
			return lastSegment(strings.TrimSuffix(part, "."))
		}
	}
	if len(parts) > 0 {
		return parts[len(parts)-1]
	}
	return symbolID
}

// lastSegment strips any leading path or container qualifiers.
func lastSegment(s string) string {
	if i := strings.LastIndexAny(s, "./#"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// commitFromToolInfo digs the indexed commit out of indexer arguments.
// scip-go records it as --module-version; other indexers use --commit.
func commitFromToolInfo(info *scippb.ToolInfo) string {
	for i, arg := range info.Arguments {
		for _, prefix := range []string{"--commit=", "--git-commit=", "--module-version="} {
			if strings.HasPrefix(arg, prefix) {
				return strings.TrimPrefix(arg, prefix)
			}
		}
		if arg == "-c" && i+1 < len(info.Arguments) {
			return info.Arguments[i+1]
		}
	}
	if looksLikeCommit(info.Version) {
		return info.Version
	}
	return ""
}

func looksLikeCommit(s string) bool {
	if len(s) < 7 || len(s) > 40 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
