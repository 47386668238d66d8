package api

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/semsearchd/internal/apperr"
)

// envelope is the transport-level response shape every tool call returns:
// {success, error, detail} on failure, {success, data} on success.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Detail  string `json:"detail,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func okResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(envelope{Success: true, Data: v})
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}

// errResult renders err as a {success: false, error, detail} envelope using
// apperr's error-kind taxonomy, never surfacing a transport-level Go error
// for a classified failure so callers always receive structured JSON.
func errResult(err error) (*mcp.CallToolResult, error) {
	kind, ok := apperr.KindOf(err)
	if !ok {
		kind = apperr.IOError
	}
	b, marshalErr := json.Marshal(envelope{Success: false, Error: string(kind), Detail: err.Error()})
	if marshalErr != nil {
		return nil, marshalErr
	}
	return mcp.NewToolResultText(string(b)), nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string, fallback int) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return fallback
}

func floatArg(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}

func boolArg(args map[string]any, key string, fallback bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return fallback
}

func stringsArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// RegisterTools registers every operation in Service as an MCP tool,
// grounded on the prior AddCortex*Tool functions
// (internal/mcp/graph_tool.go, internal/files/mcp_handler.go): one
// mcp.NewTool declaration plus one argsMap-parsing closure per operation.
func RegisterTools(s *server.MCPServer, svc *Service) {
	s.AddTool(
		mcp.NewTool("semantic_search",
			mcp.WithDescription("Search the indexed corpus by meaning, with optional folder/tag/source filters."),
			mcp.WithString("query", mcp.Required()),
			mcp.WithNumber("n_results"),
			mcp.WithString("folder"),
			mcp.WithString("source"),
			mcp.WithArray("tags"),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := req.Params.Arguments.(map[string]any)
			hits, err := svc.SemanticSearch(ctx, stringArg(args, "query"), intArg(args, "n_results", 10),
				stringArg(args, "folder"), stringArg(args, "source"), stringsArg(args, "tags"))
			if err != nil {
				return errResult(err)
			}
			return okResult(hits)
		},
	)

	s.AddTool(
		mcp.NewTool("reindex_vault",
			mcp.WithDescription("Reindex every configured source, skipping unchanged files unless force is set."),
			mcp.WithBoolean("force"),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := req.Params.Arguments.(map[string]any)
			stats, err := svc.ReindexVault(ctx, boolArg(args, "force", false))
			if err != nil {
				return errResult(err)
			}
			return okResult(stats)
		},
	)

	s.AddTool(
		mcp.NewTool("index_note",
			mcp.WithDescription("Reindex a single file by path."),
			mcp.WithString("path", mcp.Required()),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := req.Params.Arguments.(map[string]any)
			result, err := svc.IndexNote(ctx, stringArg(args, "path"))
			if err != nil {
				return errResult(err)
			}
			return okResult(result)
		},
	)

	s.AddTool(
		mcp.NewTool("get_index_stats",
			mcp.WithDescription("Report chunk count, file count, and embedding model for the vector repository."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			stats, err := svc.GetIndexStats(ctx)
			if err != nil {
				return errResult(err)
			}
			return okResult(stats)
		},
	)

	s.AddTool(
		mcp.NewTool("suggest_links",
			mcp.WithDescription("Suggest outbound links for a file based on semantic similarity to other files."),
			mcp.WithString("path", mcp.Required()),
			mcp.WithNumber("n"),
			mcp.WithNumber("min_similarity"),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := req.Params.Arguments.(map[string]any)
			candidates, err := svc.SuggestLinks(ctx, stringArg(args, "path"), intArg(args, "n", 5), floatArg(args, "min_similarity", 0))
			if err != nil {
				return errResult(err)
			}
			return okResult(candidates)
		},
	)

	s.AddTool(
		mcp.NewTool("read_note",
			mcp.WithDescription("Read a note's content, tags, and outbound links."),
			mcp.WithString("path", mcp.Required()),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := req.Params.Arguments.(map[string]any)
			result, err := svc.ReadNote(stringArg(args, "path"))
			if err != nil {
				return errResult(err)
			}
			return okResult(result)
		},
	)

	s.AddTool(
		mcp.NewTool("write_note",
			mcp.WithDescription("Write a note's content, creating parent directories if requested, then reindex it."),
			mcp.WithString("path", mcp.Required()),
			mcp.WithString("content", mcp.Required()),
			mcp.WithBoolean("create_dirs"),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := req.Params.Arguments.(map[string]any)
			result, err := svc.WriteNote(ctx, stringArg(args, "path"), stringArg(args, "content"), boolArg(args, "create_dirs", false))
			if err != nil {
				return errResult(err)
			}
			return okResult(result)
		},
	)

	s.AddTool(
		mcp.NewTool("append_to_note",
			mcp.WithDescription("Append content to a note and reindex it."),
			mcp.WithString("path", mcp.Required()),
			mcp.WithString("content", mcp.Required()),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := req.Params.Arguments.(map[string]any)
			result, err := svc.AppendToNote(ctx, stringArg(args, "path"), stringArg(args, "content"))
			if err != nil {
				return errResult(err)
			}
			return okResult(result)
		},
	)

	s.AddTool(
		mcp.NewTool("delete_note",
			mcp.WithDescription("Remove a note from the repository, then from disk."),
			mcp.WithString("path", mcp.Required()),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := req.Params.Arguments.(map[string]any)
			result, err := svc.DeleteNote(ctx, stringArg(args, "path"))
			if err != nil {
				return errResult(err)
			}
			return okResult(result)
		},
	)

	s.AddTool(
		mcp.NewTool("search_notes",
			mcp.WithDescription("Glob-match file paths across every configured source."),
			mcp.WithString("pattern", mcp.Required()),
			mcp.WithString("root"),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := req.Params.Arguments.(map[string]any)
			matches, err := svc.SearchNotes(stringArg(args, "pattern"), stringArg(args, "root"))
			if err != nil {
				return errResult(err)
			}
			return okResult(matches)
		},
	)

	s.AddTool(
		mcp.NewTool("get_vault_structure",
			mcp.WithDescription("Return the directory tree of every configured source."),
			mcp.WithString("root"),
			mcp.WithNumber("depth"),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := req.Params.Arguments.(map[string]any)
			tree, err := svc.GetVaultStructure(stringArg(args, "root"), intArg(args, "depth", 0))
			if err != nil {
				return errResult(err)
			}
			return okResult(tree)
		},
	)

	s.AddTool(
		mcp.NewTool("get_orphaned_notes",
			mcp.WithDescription("List files that no other file links to."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			orphans, err := svc.GetOrphanedNotes()
			if err != nil {
				return errResult(err)
			}
			return okResult(orphans)
		},
	)

	s.AddTool(
		mcp.NewTool("get_most_linked_notes",
			mcp.WithDescription("Rank files by inbound link count, descending."),
			mcp.WithNumber("n"),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := req.Params.Arguments.(map[string]any)
			counts, err := svc.GetMostLinkedNotes(intArg(args, "n", 20))
			if err != nil {
				return errResult(err)
			}
			return okResult(counts)
		},
	)

	s.AddTool(
		mcp.NewTool("get_duplicate_content",
			mcp.WithDescription("Find pairs of files whose content centroids are near-identical."),
			mcp.WithNumber("threshold"),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := req.Params.Arguments.(map[string]any)
			pairs, err := svc.GetDuplicateContent(ctx, floatArg(args, "threshold", 0))
			if err != nil {
				return errResult(err)
			}
			return okResult(pairs)
		},
	)
}
