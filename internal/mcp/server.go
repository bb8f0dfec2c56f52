// Package mcp exposes the index service as line-delimited JSON-RPC 2.0 over
// stdio. Tools are addressed directly by method name; the MCP handshake
// methods (initialize, tools/list, tools/call) are also supported.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"deeprepo/internal/core/config"
	domerr "deeprepo/internal/core/errors"
	"deeprepo/internal/core/ports"
	"deeprepo/internal/shared/util"
)

const (
	protocolVersion = "2025-06-18"
	serverName      = "deeprepo"
	serverVersion   = "0.1.0"
)

const (
	codeParseError     = -32700
	codeInvalidParams  = -32602
	codeMethodNotFound = -32601
	codeRateLimited    = -32005
	codeNotFound       = -32004
	codeInternal       = -32000
)

type Server struct {
	svc     ports.IndexService
	limiter *util.Limiter
	logger  *slog.Logger
	in      io.Reader
	out     io.Writer
}

// NewServer wires the service behind the transport. in/out default to the
// process stdio when nil; tests inject pipes.
func NewServer(svc ports.IndexService, cfg config.MCP, logger *slog.Logger, in io.Reader, out io.Writer) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *util.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = util.NewLimiter(float64(cfg.RequestsPerMinute)/60.0, cfg.Burst)
	}
	return &Server{svc: svc, limiter: limiter, logger: logger, in: in, out: out}
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Serve reads requests until EOF or cancellation. Malformed lines produce a
// parse-error response and the loop continues; only transport failures end
// the session.
func (s *Server) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	writer := bufio.NewWriter(s.out)
	encoder := json.NewEncoder(writer)

	respond := func(resp rpcResponse) error {
		resp.JSONRPC = "2.0"
		if err := encoder.Encode(resp); err != nil {
			return err
		}
		return writer.Flush()
	}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			if werr := respond(rpcResponse{Error: &rpcError{Code: codeParseError, Message: "parse error"}}); werr != nil {
				return werr
			}
			continue
		}

		if req.Method == "notifications/initialized" {
			continue
		}

		if s.limiter != nil && !s.limiter.Allow(1) {
			if err := respond(rpcResponse{ID: req.ID, Error: &rpcError{Code: codeRateLimited, Message: "rate limit exceeded"}}); err != nil {
				return err
			}
			continue
		}

		resp := s.dispatch(ctx, req)
		if err := respond(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req rpcRequest) rpcResponse {
	resp := rpcResponse{ID: req.ID}

	switch req.Method {
	case "initialize":
		resp.Result = map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": serverName, "version": serverVersion},
		}
	case "ping":
		resp.Result = map[string]any{}
	case "tools/list":
		resp.Result = map[string]any{"tools": BuildToolDefinitions()}
	case "tools/call":
		var call struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &call); err != nil {
			resp.Error = &rpcError{Code: codeInvalidParams, Message: "invalid tools/call params"}
			return resp
		}
		result, err := s.callTool(ctx, call.Name, call.Arguments)
		if err != nil {
			resp.Result = map[string]any{
				"isError": true,
				"content": []map[string]any{{"type": "text", "text": err.Error()}},
			}
			return resp
		}
		resp.Result = map[string]any{
			"isError":           false,
			"structuredContent": result,
			"content":           []map[string]any{{"type": "text", "text": mustJSONText(result)}},
		}
	default:
		if !isTool(req.Method) {
			resp.Error = &rpcError{Code: codeMethodNotFound, Message: "method not found"}
			return resp
		}
		result, err := s.callTool(ctx, req.Method, req.Params)
		if err != nil {
			resp.Error = toRPCError(err)
			return resp
		}
		resp.Result = result
	}
	return resp
}

func isTool(name string) bool {
	for _, def := range BuildToolDefinitions() {
		if def.Name == name {
			return true
		}
	}
	return false
}

func (s *Server) callTool(ctx context.Context, name string, args json.RawMessage) (any, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	case "index_repo":
		var req ports.IndexRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, domerr.Wrap(err, domerr.CodeValidationError, "invalid index_repo arguments")
		}
		s.logger.Info("tool call", "tool", name, "repo_path", req.RepoPath)
		result, err := s.svc.IndexRepo(ctx, req)
		if err != nil {
			return nil, err
		}
		return map[string]any{"ok": true, "index_id": result.IndexID, "stats": result.Stats}, nil

	case "summarize":
		var req ports.SummarizeRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, domerr.Wrap(err, domerr.CodeValidationError, "invalid summarize arguments")
		}
		s.logger.Info("tool call", "tool", name, "index_id", req.IndexID, "scope", req.Scope)
		result, err := s.svc.Summarize(ctx, req)
		if err != nil {
			return nil, err
		}
		return map[string]any{"ok": true, "content_md": result.ContentMD, "source": result.Source, "artifacts": result.Artifacts}, nil

	case "search":
		var req ports.SearchRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, domerr.Wrap(err, domerr.CodeValidationError, "invalid search arguments")
		}
		s.logger.Info("tool call", "tool", name, "index_id", req.IndexID, "q", req.Query)
		result, err := s.svc.Search(ctx, req)
		if err != nil {
			return nil, err
		}
		return map[string]any{"ok": true, "hits": result.Hits}, nil

	default:
		return nil, domerr.New(domerr.CodeNotFound, "unknown tool "+name)
	}
}

func toRPCError(err error) *rpcError {
	rpc := &rpcError{Message: err.Error()}
	switch domerr.CodeOf(err) {
	case domerr.CodeValidationError:
		rpc.Code = codeInvalidParams
	case domerr.CodeNotFound:
		rpc.Code = codeNotFound
	default:
		rpc.Code = codeInternal
	}

	var derr *domerr.DomainError
	if errors.As(err, &derr) && len(derr.Context) > 0 {
		rpc.Data = map[string]any{"code": string(derr.Code), "context": derr.Context}
	}
	return rpc
}

func mustJSONText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
