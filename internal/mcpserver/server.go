// Package mcpserver exposes Canvas operations as MCP tools and resources.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
	"github.com/Sternrassler/canvas-mcp/pkg/session"
	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Default server identity reported to MCP clients.
const (
	DefaultName    = "canvas-mcp-server"
	DefaultVersion = "2.2.3"
)

// Options configures the MCP server.
type Options struct {
	Name    string
	Version string
	Logger  *zerolog.Logger

	// SessionTTL is the inactivity timeout of the sessions store; it is
	// only reported to users.
	SessionTTL time.Duration
}

// Handler holds the dependencies shared by all tools and resources.
type Handler struct {
	svc        *canvas.Service
	sessions   session.Store
	sessionTTL time.Duration
	logger     zerolog.Logger
	validate   *validator.Validate

	tools map[string]server.ToolHandlerFunc
}

// NewHandler creates a Handler. sessions backs the paged user search.
func NewHandler(svc *canvas.Service, sessions session.Store, logger zerolog.Logger) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Handler{
		svc:        svc,
		sessions:   sessions,
		sessionTTL: session.DefaultTTL,
		logger:     logger,
		validate:   v,
		tools:      make(map[string]server.ToolHandlerFunc),
	}
}

// New builds an MCP server with every Canvas tool and resource registered.
func New(svc *canvas.Service, sessions session.Store, opts Options) *server.MCPServer {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	logger := log.With().Str("component", "mcpserver").Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	s := server.NewMCPServer(
		opts.Name,
		opts.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
	)

	h := NewHandler(svc, sessions, logger)
	if opts.SessionTTL > 0 {
		h.sessionTTL = opts.SessionTTL
	}
	h.RegisterTools(s)
	h.RegisterResources(s)

	logger.Info().
		Str("name", opts.Name).
		Str("version", opts.Version).
		Int("tools", len(h.tools)).
		Msg("MCP server built")
	return s
}

// RegisterTools adds all canvas_* tools to s.
func (h *Handler) RegisterTools(s *server.MCPServer) {
	h.registerCourseTools(s)
	h.registerAssignmentTools(s)
	h.registerContentTools(s)
	h.registerCommunicationTools(s)
	h.registerUserTools(s)
	h.registerQuizTools(s)
	h.registerAccountTools(s)
}

// toolFunc is the typed body of a tool. The result is rendered as indented
// JSON unless it is already a string.
type toolFunc[A any] func(ctx context.Context, args A) (any, error)

// register adds tool to s with arguments bound into an A.
func register[A any](h *Handler, s *server.MCPServer, tool mcp.Tool, fn toolFunc[A]) {
	handler := handle(h, tool.Name, fn)
	h.tools[tool.Name] = handler
	s.AddTool(tool, handler)
}

// ToolNames lists the registered tools in sorted order.
func (h *Handler) ToolNames() []string {
	names := make([]string, 0, len(h.tools))
	for name := range h.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tool returns the handler of a registered tool.
func (h *Handler) Tool(name string) (server.ToolHandlerFunc, bool) {
	fn, ok := h.tools[name]
	return fn, ok
}

// handle wraps fn with argument binding, validation, logging and metrics.
// Failures become error results; the protocol-level error is always nil.
func handle[A any](h *Handler, name string, fn toolFunc[A]) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		logger := h.logger.With().Str("tool", name).Logger()

		args, err := bind[A](req)
		if err == nil {
			err = h.check(args)
		}
		if err != nil {
			observeTool(name, outcomeInvalid, start)
			logger.Warn().Err(err).Msg("Tool arguments rejected")
			return mcp.NewToolResultError("Error: " + err.Error()), nil
		}

		logger.Debug().Interface("args", args).Msg("Tool invoked")

		out, err := fn(ctx, args)
		if err != nil {
			outcome := outcomeError
			if errors.Is(err, canvas.ErrInvalidArgument) {
				outcome = outcomeInvalid
			}
			observeTool(name, outcome, start)
			logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("Tool failed")
			return mcp.NewToolResultError("Error: " + err.Error()), nil
		}

		text, err := render(out)
		if err != nil {
			observeTool(name, outcomeError, start)
			logger.Error().Err(err).Msg("Failed to render tool result")
			return mcp.NewToolResultError("Error: " + err.Error()), nil
		}

		observeTool(name, outcomeSuccess, start)
		logger.Info().Dur("elapsed", time.Since(start)).Msg("Tool completed")
		return mcp.NewToolResultText(text), nil
	}
}

// bind decodes the call arguments into an A through their JSON form.
func bind[A any](req mcp.CallToolRequest) (A, error) {
	var args A
	raw := req.GetArguments()
	if len(raw) == 0 {
		return args, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return args, fmt.Errorf("invalid arguments: %w", err)
	}
	if err := json.Unmarshal(data, &args); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return args, fmt.Errorf("invalid value for %s: expected %s", typeErr.Field, typeErr.Type)
		}
		return args, fmt.Errorf("invalid arguments: %w", err)
	}
	return args, nil
}

// check validates args and turns validator output into short messages.
func (h *Handler) check(args any) error {
	err := h.validate.Struct(args)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil
		}
		return err
	}

	var missing, other []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		other = append(other, describeField(fe))
	}

	var msgs []string
	switch len(missing) {
	case 0:
	case 1:
		msgs = append(msgs, "Missing required field: "+missing[0])
	default:
		msgs = append(msgs, "Missing required fields: "+strings.Join(missing, ", "))
	}
	msgs = append(msgs, other...)
	return errors.New(strings.Join(msgs, "; "))
}

func describeField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("Invalid value for %s: must be one of [%s]", fe.Field(), fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("Invalid value for %s: must be %s %s", fe.Field(), fe.Tag(), fe.Param())
	case "min":
		return fmt.Sprintf("Invalid value for %s: needs at least %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Invalid value for %s", fe.Field())
	}
}

func render(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// noArgs is the argument type of tools without parameters.
type noArgs struct{}
