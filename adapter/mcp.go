package adapter

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"

	"github.com/anychat/anychat/errors"
	"github.com/anychat/anychat/probe"
	"github.com/anychat/anychat/session"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// mcpChatToolNames are tried in order when picking which server tool
// receives chat messages. When none match, the first listed tool is used.
var mcpChatToolNames = []string{"chat", "say", "ask", "send_message", "message", "prompt"}

// mcpAdapter drives an MCP server subprocess over stdio and routes every
// message through one chat-like tool.
type mcpAdapter struct {
	cmd    *exec.Cmd
	conn   *mcpsdk.ClientSession
	tool   string
	argKey string
	logger zerolog.Logger
}

func newMCP(ctx context.Context, cfg probe.Config, logger zerolog.Logger) (*mcpAdapter, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("mcp endpoints need a server command (config or hints)")
	}

	cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
	cmd.Stderr = os.Stderr
	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "anychat", Version: "v1.0.0"}, nil)
	conn, err := client.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		return nil, errors.Wrapf(err, "failed to connect to MCP server")
	}

	a := &mcpAdapter{cmd: cmd, conn: conn, logger: logger}
	if err := a.pickTool(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *mcpAdapter) pickTool(ctx context.Context) error {
	var tools []*mcpsdk.Tool
	params := &mcpsdk.ListToolsParams{}
	for {
		list, err := a.conn.ListTools(ctx, params)
		if err != nil {
			return errors.Wrapf(err, "failed to list tools from MCP server")
		}
		tools = append(tools, list.Tools...)
		if list.NextCursor == "" {
			break
		}
		params.Cursor = list.NextCursor
	}
	if len(tools) == 0 {
		return errors.New("MCP server exposes no tools")
	}

	chosen := pickChatTool(tools)
	a.tool = chosen.Name
	a.argKey = messageArgKey(chosen)
	a.logger.Debug().Str("tool", a.tool).Str("arg", a.argKey).Int("available", len(tools)).Msg("selected chat tool")
	return nil
}

func pickChatTool(tools []*mcpsdk.Tool) *mcpsdk.Tool {
	for _, want := range mcpChatToolNames {
		for _, t := range tools {
			if strings.EqualFold(t.Name, want) {
				return t
			}
		}
	}
	return tools[0]
}

// messageArgKey decides which input property carries the message text:
// a conventional name when the schema declares one, otherwise the schema's
// first property, otherwise "message".
func messageArgKey(t *mcpsdk.Tool) string {
	raw, err := json.Marshal(t.InputSchema)
	if err != nil {
		return "message"
	}
	return argKeyFromSchema(raw)
}

func argKeyFromSchema(raw []byte) string {
	props := gjson.GetBytes(raw, "properties")
	if !props.Exists() {
		return "message"
	}

	declared := make(map[string]bool)
	var first string
	props.ForEach(func(key, _ gjson.Result) bool {
		if first == "" {
			first = key.String()
		}
		declared[key.String()] = true
		return true
	})

	for _, want := range []string{"message", "input", "prompt", "text", "query", "task"} {
		if declared[want] {
			return want
		}
	}
	if first != "" {
		return first
	}
	return "message"
}

func (a *mcpAdapter) Send(ctx context.Context, message string, history []session.Message) (string, error) {
	result, err := a.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      a.tool,
		Arguments: map[string]interface{}{a.argKey: message},
	})
	if err != nil {
		return "", transportErr("mcp call", err)
	}

	var out string
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			out += tc.Text
		}
	}
	if result.IsError {
		return "", transportErr("mcp call", errors.New("%s", out))
	}
	return out, nil
}

func (a *mcpAdapter) Close() error {
	if a.conn != nil {
		a.conn.Close()
	}
	// The transport reaps the subprocess on Close; killing again is only a
	// backstop for half-open connects.
	if a.cmd != nil && a.cmd.Process != nil {
		_ = a.cmd.Process.Kill()
	}
	return nil
}
