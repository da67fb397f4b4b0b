package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/anychat/anychat/errors"
	"github.com/anychat/anychat/probe"
	"github.com/anychat/anychat/session"
)

type fakeAdapter struct {
	reply    string
	err      error
	lastMsg  string
	lastHist []session.Message
	closed   int
}

func (f *fakeAdapter) Send(ctx context.Context, message string, history []session.Message) (string, error) {
	f.lastMsg = message
	f.lastHist = append([]session.Message(nil), history...)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeAdapter) Close() error {
	f.closed++
	return nil
}

func connectedProxy(f *fakeAdapter) *Proxy {
	p := NewWithCapabilities(Capabilities{}, zerolog.Nop())
	p.adapter = f
	p.kind = probe.KindOpenAI
	p.log = session.New("http://agent.test", string(probe.KindOpenAI))
	p.connected = true
	return p
}

func TestSayRecordsBothTurns(t *testing.T) {
	f := &fakeAdapter{reply: "hello there"}
	p := connectedProxy(f)

	reply, err := p.Say(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Say failed: %v", err)
	}
	if reply != "hello there" {
		t.Errorf("Expected 'hello there', got '%s'", reply)
	}
	if len(f.lastHist) != 0 {
		t.Errorf("Expected empty history on the first turn, got %d messages", len(f.lastHist))
	}

	turns := p.History()
	if len(turns) != 2 {
		t.Fatalf("Expected 2 recorded turns, got %d", len(turns))
	}
	if turns[0].Role != session.RoleUser || turns[0].Content != "hi" {
		t.Errorf("Expected user turn first, got %+v", turns[0])
	}
	if turns[1].Role != session.RoleAssistant || turns[1].Content != "hello there" {
		t.Errorf("Expected assistant turn second, got %+v", turns[1])
	}

	// The second exchange sees both prior turns, not its own message.
	if _, err := p.Say(context.Background(), "and again"); err != nil {
		t.Fatalf("second Say failed: %v", err)
	}
	if len(f.lastHist) != 2 {
		t.Errorf("Expected 2 history messages on the second turn, got %d", len(f.lastHist))
	}
	if f.lastMsg != "and again" {
		t.Errorf("Expected the new message separate from history, got '%s'", f.lastMsg)
	}
}

func TestSayRecordsFailureAsErrorTurn(t *testing.T) {
	f := &fakeAdapter{err: errors.New("agent exploded")}
	p := connectedProxy(f)

	reply, err := p.Say(context.Background(), "hi")
	if err == nil {
		t.Fatal("Expected Say to fail")
	}
	if reply != "" {
		t.Errorf("Expected empty reply on failure, got '%s'", reply)
	}

	turns := p.History()
	if len(turns) != 2 {
		t.Fatalf("Expected the failure recorded as a turn, got %d turns", len(turns))
	}
	if turns[1].Role != session.RoleAssistant {
		t.Errorf("Expected an assistant error turn, got role %s", turns[1].Role)
	}
	if got := turns[1].Content; len(got) < 7 || got[:7] != "Error: " {
		t.Errorf("Expected an 'Error: ' turn, got '%s'", got)
	}
}

func TestSayNotConnected(t *testing.T) {
	p := NewWithCapabilities(Capabilities{}, zerolog.Nop())
	if _, err := p.Say(context.Background(), "hi"); err == nil {
		t.Error("Expected an error before Connect")
	}
}

func TestResetClearsTranscript(t *testing.T) {
	f := &fakeAdapter{reply: "ok"}
	p := connectedProxy(f)

	if _, err := p.Say(context.Background(), "hi"); err != nil {
		t.Fatalf("Say failed: %v", err)
	}
	if err := p.Reset(context.Background()); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if len(p.History()) != 0 {
		t.Errorf("Expected an empty transcript after Reset, got %d turns", len(p.History()))
	}
	if !p.Connected() {
		t.Error("Expected the connection to survive Reset")
	}
}

func TestExportWritesTranscript(t *testing.T) {
	f := &fakeAdapter{reply: "fine, thanks"}
	p := connectedProxy(f)

	if _, err := p.Say(context.Background(), "how are you"); err != nil {
		t.Fatalf("Say failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "conversation.json")
	out, err := p.Export(path)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(out, "how are you") {
		t.Errorf("Expected the returned JSON to carry the conversation, got '%s'", out)
	}

	log, err := session.Load(path)
	if err != nil {
		t.Fatalf("could not read exported transcript: %v", err)
	}
	if log.AgentURL != "http://agent.test" {
		t.Errorf("Expected agent URL in the export, got '%s'", log.AgentURL)
	}
	if log.AgentType != string(probe.KindOpenAI) {
		t.Errorf("Expected agent type in the export, got '%s'", log.AgentType)
	}
	if len(log.Turns) != 2 {
		t.Errorf("Expected 2 exported turns, got %d", len(log.Turns))
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	f := &fakeAdapter{reply: "ok"}
	p := connectedProxy(f)

	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if f.closed != 1 {
		t.Errorf("Expected the adapter closed once, got %d", f.closed)
	}
	if p.Connected() {
		t.Error("Expected Connected to report false after Close")
	}
}

func TestConnectRefusesBrowserWithoutChromium(t *testing.T) {
	p := NewWithCapabilities(Capabilities{Browser: false}, zerolog.Nop())

	err := p.Connect(context.Background(), "https://chat.example.com", &probe.Hints{Type: "web_ui"})
	if err == nil {
		t.Fatal("Expected Connect to refuse browser mode without a browser")
	}
	var capErr *CapabilityError
	if !errors.As(err, &capErr) {
		t.Fatalf("Expected a CapabilityError, got %v", err)
	}
	if capErr.Kind != probe.KindWebUI {
		t.Errorf("Expected the web_ui kind in the error, got %s", capErr.Kind)
	}
	if p.Connected() {
		t.Error("Expected the proxy untouched after a refused Connect")
	}
	if p.History() != nil {
		t.Error("Expected no transcript after a refused Connect")
	}
}

func TestConnectRefusesAnthropicWithoutKey(t *testing.T) {
	p := NewWithCapabilities(Capabilities{}, zerolog.Nop())

	err := p.Connect(context.Background(), "https://api.example.com/v1/messages", &probe.Hints{Type: "anthropic"})
	if err == nil {
		t.Fatal("Expected Connect to refuse without credentials")
	}
	var capErr *CapabilityError
	if !errors.As(err, &capErr) {
		t.Fatalf("Expected a CapabilityError, got %v", err)
	}

	// An explicit key satisfies the check; construction then succeeds.
	err = p.Connect(context.Background(), "https://api.example.com/v1/messages", &probe.Hints{Type: "anthropic", APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("Expected Connect to accept an explicit key, got %v", err)
	}
	defer p.Close()
	if p.Kind() != probe.KindAnthropic {
		t.Errorf("Expected the anthropic kind, got %s", p.Kind())
	}
}

func TestConnectReportsDetectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := NewWithCapabilities(Capabilities{}, zerolog.Nop())
	err := p.Connect(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("Expected Connect to fail against a dead server")
	}
	if p.Connected() {
		t.Error("Expected the proxy disconnected after a failed Connect")
	}
}

func TestConnectRefusesMCPWithoutCommand(t *testing.T) {
	p := NewWithCapabilities(Capabilities{}, zerolog.Nop())

	err := p.Connect(context.Background(), "http://localhost:3000/mcp", &probe.Hints{Type: "mcp"})
	if err == nil {
		t.Fatal("Expected Connect to refuse mcp without a server command")
	}
	var capErr *CapabilityError
	if !errors.As(err, &capErr) {
		t.Fatalf("Expected a CapabilityError, got %v", err)
	}
	if capErr.Kind != probe.KindMCP {
		t.Errorf("Expected the mcp kind in the error, got %s", capErr.Kind)
	}
	if p.Connected() {
		t.Error("Expected the proxy untouched after a refused Connect")
	}
}

func TestStatusCallsWithoutBrowser(t *testing.T) {
	f := &fakeAdapter{reply: "ok"}
	p := connectedProxy(f)

	if _, err := p.WaitForLogin(context.Background()); err == nil {
		t.Error("Expected WaitForLogin to refuse non-browser kinds")
	}
	_, err := p.Screenshot("unused.png")
	if err == nil {
		t.Fatal("Expected Screenshot to refuse non-browser kinds")
	}
	var capErr *CapabilityError
	if !errors.As(err, &capErr) {
		t.Errorf("Expected a CapabilityError, got %v", err)
	}
}
