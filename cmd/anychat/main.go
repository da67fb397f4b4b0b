package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/anychat/anychat/config"
	"github.com/anychat/anychat/probe"
	"github.com/anychat/anychat/proxy"
	"github.com/anychat/anychat/proxy/terminal"
)

func main() {
	messageFlag := flag.String("m", "", "Send one message and exit (default is an interactive chat)")
	typeFlag := flag.String("t", "", "Force the agent type instead of probing ("+probe.KindNames()+")")
	keyFlag := flag.String("k", "", "API key for authentication")
	modelFlag := flag.String("model", "", "Model name to use")
	systemFlag := flag.String("s", "", "System prompt")
	exportFlag := flag.String("export", "", "Export the conversation to this JSON file on exit")
	quietFlag := flag.Bool("q", false, "Only print agent replies")
	probeFlag := flag.Bool("probe", false, "Print the detection result and exit")
	noWaitLoginFlag := flag.Bool("no-wait-login", false, "Do not wait for web UI login")
	userDataDirFlag := flag.String("user-data-dir", "", "Browser profile directory (keeps login state)")
	headlessFlag := flag.Bool("headless", true, "Run the browser headless (pass -headless=false to show the window)")
	verboseFlag := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	logger := newLogger(*verboseFlag, *quietFlag)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: anychat [flags] <url>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	url := flag.Arg(0)

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}

	hints := cfg.HintsFor(url)
	if *typeFlag != "" {
		hints.Type = *typeFlag
	}
	if *keyFlag != "" {
		hints.APIKey = *keyFlag
	}
	if *modelFlag != "" {
		hints.Model = *modelFlag
	}
	if *systemFlag != "" {
		hints.SystemPrompt = *systemFlag
	}
	if *userDataDirFlag != "" {
		hints.UserDataDir = *userDataDirFlag
	}
	// Headless stays auto-decided unless the flag shows up on the command
	// line: without a saved profile the window stays visible for login.
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "headless" {
			hints.Headless = headlessFlag
		}
	})

	ctx := context.Background()

	if *probeFlag {
		if !runProbe(ctx, url, hints, logger) {
			os.Exit(1)
		}
		return
	}

	p := proxy.New(logger)
	if err := p.Connect(ctx, url, hints); err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to %s: %+v\n", url, err)
		os.Exit(1)
	}
	defer p.Close()

	if !*quietFlag {
		fmt.Printf("Connected to %s agent at %s\n", p.Kind(), p.Endpoint())
	}

	if p.Kind().Browser() && !*noWaitLoginFlag {
		status, err := p.WaitForLogin(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error waiting for login: %+v\n", err)
			fmt.Fprintln(os.Stderr, "Tip: use -user-data-dir to keep login state between runs")
			os.Exit(1)
		}
		if !*quietFlag {
			fmt.Println(status)
		}
	}

	if *messageFlag == "" {
		term := terminal.New(p)
		if err := term.Run(ctx, ""); err != nil {
			fmt.Fprintf(os.Stderr, "Chat stopped with an error: %+v\n", err)
		}
	} else {
		reply, err := p.Say(ctx, *messageFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
			exportIfConfigured(p, *exportFlag, cfg.ExportPath)
			os.Exit(1)
		}
		if *quietFlag {
			fmt.Println(reply)
		} else {
			fmt.Printf("Agent: %s\n", reply)
		}
	}

	exportIfConfigured(p, *exportFlag, cfg.ExportPath)
}

// exportIfConfigured saves the transcript when either the flag or the
// config file asks for it. The flag wins when both are set.
func exportIfConfigured(p *proxy.Proxy, flagPath, configPath string) {
	path := flagPath
	if path == "" {
		path = configPath
	}
	if path == "" {
		return
	}
	if _, err := p.Export(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting conversation: %+v\n", err)
		return
	}
	fmt.Printf("Saved conversation to %s\n", path)
}

func runProbe(ctx context.Context, url string, hints *probe.Hints, logger zerolog.Logger) bool {
	res := probe.NewDetector(logger).Detect(ctx, url, hints)
	fmt.Printf("URL:        %s\n", url)
	fmt.Printf("Success:    %v\n", res.Success)
	fmt.Printf("Kind:       %s\n", res.Kind)
	fmt.Printf("Endpoint:   %s\n", res.Endpoint)
	fmt.Printf("Confidence: %.2f\n", res.Confidence)
	if res.Config.Model != "" {
		fmt.Printf("Model:      %s\n", res.Config.Model)
	}
	for _, note := range res.Notes {
		fmt.Printf("Note:       %s\n", note)
	}
	return res.Success
}

func newLogger(verbose, quiet bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if quiet {
		level = zerolog.ErrorLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
