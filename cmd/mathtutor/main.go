// mathtutor is the command-line entry point for the math tutoring pipeline.
// It answers a single question with -q, or runs an interactive session when
// started without one.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"mathtutor/pkg/agent"
	"mathtutor/pkg/config"
	"mathtutor/pkg/knowledge"
	"mathtutor/pkg/metrics"
	"mathtutor/pkg/persistence"
	"mathtutor/pkg/tutor"
	"mathtutor/pkg/usage"
	"mathtutor/pkg/websearch"
)

// Version information - set by goreleaser via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to YAML config file (optional)")
		question    = flag.String("q", "", "Answer a single question and exit")
		dbPath      = flag.String("db", "", "Override the audit database path")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("mathtutor %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
		os.Exit(0)
	}

	// Run main logic and get exit code. This allows defers to execute
	// before os.Exit is called.
	os.Exit(run(*configPath, *question, *dbPath))
}

// staticSession satisfies the metrics session provider with a fixed ID.
type staticSession string

func (s staticSession) SessionID() string { return string(s) }

func run(configPath, question, dbPath string) int {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	// Load encrypted credentials into memory if a secrets file exists.
	if err := unlockSecrets(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unlock secrets: %v\n", err)
		return 1
	}

	sessionID := uuid.NewString()

	if err := persistence.Initialize(cfg.DBPath, sessionID); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		return 1
	}
	defer func() {
		if closeErr := persistence.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", closeErr)
		}
	}()

	ledger := usage.NewLedger()

	a, err := buildAgent(cfg, sessionID, ledger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build pipeline: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if question != "" {
		if err := answerOne(ctx, a, question); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to answer question: %v\n", err)
			return 1
		}
		printSessionReport(ctx, cfg, sessionID, ledger)
		return 0
	}

	if err := interactiveLoop(ctx, a); err != nil {
		fmt.Fprintf(os.Stderr, "Session ended with error: %v\n", err)
		return 1
	}
	printSessionReport(ctx, cfg, sessionID, ledger)
	return 0
}

// buildAgent wires the pipeline from configuration: LLM clients for the
// router and generator stages, the vector knowledge base, web search, and
// the audit store.
func buildAgent(cfg *config.Config, sessionID string, ledger *usage.Ledger) (*tutor.Agent, error) {
	factory := agent.NewLLMClientFactory(cfg, staticSession(sessionID))

	routerClient, err := factory.CreateClient(cfg.Models.Router, "router")
	if err != nil {
		return nil, fmt.Errorf("router model: %w", err)
	}
	generatorClient, err := factory.CreateClient(cfg.Models.Generator, "generator")
	if err != nil {
		return nil, fmt.Errorf("generator model: %w", err)
	}

	store := knowledge.NewQdrantStore(cfg.Knowledge.QdrantURL, cfg.Knowledge.Collection)
	kb := knowledge.NewVectorSearcher(factory.CreateEmbedder(), store, cfg.Knowledge.Limit)

	return tutor.NewAgent(cfg, tutor.Deps{
		Router:    tutor.NewRouter(routerClient, cfg.Models.Router, ledger),
		Generator: tutor.NewGenerator(generatorClient, cfg.Models.Generator, ledger),
		Knowledge: kb,
		Web:       websearch.NewSearcher(cfg),
		Audit:     persistence.Ops(),
	}, sessionID), nil
}

// unlockSecrets decrypts the credentials file under the user's home
// directory when one exists, prompting for the password on the terminal.
// Without a secrets file, credentials come from environment variables.
func unlockSecrets() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to determine home directory: %w", err)
	}

	if !config.SecretsFileExists(home) {
		return nil
	}

	fmt.Print("Enter secrets password: ")
	password, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	defer func() {
		for i := range password {
			password[i] = 0
		}
	}()

	secrets, err := config.DecryptSecretsFile(home, string(password))
	if err != nil {
		return err
	}

	config.SetDecryptedSecrets(secrets)
	return nil
}

func answerOne(ctx context.Context, a *tutor.Agent, question string) error {
	resp, err := a.Solve(ctx, question)
	if err != nil {
		return err
	}
	printResponse(resp)
	return nil
}

// interactiveLoop reads questions from stdin until EOF or an exit command.
func interactiveLoop(ctx context.Context, a *tutor.Agent) error {
	fmt.Println("Math tutor ready. Ask a question, or type \"exit\" to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n❓ ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		resp, err := a.Solve(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				// Interrupted; leave the loop quietly.
				return nil
			}
			return err
		}
		printResponse(resp)
	}
	return scanner.Err()
}

func printResponse(resp *tutor.Response) {
	if !resp.Answered {
		fmt.Printf("\n⚠️  %s\n", resp.RejectionReason)
		return
	}

	fmt.Printf("\n%s\n", resp.Solution)
	fmt.Printf("\n   route: %s | confidence: %.2f | %s | %d tokens ($%.4f)\n",
		resp.Route,
		resp.Confidence,
		resp.ProcessingTime.Round(time.Millisecond),
		resp.TokensUsed,
		resp.CostEstimate,
	)
	if resp.NeedsHumanFeedback {
		fmt.Println("   ⚠️  Low confidence - this solution should be reviewed.")
	}
}

// printSessionReport summarizes the session's usage from the in-memory
// ledger, the audit database, and (when configured) Prometheus.
func printSessionReport(ctx context.Context, cfg *config.Config, sessionID string, ledger *usage.Ledger) {
	totals := ledger.Totals()
	if totals.Calls == 0 {
		return
	}

	fmt.Printf("\nSession %s\n", sessionID)
	fmt.Printf("  LLM calls:  %d\n", totals.Calls)
	fmt.Printf("  Tokens:     %d (%d prompt / %d completion)\n",
		totals.TotalTokens(), totals.PromptTokens, totals.CompletionTokens)
	fmt.Printf("  Est. cost:  $%.4f\n", totals.Cost)

	if persistence.IsInitialized() {
		if dbTotals, err := persistence.Ops().GetSessionTotals(ctx); err == nil {
			fmt.Printf("  Questions:  %d (%d answered)\n", dbTotals.Interactions, dbTotals.Answered)
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.PrometheusURL != "" {
		printPrometheusBreakdown(ctx, cfg.Metrics.PrometheusURL, sessionID)
	}
}

// printPrometheusBreakdown shows the per-stage token split as recorded by the
// metrics middleware. Best effort: a scrape gap or unreachable Prometheus
// only drops the breakdown, never the report.
func printPrometheusBreakdown(ctx context.Context, prometheusURL, sessionID string) {
	svc, err := metrics.NewQueryService(prometheusURL)
	if err != nil {
		return
	}

	byStage, err := svc.GetSessionMetricsByStage(ctx, sessionID)
	if err != nil || len(byStage) == 0 {
		return
	}

	fmt.Println("  By stage (Prometheus):")
	for stage, m := range byStage {
		fmt.Printf("    %-10s %d tokens ($%.4f)\n", stage, m.TotalTokens, m.TotalCost)
	}
}
