package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"

	"applypilot-engine/internal/config"
	"applypilot-engine/internal/delivery"
	"applypilot-engine/internal/docs"
	"applypilot-engine/internal/events"
	"applypilot-engine/internal/ledger"
	"applypilot-engine/internal/llm"
	"applypilot-engine/internal/notify"
	"applypilot-engine/internal/pipeline"
	"applypilot-engine/internal/reconcile"
	"applypilot-engine/internal/scheduler"
	"applypilot-engine/internal/secrets"
	"applypilot-engine/internal/source"
)

func main() {
	_ = godotenv.Load()

	dataDir := os.Getenv("APPLYPILOT_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// one engine per ledger; overlapping batches would race per-identity writes
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("lock: %v", err)
	}
	if !locked {
		log.Fatalf("another engine instance already holds %s", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	userCfgPath, err := config.EnsureUserConfig(dataDir, filepath.Join("config", "config.yml"))
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}
	raw, err := config.Load(userCfgPath)
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfg, val := config.NormalizeAndValidate(raw)
	for _, w := range val.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	if !val.OK() {
		for _, e := range val.Errors {
			log.Printf("[config] error: %s", e)
		}
		log.Fatalf("config invalid (%s)", userCfgPath)
	}

	db, err := ledger.Open(filepath.Join(dataDir, "applypilot.db"))
	if err != nil {
		log.Fatalf("ledger open: %v", err)
	}
	defer db.Close()

	store, err := docs.NewStorage(dataDir)
	if err != nil {
		log.Fatal(err)
	}

	llmClient, err := llm.New(cfg.LLM.Model)
	if err != nil {
		log.Fatalf("llm init: %v", err)
	}

	fetchers, err := source.Default().Build(cfg.Sources, source.NewHostLimiter(1.0, 2))
	if err != nil {
		log.Fatalf("sources: %v", err)
	}

	var notifier pipeline.Notifier = notify.LogOnly{}
	if cfg.Telegram.Enabled {
		token, err := secrets.Get("applypilot:telegram", "TELEGRAM_TOKEN")
		if err != nil {
			log.Fatalf("telegram: %v", err)
		}
		tg, err := notify.NewTelegram(token, cfg.Telegram.ChatID)
		if err != nil {
			log.Fatalf("telegram: %v", err)
		}
		notifier = tg
	}

	var submitter pipeline.Submitter
	if cfg.Submit.Enabled {
		pw, err := secrets.Get(secrets.SMTPAccount(cfg.Submit.From, cfg.Submit.SMTPHost), "SMTP_APP_PASSWORD")
		if err != nil {
			log.Fatalf("smtp: %v", err)
		}
		submitter = &delivery.SMTPSubmitter{
			Host:     cfg.Submit.SMTPHost,
			Port:     cfg.Submit.SMTPPort,
			From:     cfg.Submit.From,
			To:       cfg.Submit.To,
			Password: pw,
		}
	} else {
		log.Printf("[engine] submission disabled; postings will park at DOCS_READY")
	}

	policy := llm.FailOpen
	if cfg.Relevance.FailClosed {
		policy = llm.FailClosed
	}

	hub := events.NewHub()
	pipe := &pipeline.Pipeline{
		Ledger:     db,
		Fetchers:   fetchers,
		Classifier: titleClassifier{c: llmClient, titles: cfg.Relevance.JobTitles},
		Policy:     policy,
		Generator:  llmClient,
		Store:      store,
		Submitter:  submitter,
		Notifier:   notifier,
		Hub:        hub,
	}

	// serialize batches: the scheduler tick and manual /run must never
	// interleave per-identity writes
	var runMu sync.Mutex
	runBatch := func(ctx context.Context) error {
		runMu.Lock()
		defer runMu.Unlock()
		sum, err := pipe.Run(ctx)
		if err != nil {
			return err
		}
		log.Printf("[batch] discovered=%d new=%d filtered=%d docs_ready=%d submitted=%d failed=%d",
			sum.Discovered, sum.New, sum.Filtered, sum.DocsReady, sum.Submitted, len(sum.Failures))
		if n, err := db.PruneSessions(ctx, 14*24*time.Hour); err != nil {
			log.Printf("[engine] session prune: %v", err)
		} else if n > 0 {
			log.Printf("[engine] pruned %d expired sessions", n)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go scheduler.Every(ctx, time.Duration(cfg.Polling.DiscoverSeconds)*time.Second, "batch", runBatch)

	if cfg.Email.Enabled {
		pw, err := secrets.Get(secrets.IMAPAccount(cfg.Email.Username, cfg.Email.IMAPHost), "IMAP_APP_PASSWORD")
		if err != nil {
			log.Fatalf("imap: %v", err)
		}
		inboxCfg := reconcile.InboxConfig{
			Host:     cfg.Email.IMAPHost,
			Port:     cfg.Email.IMAPPort,
			Username: cfg.Email.Username,
			Password: pw,
			Mailbox:  cfg.Email.Mailbox,
			Max:      cfg.Email.MaxMessages,
		}
		rec := &reconcile.Reconciler{
			Ledger:     db,
			Classifier: llmClient,
			Drafter:    llmClient,
			Drafts:     store,
		}
		go scheduler.Every(ctx, time.Duration(cfg.Polling.ReplySeconds)*time.Second, "replies", func(ctx context.Context) error {
			rep, err := reconcile.RunOnce(ctx, inboxCfg, rec, notifier)
			if err != nil {
				return err
			}
			if rep.Fetched > 0 {
				log.Printf("[replies] fetched=%d matched=%d no_match=%d unresolved=%d",
					rep.Fetched, rep.Matched, rep.NoMatch, rep.Unresolved)
			}
			return nil
		})
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("engine listening on http://%s (data=%s)", addr, dataDir)

	srv := &http.Server{
		Handler:           cors(newMux(db, hub, runBatch)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shctx)
	}()
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// titleClassifier binds the run's configured job titles to the relevance
// capability.
type titleClassifier struct {
	c      *llm.Client
	titles []string
}

func (t titleClassifier) Relevant(ctx context.Context, text string) (bool, error) {
	return t.c.Relevant(ctx, t.titles, text)
}
