package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/session-title/config"
	"github.com/xiaoyuanzhu-com/session-title/db"
	"github.com/xiaoyuanzhu-com/session-title/gateway"
	"github.com/xiaoyuanzhu-com/session-title/ledger"
	"github.com/xiaoyuanzhu-com/session-title/sessiontitle"
	"github.com/xiaoyuanzhu-com/session-title/title"
)

// titleClient bundles an engine with the gateway and ledger it runs on
type titleClient struct {
	engine  *sessiontitle.Engine
	gateway *gateway.Client
	store   *db.DB
}

func openTitleClient() (*titleClient, error) {
	cfg := config.Get()

	store, err := db.Open(db.Config{Path: ledgerPath, LogQueries: cfg.DBLogQueries})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	gw := gateway.New(gateway.Config{
		BaseURL:    remoteURL,
		SecretKey:  secretKey,
		Timeout:    cfg.FetchTimeout,
		MaxRetries: cfg.MaxRetries,
	})

	engine := sessiontitle.New(gw, ledger.New(store),
		sessiontitle.WithFetchTimeout(cfg.FetchTimeout),
		sessiontitle.WithPersistTimeout(cfg.PersistTimeout),
	)

	return &titleClient{engine: engine, gateway: gw, store: store}, nil
}

func (c *titleClient) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.engine.Shutdown(ctx)
	c.store.Close()
}

// waitForState blocks until cond holds for the engine state
func waitForState(ctx context.Context, e *sessiontitle.Engine, cond func(sessiontitle.State) bool) (sessiontitle.State, error) {
	updates, unsubscribe := e.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if s := e.Snapshot(); cond(s) {
			return s, nil
		}
		select {
		case <-updates:
		case <-ticker.C:
		case <-ctx.Done():
			return e.Snapshot(), ctx.Err()
		}
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func settled(s sessiontitle.State) bool {
	return !s.Reconciling && !s.AutoGenerating && !s.Updating
}

func printState(w io.Writer, s sessiontitle.State) {
	fmt.Fprintf(w, "session:  %s\n", s.SessionID)
	fmt.Fprintf(w, "title:    %s\n", s.DisplayTitle())
	fmt.Fprintf(w, "source:   %s\n", s.Source)
	fmt.Fprintf(w, "stable:   %t\n", s.Stabilized)
	fmt.Fprintf(w, "edited:   %t\n", s.ManuallyEdited)
	if s.Error != "" {
		fmt.Fprintf(w, "error:    %s\n", s.Error)
	}
}

// runDerive prints the title derived from the given text
func runDerive(cmd *cobra.Command, args []string) error {
	derived := title.Derive(strings.Join(args, " "))
	fmt.Fprintln(cmd.OutOrStdout(), title.Display(derived))
	return nil
}

// runShow binds a session and prints its resolved title
func runShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()

	client, err := openTitleClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.engine.Bind(args[0], providedTitle); err != nil {
		return err
	}

	s, err := waitForState(ctx, client.engine, settled)
	if err != nil {
		return fmt.Errorf("timed out resolving title: %w", err)
	}

	printState(cmd.OutOrStdout(), s)
	return nil
}

// runRename saves a manual title for a session
func runRename(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()

	client, err := openTitleClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.engine.Bind(args[0], ""); err != nil {
		return err
	}
	if _, err := waitForState(ctx, client.engine, settled); err != nil {
		return fmt.Errorf("timed out resolving title: %w", err)
	}

	if err := client.engine.UpdateTitle(ctx, args[1]); err != nil {
		return err
	}

	printState(cmd.OutOrStdout(), client.engine.Snapshot())
	return nil
}

// runFirstMessage posts a user message and lets the engine derive a title
// from it
func runFirstMessage(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()

	client, err := openTitleClient()
	if err != nil {
		return err
	}
	defer client.Close()

	sessionID := args[0]
	if err := client.gateway.AppendMessage(ctx, sessionID, gateway.Message{Role: sessiontitle.RoleUser, Content: args[1]}); err != nil {
		return fmt.Errorf("failed to post message: %w", err)
	}

	session, err := client.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	if err := client.engine.Bind(sessionID, ""); err != nil {
		return err
	}
	if _, err := waitForState(ctx, client.engine, settled); err != nil {
		return fmt.Errorf("timed out resolving title: %w", err)
	}

	messages := make([]sessiontitle.Message, 0, len(session.Messages))
	for _, m := range session.Messages {
		messages = append(messages, sessiontitle.Message{Role: m.Role, Content: m.Content})
	}
	client.engine.SetMessages(messages)

	s, err := waitForState(ctx, client.engine, settled)
	if err != nil {
		return fmt.Errorf("timed out generating title: %w", err)
	}

	printState(cmd.OutOrStdout(), s)
	return nil
}

// runEdited lists sessions marked as manually titled in the local ledger
func runEdited(cmd *cobra.Command, args []string) error {
	store, err := db.Open(db.Config{Path: ledgerPath})
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer store.Close()

	entries, err := store.ValuesWithPrefix(ledger.KeyPrefix)
	if err != nil {
		return err
	}

	var ids []string
	for key, value := range entries {
		id, ok := ledger.SessionID(key)
		if ok && value == "true" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}
