// ABOUTME: Interactive probe client for an agentwire gateway
// ABOUTME: Joins a session, sends turns from stdin, and renders the live activity stream

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/minuet-ai/agentwire/internal/activity"
	"github.com/minuet-ai/agentwire/internal/channel"
	"github.com/minuet-ai/agentwire/internal/client"
	"github.com/minuet-ai/agentwire/internal/protocol"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "gateway websocket URL")
	sessionID := flag.String("session", "", "session id to join (empty starts a new conversation)")
	org := flag.String("org", "probe", "organization id sent with each turn")
	user := flag.String("user", "probe", "user id sent with each turn")
	attempts := flag.Int("attempts", 5, "reconnect attempt budget")
	retryDelay := flag.Duration("retry-delay", time.Second, "delay between reconnect attempts")
	ackTimeout := flag.Duration("ack-timeout", 30*time.Second, "delivery ack timeout per turn")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := probeOptions{
		url:        *url,
		sessionID:  *sessionID,
		org:        *org,
		user:       *user,
		attempts:   *attempts,
		retryDelay: *retryDelay,
		ackTimeout: *ackTimeout,
	}
	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type probeOptions struct {
	url        string
	sessionID  string
	org        string
	user       string
	attempts   int
	retryDelay time.Duration
	ackTimeout time.Duration
}

func run(ctx context.Context, opts probeOptions) error {
	gray := color.New(color.FgHiBlack)
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	sessionID := opts.sessionID
	if sessionID == "" {
		sessionID = protocol.NewProvisionalSessionID()
		gray.Printf("starting new conversation (%s)\n", sessionID)
	}

	ch := channel.New(&channel.WebSocketDialer{URL: opts.url}, channel.Options{
		MaxAttempts: opts.attempts,
		RetryDelay:  opts.retryDelay,
	})
	defer ch.Close()

	ready := make(chan channel.State, 8)
	watchID := ch.Watch(func(s channel.State) {
		select {
		case ready <- s:
		default:
		}
	})
	defer ch.Unwatch(watchID)

	cl := client.New(ch, client.Options{AckTimeout: opts.ackTimeout})
	defer cl.Close()

	// Track the live session id across promotion; guarded because the
	// migration callback fires on the read goroutine.
	var mu sync.Mutex
	current := sessionID

	var events []protocol.AgentEvent
	turnEnded := false

	cl.OnMigration(func(n protocol.MigrationNotice) {
		mu.Lock()
		if current == n.OldSessionID {
			current = n.NewSessionID
		}
		mu.Unlock()
		gray.Printf("session promoted: %s\n", n.NewSessionID)
	})

	cl.OnAgentEvent(func(ev protocol.AgentEvent) {
		mu.Lock()
		events = append(events, ev)
		state := activity.Reduce(events, turnEnded)
		mu.Unlock()
		renderEvent(ev, state)
	})

	cl.OnResponse(func(batch protocol.ResponseBatch) {
		mu.Lock()
		turnEnded = batch.IsComplete
		mu.Unlock()
		for _, resp := range batch.Responses {
			green.Print("agent> ")
			fmt.Println(resp.Output)
		}
	})

	// Wait for the channel to come up before joining.
	for !cl.Ready() {
		select {
		case s := <-ready:
			if s == channel.StateFailed {
				return fmt.Errorf("could not reach gateway at %s", opts.url)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	joinCtx, cancelJoin := context.WithTimeout(ctx, 10*time.Second)
	ok, err := cl.JoinSession(joinCtx, sessionID)
	cancelJoin()
	if err != nil {
		return fmt.Errorf("joining session: %w", err)
	}
	if !ok {
		return fmt.Errorf("gateway refused join for %s", sessionID)
	}
	cyan.Printf("joined %s\n", sessionID)
	gray.Println("type a message and press enter; ctrl-c to quit")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			mu.Lock()
			target := current
			events = events[:0]
			turnEnded = false
			mu.Unlock()

			sendCtx, cancelSend := context.WithTimeout(ctx, time.Minute)
			ack, err := cl.Send(sendCtx, protocol.ChatMessage{
				SessionID:      target,
				OrganizationID: opts.org,
				UserID:         opts.user,
				Message:        line,
			})
			cancelSend()
			if err != nil {
				red.Printf("send failed: %v\n", err)
				continue
			}
			if ack.IsNewSession {
				mu.Lock()
				current = ack.SessionID
				mu.Unlock()
			}
		}
	}
}

func renderEvent(ev protocol.AgentEvent, state activity.State) {
	gray := color.New(color.FgHiBlack)
	yellow := color.New(color.FgYellow)

	switch ev.Type {
	case protocol.AgentThinking:
		if ev.Data != nil && ev.Data.Message != "" {
			gray.Printf("  thinking: %s\n", ev.Data.Message)
		}
	case protocol.ToolStarted:
		name := ""
		if ev.Data != nil {
			name = ev.Data.ToolName
		}
		yellow.Printf("  tool %s started (%d%%)\n", name, state.ToolProgressPercent)
	case protocol.ToolCompleted, protocol.ToolFailed:
		yellow.Printf("  tools %d%% done\n", state.ToolProgressPercent)
	case protocol.TodosUpdated:
		gray.Printf("  todos: %d active, %d done\n", len(state.ActiveTodos), len(state.CompletedTodos))
	case protocol.AgentFailed:
		msg := ""
		if ev.Data != nil {
			msg = ev.Data.Error
		}
		color.New(color.FgRed).Printf("  agent failed: %s\n", msg)
	}
}
