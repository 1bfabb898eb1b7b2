package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/abdullayevf/chat-app/client"
	"github.com/abdullayevf/chat-app/domain/event"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// Exit codes for the viewer application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the viewer-side environment variables.
type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=ws://localhost:8080/ws"`
	Token     string `env:"CHAT_TOKEN,required=true"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
}

// roster mirrors the server's view of who is online, fed by the roster
// snapshot and subsequent presence announcements.
type roster struct {
	mu     sync.Mutex
	online map[string]struct{}
}

func (r *roster) replace(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.online = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		r.online[id] = struct{}{}
	}
}

func (r *roster) add(id string)    { r.mu.Lock(); r.online[id] = struct{}{}; r.mu.Unlock() }
func (r *roster) remove(id string) { r.mu.Lock(); delete(r.online, id); r.mu.Unlock() }

func (r *roster) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.online))
	for id := range r.online {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Viewer error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Load configuration from environment variables.
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect and authenticate.
	c, err := client.Dial(ctx, config.ServerURL, config.Token, log)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerURL, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = c.Close()
	}()

	// 4. Wire the event handlers.
	who := &roster{online: make(map[string]struct{})}

	c.Subscribe(event.KindRoster, func(evt event.Event) {
		snapshot := evt.(event.Roster)
		who.replace(snapshot.IdentityIDs)
		color.New(color.FgCyan).Printf(">>> %d peer(s) online, type /who to list them\n", len(snapshot.IdentityIDs))
	})
	c.Subscribe(event.KindPeerOnline, func(evt event.Event) {
		online := evt.(event.PeerOnline)
		who.add(online.IdentityID)
		color.New(color.FgGreen).Printf(">>> %s is online\n", online.IdentityID)
	})
	c.Subscribe(event.KindPeerOffline, func(evt event.Event) {
		offline := evt.(event.PeerOffline)
		who.remove(offline.IdentityID)
		color.New(color.FgYellow).Printf(">>> %s went offline\n", offline.IdentityID)
	})
	c.Subscribe(event.KindMessageReceived, func(evt event.Event) {
		msg := evt.(event.MessageReceived)
		fmt.Printf("[%s] %s: %s\n",
			msg.CreatedAt.Local().Format(time.TimeOnly),
			color.New(color.FgMagenta).Render(msg.AuthorEmail),
			msg.Content,
		)
	})

	// 5. Reader goroutine: dispatches server frames until disconnect.
	errChan := make(chan error, 1)
	go func() {
		errChan <- c.Listen(ctx)
	}()

	color.New(color.BgBlack, color.FgGreen).Printf(">>> Connected to %s (Ctrl+C to quit)\n", config.ServerURL)

	// 6. Input loop: every line is a message, /who prints the roster.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			switch {
			case line == "":
			case line == "/who":
				printRoster(who.ids())
			default:
				if err := c.Send(line); err != nil {
					log.Error("Send failed", "error", err)
				}
			}
		}
	}()

	// 7. Wait for shutdown or a connection error.
	select {
	case <-ctx.Done():
		log.Info("Stopping viewer...")
		return exitOK, nil
	case err := <-errChan:
		if err != nil {
			return exitRuntime, fmt.Errorf("connection lost: %w", err)
		}
		return exitOK, nil
	}
}

func printRoster(ids []string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Identity"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for i, id := range ids {
		table.Append([]string{fmt.Sprintf("%d", i+1), id})
	}
	table.Render()
}
