// Notespace CLI - command line client and terminal explorer for a note space
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/glaseagle/3DAuth-FireStore/clients/go/notespace"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
	"github.com/glaseagle/3DAuth-FireStore/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("NOTESPACE_URL")
	if baseURL == "" {
		baseURL = notespace.DefaultURL
	}

	client := notespace.NewClient(baseURL)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health(ctx)
		exitOnError(err)
		printJSON(resp)

	case "stats":
		resp, err := client.Stats(ctx)
		exitOnError(err)
		printJSON(resp)

	case "read":
		snap, err := client.Messages(ctx)
		exitOnError(err)
		for _, e := range snap.Entries {
			var msg models.Message
			if json.Unmarshal(e.Value, &msg) != nil {
				continue
			}
			ts := "pending"
			if msg.CreatedAt > 0 {
				ts = time.UnixMilli(msg.CreatedAt).Format("2006-01-02 15:04:05")
			}
			author := msg.Author
			if author == "" {
				author = "Anonymous"
			}
			fmt.Printf("[%s] %s %s: %s\n", ts, e.ID, author, msg.Text)
		}

	case "cursors":
		snap, err := client.Cursors(ctx)
		exitOnError(err)
		for _, e := range snap.Entries {
			var c models.Cursor
			if json.Unmarshal(e.Value, &c) != nil || !c.HasPosition() {
				continue
			}
			fmt.Printf("  %s  %s at (%.1f, %.1f, %.1f)\n", e.ID, c.DisplayName, *c.X, *c.Y, *c.Z)
		}

	case "register", "signin":
		name, email := client.Name, client.Email
		if len(os.Args) > 2 {
			name = os.Args[2]
		}
		if len(os.Args) > 3 {
			email = os.Args[3]
		}
		if cmd == "register" && name == "" {
			fmt.Fprintln(os.Stderr, "Usage: notespace register <name> [email]")
			os.Exit(1)
		}
		resp, err := client.Register(ctx, name, email)
		exitOnError(err)
		fmt.Printf("Signed in as %s (%s)\n", resp.DisplayName, resp.ID)

	case "signout":
		exitOnError(client.SignOut())
		fmt.Println("Signed out")

	case "whoami":
		user, err := client.Me(ctx)
		exitOnError(err)
		fmt.Printf("%s (%s)\n", user.FriendlyName(), user.ID)

	case "post":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: notespace post <text> [x y z]")
			os.Exit(1)
		}
		req := notespace.PostMessageRequest{Text: os.Args[2]}
		if len(os.Args) >= 6 {
			x, y, z := parseFloat(os.Args[3]), parseFloat(os.Args[4]), parseFloat(os.Args[5])
			req.Position = models.NewPoint(x, y, z)
		}
		resp, err := client.PostMessage(ctx, req)
		exitOnError(err)
		fmt.Printf("Posted: %s\n", resp.ID)

	case "delete":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: notespace delete <message_id>")
			os.Exit(1)
		}
		exitOnError(client.DeleteMessage(ctx, os.Args[2]))
		fmt.Println("Deleted")

	case "search":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: notespace search <query>")
			os.Exit(1)
		}
		resp, err := client.Search(ctx, os.Args[2], 20)
		exitOnError(err)
		for _, r := range resp.Results {
			fmt.Printf("[%s] %s: %s\n", r.MessageID, r.Author, r.Text)
		}

	case "who":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: notespace who <user_id>")
			os.Exit(1)
		}
		resp, err := client.Who(ctx, os.Args[2])
		exitOnError(err)
		printJSON(resp)

	case "explore":
		cancel()
		exitOnError(explore(client))

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func explore(client *notespace.Client) error {
	logger := zerolog.Nop()
	if path := os.Getenv("NOTESPACE_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return err
		}
		defer f.Close()
		logger = zerolog.New(f).With().Timestamp().Logger()
	}

	distance := math.NaN()
	if v := os.Getenv("NOTESPACE_NOTE_DISTANCE"); v != "" {
		distance = parseFloat(v)
	}

	m := tui.New(tui.Config{
		ClientID: uuid.NewString(),
		Backend:  client,
		Subscribe: func(ctx context.Context, clientID string) (tui.Feed, error) {
			feed, err := client.Subscribe(ctx, clientID)
			if err != nil {
				return nil, err
			}
			return feed, nil
		},
		Logger:       logger,
		NoteDistance: distance,
		AutoSignIn:   client.SignedIn(),
	})

	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.Close(ctx)
	return err
}

func usage() {
	fmt.Println(`Notespace CLI - drop notes in a shared space

Usage: notespace <command> [options]

Commands:
  register <name> [email]  Create an account (or update it) and save credentials
  signin                   Sign in with saved credentials
  signout                  Forget the signed-in user (keeps the key)
  whoami                   Show the signed-in user
  post <text> [x y z]      Drop a note, optionally at a position
  delete <message_id>      Remove one of your notes
  read                     List notes in order
  cursors                  List live cursors
  search <query>           Search notes
  who <user_id>            Get a user profile
  stats                    Show space statistics
  health                   Check server health
  explore                  Open the terminal explorer

Environment:
  NOTESPACE_URL            Server URL (default: http://localhost:8080)
  NOTESPACE_CONFIG         Config directory (default: ~/.notespace)
  NOTESPACE_NOTE_DISTANCE  How far ahead new notes are placed (default: 8)
  NOTESPACE_LOG            Explorer log file`)
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid number %q\n", s)
		os.Exit(1)
	}
	return f
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
