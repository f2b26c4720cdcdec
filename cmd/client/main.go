package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/joho/godotenv"

	"github.com/DarshikR/Chat-App/internal/client"
	"github.com/DarshikR/Chat-App/internal/domain"
	"github.com/DarshikR/Chat-App/pkg/logger"
)

type app struct {
	api     *client.API
	socket  *client.Socket
	session *client.Session
	selfID  string
	log     logger.Logger

	// contacts from the last fetch, display name -> user id
	contacts map[string]*domain.Contact
}

func main() {
	_ = godotenv.Load()

	baseURL := os.Getenv("CHAT_SERVER_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	a := &app{
		api:      client.NewAPI(baseURL),
		log:      logger.New("error"),
		contacts: make(map[string]*domain.Contact),
	}

	fmt.Println("Chat client. Type 'help' for commands.")

	p := prompt.New(
		a.execute,
		noCompleter,
		prompt.OptionPrefix("> "),
		prompt.OptionTitle("chat"),
	)
	p.Run()
}

func noCompleter(d prompt.Document) []prompt.Suggest {
	return []prompt.Suggest{}
}

func (a *app) execute(input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return
	}

	args := strings.Fields(input)
	switch strings.ToLower(args[0]) {
	case "register":
		a.register(args[1:])
	case "login":
		a.login(args[1:])
	case "contacts":
		a.listContacts()
	case "chat":
		a.chat(args[1:])
	case "help":
		fmt.Println("Commands:")
		fmt.Println("  register <email> <password> <display name>")
		fmt.Println("  login <email> <password>")
		fmt.Println("  contacts")
		fmt.Println("  chat <display name>")
		fmt.Println("  exit")
	case "exit":
		if a.socket != nil {
			a.socket.Close()
		}
		os.Exit(0)
	default:
		fmt.Println("Unknown command. Type 'help' for a list of commands.")
	}
}

func (a *app) register(args []string) {
	if len(args) < 3 {
		fmt.Println("Usage: register <email> <password> <display name>")
		return
	}

	user, err := a.api.Register(context.Background(), args[0], args[1], strings.Join(args[2:], " "))
	if err != nil {
		fmt.Println("Register failed:", err)
		return
	}
	fmt.Printf("Registered %s, now log in.\n", user.Email)
}

func (a *app) login(args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: login <email> <password>")
		return
	}

	user, err := a.api.Login(context.Background(), args[0], args[1])
	if err != nil {
		fmt.Println("Login failed:", err)
		return
	}
	a.selfID = user.ID.Hex()

	wsURL := os.Getenv("CHAT_WS_URL")
	if wsURL == "" {
		wsURL = "ws://localhost:8080/ws"
	}

	socket, err := client.DialSocket(wsURL, a.api.Token())
	if err != nil {
		fmt.Println("Failed to open event stream:", err)
		return
	}
	a.socket = socket
	a.session = client.NewSession(a.selfID, a.api, socket, a.log)

	fmt.Printf("Logged in as %s.\n", user.DisplayName)
}

func (a *app) listContacts() {
	if a.session == nil {
		fmt.Println("Log in first.")
		return
	}

	contacts, err := a.api.Contacts(context.Background())
	if err != nil {
		fmt.Println("Failed to fetch contacts:", err)
		return
	}

	a.contacts = make(map[string]*domain.Contact, len(contacts))
	online := 0
	for _, contact := range contacts {
		a.contacts[contact.DisplayName] = contact
		preview := ""
		if contact.LastMessage != nil {
			preview = contact.LastMessage.Text
			if preview == "" && contact.LastMessage.Image != "" {
				preview = "[image]"
			}
		}
		status := "offline"
		if a.session.Online(contact.ID.Hex()) {
			status = "online"
			online++
		}
		fmt.Printf("  %-20s %-8s %s\n", contact.DisplayName, status, preview)
	}
	fmt.Printf("%d of %d contacts online.\n", online, len(contacts))
}

// chat runs an interactive conversation loop until the user types
// /exit. Incoming pushes and typing state render from the session's
// update hook.
func (a *app) chat(args []string) {
	if a.session == nil {
		fmt.Println("Log in first.")
		return
	}
	if len(args) < 1 {
		fmt.Println("Usage: chat <display name>")
		return
	}

	name := strings.Join(args, " ")
	contact, ok := a.contacts[name]
	if !ok {
		a.listContacts()
		contact, ok = a.contacts[name]
		if !ok {
			fmt.Println("No such contact:", name)
			return
		}
	}

	peerID := contact.ID.Hex()
	rendered := 0
	a.session.OnUpdate = func() {
		history := a.session.History()
		if rendered > len(history) {
			rendered = 0
		}
		for _, msg := range history[rendered:] {
			ts := msg.CreatedAt.Local().Format("15:04")
			who := name
			if msg.SenderID == a.selfID {
				who = "you"
			}
			body := msg.Text
			if msg.Image != "" {
				body = strings.TrimSpace(body + " [image: " + msg.Image + "]")
			}
			fmt.Printf("\r[%s] %s: %s\n", ts, who, body)
			rendered++
		}
		if a.session.PeerTyping() {
			fmt.Printf("\r%s is typing...\n", name)
		}
	}

	a.session.Select(peerID)
	status := "offline"
	if a.session.Online(peerID) {
		status = "online"
	}
	fmt.Printf("Chatting with %s (%s). Type a message, or /exit to leave.\n", name, status)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("you: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)

		if line == "/exit" {
			break
		}
		if line == "" {
			continue
		}

		a.session.NotifyTyping()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err = a.session.Send(ctx, line, "")
		cancel()
		if err != nil {
			// Input stays in the terminal scrollback so the user can
			// resend it.
			fmt.Println("Send failed:", err)
		}
	}

	a.session.OnUpdate = nil
	a.session.Deselect()
}
