package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ai-chat/internal/app"
	"ai-chat/internal/config"
	"ai-chat/internal/llm"
	"ai-chat/internal/service"
)

const cliUserID = "cli_local"

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	messageRepo, closeStore, err := app.OpenMessageStore(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()

	router := llm.NewRouter(logger, llm.NewProvidersFromConfig(cfg, logger)...)
	historySvc := service.NewHistoryService(messageRepo, logger)
	chatSvc := service.NewChatService(router, historySvc, nil, cfg.FallbackText, logger)

	s := &session{
		out:     os.Stdout,
		chat:    chatSvc,
		history: historySvc,
		router:  router,
	}

	fmt.Println("---- Chat (escribe /quit para salir) ----")
	for {
		fmt.Print("Tu > ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Println()
			return
		}
		if !s.handle(ctx, strings.TrimSpace(line)) {
			fmt.Println("Saliendo del chat...")
			return
		}
	}
}

// session guarda la conversacion y el proveedor elegidos en la terminal.
type session struct {
	out     io.Writer
	chat    *service.ChatService
	history *service.HistoryService
	router  *llm.Router

	conversationID string
	provider       string
	model          string
}

// handle procesa una linea; devuelve false cuando hay que salir.
func (s *session) handle(ctx context.Context, line string) bool {
	if line == "" {
		return true
	}
	if !strings.HasPrefix(line, "/") {
		s.send(ctx, line)
		return true
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return false
	case "/new":
		s.conversationID = ""
		fmt.Fprintln(s.out, "Nueva conversacion.")
	case "/list":
		s.list(ctx)
	case "/history":
		s.showHistory(ctx)
	case "/use":
		s.use(fields[1:])
	case "/providers":
		for _, p := range s.router.Providers() {
			fmt.Fprintf(s.out, "- %s (%s) disponible=%t\n", p.Name, p.DefaultModel, p.Available)
		}
	case "/delete":
		if len(fields) < 2 {
			fmt.Fprintln(s.out, "Uso: /delete <conversation_id>")
			return true
		}
		if s.history.DeleteConversation(ctx, cliUserID, fields[1]) {
			if fields[1] == s.conversationID {
				s.conversationID = ""
			}
			fmt.Fprintln(s.out, "Conversacion eliminada.")
		} else {
			fmt.Fprintln(s.out, "No se pudo eliminar la conversacion.")
		}
	default:
		fmt.Fprintln(s.out, "Comandos: /new /list /history /use <proveedor> [modelo] /providers /delete <id> /quit")
	}
	return true
}

func (s *session) send(ctx context.Context, text string) {
	in := service.SendInput{
		Message:        text,
		ConversationID: s.conversationID,
		Provider:       s.provider,
		Model:          s.model,
	}

	fmt.Fprint(s.out, "IA > ")
	resp, err := s.chat.StreamMessage(ctx, cliUserID, in, func(chunk string) error {
		_, err := fmt.Fprint(s.out, chunk)
		return err
	})
	fmt.Fprintln(s.out)
	if err != nil {
		fmt.Fprintf(s.out, "error enviando mensaje: %v\n", err)
		return
	}
	s.conversationID = resp.ConversationID
	fmt.Fprintf(s.out, "[%s/%s]\n", resp.Provider, resp.Model)
}

func (s *session) list(ctx context.Context) {
	conversations := s.history.GetConversationList(ctx, cliUserID)
	if len(conversations) == 0 {
		fmt.Fprintln(s.out, "No hay conversaciones.")
		return
	}
	for _, c := range conversations {
		marker := " "
		if c.ConversationID == s.conversationID {
			marker = "*"
		}
		fmt.Fprintf(s.out, "%s %s (%d mensajes) %s\n", marker, c.ConversationID, c.MessageCount, preview(c.LastMessage, 40))
	}
}

func (s *session) showHistory(ctx context.Context) {
	if s.conversationID == "" {
		fmt.Fprintln(s.out, "No hay conversacion activa.")
		return
	}
	for _, m := range s.history.GetHistory(ctx, cliUserID, s.conversationID) {
		fmt.Fprintf(s.out, "[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04:05"), m.Role, m.Content)
	}
}

func (s *session) use(args []string) {
	switch len(args) {
	case 0:
		s.provider, s.model = "", ""
		fmt.Fprintln(s.out, "Proveedor automatico.")
		return
	case 1:
		s.provider, s.model = strings.ToLower(args[0]), ""
	default:
		s.provider, s.model = strings.ToLower(args[0]), args[1]
	}
	fmt.Fprintf(s.out, "Proveedor preferido: %s %s\n", s.provider, s.model)
}

func preview(text string, max int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "..."
}
