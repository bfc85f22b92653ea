package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ragchat/client"

	"github.com/fatih/color"
)

type chatRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
	Mode           string `json:"mode,omitempty"`
}

func main() {
	addr := flag.String("addr", "http://localhost:3000", "server base URL")
	format := flag.String("format", "sse", "wire format the server streams in (sse or json)")
	mode := flag.String("mode", "", "retrieval mode (light or rich)")
	remember := flag.Bool("remember", false, "persist the conversation on the server")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	httpClient := &http.Client{Timeout: 0}

	var conversationID string
	if *remember {
		id, err := createConversation(ctx, httpClient, *addr)
		if err != nil {
			color.Red("failed to create conversation: %s", err)
			os.Exit(1)
		}
		conversationID = id
	}

	wire := client.FormatSSE
	if *format == "json" || *format == "envelope" {
		wire = client.FormatEnvelope
	}

	printQuestions(ctx, httpClient, *addr)

	prompt := color.New(color.FgCyan, color.Bold)
	answer := color.New(color.FgGreen)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		prompt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "/quit" || question == "/exit" {
			break
		}

		if err := ask(ctx, httpClient, *addr, wire, chatRequest{
			Question:       question,
			ConversationID: conversationID,
			Mode:           *mode,
		}, answer); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			color.Red("\nerror: %s", err)
		}
		fmt.Println()
	}
}

func ask(ctx context.Context, httpClient *http.Client, addr string, wire client.Format, reqBody chatRequest, answer *color.Color) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/api/v1/chat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("server: %s", apiErr.Message)
		}
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	tw := client.NewTypewriter(color.Output, client.DefaultTypeInterval)
	defer tw.Stop()

	consumer := client.NewConsumer(wire)
	consumer.OnText = tw.Push

	answer.Set()
	defer color.Unset()

	if _, err := consumer.Consume(ctx, resp.Body); err != nil {
		return err
	}
	return tw.Wait(ctx)
}

func createConversation(ctx context.Context, httpClient *http.Client, addr string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/api/v1/conversations", nil)
	if err != nil {
		return "", err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	return payload.ID, nil
}

// printQuestions shows the server's starter questions, best effort.
func printQuestions(ctx context.Context, httpClient *http.Client, addr string) {
	reqCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, addr+"/api/v1/questions", nil)
	if err != nil {
		return
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	var payload struct {
		Questions []string `json:"questions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return
	}
	if len(payload.Questions) == 0 {
		return
	}
	color.Yellow("Try asking:")
	for _, q := range payload.Questions {
		color.Yellow("  - %s", q)
	}
	fmt.Println()
}
