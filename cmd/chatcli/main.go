package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Frame is the loose shape of anything the gateway sends
type Frame struct {
	Type      string          `json:"type"`
	ProjectID uint            `json:"projectId,omitempty"`
	Code      string          `json:"code,omitempty"`
	Message   json.RawMessage `json:"message,omitempty"`
	Messages  json.RawMessage `json:"messages,omitempty"`
}

type attachment struct {
	URL          string `json:"url"`
	Kind         string `json:"kind"`
	OriginalName string `json:"originalName"`
}

type outbound struct {
	Type       string      `json:"type"`
	ProjectID  uint        `json:"projectId"`
	Text       string      `json:"text,omitempty"`
	Attachment *attachment `json:"attachment,omitempty"`
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "Server base URL")
	token := flag.String("token", os.Getenv("CHAT_TOKEN"), "Bearer token (defaults to $CHAT_TOKEN)")
	projectID := flag.Uint("project", 0, "Project room to join")
	text := flag.String("send", "", "Publish this text and exit")
	file := flag.String("file", "", "Upload this file and attach it to the published message")
	listen := flag.Bool("listen", false, "Stay connected and print every frame")
	history := flag.Bool("history", false, "Print the project history over REST and exit")
	flag.Parse()

	if *projectID == 0 || (*text == "" && *file == "" && !*listen && !*history) {
		fmt.Println("Chat client usage:")
		fmt.Println("  -project N     Project room (required)")
		fmt.Println("  -history       Print stored messages")
		fmt.Println("  -send TEXT     Publish a message")
		fmt.Println("  -file PATH     Upload PATH and attach it")
		fmt.Println("  -listen        Print live frames until Ctrl+C")
		os.Exit(0)
	}

	pid := uint(*projectID)

	if *history {
		if err := printHistory(*baseURL, *token, pid); err != nil {
			log.Fatalf("History failed: %v", err)
		}
		return
	}

	var att *attachment
	if *file != "" {
		uploaded, err := uploadFile(*baseURL, *token, *file)
		if err != nil {
			log.Fatalf("Upload failed: %v", err)
		}
		log.Printf("Uploaded %s as %s (%s)", uploaded.OriginalName, uploaded.URL, uploaded.Kind)
		att = uploaded
	}

	conn, err := dial(*baseURL, *token)
	if err != nil {
		log.Fatalf("Error connecting to WebSocket: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(outbound{Type: "join", ProjectID: pid}); err != nil {
		log.Fatalf("Join failed: %v", err)
	}

	if *text != "" || att != nil {
		if err := conn.WriteJSON(outbound{Type: "publish", ProjectID: pid, Text: *text, Attachment: att}); err != nil {
			log.Fatalf("Publish failed: %v", err)
		}
	}

	if !*listen {
		// wait for our own delivery (or an error) before leaving
		awaitDelivery(conn, 5*time.Second)
		return
	}

	runListener(conn)
}

func dial(baseURL, token string) (*websocket.Conn, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/ws"
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	return conn, err
}

func awaitDelivery(conn *websocket.Conn, timeout time.Duration) {
	conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			log.Printf("No delivery received: %v", err)
			return
		}
		printFrame(f)
		if f.Type == "delivered" || f.Type == "error" {
			return
		}
	}
}

func runListener(conn *websocket.Conn) {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var f Frame
			if err := conn.ReadJSON(&f); err != nil {
				log.Printf("WebSocket read error: %v", err)
				return
			}
			printFrame(f)
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	log.Println("Listening. Press Ctrl+C to exit...")
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
				log.Printf("Error writing ping: %v", err)
				return
			}
		case <-interrupt:
			err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Printf("Error during closing websocket: %v", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}

func printFrame(f Frame) {
	switch f.Type {
	case "delivered":
		log.Printf("message: %s", f.Message)
	case "history":
		log.Printf("history for project %d: %s", f.ProjectID, f.Messages)
	case "error":
		log.Printf("error %s: %s", f.Code, f.Message)
	default:
		log.Printf("%s project=%d", f.Type, f.ProjectID)
	}
}

func printHistory(baseURL, token string, projectID uint) error {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/v1/messages/%d", baseURL, projectID), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error response: %s, status: %d", string(body), resp.StatusCode)
	}
	fmt.Println(string(body))
	return nil
}

func uploadFile(baseURL, token, path string) (*attachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("error creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("error copying file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("error closing writer: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/upload", body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("error response: %s, status: %d", string(b), resp.StatusCode)
	}

	var result struct {
		FileURL      string `json:"fileUrl"`
		FileType     string `json:"fileType"`
		OriginalName string `json:"originalName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}

	return &attachment{URL: result.FileURL, Kind: result.FileType, OriginalName: result.OriginalName}, nil
}
