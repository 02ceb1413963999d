// Command scanner is a standalone scanning station: it feeds frames from a
// directory of still images through the capture loop and submits every
// detected QR payload to the API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mayukhjana/ticket-stamp-scan-track/internal/capture"
	"github.com/mayukhjana/ticket-stamp-scan-track/internal/clock"
	"github.com/mayukhjana/ticket-stamp-scan-track/internal/qr"
)

const defaultAPIURL = "http://localhost:8080"
const submitTimeout = 5 * time.Second

func main() {
	logger := log.Default()

	if err := godotenv.Load(); err != nil {
		logger.Printf("WARN: no .env file loaded: %v", err)
	}

	apiURL := os.Getenv("SCANNER_API_URL")
	if apiURL == "" {
		logger.Printf("WARN: SCANNER_API_URL not set, using default %s", defaultAPIURL)
		apiURL = defaultAPIURL
	}
	apiURL = strings.TrimRight(apiURL, "/")

	token := os.Getenv("SCANNER_TOKEN")
	if token == "" {
		log.Fatal("SCANNER_TOKEN must be set")
	}

	framesDir := os.Getenv("SCANNER_FRAMES_DIR")
	if framesDir == "" {
		log.Fatal("SCANNER_FRAMES_DIR must be set")
	}

	source, err := newDirSource(framesDir)
	if err != nil {
		log.Fatalf("load frames from %s: %v", framesDir, err)
	}
	logger.Printf("loaded %d frames from %s", source.len(), framesDir)

	var opts []capture.LoopOption
	if raw := os.Getenv("SCANNER_DEBOUNCE_MS"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			logger.Printf("WARN: ignoring invalid SCANNER_DEBOUNCE_MS %q", raw)
		} else {
			opts = append(opts, capture.WithDebounceWindow(time.Duration(ms)*time.Millisecond))
		}
	}
	if os.Getenv("SCANNER_STOP_ON_DETECT") == "true" {
		opts = append(opts, capture.WithStopOnDetect(true))
	}

	submitter := &scanSubmitter{
		apiURL: apiURL,
		token:  token,
		client: &http.Client{Timeout: submitTimeout},
		logger: logger,
	}

	loop := capture.NewLoop(source, qr.NewImageDecoder(), clock.NewSystem(), submitter.submit, opts...)
	loop.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Printf("scanner running against %s", apiURL)
	capture.NewRunner(loop, capture.DefaultTickInterval).Run(ctx)
	logger.Printf("scanner stopped")
}

// dirSource cycles through pre-decoded RGBA frames, one per tick.
type dirSource struct {
	mu     sync.Mutex
	frames []capture.Frame
	next   int
}

func newDirSource(dir string) (*dirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	s := &dirSource{}
	for _, name := range names {
		frame, err := loadFrame(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		s.frames = append(s.frames, frame)
	}
	if len(s.frames) == 0 {
		return nil, fmt.Errorf("no PNG or JPEG frames in %s", dir)
	}
	return s, nil
}

func loadFrame(path string) (capture.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return capture.Frame{}, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return capture.Frame{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)

	return capture.Frame{
		Pix:    rgba.Pix,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

func (s *dirSource) Frame() (capture.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return capture.Frame{}, false
	}
	frame := s.frames[s.next]
	s.next = (s.next + 1) % len(s.frames)
	return frame, true
}

func (s *dirSource) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

type scanSubmitter struct {
	apiURL string
	token  string
	client *http.Client
	logger *log.Logger
}

type submitRequest struct {
	Payload string `json:"payload"`
}

type submitResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// submit is the loop's detection callback. Failures are logged, not
// retried; the debounce window has already passed by the time the same
// code would fire again.
func (s *scanSubmitter) submit(payload string) {
	body, err := json.Marshal(submitRequest{Payload: payload})
	if err != nil {
		s.logger.Printf("WARN: encode scan payload: %v", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, s.apiURL+"/scans", bytes.NewReader(body))
	if err != nil {
		s.logger.Printf("WARN: build scan request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Printf("WARN: submit scan: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		s.logger.Printf("WARN: scan rejected with status %d", resp.StatusCode)
		return
	}

	var result submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		s.logger.Printf("WARN: decode scan response: %v", err)
		return
	}
	s.logger.Printf("scan %s: %s", result.Status, result.Message)
}
