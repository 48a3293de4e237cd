package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Mindburn-Labs/screenpilot/pkg/api"
	"github.com/Mindburn-Labs/screenpilot/pkg/llm"
	"github.com/Mindburn-Labs/screenpilot/pkg/predict"
	"github.com/Mindburn-Labs/screenpilot/pkg/prompt"
)

func runPredictCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("predict", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		image      string
		goal       string
		text       string
		configPath string
	)
	cmd.StringVar(&image, "image", "", "Screenshot file, http(s) URL or data URL (REQUIRED)")
	cmd.StringVar(&goal, "goal", "", "What the user wants to do (REQUIRED)")
	cmd.StringVar(&text, "text", "", "Optional screen text passed to the model")
	cmd.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "YAML config file")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if image == "" || goal == "" {
		fmt.Fprintln(stderr, "Error: --image and --goal are required")
		cmd.Usage()
		return 2
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	screenshot, err := screenshotArg(image)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	logger := newLogger(cfg, stderr)
	svc := predict.NewService(llm.NewOpenAIClient(cfg.LLM()), predict.WithLogger(logger))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Model.Timeout+5*time.Second)
	defer cancel()

	res, err := svc.Predict(ctx, prompt.Request{Screenshot: screenshot, Text: text, UserRequest: goal})
	if err != nil {
		fmt.Fprintf(stderr, "Prediction failed: %v\n", err)
		return 1
	}
	return writeJSON(stdout, stderr, res)
}

// screenshotArg passes URLs through and base64-encodes local files.
func screenshotArg(s string) (string, error) {
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return s, nil
	}
	data, err := os.ReadFile(s)
	if err != nil {
		return "", fmt.Errorf("read screenshot: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func runParseCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("parse", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	file := cmd.String("file", "", "Read the reply from this file instead of stdin")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	var (
		reply []byte
		err   error
	)
	if *file != "" {
		reply, err = os.ReadFile(*file)
	} else {
		reply, err = io.ReadAll(stdin)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error reading reply: %v\n", err)
		return 2
	}

	return writeJSON(stdout, stderr, predict.NewParser().Parse(string(reply)))
}

func runVocabCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("vocab", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	_, _ = fmt.Fprintln(stdout, prompt.SystemInstruction())
	return 0
}

func runHealthCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("health", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	url := cmd.String("url", "http://localhost:"+port+api.PathHealth, "Health endpoint")
	timeout := cmd.Duration("timeout", 5*time.Second, "Request timeout")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	client := &http.Client{Timeout: *timeout}
	resp, err := client.Get(*url)
	if err != nil {
		fmt.Fprintf(stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(stderr, "Health check failed: status %d\n", resp.StatusCode)
		return 1
	}

	var env api.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil || !env.Success {
		fmt.Fprintln(stderr, "Health check failed: unexpected response body")
		return 1
	}

	fmt.Fprintln(stdout, "OK")
	return 0
}

func writeJSON(stdout, stderr io.Writer, v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "Error encoding result: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(data))
	return 0
}
