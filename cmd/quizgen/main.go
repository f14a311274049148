package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/knowledgequest/quiz-engine/internal/config"
	"github.com/knowledgequest/quiz-engine/internal/material"
	"github.com/knowledgequest/quiz-engine/internal/question"
	"github.com/knowledgequest/quiz-engine/internal/question/ai"
)

// item is the direct-JSON shape accepted back by the quiz start route.
type item struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Hint        string   `json:"hint"`
	Explanation string   `json:"explanation"`
}

func main() {
	var (
		count   = flag.Int("count", 0, "Number of questions to generate (0 uses AI_DEFAULT_COUNT)")
		model   = flag.String("model", "", "Model name (empty uses AI_DEFAULT_MODEL)")
		out     = flag.String("out", "", "Write the question set here instead of stdout")
		timeout = flag.Duration("timeout", 3*time.Minute, "Overall deadline")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [file ...]\nReads stdin when no file is given or a file is \"-\".\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load("configs/.env")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	input, err := readInput(ctx, flag.Args(), cfg.Material.Workers)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read input")
	}

	var completer question.Completer
	if cfg.AI.Enabled() {
		completer = ai.NewClient(ai.Config{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Timeout:     cfg.AI.HTTPTimeout,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
		}, log.Logger)
	}
	svc := question.NewService(completer, nil, nil, question.ServiceOptions{
		DefaultModel:  cfg.AI.DefaultModel,
		DefaultCount:  cfg.AI.DefaultCount,
		MaxInputChars: cfg.AI.MaxInputChars,
	}, log.Logger)

	outcome, err := svc.Obtain(ctx, question.ObtainRequest{Input: input, Count: *count, Model: *model})
	if err != nil {
		log.Fatal().Err(err).Msg("could not build a question set")
	}
	for _, w := range outcome.Warnings {
		log.Warn().Msg(w)
	}
	for _, n := range outcome.Notices {
		log.Info().Msg(n)
	}

	items := make([]item, len(outcome.Questions))
	for i, q := range outcome.Questions {
		items[i] = item{Question: q.Question, Options: q.Options, Correct: q.Correct, Hint: q.Hint, Explanation: q.Explanation}
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatal().Err(err).Str("path", *out).Msg("failed to create output file")
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		log.Fatal().Err(err).Msg("failed to write question set")
	}
	log.Info().Str("source", string(outcome.Source)).Int("questions", len(items)).Msg("question set written")
}

// readInput gathers text from files (through the extractors) and stdin.
func readInput(ctx context.Context, args []string, workers int) (string, error) {
	if len(args) == 0 {
		args = []string{"-"}
	}

	var (
		parts []string
		files []material.File
	)
	for _, arg := range args {
		if arg == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return "", fmt.Errorf("read stdin: %w", err)
			}
			if text := strings.TrimSpace(string(data)); text != "" {
				parts = append(parts, text)
			}
			continue
		}
		data, err := os.ReadFile(arg)
		if err != nil {
			return "", err
		}
		files = append(files, material.File{Name: filepath.Base(arg), Data: data})
	}

	if len(files) > 0 {
		results := material.NewRegistry(nil, log.Logger).ExtractAll(ctx, files, workers)
		for _, msg := range material.Failed(results) {
			log.Warn().Msg(msg)
		}
		if combined := material.Combine(results); combined != "" {
			parts = append(parts, combined)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
