package main

// Generate an application kit from local files without the HTTP server:
//   go run ./cmd/kitgen --cv cv.pdf --jd job.txt --formality formal

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"applykit-backend/internal/extract"
	"applykit-backend/internal/generation"
	"applykit-backend/internal/jobmeta"
	"applykit-backend/internal/llm"
	"applykit-backend/internal/llm/openai"
	"applykit-backend/internal/shared/config"
	"applykit-backend/internal/shared/telemetry"
	"applykit-backend/resume/model"
)

type output struct {
	JobTitle      string                 `json:"jobTitle"`
	Company       string                 `json:"company"`
	Formality     generation.Formality   `json:"formality"`
	CoverLetter   string                 `json:"coverLetter"`
	FollowUpEmail string                 `json:"followUpEmail"`
	Resume        model.StructuredResume `json:"resume"`
	ResumeParsed  bool                   `json:"resumeParsed"`
	ElapsedMs     int64                  `json:"elapsedMs"`
}

func main() {
	cfg := config.Load()
	telemetry.Init(cfg.LogLevel, "console")

	cvPath := pflag.StringP("cv", "c", "", "Path to CV file (pdf, docx or txt)")
	jdPath := pflag.StringP("jd", "j", "", "Path to job description text file")
	formalityRaw := pflag.StringP("formality", "f", "neutral", "Formality: informal|casual|neutral|formal|professional or 1..5")
	outPath := pflag.StringP("out", "o", "", "Path to write JSON output (default stdout)")
	modelName := pflag.String("model", cfg.LLMModel, "LLM model")
	timeout := pflag.Duration("timeout", cfg.GenerationTimeout, "Per-call timeout")
	pflag.Parse()

	if strings.TrimSpace(*cvPath) == "" || strings.TrimSpace(*jdPath) == "" {
		pflag.Usage()
		exitErr("--cv and --jd are required")
	}

	formality, err := generation.ParseFormality(*formalityRaw)
	if err != nil {
		exitErr(err.Error())
	}

	cvText, err := readCV(*cvPath)
	if err != nil {
		exitErr(err.Error())
	}
	jdBytes, err := os.ReadFile(*jdPath)
	if err != nil {
		exitErr(fmt.Sprintf("read job description: %v", err))
	}

	transport, err := openai.NewTransport(openai.Options{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   *modelName,
		BaseURL: cfg.LLMBaseURL,
		Timeout: cfg.LLMTimeout,
	})
	if err != nil {
		exitErr(err.Error())
	}
	client := llm.NewClient(transport)

	ctx := context.Background()
	start := time.Now()

	md, err := jobmeta.NewExtractor(client).Extract(ctx, string(jdBytes))
	if err != nil {
		exitErr(fmt.Sprintf("extract job metadata: %v", err))
	}

	content, err := generation.NewOrchestrator(client, generation.WithCallTimeout(*timeout)).Generate(ctx, generation.Input{
		CV:             cvText,
		JobDescription: string(jdBytes),
		Formality:      formality,
	})
	if err != nil {
		exitErr(fmt.Sprintf("generate: %v", err))
	}

	resume := model.Coerce(content.Resume)
	out := output{
		JobTitle:      md.JobTitle,
		Company:       md.Company,
		Formality:     formality,
		CoverLetter:   content.CoverLetter,
		FollowUpEmail: content.FollowUpEmail,
		Resume:        resume,
		ResumeParsed:  resume.Parsed,
		ElapsedMs:     time.Since(start).Milliseconds(),
	}

	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		exitErr(fmt.Sprintf("encode output: %v", err))
	}
	if strings.TrimSpace(*outPath) == "" {
		fmt.Println(string(payload))
		return
	}
	if err := os.WriteFile(*outPath, payload, 0o644); err != nil {
		exitErr(fmt.Sprintf("write output: %v", err))
	}
	fmt.Printf("wrote %s\n", *outPath)
}

func readCV(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read cv: %w", err)
	}
	name := filepath.Base(path)
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	text, err := extract.ExtractTextFromBytes(context.Background(), data, mimeType, name)
	if err != nil {
		return "", fmt.Errorf("extract cv text: %w", err)
	}
	return text, nil
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
