// Package analyze extracts text from uploaded documents and asks the model for a
// summary, tags, category and topics. Analysis always answers; only an undecodable
// upload is rejected.
package analyze

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/safeboy/safeboy/internal/infra/llm"
	"github.com/safeboy/safeboy/internal/infra/logger"
	"github.com/safeboy/safeboy/internal/infra/metrics"
)

// MaxTextRunes bounds both the returned extracted text and the excerpt sent to the model.
const MaxTextRunes = 5000

const (
	analysisTemperature = 0.3
	analysisMaxTokens   = 500
	fallbackCategory    = "Segurança do Trabalho"
)

// ErrInvalidFile is returned when the upload is not valid base64.
var ErrInvalidFile = errors.New("file is not valid base64")

const analysisSystemPrompt = `Você é um especialista em segurança do trabalho que organiza bases de conhecimento. ` +
	`Analise o documento e responda SOMENTE com um objeto JSON no formato ` +
	`{"summary": "resumo em até 3 frases", "tags": ["até 5 tags"], "category": "categoria sugerida", "topics": ["principais tópicos"]}.`

type Input struct {
	File     string `json:"file"`
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
}

// Result is the analysis payload. Fallback marks the hard-coded answer.
type Result struct {
	ExtractedText string   `json:"extractedText"`
	Summary       string   `json:"summary"`
	Tags          []string `json:"tags"`
	Category      string   `json:"category"`
	Topics        []string `json:"topics"`
	Fallback      bool     `json:"fallback"`
}

type Analyzer struct {
	llm llm.LLMProvider
}

func NewAnalyzer(provider llm.LLMProvider) *Analyzer {
	return &Analyzer{llm: provider}
}

// Analyze decodes, extracts and analyzes in. Everything past decoding degrades to the
// fallback result.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*Result, error) {
	data, err := decode(in.File)
	if err != nil {
		return nil, ErrInvalidFile
	}
	log := logger.Get().With().Str("file_name", in.FileName).Logger()

	kind := DetectKind(in.FileType, in.FileName)
	text, err := Extract(kind, data)
	if err != nil {
		log.Info().Err(err).Str("kind", string(kind)).Msg("text extraction unavailable")
		text = fmt.Sprintf("[Extração de texto indisponível para %s (%s)]", in.FileName, in.FileType)
	}
	text = Truncate(text, MaxTextRunes)

	started := time.Now()
	resp, err := a.llm.ChatCompletion(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: analysisSystemPrompt},
			{Role: llm.RoleUser, Content: "Arquivo: " + in.FileName + "\n\nConteúdo:\n" + text},
		},
		Temperature: analysisTemperature,
		MaxTokens:   analysisMaxTokens,
	})
	metrics.ObserveLLMCall("analyzer", started, err)
	if err != nil {
		log.Warn().Err(err).Msg("document analysis failed, returning fallback")
		return fallback(in.FileName, text), nil
	}

	res, err := parseAnalysis(resp.Content)
	if err != nil {
		log.Warn().Err(err).Msg("document analysis unparseable, returning fallback")
		return fallback(in.FileName, text), nil
	}
	res.ExtractedText = text
	return res, nil
}

// decode accepts plain base64 or a data: URL.
func decode(file string) ([]byte, error) {
	file = strings.TrimSpace(file)
	if strings.HasPrefix(file, "data:") {
		if i := strings.Index(file, ","); i >= 0 {
			file = file[i+1:]
		}
	}
	if file == "" {
		return nil, ErrInvalidFile
	}
	data, err := base64.StdEncoding.DecodeString(file)
	if err != nil {
		return base64.RawStdEncoding.DecodeString(strings.TrimRight(file, "="))
	}
	return data, nil
}

func parseAnalysis(raw string) (*Result, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	if i, j := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); i >= 0 && j > i {
		raw = raw[i : j+1]
	}

	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	res.Summary = strings.TrimSpace(res.Summary)
	if res.Summary == "" {
		return nil, errors.New("analysis has no summary")
	}
	res.Tags = nonEmpty(res.Tags)
	res.Topics = nonEmpty(res.Topics)
	if strings.TrimSpace(res.Category) == "" {
		res.Category = fallbackCategory
	}
	res.Fallback = false
	return &res, nil
}

func fallback(fileName, text string) *Result {
	metrics.AnalysisFallbacksTotal.Inc()
	return &Result{
		ExtractedText: text,
		Summary:       "Documento " + fileName + " carregado. A análise automática não está disponível no momento; revise o conteúdo manualmente.",
		Tags:          []string{"documento", "segurança"},
		Category:      fallbackCategory,
		Topics:        []string{},
		Fallback:      true,
	}
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
