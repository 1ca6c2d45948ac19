package service

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cloo-solutions/gistify/internal/domain"
	"github.com/cloo-solutions/gistify/internal/logger"
	"github.com/cloo-solutions/gistify/internal/metrics"
)

// Generator produces text for a prompt. Errors signal a failed call; no retry happens here.
type Generator interface {
	Generate(ctx context.Context, prompt string, params domain.DecodingParams) (string, error)
}

// DecodingProfiles maps each task band to its decoding parameters.
type DecodingProfiles struct {
	Concise       domain.DecodingParams `yaml:"concise"`
	Analytical    domain.DecodingParams `yaml:"analytical"`
	Comprehensive domain.DecodingParams `yaml:"comprehensive"`
	Default       domain.DecodingParams `yaml:"default"`
	SummaryQA     domain.DecodingParams `yaml:"summary_qa"`
	GenericQA     domain.DecodingParams `yaml:"generic_qa"`
	Points        domain.DecodingParams `yaml:"points"`
	Extend        domain.DecodingParams `yaml:"extend"`
}

func DefaultDecodingProfiles() DecodingProfiles {
	concise := domain.DecodingParams{
		MinWords: 250, MaxWords: 500, NumBeams: 5, Temperature: 0.6, DoSample: true,
		LengthPenalty: 1.0, NoRepeatNgramSize: 3,
	}
	analytical := concise
	analytical.MinWords, analytical.MaxWords = 400, 600
	comprehensive := concise
	comprehensive.MinWords, comprehensive.MaxWords = 500, 700

	return DecodingProfiles{
		Concise:       concise,
		Analytical:    analytical,
		Comprehensive: comprehensive,
		Default:       concise,
		SummaryQA: domain.DecodingParams{
			MinWords: 150, MaxWords: 300, NumBeams: 4, Temperature: 0.7, DoSample: true,
			LengthPenalty: 1.0, NoRepeatNgramSize: 3,
		},
		GenericQA: domain.DecodingParams{
			MinWords: 50, MaxWords: 400, NumBeams: 3, Temperature: 0.9, DoSample: true,
			LengthPenalty: 1.0, NoRepeatNgramSize: 3,
		},
		Points: domain.DecodingParams{
			MinWords: 20, MaxWords: 80, NumBeams: 4, Temperature: 0.7, DoSample: true,
			LengthPenalty: 1.0, NoRepeatNgramSize: 3,
		},
		Extend: domain.DecodingParams{
			MinWords: 100, MaxWords: 300, NumBeams: 4, Temperature: 0.7, DoSample: true,
			LengthPenalty: 1.0, NoRepeatNgramSize: 3,
		},
	}
}

// LoadDecodingProfiles overlays a YAML file onto the defaults. Bands missing from the file keep their defaults.
func LoadDecodingProfiles(path string) (DecodingProfiles, error) {
	profiles := DefaultDecodingProfiles()
	if path == "" {
		return profiles, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return profiles, fmt.Errorf("read decoding profiles: %w", err)
	}
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return profiles, fmt.Errorf("parse decoding profiles: %w", err)
	}
	return profiles, nil
}

// GenerationController picks decoding parameters for a query and performs single generator calls.
type GenerationController struct {
	generator Generator
	profiles  DecodingProfiles
	metrics   *metrics.Metrics
}

func NewGenerationController(generator Generator, profiles DecodingProfiles, m *metrics.Metrics) *GenerationController {
	return &GenerationController{generator: generator, profiles: profiles, metrics: m}
}

func (c *GenerationController) Params(q domain.Query) domain.DecodingParams {
	switch q.Task {
	case domain.TaskSummary:
		switch q.SummaryType {
		case domain.SummaryConcise:
			return c.profiles.Concise
		case domain.SummaryAnalytical:
			return c.profiles.Analytical
		case domain.SummaryComprehensive:
			return c.profiles.Comprehensive
		default:
			return c.profiles.Default
		}
	case domain.TaskAdvantage, domain.TaskDisadvantage:
		return c.profiles.Points
	default:
		if isSummaryQuestion(q.Text) {
			return c.profiles.SummaryQA
		}
		return c.profiles.GenericQA
	}
}

func (c *GenerationController) ExtendParams() domain.DecodingParams {
	return c.profiles.Extend
}

// Generate performs exactly one generator call and records its outcome.
func (c *GenerationController) Generate(ctx context.Context, mode domain.GenerationMode, prompt string, params domain.DecodingParams) (string, error) {
	text, err := c.generator.Generate(ctx, prompt, params)
	if err != nil {
		c.metrics.GenerationCall(string(mode), "error")
		logger.FromContext(ctx).Warn("generation failed", "mode", mode, "error", err)
		return "", fmt.Errorf("generate (%s): %w", mode, err)
	}
	c.metrics.GenerationCall(string(mode), "ok")
	return text, nil
}
