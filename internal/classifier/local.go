package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/quantpulse/jumpsent/internal/models"
)

const (
	defaultModelDir  = "./models"
	defaultModelName = "koheiduck/bert-japanese-finetuned-sentiment"
)

// Local runs sentiment classification in-process through an ONNX runtime
// session. The model is downloaded on first use. Local is not safe for
// concurrent Classify calls; wrap it with Serialize when sharing it
// across workers.
type Local struct {
	session   *hugot.Session
	pipeline  *pipelines.TextClassificationPipeline
	maxLength int
}

func NewLocal(modelDir, modelName string) (*Local, error) {
	if modelDir == "" {
		modelDir = defaultModelDir
	}
	if modelName == "" {
		modelName = defaultModelName
	}

	if err := os.MkdirAll(modelDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("[LocalClassifier] failed to create model directory: %w", err)
	}

	modelPath := filepath.Join(modelDir, strings.ReplaceAll(modelName, "/", "_"))
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		slog.Info("[LocalClassifier] Model not found, downloading...",
			slog.String("model", modelName))
		downloaded, err := hugot.DownloadModel(modelName, modelDir, hugot.NewDownloadOptions())
		if err != nil {
			return nil, fmt.Errorf("[LocalClassifier] failed to download model: %w", err)
		}
		modelPath = downloaded
		slog.Info("[LocalClassifier] Model downloaded successfully",
			slog.String("path", modelPath))
	} else {
		slog.Info("[LocalClassifier] Using existing model",
			slog.String("path", modelPath))
	}

	session, err := hugot.NewORTSession()
	if err != nil {
		return nil, fmt.Errorf("[LocalClassifier] failed to initialize ONNX session: %w", err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "sentimentClassificationPipeline",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		session.Destroy()
		return nil, fmt.Errorf("[LocalClassifier] failed to initialize pipeline: %w", err)
	}

	return &Local{
		session:   session,
		pipeline:  pipeline,
		maxLength: DefaultMaxLength,
	}, nil
}

func (l *Local) Classify(_ context.Context, text string) (models.Probabilities, error) {
	output, err := l.pipeline.RunPipeline([]string{Truncate(text, l.maxLength)})
	if err != nil {
		return models.Probabilities{}, fmt.Errorf("inference failed: %w", err)
	}
	if len(output.ClassificationOutputs) == 0 || len(output.ClassificationOutputs[0]) == 0 {
		return models.Probabilities{}, errors.New("classifier returned no scores")
	}
	return foldLabelScores(output.ClassificationOutputs[0])
}

func (l *Local) Close() {
	l.session.Destroy()
}

// foldLabelScores collapses a model's label scores into the
// negative/neutral/positive triple and renormalizes. Five-class
// star-rating models fold into the same shape: one and two stars count as
// negative, three as neutral, four and five as positive.
func foldLabelScores(scores []pipelines.ClassificationOutput) (models.Probabilities, error) {
	var p models.Probabilities
	for _, s := range scores {
		switch strings.ToLower(s.Label) {
		case "negative", "neg", "label_0", "1 star", "2 stars":
			p.Negative += float64(s.Score)
		case "neutral", "neu", "label_1", "3 stars":
			p.Neutral += float64(s.Score)
		case "positive", "pos", "label_2", "4 stars", "5 stars":
			p.Positive += float64(s.Score)
		default:
			return models.Probabilities{}, fmt.Errorf("unexpected label %q", s.Label)
		}
	}

	sum := p.Sum()
	if sum <= 0 {
		return models.Probabilities{}, errors.New("label scores sum to zero")
	}
	p.Negative /= sum
	p.Neutral /= sum
	p.Positive /= sum
	return p, nil
}
