package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"outliner/internal/domain"
)

// Classifier is the external boundary classifier consulted when the rule
// phase is insufficient. It receives the full text and returns the raw
// model output; the detector owns parsing and recovery.
type Classifier interface {
	ClassifyBoundaries(ctx context.Context, text string) (string, error)
}

// Options controls one detection call.
type Options struct {
	// SubdivideMode makes a single rule-phase position (i.e. no internal
	// split found) trigger the classifier fallback, used when subdividing
	// an existing segment.
	SubdivideMode bool
}

// Detector produces candidate segment-start offsets for a text: a sorted,
// deduplicated list of rune offsets that always includes 0 and never
// exceeds the text's rune length.
type Detector struct {
	registry   *Registry
	classifier Classifier
	timeout    time.Duration
	logger     *slog.Logger
}

// NewDetector creates a detector. A nil classifier disables the fallback;
// rule-phase failures then surface as detection failures.
func NewDetector(registry *Registry, classifier Classifier, timeout time.Duration, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Detector{
		registry:   registry,
		classifier: classifier,
		timeout:    timeout,
		logger:     logger,
	}
}

// Detect runs the rule phase and, when it yields nothing (or only the
// trivial position in subdivide mode), falls back to the classifier.
func (d *Detector) Detect(ctx context.Context, text string, opts Options) ([]int, error) {
	runeLen := utf8.RuneCountInString(text)

	positions := d.registry.Match(text)
	if len(positions) > 0 {
		offsets := normalize(positions, runeLen)
		if !opts.SubdivideMode || len(offsets) > 1 {
			return offsets, nil
		}
		// A single offset on a subdivision means the rules found no
		// internal split; ask the classifier instead.
		d.logger.Debug("rule phase found no internal boundary, falling back to classifier",
			"text_runes", runeLen)
	}

	return d.detectFallback(ctx, text, runeLen)
}

func (d *Detector) detectFallback(ctx context.Context, text string, runeLen int) ([]int, error) {
	if d.classifier == nil {
		return nil, fmt.Errorf("no classifier configured: %w", domain.ErrDetectionFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	raw, err := d.classifier.ClassifyBoundaries(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("classifier: %v: %w", err, domain.ErrDetectionFailed)
	}

	positions, err := parseClassifierOutput(raw)
	if err != nil {
		return nil, fmt.Errorf("parse classifier output: %v: %w", err, domain.ErrDetectionFailed)
	}

	return normalize(positions, runeLen), nil
}

// normalize applies the shared post-processing: insert 0 if absent,
// deduplicate, sort ascending, drop anything beyond the text length.
func normalize(positions []int, runeLen int) []int {
	seen := map[int]bool{0: true}
	offsets := []int{0}
	for _, p := range positions {
		if p < 0 || p > runeLen || seen[p] {
			continue
		}
		seen[p] = true
		offsets = append(offsets, p)
	}
	sort.Ints(offsets)
	return offsets
}

var arrayPattern = regexp.MustCompile(`\[[\d\s,]+\]`)

// parseClassifierOutput accepts the structured shapes the classifier is
// instructed to return — {"starting_positions": [...]} or a bare array —
// and recovers from free-form output by extracting the first array-shaped
// substring.
func parseClassifierOutput(raw string) ([]int, error) {
	trimmed := strings.TrimSpace(raw)

	var envelope struct {
		StartingPositions []int `json:"starting_positions"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err == nil && envelope.StartingPositions != nil {
		return envelope.StartingPositions, nil
	}

	var direct []int
	if err := json.Unmarshal([]byte(trimmed), &direct); err == nil {
		return direct, nil
	}

	if m := arrayPattern.FindString(trimmed); m != "" {
		if err := json.Unmarshal([]byte(m), &direct); err == nil {
			return direct, nil
		}
	}

	return nil, fmt.Errorf("no positions found in %q", truncate(trimmed, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
