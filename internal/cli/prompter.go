package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Veraticus/soothsayer/internal/model"
	"github.com/Veraticus/soothsayer/internal/review"
)

// ReviewPrompter implements review.Prompter on a line-oriented terminal.
type ReviewPrompter struct {
	writer io.Writer
	reader *NonBlockingReader
}

var _ review.Prompter = (*ReviewPrompter)(nil)

// NewReviewPrompter creates a prompter reading answers from reader.
func NewReviewPrompter(reader io.Reader, writer io.Writer) *ReviewPrompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &ReviewPrompter{
		reader: NewNonBlockingReader(reader),
		writer: writer,
	}
}

// Judge shows one scored prediction and collects the reviewer's judgment.
// Canceled or exhausted input is reported as review.ErrInterrupted.
func (p *ReviewPrompter) Judge(ctx context.Context, item model.ScoredPrediction, position, total int) (review.Judgment, error) {
	title := fmt.Sprintf("Prediction %d of %d", position, total)
	if _, err := fmt.Fprintln(p.writer, RenderBox(title, formatPrediction(item))); err != nil {
		return review.Judgment{}, fmt.Errorf("failed to write prediction box: %w", err)
	}

	truth, err := p.promptTruth(ctx)
	if err != nil {
		return review.Judgment{}, err
	}
	if truth == model.TruthSkip {
		p.notice(FormatInfo("Skipped"))
		return review.Judgment{Truth: truth}, nil
	}

	sentiment, err := p.promptScore(ctx, "Your sentiment (1-10)")
	if err != nil {
		return review.Judgment{}, err
	}
	sureness, err := p.promptScore(ctx, "Your sureness (1-10)")
	if err != nil {
		return review.Judgment{}, err
	}
	notes, err := p.readLine(ctx, "Notes (optional)")
	if err != nil {
		return review.Judgment{}, err
	}

	p.notice(FormatSuccess(fmt.Sprintf("Saved as %s", truth.Label())))
	return review.Judgment{Truth: truth, Sentiment: sentiment, Sureness: sureness, Notes: notes}, nil
}

// ShowSummary prints the end-of-session counts.
func (p *ReviewPrompter) ShowSummary(summary review.Summary, path string) {
	body := fmt.Sprintf("%s Statistics:\n", ChartIcon) +
		fmt.Sprintf("  • Total predictions: %d\n", summary.Total) +
		fmt.Sprintf("  • Reviewed this session: %d\n", summary.Reviewed) +
		fmt.Sprintf("  • Previously reviewed: %d\n", summary.Resumed) +
		fmt.Sprintf("  • Skipped: %d\n", summary.Skipped) +
		fmt.Sprintf("  • Remaining: %d\n", summary.Remaining) +
		fmt.Sprintf("  • Saved to: %s", path)

	title := "Review Complete"
	if summary.Interrupted {
		title = "Review Paused"
	}
	p.notice(RenderBox(title, body))
}

func (p *ReviewPrompter) promptTruth(ctx context.Context) (model.Truth, error) {
	for {
		input, err := p.readLine(ctx, "Did it come true? (0=False, 1=True, p=Partial, skip=Skip)")
		if err != nil {
			return "", err
		}
		truth, err := model.ParseTruth(input)
		if err == nil {
			return truth, nil
		}
		p.notice(FormatError("Invalid choice. Please try again."))
	}
}

func (p *ReviewPrompter) promptScore(ctx context.Context, prompt string) (int, error) {
	for {
		input, err := p.readLine(ctx, prompt)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(input)
		if err == nil && n >= review.MinScore && n <= review.MaxScore {
			return n, nil
		}
		p.notice(FormatError(fmt.Sprintf("Enter a whole number from %d to %d.", review.MinScore, review.MaxScore)))
	}
}

func (p *ReviewPrompter) readLine(ctx context.Context, prompt string) (string, error) {
	if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	line, err := p.reader.ReadLine(ctx)
	if err != nil {
		if errors.Is(err, ErrInputCancelled) || errors.Is(err, io.EOF) {
			return "", review.ErrInterrupted
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return line, nil
}

func (p *ReviewPrompter) notice(msg string) {
	if _, err := fmt.Fprintln(p.writer, msg); err != nil {
		slog.Warn("Failed to write to terminal", "error", err)
	}
}

func formatPrediction(item model.ScoredPrediction) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", SubtleStyle.Render("Author:"), orDash(item.Author))
	fmt.Fprintf(&b, "%s %s\n\n", SubtleStyle.Render("Posted:"), orDash(item.CreatedAt))
	fmt.Fprintf(&b, "%s\n\n", item.SourceText)

	fmt.Fprintf(&b, "%s Extracted:\n", InfoIcon)
	fmt.Fprintf(&b, "  Subject: %s\n", optString(item.Subject))
	fmt.Fprintf(&b, "  Outcome: %s\n", optString(item.PredictedOutcome))
	fmt.Fprintf(&b, "  Deadline: %s\n", optString(item.Deadline))
	if item.ConfidenceLabel != nil {
		fmt.Fprintf(&b, "  Confidence: %s\n", *item.ConfidenceLabel)
	}

	fmt.Fprintf(&b, "\n%s AI scores: sentiment %s, sureness %s",
		RobotIcon, optInt(item.SentimentScore), optInt(item.SurenessScore))
	if item.Degraded() {
		b.WriteString("  " + WarningStyle.Render("(analysis failed)"))
	} else if item.AnalysisNote != "" {
		fmt.Fprintf(&b, "\n  %s", SubtleStyle.Render(item.AnalysisNote))
	}
	return b.String()
}

func optString(s *string) string {
	if s == nil {
		return "-"
	}
	return orDash(*s)
}

func optInt(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
