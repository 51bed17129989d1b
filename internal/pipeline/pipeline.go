package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TobiSchelling/CommentGender/internal/authors"
	"github.com/TobiSchelling/CommentGender/internal/classify"
	"github.com/TobiSchelling/CommentGender/internal/export"
	"github.com/TobiSchelling/CommentGender/internal/telemetry"
	"github.com/TobiSchelling/CommentGender/internal/youtube"
)

// Stage names the pipeline step that failed.
type Stage string

const (
	StageVideo    Stage = "video"
	StageComments Stage = "comments"
	StageClassify Stage = "classify"
	StageExport   Stage = "export"
)

// StageError reports which step of a run failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// VideoSource provides video metadata and comments.
type VideoSource interface {
	VideoDetails(ctx context.Context, videoID string) (youtube.Video, error)
	Comments(ctx context.Context, videoID string) ([]youtube.Comment, error)
}

// GenderClassifier labels usernames.
type GenderClassifier interface {
	Classify(ctx context.Context, usernames []string) (*classify.Result, error)
	MaxRequests(n int) int
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name     string
	Summary  string
	Duration time.Duration
}

// Report is the outcome of a successful run.
type Report struct {
	RunID        string
	VideoURL     string
	Video        youtube.Video
	Filename     string
	CSV          []byte
	Result       *classify.Result
	CommentCount int
	AuthorCount  int
	MaxRequests  int
	DryRun       bool
	Steps        []StepResult
}

// Pipeline turns a video URL into a labeled commenter CSV.
type Pipeline struct {
	videos     VideoSource
	classifier GenderClassifier
	logger     *zap.Logger
	maxAuthors int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxAuthors caps the number of usernames classified per run.
func WithMaxAuthors(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxAuthors = n
		}
	}
}

// New creates a new pipeline.
func New(videos VideoSource, classifier GenderClassifier, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		videos:     videos,
		classifier: classifier,
		logger:     logger,
		maxAuthors: authors.MaxAuthors,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes every step. On failure it returns a *StageError and no report.
func (p *Pipeline) Run(ctx context.Context, videoURL string) (*Report, error) {
	r, usernames, log, err := p.collect(ctx, videoURL)
	if err != nil {
		return nil, p.fail(log, err)
	}

	// Step 4: Classify
	start := time.Now()
	log.Info("Step 4/5: classifying usernames", zap.Int("usernames", len(usernames)))
	result, err := p.classifier.Classify(ctx, usernames)
	if err != nil {
		return nil, p.fail(log, &StageError{Stage: StageClassify, Err: err})
	}
	r.Result = result
	counts := result.Counts()
	r.Steps = append(r.Steps, StepResult{
		Name: "Classify",
		Summary: fmt.Sprintf("%d male, %d female, %d unknown in %d rounds (%d requests)",
			counts[classify.Male], counts[classify.Female], counts[classify.Unknown],
			len(result.Rounds), result.Requests()),
		Duration: time.Since(start),
	})

	// Step 5: Export
	start = time.Now()
	log.Info("Step 5/5: exporting CSV")
	data, err := export.CSV(result)
	if err != nil {
		return nil, p.fail(log, &StageError{Stage: StageExport, Err: err})
	}
	r.CSV = data
	r.Steps = append(r.Steps, StepResult{
		Name:     "Export",
		Summary:  fmt.Sprintf("%d rows, %d bytes", len(result.Entries), len(data)),
		Duration: time.Since(start),
	})

	telemetry.Runs.WithLabelValues("ok").Inc()
	log.Info("run complete", zap.String("filename", r.Filename))
	return r, nil
}

// DryRun fetches the video and its comments and extracts the authors, then
// reports the request bound instead of calling the model.
func (p *Pipeline) DryRun(ctx context.Context, videoURL string) (*Report, error) {
	r, usernames, log, err := p.collect(ctx, videoURL)
	if err != nil {
		return nil, p.fail(log, err)
	}

	r.DryRun = true
	r.Steps = append(r.Steps, StepResult{
		Name:    "Classify",
		Summary: fmt.Sprintf("[dry-run] would classify %d usernames in at most %d requests", len(usernames), r.MaxRequests),
	})
	log.Info("dry run complete", zap.Int("max_requests", r.MaxRequests))
	return r, nil
}

// collect runs the steps shared by Run and DryRun: video details, comments and authors.
func (p *Pipeline) collect(ctx context.Context, videoURL string) (*Report, []string, *zap.Logger, error) {
	r := &Report{RunID: uuid.NewString(), VideoURL: videoURL}
	log := p.logger.With(zap.String("run_id", r.RunID))

	videoID := youtube.ExtractVideoID(videoURL)
	if videoID == "" {
		log.Warn("no video id in URL", zap.String("url", videoURL))
	}

	// Step 1: Video details
	start := time.Now()
	log.Info("Step 1/5: fetching video details", zap.String("video_id", videoID))
	video, err := p.videos.VideoDetails(ctx, videoID)
	if err != nil {
		return nil, nil, log, &StageError{Stage: StageVideo, Err: err}
	}
	r.Video = video
	r.Filename = export.Filename(video)
	r.Steps = append(r.Steps, StepResult{
		Name:     "Video",
		Summary:  fmt.Sprintf("%s by %s", video.Title, video.ChannelTitle),
		Duration: time.Since(start),
	})

	// Step 2: Comments
	start = time.Now()
	log.Info("Step 2/5: fetching comments")
	comments, err := p.videos.Comments(ctx, videoID)
	if err != nil {
		return nil, nil, log, &StageError{Stage: StageComments, Err: err}
	}
	r.CommentCount = len(comments)
	r.Steps = append(r.Steps, StepResult{
		Name:     "Comments",
		Summary:  fmt.Sprintf("Fetched %d comments", len(comments)),
		Duration: time.Since(start),
	})

	// Step 3: Authors
	log.Info("Step 3/5: extracting authors")
	usernames := authors.Extract(comments, p.maxAuthors)
	r.AuthorCount = len(usernames)
	r.MaxRequests = p.classifier.MaxRequests(len(usernames))
	summary := fmt.Sprintf("%d distinct authors", len(usernames))
	if len(usernames) == p.maxAuthors {
		summary += fmt.Sprintf(" (capped at %d)", p.maxAuthors)
	}
	r.Steps = append(r.Steps, StepResult{Name: "Authors", Summary: summary})

	return r, usernames, log, nil
}

func (p *Pipeline) fail(log *zap.Logger, err error) error {
	outcome := "error"
	var se *StageError
	if errors.As(err, &se) {
		outcome = string(se.Stage)
	}
	telemetry.Runs.WithLabelValues(outcome).Inc()
	log.Error("run failed", zap.String("stage", outcome), zap.Error(err))
	return err
}
