// Package receipt stores receipt evidence and renders receipt documents for
// donations entering RECEIVED.
package receipt

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"time"

	"github.com/oklog/ulid/v2"

	catalog "donorhub/internal/catalog/models"
	donation "donorhub/internal/donation/models"
	"donorhub/internal/receipt/metrics"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/platform/circuit"
)

const (
	defaultPrefix  = "receipts"
	defaultIssuer  = "DonorHub"
	defaultTimeout = 5 * time.Second
)

var imageExtensions = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"application/pdf": ".pdf",
}

// Issuer persists the evidence image and a rendered receipt document. Storage
// calls sit behind a circuit breaker; while it is open Issue fails without
// touching the bucket.
type Issuer struct {
	blobs    BlobStore
	renderer *Renderer
	breaker  *circuit.Breaker
	prefix   string
	name     string
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Issuer)

func WithLogger(logger *slog.Logger) Option {
	return func(i *Issuer) {
		i.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Issuer) {
		i.metrics = m
	}
}

func WithPrefix(prefix string) Option {
	return func(i *Issuer) {
		if prefix != "" {
			i.prefix = prefix
		}
	}
}

// WithIssuerName sets the organization name printed on every receipt.
func WithIssuerName(name string) Option {
	return func(i *Issuer) {
		if name != "" {
			i.name = name
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(i *Issuer) {
		if d > 0 {
			i.timeout = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(i *Issuer) {
		if b != nil {
			i.breaker = b
		}
	}
}

func NewIssuer(blobs BlobStore, renderer *Renderer, opts ...Option) *Issuer {
	i := &Issuer{
		blobs:    blobs,
		renderer: renderer,
		breaker:  circuit.New("receipt-storage"),
		prefix:   defaultPrefix,
		name:     defaultIssuer,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}
	return i
}

// Issue stores the evidence (or checks a supplied reference), renders the
// receipt document and stores it. Failures carry receipt_generation_failed
// except for evidence problems, which are the caller's to fix.
func (i *Issuer) Issue(ctx context.Context, d *donation.Donation, cause *catalog.Cause, evidence donation.ReceiptEvidence, now time.Time) (donation.ReceiptRefs, error) {
	if err := evidence.Validate(); err != nil {
		return donation.ReceiptRefs{}, err
	}
	ext, ok := imageExtensions[evidence.ContentType]
	if len(evidence.Image) > 0 && !ok {
		return donation.ReceiptRefs{}, dErrors.New(dErrors.CodeValidation, "receipt image must be png, jpeg or pdf")
	}
	if !i.breaker.Allow() {
		i.metrics.IncrementFailure("circuit_open")
		return donation.ReceiptRefs{}, dErrors.New(dErrors.CodeReceiptGenerationFailed, "receipt storage is temporarily unavailable")
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	refs, stage, err := i.issue(ctx, d, cause, evidence, ext, now)
	i.metrics.ObserveIssueDuration(time.Since(start))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			return donation.ReceiptRefs{}, err
		}
		i.recordFailure(ctx, d, stage, err)
		if errors.Is(err, context.DeadlineExceeded) {
			return donation.ReceiptRefs{}, dErrors.Wrap(err, dErrors.CodeReceiptGenerationFailed, "receipt generation timed out")
		}
		return donation.ReceiptRefs{}, dErrors.Wrap(err, dErrors.CodeReceiptGenerationFailed, "failed to generate receipt")
	}

	if _, change := i.breaker.RecordSuccess(); change.Closed {
		i.metrics.SetBreakerOpen(false)
		i.logger.InfoContext(ctx, "receipt storage circuit closed", "breaker", i.breaker.Name())
	}
	i.metrics.IncrementIssued()
	return refs, nil
}

func (i *Issuer) issue(ctx context.Context, d *donation.Donation, cause *catalog.Cause, evidence donation.ReceiptEvidence, ext string, now time.Time) (donation.ReceiptRefs, string, error) {
	base := path.Join(i.prefix, cause.ID.String(), d.ID.String())

	imageRef := evidence.ImageRef
	if len(evidence.Image) > 0 {
		ref, err := i.blobs.Put(ctx, base+"/evidence"+ext, evidence.ContentType, evidence.Image)
		if err != nil {
			return donation.ReceiptRefs{}, "image", err
		}
		i.metrics.AddBytes("image", len(evidence.Image))
		imageRef = ref
	} else {
		found, err := i.blobs.Exists(ctx, imageRef)
		if err != nil {
			return donation.ReceiptRefs{}, "image", err
		}
		if !found {
			return donation.ReceiptRefs{}, "image", dErrors.New(dErrors.CodeValidation, "receipt image reference does not exist")
		}
	}

	number := ulid.Make().String()
	rendered, err := i.renderer.Render(ctx, NewDocument(number, i.name, d, cause, evidence.Image, now))
	if err != nil {
		return donation.ReceiptRefs{}, "render", err
	}
	if err := ctx.Err(); err != nil {
		return donation.ReceiptRefs{}, "render", err
	}

	docRef, err := i.blobs.Put(ctx, base+"/receipt-"+number+".png", "image/png", rendered)
	if err != nil {
		return donation.ReceiptRefs{}, "document", err
	}
	i.metrics.AddBytes("document", len(rendered))

	return donation.ReceiptRefs{
		ImageRef:       imageRef,
		DocumentRef:    docRef,
		DocumentNumber: number,
	}, "", nil
}

func (i *Issuer) recordFailure(ctx context.Context, d *donation.Donation, stage string, err error) {
	i.metrics.IncrementFailure(stage)
	_, change := i.breaker.RecordFailure()
	if change.Opened {
		i.metrics.SetBreakerOpen(true)
		i.logger.WarnContext(ctx, "receipt storage circuit opened",
			"breaker", i.breaker.Name(),
			"error", err,
		)
	}
	i.logger.ErrorContext(ctx, "receipt generation failed",
		"donation_id", d.ID.String(),
		"stage", stage,
		"error", err,
	)
}
