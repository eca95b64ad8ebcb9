package analysis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/cyberveli/internal/application"
	"github.com/bryanwahyu/cyberveli/internal/domain/classify"
	domain "github.com/bryanwahyu/cyberveli/internal/domain/history"
)

var (
	// ErrInvalidFile is returned for anything that is not a JPEG upload.
	ErrInvalidFile = errors.New("only .jpeg files are allowed, please upload a valid .jpeg file")
	// ErrImageUnavailable means neither the image store nor the preview
	// could give back the uploaded bytes.
	ErrImageUnavailable = errors.New("stored image unavailable")
)

const previewPrefix = "data:image/jpeg;base64,"

// DefaultMaxBytes bounds a single upload.
const DefaultMaxBytes int64 = 10 << 20

// Composer builds the report text for a classification.
type Composer interface {
	Compose(ctx context.Context, label string, iqaScore float64) (string, domain.ReportSource, error)
}

// Renderer writes the PDF export of a record.
type Renderer interface {
	Render(w io.Writer, rec *domain.Record) error
}

// Service implements use-cases untuk history record.
// Service is safe for concurrent use as long as its dependencies are.
type Service struct {
	Repo       domain.Repository
	Failures   domain.FailureRepository
	Images     domain.ImageStore
	Classifier classify.Classifier
	Composer   Composer
	Renderer   Renderer
	Clock      application.Clock
	Logger     *zap.Logger
	MaxBytes   int64
}

//
// ==== USE CASES ====
//

// UploadCommand carries one dropped file.
type UploadCommand struct {
	TenantID    string
	FileName    string
	ContentType string
	Data        []byte
}

// Upload validates the file, stores the image and creates a pending record.
// Nothing is stored when validation fails.
func (s *Service) Upload(ctx context.Context, cmd UploadCommand) (*domain.Record, error) {
	if err := s.validate(cmd); err != nil {
		s.logger().Info("upload rejected",
			zap.String("tenant", cmd.TenantID),
			zap.String("file_name", cmd.FileName),
			zap.String("content_type", cmd.ContentType),
			zap.Error(err),
		)
		return nil, err
	}

	id := domain.RecordID(uuid.New().String())
	name := path.Base(strings.ReplaceAll(cmd.FileName, "\\", "/"))
	rec := domain.NewPendingRecord(id, cmd.TenantID, name, int64(len(cmd.Data)), "image/jpeg", PreviewDataURI(cmd.Data), s.now())

	rec.ImageKey = fmt.Sprintf("%s/%s/%s", cmd.TenantID, id, name)
	url, err := s.Images.Put(ctx, rec.ImageKey, cmd.Data, "image/jpeg")
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	rec.ImageURL = url

	if err := s.Repo.Save(ctx, rec); err != nil {
		// jangan tinggalkan object yatim
		if derr := s.Images.Delete(context.WithoutCancel(ctx), rec.ImageKey); derr != nil {
			s.logger().Warn("cleanup image failed", zap.String("key", rec.ImageKey), zap.Error(derr))
		}
		return nil, fmt.Errorf("save record: %w", err)
	}

	s.logger().Info("upload stored",
		zap.String("tenant", rec.TenantID),
		zap.String("record_id", string(rec.ID)),
		zap.Int64("file_size", rec.FileSize),
	)
	return rec, nil
}

// Analyze classifies the stored image, composes the report and moves the
// record from pending to analyzed. A failed classification leaves the
// record pending, persists a Failure and skips the report.
func (s *Service) Analyze(ctx context.Context, tenant string, id domain.RecordID) (*domain.Record, error) {
	rec, err := s.Repo.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.StatusPending {
		return nil, domain.ErrNotPending
	}

	img, err := s.loadImage(ctx, rec)
	if err != nil {
		s.recordFailure(ctx, rec, domain.PhaseStore, err)
		return nil, err
	}

	res, err := s.Classifier.Classify(ctx, rec.FileName, img)
	if err != nil {
		s.recordFailure(ctx, rec, domain.PhaseClassify, err)
		return nil, fmt.Errorf("classify %s: %w", rec.ID, err)
	}
	a := res.Analysis()

	text, src, cause := s.Composer.Compose(ctx, a.Label, a.IQAScore)
	if cause != nil {
		s.recordFailure(ctx, rec, domain.PhaseReport, cause)
	}

	if err := s.Repo.MarkAnalyzed(ctx, tenant, id, a, text, src, s.now()); err != nil {
		return nil, err
	}

	s.logger().Info("record analyzed",
		zap.String("tenant", tenant),
		zap.String("record_id", string(id)),
		zap.String("label", a.Label),
		zap.Float64("iqa_score", a.IQAScore),
		zap.String("report_source", string(src)),
	)
	return s.Repo.Get(ctx, tenant, id)
}

func (s *Service) Get(ctx context.Context, tenant string, id domain.RecordID) (*domain.Record, error) {
	return s.Repo.Get(ctx, tenant, id)
}

// List returns the newest records first.
func (s *Service) List(ctx context.Context, tenant string, limit int) ([]*domain.Record, error) {
	list, err := s.Repo.List(ctx, tenant, domain.NormalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*domain.Record{}
	}
	return list, nil
}

// Remove deletes one record and its stored image.
func (s *Service) Remove(ctx context.Context, tenant string, id domain.RecordID) error {
	rec, err := s.Repo.Get(ctx, tenant, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, tenant, id); err != nil {
		return err
	}
	s.deleteImage(ctx, rec)
	if _, err := s.Failures.DeleteByRecord(ctx, tenant, id); err != nil {
		s.logger().Warn("delete failure rows", zap.String("record_id", string(id)), zap.Error(err))
	}
	return nil
}

// Clear removes every record of the tenant and returns how many went away.
func (s *Service) Clear(ctx context.Context, tenant string) (int64, error) {
	var removed int64
	for {
		batch, err := s.Repo.List(ctx, tenant, domain.MaxLimit)
		if err != nil {
			return removed, err
		}
		for _, rec := range batch {
			if err := s.Repo.Delete(ctx, tenant, rec.ID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return removed, err
			}
			removed++
			s.deleteImage(ctx, rec)
		}
		if len(batch) < domain.MaxLimit {
			break
		}
	}

	// anything saved while we were deleting
	n, err := s.Repo.Clear(ctx, tenant)
	if err != nil {
		return removed, err
	}
	if _, err := s.Failures.DeleteByTenant(ctx, tenant); err != nil {
		return removed + n, err
	}
	return removed + n, nil
}

// ListFailures lists failed remote calls of an existing record.
func (s *Service) ListFailures(ctx context.Context, tenant string, id domain.RecordID, limit int) ([]*domain.Failure, error) {
	if _, err := s.Repo.Get(ctx, tenant, id); err != nil {
		return nil, err
	}
	list, err := s.Failures.ListByRecord(ctx, tenant, id, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*domain.Failure{}
	}
	return list, nil
}

// ExportPDF renders the record as a PDF report into w.
func (s *Service) ExportPDF(ctx context.Context, tenant string, id domain.RecordID, w io.Writer) error {
	rec, err := s.Repo.Get(ctx, tenant, id)
	if err != nil {
		return err
	}
	if rec.Preview == "" && rec.ImageKey != "" {
		if img, err := s.Images.Get(ctx, rec.ImageKey); err == nil {
			rec.Preview = PreviewDataURI(img)
		} else {
			s.logger().Warn("pdf export without image", zap.String("record_id", string(id)), zap.Error(err))
		}
	}
	return s.Renderer.Render(w, rec)
}

// PreviewDataURI encodes JPEG bytes as an inline data URI.
func PreviewDataURI(data []byte) string {
	return previewPrefix + base64.StdEncoding.EncodeToString(data)
}

//
// ==== helpers ====
//

func (s *Service) validate(cmd UploadCommand) error {
	if len(cmd.Data) == 0 {
		return ErrInvalidFile
	}
	if limit := s.maxBytes(); int64(len(cmd.Data)) > limit {
		return fmt.Errorf("%w (file larger than %d bytes)", ErrInvalidFile, limit)
	}
	mt, _, err := mime.ParseMediaType(cmd.ContentType)
	if err != nil || mt != "image/jpeg" {
		return ErrInvalidFile
	}
	if strings.ToLower(path.Ext(cmd.FileName)) != ".jpeg" {
		return ErrInvalidFile
	}
	if !mimetype.Detect(cmd.Data).Is("image/jpeg") {
		return ErrInvalidFile
	}
	return nil
}

// loadImage reads the upload back from the image store. The preview holds
// the same bytes, so it covers a store that lost the object (memory store
// after a restart).
func (s *Service) loadImage(ctx context.Context, rec *domain.Record) ([]byte, error) {
	var storeErr error
	if rec.ImageKey != "" {
		img, err := s.Images.Get(ctx, rec.ImageKey)
		if err == nil {
			return img, nil
		}
		storeErr = err
	}

	if strings.HasPrefix(rec.Preview, previewPrefix) {
		img, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(rec.Preview, previewPrefix))
		if err == nil && len(img) > 0 {
			if storeErr != nil {
				s.logger().Warn("image store miss, using preview",
					zap.String("record_id", string(rec.ID)),
					zap.String("key", rec.ImageKey),
					zap.Error(storeErr),
				)
			}
			return img, nil
		}
	}

	if storeErr == nil {
		storeErr = errors.New("record has no image key and no preview")
	}
	// %v: a missing object must not read as a missing record
	return nil, fmt.Errorf("%w: %v", ErrImageUnavailable, storeErr)
}

func (s *Service) deleteImage(ctx context.Context, rec *domain.Record) {
	if rec.ImageKey == "" {
		return
	}
	if err := s.Images.Delete(ctx, rec.ImageKey); err != nil {
		s.logger().Warn("delete image failed", zap.String("key", rec.ImageKey), zap.Error(err))
	}
}

func (s *Service) recordFailure(ctx context.Context, rec *domain.Record, phase string, cause error) {
	f := &domain.Failure{
		TenantID:  rec.TenantID,
		RecordID:  rec.ID,
		Phase:     phase,
		Message:   cause.Error(),
		CreatedAt: s.now(),
	}
	// tetap simpan walau request sudah dibatalkan
	if err := s.Failures.Save(context.WithoutCancel(ctx), f); err != nil {
		s.logger().Error("save failure row", zap.String("record_id", string(rec.ID)), zap.Error(err))
	}
	s.logger().Warn("remote call failed",
		zap.String("tenant", rec.TenantID),
		zap.String("record_id", string(rec.ID)),
		zap.String("phase", phase),
		zap.Error(cause),
	)
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *Service) maxBytes() int64 {
	if s.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return s.MaxBytes
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
