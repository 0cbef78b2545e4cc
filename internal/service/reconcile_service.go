package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"photoshare/internal/models"
	"photoshare/internal/observability"
	"photoshare/internal/repository"
	"photoshare/internal/storage"
)

// blobGracePeriod protects blobs uploaded moments ago whose row is not written yet.
const blobGracePeriod = time.Hour

// ReconcileReport counts what a reconciliation pass repaired.
type ReconcileReport struct {
	OrphanPhotos   int64 `json:"orphanPhotos"`
	OrphanComments int64 `json:"orphanComments"`
	OrphanLikes    int64 `json:"orphanLikes"`
	Recategorized  int64 `json:"recategorized"`
	OrphanBlobs    int64 `json:"orphanBlobs"`
	BlobsSkipped   bool  `json:"blobsSkipped"`
}

// Counts is the report keyed by record kind.
func (r *ReconcileReport) Counts() map[string]int64 {
	return map[string]int64{
		"photos":        r.OrphanPhotos,
		"comments":      r.OrphanComments,
		"likes":         r.OrphanLikes,
		"recategorized": r.Recategorized,
		"blobs":         r.OrphanBlobs,
	}
}

// Reconciler repairs what interrupted cascades leave behind.
type Reconciler struct {
	maintenance repository.MaintenanceRepository
	photoRepo   repository.PhotoRepository
	categories  *CategoryService
	blobs       storage.BlobStore
	now         func() time.Time
}

func NewReconciler(
	maintenance repository.MaintenanceRepository,
	photoRepo repository.PhotoRepository,
	categories *CategoryService,
	blobs storage.BlobStore,
) *Reconciler {
	return &Reconciler{
		maintenance: maintenance,
		photoRepo:   photoRepo,
		categories:  categories,
		blobs:       blobs,
		now:         time.Now,
	}
}

// Run removes photos without an uploader, comments and likes pointing at missing rows,
// files photos with a missing category under Uncategorized and deletes unreferenced blobs.
// Blob deletion failures do not stop the pass; they are returned as one PartialFailure.
func (r *Reconciler) Run(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}
	var blobErrs []error

	orphans, err := r.maintenance.OrphanPhotos(ctx)
	if err != nil {
		return report, err
	}
	for _, photo := range orphans {
		if _, err := r.photoRepo.DeleteCascade(ctx, photo.ID); err != nil {
			if models.HasCode(err, models.CodeNotFound) {
				continue
			}
			return report, err
		}
		report.OrphanPhotos++
		if err := deleteBlob(ctx, r.blobs, photo.ImagePath); err != nil {
			blobErrs = append(blobErrs, err)
		}
	}

	if report.OrphanComments, err = r.maintenance.DeleteOrphanComments(ctx); err != nil {
		return report, err
	}
	if report.OrphanLikes, err = r.maintenance.DeleteOrphanLikes(ctx); err != nil {
		return report, err
	}
	if report.Recategorized, err = r.categories.ReassignMissing(ctx); err != nil {
		return report, err
	}

	removed, skipped, errs, err := r.sweepBlobs(ctx)
	if err != nil {
		return report, err
	}
	report.OrphanBlobs = removed
	report.BlobsSkipped = skipped
	blobErrs = append(blobErrs, errs...)

	if len(blobErrs) > 0 {
		observability.PartialFailures.WithLabelValues("reconcile").Inc()
		return report, models.NewPartialFailureError("Reconciliation finished, but some files could not be deleted.", errors.Join(blobErrs...))
	}
	return report, nil
}

func (r *Reconciler) sweepBlobs(ctx context.Context) (int64, bool, []error, error) {
	keys, err := r.blobs.List(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrListUnsupported) {
			return 0, true, nil, nil
		}
		return 0, false, nil, models.NewInternalError(err)
	}
	referenced, err := r.maintenance.ReferencedBlobKeys(ctx)
	if err != nil {
		return 0, false, nil, err
	}

	cutoff := r.now().Add(-blobGracePeriod)
	var removed int64
	var errs []error
	for _, key := range keys {
		if _, ok := referenced[key]; ok {
			continue
		}
		if uploadedAt, ok := blobUploadTime(key); ok && uploadedAt.After(cutoff) {
			continue
		}
		if err := deleteBlob(ctx, r.blobs, key); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, false, errs, nil
}

// blobUploadTime reads the millisecond timestamp prefix of a generated key.
func blobUploadTime(key string) (time.Time, bool) {
	prefix, _, found := strings.Cut(key, "-")
	if !found {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
