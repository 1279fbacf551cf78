package units

import (
	"context"
	"fmt"

	"task-mirror/core/reconcile"
	"task-mirror/core/utils"
	"task-mirror/feature/mirror/hashtag"
	"task-mirror/feature/mirror/models"
)

// hashtagUnit reconciles the derived tag set. Tags are keyed by their text
// and never change revision, so they are only ever inserted or deleted.
type hashtagUnit struct {
	reconcile.Base[models.Hashtag]
}

func (u *hashtagUnit) Name() string              { return UnitHashtag }
func (u *hashtagUnit) Schema() *reconcile.Schema { return HashtagSchema }

func (u *hashtagUnit) IdentityOf(rec reconcile.Record) string {
	return utils.ToString(rec["id"])
}

func (u *hashtagUnit) RevisionOf(reconcile.Record) int64 { return 0 }

// syncHashtags scans every stored task title and reconciles the tag set,
// including down to empty.
func syncHashtags(ctx context.Context, r *run) error {
	var titles []string
	err := r.rec.DB().WithContext(ctx).
		Model(&models.Task{}).
		Where("title LIKE ?", "%#%").
		Pluck("title", &titles).Error
	if err != nil {
		return fmt.Errorf("failed to scan task titles: %w", err)
	}

	tags := hashtag.Collect(titles)
	snapshot := make([]reconcile.Record, 0, len(tags))
	for _, tag := range tags {
		snapshot = append(snapshot, reconcile.Record{"id": tag, "revision": 0})
	}

	res, err := reconcile.Reconcile(ctx, r.rec, &hashtagUnit{}, snapshot)
	if err != nil {
		return err
	}
	r.record(UnitHashtag, res.Stats)
	return nil
}
