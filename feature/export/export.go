package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"task-mirror/core/storage"
	"task-mirror/feature/mirror/models"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LatestName is the object name, under the prefix, of the newest snapshot.
const LatestName = "latest.json"

// clauseOrder quotes the reserved "order" column.
var clauseOrder = clause.OrderByColumn{Column: clause.Column{Name: "order"}}

// stampLayout names timestamped snapshots; it sorts lexically by time.
const stampLayout = "20060102T150405Z"

// Snapshot is a point-in-time copy of the whole mirror.
type Snapshot struct {
	GeneratedAt  time.Time         `json:"generated_at"`
	RootRevision int64             `json:"root_revision"`
	User         *models.User      `json:"user,omitempty"`
	Lists        []models.List     `json:"lists"`
	Tasks        []models.Task     `json:"tasks"`
	Reminders    []models.Reminder `json:"reminders"`
	Hashtags     []string          `json:"hashtags"`
}

// Result describes a published snapshot.
type Result struct {
	Object  string   `json:"object"`
	Size    int64    `json:"size"`
	Tasks   int      `json:"tasks"`
	Removed []string `json:"removed,omitempty"`
}

// Exporter publishes snapshots of the mirror to object storage.
type Exporter struct {
	client storage.Client
	bucket string
	prefix string
	keep   int
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewExporter creates an Exporter writing to cfg.Bucket under cfg.Prefix.
func NewExporter(client storage.Client, cfg storage.Config, db *gorm.DB, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		keep:   cfg.Keep,
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

func (e *Exporter) object(name string) string {
	if e.prefix == "" {
		return name
	}
	return path.Join(e.prefix, name)
}

// Build reads the mirror in one transaction so the snapshot is consistent
// with a single sync pass.
func (e *Exporter) Build(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{GeneratedAt: e.now().UTC()}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.Root
		switch err := tx.Take(&root).Error; {
		case err == nil:
			snap.RootRevision = root.Revision
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		var users []models.User
		if err := tx.Limit(1).Find(&users).Error; err != nil {
			return err
		}
		if len(users) > 0 {
			snap.User = &users[0]
		}

		if err := tx.Order(clauseOrder).Order("id").Find(&snap.Lists).Error; err != nil {
			return err
		}
		if err := tx.Order("list_id").Order(clauseOrder).Order("id").Find(&snap.Tasks).Error; err != nil {
			return err
		}
		if err := tx.Order("id").Find(&snap.Reminders).Error; err != nil {
			return err
		}
		return tx.Model(&models.Hashtag{}).Order("id").Pluck("id", &snap.Hashtags).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read mirror: %w", err)
	}
	return snap, nil
}

// Export builds a snapshot, uploads it under a timestamped name and as
// latest.json, then prunes old snapshots.
func (e *Exporter) Export(ctx context.Context) (*Result, error) {
	if err := e.ensureBucket(ctx); err != nil {
		return nil, err
	}

	snap, err := e.Build(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	name := e.object(snap.GeneratedAt.Format(stampLayout) + ".json")
	for _, obj := range []string{name, e.object(LatestName)} {
		if _, err := e.client.PutObject(ctx, e.bucket, obj, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: "application/json",
		}); err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", obj, err)
		}
	}

	res := &Result{Object: name, Size: int64(len(data)), Tasks: len(snap.Tasks)}
	if res.Removed, err = e.Prune(ctx); err != nil {
		return res, err
	}

	e.logger.Info("Snapshot exported",
		zap.String("bucket", e.bucket),
		zap.String("object", name),
		zap.Int64("size", res.Size),
		zap.Int("removed", len(res.Removed)),
	)
	return res, nil
}

// Prune removes the oldest timestamped snapshots beyond the retention
// count. latest.json is never removed.
func (e *Exporter) Prune(ctx context.Context) ([]string, error) {
	if e.keep <= 0 {
		return nil, nil
	}

	prefix := ""
	if e.prefix != "" {
		prefix = e.prefix + "/"
	}

	var names []string
	for obj := range e.client.ListObjects(ctx, e.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list snapshots: %w", obj.Err)
		}
		base := strings.TrimSuffix(strings.TrimPrefix(obj.Key, prefix), ".json")
		if _, err := time.Parse(stampLayout, base); err != nil {
			continue
		}
		names = append(names, obj.Key)
	}
	if len(names) <= e.keep {
		return nil, nil
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	var removed []string
	for _, name := range names[e.keep:] {
		if err := e.client.RemoveObject(ctx, e.bucket, name, minio.RemoveObjectOptions{}); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", name, err)
		}
		removed = append(removed, name)
	}
	return removed, nil
}

// Latest downloads and decodes latest.json.
func (e *Exporter) Latest(ctx context.Context) (*Snapshot, error) {
	obj, err := e.client.GetObject(ctx, e.bucket, e.object(LatestName), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest snapshot: %w", err)
	}
	defer obj.Close()

	var snap Snapshot
	if err := json.NewDecoder(obj).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode latest snapshot: %w", err)
	}
	return &snap, nil
}

func (e *Exporter) ensureBucket(ctx context.Context) error {
	exists, err := e.client.BucketExists(ctx, e.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", e.bucket, err)
	}
	if exists {
		return nil
	}
	if err := e.client.MakeBucket(ctx, e.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", e.bucket, err)
	}
	e.logger.Info("Created snapshot bucket", zap.String("bucket", e.bucket))
	return nil
}
