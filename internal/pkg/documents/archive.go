package documents

import (
	"context"
	"time"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/archive"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/jobqueue"
)

// ArchiveQueue accepts document uploads. *jobqueue.Queue implements it.
type ArchiveQueue interface {
	Available() bool
	EnqueueArchive(ctx context.Context, key, contentType string, body []byte) (*jobqueue.Job, error)
}

// Archive queues body under kind/YYYY/MM/name and returns the object key.
// Without Redis nothing is archived and the key is empty.
func Archive(ctx context.Context, q ArchiveQueue, kind, name, body string) (string, error) {
	if q == nil || !q.Available() {
		return "", nil
	}
	key := archive.ObjectKey(kind, name, time.Now())
	if _, err := q.EnqueueArchive(ctx, key, archive.ContentType(key), []byte(body)); err != nil {
		return "", err
	}
	return key, nil
}
