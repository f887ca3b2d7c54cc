package repository

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/common/storage"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

const taskKeyPrefix = "judge:task:"

// TaskRepository loads the stored test suite for a task.
type TaskRepository interface {
	GetTestSuite(ctx context.Context, taskID string) (model.TaskTestSuite, error)
}

// validTaskID rejects ids that could escape the storage namespace.
func validTaskID(taskID string) error {
	if taskID == "" {
		return appErr.ValidationError("task_id", "required")
	}
	if strings.ContainsAny(taskID, "/\\") || strings.Contains(taskID, "..") {
		return appErr.ValidationError("task_id", "contains path characters")
	}
	return nil
}

func decodeSuite(data []byte, taskID string) (model.TaskTestSuite, error) {
	var suite model.TaskTestSuite
	if err := json.Unmarshal(data, &suite); err != nil {
		return model.TaskTestSuite{}, appErr.Wrapf(err, appErr.TaskDataInvalid, "decode task %s", taskID)
	}
	if suite.TaskID == "" {
		suite.TaskID = taskID
	}
	if suite.TotalTests() == 0 {
		return model.TaskTestSuite{}, appErr.Newf(appErr.TaskDataInvalid, "task %s has no test cases", taskID)
	}
	return suite, nil
}

// LocalTaskRepository reads task definitions from <dir>/<task_id>.json on
// the local filesystem.
type LocalTaskRepository struct {
	dir string
}

// NewLocalTaskRepository creates a repository rooted at dir.
func NewLocalTaskRepository(dir string) (*LocalTaskRepository, error) {
	if dir == "" {
		return nil, appErr.ValidationError("dir", "required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.TaskStorageFailed, "task directory %s", dir)
	}
	if !info.IsDir() {
		return nil, appErr.Newf(appErr.TaskStorageFailed, "task path %s is not a directory", dir)
	}
	return &LocalTaskRepository{dir: dir}, nil
}

// GetTestSuite implements TaskRepository.
func (r *LocalTaskRepository) GetTestSuite(ctx context.Context, taskID string) (model.TaskTestSuite, error) {
	if err := validTaskID(taskID); err != nil {
		return model.TaskTestSuite{}, err
	}
	data, err := os.ReadFile(filepath.Join(r.dir, taskID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return model.TaskTestSuite{}, appErr.Newf(appErr.TaskNotFound, "task %s not found", taskID)
		}
		return model.TaskTestSuite{}, appErr.Wrapf(err, appErr.TaskStorageFailed, "read task %s", taskID)
	}
	return decodeSuite(data, taskID)
}

// ObjectTaskRepository reads task definitions from object storage under
// <prefix>/<task_id>.json.
type ObjectTaskRepository struct {
	store  storage.ObjectStorage
	bucket string
	prefix string
}

// NewObjectTaskRepository creates a repository over an object store.
func NewObjectTaskRepository(store storage.ObjectStorage, bucket, prefix string) *ObjectTaskRepository {
	return &ObjectTaskRepository{store: store, bucket: bucket, prefix: prefix}
}

// GetTestSuite implements TaskRepository.
func (r *ObjectTaskRepository) GetTestSuite(ctx context.Context, taskID string) (model.TaskTestSuite, error) {
	if err := validTaskID(taskID); err != nil {
		return model.TaskTestSuite{}, err
	}
	key := path.Join(r.prefix, taskID+".json")
	obj, err := r.store.GetObject(ctx, r.bucket, key)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.TaskTestSuite{}, appErr.Newf(appErr.TaskNotFound, "task %s not found", taskID)
		}
		return model.TaskTestSuite{}, appErr.Wrapf(err, appErr.TaskStorageFailed, "fetch task object %s", key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return model.TaskTestSuite{}, appErr.Wrapf(err, appErr.TaskStorageFailed, "read task object %s", key)
	}
	return decodeSuite(data, taskID)
}

// CachedTaskRepository wraps another TaskRepository with a cache-aside
// layer. Missing tasks are cached with a short TTL so repeated lookups for
// unknown ids do not hit the backing store.
type CachedTaskRepository struct {
	inner    TaskRepository
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

// NewCachedTaskRepository wraps inner with caching.
func NewCachedTaskRepository(inner TaskRepository, cacheClient cache.Cache, ttl, emptyTTL time.Duration) *CachedTaskRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if emptyTTL <= 0 {
		emptyTTL = time.Minute
	}
	return &CachedTaskRepository{inner: inner, cache: cacheClient, ttl: ttl, emptyTTL: emptyTTL}
}

// GetTestSuite implements TaskRepository.
func (r *CachedTaskRepository) GetTestSuite(ctx context.Context, taskID string) (model.TaskTestSuite, error) {
	if err := validTaskID(taskID); err != nil {
		return model.TaskTestSuite{}, err
	}
	suite, found, err := cache.GetWithCached(
		ctx,
		r.cache,
		taskKeyPrefix+taskID,
		r.ttl,
		r.emptyTTL,
		func(s model.TaskTestSuite) bool { return s.TotalTests() == 0 },
		func(s model.TaskTestSuite) string {
			data, _ := json.Marshal(s)
			return string(data)
		},
		func(raw string) (model.TaskTestSuite, error) {
			var s model.TaskTestSuite
			err := json.Unmarshal([]byte(raw), &s)
			return s, err
		},
		func(ctx context.Context) (model.TaskTestSuite, error) {
			s, err := r.inner.GetTestSuite(ctx, taskID)
			if appErr.GetCode(err) == appErr.TaskNotFound {
				// Cache the absence; the not-found error is rebuilt below.
				return model.TaskTestSuite{}, nil
			}
			return s, err
		},
	)
	if err != nil {
		return model.TaskTestSuite{}, err
	}
	if !found {
		return model.TaskTestSuite{}, appErr.Newf(appErr.TaskNotFound, "task %s not found", taskID)
	}
	return suite, nil
}
