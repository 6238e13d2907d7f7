package storage

import (
	"context"
	"fmt"
	"path"

	"github.com/aouyang1/go-riverforecast/timedataset"
)

// FeatureCache holds one engineered feature frame per location so that only a single location
// needs to be in memory at a time.
type FeatureCache struct {
	d      Dispatcher
	prefix string
}

// NewFeatureCache stores one feature frame per location index under prefix
func NewFeatureCache(d Dispatcher, prefix string) *FeatureCache {
	return &FeatureCache{d: d, prefix: prefix}
}

func (c *FeatureCache) key(i int) string {
	return path.Join(c.prefix, fmt.Sprintf("features_%05d.json", i))
}

// Put stores the features of location i, replacing any previous frame
func (c *FeatureCache) Put(ctx context.Context, i int, f *timedataset.Frame) error {
	return UploadFrame(ctx, c.d, c.key(i), f)
}

// Get loads the features of location i
func (c *FeatureCache) Get(ctx context.Context, i int) (*timedataset.Frame, error) {
	return DownloadFrame(ctx, c.d, c.key(i))
}
