// Package storage persists artifacts, weather data and cached features behind a key/value
// dispatcher.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aouyang1/go-riverforecast/timedataset"
	"github.com/goccy/go-json"
)

var (
	ErrNotFound   = errors.New("key not found")
	ErrInvalidKey = errors.New("invalid key")
)

// Dispatcher is a key/value object store
type Dispatcher interface {
	Upload(ctx context.Context, key string, data []byte) error
	Download(ctx context.Context, key string) ([]byte, error)
}

// UploadJSON encodes v and uploads it under key
func UploadJSON(ctx context.Context, d Dispatcher, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("unable to encode %s, %w", key, err)
	}
	return d.Upload(ctx, key, data)
}

// DownloadJSON downloads key and decodes it into v
func DownloadJSON(ctx context.Context, d Dispatcher, key string, v any) error {
	data, err := d.Download(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unable to decode %s, %w", key, err)
	}
	return nil
}

// UploadFrame stores a time series table under key
func UploadFrame(ctx context.Context, d Dispatcher, key string, f *timedataset.Frame) error {
	return UploadJSON(ctx, d, key, f)
}

// DownloadFrame loads a time series table stored by UploadFrame
func DownloadFrame(ctx context.Context, d Dispatcher, key string) (*timedataset.Frame, error) {
	var f timedataset.Frame
	if err := DownloadJSON(ctx, d, key, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
