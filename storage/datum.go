package storage

import (
	"context"
	"fmt"
	"path"

	"github.com/aouyang1/go-riverforecast/catchment"
)

// DatumStore saves fetched catchment bundles so that training can be rerun without hitting the
// providers again.
type DatumStore struct {
	d      Dispatcher
	prefix string
}

// NewDatumStore keeps bundles under prefix/<catchment>/<bundle>.json
func NewDatumStore(d Dispatcher, prefix string) *DatumStore {
	return &DatumStore{d: d, prefix: prefix}
}

func (s *DatumStore) key(catchmentName, bundle string) string {
	return path.Join(s.prefix, catchmentName, bundle+".json")
}

// Put uploads a bundle
func (s *DatumStore) Put(ctx context.Context, catchmentName, bundle string, b *catchment.Bundle) error {
	if err := UploadJSON(ctx, s.d, s.key(catchmentName, bundle), b); err != nil {
		return fmt.Errorf("unable to store %s bundle of %s, %w", bundle, catchmentName, err)
	}
	return nil
}

// Get downloads a bundle stored by Put
func (s *DatumStore) Get(ctx context.Context, catchmentName, bundle string) (*catchment.Bundle, error) {
	var b catchment.Bundle
	if err := DownloadJSON(ctx, s.d, s.key(catchmentName, bundle), &b); err != nil {
		return nil, err
	}
	return &b, nil
}
