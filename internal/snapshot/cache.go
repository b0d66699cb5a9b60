package snapshot

import (
	"fmt"
	"log/slog"

	"github.com/bluele/gcache"

	"github.com/you/transit-analytics/models"
)

// Cache serves snapshot rows from memory. Each file is parsed on first
// use and kept for the life of the process; concurrent first requests
// share a single load. A report whose file is absent is reported as
// missing so the caller can compute it live.
type Cache struct {
	dir    string
	store  gcache.Cache
	logger *slog.Logger
}

// NewCache creates a cache over the snapshot files in dir. Nothing is
// read until a report is requested.
func NewCache(dir string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{dir: dir, logger: logger}
	c.store = gcache.New(len(fileNames)).
		Simple().
		LoaderFunc(func(key interface{}) (interface{}, error) {
			return c.load(key.(Report))
		}).
		Build()
	return c
}

// Dir returns the snapshot directory.
func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) load(report Report) (interface{}, error) {
	var (
		rows  interface{}
		count int
		err   error
	)
	switch report {
	case BusiestStops:
		var r []models.BusiestStopRow
		r, err = ReadBusiestStops(c.dir)
		rows, count = r, len(r)
	case RouteDurations:
		var r []models.RouteDurationRow
		r, err = ReadRouteDurations(c.dir)
		rows, count = r, len(r)
	case TransferPoints:
		var r []models.TransferPointRow
		r, err = ReadTransferPoints(c.dir)
		rows, count = r, len(r)
	case HourlyFrequency:
		var r []models.HourlyFrequencyRow
		r, err = ReadHourlyFrequency(c.dir)
		rows, count = r, len(r)
	default:
		return nil, fmt.Errorf("unknown snapshot report %q", report)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", report.FileName(), err)
	}
	c.logger.Info("snapshot loaded", slog.String("file", report.FileName()), slog.Int("rows", count))
	return rows, nil
}

// get returns the cached rows of a report, loading them on first use.
func get[T any](c *Cache, report Report) ([]T, bool, error) {
	if !report.Exists(c.dir) {
		return nil, false, nil
	}
	v, err := c.store.Get(report)
	if err != nil {
		return nil, false, err
	}
	rows, ok := v.([]T)
	if !ok {
		return nil, false, fmt.Errorf("unexpected cached value for %s", report.FileName())
	}
	return rows, true, nil
}

func (c *Cache) BusiestStops() ([]models.BusiestStopRow, bool, error) {
	return get[models.BusiestStopRow](c, BusiestStops)
}

func (c *Cache) RouteDurations() ([]models.RouteDurationRow, bool, error) {
	return get[models.RouteDurationRow](c, RouteDurations)
}

func (c *Cache) TransferPoints() ([]models.TransferPointRow, bool, error) {
	return get[models.TransferPointRow](c, TransferPoints)
}

func (c *Cache) HourlyFrequency() ([]models.HourlyFrequencyRow, bool, error) {
	return get[models.HourlyFrequencyRow](c, HourlyFrequency)
}

// Purge drops every loaded report so the next request re-reads its file.
func (c *Cache) Purge() {
	c.store.Purge()
}
