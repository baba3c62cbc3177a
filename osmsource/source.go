// Package osmsource extracts closed ways from OpenStreetMap PBF extracts as
// polygon features.
package osmsource

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/cheggaaa/pb/v3/termutil"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/royalcat/polyreduce/kv"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

type Config struct {
	Threads int
	// CachePath is a directory for the on-disk node cache. Empty keeps nodes
	// in memory.
	CachePath string
	Tags      string
	Progress  bool
}

func ConfigDefault() Config {
	return Config{
		Threads: runtime.GOMAXPROCS(-1),
		Tags:    "building",
	}
}

type Source struct {
	threads   int
	cachePath string
	filter    Filter
	progress  bool

	log *logrus.Logger
}

func New(cfg Config) *Source {
	if cfg.Threads <= 0 {
		cfg.Threads = ConfigDefault().Threads
	}
	return &Source{
		threads:   cfg.Threads,
		cachePath: cfg.CachePath,
		filter:    ParseFilter(cfg.Tags),
		progress:  cfg.Progress,
		log:       logrus.StandardLogger(),
	}
}

// Polygons reads the PBF file twice: first for the matching closed ways, then
// for the coordinates of their nodes.
func (s *Source) Polygons(ctx context.Context, name string) (*geojson.FeatureCollection, error) {
	log := s.log.WithField("input", name).WithField("filter", s.filter.String())

	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	ways, wanted, err := s.collectWays(ctx, file, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("error scanning ways: %w", err)
	}
	log.WithField("ways", len(ways)).WithField("nodes", len(wanted)).Info("Matching ways collected")

	nodes, err := s.openNodeCache(name)
	if err != nil {
		return nil, err
	}
	defer nodes.Close()

	if err := s.fillNodeCache(ctx, file, stat.Size(), wanted, nodes); err != nil {
		return nil, fmt.Errorf("error filling node cache: %w", err)
	}
	if err := nodes.Flush(); err != nil {
		return nil, err
	}

	features := make([]*geojson.Feature, len(ways))
	p := pool.New().WithMaxGoroutines(s.threads)
	for i, w := range ways {
		p.Go(func() {
			ring, ok := buildRing(w, nodes)
			if !ok {
				return
			}
			features[i] = wayFeature(w, ring)
		})
	}
	p.Wait()

	fc := geojson.NewFeatureCollection()
	missing := 0
	for _, f := range features {
		if f == nil {
			missing++
			continue
		}
		fc.Append(f)
	}
	if missing > 0 {
		log.WithField("ways", missing).Warn("Ways with missing nodes skipped")
	}
	log.WithField("polygons", len(fc.Features)).Info("Polygons extracted")

	return fc, nil
}

func (s *Source) collectWays(ctx context.Context, file *os.File, size int64) ([]*osm.Way, map[osm.NodeID]struct{}, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, nil, err
	}

	scanner := osmpbf.New(ctx, file, s.threads)
	defer scanner.Close()
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	var ways []*osm.Way
	wanted := map[osm.NodeID]struct{}{}
	err := s.scanWithProgress(scanner, size, "1/2 collecting ways", func(o osm.Object) {
		w, ok := o.(*osm.Way)
		if !ok || !closed(w) || !s.filter.Match(w) {
			return
		}
		ways = append(ways, w)
		for _, n := range w.Nodes {
			wanted[n.ID] = struct{}{}
		}
	})
	return ways, wanted, err
}

func (s *Source) fillNodeCache(ctx context.Context, file *os.File, size int64, wanted map[osm.NodeID]struct{}, nodes kv.KVS[osm.NodeID, orb.Point]) error {
	if len(wanted) == 0 {
		return nil
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	scanner := osmpbf.New(ctx, file, s.threads)
	defer scanner.Close()
	scanner.SkipWays = true
	scanner.SkipRelations = true

	return s.scanWithProgress(scanner, size, "2/2 filling node cache", func(o osm.Object) {
		n, ok := o.(*osm.Node)
		if !ok {
			return
		}
		if _, ok := wanted[n.ID]; ok {
			nodes.Set(n.ID, n.Point())
		}
	})
}

func (s *Source) openNodeCache(input string) (kv.KVS[osm.NodeID, orb.Point], error) {
	if s.cachePath == "" {
		return kv.NewMutexMap[osm.NodeID, orb.Point](), nil
	}

	dir := filepath.Join(s.cachePath, filepath.Base(input)+".nodes")
	if err := os.RemoveAll(dir); err != nil {
		return nil, err
	}
	s.log.WithField("path", dir).Info("Opening node cache database")
	nodes, err := kv.OpenLevelPoints[osm.NodeID](dir)
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func (s *Source) scanWithProgress(scanner *osmpbf.Scanner, size int64, name string, it func(osm.Object)) error {
	if !s.progress {
		for scanner.Scan() {
			it(scanner.Object())
		}
		return scanner.Err()
	}

	bar := pb.Start64(size)
	bar.Set("prefix", name)
	bar.Set(pb.Bytes, true)
	bar.SetRefreshRate(time.Second)
	if w, err := termutil.TerminalWidth(); w == 0 || err != nil {
		bar.SetTemplateString(`{{with string . "prefix"}}{{.}} {{end}}{{counters . }} {{bar . }} {{percent . }} {{speed . }} {{rtime . "ETA %s"}}{{with string . "suffix"}} {{.}}{{end}}` + "\n")
	}

	for scanner.Scan() {
		bar.SetCurrent(scanner.FullyScannedBytes())
		it(scanner.Object())
	}
	bar.Finish()

	return scanner.Err()
}

func closed(w *osm.Way) bool {
	n := len(w.Nodes)
	return n >= 4 && w.Nodes[0].ID == w.Nodes[n-1].ID
}

// buildRing resolves node coordinates into a counter-clockwise ring.
func buildRing(w *osm.Way, nodes kv.KVS[osm.NodeID, orb.Point]) (orb.Ring, bool) {
	ring := make(orb.Ring, 0, len(w.Nodes))
	for _, n := range w.Nodes {
		p, ok := nodes.Get(n.ID)
		if !ok {
			return nil, false
		}
		ring = append(ring, p)
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	if ring.Orientation() == orb.CW {
		ring.Reverse()
	}
	return ring, true
}

func wayFeature(w *osm.Way, ring orb.Ring) *geojson.Feature {
	f := geojson.NewFeature(orb.Polygon{ring})
	f.ID = fmt.Sprintf("way/%d", w.ID)
	for _, t := range w.Tags {
		f.Properties[t.Key] = t.Value
	}
	return f
}
