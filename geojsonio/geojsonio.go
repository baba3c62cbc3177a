// Package geojsonio reads and writes GeoJSON files, optionally zstd
// compressed. The name "-" stands for stdin or stdout.
package geojsonio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/mailru/easyjson/jlexer"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/exp/mmap"
	"golang.org/x/sync/errgroup"
)

const Stdio = "-"

var ErrUnsupportedType = errors.New("geojson: unsupported type")

// ReadFile reads a FeatureCollection, a Feature or a bare Geometry and returns
// it as a FeatureCollection.
func ReadFile(name string) (*geojson.FeatureCollection, error) {
	data, err := readAll(name)
	if err != nil {
		return nil, err
	}

	fc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", name, err)
	}
	return fc, nil
}

// ReadFiles reads all files concurrently and concatenates their features in
// the order of names.
func ReadFiles(ctx context.Context, names []string) (*geojson.FeatureCollection, error) {
	parts := make([]*geojson.FeatureCollection, len(names))

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fc, err := ReadFile(name)
			if err != nil {
				return err
			}
			parts[i] = fc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := geojson.NewFeatureCollection()
	for _, fc := range parts {
		out.Features = append(out.Features, fc.Features...)
	}
	return out, nil
}

func readAll(name string) ([]byte, error) {
	if name == Stdio {
		return io.ReadAll(os.Stdin)
	}

	if strings.HasSuffix(name, ".zst") {
		file, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("can`t open file error: %w", err)
		}
		defer file.Close()

		dec, err := zstd.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("can`t create zstd reader: %w", err)
		}
		defer dec.Close()

		return io.ReadAll(dec)
	}

	r, err := mmap.Open(name)
	if err != nil {
		return nil, fmt.Errorf("can`t open file error: %w", err)
	}
	defer r.Close()

	data := make([]byte, r.Len())
	if _, err := r.ReadAt(data, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error reading %s: %w", name, err)
	}
	return data, nil
}

// Decode parses any GeoJSON object into a FeatureCollection.
func Decode(data []byte) (*geojson.FeatureCollection, error) {
	typ, err := objectType(data)
	if err != nil {
		return nil, err
	}

	switch typ {
	case "FeatureCollection":
		return geojson.UnmarshalFeatureCollection(data)
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, err
		}
		return geojson.NewFeatureCollection().Append(f), nil
	case "Point", "MultiPoint", "LineString", "MultiLineString", "Polygon", "MultiPolygon", "GeometryCollection":
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, err
		}
		return geojson.NewFeatureCollection().Append(geojson.NewFeature(g.Geometry())), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, typ)
}

// objectType returns the "type" member of the top level object.
func objectType(data []byte) (string, error) {
	in := jlexer.Lexer{Data: data}
	in.Delim('{')
	for !in.IsDelim('}') && in.Ok() {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if key == "type" {
			typ := in.String()
			if err := in.Error(); err != nil {
				return "", err
			}
			return typ, nil
		}
		in.SkipRecursive()
		in.WantComma()
	}
	if err := in.Error(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%w: object has no type", ErrUnsupportedType)
}

func WriteFile(name string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("error encoding feature collection: %w", err)
	}

	if name == Stdio {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}

	file, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("can`t create file error: %w", err)
	}
	defer file.Close()

	if strings.HasSuffix(name, ".zst") {
		enc, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return fmt.Errorf("can`t create zstd writer: %w", err)
		}
		if _, err := enc.Write(data); err != nil {
			enc.Close()
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		return file.Close()
	}

	if _, err := file.Write(data); err != nil {
		return err
	}
	return file.Close()
}
