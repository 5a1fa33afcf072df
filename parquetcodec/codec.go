package parquetcodec

import (
	"bytes"
	"io"
	"sync"

	pq "github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/rhizodata/rhizo/common/rhizoerr"
)

// Compression names the supported Parquet page compression codecs
// (spec.md §4.3: "None | Snappy | Gzip | Lz4 | Zstd; default Zstd").
type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionSnappy Compression = "snappy"
	CompressionGzip   Compression = "gzip"
	CompressionLz4    Compression = "lz4"
	CompressionZstd   Compression = "zstd"
)

func (c Compression) codec() compress.Codec {
	switch c {
	case CompressionSnappy:
		return &pq.Snappy
	case CompressionGzip:
		return &pq.Gzip
	case CompressionLz4:
		return &pq.Lz4Raw
	case CompressionNone:
		return nil
	case CompressionZstd, "":
		return &pq.Zstd
	default:
		return &pq.Zstd
	}
}

// Encode writes batch as Parquet bytes using the given compression (empty
// string defaults to Zstd). Empty batches fail with EmptyData.
func Encode(batch Batch, compression Compression) ([]byte, error) {
	if len(batch.Rows) == 0 {
		return nil, rhizoerr.EmptyData()
	}

	schema := schemaToParquet(batch.TableName, batch.Schema)
	opts := []pq.WriterOption{schema}
	if codec := compression.codec(); codec != nil {
		opts = append(opts, pq.Compression(codec))
	}

	// pq.Group reorders columns by name, so pq.Row values must be built in
	// the schema's own field order, not batch.Schema's declaration order.
	writeSchema := parquetSchemaToBatchSchema(schema)

	var buf bytes.Buffer
	writer := pq.NewWriter(&buf, opts...)

	rows := make([]pq.Row, 0, min(1024, len(batch.Rows)))
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		if _, err := writer.WriteRows(rows); err != nil {
			return rhizoerr.IO("write parquet rows", err)
		}
		rows = rows[:0]
		return nil
	}
	for _, row := range batch.Rows {
		r, err := rowToParquetRow(writeSchema, row)
		if err != nil {
			return nil, err
		}
		rows = append(rows, r)
		if len(rows) >= 1024 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, rhizoerr.IO("close parquet writer", err)
	}
	return buf.Bytes(), nil
}

// EncodeBatches encodes each batch concurrently (spec.md §4.3:
// "Batch-encode parallelizes across input batches").
func EncodeBatches(batches []Batch, compression Compression) ([][]byte, error) {
	out := make([][]byte, len(batches))
	errs := make([]error, len(batches))
	var wg sync.WaitGroup
	for i, b := range batches {
		wg.Add(1)
		go func(i int, b Batch) {
			defer wg.Done()
			data, err := Encode(b, compression)
			out[i], errs[i] = data, err
		}(i, b)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func openFile(data []byte) (*pq.File, error) {
	f, err := pq.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, rhizoerr.IO("open parquet file", err)
	}
	return f, nil
}

// Decode concatenates every row group into a single Batch. An empty file
// fails with EmptyData.
func Decode(data []byte) (Batch, error) {
	pf, err := openFile(data)
	if err != nil {
		return Batch{}, err
	}
	full := parquetSchemaToBatchSchema(pf.Schema())
	return readAll(data, pf, pf.Schema(), full)
}

// DecodeColumns projects by column index.
func DecodeColumns(data []byte, indices []int) (Batch, error) {
	pf, err := openFile(data)
	if err != nil {
		return Batch{}, err
	}
	full := parquetSchemaToBatchSchema(pf.Schema())
	names := make([]string, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(full) {
			available := make([]string, len(full))
			for j, c := range full {
				available[j] = c.Name
			}
			return Batch{}, rhizoerr.InvalidColumn("<index out of range>", available)
		}
		names = append(names, full[i].Name)
	}
	return DecodeColumnsByName(data, names)
}

// DecodeColumnsByName projects by column name.
func DecodeColumnsByName(data []byte, names []string) (Batch, error) {
	pf, err := openFile(data)
	if err != nil {
		return Batch{}, err
	}
	full := parquetSchemaToBatchSchema(pf.Schema())
	projected, err := projectedSchema(pf.Schema().Name(), full, names)
	if err != nil {
		return Batch{}, err
	}
	return readAll(data, pf, projected, selectSchema(full, names))
}

func selectSchema(full []ColumnSchema, names []string) []ColumnSchema {
	out := make([]ColumnSchema, 0, len(names))
	for _, n := range names {
		if c, ok := columnByName(full, n); ok {
			out = append(out, c)
		}
	}
	return out
}

func readAll(data []byte, pf *pq.File, readSchema *pq.Schema, resultSchema []ColumnSchema) (Batch, error) {
	if pf.NumRows() == 0 {
		return Batch{}, rhizoerr.EmptyData()
	}

	reader := pq.NewReader(bytes.NewReader(data), readSchema)
	defer reader.Close()

	batch := Batch{TableName: pf.Schema().Name(), Schema: resultSchema}
	buf := make([]pq.Row, 128)
	for {
		n, err := reader.ReadRows(buf)
		for i := 0; i < n; i++ {
			batch.Rows = append(batch.Rows, parquetRowToRow(resultSchema, buf[i]))
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return Batch{}, rhizoerr.IO("read parquet rows", err)
		}
	}
	return batch, nil
}
