package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/aluiziolira/go-seller-inventory/models"
)

// OutputWriter defines the interface for product output.
type OutputWriter interface {
	Write(products []models.ProductRecord) error
	Close() error
}

// NewWriter opens path ("-" for out) and returns a writer for format.
func NewWriter(format, path string, out io.Writer) (OutputWriter, error) {
	var closer io.Closer
	if path != "-" {
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create output file: %w", err)
		}
		out, closer = f, f
	}

	switch format {
	case "json":
		return NewJSONArrayWriter(out, closer), nil
	case "jsonl":
		return NewJSONLinesWriter(out, closer), nil
	case "csv":
		w, err := NewCSVWriter(out, closer)
		if err != nil {
			if closer != nil {
				closer.Close()
			}
			return nil, err
		}
		return w, nil
	default:
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// CSVWriter writes records to CSV.
type CSVWriter struct {
	closer io.Closer
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(out io.Writer, closer io.Closer) (*CSVWriter, error) {
	writer := csv.NewWriter(out)
	header := []string{"id", "title", "price_text", "detail_url", "marketplace", "seller_id", "seller_name"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		closer: closer,
		writer: writer,
	}, nil
}

// Write appends products to the CSV output.
func (cw *CSVWriter) Write(products []models.ProductRecord) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, p := range products {
		record := []string{
			p.ID,
			p.Title,
			p.PriceText,
			p.DetailURL,
			p.Marketplace,
			p.SellerID,
			p.SellerName,
		}
		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file, if any.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return closeIfSet(cw.closer)
}

// JSONLinesWriter writes newline-delimited JSON records.
type JSONLinesWriter struct {
	closer  io.Closer
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONLinesWriter initialises the JSONL writer.
func NewJSONLinesWriter(out io.Writer, closer io.Closer) *JSONLinesWriter {
	buffer := bufio.NewWriter(out)
	return &JSONLinesWriter{
		closer:  closer,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}
}

// Write appends products in JSONL format.
func (jw *JSONLinesWriter) Write(products []models.ProductRecord) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, p := range products {
		if err := jw.encoder.Encode(p); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the underlying file, if any.
func (jw *JSONLinesWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return closeIfSet(jw.closer)
}

// JSONArrayWriter streams products as a single JSON array.
type JSONArrayWriter struct {
	closer io.Closer
	writer *bufio.Writer
	count  int
	mu     sync.Mutex
}

// NewJSONArrayWriter initialises the JSON array writer.
func NewJSONArrayWriter(out io.Writer, closer io.Closer) *JSONArrayWriter {
	return &JSONArrayWriter{
		closer: closer,
		writer: bufio.NewWriter(out),
	}
}

// Write appends products to the array.
func (aw *JSONArrayWriter) Write(products []models.ProductRecord) error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	for _, p := range products {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
		sep := ",\n"
		if aw.count == 0 {
			sep = "[\n"
		}
		if _, err := aw.writer.WriteString(sep); err != nil {
			return fmt.Errorf("write json array: %w", err)
		}
		if _, err := aw.writer.Write(data); err != nil {
			return fmt.Errorf("write json array: %w", err)
		}
		aw.count++
	}
	return nil
}

// Close terminates the array and closes the underlying file, if any.
func (aw *JSONArrayWriter) Close() error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	tail := "\n]\n"
	if aw.count == 0 {
		tail = "[]\n"
	}
	if _, err := aw.writer.WriteString(tail); err != nil {
		return fmt.Errorf("write json array: %w", err)
	}
	if err := aw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return closeIfSet(aw.closer)
}

func closeIfSet(c io.Closer) error {
	if c == nil {
		return nil
	}
	return c.Close()
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
