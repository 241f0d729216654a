package storage

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
	"github.com/WangYihang/storefront-detector/pkg/domain/repository"
)

// ResultWriter implements repository.ResultWriter as JSON lines
type ResultWriter struct {
	file    *os.File
	encoder *json.Encoder
	stdout  bool
	mu      sync.Mutex
}

// NewResultWriter creates a new result writer (use "-" for stdout)
func NewResultWriter(filename string) (repository.ResultWriter, error) {
	if filename == "-" {
		return &ResultWriter{
			file:    os.Stdout,
			encoder: json.NewEncoder(os.Stdout),
			stdout:  true,
		}, nil
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &ResultWriter{
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

// Write writes a single delivery
func (w *ResultWriter) Write(delivery *entity.Delivery) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.encoder.Encode(delivery)
}

// Flush ensures all buffered data is written
func (w *ResultWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stdout {
		return nil
	}
	return w.file.Sync()
}

// Close closes the writer
func (w *ResultWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stdout {
		return nil
	}
	return w.file.Close()
}
