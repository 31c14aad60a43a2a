package sink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rl1809/plant-floor/internal/core/domain"
)

var ErrClosed = errors.New("sink is closed")

type FileFormat string

const (
	FormatText FileFormat = "text"
	FormatJSON FileFormat = "json"
)

// FileSink writes the plant log to a file, truncating it on open. Text format
// reproduces the classic log.txt lines; json writes one record per line.
type FileSink struct {
	mu     sync.Mutex
	file   *os.File
	w      *bufio.Writer
	format FileFormat
}

func NewFileSink(path string, format FileFormat) (*FileSink, error) {
	if format == "" {
		format = FormatText
	}
	if format != FormatText && format != FormatJSON {
		return nil, fmt.Errorf("unknown file sink format %q", format)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	return &FileSink{file: f, w: bufio.NewWriter(f), format: format}, nil
}

func (s *FileSink) LogEvent(_ context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return ErrClosed
	}

	if s.format == FormatJSON {
		b, err := json.Marshal(toRecord(ev))
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		b = append(b, '\n')
		_, err = s.w.Write(b)
		return err
	}

	_, err := s.w.WriteString(FormatLine(ev) + "\n")
	return err
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}

	ferr := s.w.Flush()
	cerr := s.file.Close()
	s.file = nil
	return errors.Join(ferr, cerr)
}
