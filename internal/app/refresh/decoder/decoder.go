// Package decoder streams card records out of a bulk JSON array file.
// Only one element is held in memory at a time.
package decoder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/heartmarshall/mtgportal-cron/internal/domain"
)

const readBufferSize = 64 << 10

var validate = validator.New()

// Stream yields the elements of a top-level JSON array one at a time.
type Stream struct {
	src   io.Closer
	dec   *json.Decoder
	count int
	done  bool
}

// Open opens path and consumes the opening bracket of the array. A payload
// that is not an array fails here, before any record is produced.
func Open(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open payload: %w", err)
	}
	return newStream(f)
}

// newStream reads the array from src and takes ownership of it.
func newStream(src io.ReadCloser) (*Stream, error) {
	dec := json.NewDecoder(bufio.NewReaderSize(src, readBufferSize))

	tok, err := dec.Token()
	if err != nil {
		src.Close()
		if errors.Is(err, io.EOF) {
			return nil, &domain.DecodeError{Index: -1, Err: fmt.Errorf("%w: empty payload", domain.ErrNotArray)}
		}
		return nil, &domain.DecodeError{Index: -1, Err: fmt.Errorf("%w: %v", domain.ErrNotArray, err)}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		src.Close()
		return nil, &domain.DecodeError{Index: -1, Err: fmt.Errorf("%w: starts with %v", domain.ErrNotArray, tok)}
	}

	return &Stream{src: src, dec: dec}, nil
}

// Next returns the next record, or io.EOF after the closing bracket.
// Any malformed or invalid element ends the stream with a *domain.DecodeError.
func (s *Stream) Next() (domain.CardRecord, error) {
	if s.done {
		return domain.CardRecord{}, io.EOF
	}

	if !s.dec.More() {
		s.done = true
		return domain.CardRecord{}, s.finish()
	}

	idx := s.count
	var rec domain.CardRecord
	if err := s.dec.Decode(&rec); err != nil {
		s.done = true
		return domain.CardRecord{}, &domain.DecodeError{Index: idx, Err: fmt.Errorf("%w: %v", domain.ErrMalformedRecord, err)}
	}
	if err := validate.Struct(rec); err != nil {
		s.done = true
		return domain.CardRecord{}, &domain.DecodeError{Index: idx, Err: fmt.Errorf("%w: %v", domain.ErrMalformedRecord, err)}
	}

	s.count++
	return rec, nil
}

// finish consumes the closing bracket and rejects anything after it.
func (s *Stream) finish() error {
	tok, err := s.dec.Token()
	if err != nil {
		return &domain.DecodeError{Index: -1, Err: fmt.Errorf("%w: unterminated array: %v", domain.ErrNotArray, err)}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != ']' {
		return &domain.DecodeError{Index: -1, Err: fmt.Errorf("%w: unexpected token %v", domain.ErrNotArray, tok)}
	}

	if tok, err := s.dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = fmt.Errorf("token %v", tok)
		}
		return &domain.DecodeError{Index: -1, Err: fmt.Errorf("%w: trailing data after array: %v", domain.ErrNotArray, err)}
	}
	return io.EOF
}

// Count returns the number of records produced so far.
func (s *Stream) Count() int { return s.count }

// Close releases the underlying file.
func (s *Stream) Close() error {
	return s.src.Close()
}
