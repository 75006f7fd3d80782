package decoder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/heartmarshall/mtgportal-cron/internal/domain"
)

func writePayload(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cards.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	return path
}

func readAll(t *testing.T, s *Stream) ([]domain.CardRecord, error) {
	t.Helper()
	var out []domain.CardRecord
	for {
		rec, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

func ptr[T any](v T) *T { return &v }

func TestStream_SchemaFidelity(t *testing.T) {
	t.Parallel()

	path := writePayload(t, `[
	{
		"object": "card",
		"id": "0000579f-7b35-4ed3-b44c-db2a538066fe",
		"oracle_id": "44623693-51d6-49ad-8cd7-140505caf02f",
		"multiverse_ids": [109722],
		"name": "Fury Sliver",
		"cmc": 6.0,
		"colors": ["R"],
		"keywords": [],
		"legalities": {"vintage": "legal", "modern": "legal"},
		"reserved": false,
		"edhrec_rank": 6153,
		"released_at": "2006-10-06",
		"set": "tsp",
		"oracle_text": null,
		"some_future_field": {"ignored": true}
	},
	{"id": "b"}
]`)

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	got, err := readAll(t, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []domain.CardRecord{
		{
			Object:        ptr("card"),
			ID:            "0000579f-7b35-4ed3-b44c-db2a538066fe",
			OracleID:      ptr("44623693-51d6-49ad-8cd7-140505caf02f"),
			MultiverseIDs: []int32{109722},
			Name:          ptr("Fury Sliver"),
			Cmc:           ptr(6.0),
			Colors:        []string{"R"},
			Keywords:      []string{},
			Legalities:    json.RawMessage(`{"vintage": "legal", "modern": "legal"}`),
			Reserved:      ptr(false),
			EdhrecRank:    ptr(int32(6153)),
			ReleasedAt:    ptr("2006-10-06"),
			Set:           ptr("tsp"),
		},
		{ID: "b"},
	}

	opts := cmp.Comparer(func(a, b json.RawMessage) bool {
		if a == nil || b == nil {
			return a == nil && b == nil
		}
		var av, bv any
		return json.Unmarshal(a, &av) == nil && json.Unmarshal(b, &bv) == nil && cmp.Equal(av, bv)
	})
	if diff := cmp.Diff(want, got, opts); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if s.Count() != 2 {
		t.Errorf("Count() = %d, want 2", s.Count())
	}

	// Absent array stays nil, present empty array stays empty.
	if got[1].Colors != nil {
		t.Errorf("absent colors = %#v, want nil", got[1].Colors)
	}
	if got[0].Keywords == nil {
		t.Error("empty keywords array decoded as nil")
	}
}

func TestStream_EmptyArray(t *testing.T) {
	t.Parallel()

	s, err := Open(writePayload(t, " [ ] \n"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next() = %v, want io.EOF", err)
	}
	// Stays exhausted.
	if _, err := s.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("second Next() = %v, want io.EOF", err)
	}
}

func TestOpen_NotArray(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"object", `{"id": "a"}`},
		{"scalar", `42`},
		{"string", `"cards"`},
		{"empty file", ``},
		{"whitespace only", "  \n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := Open(writePayload(t, tt.content))
			if err == nil {
				s.Close()
				t.Fatal("expected error")
			}

			var decErr *domain.DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("err = %v, want *domain.DecodeError", err)
			}
			if decErr.Index != -1 {
				t.Errorf("Index = %d, want -1", decErr.Index)
			}
			if !errors.Is(err, domain.ErrNotArray) {
				t.Errorf("err = %v, want ErrNotArray", err)
			}
		})
	}
}

func TestOpen_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
}

func TestStream_MalformedElements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		content   string
		wantIndex int
		wantErr   error
		wantGood  int
	}{
		{"scalar element", `[{"id":"a"}, 7]`, 1, domain.ErrMalformedRecord, 1},
		{"array element", `[[1,2]]`, 0, domain.ErrMalformedRecord, 0},
		{"missing id", `[{"id":"a"}, {"name":"x"}]`, 1, domain.ErrMalformedRecord, 1},
		{"null element", `[null]`, 0, domain.ErrMalformedRecord, 0},
		{"bad date", `[{"id":"a","released_at":"06/10/2006"}]`, 0, domain.ErrMalformedRecord, 0},
		{"wrong field type", `[{"id":"a","cmc":"six"}]`, 0, domain.ErrMalformedRecord, 0},
		{"truncated", `[{"id":"a"}, {"id":`, 1, domain.ErrMalformedRecord, 1},
		{"unterminated", `[{"id":"a"}`, -1, domain.ErrNotArray, 1},
		{"trailing data", `[{"id":"a"}] {"id":"b"}`, -1, domain.ErrNotArray, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := Open(writePayload(t, tt.content))
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer s.Close()

			got, err := readAll(t, s)
			if len(got) != tt.wantGood {
				t.Errorf("decoded %d records before failure, want %d", len(got), tt.wantGood)
			}

			var decErr *domain.DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("err = %v, want *domain.DecodeError", err)
			}
			if decErr.Index != tt.wantIndex {
				t.Errorf("Index = %d, want %d", decErr.Index, tt.wantIndex)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}

			// The stream is finished after a failure.
			if _, err := s.Next(); !errors.Is(err, io.EOF) {
				t.Errorf("Next() after failure = %v, want io.EOF", err)
			}
		})
	}
}

// endlessArray serves a JSON array that never ends, one element at a time.
type endlessArray struct {
	next     int
	pending  []byte
	consumed int
}

var padding = strings.Repeat("x", 200)

func cardElement(i int) string {
	return fmt.Sprintf(`{"id":"card-%d","name":"Card %d","oracle_text":%q}`, i, i, padding)
}

func (a *endlessArray) Read(p []byte) (int, error) {
	if len(a.pending) == 0 {
		sep := ","
		if a.next == 0 {
			sep = "["
		}
		a.pending = []byte(sep + cardElement(a.next))
		a.next++
	}
	n := copy(p, a.pending)
	a.pending = a.pending[n:]
	a.consumed += n
	return n, nil
}

func (a *endlessArray) Close() error { return nil }

func TestStream_BoundedReadAhead(t *testing.T) {
	t.Parallel()

	const k = 20000
	src := &endlessArray{}
	s, err := newStream(src)
	if err != nil {
		t.Fatalf("newStream: %v", err)
	}
	defer s.Close()

	for i := 0; i < k; i++ {
		rec, err := s.Next()
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if want := fmt.Sprintf("card-%d", i); rec.ID != want {
			t.Fatalf("record %d: id = %q, want %q", i, rec.ID, want)
		}
	}
	if s.Count() != k {
		t.Errorf("Count() = %d, want %d", s.Count(), k)
	}

	// Bytes of the first k elements, brackets and commas included.
	decoded := 0
	for i := 0; i < k; i++ {
		decoded += 1 + len(cardElement(i))
	}
	readAhead := src.consumed - decoded
	if readAhead > 1<<20 {
		t.Errorf("read %d bytes past record %d, want at most 1 MiB (%d bytes decoded)", readAhead, k, decoded)
	}
}
