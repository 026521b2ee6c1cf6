package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const replayQueueSize = 1024

// ReplayLog appends a session's events to a zstd-compressed JSONL file. Emit
// never blocks the tick; a background writer does the IO.
type ReplayLog struct {
	path   string
	events chan Event
	wg     sync.WaitGroup

	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer

	closeOnce sync.Once
	dropped   int
	written   int   // lines handed to the encoder
	werr      error // first write failure; nothing is written after it
}

// ReplayPath is where a session's replay lives under dir
func ReplayPath(dir, sessionID string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.jsonl.zst", sessionID))
}

// OpenReplayLog creates the replay file for a session
func OpenReplayLog(dir, sessionID string) (*ReplayLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("replay dir: %w", err)
	}
	path := ReplayPath(dir, sessionID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("replay open: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("replay encoder: %w", err)
	}
	r := &ReplayLog{
		path:   path,
		events: make(chan Event, replayQueueSize),
		f:      f,
		enc:    enc,
		w:      bufio.NewWriterSize(enc, 64*1024),
	}
	r.wg.Add(1)
	go r.writer()
	return r, nil
}

// Path is the file being written
func (r *ReplayLog) Path() string { return r.path }

// Emit queues an event. When the queue is full the event is dropped.
func (r *ReplayLog) Emit(ev Event) {
	select {
	case r.events <- ev:
	default:
		r.dropped++
	}
}

func (r *ReplayLog) writer() {
	defer r.wg.Done()
	for ev := range r.events {
		b, err := json.Marshal(ev)
		if err != nil {
			log.Printf("[replay] marshal %s: %v", ev.Kind, err)
			continue
		}
		if r.werr != nil {
			continue
		}
		if _, err := r.w.Write(append(b, '\n')); err != nil {
			r.werr = fmt.Errorf("replay write: %w", err)
			log.Printf("[replay] %s: %v, dropping the rest", filepath.Base(r.path), err)
			continue
		}
		r.written++
	}
}

// Close drains the queue and finishes the compressed stream
func (r *ReplayLog) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.events)
		r.wg.Wait()
		err = r.werr
		if ferr := r.w.Flush(); ferr != nil && err == nil {
			err = ferr
		}
		if cerr := r.enc.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if cerr := r.f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if r.dropped > 0 {
			log.Printf("[replay] %s: dropped %d events", filepath.Base(r.path), r.dropped)
		}
	})
	return err
}

// ReadReplay decodes every event line of a replay file
func ReadReplay(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("replay decoder: %w", err)
	}
	defer dec.Close()

	var out []json.RawMessage
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := append([]byte(nil), sc.Bytes()...)
		out = append(out, json.RawMessage(line))
	}
	return out, sc.Err()
}
