package camera

import (
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"time"

	"gesture-quiz-service/internal/domain"
)

var ErrEmptyFrame = errors.New("empty frame")

// Buffer holds the latest frame pushed by the participant's browser. It is the
// server-side frame source: Capture is unavailable until a frame arrives and
// again once the newest frame is older than maxAge.
type Buffer struct {
	maxAge time.Duration
	now    func() time.Time

	mu     sync.RWMutex
	latest domain.Frame
	has    bool
}

func NewBuffer(maxAge time.Duration) *Buffer {
	return NewBufferWithClock(maxAge, time.Now)
}

func NewBufferWithClock(maxAge time.Duration, now func() time.Time) *Buffer {
	return &Buffer{maxAge: maxAge, now: now}
}

// Push replaces the latest frame.
func (b *Buffer) Push(data []byte, mimeType string) error {
	if len(data) == 0 {
		return ErrEmptyFrame
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	frame := domain.Frame{Data: data, MIMEType: mimeType, CapturedAt: b.now()}

	b.mu.Lock()
	b.latest = frame
	b.has = true
	b.mu.Unlock()
	return nil
}

// PushEncoded accepts a base64 image, optionally as a data URL
// ("data:image/jpeg;base64,...").
func (b *Buffer) PushEncoded(encoded string) error {
	mimeType := ""
	if strings.HasPrefix(encoded, "data:") {
		header, body, ok := strings.Cut(encoded, ",")
		if !ok {
			return ErrEmptyFrame
		}
		mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		encoded = body
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return err
	}
	return b.Push(data, mimeType)
}

func (b *Buffer) Capture() (domain.Frame, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.has {
		return domain.Frame{}, false
	}
	if b.maxAge > 0 && b.now().Sub(b.latest.CapturedAt) > b.maxAge {
		return domain.Frame{}, false
	}
	return b.latest, true
}
