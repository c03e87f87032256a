package ais

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultFragmentTTL bounds how long a partial message is kept.
const DefaultFragmentTTL = 10 * time.Second

// FragmentStore keeps the fragments of partially received messages.
// AddFragment stores one part and returns every part currently held under
// key, including the one just added.
type FragmentStore interface {
	AddFragment(ctx context.Context, key string, num int, value string, ttl time.Duration) (map[int]string, error)
	Delete(ctx context.Context, key string) error
}

// Reassembler joins multi-sentence messages. Fragments are grouped by
// source, fragment count and sequential message id.
type Reassembler struct {
	store  FragmentStore
	ttl    time.Duration
	opts   DecodeOptions
	logger *logrus.Logger
}

// NewReassembler creates a reassembler backed by store.
func NewReassembler(store FragmentStore, ttl time.Duration, opts DecodeOptions, logger *logrus.Logger) *Reassembler {
	if ttl <= 0 {
		ttl = DefaultFragmentTTL
	}
	return &Reassembler{
		store:  store,
		ttl:    ttl,
		opts:   opts,
		logger: logger,
	}
}

// FragmentKey is the store key shared by all fragments of one message.
func FragmentKey(src string, rec Record) string {
	id := ""
	if rec.MessageID != nil {
		id = strconv.Itoa(*rec.MessageID)
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%s-%d-%s", src, rec.FragCount, id)))
	return "aisFrag-" + hex.EncodeToString(sum[:])
}

// Add feeds one record. Complete records are returned as they are. For
// fragments, ok is true only once the last missing part arrives; the
// returned record then carries the joined, decoded payload with
// IsAssembled set.
func (r *Reassembler) Add(ctx context.Context, src string, rec Record) (Record, bool, error) {
	if !rec.IsFrag {
		return rec, true, nil
	}

	key := FragmentKey(src, rec)
	// fill bits only matter on the last part but are kept with every part
	value := rec.Payload + "," + strconv.Itoa(rec.FillBits)

	parts, err := r.store.AddFragment(ctx, key, rec.FragNumber, value, r.ttl)
	if err != nil {
		return Record{}, false, fmt.Errorf("store fragment %d/%d: %w", rec.FragNumber, rec.FragCount, err)
	}
	if len(parts) < rec.FragCount {
		return Record{}, false, nil
	}

	var payload strings.Builder
	fill := 0
	for i := 1; i <= rec.FragCount; i++ {
		part, ok := parts[i]
		if !ok {
			return Record{}, false, nil
		}
		data, fillStr, _ := strings.Cut(part, ",")
		payload.WriteString(data)
		if i == rec.FragCount {
			if fill, err = strconv.Atoi(fillStr); err != nil {
				return Record{}, false, fmt.Errorf("%w: stored fill bits %q", ErrMalformedSentence, fillStr)
			}
		}
	}

	if err := r.store.Delete(ctx, key); err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("Failed to delete assembled fragments")
	}

	out := rec
	out.Payload = payload.String()
	out.FillBits = fill
	out.FragNumber = rec.FragCount
	out.IsFrag = false
	out.IsAssembled = true

	if err := decodePayload(&out, r.opts); err != nil {
		return Record{}, false, err
	}

	r.logger.WithFields(logrus.Fields{
		"src":       src,
		"fragments": rec.FragCount,
		"type":      out.PayloadType,
		"mmsi":      out.MMSI,
	}).Debug("Assembled AIS message")

	return out, true, nil
}
