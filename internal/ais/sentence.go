package ais

import (
	"fmt"
	"strconv"
	"strings"
)

const sentenceFields = 7

// Decode decodes one NMEA sentence without name fields.
func Decode(sentence string) (Record, error) {
	return DecodeSentence(sentence, DecodeOptions{})
}

// DecodeSentence decodes one NMEA sentence. A checksum mismatch is reported
// in the record, not as an error. Fragments of multi-sentence messages are
// returned with IsFrag set and the payload left armored.
func DecodeSentence(sentence string, opts DecodeOptions) (Record, error) {
	rec, err := parseSentence(sentence)
	if err != nil {
		return Record{}, err
	}

	if rec.FragCount > 1 {
		rec.IsFrag = true
		return rec, nil
	}
	if !carriesPayload(rec.SentenceType) {
		return rec, nil
	}
	if err := decodePayload(&rec, opts); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func parseSentence(sentence string) (Record, error) {
	s := strings.TrimSpace(sentence)
	// drop tag blocks and receiver prefixes
	if i := strings.IndexByte(s, '!'); i > 0 {
		s = s[i:]
	}

	fields := strings.Split(s, ",")
	if len(fields) != sentenceFields {
		return Record{}, fmt.Errorf("%w: %d fields", ErrMalformedSentence, len(fields))
	}

	var rec Record
	var err error

	rec.SentenceType = strings.TrimLeft(fields[0], "!$")
	if rec.FragCount, err = strconv.Atoi(fields[1]); err != nil {
		return Record{}, fmt.Errorf("%w: fragment count: %v", ErrMalformedSentence, err)
	}
	if rec.FragNumber, err = strconv.Atoi(fields[2]); err != nil {
		return Record{}, fmt.Errorf("%w: fragment number: %v", ErrMalformedSentence, err)
	}
	if rec.FragCount < 1 || rec.FragNumber < 1 || rec.FragNumber > rec.FragCount {
		return Record{}, fmt.Errorf("%w: fragment %d of %d", ErrMalformedSentence, rec.FragNumber, rec.FragCount)
	}
	if fields[3] != "" {
		id, err := strconv.Atoi(fields[3])
		if err != nil {
			return Record{}, fmt.Errorf("%w: message id: %v", ErrMalformedSentence, err)
		}
		rec.MessageID = &id
	}

	rec.Channel = normalizeChannel(fields[4])
	rec.Payload = fields[5]

	fill, sum, found := strings.Cut(fields[6], "*")
	if !found || len(sum) != 2 {
		return Record{}, fmt.Errorf("%w: checksum field %q", ErrMalformedSentence, fields[6])
	}
	if rec.FillBits, err = strconv.Atoi(fill); err != nil {
		return Record{}, fmt.Errorf("%w: fill bits: %v", ErrMalformedSentence, err)
	}
	cs, err := strconv.ParseUint(sum, 16, 8)
	if err != nil {
		return Record{}, fmt.Errorf("%w: checksum: %v", ErrMalformedSentence, err)
	}
	rec.FrameChecksum = uint8(cs)
	rec.CmpChecksum = Checksum(s)

	return rec, nil
}

// Checksum is the NMEA checksum of sentence: the XOR of every character
// between the leading '!' or '$' and the '*'.
func Checksum(sentence string) uint8 {
	var cs uint8
	start := 0
	if strings.HasPrefix(sentence, "!") || strings.HasPrefix(sentence, "$") {
		start = 1
	}
	for i := start; i < len(sentence); i++ {
		if sentence[i] == '*' {
			break
		}
		cs ^= sentence[i]
	}
	return cs
}

func normalizeChannel(ch string) string {
	switch ch {
	case "1":
		return "A"
	case "2":
		return "B"
	}
	return ch
}

// carriesPayload reports whether the sentence type is a VDM or VDO
// sentence from any talker.
func carriesPayload(sentenceType string) bool {
	return len(sentenceType) == 5 &&
		(strings.HasSuffix(sentenceType, "VDM") || strings.HasSuffix(sentenceType, "VDO"))
}
