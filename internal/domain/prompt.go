package domain

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// NegativePromptMarker separates the main prompt from the negative prompt section.
	NegativePromptMarker = "Negative prompt:"

	// DefaultTag is used when a record carries no usable tags.
	DefaultTag   = "general"
	// DefaultStyle is used when a record carries no style label.
	DefaultStyle = "mixed"
	// DefaultTool is used when the generating tool is unknown.
	DefaultTool  = "Unknown"

	// PrefixKeyLength is the number of leading characters used as the merge identity.
	PrefixKeyLength = 100

	// DateLayout is the created_at layout.
	DateLayout      = "2006-01-02"
	// TimestampLayout is the collected_at layout (UTC, no zone suffix).
	TimestampLayout = "2006-01-02T15:04:05"
	// IDDateLayout is the date segment layout inside record ids.
	IDDateLayout    = "20060102"

	unknownSourceCode = "unk"
)

// ErrEmptyPrompt is returned when a prompt is empty after trimming.
var ErrEmptyPrompt = errors.New("prompt is empty")

// PromptRecord is the normalized prompt record shared by adapters, the filter and the corpus.
type PromptRecord struct {
	ID          string   `json:"id"`
	Prompt      string   `json:"prompt"`
	Images      []string `json:"images"`
	Tags        []string `json:"tags"`
	Style       string   `json:"style"`
	SourceURL   string   `json:"source_url"`
	Author      string   `json:"author"`
	Tool        string   `json:"tool"`
	CreatedAt   string   `json:"created_at"`
	CollectedAt string   `json:"collected_at"`
	SourceName  string   `json:"source_name,omitempty"`

	// Extra keeps fields written by other tools (e.g. the gallery) so they survive a rewrite.
	Extra map[string]json.RawMessage `json:"-"`
}

// PromptInput carries raw adapter values before normalization.
type PromptInput struct {
	Prompt     string
	Images     []string
	Tags       []string
	Style      string
	SourceURL  string
	Author     string
	Tool       string
	CreatedAt  string
	SourceName string
}

// NewPromptRecord builds a normalized record from adapter input.
// Parameters:
//   - in: raw values scraped from a source.
//   - now: collection time; created_at falls back to its local date.
// Returns:
//   - PromptRecord: normalized record without an id.
func NewPromptRecord(in PromptInput, now time.Time) PromptRecord {
	createdAt := strings.TrimSpace(in.CreatedAt)
	if createdAt == "" {
		createdAt = now.Format(DateLayout)
	}
	tool := strings.TrimSpace(in.Tool)
	if tool == "" {
		tool = DefaultTool
	}
	style := strings.ToLower(strings.TrimSpace(in.Style))
	if style == "" {
		style = DefaultStyle
	}

	return PromptRecord{
		Prompt:      strings.TrimSpace(in.Prompt),
		Images:      cleanImages(in.Images),
		Tags:        NormalizeTags(in.Tags),
		Style:       style,
		SourceURL:   in.SourceURL,
		Author:      in.Author,
		Tool:        tool,
		CreatedAt:   createdAt,
		CollectedAt: now.UTC().Format(TimestampLayout),
		SourceName:  in.SourceName,
	}
}

// NormalizeTags trims, lowercases and de-duplicates tags, defaulting to DefaultTag.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return []string{DefaultTag}
	}
	return out
}

func cleanImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, u := range images {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// Validate checks the record invariants that must hold before persistence.
func (p *PromptRecord) Validate() error {
	if strings.TrimSpace(p.Prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// SplitNegative returns the part of text before the first NegativePromptMarker.
func SplitNegative(text string) string {
	if i := strings.Index(text, NegativePromptMarker); i >= 0 {
		return text[:i]
	}
	return text
}

// ContentHash fingerprints the prompt after lowercasing and collapsing whitespace.
// It is informational only; merges deduplicate on PrefixKey.
func (p *PromptRecord) ContentHash() string {
	normalized := strings.Join(strings.Fields(strings.ToLower(p.Prompt)), " ")
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])[:12]
}

// PrefixKey returns the dedup identity: the first 100 characters, lowercased and trimmed.
func (p *PromptRecord) PrefixKey() string {
	return PrefixKey(p.Prompt)
}

// PrefixKey computes the dedup identity for a prompt text.
func PrefixKey(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > PrefixKeyLength {
		runes = runes[:PrefixKeyLength]
	}
	return strings.TrimSpace(strings.ToLower(string(runes)))
}

// SourceCode returns the three-letter source segment used in ids.
func SourceCode(sourceName string) string {
	if sourceName == "" {
		return unknownSourceCode
	}
	r := []rune(sourceName)
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r)
}

// GenerateID builds an id of the form {YYYYMMDD}_{src}_{seq:03d}.
func GenerateID(date time.Time, sourceName string, seq int) string {
	return fmt.Sprintf("%s_%s_%03d", date.Format(IDDateLayout), SourceCode(sourceName), seq)
}

// IDPrefix returns the "{date}_{src}" part of an id, or false if the id lacks it.
func IDPrefix(id string) (string, bool) {
	parts := strings.SplitN(id, "_", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	return parts[0] + "_" + parts[1], true
}

// WithSequence rebuilds an id from a "{date}_{src}" prefix and a sequence number.
func WithSequence(prefix string, seq int) string {
	return fmt.Sprintf("%s_%03d", prefix, seq)
}

// Preview returns at most n characters of the prompt.
func (p *PromptRecord) Preview(n int) string {
	r := []rune(p.Prompt)
	if len(r) <= n {
		return p.Prompt
	}
	return string(r[:n])
}

// promptRecordJSON avoids recursion in the custom (un)marshalers.
type promptRecordJSON PromptRecord

var knownFields = map[string]bool{
	"id": true, "prompt": true, "images": true, "tags": true, "style": true,
	"source_url": true, "author": true, "tool": true, "created_at": true,
	"collected_at": true, "source_name": true,
}

// UnmarshalJSON decodes known fields and keeps unknown ones in Extra.
func (p *PromptRecord) UnmarshalJSON(data []byte) error {
	var base promptRecordJSON
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw {
		if knownFields[k] {
			delete(raw, k)
		}
	}
	if len(raw) > 0 {
		base.Extra = raw
	}
	*p = PromptRecord(base)
	return nil
}

// MarshalJSON encodes known fields first, then Extra keys in sorted order.
func (p PromptRecord) MarshalJSON() ([]byte, error) {
	base := promptRecordJSON(p)
	if base.Images == nil {
		base.Images = []string{}
	}
	if base.Tags == nil {
		base.Tags = []string{}
	}
	out, err := encodeNoEscape(base)
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return out, nil
	}

	keys := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		if !knownFields[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(out[:len(out)-1])
	for _, k := range keys {
		name, err := encodeNoEscape(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(p.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeNoEscape(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
