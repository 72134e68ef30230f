// backend-go/internal/encoder/encoder.go
package encoder

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/retailinsight/backend-go/internal/domain"
)

// Encoder maps raw category strings to stable integer codes. The table is
// the single source of truth shared between training and inference: codes
// are assigned in sorted order so re-fitting on the same category set
// reproduces the same table, and Extend only appends, never reassigns.
//
// The encoder is read-only after construction except through Extend, which
// must be serialized by the caller.
type Encoder struct {
	codes    map[string]int
	revision string
}

// persistedTable is the on-disk shape of the encoder state.
type persistedTable struct {
	Revision string         `json:"revision"`
	Codes    map[string]int `json:"codes"`
}

// Fit builds a fresh encoder over the given categories. Duplicates are
// ignored; codes are assigned 0..n-1 in sorted order.
func Fit(categories []string) *Encoder {
	seen := make(map[string]struct{}, len(categories))
	uniq := make([]string, 0, len(categories))
	for _, c := range categories {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		uniq = append(uniq, c)
	}
	sort.Strings(uniq)

	codes := make(map[string]int, len(uniq))
	for i, c := range uniq {
		codes[c] = i
	}

	return &Encoder{codes: codes, revision: computeRevision(codes)}
}

// Encode returns the integer code for a category. A category absent from
// the table is an UnseenCategoryError, never a default code.
func (e *Encoder) Encode(category string) (int, error) {
	code, ok := e.codes[category]
	if !ok {
		return 0, &domain.UnseenCategoryError{Category: category}
	}
	return code, nil
}

// Extend appends codes for categories not yet in the table. Existing codes
// are never changed; new categories get codes after the current maximum in
// sorted order, and the revision advances.
func (e *Encoder) Extend(categories []string) {
	var fresh []string
	seen := make(map[string]struct{})
	for _, c := range categories {
		if c == "" {
			continue
		}
		if _, ok := e.codes[c]; ok {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		fresh = append(fresh, c)
	}
	if len(fresh) == 0 {
		return
	}
	sort.Strings(fresh)

	next := len(e.codes)
	for _, c := range fresh {
		e.codes[c] = next
		next++
	}
	e.revision = computeRevision(e.codes)
}

// Revision identifies this exact table state. A model artifact stores the
// revision it was trained against so inference can detect skew.
func (e *Encoder) Revision() string {
	return e.revision
}

// Len returns the number of known categories.
func (e *Encoder) Len() int {
	return len(e.codes)
}

// Categories returns the known categories in code order.
func (e *Encoder) Categories() []string {
	out := make([]string, len(e.codes))
	for c, code := range e.codes {
		out[code] = c
	}
	return out
}

// Save serializes the table with its revision.
func (e *Encoder) Save() ([]byte, error) {
	return json.MarshalIndent(persistedTable{Revision: e.revision, Codes: e.codes}, "", "  ")
}

// Load restores an encoder from Save output and verifies the stored
// revision against the recomputed one to catch corrupted state.
func Load(data []byte) (*Encoder, error) {
	var t persistedTable
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode encoder table: %w", err)
	}
	if t.Codes == nil {
		t.Codes = make(map[string]int)
	}

	computed := computeRevision(t.Codes)
	if t.Revision != "" && t.Revision != computed {
		return nil, fmt.Errorf("encoder table revision mismatch: stored %s, computed %s", t.Revision, computed)
	}

	return &Encoder{codes: t.Codes, revision: computed}, nil
}

func computeRevision(codes map[string]int) string {
	keys := make([]string, 0, len(codes))
	for c := range codes {
		keys = append(keys, c)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, c := range keys {
		fmt.Fprintf(h, "%s=%d\n", c, codes[c])
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
