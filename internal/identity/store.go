package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"visavis/internal/vision"
)

var (
	ErrNotFound     = errors.New("user not found")
	ErrDuplicate    = errors.New("user already registered")
	ErrNoCandidates = errors.New("no usable candidate signatures")
)

// Record pairs a person's name with their reference signature.
type Record struct {
	Name      string           `json:"name"`
	Signature vision.Signature `json:"signature"`
}

// Store holds the known identities and their persisted form on disk.
// All access is serialized by a single mutex; persistence happens under
// the same lock so a mutation is only visible once it is durable
// (a failed write rolls the in-memory state back).
type Store struct {
	mu        sync.Mutex
	path      string
	threshold float64
	log       zerolog.Logger

	names      []string
	signatures []vision.Signature
}

// storeFile is the on-disk container: two parallel lists plus a save
// timestamp, mirroring the append/remove-by-index access pattern.
type storeFile struct {
	Names      []string    `json:"names"`
	Signatures [][]float32 `json:"signatures"`
	SavedAt    time.Time   `json:"saved_at"`
}

// NewStore opens the store at path. A missing or corrupt file is not an
// error: the store starts empty and the condition is logged.
func NewStore(path string, threshold float64, log zerolog.Logger) *Store {
	s := &Store{
		path:      path,
		threshold: threshold,
		log:       log.With().Str("component", "identity").Logger(),
	}
	s.load()
	return s
}

func (s *Store) load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Info().Str("path", s.path).Msg("no identity database found, starting fresh")
		} else {
			s.log.Error().Err(err).Str("path", s.path).Msg("identity database unreadable, starting fresh")
		}
		return
	}

	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil || len(file.Names) != len(file.Signatures) {
		s.log.Error().Err(err).Str("path", s.path).Msg("identity database corrupt, starting fresh")
		return
	}

	s.names = file.Names
	s.signatures = make([]vision.Signature, len(file.Signatures))
	for i, sig := range file.Signatures {
		s.signatures[i] = vision.Signature(sig)
	}
	s.log.Info().Int("users", len(s.names)).Msg("loaded identity database")
}

// Match finds the stored identity closest to sig. It returns the name
// only when the minimum distance is below the recognition threshold.
func (s *Store) Match(sig vision.Signature) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bestIdx, bestDist := -1, math.Inf(1)
	for i, known := range s.signatures {
		if !vision.SameLength(known, sig) {
			continue
		}
		if d := vision.Distance(known, sig); d < bestDist {
			bestIdx, bestDist = i, d
		}
	}
	if bestIdx < 0 || bestDist >= s.threshold {
		return "", false
	}
	return s.names[bestIdx], true
}

// Register enrolls a new name. Among the candidate signatures gathered
// during one enrollment attempt it keeps the one with the largest minimum
// distance to the existing entries: the most distinctive sample is the
// least likely to collide with someone already known.
func (s *Store) Register(name string, candidates []vision.Signature) error {
	if name == "" {
		return fmt.Errorf("register: empty name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.names {
		if existing == name {
			return fmt.Errorf("register %s: %w", name, ErrDuplicate)
		}
	}

	best := s.pickCandidateLocked(candidates)
	if best == nil {
		return fmt.Errorf("register %s: %w", name, ErrNoCandidates)
	}

	s.names = append(s.names, name)
	s.signatures = append(s.signatures, best)
	if err := s.persistLocked(); err != nil {
		// Roll back: the entry never becomes visible if it is not durable.
		s.names = s.names[:len(s.names)-1]
		s.signatures = s.signatures[:len(s.signatures)-1]
		return fmt.Errorf("register %s: %w", name, err)
	}
	s.log.Info().Str("user", name).Int("users", len(s.names)).Msg("registered user")
	return nil
}

func (s *Store) pickCandidateLocked(candidates []vision.Signature) vision.Signature {
	var best vision.Signature
	bestScore := -1.0
	for _, cand := range candidates {
		if len(cand) == 0 {
			continue
		}
		minDist := math.Inf(1)
		for _, known := range s.signatures {
			if !vision.SameLength(known, cand) {
				continue
			}
			if d := vision.Distance(known, cand); d < minDist {
				minDist = d
			}
		}
		score := minDist
		if math.IsInf(score, 1) {
			// Empty store: every candidate is equally distinctive,
			// keep the first usable one.
			if best == nil {
				best = cand
				bestScore = math.Inf(1)
			}
			continue
		}
		if score > bestScore {
			best, bestScore = cand, score
		}
	}
	return best
}

// Remove deletes a user and persists the change.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, existing := range s.names {
		if existing == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("remove %s: %w", name, ErrNotFound)
	}

	removedName := s.names[idx]
	removedSig := s.signatures[idx]
	s.names = append(s.names[:idx], s.names[idx+1:]...)
	s.signatures = append(s.signatures[:idx], s.signatures[idx+1:]...)
	if err := s.persistLocked(); err != nil {
		s.names = append(s.names[:idx], append([]string{removedName}, s.names[idx:]...)...)
		s.signatures = append(s.signatures[:idx], append([]vision.Signature{removedSig}, s.signatures[idx:]...)...)
		return fmt.Errorf("remove %s: %w", name, err)
	}
	s.log.Info().Str("user", name).Int("users", len(s.names)).Msg("removed user")
	return nil
}

// Users returns the registered names.
func (s *Store) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Count returns the number of registered users.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.names)
}

// persistLocked writes the store to a temporary file, rotates the current
// file to a single-generation .backup and renames the temporary file into
// place. Caller must hold s.mu.
func (s *Store) persistLocked() error {
	file := storeFile{
		Names:      s.names,
		Signatures: make([][]float32, len(s.signatures)),
		SavedAt:    time.Now().UTC(),
	}
	for i, sig := range s.signatures {
		file.Signatures[i] = []float32(sig)
	}

	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode identity database: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write identity database: %w", err)
	}
	if err := os.Rename(s.path, s.path+".backup"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("rotate identity backup: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit identity database: %w", err)
	}
	return nil
}
