package quota

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/jakechorley/admissions-allocator/pkg/core/model"
	"github.com/jakechorley/admissions-allocator/pkg/db"
)

const (
	// DefaultSeats is used for a program whose quota was never set
	DefaultSeats = 36

	MinSeats = 0
	MaxSeats = 200

	// HighSeatsWarning is the seat count from which an update is flagged as near the ceiling
	HighSeatsWarning = 180

	// DefaultReservePercent is the share of the quota offered as waitlist slots
	DefaultReservePercent = 10
)

// Set maps program codes to seat counts. It is passed explicitly into every
// ranking computation; the keys are the programs being ranked.
type Set map[string]int

// Programs returns the program codes in the set in sorted order
func (s Set) Programs() []string {
	programs := make([]string, 0, len(s))
	for program := range s {
		programs = append(programs, program)
	}
	sort.Strings(programs)
	return programs
}

// Clone returns an independent copy of the set
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for program, seats := range s {
		out[program] = seats
	}
	return out
}

// Total returns the sum of all seats
func (s Set) Total() int {
	total := 0
	for _, seats := range s {
		total += seats
	}
	return total
}

// Reserve returns ceil(seats * percent / 100), computed in integers
func Reserve(seats, percent int) int {
	if seats <= 0 || percent <= 0 {
		return 0
	}
	return (seats*percent + 99) / 100
}

// Validate checks a seat count against the allowed range
func Validate(program string, seats int) error {
	if seats < MinSeats || seats > MaxSeats {
		return &model.ValidationError{
			Subject: program,
			Field:   "quota",
			Reason:  fmt.Sprintf("must be between %d and %d, got %d", MinSeats, MaxSeats, seats),
		}
	}
	return nil
}

// Warnings returns advisory messages for a valid but unusual seat count
func Warnings(program string, seats int) []string {
	var warnings []string
	if seats == 0 {
		warnings = append(warnings, fmt.Sprintf("program %s has a quota of 0 and will admit nobody", program))
	}
	if seats >= HighSeatsWarning {
		warnings = append(warnings, fmt.Sprintf("program %s quota %d is close to the maximum of %d", program, seats, MaxSeats))
	}
	return warnings
}

// Resolve builds the quota set for programs. A stored value wins, then a seed, then defaultSeats.
// Stored quotas for programs not listed are ignored.
func Resolve(programs []model.Program, stored map[string]int, seeds map[string]int, defaultSeats int) Set {
	set := make(Set, len(programs))
	for _, p := range programs {
		set[p.Code] = fallback(p.Code, seeds, defaultSeats)
		if seats, ok := stored[p.Code]; ok {
			set[p.Code] = seats
		}
	}
	return set
}

func fallback(program string, seeds map[string]int, defaultSeats int) int {
	if seats, ok := seeds[program]; ok {
		return seats
	}
	return defaultSeats
}

// Backend is the subset of the record store the quota store needs
type Backend interface {
	db.QuotaStore
	db.ProgramLocker
}

// Store holds per-program quota values for the configured programs
type Store struct {
	backend      Backend
	programs     []model.Program
	seeds        map[string]int
	defaultSeats int
	retry        db.RetryPolicy
	logger       *zap.Logger
}

// NewStore creates a quota store for the given programs.
// defaultSeats is used for programs with no stored quota; zero or negative means DefaultSeats.
func NewStore(backend Backend, programs []model.Program, defaultSeats int, logger *zap.Logger) *Store {
	if defaultSeats <= 0 {
		defaultSeats = DefaultSeats
	}
	return &Store{
		backend:      backend,
		programs:     programs,
		defaultSeats: defaultSeats,
		retry:        db.DefaultRetryPolicy,
		logger:       logger,
	}
}

// WithSeeds sets per-program values used before a quota is first stored
func (s *Store) WithSeeds(seeds map[string]int) *Store {
	s.seeds = seeds
	return s
}

// WithRetryPolicy sets the timeout and retry policy for every backend call
func (s *Store) WithRetryPolicy(policy db.RetryPolicy) *Store {
	s.retry = policy
	return s
}

// Fallback returns the quota a program has while nothing is stored for it
func (s *Store) Fallback(program string) int {
	return fallback(program, s.seeds, s.defaultSeats)
}

// Programs returns the configured programs
func (s *Store) Programs() []model.Program {
	return s.programs
}

func (s *Store) isKnown(program string) bool {
	for _, p := range s.programs {
		if p.Code == program {
			return true
		}
	}
	return false
}

func (s *Store) unknownProgram(program string) error {
	return &model.ValidationError{Subject: program, Field: "program", Reason: "unknown program code"}
}

// All returns the quota of every configured program, falling back to the seed or default when unset.
// Stored quotas for programs that are no longer configured are ignored.
func (s *Store) All(ctx context.Context) (Set, error) {
	var records []db.QuotaRecord
	err := db.WithRetry(ctx, s.retry, s.logger, "load quotas", func(ctx context.Context) error {
		var err error
		records, err = s.backend.GetQuotas(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get quotas: %w", err)
	}
	return Resolve(s.programs, db.QuotaMap(records), s.seeds, s.defaultSeats), nil
}

// Get returns the quota for one program, falling back to the default when unset
func (s *Store) Get(ctx context.Context, program string) (int, error) {
	if !s.isKnown(program) {
		return 0, s.unknownProgram(program)
	}
	all, err := s.All(ctx)
	if err != nil {
		return 0, err
	}
	return all[program], nil
}

// Update validates and stores a new quota for one program.
// It runs inside the program lock, so it never interleaves with a bulk status apply.
func (s *Store) Update(ctx context.Context, program string, seats int) ([]string, error) {
	if !s.isKnown(program) {
		return nil, s.unknownProgram(program)
	}
	if err := Validate(program, seats); err != nil {
		return nil, err
	}

	warnings := Warnings(program, seats)
	for _, w := range warnings {
		s.logger.Warn("Quota warning", zap.String("program", program), zap.String("warning", w))
	}

	err := db.WithRetry(ctx, s.retry, s.logger, "lock "+program, func(ctx context.Context) error {
		return s.backend.WithProgramLock(ctx, program, func(tx db.ProgramTx) error {
			previous, ok, err := tx.GetQuota(ctx, program)
			if err != nil {
				return fmt.Errorf("failed to read current quota: %w", err)
			}
			if err := tx.SetQuota(ctx, program, seats); err != nil {
				return fmt.Errorf("failed to store quota: %w", err)
			}
			if !ok {
				previous = s.Fallback(program)
			}
			s.logger.Info("Quota updated",
				zap.String("program", program),
				zap.Int("previous", previous),
				zap.Int("seats", seats))
			return nil
		})
	})
	if err != nil {
		return warnings, fmt.Errorf("failed to update quota for %s: %w", program, err)
	}

	return warnings, nil
}

// UpdateFailure records a program whose quota could not be updated
type UpdateFailure struct {
	Program string
	Seats   int
	Error   string
}

// UpdateManyResult reports the outcome of a best-effort batch update
type UpdateManyResult struct {
	Updated  []string
	Failed   []UpdateFailure
	Warnings []string
}

// UpdateMany applies several quota updates. A failure on one program does not abort the
// others; failing programs keep their prior value. Programs are processed in code order.
func (s *Store) UpdateMany(ctx context.Context, updates map[string]int) UpdateManyResult {
	result := UpdateManyResult{
		Updated:  []string{},
		Failed:   []UpdateFailure{},
		Warnings: []string{},
	}

	for _, program := range Set(updates).Programs() {
		seats := updates[program]
		warnings, err := s.Update(ctx, program, seats)
		result.Warnings = append(result.Warnings, warnings...)
		if err != nil {
			s.logger.Warn("Quota update failed", zap.String("program", program), zap.Error(err))
			result.Failed = append(result.Failed, UpdateFailure{
				Program: program,
				Seats:   seats,
				Error:   err.Error(),
			})
			continue
		}
		result.Updated = append(result.Updated, program)
	}

	return result
}
