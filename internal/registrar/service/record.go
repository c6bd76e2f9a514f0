package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jakaria-jihad/certchain/internal/certseal"
	"github.com/jakaria-jihad/certchain/internal/docstore"
	"github.com/jakaria-jihad/certchain/internal/registrar/model"
	"go.uber.org/zap"
)

// RecordService is the lifecycle engine for student certificate records.
// It owns the Absent → Draft → Finalized state machine: every mutation is
// role-checked against the capability table, appends exactly one audit entry,
// and goes through the per-student lock so concurrent Edit/Finalize calls on
// the same id serialize instead of interleaving.
type RecordService struct {
	store  docstore.Store
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRecordService creates a RecordService on top of the given store.
func NewRecordService(store docstore.Store, logger *zap.Logger) *RecordService {
	return &RecordService{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		locks:  make(map[string]*sync.Mutex),
	}
}

// SetClock overrides the time source. Used by tests to pin serial months
// and timestamps.
func (s *RecordService) SetClock(now func() time.Time) {
	s.now = now
}

// lock returns the mutex serializing mutations for one student id.
// Locks are never evicted; the id space is small (one per student).
func (s *RecordService) lock(studentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[studentID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[studentID] = l
	}
	return l
}

// exists reports whether the id has a document in the collection.
func (s *RecordService) exists(ctx context.Context, collection, id string) (bool, error) {
	var rec model.StudentRecord
	err := s.store.Get(ctx, collection, id, &rec)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateDraft registers a new student record in the drafts collection.
// Requires the Absent state and a role with the createDraft capability.
// Entry-tier actors may not set birth date or CGPA; those fields are ignored
// unless the role carries the grant.
func (s *RecordService) CreateDraft(ctx context.Context, actorID string, role model.Role, req *model.CreateRequest) (*model.StudentRecord, error) {
	caps := role.Can()
	if !caps.CreateDraft {
		return nil, fmt.Errorf("%w: role %q cannot create records", ErrForbidden, role)
	}
	if req.StudentID == "" || req.Name == "" || req.Major == "" {
		return nil, fmt.Errorf("%w: student_id, name, and major are required", ErrValidation)
	}

	l := s.lock(req.StudentID)
	l.Lock()
	defer l.Unlock()

	for _, collection := range []string{docstore.Drafts, docstore.Finals} {
		ok, err := s.exists(ctx, collection, req.StudentID)
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, fmt.Errorf("%w: student %q already exists", ErrInvalidState, req.StudentID)
		}
	}

	now := s.now()
	rec := &model.StudentRecord{
		StudentID: req.StudentID,
		Name:      req.Name,
		Major:     req.Major,
		AdminChain: model.AdminChain{}.Append(model.AuditEntry{
			AdminID:   actorID,
			Role:      role,
			Actions:   []string{"added student"},
			Timestamp: now,
		}),
		Finalized: false,
		Timestamp: now,
	}
	if caps.SetBirthAndCGPAOnCreate {
		rec.BirthDate = req.BirthDate
		rec.CGPA = req.CGPA
	}

	if err := s.store.Put(ctx, docstore.Drafts, rec.StudentID, rec); err != nil {
		return nil, err
	}

	s.logger.Info("draft created",
		zap.String("student_id", rec.StudentID),
		zap.String("admin_id", actorID),
		zap.String("role", string(role)),
	)
	return rec, nil
}

// EditDraft applies field changes to a draft record. Requires the Draft
// state; editing a finalized record is a policy violation, not a crash.
// Fields outside the role's grant (name, for editors) are left unchanged.
// Every successful edit appends exactly one audit entry.
func (s *RecordService) EditDraft(ctx context.Context, actorID string, role model.Role, studentID string, req *model.EditRequest) (*model.StudentRecord, error) {
	caps := role.Can()
	if !caps.EditDraft {
		return nil, fmt.Errorf("%w: role %q cannot edit records", ErrForbidden, role)
	}

	l := s.lock(studentID)
	l.Lock()
	defer l.Unlock()

	var rec model.StudentRecord
	err := s.store.Get(ctx, docstore.Drafts, studentID, &rec)
	if errors.Is(err, docstore.ErrNotFound) {
		final, existsErr := s.exists(ctx, docstore.Finals, studentID)
		if existsErr != nil {
			return nil, existsErr
		}
		if final {
			return nil, fmt.Errorf("%w: student %q is finalized", ErrInvalidState, studentID)
		}
		return nil, fmt.Errorf("%w: student %q", ErrNotFound, studentID)
	}
	if err != nil {
		return nil, err
	}

	var actions []string
	if req.Name != nil && caps.EditName && *req.Name != rec.Name {
		rec.Name = *req.Name
		actions = append(actions, "edited name")
	}
	if req.Major != nil && *req.Major != rec.Major {
		rec.Major = *req.Major
		actions = append(actions, "edited major")
	}
	if req.BirthDate != nil && *req.BirthDate != rec.BirthDate {
		rec.BirthDate = *req.BirthDate
		actions = append(actions, "edited birth_date")
	}
	if req.CGPA != nil && (rec.CGPA == nil || *req.CGPA != *rec.CGPA) {
		v := *req.CGPA
		rec.CGPA = &v
		actions = append(actions, "edited cgpa")
	}
	if len(actions) == 0 {
		actions = []string{"edited student"}
	}

	rec.AdminChain = rec.AdminChain.Append(model.AuditEntry{
		AdminID:   actorID,
		Role:      role,
		Actions:   actions,
		Timestamp: s.now(),
	})

	if err := s.store.Put(ctx, docstore.Drafts, studentID, &rec); err != nil {
		return nil, err
	}

	s.logger.Info("draft edited",
		zap.String("student_id", studentID),
		zap.String("admin_id", actorID),
		zap.Strings("actions", actions),
	)
	return &rec, nil
}

// Finalize transitions a draft into the terminal Finalized state. It stamps
// the certificate serial, a fresh security code, the finalization timestamp,
// and the block hash, writes the result to finals and the ledger, and only
// then deletes the draft. The per-student lock guarantees that of two
// concurrent Finalize calls one fails with ErrNotFound/ErrInvalidState.
//
// The three store writes are not transactional. A crash between them can
// leave the record in both drafts and finals; Repair reconciles that state.
func (s *RecordService) Finalize(ctx context.Context, actorID string, role model.Role, studentID string) (*model.StudentRecord, error) {
	caps := role.Can()
	if !caps.Finalize {
		return nil, fmt.Errorf("%w: role %q cannot finalize records", ErrForbidden, role)
	}

	l := s.lock(studentID)
	l.Lock()
	defer l.Unlock()

	var rec model.StudentRecord
	err := s.store.Get(ctx, docstore.Drafts, studentID, &rec)
	if errors.Is(err, docstore.ErrNotFound) {
		final, existsErr := s.exists(ctx, docstore.Finals, studentID)
		if existsErr != nil {
			return nil, existsErr
		}
		if final {
			return nil, fmt.Errorf("%w: student %q is already finalized", ErrInvalidState, studentID)
		}
		return nil, fmt.Errorf("%w: student %q", ErrNotFound, studentID)
	}
	if err != nil {
		return nil, err
	}
	if rec.Finalized || rec.CertificateSerial != "" {
		return nil, fmt.Errorf("%w: student %q already carries a serial", ErrInvalidState, studentID)
	}

	now := s.now()
	code, err := certseal.SecurityHex()
	if err != nil {
		return nil, err
	}

	rec.AdminChain = rec.AdminChain.Append(model.AuditEntry{
		AdminID:   actorID,
		Role:      role,
		Actions:   []string{"finalized certificate"},
		Timestamp: now,
	})
	rec.CertificateSerial = certseal.Serial(studentID, now)
	rec.SecurityHex = code
	rec.TimestampFinalized = &now
	rec.Finalized = true

	digest, err := certseal.Commit(&rec)
	if err != nil {
		return nil, err
	}
	rec.BlockHash = digest

	if err := s.store.Put(ctx, docstore.Finals, studentID, &rec); err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, docstore.Ledger, studentID, &rec); err != nil {
		s.logger.Error("ledger write failed after finals write; run repair",
			zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	if err := s.store.Delete(ctx, docstore.Drafts, studentID); err != nil {
		s.logger.Error("draft delete failed after finalization; run repair",
			zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("record finalized",
		zap.String("student_id", studentID),
		zap.String("serial", rec.CertificateSerial),
		zap.String("admin_id", actorID),
	)
	return &rec, nil
}

// GetRecord returns the live record for a student in any lifecycle state,
// preferring the draft when one exists.
func (s *RecordService) GetRecord(ctx context.Context, studentID string) (*model.StudentRecord, error) {
	var rec model.StudentRecord
	err := s.store.Get(ctx, docstore.Drafts, studentID, &rec)
	if err == nil {
		return &rec, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}
	err = s.store.Get(ctx, docstore.Finals, studentID, &rec)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: student %q", ErrNotFound, studentID)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetAuditTrail returns the ordered audit history for a student.
func (s *RecordService) GetAuditTrail(ctx context.Context, studentID string) (model.AdminChain, error) {
	rec, err := s.GetRecord(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return rec.AdminChain, nil
}

// ListRecords returns all drafts followed by all finalized records, the
// combined view shown on the admin dashboards.
func (s *RecordService) ListRecords(ctx context.Context) ([]*model.StudentRecord, error) {
	var out []*model.StudentRecord
	for _, collection := range []string{docstore.Drafts, docstore.Finals} {
		docs, err := s.store.List(ctx, collection)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			rec := &model.StudentRecord{}
			if err := d.Decode(rec); err != nil {
				s.logger.Warn("skipping undecodable record",
					zap.String("collection", collection),
					zap.String("id", d.ID), zap.Error(err))
				continue
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

// VerifyByCode looks up a finalized record by its public security code.
// Only the finals collection is scanned — drafts are never publicly
// verifiable. Matching is case-sensitive and returns the first hit in list
// order; code uniqueness is probabilistic, not enforced.
func (s *RecordService) VerifyByCode(ctx context.Context, code string) (*model.StudentRecord, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty verification code", ErrValidation)
	}

	docs, err := s.store.List(ctx, docstore.Finals)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		rec := &model.StudentRecord{}
		if err := d.Decode(rec); err != nil {
			continue
		}
		if rec.SecurityHex == code {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: no certificate matches the code", ErrNotFound)
}

// genesisDoc is the ledger's unlinked genesis document, preserved as-built:
// nothing chains to it and nothing verifies against it.
type genesisDoc struct {
	SystemID     string    `json:"system_id"`
	CreatedAt    time.Time `json:"created_at"`
	PreviousHash *string   `json:"previous_hash"`
	BlockHash    string    `json:"block_hash"`
}

// genesisKey is the ledger document id reserved for the genesis block.
const genesisKey = "genesis_block"

// EnsureGenesis writes the ledger genesis document if it is absent.
// Called once at startup.
func (s *RecordService) EnsureGenesis(ctx context.Context) error {
	var existing genesisDoc
	err := s.store.Get(ctx, docstore.Ledger, genesisKey, &existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return err
	}

	doc := genesisDoc{
		SystemID:  certseal.GenesisSystemID,
		CreatedAt: s.now(),
		BlockHash: certseal.GenesisHash(),
	}
	if err := s.store.Put(ctx, docstore.Ledger, genesisKey, &doc); err != nil {
		return err
	}
	s.logger.Info("ledger genesis document created")
	return nil
}
