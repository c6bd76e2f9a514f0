package model

import "time"

// AuditEntry is one administrative action recorded against a student record.
type AuditEntry struct {
	AdminID   string    `json:"admin_id"`
	Role      Role      `json:"role"`
	Actions   []string  `json:"actions"`
	Timestamp time.Time `json:"timestamp"`
}

// AdminChain is the append-only audit history of a record. History is never
// reordered or truncated; the only mutation is Append, which returns a new
// chain with the entry at the tail and leaves the receiver untouched.
type AdminChain []AuditEntry

// Append returns a new chain with entry at the tail.
func (c AdminChain) Append(entry AuditEntry) AdminChain {
	out := make(AdminChain, len(c), len(c)+1)
	copy(out, c)
	return append(out, entry)
}

// StudentRecord is the core domain model: one student's certificate record.
// While Finalized is false the record lives in the drafts collection and is
// mutable by permitted roles. Finalization stamps the serial, security code,
// and block hash, moves the record to finals and the ledger, and makes it
// write-once from then on.
type StudentRecord struct {
	StudentID string   `json:"student_id"`
	Name      string   `json:"name"`
	Major     string   `json:"major"`
	BirthDate string   `json:"birth_date,omitempty"`
	CGPA      *float64 `json:"cgpa,omitempty"`

	AdminChain AdminChain `json:"admin_chain"`
	Finalized  bool       `json:"finalized"`

	// Assigned only at finalization.
	CertificateSerial string `json:"certificate_serial,omitempty"`
	SecurityHex       string `json:"security_hex,omitempty"`
	BlockHash         string `json:"block_hash,omitempty"`

	Timestamp          time.Time  `json:"timestamp"`
	TimestampFinalized *time.Time `json:"timestamp_finalized,omitempty"`
}

// Clone returns a deep copy of the record. The audit chain and CGPA pointer
// are copied so mutations on the clone never leak into the original.
func (r *StudentRecord) Clone() *StudentRecord {
	out := *r
	out.AdminChain = make(AdminChain, len(r.AdminChain))
	copy(out.AdminChain, r.AdminChain)
	if r.CGPA != nil {
		v := *r.CGPA
		out.CGPA = &v
	}
	if r.TimestampFinalized != nil {
		t := *r.TimestampFinalized
		out.TimestampFinalized = &t
	}
	return &out
}

// CreateRequest is the payload for creating a new draft record.
type CreateRequest struct {
	StudentID string   `json:"student_id" binding:"required"`
	Name      string   `json:"name"       binding:"required"`
	Major     string   `json:"major"      binding:"required"`
	BirthDate string   `json:"birth_date"`
	CGPA      *float64 `json:"cgpa"`
}

// EditRequest is the payload for editing a draft. Nil fields are left
// unchanged; fields the actor's role may not edit are ignored.
type EditRequest struct {
	Name      *string  `json:"name"`
	Major     *string  `json:"major"`
	BirthDate *string  `json:"birth_date"`
	CGPA      *float64 `json:"cgpa"`
}
